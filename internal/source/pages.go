package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/Boakye-20/charity-compliance-tracker/internal/extract"
	"github.com/Boakye-20/charity-compliance-tracker/internal/fetch"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

// PageItem is one fetched page as it is staged on disk.
type PageItem struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// pageAdapter is the shape shared by every source that discovers a list of
// item URLs and turns each fetched HTML page into at most one record.
type pageAdapter struct {
	env       Env
	meta      model.SourceMetadata
	stageName string
	discover  func(ctx context.Context) ([]string, error)
	build     func(it PageItem, p *extract.Page) (model.Record, bool)
}

func (a *pageAdapter) Metadata() model.SourceMetadata { return a.meta }

func (a *pageAdapter) Download(ctx context.Context) (Payload, error) {
	urls, err := a.discover(ctx)
	if err != nil {
		return Payload{}, err
	}
	items, err := fetchPages(ctx, a.env.Fetcher, a.env.logger().With(zap.String("source", a.meta.Key)), urls)
	if err != nil {
		return Payload{}, err
	}
	return WriteJSON(a.env.StagingDir, a.stageName, items)
}

func (a *pageAdapter) Normalize(p Payload) ([]model.Record, error) {
	var items []PageItem
	if err := ReadJSON(p, &items); err != nil {
		return nil, &ParseError{Source: a.meta.Key, Detail: "staged pages", Err: err}
	}
	log := a.env.logger().With(zap.String("source", a.meta.Key))
	out := make([]model.Record, 0, len(items))
	for _, it := range items {
		page, err := extract.NewPage([]byte(it.HTML))
		if err != nil {
			log.Warn("skipping unparseable page", zap.String("url", it.URL), zap.Error(err))
			continue
		}
		if rec, ok := a.build(it, page); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fetchPages GETs urls in order. A failing item is logged and skipped; only
// cancellation aborts the loop.
func fetchPages(ctx context.Context, f fetch.Fetcher, log *zap.Logger, urls []string) ([]PageItem, error) {
	items := make([]PageItem, 0, len(urls))
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := fetch.RequireOK(f.Get(ctx, u))
		if err != nil {
			log.Warn("skipping item", zap.String("url", u), zap.Error(err))
			continue
		}
		log.Debug("fetched item", zap.Int("n", i+1), zap.Int("of", len(urls)), zap.String("url", u))
		items = append(items, PageItem{URL: u, HTML: string(resp.Body)})
	}
	return items, nil
}

// staticURLs discovers a fixed list, honouring an env override.
func staticURLs(env Env, urls []string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		if len(env.URLs) > 0 {
			return env.URLs, nil
		}
		return urls, nil
	}
}
