package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/Boakye-20/charity-compliance-tracker/internal/extract"
	"github.com/Boakye-20/charity-compliance-tracker/internal/fetch"
)

// LinkFilter picks the item links off one index page.
type LinkFilter func(p *extract.Page, pageURL string) []string

// Crawl walks a paginated index starting at start (page 1), then
// start?page=2 and so on. It stops when a page is not found, yields no new
// links, has no next-page link, or maxPages pages have been read. A failing
// index page is an error; the source has nothing to offer without it.
func Crawl(ctx context.Context, f fetch.Fetcher, log *zap.Logger, start string, maxPages int, links LinkFilter) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for n := 1; ; n++ {
		if n > maxPages {
			log.Warn("pagination ceiling reached", zap.Int("max_pages", maxPages))
			break
		}
		pageURL := PageURL(start, n)
		resp, err := f.Get(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusNotFound {
			log.Debug("index page not found, stopping", zap.String("url", pageURL))
			break
		}
		if !resp.OK() {
			return nil, &fetch.FetchError{URL: pageURL, StatusCode: resp.StatusCode}
		}
		page, err := extract.NewPage(resp.Body)
		if err != nil {
			return nil, err
		}
		fresh := 0
		for _, l := range links(page, pageURL) {
			if seen[l] {
				continue
			}
			seen[l] = true
			out = append(out, l)
			fresh++
		}
		log.Info("index page read", zap.Int("page", n), zap.Int("new_links", fresh))
		if fresh == 0 || !HasNextPage(page) {
			break
		}
	}
	return out, nil
}

// PageURL is start for page 1 and start with ?page=n otherwise.
func PageURL(start string, n int) string {
	if n <= 1 {
		return start
	}
	u, err := url.Parse(start)
	if err != nil {
		return start + "?page=" + strconv.Itoa(n)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}

// HasNextPage looks for the rel=next hints GOV.UK emits on paginated lists.
func HasNextPage(p *extract.Page) bool {
	return p.Doc.Find(`link[rel="next"], a[rel="next"], .govuk-pagination__next a`).Length() > 0
}
