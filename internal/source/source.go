package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Boakye-20/charity-compliance-tracker/internal/fetch"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// Payload points at the raw content an adapter staged on disk.
type Payload struct {
	Path   string
	Format Format
}

// Adapter fetches and normalizes one regulator source.
//
// Download does all network I/O and stages the raw content. Normalize is a
// pure function of the staged payload: it never touches the network, and it
// returns an empty slice when the payload legitimately holds no items.
type Adapter interface {
	Metadata() model.SourceMetadata
	Download(ctx context.Context) (Payload, error)
	Normalize(p Payload) ([]model.Record, error)
}

// Env carries the run-scoped collaborators handed to every adapter.
type Env struct {
	Fetcher     fetch.Fetcher // already throttled and cached
	StagingDir  string
	Log         *zap.Logger
	MaxPages    int      // paginated index ceiling
	MaxKeywords int      // 0 keeps the source default
	URLs        []string // replaces a curated page list when set
}

func (e Env) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e Env) keywordCap(def int) int {
	if e.MaxKeywords > 0 {
		return e.MaxKeywords
	}
	return def
}

func (e Env) pagesCap() int {
	if e.MaxPages > 0 {
		return e.MaxPages
	}
	return 25
}

// SourceError attributes a download or normalize failure to its source.
type SourceError struct {
	Source string
	Stage  string // "download" or "normalize"
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Stage, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ParseError is a staged payload that could not be read at all. Markup
// problems inside single items are logged and the item skipped instead.
type ParseError struct {
	Source string
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Source, e.Detail, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Source, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FetchAndNormalize downloads then normalizes, logging both steps. Any
// failure comes back as a *SourceError naming the source.
func FetchAndNormalize(ctx context.Context, a Adapter, log *zap.Logger) ([]model.Record, error) {
	meta := a.Metadata()
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("source", meta.Key))

	start := time.Now()
	log.Info("download started", zap.String("url", meta.URL))
	p, err := a.Download(ctx)
	if err != nil {
		log.Error("download failed", zap.Error(err))
		return nil, &SourceError{Source: meta.Key, Stage: "download", Err: err}
	}
	log.Info("download finished", zap.String("payload", p.Path), zap.Duration("took", time.Since(start)))

	recs, err := a.Normalize(p)
	if err != nil {
		log.Error("normalize failed", zap.String("payload", p.Path), zap.Error(err))
		return nil, &SourceError{Source: meta.Key, Stage: "normalize", Err: err}
	}
	log.Info("normalize finished", zap.Int("records", len(recs)))
	return recs, nil
}
