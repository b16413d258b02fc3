package pipeline

import (
	"time"

	"github.com/Boakye-20/charity-compliance-tracker/internal/journal"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
	"github.com/Boakye-20/charity-compliance-tracker/internal/store"
)

// SourceResult is what one source contributed to a run.
type SourceResult struct {
	Key      string
	Name     string
	Records  int
	Stamped  int // records that needed a placeholder date or the default domain
	Stage    string
	Err      error
	Duration time.Duration
}

func (r SourceResult) OK() bool { return r.Err == nil }

// Report is the operator-facing summary of a run.
type Report struct {
	RunID        string
	StartedAt    time.Time
	Duration     time.Duration
	DryRun       bool
	Persisted    bool
	Sources      []SourceResult
	Merge        store.MergeStats
	DedupRemoved int
	Total        int
	ByRegulator  map[model.Regulator]int
	Diff         *store.DiffSummary // dry runs only
}

// Failed counts the sources that produced no records because of an error.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if !s.OK() {
			n++
		}
	}
	return n
}

// AllFailed reports a run in which every selected source failed.
func (r *Report) AllFailed() bool {
	return len(r.Sources) > 0 && r.Failed() == len(r.Sources)
}

func (r *Report) journalRun(fatal error) journal.Run {
	jr := journal.Run{
		ID:           r.RunID,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.StartedAt.Add(r.Duration),
		DryRun:       r.DryRun,
		Added:        r.Merge.Added,
		Updated:      r.Merge.Updated,
		Unchanged:    r.Merge.Unchanged,
		PreExisting:  r.Merge.PreExisting,
		DedupRemoved: r.DedupRemoved,
		Total:        r.Total,
	}
	if fatal != nil {
		jr.Err = fatal.Error()
	}
	for _, s := range r.Sources {
		js := journal.SourceResult{Source: s.Key, Records: s.Records, Duration: s.Duration}
		if s.Err != nil {
			js.Err = s.Err.Error()
		}
		jr.Sources = append(jr.Sources, js)
	}
	return jr
}
