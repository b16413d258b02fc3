package store

import (
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

// MergeStats counts what a merge did with the incoming records.
type MergeStats struct {
	Added       int `json:"added"`
	Updated     int `json:"updated"`
	Unchanged   int `json:"unchanged"`    // incoming records that lost to an existing one
	PreExisting int `json:"pre_existing"` // dataset size before the merge
}

// Outcome is what a merge did with one incoming record.
type Outcome string

const (
	OutcomeAdded   Outcome = "added"
	OutcomeUpdated Outcome = "updated"
)

// Change is an incoming record that altered the dataset.
type Change struct {
	Outcome Outcome
	Record  model.Record
}

// Merge folds incoming into ds. A new id is inserted; a known id is replaced
// only when the incoming last_updated sorts strictly after the stored one.
// Records the run did not touch stay as they are.
func Merge(ds *Dataset, incoming []model.Record) MergeStats {
	st, _ := MergeChanges(ds, incoming)
	return st
}

// MergeChanges is Merge that also returns every insert and replacement in
// input order.
func MergeChanges(ds *Dataset, incoming []model.Record) (MergeStats, []Change) {
	st := MergeStats{PreExisting: ds.Len()}
	var changes []Change
	for _, r := range incoming {
		switch mergeOne(ds, r) {
		case added:
			st.Added++
			changes = append(changes, Change{Outcome: OutcomeAdded, Record: r})
		case updated:
			st.Updated++
			changes = append(changes, Change{Outcome: OutcomeUpdated, Record: r})
		default:
			st.Unchanged++
		}
	}
	return st, changes
}

type mergeOutcome int

const (
	kept mergeOutcome = iota
	added
	updated
)

func mergeOne(ds *Dataset, r model.Record) mergeOutcome {
	old, ok := ds.Get(r.ID)
	if !ok {
		ds.Put(r)
		return added
	}
	if r.LastUpdated > old.LastUpdated {
		ds.Put(r)
		return updated
	}
	return kept
}

// DedupeByURL keeps one record per source_url. Within a group the first
// record with a real published_date wins; when every date is a placeholder
// the first record is kept. Records without a URL are never grouped. Group
// order follows first appearance, so running it twice changes nothing.
func DedupeByURL(records []model.Record, isPlaceholder func(string) bool) ([]model.Record, int) {
	if isPlaceholder == nil {
		isPlaceholder = model.IsPlaceholderDate
	}
	type group struct {
		pos   int // index into out
		dated bool
	}
	groups := make(map[string]*group)
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if r.SourceURL == "" {
			out = append(out, r)
			continue
		}
		dated := r.PublishedDate != "" && !isPlaceholder(r.PublishedDate)
		g, ok := groups[r.SourceURL]
		if !ok {
			groups[r.SourceURL] = &group{pos: len(out), dated: dated}
			out = append(out, r)
			continue
		}
		if dated && !g.dated {
			out[g.pos] = r
			g.dated = true
		}
	}
	return out, len(records) - len(out)
}
