package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

func rec(id, url, published, updated string) model.Record {
	return model.Record{
		ID:            id,
		Title:         "Title " + id,
		SourceURL:     url,
		PublishedDate: published,
		LastUpdated:   updated,
		Regulator:     model.RegulatorCC,
		Domain:        "governance",
		DocumentType:  model.DocGuidance,
	}
}

func TestMergeInsertsNewRecords(t *testing.T) {
	ds := NewDataset()
	st := Merge(ds, []model.Record{rec("a", "u1", "2023-01-01", "2023-01-01"), rec("b", "u2", "2023-01-01", "2023-01-01")})
	assert.Equal(t, MergeStats{Added: 2}, st)
	assert.Equal(t, 2, ds.Len())
}

func TestMergeIntoItselfChangesNothing(t *testing.T) {
	ds := NewDataset()
	Merge(ds, []model.Record{rec("a", "u1", "2023-01-01", "2023-01-01"), rec("b", "u2", "2023-02-01", "2023-02-01")})
	before := ds.Records()

	st := Merge(ds, ds.Records())
	assert.Equal(t, MergeStats{Unchanged: 2, PreExisting: 2}, st)
	assert.Equal(t, before, ds.Records())
}

func TestMergeRecencyWins(t *testing.T) {
	a := rec("A", "u", "2023-01-01", "2023-01-01")

	newer := a
	newer.Title = "revised"
	newer.LastUpdated = "2023-06-01"
	ds := NewDataset()
	ds.Put(a)
	st := Merge(ds, []model.Record{newer})
	assert.Equal(t, 1, st.Updated)
	got, _ := ds.Get("A")
	assert.Equal(t, newer, got)

	older := a
	older.Title = "stale"
	older.LastUpdated = "2022-01-01"
	ds = NewDataset()
	ds.Put(a)
	st = Merge(ds, []model.Record{older})
	assert.Equal(t, 1, st.Unchanged)
	got, _ = ds.Get("A")
	assert.Equal(t, a, got)
}

func TestMergeChangesListsInsertsAndReplacements(t *testing.T) {
	ds := NewDataset()
	ds.Put(rec("A", "u", "2023-01-01", "2023-01-01"))
	st, changes := MergeChanges(ds, []model.Record{
		rec("A", "u", "2023-01-01", "2023-03-01"),
		rec("A", "u", "2023-01-01", "2023-02-01"),
		rec("B", "v", "2023-01-01", "2023-01-01"),
	})
	assert.Equal(t, MergeStats{Added: 1, Updated: 1, Unchanged: 1, PreExisting: 1}, st)
	require.Len(t, changes, 2)
	assert.Equal(t, OutcomeUpdated, changes[0].Outcome)
	assert.Equal(t, "2023-03-01", changes[0].Record.LastUpdated)
	assert.Equal(t, OutcomeAdded, changes[1].Outcome)
	assert.Equal(t, "B", changes[1].Record.ID)
}

func TestMergeKeepsUntouchedRecords(t *testing.T) {
	ds := NewDataset()
	ds.Put(rec("old", "u0", "2020-01-01", "2020-01-01"))
	Merge(ds, []model.Record{rec("new", "u1", "2023-01-01", "2023-01-01")})
	_, ok := ds.Get("old")
	assert.True(t, ok)
	assert.Equal(t, 2, ds.Len())
}

func TestDedupeByURLPrefersRealDates(t *testing.T) {
	in := []model.Record{
		rec("p1", "https://x", "2025-01-01", "2025-01-01"),
		rec("real", "https://x", "2023-05-02", "2023-05-02"),
		rec("p2", "https://x", "1970-01-01", "1970-01-01"),
	}
	out, removed := DedupeByURL(in, model.IsPlaceholderDate)
	require.Len(t, out, 1)
	assert.Equal(t, 2, removed)
	assert.Equal(t, "real", out[0].ID)
	assert.Equal(t, "2023-05-02", out[0].PublishedDate)
}

func TestDedupeByURLTieBreaks(t *testing.T) {
	twoReal := []model.Record{
		rec("first", "https://x", "2023-01-01", "2023-01-01"),
		rec("second", "https://x", "2024-01-01", "2024-01-01"),
	}
	out, _ := DedupeByURL(twoReal, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].ID, "first encountered wins among real dates")

	allPlaceholder := []model.Record{
		rec("p1", "https://y", "1970-01-01", "1970-01-01"),
		rec("p2", "https://y", "2025-12-31", "2025-12-31"),
	}
	out, _ = DedupeByURL(allPlaceholder, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "p1", out[0].ID)
}

func TestDedupeByURLIsIdempotent(t *testing.T) {
	in := []model.Record{
		rec("a", "https://x", "1970-01-01", "1970-01-01"),
		rec("b", "https://y", "2023-01-01", "2023-01-01"),
		rec("c", "https://x", "2023-03-01", "2023-03-01"),
		rec("d", "", "2023-01-01", "2023-01-01"),
		rec("e", "", "2023-01-01", "2023-01-01"),
	}
	once, removed := DedupeByURL(in, nil)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"c", "b", "d", "e"}, ids(once))

	twice, removed := DedupeByURL(once, nil)
	assert.Zero(t, removed)
	assert.Equal(t, once, twice)
}

func ids(rs []model.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	ds, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	assert.Zero(t, ds.Len())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "charity_policies.csv")
	full := rec("full", "https://x/full", "2023-05-02", "2023-06-01")
	full.Summary = "Line one,\nline \"two\""
	full.CharityNumber = "1234567"
	full.RiskLevel = model.RiskHigh
	full.IssuesIdentified = []string{"safeguarding", "governance"}
	full.Keywords = []string{"charity", "trustees"}
	full.FineAmount = model.Float(2500.5)

	ds := NewDataset()
	ds.Put(rec("older", "https://x/older", "2021-01-01", "2021-01-01"))
	ds.Put(full)
	require.NoError(t, ds.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	back, ok := got.Get("full")
	require.True(t, ok)
	assert.Equal(t, full, back)
	assert.Equal(t, []string{"full", "older"}, ids(got.Records()), "persisted newest first")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSortedOrder(t *testing.T) {
	out := Sorted([]model.Record{
		rec("b", "", "2023-01-01", ""),
		rec("c", "", "2024-01-01", ""),
		rec("a", "", "2023-01-01", ""),
	})
	assert.Equal(t, []string{"c", "a", "b"}, ids(out))
}

func TestLoadMapsHeaderByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.csv")
	body := "\ufeffdomain,id,title,extra\ngdpr,X1,Some title,ignored\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	ds, err := Load(path)
	require.NoError(t, err)
	r, ok := ds.Get("X1")
	require.True(t, ok)
	assert.Equal(t, "gdpr", r.Domain)
	assert.Equal(t, "Some title", r.Title)
}

func TestLoadRejectsRowWithoutID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,title\n,orphan\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestSaveFailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\nkeep\n"), 0o644))
	// a plain file where the output directory should be makes the write fail
	blocked := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocked, nil, 0o644))

	ds := NewDataset()
	ds.Put(rec("new", "", "2023-01-01", "2023-01-01"))
	require.Error(t, ds.Save(filepath.Join(blocked, "d.csv")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id\nkeep\n", string(b))
}

func TestDiff(t *testing.T) {
	ds := NewDataset()
	ds.Put(rec("a", "u", "2023-01-01", "2023-01-01"))
	before, err := ds.Bytes()
	require.NoError(t, err)

	assert.False(t, Diff(before, before).Changed())

	ds.Put(rec("b", "v", "2024-01-01", "2024-01-01"))
	after, err := ds.Bytes()
	require.NoError(t, err)
	d := Diff(before, after)
	assert.Equal(t, 1, d.Added)
	assert.Zero(t, d.Removed)
	assert.True(t, strings.Contains(d.Patch, "@@"))
}

func TestProblems(t *testing.T) {
	ds := NewDataset()
	ds.Put(rec("ok", "u", "2023-01-01", "2023-01-01"))
	bad := rec("bad", "v", "01/02/2023", "2023-01-01")
	ds.Put(bad)
	assert.Len(t, ds.Problems(), 1)
}
