package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Boakye-20/charity-compliance-tracker/internal/config"
	"github.com/Boakye-20/charity-compliance-tracker/internal/fetch"
	"github.com/Boakye-20/charity-compliance-tracker/internal/journal"
	"github.com/Boakye-20/charity-compliance-tracker/internal/metrics"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
	"github.com/Boakye-20/charity-compliance-tracker/internal/postprocess"
	"github.com/Boakye-20/charity-compliance-tracker/internal/sink"
	"github.com/Boakye-20/charity-compliance-tracker/internal/source"
	"github.com/Boakye-20/charity-compliance-tracker/internal/store"
)

// fakeAdapter stages nothing real: Download hands back a path and Normalize
// returns the canned records.
type fakeAdapter struct {
	key     string
	records []model.Record
	fail    error
}

func (f *fakeAdapter) Metadata() model.SourceMetadata {
	return model.SourceMetadata{Key: f.key, Name: "fake " + f.key, Regulator: model.RegulatorCC}
}

func (f *fakeAdapter) Download(context.Context) (source.Payload, error) {
	if f.fail != nil {
		return source.Payload{}, f.fail
	}
	return source.Payload{Path: f.key + ".json", Format: source.FormatJSON}, nil
}

func (f *fakeAdapter) Normalize(source.Payload) ([]model.Record, error) { return f.records, nil }

func factory(adapters ...*fakeAdapter) func(string, source.Env) (source.Adapter, error) {
	return func(key string, _ source.Env) (source.Adapter, error) {
		for _, a := range adapters {
			if a.key == key {
				return a, nil
			}
		}
		return nil, source.ErrUnknownSource
	}
}

func rec(id, url, published, updated string) model.Record {
	return model.Record{
		ID: id, Title: id, SourceURL: url, PublishedDate: published, LastUpdated: updated,
		Regulator: model.RegulatorCC, Domain: "governance", DocumentType: model.DocGuidance,
	}
}

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	c := config.Default()
	c.Output = filepath.Join(dir, "charity_policies.csv")
	c.StagingDir = filepath.Join(dir, "staging")
	return c
}

type memJournal struct{ runs []journal.Run }

func (m *memJournal) RecordRun(_ context.Context, r journal.Run) error {
	m.runs = append(m.runs, r)
	return nil
}

var offline = fetch.FetcherFunc(func(context.Context, string) (*fetch.Response, error) {
	return nil, errors.New("offline")
})

func TestRunToleratesFailingSource(t *testing.T) {
	cfg := testConfig(t)
	good := &fakeAdapter{key: "cc", records: []model.Record{
		rec("CC_case_1", "https://x/1", "2023-04-01", "2023-04-01"),
		rec("CC_case_2", "https://x/2", "", ""),
	}}
	bad := &fakeAdapter{key: "ico", fail: &fetch.FetchError{URL: "https://ico", StatusCode: 503}}
	j := &memJournal{}
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(good, bad), Metrics: metrics.New(), Journal: j}

	rep, err := r.Run(context.Background(), Options{Sources: []string{"ico", "cc", "cc"}})
	require.NoError(t, err)
	require.Len(t, rep.Sources, 2, "repeated keys run once")
	assert.Equal(t, "ico", rep.Sources[0].Key)
	assert.False(t, rep.Sources[0].OK())
	assert.Equal(t, "download", rep.Sources[0].Stage)
	assert.True(t, rep.Sources[1].OK())
	assert.Equal(t, 2, rep.Sources[1].Records)
	assert.Equal(t, 1, rep.Sources[1].Stamped)
	assert.Equal(t, 1, rep.Failed())
	assert.False(t, rep.AllFailed())
	assert.Equal(t, 2, rep.Merge.Added)
	assert.True(t, rep.Persisted)
	assert.Equal(t, 2, rep.ByRegulator[model.RegulatorCC])

	ds, err := store.Load(cfg.Output)
	require.NoError(t, err)
	got, ok := ds.Get("CC_case_2")
	require.True(t, ok)
	assert.Equal(t, model.PlaceholderDate, got.PublishedDate, "absent dates are never the run date")

	require.Len(t, j.runs, 1)
	assert.Equal(t, rep.RunID, j.runs[0].ID)
	assert.Equal(t, 1, j.runs[0].Failed())
}

func TestRunIsCumulativeAndRecencyWins(t *testing.T) {
	cfg := testConfig(t)
	first := &fakeAdapter{key: "cc", records: []model.Record{
		rec("A", "https://x/a", "2023-01-01", "2023-01-01"),
		rec("B", "https://x/b", "2023-01-01", "2023-01-01"),
	}}
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(first)}
	_, err := r.Run(context.Background(), Options{Sources: []string{"cc"}})
	require.NoError(t, err)

	revised := rec("A", "https://x/a", "2023-01-01", "2023-06-01")
	revised.Title = "revised"
	second := &fakeAdapter{key: "fr", records: []model.Record{revised}}
	r.New = factory(second)
	rep, err := r.Run(context.Background(), Options{Sources: []string{"fr"}})
	require.NoError(t, err)
	assert.Equal(t, store.MergeStats{Updated: 1, PreExisting: 2}, rep.Merge)
	assert.Equal(t, 2, rep.Total)

	ds, err := store.Load(cfg.Output)
	require.NoError(t, err)
	a, _ := ds.Get("A")
	assert.Equal(t, "revised", a.Title)
	_, ok := ds.Get("B")
	assert.True(t, ok, "records from other sources are kept")
}

func TestRunDeduplicatesByURL(t *testing.T) {
	cfg := testConfig(t)
	a := &fakeAdapter{key: "cc", records: []model.Record{
		rec("old", "https://x", "2025-01-01", "2025-01-01"),
		rec("good", "https://x", "2023-05-02", "2023-05-02"),
		rec("blank", "https://x", "", ""),
	}}
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(a)}
	rep, err := r.Run(context.Background(), Options{Sources: []string{"cc"}})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.DedupRemoved)
	assert.Equal(t, 1, rep.Total)

	ds, err := store.Load(cfg.Output)
	require.NoError(t, err)
	_, ok := ds.Get("good")
	assert.True(t, ok)
}

func TestCustomPlaceholderListStillPrefersDatedRecords(t *testing.T) {
	cfg := testConfig(t)
	cfg.PlaceholderDates = []string{"2025-01-01"}
	a := &fakeAdapter{key: "cc", records: []model.Record{
		rec("A_unknown", "https://x/doc", "", ""),
		rec("A_20230502", "https://x/doc", "2023-05-02", "2023-05-02"),
	}}
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(a)}
	rep, err := r.Run(context.Background(), Options{Sources: []string{"cc"}})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.DedupRemoved)

	ds, err := store.Load(cfg.Output)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	_, ok := ds.Get("A_20230502")
	assert.True(t, ok, "the stamped record never shadows a dated one")
}

func TestDryRunWritesNothingButTheDiff(t *testing.T) {
	cfg := testConfig(t)
	diffPath := filepath.Join(t.TempDir(), "run.diff")
	a := &fakeAdapter{key: "cc", records: []model.Record{rec("A", "https://x/a", "2023-01-01", "2023-01-01")}}
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(a)}

	rep, err := r.Run(context.Background(), Options{Sources: []string{"cc"}, DryRun: true, DiffOut: diffPath})
	require.NoError(t, err)
	assert.False(t, rep.Persisted)
	require.NotNil(t, rep.Diff)
	assert.Equal(t, 2, rep.Diff.Added, "header and one row")

	_, err = os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(err))
	b, err := os.ReadFile(diffPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "@@")
}

func TestUnknownSourceIsReported(t *testing.T) {
	cfg := testConfig(t)
	r := &Runner{Config: cfg, Fetcher: offline}
	rep, err := r.Run(context.Background(), Options{Sources: []string{"nope"}})
	require.NoError(t, err)
	require.Len(t, rep.Sources, 1)
	assert.Equal(t, "setup", rep.Sources[0].Stage)
	assert.True(t, rep.AllFailed())
}

func TestUnusableOutputPathIsFatal(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.Output = filepath.Join(blocker, "out.csv")

	a := &fakeAdapter{key: "cc", records: []model.Record{rec("A", "https://x/a", "2023-01-01", "2023-01-01")}}
	j := &memJournal{}
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(a), Journal: j}
	rep, err := r.Run(context.Background(), Options{Sources: []string{"cc"}})
	require.Error(t, err)
	assert.False(t, rep.Persisted)
	require.Len(t, j.runs, 1)
	assert.NotEmpty(t, j.runs[0].Err)
}

func TestCancelledRunStops(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &fakeAdapter{key: "cc", records: []model.Record{rec("A", "u", "2023-01-01", "2023-01-01")}}
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(a)}
	_, err := r.Run(ctx, Options{Sources: []string{"cc"}})
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDefaultSelectionSkipsDisabledAndOptIn(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources = map[string]config.SourceConfig{"ico": {Disabled: true}}
	x := &run{Runner: &Runner{Config: cfg}}
	keys := x.selectKeys(nil)
	assert.NotContains(t, keys, "ico")
	assert.NotContains(t, keys, "ofsi")
	assert.Equal(t, "cc", keys[0])
}

func TestEveryProducedRecordHasADomain(t *testing.T) {
	cfg := testConfig(t)
	noDomain := rec("A", "https://x/a", "2023-01-01", "2023-01-01")
	noDomain.Domain = ""
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(&fakeAdapter{key: "cc", records: []model.Record{noDomain}})}
	_, err := r.Run(context.Background(), Options{Sources: []string{"cc"}})
	require.NoError(t, err)

	ds, err := store.Load(cfg.Output)
	require.NoError(t, err)
	for _, rec := range ds.Records() {
		assert.NotEmpty(t, rec.Domain)
	}
}

func TestMaintenanceCommands(t *testing.T) {
	cfg := testConfig(t)
	ds := store.NewDataset()
	ds.Put(rec("CC_case_1100416_unknown", "https://x/a", "1970-01-01", "1970-01-01"))
	ds.Put(rec("dup", "https://x/a", "1970-01-01", "1970-01-01"))
	require.NoError(t, ds.Save(cfg.Output))

	changed, err := FixDates(cfg.Output, postprocess.DefaultRules(nil), false)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	removed, err := DedupDataset(cfg.Output, model.IsPlaceholderDate, true)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	after, err := store.Load(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Len(), "dry run leaves the file alone")

	removed, err = DedupDataset(cfg.Output, model.IsPlaceholderDate, false)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	after, err = store.Load(cfg.Output)
	require.NoError(t, err)
	require.Equal(t, 1, after.Len())
	kept := after.Records()[0]
	assert.Equal(t, "CC_case_1100416_unknown", kept.ID)
	assert.Equal(t, "2023-10-20", kept.PublishedDate)
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "LOAD_EXISTING", StateLoadExisting.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}

type recordingSink struct {
	name   string
	calls  *[]string
	pushed []store.Change
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Push(_ context.Context, changes []store.Change) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name)
	}
	s.pushed = append(s.pushed, changes...)
	return s.err
}

func TestPersistedChangesArePublished(t *testing.T) {
	cfg := testConfig(t)
	a := &fakeAdapter{key: "cc", records: []model.Record{
		rec("placeholder", "https://x/same", "2025-01-01", "2025-01-01"),
		rec("dated", "https://x/same", "2023-05-02", "2023-05-02"),
		rec("other", "https://x/other", "2023-05-02", "2023-05-02"),
	}}
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("down")}
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(a), Sinks: []sink.Sink{ok, broken}}

	_, err := r.Run(context.Background(), Options{Sources: []string{"cc"}, DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, ok.pushed, "dry runs publish nothing")

	_, err = r.Run(context.Background(), Options{Sources: []string{"cc"}})
	require.NoError(t, err, "a failing sink does not fail the run")
	var ids []string
	for _, c := range ok.pushed {
		ids = append(ids, c.Record.ID)
		assert.Equal(t, store.OutcomeAdded, c.Outcome)
	}
	assert.Equal(t, []string{"dated", "other"}, ids, "records removed by dedup are not published")
}

func TestSinksArePushedInOrder(t *testing.T) {
	cfg := testConfig(t)
	a := &fakeAdapter{key: "cc", records: []model.Record{rec("one", "https://x/one", "2023-05-02", "2023-05-02")}}
	var calls []string
	first := &recordingSink{name: "first", calls: &calls, err: errors.New("down")}
	second := &recordingSink{name: "second", calls: &calls}
	r := &Runner{Config: cfg, Fetcher: offline, New: factory(a), Sinks: []sink.Sink{first, second}}

	_, err := r.Run(context.Background(), Options{Sources: []string{"cc"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Len(t, second.pushed, 1, "a failing sink does not stop the next one")
}
