package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

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

// Options select what one run does.
type Options struct {
	Sources []string // empty means every default source
	DryRun  bool     // run everything but the final write
	DiffOut string   // dry run only: write the would-be dataset diff here
}

// Recorder keeps the run history.
type Recorder interface {
	RecordRun(ctx context.Context, r journal.Run) error
}

// Runner executes pipeline runs. Only Config is required.
type Runner struct {
	Config config.Config
	// Fetcher is the base fetcher; an HTTP client when nil.
	Fetcher fetch.Fetcher
	// New builds adapters; source.New when nil.
	New     func(key string, env source.Env) (source.Adapter, error)
	Log     *zap.Logger
	Metrics *metrics.Run
	Journal Recorder
	// Sinks receive the record changes of a persisted run.
	Sinks []sink.Sink
}

type run struct {
	*Runner
	log     *zap.Logger
	state   State
	report  *Report
	base    fetch.Fetcher
	cache   *fetch.Cache
	ds      *store.Dataset
	fresh   []model.Record
	changes []store.Change
}

// Run performs one INIT → LOAD_EXISTING → RUN_SOURCES → MERGE → DEDUPLICATE →
// PERSIST → DONE pass. Source failures are recorded in the report and never
// abort the run; a load or persist failure does, leaving the dataset as it was.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	x := &run{
		Runner: r,
		log:    r.Log,
		report: &Report{RunID: uuid.NewString(), StartedAt: time.Now().UTC(), DryRun: opts.DryRun},
	}
	if x.log == nil {
		x.log = zap.NewNop()
	}
	x.log = x.log.With(zap.String("run", x.report.RunID))

	err := x.execute(ctx, opts)
	x.finish(ctx, err)
	if err != nil {
		return x.report, err
	}
	return x.report, nil
}

func (x *run) enter(s State) {
	x.state = s
	x.log.Debug("pipeline: state", zap.Stringer("state", s))
}

func (x *run) execute(ctx context.Context, opts Options) error {
	x.enter(StateInit)
	if err := os.MkdirAll(x.Config.StagingDir, 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create staging dir")
	}
	x.base = x.Fetcher
	if x.base == nil {
		x.base = fetch.NewClient(x.Config.HTTP.Timeout, x.Config.HTTP.UserAgent)
	}
	x.cache = fetch.NewCache()
	keys := x.selectKeys(opts.Sources)
	x.log.Info("pipeline: starting", zap.Strings("sources", keys), zap.Bool("dry_run", opts.DryRun))

	x.enter(StateLoadExisting)
	ds, err := store.Load(x.Config.Output)
	if err != nil {
		return err
	}
	x.ds = ds
	for _, p := range ds.Problems() {
		x.log.Warn("pipeline: persisted record is malformed", zap.Error(p))
	}
	x.log.Info("pipeline: loaded dataset", zap.String("path", x.Config.Output), zap.Int("records", ds.Len()))

	x.enter(StateRunSources)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "pipeline: interrupted")
		}
		x.runSource(ctx, key)
	}

	x.enter(StateMerge)
	x.report.Merge, x.changes = store.MergeChanges(ds, x.fresh)
	if x.Metrics != nil {
		x.Metrics.Merge(x.report.Merge.Added, x.report.Merge.Updated, x.report.Merge.Unchanged)
	}

	x.enter(StateDeduplicate)
	deduped, removed := store.DedupeByURL(ds.Records(), x.Config.IsPlaceholder)
	ds.Replace(deduped)
	x.report.DedupRemoved = removed

	x.enter(StatePersist)
	if opts.DryRun {
		if opts.DiffOut != "" {
			if err := x.writeDiff(opts.DiffOut); err != nil {
				return err
			}
		}
	} else {
		if err := ds.Save(x.Config.Output); err != nil {
			return err
		}
		x.report.Persisted = true
	}

	x.enter(StateDone)
	return nil
}

// surviving drops changes whose record lost the dedup pass.
func (x *run) surviving() []store.Change {
	out := x.changes[:0:0]
	for _, c := range x.changes {
		if cur, ok := x.ds.Get(c.Record.ID); ok && cur.LastUpdated == c.Record.LastUpdated {
			out = append(out, c)
		}
	}
	return out
}

// publish pushes the changes to each sink in turn. A failing sink is logged
// and does not stop the others.
func (x *run) publish(ctx context.Context) {
	changes := x.surviving()
	if len(changes) == 0 || len(x.Sinks) == 0 {
		return
	}
	for _, sk := range x.Sinks {
		if err := sk.Push(ctx, changes); err != nil {
			x.log.Warn("pipeline: publish failed", zap.String("sink", sk.Name()), zap.Error(err))
			continue
		}
		x.log.Info("pipeline: published changes", zap.String("sink", sk.Name()), zap.Int("changes", len(changes)))
	}
}

// selectKeys returns the requested keys in the caller's order without
// repeats, or every default source not disabled in the config.
func (x *run) selectKeys(requested []string) []string {
	seen := make(map[string]bool)
	var keys []string
	if len(requested) > 0 {
		for _, k := range requested {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		return keys
	}
	for _, k := range source.DefaultKeys() {
		if !x.Config.Source(k).Disabled {
			keys = append(keys, k)
		}
	}
	return keys
}

func (x *run) env(key string) source.Env {
	sc := x.Config.Source(key)
	return source.Env{
		Fetcher:     x.cache.Wrap(fetch.Throttle(x.base, x.Config.DelayFor(key))),
		StagingDir:  x.Config.StagingDir,
		Log:         x.log,
		MaxPages:    x.Config.MaxPagesFor(key),
		MaxKeywords: sc.MaxKeywords,
		URLs:        sc.URLs,
	}
}

func (x *run) runSource(ctx context.Context, key string) {
	start := time.Now()
	res := SourceResult{Key: key}
	log := x.log.With(zap.String("source", key))
	defer func() {
		res.Duration = time.Since(start)
		x.report.Sources = append(x.report.Sources, res)
		if x.Metrics != nil {
			x.Metrics.Source(key, res.Records, res.Duration, res.Stage)
		}
	}()

	newAdapter := x.New
	if newAdapter == nil {
		newAdapter = source.New
	}
	a, err := newAdapter(key, x.env(key))
	if err != nil {
		res.Err, res.Stage = err, "setup"
		log.Error("pipeline: source failed", zap.String("stage", res.Stage), zap.Error(err))
		return
	}
	res.Name = a.Metadata().Name

	recs, err := source.FetchAndNormalize(ctx, a, x.log)
	if err != nil {
		res.Err, res.Stage = err, "run"
		var se *source.SourceError
		if errors.As(err, &se) {
			res.Stage = se.Stage
		}
		log.Error("pipeline: source failed", zap.String("stage", res.Stage), zap.Error(err))
		return
	}

	recs, res.Stamped = postprocess.Stamp(recs, model.PlaceholderDate)
	res.Records = len(recs)
	x.fresh = append(x.fresh, recs...)
	if len(recs) == 0 {
		log.Warn("pipeline: source produced no records")
	}
	log.Info("pipeline: source finished", zap.Int("records", res.Records),
		zap.Int("stamped", res.Stamped), zap.Duration("took", time.Since(start)))
}

func (x *run) writeDiff(path string) error {
	before, err := os.ReadFile(x.Config.Output)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrap(err, "pipeline: read dataset for diff")
	}
	after, err := x.ds.Bytes()
	if err != nil {
		return err
	}
	d := store.Diff(before, after)
	x.report.Diff = &d
	if err := store.WriteAtomic(path, []byte(d.Patch)); err != nil {
		return eris.Wrap(err, "pipeline: write diff")
	}
	x.log.Info("pipeline: dry-run diff written", zap.String("path", path),
		zap.Int("lines_added", d.Added), zap.Int("lines_removed", d.Removed))
	return nil
}

// finish fills the totals and reports the run to the log, sinks, metrics and
// journal.
// Failures here are logged; they never change the run's outcome.
func (x *run) finish(ctx context.Context, fatal error) {
	rep := x.report
	rep.Duration = time.Since(rep.StartedAt)
	if x.ds != nil {
		rep.Total = x.ds.Len()
		rep.ByRegulator = make(map[model.Regulator]int)
		for _, rec := range x.ds.Records() {
			rep.ByRegulator[rec.Regulator]++
		}
	}

	if fatal != nil {
		x.log.Error("pipeline: run aborted", zap.Stringer("state", x.state), zap.Error(fatal))
	} else {
		x.log.Info("pipeline: run finished",
			zap.Int("sources", len(rep.Sources)),
			zap.Int("failed", rep.Failed()),
			zap.Int("added", rep.Merge.Added),
			zap.Int("updated", rep.Merge.Updated),
			zap.Int("pre_existing", rep.Merge.PreExisting),
			zap.Int("dedup_removed", rep.DedupRemoved),
			zap.Int("total", rep.Total),
			zap.Bool("persisted", rep.Persisted),
		)
	}

	if rep.Persisted {
		x.publish(context.WithoutCancel(ctx))
	}
	if x.Metrics != nil {
		x.Metrics.Finish(rep.Total, rep.DedupRemoved, rep.Duration, rep.Persisted)
		x.log.Debug("pipeline: metrics", zap.String("snapshot", x.Metrics.Dump()))
		if p := x.Config.Metrics.Textfile; p != "" {
			if err := x.Metrics.WriteTextfile(p); err != nil {
				x.log.Warn("pipeline: metrics textfile", zap.Error(err))
			}
		}
		if u := x.Config.Metrics.Pushgateway; u != "" {
			if err := x.Metrics.Push(ctx, u, x.Config.Metrics.Job); err != nil {
				x.log.Warn("pipeline: metrics push", zap.Error(err))
			}
		}
	}
	if x.Journal != nil {
		if err := x.Journal.RecordRun(context.WithoutCancel(ctx), rep.journalRun(fatal)); err != nil {
			x.log.Warn("pipeline: journal", zap.Error(err))
		}
	}
}
