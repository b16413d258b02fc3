package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Run is one pipeline invocation as recorded in the history.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	DryRun       bool
	Added        int
	Updated      int
	Unchanged    int
	PreExisting  int
	DedupRemoved int
	Total        int
	Err          string
	Sources      []SourceResult
}

type SourceResult struct {
	Source   string
	Records  int
	Duration time.Duration
	Err      string
}

// Failed counts the sources that produced an error.
func (r Run) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Err != "" {
			n++
		}
	}
	return n
}

// Journal is the sqlite-backed run history.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the history at path. ":memory:" keeps it in
// process, which the tests use.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, eris.Wrap(err, "journal: create dir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "journal: open")
	}
	// one connection: an in-memory database is per connection, and the
	// pipeline is single-threaded anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "journal: enable foreign keys")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "journal: apply schema")
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// RecordRun stores r and its per-source results in one transaction.
func (j *Journal) RecordRun(ctx context.Context, r Run) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "journal: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, started_at, finished_at, dry_run, added, updated, unchanged, pre_existing, dedup_removed, total, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), boolInt(r.DryRun),
		r.Added, r.Updated, r.Unchanged, r.PreExisting, r.DedupRemoved, r.Total, r.Err)
	if err != nil {
		return eris.Wrapf(err, "journal: insert run %s", r.ID)
	}
	for i, s := range r.Sources {
		_, err = tx.ExecContext(ctx, `INSERT INTO source_results
			(run_id, position, source, records, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, i, s.Source, s.Records, s.Duration.Milliseconds(), s.Err)
		if err != nil {
			return eris.Wrapf(err, "journal: insert result %s/%s", r.ID, s.Source)
		}
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "journal: commit")
	}
	return nil
}

// Recent returns the latest n runs, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := j.db.QueryContext(ctx, `SELECT id, started_at, finished_at, dry_run, added, updated,
		unchanged, pre_existing, dedup_removed, total, error
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, eris.Wrap(err, "journal: query runs")
	}
	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
			dry               int
		)
		if err := rows.Scan(&r.ID, &started, &finished, &dry, &r.Added, &r.Updated,
			&r.Unchanged, &r.PreExisting, &r.DedupRemoved, &r.Total, &r.Err); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "journal: scan run")
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		r.DryRun = dry != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, eris.Wrap(err, "journal: read runs")
	}
	rows.Close()

	for i := range runs {
		src, err := j.sources(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Sources = src
	}
	return runs, nil
}

func (j *Journal) sources(ctx context.Context, runID string) ([]SourceResult, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT source, records, duration_ms, error
		FROM source_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "journal: query results of %s", runID)
	}
	defer rows.Close()
	var out []SourceResult
	for rows.Next() {
		var (
			s  SourceResult
			ms int64
		)
		if err := rows.Scan(&s.Source, &s.Records, &ms, &s.Err); err != nil {
			return nil, eris.Wrap(err, "journal: scan result")
		}
		s.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "journal: read results")
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
