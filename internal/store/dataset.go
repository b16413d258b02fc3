package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

// Dataset is the persisted record set, keyed by id in insertion order.
type Dataset struct {
	records []model.Record
	index   map[string]int
}

func NewDataset() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// Load reads the dataset at path. A missing file is an empty dataset. Cells
// are mapped by header name, so columns may be reordered or missing.
func Load(path string) (*Dataset, error) {
	ds := NewDataset()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ds, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: open dataset")
	}
	defer f.Close()

	r := model.NewCSVReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return ds, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: read header")
	}
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "store: read row %d", line)
		}
		rec, err := model.FromRow(header, row)
		if err != nil {
			return nil, eris.Wrapf(err, "store: row %d", line)
		}
		// a duplicated id in the file resolves like any other collision
		mergeOne(ds, rec)
	}
	return ds, nil
}

func (d *Dataset) Len() int { return len(d.records) }

func (d *Dataset) Get(id string) (model.Record, bool) {
	i, ok := d.index[id]
	if !ok {
		return model.Record{}, false
	}
	return d.records[i], true
}

// Put inserts r, or replaces the record with the same id in place.
func (d *Dataset) Put(r model.Record) {
	if i, ok := d.index[r.ID]; ok {
		d.records[i] = r
		return
	}
	d.index[r.ID] = len(d.records)
	d.records = append(d.records, r)
}

// Records returns a copy of the records in insertion order.
func (d *Dataset) Records() []model.Record {
	out := make([]model.Record, len(d.records))
	copy(out, d.records)
	return out
}

// Replace swaps the whole record set, e.g. after deduplication.
func (d *Dataset) Replace(records []model.Record) {
	d.records = make([]model.Record, 0, len(records))
	d.index = make(map[string]int, len(records))
	for _, r := range records {
		d.Put(r)
	}
}

// Problems lists records that fail validation. They are kept; callers log them.
func (d *Dataset) Problems() []error {
	var out []error
	for _, r := range d.records {
		if err := r.Validate(); err != nil {
			out = append(out, err)
		}
	}
	return out
}

// Sorted orders records by published_date descending, then id ascending.
func Sorted(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PublishedDate != out[j].PublishedDate {
			return out[i].PublishedDate > out[j].PublishedDate
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Render writes records as CSV, header first, in the order given.
func Render(records []model.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(model.Columns); err != nil {
		return nil, eris.Wrap(err, "store: write header")
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			return nil, eris.Wrapf(err, "store: write %s", r.ID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "store: flush")
	}
	return buf.Bytes(), nil
}

// Bytes is the file content Save would write.
func (d *Dataset) Bytes() ([]byte, error) {
	return Render(Sorted(d.records))
}

// Save writes the dataset atomically: a temp file in the target directory is
// synced and renamed over path, so a failure leaves the old file untouched.
func (d *Dataset) Save(path string) error {
	body, err := d.Bytes()
	if err != nil {
		return err
	}
	return WriteAtomic(path, body)
}

func WriteAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "store: create output dir")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "store: create temp file")
	}
	name := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(name)
	}
	if _, err := tmp.Write(body); err != nil {
		cleanup()
		return eris.Wrap(err, "store: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return eris.Wrap(err, "store: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return eris.Wrap(err, "store: close temp file")
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return eris.Wrap(err, "store: chmod temp file")
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return eris.Wrap(err, "store: replace dataset")
	}
	return nil
}
