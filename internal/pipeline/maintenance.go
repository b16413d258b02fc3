package pipeline

import (
	"github.com/Boakye-20/charity-compliance-tracker/internal/postprocess"
	"github.com/Boakye-20/charity-compliance-tracker/internal/store"
)

// DedupDataset runs the URL deduplication pass over the persisted dataset on
// its own. The file is rewritten only when something was removed.
func DedupDataset(path string, isPlaceholder func(string) bool, dryRun bool) (int, error) {
	ds, err := store.Load(path)
	if err != nil {
		return 0, err
	}
	out, removed := store.DedupeByURL(ds.Records(), isPlaceholder)
	if removed == 0 || dryRun {
		return removed, nil
	}
	ds.Replace(out)
	return removed, ds.Save(path)
}

// FixDates applies verified dates to the persisted dataset.
func FixDates(path string, rules postprocess.Rules, dryRun bool) (int, error) {
	ds, err := store.Load(path)
	if err != nil {
		return 0, err
	}
	out, changed := postprocess.ApplyFixedDates(ds.Records(), rules)
	if changed == 0 || dryRun {
		return changed, nil
	}
	ds.Replace(out)
	return changed, ds.Save(path)
}
