package store

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffSummary describes how a rendered dataset would change.
type DiffSummary struct {
	Added   int    // lines only in the new rendering
	Removed int    // lines only in the old rendering
	Patch   string // patch text, empty when nothing changed
}

func (d DiffSummary) Changed() bool { return d.Added > 0 || d.Removed > 0 }

// Diff compares two renderings line by line.
func Diff(before, after []byte) DiffSummary {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sum DiffSummary
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if n == 0 && d.Text != "" {
			n = 1
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			sum.Added += n
		case diffmatchpatch.DiffDelete:
			sum.Removed += n
		}
	}
	if sum.Changed() {
		sum.Patch = dmp.PatchToText(dmp.PatchMake(string(before), diffs))
	}
	return sum
}
