package source

import (
	"strings"

	"github.com/Boakye-20/charity-compliance-tracker/internal/extract"
)

// Small helper used by table and CSV sources to pick the first non-empty column
func pickStr(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func orElse(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// titleSlug is the id suffix for guidance records: the title slug, or the
// URL slug when the title carries no usable characters.
func titleSlug(title, url string) string {
	if s := extract.Slug(title, 60); s != "" {
		return s
	}
	return extract.URLSlug(url, 60)
}
