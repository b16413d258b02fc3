package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

var wordRe = regexp.MustCompile(`[a-z]{4,}`)

// Keywords lowercases parts, keeps alphabetic tokens of 4+ letters in
// first-seen order without repeats, and stops at max (0 means no cap).
func Keywords(max int, parts ...string) []string {
	text := strings.ToLower(strings.Join(parts, " "))
	var out []string
	seen := map[string]bool{}
	for _, tok := range wordRe.FindAllString(text, -1) {
		if max > 0 && len(out) >= max {
			break
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold turns accented text into its closest ASCII spelling ("Café" -> "Cafe").
func Fold(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s into dash separated ascii words, cut to max bytes.
func Slug(s string, max int) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(Fold(s)), "-"), "-")
	if max > 0 && len(slug) > max {
		slug = strings.TrimRight(slug[:max], "-")
	}
	return slug
}

// CompactSlug keeps only letters and digits, lowercase, cut to max bytes.
func CompactSlug(s string, max int) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(Fold(s)), "")
	if max > 0 && len(slug) > max {
		slug = slug[:max]
	}
	return slug
}

// URLSlug is the slug of the last path segment of u. When the path carries
// nothing usable it falls back to a short hash of the whole URL so the id
// stays stable across runs.
func URLSlug(u string, max int) string {
	if p, err := url.Parse(u); err == nil {
		segs := strings.Split(strings.Trim(p.Path, "/"), "/")
		if s := Slug(segs[len(segs)-1], max); s != "" {
			return s
		}
	}
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:])[:12]
}

// Absolute resolves href against base.
func Absolute(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// CompactDate strips the dashes from an ISO date ("2023-04-01" -> "20230401").
func CompactDate(d string) string { return strings.ReplaceAll(d, "-", "") }

var concluded = regexp.MustCompile(`(?i)\s*[-–]\s*conclu.*$`)

// CharityName takes the part of an inquiry title after the first colon.
func CharityName(title string) string {
	_, after, ok := strings.Cut(title, ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(concluded.ReplaceAllString(after, ""))
}

// OutcomeRule maps a phrase in a report to an outcome label.
type OutcomeRule struct {
	Phrase string
	Label  string
}

// OutcomeRules are checked in order; every match is reported.
var OutcomeRules = []OutcomeRule{
	{"removed from the register", "charity removed"},
	{"official warning", "warning issued"},
	{"action plan", "action plan required"},
	{"trustees removed", "trustees removed"},
	{"trustee removed", "trustees removed"},
	{"no regulatory action", "no action"},
	{"monitoring", "ongoing monitoring"},
}

// Outcomes joins the labels of all matching outcome rules with ", ".
func Outcomes(text string) string {
	lower := strings.ToLower(text)
	var out []string
	seen := map[string]bool{}
	for _, r := range OutcomeRules {
		if seen[r.Label] || !strings.Contains(lower, r.Phrase) {
			continue
		}
		seen[r.Label] = true
		out = append(out, r.Label)
	}
	return strings.Join(out, ", ")
}

var fineRe = regexp.MustCompile(`£?\s?(\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)`)

// FineAmount reads the first money-shaped value among values.
func FineAmount(values ...string) *float64 {
	for _, v := range values {
		m := fineRe.FindStringSubmatch(v)
		if m == nil {
			continue
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return &f
	}
	return nil
}

// AssessRisk grades an enforcement action by fine size, then by action type.
func AssessRisk(fine *float64, action string) model.RiskLevel {
	if fine != nil {
		switch {
		case *fine >= 100000:
			return model.RiskCritical
		case *fine >= 10000:
			return model.RiskHigh
		}
	}
	a := strings.ToLower(action)
	switch {
	case strings.Contains(a, "prosecution"), strings.Contains(a, "criminal"):
		return model.RiskCritical
	case strings.Contains(a, "undertaking"), strings.Contains(a, "reprimand"):
		return model.RiskMedium
	}
	return model.RiskLow
}
