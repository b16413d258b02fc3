package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const isoLayout = "2006-01-02"

// DateStrategy finds a date on a page and returns it as YYYY-MM-DD.
type DateStrategy func(p *Page) (string, bool)

// DateChain is tried top to bottom; the first strategy that finds a date wins.
type DateChain []DateStrategy

// Extract runs the chain. An empty result means no strategy matched.
func (c DateChain) Extract(p *Page) string {
	for _, s := range c {
		if d, ok := s(p); ok {
			return d
		}
	}
	return ""
}

// With returns a new chain with extra strategies tried before c.
func (c DateChain) With(first ...DateStrategy) DateChain {
	out := make(DateChain, 0, len(first)+len(c))
	out = append(out, first...)
	return append(out, c...)
}

// PublishedMeta are the metadata tags carrying publication or modification time.
var PublishedMeta = []string{
	`meta[name="govuk:published-date"]`,
	`meta[name="dc.date"]`,
	`meta[name="DC.date.issued"]`,
	`meta[property="article:published_time"]`,
	`meta[property="article:modified_time"]`,
	`meta[name="govuk:updated-at"]`,
}

// PublishedBlocks are the labeled date blocks GOV.UK renders near the top of a page.
var PublishedBlocks = []string{
	".app-c-published-dates",
	".gem-c-published-dates",
	".gem-c-metadata",
	".gem-c-inverse-header__subtext",
}

// DefaultDates is the standard chain, highest confidence first.
var DefaultDates = DateChain{
	TimeAttribute,
	MetaTag(PublishedMeta...),
	LabeledBlock(PublishedBlocks...),
	KeywordDate("published", "last updated", "updated"),
	FirstDate,
}

// TimeAttribute reads the first <time datetime> carrying an ISO timestamp.
func TimeAttribute(p *Page) (string, bool) {
	var out string
	p.Doc.Find("time[datetime]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("datetime")
		if d, ok := ISODate(v); ok {
			out = d
			return false
		}
		return true
	})
	return out, out != ""
}

// MetaTag reads the content of the first listed meta tag holding a date.
func MetaTag(selectors ...string) DateStrategy {
	return func(p *Page) (string, bool) {
		for _, sel := range selectors {
			v, ok := p.Doc.Find(sel).First().Attr("content")
			if !ok {
				continue
			}
			if d, ok := ISODate(v); ok {
				return d, true
			}
			if d, ok := HumanDate(v); ok {
				return d, true
			}
		}
		return "", false
	}
}

// LabeledBlock scans the given blocks for "published" or "updated" followed by a human date.
func LabeledBlock(selectors ...string) DateStrategy {
	return func(p *Page) (string, bool) {
		for _, sel := range selectors {
			var out string
			p.Doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				text := Squash(s.Text())
				if !publishedLabel.MatchString(text) {
					return true
				}
				if d, ok := dateAfter(text, publishedLabel); ok {
					out = d
					return false
				}
				if d, ok := HumanDate(text); ok {
					out = d
					return false
				}
				return true
			})
			if out != "" {
				return out, true
			}
		}
		return "", false
	}
}

// KeywordDate looks for any of words anywhere in the body text, followed by a date.
func KeywordDate(words ...string) DateStrategy {
	label := labelPattern(words...)
	return func(p *Page) (string, bool) {
		return dateAfter(p.Text, label)
	}
}

// FirstDate takes the first date-shaped substring of the page text.
func FirstDate(p *Page) (string, bool) {
	return firstDateIn(p.Text)
}

// dateWindow bounds how far after a label a date may start.
const dateWindow = 40

var publishedLabel = labelPattern("published", "updated")

func labelPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

func dateAfter(text string, label *regexp.Regexp) (string, bool) {
	for _, loc := range label.FindAllStringIndex(text, -1) {
		end := loc[1] + dateWindow
		if end > len(text) {
			end = len(text)
		}
		window := text[loc[1]:end]
		if m := dateShape.FindStringIndex(window); m != nil && m[0] <= dateWindow/2 {
			if d, ok := parseShaped(window[m[0]:m[1]]); ok {
				return d, true
			}
		}
	}
	return "", false
}

const humanPattern = `\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s+(\d{4})\b`

var (
	isoPrefix = regexp.MustCompile(`^\s*(\d{4}-\d{2}-\d{2})`)
	humanRe   = regexp.MustCompile(`(?i)` + humanPattern)
	dateShape = regexp.MustCompile(`(?i)\b\d{4}-\d{2}-\d{2}\b|` + humanPattern)
)

// HumanLayouts are the human date formats accepted, full month name first.
var HumanLayouts = []string{"2 January 2006", "2 Jan 2006"}

// ISODate accepts a string starting with YYYY-MM-DD (timestamps included).
func ISODate(s string) (string, bool) {
	m := isoPrefix.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if _, err := time.Parse(isoLayout, m[1]); err != nil {
		return "", false
	}
	return m[1], true
}

// HumanDate finds the first "day month year" date in s.
func HumanDate(s string) (string, bool) {
	m := humanRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	month := m[2]
	if strings.EqualFold(month, "sept") {
		month = "Sep"
	}
	candidate := m[1] + " " + month + " " + m[3]
	for _, layout := range HumanLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t.Format(isoLayout), true
		}
	}
	return "", false
}

// ParseDate tries each layout in turn and returns YYYY-MM-DD.
func ParseDate(s string, layouts ...string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoLayout), true
		}
	}
	return "", false
}

func firstDateIn(text string) (string, bool) {
	for _, loc := range dateShape.FindAllStringIndex(text, -1) {
		if d, ok := parseShaped(text[loc[0]:loc[1]]); ok {
			return d, true
		}
	}
	return "", false
}

func parseShaped(s string) (string, bool) {
	if d, ok := ISODate(s); ok {
		return d, true
	}
	return HumanDate(s)
}
