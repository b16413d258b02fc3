package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Page is a parsed HTML document plus its flattened body text.
type Page struct {
	Doc  *goquery.Document
	Text string
}

// NewPage parses raw HTML. Broken markup is tolerated by the parser, so the
// only error is an unreadable body.
func NewPage(html []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	return &Page{Doc: doc, Text: Squash(visibleText(body))}, nil
}

// visibleText is the text of sel without script, style and noscript
// contents. The document itself is left untouched.
func visibleText(sel *goquery.Selection) string {
	c := sel.Clone()
	c.Find("script, style, noscript, template").Remove()
	return c.Text()
}

// PageFromText wraps plain text so the text-only strategies can run on it.
func PageFromText(text string) *Page {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(""))
	return &Page{Doc: doc, Text: Squash(text)}
}

// First returns the squashed text of the first element matching any selector, tried in order.
func (p *Page) First(selectors ...string) string {
	for _, sel := range selectors {
		if s := Squash(p.Doc.Find(sel).First().Text()); s != "" {
			return s
		}
	}
	return ""
}

// Meta returns the content of the first matching meta tag.
func (p *Page) Meta(selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := p.Doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// Title prefers the h1 over the document title.
func (p *Page) Title() string {
	if t := p.First("h1"); t != "" {
		return t
	}
	t := p.First("title")
	return strings.TrimSpace(strings.TrimSuffix(t, "- GOV.UK"))
}

// Links returns absolute hrefs of anchors matched by sel, in document order.
func (p *Page) Links(sel, base string) []string {
	var out []string
	p.Doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		out = append(out, Absolute(base, strings.TrimSpace(href)))
	})
	return out
}

// Squash collapses runs of whitespace into single spaces.
func Squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
