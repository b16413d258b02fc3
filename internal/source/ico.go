package source

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Boakye-20/charity-compliance-tracker/internal/extract"
	"github.com/Boakye-20/charity-compliance-tracker/internal/fetch"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

const icoEnforcementURL = "https://ico.org.uk/action-weve-taken/enforcement/"

// Organisation name fragments that mark an enforcement action as charity relevant.
var icoCharityTerms = []string{
	"charity", "trust", "foundation", "association", "society", "church",
	"hospice", "shelter", "relief", "volunteer", "not-for-profit", "nonprofit",
}

var icoDateLayouts = []string{"02/01/2006", "2/1/2006", "2 January 2006", "2 Jan 2006", "2006-01-02", "January 2006"}

var gbp = message.NewPrinter(language.BritishEnglish)

type icoAdapter struct {
	env Env
}

// NewICO reads the enforcement tables on the ICO's enforcement page.
func NewICO(env Env) Adapter { return &icoAdapter{env: env} }

func (a *icoAdapter) Metadata() model.SourceMetadata {
	return model.SourceMetadata{
		Key:             "ico",
		Name:            "ICO Enforcement Actions",
		URL:             icoEnforcementURL,
		Regulator:       model.RegulatorICO,
		UpdateFrequency: "weekly",
	}
}

func (a *icoAdapter) Download(ctx context.Context) (Payload, error) {
	resp, err := fetch.RequireOK(a.env.Fetcher.Get(ctx, icoEnforcementURL))
	if err != nil {
		return Payload{}, err
	}
	return WriteJSON(a.env.StagingDir, "ico_enforcement_raw.json", []PageItem{{URL: icoEnforcementURL, HTML: string(resp.Body)}})
}

func (a *icoAdapter) Normalize(p Payload) ([]model.Record, error) {
	var items []PageItem
	if err := ReadJSON(p, &items); err != nil {
		return nil, &ParseError{Source: "ico", Detail: "staged page", Err: err}
	}
	var out []model.Record
	for _, it := range items {
		page, err := extract.NewPage([]byte(it.HTML))
		if err != nil {
			a.env.logger().Warn("skipping unparseable page", zap.String("source", "ico"), zap.Error(err))
			continue
		}
		for _, row := range enforcementRows(page, it.URL) {
			out = append(out, a.record(row))
		}
	}
	return out, nil
}

// enforcementRows flattens every table into header -> cell maps. A linked
// cell also yields "<header>_url".
func enforcementRows(p *extract.Page, base string) []map[string]string {
	var rows []map[string]string
	p.Doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		trs := table.Find("tr")
		if trs.Length() < 2 {
			return
		}
		var headers []string
		trs.First().Find("th, td").Each(func(_ int, c *goquery.Selection) {
			headers = append(headers, strings.ToLower(extract.Squash(c.Text())))
		})
		trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Find("td")
			if cells.Length() < 3 {
				return
			}
			row := make(map[string]string, len(headers))
			cells.Each(func(i int, c *goquery.Selection) {
				if i >= len(headers) {
					return
				}
				row[headers[i]] = extract.Squash(c.Text())
				if href, ok := c.Find("a").First().Attr("href"); ok && href != "" {
					row[headers[i]+"_url"] = extract.Absolute(base, href)
				}
			})
			rows = append(rows, row)
		})
	})
	return rows
}

func (a *icoAdapter) record(row map[string]string) model.Record {
	org := orElse(pickStr(row, "organisation", "name", "company"), "Unknown Organisation")
	date, _ := extract.ParseDate(pickStr(row, "date", "published"), icoDateLayouts...)
	fine := extract.FineAmount(row["fine"], row["amount"], row["penalty"])
	action := orElse(pickStr(row, "type", "action"), "Enforcement action")

	summary := action + " against " + org + "."
	if fine != nil {
		summary += gbp.Sprintf(" Fine: £%.0f.", *fine)
	}

	url := pickStr(row, "organisation_url", "name_url")
	if url == "" {
		// no per-case page: keep URLs distinct so deduplication leaves the rows alone
		url = icoEnforcementURL + "#" + extract.CompactSlug(org, 40) + "-" + orElse(extract.CompactDate(date), "unknown")
	}

	var charityName string
	lower := strings.ToLower(org)
	for _, t := range icoCharityTerms {
		if strings.Contains(lower, t) {
			charityName = org
			break
		}
	}

	return model.Record{
		ID:            "ICO_enforcement_" + extract.CompactSlug(org, 20) + "_" + orElse(extract.CompactDate(date), "unknown"),
		Title:         "ICO action: " + org,
		Summary:       extract.Truncate(summary, 500),
		SourceURL:     url,
		PublishedDate: date,
		LastUpdated:   date,
		Regulator:     model.RegulatorICO,
		Domain:        "gdpr",
		DocumentType:  model.DocEnforcement,
		CharityName:   charityName,
		RiskLevel:     extract.AssessRisk(fine, action),
		Outcome:       action,
		FineAmount:    fine,
		Keywords:      extract.Keywords(a.env.keywordCap(20), "gdpr data protection", action),
	}
}
