package source

import (
	"context"
	"sort"
	"strings"

	"github.com/Boakye-20/charity-compliance-tracker/internal/extract"
	"github.com/Boakye-20/charity-compliance-tracker/internal/fetch"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

const ccGuidanceURL = "https://www.gov.uk/guidance/charity-commission-guidance"

var ccGuidanceKnownDates = map[string]string{
	"https://www.gov.uk/guidance/making-decisions-at-a-charity":                              "2018-05-01",
	"https://www.gov.uk/guidance/managing-charity-finances":                                  "2018-04-10",
	"https://www.gov.uk/guidance/managing-conflicts-of-interest-in-a-charity":                "2019-05-06",
	"https://www.gov.uk/guidance/what-to-send-to-the-charity-commission-and-how-to-get-help": "2018-06-15",
	"https://www.gov.uk/guidance/charity-commission-guidance":                                "2015-03-17",
	"https://www.gov.uk/guidance/charity-reporting-and-accounting-the-essentials":            "2016-11-03",
}

// NewCharityGuidance reads the guidance collection page and every charity
// guidance page it links to.
func NewCharityGuidance(env Env) Adapter {
	a := &pageAdapter{
		env: env,
		meta: model.SourceMetadata{
			Key:             "cc_guidance",
			Name:            "Charity Commission Guidance",
			URL:             ccGuidanceURL,
			Regulator:       model.RegulatorCC,
			UpdateFrequency: "quarterly",
		},
		stageName: "cc_guidance_raw.json",
	}
	a.discover = func(ctx context.Context) ([]string, error) {
		if len(env.URLs) > 0 {
			return env.URLs, nil
		}
		resp, err := fetch.RequireOK(env.Fetcher.Get(ctx, ccGuidanceURL))
		if err != nil {
			return nil, err
		}
		p, err := extract.NewPage(resp.Body)
		if err != nil {
			return nil, err
		}
		return guidanceLinks(p, ccGuidanceURL), nil
	}
	a.build = guidanceBuilder(env.keywordCap(25))
	return a
}

// guidanceLinks keeps GOV.UK guidance and publication links mentioning
// charities, deduplicated and sorted.
func guidanceLinks(p *extract.Page, base string) []string {
	set := make(map[string]bool)
	for _, l := range p.Links("a[href]", base) {
		if !strings.HasPrefix(l, govUK) || strings.Contains(l, "#") {
			continue
		}
		if !strings.Contains(l, "/guidance/") && !strings.Contains(l, "/government/publications/") {
			continue
		}
		if strings.Contains(l, "charity") {
			set[l] = true
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func guidanceBuilder(maxKeywords int) func(PageItem, *extract.Page) (model.Record, bool) {
	return func(it PageItem, p *extract.Page) (model.Record, bool) {
		title := orElse(p.Title(), "Untitled guidance")
		summary := extract.Truncate(p.First(".gem-c-lead-paragraph", ".govuk-body-l", "main p", ".govuk-main-wrapper p"), 600)
		full := extract.Truncate(p.First(".govuk-govspeak", "article", "main"), 8000)
		date, ok := ccGuidanceKnownDates[it.URL]
		if !ok {
			date = extract.DefaultDates.Extract(p)
		}
		return model.Record{
			ID:            "CC_guidance_" + titleSlug(title, it.URL),
			Title:         title,
			Summary:       summary,
			SourceURL:     it.URL,
			PublishedDate: date,
			LastUpdated:   date,
			Regulator:     model.RegulatorCC,
			Domain:        extract.GuidanceRules.Primary(title, summary, extract.Truncate(full, 2000)),
			DocumentType:  model.DocGuidance,
			Keywords:      extract.Keywords(maxKeywords, title, summary, extract.Truncate(full, 500)),
			FullText:      full,
		}, true
	}
}
