package source

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Boakye-20/charity-compliance-tracker/internal/extract"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

const (
	govUK             = "https://www.gov.uk"
	ccInquiriesURL    = "https://www.gov.uk/government/collections/inquiry-reports-charity-commission"
	ccCaseKeywordsCap = 20
)

// Verified publication dates for reports whose pages carry no usable date.
var ccKnownDates = map[string]string{
	"https://www.gov.uk/government/publications/charity-inquiry-mountain-of-fire-and-miracles-ministries-international":  "2023-10-20",
	"https://www.gov.uk/government/publications/charity-inquiry-obac-organisation-of-blind-africans-and-caribbeans":      "2023-07-01",
	"https://www.gov.uk/government/publications/charity-inquiry-four-paws-animal-rescue-south-wales":                     "2023-11-05",
	"https://www.gov.uk/government/publications/charity-inquiry-island-health-trust":                                     "2023-07-03",
	"https://www.gov.uk/government/publications/charity-inquiry-the-sikh-channel-community-broadcasting-company-limited": "2023-02-28",
	"https://www.gov.uk/government/publications/charity-inquiry-brighton-mosque-muslim-community-centre":                 "2023-01-22",
	"https://www.gov.uk/government/publications/charity-inquiry-quba-trust":                                              "2023-12-19",
	"https://www.gov.uk/government/publications/charity-inquiry-muffin-pug-rescue":                                       "2023-12-05",
	"https://www.gov.uk/government/publications/charity-inquiry-the-captain-tom-foundation":                              "2023-11-21",
	"https://www.gov.uk/government/publications/charity-inquiry-the-knightland-foundation":                               "2023-11-15",
}

// NewCharityCommission crawls the paginated inquiry report collection.
func NewCharityCommission(env Env) Adapter {
	a := &pageAdapter{
		env: env,
		meta: model.SourceMetadata{
			Key:             "cc",
			Name:            "Charity Commission Inquiry Reports",
			URL:             ccInquiriesURL,
			Regulator:       model.RegulatorCC,
			UpdateFrequency: "monthly",
		},
		stageName: "cc_cases_raw.json",
	}
	a.discover = func(ctx context.Context) ([]string, error) {
		if len(env.URLs) > 0 {
			return env.URLs, nil
		}
		return Crawl(ctx, env.Fetcher, env.logger().With(zap.String("source", "cc")), ccInquiriesURL, env.pagesCap(), inquiryLinks)
	}
	a.build = caseBuilder(env.keywordCap(ccCaseKeywordsCap))
	return a
}

func inquiryLinks(p *extract.Page, pageURL string) []string {
	var out []string
	for _, l := range p.Links("a.govuk-link, .gem-c-document-list a", pageURL) {
		if strings.Contains(l, "/government/publications/") && strings.Contains(strings.ToLower(l), "inquiry") {
			out = append(out, l)
		}
	}
	return out
}

func caseBuilder(maxKeywords int) func(PageItem, *extract.Page) (model.Record, bool) {
	return func(it PageItem, p *extract.Page) (model.Record, bool) {
		title := orElse(p.Title(), "Unknown case")
		published, ok := ccKnownDates[it.URL]
		if !ok {
			published = extract.DefaultDates.Extract(p)
		}
		summary := extract.Truncate(p.First(".govuk-body-l", ".gem-c-lead-paragraph"), 500)
		content := orElse(p.First(".govuk-govspeak", "article"), p.Text)

		number := extract.CharityNumber(content)
		issues := extract.IssueRules.Classify(title, summary, content)
		outcome := extract.Outcomes(content)

		id := "CC_case_" + orElse(number, extract.URLSlug(it.URL, 40)) + "_" + orElse(extract.CompactDate(published), "unknown")
		return model.Record{
			ID:               id,
			Title:            title,
			Summary:          summary,
			SourceURL:        it.URL,
			PublishedDate:    published,
			LastUpdated:      published,
			Regulator:        model.RegulatorCC,
			Domain:           issues[0],
			DocumentType:     model.DocCase,
			CharityNumber:    number,
			CharityName:      extract.CharityName(title),
			CaseStatus:       "concluded",
			Outcome:          outcome,
			IssuesIdentified: issues,
			Keywords:         extract.Keywords(maxKeywords, title, summary, outcome, extract.Truncate(content, 500)),
			FullText:         extract.Truncate(content, 5000),
		}, true
	}
}
