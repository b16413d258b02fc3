package source

import (
	"github.com/Boakye-20/charity-compliance-tracker/internal/extract"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

var hsePages = []string{
	"https://www.hse.gov.uk/voluntary/work-types/charity-retail-and-fundraising-activities.htm",
	"https://www.hse.gov.uk/voluntary/index.htm",
	"https://www.hse.gov.uk/contact/faqs/charities.htm",
	"https://www.hse.gov.uk/voluntary/about.htm",
	"https://www.hse.gov.uk/voluntary/resources.htm",
	"https://www.hse.gov.uk/voluntary/work-types/events.htm",
	"https://www.hse.gov.uk/voluntary/work-types/outdoor.htm",
	"https://www.hse.gov.uk/simple-health-safety/risk/index.htm",
}

var hmrcPages = []string{
	"https://www.gov.uk/government/publications/charities-detailed-guidance-notes",
}

// HSE pages close with "Page last reviewed: 01 May 2023"; that beats any other date on the page.
var hseDates = extract.DefaultDates.With(extract.KeywordDate("last reviewed", "reviewed"))

// NewHSE reads a curated list of HSE pages for the voluntary sector.
func NewHSE(env Env) Adapter {
	return &pageAdapter{
		env: env,
		meta: model.SourceMetadata{
			Key:             "hse",
			Name:            "HSE voluntary sector guidance",
			URL:             "https://www.hse.gov.uk/voluntary/",
			Regulator:       model.RegulatorHSE,
			UpdateFrequency: "annual",
		},
		stageName: "hse_guidance_raw.json",
		discover:  staticURLs(env, hsePages),
		build: curatedPageBuilder(curatedPage{
			prefix:    "HSE_guidance_",
			regulator: model.RegulatorHSE,
			domain:    "health_safety",
			fallback:  "HSE guidance",
			dates:     hseDates,
			content:   []string{"main", "#content", ".content"},
			keywords:  env.keywordCap(25),
		}),
	}
}

// NewHMRC reads HMRC's detailed guidance notes for charities.
func NewHMRC(env Env) Adapter {
	return &pageAdapter{
		env: env,
		meta: model.SourceMetadata{
			Key:             "hmrc",
			Name:            "HMRC charities detailed guidance notes",
			URL:             "https://www.gov.uk/government/collections/charities-detailed-guidance-notes",
			Regulator:       model.RegulatorHMRC,
			UpdateFrequency: "annual",
		},
		stageName: "hmrc_guidance_raw.json",
		discover:  staticURLs(env, hmrcPages),
		build: curatedPageBuilder(curatedPage{
			prefix:    "HMRC_guidance_",
			regulator: model.RegulatorHMRC,
			domain:    "financial_reporting",
			fallback:  "HMRC guidance",
			dates:     extract.DefaultDates,
			content:   []string{".govuk-govspeak", "main", "article"},
			keywords:  env.keywordCap(25),
		}),
	}
}

// curatedPage describes a source whose pages all share one domain.
type curatedPage struct {
	prefix    string
	regulator model.Regulator
	domain    string
	fallback  string // title when the page has none
	dates     extract.DateChain
	content   []string // main content selectors, in order
	keywords  int
}

func curatedPageBuilder(c curatedPage) func(PageItem, *extract.Page) (model.Record, bool) {
	return func(it PageItem, p *extract.Page) (model.Record, bool) {
		title := orElse(p.Title(), c.fallback)
		summary := p.Meta(`meta[name="description"]`)
		if summary == "" {
			summary = p.First("main p", "#content p", ".content p")
		}
		summary = extract.Truncate(summary, 600)
		full := extract.Truncate(p.First(c.content...), 8000)
		date := c.dates.Extract(p)
		return model.Record{
			ID:            c.prefix + titleSlug(title, it.URL),
			Title:         title,
			Summary:       summary,
			SourceURL:     it.URL,
			PublishedDate: date,
			LastUpdated:   date,
			Regulator:     c.regulator,
			Domain:        c.domain,
			DocumentType:  model.DocGuidance,
			Keywords:      extract.Keywords(c.keywords, title, summary, extract.Truncate(full, 500)),
			FullText:      full,
		}, true
	}
}
