package source

import (
	"context"
	"embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Boakye-20/charity-compliance-tracker/internal/extract"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

//go:embed curated/*.yml
var curatedFS embed.FS

// CuratedItem is one hand-maintained resource entry.
type CuratedItem struct {
	URL         string   `yaml:"url" json:"url"`
	Title       string   `yaml:"title" json:"title"`
	Summary     string   `yaml:"summary" json:"summary"`
	Regulator   string   `yaml:"regulator" json:"regulator"`
	LastUpdated string   `yaml:"last_updated" json:"last_updated"`
	Keywords    []string `yaml:"keywords,omitempty" json:"keywords,omitempty"` // fixed keywords; derived from the text when empty
}

type curatedList struct {
	meta     model.SourceMetadata
	file     string
	prefix   string
	domain   string
	keywords int
}

type curatedAdapter struct {
	env  Env
	list curatedList
}

func (a *curatedAdapter) Metadata() model.SourceMetadata { return a.list.meta }

// Download stages the embedded list; there is nothing to fetch.
func (a *curatedAdapter) Download(context.Context) (Payload, error) {
	items, err := LoadCurated(a.list.file)
	if err != nil {
		return Payload{}, err
	}
	return WriteJSON(a.env.StagingDir, a.list.meta.Key+"_guidance_raw.json", items)
}

func (a *curatedAdapter) Normalize(p Payload) ([]model.Record, error) {
	var items []CuratedItem
	if err := ReadJSON(p, &items); err != nil {
		return nil, &ParseError{Source: a.list.meta.Key, Detail: "staged list", Err: err}
	}
	out := make([]model.Record, 0, len(items))
	for _, it := range items {
		kw := it.Keywords
		if len(kw) == 0 {
			kw = extract.Keywords(a.env.keywordCap(a.list.keywords), it.Title, it.Summary)
		}
		reg := model.Regulator(orElse(it.Regulator, string(a.list.meta.Regulator)))
		out = append(out, model.Record{
			ID:            a.list.prefix + titleSlug(it.Title, it.URL),
			Title:         it.Title,
			Summary:       it.Summary,
			SourceURL:     it.URL,
			PublishedDate: it.LastUpdated,
			LastUpdated:   it.LastUpdated,
			Regulator:     reg,
			Domain:        a.list.domain,
			DocumentType:  model.DocGuidance,
			Keywords:      kw,
		})
	}
	return out, nil
}

// LoadCurated parses one embedded list.
func LoadCurated(file string) ([]CuratedItem, error) {
	b, err := curatedFS.ReadFile("curated/" + file)
	if err != nil {
		return nil, eris.Wrapf(err, "curated list %s", file)
	}
	var items []CuratedItem
	if err := yaml.Unmarshal(b, &items); err != nil {
		return nil, eris.Wrapf(err, "parse curated list %s", file)
	}
	return items, nil
}

func curated(l curatedList) Factory {
	return func(env Env) Adapter { return &curatedAdapter{env: env, list: l} }
}

var (
	NewFundraisingRegulator = curated(curatedList{
		meta: model.SourceMetadata{Key: "fr", Name: "Fundraising Regulator: Code of Fundraising Practice",
			URL: "https://www.fundraisingregulator.org.uk/", Regulator: model.RegulatorFR, UpdateFrequency: "annual"},
		file: "fr.yml", prefix: "FR_guidance_", domain: "risk_management", keywords: 20,
	})
	NewSafeguarding = curated(curatedList{
		meta: model.SourceMetadata{Key: "safeguarding", Name: "Charity safeguarding guidance",
			URL: "https://www.gov.uk/guidance/safeguarding-duties-for-charity-trustees", Regulator: model.RegulatorCC, UpdateFrequency: "quarterly"},
		file: "safeguarding.yml", prefix: "SAFEGUARDING_", domain: "safeguarding", keywords: 20,
	})
	NewDataProtection = curated(curatedList{
		meta: model.SourceMetadata{Key: "data_protection", Name: "Data protection guidance for charities",
			URL: "https://ico.org.uk/for-organisations/charity/", Regulator: model.RegulatorICO, UpdateFrequency: "quarterly"},
		file: "data_protection.yml", prefix: "GDPR_", domain: "gdpr", keywords: 20,
	})
	NewFinancialReporting = curated(curatedList{
		meta: model.SourceMetadata{Key: "financial_reporting", Name: "Charity financial reporting guidance",
			URL: "https://www.gov.uk/government/publications/charity-reporting-and-accounting-the-essentials-november-2016-cc15d", Regulator: model.RegulatorCC, UpdateFrequency: "annual"},
		file: "financial_reporting.yml", prefix: "FINANCE_", domain: "financial_reporting", keywords: 20,
	})
	NewRiskManagement = curated(curatedList{
		meta: model.SourceMetadata{Key: "risk_management", Name: "Charity risk management guidance",
			URL: "https://www.gov.uk/government/publications/charities-and-risk-management-cc26", Regulator: model.RegulatorCC, UpdateFrequency: "annual"},
		file: "risk_management.yml", prefix: "RISK_", domain: "risk_management", keywords: 20,
	})
	NewAntiFraud = curated(curatedList{
		meta: model.SourceMetadata{Key: "anti_fraud", Name: "Charity fraud prevention guidance",
			URL: "https://www.gov.uk/guidance/protect-your-charity-from-fraud", Regulator: model.RegulatorCC, UpdateFrequency: "annual"},
		file: "anti_fraud.yml", prefix: "FRAUD_", domain: "anti_fraud", keywords: 20,
	})
)
