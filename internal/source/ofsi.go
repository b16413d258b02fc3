package source

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Boakye-20/charity-compliance-tracker/internal/extract"
	"github.com/Boakye-20/charity-compliance-tracker/internal/fetch"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

const ofsiPage = "https://www.gov.uk/government/publications/financial-sanctions-consolidated-list-of-targets/consolidated-list-of-targets"

var ofsiDateLayouts = []string{"02/01/2006", "2/1/2006", "2006-01-02", "02-01-2006", "2 Jan 2006", "2006-01-02T15:04:05"}

type ofsiAdapter struct {
	env Env
}

// NewOFSI downloads the consolidated list of financial sanctions targets.
func NewOFSI(env Env) Adapter { return &ofsiAdapter{env: env} }

func (a *ofsiAdapter) Metadata() model.SourceMetadata {
	return model.SourceMetadata{
		Key:             "ofsi",
		Name:            "OFSI UK Sanctions Consolidated List",
		URL:             ofsiPage,
		Regulator:       model.RegulatorOFSI,
		UpdateFrequency: "daily",
	}
}

// Download finds the current ConList link on the publication page. CSV is
// preferred; XML is used only when no CSV is offered.
func (a *ofsiAdapter) Download(ctx context.Context) (Payload, error) {
	resp, err := fetch.RequireOK(a.env.Fetcher.Get(ctx, ofsiPage))
	if err != nil {
		return Payload{}, err
	}
	page, err := extract.NewPage(resp.Body)
	if err != nil {
		return Payload{}, err
	}
	link, format := conListLink(page, ofsiPage)
	if link == "" {
		return Payload{}, eris.New("no ConList download link on the publication page")
	}
	a.env.logger().Info("found sanctions list", zap.String("source", "ofsi"), zap.String("url", link))

	body, err := fetch.RequireOK(a.env.Fetcher.Get(ctx, link))
	if err != nil {
		return Payload{}, err
	}
	return WriteRaw(a.env.StagingDir, "ofsi_sanctions_raw."+string(format), format, body.Body)
}

func conListLink(p *extract.Page, base string) (string, Format) {
	var xmlLink string
	for _, l := range p.Links("a[href]", base) {
		lower := strings.ToLower(l)
		if !strings.Contains(lower, "conlist") {
			continue
		}
		switch {
		case strings.HasSuffix(lower, ".csv"):
			return l, FormatCSV
		case strings.HasSuffix(lower, ".xml") && xmlLink == "":
			xmlLink = l
		}
	}
	if xmlLink != "" {
		return xmlLink, FormatXML
	}
	return "", ""
}

func (a *ofsiAdapter) Normalize(p Payload) ([]model.Record, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, &ParseError{Source: "ofsi", Detail: "open payload", Err: err}
	}
	defer f.Close()

	var (
		rows    []map[string]string
		updated string
	)
	switch p.Format {
	case FormatXML:
		rows, err = conListXMLRows(f)
	default:
		rows, updated, err = conListCSVRows(f)
	}
	if err != nil {
		return nil, &ParseError{Source: "ofsi", Detail: "consolidated list", Err: err}
	}

	seen := make(map[string]bool)
	var out []model.Record
	for _, row := range rows {
		if alias := pickStr(row, "Alias Type"); alias != "" && !strings.EqualFold(alias, "Primary name") {
			continue
		}
		rec, ok := sanctionRecord(row, updated)
		if !ok || seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		out = append(out, rec)
	}
	a.env.logger().Info("normalized sanctions entries", zap.String("source", "ofsi"),
		zap.Int("rows", len(rows)), zap.Int("records", len(out)))
	return out, nil
}

// conListCSVRows reads ConList.csv. The file opens with a "Last Updated,<date>"
// preamble line before the real header.
func conListCSVRows(r io.Reader) ([]map[string]string, string, error) {
	all, err := model.NewCSVReader(r).ReadAll()
	if err != nil {
		return nil, "", err
	}
	var updated string
	if len(all) > 0 && len(all[0]) > 1 && strings.EqualFold(strings.TrimSpace(all[0][0]), "Last Updated") {
		updated, _ = extract.ParseDate(all[0][1], ofsiDateLayouts...)
		all = all[1:]
	}
	if len(all) == 0 {
		return nil, updated, nil
	}
	header := all[0]
	rows := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[strings.TrimSpace(h)] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, updated, nil
}

type conListTarget struct {
	Name1         string `xml:"Name1"`
	Name2         string `xml:"Name2"`
	Name3         string `xml:"Name3"`
	Name4         string `xml:"Name4"`
	Name5         string `xml:"Name5"`
	Name6         string `xml:"Name6"`
	GroupType     string `xml:"GroupTypeDescription"`
	AliasType     string `xml:"AliasType"`
	Regime        string `xml:"RegimeName"`
	DateListed    string `xml:"DateListed"`
	LastUpdated   string `xml:"LastUpdated"`
	GroupID       string `xml:"GroupID"`
	StatementOfUK string `xml:"UKStatementofReasons"`
}

// conListXMLRows maps ConList.xml targets onto the CSV column names so both
// formats share one record builder.
func conListXMLRows(r io.Reader) ([]map[string]string, error) {
	var doc struct {
		Targets []conListTarget `xml:"FinancialSanctionsTarget"`
	}
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	rows := make([]map[string]string, 0, len(doc.Targets))
	for _, t := range doc.Targets {
		rows = append(rows, map[string]string{
			"Name 1":                  t.Name1,
			"Name 2":                  t.Name2,
			"Name 3":                  t.Name3,
			"Name 4":                  t.Name4,
			"Name 5":                  t.Name5,
			"Name 6":                  t.Name6,
			"Group Type":              t.GroupType,
			"Alias Type":              t.AliasType,
			"Regime":                  t.Regime,
			"Listed On":               t.DateListed,
			"Last Updated":            t.LastUpdated,
			"Group ID":                t.GroupID,
			"UK Statement of Reasons": t.StatementOfUK,
		})
	}
	return rows, nil
}

// targetName joins the given names before the surname or entity name (Name 6).
func targetName(row map[string]string) string {
	var parts []string
	for _, k := range []string{"Name 1", "Name 2", "Name 3", "Name 4", "Name 5", "Name 6"} {
		if v := strings.TrimSpace(row[k]); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return pickStr(row, "Name", "name", "Primary name")
	}
	return strings.Join(parts, " ")
}

var (
	unWord = regexp.MustCompile(`\bUN\b`)
	euWord = regexp.MustCompile(`\bEU\b`)
)

// designatedBy reads the designating body from the statement of reasons.
// Only whole words count: "UN" inside "under" or "funds" is not a match.
func designatedBy(reasons string) string {
	upper := strings.ToUpper(reasons)
	switch {
	case unWord.MatchString(upper):
		return "UN"
	case euWord.MatchString(upper):
		return "EU"
	default:
		return "UK"
	}
}

func sanctionRecord(row map[string]string, listUpdated string) (model.Record, bool) {
	name := targetName(row)
	if len([]rune(name)) < 2 {
		return model.Record{}, false
	}
	groupType := orElse(pickStr(row, "Group Type", "Type"), "Unknown")
	regime := pickStr(row, "Regime", "Sanctions Regime")
	listed, _ := extract.ParseDate(pickStr(row, "Listed On", "Date Listed", "UK Sanctions List Date Designated"), ofsiDateLayouts...)
	updated, ok := extract.ParseDate(pickStr(row, "Last Updated"), ofsiDateLayouts...)
	if !ok {
		updated = orElse(listUpdated, listed)
	}

	key := orElse(pickStr(row, "Group ID"), extract.CompactSlug(name, 30))
	summary := groupType + ": " + name + " is designated under the " + orElse(regime, "UK") + " sanctions regime."

	var keywords []string
	for _, k := range []string{"sanctions", "ofsi", strings.ToLower(regime), strings.ToLower(groupType)} {
		if k != "" && !slices.Contains(keywords, k) {
			keywords = append(keywords, k)
		}
	}

	return model.Record{
		ID:              "OFSI_sanction_" + key,
		Title:           "Sanctions: " + extract.Truncate(name, 100),
		Summary:         extract.Truncate(summary, 500),
		SourceURL:       ofsiPage + "#" + key,
		PublishedDate:   listed,
		LastUpdated:     updated,
		Regulator:       model.RegulatorOFSI,
		Domain:          "sanctions",
		DocumentType:    model.DocSanction,
		RiskLevel:       model.RiskCritical,
		SanctionsRegime: regime,
		DesignatedBy:    designatedBy(pickStr(row, "UK Statement of Reasons")),
		Keywords:        keywords,
	}, true
}
