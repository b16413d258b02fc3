package model

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ListSeparator joins list-valued cells. It never appears in domain tags or keywords.
const ListSeparator = "|"

// Columns is the fixed column order of the persisted dataset.
var Columns = []string{
	"id", "title", "summary", "source_url", "published_date", "last_updated",
	"regulator", "domain", "document_type", "charity_number", "charity_name",
	"charity_income_band", "risk_level", "case_id", "case_status", "outcome",
	"issues_identified", "sanctions_regime", "designated_by", "fine_amount", "keywords",
}

// Row flattens r in Columns order. Absent values become empty cells.
func (r Record) Row() []string {
	return []string{
		r.ID,
		r.Title,
		r.Summary,
		r.SourceURL,
		r.PublishedDate,
		r.LastUpdated,
		string(r.Regulator),
		r.Domain,
		string(r.DocumentType),
		r.CharityNumber,
		r.CharityName,
		r.CharityIncomeBand,
		string(r.RiskLevel),
		r.CaseID,
		r.CaseStatus,
		r.Outcome,
		strings.Join(r.IssuesIdentified, ListSeparator),
		r.SanctionsRegime,
		r.DesignatedBy,
		FormatFine(r.FineAmount),
		strings.Join(r.Keywords, ListSeparator),
	}
}

// FromRow rebuilds a record from a row whose cells are named by header.
// Unknown columns are ignored and missing ones stay absent.
func FromRow(header, row []string) (Record, error) {
	get := func(name string) string {
		for i, h := range header {
			if h == name && i < len(row) {
				return row[i]
			}
		}
		return ""
	}
	r := Record{
		ID:                get("id"),
		Title:             get("title"),
		Summary:           get("summary"),
		SourceURL:         get("source_url"),
		PublishedDate:     get("published_date"),
		LastUpdated:       get("last_updated"),
		Regulator:         Regulator(get("regulator")),
		Domain:            get("domain"),
		DocumentType:      DocumentType(get("document_type")),
		CharityNumber:     get("charity_number"),
		CharityName:       get("charity_name"),
		CharityIncomeBand: get("charity_income_band"),
		RiskLevel:         RiskLevel(get("risk_level")),
		CaseID:            get("case_id"),
		CaseStatus:        get("case_status"),
		Outcome:           get("outcome"),
		IssuesIdentified:  splitList(get("issues_identified")),
		SanctionsRegime:   get("sanctions_regime"),
		DesignatedBy:      get("designated_by"),
		Keywords:          splitList(get("keywords")),
	}
	if r.ID == "" {
		return Record{}, eris.New("row: missing id")
	}
	if s := strings.TrimSpace(get("fine_amount")); s != "" {
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return Record{}, eris.Wrapf(err, "row %s: fine_amount %q", r.ID, s)
		}
		r.FineAmount = &f
	}
	return r, nil
}

// NewCSVReader reads UTF-8 CSV, dropping a leading byte order mark. Rows may
// vary in length; callers map cells by header name.
func NewCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}
