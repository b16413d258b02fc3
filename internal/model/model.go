package model

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

type Regulator string

const (
	RegulatorCC   Regulator = "CC"   // Charity Commission
	RegulatorICO  Regulator = "ICO"  // Information Commissioner's Office
	RegulatorHSE  Regulator = "HSE"  // Health and Safety Executive
	RegulatorHMRC Regulator = "HMRC" // tax
	RegulatorFR   Regulator = "FR"   // Fundraising Regulator
	RegulatorOFSI Regulator = "OFSI" // financial sanctions
)

type DocumentType string

const (
	DocGuidance    DocumentType = "guidance"
	DocCase        DocumentType = "case"
	DocEnforcement DocumentType = "enforcement"
	DocSanction    DocumentType = "sanction"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// DefaultDomain is stamped when no topic rule matched.
const DefaultDomain = "governance"

// PlaceholderDate marks "true date unknown". It sorts before every real date
// so an unscraped record never looks fresh.
const PlaceholderDate = "1970-01-01"

// PlaceholderDates are the sentinels earlier runs used for unknown dates.
var PlaceholderDates = []string{"1970-01-01", "2025-01-01", "2025-12-31"}

// IsPlaceholderDate reports whether d is one of the default sentinels.
func IsPlaceholderDate(d string) bool {
	for _, p := range PlaceholderDates {
		if d == p {
			return true
		}
	}
	return false
}

// SourceMetadata describes a source for logging. It is never persisted.
type SourceMetadata struct {
	Key             string    // registry key, e.g. "cc"
	Name            string    // human name
	URL             string    // canonical entry point
	Regulator       Regulator // owning regulator
	UpdateFrequency string    // e.g. "weekly"
}

// Record is the normalized representation for all sources.
// Empty strings and nil slices/pointers mean "absent".
type Record struct {
	ID            string
	Title         string
	Summary       string
	SourceURL     string
	PublishedDate string // YYYY-MM-DD
	LastUpdated   string // YYYY-MM-DD
	Regulator     Regulator
	Domain        string
	DocumentType  DocumentType

	CharityNumber     string
	CharityName       string
	CharityIncomeBand string
	RiskLevel         RiskLevel
	CaseID            string
	CaseStatus        string
	Outcome           string
	IssuesIdentified  []string
	SanctionsRegime   string
	DesignatedBy      string
	FineAmount        *float64
	Keywords          []string

	FullText string // truncated raw text, not a dataset column
}

// WithPlaceholderDates returns a copy with absent dates set to placeholder.
func (r Record) WithPlaceholderDates(placeholder string) Record {
	if r.PublishedDate == "" {
		r.PublishedDate = placeholder
	}
	if r.LastUpdated == "" {
		r.LastUpdated = placeholder
	}
	return r
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsISODate reports whether s has the YYYY-MM-DD shape.
func IsISODate(s string) bool { return isoDate.MatchString(s) }

// Validate checks the invariants a record must hold once it leaves an adapter
// and the orchestrator has stamped placeholder dates.
func (r Record) Validate() error {
	switch {
	case r.ID == "":
		return eris.New("record: empty id")
	case r.Domain == "":
		return eris.Errorf("record %s: empty domain", r.ID)
	case !IsISODate(r.PublishedDate):
		return eris.Errorf("record %s: bad published_date %q", r.ID, r.PublishedDate)
	case !IsISODate(r.LastUpdated):
		return eris.Errorf("record %s: bad last_updated %q", r.ID, r.LastUpdated)
	}
	switch r.DocumentType {
	case DocGuidance, DocCase, DocEnforcement, DocSanction:
	default:
		return eris.Errorf("record %s: unknown document_type %q", r.ID, r.DocumentType)
	}
	switch r.RiskLevel {
	case "", RiskLow, RiskMedium, RiskHigh, RiskCritical:
	default:
		return eris.Errorf("record %s: unknown risk_level %q", r.ID, r.RiskLevel)
	}
	return nil
}

// FormatFine renders an amount without trailing zeros ("5000", "1250.5").
func FormatFine(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
