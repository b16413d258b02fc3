package extract

import (
	"strings"
	"unicode"
)

// TopicRule maps a set of terms to a domain tag.
type TopicRule struct {
	Domain string   `yaml:"domain"`
	Terms  []string `yaml:"terms"` // lowercase; terms of 3 letters or fewer match whole words only
}

// Classifier scans text against priority-ordered rules.
type Classifier struct {
	Rules   []TopicRule
	Default string
}

// Classify returns every matching domain in rule order, or [Default] when nothing matched.
func (c Classifier) Classify(parts ...string) []string {
	text := strings.ToLower(strings.Join(parts, "\n"))
	var out []string
	seen := map[string]bool{}
	for _, r := range c.Rules {
		if seen[r.Domain] || !r.matches(text) {
			continue
		}
		seen[r.Domain] = true
		out = append(out, r.Domain)
	}
	if len(out) == 0 {
		return []string{c.fallback()}
	}
	return out
}

// Primary returns the first matching domain, or Default.
func (c Classifier) Primary(parts ...string) string {
	text := strings.ToLower(strings.Join(parts, "\n"))
	for _, r := range c.Rules {
		if r.matches(text) {
			return r.Domain
		}
	}
	return c.fallback()
}

func (c Classifier) fallback() string {
	if c.Default == "" {
		return "governance"
	}
	return c.Default
}

func (r TopicRule) matches(text string) bool {
	for _, t := range r.Terms {
		if containsTerm(text, t) {
			return true
		}
	}
	return false
}

// containsTerm matches short terms (ico, hse, dbs) on word boundaries so
// they don't fire inside words like "policy" or "dbscan".
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	if len(term) > 3 {
		return strings.Contains(text, term)
	}
	for from := 0; ; {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if !letterAt(text, start-1) && !letterAt(text, end) {
			return true
		}
		from = start + 1
	}
}

func letterAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := rune(s[i])
	return unicode.IsLetter(c) || unicode.IsDigit(c)
}

// IssueRules classify inquiry reports. More specific topics come first and
// governance is only the fallback.
var IssueRules = Classifier{
	Default: "governance",
	Rules: []TopicRule{
		{Domain: "safeguarding", Terms: []string{
			"safeguard", "child protection", "vulnerable adult", "vulnerable beneficiar",
			"sexual abuse", "physical abuse", "emotional abuse", "neglect", "harm to beneficiaries",
		}},
		{Domain: "gdpr", Terms: []string{
			"data protection", "personal data", "gdpr", "information commissioner", "ico",
			"data breach", "loss of data", "unlawful processing",
		}},
		{Domain: "health_safety", Terms: []string{
			"health and safety", "health & safety", "hse", "risk assessment",
			"safe systems of work", "fire safety", "fire risk",
		}},
		{Domain: "financial_reporting", Terms: []string{
			"financial controls", "accounting records", "accounts", "financial mismanagement",
			"funds misapplied", "unauthorised payment", "unauthorized payment",
			"loan to trustee", "related party transaction", "sorp",
		}},
		{Domain: "anti_fraud", Terms: []string{
			"fraud", "false accounting", "money laundering", "terrorist financing",
			"terrorism", "theft", "misappropriation", "misuse of funds",
		}},
		{Domain: "risk_management", Terms: []string{
			"risk management", "risk register", "risk framework", "internal control",
			"due diligence",
		}},
	},
}

// GuidanceRules classify guidance pages; the first matching rule is the domain.
var GuidanceRules = Classifier{
	Default: "governance",
	Rules: []TopicRule{
		{Domain: "safeguarding", Terms: []string{"safeguard", "protection", "dbs"}},
		{Domain: "governance", Terms: []string{"trustee", "board", "governance"}},
		{Domain: "gdpr", Terms: []string{"data protection", "gdpr", "privacy"}},
		{Domain: "health_safety", Terms: []string{"health and safety", "risk assessment"}},
		{Domain: "risk_management", Terms: []string{"risk", "internal control"}},
		{Domain: "anti_fraud", Terms: []string{"fraud", "money laundering"}},
		{Domain: "sanctions", Terms: []string{"sanction"}},
		{Domain: "financial_reporting", Terms: []string{"accounts", "financial reporting", "sorp"}},
	},
}
