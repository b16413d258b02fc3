package extract

import "regexp"

// TextStrategy pulls a single value out of free text.
type TextStrategy func(text string) (string, bool)

// TextChain is tried in order; first match wins.
type TextChain []TextStrategy

func (c TextChain) Extract(text string) string {
	for _, s := range c {
		if v, ok := s(text); ok {
			return v
		}
	}
	return ""
}

// Capture returns a strategy yielding the first submatch of re.
func Capture(re *regexp.Regexp) TextStrategy {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 || m[1] == "" {
			return "", false
		}
		return m[1], true
	}
}

var (
	// "Charity number: 1234567", "charity no. 123456", "registration number 1234567"
	labeledCharityNumber = regexp.MustCompile(`(?i)(?:charity\s+(?:(?:registration\s+)?number|no\.?|registration)?|registration\s+number)\s*:?\s*(\d{6,7})\b`)
	// a bare 7 digit number shortly after "registered"
	registeredNumber = regexp.MustCompile(`(?i)registered\D{0,60}?\b(\d{7})\b`)
)

// CharityNumbers prefers an explicitly labeled number over one near "registered".
var CharityNumbers = TextChain{
	Capture(labeledCharityNumber),
	Capture(registeredNumber),
}

// CharityNumber is CharityNumbers.Extract.
func CharityNumber(text string) string { return CharityNumbers.Extract(text) }
