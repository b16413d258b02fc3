package postprocess

import (
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

// KnownDates are publication dates verified by hand on GOV.UK and HSE for
// records whose pages carry no usable date.
var KnownDates = map[string]string{
	"CC_guidance_making-decisions-at-a-charity":                              "2018-05-01",
	"CC_guidance_managing-charity-finances":                                  "2018-04-10",
	"CC_guidance_managing-conflicts-of-interest-in-a-charity":                "2019-05-06",
	"CC_guidance_what-to-send-to-the-charity-commission-and-how-to-get-help": "2018-06-15",
	"CC_case_1100416_unknown":                                                "2023-10-20",
	"CC_case_1142005_unknown":                                                "2023-07-01",
	"CC_case_1117893_unknown":                                                "2023-11-05",
	"CC_case_1127466_unknown":                                                "2023-07-03",
	"CC_case_1136163_unknown":                                                "2023-02-28",
	"CC_case_1122974_unknown":                                                "2023-01-22",
	"CC_case_1159575_unknown":                                                "2023-12-19",
	"CC_case_1164018_unknown":                                                "2023-12-05",
	"CC_case_1189808_unknown":                                                "2023-11-21",
	"CC_case_1143110_unknown":                                                "2023-11-15",
	"CC_case_1160575_unknown":                                                "2024-10-24",
	"CC_case_1058334_unknown":                                                "2024-10-18",
	"CC_case_517381_unknown":                                                 "2024-10-17",
	"CC_case_1159995_unknown":                                                "2024-09-26",
	"CC_case_1155658_unknown":                                                "2024-09-05",
	"CC_case_1149924_unknown":                                                "2024-09-05",
	"CC_case_1152988_unknown":                                                "2024-08-22",
	"CC_case_1180264_unknown":                                                "2024-07-19",
	"CC_case_1026493_unknown":                                                "2024-07-12",
	"CC_case_1111470_unknown":                                                "2024-07-08",
	"CC_case_1149828_unknown":                                                "2024-05-22",
	"CC_case_1014419_unknown":                                                "2024-05-14",
	"CC_case_1014813_unknown":                                                "2024-04-25",
	"CC_case_1026816_unknown":                                                "2024-04-24",
	"CC_case_1026963_unknown":                                                "2024-04-16",
	"CC_case_1098071_unknown":                                                "2024-03-06",
	"CC_case_1176670_unknown":                                                "2024-01-25",
	"CC_case_1175877_unknown":                                                "2025-04-23",
	"HSE_guidance_protecting-volunteers-in-charity-shops-and-fundraising": "2021-06-15",
	"HSE_guidance_volunteering-how-to-manage-the-risks":                   "2021-03-22",
	"HSE_guidance_does-health-and-safety-legislation-apply-to-volunteers": "2020-09-18",
	"HSE_guidance_managing-risks-and-risk-assessment-at-work":             "2022-01-13",
}

// Rules are the corrections applied to a record set.
type Rules struct {
	FixedDates map[string]string // id -> ISO date
}

// DefaultRules returns KnownDates overlaid with overrides.
func DefaultRules(overrides map[string]string) Rules {
	fixed := make(map[string]string, len(KnownDates)+len(overrides))
	for id, d := range KnownDates {
		fixed[id] = d
	}
	for id, d := range overrides {
		fixed[id] = d
	}
	return Rules{FixedDates: fixed}
}

// ApplyFixedDates sets published_date and last_updated on every listed id and
// reports how many records actually changed.
func ApplyFixedDates(records []model.Record, rules Rules) ([]model.Record, int) {
	out := make([]model.Record, len(records))
	changed := 0
	for i, r := range records {
		if d, ok := rules.FixedDates[r.ID]; ok && (r.PublishedDate != d || r.LastUpdated != d) {
			r.PublishedDate = d
			r.LastUpdated = d
			changed++
		}
		out[i] = r
	}
	return out, changed
}

// Stamp fills what extraction could not: absent dates get placeholder and an
// empty domain gets the default. It returns the number of records stamped.
func Stamp(records []model.Record, placeholder string) ([]model.Record, int) {
	out := make([]model.Record, len(records))
	stamped := 0
	for i, r := range records {
		s := r.WithPlaceholderDates(placeholder)
		if s.Domain == "" {
			s.Domain = model.DefaultDomain
		}
		if s.PublishedDate != r.PublishedDate || s.LastUpdated != r.LastUpdated || s.Domain != r.Domain {
			stamped++
		}
		out[i] = s
	}
	return out, stamped
}
