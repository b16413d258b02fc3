package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

func TestApplyFixedDates(t *testing.T) {
	in := []model.Record{
		{ID: "CC_case_1100416_unknown", PublishedDate: "1970-01-01", LastUpdated: "1970-01-01"},
		{ID: "other", PublishedDate: "2020-01-01", LastUpdated: "2020-01-01"},
		{ID: "already", PublishedDate: "2022-02-02", LastUpdated: "2022-02-02"},
	}
	rules := DefaultRules(map[string]string{"already": "2022-02-02"})

	out, changed := ApplyFixedDates(in, rules)
	assert.Equal(t, 1, changed)
	assert.Equal(t, "2023-10-20", out[0].PublishedDate)
	assert.Equal(t, "2023-10-20", out[0].LastUpdated)
	assert.Equal(t, in[1], out[1])
	assert.Equal(t, "1970-01-01", in[0].PublishedDate, "input is not modified")
}

func TestDefaultRulesOverride(t *testing.T) {
	rules := DefaultRules(map[string]string{"CC_case_1100416_unknown": "2023-10-21"})
	assert.Equal(t, "2023-10-21", rules.FixedDates["CC_case_1100416_unknown"])
	assert.Equal(t, "2018-05-01", rules.FixedDates["CC_guidance_making-decisions-at-a-charity"])
	assert.Equal(t, "2018-05-01", KnownDates["CC_guidance_making-decisions-at-a-charity"])
}

func TestStamp(t *testing.T) {
	in := []model.Record{
		{ID: "a", PublishedDate: "2023-01-01", LastUpdated: "2023-01-01", Domain: "gdpr"},
		{ID: "b"},
		{ID: "c", PublishedDate: "2023-01-01", LastUpdated: "2023-02-01"},
	}
	out, stamped := Stamp(in, model.PlaceholderDate)
	assert.Equal(t, 2, stamped)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, "1970-01-01", out[1].PublishedDate)
	assert.Equal(t, "1970-01-01", out[1].LastUpdated)
	for _, r := range out {
		assert.NotEmpty(t, r.Domain)
	}
	assert.Equal(t, model.DefaultDomain, out[2].Domain)
	assert.Equal(t, "2023-02-01", out[2].LastUpdated)
}
