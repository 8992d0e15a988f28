package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

const validDoc = `{
	"style_primary": {"value": "sans_serif", "confidence": 0.9, "evidence_keys": ["x_height_ratio"]},
	"substyle": {"value": "neo_grotesque", "confidence": 0.7, "evidence_keys": ["width_ratio"]},
	"moods": [
		{"value": "modern", "confidence": 0.8, "evidence_keys": ["x_height_ratio"]},
		{"value": "professional", "confidence": 0.6, "evidence_keys": []}
	],
	"use_cases": [
		{"value": "ui", "confidence": 0.7, "evidence_keys": ["sans_serif"]}
	],
	"historical_context": "  Swiss style revival.  "
}`

func tagsOf(ws []model.Warning) []taxonomy.WarningTag {
	out := make([]taxonomy.WarningTag, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Tag)
	}
	return out
}

func TestParse_ValidDocument(t *testing.T) {
	raw, rep := Parse([]byte(validDoc), false)
	require.NotNil(t, raw)
	assert.True(t, rep.IsValid)
	assert.Empty(t, rep.Errors)
	assert.Empty(t, rep.Warnings)
	assert.False(t, rep.Fatal)
}

func TestValidate_MissingStylePrimary(t *testing.T) {
	raw, rep := Parse([]byte(`{"moods": [], "use_cases": []}`), false)
	require.NotNil(t, raw)
	assert.False(t, rep.IsValid)
	assert.Contains(t, rep.Errors, "style_primary is required")
}

func TestValidate_NullStylePrimaryIsMissing(t *testing.T) {
	_, rep := Parse([]byte(`{"style_primary": null, "moods": [], "use_cases": []}`), false)
	assert.False(t, rep.IsValid)
	assert.Contains(t, rep.Errors, "style_primary is required")
}

func TestValidate_OutOfTaxonomyPrimary(t *testing.T) {
	_, rep := Parse([]byte(`{"style_primary": "gothic_sans", "moods": [], "use_cases": []}`), false)
	assert.False(t, rep.IsValid)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "gothic_sans")
}

func TestValidate_MissingMoods(t *testing.T) {
	_, rep := Parse([]byte(`{"style_primary": "serif", "use_cases": ["editorial"]}`), false)
	assert.False(t, rep.IsValid)
	assert.Contains(t, rep.Errors, "moods is required")
}

func TestValidate_MoodsWrongShape(t *testing.T) {
	_, rep := Parse([]byte(`{"style_primary": "serif", "moods": "elegant", "use_cases": []}`), false)
	assert.False(t, rep.IsValid)
	assert.Contains(t, rep.Errors, "moods: expected an array")
}

func TestValidate_StylePrimaryWrongShape(t *testing.T) {
	_, rep := Parse([]byte(`{"style_primary": 7, "moods": [], "use_cases": []}`), false)
	assert.False(t, rep.IsValid)
	assert.Contains(t, rep.Errors[0], "style_primary")
}

func TestValidate_SecondaryIssuesAreWarnings(t *testing.T) {
	doc := `{
		"style_primary": {"value": "serif", "confidence": 1.4},
		"substyle": {"value": "geometric", "evidence_keys": []},
		"moods": ["elegant", "spooky", 12],
		"use_cases": [{"value": "editorial", "confidence": -0.2, "evidence_keys": ["contrast"]}]
	}`
	_, rep := Parse([]byte(doc), false)
	assert.True(t, rep.IsValid)
	tags := tagsOf(rep.Warnings)
	assert.Contains(t, tags, taxonomy.WarnSubstyleMismatch)
	assert.Contains(t, tags, taxonomy.WarnSecondaryOutOfTaxonomy)
	assert.Contains(t, tags, taxonomy.WarnMissingEvidence)
	assert.Contains(t, tags, taxonomy.WarnConfidenceOutOfRange)
}

func TestValidate_UnknownSubstyle(t *testing.T) {
	_, rep := Parse([]byte(`{"style_primary": "serif", "substyle": "wobbly", "moods": [], "use_cases": []}`), false)
	assert.True(t, rep.IsValid)
	assert.Contains(t, tagsOf(rep.Warnings), taxonomy.WarnSecondaryOutOfTaxonomy)
}

func TestValidate_NilRaw(t *testing.T) {
	rep := Validate(nil)
	assert.False(t, rep.IsValid)
}

func TestParse_NotJSON(t *testing.T) {
	raw, rep := Parse([]byte("I think this is a serif"), false)
	assert.Nil(t, raw)
	assert.False(t, rep.IsValid)
	assert.False(t, rep.Fatal)
}

func TestParse_TruncatedIsFatal(t *testing.T) {
	_, rep := Parse([]byte(`{"style_primary": {"value": "serif", "conf`), true)
	assert.False(t, rep.IsValid)
	assert.True(t, rep.Fatal)
}

func TestParse_TopLevelArrayRejected(t *testing.T) {
	raw, rep := Parse([]byte(`[1,2]`), false)
	assert.Nil(t, raw)
	assert.False(t, rep.IsValid)
}

func TestNormalize_TypedValues(t *testing.T) {
	raw, rep := Parse([]byte(validDoc), false)
	require.True(t, rep.IsValid)

	a := Normalize(raw, "claude-sonnet")
	require.NotNil(t, a)
	assert.Equal(t, "claude-sonnet", a.Model)
	assert.Equal(t, taxonomy.StyleSansSerif, a.StylePrimary.Value)
	require.NotNil(t, a.Substyle)
	assert.Equal(t, taxonomy.SubstyleNeoGrotesque, a.Substyle.Value)
	require.Len(t, a.Moods, 2)
	assert.Equal(t, taxonomy.MoodModern, a.Moods[0].Value)
	assert.Equal(t, "Swiss style revival.", a.HistoricalContext)
}

func TestNormalize_DropsUnknownAndClamps(t *testing.T) {
	raw, _ := Parse([]byte(`{
		"style_primary": {"value": "Sans Serif", "confidence": 1.7},
		"substyle": "wobbly",
		"moods": ["elegant", "spooky", "elegant"],
		"use_cases": [{"value": "ui", "confidence": -1}]
	}`), false)
	a := Normalize(raw, "m")
	require.NotNil(t, a)
	assert.Equal(t, taxonomy.StyleSansSerif, a.StylePrimary.Value)
	assert.Equal(t, 1.0, a.StylePrimary.Confidence)
	assert.Nil(t, a.Substyle)
	require.Len(t, a.Moods, 1)
	assert.True(t, a.Moods[0].Unscored)
	require.Len(t, a.UseCases, 1)
	assert.Equal(t, 0.0, a.UseCases[0].Confidence)
	assert.False(t, a.UseCases[0].Unscored)
}

func TestNormalize_InvalidPrimaryReturnsNil(t *testing.T) {
	assert.Nil(t, Normalize(nil, "m"))
	assert.Nil(t, Normalize(&model.RawAnalysis{StylePrimary: &model.RawItem{Value: "nope"}}, "m"))
}

func TestDecode_StringShorthandAndNulls(t *testing.T) {
	raw, err := Decode([]byte(`{"style_primary": "script", "substyle": null, "moods": ["playful", null], "use_cases": [], "notes": 5}`))
	require.NoError(t, err)
	require.NotNil(t, raw.StylePrimary)
	assert.Equal(t, "script", raw.StylePrimary.Value)
	assert.Nil(t, raw.StylePrimary.Confidence)
	assert.Nil(t, raw.Substyle)
	require.NotNil(t, raw.Moods)
	assert.Len(t, *raw.Moods, 1)
	assert.Contains(t, raw.Malformed, FieldNotes)
}

func TestDecode_BadItemElement(t *testing.T) {
	raw, err := Decode([]byte(`{"style_primary": "serif", "moods": [{"value": 3}, {"value": "warm", "confidence": "high"}], "use_cases": []}`))
	require.NoError(t, err)
	assert.Contains(t, raw.Malformed, "moods[0]")
	assert.Contains(t, raw.Malformed, "moods[1]")
	assert.Empty(t, *raw.Moods)
}
