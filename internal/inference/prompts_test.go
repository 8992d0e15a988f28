package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

func TestClassifySystem_ListsTaxonomy(t *testing.T) {
	sys := ClassifySystem()
	for _, p := range taxonomy.StylePrimaries {
		assert.Contains(t, sys, "- "+string(p)+":")
	}
	assert.Contains(t, sys, string(taxonomy.SubstyleNeoGrotesque))
	assert.Contains(t, sys, string(taxonomy.MoodWhimsical))
	assert.Contains(t, sys, string(taxonomy.UsePosters))
}

func TestVisualPrompt(t *testing.T) {
	facts := &model.ParsedFontFacts{
		FamilyName:   "Go",
		Weight:       400,
		IsFixedPitch: true,
		VariableAxes: []model.VariableAxis{{Tag: "wght", Min: 100, Default: 400, Max: 900}},
	}
	p := VisualPrompt(facts, nil)
	assert.Contains(t, p, "Family: Go")
	assert.Contains(t, p, "Fixed pitch: true")
	assert.Contains(t, p, "Variable axis: wght 100..900 (default 400)")
	assert.Contains(t, p, "Derived metrics: unavailable")

	p = VisualPrompt(facts, &model.VisualMetrics{XHeightRatio: 0.53})
	assert.Contains(t, p, `"x_height_ratio": 0.53`)
}

func TestEnrichedPrompt_IncludesProvenanceAndPrior(t *testing.T) {
	merged := &model.MergedFacts{
		Foundry:        &model.FactValue{Value: "Bigelow & Holmes", Confidence: 0.9},
		Contradictions: []string{`designer: extracted "A", web "B"`},
	}
	visual := &model.Analysis{StylePrimary: model.ClassificationItem[taxonomy.StylePrimary]{Value: taxonomy.StyleSansSerif}}

	p := EnrichedPrompt(&model.ParsedFontFacts{FamilyName: "Go"}, nil, merged, visual)
	assert.Contains(t, p, "- Foundry: Bigelow & Holmes (confidence 0.90)")
	assert.Contains(t, p, "Unresolved: designer")
	assert.Contains(t, p, "previous pass")
	assert.NotContains(t, p, "Designer:")
}

func TestSummaryPrompt(t *testing.T) {
	a := &model.Analysis{
		StylePrimary: model.ClassificationItem[taxonomy.StylePrimary]{Value: taxonomy.StyleSerif},
		Substyle:     &model.ClassificationItem[taxonomy.Substyle]{Value: taxonomy.SubstyleDidone},
		Moods:        []model.ClassificationItem[taxonomy.Mood]{{Value: taxonomy.MoodElegant}, {Value: taxonomy.MoodLuxurious}},
	}
	p := SummaryPrompt(&model.ParsedFontFacts{FamilyName: "Bodoni"}, a, nil)
	assert.Contains(t, p, "Style: serif (didone)")
	assert.Contains(t, p, "Moods: elegant, luxurious")
	assert.NotContains(t, p, "Use cases:")
}
