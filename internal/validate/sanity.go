package validate

import (
	"strings"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// SanityRule inspects a produced analysis and returns a warning message, or ""
// when the rule does not fire. Rules never fail validation.
type SanityRule struct {
	Tag   taxonomy.WarningTag
	Check func(facts *model.ParsedFontFacts, a *model.Analysis) string
}

// DefaultRules are applied by ApplySanityRules.
var DefaultRules = []SanityRule{
	{Tag: taxonomy.WarnUISerifMismatch, Check: uiSerifWithoutSansEvidence},
	{Tag: taxonomy.WarnMonospaceNotFixedPitch, Check: monospaceNotFixedPitch},
	{Tag: taxonomy.WarnCodeWithoutMonospace, Check: codeWithoutMonospace},
	{Tag: taxonomy.WarnBodyTextDisplayFace, Check: bodyTextDisplayFace},
}

// ApplySanityRules runs DefaultRules over a.
func ApplySanityRules(facts *model.ParsedFontFacts, a *model.Analysis) []model.Warning {
	if a == nil {
		return nil
	}
	var out []model.Warning
	for _, rule := range DefaultRules {
		if msg := rule.Check(facts, a); msg != "" {
			out = append(out, model.Warning{Tag: rule.Tag, Stage: "sanity", Message: msg})
		}
	}
	return out
}

func uiSerifWithoutSansEvidence(_ *model.ParsedFontFacts, a *model.Analysis) string {
	if a.StylePrimary.Value != taxonomy.StyleSerif || !a.HasUseCase(taxonomy.UseUI) {
		return ""
	}
	if hasSansEvidence(a) {
		return ""
	}
	return "ui use-case paired with a serif classification and no sans-serif evidence"
}

func hasSansEvidence(a *model.Analysis) bool {
	keys := append([]string{}, a.StylePrimary.EvidenceKeys...)
	for _, u := range a.UseCases {
		keys = append(keys, u.EvidenceKeys...)
	}
	for _, k := range keys {
		if strings.Contains(strings.ToLower(k), "sans") {
			return true
		}
	}
	return false
}

func monospaceNotFixedPitch(facts *model.ParsedFontFacts, a *model.Analysis) string {
	if facts == nil || a.StylePrimary.Value != taxonomy.StyleMonospace || facts.IsFixedPitch {
		return ""
	}
	return "monospace classification but the font does not declare fixed pitch"
}

func codeWithoutMonospace(_ *model.ParsedFontFacts, a *model.Analysis) string {
	if !a.HasUseCase(taxonomy.UseCode) || a.StylePrimary.Value == taxonomy.StyleMonospace {
		return ""
	}
	return "code use-case suggested for a non-monospace face"
}

func bodyTextDisplayFace(_ *model.ParsedFontFacts, a *model.Analysis) string {
	if !a.HasUseCase(taxonomy.UseBodyText) {
		return ""
	}
	switch a.StylePrimary.Value {
	case taxonomy.StyleDisplay, taxonomy.StyleDecorative, taxonomy.StyleScript:
		return "body text use-case suggested for a " + string(a.StylePrimary.Value) + " face"
	}
	return ""
}
