package model

import "github.com/fontintel/fontintel/internal/taxonomy"

// ClassificationItem is one validated classification with its confidence and
// the evidence the model cited. Value is always a taxonomy member for the
// field it appears in. Unscored marks items the model gave no confidence for;
// they are left out of confidence aggregation.
type ClassificationItem[T ~string] struct {
	Value        T                 `json:"value"`
	Confidence   float64           `json:"confidence"`
	Unscored     bool              `json:"unscored,omitempty"`
	EvidenceKeys []string          `json:"evidence_keys,omitempty"`
	Sources      []ProvenanceEntry `json:"sources,omitempty"`
}

// Analysis is a classification that passed the validation engine.
type Analysis struct {
	Model             string                                    `json:"model"`
	StylePrimary      ClassificationItem[taxonomy.StylePrimary] `json:"style_primary"`
	Substyle          *ClassificationItem[taxonomy.Substyle]    `json:"substyle,omitempty"`
	Moods             []ClassificationItem[taxonomy.Mood]       `json:"moods"`
	UseCases          []ClassificationItem[taxonomy.UseCase]    `json:"use_cases"`
	HistoricalContext string                                    `json:"historical_context,omitempty"`
	Notes             string                                    `json:"notes,omitempty"`
}

// HasUseCase reports whether u is among the analysis use-cases.
func (a *Analysis) HasUseCase(u taxonomy.UseCase) bool {
	for _, item := range a.UseCases {
		if item.Value == u {
			return true
		}
	}
	return false
}

// HasEvidence reports whether any classification item cites key.
func (a *Analysis) HasEvidence(key string) bool {
	check := func(keys []string) bool {
		for _, k := range keys {
			if k == key {
				return true
			}
		}
		return false
	}
	if check(a.StylePrimary.EvidenceKeys) {
		return true
	}
	if a.Substyle != nil && check(a.Substyle.EvidenceKeys) {
		return true
	}
	for _, m := range a.Moods {
		if check(m.EvidenceKeys) {
			return true
		}
	}
	for _, u := range a.UseCases {
		if check(u.EvidenceKeys) {
			return true
		}
	}
	return false
}

// RawItem is an unvalidated classification item as decoded from model JSON.
// Confidence is a pointer so a missing value can be told apart from zero.
type RawItem struct {
	Value        string   `json:"value"`
	Confidence   *float64 `json:"confidence"`
	EvidenceKeys []string `json:"evidence_keys"`
}

// RawAnalysis is decoded model output before validation. It must not be used
// past the validation engine; use Analysis instead.
type RawAnalysis struct {
	StylePrimary      *RawItem   `json:"style_primary"`
	Substyle          *RawItem   `json:"substyle"`
	Moods             *[]RawItem `json:"moods"`
	UseCases          *[]RawItem `json:"use_cases"`
	HistoricalContext string     `json:"historical_context"`
	Notes             string     `json:"notes"`

	// Malformed maps a JSON field name to a decode problem for fields that
	// were present but not in the expected shape.
	Malformed map[string]string `json:"-"`
}
