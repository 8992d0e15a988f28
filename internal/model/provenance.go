package model

import (
	"time"

	"github.com/fontintel/fontintel/internal/taxonomy"
)

// Provenance methods recorded on ProvenanceEntry.Method.
const (
	MethodNameTable     = "name_table"
	MethodMetrics       = "metrics"
	MethodWebSearch     = "web_search"
	MethodCorroborated  = "corroborated"
	MethodContradiction = "contradiction"
	MethodURLHeuristic  = "url_heuristic"
	MethodModel         = "model"
)

// ProvenanceEntry records one source of a fact. Entries are append-only; a
// reconciled fact may carry both an extracted and a web entry.
type ProvenanceEntry struct {
	SourceType taxonomy.SourceType `json:"source_type"`
	SourceRef  string              `json:"source_ref,omitempty"`
	Method     string              `json:"method"`
	Confidence float64             `json:"confidence"`
	Timestamp  time.Time           `json:"timestamp"`
	Note       string              `json:"note,omitempty"`
}

// FactValue is a single reconciled fact with its audit trail.
type FactValue struct {
	Value      string            `json:"value"`
	Confidence float64           `json:"confidence"`
	Sources    []ProvenanceEntry `json:"sources"`
}

// Present reports whether the fact carries a value.
func (f *FactValue) Present() bool {
	return f != nil && f.Value != ""
}

// WebFacts holds facts sourced from web research about a font family.
type WebFacts struct {
	Foundry           string   `json:"foundry,omitempty"`
	Designer          string   `json:"designer,omitempty"`
	ReleaseYear       string   `json:"release_year,omitempty"`
	HistoricalContext string   `json:"historical_context,omitempty"`
	Confidence        float64  `json:"confidence"`
	Citations         []string `json:"citations,omitempty"`
}

// SourceInsight is best-effort enrichment derived from citation URLs.
type SourceInsight struct {
	CitationSourceType  string   `json:"citation_source_type,omitempty"`
	FoundryType         string   `json:"foundry_type,omitempty"`
	DistributionChannel string   `json:"distribution_channel,omitempty"`
	LicenseFlags        []string `json:"license_flags,omitempty"`
}

// MergedFacts is the reconciled view of extracted and web-sourced facts.
type MergedFacts struct {
	Foundry           *FactValue    `json:"foundry,omitempty"`
	Designer          *FactValue    `json:"designer,omitempty"`
	ReleaseYear       *FactValue    `json:"release_year,omitempty"`
	HistoricalContext *FactValue    `json:"historical_context,omitempty"`
	Insight           SourceInsight `json:"insight"`
	Contradictions    []string      `json:"contradictions,omitempty"`
}
