package inference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

const classifyPreamble = `You are a type specialist classifying font families from structural facts and derived metrics. You never see the glyphs; reason only from the data given.

Respond with a single JSON object and nothing else:
{
  "style_primary": {"value": "<style>", "confidence": <0.0-1.0>, "evidence_keys": ["<metric or fact name>"]},
  "substyle": {"value": "<substyle of the chosen style>", "confidence": <0.0-1.0>, "evidence_keys": []},
  "moods": [{"value": "<mood>", "confidence": <0.0-1.0>, "evidence_keys": []}],
  "use_cases": [{"value": "<use case>", "confidence": <0.0-1.0>, "evidence_keys": []}],
  "historical_context": "<one or two sentences, optional>",
  "notes": "<optional caveats>"
}

Rules:
- Use only the values listed below. Omit substyle if none fits.
- evidence_keys name the facts or metrics that support each value (for example "x_height_ratio", "is_fixed_pitch", "classification_hints").
- Give 1-4 moods and 1-4 use cases, most confident first.
`

var classifySystem = buildClassifySystem()

func buildClassifySystem() string {
	var sb strings.Builder
	sb.WriteString(classifyPreamble)
	sb.WriteString("\nStyles and their substyles:\n")
	for _, p := range taxonomy.StylePrimaries {
		subs := taxonomy.SubstylesFor(p)
		names := make([]string, len(subs))
		for i, s := range subs {
			names[i] = string(s)
		}
		fmt.Fprintf(&sb, "- %s: %s\n", p, strings.Join(names, ", "))
	}
	sb.WriteString("\nMoods: ")
	moods := make([]string, len(taxonomy.Moods))
	for i, m := range taxonomy.Moods {
		moods[i] = string(m)
	}
	sb.WriteString(strings.Join(moods, ", "))
	sb.WriteString("\nUse cases: ")
	uses := make([]string, len(taxonomy.UseCases))
	for i, u := range taxonomy.UseCases {
		uses[i] = string(u)
	}
	sb.WriteString(strings.Join(uses, ", "))
	sb.WriteString("\n")
	return sb.String()
}

// ClassifySystem returns the static system prompt shared by every
// classification stage.
func ClassifySystem() string { return classifySystem }

const summarySystem = `You write concise catalogue descriptions of typefaces for designers. Write two to four plain sentences. Do not use markdown, lists or quotation marks. Do not invent facts that are not given.`

// SummarySystem returns the system prompt for description generation.
func SummarySystem() string { return summarySystem }

// VisualPrompt builds the visual classification prompt from structural facts
// and, when available, derived metrics.
func VisualPrompt(facts *model.ParsedFontFacts, metrics *model.VisualMetrics) string {
	var sb strings.Builder
	sb.WriteString("Classify this font family.\n\n")
	writeFacts(&sb, facts)
	if metrics != nil {
		sb.WriteString("\nDerived metrics:\n")
		writeJSON(&sb, metrics)
	} else {
		sb.WriteString("\nDerived metrics: unavailable\n")
	}
	return sb.String()
}

// EnrichedPrompt builds the enriched classification prompt. It adds reconciled
// provenance facts and the visual classification, if any, as a prior.
func EnrichedPrompt(facts *model.ParsedFontFacts, metrics *model.VisualMetrics, merged *model.MergedFacts, visual *model.Analysis) string {
	var sb strings.Builder
	sb.WriteString(VisualPrompt(facts, metrics))
	if merged != nil {
		sb.WriteString("\nProvenance:\n")
		writeFact(&sb, "Foundry", merged.Foundry)
		writeFact(&sb, "Designer", merged.Designer)
		writeFact(&sb, "Release year", merged.ReleaseYear)
		writeFact(&sb, "Historical context", merged.HistoricalContext)
		for _, c := range merged.Contradictions {
			fmt.Fprintf(&sb, "- Unresolved: %s\n", c)
		}
	}
	if visual != nil {
		sb.WriteString("\nA previous pass from metrics alone produced:\n")
		writeJSON(&sb, visual)
		sb.WriteString("Revise it where the provenance changes the picture; keep it otherwise.\n")
	}
	return sb.String()
}

// SummaryPrompt builds the description prompt from the final analysis.
func SummaryPrompt(facts *model.ParsedFontFacts, analysis *model.Analysis, merged *model.MergedFacts) string {
	var sb strings.Builder
	sb.WriteString("Describe this typeface.\n\n")
	writeFacts(&sb, facts)
	if merged != nil {
		writeFact(&sb, "Foundry", merged.Foundry)
		writeFact(&sb, "Designer", merged.Designer)
		writeFact(&sb, "Release year", merged.ReleaseYear)
		writeFact(&sb, "Historical context", merged.HistoricalContext)
	}
	if analysis != nil {
		fmt.Fprintf(&sb, "Style: %s", analysis.StylePrimary.Value)
		if analysis.Substyle != nil {
			fmt.Fprintf(&sb, " (%s)", analysis.Substyle.Value)
		}
		sb.WriteString("\n")
		if len(analysis.Moods) > 0 {
			names := make([]string, len(analysis.Moods))
			for i, m := range analysis.Moods {
				names[i] = string(m.Value)
			}
			fmt.Fprintf(&sb, "Moods: %s\n", strings.Join(names, ", "))
		}
		if len(analysis.UseCases) > 0 {
			names := make([]string, len(analysis.UseCases))
			for i, u := range analysis.UseCases {
				names[i] = string(u.Value)
			}
			fmt.Fprintf(&sb, "Use cases: %s\n", strings.Join(names, ", "))
		}
	}
	return sb.String()
}

func writeFacts(sb *strings.Builder, f *model.ParsedFontFacts) {
	if f == nil {
		return
	}
	fmt.Fprintf(sb, "Family: %s\n", f.FamilyName)
	if f.SubfamilyName != "" {
		fmt.Fprintf(sb, "Subfamily: %s\n", f.SubfamilyName)
	}
	if f.Weight > 0 {
		fmt.Fprintf(sb, "Weight: %d\n", f.Weight)
	}
	fmt.Fprintf(sb, "Italic: %t\nFixed pitch: %t\n", f.IsItalic, f.IsFixedPitch)
	if len(f.ClassificationHints) > 0 {
		fmt.Fprintf(sb, "Classification hints: %s\n", strings.Join(f.ClassificationHints, ", "))
	}
	for _, ax := range f.VariableAxes {
		fmt.Fprintf(sb, "Variable axis: %s %g..%g (default %g)\n", ax.Tag, ax.Min, ax.Max, ax.Default)
	}
	if f.Foundry != "" {
		fmt.Fprintf(sb, "Manufacturer (name table): %s\n", f.Foundry)
	}
	if f.Designer != "" {
		fmt.Fprintf(sb, "Designer (name table): %s\n", f.Designer)
	}
	if f.Description != "" {
		fmt.Fprintf(sb, "Embedded description: %s\n", truncate(f.Description, 500))
	}
}

func writeFact(sb *strings.Builder, label string, fv *model.FactValue) {
	if !fv.Present() {
		return
	}
	fmt.Fprintf(sb, "- %s: %s (confidence %.2f)\n", label, fv.Value, fv.Confidence)
}

func writeJSON(sb *strings.Builder, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	sb.Write(b)
	sb.WriteString("\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
