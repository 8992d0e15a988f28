// Package validate checks model output against the taxonomy, applies sanity
// heuristics and aggregates confidence.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// Report is the outcome of validating one analysis. Errors block the result
// from being stored as authoritative; warnings are informational. Fatal marks
// failures that a retry with another model cannot fix.
type Report struct {
	IsValid  bool            `json:"is_valid"`
	Errors   []string        `json:"errors"`
	Warnings []model.Warning `json:"warnings"`
	Fatal    bool            `json:"fatal,omitempty"`
}

func (r *Report) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warn(tag taxonomy.WarningTag, format string, args ...any) {
	r.Warnings = append(r.Warnings, model.Warning{Tag: tag, Stage: "validation", Message: fmt.Sprintf(format, args...)})
}

// Parse decodes and validates model output. truncated reports that the model
// stopped at its token limit; an invalid truncated output is fatal.
func Parse(text []byte, truncated bool) (*model.RawAnalysis, Report) {
	raw, err := Decode(text)
	if err != nil {
		rep := Report{Fatal: truncated}
		if truncated {
			rep.fail("output truncated at token limit: %v", err)
		} else {
			rep.fail("output is not a JSON object: %v", err)
		}
		return nil, rep
	}
	rep := Validate(raw)
	if truncated && !rep.IsValid {
		rep.Fatal = true
	}
	return raw, rep
}

// Validate checks raw against the taxonomy.
func Validate(raw *model.RawAnalysis) Report {
	var rep Report
	if raw == nil {
		rep.fail("analysis is empty")
		return rep
	}

	primary, primaryOK := validatePrimary(raw, &rep)
	validateSubstyle(raw, primary, primaryOK, &rep)
	validateList(FieldMoods, raw.Moods, raw.Malformed, func(v string) bool { return taxonomy.Mood(v).Valid() }, &rep)
	validateList(FieldUseCases, raw.UseCases, raw.Malformed, func(v string) bool { return taxonomy.UseCase(v).Valid() }, &rep)

	for _, field := range []string{FieldHistoricalContext, FieldNotes} {
		if msg, ok := raw.Malformed[field]; ok {
			rep.warn(taxonomy.WarnSecondaryOutOfTaxonomy, "%s: %s", field, msg)
		}
	}

	rep.IsValid = len(rep.Errors) == 0
	return rep
}

func validatePrimary(raw *model.RawAnalysis, rep *Report) (taxonomy.StylePrimary, bool) {
	if msg, ok := raw.Malformed[FieldStylePrimary]; ok {
		rep.fail("%s: %s", FieldStylePrimary, msg)
		return "", false
	}
	if raw.StylePrimary == nil {
		rep.fail("%s is required", FieldStylePrimary)
		return "", false
	}
	p := taxonomy.StylePrimary(taxonomy.Normalize(raw.StylePrimary.Value))
	if !p.Valid() {
		rep.fail("%s %q is not a known style", FieldStylePrimary, raw.StylePrimary.Value)
		return "", false
	}
	checkItem(FieldStylePrimary, raw.StylePrimary, rep)
	return p, true
}

func validateSubstyle(raw *model.RawAnalysis, primary taxonomy.StylePrimary, primaryOK bool, rep *Report) {
	if msg, ok := raw.Malformed[FieldSubstyle]; ok {
		rep.warn(taxonomy.WarnSecondaryOutOfTaxonomy, "%s: %s", FieldSubstyle, msg)
		return
	}
	if raw.Substyle == nil {
		return
	}
	s := taxonomy.Substyle(taxonomy.Normalize(raw.Substyle.Value))
	owner, known := taxonomy.PrimaryOf(s)
	if !known {
		rep.warn(taxonomy.WarnSecondaryOutOfTaxonomy, "%s %q is not a known substyle", FieldSubstyle, raw.Substyle.Value)
		return
	}
	if primaryOK && owner != primary {
		rep.warn(taxonomy.WarnSubstyleMismatch, "%s %q belongs to %s, not %s", FieldSubstyle, s, owner, primary)
	}
	checkItem(FieldSubstyle, raw.Substyle, rep)
}

func validateList(field string, items *[]model.RawItem, malformed map[string]string, valid func(string) bool, rep *Report) {
	if msg, ok := malformed[field]; ok {
		rep.fail("%s: %s", field, msg)
		return
	}
	if items == nil {
		rep.fail("%s is required", field)
		return
	}

	for _, key := range malformedElements(field, malformed) {
		rep.warn(taxonomy.WarnSecondaryOutOfTaxonomy, "%s: %s", key, malformed[key])
	}

	var unknown []string
	missingEvidence := 0
	for i := range *items {
		item := &(*items)[i]
		if !valid(taxonomy.Normalize(item.Value)) {
			unknown = append(unknown, item.Value)
			continue
		}
		if item.EvidenceKeys == nil {
			missingEvidence++
		}
		checkConfidence(field, item, rep)
	}
	if len(unknown) > 0 {
		rep.warn(taxonomy.WarnSecondaryOutOfTaxonomy, "%s: unknown values %s", field, strings.Join(unknown, ", "))
	}
	if missingEvidence > 0 {
		rep.warn(taxonomy.WarnMissingEvidence, "%s: %d item(s) without evidence_keys", field, missingEvidence)
	}
}

func checkItem(field string, item *model.RawItem, rep *Report) {
	if item.EvidenceKeys == nil {
		rep.warn(taxonomy.WarnMissingEvidence, "%s has no evidence_keys", field)
	}
	checkConfidence(field, item, rep)
}

func checkConfidence(field string, item *model.RawItem, rep *Report) {
	if item.Confidence == nil {
		return
	}
	if c := *item.Confidence; c < 0 || c > 1 {
		rep.warn(taxonomy.WarnConfidenceOutOfRange, "%s %q confidence %.3f outside [0,1]", field, item.Value, c)
	}
}

func malformedElements(field string, malformed map[string]string) []string {
	var keys []string
	prefix := field + "["
	for k := range malformed {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Normalize converts a validated RawAnalysis into typed values. Out-of-taxonomy
// secondary entries are dropped and confidences clamped to [0,1]. It returns
// nil if the primary style is missing or unknown.
func Normalize(raw *model.RawAnalysis, modelName string) *model.Analysis {
	if raw == nil || raw.StylePrimary == nil {
		return nil
	}
	primary := taxonomy.StylePrimary(taxonomy.Normalize(raw.StylePrimary.Value))
	if !primary.Valid() {
		return nil
	}

	a := &model.Analysis{
		Model:             modelName,
		StylePrimary:      toItem(primary, raw.StylePrimary),
		HistoricalContext: strings.TrimSpace(raw.HistoricalContext),
		Notes:             strings.TrimSpace(raw.Notes),
		Moods:             []model.ClassificationItem[taxonomy.Mood]{},
		UseCases:          []model.ClassificationItem[taxonomy.UseCase]{},
	}
	if raw.Substyle != nil {
		if s := taxonomy.Substyle(taxonomy.Normalize(raw.Substyle.Value)); s.Valid() {
			item := toItem(s, raw.Substyle)
			a.Substyle = &item
		}
	}
	if raw.Moods != nil {
		seen := map[taxonomy.Mood]bool{}
		for i := range *raw.Moods {
			m := taxonomy.Mood(taxonomy.Normalize((*raw.Moods)[i].Value))
			if m.Valid() && !seen[m] {
				seen[m] = true
				a.Moods = append(a.Moods, toItem(m, &(*raw.Moods)[i]))
			}
		}
	}
	if raw.UseCases != nil {
		seen := map[taxonomy.UseCase]bool{}
		for i := range *raw.UseCases {
			u := taxonomy.UseCase(taxonomy.Normalize((*raw.UseCases)[i].Value))
			if u.Valid() && !seen[u] {
				seen[u] = true
				a.UseCases = append(a.UseCases, toItem(u, &(*raw.UseCases)[i]))
			}
		}
	}
	return a
}

func toItem[T ~string](v T, raw *model.RawItem) model.ClassificationItem[T] {
	item := model.ClassificationItem[T]{Value: v, EvidenceKeys: raw.EvidenceKeys}
	if raw.Confidence == nil {
		item.Unscored = true
		return item
	}
	item.Confidence = clamp01(*raw.Confidence)
	return item
}

func clamp01(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
