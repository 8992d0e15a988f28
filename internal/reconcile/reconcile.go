// Package reconcile merges facts extracted from the font binary with facts
// sourced from web research.
package reconcile

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// Options tunes how conflicting facts are scored.
type Options struct {
	// MatchBonus is added to the web confidence when both sides agree.
	MatchBonus float64
	// MaxConfidence caps a corroborated fact.
	MaxConfidence float64
	// ContradictionFactor scales web confidence when the sides disagree.
	ContradictionFactor float64
	// ExtractedConfidence is the native confidence of name-table facts.
	ExtractedConfidence float64
	// DefaultWebConfidence is used when the web source reports none.
	DefaultWebConfidence float64
}

// DefaultOptions returns the standard scoring options.
func DefaultOptions() Options {
	return Options{
		MatchBonus:           0.1,
		MaxConfidence:        0.95,
		ContradictionFactor:  0.5,
		ExtractedConfidence:  0.9,
		DefaultWebConfidence: 0.6,
	}
}

// Reconciler merges extracted and web-sourced facts.
type Reconciler struct {
	opts Options
	fold cases.Caser
	now  func() time.Time
}

// New creates a Reconciler.
func New(opts Options) *Reconciler {
	return &Reconciler{opts: opts, fold: cases.Fold(), now: time.Now}
}

// Reconcile merges with DefaultOptions.
func Reconcile(extracted *model.ParsedFontFacts, web *model.WebFacts) *model.MergedFacts {
	return New(DefaultOptions()).Reconcile(extracted, web)
}

type side struct {
	value      string
	confidence float64
	ref        string
	method     string
}

// Reconcile returns the merged view of extracted and web facts. Either input
// may be nil. Fields absent on both sides stay nil.
func (r *Reconciler) Reconcile(extracted *model.ParsedFontFacts, web *model.WebFacts) *model.MergedFacts {
	if extracted == nil {
		extracted = &model.ParsedFontFacts{}
	}
	if web == nil {
		web = &model.WebFacts{}
	}

	webConf := web.Confidence
	if webConf <= 0 {
		webConf = r.opts.DefaultWebConfidence
	}
	webRef := ""
	if len(web.Citations) > 0 {
		webRef = web.Citations[0]
	}
	ext := func(v string) side {
		return side{value: v, confidence: r.opts.ExtractedConfidence, ref: "name_table", method: model.MethodNameTable}
	}
	wb := func(v string) side {
		return side{value: v, confidence: webConf, ref: webRef, method: model.MethodWebSearch}
	}

	out := &model.MergedFacts{}
	out.Foundry = r.merge("foundry", ext(extracted.Foundry), wb(web.Foundry), &out.Contradictions)
	out.Designer = r.merge("designer", ext(extracted.Designer), wb(web.Designer), &out.Contradictions)
	out.ReleaseYear = r.merge("release_year", ext(CopyrightYear(extracted.Copyright)), wb(web.ReleaseYear), &out.Contradictions)
	out.HistoricalContext = r.merge("historical_context", side{}, wb(web.HistoricalContext), &out.Contradictions)

	foundry := ""
	if out.Foundry.Present() {
		foundry = out.Foundry.Value
	}
	out.Insight = DeriveInsight(web.Citations, extracted.License+" "+extracted.LicenseURL, foundry)
	return out
}

func (r *Reconciler) merge(field string, extracted, web side, contradictions *[]string) *model.FactValue {
	extracted.value = strings.TrimSpace(extracted.value)
	web.value = strings.TrimSpace(web.value)
	now := r.now().UTC()

	entry := func(s side, st taxonomy.SourceType, method string, conf float64, note string) model.ProvenanceEntry {
		return model.ProvenanceEntry{
			SourceType: st,
			SourceRef:  s.ref,
			Method:     method,
			Confidence: round3(conf),
			Timestamp:  now,
			Note:       note,
		}
	}

	switch {
	case extracted.value == "" && web.value == "":
		return nil

	case web.value == "":
		return &model.FactValue{
			Value:      extracted.value,
			Confidence: round3(extracted.confidence),
			Sources:    []model.ProvenanceEntry{entry(extracted, taxonomy.SourceExtracted, extracted.method, extracted.confidence, "")},
		}

	case extracted.value == "":
		return &model.FactValue{
			Value:      web.value,
			Confidence: round3(web.confidence),
			Sources:    []model.ProvenanceEntry{entry(web, taxonomy.SourceWeb, web.method, web.confidence, "")},
		}

	case r.same(extracted.value, web.value):
		conf := math.Min(r.opts.MaxConfidence, web.confidence+r.opts.MatchBonus)
		return &model.FactValue{
			Value:      web.value,
			Confidence: round3(conf),
			Sources: []model.ProvenanceEntry{
				entry(extracted, taxonomy.SourceExtracted, extracted.method, extracted.confidence, ""),
				entry(web, taxonomy.SourceWeb, model.MethodCorroborated, conf, "matches extracted value"),
			},
		}

	default:
		lowered := web.confidence * r.opts.ContradictionFactor
		*contradictions = append(*contradictions,
			fmt.Sprintf("%s: extracted %q, web %q", field, extracted.value, web.value))
		return &model.FactValue{
			Value:      extracted.value,
			Confidence: round3(extracted.confidence),
			Sources: []model.ProvenanceEntry{
				entry(extracted, taxonomy.SourceExtracted, extracted.method, extracted.confidence, ""),
				entry(web, taxonomy.SourceWeb, model.MethodContradiction, lowered,
					fmt.Sprintf("web reported %q; extracted value kept", web.value)),
			},
		}
	}
}

// same compares two values case-insensitively after Unicode normalization and
// whitespace collapsing.
func (r *Reconciler) same(a, b string) bool {
	return r.key(a) == r.key(b)
}

func (r *Reconciler) key(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return r.fold.String(s)
}

var yearPattern = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// CopyrightYear returns the earliest four-digit year in a copyright notice,
// or "" if there is none.
func CopyrightYear(copyright string) string {
	earliest := ""
	for _, y := range yearPattern.FindAllString(copyright, -1) {
		if earliest == "" || y < earliest {
			earliest = y
		}
	}
	return earliest
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
