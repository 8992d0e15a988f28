// Package taxonomy defines the frozen enumerations shared by every pipeline
// stage: style classes, substyles, moods, use-cases, warning tags, ingest
// states and confidence bands. Each enumeration is a closed string type with
// a pure validation function; serialization is left to callers.
package taxonomy

import "strings"

// StylePrimary is the top-level style classification of a font family.
type StylePrimary string

const (
	StyleSerif       StylePrimary = "serif"
	StyleSansSerif   StylePrimary = "sans_serif"
	StyleSlabSerif   StylePrimary = "slab_serif"
	StyleMonospace   StylePrimary = "monospace"
	StyleScript      StylePrimary = "script"
	StyleHandwritten StylePrimary = "handwritten"
	StyleDisplay     StylePrimary = "display"
	StyleBlackletter StylePrimary = "blackletter"
	StyleDecorative  StylePrimary = "decorative"
)

// StylePrimaries lists every StylePrimary in declaration order.
var StylePrimaries = []StylePrimary{
	StyleSerif, StyleSansSerif, StyleSlabSerif, StyleMonospace, StyleScript,
	StyleHandwritten, StyleDisplay, StyleBlackletter, StyleDecorative,
}

// Valid reports whether s is a member of the style taxonomy.
func (s StylePrimary) Valid() bool {
	_, ok := substylesByPrimary[s]
	return ok
}

// Substyle refines a StylePrimary.
type Substyle string

const (
	SubstyleOldstyle       Substyle = "oldstyle"
	SubstyleTransitional   Substyle = "transitional"
	SubstyleDidone         Substyle = "didone"
	SubstyleGlyphic        Substyle = "glyphic"
	SubstyleClarendonSerif Substyle = "clarendon_serif"

	SubstyleGrotesque    Substyle = "grotesque"
	SubstyleNeoGrotesque Substyle = "neo_grotesque"
	SubstyleHumanist     Substyle = "humanist"
	SubstyleGeometric    Substyle = "geometric"
	SubstyleSquare       Substyle = "square"

	SubstyleEgyptian   Substyle = "egyptian"
	SubstyleClarendon  Substyle = "clarendon"
	SubstyleTypewriter Substyle = "typewriter"

	SubstyleCoding         Substyle = "coding"
	SubstyleTypewriterMono Substyle = "typewriter_mono"
	SubstyleTerminal       Substyle = "terminal"

	SubstyleFormal       Substyle = "formal"
	SubstyleCasual       Substyle = "casual"
	SubstyleCalligraphic Substyle = "calligraphic"
	SubstyleBrush        Substyle = "brush"

	SubstyleMarker Substyle = "marker"
	SubstylePen    Substyle = "pen"
	SubstylePencil Substyle = "pencil"

	SubstyleStencil    Substyle = "stencil"
	SubstyleInline     Substyle = "inline"
	SubstyleOutline    Substyle = "outline"
	SubstyleOrnamental Substyle = "ornamental"

	SubstyleTextura     Substyle = "textura"
	SubstyleFraktur     Substyle = "fraktur"
	SubstyleRotunda     Substyle = "rotunda"
	SubstyleSchwabacher Substyle = "schwabacher"

	SubstyleNovelty     Substyle = "novelty"
	SubstylePsychedelic Substyle = "psychedelic"
	SubstyleArtDeco     Substyle = "art_deco"
	SubstyleWestern     Substyle = "western"
)

var substylesByPrimary = map[StylePrimary][]Substyle{
	StyleSerif:       {SubstyleOldstyle, SubstyleTransitional, SubstyleDidone, SubstyleGlyphic, SubstyleClarendonSerif},
	StyleSansSerif:   {SubstyleGrotesque, SubstyleNeoGrotesque, SubstyleHumanist, SubstyleGeometric, SubstyleSquare},
	StyleSlabSerif:   {SubstyleEgyptian, SubstyleClarendon, SubstyleTypewriter},
	StyleMonospace:   {SubstyleCoding, SubstyleTypewriterMono, SubstyleTerminal},
	StyleScript:      {SubstyleFormal, SubstyleCasual, SubstyleCalligraphic, SubstyleBrush},
	StyleHandwritten: {SubstyleMarker, SubstylePen, SubstylePencil},
	StyleDisplay:     {SubstyleStencil, SubstyleInline, SubstyleOutline, SubstyleOrnamental},
	StyleBlackletter: {SubstyleTextura, SubstyleFraktur, SubstyleRotunda, SubstyleSchwabacher},
	StyleDecorative:  {SubstyleNovelty, SubstylePsychedelic, SubstyleArtDeco, SubstyleWestern},
}

// primaryBySubstyle is the inverse of substylesByPrimary.
var primaryBySubstyle = func() map[Substyle]StylePrimary {
	m := make(map[Substyle]StylePrimary)
	for p, subs := range substylesByPrimary {
		for _, s := range subs {
			m[s] = p
		}
	}
	return m
}()

// Valid reports whether s is a substyle of any primary style.
func (s Substyle) Valid() bool {
	_, ok := primaryBySubstyle[s]
	return ok
}

// SubstylesFor returns the substyles allowed under p. The returned slice
// must not be modified.
func SubstylesFor(p StylePrimary) []Substyle {
	return substylesByPrimary[p]
}

// SubstyleBelongsTo reports whether s is allowed under p.
func SubstyleBelongsTo(s Substyle, p StylePrimary) bool {
	return primaryBySubstyle[s] == p && p != ""
}

// PrimaryOf returns the primary style that owns s, if any.
func PrimaryOf(s Substyle) (StylePrimary, bool) {
	p, ok := primaryBySubstyle[s]
	return p, ok
}

// Mood is an emotional or aesthetic quality attributed to a typeface.
type Mood string

const (
	MoodElegant      Mood = "elegant"
	MoodPlayful      Mood = "playful"
	MoodModern       Mood = "modern"
	MoodClassic      Mood = "classic"
	MoodFriendly     Mood = "friendly"
	MoodProfessional Mood = "professional"
	MoodBold         Mood = "bold"
	MoodMinimal      Mood = "minimal"
	MoodRetro        Mood = "retro"
	MoodFuturistic   Mood = "futuristic"
	MoodWarm         Mood = "warm"
	MoodTechnical    Mood = "technical"
	MoodLuxurious    Mood = "luxurious"
	MoodRugged       Mood = "rugged"
	MoodWhimsical    Mood = "whimsical"
	MoodSerious      Mood = "serious"
)

// Moods lists every Mood in declaration order.
var Moods = []Mood{
	MoodElegant, MoodPlayful, MoodModern, MoodClassic, MoodFriendly, MoodProfessional,
	MoodBold, MoodMinimal, MoodRetro, MoodFuturistic, MoodWarm, MoodTechnical,
	MoodLuxurious, MoodRugged, MoodWhimsical, MoodSerious,
}

var moods = map[Mood]struct{}{
	MoodElegant: {}, MoodPlayful: {}, MoodModern: {}, MoodClassic: {},
	MoodFriendly: {}, MoodProfessional: {}, MoodBold: {}, MoodMinimal: {},
	MoodRetro: {}, MoodFuturistic: {}, MoodWarm: {}, MoodTechnical: {},
	MoodLuxurious: {}, MoodRugged: {}, MoodWhimsical: {}, MoodSerious: {},
}

// Valid reports whether m is a member of the mood taxonomy.
func (m Mood) Valid() bool {
	_, ok := moods[m]
	return ok
}

// UseCase is an application a typeface is suited to.
type UseCase string

const (
	UseBodyText    UseCase = "body_text"
	UseHeadlines   UseCase = "headlines"
	UseUI          UseCase = "ui"
	UseBranding    UseCase = "branding"
	UseEditorial   UseCase = "editorial"
	UseSignage     UseCase = "signage"
	UsePackaging   UseCase = "packaging"
	UseCode        UseCase = "code"
	UseChildren    UseCase = "children"
	UseInvitations UseCase = "invitations"
	UseLogos       UseCase = "logos"
	UsePosters     UseCase = "posters"
)

// UseCases lists every UseCase in declaration order.
var UseCases = []UseCase{
	UseBodyText, UseHeadlines, UseUI, UseBranding, UseEditorial, UseSignage,
	UsePackaging, UseCode, UseChildren, UseInvitations, UseLogos, UsePosters,
}

var useCases = map[UseCase]struct{}{
	UseBodyText: {}, UseHeadlines: {}, UseUI: {}, UseBranding: {},
	UseEditorial: {}, UseSignage: {}, UsePackaging: {}, UseCode: {},
	UseChildren: {}, UseInvitations: {}, UseLogos: {}, UsePosters: {},
}

// Valid reports whether u is a member of the use-case taxonomy.
func (u UseCase) Valid() bool {
	_, ok := useCases[u]
	return ok
}

// WarningTag identifies a non-blocking observation raised during a run.
type WarningTag string

const (
	WarnVisualMetricsUnavailable  WarningTag = "visual_metrics_unavailable"
	WarnVisualAnalysisUnavailable WarningTag = "visual_analysis_unavailable"
	WarnWebEnrichmentFailed       WarningTag = "web_enrichment_failed"
	WarnEnrichedFallbackUsed      WarningTag = "enriched_fallback_used"
	WarnEnrichedUnavailable       WarningTag = "enriched_analysis_unavailable"
	WarnSummaryUnavailable        WarningTag = "summary_unavailable"
	WarnAdmissionDenied           WarningTag = "admission_denied"
	WarnSecondaryOutOfTaxonomy    WarningTag = "secondary_out_of_taxonomy"
	WarnSubstyleMismatch          WarningTag = "substyle_primary_mismatch"
	WarnMissingEvidence           WarningTag = "missing_evidence"
	WarnConfidenceOutOfRange      WarningTag = "confidence_out_of_range"
	WarnUISerifMismatch           WarningTag = "ui_serif_without_sans_evidence"
	WarnMonospaceNotFixedPitch    WarningTag = "monospace_not_fixed_pitch"
	WarnCodeWithoutMonospace      WarningTag = "code_use_without_monospace"
	WarnBodyTextDisplayFace       WarningTag = "body_text_display_face"
	WarnPersistenceFailed         WarningTag = "persistence_failed"
	WarnFactContradiction         WarningTag = "fact_contradiction"
)

// ConfidenceBand is a coarse bucket derived from a numeric confidence.
type ConfidenceBand string

const (
	BandLow      ConfidenceBand = "low"
	BandMedium   ConfidenceBand = "medium"
	BandHigh     ConfidenceBand = "high"
	BandVeryHigh ConfidenceBand = "very_high"
)

// SourceType identifies where a fact came from.
type SourceType string

const (
	SourceExtracted SourceType = "extracted"
	SourceWeb       SourceType = "web"
	SourceComputed  SourceType = "computed"
	SourceInferred  SourceType = "inferred"
)

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	switch s {
	case SourceExtracted, SourceWeb, SourceComputed, SourceInferred:
		return true
	}
	return false
}

// Normalize lowercases a raw enum token and maps spaces and hyphens to
// underscores so "Sans-Serif" and "sans serif" both become "sans_serif".
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}
