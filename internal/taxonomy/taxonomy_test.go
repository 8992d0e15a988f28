package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStylePrimary_Valid(t *testing.T) {
	for _, p := range StylePrimaries {
		assert.True(t, p.Valid(), p)
		assert.NotEmpty(t, SubstylesFor(p), p)
	}
	assert.False(t, StylePrimary("gothic").Valid())
	assert.False(t, StylePrimary("").Valid())
}

func TestSubstyleBelongsTo(t *testing.T) {
	assert.True(t, SubstyleBelongsTo(SubstyleDidone, StyleSerif))
	assert.False(t, SubstyleBelongsTo(SubstyleDidone, StyleSansSerif))
	assert.False(t, SubstyleBelongsTo(Substyle("nope"), StyleSerif))

	p, ok := PrimaryOf(SubstyleGeometric)
	assert.True(t, ok)
	assert.Equal(t, StyleSansSerif, p)
}

func TestSubstylesAreUnique(t *testing.T) {
	seen := map[Substyle]StylePrimary{}
	for _, p := range StylePrimaries {
		for _, s := range SubstylesFor(p) {
			prev, dup := seen[s]
			assert.False(t, dup, "substyle %s listed under %s and %s", s, prev, p)
			seen[s] = p
		}
	}
}

func TestMoodAndUseCase_Valid(t *testing.T) {
	assert.True(t, MoodElegant.Valid())
	assert.False(t, Mood("sad").Valid())
	assert.True(t, UseUI.Valid())
	assert.False(t, UseCase("tattoos").Valid())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "sans_serif", Normalize(" Sans-Serif "))
	assert.Equal(t, "body_text", Normalize("Body Text"))
	assert.Equal(t, "serif", Normalize("serif"))
}

func TestUploadState_Terminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateError.Terminal())
	assert.True(t, StateQuarantined.Terminal())
	assert.False(t, StateParsing.Terminal())
	assert.False(t, StateAIRetrying.Terminal())
	assert.True(t, StateEnriched.Valid())
	assert.False(t, UploadState("done").Valid())
}

func TestJobOutcome_Valid(t *testing.T) {
	assert.True(t, OutcomeSkippedDuplicate.Valid())
	assert.False(t, JobOutcome("ok").Valid())
}

func TestEnumerationListsAreValid(t *testing.T) {
	for _, m := range Moods {
		assert.True(t, m.Valid(), m)
	}
	for _, u := range UseCases {
		assert.True(t, u.Valid(), u)
	}
	assert.Len(t, Moods, len(moods))
	assert.Len(t, UseCases, len(useCases))
}
