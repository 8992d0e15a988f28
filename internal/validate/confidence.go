package validate

import (
	"github.com/rotisserie/eris"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// Thresholds are the three ascending cut points between confidence bands.
type Thresholds struct {
	Low    float64 `yaml:"low" mapstructure:"low"`
	Medium float64 `yaml:"medium" mapstructure:"medium"`
	High   float64 `yaml:"high" mapstructure:"high"`
}

// DefaultThresholds returns the default band cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.5, Medium: 0.7, High: 0.85}
}

// Validate checks that the thresholds are strictly ascending within [0,1].
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 1 {
		return eris.Errorf("confidence thresholds must lie within [0,1], got %v", t)
	}
	if !(t.Low < t.Medium && t.Medium < t.High) {
		return eris.Errorf("confidence thresholds must be ascending, got %v", t)
	}
	return nil
}

// Band maps c to its confidence band: c <= Low is low, c <= Medium medium,
// c <= High high and anything above very_high.
func Band(c float64, t Thresholds) taxonomy.ConfidenceBand {
	switch {
	case c <= t.Low:
		return taxonomy.BandLow
	case c <= t.Medium:
		return taxonomy.BandMedium
	case c <= t.High:
		return taxonomy.BandHigh
	default:
		return taxonomy.BandVeryHigh
	}
}

// CalculateConfidence is the arithmetic mean of every confidence present on
// the primary style, moods and use-cases. Unscored items are skipped; it
// returns 0 when nothing is scored.
func CalculateConfidence(a *model.Analysis) float64 {
	if a == nil {
		return 0
	}
	var sum float64
	var n int
	add := func(c float64, unscored bool) {
		if !unscored {
			sum += c
			n++
		}
	}

	add(a.StylePrimary.Confidence, a.StylePrimary.Unscored || a.StylePrimary.Value == "")
	for _, m := range a.Moods {
		add(m.Confidence, m.Unscored)
	}
	for _, u := range a.UseCases {
		add(u.Confidence, u.Unscored)
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
