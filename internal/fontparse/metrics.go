package fontparse

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/fontintel/fontintel/internal/model"
)

// Cut points for the coarse width and x-height classes.
const (
	condensedBelow = 0.48
	extendedAbove  = 0.62
	lowXBelow      = 0.65
	highXAbove     = 0.72

	monospaceVariance = 0.01
	monospaceSamples  = 3
)

// DeriveVisualMetrics computes proportion metrics from parsed facts. It
// fails when the font lacks the vertical metrics every ratio depends on.
func DeriveVisualMetrics(facts *model.ParsedFontFacts) (*model.VisualMetrics, error) {
	if facts == nil {
		return nil, eris.New("fontparse: metrics: no facts")
	}
	m := facts.Metrics
	switch {
	case m.UnitsPerEm <= 0:
		return nil, eris.New("fontparse: metrics: units per em missing")
	case m.XHeight <= 0:
		return nil, eris.New("fontparse: metrics: x-height missing")
	case m.CapHeight <= 0:
		return nil, eris.New("fontparse: metrics: cap height missing")
	}

	upm := float64(m.UnitsPerEm)
	vm := &model.VisualMetrics{
		XHeightRatio:   round3(float64(m.XHeight) / upm),
		CapHeightRatio: round3(float64(m.CapHeight) / upm),
		XToCapRatio:    round3(float64(m.XHeight) / float64(m.CapHeight)),
		SlantDegrees:   round3(math.Abs(m.ItalicAngle)),
		AscenderRatio:  round3(float64(m.Ascent) / upm),
		DescenderRatio: round3(math.Abs(float64(m.Descent)) / upm),
	}

	mean, cv := advanceStats(m.Advances)
	width := mean
	if o, ok := m.Advances["o"]; ok && o > 0 {
		width = float64(o)
	}
	vm.WidthRatio = round3(width / upm)
	vm.AdvanceVariance = round3(cv)
	vm.LooksMonospaced = len(m.Advances) >= monospaceSamples && cv < monospaceVariance

	switch {
	case vm.WidthRatio == 0:
		vm.WidthClass = "unknown"
	case vm.WidthRatio < condensedBelow:
		vm.WidthClass = "condensed"
	case vm.WidthRatio > extendedAbove:
		vm.WidthClass = "extended"
	default:
		vm.WidthClass = "normal"
	}

	switch {
	case vm.XToCapRatio < lowXBelow:
		vm.XHeightClass = "low"
	case vm.XToCapRatio > highXAbove:
		vm.XHeightClass = "high"
	default:
		vm.XHeightClass = "medium"
	}
	return vm, nil
}

// advanceStats returns the mean advance and its coefficient of variation.
func advanceStats(adv map[string]int) (mean, cv float64) {
	if len(adv) == 0 {
		return 0, 0
	}
	var sum float64
	for _, a := range adv {
		sum += float64(a)
	}
	mean = sum / float64(len(adv))
	if mean == 0 {
		return 0, 0
	}
	var sq float64
	for _, a := range adv {
		d := float64(a) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq/float64(len(adv))) / mean
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
