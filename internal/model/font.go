package model

// VariableAxis describes one axis of a variable font.
type VariableAxis struct {
	Tag     string  `json:"tag"`
	Min     float64 `json:"min"`
	Default float64 `json:"default"`
	Max     float64 `json:"max"`
}

// RawMetrics are metric values read from the font tables, in font units.
type RawMetrics struct {
	UnitsPerEm  int     `json:"units_per_em"`
	Ascent      int     `json:"ascent"`
	Descent     int     `json:"descent"`
	XHeight     int     `json:"x_height"`
	CapHeight   int     `json:"cap_height"`
	ItalicAngle float64 `json:"italic_angle"`
	GlyphCount  int     `json:"glyph_count"`
	// Advances maps sample characters ("o", "n", "i", "m", "H") to their
	// horizontal advance in font units.
	Advances map[string]int `json:"advances,omitempty"`
}

// ParsedFontFacts is the immutable output of the structural parser. Stages
// read it and copy values out; nothing mutates it after parsing.
type ParsedFontFacts struct {
	FamilyName          string         `json:"family_name"`
	SubfamilyName       string         `json:"subfamily_name,omitempty"`
	FullName            string         `json:"full_name,omitempty"`
	PostScriptName      string         `json:"postscript_name,omitempty"`
	Version             string         `json:"version,omitempty"`
	Weight              int            `json:"weight,omitempty"`
	IsItalic            bool           `json:"is_italic"`
	IsFixedPitch        bool           `json:"is_fixed_pitch"`
	ClassificationHints []string       `json:"classification_hints,omitempty"`
	VariableAxes        []VariableAxis `json:"variable_axes,omitempty"`
	Foundry             string         `json:"foundry,omitempty"`
	Designer            string         `json:"designer,omitempty"`
	VendorURL           string         `json:"vendor_url,omitempty"`
	DesignerURL         string         `json:"designer_url,omitempty"`
	License             string         `json:"license,omitempty"`
	LicenseURL          string         `json:"license_url,omitempty"`
	Copyright           string         `json:"copyright,omitempty"`
	Description         string         `json:"description,omitempty"`
	Format              string         `json:"format,omitempty"`
	Metrics             RawMetrics     `json:"metrics"`
}

// IsVariable reports whether the font declares any variation axes.
func (f *ParsedFontFacts) IsVariable() bool {
	return len(f.VariableAxes) > 0
}

// VisualMetrics are proportions derived from RawMetrics. They are used as
// evidence keys in classification prompts.
type VisualMetrics struct {
	XHeightRatio    float64 `json:"x_height_ratio"`
	CapHeightRatio  float64 `json:"cap_height_ratio"`
	XToCapRatio     float64 `json:"x_to_cap_ratio"`
	WidthRatio      float64 `json:"width_ratio"`
	AdvanceVariance float64 `json:"advance_variance"`
	SlantDegrees    float64 `json:"slant_degrees"`
	AscenderRatio   float64 `json:"ascender_ratio"`
	DescenderRatio  float64 `json:"descender_ratio"`
	LooksMonospaced bool    `json:"looks_monospaced"`
	WidthClass      string  `json:"width_class"`
	XHeightClass    string  `json:"x_height_class"`
}
