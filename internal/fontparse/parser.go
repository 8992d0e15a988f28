// Package fontparse turns font binaries into structural facts.
package fontparse

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/fontintel/fontintel/internal/model"
)

// ErrParse is returned for bytes that are not a readable font.
var ErrParse = eris.New("fontparse: unparseable font")

// Parser extracts structural facts from font bytes.
type Parser interface {
	Parse(data []byte, filename string) (*model.ParsedFontFacts, error)
}

// sampleRunes are measured for advance-width metrics.
var sampleRunes = []rune{'o', 'n', 'i', 'm', 'H'}

// SFNTParser reads TrueType and CFF-flavoured OpenType fonts.
type SFNTParser struct{}

// NewSFNTParser returns the default parser.
func NewSFNTParser() *SFNTParser { return &SFNTParser{} }

// Parse implements Parser.
func (p *SFNTParser) Parse(data []byte, filename string) (*model.ParsedFontFacts, error) {
	format, err := sniffFormat(data)
	if err != nil {
		return nil, eris.Wrapf(ErrParse, "fontparse: %s: %v", filename, err)
	}

	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, eris.Wrapf(ErrParse, "fontparse: %s: %v", filename, err)
	}

	var buf sfnt.Buffer
	name := func(id sfnt.NameID) string {
		s, err := f.Name(&buf, id)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}

	facts := &model.ParsedFontFacts{
		FamilyName:     firstNonEmpty(name(sfnt.NameIDTypographicFamily), name(sfnt.NameIDFamily)),
		SubfamilyName:  firstNonEmpty(name(sfnt.NameIDTypographicSubfamily), name(sfnt.NameIDSubfamily)),
		FullName:       name(sfnt.NameIDFull),
		PostScriptName: name(sfnt.NameIDPostScript),
		Version:        name(sfnt.NameIDVersion),
		Foundry:        name(sfnt.NameIDManufacturer),
		Designer:       name(sfnt.NameIDDesigner),
		VendorURL:      name(sfnt.NameIDVendorURL),
		DesignerURL:    name(sfnt.NameIDDesignerURL),
		License:        name(sfnt.NameIDLicense),
		LicenseURL:     name(sfnt.NameIDLicenseURL),
		Copyright:      name(sfnt.NameIDCopyright),
		Description:    name(sfnt.NameIDDescription),
		Format:         format,
	}
	if facts.FamilyName == "" {
		return nil, eris.Wrapf(ErrParse, "fontparse: %s: no family name", filename)
	}

	upm := int(f.UnitsPerEm())
	facts.Metrics.UnitsPerEm = upm
	facts.Metrics.GlyphCount = f.NumGlyphs()

	if post := f.PostTable(); post != nil {
		facts.Metrics.ItalicAngle = post.ItalicAngle
		facts.IsFixedPitch = post.IsFixedPitch
	}

	if upm > 0 {
		ppem := fixed.I(upm)
		if m, err := f.Metrics(&buf, ppem, font.HintingNone); err == nil {
			facts.Metrics.Ascent = m.Ascent.Round()
			facts.Metrics.Descent = m.Descent.Round()
			facts.Metrics.XHeight = m.XHeight.Round()
			facts.Metrics.CapHeight = m.CapHeight.Round()
		}
		facts.Metrics.Advances = advances(f, &buf, ppem)
	}

	os2, hasOS2 := readOS2(data)
	if hasOS2 {
		facts.Weight = int(os2.weightClass)
		facts.IsItalic = os2.italic()
		facts.ClassificationHints = os2.hints()
		if facts.Metrics.XHeight == 0 && os2.xHeight > 0 {
			facts.Metrics.XHeight = int(os2.xHeight)
		}
		if facts.Metrics.CapHeight == 0 && os2.capHeight > 0 {
			facts.Metrics.CapHeight = int(os2.capHeight)
		}
	}
	if facts.Weight == 0 {
		facts.Weight = WeightFromSubfamily(facts.SubfamilyName)
	}
	if !facts.IsItalic {
		sub := strings.ToLower(facts.SubfamilyName)
		facts.IsItalic = strings.Contains(sub, "italic") || strings.Contains(sub, "oblique") || facts.Metrics.ItalicAngle != 0
	}
	facts.VariableAxes = readFvar(data)

	return facts, nil
}

func advances(f *sfnt.Font, buf *sfnt.Buffer, ppem fixed.Int26_6) map[string]int {
	out := make(map[string]int, len(sampleRunes))
	for _, r := range sampleRunes {
		gi, err := f.GlyphIndex(buf, r)
		if err != nil || gi == 0 {
			continue
		}
		adv, err := f.GlyphAdvance(buf, gi, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		out[string(r)] = adv.Round()
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// sniffFormat identifies the container from its magic bytes.
func sniffFormat(data []byte) (string, error) {
	if len(data) < 12 {
		return "", eris.New("file too short")
	}
	switch string(data[:4]) {
	case "\x00\x01\x00\x00", "true":
		return "truetype", nil
	case "OTTO":
		return "opentype_cff", nil
	case "ttcf":
		return "", eris.New("font collections are not supported")
	case "wOFF", "wOF2":
		return "", eris.New("woff containers are not supported")
	}
	return "", eris.New("unrecognized font signature")
}

var weightKeywords = []struct {
	keyword string
	weight  int
}{
	{"extralight", 200}, {"ultralight", 200}, {"semibold", 600}, {"demibold", 600},
	{"extrabold", 800}, {"ultrabold", 800}, {"thin", 100}, {"hairline", 100},
	{"light", 300}, {"medium", 500}, {"bold", 700}, {"black", 900}, {"heavy", 900},
}

// WeightFromSubfamily infers a CSS-style weight from subfamily keywords,
// defaulting to 400.
func WeightFromSubfamily(subfamily string) int {
	s := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(subfamily))
	for _, kw := range weightKeywords {
		if strings.Contains(s, kw.keyword) {
			return kw.weight
		}
	}
	return 400
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
