package fontparse

import (
	"encoding/binary"

	"github.com/fontintel/fontintel/internal/model"
)

// tableData returns the bytes of the named table from an sfnt table
// directory, or nil if absent or out of bounds.
func tableData(data []byte, tag string) []byte {
	if len(data) < 12 {
		return nil
	}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	for i := 0; i < numTables; i++ {
		rec := 12 + i*16
		if rec+16 > len(data) {
			return nil
		}
		if string(data[rec:rec+4]) != tag {
			continue
		}
		off := int(binary.BigEndian.Uint32(data[rec+8 : rec+12]))
		n := int(binary.BigEndian.Uint32(data[rec+12 : rec+16]))
		if off < 0 || n < 0 || off+n > len(data) {
			return nil
		}
		return data[off : off+n]
	}
	return nil
}

type os2Table struct {
	version     uint16
	weightClass uint16
	familyClass int16
	panose      [10]byte
	fsSelection uint16
	xHeight     int16
	capHeight   int16
}

// readOS2 decodes the OS/2 fields used for classification hints.
func readOS2(data []byte) (os2Table, bool) {
	var t os2Table
	b := tableData(data, "OS/2")
	if len(b) < 68 {
		return t, false
	}
	t.version = binary.BigEndian.Uint16(b[0:2])
	t.weightClass = binary.BigEndian.Uint16(b[4:6])
	t.familyClass = int16(binary.BigEndian.Uint16(b[30:32]))
	copy(t.panose[:], b[32:42])
	t.fsSelection = binary.BigEndian.Uint16(b[62:64])
	if t.version >= 2 && len(b) >= 90 {
		t.xHeight = int16(binary.BigEndian.Uint16(b[86:88]))
		t.capHeight = int16(binary.BigEndian.Uint16(b[88:90]))
	}
	return t, true
}

func (t os2Table) italic() bool {
	const fsItalic = 1 << 0
	const fsOblique = 1 << 9
	return t.fsSelection&fsItalic != 0 || t.fsSelection&fsOblique != 0
}

// ibmFamilyClass maps the high byte of sFamilyClass to a hint.
var ibmFamilyClass = map[int16]string{
	1:  "ibm:oldstyle_serif",
	2:  "ibm:transitional_serif",
	3:  "ibm:modern_serif",
	4:  "ibm:clarendon_serif",
	5:  "ibm:slab_serif",
	7:  "ibm:freeform_serif",
	8:  "ibm:sans_serif",
	9:  "ibm:ornamental",
	10: "ibm:script",
	12: "ibm:symbolic",
}

var panoseFamily = map[byte]string{
	2: "panose:latin_text",
	3: "panose:latin_hand_written",
	4: "panose:latin_decorative",
	5: "panose:latin_symbol",
}

// hints lists the classification signals carried in OS/2.
func (t os2Table) hints() []string {
	var out []string
	if h, ok := ibmFamilyClass[t.familyClass>>8]; ok {
		out = append(out, h)
	}
	if h, ok := panoseFamily[t.panose[0]]; ok {
		out = append(out, h)
	}
	if t.panose[0] == 2 {
		switch {
		case t.panose[1] >= 11 && t.panose[1] <= 13:
			out = append(out, "panose:sans_serif")
		case t.panose[1] >= 2 && t.panose[1] <= 10:
			out = append(out, "panose:serif")
		}
		if t.panose[3] == 9 {
			out = append(out, "panose:monospaced")
		}
	}
	return out
}

// readFvar decodes the variation axes of a variable font.
func readFvar(data []byte) []model.VariableAxis {
	b := tableData(data, "fvar")
	if len(b) < 16 {
		return nil
	}
	axesOffset := int(binary.BigEndian.Uint16(b[4:6]))
	axisCount := int(binary.BigEndian.Uint16(b[8:10]))
	axisSize := int(binary.BigEndian.Uint16(b[10:12]))
	if axisSize < 20 {
		return nil
	}

	axes := make([]model.VariableAxis, 0, axisCount)
	for i := 0; i < axisCount; i++ {
		rec := axesOffset + i*axisSize
		if rec+20 > len(b) {
			break
		}
		axes = append(axes, model.VariableAxis{
			Tag:     string(b[rec : rec+4]),
			Min:     fixed1616(b[rec+4 : rec+8]),
			Default: fixed1616(b[rec+8 : rec+12]),
			Max:     fixed1616(b[rec+12 : rec+16]),
		})
	}
	if len(axes) == 0 {
		return nil
	}
	return axes
}

func fixed1616(b []byte) float64 {
	return float64(int32(binary.BigEndian.Uint32(b))) / 65536
}
