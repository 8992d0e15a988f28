package fontparse

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

func TestParse_GoRegular(t *testing.T) {
	facts, err := NewSFNTParser().Parse(goregular.TTF, "Go-Regular.ttf")
	require.NoError(t, err)

	assert.Equal(t, "Go", facts.FamilyName)
	assert.Equal(t, "truetype", facts.Format)
	assert.Greater(t, facts.Metrics.UnitsPerEm, 0)
	assert.Greater(t, facts.Metrics.GlyphCount, 0)
	assert.False(t, facts.IsItalic)
	assert.False(t, facts.IsVariable())
	require.Len(t, facts.Metrics.Advances, len(sampleRunes))
	assert.NotEqual(t, facts.Metrics.Advances["i"], facts.Metrics.Advances["m"])
}

func TestParse_GoMonoAdvances(t *testing.T) {
	facts, err := NewSFNTParser().Parse(gomono.TTF, "Go-Mono.ttf")
	require.NoError(t, err)

	assert.Equal(t, "Go Mono", facts.FamilyName)
	require.NotEmpty(t, facts.Metrics.Advances)
	first := facts.Metrics.Advances["o"]
	for r, adv := range facts.Metrics.Advances {
		assert.Equal(t, first, adv, "advance of %q", r)
	}
	_, cv := advanceStats(facts.Metrics.Advances)
	assert.Less(t, cv, monospaceVariance)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short", data: []byte("OTTO")},
		{name: "garbage", data: []byte("this is not a font at all, honest")},
		{name: "collection", data: append([]byte("ttcf"), make([]byte, 32)...)},
		{name: "woff", data: append([]byte("wOFF"), make([]byte, 32)...)},
		{name: "no tables", data: append([]byte("OTTO"), make([]byte, 32)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSFNTParser().Parse(tt.data, "bad.otf")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))
		})
	}
}

func TestWeightFromSubfamily(t *testing.T) {
	tests := []struct {
		sub  string
		want int
	}{
		{"Regular", 400},
		{"", 400},
		{"Bold", 700},
		{"Bold Italic", 700},
		{"Semi Bold", 600},
		{"ExtraLight", 200},
		{"Extra-Bold", 800},
		{"Thin", 100},
		{"Light Oblique", 300},
		{"Black", 900},
		{"Medium", 500},
	}
	for _, tt := range tests {
		t.Run(tt.sub, func(t *testing.T) {
			assert.Equal(t, tt.want, WeightFromSubfamily(tt.sub))
		})
	}
}

// buildSFNT assembles a minimal table directory around the given tables.
func buildSFNT(tables map[string][]byte) []byte {
	tags := make([]string, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	header := 12 + 16*len(tags)
	out := make([]byte, header)
	binary.BigEndian.PutUint32(out[0:4], 0x00010000)
	binary.BigEndian.PutUint16(out[4:6], uint16(len(tags)))
	for i, tag := range tags {
		rec := 12 + i*16
		copy(out[rec:rec+4], tag)
		binary.BigEndian.PutUint32(out[rec+8:rec+12], uint32(len(out)))
		binary.BigEndian.PutUint32(out[rec+12:rec+16], uint32(len(tables[tag])))
		out = append(out, tables[tag]...)
	}
	return out
}

func TestReadOS2(t *testing.T) {
	os2 := make([]byte, 96)
	binary.BigEndian.PutUint16(os2[0:2], 4)
	binary.BigEndian.PutUint16(os2[4:6], 700)
	binary.BigEndian.PutUint16(os2[30:32], 8<<8)
	os2[32], os2[33], os2[35] = 2, 11, 9
	binary.BigEndian.PutUint16(os2[62:64], 1)
	binary.BigEndian.PutUint16(os2[86:88], 520)
	binary.BigEndian.PutUint16(os2[88:90], 700)

	tbl, ok := readOS2(buildSFNT(map[string][]byte{"OS/2": os2}))
	require.True(t, ok)
	assert.Equal(t, uint16(700), tbl.weightClass)
	assert.True(t, tbl.italic())
	assert.Equal(t, int16(520), tbl.xHeight)
	assert.Equal(t, int16(700), tbl.capHeight)
	assert.Equal(t, []string{"ibm:sans_serif", "panose:latin_text", "panose:sans_serif", "panose:monospaced"}, tbl.hints())
}

func TestReadOS2_Version1SkipsHeights(t *testing.T) {
	os2 := make([]byte, 96)
	binary.BigEndian.PutUint16(os2[0:2], 1)
	binary.BigEndian.PutUint16(os2[86:88], 520)

	tbl, ok := readOS2(buildSFNT(map[string][]byte{"OS/2": os2}))
	require.True(t, ok)
	assert.Zero(t, tbl.xHeight)
	assert.False(t, tbl.italic())
	assert.Empty(t, tbl.hints())

	_, ok = readOS2(buildSFNT(map[string][]byte{"OS/2": os2[:40]}))
	assert.False(t, ok)
	_, ok = readOS2(buildSFNT(map[string][]byte{"head": os2}))
	assert.False(t, ok)
}

func TestReadFvar(t *testing.T) {
	fvar := make([]byte, 16+2*20)
	binary.BigEndian.PutUint16(fvar[4:6], 16)
	binary.BigEndian.PutUint16(fvar[8:10], 2)
	binary.BigEndian.PutUint16(fvar[10:12], 20)
	axis := func(off int, tag string, lo, def, hi int32) {
		copy(fvar[off:off+4], tag)
		binary.BigEndian.PutUint32(fvar[off+4:], uint32(lo<<16))
		binary.BigEndian.PutUint32(fvar[off+8:], uint32(def<<16))
		binary.BigEndian.PutUint32(fvar[off+12:], uint32(hi<<16))
	}
	axis(16, "wght", 100, 400, 900)
	axis(36, "wdth", 75, 100, 125)

	axes := readFvar(buildSFNT(map[string][]byte{"fvar": fvar}))
	require.Len(t, axes, 2)
	assert.Equal(t, "wght", axes[0].Tag)
	assert.Equal(t, 100.0, axes[0].Min)
	assert.Equal(t, 400.0, axes[0].Default)
	assert.Equal(t, 900.0, axes[0].Max)
	assert.Equal(t, "wdth", axes[1].Tag)

	assert.Nil(t, readFvar(goregular.TTF))
}

func TestTableData_OutOfBounds(t *testing.T) {
	data := buildSFNT(map[string][]byte{"OS/2": make([]byte, 8)})
	binary.BigEndian.PutUint32(data[12+12:12+16], 1<<20)
	assert.Nil(t, tableData(data, "OS/2"))
	assert.Nil(t, tableData([]byte("short"), "OS/2"))
}
