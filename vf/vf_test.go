package vf

import (
	"bytes"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

// a minimal VF: empty vtitle, checksum 0, design size 10.0, one font
// definition for "foo" at 1.0/10.0, no characters
func minimalVF() []byte {
	b := []byte{opPre, preID, 0,
		0, 0, 0, 0, // checksum
		0x00, 0xa0, 0x00, 0x00, // design size 10.0
		opFntDef1, 0,
		0, 0, 0, 0, // font checksum
		0x00, 0x10, 0x00, 0x00, // at 1.0
		0x00, 0xa0, 0x00, 0x00, // dsize 10.0
		0, 3, 'f', 'o', 'o',
	}
	b = append(b, opPost)
	for len(b)%4 != 0 {
		b = append(b, opPost)
	}
	return b
}

func TestParseMinimalVF(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.vf")
	defer teardown()
	//
	st, err := Parse(minimalVF(), nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "VTITLE", st[0].Head())
	assert.Equal(t, 1, len(st[0].Elems)) // empty title
	//
	cs := st.FindHead("CHECKSUM").FirstNumber()
	assert.Equal(t, pl.NumI, cs.Kind)
	assert.Equal(t, int64(0), cs.Value)
	//
	ds := st.FindHead("DESIGNSIZE").FirstNumber()
	assert.Equal(t, int64(10)<<20, ds.Value)
	//
	mf := st.FindHead("MAPFONT")
	if mf == nil {
		t.Fatal("no MAPFONT in parsed tree")
	}
	id, _ := mf.Value()
	assert.Equal(t, int64(0), id)
	assert.Equal(t, "foo", joinAtoms(mf.Sublist("FONTNAME")))
	assert.Nil(t, mf.Sublist("FONTAREA")) // empty area is elided
	assert.Equal(t, int64(1)<<20, mf.Sublist("FONTAT").FirstNumber().Value)
	assert.Equal(t, int64(10)<<20, mf.Sublist("FONTDSIZE").FirstNumber().Value)
}

func TestEmitParseByteRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.vf")
	defer teardown()
	//
	st := pl.Struct{
		pl.NewList("VTITLE"),
		pl.NewList("CHECKSUM", pl.NewNumber(pl.NumI, 0o17777)),
		pl.NewList("DESIGNSIZE", pl.NewNumber(pl.NumR, 10<<20)),
		pl.NewList("MAPFONT", pl.NewNumber(pl.NumD, 0),
			pl.NewList("FONTNAME", pl.Raw("rml")),
			pl.NewList("FONTAT", pl.NewNumber(pl.NumR, 1<<20)),
			pl.NewList("FONTDSIZE", pl.NewNumber(pl.NumR, 10<<20)),
		),
		pl.NewList("CHARACTER", pl.NewNumber(pl.NumC, 'A'),
			pl.NewList("CHARWD", pl.NewNumber(pl.NumR, 1<<19)),
			pl.NewList("MAP",
				pl.NewList("PUSH"),
				pl.NewList("SETCHAR", pl.NewNumber(pl.NumC, 'A')),
				pl.NewList("POP"),
				pl.NewList("MOVERIGHT", pl.NewNumber(pl.NumR, 98304)),
				pl.NewList("SETRULE", pl.NewNumber(pl.NumR, 1<<18), pl.NewNumber(pl.NumR, 1<<19)),
			),
		),
		pl.NewList("CHARACTER", pl.NewNumber(pl.NumC, 'B'),
			pl.NewList("CHARWD", pl.NewNumber(pl.NumR, 1<<19)),
			pl.NewList("MAP",
				pl.NewList("SELECTFONT", pl.NewNumber(pl.NumD, 0)),
				pl.NewList("SETCHAR", pl.NewNumber(pl.NumC, 'B')),
			),
		),
	}
	b, err := Emit(st, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(b)%4 != 0 {
		t.Errorf("emitted VF not padded to 4 bytes: %d", len(b))
	}
	st2, err := Parse(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := Emit(st2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, b2) {
		t.Errorf("byte round trip failed:\n  %x\n  %x", b, b2)
	}
}

func TestMoveRegisterCompilation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.vf")
	defer teardown()
	//
	m := pl.NewList("MAP",
		pl.NewList("MOVERIGHT", pl.NewNumber(pl.NumR, 0)),
		pl.NewList("MOVERIGHT", pl.NewNumber(pl.NumR, 0)),
		pl.NewList("MOVERIGHT", pl.NewNumber(pl.NumR, 300)),
		pl.NewList("MOVERIGHT", pl.NewNumber(pl.NumR, 300)),
		pl.NewList("MOVERIGHT", pl.NewNumber(pl.NumR, 7)),
	)
	dvi, err := compileMAP(m, 0, &Default)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		dviW1, 0, // first zero move loads w
		dviW0,              // second reuses w
		dviX1 + 1, 1, 0x2c, // 300 loads x (2 bytes)
		dviX0,        // reuse x
		dviRight1, 7, // neither register matches nor is free
	}
	assert.Equal(t, want, dvi)
}

func TestSimpleMoveMode(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.vf")
	defer teardown()
	//
	cfg := Default
	cfg.SimpleMove = true
	m := pl.NewList("MAP",
		pl.NewList("MOVERIGHT", pl.NewNumber(pl.NumR, 0)),
		pl.NewList("MOVERIGHT", pl.NewNumber(pl.NumR, 0)),
		pl.NewList("MOVELEFT", pl.NewNumber(pl.NumR, 1)),
	)
	dvi, err := compileMAP(m, 0, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []byte{dviRight1, 0, dviRight1, 0, dviRight1, 0xff}, dvi)
}

func TestLongFormForBigCode(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.vf")
	defer teardown()
	//
	st := pl.Struct{
		pl.NewList("VTITLE"),
		pl.NewList("CHECKSUM", pl.NewNumber(pl.NumI, 0)),
		pl.NewList("DESIGNSIZE", pl.NewNumber(pl.NumR, 10<<20)),
		pl.NewList("CHARACTER", pl.NewNumber(pl.NumH, 300),
			pl.NewList("CHARWD", pl.NewNumber(pl.NumR, 1<<19)),
			pl.NewList("MAP", pl.NewList("SETCHAR")),
		),
	}
	b, err := Emit(st, nil)
	if err != nil {
		t.Fatal(err)
	}
	// character record starts right after the 11-byte preamble
	assert.Equal(t, byte(opLongChar), b[11])
	//
	st2, err := Parse(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	cc, _ := st2.FindHead("CHARACTER").Value()
	assert.Equal(t, int64(300), cc)
	// the packet's own code was substituted for the bare SETCHAR
	sc := st2.FindHead("CHARACTER").Sublist("MAP").Sublist("SETCHAR")
	v, _ := sc.Value()
	assert.Equal(t, int64(300), v)
}

func TestDirectHexFallback(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.vf")
	defer teardown()
	//
	b := []byte{opPre, preID, 0,
		0, 0, 0, 0,
		0x00, 0xa0, 0x00, 0x00,
		1, 'A', 0, 0, 0, // short packet, width 0, 1 DVI byte
		133, // not an opcode of the VF subset
	}
	b = append(b, opPost)
	for len(b)%4 != 0 {
		b = append(b, opPost)
	}
	//
	if _, err := Parse(b, nil); err == nil {
		t.Error("expected strict mode to reject the bad DVI byte")
	}
	//
	lax := Default
	lax.Strict = false
	st, err := Parse(b, &lax)
	if err != nil {
		t.Fatal(err)
	}
	dh := st.FindHead("CHARACTER").Sublist("DIRECTHEX")
	if dh == nil {
		t.Fatal("expected a DIRECTHEX fallback")
	}
	s, _ := atomString(dh.Elems[1])
	assert.Equal(t, "85", s)
	//
	// and DIRECTHEX emits back to the original bytes
	b2, err := Emit(st, &lax)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, b, b2)
}

func TestSpecialRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.vf")
	defer teardown()
	//
	st := pl.Struct{
		pl.NewList("VTITLE"),
		pl.NewList("CHECKSUM", pl.NewNumber(pl.NumI, 0)),
		pl.NewList("DESIGNSIZE", pl.NewNumber(pl.NumR, 10<<20)),
		pl.NewList("CHARACTER", pl.NewNumber(pl.NumC, 'A'),
			pl.NewList("CHARWD", pl.NewNumber(pl.NumR, 1<<19)),
			pl.NewList("MAP",
				pl.NewList("SPECIAL", pl.Raw("pdf:"), pl.Raw("literal")),
			),
		),
	}
	b, err := Emit(st, nil)
	if err != nil {
		t.Fatal(err)
	}
	st2, err := Parse(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	sp := st2.FindHead("CHARACTER").Sublist("MAP").Sublist("SPECIAL")
	if sp == nil {
		t.Fatal("no SPECIAL recovered")
	}
	s1, _ := atomString(sp.Elems[1])
	s2, _ := atomString(sp.Elems[2])
	assert.Equal(t, "pdf:", s1)
	assert.Equal(t, "literal", s2)
}

func TestVTitleTooLong(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.vf")
	defer teardown()
	//
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	st := pl.Struct{
		pl.NewList("VTITLE", pl.Raw(string(long))),
		pl.NewList("DESIGNSIZE", pl.NewNumber(pl.NumR, 10<<20)),
	}
	if _, err := Emit(st, nil); err == nil {
		t.Error("expected an over-long VTITLE to be an error")
	}
}
