package zvp

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/zr-tex8r/ZRTeXtor/charlist"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

func parseZVP(t *testing.T, src string) pl.Struct {
	t.Helper()
	st, err := pl.Parse([]byte(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

const simpleZVP = `
(DESIGNSIZE R 10.0)
(CHECKSUM O 123)
(VTITLE test)
(MAPFONT D 0 (FONTNAME rml))
(CODESPACE (CTRANGE H 61 H 7A))
(TYPE D 0
   (CHARWD R 1.0)
   (MAP (SELECTFONT D 0) (SETCHAR))
   )
(TYPE D 1
   (CHARWD R 0.5)
   (MAP (SELECTFONT D 0) (SETCHAR))
   )
(CHARSINTYPE D 1 a b c)
`

func TestDivideSimple(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.zvp")
	defer teardown()
	//
	vfSide, jfmSide, err := Divide(parseZVP(t, simpleZVP), nil)
	if err != nil {
		t.Fatal(err)
	}
	// one packet per codespace member
	chars := vfSide.FindAll("CHARACTER")
	assert.Equal(t, 26, len(chars))
	// typed codes take the type's width, the rest type 0's
	for _, ch := range chars {
		c, _ := ch.Value()
		wd := ch.Sublist("CHARWD").FirstNumber().Value
		if c == 'a' || c == 'b' || c == 'c' {
			assert.Equal(t, int64(1)<<19, wd, "code %c", c)
		} else {
			assert.Equal(t, int64(1)<<20, wd, "code %c", c)
		}
	}
	// shared properties land on both sides
	assert.NotNil(t, vfSide.FindHead("CHECKSUM"))
	assert.NotNil(t, jfmSide.FindHead("CHECKSUM"))
	assert.NotNil(t, vfSide.FindHead("MAPFONT"))
	assert.Nil(t, jfmSide.FindHead("MAPFONT"))
	// the JFM half carries the types without their mapping
	for _, tl := range jfmSide.FindAll("TYPE") {
		assert.Nil(t, tl.Sublist("MAP"))
	}
	assert.Nil(t, vfSide.FindHead("TYPE"))
}

// R 0.7 in scaled units, rounded half away from zero
const scaled07 = 734003

const migratingZVP = `
(DESIGNSIZE R 10.0)
(CHECKSUM O 123)
(VTITLE test)
(MAPFONT D 0 (FONTNAME rml))
(CODESPACE (CTRANGE H 61 H 7A))
(TYPE D 0
   (CHARWD R 1.0)
   (MAP (SELECTFONT D 0) (SETCHAR))
   )
(TYPE D 1
   (CHARWD R 0.5)
   (MAP (SELECTFONT D 0) (SETCHAR))
   )
(CHARSINTYPE D 1 a b c d)
(SUBTYPE D 1 D 1
   (CHARWD R 0.7)
   (MAP (SELECTFONT D 0) (SETCHAR) (MOVERIGHT R 0.1))
   )
(CHARSINSUBTYPE D 1 D 1 b d)
(GLUEKERN (LABEL D 1) (KRN D 0 R 0.1) (STOP))
`

func TestDivideSubtypeMigration(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.zvp")
	defer teardown()
	//
	vfSide, jfmSide, err := Divide(parseZVP(t, migratingZVP), nil)
	if err != nil {
		t.Fatal(err)
	}
	// the subtype disagreed on CHARWD and must have become TYPE 2
	var type2 *pl.List
	for _, tl := range jfmSide.FindAll("TYPE") {
		if v, _ := tl.Value(); v == 2 {
			type2 = tl
		}
	}
	if type2 == nil {
		t.Fatal("no TYPE 2 allocated for the migrated subtype")
	}
	wd, _ := metricValue(type2, "CHARWD")
	assert.Equal(t, int64(scaled07), wd)
	//
	// its members moved from CHARSINTYPE 1 to CHARSINTYPE 2
	cits := map[int64][]int{}
	for _, cl := range jfmSide.FindAll("CHARSINTYPE") {
		v, _ := cl.Value()
		members, err := charlist.ParseNodes(cl.Elems[2:], nil)
		if err != nil {
			t.Fatal(err)
		}
		cits[v] = members.Codes()
	}
	assert.Equal(t, []int{'a', 'c'}, cits[1])
	assert.Equal(t, []int{'b', 'd'}, cits[2])
	//
	// glue/kern rows naming type 1 are duplicated for type 2
	gk := jfmSide.FindHead("GLUEKERN")
	if gk == nil {
		t.Fatal("no GLUEKERN in the JFM half")
	}
	var labels []int64
	for _, row := range gk.Sublists("LABEL") {
		v, _ := row.Value()
		labels = append(labels, v)
	}
	assert.Equal(t, []int64{1, 2}, labels)
	assert.Equal(t, 1, len(gk.Sublists("KRN"))) // KRN D 0 passes through once
	//
	// the migrated characters map with the subtype's program
	for _, ch := range vfSide.FindAll("CHARACTER") {
		c, _ := ch.Value()
		if c == 'b' || c == 'd' {
			assert.NotNil(t, ch.Sublist("MAP").Sublist("MOVERIGHT"), "code %c", c)
			assert.Equal(t, int64(scaled07), ch.Sublist("CHARWD").FirstNumber().Value)
		}
	}
}

func TestDivideConsistencyChecks(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.zvp")
	defer teardown()
	//
	// subtype member outside its parent type
	bad := `
(CODESPACE (CTRANGE H 61 H 7A))
(TYPE D 0 (CHARWD R 1.0))
(TYPE D 1 (CHARWD R 0.5))
(CHARSINTYPE D 1 a)
(SUBTYPE D 1 D 1 (CHARWD R 0.5))
(CHARSINSUBTYPE D 1 D 1 z)
`
	if _, _, err := Divide(parseZVP(t, bad), nil); err == nil {
		t.Error("expected a subtype member outside its type to fail")
	}
	//
	// CHARSINTYPE without TYPE
	bad = `
(CODESPACE (CTRANGE H 61 H 7A))
(TYPE D 0 (CHARWD R 1.0))
(CHARSINTYPE D 3 a)
`
	if _, _, err := Divide(parseZVP(t, bad), nil); err == nil {
		t.Error("expected CHARSINTYPE without TYPE to fail")
	}
	//
	// code claimed by two non-zero types
	bad = `
(CODESPACE (CTRANGE H 61 H 7A))
(TYPE D 0 (CHARWD R 1.0))
(TYPE D 1 (CHARWD R 0.5))
(TYPE D 2 (CHARWD R 0.6))
(CHARSINTYPE D 1 a)
(CHARSINTYPE D 2 a)
`
	if _, _, err := Divide(parseZVP(t, bad), nil); err == nil {
		t.Error("expected a doubly assigned code to fail")
	}
	//
	// typed code outside the codespace
	bad = `
(CODESPACE (CTRANGE H 61 H 6A))
(TYPE D 0 (CHARWD R 1.0))
(TYPE D 1 (CHARWD R 0.5))
(CHARSINTYPE D 1 z)
`
	if _, _, err := Divide(parseZVP(t, bad), nil); err == nil {
		t.Error("expected a typed code outside the codespace to fail")
	}
}

func TestComposeInvertsDivide(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.zvp")
	defer teardown()
	//
	vfSide, jfmSide, err := Divide(parseZVP(t, simpleZVP), nil)
	if err != nil {
		t.Fatal(err)
	}
	z, err := Compose(vfSide, jfmSide, nil)
	if err != nil {
		t.Fatal(err)
	}
	// the type→code mapping survives the round trip
	var cit1 charlist.List
	for _, cl := range z.FindAll("CHARSINTYPE") {
		if v, _ := cl.Value(); v == 1 {
			cit1, err = charlist.ParseNodes(cl.Elems[2:], nil)
			if err != nil {
				t.Fatal(err)
			}
		}
	}
	assert.Equal(t, []int{'a', 'b', 'c'}, cit1.Codes())
	//
	// type mappings were recovered from the packets
	for _, tl := range z.FindAll("TYPE") {
		m := tl.Sublist("MAP")
		if m == nil {
			t.Fatalf("TYPE lost its MAP in composition")
		}
		assert.NotNil(t, m.Sublist("SELECTFONT"))
		// self-code contraction: the SETCHAR is bare again
		sc := m.Sublist("SETCHAR")
		if sc == nil {
			t.Fatal("no SETCHAR in recovered MAP")
		}
		assert.Nil(t, sc.FirstNumber())
	}
	//
	// a codespace matching no registered name is emitted as an explicit
	// CTRANGE
	cs := z.FindHead("CODESPACE")
	if cs == nil {
		t.Fatal("no CODESPACE in composed tree")
	}
	ct := cs.Sublist("CTRANGE")
	if ct == nil {
		t.Fatal("expected an explicit CTRANGE codespace")
	}
	text, err := pl.EmitList(ct, -1, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "(CTRANGE 61 7A)", text)
}

func TestComposeRecoversSubtypes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.zvp")
	defer teardown()
	//
	// packets of type 1: three share the plain map, two share a
	// shifted map → the shifted pair must come back as SUBTYPE 1 1
	vfSide := pl.Struct{
		pl.NewList("VTITLE"),
		pl.NewList("DESIGNSIZE", pl.NewNumber(pl.NumR, 10<<20)),
		pl.NewList("CHECKSUM", pl.NewNumber(pl.NumI, 0)),
		pl.NewList("MAPFONT", pl.NewNumber(pl.NumD, 0),
			pl.NewList("FONTNAME", pl.Raw("rml"))),
	}
	plain := func() *pl.List {
		return pl.NewList("MAP", pl.NewList("SELECTFONT", pl.NewNumber(pl.NumD, 0)),
			pl.NewList("SETCHAR"))
	}
	shifted := func() *pl.List {
		m := plain()
		m.Append(pl.NewList("MOVERIGHT", pl.NewNumber(pl.NumR, 1<<16)))
		return m
	}
	for _, c := range []int{'a', 'c', 'e'} {
		vfSide = append(vfSide, pl.NewList("CHARACTER", pl.NewNumber(pl.NumC, int64(c)),
			pl.NewList("CHARWD", pl.NewNumber(pl.NumR, 1<<19)), plain()))
	}
	for _, c := range []int{'b', 'd'} {
		vfSide = append(vfSide, pl.NewList("CHARACTER", pl.NewNumber(pl.NumC, int64(c)),
			pl.NewList("CHARWD", pl.NewNumber(pl.NumR, 1<<19)), shifted()))
	}
	jfmSide := pl.Struct{
		pl.NewList("DESIGNSIZE", pl.NewNumber(pl.NumR, 10<<20)),
		pl.NewList("CHECKSUM", pl.NewNumber(pl.NumI, 0o123)),
		pl.NewList("TYPE", pl.NewNumber(pl.NumD, 1),
			pl.NewList("CHARWD", pl.NewNumber(pl.NumR, 1<<19))),
		func() *pl.List {
			l := pl.NewList("CHARSINTYPE", pl.NewNumber(pl.NumD, 1))
			l.Append(pl.Raw("a"), pl.Raw("b"), pl.Raw("c"), pl.Raw("d"), pl.Raw("e"))
			return l
		}(),
	}
	z, err := Compose(vfSide, jfmSide, nil)
	if err != nil {
		t.Fatal(err)
	}
	sub := z.FindHead("SUBTYPE")
	if sub == nil {
		t.Fatal("no SUBTYPE recovered")
	}
	assert.Equal(t, int64(1), sub.NumberAt(0).Value)
	assert.Equal(t, int64(1), sub.NumberAt(1).Value)
	assert.NotNil(t, sub.Sublist("MAP").Sublist("MOVERIGHT"))
	//
	cis := z.FindHead("CHARSINSUBTYPE")
	if cis == nil {
		t.Fatal("no CHARSINSUBTYPE recovered")
	}
	members, err := charlist.ParseNodes(cis.Elems[3:], nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []int{'b', 'd'}, members.Codes())
	//
	// the checksum mismatch was tolerated because one side is zero
	cs, _ := z.FindHead("CHECKSUM").Value()
	assert.Equal(t, int64(0o123), cs)
}
