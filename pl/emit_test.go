package pl

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

func TestEmitCharacter(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.pl")
	defer teardown()
	//
	st := Struct{
		NewList("CHARACTER", NewNumber(NumC, 'A'),
			NewList("CHARWD", NewNumber(NumR, 1<<19)),
		),
	}
	out, err := Emit(st, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "(CHARACTER C A\n   (CHARWD R 0.5)\n   )\n", out)
}

func TestEmitInline(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.pl")
	defer teardown()
	//
	st := Struct{
		NewList("CHARWD", NewNumber(NumR, 1<<20)),
		NewList("CHARHT", NewNumber(NumR, 1<<19)),
	}
	out, err := Emit(st, -1, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "(CHARWD R 1.0) (CHARHT R 0.5)", out)
}

func TestEmitPreservesLiteral(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.pl")
	defer teardown()
	//
	st, err := Parse([]byte("(DESIGNSIZE R 10.000)"), nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Emit(st, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	// untouched value: token reproduced byte-exact
	assert.Equal(t, "(DESIGNSIZE R 10.000)\n", out)
	//
	st[0].FirstNumber().SetValue(10 << 20)
	out, err = Emit(st, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	// mutated: re-rendered in shortest form
	assert.Equal(t, "(DESIGNSIZE R 10.0)\n", out)
}

func TestEmitParseRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.pl")
	defer teardown()
	//
	src := strings.Join([]string{
		"(FAMILY TESTFONT)",
		"(DESIGNSIZE R 10.0)",
		"(CHECKSUM O 7777777)",
		"(TYPE D 1",
		"   (CHARWD R 1.0)",
		"   (CHARHT R 0.88)",
		"   )",
		"(CHARACTER C A",
		"   (CHARWD R 0.5)",
		"   )",
	}, "\n") + "\n"
	st, err := Parse([]byte(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Emit(st, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, src, out)
	//
	st2, err := Parse([]byte(out), nil)
	if err != nil {
		t.Fatal(err)
	}
	out2, err := Emit(st2, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, out, out2)
}

func TestEmitJISEnvelope(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.pl")
	defer teardown()
	//
	cfg := Default
	cfg.Codec.External = "jis"
	src := []byte("(CHARSINTYPE D 1 \x1b$B$\"\x1b(B)\n")
	st, err := Parse(src, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Emit(st, 0, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, string(src), out)
}

func TestEmitPacksCharRuns(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.pl")
	defer teardown()
	//
	l := NewList("CHARSINTYPE", NewNumber(NumD, 1))
	for i := 0; i < 40; i++ {
		l.Append(Raw("X4E00"))
	}
	out, err := Emit(Struct{l}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected the run of atoms to break over lines:\n%s", out)
	}
	for _, line := range lines {
		if len(line) > maxPackColumn+1 {
			t.Errorf("line longer than the packing limit: %q", line)
		}
	}
}
