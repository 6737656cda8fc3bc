package charlist

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

func TestFromCodesAndNormalize(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.charlist")
	defer teardown()
	//
	cl := FromCodes([]int{5, 3, 4, 9, 1})
	assert.Equal(t, List{{1, 1}, {3, 5}, {9, 9}}, cl)
	assert.Equal(t, 5, cl.Count())
	assert.True(t, cl.Contains(4))
	assert.False(t, cl.Contains(6))
	//
	n := Normalize(List{{3, 5}, {1, 2}, {6, 8}, {5, 6}})
	assert.Equal(t, List{{1, 8}}, n)
}

func TestUnionDiff(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.charlist")
	defer teardown()
	//
	a := List{{1, 5}}
	b := List{{4, 8}}
	assert.Equal(t, List{{1, 8}}, Union(a, b))
	assert.Equal(t, List{{1, 3}}, Diff(a, b))
	assert.Equal(t, List{{6, 8}}, Diff(b, a))
}

func TestRangifyThreshold(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.charlist")
	defer teardown()
	//
	nine := List{{0x21, 0x29}} // span 8
	r := Rangify(nine, 8)
	assert.Equal(t, List{{0x21, 0x29}}, r)
	//
	r = Rangify(nine, 10)
	assert.Equal(t, 9, len(r))
	for i, it := range r {
		assert.Equal(t, 0x21+i, it.Lo)
		assert.Equal(t, it.Lo, it.Hi)
	}
}

func TestUnparseNodes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.charlist")
	defer teardown()
	//
	nine := List{{0x21, 0x29}}
	nodes := UnparseNodes(nine, nil)
	if len(nodes) != 1 {
		t.Fatalf("expected a single CTRANGE, got %d nodes", len(nodes))
	}
	ct := nodes[0].(*pl.List)
	assert.Equal(t, "CTRANGE", ct.Head())
	// the documented serialization: bare hex endpoints
	text, err := pl.EmitList(ct, -1, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "(CTRANGE 21 29)", text)
	back, err := ParseNodes(nodes, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, Equal(nine, back))
	//
	cfg := Default
	cfg.Threshold = 10
	nodes = UnparseNodes(nine, &cfg)
	assert.Equal(t, 9, len(nodes))
	// 0x28 is '(' and must take the escape-hex form
	assert.Equal(t, pl.Raw("X0028"), nodes[7])
	// 0x21 is '!' — printable but outside the word class
	assert.Equal(t, pl.Raw("X0021"), nodes[0])
}

func TestParseNodesRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.charlist")
	defer teardown()
	//
	cl := List{{0x41, 0x5a}, {0x2121, 0x2121}}
	nodes := UnparseNodes(cl, nil)
	back, err := ParseNodes(nodes, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, Equal(cl, back), "round trip changed the set")
}

func TestEscapeHexAtoms(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.charlist")
	defer teardown()
	//
	cl, err := ParseNodes([]pl.Node{pl.Raw("X2121"), pl.Raw("J2422")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, cl.Contains(0x2121))
	assert.True(t, cl.Contains(0x2422))
	//
	// U maps through Unicode: あ is U+3042 = JIS 2422
	cl, err = ParseNodes([]pl.Node{pl.Raw("U3042")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, cl.Contains(0x2422))
}

func TestRegistry(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "zrtextor.charlist")
	defer teardown()
	//
	bmp, ok := Lookup("UNICODE-BMP")
	if !ok {
		t.Fatal("UNICODE-BMP not registered")
	}
	assert.Equal(t, 0x10000, bmp.Count())
	//
	gl, ok := Lookup("GL94DB")
	if !ok {
		t.Fatal("GL94DB not registered")
	}
	assert.Equal(t, 94*94, gl.Count())
	assert.True(t, gl.Contains(0x2121))
	assert.True(t, gl.Contains(0x7e7e))
	assert.False(t, gl.Contains(0x217f))
	//
	name, ok := MatchName(gl)
	assert.True(t, ok)
	assert.Equal(t, "GL94DB", name)
	//
	_, ok = MatchName(List{{1, 3}})
	assert.False(t, ok)
}
