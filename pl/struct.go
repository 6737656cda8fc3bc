package pl

import (
	"sort"
)

// Canonical property order. Each known head symbol maps to a 28-bit
// weight: the top four bits are the ordering category, the low 24 bits
// select how numeric arguments fold into the sort key:
//
//	0x0  the weight itself
//	0x1  first numeric argument (24 bits)
//	0x2  first numeric argument shifted left 16
//	0x3  (first argument << 16) | second argument
var headWeights = map[string]uint32{
	"DIRECTION":        0x0000000,
	"FAMILY":           0x1000000,
	"FACE":             0x1000000,
	"HEADER":           0x1000001,
	"CODINGSCHEME":     0x2000000,
	"DESIGNUNITS":      0x2000000,
	"DESIGNSIZE":       0x2000000,
	"CHECKSUM":         0x3000000,
	"SEVENBITSAFEFLAG": 0x3000000,
	"VTITLE":           0x3000000,
	"FONTDIMEN":        0x4000000,
	"BOUNDARYCHAR":     0x4000000,
	"MAPFONT":          0x5000001,
	"LIGTABLE":         0x6000000,
	"GLUEKERN":         0x6000000,
	"CODESPACE":        0x7000000,
	"CHARSINTYPE":      0x8000001,
	"CHARSINSUBTYPE":   0x9000003,
	"TYPE":             0xa000001,
	"SUBTYPE":          0xb000003,
	"CHARACTER":        0xc000001,
}

// sortKeyUnknown sorts lists with unknown heads after everything else.
const sortKeyUnknown uint32 = 0xfffffff

func headWeight(head string) (uint32, bool) {
	w, ok := headWeights[head]
	return w, ok
}

// SortKey computes the canonical sort key of a list.
func SortKey(l *List) uint32 {
	w, ok := headWeight(l.Head())
	if !ok {
		return sortKeyUnknown
	}
	var f uint32
	switch w & 0xffffff {
	case 0x0:
		f = w
	case 0x1:
		f = uint32(numArg(l, 0)) & 0xffffff
	case 0x2:
		f = (uint32(numArg(l, 0)) & 0xff) << 16
	case 0x3:
		f = (uint32(numArg(l, 0))&0xff)<<16 | uint32(numArg(l, 1))&0xffff
	}
	return w&0xf000000 | f
}

func numArg(l *List, i int) int64 {
	if n := l.NumberAt(i); n != nil {
		return n.Value
	}
	return 0
}

// Rearrange sorts the top-level lists of a struct by their canonical
// sort key; lists with equal keys keep their original order.
func Rearrange(st Struct) Struct {
	sort.SliceStable(st, func(i, j int) bool {
		return SortKey(st[i]) < SortKey(st[j])
	})
	return st
}

// CloneDeep duplicates a node: every list spine and cooked-number atom
// below it is copied, so that no mutation of the clone can alias into
// the original. Symbolic atoms are immutable strings and are shared,
// which also covers the shallow-clone use case.
func CloneDeep(n Node) Node {
	switch e := n.(type) {
	case *List:
		c := &List{Elems: make([]Node, len(e.Elems))}
		for i, sub := range e.Elems {
			c.Elems[i] = CloneDeep(sub)
		}
		return c
	case *Number:
		num := *e
		return &num
	}
	return n // atoms are immutable
}

// CloneStruct deep-clones a whole struct.
func CloneStruct(st Struct) Struct {
	c := make(Struct, len(st))
	for i, l := range st {
		c[i] = CloneDeep(l).(*List)
	}
	return c
}
