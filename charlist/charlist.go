/*
Package charlist implements compact character-code sets.

A charlist is an ordered sequence of items, each a single code or an
inclusive code range. It is semantically a set; the serialized form
compacts runs of contiguous codes into ranges once they reach a
configurable length, matching the conventions of the upstream tools.
Well-known codespaces are kept in a named registry.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package charlist

import (
	"sort"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'zrtextor.charlist'.
func tracer() tracing.Trace {
	return tracing.Select("zrtextor.charlist")
}

// DefaultThreshold is the minimal span (Hi−Lo) at which contiguous
// codes compact into a range.
const DefaultThreshold = 8

// Item is a single code (Lo == Hi) or an inclusive range.
type Item struct {
	Lo, Hi int
}

// List is a charlist.
type List []Item

// FromCodes builds a normalized charlist from individual codes.
func FromCodes(codes []int) List {
	sorted := append([]int(nil), codes...)
	sort.Ints(sorted)
	var cl List
	for _, c := range sorted {
		if n := len(cl); n > 0 && cl[n-1].Hi >= c-1 {
			if c > cl[n-1].Hi {
				cl[n-1].Hi = c
			}
			continue
		}
		cl = append(cl, Item{c, c})
	}
	return cl
}

// Normalize sorts items and merges overlapping and adjacent ones.
func Normalize(cl List) List {
	items := append(List(nil), cl...)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Lo != items[j].Lo {
			return items[i].Lo < items[j].Lo
		}
		return items[i].Hi < items[j].Hi
	})
	var out List
	for _, it := range items {
		if n := len(out); n > 0 && out[n-1].Hi >= it.Lo-1 {
			if it.Hi > out[n-1].Hi {
				out[n-1].Hi = it.Hi
			}
			continue
		}
		out = append(out, it)
	}
	return out
}

// Codes enumerates every code of the charlist in ascending order.
func (cl List) Codes() []int {
	var codes []int
	for _, it := range Normalize(cl) {
		for c := it.Lo; c <= it.Hi; c++ {
			codes = append(codes, c)
		}
	}
	return codes
}

// Count returns the number of codes in the charlist.
func (cl List) Count() int {
	n := 0
	for _, it := range Normalize(cl) {
		n += it.Hi - it.Lo + 1
	}
	return n
}

// Contains reports set membership.
func (cl List) Contains(c int) bool {
	for _, it := range cl {
		if c >= it.Lo && c <= it.Hi {
			return true
		}
	}
	return false
}

// Union returns the set union of two charlists.
func Union(a, b List) List {
	m := treemap.NewWithIntComparator()
	for _, cl := range []List{a, b} {
		for _, it := range Normalize(cl) {
			for c := it.Lo; c <= it.Hi; c++ {
				m.Put(c, struct{}{})
			}
		}
	}
	return fromTreeMap(m)
}

// Diff returns the codes of a that are not in b.
func Diff(a, b List) List {
	m := treemap.NewWithIntComparator()
	for _, it := range Normalize(a) {
		for c := it.Lo; c <= it.Hi; c++ {
			m.Put(c, struct{}{})
		}
	}
	for _, it := range Normalize(b) {
		for c := it.Lo; c <= it.Hi; c++ {
			m.Remove(c)
		}
	}
	return fromTreeMap(m)
}

func fromTreeMap(m *treemap.Map) List {
	codes := make([]int, 0, m.Size())
	m.Each(func(key interface{}, _ interface{}) {
		codes = append(codes, key.(int))
	})
	return FromCodes(codes)
}

// Rangify re-partitions a charlist for serialization: a contiguous run
// survives as a range only when its span reaches the threshold,
// shorter runs fall apart into individual codes.
func Rangify(cl List, threshold int) List {
	var out List
	for _, it := range Normalize(cl) {
		if it.Hi-it.Lo >= threshold {
			out = append(out, it)
			continue
		}
		for c := it.Lo; c <= it.Hi; c++ {
			out = append(out, Item{c, c})
		}
	}
	return out
}

// Equal reports set equality.
func Equal(a, b List) bool {
	na, nb := Normalize(a), Normalize(b)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}
