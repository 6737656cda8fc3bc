package jfm

import (
	"math"
	"sort"

	"github.com/zr-tex8r/ZRTeXtor/core"
)

// CharMetric is one row of a raw metric table: a character code and
// its width, height and depth in design-size units.
type CharMetric struct {
	Code    int
	W, H, D float64
}

// RawMetric is a per-character metric table.
type RawMetric []CharMetric

// Triple is one width/height/depth entry of a reduced value table.
type Triple struct {
	W, H, D float64
}

// Reduced is the compact form of a raw metric: Index maps a character
// code to a slot of Values. Values[0] is the reserved zero triple,
// subsequent entries are ordered by descending reference count
// (first-seen order breaks ties).
type Reduced struct {
	Index  map[int]int
	Values []Triple
}

// maxTriples bounds the value table: slot 0 plus at most 255 classes.
const maxTriples = 256

// Representative placement for rounding covers.
const (
	CoverMid   = 0 // midpoint of first and last member
	CoverLower = 1
	CoverUpper = 2
)

// cover greedily partitions the sorted distinct set vals: a new class
// opens whenever an element exceeds the first member of the current
// class by more than e. It returns per-element class indices, the
// class representatives, and the smallest boundary gap, i.e. the
// least e' > e that would merge at least one boundary.
func cover(vals []float64, e float64, sw int) (idx []int, reps []float64, nextGap float64) {
	idx = make([]int, len(vals))
	nextGap = math.Inf(1)
	if len(vals) == 0 {
		return idx, nil, nextGap
	}
	first := 0
	closeClass := func(last int) {
		var rep float64
		switch sw {
		case CoverLower:
			rep = vals[first]
		case CoverUpper:
			rep = vals[last]
		default:
			rep = (vals[first] + vals[last]) / 2
		}
		reps = append(reps, rep)
	}
	for i, v := range vals {
		if v-vals[first] > e {
			closeClass(i - 1)
			if g := v - vals[first]; g < nextGap {
				nextGap = g
			}
			first = i
		}
		idx[i] = len(reps)
	}
	closeClass(len(vals) - 1)
	return idx, reps, nextGap
}

// shorten finds the smallest error bound e for which cover yields at
// most m classes. Each upward step uses the next needed gap reported
// by the cover, so the walk takes at most len(vals) steps.
func shorten(vals []float64, m int) float64 {
	classes := func(e float64) (int, float64) {
		_, reps, g := cover(vals, e, CoverMid)
		return len(reps), g
	}
	n, g := classes(0)
	if n <= m {
		return 0
	}
	e := g
	for {
		if n, _ = classes(e); n <= m {
			break
		}
		e *= 2
	}
	e /= 2
	for {
		n, g = classes(e)
		if n <= m {
			return e
		}
		e = g
	}
}

// distinctSorted returns the sorted distinct values of one metric
// component.
func distinctSorted(rmt RawMetric, get func(CharMetric) float64) []float64 {
	vals := make([]float64, 0, len(rmt))
	for _, cm := range rmt {
		vals = append(vals, get(cm))
	}
	sort.Float64s(vals)
	out := vals[:0]
	for i, v := range vals {
		if i == 0 || v != vals[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// slotTable maps each metric component value to its class
// representative.
func slotTable(vals []float64, e float64) map[float64]float64 {
	idx, reps, _ := cover(vals, e, CoverMid)
	t := make(map[float64]float64, len(vals))
	for i, v := range vals {
		t[v] = reps[idx[i]]
	}
	return t
}

// collectTriples builds the reduced table from per-component
// representative maps, counting references per triple and ordering
// slots by descending count, stable in first-seen order.
func collectTriples(rmt RawMetric, wrep, hrep, drep map[float64]float64) Reduced {
	type slot struct {
		t     Triple
		count int
		seen  int
	}
	var slots []*slot
	bySlot := make(map[Triple]*slot)
	index := make(map[int]int, len(rmt))
	order := make(map[int]Triple, len(rmt))
	for _, cm := range rmt {
		t := Triple{wrep[cm.W], hrep[cm.H], drep[cm.D]}
		order[cm.Code] = t
		s, ok := bySlot[t]
		if !ok {
			s = &slot{t: t, seen: len(slots)}
			bySlot[t] = s
			slots = append(slots, s)
		}
		s.count++
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].count > slots[j].count
	})
	red := Reduced{Index: index, Values: []Triple{{}}}
	pos := make(map[Triple]int)
	pos[Triple{}] = 0
	for _, s := range slots {
		if _, ok := pos[s.t]; ok {
			continue // the zero triple keeps its reserved slot
		}
		pos[s.t] = len(red.Values)
		red.Values = append(red.Values, s.t)
	}
	for _, cm := range rmt {
		index[cm.Code] = pos[order[cm.Code]]
	}
	return red
}

// Reduce is the classic TFM-style reduction. Widths must not exceed
// 255 distinct values; heights and depths are rounded independently
// into at most 15 classes (slot 0 stays reserved for zero).
func Reduce(rmt RawMetric) (Reduced, error) {
	widths := distinctSorted(rmt, func(c CharMetric) float64 { return c.W })
	if len(widths) > 255 {
		return Reduced{}, core.Error(core.ESEMANTIC,
			"%d distinct widths, at most 255 are representable", len(widths))
	}
	wrep := make(map[float64]float64, len(widths))
	for _, w := range widths {
		wrep[w] = w
	}
	heights := distinctSorted(rmt, func(c CharMetric) float64 { return c.H })
	depths := distinctSorted(rmt, func(c CharMetric) float64 { return c.D })
	hrep := slotTable(heights, shorten(heights, 15))
	drep := slotTable(depths, shorten(depths, 15))
	return collectTriples(rmt, wrep, hrep, drep), nil
}

// reduceWithBounds runs the component covers for one (dw, dh) choice
// and reports the resulting number of value-table entries.
func reduceWithBounds(rmt RawMetric, dw, dh float64) (Reduced, int) {
	widths := distinctSorted(rmt, func(c CharMetric) float64 { return c.W })
	heights := distinctSorted(rmt, func(c CharMetric) float64 { return c.H })
	depths := distinctSorted(rmt, func(c CharMetric) float64 { return c.D })
	red := collectTriples(rmt,
		slotTable(widths, dw), slotTable(heights, dh), slotTable(depths, dh))
	return red, len(red.Values)
}

// searchBound binary-searches the smallest bound d in [0, hiLimit]
// for which ok(d) holds, converging to within eps. A doubling probe
// establishes the bracket first.
func searchBound(hiLimit, eps float64, ok func(float64) bool) (float64, error) {
	if ok(0) {
		return 0, nil
	}
	lo, hi := 0.0, eps
	for !ok(hi) {
		lo = hi
		hi *= 2
		if hi > hiLimit {
			if !ok(hiLimit) {
				return 0, core.Error(core.ESEMANTIC,
					"metric table cannot be reduced within bound %g", hiLimit)
			}
			hi = hiLimit
			break
		}
	}
	for hi-lo > eps {
		mid := (lo + hi) / 2
		if ok(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, nil
}

// dhSearchLimit delimits the height/depth bound search.
const dhSearchLimit = 2048

// Convergence thresholds, finer than one fixed-point unit.
const (
	epsJPL  = 9e-7
	epsJPLX = 1e-7
)

// ReduceJPL reduces with a given width bound dw; the shared
// height/depth bound is binary-searched so that the value table fits
// 256 entries. It returns the bounds actually honored together with
// the reduction.
func ReduceJPL(rmt RawMetric, dw float64) (float64, float64, Reduced, error) {
	dh, err := searchBound(dhSearchLimit, epsJPL, func(d float64) bool {
		_, n := reduceWithBounds(rmt, dw, d)
		return n <= maxTriples
	})
	if err != nil {
		return 0, 0, Reduced{}, err
	}
	red, _ := reduceWithBounds(rmt, dw, dh)
	tracer().Debugf("jfm reduce: dw=%g dh=%g slots=%d", dw, dh, len(red.Values))
	return dw, dh, red, nil
}

// ReduceJPLX reduces with a single bound d, applied to heights and
// depths directly and to widths scaled down by the given ratio.
func ReduceJPLX(rmt RawMetric, ratio float64) (float64, Reduced, error) {
	if ratio <= 0 {
		return 0, Reduced{}, core.Error(core.ESEMANTIC, "width ratio must be positive: %g", ratio)
	}
	d, err := searchBound(dhSearchLimit, epsJPLX, func(d float64) bool {
		_, n := reduceWithBounds(rmt, d/ratio, d)
		return n <= maxTriples
	})
	if err != nil {
		return 0, Reduced{}, err
	}
	red, _ := reduceWithBounds(rmt, d/ratio, d)
	tracer().Debugf("jfm reduce/x: d=%g slots=%d", d, len(red.Values))
	return d, red, nil
}
