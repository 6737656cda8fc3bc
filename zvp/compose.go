package zvp

import (
	"sort"

	"github.com/zr-tex8r/ZRTeXtor/charlist"
	"github.com/zr-tex8r/ZRTeXtor/core"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

// chDesc is the description recovered from one VF character packet.
type chDesc struct {
	wd int64
	m  *pl.List
}

// Compose reassembles a composite ZVP tree from a parsed VF half and a
// parsed JFM half. It is the inverse of Divide up to canonical
// property order.
func Compose(vfSide, jfmSide pl.Struct, cfg *Config) (pl.Struct, error) {
	cfg = cfg.orDefault()
	out := pl.Struct{}
	//
	// shared properties must be consistent; checksum mismatches are
	// tolerated iff one side is zero
	both, err := mergeShared(vfSide, jfmSide)
	if err != nil {
		return nil, err
	}
	out = append(out, both...)
	//
	types := make(map[int]*pl.List)
	cit := make(map[int]charlist.List)
	for _, l := range jfmSide {
		switch headCategory[l.Head()] {
		case catJFM:
			out = append(out, pl.CloneDeep(l).(*pl.List))
		case catStructural:
			switch l.Head() {
			case "TYPE":
				t, err := typeIndex(l, 0)
				if err != nil {
					return nil, err
				}
				types[t] = l
			case "CHARSINTYPE":
				t, err := typeIndex(l, 0)
				if err != nil {
					return nil, err
				}
				cl, err := charlist.ParseNodes(membersAfter(l, 1), cfg.cl())
				if err != nil {
					return nil, err
				}
				cit[t] = charlist.Union(cit[t], cl)
			case "GLUEKERN":
				out = append(out, pl.CloneDeep(l).(*pl.List))
			}
		}
	}
	//
	chdsc := make(map[int]chDesc)
	var space charlist.List
	for _, l := range vfSide {
		switch l.Head() {
		case "CHARACTER":
			n := l.FirstNumber()
			if n == nil {
				return nil, core.Error(core.ESYNTAX, "CHARACTER without a code")
			}
			c := int(n.Value)
			wd, _ := metricValue(l, "CHARWD")
			chdsc[c] = chDesc{wd: wd, m: l.Sublist("MAP")}
			space = append(space, charlist.Item{Lo: c, Hi: c})
		case "VTITLE", "MAPFONT":
			out = append(out, pl.CloneDeep(l).(*pl.List))
		}
	}
	space = charlist.Normalize(space)
	//
	typed := charlist.List{}
	for t, members := range cit {
		if t != 0 {
			typed = charlist.Union(typed, members)
		}
	}
	//
	for _, t := range sortedTypeIndices(types) {
		members := cit[t]
		if t == 0 {
			members = charlist.Diff(space, typed)
		}
		tl, extras, err := composeType(t, types[t], members, chdsc, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, tl)
		if t != 0 && members.Count() > 0 {
			citl := pl.NewList("CHARSINTYPE", pl.NewNumber(pl.NumD, int64(t)))
			citl.Append(charlist.UnparseNodes(members, cfg.cl())...)
			out = append(out, citl)
		}
		out = append(out, extras...)
	}
	//
	out = append(out, codespaceList(space, cfg))
	pl.Rearrange(out)
	return out, nil
}

// mergeShared verifies the both-category properties of the two halves
// and returns the merged lists.
func mergeShared(vfSide, jfmSide pl.Struct) ([]*pl.List, error) {
	var merged []*pl.List
	vds, jds := vfSide.FindHead("DESIGNSIZE"), jfmSide.FindHead("DESIGNSIZE")
	switch {
	case vds != nil && jds != nil:
		v1, _ := vds.Value()
		v2, _ := jds.Value()
		if v1 != v2 {
			return nil, core.Error(core.ESEMANTIC,
				"DESIGNSIZE differs between VF (%d) and JFM (%d)", v1, v2)
		}
		merged = append(merged, pl.CloneDeep(jds).(*pl.List))
	case jds != nil:
		merged = append(merged, pl.CloneDeep(jds).(*pl.List))
	case vds != nil:
		merged = append(merged, pl.CloneDeep(vds).(*pl.List))
	}
	vcs, jcs := vfSide.FindHead("CHECKSUM"), jfmSide.FindHead("CHECKSUM")
	switch {
	case vcs != nil && jcs != nil:
		v1, _ := vcs.Value()
		v2, _ := jcs.Value()
		if v1 != v2 && v1 != 0 && v2 != 0 {
			return nil, core.Error(core.ESEMANTIC,
				"CHECKSUM differs between VF (%o) and JFM (%o)", v1, v2)
		}
		keep := jcs
		if v2 == 0 && v1 != 0 {
			keep = vcs
		}
		merged = append(merged, pl.CloneDeep(keep).(*pl.List))
	case jcs != nil:
		merged = append(merged, pl.CloneDeep(jcs).(*pl.List))
	case vcs != nil:
		merged = append(merged, pl.CloneDeep(vcs).(*pl.List))
	}
	return merged, nil
}

// mapBucket groups the members of one type by their serialized
// mapping.
type mapBucket struct {
	key   string
	m     *pl.List
	codes []int
}

// composeType recovers the TYPE list, the SUBTYPE/CHARSINSUBTYPE
// lists and the leftover explicit CHARACTERs for one type: members are
// bucketed by their mapping after self-code contraction; the largest
// bucket becomes the type's own mapping, buckets referenced more than
// once become subtypes while slots last, the tail stays per-character.
func composeType(t int, typ *pl.List, members charlist.List,
	chdsc map[int]chDesc, cfg *Config) (*pl.List, []*pl.List, error) {
	//
	var buckets []*mapBucket
	byKey := make(map[string]*mapBucket)
	var typeWd int64
	if wd, ok := metricValue(typ, "CHARWD"); ok {
		typeWd = wd
	}
	for _, c := range members.Codes() {
		dsc, ok := chdsc[c]
		if !ok {
			if cfg.Strict {
				return nil, nil, core.Error(core.ESTRUCTURE,
					"no character packet for code %#x of type %d", c, t)
			}
			tracer().Infof("zvp: no character packet for code %#x, skipping", c)
			continue
		}
		if dsc.wd != typeWd {
			if cfg.Strict {
				return nil, nil, core.Error(core.ESEMANTIC,
					"CHARWD of code %#x disagrees with TYPE %d", c, t)
			}
			tracer().Infof("zvp: CHARWD of code %#x disagrees with type %d", c, t)
		}
		m := contractSelfCode(dsc.m, c)
		key := ""
		if m != nil {
			s, err := pl.EmitList(m, -1, cfg.pl())
			if err != nil {
				return nil, nil, err
			}
			key = s
		}
		b, seen := byKey[key]
		if !seen {
			b = &mapBucket{key: key, m: m}
			byKey[key] = b
			buckets = append(buckets, b)
		}
		b.codes = append(b.codes, c)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return len(buckets[i].codes) > len(buckets[j].codes)
	})
	//
	tl := pl.CloneDeep(typ).(*pl.List)
	var extras []*pl.List
	u := 1
	for slot, b := range buckets {
		switch {
		case slot == 0:
			if b.m != nil {
				tl.Append(pl.CloneDeep(b.m))
			}
		case len(b.codes) > 1 && slot < 256:
			sub := pl.NewList("SUBTYPE",
				pl.NewNumber(pl.NumD, int64(t)), pl.NewNumber(pl.NumD, int64(u)))
			if b.m != nil {
				sub.Append(pl.CloneDeep(b.m))
			}
			cisub := pl.NewList("CHARSINSUBTYPE",
				pl.NewNumber(pl.NumD, int64(t)), pl.NewNumber(pl.NumD, int64(u)))
			cisub.Append(charlist.UnparseNodes(charlist.FromCodes(b.codes), cfg.cl())...)
			extras = append(extras, sub, cisub)
			u++
		default:
			for _, c := range b.codes {
				ch := pl.NewList("CHARACTER", pl.NewNumber(pl.NumC, int64(c)))
				if b.m != nil {
					ch.Append(pl.CloneDeep(b.m))
				}
				extras = append(extras, ch)
			}
		}
	}
	return tl, extras, nil
}

// contractSelfCode replaces SETCHAR operators naming the packet's own
// code with the bare SETCHAR. Nesting is deliberately not considered,
// matching the upstream behavior.
func contractSelfCode(m *pl.List, c int) *pl.List {
	if m == nil {
		return nil
	}
	nl := pl.CloneDeep(m).(*pl.List)
	for i, e := range nl.Elems {
		if sub, ok := e.(*pl.List); ok && sub.Head() == "SETCHAR" {
			if n := sub.FirstNumber(); n != nil && n.Value == int64(c) {
				nl.Elems[i] = pl.NewList("SETCHAR")
			}
		}
	}
	return nl
}
