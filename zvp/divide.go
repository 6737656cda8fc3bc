package zvp

import (
	"sort"

	"github.com/zr-tex8r/ZRTeXtor/charlist"
	"github.com/zr-tex8r/ZRTeXtor/core"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

type subKey struct {
	t, u int
}

// document holds the side tables extracted from a composite ZVP tree.
type document struct {
	jfmProps  []*pl.List
	vfProps   []*pl.List
	bothProps []*pl.List
	types     map[int]*pl.List
	subtypes  map[subKey]*pl.List
	cit       map[int]charlist.List
	cist      map[subKey]charlist.List
	chars     map[int]*pl.List
	gluekern  *pl.List
	codespace charlist.List
	hasSpace  bool
}

func newDocument() *document {
	return &document{
		types:    make(map[int]*pl.List),
		subtypes: make(map[subKey]*pl.List),
		cit:      make(map[int]charlist.List),
		cist:     make(map[subKey]charlist.List),
		chars:    make(map[int]*pl.List),
	}
}

// classify sorts the top-level lists of a ZVP tree into the document's
// side tables.
func classify(z pl.Struct, cfg *Config) (*document, error) {
	d := newDocument()
	for _, l := range z {
		cat, known := headCategory[l.Head()]
		if !known {
			if cfg.Strict {
				return nil, core.Error(core.ESTRUCTURE, "unknown property %s", l.Head())
			}
			tracer().Infof("zvp: dropping unknown property %s", l.Head())
			continue
		}
		switch cat {
		case catJFM:
			d.jfmProps = append(d.jfmProps, l)
		case catVF:
			d.vfProps = append(d.vfProps, l)
		case catBoth:
			d.bothProps = append(d.bothProps, l)
		case catStructural:
			if err := d.addStructural(l, cfg); err != nil {
				return nil, err
			}
		}
	}
	if !d.hasSpace {
		gl, _ := charlist.Lookup("GL94DB")
		d.codespace = gl
	}
	return d, nil
}

func (d *document) addStructural(l *pl.List, cfg *Config) error {
	switch l.Head() {
	case "TYPE":
		t, err := typeIndex(l, 0)
		if err != nil {
			return err
		}
		if _, dup := d.types[t]; dup {
			return core.Error(core.ESEMANTIC, "duplicate TYPE %d", t)
		}
		d.types[t] = l
	case "SUBTYPE":
		t, err := typeIndex(l, 0)
		if err != nil {
			return err
		}
		u, err := subtypeIndex(l)
		if err != nil {
			return err
		}
		k := subKey{t, u}
		if _, dup := d.subtypes[k]; dup {
			return core.Error(core.ESEMANTIC, "duplicate SUBTYPE %d %d", t, u)
		}
		d.subtypes[k] = l
	case "CHARSINTYPE":
		t, err := typeIndex(l, 0)
		if err != nil {
			return err
		}
		cl, err := charlist.ParseNodes(membersAfter(l, 1), cfg.cl())
		if err != nil {
			return err
		}
		d.cit[t] = charlist.Union(d.cit[t], cl)
	case "CHARSINSUBTYPE":
		t, err := typeIndex(l, 0)
		if err != nil {
			return err
		}
		u, err := subtypeIndex(l)
		if err != nil {
			return err
		}
		cl, err := charlist.ParseNodes(membersAfter(l, 2), cfg.cl())
		if err != nil {
			return err
		}
		k := subKey{t, u}
		d.cist[k] = charlist.Union(d.cist[k], cl)
	case "CHARACTER":
		n := l.FirstNumber()
		if n == nil {
			return core.Error(core.ESYNTAX, "CHARACTER without a code")
		}
		d.chars[int(n.Value)] = l
	case "GLUEKERN":
		d.gluekern = l
	case "CODESPACE":
		cl, err := spaceMembers(l, cfg)
		if err != nil {
			return err
		}
		d.codespace = cl
		d.hasSpace = true
	}
	return nil
}

// spaceMembers reads a CODESPACE body, which is either a registered
// charlist name or explicit members.
func spaceMembers(l *pl.List, cfg *Config) (charlist.List, error) {
	if len(l.Elems) == 2 {
		if s, ok := l.Elems[1].(pl.Raw); ok {
			if cl, found := charlist.Lookup(string(s)); found {
				return cl, nil
			}
		}
		if s, ok := l.Elems[1].(pl.Bareword); ok {
			if cl, found := charlist.Lookup(string(s)); found {
				return cl, nil
			}
		}
	}
	return charlist.ParseNodes(l.Elems[1:], cfg.cl())
}

// typeIndex reads the i-th numeric argument of a list as a type index.
func typeIndex(l *pl.List, i int) (int, error) {
	n := l.NumberAt(i)
	if n == nil {
		return 0, core.Error(core.ESYNTAX, "%s without a type number", l.Head())
	}
	if n.Value < 0 || n.Value > 255 {
		return 0, core.Error(core.ESEMANTIC, "type index %d out of range", n.Value)
	}
	return int(n.Value), nil
}

func subtypeIndex(l *pl.List) (int, error) {
	n := l.NumberAt(1)
	if n == nil {
		return 0, core.Error(core.ESYNTAX, "%s without a subtype number", l.Head())
	}
	if n.Value < 1 || n.Value > 0xffff {
		return 0, core.Error(core.ESEMANTIC, "subtype index %d out of range", n.Value)
	}
	return int(n.Value), nil
}

// membersAfter returns the elements following the first n cooked
// numbers (and the head) of a list.
func membersAfter(l *pl.List, n int) []pl.Node {
	seen := 0
	for i := 1; i < len(l.Elems); i++ {
		if _, ok := l.Elems[i].(*pl.Number); ok {
			seen++
			if seen == n {
				return l.Elems[i+1:]
			}
		}
	}
	return nil
}

// check runs the divider's consistency checks on the extracted tables.
func (d *document) check() error {
	for k, members := range d.cist {
		parent := d.cit[k.t]
		for _, c := range members.Codes() {
			if !parent.Contains(c) {
				return core.Error(core.ESEMANTIC,
					"SUBTYPE %d %d assigns code %#x outside CHARSINTYPE %d", k.t, k.u, c, k.t)
			}
		}
	}
	owner := make(map[int]subKey)
	for _, k := range sortedSubKeys(d.cist) {
		for _, c := range d.cist[k].Codes() {
			if prev, dup := owner[c]; dup && prev.t == k.t {
				return core.Error(core.ESEMANTIC,
					"code %#x already assigned to SUBTYPE %d %d", c, prev.t, prev.u)
			}
			owner[c] = k
		}
	}
	typeOwner := make(map[int]int)
	for _, t := range sortedTypeKeys(d.cit) {
		if t == 0 {
			continue
		}
		for _, c := range d.cit[t].Codes() {
			if !d.codespace.Contains(c) {
				return core.Error(core.ESEMANTIC,
					"TYPE %d assigns code %#x outside the codespace", t, c)
			}
			if prev, dup := typeOwner[c]; dup {
				return core.Error(core.ESEMANTIC,
					"code %#x already assigned to TYPE %d", c, prev)
			}
			typeOwner[c] = t
		}
	}
	for t := range d.types {
		if t >= 1 {
			if _, ok := d.cit[t]; !ok {
				return core.Error(core.ESTRUCTURE, "TYPE %d has no CHARSINTYPE", t)
			}
		}
	}
	for t := range d.cit {
		if t >= 1 {
			if _, ok := d.types[t]; !ok {
				return core.Error(core.ESTRUCTURE, "CHARSINTYPE %d has no TYPE", t)
			}
		}
	}
	return nil
}

func sortedSubKeys(m map[subKey]charlist.List) []subKey {
	keys := make([]subKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].t != keys[j].t {
			return keys[i].t < keys[j].t
		}
		return keys[i].u < keys[j].u
	})
	return keys
}

func sortedTypeKeys(m map[int]charlist.List) []int {
	keys := make([]int, 0, len(m))
	for t := range m {
		keys = append(keys, t)
	}
	sort.Ints(keys)
	return keys
}

// migrate relocates subtypes whose metrics disagree with their parent
// type. The first disagreeing subtype of a type allocates a fresh type
// index, later ones become subtypes of the new type. The returned
// migration groups map each original type to its new companion types.
func (d *document) migrate() (map[int][]int, error) {
	groups := make(map[int][]int)
	keys := make([]subKey, 0, len(d.subtypes))
	for k := range d.subtypes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].t != keys[j].t {
			return keys[i].t < keys[j].t
		}
		return keys[i].u < keys[j].u
	})
	for _, k := range keys {
		sub := d.subtypes[k]
		typ := d.types[k.t]
		if typ == nil {
			return nil, core.Error(core.ESTRUCTURE, "SUBTYPE %d %d has no TYPE %d", k.t, k.u, k.t)
		}
		if metricsAgree(sub, typ) {
			continue
		}
		members := d.cist[k]
		if len(groups[k.t]) == 0 {
			tn, err := d.nextFreeType()
			if err != nil {
				return nil, err
			}
			groups[k.t] = append(groups[k.t], tn)
			tracer().Debugf("zvp: subtype %d %d migrates to new type %d", k.t, k.u, tn)
			d.types[tn] = retypeList(sub, tn)
			delete(d.subtypes, k)
			delete(d.cist, k)
		} else {
			tn := groups[k.t][0]
			tracer().Debugf("zvp: subtype %d %d joins migrated type %d", k.t, k.u, tn)
			nk := subKey{tn, k.u}
			d.subtypes[nk] = resubList(sub, tn, k.u)
			d.cist[nk] = members
			delete(d.subtypes, k)
			delete(d.cist, k)
		}
		tn := groups[k.t][0]
		d.cit[k.t] = charlist.Diff(d.cit[k.t], members)
		d.cit[tn] = charlist.Union(d.cit[tn], members)
	}
	return groups, nil
}

// metricsAgree compares the metric entries of a subtype to its parent
// type; a metric absent from the subtype inherits and agrees.
func metricsAgree(sub, typ *pl.List) bool {
	for _, head := range metricHeads {
		sv, sok := metricValue(sub, head)
		if !sok {
			continue
		}
		tv, _ := metricValue(typ, head)
		if sv != tv {
			return false
		}
	}
	return true
}

func (d *document) nextFreeType() (int, error) {
	for t := 1; t <= 255; t++ {
		if _, used := d.types[t]; !used {
			return t, nil
		}
	}
	return 0, core.Error(core.ESEMANTIC, "no free type index for subtype migration")
}

// retypeList rebuilds a SUBTYPE body as a TYPE list with a new index.
func retypeList(sub *pl.List, t int) *pl.List {
	nl := pl.NewList("TYPE", pl.NewNumber(pl.NumD, int64(t)))
	for _, e := range sub.Elems[1:] {
		if _, isNum := e.(*pl.Number); isNum {
			continue // the old t/u indices
		}
		nl.Append(pl.CloneDeep(e))
	}
	return nl
}

// resubList rebuilds a SUBTYPE body under a new parent type.
func resubList(sub *pl.List, t, u int) *pl.List {
	nl := pl.NewList("SUBTYPE",
		pl.NewNumber(pl.NumD, int64(t)), pl.NewNumber(pl.NumD, int64(u)))
	seen := 0
	for _, e := range sub.Elems[1:] {
		if _, isNum := e.(*pl.Number); isNum && seen < 2 {
			seen++
			continue
		}
		nl.Append(pl.CloneDeep(e))
	}
	return nl
}

// recompileGlueKern duplicates every LABEL/GLUE/KRN row naming a
// migrated type for each member of its migration group.
func recompileGlueKern(gk *pl.List, groups map[int][]int) *pl.List {
	if gk == nil {
		return nil
	}
	out := pl.NewList("GLUEKERN")
	for _, e := range gk.Elems[1:] {
		row, ok := e.(*pl.List)
		if !ok {
			out.Append(e)
			continue
		}
		out.Append(pl.CloneDeep(row))
		switch row.Head() {
		case "LABEL", "GLUE", "KRN":
			n := row.FirstNumber()
			if n == nil {
				continue
			}
			for _, tn := range groups[int(n.Value)] {
				dup := pl.CloneDeep(row).(*pl.List)
				dup.FirstNumber().SetValue(int64(tn))
				out.Append(dup)
			}
		}
	}
	return out
}

// Divide splits a composite ZVP tree into its VF half and its JFM
// half.
func Divide(z pl.Struct, cfg *Config) (pl.Struct, pl.Struct, error) {
	cfg = cfg.orDefault()
	d, err := classify(z, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err = d.check(); err != nil {
		return nil, nil, err
	}
	groups, err := d.migrate()
	if err != nil {
		return nil, nil, err
	}
	gk := recompileGlueKern(d.gluekern, groups)
	//
	// VF half: VF-only and shared properties plus one synthesized
	// character packet per code of the codespace
	vfSide := pl.Struct{}
	for _, l := range d.vfProps {
		vfSide = append(vfSide, pl.CloneDeep(l).(*pl.List))
	}
	for _, l := range d.bothProps {
		vfSide = append(vfSide, pl.CloneDeep(l).(*pl.List))
	}
	packets, err := d.synthesizePackets(cfg)
	if err != nil {
		return nil, nil, err
	}
	vfSide = append(vfSide, packets...)
	//
	// JFM half: JFM-only and shared properties, types with their
	// mapping stripped, charlists, glue/kern program
	jfmSide := pl.Struct{}
	for _, l := range d.jfmProps {
		jfmSide = append(jfmSide, pl.CloneDeep(l).(*pl.List))
	}
	for _, l := range d.bothProps {
		jfmSide = append(jfmSide, pl.CloneDeep(l).(*pl.List))
	}
	for _, t := range sortedTypeIndices(d.types) {
		jfmSide = append(jfmSide, stripMapping(d.types[t]))
	}
	for _, t := range sortedTypeKeys(d.cit) {
		if t == 0 || d.cit[t].Count() == 0 {
			continue
		}
		citl := pl.NewList("CHARSINTYPE", pl.NewNumber(pl.NumD, int64(t)))
		citl.Append(charlist.UnparseNodes(d.cit[t], cfg.cl())...)
		jfmSide = append(jfmSide, citl)
	}
	if gk != nil {
		jfmSide = append(jfmSide, gk)
	}
	if d.hasSpace {
		jfmSide = append(jfmSide, codespaceList(d.codespace, cfg))
	}
	//
	pl.Rearrange(vfSide)
	pl.Rearrange(jfmSide)
	return vfSide, jfmSide, nil
}

func sortedTypeIndices(m map[int]*pl.List) []int {
	keys := make([]int, 0, len(m))
	for t := range m {
		keys = append(keys, t)
	}
	sort.Ints(keys)
	return keys
}

// stripMapping clones a TYPE list without its MAP sublists.
func stripMapping(typ *pl.List) *pl.List {
	nl := &pl.List{}
	for _, e := range typ.Elems {
		if sub, ok := e.(*pl.List); ok && sub.Head() == "MAP" {
			continue
		}
		nl.Append(pl.CloneDeep(e))
	}
	return nl
}

// codespaceList serializes a codespace, preferring a registered name.
func codespaceList(cl charlist.List, cfg *Config) *pl.List {
	l := pl.NewList("CODESPACE")
	if name, ok := charlist.MatchName(cl); ok {
		l.Append(pl.Raw(name))
		return l
	}
	l.Append(charlist.UnparseNodes(cl, cfg.cl())...)
	return l
}

// synthesizePackets builds one VF character packet per code of the
// codespace: the width comes from the code's type, the mapping from
// the most specific description available (explicit character,
// subtype, type).
func (d *document) synthesizePackets(cfg *Config) ([]*pl.List, error) {
	typeOf := make(map[int]int)
	for t, members := range d.cit {
		for _, c := range members.Codes() {
			typeOf[c] = t
		}
	}
	subOf := make(map[int]subKey)
	for k, members := range d.cist {
		for _, c := range members.Codes() {
			subOf[c] = k
		}
	}
	var packets []*pl.List
	for _, c := range d.codespace.Codes() {
		t := typeOf[c]
		typ := d.types[t]
		if typ == nil {
			return nil, core.Error(core.ESTRUCTURE, "no TYPE %d for code %#x", t, c)
		}
		wd, ok := metricValue(typ, "CHARWD")
		if !ok {
			return nil, core.Error(core.ESTRUCTURE, "TYPE %d has no CHARWD", t)
		}
		var m *pl.List
		if ch := d.chars[c]; ch != nil && ch.Sublist("MAP") != nil {
			m = ch.Sublist("MAP")
		} else if k, in := subOf[c]; in && d.subtypes[k] != nil && d.subtypes[k].Sublist("MAP") != nil {
			m = d.subtypes[k].Sublist("MAP")
		} else {
			m = typ.Sublist("MAP")
		}
		packet := pl.NewList("CHARACTER", pl.NewNumber(pl.NumC, int64(c)),
			pl.NewList("CHARWD", pl.NewNumber(pl.NumR, wd)))
		if m != nil {
			packet.Append(pl.CloneDeep(m))
		}
		packets = append(packets, packet)
	}
	return packets, nil
}
