package vf

import (
	"strings"

	"github.com/zr-tex8r/ZRTeXtor/core"
	"github.com/zr-tex8r/ZRTeXtor/core/fixed"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

// Emit encodes a ZPL property-list tree as VF bytes. Character packets
// take the short form iff code ≤ 255, 0 ≤ width ≤ 2^24−1 and the DVI
// program is at most 241 bytes long.
func Emit(st pl.Struct, cfg *Config) ([]byte, error) {
	cfg = cfg.orDefault()
	var out []byte
	app32 := func(v int64) {
		out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	//
	vtitle := ""
	if vt := st.FindHead("VTITLE"); vt != nil {
		vtitle = joinAtoms(vt)
	}
	if len(vtitle) > 255 {
		return nil, core.Error(core.ESEMANTIC, "VTITLE longer than 255 bytes")
	}
	var cs int64
	if l := st.FindHead("CHECKSUM"); l != nil {
		if n := l.FirstNumber(); n != nil {
			cs = n.Value
		}
	}
	ds := int64(10) << 20
	if l := st.FindHead("DESIGNSIZE"); l != nil {
		if n := l.FirstNumber(); n != nil {
			ds = n.Value
		}
	} else if cfg.Strict {
		return nil, core.Error(core.ESTRUCTURE, "no DESIGNSIZE property")
	}
	out = append(out, opPre, preID, byte(len(vtitle)))
	out = append(out, vtitle...)
	app32(cs)
	app32(ds)
	//
	for _, l := range st {
		switch l.Head() {
		case "VTITLE", "CHECKSUM", "DESIGNSIZE":
			// consumed by the preamble
		case "MAPFONT":
			fd, err := emitFontDef(l, cfg)
			if err != nil {
				return nil, err
			}
			out = append(out, fd...)
		case "CHARACTER":
			cp, err := emitCharPacket(l, cfg)
			if err != nil {
				return nil, err
			}
			out = append(out, cp...)
		default:
			if cfg.Strict {
				return nil, core.Error(core.ESTRUCTURE, "unknown property %s in VF tree", l.Head())
			}
			tracer().Infof("vf: dropping unknown property %s", l.Head())
		}
	}
	//
	out = append(out, opPost)
	for len(out)%4 != 0 {
		out = append(out, opPost)
	}
	return out, nil
}

func joinAtoms(l *pl.List) string {
	var parts []string
	for _, e := range l.Elems[1:] {
		if s, ok := atomString(e); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func emitFontDef(l *pl.List, cfg *Config) ([]byte, error) {
	idnum := l.FirstNumber()
	if idnum == nil {
		return nil, core.Error(core.ESYNTAX, "MAPFONT without a font number")
	}
	id := idnum.Value
	if id < 0 || id > 1<<32-1 {
		return nil, core.Error(core.ESEMANTIC, "MAPFONT number out of range: %d", id)
	}
	name, area := "", ""
	if fn := l.Sublist("FONTNAME"); fn != nil {
		name = joinAtoms(fn)
	}
	if fa := l.Sublist("FONTAREA"); fa != nil {
		area = joinAtoms(fa)
	}
	if name == "" {
		return nil, core.Error(core.ESTRUCTURE, "MAPFONT D %d without FONTNAME", id)
	}
	if len(name) > 255 || len(area) > 255 {
		return nil, core.Error(core.ESEMANTIC, "font name or area longer than 255 bytes")
	}
	fcs := int64(0)
	if s := l.Sublist("FONTCHECKSUM"); s != nil {
		if n := s.FirstNumber(); n != nil {
			fcs = n.Value
		}
	}
	fat := int64(fixed.Unity)
	if s := l.Sublist("FONTAT"); s != nil {
		if n := s.FirstNumber(); n != nil {
			fat = n.Value
		}
	}
	fds := int64(10) << 20
	if s := l.Sublist("FONTDSIZE"); s != nil {
		if n := s.FirstNumber(); n != nil {
			fds = n.Value
		}
	}
	//
	nid := unsignedLen(id)
	out := []byte{byte(opFntDef1 + nid - 1)}
	for k := nid - 1; k >= 0; k-- {
		out = append(out, byte(id>>(uint(k)*8)))
	}
	for _, v := range []int64{fcs, fat, fds} {
		out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	out = append(out, byte(len(area)), byte(len(name)))
	out = append(out, area...)
	out = append(out, name...)
	return out, nil
}

func emitCharPacket(l *pl.List, cfg *Config) ([]byte, error) {
	ccnum := l.FirstNumber()
	if ccnum == nil {
		return nil, core.Error(core.ESYNTAX, "CHARACTER without a code")
	}
	cc := ccnum.Value
	if cc < 0 || cc > 1<<32-1 {
		return nil, core.Error(core.ESEMANTIC, "character code out of range: %d", cc)
	}
	var wd int64
	if s := l.Sublist("CHARWD"); s != nil {
		if n := s.FirstNumber(); n != nil {
			wd = n.Value
		}
	} else if cfg.Strict {
		return nil, core.Error(core.ESTRUCTURE, "character %d without CHARWD", cc)
	}
	//
	var dvi []byte
	var err error
	if dh := l.Sublist("DIRECTHEX"); dh != nil {
		dvi, err = hexBytes(dh)
	} else if m := l.Sublist("MAP"); m != nil {
		dvi, err = compileMAP(m, cc, cfg)
	}
	if err != nil {
		return nil, err
	}
	//
	var out []byte
	if cc <= 255 && wd >= 0 && wd <= 1<<24-1 && len(dvi) <= 241 {
		out = append(out, byte(len(dvi)), byte(cc), byte(wd>>16), byte(wd>>8), byte(wd))
	} else {
		out = append(out, opLongChar)
		for _, v := range []int64{int64(len(dvi)), cc, wd} {
			out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
		}
	}
	return append(out, dvi...), nil
}
