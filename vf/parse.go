package vf

import (
	"github.com/zr-tex8r/ZRTeXtor/core"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

// VF record opcodes.
const (
	opLongChar = 242
	opFntDef1  = 243
	opPre      = 247
	opPost     = 248
	preID      = 202
)

func u24(b []byte) int64 {
	return int64(b[0])<<16 | int64(b[1])<<8 | int64(b[2])
}

func u32(b []byte) int64 {
	return int64(b[0])<<24 | int64(b[1])<<16 | int64(b[2])<<8 | int64(b[3])
}

func s32(b []byte) int64 {
	return int64(int32(u32(b)))
}

// Parse decodes a VF byte string into its ZPL property-list form.
func Parse(b []byte, cfg *Config) (pl.Struct, error) {
	cfg = cfg.orDefault()
	if len(b) < 11 || b[0] != opPre || b[1] != preID {
		return nil, core.Error(core.ESTRUCTURE, "not a VF file (bad preamble)")
	}
	k := int(b[2])
	if len(b) < 3+k+8 {
		return nil, core.Error(core.ESTRUCTURE, "VF preamble truncated")
	}
	vtitle := string(b[3 : 3+k])
	cs := u32(b[3+k:])
	ds := s32(b[3+k+4:])
	//
	vt := pl.NewList("VTITLE")
	if vtitle != "" {
		vt.Append(pl.Raw(vtitle))
	}
	st := pl.Struct{
		vt,
		pl.NewList("CHECKSUM", pl.NewNumber(pl.NumI, cs)),
		pl.NewList("DESIGNSIZE", pl.NewNumber(pl.NumR, ds)),
	}
	//
	i := 3 + k + 8
	stage := 1
	for i < len(b) {
		op := b[i]
		switch {
		case op <= 241 || op == opLongChar:
			ch, next, err := parseCharPacket(b, i, cfg)
			if err != nil {
				return nil, err
			}
			st = append(st, ch)
			i = next
			stage = 2
		case op >= opFntDef1 && op <= opFntDef1+3:
			if stage != 1 {
				if cfg.Strict {
					return nil, core.Error(core.ESTRUCTURE,
						"font definition after character packets (offset %d)", i)
				}
				tracer().Infof("vf: font definition after character packets at offset %d", i)
			}
			mf, next, err := parseFontDef(b, i)
			if err != nil {
				return nil, err
			}
			st = append(st, mf)
			i = next
		case op == opPost:
			for j := i; j < len(b); j++ {
				if b[j] != opPost {
					return nil, core.Error(core.ESTRUCTURE,
						"byte %d after postamble marker (offset %d)", b[j], j)
				}
			}
			if len(b)%4 != 0 && cfg.Strict {
				return nil, core.Error(core.ESTRUCTURE, "VF not padded to a 4-byte boundary")
			}
			return st, nil
		default:
			return nil, core.Error(core.ESTRUCTURE, "unexpected byte %d at offset %d", op, i)
		}
	}
	if cfg.Strict {
		return nil, core.Error(core.ESTRUCTURE, "VF ends without a postamble")
	}
	return st, nil
}

func parseCharPacket(b []byte, i int, cfg *Config) (*pl.List, int, error) {
	var plen, cc, wd int64
	if b[i] == opLongChar {
		if i+13 > len(b) {
			return nil, 0, core.Error(core.ESTRUCTURE, "long character packet truncated (offset %d)", i)
		}
		plen = u32(b[i+1:])
		cc = u32(b[i+5:])
		wd = s32(b[i+9:])
		i += 13
	} else {
		if i+5 > len(b) {
			return nil, 0, core.Error(core.ESTRUCTURE, "character packet truncated (offset %d)", i)
		}
		plen = int64(b[i])
		cc = int64(b[i+1])
		wd = u24(b[i+2:])
		i += 5
	}
	if int64(i)+plen > int64(len(b)) {
		return nil, 0, core.Error(core.ESTRUCTURE, "DVI program truncated (offset %d)", i)
	}
	dvi := b[i : i+int(plen)]
	i += int(plen)
	//
	ch := pl.NewList("CHARACTER", pl.NewNumber(pl.NumC, cc),
		pl.NewList("CHARWD", pl.NewNumber(pl.NumR, wd)))
	nodes, err := parseDVI(dvi, cfg)
	if err != nil {
		if cfg.Strict {
			return nil, 0, core.WrapError(err, core.ESYNTAX,
				"bad DVI program for character %d", cc)
		}
		tracer().Infof("vf: preserving unparsable DVI of character %d as DIRECTHEX", cc)
		ch.Append(pl.NewList("DIRECTHEX", pl.Raw(hexString(dvi))))
		return ch, i, nil
	}
	m := pl.NewList("MAP")
	m.Append(nodes...)
	ch.Append(m)
	return ch, i, nil
}

func parseFontDef(b []byte, i int) (*pl.List, int, error) {
	nid := int(b[i]-opFntDef1) + 1
	i++
	need := nid + 4 + 4 + 4 + 2
	if i+need > len(b) {
		return nil, 0, core.Error(core.ESTRUCTURE, "font definition truncated (offset %d)", i)
	}
	var id int64
	for k := 0; k < nid; k++ {
		id = id<<8 | int64(b[i+k])
	}
	i += nid
	fcs := u32(b[i:])
	fat := s32(b[i+4:])
	fds := s32(b[i+8:])
	alen := int(b[i+12])
	nlen := int(b[i+13])
	i += 14
	if i+alen+nlen > len(b) {
		return nil, 0, core.Error(core.ESTRUCTURE, "font name truncated (offset %d)", i)
	}
	area := string(b[i : i+alen])
	name := string(b[i+alen : i+alen+nlen])
	i += alen + nlen
	//
	mf := pl.NewList("MAPFONT", pl.NewNumber(pl.NumD, id),
		pl.NewList("FONTNAME", pl.Raw(name)))
	if area != "" {
		mf.Append(pl.NewList("FONTAREA", pl.Raw(area)))
	}
	mf.Append(
		pl.NewList("FONTCHECKSUM", pl.NewNumber(pl.NumI, fcs)),
		pl.NewList("FONTAT", pl.NewNumber(pl.NumR, fat)),
		pl.NewList("FONTDSIZE", pl.NewNumber(pl.NumR, fds)),
	)
	return mf, i, nil
}
