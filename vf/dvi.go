package vf

import (
	"strings"

	"github.com/zr-tex8r/ZRTeXtor/core"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

// DVI opcodes of the virtual-font subset.
const (
	dviSetChar1 = 128
	dviSetRule  = 132
	dviPush     = 141
	dviPop      = 142
	dviRight1   = 143
	dviW0       = 147
	dviW1       = 148
	dviX0       = 152
	dviX1       = 153
	dviDown1    = 157
	dviY0       = 161
	dviY1       = 162
	dviZ0       = 166
	dviZ1       = 167
	dviFntNum0  = 171
	dviFnt1     = 235
	dviXXX1     = 239
	dviDir      = 255
)

// regFrame holds the last-set values of the DVI move registers within
// one push/pop level.
type regFrame struct {
	w, x, y, z             int32
	wset, xset, yset, zset bool
}

// errReject signals that a byte string is not a well-formed DVI
// program; the caller may fall back to DIRECTHEX.
var errReject = core.Error(core.ESYNTAX, "not a well-formed DVI program")

// parseDVI decodes a character packet's DVI program into MAP nodes.
// On any byte not valid for its position it returns errReject.
func parseDVI(b []byte, cfg *Config) ([]pl.Node, error) {
	var nodes []pl.Node
	frame := regFrame{}
	var stack []regFrame
	i := 0
	u := func(n int) (int64, bool) { // unsigned n-byte operand
		if i+n > len(b) {
			return 0, false
		}
		var v int64
		for k := 0; k < n; k++ {
			v = v<<8 | int64(b[i+k])
		}
		i += n
		return v, true
	}
	s := func(n int) (int64, bool) { // signed n-byte operand
		v, ok := u(n)
		if !ok {
			return 0, false
		}
		if v >= 1<<(uint(n)*8-1) {
			v -= 1 << (uint(n) * 8)
		}
		return v, true
	}
	for i < len(b) {
		op := b[i]
		i++
		switch {
		case op <= 127:
			nodes = append(nodes, pl.NewList("SETCHAR", pl.NewNumber(pl.NumC, int64(op))))
		case op >= dviSetChar1 && op <= dviSetChar1+3:
			c, ok := u(int(op-dviSetChar1) + 1)
			if !ok {
				return nil, errReject
			}
			nodes = append(nodes, pl.NewList("SETCHAR", pl.NewNumber(pl.NumC, c)))
		case op == dviSetRule:
			h, ok1 := s(4)
			w, ok2 := s(4)
			if !ok1 || !ok2 {
				return nil, errReject
			}
			nodes = append(nodes, pl.NewList("SETRULE",
				pl.NewNumber(pl.NumR, h), pl.NewNumber(pl.NumR, w)))
		case op == dviPush:
			stack = append(stack, frame)
			frame = regFrame{}
			nodes = append(nodes, pl.NewList("PUSH"))
		case op == dviPop:
			if len(stack) == 0 {
				return nil, errReject
			}
			frame = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			nodes = append(nodes, pl.NewList("POP"))
		case op >= dviRight1 && op <= dviRight1+3:
			v, ok := s(int(op-dviRight1) + 1)
			if !ok {
				return nil, errReject
			}
			nodes = append(nodes, moveNode("MOVERIGHT", v))
		case op == dviW0:
			nodes = append(nodes, moveNode("MOVERIGHT", int64(frame.w)))
		case op >= dviW1 && op <= dviW1+3:
			v, ok := s(int(op-dviW1) + 1)
			if !ok {
				return nil, errReject
			}
			frame.w, frame.wset = int32(v), true
			nodes = append(nodes, moveNode("MOVERIGHT", v))
		case op == dviX0:
			nodes = append(nodes, moveNode("MOVERIGHT", int64(frame.x)))
		case op >= dviX1 && op <= dviX1+3:
			v, ok := s(int(op-dviX1) + 1)
			if !ok {
				return nil, errReject
			}
			frame.x, frame.xset = int32(v), true
			nodes = append(nodes, moveNode("MOVERIGHT", v))
		case op >= dviDown1 && op <= dviDown1+3:
			v, ok := s(int(op-dviDown1) + 1)
			if !ok {
				return nil, errReject
			}
			nodes = append(nodes, moveNode("MOVEDOWN", v))
		case op == dviY0:
			nodes = append(nodes, moveNode("MOVEDOWN", int64(frame.y)))
		case op >= dviY1 && op <= dviY1+3:
			v, ok := s(int(op-dviY1) + 1)
			if !ok {
				return nil, errReject
			}
			frame.y, frame.yset = int32(v), true
			nodes = append(nodes, moveNode("MOVEDOWN", v))
		case op == dviZ0:
			nodes = append(nodes, moveNode("MOVEDOWN", int64(frame.z)))
		case op >= dviZ1 && op <= dviZ1+3:
			v, ok := s(int(op-dviZ1) + 1)
			if !ok {
				return nil, errReject
			}
			frame.z, frame.zset = int32(v), true
			nodes = append(nodes, moveNode("MOVEDOWN", v))
		case op >= dviFntNum0 && op <= dviFntNum0+63:
			nodes = append(nodes, pl.NewList("SELECTFONT",
				pl.NewNumber(pl.NumD, int64(op-dviFntNum0))))
		case op >= dviFnt1 && op <= dviFnt1+3:
			n, ok := u(int(op-dviFnt1) + 1)
			if !ok {
				return nil, errReject
			}
			nodes = append(nodes, pl.NewList("SELECTFONT", pl.NewNumber(pl.NumD, n)))
		case op >= dviXXX1 && op <= dviXXX1+3:
			k, ok := u(int(op-dviXXX1) + 1)
			if !ok || int64(i)+k > int64(len(b)) {
				return nil, errReject
			}
			body := b[i : i+int(k)]
			i += int(k)
			nodes = append(nodes, specialNode(body, cfg))
		case op == dviDir:
			n, ok := u(1)
			if !ok {
				return nil, errReject
			}
			nodes = append(nodes, pl.NewList("DIR", pl.NewNumber(pl.NumD, n)))
		default:
			return nil, errReject
		}
	}
	return nodes, nil
}

func moveNode(head string, v int64) *pl.List {
	return pl.NewList(head, pl.NewNumber(pl.NumR, v))
}

// specialNode interprets an xxx payload. A 7-bit-safe body that parses
// as property-list text becomes a SPECIAL list; everything else is
// preserved as SPECIALHEX.
func specialNode(body []byte, cfg *Config) *pl.List {
	safe := true
	for _, c := range body {
		if c < 0x20 || c > 0x7e {
			safe = false
			break
		}
	}
	if safe {
		src := append([]byte("(SPECIAL "), body...)
		src = append(src, ')')
		if st, err := pl.ParseRaw(src, cfg.pl()); err == nil && len(st) == 1 {
			return st[0]
		}
	}
	return pl.NewList("SPECIALHEX", pl.Raw(hexString(body)))
}

const hexDigits = "0123456789ABCDEF"

func hexString(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0xf])
	}
	return sb.String()
}

// hexBytes packs the hex digits found in the atoms of l (everything
// after the head) into bytes.
func hexBytes(l *pl.List) ([]byte, error) {
	var digits []byte
	for _, e := range l.Elems[1:] {
		s, ok := atomString(e)
		if !ok {
			return nil, core.Error(core.ESYNTAX, "%s expects hex-digit atoms", l.Head())
		}
		for _, c := range []byte(s) {
			switch {
			case c >= '0' && c <= '9', c >= 'A' && c <= 'F', c >= 'a' && c <= 'f':
				digits = append(digits, c)
			default:
				return nil, core.Error(core.ESYNTAX, "bad hex digit %q in %s", c, l.Head())
			}
		}
	}
	if len(digits)%2 != 0 {
		return nil, core.Error(core.ESYNTAX, "odd number of hex digits in %s", l.Head())
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexVal(digits[2*i])<<4 | hexVal(digits[2*i+1])
	}
	return out, nil
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return c - 'a' + 10
}

func atomString(n pl.Node) (string, bool) {
	switch a := n.(type) {
	case pl.Raw:
		return string(a), true
	case pl.Bareword:
		return string(a), true
	}
	return "", false
}

// --- DVI compilation -------------------------------------------------------

// dviCompiler assembles a character packet's DVI program, choosing the
// compact register encodings for moves.
type dviCompiler struct {
	out   []byte
	frame regFrame
	stack []regFrame
	cfg   *Config
}

func (dc *dviCompiler) op(b byte) {
	dc.out = append(dc.out, b)
}

func (dc *dviCompiler) operand(v int64, n int) {
	for k := n - 1; k >= 0; k-- {
		dc.out = append(dc.out, byte(v>>(uint(k)*8)))
	}
}

// signedLen is the minimal byte count holding v in two's complement.
func signedLen(v int64) int {
	switch {
	case v >= -0x80 && v < 0x80:
		return 1
	case v >= -0x8000 && v < 0x8000:
		return 2
	case v >= -0x800000 && v < 0x800000:
		return 3
	}
	return 4
}

// unsignedLen is the minimal byte count holding v as an unsigned value.
func unsignedLen(v int64) int {
	switch {
	case v < 0x100:
		return 1
	case v < 0x10000:
		return 2
	case v < 0x1000000:
		return 3
	}
	return 4
}

// move compiles one horizontal or vertical move. Four encodings are
// considered in order: set-and-load the primary register when it is
// unset in this frame, reuse it when it holds the value, the same for
// the secondary register, and finally the plain N-byte form. Simple
// mode forces the plain form.
func (dc *dviCompiler) move(horizontal bool, v int64) {
	n := signedLen(v)
	if horizontal {
		switch {
		case dc.cfg.SimpleMove:
			dc.op(byte(dviRight1 + n - 1))
		case !dc.frame.wset:
			dc.frame.w, dc.frame.wset = int32(v), true
			dc.op(byte(dviW1 + n - 1))
		case int64(dc.frame.w) == v:
			dc.op(dviW0)
			return
		case !dc.frame.xset:
			dc.frame.x, dc.frame.xset = int32(v), true
			dc.op(byte(dviX1 + n - 1))
		case int64(dc.frame.x) == v:
			dc.op(dviX0)
			return
		default:
			dc.op(byte(dviRight1 + n - 1))
		}
	} else {
		switch {
		case dc.cfg.SimpleMove:
			dc.op(byte(dviDown1 + n - 1))
		case !dc.frame.yset:
			dc.frame.y, dc.frame.yset = int32(v), true
			dc.op(byte(dviY1 + n - 1))
		case int64(dc.frame.y) == v:
			dc.op(dviY0)
			return
		case !dc.frame.zset:
			dc.frame.z, dc.frame.zset = int32(v), true
			dc.op(byte(dviZ1 + n - 1))
		case int64(dc.frame.z) == v:
			dc.op(dviZ0)
			return
		default:
			dc.op(byte(dviDown1 + n - 1))
		}
	}
	dc.operand(v, n)
}

// compileMAP translates MAP nodes to DVI bytes. ownCode substitutes
// for a SETCHAR without argument.
func compileMAP(m *pl.List, ownCode int64, cfg *Config) ([]byte, error) {
	dc := &dviCompiler{cfg: cfg}
	for _, e := range m.Elems[1:] {
		l, ok := e.(*pl.List)
		if !ok {
			return nil, core.Error(core.ESYNTAX, "unexpected atom in MAP")
		}
		if err := dc.compileOp(l, ownCode); err != nil {
			return nil, err
		}
	}
	return dc.out, nil
}

func (dc *dviCompiler) compileOp(l *pl.List, ownCode int64) error {
	switch l.Head() {
	case "SETCHAR":
		c := ownCode
		if n := l.FirstNumber(); n != nil {
			c = n.Value
		}
		if c < 0 || c > 1<<32-1 {
			return core.Error(core.ESEMANTIC, "SETCHAR code out of range: %d", c)
		}
		if c <= 127 {
			dc.op(byte(c))
			return nil
		}
		n := unsignedLen(c)
		dc.op(byte(dviSetChar1 + n - 1))
		dc.operand(c, n)
	case "SETRULE":
		h, w := l.NumberAt(0), l.NumberAt(1)
		if h == nil || w == nil {
			return core.Error(core.ESYNTAX, "SETRULE needs height and width")
		}
		dc.op(dviSetRule)
		dc.operand(h.Value, 4)
		dc.operand(w.Value, 4)
	case "PUSH":
		dc.stack = append(dc.stack, dc.frame)
		dc.frame = regFrame{}
		dc.op(dviPush)
	case "POP":
		if len(dc.stack) == 0 {
			return core.Error(core.ESTRUCTURE, "POP on empty stack")
		}
		dc.frame = dc.stack[len(dc.stack)-1]
		dc.stack = dc.stack[:len(dc.stack)-1]
		dc.op(dviPop)
	case "MOVERIGHT", "MOVELEFT":
		n := l.FirstNumber()
		if n == nil {
			return core.Error(core.ESYNTAX, "%s needs an amount", l.Head())
		}
		v := n.Value
		if l.Head() == "MOVELEFT" {
			v = -v
		}
		dc.move(true, v)
	case "MOVEDOWN", "MOVEUP":
		n := l.FirstNumber()
		if n == nil {
			return core.Error(core.ESYNTAX, "%s needs an amount", l.Head())
		}
		v := n.Value
		if l.Head() == "MOVEUP" {
			v = -v
		}
		dc.move(false, v)
	case "SELECTFONT":
		n := l.FirstNumber()
		if n == nil {
			return core.Error(core.ESYNTAX, "SELECTFONT needs a font number")
		}
		if n.Value >= 0 && n.Value <= 63 {
			dc.op(byte(dviFntNum0 + n.Value))
			return nil
		}
		k := unsignedLen(n.Value)
		dc.op(byte(dviFnt1 + k - 1))
		dc.operand(n.Value, k)
	case "SPECIAL":
		body := ""
		if len(l.Elems) > 1 {
			s, err := pl.EmitList(l, -1, dc.cfg.pl())
			if err != nil {
				return err
			}
			// strip "(SPECIAL " and ")"
			body = strings.TrimSuffix(strings.TrimPrefix(s, "(SPECIAL "), ")")
		}
		dc.special([]byte(body))
	case "SPECIALHEX":
		b, err := hexBytes(l)
		if err != nil {
			return err
		}
		dc.special(b)
	case "DIR":
		n := l.FirstNumber()
		if n == nil {
			return core.Error(core.ESYNTAX, "DIR needs a direction")
		}
		dc.op(dviDir)
		dc.operand(n.Value, 1)
	default:
		if dc.cfg.Strict {
			return core.Error(core.ESTRUCTURE, "unknown DVI operator %s", l.Head())
		}
		tracer().Infof("dropping unknown DVI operator %s", l.Head())
	}
	return nil
}

func (dc *dviCompiler) special(body []byte) {
	k := len(body)
	n := unsignedLen(int64(k))
	dc.op(byte(dviXXX1 + n - 1))
	dc.operand(int64(k), n)
	dc.out = append(dc.out, body...)
}
