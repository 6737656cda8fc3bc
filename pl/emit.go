package pl

import (
	"strings"
	"unicode/utf8"

	"github.com/npillmayer/uax/uax11"
	"github.com/zr-tex8r/ZRTeXtor/core"
	"github.com/zr-tex8r/ZRTeXtor/core/kanji"
)

// maxPackColumn is the column limit up to which runs of Japanese and
// escape-hex atoms are packed onto one line.
const maxPackColumn = 72

type emitter struct {
	sb  strings.Builder
	col int
	cfg *Config
	err error
}

// Emit formats a property-list struct back to text. Top-level lists
// are separated by newlines; with a negative indent everything goes on
// a single line, space separated.
func Emit(st Struct, indent int, cfg *Config) (string, error) {
	cfg = cfg.orDefault()
	em := &emitter{cfg: cfg}
	for i, l := range st {
		if indent < 0 {
			if i > 0 {
				em.write(" ")
			}
			em.emitList(l, indent)
			continue
		}
		em.write(strings.Repeat(" ", indent))
		em.emitList(l, indent)
		em.sb.WriteByte('\n')
		em.col = 0
	}
	return em.sb.String(), em.err
}

// EmitList formats a single list.
func EmitList(l *List, indent int, cfg *Config) (string, error) {
	em := &emitter{cfg: cfg.orDefault()}
	em.emitList(l, indent)
	return em.sb.String(), em.err
}

func (em *emitter) write(s string) {
	em.sb.WriteString(s)
	em.col += len(s)
}

func (em *emitter) newline(indent int) {
	em.sb.WriteByte('\n')
	em.sb.WriteString(strings.Repeat(" ", indent))
	em.col = indent
}

// writeAtom writes an atom, re-wrapping high-bit Japanese byte pairs
// into their ISO-2022-JP escape envelope when the external encoding
// asks for it.
func (em *emitter) writeAtom(s string) {
	w := displayWidth(s)
	if em.cfg.Codec.External == kanji.JIS {
		s = wrapJISEnvelope(s)
	}
	em.sb.WriteString(s)
	em.col += w
}

func (em *emitter) emitList(l *List, indent int) {
	if em.err != nil {
		return
	}
	em.write("(")
	if len(l.Elems) == 0 {
		em.write(")")
		return
	}
	if h, ok := atomText(l.Elems[0]); ok {
		em.write(h)
	}
	broke := false
	for _, e := range l.Elems[1:] {
		switch n := e.(type) {
		case *List:
			if indent < 0 {
				em.write(" ")
				em.emitList(n, indent)
			} else {
				em.newline(indent + 3)
				em.emitList(n, indent+3)
				broke = true
			}
		case *Number:
			kind, text := n.Kind, n.Literal()
			if text == "" {
				var err error
				kind, text, err = formatNumber(n.Kind, n.Value, em.cfg)
				if err != nil {
					em.err = core.WrapError(err, core.Code(err), "emitting %s list", l.Head())
					return
				}
			}
			em.write(" " + kind.String() + " ")
			em.writeAtom(text)
		default:
			s, _ := atomText(e)
			if indent >= 0 && isPackableAtom(s) && em.col+1+displayWidth(s) > maxPackColumn {
				em.newline(indent + 3)
			} else {
				em.write(" ")
			}
			em.writeAtom(s)
		}
	}
	if broke {
		em.newline(indent + 3)
	}
	em.write(")")
}

// isPackableAtom reports whether an atom takes part in the 72-column
// packing: Japanese multibyte atoms and J/U/X escape-hex atoms.
func isPackableAtom(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	if s[0] == 'J' || s[0] == 'U' || s[0] == 'X' {
		return isHexDigits(s[1:])
	}
	return false
}

// displayWidth approximates the column width of an atom. East Asian
// characters count double; atoms that are not valid UTF-8 travel as
// two-byte JIS pairs, for which the byte count happens to equal the
// column count.
func displayWidth(s string) int {
	if !utf8.ValidString(s) {
		return len(s)
	}
	w := 0
	for _, r := range s {
		if r < 0x80 {
			w++
			continue
		}
		w += uax11.Width([]byte(string(r)), uax11.LatinContext)
	}
	return w
}

// wrapJISEnvelope rewraps runs of high-bit byte pairs into
// ESC $ B … ESC ( B envelopes.
func wrapJISEnvelope(s string) string {
	hasHigh := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			hasHigh = true
			break
		}
	}
	if !hasHigh {
		return s
	}
	var sb strings.Builder
	injis := false
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= 0xa1 && i+1 < len(s) && s[i+1] >= 0xa1 {
			if !injis {
				sb.Write([]byte{esc, '$', 'B'})
				injis = true
			}
			sb.WriteByte(b & 0x7f)
			sb.WriteByte(s[i+1] & 0x7f)
			i++
			continue
		}
		if injis {
			sb.Write([]byte{esc, '(', 'B'})
			injis = false
		}
		sb.WriteByte(b)
	}
	if injis {
		sb.Write([]byte{esc, '(', 'B'})
	}
	return sb.String()
}
