package charlist

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/zr-tex8r/ZRTeXtor/core"
	"github.com/zr-tex8r/ZRTeXtor/core/kanji"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

// Config collects the serialization options of the package.
type Config struct {
	Threshold int         // rangification threshold
	Codec     kanji.Codec // encoding of bare character atoms
}

// Default holds the process-wide defaults.
var Default = Config{Threshold: DefaultThreshold, Codec: kanji.Default}

func (cfg *Config) orDefault() *Config {
	if cfg == nil {
		return &Default
	}
	return cfg
}

// ParseNodes reads charlist members from property-list nodes: bare
// character atoms, J/U/X escape-hex atoms, cooked numbers, and nested
// CTRANGE lists.
func ParseNodes(nodes []pl.Node, cfg *Config) (List, error) {
	cfg = cfg.orDefault()
	var cl List
	for _, e := range nodes {
		switch n := e.(type) {
		case *pl.List:
			if n.Head() != "CTRANGE" {
				return nil, core.Error(core.ESYNTAX, "unexpected %s list in a charlist", n.Head())
			}
			lo, hi, err := ctrangeEndpoints(n)
			if err != nil {
				return nil, err
			}
			cl = append(cl, Item{lo, hi})
		case *pl.Number:
			cl = append(cl, Item{int(n.Value), int(n.Value)})
		case pl.Raw, pl.Bareword:
			s := atomString(e)
			c, err := parseAtomCode(s, cfg)
			if err != nil {
				return nil, err
			}
			cl = append(cl, Item{c, c})
		}
	}
	return Normalize(cl), nil
}

// ctrangeEndpoints reads the two endpoints of a CTRANGE list. The
// serialized form carries them as bare hex atoms (CTRANGE 21 29);
// cooked numbers from prefixed variants are accepted as well.
func ctrangeEndpoints(l *pl.List) (int, int, error) {
	var ends []int
	for _, e := range l.Elems[1:] {
		switch n := e.(type) {
		case *pl.Number:
			ends = append(ends, int(n.Value))
		case pl.Raw, pl.Bareword:
			v, err := strconv.ParseUint(atomString(e), 16, 32)
			if err != nil {
				return 0, 0, core.Error(core.ESYNTAX, "bad CTRANGE endpoint %q", atomString(e))
			}
			ends = append(ends, int(v))
		}
	}
	if len(ends) != 2 || ends[0] > ends[1] {
		return 0, 0, core.Error(core.ESYNTAX, "malformed CTRANGE")
	}
	return ends[0], ends[1], nil
}

func atomString(n pl.Node) string {
	switch a := n.(type) {
	case pl.Raw:
		return string(a)
	case pl.Bareword:
		return string(a)
	}
	return ""
}

func parseAtomCode(s string, cfg *Config) (int, error) {
	if len(s) == 1 {
		return int(s[0]), nil
	}
	if len(s) >= 2 && (s[0] == 'X' || s[0] == 'J' || s[0] == 'U') {
		if v, err := strconv.ParseUint(s[1:], 16, 32); err == nil {
			return escapeHexCode(s[0], int(v), cfg)
		}
	}
	v, size, ok := cfg.Codec.Ord([]byte(s))
	if !ok || size != len(s) {
		return 0, core.Error(core.ESYNTAX, "bad charlist atom %q", s)
	}
	return v, nil
}

// escapeHexCode resolves a J/U/X escape-hex atom against the internal
// encoding: X is a raw internal code, J a JIS code, U a Unicode code
// point; the latter two transcode when the internal side differs.
func escapeHexCode(prefix byte, v int, cfg *Config) (int, error) {
	jc := kanji.Codec{External: kanji.UTF8, Internal: kanji.InternalJIS}
	switch prefix {
	case 'X':
		return v, nil
	case 'U':
		if cfg.Codec.Internal == kanji.InternalUCS {
			return v, nil
		}
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], rune(v))
		w, size, ok := jc.Ord(buf[:n])
		if !ok || size != n {
			return 0, core.Error(core.ESEMANTIC, "U+%04X has no JIS code", v)
		}
		return w, nil
	case 'J':
		if cfg.Codec.Internal == kanji.InternalJIS {
			return v, nil
		}
		b, ok := jc.Chr(v)
		if !ok {
			return 0, core.Error(core.ESEMANTIC, "JIS %04X has no Unicode point", v)
		}
		r, _ := utf8.DecodeRune(b)
		return int(r), nil
	}
	return 0, core.Error(core.EINTERNAL, "bad escape-hex prefix %q", prefix)
}

// UnparseNodes serializes a charlist into property-list nodes. Runs at
// or above the threshold become CTRANGE lists; single codes become
// bare character atoms where the encoding allows, escape-hex atoms
// otherwise.
func UnparseNodes(cl List, cfg *Config) []pl.Node {
	cfg = cfg.orDefault()
	var nodes []pl.Node
	for _, it := range Rangify(cl, cfg.Threshold) {
		if it.Lo != it.Hi {
			// endpoints travel as bare hex atoms: (CTRANGE 21 29)
			nodes = append(nodes, pl.NewList("CTRANGE",
				pl.Raw(fmt.Sprintf("%X", it.Lo)), pl.Raw(fmt.Sprintf("%X", it.Hi))))
			continue
		}
		nodes = append(nodes, codeAtom(it.Lo, cfg))
	}
	return nodes
}

func codeAtom(c int, cfg *Config) pl.Node {
	if c < 0x80 {
		if isWordChar(byte(c)) {
			return pl.Raw(string(byte(c)))
		}
		return pl.Raw(fmt.Sprintf("X%04X", c))
	}
	if b, ok := cfg.Codec.Chr(c); ok {
		return pl.Raw(string(b))
	}
	return pl.Raw(fmt.Sprintf("X%04X", c))
}

func isWordChar(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}
