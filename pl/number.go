package pl

import (
	"strconv"
	"strings"

	"github.com/zr-tex8r/ZRTeXtor/core"
	"github.com/zr-tex8r/ZRTeXtor/core/fixed"
)

// Kind is a numeric prefix kind. Its value is the prefix letter.
type Kind byte

// The prefix kinds. NumI never appears in input; it is an emission
// alias resolved to NumO or NumH by the hex-preference flag.
const (
	NumC Kind = 'C'
	NumK Kind = 'K'
	NumD Kind = 'D'
	NumF Kind = 'F'
	NumO Kind = 'O'
	NumH Kind = 'H'
	NumR Kind = 'R'
	NumI Kind = 'I'
)

func (k Kind) String() string {
	return string(byte(k))
}

// prefixKind maps a token to the prefix kind it denotes during
// cooking. NumI is not a cooking prefix.
func prefixKind(tok string) (Kind, bool) {
	if len(tok) != 1 {
		return 0, false
	}
	switch Kind(tok[0]) {
	case NumC, NumK, NumD, NumF, NumO, NumH, NumR:
		return Kind(tok[0]), true
	}
	return 0, false
}

// faceNames is the 18-entry face code enumeration: weight M/B/L,
// slope R/I, expansion R/C/E.
var faceNames = [18]string{
	"MRR", "MIR", "BRR", "BIR", "LRR", "LIR",
	"MRC", "MIC", "BRC", "BIC", "LRC", "LIC",
	"MRE", "MIE", "BRE", "BIE", "LRE", "LIE",
}

func faceIndex(name string) (int64, bool) {
	for i, fn := range faceNames {
		if fn == name {
			return int64(i), true
		}
	}
	return 0, false
}

// isWordByte reports membership in the "word" character class used for
// C-prefix characters.
func isWordByte(b int64) bool {
	if b < 0 || b > 0x7e {
		return false
	}
	c := byte(b)
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}

// inRange reports whether value is legal for the prefix kind. The
// free-number flag widens all ranges except R's to full signed 32 bit.
func (cfg *Config) inRange(kind Kind, v int64) bool {
	if kind != NumR && cfg.FreeNumber {
		return v >= -1<<31 && v <= 1<<31-1
	}
	switch kind {
	case NumC:
		return isWordByte(v)
	case NumK:
		_, ok := cfg.Codec.Chr(int(v))
		return ok
	case NumD:
		return v >= 0 && v <= 255
	case NumF:
		return v >= 0 && v <= 17
	case NumO, NumH, NumI:
		return v >= 0 && v <= 1<<32-1
	case NumR:
		return v >= -1<<31 && v <= 1<<31-1
	}
	return false
}

// ParseNumber interprets token under the given prefix kind. The token
// is accepted iff it matches the kind's grammar and the converted value
// lies in the kind's range.
func ParseNumber(kind Kind, token string, cfg *Config) (*Number, error) {
	cfg = cfg.orDefault()
	var v int64
	switch kind {
	case NumC:
		if len(token) != 1 {
			return nil, core.Error(core.ESYNTAX, "bad C-character token %q", token)
		}
		v = int64(token[0])
	case NumK:
		w, size, ok := cfg.Codec.Ord([]byte(token))
		if !ok || size != len(token) {
			return nil, core.Error(core.ESYNTAX, "bad Japanese character token %q", token)
		}
		v = int64(w)
	case NumD:
		u, err := parseDigits(token, 10, cfg.FreeNumber)
		if err != nil {
			return nil, core.WrapError(err, core.ESYNTAX, "bad decimal token %q", token)
		}
		v = u
	case NumF:
		u, ok := faceIndex(token)
		if !ok {
			if !cfg.FreeNumber {
				return nil, core.Error(core.ESYNTAX, "bad face code %q", token)
			}
			var err error
			u, err = parseDigits(token, 10, true)
			if err != nil {
				return nil, core.WrapError(err, core.ESYNTAX, "bad face code %q", token)
			}
		}
		v = u
	case NumO:
		u, err := parseDigits(token, 8, false)
		if err != nil {
			return nil, core.WrapError(err, core.ESYNTAX, "bad octal token %q", token)
		}
		v = u
	case NumH:
		u, err := parseDigits(token, 16, false)
		if err != nil {
			return nil, core.WrapError(err, core.ESYNTAX, "bad hex token %q", token)
		}
		v = u
	case NumR:
		s, err := fixed.Parse(token)
		if err != nil {
			return nil, err
		}
		v = int64(s)
	default:
		return nil, core.Error(core.EINTERNAL, "prefix kind %q cannot be parsed", kind)
	}
	if !cfg.inRange(kind, v) {
		return nil, core.Error(core.ESEMANTIC, "value of %s %s out of range", kind, token)
	}
	return newLiteralNumber(kind, v, token), nil
}

func parseDigits(token string, base int, signed bool) (int64, error) {
	t := token
	neg := false
	if signed && len(t) > 0 && (t[0] == '-' || t[0] == '+') {
		neg = t[0] == '-'
		t = t[1:]
	}
	if t == "" {
		return 0, core.Error(core.ESYNTAX, "empty number")
	}
	u, err := strconv.ParseUint(t, base, 64)
	if err != nil || u > 1<<32-1 {
		return 0, core.Error(core.ESYNTAX, "not a base-%d number: %q", base, token)
	}
	if neg {
		return -int64(u), nil
	}
	return int64(u), nil
}

// formatNumber renders (kind, value), transforming the kind along the
// emission fallback chain when the value cannot be represented:
// F→D, C→I, K→H, D→I, I→O|H. An R value outside the fixed-point
// domain is a hard error.
func formatNumber(kind Kind, v int64, cfg *Config) (Kind, string, error) {
	cfg = cfg.orDefault()
	if cfg.ForcedPrefix != 0 && kind != NumR {
		kind = cfg.ForcedPrefix
	}
	for i := 0; i < 8; i++ { // the chain terminates well before this
		switch kind {
		case NumC:
			if isWordByte(v) {
				return kind, string(byte(v)), nil
			}
			kind = NumI
		case NumK:
			if b, ok := cfg.Codec.Chr(int(v)); ok {
				return kind, string(b), nil
			}
			kind = NumH
		case NumD:
			if v >= 0 && v <= 255 {
				return kind, strconv.FormatInt(v, 10), nil
			}
			kind = NumI
		case NumF:
			if v >= 0 && v <= 17 {
				return kind, faceNames[v], nil
			}
			kind = NumD
		case NumI:
			if cfg.PreferHex {
				kind = NumH
			} else {
				kind = NumO
			}
		case NumO:
			return kind, strconv.FormatUint(bits32(v), 8), nil
		case NumH:
			return kind, strings.ToUpper(strconv.FormatUint(bits32(v), 16)), nil
		case NumR:
			if v < -1<<31 || v > 1<<31-1 {
				return kind, "", core.Error(core.ESEMANTIC, "real value out of fixed-point domain: %d", v)
			}
			return kind, fixed.Scaled(v).String(), nil
		default:
			return kind, "", core.Error(core.EINTERNAL, "prefix kind %q cannot be emitted", kind)
		}
	}
	return kind, "", core.Error(core.EINTERNAL, "emission fallback did not terminate")
}

// bits32 folds a value into its unsigned 32-bit pattern; negative
// values from free-number mode keep their two's complement bits.
func bits32(v int64) uint64 {
	return uint64(uint32(int32(v)))
}
