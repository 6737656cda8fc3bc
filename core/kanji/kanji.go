// Package kanji is the Japanese-charset boundary of the module.
//
// Metric files carry Japanese characters in an external byte encoding
// (ISO-2022-JP alias "jis", EUC-JP, Shift_JIS, or UTF-8), while the
// processing core works on internal code points, either raw JIS 0208
// ku-ten codes or UTF-16BE code points. A Codec maps between the two
// worlds; characters that do not survive the round trip are reported
// as not encodable.
/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package kanji

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// External encoding names.
const (
	JIS  = "jis"
	EUC  = "euc"
	SJIS = "sjis"
	UTF8 = "utf8"
	XJIS = "xjis" // private: raw JIS bytes pass through untouched
)

// Internal encoding names.
const (
	InternalJIS = "jis" // raw JIS 0208 codes, 0x2121..0x7E7E
	InternalUCS = "ucs" // UTF-16BE code points
)

// Codec maps internal code points to external byte strings and back.
type Codec struct {
	External string
	Internal string
}

// Default is the codec used when none is configured.
var Default = Codec{External: EUC, Internal: InternalJIS}

// ValidExternal reports whether name denotes a known external encoding.
func ValidExternal(name string) bool {
	switch name {
	case JIS, EUC, SJIS, UTF8, XJIS:
		return true
	}
	return false
}

// ValidInternal reports whether name denotes a known internal encoding.
func ValidInternal(name string) bool {
	return name == InternalJIS || name == InternalUCS
}

// Chr returns the external byte string encoding the internal code point
// v, or ok=false if v does not encode round-trippably.
func (c Codec) Chr(v int) ([]byte, bool) {
	if c.External == XJIS {
		// raw JIS pair in the high-bit transposed form the scanner uses
		if v < 0x2121 || v > 0x7e7e {
			return nil, false
		}
		return []byte{byte(v>>8) | 0x80, byte(v) | 0x80}, true
	}
	r, ok := c.internalToRune(v)
	if !ok {
		return nil, false
	}
	b, ok := encodeRune(c.External, r)
	if !ok {
		return nil, false
	}
	// must survive the way back
	w, _, ok := c.Ord(b)
	if !ok || w != v {
		return nil, false
	}
	return b, true
}

// Ord decodes the first character of the external byte string b and
// returns its internal code point and the number of bytes consumed.
func (c Codec) Ord(b []byte) (v int, size int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	if c.External == XJIS {
		if len(b) >= 2 && b[0] >= 0xa1 && b[0] <= 0xfe && b[1] >= 0xa1 && b[1] <= 0xfe {
			return int(b[0]&0x7f)<<8 | int(b[1]&0x7f), 2, true
		}
		return int(b[0]), 1, b[0] < 0x80
	}
	r, size, ok := decodeRune(c.External, b)
	if !ok {
		return 0, 0, false
	}
	v, ok = c.runeToInternal(r)
	if !ok {
		return 0, 0, false
	}
	return v, size, true
}

func (c Codec) internalToRune(v int) (rune, bool) {
	if c.Internal == InternalUCS {
		if v < 0 || v > utf8.MaxRune {
			return 0, false
		}
		return rune(v), true
	}
	if v >= 0 && v < 0x80 {
		return rune(v), true
	}
	if v < 0x2121 || v > 0x7e7e {
		return 0, false
	}
	raw := []byte{byte(v>>8) | 0x80, byte(v) | 0x80}
	dec := japanese.EUCJP.NewDecoder()
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return 0, false
	}
	r, n := utf8.DecodeRune(out)
	if r == utf8.RuneError || n != len(out) {
		return 0, false
	}
	return r, true
}

func (c Codec) runeToInternal(r rune) (int, bool) {
	if c.Internal == InternalUCS {
		return int(r), true
	}
	if r < 0x80 {
		return int(r), true
	}
	enc := japanese.EUCJP.NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(string(r)))
	if err != nil || len(out) != 2 {
		return 0, false
	}
	if out[0] < 0xa1 || out[1] < 0xa1 {
		return 0, false
	}
	return int(out[0]&0x7f)<<8 | int(out[1]&0x7f), true
}

func externalEncoding(name string) encoding.Encoding {
	switch name {
	case JIS:
		// at the token level JIS text travels in the high-bit transposed
		// form, which coincides with EUC-JP for the two-byte set
		return japanese.EUCJP
	case EUC:
		return japanese.EUCJP
	case SJIS:
		return japanese.ShiftJIS
	}
	return nil
}

func encodeRune(external string, r rune) ([]byte, bool) {
	if external == UTF8 {
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], r)
		return buf[:n], true
	}
	e := externalEncoding(external)
	if e == nil {
		return nil, false
	}
	out, _, err := transform.Bytes(e.NewEncoder(), []byte(string(r)))
	if err != nil || (bytes.ContainsRune(out, encoding.ASCIISub) && r != encoding.ASCIISub) {
		return nil, false
	}
	return out, true
}

func decodeRune(external string, b []byte) (rune, int, bool) {
	if external == UTF8 {
		r, n := utf8.DecodeRune(b)
		if r == utf8.RuneError && n <= 1 {
			return 0, 0, false
		}
		return r, n, true
	}
	e := externalEncoding(external)
	if e == nil {
		return 0, 0, false
	}
	// decode a prefix of b: try the shortest prefix that yields one rune
	for size := 1; size <= 2 && size <= len(b); size++ {
		out, _, err := transform.Bytes(e.NewDecoder(), b[:size])
		if err != nil {
			continue
		}
		r, n := utf8.DecodeRune(out)
		if r == utf8.RuneError || n != len(out) {
			continue
		}
		return r, size, true
	}
	return 0, 0, false
}
