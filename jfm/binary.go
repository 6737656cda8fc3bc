package jfm

import (
	"github.com/zr-tex8r/ZRTeXtor/core"
)

// Format discriminates the metric container variants.
type Format int

const (
	FormatTFM Format = iota
	FormatJFMHorizontal
	FormatJFMVertical
)

// Magic first words of JFM files.
const (
	jfmIDHorizontal = 11
	jfmIDVertical   = 9
)

// Header is the word-count preamble of a TFM or JFM file. All fields
// hold the 16-bit values as stored; offsets derived from them are in
// bytes.
type Header struct {
	Format Format
	NT     int // JFM only: number of char-type rows
	LF     int // length of the entire file, in 4-byte words
	LH     int // length of the header data
	BC     int // smallest character code (TFM)
	EC     int // largest character code (TFM)
	NW     int // number of words in the width table
	NH     int // number of words in the height table
	ND     int // number of words in the depth table
}

func rd16(b []byte, i int) int {
	return int(b[i])<<8 | int(b[i+1])
}

// ParseHeader reads the preamble of a TFM or JFM byte string. A first
// word of 9 or 11 marks a JFM (vertical/horizontal); anything else is
// read as classic TFM.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < 24 {
		return nil, core.Error(core.ESTRUCTURE, "metric file shorter than its preamble")
	}
	h := &Header{}
	w0 := rd16(b, 0)
	if w0 == jfmIDHorizontal || w0 == jfmIDVertical {
		if w0 == jfmIDHorizontal {
			h.Format = FormatJFMHorizontal
		} else {
			h.Format = FormatJFMVertical
		}
		if len(b) < 28 {
			return nil, core.Error(core.ESTRUCTURE, "JFM preamble truncated")
		}
		h.NT = rd16(b, 2)
		h.LF = rd16(b, 4)
		h.LH = rd16(b, 6)
		h.BC = rd16(b, 8)
		h.EC = rd16(b, 10)
		h.NW = rd16(b, 12)
		h.NH = rd16(b, 14)
		h.ND = rd16(b, 16)
	} else {
		h.Format = FormatTFM
		h.LF = w0
		h.LH = rd16(b, 2)
		h.BC = rd16(b, 4)
		h.EC = rd16(b, 6)
		h.NW = rd16(b, 8)
		h.NH = rd16(b, 10)
		h.ND = rd16(b, 12)
	}
	if h.LF*4 != len(b) {
		return nil, core.Error(core.ESTRUCTURE,
			"length word %d does not match file size %d", h.LF, len(b))
	}
	return h, nil
}

// CharInfoOffset returns the byte offset of the char-info table (TFM)
// or of the char-type table (JFM).
func (h *Header) CharInfoOffset() int {
	if h.Format == FormatTFM {
		return (6 + h.LH) * 4
	}
	return (7 + h.LH) * 4
}

// CharTypes reads the JFM char-type table: a map from character code
// to type index. A row is (code_hi, code_lo, type, pad); the padding
// byte carries the bits of an 18-bit codespace.
func (h *Header) CharTypes(b []byte) (map[int]int, error) {
	if h.Format == FormatTFM {
		return nil, core.Error(core.ESTRUCTURE, "not a JFM file")
	}
	off := h.CharInfoOffset()
	if off+h.NT*4 > len(b) {
		return nil, core.Error(core.ESTRUCTURE, "char-type table truncated")
	}
	types := make(map[int]int, h.NT)
	for i := 0; i < h.NT; i++ {
		row := b[off+i*4:]
		code := int(row[0])<<8 | int(row[1]) | int(row[3]&0x03)<<16
		types[code] = int(row[2])
	}
	return types, nil
}
