// Package fixed implements TFM fixed-point numbers.
//
// TeX font metric files measure lengths in multiples of 1/2^20 of the
// design size. We call such a value a scaled number. Scaled numbers are
// signed 32 bit, which limits the representable range to about ±2048
// design sizes.
/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package fixed

import (
	"math"
	"strings"

	"github.com/zr-tex8r/ZRTeXtor/core"
)

// Scaled is a fixed-point number with a 20-bit fraction.
type Scaled int32

// Unity is the scaled representation of 1.0.
const Unity Scaled = 1 << 20

// MaxScaled and MinScaled delimit the scaled domain.
const (
	MaxScaled Scaled = math.MaxInt32
	MinScaled Scaled = math.MinInt32
)

// fracDigitLimit caps the number of fraction digits considered when
// parsing. 2^-20 is just below 1e-6, so a dozen digits are more than
// the format can resolve.
const fracDigitLimit = 12

// Parse converts the decimal text of a real number to a scaled value.
// The decimal is multiplied by 2^20 and rounded half away from zero.
// Values outside the signed 32-bit domain are an error.
func Parse(s string) (Scaled, error) {
	t := s
	neg := false
	if strings.HasPrefix(t, "-") {
		neg = true
		t = t[1:]
	} else if strings.HasPrefix(t, "+") {
		t = t[1:]
	}
	intpart, fracpart := t, ""
	if dot := strings.IndexByte(t, '.'); dot >= 0 {
		intpart, fracpart = t[:dot], t[dot+1:]
	}
	if intpart == "" && fracpart == "" {
		return 0, core.Error(core.ESYNTAX, "malformed real number: %q", s)
	}
	var ip uint64
	for _, c := range []byte(intpart) {
		if c < '0' || c > '9' {
			return 0, core.Error(core.ESYNTAX, "malformed real number: %q", s)
		}
		ip = ip*10 + uint64(c-'0')
		if ip > 1<<12 { // integer part beyond any representable value
			return 0, core.Error(core.ESEMANTIC, "real number out of range: %q", s)
		}
	}
	var num, den uint64 = 0, 1
	for i, c := range []byte(fracpart) {
		if c < '0' || c > '9' {
			return 0, core.Error(core.ESYNTAX, "malformed real number: %q", s)
		}
		if i >= fracDigitLimit {
			continue
		}
		num = num*10 + uint64(c-'0')
		den *= 10
	}
	v := ip<<20 + (num<<20+den/2)/den
	if neg {
		if v > 1<<31 {
			return 0, core.Error(core.ESEMANTIC, "real number out of range: %q", s)
		}
		return Scaled(-int64(v)), nil
	}
	if v > 1<<31-1 {
		return 0, core.Error(core.ESEMANTIC, "real number out of range: %q", s)
	}
	return Scaled(v), nil
}

// String formats a scaled value as the shortest decimal that parses
// back to the same value. This is Knuth's print_scaled walk, adjusted
// for the 20-bit fraction: each decimal place carries a bias of 5, and
// emission stops as soon as the remaining precision a is no greater
// than the place value d.
func (s Scaled) String() string {
	var sb strings.Builder
	v := int64(s)
	if v < 0 {
		sb.WriteByte('-')
		v = -v
	}
	writeInt(&sb, v>>20)
	sb.WriteByte('.')
	unity := int64(Unity)
	a := 10*(v&(unity-1)) + 5
	d := int64(10)
	for {
		if d > unity {
			a += unity/2 - d/2
		}
		sb.WriteByte(byte('0' + a/unity))
		a = 10 * (a % unity)
		d *= 10
		if a <= d {
			break
		}
	}
	return sb.String()
}

func writeInt(sb *strings.Builder, v int64) {
	if v >= 10 {
		writeInt(sb, v/10)
	}
	sb.WriteByte(byte('0' + v%10))
}

// FromFloat converts a float64 in design-size units to a scaled value,
// rounding half away from zero.
func FromFloat(f float64) (Scaled, error) {
	v := f * float64(Unity)
	if v >= 0 {
		v = math.Floor(v + 0.5)
	} else {
		v = math.Ceil(v - 0.5)
	}
	if v > float64(MaxScaled) || v < float64(MinScaled) {
		return 0, core.Error(core.ESEMANTIC, "real number out of range: %g", f)
	}
	return Scaled(v), nil
}

// Float returns the scaled value in design-size units.
func (s Scaled) Float() float64 {
	return float64(s) / float64(Unity)
}
