/*
Package pl implements property lists, the Lisp-like textual form of TeX
font metric files (PL, JPL, OPL, VPL, ZPL, ZVP).

A property list is a sequence of parenthesized lists. The first element
of a list is a symbolic head, the remaining elements are atoms, cooked
numbers, or nested lists. Numbers carry a one-letter prefix describing
how the following token is to be read:

	C  printable character         (CHARACTER C A …)
	K  Japanese character          (CHARSINTYPE … )
	D  small unsigned decimal      (DESIGNUNITS D 10)
	F  face code                   (FACE F MRR)
	O  octal                       (CHECKSUM O 11374260171)
	H  hexadecimal                 (CHECKSUM H 4B30F1A2)
	R  real, fixed-point scaled    (DESIGNSIZE R 10.0)

The package parses such text into trees, "cooks" prefixed tokens into
typed numeric atoms, formats trees back to text, and offers the deep
clone, canonical rearrangement and value access utilities the metric
transformations are built on.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package pl

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'zrtextor.pl'.
func tracer() tracing.Trace {
	return tracing.Select("zrtextor.pl")
}
