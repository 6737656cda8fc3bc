/*
Package jfm implements the class-based metric reduction of Japanese
TeX font metrics.

A JFM does not store metrics per character: characters are grouped
into at most 256 numerically indexed types sharing one
width/height/depth triple. The reducers of this package choose such a
triple table for a raw per-character metric table, within tunable
error bounds. The package also reads the big-endian TFM/JFM container
headers.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package jfm

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'zrtextor.jfm'.
func tracer() tracing.Trace {
	return tracing.Select("zrtextor.jfm")
}
