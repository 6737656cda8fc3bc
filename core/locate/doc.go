/*
Package locate is the process boundary of the module.

It resolves files through kpsewhich (falling back to a plain search
path walk), spawns the surrounding TeX toolchain commands with
separately captured output streams, manages collision-free temporary
files, and reads the ZRTeXtor.cfg configuration file that may override
command names and encoding defaults.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package locate

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'zrtextor.locate'.
func tracer() tracing.Trace {
	return tracing.Select("zrtextor.locate")
}
