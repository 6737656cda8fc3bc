/*
Package zvp implements the composite ZVP form of vertical Japanese
virtual fonts.

A ZVP document mixes the JFM-shaped and the VF-shaped properties of a
font together with per-type, per-subtype and per-character metric and
mapping descriptions. The divider splits such a document into the VF
half and the JFM half, relocating subtypes whose metrics disagree with
their parent type to fresh top-level types; the composer reassembles a
ZVP document from the two halves, recovering types and subtypes from
the per-character packets.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package zvp

import (
	"github.com/npillmayer/schuko/tracing"
	"github.com/zr-tex8r/ZRTeXtor/charlist"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

// tracer traces with key 'zrtextor.zvp'.
func tracer() tracing.Trace {
	return tracing.Select("zrtextor.zvp")
}

// Config collects the processing options of the package.
type Config struct {
	Strict bool
	PL     *pl.Config
	CL     *charlist.Config
}

// Default holds the process-wide defaults.
var Default = Config{Strict: true}

func (cfg *Config) orDefault() *Config {
	if cfg == nil {
		return &Default
	}
	return cfg
}

func (cfg *Config) pl() *pl.Config {
	if cfg.PL != nil {
		return cfg.PL
	}
	return &pl.Default
}

func (cfg *Config) cl() *charlist.Config {
	if cfg.CL != nil {
		return cfg.CL
	}
	return &charlist.Default
}

// category sorts the top-level property heads of a ZVP document.
type category int

const (
	catJFM category = iota // goes to the JFM half only
	catVF                  // goes to the VF half only
	catBoth                // copied to both halves
	catStructural          // consumed by the divider itself
)

var headCategory = map[string]category{
	"DIRECTION":        catJFM,
	"FAMILY":           catJFM,
	"FACE":             catJFM,
	"HEADER":           catJFM,
	"CODINGSCHEME":     catJFM,
	"DESIGNUNITS":      catJFM,
	"SEVENBITSAFEFLAG": catJFM,
	"FONTDIMEN":        catJFM,
	"BOUNDARYCHAR":     catJFM,
	"LIGTABLE":         catJFM,
	"VTITLE":           catVF,
	"MAPFONT":          catVF,
	"DESIGNSIZE":       catBoth,
	"CHECKSUM":         catBoth,
	"TYPE":             catStructural,
	"SUBTYPE":          catStructural,
	"CHARSINTYPE":      catStructural,
	"CHARSINSUBTYPE":   catStructural,
	"CHARACTER":        catStructural,
	"GLUEKERN":         catStructural,
	"CODESPACE":        catStructural,
}

// The per-class metric properties compared during subtype migration.
var metricHeads = [...]string{"CHARWD", "CHARHT", "CHARDP", "CHARIC"}

// metricValue reads one metric property of a TYPE/SUBTYPE body.
func metricValue(l *pl.List, head string) (int64, bool) {
	if s := l.Sublist(head); s != nil {
		if n := s.FirstNumber(); n != nil {
			return n.Value, true
		}
	}
	return 0, false
}
