/*
Package vf implements the Virtual Font binary format.

A VF file maps each character of a font to a small DVI program over a
set of real fonts. The package decodes VF bytes into the ZPL
property-list form and encodes such trees back to bytes, including the
DVI mini-interpreter that tracks the w/x/y/z move registers: on
writing, moves are compiled to the compact register forms; on reading,
the symbolic move operators are recovered.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package vf

import (
	"github.com/npillmayer/schuko/tracing"
	"github.com/zr-tex8r/ZRTeXtor/pl"
)

// tracer traces with key 'zrtextor.vf'.
func tracer() tracing.Trace {
	return tracing.Select("zrtextor.vf")
}

// Config collects the processing options of the package.
type Config struct {
	Strict     bool // upgrade structural oddities to errors (default)
	SimpleMove bool // compile all moves to the plain N-byte form
	PL         *pl.Config
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
