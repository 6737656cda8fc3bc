package charlist

import (
	"sync"

	"github.com/derekparker/trie"
)

// The named registry holds well-known codespaces. It is read-mostly
// after initialization.
var (
	registryMu sync.Mutex
	registry   = trie.New()
)

// Register stores a charlist under a name.
func Register(name string, cl List) {
	registryMu.Lock()
	defer registryMu.Unlock()
	tracer().Debugf("charlist registry stores %s (%d codes)", name, cl.Count())
	registry.Add(name, Normalize(cl))
}

// Lookup retrieves a registered charlist by name.
func Lookup(name string) (List, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	node, ok := registry.Find(name)
	if !ok {
		return nil, false
	}
	return node.Meta().(List), true
}

// MatchName searches the registry for a name whose charlist equals cl:
// same first element, same total length, same structure. The first
// matching name wins.
func MatchName(cl List) (string, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	norm := Normalize(cl)
	for _, name := range registry.Keys() {
		node, ok := registry.Find(name)
		if !ok {
			continue
		}
		reg := node.Meta().(List)
		if len(norm) == 0 || len(reg) == 0 || norm[0] != reg[0] {
			continue
		}
		if norm.Count() != reg.Count() {
			continue
		}
		if Equal(norm, reg) {
			return name, true
		}
	}
	return "", false
}

func init() {
	Register("UNICODE-BMP", List{{0x0000, 0xffff}})
	var gl List
	for hi := 0x21; hi <= 0x7e; hi++ {
		gl = append(gl, Item{hi<<8 | 0x21, hi<<8 | 0x7e})
	}
	Register("GL94DB", gl)
}
