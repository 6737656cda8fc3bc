package pl

import (
	"github.com/zr-tex8r/ZRTeXtor/core/kanji"
)

// Node is one node of a property-list tree: a symbolic bareword, a raw
// (uninterpreted) atom, a cooked number, or a nested list.
type Node interface {
	node()
}

// Bareword is a symbolic identifier, e.g. the head of a list.
type Bareword string

// Raw is an atom awaiting interpretation.
type Raw string

// Number is a cooked numeric atom. It carries the prefix kind it was
// read with and, as long as the value has not been mutated, the source
// token, so that re-emitting an untouched tree is byte-exact.
type Number struct {
	Kind    Kind
	Value   int64
	literal string
}

// List is a parenthesized sequence. Elems[0] is the head bareword.
type List struct {
	Elems []Node
}

// Struct is a whole property-list file: a sequence of top-level lists.
type Struct []*List

func (Bareword) node() {}
func (Raw) node()      {}
func (*Number) node()  {}
func (*List) node()    {}

// NewNumber creates a cooked number without a source token.
func NewNumber(kind Kind, value int64) *Number {
	return &Number{Kind: kind, Value: value}
}

// newLiteralNumber is used by the cooking pass; it remembers the token
// the number was read from.
func newLiteralNumber(kind Kind, value int64, token string) *Number {
	return &Number{Kind: kind, Value: value, literal: token}
}

// SetValue mutates the number. The preserved source token is dropped,
// subsequent emission re-renders from kind and value.
func (n *Number) SetValue(v int64) {
	n.Value = v
	n.literal = ""
}

// Literal returns the preserved source token, or "" after mutation.
func (n *Number) Literal() string {
	return n.literal
}

// NewList builds a list from a head and further nodes.
func NewList(head string, elems ...Node) *List {
	l := &List{Elems: make([]Node, 0, len(elems)+1)}
	l.Elems = append(l.Elems, Bareword(head))
	l.Elems = append(l.Elems, elems...)
	return l
}

// Head returns the head symbol of a list, or "" for a headless list.
func (l *List) Head() string {
	if l == nil || len(l.Elems) == 0 {
		return ""
	}
	switch h := l.Elems[0].(type) {
	case Bareword:
		return string(h)
	case Raw:
		return string(h)
	}
	return ""
}

// Append appends nodes to a list.
func (l *List) Append(nodes ...Node) *List {
	l.Elems = append(l.Elems, nodes...)
	return l
}

// Sublist returns the first child list with the given head, or nil.
func (l *List) Sublist(head string) *List {
	if l == nil {
		return nil
	}
	for _, e := range l.Elems {
		if sub, ok := e.(*List); ok && sub.Head() == head {
			return sub
		}
	}
	return nil
}

// Sublists returns all child lists with the given head.
func (l *List) Sublists(head string) []*List {
	var subs []*List
	if l == nil {
		return subs
	}
	for _, e := range l.Elems {
		if sub, ok := e.(*List); ok && sub.Head() == head {
			subs = append(subs, sub)
		}
	}
	return subs
}

// FirstNumber returns the first cooked number among the list's
// elements, or nil.
func (l *List) FirstNumber() *Number {
	if l == nil {
		return nil
	}
	for _, e := range l.Elems {
		if n, ok := e.(*Number); ok {
			return n
		}
	}
	return nil
}

// NumberAt returns the i-th cooked number (0-based) among the list's
// elements, or nil.
func (l *List) NumberAt(i int) *Number {
	if l == nil {
		return nil
	}
	for _, e := range l.Elems {
		if n, ok := e.(*Number); ok {
			if i == 0 {
				return n
			}
			i--
		}
	}
	return nil
}

// Value returns the value of the first cooked number of a list.
func (l *List) Value() (int64, bool) {
	if n := l.FirstNumber(); n != nil {
		return n.Value, true
	}
	return 0, false
}

// FindHead returns the first top-level list with the given head, or nil.
func (st Struct) FindHead(head string) *List {
	for _, l := range st {
		if l.Head() == head {
			return l
		}
	}
	return nil
}

// FindAll returns all top-level lists with the given head.
func (st Struct) FindAll(head string) []*List {
	var ls []*List
	for _, l := range st {
		if l.Head() == head {
			ls = append(ls, l)
		}
	}
	return ls
}

// Config collects the processing options of the package. The zero
// value is not useful; use Default or derive from it.
type Config struct {
	PreferHex    bool        // emit I-numbers as H instead of O
	FreeNumber   bool        // widen non-R prefix ranges to signed 32 bit
	ForcedPrefix Kind        // when set, overrides the prefix of non-R numbers on emission
	Codec        kanji.Codec // external/internal Japanese encoding pair
}

// Default holds the process-wide defaults, so that top-level operations
// work without explicit configuration.
var Default = Config{Codec: kanji.Default}

func (cfg *Config) orDefault() *Config {
	if cfg == nil {
		return &Default
	}
	return cfg
}
