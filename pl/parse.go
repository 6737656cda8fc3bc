package pl

import (
	"github.com/zr-tex8r/ZRTeXtor/core"
)

// ParseRaw parses property-list text into an uncooked tree: all atoms
// are Raw or Bareword, no numbers are interpreted yet.
func ParseRaw(src []byte, cfg *Config) (Struct, error) {
	tokens, _, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	tokens = patchCharsInType(tokens)
	var st Struct
	pos := 0
	for pos < len(tokens) {
		if tokens[pos] == ")" {
			return nil, core.Error(core.ESYNTAX, "unmatched ')' at top level (token %d)", pos)
		}
		if tokens[pos] != "(" {
			return nil, core.Error(core.ESYNTAX, "trailing token %q outside any list", tokens[pos])
		}
		l, next, err := parseList(tokens, pos, 0)
		if err != nil {
			return nil, err
		}
		st = append(st, l)
		pos = next
	}
	return st, nil
}

// parseList builds the list opening at tokens[pos] by recursive
// descent; it returns the position after the matching ')'.
func parseList(tokens []string, pos, depth int) (*List, int, error) {
	l := &List{}
	i := pos + 1
	for i < len(tokens) {
		switch tokens[i] {
		case "(":
			sub, next, err := parseList(tokens, i, depth+1)
			if err != nil {
				return nil, 0, err
			}
			l.Elems = append(l.Elems, sub)
			i = next
		case ")":
			if len(l.Elems) > 0 {
				if h, ok := l.Elems[0].(Raw); ok {
					l.Elems[0] = Bareword(h)
				}
			}
			return l, i + 1, nil
		default:
			l.Elems = append(l.Elems, Raw(tokens[i]))
			i++
		}
	}
	return nil, 0, core.Error(core.ESYNTAX,
		"unbalanced parentheses: %d level(s) open at end of input", depth+1)
}

// Parse parses and cooks property-list text.
func Parse(src []byte, cfg *Config) (Struct, error) {
	st, err := ParseRaw(src, cfg)
	if err != nil {
		return nil, err
	}
	return Cook(st, cfg)
}

// Cook interprets prefixed number tokens throughout the tree and drops
// COMMENT lists. It returns the cooked struct; sub-lists are cooked in
// place.
func Cook(st Struct, cfg *Config) (Struct, error) {
	cfg = cfg.orDefault()
	out := make(Struct, 0, len(st))
	for _, l := range st {
		if l.Head() == "COMMENT" {
			continue
		}
		if err := cookList(l, cfg); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func cookList(l *List, cfg *Config) error {
	out := make([]Node, 0, len(l.Elems))
	for i := 0; i < len(l.Elems); i++ {
		switch e := l.Elems[i].(type) {
		case *List:
			if e.Head() == "COMMENT" {
				continue
			}
			if err := cookList(e, cfg); err != nil {
				return err
			}
			out = append(out, e)
		case Raw:
			if i > 0 && i < len(l.Elems)-1 {
				if k, ok := prefixKind(string(e)); ok {
					tok, isAtom := atomText(l.Elems[i+1])
					if !isAtom {
						return core.Error(core.ESYNTAX,
							"prefix %s in %s is not followed by a number token", k, l.Head())
					}
					num, err := ParseNumber(k, tok, cfg)
					if err != nil {
						return core.WrapError(err, core.Code(err), "in list %s", l.Head())
					}
					out = append(out, num)
					i++
					continue
				}
			}
			out = append(out, e)
		default:
			out = append(out, e)
		}
	}
	l.Elems = out
	return nil
}

// atomText returns the text of a Raw or Bareword atom.
func atomText(n Node) (string, bool) {
	switch a := n.(type) {
	case Raw:
		return string(a), true
	case Bareword:
		return string(a), true
	}
	return "", false
}
