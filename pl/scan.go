package pl

import (
	"strings"

	"github.com/zr-tex8r/ZRTeXtor/core"
)

const (
	esc = 0x1b
)

// unwrapJIS removes ISO-2022-JP escape envelopes from src. The payload
// of each ESC $ @|B … ESC ( B|J region is transposed into the high-bit
// range, so that a two-byte character travels as an opaque pair of
// bytes ≥ 0xA1 through the tokenizer. The second return value reports
// whether any envelope was seen; the parser does not keep it. The
// emitter re-wraps atoms carrying such bytes only when the configured
// external encoding is jis, whatever the input looked like.
func unwrapJIS(src []byte) ([]byte, bool, error) {
	if !strings.Contains(string(src), string([]byte{esc, '$'})) {
		return src, false, nil
	}
	out := make([]byte, 0, len(src))
	injis, seen := false, false
	for i := 0; i < len(src); {
		b := src[i]
		if b == esc {
			if i+2 < len(src) && src[i+1] == '$' && (src[i+2] == '@' || src[i+2] == 'B') {
				injis, seen = true, true
				i += 3
				continue
			}
			if i+2 < len(src) && src[i+1] == '(' && (src[i+2] == 'B' || src[i+2] == 'J') {
				injis = false
				i += 3
				continue
			}
			return nil, false, core.Error(core.ESYNTAX, "malformed escape sequence at byte %d", i)
		}
		if injis {
			if i+1 >= len(src) || b < 0x21 || b > 0x7e || src[i+1] < 0x21 || src[i+1] > 0x7e {
				return nil, false, core.Error(core.ESYNTAX, "malformed JIS character pair at byte %d", i)
			}
			out = append(out, b|0x80, src[i+1]|0x80)
			i += 2
			continue
		}
		out = append(out, b)
		i++
	}
	if injis {
		return nil, false, core.Error(core.ESYNTAX, "unterminated JIS region")
	}
	return out, seen, nil
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// tokenize splits property-list text into tokens. Whitespace
// separates; parentheses are tokens of their own. Japanese characters
// arrive as opaque high-bit byte pairs (see unwrapJIS).
func tokenize(src []byte) ([]string, bool, error) {
	src, hadJIS, err := unwrapJIS(src)
	if err != nil {
		return nil, false, err
	}
	var tokens []string
	start := -1
	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, string(src[start:end]))
			start = -1
		}
	}
	for i := 0; i < len(src); i++ {
		b := src[i]
		switch {
		case isSpaceByte(b):
			flush(i)
		case b == '(' || b == ')':
			flush(i)
			tokens = append(tokens, string(b))
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(src))
	return tokens, hadJIS, nil
}

// isHexDigits reports whether s consists of 1..6 hex digits.
func isHexDigits(s string) bool {
	if len(s) == 0 || len(s) > 6 {
		return false
	}
	for _, c := range []byte(s) {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// patchCharsInType repairs CHARSINTYPE bodies for the tokenizer.
// Between '(CHARSINTYPE' and its closing paren the upstream tools may
// emit literal '(' and ')' characters as charlist members, and the
// recent upTeX tool writes 'U xxxx' with a space. Literal parens are
// rewritten to their escape-hex forms X0028/X0029 and the split
// U-token is rejoined. A ')' is taken as the closer of the region when
// it is followed by the end of input or by a '(' that opens a list
// with a known property head; CHARSINTYPE itself never nests.
func patchCharsInType(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		out = append(out, tokens[i])
		if tokens[i] != "(" || i+1 >= len(tokens) || tokens[i+1] != "CHARSINTYPE" {
			continue
		}
		out = append(out, "CHARSINTYPE")
		i++ // now at CHARSINTYPE
	region:
		for i+1 < len(tokens) {
			i++
			switch t := tokens[i]; {
			case t == "(":
				out = append(out, "X0028")
			case t == ")":
				if charsInTypeCloses(tokens, i) {
					out = append(out, ")")
					break region
				}
				out = append(out, "X0029")
			case t == "U" && i+1 < len(tokens) && isHexDigits(tokens[i+1]):
				out = append(out, "U"+tokens[i+1])
				i++
			default:
				out = append(out, t)
			}
		}
	}
	return out
}

// charsInTypeCloses decides whether the ')' at position j terminates a
// CHARSINTYPE region.
func charsInTypeCloses(tokens []string, j int) bool {
	if j+1 >= len(tokens) {
		return true
	}
	if tokens[j+1] != "(" {
		return false
	}
	if j+2 >= len(tokens) {
		return true
	}
	_, known := headWeight(tokens[j+2])
	return known
}
