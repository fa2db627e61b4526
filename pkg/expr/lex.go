package expr

import (
	"fmt"
	"strconv"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokLParen
	tokRParen
	tokOp
)

type token struct {
	kind tokKind
	text string
	val  int64
}

func lex(src string, norm func(string) string) ([]token, error) {
	var toks []token
	i, n := 0, len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
		case c >= '0' && c <= '9':
			j := i + 1
			if c == '0' && j < n && (src[j] == 'x' || src[j] == 'X') {
				j++
				for j < n && isHexDigit(src[j]) {
					j++
				}
			} else {
				for j < n && src[j] >= '0' && src[j] <= '9' {
					j++
				}
			}
			text := src[i:j]
			v, err := strconv.ParseUint(text, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q in %q", ErrSyntax, text, src)
			}
			toks = append(toks, token{kind: tokNum, text: text, val: int64(v)})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < n {
				if isIdentChar(src[j]) {
					j++
					continue
				}
				// Schema display names carry single interior spaces
				// ("Num Vertices"); absorb a space when an identifier
				// character follows it.
				if src[j] == ' ' && j+1 < n && isIdentChar(src[j+1]) {
					j += 2
					continue
				}
				break
			}
			name := src[i:j]
			if norm != nil {
				name = norm(name)
			}
			toks = append(toks, token{kind: tokIdent, text: name})
			i = j
		default:
			op, width := lexOp(src[i:])
			if width == 0 {
				return nil, fmt.Errorf("%w: unexpected character %q in %q", ErrSyntax, string(c), src)
			}
			toks = append(toks, token{kind: tokOp, text: op})
			i += width
		}
	}
	return toks, nil
}

func lexOp(s string) (string, int) {
	if len(s) >= 2 {
		switch s[:2] {
		case "&&", "||", "<<", ">>", "<=", ">=", "==", "!=":
			return s[:2], 2
		}
	}
	switch s[0] {
	case '!', '-', '+', '*', '/', '%', '<', '>', '&', '^', '|':
		return s[:1], 1
	}
	return "", 0
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
