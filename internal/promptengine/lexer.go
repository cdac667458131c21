package promptengine

import "strings"

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenTag
)

type token struct {
	kind tokenKind
	text string // literal text, for tokenText
	tag  string // trimmed content between "{{" and "}}", for tokenTag
	full string // "{{...}}" exactly as written, for the unknown-variable fallback
	pos  int    // byte offset in source where this token starts
}

// lex splits template source into alternating text and tag tokens. It does
// not validate tag contents — that is the parser's job, so that syntax
// errors can be reported with full path/filter context.
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		open := strings.Index(src[i:], "{{")
		if open < 0 {
			tokens = append(tokens, token{kind: tokenText, text: src[i:], pos: i})
			break
		}
		open += i
		if open > i {
			tokens = append(tokens, token{kind: tokenText, text: src[i:open], pos: i})
		}
		close := strings.Index(src[open:], "}}")
		if close < 0 {
			return nil, newTemplateError(src, open, "unterminated \"{{\" tag")
		}
		close += open
		raw := src[open+2 : close]
		tokens = append(tokens, token{kind: tokenTag, tag: strings.TrimSpace(raw), full: src[open : close+2], pos: open})
		i = close + 2
	}
	return tokens, nil
}
