package pathsecurity

import (
	"regexp"
	"strings"
)

// syntacticAttackPattern is the single-pass regex screen applied to every
// raw path before any filesystem resolution happens. Any match rejects the
// path outright with ReasonSyntacticAttack; the categorised screen below
// runs only on paths that pass this one and adds further rejections, each
// with its own specific reason.
var syntacticAttackPattern = regexp.MustCompile(strings.Join([]string{
	`\.\.[\\/]`,             // ../ or ..\
	`[\\/]\.\.`,             // /.. or \..
	`^\.\.$`,                // bare ..
	`^[A-Za-z]:[\\/]`,       // drive-letter prefix
	`^[\\/]{2}`,             // UNC prefix //host or \\host
	`^[a-zA-Z][a-zA-Z0-9+.-]*://`, // URI scheme
	`(?i)(^|[\\/])(CON|PRN|AUX|NUL|COM[1-9]|LPT[1-9])(\.[^\\/]*)?([\\/]|$)`,
	`[<>:"|?*]`,
	`[\x00-\x1f]`,
	`\$\{`, `#\{`, `%\{`, `\$\(`, "`",
	`(?i)%2e`, `(?i)%2f`, `(?i)%5c`,
	`(?i)%252e`, `(?i)%252f`, `(?i)%255c`,
	`\\x2e`, `(?i)\\u002e`,
	`&&`, `;;`, `\|\|`, `\|[^|]`, `;[^;]`,
}, "|"))

// encodedTraversalPattern catches encoded and overlong-UTF-8 traversal
// sequences the syntactic screen's simpler %2e/%2f checks miss.
var encodedTraversalPattern = regexp.MustCompile(`(?i)%c0%ae|%e0%80%ae|%c1%9c|%c0%af|%e0%80%af`)

// deviceNamePattern matches a Windows reserved device name occurring as
// any path component, not just a prefix.
var deviceNamePattern = regexp.MustCompile(`(?i)(^|[\\/])(CON|PRN|AUX|NUL|COM[1-9]|LPT[1-9])(\.[^\\/]*)?([\\/]|$)`)

// templateSigilPattern matches template-engine interpolation delimiters
// that would let a path string double as a template injection payload.
var templateSigilPattern = regexp.MustCompile(`\$\{|#\{|%\{|\$\(|\{\{|\{%|<%|\[%|\[\[|\]\]|\}\}`)

// sensitiveDirNames lists known sensitive directory names; caseVariedPattern
// builds a matcher for each that allows arbitrary per-character case
// variation (e.g. "SyStEm32").
var sensitiveDirNames = []string{"system32", "windows", "etc", "usr", "var", "bin", "sbin"}

func caseVariedPattern(name string) *regexp.Regexp {
	var b strings.Builder
	for _, r := range name {
		b.WriteString("[")
		b.WriteRune(toUpperRune(r))
		b.WriteRune(toLowerRune(r))
		b.WriteString("]")
	}
	return regexp.MustCompile(`[\\/]` + b.String() + `[\\/]`)
}

func toUpperRune(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + 32
	}
	return r
}

// hasMixedSeparators reports whether path contains both '/' and '\'.
func hasMixedSeparators(path string) bool {
	return strings.ContainsRune(path, '/') && strings.ContainsRune(path, '\\')
}

// countSeparators counts both separator characters.
func countSeparators(path string) int {
	return strings.Count(path, "/") + strings.Count(path, "\\")
}

// invisibleChars are specific zero-width and bidi-control code points
// called out by name; the Unicode FORMAT (Cf) category check in
// categorisedSecondaryScreen covers the rest, and control characters are
// already rejected by preResolutionCheck.
var invisibleChars = map[rune]bool{
	'​': true, // zero-width space
	'‌': true, // zero-width non-joiner
	'‍': true, // zero-width joiner
	0xFEFF: true, // BOM
	'‪': true, // left-to-right embedding
	'‫': true, // right-to-left embedding
	'‬': true, // pop directional formatting
	'‭': true, // left-to-right override
	'‮': true, // right-to-left override
}

func init() {
	for r := rune(0x2066); r <= 0x2069; r++ { // bidirectional isolates
		invisibleChars[r] = true
	}
}
