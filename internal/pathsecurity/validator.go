// Package pathsecurity validates untrusted relative path strings before
// they are joined to a trusted base directory, for use by file-reading
// tools. Validation runs in two phases: a syntactic screen over the raw
// string, and a post-resolution containment check against the real
// (symlink-resolved) base directory.
package pathsecurity

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMaxPathLength     = 4096
	DefaultMaxComponents     = 10
	extendedPathLengthLimit  = 32767
	maxSeparatorsBeforeBomb  = 100
)

// Config controls a Validator's limits. Zero values fall back to defaults
// in NewValidator.
type Config struct {
	MaxPathLength int
	MaxComponents int
	AllowSymlinks bool
}

// Validator is stateless once constructed: it holds only immutable
// configuration and the resolved base directory. Its only I/O is in the
// post-resolution check: the real-path lookup and, when symlinks are
// disallowed, an Lstat of each path component. Safe for concurrent use.
type Validator struct {
	baseDir       string // real, symlink-resolved, absolute
	maxPathLength int
	maxComponents int
	allowSymlinks bool
}

// NewValidator resolves baseDir to its canonical real path and returns a
// Validator rooted there.
func NewValidator(baseDir string, cfg Config) (*Validator, error) {
	real, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(real)
	if err != nil {
		return nil, err
	}
	maxLen := cfg.MaxPathLength
	if maxLen <= 0 {
		maxLen = DefaultMaxPathLength
	}
	maxComp := cfg.MaxComponents
	if maxComp <= 0 {
		maxComp = DefaultMaxComponents
	}
	return &Validator{
		baseDir:       abs,
		maxPathLength: maxLen,
		maxComponents: maxComp,
		allowSymlinks: cfg.AllowSymlinks,
	}, nil
}

// Validate runs both phases against a caller-supplied relative path.
func (v *Validator) Validate(path string) Result {
	if r := v.preResolutionCheck(path); !r.Valid {
		return r
	}
	if r := v.syntacticScreen(path); !r.Valid {
		return r
	}
	if r := v.categorisedSecondaryScreen(path); !r.Valid {
		return r
	}
	return v.postResolutionCheck(path)
}

func (v *Validator) preResolutionCheck(path string) Result {
	if strings.TrimSpace(path) == "" {
		return reject(ReasonEmpty)
	}
	if len(path) > v.maxPathLength {
		return reject(ReasonTooLong)
	}
	if strings.ContainsRune(path, 0) {
		return reject(ReasonNulByte)
	}
	for _, r := range path {
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if unicode.IsControl(r) {
			return reject(ReasonControlChar)
		}
	}
	if norm.NFC.String(path) != path {
		return reject(ReasonNormalization)
	}
	if isAbsoluteAnyPlatform(path) {
		return reject(ReasonAbsolute)
	}
	if componentCount(path) > v.maxComponents {
		return reject(ReasonTooManyComponents)
	}
	return ok("")
}

func (v *Validator) syntacticScreen(path string) Result {
	if syntacticAttackPattern.MatchString(path) {
		return reject(ReasonSyntacticAttack)
	}
	return ok("")
}

func (v *Validator) categorisedSecondaryScreen(path string) Result {
	if encodedTraversalPattern.MatchString(path) {
		return reject(ReasonEncodedTraversal)
	}
	if deviceNamePattern.MatchString(path) {
		return reject(ReasonReservedDeviceName)
	}
	if len(path) > extendedPathLengthLimit {
		return reject(ReasonExtendedLengthBypass)
	}
	if countSeparators(path) > maxSeparatorsBeforeBomb {
		return reject(ReasonNestingBomb)
	}
	for _, r := range path {
		if invisibleChars[r] || unicode.Is(unicode.Cf, r) {
			return reject(ReasonInvisibleChar)
		}
	}
	if hasMixedSeparators(path) {
		return reject(ReasonMixedSeparators)
	}
	if templateSigilPattern.MatchString(path) {
		return reject(ReasonTemplateSigil)
	}
	for _, name := range sensitiveDirNames {
		if caseVariedPattern(name).MatchString(path) {
			return reject(ReasonCaseVariationAttack)
		}
	}
	return ok("")
}

func (v *Validator) postResolutionCheck(path string) Result {
	joined := filepath.Join(v.baseDir, filepath.FromSlash(path))
	real, err := filepath.EvalSymlinks(joined)
	if err != nil {
		// The target need not exist yet for some callers; fall back to the
		// lexically cleaned join so containment can still be checked.
		real = filepath.Clean(joined)
	}

	if !isDescendant(v.baseDir, real) {
		return reject(ReasonSymlinkEscape)
	}

	if !v.allowSymlinks {
		if hasSymlinkComponent(v.baseDir, path) {
			return reject(ReasonSymlinkComponent)
		}
	}

	for _, comp := range strings.FieldsFunc(path, isSeparator) {
		if strings.HasPrefix(comp, ".") && strings.ContainsAny(comp[1:], "./\\") {
			return reject(ReasonHiddenFileTraversal)
		}
	}

	return ok(real)
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

func componentCount(path string) int {
	return len(strings.FieldsFunc(path, isSeparator))
}

func isAbsoluteAnyPlatform(path string) bool {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return true
	}
	if len(path) >= 2 && ((path[0] >= 'A' && path[0] <= 'Z') || (path[0] >= 'a' && path[0] <= 'z')) && path[1] == ':' {
		return true
	}
	return filepath.IsAbs(path)
}

func isDescendant(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// hasSymlinkComponent reports whether any directory component between
// base and the joined relative path is itself a symlink.
func hasSymlinkComponent(base, relPath string) bool {
	parts := strings.FieldsFunc(relPath, isSeparator)
	cur := base
	for _, p := range parts {
		cur = filepath.Join(cur, p)
		info, err := os.Lstat(cur)
		if err != nil {
			return false
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return true
		}
	}
	return false
}
