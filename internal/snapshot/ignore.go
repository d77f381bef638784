package snapshot

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob is a validated doublestar pattern. The zero value matches nothing.
type Glob struct {
	pattern string
}

// CompileGlob validates pattern and returns its compiled form.
func CompileGlob(pattern string) (Glob, error) {
	if pattern == "" {
		return Glob{}, fmt.Errorf("compile glob: empty pattern")
	}
	if !doublestar.ValidatePattern(pattern) {
		return Glob{}, fmt.Errorf("compile glob %q: %w", pattern, doublestar.ErrBadPattern)
	}
	return Glob{pattern: pattern}, nil
}

// MustCompileGlob is like CompileGlob but panics on an invalid pattern.
// Intended for patterns known at compile time.
func MustCompileGlob(pattern string) Glob {
	g, err := CompileGlob(pattern)
	if err != nil {
		panic(err)
	}
	return g
}

// String returns the pattern text.
func (g Glob) String() string {
	return g.pattern
}

// Match reports whether the slash-separated relative path rel matches.
// Patterns without a separator match at any depth, like .gitignore entries.
func (g Glob) Match(rel string) bool {
	if g.pattern == "" {
		return false
	}
	if ok, _ := doublestar.Match(g.pattern, rel); ok {
		return true
	}
	if !strings.Contains(g.pattern, "/") {
		ok, _ := doublestar.Match("**/"+g.pattern, rel)
		return ok
	}
	return false
}

// IgnoreGlob excludes paths under BasePath whose relative form matches Glob.
// BasePath is the directory of the project file that declared the rule and
// must already be absolute; it is not validated here.
type IgnoreGlob struct {
	BasePath string
	Glob     Glob
}

// NewIgnoreGlob compiles pattern and anchors it at basePath.
func NewIgnoreGlob(basePath, pattern string) (IgnoreGlob, error) {
	g, err := CompileGlob(pattern)
	if err != nil {
		return IgnoreGlob{}, err
	}
	return IgnoreGlob{BasePath: basePath, Glob: g}, nil
}

// Matches reports whether path falls under this rule. BasePath itself and
// paths outside its subtree never match.
func (ig IgnoreGlob) Matches(path string) bool {
	rel, err := filepath.Rel(ig.BasePath, path)
	if err != nil {
		return false
	}
	// The anchor directory itself is never ignored by its own rule.
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return ig.Glob.Match(filepath.ToSlash(rel))
}

func (ig IgnoreGlob) String() string {
	return fmt.Sprintf("%s (in %s)", ig.Glob.pattern, ig.BasePath)
}
