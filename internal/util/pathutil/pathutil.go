// Package pathutil holds the path predicates shared by the graph, binary and
// receipt packages.
package pathutil

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s, used for case-insensitive name matching.
// A Caser is stateful, so each call gets its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal under case folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// IsUnder reports whether path is dir itself or lies beneath it.
func IsUnder(path, dir string) bool {
	if dir == "" || path == "" {
		return false
	}
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}

// Components returns the directory names of path below root, excluding the
// final element. A path outside root yields nil.
func Components(path, root string) []string {
	if !IsUnder(path, root) {
		return nil
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return parts[:len(parts)-1]
}

// ContainsFolder reports whether any directory between root and path matches
// one of names, compared case-insensitively. Names must already be folded.
func ContainsFolder(path, root string, names map[string]struct{}) bool {
	for _, c := range Components(path, root) {
		if _, ok := names[Fold(c)]; ok {
			return true
		}
	}
	return false
}

// FoldAll returns a lookup set holding the folded form of every name.
func FoldAll(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[Fold(n)] = struct{}{}
	}
	return out
}

// ReplaceExtension swaps the extension of path for ext (which includes the dot).
func ReplaceExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
