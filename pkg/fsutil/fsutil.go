// Package fsutil has path helpers shared by the directory walkers.
package fsutil

import (
	"path/filepath"
	"strings"
)

// IsWithin reports whether path is root or lies below it. Both paths are
// compared lexically.
func IsWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// NestedDir returns the absolute, cleaned form of dir when it lies strictly
// inside absRoot, and "" otherwise. Walkers skip the returned directory so a
// run never reads its own output.
func NestedDir(absRoot, dir string) string {
	if dir == "" {
		return ""
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	abs = filepath.Clean(abs)
	if abs == filepath.Clean(absRoot) || !IsWithin(abs, absRoot) {
		return ""
	}
	return abs
}
