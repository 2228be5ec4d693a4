package engine

import (
	"path/filepath"
	"strings"
)

// DestPath maps a source path to its mirror under dstRoot. baseOffset is the
// index within srcPath at which the base name of the originally requested
// source root begins, so a root requested as /a/b/project lands at
// dstRoot/project and every descendant keeps its relative layout below it.
// Pure string manipulation; separators are normalized so the result is valid
// on the host platform regardless of which style srcPath used.
func DestPath(dstRoot, srcPath string, baseOffset int) string {
	if baseOffset < 0 || baseOffset > len(srcPath) {
		baseOffset = 0
	}
	suffix := filepath.ToSlash(srcPath[baseOffset:])
	suffix = strings.Trim(suffix, "/")
	return filepath.Join(dstRoot, filepath.FromSlash(suffix))
}

// BaseOffset returns the index at which the base name of root begins, for use
// with DestPath. The root is cleaned first, so callers must walk the cleaned
// path too.
func BaseOffset(root string) int {
	cleaned := filepath.Clean(root)
	return len(cleaned) - len(filepath.Base(cleaned))
}
