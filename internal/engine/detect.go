package engine

import (
	"fmt"
	"io/fs"
	"os"
	"time"
)

// NeedsCopy reports whether srcPath is stale relative to dstPath: the source
// modification time is strictly newer than the destination's. A missing
// destination, or a source that is itself a directory, counts as a zero
// destination mtime, so both are always considered stale. The returned error
// wraps fs.ErrNotExist when the source has vanished since it was last seen;
// callers treat that as skip, not fatal.
func NeedsCopy(srcPath, dstPath string) (bool, error) {
	info, err := os.Lstat(srcPath)
	if err != nil {
		return false, fmt.Errorf("stat source %s: %w", srcPath, err)
	}
	return staleAgainst(info, dstPath), nil
}

// staleAgainst is the mtime comparison shared by the scanner (which already
// holds a FileInfo) and NeedsCopy.
func staleAgainst(srcInfo fs.FileInfo, dstPath string) bool {
	var dstMod time.Time
	if !srcInfo.IsDir() {
		if dstInfo, err := os.Stat(dstPath); err == nil {
			dstMod = dstInfo.ModTime()
		}
	}
	return srcInfo.ModTime().After(dstMod)
}
