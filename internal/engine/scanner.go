package engine

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cmarkley/hoard/internal/stats"
)

// Scanner walks source roots and collects the files that are stale relative
// to their mirror under the destination root. The walk is iterative: an
// explicit frontier of directories is drained rather than recursing, so
// arbitrarily deep trees cannot exhaust the stack.
type Scanner struct {
	dstRoot string
	stats   *stats.Collector
}

// NewScanner creates a scanner writing counters to collector (may be nil).
func NewScanner(dstRoot string, collector *stats.Collector) *Scanner {
	if collector == nil {
		collector = stats.NewCollector()
	}
	return &Scanner{dstRoot: dstRoot, stats: collector}
}

// Scan walks every source root and returns the stale set. Roots may be files
// or directories. Unreadable directories are logged and skipped along with
// everything beneath them; sources that vanish mid-scan are dropped silently.
// Directories are traversal nodes only and never become tasks.
func (s *Scanner) Scan(roots []string) ScanResult {
	var res ScanResult
	for _, root := range roots {
		root = filepath.Clean(root)
		offset := BaseOffset(root)

		info, err := os.Lstat(root)
		if err != nil {
			slog.Warn("skipping source root", "path", root, "error", err)
			continue
		}
		if !info.IsDir() {
			s.consider(root, offset, &res)
			continue
		}

		frontier := []string{root}
		for len(frontier) > 0 {
			dir := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]

			entries, err := os.ReadDir(dir)
			if err != nil {
				// Non-fatal: the subtree is simply never considered.
				slog.Warn("skipping unreadable directory", "path", dir, "error", err)
				continue
			}
			for _, entry := range entries {
				child := filepath.Join(dir, entry.Name())
				if entry.IsDir() {
					// Directories always descend; freshness only filters files.
					frontier = append(frontier, child)
					continue
				}
				s.consider(child, offset, &res)
			}
		}
	}
	return res
}

// consider applies the freshness check to a single non-directory entry and
// appends a task if it is stale.
func (s *Scanner) consider(path string, baseOffset int, res *ScanResult) {
	info, err := os.Lstat(path)
	if err != nil {
		slog.Debug("source vanished during scan", "path", path)
		s.stats.AddFilesVanished(1)
		return
	}
	if !info.Mode().IsRegular() {
		// Symlinks and special files are not backed up. Not following
		// links also means link cycles cannot trap the walk.
		return
	}

	s.stats.AddFilesChecked(1)
	dst := DestPath(s.dstRoot, path, baseOffset)
	if !staleAgainst(info, dst) {
		return
	}

	res.Tasks = append(res.Tasks, CopyTask{SrcPath: path, DstPath: dst, Size: info.Size()})
	res.TotalBytes += info.Size()
	s.stats.AddFilesStale(1)
}
