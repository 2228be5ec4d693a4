package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/cmarkley/hoard/internal/stats"
)

// plainPresenter outputs one line per copied file to stdout and a periodic
// progress line to stderr.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	verbose bool
	isTTY   bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	progress := time.NewTicker(5 * time.Second)
	defer progress.Stop()

	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-tick.C:
			p.stats.Tick()
		case <-progress.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case ScanStarted:
		fmt.Fprintln(p.errW, "scanning file system...")
	case ScanComplete:
		if ev.Total == 0 {
			fmt.Fprintln(p.errW, "everything is up to date")
		} else {
			fmt.Fprintf(p.errW, "%s stale in %s files\n",
				FormatBytes(ev.TotalSize), FormatCount(ev.Total))
		}
	case FileCopied:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s\n", ev.Path, FormatBytes(ev.Size))
		}
	case FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s\n", ev.Path, errMsg)
	case FileVanished:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  vanished, skipped\n", ev.Path)
		}
	case PassComplete:
		fmt.Fprintf(p.errW, "pass %d: %s files still stale, retrying\n",
			ev.Pass, FormatCount(ev.Remaining))
	case RetryExhausted:
		fmt.Fprintf(p.w, "%s  gave up after %d passes\n", ev.Path, ev.Pass)
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	if snap.BytesTotal == 0 {
		return
	}
	pct := float64(snap.BytesCopied) / float64(snap.BytesTotal) * 100
	fmt.Fprintf(p.errW, "progress: %.0f%% %s/%s %s/%s files %s eta %s\n",
		pct,
		FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal),
		FormatCount(snap.FilesCopied), FormatCount(snap.FilesTotal),
		FormatRate(p.stats.RollingSpeed(10)),
		FormatETA(p.stats.ETA()),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
