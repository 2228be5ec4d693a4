// Package engine implements the incremental backup core: scanning source
// trees for stale files, copying them concurrently, and rescanning attempted
// items until the destination is current.
package engine

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/time/rate"

	"github.com/cmarkley/hoard/internal/event"
	"github.com/cmarkley/hoard/internal/stats"
)

// Config describes one backup run.
type Config struct {
	DstRoot   string
	Sources   []string
	Workers   int
	MaxPasses int
	DryRun    bool
	NoTimes   bool  // don't give copies the source mtime
	BWLimit   int64 // bytes/sec across all workers; 0 = unlimited

	// Confirm is consulted after the scan with the total stale size and file
	// count. Nil means proceed. Returning false stops before any copying.
	Confirm func(totalBytes int64, files int) bool

	Stats  *stats.Collector
	Events chan<- event.Event
}

// Result is the outcome of a backup run.
type Result struct {
	Stats    stats.Snapshot
	Report   Report
	UpToDate bool // scan found nothing stale
	Declined bool // confirmation answered no
	Err      error
}

// Run executes a backup, blocking until complete. Only an unusable
// destination root fails before scanning; per-item errors are isolated and
// surfaced through the Report.
func Run(ctx context.Context, cfg Config) Result {
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	if err := os.MkdirAll(cfg.DstRoot, 0o755); err != nil {
		return Result{Err: fmt.Errorf("destination root: %w", err)}
	}

	emit(cfg.Events, event.Event{Type: event.ScanStarted})
	scan := NewScanner(cfg.DstRoot, collector).Scan(cfg.Sources)
	collector.SetTotals(int64(len(scan.Tasks)), scan.TotalBytes)
	emit(cfg.Events, event.Event{
		Type:      event.ScanComplete,
		Total:     int64(len(scan.Tasks)),
		TotalSize: scan.TotalBytes,
	})

	if len(scan.Tasks) == 0 {
		return Result{UpToDate: true, Stats: collector.Snapshot()}
	}

	if cfg.DryRun {
		return Result{Stats: collector.Snapshot()}
	}

	if cfg.Confirm != nil && !cfg.Confirm(scan.TotalBytes, len(scan.Tasks)) {
		return Result{Declined: true, Stats: collector.Snapshot()}
	}

	var limiter *rate.Limiter
	if cfg.BWLimit > 0 {
		limiter = NewBWLimiter(cfg.BWLimit)
	}

	pool := NewWorkerPool(WorkerConfig{
		NumWorkers:    cfg.Workers,
		PreserveTimes: !cfg.NoTimes,
		Limiter:       limiter,
		Stats:         collector,
		Events:        cfg.Events,
	})
	defer pool.Close()

	loop := &RescanLoop{
		MaxPasses: cfg.MaxPasses,
		Stats:     collector,
		Events:    cfg.Events,
	}
	report := loop.Drive(ctx, pool, scan.Tasks)

	var err error
	switch {
	case ctx.Err() != nil:
		err = ctx.Err()
	case len(report.Failed) > 0:
		err = fmt.Errorf("%d of %d files could not be brought up to date: %w",
			len(report.Failed), len(scan.Tasks), report.Failed[0].Err)
	}

	return Result{Stats: collector.Snapshot(), Report: report, Err: err}
}

func emit(events chan<- event.Event, ev event.Event) {
	if events != nil {
		events <- ev
	}
}
