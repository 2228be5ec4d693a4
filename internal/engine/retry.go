package engine

import (
	"context"
	"fmt"

	"github.com/cmarkley/hoard/internal/event"
	"github.com/cmarkley/hoard/internal/stats"
)

// DefaultMaxPasses bounds the rescan loop. Ten passes is far more than an
// overloaded OS needs to catch up; anything still stale after that is being
// held stale externally.
const DefaultMaxPasses = 10

// RescanLoop drives repeated copy passes over a batch until every item is
// current at the destination or the retry ceiling is reached. After each pass
// it re-applies the freshness check to exactly the items just attempted; this
// recovers copies that reported success before the OS finished flushing, or
// that were dropped under concurrent load.
type RescanLoop struct {
	MaxPasses int // 0 selects DefaultMaxPasses
	Stats     *stats.Collector
	Events    chan<- event.Event
}

// Drive runs the loop to completion and reports the fate of every task.
// The re-check for a pass happens strictly after that pass's CopyAll has
// returned.
func (r *RescanLoop) Drive(ctx context.Context, pool *WorkerPool, tasks []CopyTask) Report {
	maxPasses := r.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	var report Report
	batch := tasks
	for len(batch) > 0 && ctx.Err() == nil {
		outcomes := pool.CopyAll(ctx, batch)
		report.Passes++
		if r.Stats != nil {
			r.Stats.AddPasses(1)
		}

		next := r.rescan(outcomes, &report)
		if len(next) == 0 {
			break
		}

		if report.Passes >= maxPasses {
			for _, task := range next {
				oc := CopyOutcome{
					Task: task,
					Err:  fmt.Errorf("%s: %w", task.SrcPath, ErrRetryExhausted),
				}
				report.Failed = append(report.Failed, oc)
				r.emit(event.Event{
					Type:  event.RetryExhausted,
					Path:  task.SrcPath,
					Size:  task.Size,
					Pass:  report.Passes,
					Error: oc.Err,
				})
			}
			break
		}

		report.Retried += len(next)
		if r.Stats != nil {
			r.Stats.AddRetries(int64(len(next)))
		}
		r.emit(event.Event{
			Type:      event.PassComplete,
			Pass:      report.Passes,
			Remaining: int64(len(next)),
		})
		batch = next
	}

	report.Copied = len(tasks) - report.Vanished - len(report.Failed)
	return report
}

// rescan re-applies the freshness check to the attempted items and returns
// the ones still stale. Sources that vanished are abandoned without counting
// as failures.
func (r *RescanLoop) rescan(outcomes []CopyOutcome, report *Report) []CopyTask {
	var next []CopyTask
	for _, oc := range outcomes {
		stale, err := NeedsCopy(oc.Task.SrcPath, oc.Task.DstPath)
		if err != nil {
			report.Vanished++
			continue
		}
		if stale {
			next = append(next, oc.Task)
		}
	}
	return next
}

func (r *RescanLoop) emit(ev event.Event) {
	if r.Events != nil {
		r.Events <- ev
	}
}
