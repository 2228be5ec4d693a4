package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cmarkley/hoard/internal/event"
	"github.com/cmarkley/hoard/internal/platform"
	"github.com/cmarkley/hoard/internal/stats"
)

// DefaultWorkers is the copy concurrency used when none is configured.
const DefaultWorkers = 4

// WorkerConfig controls the copy worker pool.
type WorkerConfig struct {
	NumWorkers    int
	PreserveTimes bool // give copies the source mtime (keeps re-runs quiet)
	DryRun        bool
	Limiter       *rate.Limiter // optional aggregate bandwidth cap
	Stats         *stats.Collector
	Events        chan<- event.Event
}

// WorkerPool executes batches of copy tasks with bounded concurrency.
type WorkerPool struct {
	cfg    WorkerConfig
	copyFn func(ctx context.Context, task CopyTask) error
}

// NewWorkerPool creates a pool. Zero or negative NumWorkers selects
// DefaultWorkers.
func NewWorkerPool(cfg WorkerConfig) *WorkerPool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = DefaultWorkers
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	wp := &WorkerPool{cfg: cfg}
	wp.copyFn = wp.copyFile
	return wp
}

// CopyAll copies every task in the batch and blocks until each attempted task
// has an outcome. A single task's failure never aborts its siblings. On
// context cancellation no new tasks are handed out; in-flight copies finish
// and their outcomes are still returned.
func (wp *WorkerPool) CopyAll(ctx context.Context, tasks []CopyTask) []CopyOutcome {
	queue := make(chan CopyTask)
	outcomes := make(chan CopyOutcome, len(tasks))

	var wg sync.WaitGroup
	for id := 0; id < wp.cfg.NumWorkers; id++ {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				outcomes <- CopyOutcome{Task: task, Err: wp.runTask(ctx, id, task)}
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, task := range tasks {
			select {
			case queue <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(outcomes)

	results := make([]CopyOutcome, 0, len(tasks))
	for oc := range outcomes {
		results = append(results, oc)
	}
	return results
}

// Close removes any temporary files left by interrupted copies.
func (wp *WorkerPool) Close() {
	CleanupTmpFiles()
}

func (wp *WorkerPool) runTask(ctx context.Context, workerID int, task CopyTask) error {
	if wp.cfg.DryRun {
		return nil
	}

	err := wp.copyFn(ctx, task)
	switch Classify(err) {
	case KindNone:
		wp.cfg.Stats.AddFilesCopied(1)
		wp.cfg.Stats.AddBytesCopied(task.Size)
		wp.emit(event.Event{Type: event.FileCopied, Path: task.SrcPath, Size: task.Size, WorkerID: workerID})
	case KindNotFound:
		wp.cfg.Stats.AddFilesVanished(1)
		wp.emit(event.Event{Type: event.FileVanished, Path: task.SrcPath, WorkerID: workerID})
	default:
		wp.cfg.Stats.AddFilesFailed(1)
		wp.emit(event.Event{Type: event.FileFailed, Path: task.SrcPath, Size: task.Size, Error: err, WorkerID: workerID})
	}
	return err
}

// copyFile transfers one file to a temporary name next to the destination and
// renames it into place, so an existing destination is either untouched or
// fully replaced.
func (wp *WorkerPool) copyFile(ctx context.Context, task CopyTask) error {
	srcInfo, err := os.Lstat(task.SrcPath)
	if err != nil {
		return fmt.Errorf("stat source %s: %w", task.SrcPath, err)
	}

	dir := filepath.Dir(task.DstPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent dir %s: %w", dir, err)
	}

	base := filepath.Base(task.DstPath)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.hoard-tmp", base, uuid.New().String()[:8]))

	RegisterTmp(tmpPath)
	defer func() {
		DeregisterTmp(tmpPath)
		_ = os.Remove(tmpPath) // no-op if rename succeeded
	}()

	tmpFd, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create tmp %s: %w", tmpPath, err)
	}

	if wp.cfg.Limiter != nil {
		err = wp.copyThrottled(ctx, task.SrcPath, tmpFd)
	} else {
		_, err = platform.CopyFile(platform.CopyParams{
			Dst:     tmpFd,
			SrcPath: task.SrcPath,
			Size:    srcInfo.Size(),
		})
	}
	if err != nil {
		tmpFd.Close()
		return fmt.Errorf("copy data %s: %w", task.SrcPath, err)
	}

	if err := tmpFd.Close(); err != nil {
		return fmt.Errorf("close tmp %s: %w", tmpPath, err)
	}

	if wp.cfg.PreserveTimes {
		mod := srcInfo.ModTime()
		if err := os.Chtimes(tmpPath, mod, mod); err != nil {
			return fmt.Errorf("set times %s: %w", tmpPath, err)
		}
	}

	if err := os.Rename(tmpPath, task.DstPath); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, task.DstPath, err)
	}
	return nil
}

// copyThrottled is the bandwidth-limited path: a plain buffered copy behind a
// shared token bucket, since the syscall fast paths bypass userspace.
func (wp *WorkerPool) copyThrottled(ctx context.Context, srcPath string, dst *os.File) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(dst, newRateLimitedReader(ctx, src, wp.cfg.Limiter))
	return err
}

func (wp *WorkerPool) emit(ev event.Event) {
	if wp.cfg.Events != nil {
		wp.cfg.Events <- ev
	}
}
