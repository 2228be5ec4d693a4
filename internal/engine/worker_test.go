package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarkley/hoard/internal/stats"
)

func TestWorkerPoolCopiesFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst", "a.txt")
	mtime := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeFileWithMtime(t, src, []byte("hello"), mtime)

	pool := NewWorkerPool(WorkerConfig{NumWorkers: 1, PreserveTimes: true})
	outcomes := pool.CopyAll(context.Background(), []CopyTask{
		{SrcPath: src, DstPath: dst, Size: 5},
	})

	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime), "destination should carry the source mtime")
}

func TestWorkerPoolOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "out", "a.txt")
	writeFileWithMtime(t, src, []byte("new content"), time.Now())
	writeFileWithMtime(t, dst, []byte("stale content that is longer"), time.Now().Add(-time.Hour))

	pool := NewWorkerPool(WorkerConfig{NumWorkers: 1})
	outcomes := pool.CopyAll(context.Background(), []CopyTask{
		{SrcPath: src, DstPath: dst, Size: 11},
	})

	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("new content"), data)
}

func TestWorkerPoolEveryTaskGetsOneOutcome(t *testing.T) {
	for _, workers := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			srcDir := t.TempDir()
			dstDir := t.TempDir()

			const n = 40
			tasks := make([]CopyTask, 0, n)
			for i := 0; i < n; i++ {
				src := filepath.Join(srcDir, fmt.Sprintf("f%02d.txt", i))
				writeFileWithMtime(t, src, []byte(fmt.Sprintf("payload %d", i)), time.Now())
				tasks = append(tasks, CopyTask{
					SrcPath: src,
					DstPath: filepath.Join(dstDir, fmt.Sprintf("f%02d.txt", i)),
				})
			}

			collector := stats.NewCollector()
			pool := NewWorkerPool(WorkerConfig{NumWorkers: workers, Stats: collector})
			outcomes := pool.CopyAll(context.Background(), tasks)

			require.Len(t, outcomes, n)
			seen := map[string]int{}
			for _, oc := range outcomes {
				require.NoError(t, oc.Err)
				seen[oc.Task.SrcPath]++
			}
			for _, task := range tasks {
				assert.Equal(t, 1, seen[task.SrcPath], "exactly one outcome per task")
			}
			assert.Equal(t, int64(n), collector.Snapshot().FilesCopied)
		})
	}
}

func TestWorkerPoolFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	writeFileWithMtime(t, good, []byte("ok"), time.Now())

	tasks := []CopyTask{
		{SrcPath: filepath.Join(dir, "missing.txt"), DstPath: filepath.Join(dir, "out", "missing.txt")},
		{SrcPath: good, DstPath: filepath.Join(dir, "out", "good.txt")},
	}

	collector := stats.NewCollector()
	pool := NewWorkerPool(WorkerConfig{NumWorkers: 2, Stats: collector})
	outcomes := pool.CopyAll(context.Background(), tasks)

	require.Len(t, outcomes, 2)
	var failed, succeeded int
	for _, oc := range outcomes {
		if oc.Err != nil {
			failed++
			assert.Equal(t, KindNotFound, Classify(oc.Err))
		} else {
			succeeded++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, succeeded)

	// The vanished source counts as vanished, not failed.
	snap := collector.Snapshot()
	assert.Equal(t, int64(1), snap.FilesVanished)
	assert.Equal(t, int64(1), snap.FilesCopied)

	data, err := os.ReadFile(filepath.Join(dir, "out", "good.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
}

func TestWorkerPoolLeavesNoTmpFiles(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	tasks := make([]CopyTask, 0, 10)
	for i := 0; i < 10; i++ {
		src := filepath.Join(srcDir, fmt.Sprintf("f%d", i))
		writeFileWithMtime(t, src, []byte("data"), time.Now())
		tasks = append(tasks, CopyTask{SrcPath: src, DstPath: filepath.Join(dstDir, fmt.Sprintf("f%d", i))})
	}

	pool := NewWorkerPool(WorkerConfig{NumWorkers: 4})
	outcomes := pool.CopyAll(context.Background(), tasks)
	for _, oc := range outcomes {
		require.NoError(t, oc.Err)
	}
	pool.Close()

	entries, err := os.ReadDir(dstDir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.Contains(entry.Name(), ".hoard-tmp"),
			"leftover temp file %s", entry.Name())
	}
	assert.Len(t, entries, 10)
}

func TestWorkerPoolDryRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "out", "a.txt")
	writeFileWithMtime(t, src, []byte("x"), time.Now())

	pool := NewWorkerPool(WorkerConfig{NumWorkers: 1, DryRun: true})
	outcomes := pool.CopyAll(context.Background(), []CopyTask{{SrcPath: src, DstPath: dst}})

	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	_, err := os.Stat(dst)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkerPoolCancelStopsNewTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var attempts atomic.Int64
	pool := NewWorkerPool(WorkerConfig{NumWorkers: 2})
	pool.copyFn = func(ctx context.Context, task CopyTask) error {
		attempts.Add(1)
		return nil
	}

	tasks := make([]CopyTask, 100)
	outcomes := pool.CopyAll(ctx, tasks)

	// The feeder races its first few sends against the cancelled context, so a
	// handful of tasks may still run, but the batch must not complete.
	assert.Less(t, len(outcomes), len(tasks))
	assert.Equal(t, int64(len(outcomes)), attempts.Load())
}

func TestWorkerPoolInjectedError(t *testing.T) {
	boom := errors.New("disk on fire")
	collector := stats.NewCollector()
	pool := NewWorkerPool(WorkerConfig{NumWorkers: 1, Stats: collector})
	pool.copyFn = func(ctx context.Context, task CopyTask) error { return boom }

	outcomes := pool.CopyAll(context.Background(), []CopyTask{{SrcPath: "x", DstPath: "y"}})

	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, boom)
	assert.Equal(t, int64(1), collector.Snapshot().FilesFailed)
}
