package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarkley/hoard/internal/event"
)

func TestRunEndToEnd(t *testing.T) {
	base := t.TempDir()
	srcRoot := filepath.Join(base, "docs")
	dstRoot := filepath.Join(base, "backup")
	mtime := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeFileWithMtime(t, filepath.Join(srcRoot, "a.txt"), []byte("alpha"), mtime)
	writeFileWithMtime(t, filepath.Join(srcRoot, "sub", "b.txt"), []byte("beta"), mtime)

	result := Run(context.Background(), Config{
		DstRoot: dstRoot,
		Sources: []string{srcRoot},
		Workers: 2,
	})

	require.NoError(t, result.Err)
	assert.False(t, result.UpToDate)
	assert.Equal(t, 2, result.Report.Copied)

	for _, rel := range []string{"docs/a.txt", "docs/sub/b.txt"} {
		data, err := os.ReadFile(filepath.Join(dstRoot, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.NotEmpty(t, data)
	}
}

func TestRunSecondPassIsUpToDate(t *testing.T) {
	base := t.TempDir()
	srcRoot := filepath.Join(base, "docs")
	dstRoot := filepath.Join(base, "backup")
	writeFileWithMtime(t, filepath.Join(srcRoot, "a.txt"), []byte("alpha"), time.Now().Add(-time.Hour))

	cfg := Config{DstRoot: dstRoot, Sources: []string{srcRoot}}

	first := Run(context.Background(), cfg)
	require.NoError(t, first.Err)
	assert.Equal(t, 1, first.Report.Copied)

	second := Run(context.Background(), cfg)
	require.NoError(t, second.Err)
	assert.True(t, second.UpToDate, "mtime preservation should make re-runs no-ops")
	assert.Zero(t, second.Stats.FilesStale)
}

func TestRunModifiedFileIsRecopied(t *testing.T) {
	base := t.TempDir()
	srcRoot := filepath.Join(base, "docs")
	dstRoot := filepath.Join(base, "backup")
	src := filepath.Join(srcRoot, "a.txt")
	writeFileWithMtime(t, src, []byte("v1"), time.Now().Add(-2*time.Hour))

	cfg := Config{DstRoot: dstRoot, Sources: []string{srcRoot}}
	require.NoError(t, Run(context.Background(), cfg).Err)

	writeFileWithMtime(t, src, []byte("v2"), time.Now().Add(-time.Hour))
	result := Run(context.Background(), cfg)
	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Report.Copied)

	data, err := os.ReadFile(filepath.Join(dstRoot, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestRunDeclinedConfirmation(t *testing.T) {
	base := t.TempDir()
	srcRoot := filepath.Join(base, "docs")
	dstRoot := filepath.Join(base, "backup")
	writeFileWithMtime(t, filepath.Join(srcRoot, "a.txt"), []byte("alpha"), time.Now())

	var askedBytes int64
	var askedFiles int
	result := Run(context.Background(), Config{
		DstRoot: dstRoot,
		Sources: []string{srcRoot},
		Confirm: func(totalBytes int64, files int) bool {
			askedBytes = totalBytes
			askedFiles = files
			return false
		},
	})

	require.NoError(t, result.Err)
	assert.True(t, result.Declined)
	assert.Equal(t, int64(5), askedBytes)
	assert.Equal(t, 1, askedFiles)

	_, err := os.Stat(filepath.Join(dstRoot, "docs", "a.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunDryRun(t *testing.T) {
	base := t.TempDir()
	srcRoot := filepath.Join(base, "docs")
	dstRoot := filepath.Join(base, "backup")
	writeFileWithMtime(t, filepath.Join(srcRoot, "a.txt"), []byte("alpha"), time.Now())

	confirmed := false
	result := Run(context.Background(), Config{
		DstRoot: dstRoot,
		Sources: []string{srcRoot},
		DryRun:  true,
		Confirm: func(int64, int) bool { confirmed = true; return true },
	})

	require.NoError(t, result.Err)
	assert.False(t, confirmed, "dry run never prompts")
	assert.Equal(t, int64(1), result.Stats.FilesTotal)
	assert.Equal(t, int64(5), result.Stats.BytesTotal)

	_, err := os.Stat(filepath.Join(dstRoot, "docs", "a.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunEmitsScanEvents(t *testing.T) {
	base := t.TempDir()
	srcRoot := filepath.Join(base, "docs")
	writeFileWithMtime(t, filepath.Join(srcRoot, "a.txt"), []byte("alpha"), time.Now())

	events := make(chan event.Event, 64)
	result := Run(context.Background(), Config{
		DstRoot: filepath.Join(base, "backup"),
		Sources: []string{srcRoot},
		Events:  events,
	})
	require.NoError(t, result.Err)
	close(events)

	var types []event.Type
	for ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, event.ScanStarted)
	assert.Contains(t, types, event.ScanComplete)
	assert.Contains(t, types, event.FileCopied)
}

func TestRunEmptySourceIsUpToDate(t *testing.T) {
	base := t.TempDir()
	srcRoot := filepath.Join(base, "empty")
	require.NoError(t, os.MkdirAll(srcRoot, 0o755))

	result := Run(context.Background(), Config{
		DstRoot: filepath.Join(base, "backup"),
		Sources: []string{srcRoot},
	})

	require.NoError(t, result.Err)
	assert.True(t, result.UpToDate)
}

func TestRunUnusableDestination(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	result := Run(context.Background(), Config{
		DstRoot: filepath.Join(blocker, "backup"),
		Sources: []string{base},
	})

	require.Error(t, result.Err)
}
