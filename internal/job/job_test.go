package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJob(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeJob(t, `
destination = "/mnt/backup"
sources = ["/home/user/docs", "/home/user/photos"]
`)
	j, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/backup", j.Destination)
	assert.Equal(t, []string{"/home/user/docs", "/home/user/photos"}, j.Sources)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, ErrNoJob)
}

func TestLoadMalformed(t *testing.T) {
	path := writeJob(t, `destination = [this is not toml`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoJob)
}

func TestLoadNoDestination(t *testing.T) {
	path := writeJob(t, `sources = ["/a"]`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoJob)
}

func TestLoadNoSources(t *testing.T) {
	path := writeJob(t, `destination = "/mnt/backup"`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoJob)
}

func TestLoadExpandsEnvAndTilde(t *testing.T) {
	t.Setenv("HOARD_TEST_DEST", "/mnt/backup")
	path := writeJob(t, `
destination = "$HOARD_TEST_DEST/nightly"
sources = ["~/docs"]
`)
	j, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/backup/nightly", j.Destination)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "docs"), j.Sources[0])
}
