// Package job loads the backup job description: where to back up to and
// which roots to back up.
package job

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrNoJob is the distinguished "nothing to do" result: the job file is
// missing, unparseable, or names no destination or sources. Callers skip the
// scan entirely when they see it.
var ErrNoJob = errors.New("no usable backup job")

// Job is the immutable description of one backup run.
type Job struct {
	Destination string   `toml:"destination"`
	Sources     []string `toml:"sources"`
}

// Load reads a job file, e.g.:
//
//	destination = "/mnt/backup"
//	sources = ["~/documents", "~/photos"]
//
// Environment variables and a leading ~ are expanded in every path.
func Load(path string) (Job, error) {
	var j Job
	if _, err := toml.DecodeFile(path, &j); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Job{}, fmt.Errorf("%w: %s does not exist", ErrNoJob, path)
		}
		return Job{}, fmt.Errorf("%w: %s: %v", ErrNoJob, path, err)
	}

	j.Destination = expand(j.Destination)
	for i, s := range j.Sources {
		j.Sources[i] = expand(s)
	}

	if j.Destination == "" {
		return Job{}, fmt.Errorf("%w: %s names no destination", ErrNoJob, path)
	}
	if len(j.Sources) == 0 {
		return Job{}, fmt.Errorf("%w: %s names no sources", ErrNoJob, path)
	}
	return j, nil
}

// expand resolves environment variables and a leading ~ in a path.
func expand(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return p
}
