package engine

import (
	"errors"
	"io/fs"
)

// ErrRetryExhausted marks a task still stale after the final copy pass.
var ErrRetryExhausted = errors.New("still stale after retry limit")

// Kind classifies a per-item failure for reporting.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindPermission
	KindCopyFailed
	KindRetryExhausted
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission_denied"
	case KindCopyFailed:
		return "copy_failed"
	case KindRetryExhausted:
		return "retry_exhausted"
	default:
		return "unknown"
	}
}

// Classify maps an error to a Kind by inspecting the wrapped OS error.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrRetryExhausted):
		return KindRetryExhausted
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	default:
		return KindCopyFailed
	}
}
