//go:build darwin

package platform

import (
	"golang.org/x/sys/unix"
)

// CopyFile tries clonefile first (CoW whole-file copies), then falls back to
// read/write on macOS.
func CopyFile(params CopyParams) (CopyResult, error) {
	err := unix.Clonefile(params.SrcPath, params.Dst.Name(), 0)
	if err == nil {
		return CopyResult{BytesWritten: params.Size, Method: Clonefile}, nil
	}
	if !isFallbackCloneErr(err) {
		return CopyResult{}, err
	}

	return copyReadWrite(params)
}

func isFallbackCloneErr(err error) bool {
	switch err {
	case unix.ENOTSUP, unix.EXDEV, unix.EEXIST:
		return true
	}
	return false
}
