//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile tries the most efficient copy method available on Linux,
// falling through on unsupported/cross-device errors.
func CopyFile(params CopyParams) (CopyResult, error) {
	preallocate(params.Dst, params.Size)

	result, err := copyFileRange(params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) {
		return result, err
	}

	result, err = copySendfile(params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) {
		return result, err
	}

	return copyReadWrite(params)
}

func copyFileRange(params CopyParams) (CopyResult, error) {
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	remaining := params.Size
	var written int64
	for remaining > 0 {
		n, err := unix.CopyFileRange(int(src.Fd()), nil, int(params.Dst.Fd()), nil, int(remaining), 0)
		if err != nil {
			if written == 0 {
				return CopyResult{}, err
			}
			return CopyResult{BytesWritten: written, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		written += int64(n)
	}

	return CopyResult{BytesWritten: written, Method: CopyFileRange}, nil
}

func copySendfile(params CopyParams) (CopyResult, error) {
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	remaining := params.Size
	var offset int64
	var written int64
	for remaining > 0 {
		n, err := unix.Sendfile(int(params.Dst.Fd()), int(src.Fd()), &offset, int(remaining))
		if err != nil {
			if written == 0 {
				return CopyResult{}, err
			}
			return CopyResult{BytesWritten: written, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		written += int64(n)
	}

	return CopyResult{BytesWritten: written, Method: Sendfile}, nil
}

// isFallbackErr reports whether err should trigger the next copy strategy.
func isFallbackErr(err error) bool {
	switch err {
	case unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP:
		return true
	}
	if e, ok := err.(*os.PathError); ok {
		return isFallbackErr(e.Err)
	}
	return false
}
