package platform

import (
	"io"
	"os"
	"sync"
)

const bufferSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufferSize)
		return &b
	},
}

// copyReadWrite copies data with a pooled buffer. It is the portable last
// resort behind the syscall fast paths.
func copyReadWrite(params CopyParams) (CopyResult, error) {
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)

	written, err := io.CopyBuffer(params.Dst, src, *bufp)
	return CopyResult{BytesWritten: written, Method: ReadWrite}, err
}

// CopyReadWrite is the exported version for use by other packages during testing.
func CopyReadWrite(params CopyParams) (CopyResult, error) {
	return copyReadWrite(params)
}
