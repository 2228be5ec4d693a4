// Package platform provides the native single-file copy primitive, using the
// fastest mechanism the OS offers and degrading to a plain read/write loop.
package platform

import "os"

// CopyMethod identifies which syscall/strategy was used for a copy.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
	Sendfile                 // Linux sendfile(2)
	Clonefile                // macOS clonefile(2)
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	case Sendfile:
		return "sendfile"
	case Clonefile:
		return "clonefile"
	default:
		return "unknown"
	}
}

// CopyResult reports the outcome of a copy operation.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyParams describes a whole-file copy from SrcPath into the open
// destination file Dst. Size is the source size at stat time; it is used for
// preallocation and fast-path sizing, not as a hard limit.
type CopyParams struct {
	Dst     *os.File
	SrcPath string
	Size    int64
}
