package event

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	FileCopied
	FileFailed
	FileVanished
	PassComplete
	RetryExhausted
)

var typeNames = [...]string{
	ScanStarted:    "ScanStarted",
	ScanComplete:   "ScanComplete",
	FileCopied:     "FileCopied",
	FileFailed:     "FileFailed",
	FileVanished:   "FileVanished",
	PassComplete:   "PassComplete",
	RetryExhausted: "RetryExhausted",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the backup engine.
type Event struct {
	Type      Type
	Path      string // source path of the affected file
	Size      int64  // file size in bytes
	Total     int64  // total stale files (ScanComplete)
	TotalSize int64  // total stale bytes (ScanComplete)
	Pass      int    // copy pass number (PassComplete, RetryExhausted)
	Remaining int64  // files still stale after a pass (PassComplete)
	Error     error
	WorkerID  int
}
