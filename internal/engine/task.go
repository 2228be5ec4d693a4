package engine

// CopyTask describes one file that needs transferring. DstPath is always
// derived from SrcPath via DestPath; nothing else constructs it.
type CopyTask struct {
	SrcPath string
	DstPath string
	Size    int64
}

// ScanResult is the outcome of one scan pass: the stale files found and their
// combined on-disk size at scan time. Each pass produces a fresh result.
type ScanResult struct {
	TotalBytes int64
	Tasks      []CopyTask
}

// CopyOutcome records the result of one attempted task within one pass.
type CopyOutcome struct {
	Task CopyTask
	Err  error
}

// Report aggregates the final fate of every task handed to the retry driver.
type Report struct {
	Copied   int           // tasks that ended up current at the destination
	Vanished int           // tasks whose source disappeared mid-run
	Failed   []CopyOutcome // tasks abandoned after the retry ceiling
	Passes   int           // copy passes performed
	Retried  int           // task resubmissions across all passes
}
