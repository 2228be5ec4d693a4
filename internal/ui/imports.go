package ui

import "github.com/cmarkley/hoard/internal/event"

// Re-export event types for convenience.
const (
	ScanStarted    = event.ScanStarted
	ScanComplete   = event.ScanComplete
	FileCopied     = event.FileCopied
	FileFailed     = event.FileFailed
	FileVanished   = event.FileVanished
	PassComplete   = event.PassComplete
	RetryExhausted = event.RetryExhausted
)

// Event aliases the engine event type consumed by presenters.
type Event = event.Event
