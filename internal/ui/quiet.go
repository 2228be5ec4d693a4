package ui

import "github.com/cmarkley/hoard/internal/stats"

// quietPresenter consumes events but produces no output.
type quietPresenter struct {
	stats *stats.Collector
}

func (p *quietPresenter) Run(events <-chan Event) error {
	//nolint:revive // empty-block: intentionally draining the event channel
	for range events {
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}
