package startup

import (
	"errors"
	"fmt"
)

// Aggregator fans a scan out to every registered source and routes each
// mutation to the source that owns the entry's type.
type Aggregator struct {
	sources []Source
	byType  map[SourceType]Source
	logger  Logger
}

// NewAggregator registers sources in scan order. Two sources claiming the same
// type is a construction error.
func NewAggregator(logger Logger, sources ...Source) (*Aggregator, error) {
	a := &Aggregator{
		byType: make(map[SourceType]Source),
		logger: logger,
	}
	for _, src := range sources {
		for _, t := range src.SourceTypes() {
			if _, dup := a.byType[t]; dup {
				return nil, fmt.Errorf("source type %s registered twice", t)
			}
			a.byType[t] = src
		}
		a.sources = append(a.sources, src)
	}
	return a, nil
}

// ScanAll concatenates every source's entries in registration order.
// A failing source is logged and contributes nothing.
func (a *Aggregator) ScanAll() []*Entry {
	var all []*Entry
	for _, src := range a.sources {
		entries, err := src.Scan()
		if errors.Is(err, ErrUnsupported) {
			a.logger.Debug("source unsupported on this platform", "types", src.SourceTypes())
			continue
		}
		if err != nil {
			a.logger.Warn("scan failed", "types", src.SourceTypes(), "error", err)
			continue
		}
		a.logger.Debug("scanned source", "types", src.SourceTypes(), "entries", len(entries))
		all = append(all, entries...)
	}
	return all
}

// Modify moves e to status through the source owning its type.
// Requesting StatusUnknown does nothing.
func (a *Aggregator) Modify(e *Entry, status Status) error {
	if status == StatusUnknown {
		return nil
	}
	src, ok := a.byType[e.SourceType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSource, e.SourceType)
	}

	switch status {
	case StatusEnabled:
		return src.Enable(e)
	case StatusDisabled:
		return src.Disable(e)
	default:
		return nil
	}
}

// Handles reports whether some source owns t.
func (a *Aggregator) Handles(t SourceType) bool {
	_, ok := a.byType[t]
	return ok
}
