// Package snapshot stores the backups taken before autostart entries change.
package snapshot

import (
	"time"

	"startctl/internal/startup"
)

// newSnapshot copies entries so later changes to the caller's entries cannot
// alter a stored snapshot.
func newSnapshot(now time.Time, version, description string, entries []*startup.Entry) *startup.Snapshot {
	items := make([]*startup.Entry, len(entries))
	for i, e := range entries {
		items[i] = e.Clone()
	}
	return &startup.Snapshot{
		Timestamp:   now.UTC(),
		Version:     version,
		Description: description,
		Items:       items,
	}
}
