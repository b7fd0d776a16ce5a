package startup

import (
	"time"
)

// Snapshot is the immutable record written before any batch of changes.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	Items       []*Entry  `json:"items"`
}

// SnapshotFile pairs a stored snapshot with where it lives.
type SnapshotFile struct {
	Path     string
	Snapshot *Snapshot
}

// SnapshotStore persists snapshots. Files are never overwritten or expired.
type SnapshotStore interface {
	// Create stores entries and returns the new snapshot's path.
	Create(entries []*Entry, description string) (string, error)
	// List returns snapshots newest first, skipping unreadable files.
	List() ([]SnapshotFile, error)
	// Restore reads one snapshot back. It does not touch the OS.
	Restore(path string) (*Snapshot, error)
	// Latest returns the newest snapshot, or nil when there are none.
	Latest() (*SnapshotFile, error)
}

// RestoreAction says what replaying one snapshot item would do.
type RestoreAction int

const (
	// RestoreUnchanged means the item is already in its recorded state.
	RestoreUnchanged RestoreAction = iota
	// RestoreChange means the item exists with a different status.
	RestoreChange
	// RestoreMissing means the item no longer exists and cannot be replayed.
	RestoreMissing
)

func (a RestoreAction) String() string {
	switch a {
	case RestoreChange:
		return "change"
	case RestoreMissing:
		return "missing"
	default:
		return "unchanged"
	}
}

// RestoreItem is one line of a restore plan.
type RestoreItem struct {
	Recorded *Entry
	Current  *Entry
	Action   RestoreAction
}

// Diff compares a snapshot against current entries by id, in snapshot order.
// Items whose recorded status is Unknown are reported unchanged.
func Diff(snap *Snapshot, current []*Entry) []RestoreItem {
	byID := make(map[string]*Entry, len(current))
	for _, e := range current {
		byID[e.ID] = e
	}

	plan := make([]RestoreItem, 0, len(snap.Items))
	for _, rec := range snap.Items {
		item := RestoreItem{Recorded: rec, Current: byID[rec.ID]}
		switch {
		case item.Current == nil:
			item.Action = RestoreMissing
		case rec.Status != StatusUnknown && item.Current.Status != rec.Status:
			item.Action = RestoreChange
		}
		plan = append(plan, item)
	}
	return plan
}
