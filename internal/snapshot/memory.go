package snapshot

import (
	"fmt"
	"sync"

	"startctl/internal/startup"
)

// MemoryStore keeps snapshots in memory under synthetic paths of the form
// "memory://backup_<timestamp>[_N].json". It is safe for concurrent use.
type MemoryStore struct {
	version string
	clock   startup.Clock
	files   map[string]*startup.Snapshot
	mu      sync.RWMutex
}

var _ startup.SnapshotStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(version string, clock startup.Clock) *MemoryStore {
	return &MemoryStore{
		version: version,
		clock:   clock,
		files:   make(map[string]*startup.Snapshot),
	}
}

func (m *MemoryStore) Create(entries []*startup.Entry, description string) (string, error) {
	snap := newSnapshot(m.clock.Now(), m.version, description, entries)

	m.mu.Lock()
	defer m.mu.Unlock()

	stem := "memory://" + filePrefix + snap.Timestamp.Format(fileTimeLayout)
	path := stem + fileExtension
	for n := 2; m.files[path] != nil; n++ {
		path = fmt.Sprintf("%s_%d%s", stem, n, fileExtension)
	}
	m.files[path] = snap
	return path, nil
}

func (m *MemoryStore) List() ([]startup.SnapshotFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]startup.SnapshotFile, 0, len(m.files))
	for path, snap := range m.files {
		files = append(files, startup.SnapshotFile{Path: path, Snapshot: copySnapshot(snap)})
	}
	sortNewestFirst(files)
	return files, nil
}

func (m *MemoryStore) Restore(path string) (*startup.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: snapshot not found: %s", startup.ErrRestoreFailed, path)
	}
	return copySnapshot(snap), nil
}

func (m *MemoryStore) Latest() (*startup.SnapshotFile, error) {
	files, _ := m.List()
	if len(files) == 0 {
		return nil, nil
	}
	return &files[0], nil
}

// Len returns the number of stored snapshots.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

func copySnapshot(s *startup.Snapshot) *startup.Snapshot {
	return newSnapshot(s.Timestamp, s.Version, s.Description, s.Items)
}
