package testutil

import "startctl/internal/startup"

// FailingSnapshotStore is a SnapshotStore whose every call returns Err.
type FailingSnapshotStore struct {
	Err error
}

var _ startup.SnapshotStore = (*FailingSnapshotStore)(nil)

func (s *FailingSnapshotStore) Create([]*startup.Entry, string) (string, error) { return "", s.Err }
func (s *FailingSnapshotStore) List() ([]startup.SnapshotFile, error)           { return nil, s.Err }
func (s *FailingSnapshotStore) Restore(string) (*startup.Snapshot, error)       { return nil, s.Err }
func (s *FailingSnapshotStore) Latest() (*startup.SnapshotFile, error)          { return nil, s.Err }
