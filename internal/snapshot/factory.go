package snapshot

import (
	"fmt"

	"startctl/internal/config"
	"startctl/internal/startup"
)

// NewStoreFromConfig creates a SnapshotStore based on the backup config type.
// The encryptor may be nil; the memory store never encrypts.
func NewStoreFromConfig(cfg config.BackupConfig, version string, clock startup.Clock, enc startup.Encryptor) (startup.SnapshotStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(version, clock), nil
	case "filesystem", "":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem backup store requires dir to be set")
		}
		return NewFileSystemStore(cfg.Dir, version, clock, enc), nil
	default:
		return nil, fmt.Errorf("unknown backup store type: %s", cfg.Type)
	}
}
