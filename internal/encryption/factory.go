package encryption

import (
	"fmt"

	"startctl/internal/config"
	"startctl/internal/startup"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// It returns nil for "none", meaning snapshots are stored as plain JSON.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (startup.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
