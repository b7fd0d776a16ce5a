package startup

import "io"

// Encryptor seals snapshot files at rest. Sealing needs only the public key;
// reading sealed snapshots back needs a DecryptionContext from Unlock.
type Encryptor interface {
	// Setup generates a key pair and protects the private half with passphrase.
	// It fails if keys already exist.
	Setup(passphrase string) error

	Encrypt(r io.Reader, w io.Writer) error

	// Unlock returns an error if the passphrase is wrong.
	Unlock(passphrase string) (DecryptionContext, error)

	IsConfigured() bool

	// Extension is appended to sealed snapshot file names, e.g. ".age".
	Extension() string
}

// DecryptionContext holds an unlocked private key in memory only.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
