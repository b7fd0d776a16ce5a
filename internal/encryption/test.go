package encryption

import (
	"bytes"
	"fmt"
	"io"

	"startctl/internal/startup"
)

// testHeader marks output of TestEncryptor so sealed files differ from
// plaintext while staying deterministic.
var testHeader = []byte("STCENC\x00\x00")

// TestEncryptor is a reversible, crypto-free encryptor for tests. It prepends
// testHeader on Encrypt and requires it on Decrypt. Unlock accepts only the
// passphrase given to Setup, or any passphrase if Setup was never called.
type TestEncryptor struct {
	passphrase string
	setup      bool
}

var _ startup.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Extension() string { return ".test" }

func (e *TestEncryptor) Setup(passphrase string) error {
	if e.setup {
		return ErrKeysExist
	}
	e.passphrase = passphrase
	e.setup = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (startup.DecryptionContext, error) {
	if e.setup && passphrase != e.passphrase {
		return nil, fmt.Errorf("wrong passphrase")
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ startup.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
