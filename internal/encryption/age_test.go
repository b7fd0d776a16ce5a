package encryption

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"startctl/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "startctl.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "startctl.key"),
	}
	return NewAgeEncryptor(cfg)
}

func TestAgeEncryptor_IsConfigured_BeforeSetup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	if err := e.Setup("test-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}

	err := e.Setup("other-passphrase")
	if !errors.Is(err, ErrKeysExist) {
		t.Errorf("second Setup() error = %v, want ErrKeysExist", err)
	}
}

func TestAgeEncryptor_Setup_rejectsEmptyPassphrase(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup(""); err == nil {
		t.Fatal("Setup(\"\") expected error")
	}
	if e.IsConfigured() {
		t.Error("IsConfigured() = true after failed Setup")
	}
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	passphrase := "test-passphrase"
	e := newTestAgeEncryptor(t)
	if err := e.Setup(passphrase); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	ctx, err := e.Unlock(passphrase)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "snapshot json", input: []byte(`{"version":"1.0.0","items":[]}`)},
		{name: "empty", input: []byte{}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if !strings.HasPrefix(encrypted.String(), "-----BEGIN AGE ENCRYPTED FILE-----") {
				t.Errorf("encrypted output is not armored (%d bytes)", encrypted.Len())
			}

			var decrypted bytes.Buffer
			if err := ctx.Decrypt(&encrypted, &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", decrypted.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_Unlock_WrongPassphrase(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup("correct"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if _, err := e.Unlock("wrong"); err == nil {
		t.Fatal("Unlock() with wrong passphrase expected error")
	}
}

func TestAgeEncryptor_Encrypt_NotConfigured(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	var out bytes.Buffer
	if err := e.Encrypt(strings.NewReader("data"), &out); err == nil {
		t.Fatal("Encrypt() without keys expected error")
	}
}

func TestAgeEncryptor_Extension(t *testing.T) {
	if got := newTestAgeEncryptor(t).Extension(); got != ".age" {
		t.Errorf("Extension() = %q, want %q", got, ".age")
	}
}
