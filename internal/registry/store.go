// Package registry exposes the Run and RunOnce registry keys as a startup.Source.
// Disabled values are kept under an AutorunsDisabled subkey of their run key,
// the convention Sysinternals Autoruns uses.
package registry

import "startctl/internal/startup"

// ValueKind is the registry type of a value.
type ValueKind int

const (
	// KindOther covers every non-string type; such values are never entries.
	KindOther ValueKind = iota
	KindString
	KindExpandString
)

// Value is one named registry value.
type Value struct {
	Name string
	Data string
	Kind ValueKind
}

// Store reads and writes values under (hive, path). Implementations report
// missing keys and values as startup.ErrNotFound and refused access as
// startup.ErrPermissionDenied, both testable with errors.Is.
type Store interface {
	// Values lists every value of a key.
	Values(hive startup.Hive, path string) ([]Value, error)
	Value(hive startup.Hive, path, name string) (Value, error)
	// SetValue writes v, creating the key if needed.
	SetValue(hive startup.Hive, path string, v Value) error
	DeleteValue(hive startup.Hive, path, name string) error
}
