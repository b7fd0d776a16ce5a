//go:build !windows

package registry

import "startctl/internal/startup"

// NewNativeStore returns the registry store for this platform. Outside
// Windows every call fails with startup.ErrUnsupported.
func NewNativeStore() Store { return unsupportedStore{} }

type unsupportedStore struct{}

func (unsupportedStore) Values(startup.Hive, string) ([]Value, error) {
	return nil, startup.ErrUnsupported
}

func (unsupportedStore) Value(startup.Hive, string, string) (Value, error) {
	return Value{}, startup.ErrUnsupported
}

func (unsupportedStore) SetValue(startup.Hive, string, Value) error {
	return startup.ErrUnsupported
}

func (unsupportedStore) DeleteValue(startup.Hive, string, string) error {
	return startup.ErrUnsupported
}
