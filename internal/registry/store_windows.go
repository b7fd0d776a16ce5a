//go:build windows

package registry

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"startctl/internal/startup"
)

// WindowsStore is the native Store. Every call opens its own key handle
// through the 64-bit registry view and closes it before returning.
type WindowsStore struct{}

var _ Store = (*WindowsStore)(nil)

// NewNativeStore returns the registry store for this platform.
func NewNativeStore() Store { return &WindowsStore{} }

func rootKey(h startup.Hive) (registry.Key, error) {
	switch h {
	case startup.HiveCurrentUser:
		return registry.CURRENT_USER, nil
	case startup.HiveLocalMachine:
		return registry.LOCAL_MACHINE, nil
	default:
		return 0, fmt.Errorf("unsupported hive %d", h)
	}
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, registry.ErrNotExist):
		return fmt.Errorf("%w: %w", startup.ErrNotFound, err)
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %w", startup.ErrPermissionDenied, err)
	default:
		return err
	}
}

func openKey(hive startup.Hive, path string, access uint32) (registry.Key, error) {
	root, err := rootKey(hive)
	if err != nil {
		return 0, err
	}
	k, err := registry.OpenKey(root, path, access|registry.WOW64_64KEY)
	if err != nil {
		return 0, fmt.Errorf("opening %s\\%s: %w", hive, path, mapErr(err))
	}
	return k, nil
}

func (s *WindowsStore) Values(hive startup.Hive, path string) ([]Value, error) {
	k, err := openKey(hive, path, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()

	names, err := k.ReadValueNames(-1)
	if err != nil {
		return nil, fmt.Errorf("listing values of %s\\%s: %w", hive, path, mapErr(err))
	}

	values := make([]Value, 0, len(names))
	for _, name := range names {
		v, err := readValue(k, name)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

func (s *WindowsStore) Value(hive startup.Hive, path, name string) (Value, error) {
	k, err := openKey(hive, path, registry.QUERY_VALUE)
	if err != nil {
		return Value{}, err
	}
	defer k.Close()

	v, err := readValue(k, name)
	if err != nil {
		return Value{}, fmt.Errorf("reading %q in %s\\%s: %w", name, hive, path, mapErr(err))
	}
	return v, nil
}

// readValue reads a string value. Values of other types come back with
// KindOther and no data.
func readValue(k registry.Key, name string) (Value, error) {
	data, valtype, err := k.GetStringValue(name)
	if errors.Is(err, registry.ErrUnexpectedType) {
		return Value{Name: name, Kind: KindOther}, nil
	}
	if err != nil {
		return Value{}, err
	}

	kind := KindString
	if valtype == registry.EXPAND_SZ {
		kind = KindExpandString
	}
	return Value{Name: name, Data: data, Kind: kind}, nil
}

func (s *WindowsStore) SetValue(hive startup.Hive, path string, v Value) error {
	root, err := rootKey(hive)
	if err != nil {
		return err
	}
	k, _, err := registry.CreateKey(root, path, registry.SET_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return fmt.Errorf("creating %s\\%s: %w", hive, path, mapErr(err))
	}
	defer k.Close()

	switch v.Kind {
	case KindExpandString:
		err = k.SetExpandStringValue(v.Name, v.Data)
	case KindString:
		err = k.SetStringValue(v.Name, v.Data)
	default:
		return fmt.Errorf("value %q is not a string", v.Name)
	}
	if err != nil {
		return fmt.Errorf("writing %q in %s\\%s: %w", v.Name, hive, path, mapErr(err))
	}
	return nil
}

func (s *WindowsStore) DeleteValue(hive startup.Hive, path, name string) error {
	k, err := openKey(hive, path, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	if err := k.DeleteValue(name); err != nil {
		return fmt.Errorf("deleting %q in %s\\%s: %w", name, hive, path, mapErr(err))
	}
	return nil
}
