package registry

import (
	"errors"
	"fmt"
	"slices"

	"startctl/internal/startup"
)

// DisabledSubkey holds values moved out of a run key.
const DisabledSubkey = "AutorunsDisabled"

// Source scans and toggles registry run keys.
type Source struct {
	store  Store
	types  []startup.SourceType
	logger startup.Logger
}

var _ startup.Source = (*Source)(nil)

// NewSource creates a Source over store for the given registry types, or
// for every registry type when none are given.
func NewSource(store Store, logger startup.Logger, types ...startup.SourceType) *Source {
	if len(types) == 0 {
		types = startup.RegistrySourceTypes()
	}
	return &Source{store: store, types: types, logger: logger}
}

func (s *Source) SourceTypes() []startup.SourceType { return s.types }

// DisabledPath returns the key disabled values of t are moved to.
func DisabledPath(t startup.SourceType) string {
	return t.RegistryPath() + `\` + DisabledSubkey
}

// Location renders hive and path the way entries report them.
func Location(hive startup.Hive, path string) string {
	return hive.String() + `\` + path
}

// Scan reads every run key and its disabled subkey. Keys that are missing
// or unreadable contribute nothing.
func (s *Source) Scan() ([]*startup.Entry, error) {
	var entries []*startup.Entry
	for _, t := range s.types {
		for _, key := range []struct {
			path   string
			status startup.Status
		}{
			{t.RegistryPath(), startup.StatusEnabled},
			{DisabledPath(t), startup.StatusDisabled},
		} {
			found, err := s.scanKey(t, key.path, key.status)
			if errors.Is(err, startup.ErrUnsupported) {
				return nil, err
			}
			if err != nil {
				s.logger.Warn("skipping unreadable run key", "key", Location(t.Hive(), key.path), "error", err)
				continue
			}
			entries = append(entries, found...)
		}
	}
	return entries, nil
}

func (s *Source) scanKey(t startup.SourceType, path string, status startup.Status) ([]*startup.Entry, error) {
	values, err := s.store.Values(t.Hive(), path)
	if errors.Is(err, startup.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []*startup.Entry
	for _, v := range values {
		if v.Kind == KindOther || v.Name == "" || v.Data == "" {
			continue
		}
		entries = append(entries, startup.NewEntry(v.Name, t, Location(t.Hive(), path), v.Data, status))
	}
	return entries, nil
}

// Disable moves the entry's value from the run key to its disabled subkey.
func (s *Source) Disable(e *startup.Entry) error {
	if err := s.check(e); err != nil {
		return err
	}
	return s.move(e.SourceType.Hive(), e.SourceType.RegistryPath(), DisabledPath(e.SourceType), e.Name)
}

// Enable moves the entry's value from the disabled subkey back to the run key.
func (s *Source) Enable(e *startup.Entry) error {
	if err := s.check(e); err != nil {
		return err
	}
	return s.move(e.SourceType.Hive(), DisabledPath(e.SourceType), e.SourceType.RegistryPath(), e.Name)
}

func (s *Source) check(e *startup.Entry) error {
	if !slices.Contains(s.types, e.SourceType) {
		return fmt.Errorf("%w: %s", startup.ErrNoSource, e.SourceType)
	}
	return nil
}

// move copies the value to dst and then deletes it from src. The source value
// is only deleted once the copy exists. If the delete fails the copy is
// removed again so the value ends up in exactly one place. A value of the
// same name already in dst is never overwritten.
func (s *Source) move(hive startup.Hive, src, dst, name string) error {
	v, err := s.store.Value(hive, src, name)
	if err != nil {
		return fmt.Errorf("reading %q from %s: %w", name, Location(hive, src), err)
	}

	switch _, err := s.store.Value(hive, dst, name); {
	case err == nil:
		return fmt.Errorf("moving %q: %s already holds a value with that name", name, Location(hive, dst))
	case !errors.Is(err, startup.ErrNotFound):
		return fmt.Errorf("checking %q in %s: %w", name, Location(hive, dst), err)
	}

	if err := s.store.SetValue(hive, dst, v); err != nil {
		return fmt.Errorf("writing %q to %s: %w", name, Location(hive, dst), err)
	}

	if err := s.store.DeleteValue(hive, src, name); err != nil {
		if rbErr := s.store.DeleteValue(hive, dst, name); rbErr != nil {
			s.logger.Error("rollback failed, value exists in both keys", "name", name, "src", Location(hive, src), "dst", Location(hive, dst), "error", rbErr)
		}
		return fmt.Errorf("%w: deleting %q from %s: %w", startup.ErrChangeFailed, name, Location(hive, src), err)
	}

	s.logger.Debug("moved registry value", "name", name, "from", Location(hive, src), "to", Location(hive, dst))
	return nil
}
