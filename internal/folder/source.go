// Package folder scans and toggles shortcuts and programs in the Startup
// folders. A file is disabled by appending a reserved suffix to its name.
package folder

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"startctl/internal/fs"
	"startctl/internal/startup"
)

// DefaultSuffix marks a disabled startup file.
const DefaultSuffix = ".disabled"

// Dirs holds the Startup folder locations. An empty field disables that type.
type Dirs struct {
	User     string
	AllUsers string
}

// Source scans and toggles files in the Startup folders.
type Source struct {
	dirs   map[startup.SourceType]string
	suffix string
	ignore *fs.IgnoreMatcher
	logger startup.Logger
}

var _ startup.Source = (*Source)(nil)

// NewSource creates a Source over dirs. An empty suffix selects DefaultSuffix.
func NewSource(dirs Dirs, suffix string, ignore *fs.IgnoreMatcher, logger startup.Logger) *Source {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	m := make(map[startup.SourceType]string)
	if dirs.User != "" {
		m[startup.StartupFolderUser] = dirs.User
	}
	if dirs.AllUsers != "" {
		m[startup.StartupFolderAllUsers] = dirs.AllUsers
	}
	return &Source{dirs: m, suffix: suffix, ignore: ignore, logger: logger}
}

func (s *Source) SourceTypes() []startup.SourceType {
	var types []startup.SourceType
	for _, t := range []startup.SourceType{startup.StartupFolderUser, startup.StartupFolderAllUsers} {
		if _, ok := s.dirs[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// Dir returns the folder backing t, or "" when t is not handled.
func (s *Source) Dir(t startup.SourceType) string { return s.dirs[t] }

// Scan lists the files in every configured Startup folder. A missing or
// unreadable folder contributes nothing.
func (s *Source) Scan() ([]*startup.Entry, error) {
	var entries []*startup.Entry
	for _, t := range s.SourceTypes() {
		dir := s.Dir(t)
		files, err := os.ReadDir(dir)
		if errors.Is(err, iofs.ErrNotExist) {
			continue
		}
		if err != nil {
			s.logger.Warn("skipping unreadable startup folder", "dir", dir, "error", err)
			continue
		}

		for _, f := range files {
			if f.IsDir() || s.ignore.Match(f.Name()) {
				continue
			}
			entries = append(entries, s.entry(t, dir, f.Name()))
		}
	}
	return entries, nil
}

func (s *Source) entry(t startup.SourceType, dir, filename string) *startup.Entry {
	status := startup.StatusEnabled
	enabledName := filename
	if s.disabled(filename) {
		status = startup.StatusDisabled
		enabledName = fs.TrimSuffixFold(filename, s.suffix)
	}

	return startup.NewEntry(fs.Stem(enabledName), t, filepath.Join(dir, filename), filepath.Join(dir, enabledName), status)
}

func (s *Source) disabled(filename string) bool {
	return fs.HasSuffixFold(filename, s.suffix) && len(filename) > len(s.suffix)
}

// Disable appends the suffix to the first enabled file whose stem equals the
// entry name.
func (s *Source) Disable(e *startup.Entry) error {
	dir, err := s.check(e)
	if err != nil {
		return err
	}

	name, err := s.find(dir, func(filename string) bool {
		return !s.disabled(filename) && fs.Stem(filename) == e.Name
	})
	if err != nil {
		return err
	}
	return s.rename(dir, name, name+s.suffix)
}

// Enable strips the suffix from the first disabled file whose remaining name
// starts with the entry name.
func (s *Source) Enable(e *startup.Entry) error {
	dir, err := s.check(e)
	if err != nil {
		return err
	}

	name, err := s.find(dir, func(filename string) bool {
		return s.disabled(filename) && strings.HasPrefix(fs.TrimSuffixFold(filename, s.suffix), e.Name)
	})
	if err != nil {
		return err
	}
	return s.rename(dir, name, fs.TrimSuffixFold(name, s.suffix))
}

func (s *Source) check(e *startup.Entry) (string, error) {
	dir, ok := s.dirs[e.SourceType]
	if !ok {
		return "", fmt.Errorf("%w: %s", startup.ErrNoSource, e.SourceType)
	}
	return dir, nil
}

func (s *Source) find(dir string, match func(string) bool) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", startup.ErrNotFound, dir, err)
	}
	for _, f := range files {
		if f.IsDir() || s.ignore.Match(f.Name()) {
			continue
		}
		if match(f.Name()) {
			return f.Name(), nil
		}
	}
	return "", fmt.Errorf("%w: no matching file in %s", startup.ErrNotFound, dir)
}

func (s *Source) rename(dir, from, to string) error {
	src := filepath.Join(dir, from)
	dst := filepath.Join(dir, to)

	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("renaming %s: %s already exists", src, dst)
	}

	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, iofs.ErrPermission) {
			return fmt.Errorf("%w: renaming %s: %w", startup.ErrPermissionDenied, src, err)
		}
		return fmt.Errorf("renaming %s: %w", src, err)
	}

	s.logger.Debug("renamed startup file", "from", src, "to", dst)
	return nil
}
