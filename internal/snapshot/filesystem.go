package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"startctl/internal/startup"
)

const (
	filePrefix    = "backup_"
	fileExtension = ".json"
	// fileTimeLayout is the UTC timestamp embedded in file names.
	fileTimeLayout = "20060102_150405"
)

// FileSystemStore keeps each snapshot as one JSON file in a flat directory:
//
//	<dir>/
//	  backup_20260302_081500.json
//	  backup_20260302_081500_2.json      (second snapshot in the same second)
//	  backup_20240116_090000.json.age    (sealed with an Encryptor)
//
// Files are written atomically and never overwritten.
type FileSystemStore struct {
	dir       string
	version   string
	clock     startup.Clock
	encryptor startup.Encryptor
	decrypter startup.DecryptionContext
}

var _ startup.SnapshotStore = (*FileSystemStore)(nil)

// NewFileSystemStore creates a store in dir. A nil encryptor stores plain
// JSON. The directory is created on first write.
func NewFileSystemStore(dir, version string, clock startup.Clock, encryptor startup.Encryptor) *FileSystemStore {
	return &FileSystemStore{
		dir:       dir,
		version:   version,
		clock:     clock,
		encryptor: encryptor,
	}
}

// Dir returns the directory snapshots are written to.
func (s *FileSystemStore) Dir() string { return s.dir }

// SetDecryptionContext enables reading sealed snapshots. Without one, sealed
// files are skipped by List and rejected by Restore.
func (s *FileSystemStore) SetDecryptionContext(ctx startup.DecryptionContext) {
	s.decrypter = ctx
}

// Create writes entries as a new snapshot and returns its path.
func (s *FileSystemStore) Create(entries []*startup.Entry, description string) (string, error) {
	snap := newSnapshot(s.clock.Now(), s.version, description, entries)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	ext := fileExtension
	if s.encryptor != nil {
		var sealed bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &sealed); err != nil {
			return "", fmt.Errorf("encrypting snapshot: %w", err)
		}
		data = sealed.Bytes()
		ext += s.encryptor.Extension()
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path, err := s.freePath(filePrefix+snap.Timestamp.Format(fileTimeLayout), ext)
	if err != nil {
		return "", err
	}
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// freePath returns dir/stem+ext, or the first dir/stem_N+ext not yet taken.
func (s *FileSystemStore) freePath(stem, ext string) (string, error) {
	candidate := filepath.Join(s.dir, stem+ext)
	for n := 2; ; n++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		candidate = filepath.Join(s.dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}
}

// List returns every readable snapshot newest first. A missing directory is
// an empty list.
func (s *FileSystemStore) List() ([]startup.SnapshotFile, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var files []startup.SnapshotFile
	for _, de := range dirEntries {
		if de.IsDir() || !s.isSnapshotName(de.Name()) {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		snap, err := s.read(path)
		if err != nil {
			continue
		}
		files = append(files, startup.SnapshotFile{Path: path, Snapshot: snap})
	}

	sortNewestFirst(files)
	return files, nil
}

// Restore reads the snapshot at path.
func (s *FileSystemStore) Restore(path string) (*startup.Snapshot, error) {
	snap, err := s.read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", startup.ErrRestoreFailed, err)
	}
	return snap, nil
}

// Latest returns the newest readable snapshot, or nil.
func (s *FileSystemStore) Latest() (*startup.SnapshotFile, error) {
	files, err := s.List()
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return &files[0], nil
}

func (s *FileSystemStore) isSnapshotName(name string) bool {
	if !strings.HasPrefix(name, filePrefix) {
		return false
	}
	if strings.HasSuffix(name, fileExtension) {
		return true
	}
	return s.encryptor != nil && strings.HasSuffix(name, fileExtension+s.encryptor.Extension())
}

func (s *FileSystemStore) read(path string) (*startup.Snapshot, error) {
	var buf bytes.Buffer
	if err := readFile(path, &buf); err != nil {
		return nil, err
	}

	data := buf.Bytes()
	if !strings.HasSuffix(path, fileExtension) {
		if s.decrypter == nil {
			return nil, fmt.Errorf("snapshot %s is encrypted and no key is unlocked", filepath.Base(path))
		}
		var plain bytes.Buffer
		if err := s.decrypter.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return nil, fmt.Errorf("decrypting snapshot: %w", err)
		}
		data = plain.Bytes()
	}

	var snap startup.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &snap, nil
}

// writeFile writes data to destPath atomically (temp file + rename).
func writeFile(destPath string, data []byte) error {
	// Create temp file in the same directory so the rename stays on one volume
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// readFile copies the file at srcPath into w.
func readFile(srcPath string, w io.Writer) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("snapshot not found: %s", srcPath)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

func sortNewestFirst(files []startup.SnapshotFile) {
	slices.SortStableFunc(files, func(a, b startup.SnapshotFile) int {
		if c := b.Snapshot.Timestamp.Compare(a.Snapshot.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(b.Path, a.Path)
	})
}
