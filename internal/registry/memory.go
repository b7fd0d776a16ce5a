package registry

import (
	"fmt"
	"strings"
	"sync"

	"startctl/internal/startup"
)

// MemoryStore is an in-memory Store. Key paths and value names compare
// case-insensitively, as in the real registry. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	keys    map[string][]Value // "hive\path" lowercased -> values in insertion order
	denied  map[string]bool
	failDel map[string]error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:    make(map[string][]Value),
		denied:  make(map[string]bool),
		failDel: make(map[string]error),
	}
}

func memKey(hive startup.Hive, path string) string {
	return strings.ToLower(hive.String() + `\` + strings.Trim(path, `\`))
}

// Put writes a value without any access checks.
func (m *MemoryStore) Put(hive startup.Hive, path string, v Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(memKey(hive, path), v)
}

// Deny makes every write to the key fail with startup.ErrPermissionDenied.
func (m *MemoryStore) Deny(hive startup.Hive, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[memKey(hive, path)] = true
}

// FailDelete makes deletes from the key fail with err.
func (m *MemoryStore) FailDelete(hive startup.Hive, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDel[memKey(hive, path)] = err
}

// HasKey reports whether the key exists.
func (m *MemoryStore) HasKey(hive startup.Hive, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[memKey(hive, path)]
	return ok
}

func (m *MemoryStore) Values(hive startup.Hive, path string) ([]Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vals, ok := m.keys[memKey(hive, path)]
	if !ok {
		return nil, fmt.Errorf("key %s\\%s: %w", hive, path, startup.ErrNotFound)
	}
	return append([]Value{}, vals...), nil
}

func (m *MemoryStore) Value(hive startup.Hive, path, name string) (Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.keys[memKey(hive, path)] {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return Value{}, fmt.Errorf("value %q in %s\\%s: %w", name, hive, path, startup.ErrNotFound)
}

func (m *MemoryStore) SetValue(hive startup.Hive, path string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(hive, path)
	if m.denied[key] {
		return fmt.Errorf("writing %s\\%s: %w", hive, path, startup.ErrPermissionDenied)
	}
	m.put(key, v)
	return nil
}

func (m *MemoryStore) DeleteValue(hive startup.Hive, path, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(hive, path)
	if m.denied[key] {
		return fmt.Errorf("deleting from %s\\%s: %w", hive, path, startup.ErrPermissionDenied)
	}
	if err := m.failDel[key]; err != nil {
		return err
	}
	vals := m.keys[key]
	for i, v := range vals {
		if strings.EqualFold(v.Name, name) {
			m.keys[key] = append(vals[:i], vals[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("value %q in %s\\%s: %w", name, hive, path, startup.ErrNotFound)
}

func (m *MemoryStore) put(key string, v Value) {
	vals := m.keys[key]
	for i := range vals {
		if strings.EqualFold(vals[i].Name, v.Name) {
			vals[i] = v
			return
		}
	}
	m.keys[key] = append(vals, v)
}
