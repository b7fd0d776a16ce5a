package services

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"startctl/internal/startup"
)

// MemoryController is an in-memory Controller for tests.
type MemoryController struct {
	mu       sync.Mutex
	services map[string]Config
	listErr  error
	denied   bool
}

var _ Controller = (*MemoryController)(nil)

func NewMemoryController() *MemoryController {
	return &MemoryController{services: make(map[string]Config)}
}

// Put installs or replaces a service.
func (m *MemoryController) Put(c Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[strings.ToLower(c.Name)] = c
}

// Get returns the named service.
func (m *MemoryController) Get(name string) (Config, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.services[strings.ToLower(name)]
	return c, ok
}

// FailList makes List return err.
func (m *MemoryController) FailList(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// Deny makes SetStartType refuse every change.
func (m *MemoryController) Deny() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = true
}

func (m *MemoryController) List() ([]Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Config, 0, len(m.services))
	for _, c := range m.services {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Config) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *MemoryController) SetStartType(name string, st StartType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied {
		return fmt.Errorf("%w: service %s", startup.ErrPermissionDenied, name)
	}
	c, ok := m.services[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: service %s", startup.ErrNotFound, name)
	}
	c.StartType = st
	m.services[strings.ToLower(name)] = c
	return nil
}
