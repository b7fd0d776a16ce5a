package testutil

import (
	"fmt"
	"sync"

	"startctl/internal/startup"
)

// FakeSource is an in-memory startup.Source. Enable and Disable flip the
// stored status of the matching entry unless a failure is set for its name.
type FakeSource struct {
	mu      sync.Mutex
	types   []startup.SourceType
	entries []*startup.Entry
	fail    map[string]error
	scanErr error
	calls   []string
}

var _ startup.Source = (*FakeSource)(nil)

// NewFakeSource creates a FakeSource claiming the given types.
func NewFakeSource(types ...startup.SourceType) *FakeSource {
	return &FakeSource{types: types, fail: make(map[string]error)}
}

// Add stores an entry launching C:\Apps\<name>.exe and returns a copy of it.
func (f *FakeSource) Add(name string, t startup.SourceType, status startup.Status) *startup.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := startup.NewEntry(name, t, "fake:"+name, fmt.Sprintf(`"C:\Apps\%s.exe"`, name), status)
	f.entries = append(f.entries, e)
	return e.Clone()
}

// Remove deletes the named entry, as if it vanished from the OS.
func (f *FakeSource) Remove(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.Name == name {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return
		}
	}
}

// FailOn makes every Enable or Disable of the named entry return err.
func (f *FakeSource) FailOn(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[name] = err
}

// FailScan makes Scan return err.
func (f *FakeSource) FailScan(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanErr = err
}

// Calls returns the mutations attempted so far, as "enable:<name>" or "disable:<name>".
func (f *FakeSource) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

// Status returns the stored status of the named entry.
func (f *FakeSource) Status(name string) startup.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Name == name {
			return e.Status
		}
	}
	return startup.StatusUnknown
}

func (f *FakeSource) SourceTypes() []startup.SourceType { return f.types }

func (f *FakeSource) Scan() ([]*startup.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	out := make([]*startup.Entry, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Clone()
	}
	return out, nil
}

func (f *FakeSource) Enable(e *startup.Entry) error {
	return f.set("enable", e, startup.StatusEnabled)
}

func (f *FakeSource) Disable(e *startup.Entry) error {
	return f.set("disable", e, startup.StatusDisabled)
}

func (f *FakeSource) set(op string, e *startup.Entry, status startup.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+e.Name)
	if err := f.fail[e.Name]; err != nil {
		return err
	}
	for _, stored := range f.entries {
		if stored.ID == e.ID {
			stored.Status = status
			return nil
		}
	}
	return startup.ErrNotFound
}
