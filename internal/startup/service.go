package startup

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	applyBackupDescription  = "Before applying changes"
	manualBackupDescription = "Manual backup"
)

// PendingChange is a requested status change not yet written to the OS.
type PendingChange struct {
	EntryID         string
	PreviousStatus  Status
	RequestedStatus Status
}

// Group is the entries of one source type, sorted by name.
type Group struct {
	Type    SourceType
	Entries []*Entry
}

// FailedChange records one change that Apply could not make.
type FailedChange struct {
	Entry     *Entry
	Requested Status
	Err       error
}

// ApplyReport summarizes one Apply batch.
type ApplyReport struct {
	BatchID    string
	BackupPath string
	Total      int
	Succeeded  int
	Failed     int
	Failures   []FailedChange
}

// Service holds the scanned entries and the staged changes against them.
// It is not safe for concurrent use.
type Service struct {
	aggregator *Aggregator
	store      SnapshotStore
	elevation  Elevation
	logger     Logger
	idgen      IDGenerator

	elevated bool
	groups   []Group
	index    map[string]*Entry
	pending  map[string]PendingChange
}

// NewService creates a Service with an empty entry set. Call Refresh to scan.
func NewService(aggregator *Aggregator, store SnapshotStore, elevation Elevation, logger Logger, idgen IDGenerator) *Service {
	return &Service{
		aggregator: aggregator,
		store:      store,
		elevation:  elevation,
		logger:     logger,
		idgen:      idgen,
		elevated:   elevation.IsElevated(),
		index:      make(map[string]*Entry),
		pending:    make(map[string]PendingChange),
	}
}

// Refresh rescans every source and discards all pending changes.
func (s *Service) Refresh() {
	s.elevated = s.elevation.IsElevated()
	s.setEntries(s.aggregator.ScanAll())
	if n := len(s.pending); n > 0 {
		s.logger.Info("discarded pending changes on refresh", "count", n)
	}
	clear(s.pending)
}

func (s *Service) setEntries(entries []*Entry) {
	byType := make(map[SourceType][]*Entry)
	s.index = make(map[string]*Entry, len(entries))
	for _, e := range entries {
		if _, dup := s.index[e.ID]; dup {
			s.logger.Debug("skipping duplicate entry", "id", e.ID, "name", e.Name)
			continue
		}
		s.index[e.ID] = e
		byType[e.SourceType] = append(byType[e.SourceType], e)
	}

	s.groups = s.groups[:0]
	for _, t := range AllSourceTypes() {
		group := byType[t]
		if len(group) == 0 {
			continue
		}
		slices.SortStableFunc(group, func(a, b *Entry) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
		s.groups = append(s.groups, Group{Type: t, Entries: group})
	}
}

// IsElevated reports the elevation state seen at the last Refresh.
func (s *Service) IsElevated() bool { return s.elevated }

// Groups returns the held entries grouped by source type in display order.
func (s *Service) Groups() []Group { return s.groups }

// Entries returns every held entry in display order.
func (s *Service) Entries() []*Entry {
	var out []*Entry
	for _, g := range s.groups {
		out = append(out, g.Entries...)
	}
	return out
}

// Entry returns the held entry with the given id, or nil.
func (s *Service) Entry(id string) *Entry { return s.index[id] }

// Resolve finds one entry by exact id, unique id prefix or unique
// case-insensitive name, in that order.
func (s *Service) Resolve(ref string) (*Entry, error) {
	if e, ok := s.index[ref]; ok {
		return e, nil
	}

	var byPrefix, byName []*Entry
	for _, e := range s.Entries() {
		if strings.HasPrefix(e.ID, strings.ToLower(ref)) {
			byPrefix = append(byPrefix, e)
		}
		if strings.EqualFold(e.Name, ref) {
			byName = append(byName, e)
		}
	}
	for _, matches := range [][]*Entry{byPrefix, byName} {
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return nil, fmt.Errorf("%q matches %d entries", ref, len(matches))
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
}

// FindEntries returns held entries whose name, command or publisher contains
// query, ignoring case. An empty query matches everything.
func (s *Service) FindEntries(query string) []*Entry {
	q := strings.ToLower(query)
	var out []*Entry
	for _, e := range s.Entries() {
		if strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Command), q) ||
			strings.Contains(strings.ToLower(e.Publisher), q) {
			out = append(out, e)
		}
	}
	return out
}

// EffectiveStatus is the staged status if one exists, else the on-disk status.
func (s *Service) EffectiveStatus(e *Entry) Status {
	if p, ok := s.pending[e.ID]; ok {
		return p.RequestedStatus
	}
	return e.Status
}

// HasPending reports whether e has a staged change.
func (s *Service) HasPending(e *Entry) bool {
	_, ok := s.pending[e.ID]
	return ok
}

// StageToggle stages the opposite of e's effective status and returns it.
func (s *Service) StageToggle(e *Entry) (Status, error) {
	held, err := s.held(e)
	if err != nil {
		return StatusUnknown, err
	}
	requested := s.EffectiveStatus(held).Toggle()
	if err := s.Stage(held, requested); err != nil {
		return StatusUnknown, err
	}
	return requested, nil
}

// Stage records that e should end up in requested. Staging the on-disk
// status removes any pending change instead.
func (s *Service) Stage(e *Entry, requested Status) error {
	held, err := s.held(e)
	if err != nil {
		return err
	}
	if requested == StatusUnknown {
		return fmt.Errorf("cannot stage status %s", requested)
	}
	if held.RequiresAdmin && !s.elevated {
		return fmt.Errorf("%w: %s (%s)", ErrElevationRequired, held.Name, held.SourceType.DisplayName())
	}

	if requested == held.Status {
		delete(s.pending, held.ID)
		return nil
	}
	s.pending[held.ID] = PendingChange{
		EntryID:         held.ID,
		PreviousStatus:  held.Status,
		RequestedStatus: requested,
	}
	return nil
}

func (s *Service) held(e *Entry) (*Entry, error) {
	held, ok := s.index[e.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, e.ID)
	}
	return held, nil
}

// Pending returns staged changes in display order.
func (s *Service) Pending() []PendingChange {
	var out []PendingChange
	for _, e := range s.Entries() {
		if p, ok := s.pending[e.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) PendingCount() int { return len(s.pending) }

// DiscardAll drops every staged change.
func (s *Service) DiscardAll() {
	clear(s.pending)
}

// Apply snapshots the held entries and then replays every staged change
// against a fresh scan.
// If the snapshot cannot be written nothing is changed and the staged changes
// are kept. Otherwise each change is attempted independently, the entries are
// rescanned and all staged changes are cleared, whatever the outcome.
func (s *Service) Apply() (*ApplyReport, error) {
	if len(s.pending) == 0 {
		return nil, ErrNothingToApply
	}
	changes := s.Pending()

	backupPath, err := s.store.Create(s.Entries(), applyBackupDescription)
	if err != nil {
		s.logger.Error("pre-apply backup failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	current := s.aggregator.ScanAll()

	report := &ApplyReport{
		BatchID:    s.idgen.New(),
		BackupPath: backupPath,
		Total:      len(changes),
	}
	s.logger.Info("applying changes", "batch", report.BatchID, "count", report.Total, "backup", backupPath)

	byID := make(map[string]*Entry, len(current))
	for _, e := range current {
		byID[e.ID] = e
	}

	for _, c := range changes {
		e, ok := byID[c.EntryID]
		if !ok {
			e = s.index[c.EntryID]
			err = fmt.Errorf("%w: %s no longer present", ErrNotFound, e.Name)
		} else {
			err = s.aggregator.Modify(e, c.RequestedStatus)
		}

		if err != nil {
			s.logger.Warn("change failed", "batch", report.BatchID, "id", e.ID, "name", e.Name, "requested", c.RequestedStatus, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, FailedChange{Entry: e, Requested: c.RequestedStatus, Err: err})
			continue
		}
		s.logger.Info("change applied", "batch", report.BatchID, "id", e.ID, "name", e.Name, "status", c.RequestedStatus)
		report.Succeeded++
	}

	s.elevated = s.elevation.IsElevated()
	s.setEntries(s.aggregator.ScanAll())
	clear(s.pending)

	s.logger.Info("apply finished", "batch", report.BatchID, "succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}

// CreateBackup snapshots entries. An empty description becomes "Manual backup".
func (s *Service) CreateBackup(entries []*Entry, description string) (string, error) {
	if description == "" {
		description = manualBackupDescription
	}
	path, err := s.store.Create(entries, description)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	s.logger.Info("backup created", "path", path, "entries", len(entries))
	return path, nil
}

// ListBackups returns stored snapshots newest first.
func (s *Service) ListBackups() ([]SnapshotFile, error) {
	return s.store.List()
}

// RestoreBackup reads a snapshot back without changing the OS.
func (s *Service) RestoreBackup(path string) (*Snapshot, error) {
	return s.store.Restore(path)
}

// LatestBackup returns the newest snapshot or nil.
func (s *Service) LatestBackup() (*SnapshotFile, error) {
	return s.store.Latest()
}

// RestorePlan compares snap with the held entries.
func (s *Service) RestorePlan(snap *Snapshot) []RestoreItem {
	return Diff(snap, s.Entries())
}

// StageRestore stages every plan item whose status differs from snap and
// returns how many were staged. Items that cannot be staged are reported
// together in the error; the rest stay staged.
func (s *Service) StageRestore(snap *Snapshot) (int, error) {
	var staged int
	var errs []error
	for _, item := range s.RestorePlan(snap) {
		if item.Action != RestoreChange {
			continue
		}
		if err := s.Stage(item.Current, item.Recorded.Status); err != nil {
			errs = append(errs, err)
			continue
		}
		staged++
	}
	return staged, errors.Join(errs...)
}
