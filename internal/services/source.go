package services

import (
	"fmt"

	"startctl/internal/startup"
)

// Source exposes auto-start services as entries. Every scanned entry is
// enabled; demand-start and disabled services never appear.
type Source struct {
	ctrl   Controller
	logger startup.Logger
}

var _ startup.Source = (*Source)(nil)

func NewSource(ctrl Controller, logger startup.Logger) *Source {
	return &Source{ctrl: ctrl, logger: logger}
}

func (s *Source) SourceTypes() []startup.SourceType {
	return []startup.SourceType{startup.WindowsService}
}

func (s *Source) Scan() ([]*startup.Entry, error) {
	configs, err := s.ctrl.List()
	if err != nil {
		return nil, err
	}

	var entries []*startup.Entry
	for _, c := range configs {
		if !c.StartType.AutoStarts() {
			continue
		}
		name := c.DisplayName
		if name == "" {
			name = c.Name
		}
		e := startup.NewEntry(name, startup.WindowsService, c.Name, c.BinaryPath, startup.StatusEnabled)
		e.Description = c.Description
		if e.Description == "" {
			e.Description = "Service: " + c.Name
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Enable sets the service to start automatically.
func (s *Source) Enable(e *startup.Entry) error { return s.set(e, StartAutomatic) }

// Disable sets the service to start on demand.
func (s *Source) Disable(e *startup.Entry) error { return s.set(e, StartDemand) }

func (s *Source) set(e *startup.Entry, st StartType) error {
	if e.SourceType != startup.WindowsService {
		return fmt.Errorf("%w: %s", startup.ErrNoSource, e.SourceType)
	}
	if err := s.ctrl.SetStartType(e.SourceLocation, st); err != nil {
		return fmt.Errorf("setting %s start type to %s: %w", e.SourceLocation, st, err)
	}
	s.logger.Debug("changed service start type", "service", e.SourceLocation, "start_type", st.String())
	return nil
}
