// Package tasks lists and toggles Task Scheduler tasks that run at logon or
// boot. It drives the schtasks command line tool.
package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"startctl/internal/startup"
)

// DefaultCommand is the task scheduler tool.
const DefaultCommand = "schtasks"

// DefaultExcludedPrefixes hides the built-in Windows task namespace.
var DefaultExcludedPrefixes = []string{`\Microsoft\`}

// Source scans and toggles scheduled tasks.
type Source struct {
	runner   Runner
	command  string
	excluded []string
	logger   startup.Logger
}

var _ startup.Source = (*Source)(nil)

// NewSource creates a Source running command through runner. An empty
// command selects DefaultCommand; nil excluded selects DefaultExcludedPrefixes.
func NewSource(runner Runner, command string, excluded []string, logger startup.Logger) *Source {
	if command == "" {
		command = DefaultCommand
	}
	if excluded == nil {
		excluded = DefaultExcludedPrefixes
	}
	return &Source{runner: runner, command: command, excluded: excluded, logger: logger}
}

func (s *Source) SourceTypes() []startup.SourceType {
	return []startup.SourceType{startup.ScheduledTask}
}

// Scan queries every task and keeps the ones triggered at logon or boot.
// A query that exits non-zero yields no entries.
func (s *Source) Scan() ([]*startup.Entry, error) {
	stdout, _, err := s.runner.Run(context.Background(), s.command, "/query", "/fo", "CSV", "/v")
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		s.logger.Warn("task query failed", "command", s.command, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}

	tasks, err := ParseCSV(bytes.NewReader(stdout))
	if err != nil {
		s.logger.Warn("unreadable task listing", "error", err)
		return nil, nil
	}
	return Entries(tasks, s.excluded), nil
}

func (s *Source) Enable(e *startup.Entry) error  { return s.change(e, "/enable") }
func (s *Source) Disable(e *startup.Entry) error { return s.change(e, "/disable") }

func (s *Source) change(e *startup.Entry, flag string) error {
	if e.SourceType != startup.ScheduledTask {
		return fmt.Errorf("%w: %s", startup.ErrNoSource, e.SourceType)
	}

	stdout, stderr, err := s.runner.Run(context.Background(), s.command, "/change", "/tn", e.SourceLocation, flag)
	if err == nil {
		s.logger.Debug("changed scheduled task", "task", e.SourceLocation, "flag", flag)
		return nil
	}

	output := strings.ToLower(string(stdout) + string(stderr))
	switch {
	case strings.Contains(output, "access is denied"):
		return fmt.Errorf("%w: task %s: %w", startup.ErrPermissionDenied, e.SourceLocation, err)
	case strings.Contains(output, "cannot find"), strings.Contains(output, "does not exist"):
		return fmt.Errorf("%w: task %s: %w", startup.ErrNotFound, e.SourceLocation, err)
	}
	return fmt.Errorf("changing task %s: %w", e.SourceLocation, err)
}
