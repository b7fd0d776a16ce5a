package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"startctl/internal/config"
	"startctl/internal/elevation"
	"startctl/internal/encryption"
	"startctl/internal/snapshot"
	"startctl/internal/startup"
)

// LatestBackup selects the newest snapshot wherever a backup path is accepted.
const LatestBackup = "latest"

// StartApp is the application layer between the CLI and startup.Service.
// It constructs all dependencies from config and exposes high-level
// operations that accept raw entry references and backup paths.
type StartApp struct {
	cfg       *config.Config
	encryptor startup.Encryptor
	store     startup.SnapshotStore
	service   *startup.Service
	op        *Operation
	logger    *slog.Logger
	logFile   *os.File
}

// Options overrides the native collaborators. Zero fields use the defaults.
type Options struct {
	Sources   []startup.Source
	Elevation startup.Elevation
	Clock     startup.Clock
	IDs       startup.IDGenerator
}

// NewStartApp creates a fully wired StartApp from the given config.
// operation identifies the CLI command being run (e.g. "Disable", "BackupCreate").
// The caller must call Close when done.
func NewStartApp(cfg *config.Config, operation, parameters, version string, opts Options) (*StartApp, error) {
	if opts.Clock == nil {
		opts.Clock = startup.RealClock{}
	}
	if opts.Elevation == nil {
		opts.Elevation = elevation.Token{}
	}
	if opts.IDs == nil {
		opts.IDs = startup.UUIDGenerator{}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	store, err := snapshot.NewStoreFromConfig(cfg.Backup, version, opts.Clock, enc)
	if err != nil {
		return nil, fmt.Errorf("creating backup store: %w", err)
	}

	op := NewOperation(operation, parameters, opts.Clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	sources := opts.Sources
	if sources == nil {
		sources = buildSources(cfg, adapter)
	}
	agg, err := startup.NewAggregator(adapter, sources...)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("registering sources: %w", err)
	}

	svc := startup.NewService(agg, store, opts.Elevation, adapter, opts.IDs)
	logger.Debug("operation started", "operation", operation, "parameters", parameters, "elevated", svc.IsElevated())

	return &StartApp{
		cfg:       cfg,
		encryptor: enc,
		store:     store,
		service:   svc,
		op:        op,
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// Service exposes the staging engine for rendering.
func (a *StartApp) Service() *startup.Service { return a.service }

// Encrypted reports whether backups are encrypted at rest.
func (a *StartApp) Encrypted() bool { return a.encryptor != nil }

// SetupKeys generates the encryption key pair protected by passphrase.
func (a *StartApp) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is not configured (set [encryption] type)")
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return a.fail(fmt.Errorf("setting up keys: %w", err))
	}
	return nil
}

// Unlock makes encrypted backups readable for the rest of the operation.
// It is a no-op when encryption is off.
func (a *StartApp) Unlock(passphrase string) error {
	if a.encryptor == nil {
		return nil
	}
	dctx, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return a.fail(fmt.Errorf("unlocking backups: %w", err))
	}
	if s, ok := a.store.(interface {
		SetDecryptionContext(startup.DecryptionContext)
	}); ok {
		s.SetDecryptionContext(dctx)
	}
	return nil
}

// Refresh rescans every source.
func (a *StartApp) Refresh() {
	start := time.Now()
	a.service.Refresh()
	a.logger.Debug("scan complete", "entries", len(a.service.Entries()), "duration", time.Since(start))
}

// List returns entries matching query, optionally limited to one source type
// given by key or short name.
func (a *StartApp) List(query, source string) ([]*startup.Entry, error) {
	entries := a.service.FindEntries(query)
	if source == "" {
		return entries, nil
	}
	t, err := startup.ParseSourceType(source)
	if err != nil {
		return nil, err
	}
	var out []*startup.Entry
	for _, e := range entries {
		if e.SourceType == t {
			out = append(out, e)
		}
	}
	return out, nil
}

// Stage resolves each ref and stages target for it. StatusUnknown stages a
// toggle. Every ref is attempted; the errors are joined.
func (a *StartApp) Stage(refs []string, target startup.Status) error {
	var errs []error
	for _, ref := range refs {
		e, err := a.service.Resolve(ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if target == startup.StatusUnknown {
			_, err = a.service.StageToggle(e)
		} else {
			err = a.service.Stage(e, target)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return a.fail(errors.Join(errs...))
}

// Apply writes every staged change to the OS.
func (a *StartApp) Apply() (*startup.ApplyReport, error) {
	report, err := a.service.Apply()
	if err != nil {
		return nil, a.fail(err)
	}
	a.logger.Info("applied changes", "batch", report.BatchID, "backup", report.BackupPath, "succeeded", report.Succeeded, "failed", report.Failed)
	for _, f := range report.Failures {
		a.logger.Warn("change failed", "entry", f.Entry.Name, "requested", f.Requested.String(), "error", f.Err)
	}
	if report.Failed > 0 {
		a.op.Fail(fmt.Errorf("%d of %d changes failed", report.Failed, report.Total))
	}
	return report, nil
}

// CreateBackup snapshots every held entry.
func (a *StartApp) CreateBackup(description string) (string, error) {
	path, err := a.service.CreateBackup(a.service.Entries(), description)
	if err != nil {
		return "", a.fail(err)
	}
	a.logger.Info("created backup", "path", path, "entries", len(a.service.Entries()))
	return path, nil
}

// ListBackups returns stored snapshots, newest first.
func (a *StartApp) ListBackups() ([]startup.SnapshotFile, error) {
	files, err := a.service.ListBackups()
	return files, a.fail(err)
}

// LoadBackup reads the snapshot at ref, or the newest one when ref is
// LatestBackup.
func (a *StartApp) LoadBackup(ref string) (*startup.SnapshotFile, error) {
	if strings.EqualFold(ref, LatestBackup) {
		latest, err := a.service.LatestBackup()
		if err != nil {
			return nil, a.fail(err)
		}
		if latest == nil {
			return nil, a.fail(fmt.Errorf("%w: no backups", startup.ErrNotFound))
		}
		return latest, nil
	}

	snap, err := a.service.RestoreBackup(ref)
	if err != nil {
		return nil, a.fail(err)
	}
	return &startup.SnapshotFile{Path: ref, Snapshot: snap}, nil
}

// StageRestore stages every change needed to return to snap.
func (a *StartApp) StageRestore(snap *startup.Snapshot) (int, error) {
	n, err := a.service.StageRestore(snap)
	return n, a.fail(err)
}

// Fail marks the running operation as failed.
func (a *StartApp) Fail(err error) { a.fail(err) }

func (a *StartApp) fail(err error) error {
	a.op.Fail(err)
	return err
}

// Close logs the outcome of the operation and closes the log file.
func (a *StartApp) Close() error {
	args := []any{"operation", a.op.Operation, "status", a.op.Status, "duration", time.Since(a.op.StartedAt)}
	if a.op.Failed() {
		args = append(args, "error", a.op.Err)
	}
	a.logger.Info("operation finished", args...)
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}
