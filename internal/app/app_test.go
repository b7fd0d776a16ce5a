package app

import (
	"errors"
	"path/filepath"
	"testing"

	"startctl/internal/config"
	"startctl/internal/startup"
	"startctl/internal/testutil"
)

func newTestApp(t *testing.T, src startup.Source, mutate func(*config.Config)) *StartApp {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	if mutate != nil {
		mutate(cfg)
	}
	a, err := NewStartApp(cfg, "Test", "", "test", Options{
		Sources:   []startup.Source{src},
		Elevation: startup.StaticElevation(false),
		Clock:     testutil.LogonClock(),
		IDs:       testutil.NewBatchIDs(),
	})
	if err != nil {
		t.Fatalf("NewStartApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestStartApp_stageApplyRestore(t *testing.T) {
	src := testutil.NewFakeSource(startup.RegistryCurrentUserRun, startup.StartupFolderUser)
	src.Add("Updater", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	src.Add("Notes", startup.StartupFolderUser, startup.StatusEnabled)

	a := newTestApp(t, src, func(c *config.Config) { c.Encryption.Type = "test" })
	if !a.Encrypted() {
		t.Fatal("Encrypted() = false with test encryption")
	}
	if err := a.Unlock("pw"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	a.Refresh()

	if err := a.Stage([]string{"updater"}, startup.StatusDisabled); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	report, err := a.Apply()
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 0 || report.BatchID != "batch-001" {
		t.Errorf("report = %+v", report)
	}
	if src.Status("Updater") != startup.StatusDisabled {
		t.Error("Updater not disabled")
	}
	if filepath.Ext(report.BackupPath) != ".test" {
		t.Errorf("backup path %q not encrypted", report.BackupPath)
	}

	files, err := a.ListBackups()
	if err != nil || len(files) != 1 {
		t.Fatalf("ListBackups() = %v, %v", files, err)
	}

	latest, err := a.LoadBackup("latest")
	if err != nil {
		t.Fatalf("LoadBackup(latest) error = %v", err)
	}
	byPath, err := a.LoadBackup(latest.Path)
	if err != nil || len(byPath.Snapshot.Items) != 2 {
		t.Fatalf("LoadBackup(path) = %v, %v", byPath, err)
	}

	n, err := a.StageRestore(latest.Snapshot)
	if err != nil || n != 1 {
		t.Fatalf("StageRestore() = %d, %v", n, err)
	}
	if _, err := a.Apply(); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if src.Status("Updater") != startup.StatusEnabled {
		t.Error("restore did not re-enable Updater")
	}
	if a.op.Failed() {
		t.Errorf("operation failed: %v", a.op.Err)
	}
}

func TestStartApp_Stage_errors(t *testing.T) {
	src := testutil.NewFakeSource(startup.RegistryCurrentUserRun, startup.WindowsService)
	src.Add("Updater", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	src.Add("Spooler", startup.WindowsService, startup.StatusEnabled)

	a := newTestApp(t, src, func(c *config.Config) { c.Backup.Type = "memory" })
	a.Refresh()

	err := a.Stage([]string{"missing", "Spooler", "Updater"}, startup.StatusUnknown)
	if !errors.Is(err, startup.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if !errors.Is(err, startup.ErrElevationRequired) {
		t.Errorf("error = %v, want ErrElevationRequired", err)
	}
	if a.Service().PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", a.Service().PendingCount())
	}
	if !a.op.Failed() {
		t.Error("operation should be marked failed")
	}
}

func TestStartApp_Apply_partialFailure(t *testing.T) {
	src := testutil.NewFakeSource(startup.RegistryCurrentUserRun)
	src.Add("A", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	src.Add("B", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	src.FailOn("B", startup.ErrPermissionDenied)

	a := newTestApp(t, src, func(c *config.Config) { c.Backup.Type = "memory" })
	a.Refresh()
	if err := a.Stage([]string{"A", "B"}, startup.StatusDisabled); err != nil {
		t.Fatal(err)
	}

	report, err := a.Apply()
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if !a.op.Failed() {
		t.Error("operation should be marked failed")
	}
}

func TestStartApp_List(t *testing.T) {
	src := testutil.NewFakeSource(startup.RegistryCurrentUserRun, startup.StartupFolderUser)
	src.Add("Updater", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	src.Add("Notes", startup.StartupFolderUser, startup.StatusEnabled)

	a := newTestApp(t, src, func(c *config.Config) { c.Backup.Type = "memory" })
	a.Refresh()

	tests := []struct {
		query, source string
		want          int
		wantErr       bool
	}{
		{"", "", 2, false},
		{"notes", "", 1, false},
		{"", "hkcu run", 1, false},
		{"notes", "hkcu run", 0, false},
		{"", "bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := a.List(tt.query, tt.source)
		if (err != nil) != tt.wantErr {
			t.Errorf("List(%q, %q) error = %v", tt.query, tt.source, err)
			continue
		}
		if len(got) != tt.want {
			t.Errorf("List(%q, %q) = %d entries, want %d", tt.query, tt.source, len(got), tt.want)
		}
	}
}

func TestStartApp_LoadBackup_none(t *testing.T) {
	src := testutil.NewFakeSource(startup.RegistryCurrentUserRun)
	a := newTestApp(t, src, func(c *config.Config) { c.Backup.Type = "memory" })

	if _, err := a.LoadBackup("latest"); !errors.Is(err, startup.ErrNotFound) {
		t.Errorf("LoadBackup(latest) error = %v, want ErrNotFound", err)
	}
}

func TestStartApp_SetupKeys_noEncryption(t *testing.T) {
	src := testutil.NewFakeSource(startup.RegistryCurrentUserRun)
	a := newTestApp(t, src, nil)

	if err := a.SetupKeys("pw"); err == nil {
		t.Error("SetupKeys() should fail without encryption")
	}
	if err := a.Unlock("pw"); err != nil {
		t.Errorf("Unlock() without encryption error = %v", err)
	}
}

func TestNewStartApp_badConfig(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Encryption.Type = "rot13"
	if _, err := NewStartApp(cfg, "Test", "", "test", Options{}); err == nil {
		t.Error("NewStartApp() should reject an unknown encryption type")
	}

	cfg = config.NewConfig(t.TempDir())
	dup := testutil.NewFakeSource(startup.RegistryCurrentUserRun)
	opts := Options{Sources: []startup.Source{dup, testutil.NewFakeSource(startup.RegistryCurrentUserRun)}}
	if _, err := NewStartApp(cfg, "Test", "", "test", opts); err == nil {
		t.Error("NewStartApp() should reject duplicate source types")
	}
}

func TestBuildSources(t *testing.T) {
	t.Setenv("APPDATA", "")
	t.Setenv("ProgramData", "")
	cfg := config.NewConfig(t.TempDir())

	if got := buildSources(cfg, startup.NewNopLogger()); len(got) != len(config.AllSources) {
		t.Errorf("buildSources() = %d sources, want %d", len(got), len(config.AllSources))
	}

	cfg.Sources.Enabled = []string{config.SourceStartupFolders}
	cfg.StartupFolders.UserDir = t.TempDir()
	got := buildSources(cfg, startup.NewNopLogger())
	if len(got) != 1 {
		t.Fatalf("buildSources() = %d sources, want 1", len(got))
	}
	types := got[0].SourceTypes()
	if len(types) == 0 || types[0] != startup.StartupFolderUser {
		t.Errorf("folder source types = %v", types)
	}
}
