package startup_test

import (
	"errors"
	"testing"

	"startctl/internal/snapshot"
	"startctl/internal/startup"
	"startctl/internal/testutil"
)

type fixture struct {
	svc   *startup.Service
	user  *testutil.FakeSource
	admin *testutil.FakeSource
	store *snapshot.MemoryStore
}

// newFixture wires a Service over two fake sources: one for user-level
// registry entries and one for services, which require elevation.
func newFixture(t *testing.T, elevated bool) *fixture {
	t.Helper()
	user := testutil.NewFakeSource(startup.RegistryCurrentUserRun, startup.StartupFolderUser)
	admin := testutil.NewFakeSource(startup.WindowsService)
	agg, err := startup.NewAggregator(startup.NewNopLogger(), user, admin)
	if err != nil {
		t.Fatal(err)
	}
	store := snapshot.NewMemoryStore("test", testutil.LogonClock())
	svc := startup.NewService(agg, store, startup.StaticElevation(elevated), startup.NewNopLogger(), testutil.NewBatchIDs())
	return &fixture{svc: svc, user: user, admin: admin, store: store}
}

func TestService_Refresh_groupsAndSorts(t *testing.T) {
	f := newFixture(t, false)
	f.admin.Add("Spooler", startup.WindowsService, startup.StatusEnabled)
	f.user.Add("zoom", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.user.Add("Notes", startup.StartupFolderUser, startup.StatusDisabled)
	f.user.Add("Adobe", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.user.Add("beta", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.svc.Refresh()

	groups := f.svc.Groups()
	if len(groups) != 3 {
		t.Fatalf("len(Groups()) = %d, want 3", len(groups))
	}
	wantTypes := []startup.SourceType{startup.RegistryCurrentUserRun, startup.StartupFolderUser, startup.WindowsService}
	for i, g := range groups {
		if g.Type != wantTypes[i] {
			t.Errorf("group %d type = %s, want %s", i, g.Type, wantTypes[i])
		}
	}

	var names []string
	for _, e := range groups[0].Entries {
		names = append(names, e.Name)
	}
	if len(names) != 3 || names[0] != "Adobe" || names[1] != "beta" || names[2] != "zoom" {
		t.Errorf("registry group order = %v, want case-insensitive by name", names)
	}

	if got := len(f.svc.Entries()); got != 5 {
		t.Errorf("len(Entries()) = %d, want 5", got)
	}
}

func TestService_StageToggle(t *testing.T) {
	t.Run("toggle twice collapses", func(t *testing.T) {
		f := newFixture(t, false)
		e := f.user.Add("Updater", startup.RegistryCurrentUserRun, startup.StatusEnabled)
		f.svc.Refresh()

		got, err := f.svc.StageToggle(e)
		if err != nil {
			t.Fatalf("StageToggle() error = %v", err)
		}
		if got != startup.StatusDisabled || f.svc.EffectiveStatus(e) != startup.StatusDisabled {
			t.Errorf("after first toggle effective = %s, want Disabled", f.svc.EffectiveStatus(e))
		}
		if f.svc.PendingCount() != 1 {
			t.Fatalf("PendingCount() = %d, want 1", f.svc.PendingCount())
		}
		p := f.svc.Pending()[0]
		if p.EntryID != e.ID || p.PreviousStatus != startup.StatusEnabled || p.RequestedStatus != startup.StatusDisabled {
			t.Errorf("Pending()[0] = %+v", p)
		}

		if _, err := f.svc.StageToggle(e); err != nil {
			t.Fatalf("second StageToggle() error = %v", err)
		}
		if f.svc.PendingCount() != 0 {
			t.Errorf("PendingCount() after toggling back = %d, want 0", f.svc.PendingCount())
		}
		if f.svc.EffectiveStatus(e) != startup.StatusEnabled {
			t.Errorf("effective status = %s, want Enabled", f.svc.EffectiveStatus(e))
		}
	})

	t.Run("unknown status toggles to enabled", func(t *testing.T) {
		f := newFixture(t, false)
		e := f.user.Add("Odd", startup.RegistryCurrentUserRun, startup.StatusUnknown)
		f.svc.Refresh()

		got, err := f.svc.StageToggle(e)
		if err != nil {
			t.Fatalf("StageToggle() error = %v", err)
		}
		if got != startup.StatusEnabled || !f.svc.HasPending(e) {
			t.Errorf("StageToggle() = %s, pending %v; want Enabled staged", got, f.svc.HasPending(e))
		}
	})

	t.Run("admin entry without elevation", func(t *testing.T) {
		f := newFixture(t, false)
		e := f.admin.Add("Spooler", startup.WindowsService, startup.StatusEnabled)
		f.svc.Refresh()

		_, err := f.svc.StageToggle(e)
		if !errors.Is(err, startup.ErrElevationRequired) {
			t.Errorf("StageToggle() error = %v, want ErrElevationRequired", err)
		}
		if f.svc.PendingCount() != 0 {
			t.Error("rejected toggle left a pending change")
		}
	})

	t.Run("admin entry with elevation", func(t *testing.T) {
		f := newFixture(t, true)
		e := f.admin.Add("Spooler", startup.WindowsService, startup.StatusEnabled)
		f.svc.Refresh()

		if _, err := f.svc.StageToggle(e); err != nil {
			t.Fatalf("StageToggle() error = %v", err)
		}
		if !f.svc.IsElevated() || f.svc.PendingCount() != 1 {
			t.Error("elevated toggle was not staged")
		}
	})

	t.Run("entry not held", func(t *testing.T) {
		f := newFixture(t, true)
		f.svc.Refresh()
		ghost := startup.NewEntry("Ghost", startup.RegistryCurrentUserRun, "", "ghost.exe", startup.StatusEnabled)
		if _, err := f.svc.StageToggle(ghost); !errors.Is(err, startup.ErrNotFound) {
			t.Errorf("StageToggle() error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_Stage_atMostOnePerEntry(t *testing.T) {
	f := newFixture(t, false)
	e := f.user.Add("Updater", startup.RegistryCurrentUserRun, startup.StatusDisabled)
	f.svc.Refresh()

	for i := 0; i < 3; i++ {
		if err := f.svc.Stage(e, startup.StatusEnabled); err != nil {
			t.Fatalf("Stage() error = %v", err)
		}
	}
	if f.svc.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", f.svc.PendingCount())
	}

	if err := f.svc.Stage(e, startup.StatusDisabled); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if f.svc.PendingCount() != 0 {
		t.Errorf("staging the on-disk status left %d pending", f.svc.PendingCount())
	}

	if err := f.svc.Stage(e, startup.StatusUnknown); err == nil {
		t.Error("Stage(Unknown) expected error")
	}
}

func TestService_Refresh_discardsPending(t *testing.T) {
	f := newFixture(t, false)
	e := f.user.Add("Updater", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.svc.Refresh()
	if _, err := f.svc.StageToggle(e); err != nil {
		t.Fatal(err)
	}

	f.svc.Refresh()
	if f.svc.PendingCount() != 0 {
		t.Errorf("PendingCount() after Refresh = %d, want 0", f.svc.PendingCount())
	}

	if _, err := f.svc.StageToggle(e); err != nil {
		t.Fatal(err)
	}
	f.svc.DiscardAll()
	if f.svc.PendingCount() != 0 {
		t.Errorf("PendingCount() after DiscardAll = %d, want 0", f.svc.PendingCount())
	}
}

func TestService_Apply_nothingStaged(t *testing.T) {
	f := newFixture(t, false)
	f.user.Add("Updater", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.svc.Refresh()

	if _, err := f.svc.Apply(); !errors.Is(err, startup.ErrNothingToApply) {
		t.Errorf("Apply() error = %v, want ErrNothingToApply", err)
	}
	if f.store.Len() != 0 {
		t.Error("Apply() with nothing staged wrote a backup")
	}
}

func TestService_Apply_backupFailure(t *testing.T) {
	user := testutil.NewFakeSource(startup.RegistryCurrentUserRun)
	a := user.Add("A", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	b := user.Add("B", startup.RegistryCurrentUserRun, startup.StatusDisabled)
	agg, err := startup.NewAggregator(startup.NewNopLogger(), user)
	if err != nil {
		t.Fatal(err)
	}
	store := &testutil.FailingSnapshotStore{Err: errors.New("disk full")}
	svc := startup.NewService(agg, store, startup.StaticElevation(false), startup.NewNopLogger(), testutil.NewBatchIDs())
	svc.Refresh()

	for _, e := range []*startup.Entry{a, b} {
		if _, err := svc.StageToggle(e); err != nil {
			t.Fatal(err)
		}
	}

	_, err = svc.Apply()
	if !errors.Is(err, startup.ErrBackupFailed) {
		t.Fatalf("Apply() error = %v, want ErrBackupFailed", err)
	}
	if len(user.Calls()) != 0 {
		t.Errorf("source was modified after backup failure: %v", user.Calls())
	}
	if svc.PendingCount() != 2 {
		t.Errorf("PendingCount() = %d, want 2 kept", svc.PendingCount())
	}
}

func TestService_Apply_partialFailure(t *testing.T) {
	f := newFixture(t, false)
	a := f.user.Add("A", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	b := f.user.Add("B", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	c := f.user.Add("C", startup.StartupFolderUser, startup.StatusDisabled)
	f.user.FailOn("B", startup.ErrPermissionDenied)
	f.svc.Refresh()

	for _, e := range []*startup.Entry{a, b, c} {
		if _, err := f.svc.StageToggle(e); err != nil {
			t.Fatal(err)
		}
	}

	report, err := f.svc.Apply()
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if report.Total != 3 || report.Succeeded != 2 || report.Failed != 1 {
		t.Errorf("report = %+v, want 3 total, 2 succeeded, 1 failed", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].Entry.Name != "B" || !errors.Is(report.Failures[0].Err, startup.ErrPermissionDenied) {
		t.Errorf("Failures = %+v", report.Failures)
	}
	if report.BatchID != "batch-001" {
		t.Errorf("BatchID = %q, want batch-001", report.BatchID)
	}

	wantCalls := []string{"disable:A", "disable:B", "enable:C"}
	calls := f.user.Calls()
	if len(calls) != len(wantCalls) {
		t.Fatalf("calls = %v, want %v", calls, wantCalls)
	}
	for i := range wantCalls {
		if calls[i] != wantCalls[i] {
			t.Errorf("call %d = %s, want %s", i, calls[i], wantCalls[i])
		}
	}

	if f.svc.PendingCount() != 0 {
		t.Errorf("PendingCount() after Apply = %d, want 0", f.svc.PendingCount())
	}
	if got := f.svc.Entry(a.ID).Status; got != startup.StatusDisabled {
		t.Errorf("A status after rescan = %s, want Disabled", got)
	}
	if got := f.svc.Entry(b.ID).Status; got != startup.StatusEnabled {
		t.Errorf("B status after rescan = %s, want Enabled", got)
	}

	snap, err := f.store.Restore(report.BackupPath)
	if err != nil {
		t.Fatalf("Restore(backup) error = %v", err)
	}
	if snap.Description != "Before applying changes" || len(snap.Items) != 3 {
		t.Errorf("backup = %q with %d items", snap.Description, len(snap.Items))
	}
	for _, item := range snap.Items {
		if item.Name == "A" && item.Status != startup.StatusEnabled {
			t.Error("backup recorded post-change state")
		}
	}
}

func TestService_Apply_vanishedEntry(t *testing.T) {
	f := newFixture(t, false)
	a := f.user.Add("A", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	gone := f.user.Add("Gone", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.svc.Refresh()
	for _, e := range []*startup.Entry{a, gone} {
		if _, err := f.svc.StageToggle(e); err != nil {
			t.Fatal(err)
		}
	}
	f.user.Remove("Gone")

	report, err := f.svc.Apply()
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("report = %+v, want 1 succeeded, 1 failed", report)
	}
	if !errors.Is(report.Failures[0].Err, startup.ErrNotFound) {
		t.Errorf("failure error = %v, want ErrNotFound", report.Failures[0].Err)
	}
	if f.svc.Entry(gone.ID) != nil {
		t.Error("vanished entry still held after Apply")
	}

	snap, err := f.store.Restore(report.BackupPath)
	if err != nil {
		t.Fatalf("Restore(backup) error = %v", err)
	}
	if len(snap.Items) != 2 {
		t.Errorf("backup = %d items, want the 2 held entries", len(snap.Items))
	}
}

func TestService_Resolve(t *testing.T) {
	f := newFixture(t, false)
	up := f.user.Add("Updater", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.user.Add("Sync", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.user.Add("Sync", startup.StartupFolderUser, startup.StatusEnabled)
	f.svc.Refresh()

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: up.ID, want: up.ID},
		{ref: up.ID[:6], want: up.ID},
		{ref: "updater", want: up.ID},
		{ref: "sync", wantErr: true},
		{ref: "nothing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := f.svc.Resolve(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if !tt.wantErr && got.ID != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.ref, got.ID, tt.want)
			}
		})
	}

	if _, err := f.svc.Resolve("nothing"); !errors.Is(err, startup.ErrNotFound) {
		t.Errorf("Resolve(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestService_FindEntries(t *testing.T) {
	f := newFixture(t, false)
	f.user.Add("Updater", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.user.Add("Sync", startup.StartupFolderUser, startup.StatusEnabled)
	f.svc.Refresh()

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"UPDATE", 1},
		{`c:\apps`, 2},
		{"sync.exe", 1},
		{"missing", 0},
	}
	for _, tt := range tests {
		if got := f.svc.FindEntries(tt.query); len(got) != tt.want {
			t.Errorf("FindEntries(%q) = %d entries, want %d", tt.query, len(got), tt.want)
		}
	}
}

func TestService_Backups(t *testing.T) {
	f := newFixture(t, false)
	f.user.Add("A", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.svc.Refresh()

	path, err := f.svc.CreateBackup(f.svc.Entries(), "")
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	latest, err := f.svc.LatestBackup()
	if err != nil || latest == nil {
		t.Fatalf("LatestBackup() = %v, %v", latest, err)
	}
	if latest.Path != path || latest.Snapshot.Description != "Manual backup" {
		t.Errorf("LatestBackup() = %s %q", latest.Path, latest.Snapshot.Description)
	}

	list, err := f.svc.ListBackups()
	if err != nil || len(list) != 1 {
		t.Errorf("ListBackups() = %d, %v", len(list), err)
	}

	snap, err := f.svc.RestoreBackup(path)
	if err != nil || len(snap.Items) != 1 {
		t.Errorf("RestoreBackup() = %v, %v", snap, err)
	}

	failing := startup.NewService(nil, &testutil.FailingSnapshotStore{Err: errors.New("read-only")}, startup.StaticElevation(false), startup.NewNopLogger(), testutil.NewBatchIDs())
	if _, err := failing.CreateBackup(nil, "x"); !errors.Is(err, startup.ErrBackupFailed) {
		t.Errorf("CreateBackup() error = %v, want ErrBackupFailed", err)
	}
}

func TestService_StageRestore(t *testing.T) {
	f := newFixture(t, false)
	a := f.user.Add("A", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	b := f.user.Add("B", startup.RegistryCurrentUserRun, startup.StatusEnabled)
	f.admin.Add("Spooler", startup.WindowsService, startup.StatusEnabled)
	f.svc.Refresh()

	path, err := f.svc.CreateBackup(f.svc.Entries(), "baseline")
	if err != nil {
		t.Fatal(err)
	}

	// Change A on disk and let B vanish after the baseline was taken.
	if _, err := f.svc.StageToggle(a); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Apply(); err != nil {
		t.Fatal(err)
	}
	f.user.Remove("B")
	f.svc.Refresh()

	snap, err := f.svc.RestoreBackup(path)
	if err != nil {
		t.Fatal(err)
	}

	actions := map[string]startup.RestoreAction{}
	for _, item := range f.svc.RestorePlan(snap) {
		actions[item.Recorded.Name] = item.Action
	}
	if actions["A"] != startup.RestoreChange || actions["B"] != startup.RestoreMissing || actions["Spooler"] != startup.RestoreUnchanged {
		t.Errorf("plan actions = %v", actions)
	}

	staged, err := f.svc.StageRestore(snap)
	if err != nil {
		t.Fatalf("StageRestore() error = %v", err)
	}
	if staged != 1 || f.svc.EffectiveStatus(f.svc.Entry(a.ID)) != startup.StatusEnabled {
		t.Errorf("StageRestore() staged %d, A effective %s", staged, f.svc.EffectiveStatus(f.svc.Entry(a.ID)))
	}
	if f.svc.Entry(b.ID) != nil {
		t.Error("B should be gone")
	}
}
