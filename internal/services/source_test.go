package services

import (
	"errors"
	"testing"

	"startctl/internal/startup"
)

func newTestController() *MemoryController {
	m := NewMemoryController()
	m.Put(Config{Name: "AcmeSvc", DisplayName: "Acme Updater", BinaryPath: `"C:\Program Files\Acme\svc.exe" -k`, Description: "Keeps Acme current", StartType: StartAutomatic})
	m.Put(Config{Name: "drv", BinaryPath: `\SystemRoot\System32\drivers\drv.sys`, StartType: StartBoot})
	m.Put(Config{Name: "Manual", DisplayName: "Manual One", BinaryPath: `C:\m.exe`, StartType: StartDemand})
	m.Put(Config{Name: "Off", DisplayName: "Off One", BinaryPath: `C:\o.exe`, StartType: StartDisabled})
	return m
}

func TestSource_Scan(t *testing.T) {
	s := NewSource(newTestController(), startup.NewNopLogger())

	entries, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Scan() = %d entries, want 2", len(entries))
	}

	acme, drv := entries[0], entries[1]
	if acme.Name != "Acme Updater" || acme.SourceLocation != "AcmeSvc" {
		t.Errorf("acme = %+v", acme)
	}
	if acme.Description != "Keeps Acme current" {
		t.Errorf("acme description = %q", acme.Description)
	}
	if !acme.RequiresAdmin || acme.Status != startup.StatusEnabled {
		t.Errorf("acme should be an enabled admin entry: %+v", acme)
	}
	if drv.Name != "drv" {
		t.Errorf("drv name = %q, want service name fallback", drv.Name)
	}
	if drv.Description != "Service: drv" {
		t.Errorf("drv description = %q", drv.Description)
	}
}

func TestSource_Scan_listFails(t *testing.T) {
	m := NewMemoryController()
	m.FailList(startup.ErrAccessDenied)
	s := NewSource(m, startup.NewNopLogger())

	if _, err := s.Scan(); !errors.Is(err, startup.ErrAccessDenied) {
		t.Errorf("Scan() error = %v, want ErrAccessDenied", err)
	}
}

func TestSource_toggle(t *testing.T) {
	m := newTestController()
	s := NewSource(m, startup.NewNopLogger())
	e := startup.NewEntry("Acme Updater", startup.WindowsService, "AcmeSvc", `C:\svc.exe`, startup.StatusEnabled)

	if err := s.Disable(e); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if c, _ := m.Get("AcmeSvc"); c.StartType != StartDemand {
		t.Errorf("start type = %v, want demand", c.StartType)
	}

	entries, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}
	for _, got := range entries {
		if got.SourceLocation == "AcmeSvc" {
			t.Error("demand-start service should not be listed")
		}
	}

	if err := s.Enable(e); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if c, _ := m.Get("AcmeSvc"); c.StartType != StartAutomatic {
		t.Errorf("start type = %v, want automatic", c.StartType)
	}
}

func TestSource_errors(t *testing.T) {
	tests := []struct {
		name    string
		entry   *startup.Entry
		deny    bool
		wantErr error
	}{
		{"missing service", startup.NewEntry("Gone", startup.WindowsService, "Gone", "g.exe", startup.StatusEnabled), false, startup.ErrNotFound},
		{"denied", startup.NewEntry("Acme", startup.WindowsService, "AcmeSvc", "a.exe", startup.StatusEnabled), true, startup.ErrPermissionDenied},
		{"foreign type", startup.NewEntry("Acme", startup.ScheduledTask, `\Acme`, "a.exe", startup.StatusEnabled), false, startup.ErrNoSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestController()
			if tt.deny {
				m.Deny()
			}
			s := NewSource(m, startup.NewNopLogger())
			if err := s.Disable(tt.entry); !errors.Is(err, tt.wantErr) {
				t.Errorf("Disable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartType(t *testing.T) {
	tests := []struct {
		st   StartType
		want bool
		name string
	}{
		{StartBoot, true, "boot"},
		{StartSystem, true, "system"},
		{StartAutomatic, true, "automatic"},
		{StartDemand, false, "demand"},
		{StartDisabled, false, "disabled"},
		{StartType(9), false, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.st.AutoStarts(); got != tt.want {
			t.Errorf("%v.AutoStarts() = %v, want %v", tt.st, got, tt.want)
		}
		if got := tt.st.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
}
