package startup

import (
	"fmt"
	"strings"
)

// SourceType identifies the autostart surface an entry lives in.
// The declaration order is the display order of entry groups.
type SourceType int

const (
	RegistryCurrentUserRun SourceType = iota + 1
	RegistryCurrentUserRunOnce
	RegistryLocalMachineRun
	RegistryLocalMachineRunOnce
	RegistryLocalMachineWow6432
	RegistryLocalMachineWow6432RunOnce
	StartupFolderUser
	StartupFolderAllUsers
	ScheduledTask
	WindowsService
)

// Hive is a registry root key.
type Hive int

const (
	HiveNone Hive = iota
	HiveCurrentUser
	HiveLocalMachine
)

func (h Hive) String() string {
	switch h {
	case HiveCurrentUser:
		return "HKCU"
	case HiveLocalMachine:
		return "HKLM"
	default:
		return ""
	}
}

type sourceTypeInfo struct {
	key           string
	displayName   string
	shortName     string
	requiresAdmin bool
	hive          Hive
	keyPath       string
	folder        bool
}

var sourceTypes = map[SourceType]sourceTypeInfo{
	RegistryCurrentUserRun: {
		key:         "RegistryCurrentUserRun",
		displayName: `Registry (HKCU\Run)`,
		shortName:   "HKCU Run",
		hive:        HiveCurrentUser,
		keyPath:     `Software\Microsoft\Windows\CurrentVersion\Run`,
	},
	RegistryCurrentUserRunOnce: {
		key:         "RegistryCurrentUserRunOnce",
		displayName: `Registry (HKCU\RunOnce)`,
		shortName:   "HKCU RunOnce",
		hive:        HiveCurrentUser,
		keyPath:     `Software\Microsoft\Windows\CurrentVersion\RunOnce`,
	},
	RegistryLocalMachineRun: {
		key:           "RegistryLocalMachineRun",
		displayName:   `Registry (HKLM\Run)`,
		shortName:     "HKLM Run",
		requiresAdmin: true,
		hive:          HiveLocalMachine,
		keyPath:       `SOFTWARE\Microsoft\Windows\CurrentVersion\Run`,
	},
	RegistryLocalMachineRunOnce: {
		key:           "RegistryLocalMachineRunOnce",
		displayName:   `Registry (HKLM\RunOnce)`,
		shortName:     "HKLM RunOnce",
		requiresAdmin: true,
		hive:          HiveLocalMachine,
		keyPath:       `SOFTWARE\Microsoft\Windows\CurrentVersion\RunOnce`,
	},
	RegistryLocalMachineWow6432: {
		key:           "RegistryLocalMachineWow6432",
		displayName:   `Registry (HKLM\WOW6432Node\Run)`,
		shortName:     "HKLM WOW64",
		requiresAdmin: true,
		hive:          HiveLocalMachine,
		keyPath:       `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Run`,
	},
	RegistryLocalMachineWow6432RunOnce: {
		key:           "RegistryLocalMachineWow6432RunOnce",
		displayName:   `Registry (HKLM\WOW6432Node\RunOnce)`,
		shortName:     "HKLM WOW64 RunOnce",
		requiresAdmin: true,
		hive:          HiveLocalMachine,
		keyPath:       `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\RunOnce`,
	},
	StartupFolderUser: {
		key:         "StartupFolderUser",
		displayName: "Startup Folder (User)",
		shortName:   "Startup (User)",
		folder:      true,
	},
	StartupFolderAllUsers: {
		key:           "StartupFolderAllUsers",
		displayName:   "Startup Folder (All Users)",
		shortName:     "Startup (All)",
		requiresAdmin: true,
		folder:        true,
	},
	ScheduledTask: {
		key:         "ScheduledTask",
		displayName: "Scheduled Tasks",
		shortName:   "Task",
	},
	WindowsService: {
		key:           "WindowsService",
		displayName:   "Windows Services",
		shortName:     "Service",
		requiresAdmin: true,
	},
}

// AllSourceTypes returns every source type in display order.
func AllSourceTypes() []SourceType {
	return []SourceType{
		RegistryCurrentUserRun,
		RegistryCurrentUserRunOnce,
		RegistryLocalMachineRun,
		RegistryLocalMachineRunOnce,
		RegistryLocalMachineWow6432,
		RegistryLocalMachineWow6432RunOnce,
		StartupFolderUser,
		StartupFolderAllUsers,
		ScheduledTask,
		WindowsService,
	}
}

// RegistrySourceTypes returns the source types backed by a registry run key.
func RegistrySourceTypes() []SourceType {
	var out []SourceType
	for _, t := range AllSourceTypes() {
		if t.IsRegistry() {
			out = append(out, t)
		}
	}
	return out
}

// Key is the stable identifier used in ids, snapshots and config.
func (t SourceType) Key() string {
	if info, ok := sourceTypes[t]; ok {
		return info.key
	}
	return fmt.Sprintf("SourceType(%d)", int(t))
}

func (t SourceType) String() string { return t.Key() }

func (t SourceType) DisplayName() string { return sourceTypes[t].displayName }

func (t SourceType) ShortName() string { return sourceTypes[t].shortName }

// RequiresAdmin reports whether mutating entries of this type needs elevation.
func (t SourceType) RequiresAdmin() bool { return sourceTypes[t].requiresAdmin }

func (t SourceType) IsRegistry() bool { return sourceTypes[t].hive != HiveNone }

func (t SourceType) IsStartupFolder() bool { return sourceTypes[t].folder }

// Hive returns the registry root for registry types and HiveNone otherwise.
func (t SourceType) Hive() Hive { return sourceTypes[t].hive }

// RegistryPath returns the run key path, relative to Hive.
func (t SourceType) RegistryPath() string { return sourceTypes[t].keyPath }

func (t SourceType) Valid() bool {
	_, ok := sourceTypes[t]
	return ok
}

// ParseSourceType resolves a stable key or a short name, case-insensitively.
func ParseSourceType(s string) (SourceType, error) {
	for _, t := range AllSourceTypes() {
		info := sourceTypes[t]
		if strings.EqualFold(s, info.key) || strings.EqualFold(s, info.shortName) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown source type %q", s)
}

func (t SourceType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid source type %d", int(t))
	}
	return []byte(t.Key()), nil
}

func (t *SourceType) UnmarshalText(text []byte) error {
	v, err := ParseSourceType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

