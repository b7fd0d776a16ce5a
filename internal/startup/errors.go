package startup

import "errors"

var (
	// ErrPermissionDenied means the OS refused a write to an autostart store.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound means the entry, key or file to mutate does not exist.
	ErrNotFound = errors.New("entry not found")
	// ErrAccessDenied means the service control manager could not be opened.
	ErrAccessDenied = errors.New("service control manager access denied")
	// ErrChangeFailed means a relocation was rolled back after its last step failed.
	ErrChangeFailed  = errors.New("change failed and was rolled back")
	ErrBackupFailed  = errors.New("backup failed")
	ErrRestoreFailed = errors.New("restore failed")
	// ErrElevationRequired means the entry needs an elevated process to change.
	ErrElevationRequired = errors.New("administrator privileges required")
	ErrNothingToApply    = errors.New("no pending changes")
	// ErrNoSource means no registered source handles the entry's type.
	ErrNoSource = errors.New("no source registered for type")
	// ErrUnsupported is returned by native sources on other platforms.
	ErrUnsupported = errors.New("not supported on this platform")
)
