//go:build windows

package folder

import "golang.org/x/sys/windows"

// DefaultDirs asks the shell for the Startup known folders, falling back to
// the environment for any it cannot resolve.
func DefaultDirs() Dirs {
	d := envDirs()
	if p, err := windows.KnownFolderPath(windows.FOLDERID_Startup, 0); err == nil && p != "" {
		d.User = p
	}
	if p, err := windows.KnownFolderPath(windows.FOLDERID_CommonStartup, 0); err == nil && p != "" {
		d.AllUsers = p
	}
	return d
}
