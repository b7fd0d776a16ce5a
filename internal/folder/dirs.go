package folder

import (
	"os"
	"path/filepath"
)

const startupSubpath = `Microsoft\Windows\Start Menu\Programs\Startup`

// ResolveDirs fills empty fields of configured from the platform defaults.
func ResolveDirs(configured Dirs) Dirs {
	def := DefaultDirs()
	if configured.User == "" {
		configured.User = def.User
	}
	if configured.AllUsers == "" {
		configured.AllUsers = def.AllUsers
	}
	return configured
}

// envDirs derives the Startup folders from %APPDATA% and %ProgramData%.
func envDirs() Dirs {
	var d Dirs
	if v := os.Getenv("APPDATA"); v != "" {
		d.User = filepath.Join(v, startupSubpath)
	}
	if v := os.Getenv("ProgramData"); v != "" {
		d.AllUsers = filepath.Join(v, startupSubpath)
	}
	return d
}
