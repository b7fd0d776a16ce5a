//go:build !windows

package folder

// DefaultDirs derives the Startup folders from the environment.
func DefaultDirs() Dirs { return envDirs() }
