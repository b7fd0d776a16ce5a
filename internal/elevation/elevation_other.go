//go:build !windows

package elevation

import "os"

func isElevated() bool {
	return os.Geteuid() == 0
}
