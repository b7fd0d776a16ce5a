// Package elevation reports whether the current process runs with
// administrator rights.
package elevation

import "startctl/internal/startup"

// Token checks the current process token on every call.
type Token struct{}

var _ startup.Elevation = Token{}

func (Token) IsElevated() bool { return isElevated() }
