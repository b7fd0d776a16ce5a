package startup

import (
	"fmt"
	"strings"
)

// Status is the on-disk state of an autostart entry.
type Status int

const (
	// StatusUnknown is the zero value, used when a source cannot tell.
	StatusUnknown Status = iota
	StatusEnabled
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusEnabled:
		return "Enabled"
	case StatusDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// Toggle returns the opposite status. Unknown toggles to Enabled.
func (s Status) Toggle() Status {
	if s == StatusEnabled {
		return StatusDisabled
	}
	return StatusEnabled
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus accepts the names produced by String, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch {
	case strings.EqualFold(s, "enabled"):
		return StatusEnabled, nil
	case strings.EqualFold(s, "disabled"):
		return StatusDisabled, nil
	case strings.EqualFold(s, "unknown"), s == "":
		return StatusUnknown, nil
	}
	return StatusUnknown, fmt.Errorf("unknown status %q", s)
}
