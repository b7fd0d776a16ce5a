// Package services lists auto-start Windows services and switches them
// between automatic and manual start.
package services

// StartType is a service start type as the service control manager
// reports it.
type StartType uint32

const (
	StartBoot StartType = iota
	StartSystem
	StartAutomatic
	StartDemand
	StartDisabled
)

var startTypeNames = map[StartType]string{
	StartBoot:      "boot",
	StartSystem:    "system",
	StartAutomatic: "automatic",
	StartDemand:    "demand",
	StartDisabled:  "disabled",
}

func (s StartType) String() string {
	if n, ok := startTypeNames[s]; ok {
		return n
	}
	return "unknown"
}

// AutoStarts reports whether services of this type start without a request.
func (s StartType) AutoStarts() bool {
	return s == StartBoot || s == StartSystem || s == StartAutomatic
}

// Config describes one installed service.
type Config struct {
	Name        string
	DisplayName string
	BinaryPath  string
	Description string
	StartType   StartType
}

// Controller reads and changes service configuration. List skips services
// it cannot query.
type Controller interface {
	List() ([]Config, error)
	SetStartType(name string, st StartType) error
}
