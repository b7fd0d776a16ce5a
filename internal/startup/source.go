package startup

// Source scans and mutates one family of autostart surfaces.
// Scan skips records it cannot interpret and returns an empty result when the
// underlying store is unreadable. Enable and Disable move an entry between its
// enabled and disabled on-disk forms.
type Source interface {
	Scan() ([]*Entry, error)
	Enable(e *Entry) error
	Disable(e *Entry) error
	// SourceTypes lists the types this source produces and accepts.
	SourceTypes() []SourceType
}

// Elevation reports whether the current process can change admin-only entries.
type Elevation interface {
	IsElevated() bool
}

// StaticElevation is an Elevation with a fixed answer.
type StaticElevation bool

func (s StaticElevation) IsElevated() bool { return bool(s) }
