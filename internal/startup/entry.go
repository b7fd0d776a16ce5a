package startup

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

// Entry is one autostart registration, normalized across sources.
// ID, ExecutablePath, FileExists and RequiresAdmin are derived in NewEntry
// and never recomputed.
type Entry struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	SourceType     SourceType `json:"source_type"`
	SourceLocation string     `json:"source_location"`
	Status         Status     `json:"status"`
	Command        string     `json:"command"`
	ExecutablePath string     `json:"executable_path,omitempty"`
	FileExists     bool       `json:"file_exists"`
	RequiresAdmin  bool       `json:"requires_admin"`
	Publisher      string     `json:"publisher,omitempty"`
	Description    string     `json:"description,omitempty"`
}

// NewEntry builds an Entry and fills in its derived fields.
func NewEntry(name string, source SourceType, location, command string, status Status) *Entry {
	exe := ExecutablePath(command)
	return &Entry{
		ID:             EntryID(source, name, command),
		Name:           name,
		SourceType:     source,
		SourceLocation: location,
		Status:         status,
		Command:        command,
		ExecutablePath: exe,
		FileExists:     exe != "" && fileExists(exe),
		RequiresAdmin:  source.RequiresAdmin(),
	}
}

// EntryID is a pure function of source type, name and command, so an entry
// keeps its id when its status changes.
func EntryID(source SourceType, name, command string) string {
	sum := sha256.Sum256([]byte(source.Key() + ":" + name + ":" + command))
	return hex.EncodeToString(sum[:8])
}

// Clone returns a copy that can be mutated independently.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

const displayCommandWidth = 60

// DisplayCommand returns the command shortened for one-line listings.
func (e *Entry) DisplayCommand() string {
	r := []rune(e.Command)
	if len(r) <= displayCommandWidth {
		return e.Command
	}
	return string(r[:displayCommandWidth-3]) + "..."
}

// DisplayPath prefers the resolved executable over the raw command.
func (e *Entry) DisplayPath() string {
	if e.ExecutablePath != "" {
		return e.ExecutablePath
	}
	return e.Command
}

// ExecutablePath extracts the program a command line launches.
// A quoted command yields the text between the first pair of quotes. An
// unquoted one yields the shortest space-separated prefix that names an
// existing file, or the first token when none does. Known %VAR% placeholders
// are expanded in both cases.
func ExecutablePath(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}

	if strings.HasPrefix(command, `"`) {
		if end := strings.IndexByte(command[1:], '"'); end >= 0 {
			return normalizeImagePath(ExpandPlaceholders(command[1 : end+1]))
		}
		command = strings.TrimPrefix(command, `"`)
	}

	tokens := strings.Fields(command)
	if len(tokens) == 0 {
		return ""
	}
	first := normalizeImagePath(ExpandPlaceholders(tokens[0]))
	if fileExists(first) {
		return first
	}
	for i := 2; i <= len(tokens); i++ {
		candidate := normalizeImagePath(ExpandPlaceholders(strings.Join(tokens[:i], " ")))
		if fileExists(candidate) {
			return candidate
		}
	}
	return first
}

type placeholder struct {
	name     string
	fallback string
}

var placeholders = []placeholder{
	{"SystemRoot", `C:\Windows`},
	{"windir", `C:\Windows`},
	{"SystemDrive", `C:`},
	{"ProgramFiles", `C:\Program Files`},
	{"ProgramFiles(x86)", `C:\Program Files (x86)`},
	{"ProgramData", `C:\ProgramData`},
	{"USERPROFILE", ""},
	{"APPDATA", ""},
	{"LOCALAPPDATA", ""},
}

// ExpandPlaceholders replaces recognized %VAR% references, matched
// case-insensitively, with the environment value or a Windows default.
// Unknown or unresolvable references are left as written.
func ExpandPlaceholders(s string) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			break
		}
		end += start + 1

		if v, ok := resolvePlaceholder(s[start+1 : end]); ok {
			b.WriteString(s[:start])
			b.WriteString(v)
			s = s[end+1:]
			continue
		}
		// The closing % may open the next reference.
		b.WriteString(s[:end])
		s = s[end:]
	}
	b.WriteString(s)
	return b.String()
}

func resolvePlaceholder(name string) (string, bool) {
	for _, p := range placeholders {
		if !strings.EqualFold(name, p.name) {
			continue
		}
		if v := os.Getenv(p.name); v != "" {
			return v, true
		}
		if p.fallback != "" {
			return p.fallback, true
		}
		return "", false
	}
	return "", false
}

// normalizeImagePath rewrites the NT-style prefixes found in service image paths.
func normalizeImagePath(p string) string {
	p = strings.TrimPrefix(p, `\??\`)
	if len(p) >= len(`\SystemRoot\`) && strings.EqualFold(p[:len(`\SystemRoot\`)], `\SystemRoot\`) {
		root, _ := resolvePlaceholder("SystemRoot")
		p = root + `\` + p[len(`\SystemRoot\`):]
	}
	return p
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
