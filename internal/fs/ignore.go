// Package fs holds filename helpers shared by file-backed sources.
package fs

import (
	"path/filepath"
	"strings"
)

// IgnoreMatcher checks file names against glob patterns. Matching is
// case-insensitive, as on Windows filesystems, and looks at the base name only.
type IgnoreMatcher struct {
	patterns []string
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []string
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, strings.ToLower(raw))
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the file at path should be ignored.
func (m *IgnoreMatcher) Match(path string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	base := strings.ToLower(filepath.Base(path))
	for _, p := range m.patterns {
		matched, err := filepath.Match(p, base)
		if err != nil {
			// Bad pattern, skip rather than crash.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// HasSuffixFold reports whether name ends with suffix, ignoring case.
func HasSuffixFold(name, suffix string) bool {
	return len(name) >= len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix)
}

// TrimSuffixFold removes suffix from name, ignoring case, if present.
func TrimSuffixFold(name, suffix string) string {
	if HasSuffixFold(name, suffix) {
		return name[:len(name)-len(suffix)]
	}
	return name
}

// Stem returns name without its last extension.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
