package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for startctl.
type Config struct {
	BaseDir        string               `toml:"base_dir"`
	LogDir         string               `toml:"log_dir"`
	Log            LogConfig            `toml:"log"`
	Backup         BackupConfig         `toml:"backup"`
	Encryption     EncryptionConfig     `toml:"encryption"`
	Sources        SourcesConfig        `toml:"sources"`
	StartupFolders StartupFoldersConfig `toml:"startup_folders"`
	ScheduledTasks ScheduledTasksConfig `toml:"scheduled_tasks"`
}

// LogConfig controls the log file written under LogDir.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info" (default), "warn" or "error"
}

// BackupConfig represents configuration for the snapshot store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BackupConfig struct {
	Type string `toml:"type"`          // "filesystem" (default) or "memory"
	Dir  string `toml:"dir,omitempty"` // only used for type=filesystem
}

// EncryptionConfig selects how snapshots are sealed at rest.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// SourcesConfig picks which source families are scanned.
// Valid names are "registry", "startup_folders", "scheduled_tasks" and "services".
// An empty list enables all of them.
type SourcesConfig struct {
	Enabled []string `toml:"enabled"`
}

// StartupFoldersConfig overrides the startup folder locations and filters.
// Empty directories are resolved from the OS.
type StartupFoldersConfig struct {
	UserDir        string   `toml:"user_dir,omitempty"`
	AllUsersDir    string   `toml:"all_users_dir,omitempty"`
	DisabledSuffix string   `toml:"disabled_suffix"`
	Ignore         []string `toml:"ignore"`
}

// ScheduledTasksConfig controls how the task scheduler is queried.
type ScheduledTasksConfig struct {
	Command          string   `toml:"command"`
	ExcludedPrefixes []string `toml:"excluded_prefixes"`
}

// Source family names accepted in SourcesConfig.Enabled.
const (
	SourceRegistry       = "registry"
	SourceStartupFolders = "startup_folders"
	SourceScheduledTasks = "scheduled_tasks"
	SourceServices       = "services"
)

// AllSources lists every source family in scan order.
var AllSources = []string{SourceRegistry, SourceStartupFolders, SourceScheduledTasks, SourceServices}

// NewConfig creates a new Config rooted at baseDir with every default filled in.
func NewConfig(baseDir string) *Config {
	cfg := &Config{BaseDir: baseDir}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every empty field that has a default. Values already set
// are left alone.
func (c *Config) ApplyDefaults() {
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Backup.Type == "" {
		c.Backup.Type = "filesystem"
	}
	if c.Backup.Type == "filesystem" && c.Backup.Dir == "" && c.BaseDir != "" {
		c.Backup.Dir = filepath.Join(c.BaseDir, "backups")
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = "none"
	}
	if c.Encryption.PublicKeyPath == "" && c.BaseDir != "" {
		c.Encryption.PublicKeyPath = filepath.Join(c.BaseDir, "keys", "startctl.pub")
	}
	if c.Encryption.PrivateKeyPath == "" && c.BaseDir != "" {
		c.Encryption.PrivateKeyPath = filepath.Join(c.BaseDir, "keys", "startctl.key")
	}
	if len(c.Sources.Enabled) == 0 {
		c.Sources.Enabled = append([]string{}, AllSources...)
	}
	if c.StartupFolders.DisabledSuffix == "" {
		c.StartupFolders.DisabledSuffix = ".disabled"
	}
	if c.StartupFolders.Ignore == nil {
		c.StartupFolders.Ignore = []string{"desktop.ini", ".*"}
	}
	if c.ScheduledTasks.Command == "" {
		c.ScheduledTasks.Command = "schtasks"
	}
	if c.ScheduledTasks.ExcludedPrefixes == nil {
		c.ScheduledTasks.ExcludedPrefixes = []string{`\Microsoft\`}
	}
}

// SourceEnabled reports whether the named source family should be scanned.
func (c *Config) SourceEnabled(name string) bool {
	for _, s := range c.Sources.Enabled {
		if s == name {
			return true
		}
	}
	return false
}

// Validate rejects values no component can act on.
func (c *Config) Validate() error {
	for _, s := range c.Sources.Enabled {
		known := false
		for _, a := range AllSources {
			known = known || s == a
		}
		if !known {
			return fmt.Errorf("unknown source %q in sources.enabled", s)
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads path when it exists and falls back to NewConfig(baseDir)
// otherwise. Fields the file leaves empty get their defaults, with baseDir
// used when the file sets no base_dir.
func Load(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewConfig(baseDir), nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = baseDir
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
