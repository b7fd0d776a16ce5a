package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads optional .env files from the working directory and the
// startctl config directory. Variables already set are not overridden.
func LoadEnv() {
	envFiles := []string{".env"}
	if configDir, err := os.UserConfigDir(); err == nil {
		envFiles = append(envFiles, filepath.Join(configDir, "startctl", ".env"))
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f) // optional
	}
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - STARTCTL_CONFIG_PATH: config file location (default: <user config dir>/startctl/startctl.toml)
//   - STARTCTL_HOME: base directory for logs, backups and keys (default: <user cache dir>/startctl)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("STARTCTL_CONFIG_PATH"); path != "" {
		return path, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(configDir, "startctl", "startctl.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("STARTCTL_HOME"); path != "" {
		return path, nil
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine cache directory: %w", err)
	}
	return filepath.Join(cacheDir, "startctl"), nil
}
