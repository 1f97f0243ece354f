package infra

import (
	"os"
	"path/filepath"
)

const (
	AppName = "fxwallet"
)

// ResolveConfigPath returns the first config.yaml found.
// Priority: 1. explicit path, 2. ./configs, 3. OS config dir.
// When none exists the ./configs path is returned and LoadConfig falls back
// to the defaults.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	defaultPath := filepath.Join("configs", "config.yaml")
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	configRoot, err := os.UserConfigDir()
	if err == nil {
		osPath := filepath.Join(configRoot, AppName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	return defaultPath
}
