package infra

import (
	"os"
	"path/filepath"
)

const (
	AppName = "bitex"
)

// ResolveConfigPath attempts to find the config.yaml.
// Priority: 1. explicit path, 2. ./configs/config.yaml, 3. OS config dir.
// It returns "" when no file exists so the caller runs on defaults.
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

	return ""
}
