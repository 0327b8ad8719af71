package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/nibzard/taskflow/internal/taskdir"
)

// projectConfigNames are checked in order in the working directory.
var projectConfigNames = []string{"taskflow.toml", ".taskflow.toml"}

// findProjectConfigFile looks for a config file in dir.
func findProjectConfigFile(dir string) string {
	for _, name := range projectConfigNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// findUserConfigFile looks for a user-level config file.
// Checks ~/.taskflow/taskflow.toml first, then falls back to the OS-specific
// config directory.
func findUserConfigFile() string {
	home, err := os.UserHomeDir()
	if err == nil {
		p := taskdir.ConfigPath(home)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if cfgDir := osUserConfigDir(); cfgDir != "" {
		p := filepath.Join(cfgDir, "taskflow", taskdir.DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// osUserConfigDir returns the OS-specific user config directory.
// Returns empty string if the directory cannot be determined.
func osUserConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return os.Getenv("APPDATA")
	case "darwin":
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, ".config")
		}
	}
	return ""
}
