// Package taskdir provides constants and helpers for the .taskflow state
// directory and the files taskflow writes.
package taskdir

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// Dir is the name of the taskflow state directory (inside the home directory).
	Dir = ".taskflow"

	// DefaultDataFile is the default task data file name (inside Dir).
	DefaultDataFile = "tasks.json"

	// DefaultConfigFile is the default config file name (inside Dir).
	DefaultConfigFile = "taskflow.toml"

	// BackupPrefix starts every export file name.
	BackupPrefix = "taskflow_backup_"
)

// DirPath returns the full path to the .taskflow directory under home.
// An empty home resolves to the current user's home directory.
func DirPath(home string) string {
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}
	if home == "" {
		return Dir
	}
	return filepath.Join(home, Dir)
}

// ConfigPath returns the user config file path under home.
func ConfigPath(home string) string {
	return filepath.Join(DirPath(home), DefaultConfigFile)
}

// ExportName returns the export file name for day with the given extension
// ("json", "csv" or "pdf"), e.g. taskflow_backup_2024-05-01.json.
func ExportName(day time.Time, ext string) string {
	return BackupPrefix + day.Format("2006-01-02") + "." + ext
}

// ExportPath joins dir and ExportName.
func ExportPath(dir string, day time.Time, ext string) string {
	return filepath.Join(dir, ExportName(day, ext))
}
