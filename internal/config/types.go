// Package config handles configuration loading and defaults.
package config

import "github.com/nibzard/taskflow/internal/taskdir"

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceDotEnv   ConfigSource = ".env"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
}

// Source returns where the value for key came from.
func (cws *ConfigWithSources) Source(key string) ConfigSource {
	if cws == nil || cws.Sources == nil {
		return SourceDefault
	}
	if src, ok := cws.Sources[key]; ok {
		return src
	}
	return SourceDefault
}

// Default values.
const (
	DefaultBackend    = "file"
	DefaultStorageKey = "taskflow_tasks"
	DefaultExportDir  = "."
	DefaultListenAddr = "127.0.0.1:7070"
	DefaultLogLevel   = "warn"
	DefaultLogFormat  = "text"
)

// DefaultDataFile is the data file used by the file backend.
var DefaultDataFile = "~/" + taskdir.Dir + "/" + taskdir.DefaultDataFile

// Config holds the full configuration for taskflow.
type Config struct {
	// Storage
	DataFile   string `toml:"data_file"`
	Backend    string `toml:"backend"`     // file, memory or mysql
	MySQLDSN   string `toml:"mysql_dsn"`   // used by the mysql backend
	StorageKey string `toml:"storage_key"` // row key for keyed backends

	// Extra task categories beyond the built-in ones
	Categories []string `toml:"categories"`

	// Export
	ExportDir string `toml:"export_dir"`

	// HTTP adapter
	ListenAddr string `toml:"listen_addr"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Working directory (computed)
	WorkDir string `toml:"-"`

	// Config files that were read, lowest priority first (computed)
	Files []string `toml:"-"`
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"data_file",
		"backend",
		"mysql_dsn",
		"storage_key",
		"categories",
		"export_dir",
		"listen_addr",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// Fields returns the configurable field names in display order.
func Fields() []string {
	return configFields()
}

func setDefaults(cfg *Config) {
	cfg.DataFile = DefaultDataFile
	cfg.Backend = DefaultBackend
	cfg.StorageKey = DefaultStorageKey
	cfg.ExportDir = DefaultExportDir
	cfg.ListenAddr = DefaultListenAddr
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}
