package config

import (
	"flag"

	"github.com/nibzard/taskflow/internal/utils"
)

// flagKeys maps flag names to the config keys they set.
var flagKeys = map[string]string{
	"data":           "data_file",
	"backend":        "backend",
	"mysql-dsn":      "mysql_dsn",
	"storage-key":    "storage_key",
	"categories":     "categories",
	"export-dir":     "export_dir",
	"addr":           "listen_addr",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"log-timestamps": "log_timestamps",
	"log-caller":     "log_caller",
}

// parseFlags registers the global flags on fs, parses args and records which
// keys were set explicitly.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	fs.StringVar(&cfg.DataFile, "data", cfg.DataFile, "Path to the task data file")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Storage backend: file, memory or mysql")
	fs.StringVar(&cfg.MySQLDSN, "mysql-dsn", cfg.MySQLDSN, "MySQL DSN for the mysql backend")
	fs.StringVar(&cfg.StorageKey, "storage-key", cfg.StorageKey, "Storage key for keyed backends")
	categories := fs.String("categories", "", "Extra task categories (comma-separated)")
	fs.StringVar(&cfg.ExportDir, "export-dir", cfg.ExportDir, "Directory for export files")
	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Listen address for serve")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text, json or logfmt")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Include timestamps in log output")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Include caller location in log output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if key == "categories" {
			cfg.Categories = utils.SplitAndTrim(*categories, ",")
		}
		if sources != nil {
			sources[key] = SourceFlag
		}
	})
	return nil
}
