package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nibzard/taskflow/internal/utils"
)

// envPrefix is prepended to every environment variable name.
const envPrefix = "TASKFLOW_"

// envVar binds an environment variable to a config key.
type envVar struct {
	name string
	key  string
	set  func(cfg *Config, v string) error
}

func stringVar(dst func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*dst(cfg) = v
		return nil
	}
}

func boolVar(dst func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		b, err := boolFromString(v)
		if err != nil {
			return err
		}
		*dst(cfg) = b
		return nil
	}
}

// envVars lists the recognized variables. Later entries win when two map to
// the same key.
var envVars = []envVar{
	{"DATA_FILE", "data_file", stringVar(func(c *Config) *string { return &c.DataFile })},
	{"DATA", "data_file", stringVar(func(c *Config) *string { return &c.DataFile })},
	{"BACKEND", "backend", stringVar(func(c *Config) *string { return &c.Backend })},
	{"MYSQL_DSN", "mysql_dsn", stringVar(func(c *Config) *string { return &c.MySQLDSN })},
	{"STORAGE_KEY", "storage_key", stringVar(func(c *Config) *string { return &c.StorageKey })},
	{"CATEGORIES", "categories", func(c *Config, v string) error {
		c.Categories = utils.SplitAndTrim(v, ",")
		return nil
	}},
	{"EXPORT_DIR", "export_dir", stringVar(func(c *Config) *string { return &c.ExportDir })},
	{"LISTEN_ADDR", "listen_addr", stringVar(func(c *Config) *string { return &c.ListenAddr })},
	{"ADDR", "listen_addr", stringVar(func(c *Config) *string { return &c.ListenAddr })},
	{"LOG_LEVEL", "log_level", stringVar(func(c *Config) *string { return &c.LogLevel })},
	{"LOG_FORMAT", "log_format", stringVar(func(c *Config) *string { return &c.LogFormat })},
	{"LOG_TIMESTAMPS", "log_timestamps", boolVar(func(c *Config) *bool { return &c.LogTimestamps })},
	{"LOG_CALLER", "log_caller", boolVar(func(c *Config) *bool { return &c.LogCaller })},
}

// loadFromEnv overrides config from TASKFLOW_* environment variables.
// Variables named in fromDotEnv are attributed to the .env file.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource, fromDotEnv map[string]bool) error {
	for _, ev := range envVars {
		name := envPrefix + ev.name
		v, ok := os.LookupEnv(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := ev.set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if sources != nil {
			if fromDotEnv[name] {
				sources[ev.key] = SourceDotEnv
			} else {
				sources[ev.key] = SourceEnv
			}
		}
	}
	return nil
}

func boolFromString(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", v)
	}
	return b, nil
}
