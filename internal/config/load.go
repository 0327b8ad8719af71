package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Backends accepted by the backend key.
var Backends = []string{"file", "memory", "mysql"}

// LogFormats accepted by the log_format key.
var LogFormats = []string{"text", "json", "logfmt"}

// Load loads configuration from all sources in priority order.
// Flags are registered on fs and parsed from args.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks where each value came from.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	cfg := &Config{}
	setDefaults(cfg)

	sources := make(map[string]ConfigSource, len(configFields()))
	for _, key := range configFields() {
		sources[key] = SourceDefault
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	cfg.WorkDir = wd

	if userCfg := findUserConfigFile(); userCfg != "" {
		if err := loadConfigFile(cfg, userCfg, SourceUserFile, sources); err != nil {
			return nil, err
		}
	}
	if projCfg := findProjectConfigFile(wd); projCfg != "" {
		if err := loadConfigFile(cfg, projCfg, SourceProjFile, sources); err != nil {
			return nil, err
		}
	}

	dotenvKeys, err := loadDotEnv(wd)
	if err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg, sources, dotenvKeys); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := parseFlags(cfg, fs, args, sources); err != nil {
			return nil, err
		}
	}

	if err := finalizeConfig(cfg); err != nil {
		return nil, err
	}

	return &ConfigWithSources{Config: cfg, Sources: sources}, nil
}

// loadConfigFile decodes a TOML file over cfg and records the keys it sets.
func loadConfigFile(cfg *Config, path string, source ConfigSource, sources map[string]ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("parse config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	for _, key := range configFields() {
		if md.IsDefined(key) {
			sources[key] = source
		}
	}
	cfg.Files = append(cfg.Files, path)
	return nil
}

// loadDotEnv reads .env from dir into the process environment without
// overriding variables that are already set. It returns the names it set.
func loadDotEnv(dir string) (map[string]bool, error) {
	path := dir + string(os.PathSeparator) + ".env"
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	set := make(map[string]bool)
	for k, v := range values {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return nil, fmt.Errorf("set %s from .env: %w", k, err)
		}
		set[k] = true
	}
	return set, nil
}

// finalizeConfig resolves paths and validates enumerated values.
func finalizeConfig(cfg *Config) error {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	if !slices.Contains(Backends, cfg.Backend) {
		return fmt.Errorf("invalid backend %q (want one of %s)", cfg.Backend, strings.Join(Backends, ", "))
	}
	if cfg.Backend == "mysql" && strings.TrimSpace(cfg.MySQLDSN) == "" {
		return errors.New("backend mysql requires mysql_dsn")
	}

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if !slices.Contains(LogFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log_format %q (want one of %s)", cfg.LogFormat, strings.Join(LogFormats, ", "))
	}

	if strings.TrimSpace(cfg.StorageKey) == "" {
		cfg.StorageKey = DefaultStorageKey
	}

	cfg.DataFile = resolvePath(cfg.WorkDir, cfg.DataFile)
	cfg.ExportDir = resolvePath(cfg.WorkDir, cfg.ExportDir)
	if cfg.ExportDir == "" {
		cfg.ExportDir = cfg.WorkDir
	}

	cats := cfg.Categories[:0:0]
	for _, c := range cfg.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && !slices.Contains(cats, c) {
			cats = append(cats, c)
		}
	}
	cfg.Categories = cats
	return nil
}

// Value returns the display form of the value stored under key.
func (c *Config) Value(key string) string {
	switch key {
	case "data_file":
		return c.DataFile
	case "backend":
		return c.Backend
	case "mysql_dsn":
		if c.MySQLDSN == "" {
			return ""
		}
		return redactDSN(c.MySQLDSN)
	case "storage_key":
		return c.StorageKey
	case "categories":
		return strings.Join(c.Categories, ",")
	case "export_dir":
		return c.ExportDir
	case "listen_addr":
		return c.ListenAddr
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "log_timestamps":
		return fmt.Sprint(c.LogTimestamps)
	case "log_caller":
		return fmt.Sprint(c.LogCaller)
	}
	return ""
}

// redactDSN hides the password part of user:pass@tcp(...)/db.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	creds := dsn[:at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return creds[:colon] + ":***" + dsn[at:]
	}
	return dsn
}
