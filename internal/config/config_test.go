// Package config tests configuration loading.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
)

// isolate points HOME and the config dirs at fresh temp dirs, clears
// TASKFLOW_* variables and changes into an empty project directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))
	for _, ev := range envVars {
		t.Setenv(envPrefix+ev.name, "")
		os.Unsetenv(envPrefix + ev.name)
	}
	proj := t.TempDir()
	t.Chdir(proj)
	return proj
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.DataFile != DefaultDataFile {
		t.Errorf("DataFile: got %q, want %q", cfg.DataFile, DefaultDataFile)
	}
	if cfg.Backend != "file" {
		t.Errorf("Backend: got %q, want file", cfg.Backend)
	}
	if cfg.StorageKey != "taskflow_tasks" {
		t.Errorf("StorageKey: got %q, want taskflow_tasks", cfg.StorageKey)
	}
	if cfg.ListenAddr != "127.0.0.1:7070" {
		t.Errorf("ListenAddr: got %q", cfg.ListenAddr)
	}
}

func TestLoadDefaults(t *testing.T) {
	proj := isolate(t)

	cws, err := LoadWithSources(nil, nil)
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	cfg := cws.Config
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".taskflow", "tasks.json"); cfg.DataFile != want {
		t.Errorf("DataFile: got %q, want %q", cfg.DataFile, want)
	}
	if cfg.ExportDir != proj {
		t.Errorf("ExportDir: got %q, want %q", cfg.ExportDir, proj)
	}
	for _, key := range Fields() {
		if got := cws.Source(key); got != SourceDefault {
			t.Errorf("Source(%s): got %q, want default", key, got)
		}
	}
	if len(cfg.Files) != 0 {
		t.Errorf("Files: got %v, want none", cfg.Files)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "taskflow.toml")
	writeFile(t, configFile, `data_file = "custom.json"
backend = "memory"
categories = ["errands", "finance"]
log_timestamps = true
`)

	cfg := &Config{}
	setDefaults(cfg)
	sources := map[string]ConfigSource{}
	if err := loadConfigFile(cfg, configFile, SourceProjFile, sources); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}

	if cfg.DataFile != "custom.json" {
		t.Errorf("DataFile: got %q, want custom.json", cfg.DataFile)
	}
	if cfg.Backend != "memory" {
		t.Errorf("Backend: got %q, want memory", cfg.Backend)
	}
	if !slices.Equal(cfg.Categories, []string{"errands", "finance"}) {
		t.Errorf("Categories: got %v", cfg.Categories)
	}
	if !cfg.LogTimestamps {
		t.Error("LogTimestamps: got false, want true")
	}
	if sources["backend"] != SourceProjFile {
		t.Errorf("backend source: got %q", sources["backend"])
	}
	if _, ok := sources["listen_addr"]; ok {
		t.Error("listen_addr should not be attributed to the file")
	}
}

func TestLoadConfigFileUnknownKey(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "taskflow.toml")
	writeFile(t, configFile, "todo_file = \"x.json\"\n")

	cfg := &Config{}
	err := loadConfigFile(cfg, configFile, SourceProjFile, map[string]ConfigSource{})
	if err == nil || !strings.Contains(err.Error(), "todo_file") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	proj := isolate(t)
	home, _ := os.UserHomeDir()
	writeFile(t, filepath.Join(home, ".taskflow", "taskflow.toml"), `backend = "memory"
listen_addr = "127.0.0.1:9000"
log_level = "info"
storage_key = "user_key"
`)
	writeFile(t, filepath.Join(proj, "taskflow.toml"), `listen_addr = "127.0.0.1:9001"
log_level = "debug"
export_dir = "exports"
`)
	t.Setenv("TASKFLOW_LOG_LEVEL", "error")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cws, err := LoadWithSources(fs, []string{"-storage-key", "flag_key", "ls"})
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	cfg := cws.Config

	tests := []struct {
		key    string
		want   string
		source ConfigSource
	}{
		{"backend", "memory", SourceUserFile},
		{"listen_addr", "127.0.0.1:9001", SourceProjFile},
		{"log_level", "error", SourceEnv},
		{"storage_key", "flag_key", SourceFlag},
		{"export_dir", filepath.Join(proj, "exports"), SourceProjFile},
		{"log_format", "text", SourceDefault},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := cfg.Value(tt.key); got != tt.want {
				t.Errorf("value: got %q, want %q", got, tt.want)
			}
			if got := cws.Source(tt.key); got != tt.source {
				t.Errorf("source: got %q, want %q", got, tt.source)
			}
		})
	}
	if got := fs.Args(); !slices.Equal(got, []string{"ls"}) {
		t.Errorf("remaining args: got %v, want [ls]", got)
	}
	if len(cfg.Files) != 2 {
		t.Errorf("Files: got %v, want user and project file", cfg.Files)
	}
}

func TestLoadHiddenProjectFile(t *testing.T) {
	proj := isolate(t)
	writeFile(t, filepath.Join(proj, ".taskflow.toml"), "data_file = \"tasks.json\"\n")

	cfg, err := Load(nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(proj, "tasks.json"); cfg.DataFile != want {
		t.Errorf("DataFile: got %q, want %q", cfg.DataFile, want)
	}
}

func TestLoadDotEnv(t *testing.T) {
	proj := isolate(t)
	writeFile(t, filepath.Join(proj, ".env"), "TASKFLOW_BACKEND=memory\nTASKFLOW_LOG_LEVEL=debug\n")
	t.Setenv("TASKFLOW_LOG_LEVEL", "error")

	cws, err := LoadWithSources(nil, nil)
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	if cws.Config.Backend != "memory" {
		t.Errorf("Backend: got %q, want memory", cws.Config.Backend)
	}
	if cws.Source("backend") != SourceDotEnv {
		t.Errorf("backend source: got %q, want .env", cws.Source("backend"))
	}
	// .env never overrides variables that are already set.
	if cws.Config.LogLevel != "error" {
		t.Errorf("LogLevel: got %q, want error", cws.Config.LogLevel)
	}
	if cws.Source("log_level") != SourceEnv {
		t.Errorf("log_level source: got %q, want environment", cws.Source("log_level"))
	}
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TASKFLOW_DATA", "custom-tasks.json")
	t.Setenv("TASKFLOW_CATEGORIES", "errands, finance,,")
	t.Setenv("TASKFLOW_LOG_CALLER", "yes")
	t.Setenv("TASKFLOW_ADDR", ":8080")

	cfg := &Config{}
	setDefaults(cfg)
	sources := map[string]ConfigSource{}
	if err := loadFromEnv(cfg, sources, nil); err != nil {
		t.Fatalf("loadFromEnv: %v", err)
	}

	if cfg.DataFile != "custom-tasks.json" {
		t.Errorf("DataFile: got %q", cfg.DataFile)
	}
	if !slices.Equal(cfg.Categories, []string{"errands", "finance"}) {
		t.Errorf("Categories: got %v", cfg.Categories)
	}
	if !cfg.LogCaller {
		t.Error("LogCaller: got false, want true")
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr: got %q", cfg.ListenAddr)
	}
	if sources["data_file"] != SourceEnv {
		t.Errorf("data_file source: got %q", sources["data_file"])
	}
}

func TestLoadFromEnvInvalidBool(t *testing.T) {
	isolate(t)
	t.Setenv("TASKFLOW_LOG_TIMESTAMPS", "sometimes")

	cfg := &Config{}
	err := loadFromEnv(cfg, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "TASKFLOW_LOG_TIMESTAMPS") {
		t.Fatalf("expected error naming the variable, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	args := []string{
		"--data", "flag-tasks.json",
		"--backend", "memory",
		"--categories", "errands,finance",
		"--log-caller",
		"add", "buy milk",
	}
	sources := map[string]ConfigSource{}
	if err := parseFlags(cfg, fs, args, sources); err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.DataFile != "flag-tasks.json" {
		t.Errorf("DataFile: got %q, want flag-tasks.json", cfg.DataFile)
	}
	if cfg.Backend != "memory" {
		t.Errorf("Backend: got %q, want memory", cfg.Backend)
	}
	if !slices.Equal(cfg.Categories, []string{"errands", "finance"}) {
		t.Errorf("Categories: got %v", cfg.Categories)
	}
	if !cfg.LogCaller {
		t.Error("LogCaller: got false, want true")
	}
	if sources["categories"] != SourceFlag || sources["log_caller"] != SourceFlag {
		t.Errorf("sources: got %v", sources)
	}
	if _, ok := sources["listen_addr"]; ok {
		t.Error("unset flag should not be tracked")
	}
	if !slices.Equal(fs.Args(), []string{"add", "buy milk"}) {
		t.Errorf("Args: got %v", fs.Args())
	}
}

func TestFinalizeConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"backend case", func(c *Config) { c.Backend = " MEMORY " }, ""},
		{"unknown backend", func(c *Config) { c.Backend = "redis" }, "invalid backend"},
		{"mysql without dsn", func(c *Config) { c.Backend = "mysql" }, "requires mysql_dsn"},
		{"mysql with dsn", func(c *Config) {
			c.Backend = "mysql"
			c.MySQLDSN = "u:p@tcp(localhost)/db"
		}, ""},
		{"unknown format", func(c *Config) { c.LogFormat = "xml" }, "invalid log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{WorkDir: t.TempDir()}
			setDefaults(cfg)
			tt.mutate(cfg)
			err := finalizeConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFinalizeCategories(t *testing.T) {
	cfg := &Config{WorkDir: t.TempDir()}
	setDefaults(cfg)
	cfg.Categories = []string{"Errands", " errands", "", "finance"}
	if err := finalizeConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(cfg.Categories, []string{"errands", "finance"}) {
		t.Errorf("Categories: got %v", cfg.Categories)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"~", home},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}
	if runtime.GOOS != "windows" {
		tests = append(tests, struct {
			input string
			want  string
		}{`~\test`, `~\test`})
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := expandPath(tt.input)
			if got != tt.want {
				t.Errorf("expandPath(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBoolFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"1", true, false},
		{"true", true, false},
		{"TRUE", true, false},
		{"yes", true, false},
		{"on", true, false},
		{"0", false, false},
		{"false", false, false},
		{"no", false, false},
		{"off", false, false},
		{"maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := boolFromString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("boolFromString(%q): err = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("boolFromString(%q): got %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactDSN(t *testing.T) {
	cfg := &Config{MySQLDSN: "root:secret@tcp(127.0.0.1:3306)/taskflow"}
	if got := cfg.Value("mysql_dsn"); got != "root:***@tcp(127.0.0.1:3306)/taskflow" {
		t.Errorf("Value(mysql_dsn): got %q", got)
	}
}

func TestExampleConfigParses(t *testing.T) {
	var cfg Config
	md, err := toml.Decode(ExampleConfig(), &cfg)
	if err != nil {
		t.Fatalf("decode example: %v", err)
	}
	if len(md.Undecoded()) != 0 {
		t.Errorf("example has unknown keys: %v", md.Undecoded())
	}
	if cfg.Backend != "file" || cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("example values: %+v", cfg)
	}
}
