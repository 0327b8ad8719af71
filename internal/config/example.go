package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# taskflow configuration file
# Values can be overridden by .env, TASKFLOW_* environment variables or CLI flags

# Task data file for the file backend (supports ~ expansion)
data_file = "~/.taskflow/tasks.json"

# Storage backend: file, memory or mysql
backend = "file"

# MySQL DSN, required by the mysql backend
# mysql_dsn = "user:password@tcp(127.0.0.1:3306)/taskflow"

# Row key used by keyed backends
storage_key = "taskflow_tasks"

# Extra task categories beyond personal, work, studies, health and other
# categories = ["errands", "finance"]

# Directory where export files are written
export_dir = "."

# Listen address for "taskflow serve"
listen_addr = "127.0.0.1:7070"

# Logging: level (debug, info, warn, error), format (text, json, logfmt)
log_level = "warn"
log_format = "text"
log_timestamps = false
log_caller = false
`
}
