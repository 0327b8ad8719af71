// Package storage provides the key-value backends a task store persists
// through: a JSON file on disk, process memory, and a MySQL table.
package storage

import (
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
)

// DefaultKey is the key the collection is stored under.
const DefaultKey = "taskflow_tasks"

// Backend loads and saves one serialized collection.
// Load returns nil data and a nil error when nothing is stored.
type Backend interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string // file, memory or mysql
	Path    string // file backend path
	DSN     string // mysql data source name
	Key     string // row key for keyed backends
}

// Open returns the backend named by opts.Backend. An empty name selects the
// file backend.
func Open(opts Options) (Backend, error) {
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file backend requires a data file path")
		}
		return NewFile(opts.Path), nil
	case BackendMemory:
		return NewMemory(nil), nil
	case BackendMySQL:
		if opts.DSN == "" {
			return nil, fmt.Errorf("mysql backend requires a DSN")
		}
		return OpenMySQL(opts.DSN, key)
	default:
		return nil, fmt.Errorf("unknown backend %q, must be one of: file, memory, mysql", opts.Backend)
	}
}
