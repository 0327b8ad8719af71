package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const mysqlTimeout = 5 * time.Second

const createKVTable = `CREATE TABLE IF NOT EXISTS taskflow_kv (
    k VARCHAR(191) PRIMARY KEY,
    v LONGTEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

// MySQL stores the collection as one row of a key-value table.
type MySQL struct {
	db  *sql.DB
	key string
}

// ParseDSN validates a MySQL DSN and returns it with parseTime enabled.
func ParseDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// OpenMySQL connects, creates the table if needed and returns the backend.
func OpenMySQL(dsn, key string) (*MySQL, error) {
	normalized, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mysqlTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &MySQL{db: db, key: key}, nil
}

// Load reads the row for the configured key.
func (m *MySQL) Load() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mysqlTimeout)
	defer cancel()

	var v string
	err := m.db.QueryRowContext(ctx, "SELECT v FROM taskflow_kv WHERE k = ?", m.key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", m.key, err)
	}
	return []byte(v), nil
}

// Save upserts the row for the configured key.
func (m *MySQL) Save(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), mysqlTimeout)
	defer cancel()

	_, err := m.db.ExecContext(ctx,
		"INSERT INTO taskflow_kv (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
		m.key, string(data))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", m.key, err)
	}
	return nil
}

// Close closes the connection pool.
func (m *MySQL) Close() error {
	return m.db.Close()
}
