// Package database provides sqlite connection management and transaction utilities.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds database configuration settings.
type Config struct {
	// Path is the sqlite database file path.
	Path string
	// MaxOpenConnections bounds concurrent connections. The store is
	// single-writer; keep this at 1 unless read-only concurrency is needed.
	MaxOpenConnections int
	// BusyTimeout is how long statements wait on a locked database.
	BusyTimeout time.Duration
}

// Connect opens the sqlite database, creating the parent directory if needed.
// Foreign keys are enabled and writes use WAL journaling.
func Connect(cfg Config) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		url.PathEscape(cfg.Path),
		cfg.BusyTimeout.Milliseconds(),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
