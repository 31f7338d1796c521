// Package storage provides functionality for persisting and retrieving
// mindmaps, their history log and local users.
// This file handles the general SQL database interfaces and schemas.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
)

// DBDriver represents the type of database driver
type DBDriver string

const (
	SQLite DBDriver = "sqlite"
)

// Database interface defines common database operations
type Database interface {
	Open(dataSourceName string) error
	Close() error
	DB() *sql.DB
	InitSchema(ctx context.Context) error
}

// NewDatabase creates a new Database instance based on the specified driver
func NewDatabase(driver DBDriver, logger *log.Logger) (Database, error) {
	switch driver {
	case SQLite:
		return &SQLiteDatabase{BaseDatabase: BaseDatabase{logger: logger}}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func validateDBDriver(name string) (DBDriver, error) {
	switch DBDriver(name) {
	case SQLite, "":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", name)
	}
}

// BaseDatabase provides a base implementation of some Database methods
type BaseDatabase struct {
	db     *sql.DB
	logger *log.Logger
}

func (b *BaseDatabase) DB() *sql.DB {
	return b.db
}

// schema is shared by all SQL drivers. Times are unix nanoseconds.
// mindmaps.document holds the full aggregate as JSON; the other columns are
// copies used for filtering.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash BLOB,
		active INTEGER NOT NULL DEFAULT 1,
		created INTEGER NOT NULL,
		updated INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS mindmaps (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		is_public INTEGER NOT NULL DEFAULT 0,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		is_template INTEGER NOT NULL DEFAULT 0,
		document TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mindmaps_owner ON mindmaps (owner_id, status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS mindmap_history (
		id TEXT PRIMARY KEY,
		mindmap_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		changes TEXT NOT NULL,
		state TEXT NOT NULL,
		seq INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_cursor ON mindmap_history (mindmap_id, actor_id, state, seq)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_history_seq ON mindmap_history (seq)`,
}

// InitSchema creates missing tables and indexes.
func (b *BaseDatabase) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			b.logger.Error(ctx, "Failed to initialize schema", log.Fields{"error": err})
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	b.logger.Debug(ctx, "Database schema initialized", nil)
	return nil
}
