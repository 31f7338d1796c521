package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when an insert hits a unique key.
var ErrAlreadyExists = errors.New("already exists")

// queryer is the subset of *sql.DB and *sql.Tx used by the stores.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx groups every store bound to one database transaction.
type Tx interface {
	MindmapStore
	HistoryStore
	UserStore
}

type txStores struct {
	*MindmapStorage
	*HistoryStorage
	*UserStorage
}

func newTxStores(q queryer, logger *log.Logger) *txStores {
	return &txStores{
		MindmapStorage: &MindmapStorage{q: q, logger: logger},
		HistoryStorage: &HistoryStorage{q: q, logger: logger},
		UserStorage:    &UserStorage{q: q, logger: logger},
	}
}

// Storage represents the main storage implementation. The embedded stores
// run outside any transaction and are meant for reads and single-statement
// writes; multi-step units go through Atomic.
type Storage struct {
	db     Database
	logger *log.Logger
	MindmapStore
	HistoryStore
	UserStore
}

// Retry policy for SQLITE_BUSY on commit or begin.
var (
	txAttempts = 3
	txBackoff  = 100 * time.Millisecond
)

// NewStorage creates a new Storage instance and initializes the database.
func NewStorage(config *model.Config, logger *log.Logger) (*Storage, error) {
	dbDriver, err := validateDBDriver(config.DatabaseType)
	if err != nil {
		return nil, fmt.Errorf("invalid database driver '%s': %w", config.DatabaseType, err)
	}

	db, err := NewDatabase(dbDriver, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database instance: %w", err)
	}

	dataSourceName := filepath.Join(config.DatabaseDir, config.DatabaseFile)
	if err := db.Open(dataSourceName); err != nil {
		return nil, fmt.Errorf("failed to open database connection '%s': %w", dataSourceName, err)
	}

	if err := db.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	stores := newTxStores(db.DB(), logger)
	return &Storage{
		db:           db,
		logger:       logger,
		MindmapStore: stores.MindmapStorage,
		HistoryStore: stores.HistoryStorage,
		UserStore:    stores.UserStorage,
	}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// Atomic runs fn inside one write transaction. Every write fn performs
// commits together or not at all. fn may run more than once when the
// database is busy, so it must not have side effects outside tx.
func (s *Storage) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = s.atomicOnce(ctx, fn)
		if err == nil || !isBusy(err) {
			return err
		}
		s.logger.Warn(ctx, "Database busy, retrying transaction", log.Fields{"attempt": attempt, "error": err})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * txBackoff):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", txAttempts, err)
}

func (s *Storage) atomicOnce(ctx context.Context, fn func(tx Tx) error) (err error) {
	sqlTx, err := s.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error(ctx, "Failed to roll back transaction", log.Fields{"error": rbErr})
			}
		}
	}()

	if err = fn(newTxStores(sqlTx, s.logger)); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
