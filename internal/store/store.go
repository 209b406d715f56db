package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"hanzireader/internal/config"
	"hanzireader/internal/logging"
)

const defaultBusyTimeout = 5 * time.Second

// Store manages the reader database backed by SQLite.
type Store struct {
	path        string
	busyTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu     sync.Mutex
	db     *sql.DB
	closed bool
	// upgrades counts Open calls that had to create schema objects.
	upgrades int
}

// Option customises a Store.
type Option func(*Store)

// WithLogger routes store diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "store")
		}
	}
}

// WithClock overrides the clock used to stamp records and compute sweep cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database before a
// transaction fails.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// New describes a store at path. Nothing touches the disk until Open.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		busyTimeout: defaultBusyTimeout,
		logger:      logging.NewComponentLogger(nil, "store"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenFromConfig creates and opens the store described by cfg.
func OpenFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("store: config is nil")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, &OpError{Op: "open", Kind: ErrStoreUnavailable, Err: fmt.Errorf("ensure directories: %w", err)}
	}
	s := New(cfg.StorePath(), WithLogger(logger), WithBusyTimeout(cfg.BusyTimeout()))
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Open establishes the database handle, creating the file and upgrading the
// schema when needed. Concurrent and repeated calls share one handle and run
// the upgrade at most once. A failed Open leaves the store closed-but-retryable;
// after Close the store cannot be reopened.
func (s *Store) Open(ctx context.Context) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &OpError{Op: "open", Kind: ErrStoreUnavailable, Err: ErrStoreClosed}
	}
	if s.db != nil {
		return nil
	}
	db, err := s.openDB(ctx)
	if err != nil {
		s.logger.Error("store open failed",
			logging.String("path", s.path),
			logging.Error(err),
			logging.EventType("store_open_failed"),
			logging.Hint("check the data_dir permissions and free disk space"),
		)
		return &OpError{Op: "open", Kind: ErrStoreUnavailable, Err: err}
	}
	s.db = db
	s.logger.Debug("store opened", logging.String("path", s.path))
	return nil
}

func (s *Store) openDB(ctx context.Context) (*sql.DB, error) {
	if s.path == "" {
		return nil, errors.New("database path is empty")
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serialises every transaction in this process and keeps
	// the per-connection pragmas below in force.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	upgraded, err := s.upgradeSchema(ctx, db, SchemaVersion, collections)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if upgraded {
		s.upgrades++
	}
	return db, nil
}

// Close releases the database handle. Operations issued afterwards fail.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// handle returns the open database, opening it on first use.
func (s *Store) handle(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	db, closed := s.db, s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStoreClosed
	}
	if db != nil {
		return db, nil
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	return s.db, nil
}

// withTx runs fn inside a single transaction. fn's error aborts the
// transaction and nothing is applied.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
