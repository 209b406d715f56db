package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Count returns the number of records in the named collection.
func (s *Store) Count(ctx context.Context, name string) (int64, error) {
	c, ok := lookupCollection(name)
	if !ok {
		return 0, &OpError{Op: "count", Collection: name, Kind: ErrUnknownCollection, Err: fmt.Errorf("%q is not declared", name)}
	}
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.Table).Scan(&n)
	})
	if err != nil {
		return 0, opError("count", c.Name, ErrReadFailed, err)
	}
	return n, nil
}

// Stats returns a record count per collection.
func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, len(collections))
	for _, c := range collections {
		n, err := s.Count(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		stats[c.Name] = n
	}
	return stats, nil
}

// CheckHealth returns diagnostic information about the reader database. It
// reads through its own read-only handle and never creates, opens, or
// upgrades the store, so an outdated file is reported as it is on disk.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	ctx = ensureContext(ctx)
	health := Health{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("store database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat store database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("store database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	db, err := s.openReadOnly(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("open store database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping store database: %w", err)
	}
	health.DatabaseReadable = true

	state, err := readSchemaState(connCtx, db)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.SchemaVersion = state.version
	health.Counts = make(map[string]int64, len(collections))
	for _, c := range collections {
		if _, ok := state.tables[c.Table]; !ok {
			health.MissingCollections = append(health.MissingCollections, c.Name)
			continue
		}
		for _, idx := range c.Indexes {
			if _, ok := state.indexes[idx.Name]; !ok {
				health.MissingIndexes = append(health.MissingIndexes, idx.Name)
			}
		}
		var n int64
		if err := db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM "+c.Table).Scan(&n); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count %s: %w", c.Name, err)
		}
		health.Counts[c.Name] = n
	}

	var integrityResult string
	if err := db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

// openReadOnly opens the database file with mode=ro, bypassing Open and the
// schema upgrade.
func (s *Store) openReadOnly(ctx context.Context) (*sql.DB, error) {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return nil, err
	}
	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds())); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Healthy reports whether the database exists, is readable, carries every
// collection, and passed the integrity check.
func (h Health) Healthy() bool {
	return h.DatabaseExists && h.DatabaseReadable && h.IntegrityCheck &&
		len(h.MissingCollections) == 0 && len(h.MissingIndexes) == 0 && h.Error == ""
}
