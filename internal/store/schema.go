package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"hanzireader/internal/logging"
)

// SchemaVersion is the current schema version recorded in PRAGMA user_version.
// Version 1 carried reading progress and saved words; version 2 added the
// dictionary and audio caches.
const SchemaVersion = 2

// Collection names accepted by Sweep, Count, and the CLI.
const (
	ReadingProgressCollection = "readingProgress"
	SavedWordsCollection      = "savedWords"
	DictionaryCacheCollection = "dictionaryCache"
	AudioCacheCollection      = "audioCache"
)

// Index is a secondary index over one or more columns of a collection.
type Index struct {
	Name    string
	Columns []string
}

// Collection declares a table the store maintains. Upgrades create missing
// collections from these declarations; existing ones are never altered.
type Collection struct {
	Name       string
	Table      string
	PrimaryKey string
	Columns    []string
	Indexes    []Index
	// ExpiryColumn names the time column the sweeper ranges over. Empty
	// means records in the collection never expire.
	ExpiryColumn string
	// Since is the schema version that introduced the collection.
	Since int
}

var collections = []Collection{
	{
		Name:       ReadingProgressCollection,
		Table:      "reading_progress",
		PrimaryKey: "book_id",
		Columns: []string{
			"book_id TEXT NOT NULL PRIMARY KEY",
			"scroll_position REAL NOT NULL DEFAULT 0",
			"progress_percentage REAL NOT NULL DEFAULT 0",
			"last_read INTEGER NOT NULL",
		},
		Indexes: []Index{{Name: "idx_reading_progress_last_read", Columns: []string{"last_read"}}},
		Since:   1,
	},
	{
		Name:       SavedWordsCollection,
		Table:      "saved_words",
		PrimaryKey: "id",
		Columns: []string{
			"id TEXT NOT NULL PRIMARY KEY",
			"word TEXT NOT NULL",
			"pinyin TEXT NOT NULL DEFAULT ''",
			"translation TEXT",
			"date_added INTEGER NOT NULL",
			"last_reviewed INTEGER",
			"book_context TEXT",
		},
		Indexes: []Index{
			{Name: "idx_saved_words_word", Columns: []string{"word"}},
			{Name: "idx_saved_words_date_added", Columns: []string{"date_added"}},
		},
		Since: 1,
	},
	{
		Name:         AudioCacheCollection,
		Table:        "audio_cache",
		PrimaryKey:   "word",
		Columns:      []string{"word TEXT NOT NULL PRIMARY KEY", "audio_data BLOB NOT NULL", "date_added INTEGER NOT NULL"},
		Indexes:      []Index{{Name: "idx_audio_cache_date_added", Columns: []string{"date_added"}}},
		ExpiryColumn: "date_added",
		Since:        2,
	},
	{
		Name:         DictionaryCacheCollection,
		Table:        "dictionary_cache",
		PrimaryKey:   "word",
		Columns:      []string{"word TEXT NOT NULL PRIMARY KEY", "data TEXT NOT NULL", "date_added INTEGER NOT NULL"},
		Indexes:      []Index{{Name: "idx_dictionary_cache_date_added", Columns: []string{"date_added"}}},
		ExpiryColumn: "date_added",
		Since:        2,
	},
}

// Collections returns the declared collections in creation order.
func Collections() []Collection {
	out := make([]Collection, len(collections))
	copy(out, collections)
	return out
}

func lookupCollection(name string) (Collection, bool) {
	for _, c := range collections {
		if c.Name == name || c.Table == name {
			return c, true
		}
	}
	return Collection{}, false
}

func (c Collection) createTableSQL() string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", c.Table, strings.Join(c.Columns, ", "))
}

func (idx Index) createSQL(table string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.Name, table, strings.Join(idx.Columns, ", "))
}

// schemaState is what the database currently holds.
type schemaState struct {
	version int
	tables  map[string]struct{}
	indexes map[string]struct{}
}

func (s schemaState) complete(target int, declared []Collection) bool {
	if s.version < target {
		return false
	}
	for _, c := range declared {
		if _, ok := s.tables[c.Table]; !ok {
			return false
		}
		for _, idx := range c.Indexes {
			if _, ok := s.indexes[idx.Name]; !ok {
				return false
			}
		}
	}
	return true
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readSchemaState(ctx context.Context, q queryer) (schemaState, error) {
	state := schemaState{
		tables:  make(map[string]struct{}),
		indexes: make(map[string]struct{}),
	}
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&state.version); err != nil {
		return state, fmt.Errorf("read user_version: %w", err)
	}
	rows, err := q.QueryContext(ctx, "SELECT type, name FROM sqlite_master WHERE type IN ('table', 'index')")
	if err != nil {
		return state, fmt.Errorf("list schema objects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			return state, fmt.Errorf("scan schema object: %w", err)
		}
		if kind == "table" {
			state.tables[name] = struct{}{}
		} else {
			state.indexes[name] = struct{}{}
		}
	}
	return state, rows.Err()
}

// upgradeSchema brings the database to target by creating every declared
// collection and index that is missing. It never drops or alters existing
// objects, so a store that already holds some collections keeps their data.
// The returned bool reports whether any upgrade work ran.
func (s *Store) upgradeSchema(ctx context.Context, db *sql.DB, target int, declared []Collection) (bool, error) {
	state, err := readSchemaState(ctx, db)
	if err != nil {
		return false, err
	}
	if state.complete(target, declared) {
		return false, nil
	}
	if state.version > target {
		target = state.version
	}

	// Other processes sharing the file wait here instead of racing the DDL.
	lock := flock.New(s.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, s.busyTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 25*time.Millisecond)
	if err != nil {
		return false, fmt.Errorf("acquire upgrade lock: %w", err)
	}
	if !locked {
		return false, fmt.Errorf("acquire upgrade lock: %s is held by another process", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upgrade tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	state, err = readSchemaState(ctx, tx)
	if err != nil {
		return false, err
	}
	created := 0
	for _, c := range declared {
		if _, ok := state.tables[c.Table]; !ok {
			if _, err := tx.ExecContext(ctx, c.createTableSQL()); err != nil {
				return false, fmt.Errorf("create collection %s: %w", c.Name, err)
			}
			created++
		}
		for _, idx := range c.Indexes {
			if _, ok := state.indexes[idx.Name]; ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, idx.createSQL(c.Table)); err != nil {
				return false, fmt.Errorf("create index %s: %w", idx.Name, err)
			}
		}
	}
	if state.version < target {
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
			return false, fmt.Errorf("set user_version: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit upgrade: %w", err)
	}

	s.logger.Info("store schema upgraded",
		logging.Int("from_version", state.version),
		logging.Int("to_version", target),
		logging.Int("collections_created", created),
		logging.EventType("store_upgrade"),
	)
	return true, nil
}
