package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// accessor maps one record type onto one collection. put and get are the
// only ways records enter or leave a collection; each runs in its own
// transaction.
type accessor[R any] struct {
	collection Collection
	columns    []string
	key        func(R) string
	// prepare validates the record, stamps defaults, and returns column
	// values in the order of columns.
	prepare func(s *Store, record R) ([]any, error)
	scan    func(row scanner) (R, error)
}

func (a accessor[R]) selectColumns() string {
	return strings.Join(a.columns, ", ")
}

func (a accessor[R]) upsertSQL() string {
	updates := make([]string, 0, len(a.columns))
	for _, col := range a.columns {
		if col == a.collection.PrimaryKey {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		a.collection.Table,
		a.selectColumns(),
		makePlaceholders(len(a.columns)),
		a.collection.PrimaryKey,
		strings.Join(updates, ", "),
	)
}

// put inserts record or fully replaces the record with the same key.
func (a accessor[R]) put(ctx context.Context, s *Store, record R) error {
	if strings.TrimSpace(a.key(record)) == "" {
		return opError("put", a.collection.Name, ErrWriteFailed,
			fmt.Errorf("%w: %s is empty", ErrInvalidRecord, a.collection.PrimaryKey))
	}
	values, err := a.prepare(s, record)
	if err != nil {
		return opError("put", a.collection.Name, ErrWriteFailed, err)
	}
	query := a.upsertSQL()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, query, values...)
		return execErr
	})
	if err != nil {
		return opError("put", a.collection.Name, ErrWriteFailed, err)
	}
	return nil
}

// get returns the record stored under key. A missing record is not an error.
func (a accessor[R]) get(ctx context.Context, s *Store, key string) (R, bool, error) {
	var zero R
	if strings.TrimSpace(key) == "" {
		return zero, false, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", a.selectColumns(), a.collection.Table, a.collection.PrimaryKey)
	var (
		record R
		found  bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rec, scanErr := a.scan(tx.QueryRowContext(ctx, query, key))
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		record, found = rec, true
		return nil
	})
	if err != nil {
		return zero, false, opError("get", a.collection.Name, ErrReadFailed, err)
	}
	return record, found, nil
}

// list returns records matching where (may be empty) ordered by orderBy.
func (a accessor[R]) list(ctx context.Context, s *Store, op, where, orderBy string, limit int, args ...any) ([]R, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", a.selectColumns(), a.collection.Table)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(orderBy)
	}
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	query := b.String()

	var records []R
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := a.scan(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, opError(op, a.collection.Name, ErrReadFailed, err)
	}
	return records, nil
}

func mustCollection(name string) Collection {
	c, ok := lookupCollection(name)
	if !ok {
		panic("store: undeclared collection " + name)
	}
	return c
}
