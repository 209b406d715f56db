package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hanzireader/internal/logging"
)

// DefaultCacheMaxAge is the expiry window applied when Sweep receives a
// non-positive max age.
const DefaultCacheMaxAge = 7 * 24 * time.Hour

const sweepBatchSize = 256

// Sweep deletes every record in the named collection whose date_added is at
// or before now-maxAge, walking the expiry index oldest first. All deletions
// happen in one transaction; on failure nothing is removed. Only the two
// caches can be swept. Saved words carry a date_added index too, but they are
// the reader's vocabulary rather than a cache and are never expired, so
// naming them fails with ErrUnknownCollection. It returns the number of
// deleted records.
func (s *Store) Sweep(ctx context.Context, name string, maxAge time.Duration) (int64, error) {
	c, ok := lookupCollection(name)
	if !ok || c.ExpiryColumn == "" {
		return 0, &OpError{
			Op:         "sweep",
			Collection: name,
			Kind:       ErrUnknownCollection,
			Err:        fmt.Errorf("%q has no expiry index", name),
		}
	}
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	now := s.now()
	cutoff := toMillis(now.Add(-maxAge))

	selectQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s <= ? ORDER BY %s, %s LIMIT ?",
		c.PrimaryKey, c.Table, c.ExpiryColumn, c.ExpiryColumn, c.PrimaryKey,
	)

	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for {
			keys, err := expiredKeys(ctx, tx, selectQuery, cutoff)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				return nil
			}
			deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", c.Table, c.PrimaryKey, makePlaceholders(len(keys)))
			res, err := tx.ExecContext(ctx, deleteQuery, keys...)
			if err != nil {
				return fmt.Errorf("delete expired batch: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			deleted += n
			if len(keys) < sweepBatchSize {
				return nil
			}
		}
	})
	if err != nil {
		return 0, opError("sweep", c.Name, ErrWriteFailed, err)
	}

	if deleted > 0 {
		s.logger.Info("cache swept",
			logging.Collection(c.Name),
			logging.Int64("deleted", deleted),
			logging.Duration("max_age", maxAge),
			logging.EventType("cache_sweep"),
		)
	}
	return deleted, nil
}

func expiredKeys(ctx context.Context, tx *sql.Tx, query string, cutoff int64) ([]any, error) {
	rows, err := tx.QueryContext(ctx, query, cutoff, sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("select expired: %w", err)
	}
	defer rows.Close()
	keys := make([]any, 0, sweepBatchSize)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan expired key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// SweepResult is the outcome of sweeping one cache.
type SweepResult struct {
	Collection string
	Deleted    int64
	Err        error
}

// SweepCaches sweeps the dictionary and audio caches independently. A failure
// in one does not stop the other; failures are joined in the returned error.
func (s *Store) SweepCaches(ctx context.Context, dictionaryMaxAge, audioMaxAge time.Duration) ([]SweepResult, error) {
	targets := []struct {
		name   string
		maxAge time.Duration
	}{
		{DictionaryCacheCollection, dictionaryMaxAge},
		{AudioCacheCollection, audioMaxAge},
	}
	results := make([]SweepResult, 0, len(targets))
	var errs []error
	for _, target := range targets {
		n, err := s.Sweep(ctx, target.name, target.maxAge)
		results = append(results, SweepResult{Collection: target.name, Deleted: n, Err: err})
		if err != nil {
			logging.WarnWithContext(s.logger, "cache sweep failed; expired entries remain", "cache_sweep_failed",
				logging.Collection(target.name),
				logging.Error(err),
				logging.Hint("run hanzireader store health"),
				logging.Impact("stale cache entries stay until the next sweep"),
			)
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}
