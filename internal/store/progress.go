package store

import (
	"context"
	"fmt"
)

var progressAccessor = accessor[ReadingProgress]{
	collection: mustCollection(ReadingProgressCollection),
	columns:    []string{"book_id", "scroll_position", "progress_percentage", "last_read"},
	key:        func(p ReadingProgress) string { return p.BookID },
	prepare: func(s *Store, p ReadingProgress) ([]any, error) {
		if !isFinite(p.ScrollPosition) || p.ScrollPosition < 0 {
			return nil, fmt.Errorf("%w: scroll position %v", ErrInvalidRecord, p.ScrollPosition)
		}
		if !isFinite(p.ProgressPercentage) || p.ProgressPercentage < 0 || p.ProgressPercentage > 100 {
			return nil, fmt.Errorf("%w: progress percentage %v outside [0,100]", ErrInvalidRecord, p.ProgressPercentage)
		}
		if p.LastRead.IsZero() {
			p.LastRead = s.now()
		}
		return []any{p.BookID, p.ScrollPosition, p.ProgressPercentage, toMillis(p.LastRead)}, nil
	},
	scan: func(row scanner) (ReadingProgress, error) {
		var (
			p        ReadingProgress
			lastRead int64
		)
		if err := row.Scan(&p.BookID, &p.ScrollPosition, &p.ProgressPercentage, &lastRead); err != nil {
			return ReadingProgress{}, err
		}
		p.LastRead = fromMillis(lastRead)
		return p, nil
	},
}

// PutReadingProgress stores progress for a book, replacing any earlier record.
// Callers supply the full record; the tracker always sets LastRead. A direct
// caller that leaves LastRead zero gets it stamped with the store clock
// instead of a rejection, so the stored record is always complete.
func (s *Store) PutReadingProgress(ctx context.Context, progress ReadingProgress) error {
	return progressAccessor.put(ctx, s, progress)
}

// GetReadingProgress returns the stored progress for bookID.
func (s *Store) GetReadingProgress(ctx context.Context, bookID string) (ReadingProgress, bool, error) {
	return progressAccessor.get(ctx, s, bookID)
}

// RecentReadingProgress lists progress records, most recently read first.
// A non-positive limit returns every record.
func (s *Store) RecentReadingProgress(ctx context.Context, limit int) ([]ReadingProgress, error) {
	return progressAccessor.list(ctx, s, "list", "", "last_read DESC, book_id", limit)
}
