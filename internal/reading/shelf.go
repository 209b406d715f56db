package reading

import (
	"context"
	"fmt"
	"math"
	"time"

	"hanzireader/internal/store"
)

// ShelfStore is the slice of the store the bookshelf reads.
type ShelfStore interface {
	GetReadingProgress(ctx context.Context, bookID string) (store.ReadingProgress, bool, error)
	RecentReadingProgress(ctx context.Context, limit int) ([]store.ReadingProgress, error)
}

// ShelfEntry is one book on the shelf.
type ShelfEntry struct {
	BookID   string    `json:"bookId"`
	Percent  float64   `json:"percent"`
	Label    string    `json:"label"`
	LastRead time.Time `json:"lastRead"`
}

// Shelf reports per-book completion for the bookshelf.
type Shelf struct {
	store ShelfStore
}

// NewShelf constructs a Shelf backed by s.
func NewShelf(s ShelfStore) *Shelf {
	return &Shelf{store: s}
}

// Percent returns the stored completion for bookID, or 0 if none is stored.
func (s *Shelf) Percent(ctx context.Context, bookID string) (float64, error) {
	progress, found, err := s.store.GetReadingProgress(ctx, bookID)
	if err != nil {
		return 0, fmt.Errorf("shelf percent: %w", err)
	}
	if !found {
		return 0, nil
	}
	return clampPercent(progress.ProgressPercentage), nil
}

// Entries lists recently read books, newest first.
func (s *Shelf) Entries(ctx context.Context, limit int) ([]ShelfEntry, error) {
	records, err := s.store.RecentReadingProgress(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("shelf entries: %w", err)
	}
	entries := make([]ShelfEntry, 0, len(records))
	for _, r := range records {
		pct := clampPercent(r.ProgressPercentage)
		entries = append(entries, ShelfEntry{
			BookID:   r.BookID,
			Percent:  pct,
			Label:    Label(pct),
			LastRead: r.LastRead,
		})
	}
	return entries, nil
}

// Label renders a percentage as the rounded "NN%" shown on the shelf.
func Label(percent float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(clampPercent(percent))))
}
