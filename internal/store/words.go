package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var savedWordAccessor = accessor[SavedWord]{
	collection: mustCollection(SavedWordsCollection),
	columns:    []string{"id", "word", "pinyin", "translation", "date_added", "last_reviewed", "book_context"},
	key:        func(w SavedWord) string { return w.ID },
	prepare: func(s *Store, w SavedWord) ([]any, error) {
		if strings.TrimSpace(w.Word) == "" {
			return nil, fmt.Errorf("%w: word is empty", ErrInvalidRecord)
		}
		if w.DateAdded.IsZero() {
			w.DateAdded = s.now()
		}
		var bookContext any
		if w.BookContext != nil {
			encoded, err := nullableJSON(w.BookContext)
			if err != nil {
				return nil, err
			}
			bookContext = encoded
		}
		return []any{
			w.ID,
			w.Word,
			w.Pinyin,
			nullableString(w.Translation),
			toMillis(w.DateAdded),
			nullableMillis(w.LastReviewed),
			bookContext,
		}, nil
	},
	scan: func(row scanner) (SavedWord, error) {
		var (
			w            SavedWord
			translation  sql.NullString
			dateAdded    int64
			lastReviewed sql.NullInt64
			bookContext  sql.NullString
		)
		if err := row.Scan(&w.ID, &w.Word, &w.Pinyin, &translation, &dateAdded, &lastReviewed, &bookContext); err != nil {
			return SavedWord{}, err
		}
		w.Translation = translation.String
		w.DateAdded = fromMillis(dateAdded)
		w.LastReviewed = timeFromNull(lastReviewed)
		if bookContext.Valid && bookContext.String != "" {
			var bc BookContext
			if err := json.Unmarshal([]byte(bookContext.String), &bc); err != nil {
				return SavedWord{}, fmt.Errorf("decode book context for %s: %w", w.ID, err)
			}
			w.BookContext = &bc
		}
		return w, nil
	},
}

// NewSavedWordID returns a fresh identifier for a saved word. Saving the same
// word twice yields two records.
func NewSavedWordID() string {
	return uuid.NewString()
}

// SaveWord stores a vocabulary entry. An empty ID is assigned a new one; the
// ID used is returned. A zero DateAdded is stamped with the current time.
func (s *Store) SaveWord(ctx context.Context, word SavedWord) (string, error) {
	if strings.TrimSpace(word.ID) == "" {
		word.ID = NewSavedWordID()
	}
	if err := savedWordAccessor.put(ctx, s, word); err != nil {
		return "", err
	}
	return word.ID, nil
}

// GetSavedWord returns the saved word with the given ID.
func (s *Store) GetSavedWord(ctx context.Context, id string) (SavedWord, bool, error) {
	return savedWordAccessor.get(ctx, s, id)
}

// SavedWordsByWord returns every saved entry for word, oldest first.
func (s *Store) SavedWordsByWord(ctx context.Context, word string) ([]SavedWord, error) {
	return savedWordAccessor.list(ctx, s, "find", "word = ?", "date_added, id", 0, word)
}

// ListSavedWords returns saved words, newest first. A non-positive limit
// returns every record.
func (s *Store) ListSavedWords(ctx context.Context, limit int) ([]SavedWord, error) {
	return savedWordAccessor.list(ctx, s, "list", "", "date_added DESC, id", limit)
}
