package store

import (
	"context"
	"encoding/json"
	"fmt"
)

var dictionaryAccessor = accessor[CachedDictionaryEntry]{
	collection: mustCollection(DictionaryCacheCollection),
	columns:    []string{"word", "data", "date_added"},
	key:        func(e CachedDictionaryEntry) string { return e.Word },
	prepare: func(s *Store, e CachedDictionaryEntry) ([]any, error) {
		if len(e.Data) == 0 || !json.Valid(e.Data) {
			return nil, fmt.Errorf("%w: dictionary data is not valid JSON", ErrInvalidRecord)
		}
		if e.DateAdded.IsZero() {
			e.DateAdded = s.now()
		}
		return []any{e.Word, string(e.Data), toMillis(e.DateAdded)}, nil
	},
	scan: func(row scanner) (CachedDictionaryEntry, error) {
		var (
			e         CachedDictionaryEntry
			data      string
			dateAdded int64
		)
		if err := row.Scan(&e.Word, &data, &dateAdded); err != nil {
			return CachedDictionaryEntry{}, err
		}
		e.Data = json.RawMessage(data)
		e.DateAdded = fromMillis(dateAdded)
		return e, nil
	},
}

var audioAccessor = accessor[CachedAudio]{
	collection: mustCollection(AudioCacheCollection),
	columns:    []string{"word", "audio_data", "date_added"},
	key:        func(a CachedAudio) string { return a.Word },
	prepare: func(s *Store, a CachedAudio) ([]any, error) {
		if a.AudioData == nil {
			a.AudioData = []byte{}
		}
		if a.DateAdded.IsZero() {
			a.DateAdded = s.now()
		}
		return []any{a.Word, a.AudioData, toMillis(a.DateAdded)}, nil
	},
	scan: func(row scanner) (CachedAudio, error) {
		var (
			a         CachedAudio
			dateAdded int64
		)
		if err := row.Scan(&a.Word, &a.AudioData, &dateAdded); err != nil {
			return CachedAudio{}, err
		}
		a.DateAdded = fromMillis(dateAdded)
		return a, nil
	},
}

// PutDictionaryEntry caches a word-info payload, replacing any earlier entry
// for the same word.
func (s *Store) PutDictionaryEntry(ctx context.Context, entry CachedDictionaryEntry) error {
	return dictionaryAccessor.put(ctx, s, entry)
}

// GetDictionaryEntry returns the cached payload for word. Entries are returned
// regardless of age; expiry is the sweeper's job.
func (s *Store) GetDictionaryEntry(ctx context.Context, word string) (CachedDictionaryEntry, bool, error) {
	return dictionaryAccessor.get(ctx, s, word)
}

// PutAudio caches pronunciation audio for a word.
func (s *Store) PutAudio(ctx context.Context, audio CachedAudio) error {
	return audioAccessor.put(ctx, s, audio)
}

// GetAudio returns cached audio for word.
func (s *Store) GetAudio(ctx context.Context, word string) (CachedAudio, bool, error) {
	return audioAccessor.get(ctx, s, word)
}
