package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"hanzireader/internal/logging"
	"hanzireader/internal/store"
)

// ErrEmptyWord is returned when the selection is blank after normalization.
var ErrEmptyWord = errors.New("empty word")

// CacheStore is the slice of the store the lookup service uses.
type CacheStore interface {
	GetDictionaryEntry(ctx context.Context, word string) (store.CachedDictionaryEntry, bool, error)
	PutDictionaryEntry(ctx context.Context, entry store.CachedDictionaryEntry) error
	GetAudio(ctx context.Context, word string) (store.CachedAudio, bool, error)
	PutAudio(ctx context.Context, audio store.CachedAudio) error
	SaveWord(ctx context.Context, word store.SavedWord) (string, error)
}

// Result is the outcome of a lookup.
type Result struct {
	Info      WordInfo
	FromCache bool
}

// Service resolves selected words through the local cache and the remote.
type Service struct {
	store  CacheStore
	remote Remote
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger routes lookup diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "lookup")
		}
	}
}

// WithClock overrides the clock used for cache and save timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a lookup service.
func NewService(cache CacheStore, remote Remote, opts ...Option) *Service {
	s := &Service{
		store:  cache,
		remote: remote,
		logger: logging.NewComponentLogger(nil, "lookup"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeWord returns the cache key for a selection: NFC-normalized with
// surrounding whitespace removed.
func NormalizeWord(word string) string {
	return strings.TrimSpace(norm.NFC.String(word))
}

// Lookup returns dictionary data for word, consulting the cache first. Cache
// failures never fail the lookup: a read failure counts as a miss and a write
// failure still returns the fetched data.
func (s *Service) Lookup(ctx context.Context, word string) (Result, error) {
	key := NormalizeWord(word)
	if key == "" {
		return Result{}, ErrEmptyWord
	}

	entry, found, err := s.store.GetDictionaryEntry(ctx, key)
	switch {
	case err != nil:
		s.warnCache("dictionary cache read failed; fetching instead", "dictionary_cache_read_failed", key, err)
	case found:
		var info WordInfo
		decodeErr := json.Unmarshal(entry.Data, &info)
		if decodeErr == nil {
			s.logger.Debug("dictionary cache hit", logging.Word(key))
			return Result{Info: info, FromCache: true}, nil
		}
		s.warnCache("cached dictionary entry unreadable; fetching again", "dictionary_cache_decode_failed", key, decodeErr)
	}

	if s.remote == nil {
		return Result{}, errors.New("lookup: no remote configured")
	}
	info, err := s.remote.WordInfo(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("lookup %q: %w", key, err)
	}

	data, err := json.Marshal(info)
	if err != nil {
		return Result{}, fmt.Errorf("lookup %q: encode word info: %w", key, err)
	}
	if err := s.store.PutDictionaryEntry(ctx, store.CachedDictionaryEntry{Word: key, Data: data, DateAdded: s.now()}); err != nil {
		s.warnCache("dictionary cache write failed; result not cached", "dictionary_cache_write_failed", key, err)
	}
	return Result{Info: info}, nil
}

// Speech returns pronunciation audio for text and whether it came from cache.
func (s *Service) Speech(ctx context.Context, text string) ([]byte, bool, error) {
	key := NormalizeWord(text)
	if key == "" {
		return nil, false, ErrEmptyWord
	}

	cached, found, err := s.store.GetAudio(ctx, key)
	switch {
	case err != nil:
		s.warnCache("audio cache read failed; fetching instead", "audio_cache_read_failed", key, err)
	case found && len(cached.AudioData) > 0:
		return cached.AudioData, true, nil
	}

	if s.remote == nil {
		return nil, false, errors.New("speech: no remote configured")
	}
	audio, err := s.remote.Speech(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("speech %q: %w", key, err)
	}
	if err := s.store.PutAudio(ctx, store.CachedAudio{Word: key, AudioData: audio, DateAdded: s.now()}); err != nil {
		s.warnCache("audio cache write failed; clip not cached", "audio_cache_write_failed", key, err)
	}
	return audio, false, nil
}

// Save stores info as a new vocabulary entry. Saving the same word again
// creates another entry.
func (s *Service) Save(ctx context.Context, info WordInfo, bookContext *store.BookContext) (store.SavedWord, error) {
	word := NormalizeWord(info.Word)
	if word == "" {
		return store.SavedWord{}, ErrEmptyWord
	}
	saved := store.SavedWord{
		ID:          store.NewSavedWordID(),
		Word:        word,
		Pinyin:      strings.TrimSpace(info.Pinyin),
		Translation: strings.TrimSpace(info.Translation),
		DateAdded:   s.now().UTC(),
		BookContext: bookContext,
	}
	if _, err := s.store.SaveWord(ctx, saved); err != nil {
		return store.SavedWord{}, fmt.Errorf("save %q: %w", word, err)
	}
	s.logger.Info("word saved",
		logging.Word(word),
		logging.String("id", saved.ID),
		logging.EventType("word_saved"),
	)
	return saved, nil
}

func (s *Service) warnCache(msg, eventType, word string, err error) {
	logging.WarnWithContext(s.logger, msg, eventType,
		logging.Word(word),
		logging.Error(err),
		logging.Hint("run hanzireader store health"),
		logging.Impact("lookups go to the network until the cache recovers"),
	)
}
