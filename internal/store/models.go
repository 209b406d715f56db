package store

import (
	"encoding/json"
	"time"
)

// ReadingProgress is the last known reading position for one book.
type ReadingProgress struct {
	BookID             string    `json:"bookId"`
	ScrollPosition     float64   `json:"scrollPosition"`
	ProgressPercentage float64   `json:"progressPercentage"`
	LastRead           time.Time `json:"lastRead"`
}

// BookContext records where a saved word was encountered.
type BookContext struct {
	BookID   string `json:"bookId"`
	Sentence string `json:"sentence"`
}

// SavedWord is a vocabulary entry the reader chose to keep. The same word may
// be saved many times; each save has its own ID.
type SavedWord struct {
	ID           string       `json:"id"`
	Word         string       `json:"word"`
	Pinyin       string       `json:"pinyin"`
	Translation  string       `json:"translation,omitempty"`
	DateAdded    time.Time    `json:"dateAdded"`
	LastReviewed *time.Time   `json:"lastReviewed,omitempty"`
	BookContext  *BookContext `json:"bookContext,omitempty"`
}

// CachedDictionaryEntry is a cached word-info payload. Data is stored as the
// remote service returned it.
type CachedDictionaryEntry struct {
	Word      string          `json:"word"`
	Data      json.RawMessage `json:"data"`
	DateAdded time.Time       `json:"dateAdded"`
}

// CachedAudio is cached pronunciation audio for a word.
type CachedAudio struct {
	Word      string    `json:"word"`
	AudioData []byte    `json:"audioData"`
	DateAdded time.Time `json:"dateAdded"`
}

// Health captures diagnostic information about the reader database.
type Health struct {
	DBPath             string           `json:"dbPath"`
	DatabaseExists     bool             `json:"databaseExists"`
	DatabaseReadable   bool             `json:"databaseReadable"`
	SchemaVersion      int              `json:"schemaVersion"`
	MissingCollections []string         `json:"missingCollections,omitempty"`
	MissingIndexes     []string         `json:"missingIndexes,omitempty"`
	IntegrityCheck     bool             `json:"integrityCheck"`
	Counts             map[string]int64 `json:"counts,omitempty"`
	Error              string           `json:"error,omitempty"`
}
