package logging

import (
	"math"
	"strings"
)

// ProgressSampler decides which reading-progress samples are worth an info
// line. A sample is emitted when the reader moves to a different book or into
// a different percentage bucket of the current one, in either direction.
// Each book remembers its own last bucket, so flipping between two open books
// does not re-announce a position already logged. Not safe for concurrent use.
type ProgressSampler struct {
	bucketSize float64
	current    string
	buckets    map[string]int
}

// NewProgressSampler returns a sampler with bucketSize-percent buckets
// (default 5).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 || math.IsNaN(bucketSize) {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, buckets: make(map[string]int)}
}

func (s *ProgressSampler) bucket(percent float64) int {
	if percent >= 100 {
		percent = 100
	}
	return int(percent / s.bucketSize)
}

// ShouldLog reports whether a sample for book at percent should be logged.
// A negative percent means unknown and only a book change emits.
func (s *ProgressSampler) ShouldLog(percent float64, book string) bool {
	if s == nil {
		return true
	}
	book = strings.TrimSpace(book)
	switched := book != s.current
	s.current = book
	if percent < 0 || math.IsNaN(percent) {
		return switched
	}
	b := s.bucket(percent)
	last, seen := s.buckets[book]
	s.buckets[book] = b
	return !seen || last != b
}

// Reset forgets every book.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.current = ""
	clear(s.buckets)
}
