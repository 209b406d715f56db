package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"hanzireader/internal/logging"
)

const (
	maxLineBytes        = 1024 * 1024
	defaultPollInterval = 250 * time.Millisecond
)

// Entry is one decoded log line.
type Entry struct {
	Time      string         `json:"ts,omitempty"`
	Level     string         `json:"level,omitempty"`
	Message   string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	BookID    string         `json:"book_id,omitempty"`
	EventType string         `json:"event_type,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Query selects entries. Empty filters match everything.
type Query struct {
	// Limit keeps only the last Limit matching entries; 0 keeps all.
	Limit     int
	MinLevel  string
	Component string
	BookID    string
	EventType string
}

// Result holds matched entries and the byte offset to resume from.
type Result struct {
	Entries []Entry
	Offset  int64
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

func (q Query) matches(e Entry) bool {
	if q.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(q.MinLevel)]
		have, known := levelRank[strings.ToLower(e.Level)]
		if ok && known && have < want {
			return false
		}
	}
	if q.Component != "" && e.Component != q.Component {
		return false
	}
	if q.BookID != "" && e.BookID != q.BookID {
		return false
	}
	if q.EventType != "" && e.EventType != q.EventType {
		return false
	}
	return true
}

// ParseLine decodes one JSON log line. Non-JSON lines become an entry whose
// message is the raw text.
func ParseLine(line string) Entry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{Message: line}
	}
	e := Entry{
		Time:      takeString(raw, "ts"),
		Level:     takeString(raw, "level"),
		Message:   takeString(raw, "msg"),
		Component: takeString(raw, logging.FieldComponent),
		BookID:    takeString(raw, logging.FieldBookID),
		EventType: takeString(raw, logging.FieldEventType),
	}
	if len(raw) > 0 {
		e.Fields = raw
	}
	return e
}

func takeString(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	delete(raw, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Read returns the matching entries of the file at path, keeping the last
// q.Limit of them. A missing file yields an empty result.
func Read(ctx context.Context, path string, q Query) (Result, error) {
	return readFrom(ctx, path, 0, q)
}

// ReadFrom is Read starting at a byte offset, typically one returned by an
// earlier call. An offset past the end of a truncated file restarts at zero.
func ReadFrom(ctx context.Context, path string, offset int64, q Query) (Result, error) {
	return readFrom(ctx, path, offset, q)
}

func readFrom(ctx context.Context, path string, offset int64, q Query) (Result, error) {
	result := Result{Offset: offset}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return result, fmt.Errorf("seek log file: %w", err)
	}

	var ring []Entry
	if q.Limit > 0 {
		ring = make([]Entry, 0, q.Limit)
	}
	next := 0
	reader := bufio.NewReaderSize(file, 64*1024)
	consumed := offset
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return result, fmt.Errorf("read log file: %w", err)
		}
		// A trailing partial line is left for the next read.
		if !strings.HasSuffix(line, "\n") {
			break
		}
		consumed += int64(len(line))
		text := strings.TrimRight(line, "\r\n")
		if text == "" || len(text) > maxLineBytes {
			continue
		}
		entry := ParseLine(text)
		if !q.matches(entry) {
			continue
		}
		switch {
		case q.Limit <= 0:
			ring = append(ring, entry)
		case len(ring) < q.Limit:
			ring = append(ring, entry)
		default:
			ring[next] = entry
			next = (next + 1) % q.Limit
		}
	}

	if next > 0 {
		ring = append(ring[next:], ring[:next]...)
	}
	result.Entries = ring
	result.Offset = consumed
	return result, nil
}

// Follow reads entries appended after offset and passes each match to fn
// until ctx is done. It returns nil on cancellation.
func Follow(ctx context.Context, path string, offset int64, q Query, poll time.Duration, fn func(Entry) error) error {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	follow := q
	follow.Limit = 0
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		res, err := readFrom(ctx, path, offset, follow)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		offset = res.Offset
		for _, e := range res.Entries {
			if err := fn(e); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
