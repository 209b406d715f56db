package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one human-readable line per record:
//
//	2024-03-01 08:00:00 WARN reading [book-7]: progress write failed error=... (impact: ...; hint: ...)
//
// Component and book are lifted into the prefix. On warnings and errors the
// impact and hint fields trail the line so the next step reads last.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     *slog.LevelVar
	preset    []field
	groups    []string
	addSource bool
}

type field struct {
	key   string
	value slog.Value
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	fields := make([]field, 0, len(h.preset)+record.NumAttrs())
	fields = append(fields, h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.groups, attr)
		return true
	})

	var component, book, hint, impact string
	rest := fields[:0]
	for _, f := range fields {
		switch {
		case f.key == FieldComponent && component == "":
			component = attrString(f.value)
		case f.key == FieldBookID && book == "":
			book = attrString(f.value)
		case f.key == FieldErrorHint && record.Level >= slog.LevelWarn:
			hint = attrString(f.value)
		case f.key == FieldImpact && record.Level >= slog.LevelWarn:
			impact = attrString(f.value)
		default:
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var line bytes.Buffer
	line.Grow(96 + 24*len(rest))
	line.WriteString(formatTimestamp(ts))
	line.WriteByte(' ')
	line.WriteString(levelLabel(record.Level))
	line.WriteByte(' ')
	writePrefix(&line, component, book)

	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line.WriteString(msg)

	if h.addSource {
		if src := record.Source(); src != nil {
			line.WriteString(" [")
			line.WriteString(filepath.Base(src.File))
			line.WriteByte(':')
			line.WriteString(strconv.Itoa(src.Line))
			line.WriteByte(']')
		}
	}
	for _, f := range rest {
		if f.key == "" {
			continue
		}
		line.WriteByte(' ')
		line.WriteString(f.key)
		line.WriteByte('=')
		line.WriteString(formatValue(f.value))
	}
	writeGuidance(&line, impact, hint)
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(line.Bytes())
	return err
}

func writePrefix(buf *bytes.Buffer, component, book string) {
	switch {
	case component != "" && book != "":
		buf.WriteString(component)
		buf.WriteString(" [")
		buf.WriteString(book)
		buf.WriteString("]: ")
	case component != "":
		buf.WriteString(component)
		buf.WriteString(": ")
	case book != "":
		buf.WriteByte('[')
		buf.WriteString(book)
		buf.WriteString("] ")
	}
}

func writeGuidance(buf *bytes.Buffer, impact, hint string) {
	if impact == "" && hint == "" {
		return
	}
	buf.WriteString(" (")
	if impact != "" {
		buf.WriteString("impact: ")
		buf.WriteString(impact)
		if hint != "" {
			buf.WriteString("; ")
		}
	}
	if hint != "" {
		buf.WriteString("hint: ")
		buf.WriteString(hint)
	}
	buf.WriteByte(')')
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.derive()
	for _, attr := range attrs {
		next.preset = appendField(next.preset, h.groups, attr)
	}
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.derive()
	next.groups = append(next.groups, name)
	return next
}

// derive copies h; the mutex is shared so derived loggers never interleave lines.
func (h *consoleHandler) derive() *consoleHandler {
	return &consoleHandler{
		mu:        h.mu,
		out:       h.out,
		level:     h.level,
		preset:    append([]field(nil), h.preset...),
		groups:    append([]string(nil), h.groups...),
		addSource: h.addSource,
	}
}

// appendField flattens attr into dotted keys under groups.
func appendField(dst []field, groups []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(append([]string(nil), groups...), attr.Key)
		}
		for _, member := range attr.Value.Group() {
			dst = appendField(dst, inner, member)
		}
		return dst
	}
	key := attr.Key
	if len(groups) > 0 {
		parts := append(append([]string(nil), groups...), key)
		if key == "" {
			parts = parts[:len(parts)-1]
		}
		key = strings.Join(parts, ".")
	}
	return append(dst, field{key: key, value: attr.Value})
}
