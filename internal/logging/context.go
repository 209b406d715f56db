package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBookID is the standardized structured logging key for book identifiers.
	FieldBookID = "book_id"
	// FieldCollection is the standardized structured logging key for store collection names.
	FieldCollection = "collection"
	// FieldWord is the standardized structured logging key for looked-up words.
	FieldWord = "word"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the reader what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type bookIDKey struct{}

// WithBookID stores a book identifier on the context for log enrichment.
func WithBookID(ctx context.Context, bookID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return ctx
	}
	return context.WithValue(ctx, bookIDKey{}, bookID)
}

// BookIDFromContext returns the book identifier stored by WithBookID.
func BookIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(bookIDKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := BookIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBookID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
