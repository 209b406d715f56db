package store

import (
	"errors"
	"strings"
)

var (
	// ErrStoreUnavailable means the database could not be opened or upgraded.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrReadFailed means a read transaction aborted.
	ErrReadFailed = errors.New("read failed")
	// ErrWriteFailed means a write transaction aborted and nothing was applied.
	ErrWriteFailed = errors.New("write failed")
	// ErrUnknownCollection means the named collection does not exist or cannot be swept.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrStoreClosed is the cause attached to operations issued after Close.
	ErrStoreClosed = errors.New("store closed")
	// ErrInvalidRecord is the cause attached to puts that violate a record invariant.
	ErrInvalidRecord = errors.New("invalid record")
)

// OpError describes a failed store operation. Kind is one of the exported
// sentinels; Err is the underlying cause. errors.Is matches both.
type OpError struct {
	Op         string
	Collection string
	Kind       error
	Err        error
}

func (e *OpError) Error() string {
	parts := make([]string, 0, 4)
	if e.Op != "" {
		if e.Collection != "" {
			parts = append(parts, e.Op+" "+e.Collection)
		} else {
			parts = append(parts, e.Op)
		}
	}
	if e.Kind != nil {
		parts = append(parts, e.Kind.Error())
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return "store failure"
	}
	return strings.Join(parts, ": ")
}

func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// ErrorKind classifies the failure for callers that map errors to behaviour
// without importing the sentinels.
func (e *OpError) ErrorKind() string {
	switch {
	case errors.Is(e.Kind, ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(e.Kind, ErrUnknownCollection):
		return "unknown_collection"
	case errors.Is(e.Kind, ErrReadFailed):
		return "read"
	case errors.Is(e.Kind, ErrWriteFailed):
		return "write"
	default:
		return "store"
	}
}

func opError(op, collection string, kind, err error) error {
	// Unavailability discovered while running a read or write keeps its kind so
	// callers can switch to degraded mode.
	var existing *OpError
	if errors.As(err, &existing) && errors.Is(existing.Kind, ErrStoreUnavailable) {
		kind = ErrStoreUnavailable
		err = existing.Err
	}
	return &OpError{Op: op, Collection: collection, Kind: kind, Err: err}
}
