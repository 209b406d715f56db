// Package store persists reading progress, saved vocabulary, and the
// dictionary/audio lookup caches in a single local SQLite database.
//
// The Store owns the database handle, its schema version, and the additive
// upgrade that creates any missing collection (table) together with its
// secondary indexes. Open is idempotent and safe to call from independent
// components; accessors open the store lazily so every caller reaches the same
// handle without coordinating setup.
//
// Every public operation runs in exactly one transaction scoped to the single
// collection it touches. Failures are reported as *OpError values whose kind
// matches one of the exported sentinels (ErrStoreUnavailable, ErrReadFailed,
// ErrWriteFailed, ErrUnknownCollection) through errors.Is. Nothing is retried
// internally; callers decide whether a dropped write matters.
//
// Timestamps are stored as Unix milliseconds so the time indexes order records
// chronologically. The expiry sweeper relies on that ordering.
package store
