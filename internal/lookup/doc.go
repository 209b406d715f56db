// Package lookup resolves words the reader selects into dictionary entries
// and pronunciation audio, caching both in the store.
//
// Each lookup reads the cache, fetches from the remote on a miss, and writes
// the result back, in that order. The cache is an optimisation only; its
// failures are logged and never surface to the caller.
package lookup
