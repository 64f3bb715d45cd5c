// Package statestore provides the durable key/value store backing session
// and artifact persistence.
//
// All keys written on behalf of a session live under a [Scope] prefix so
// that a session's state can be listed and bulk-deleted as a unit. Three
// backends are provided:
//
//   - [Memory]: in-process map, used in tests and for ephemeral setups
//   - [SQLite]: embedded default backend (modernc.org/sqlite)
//   - [Postgres]: shared backend for multi-process deployments (pgx)
//
// Writes through [Store.PutBatch] are atomic: either every entry becomes
// visible or none does. Callers never observe a partially applied batch.
package statestore

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors. Callers check these with errors.Is().
var (
	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable indicates the backing store failed or is unreachable.
	// Operations wrapping this error are eligible for caller-directed retry;
	// the store itself never retries.
	ErrUnavailable = errors.New("state store unavailable")
)

// Entry is a single key/value pair for batch writes.
type Entry struct {
	Key   string
	Value []byte
}

// Store is the durable key/value interface consumed by the session
// registry and the artifact store.
//
// Implementations must be safe for concurrent use. Each key behaves as a
// single-writer, multiple-reader resource: readers never observe a
// partially written value.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any existing value.
	Put(ctx context.Context, key string, value []byte) error

	// PutBatch stores all entries atomically.
	PutBatch(ctx context.Context, entries []Entry) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)

	// DeleteScope removes every key under the scope prefix and returns
	// the number of keys removed.
	DeleteScope(ctx context.Context, scope Scope) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Scope groups keys belonging to one owner so they can be bulk-deleted.
// The zero value is invalid; construct scopes with [SessionScope].
type Scope string

// SessionScope returns the scope holding all keys written on behalf of
// the given session.
func SessionScope(sessionID string) Scope {
	return Scope("session:" + sessionID + ":")
}

// Key builds a key inside the scope from colon-joined parts.
func (s Scope) Key(parts ...string) string {
	return string(s) + strings.Join(parts, ":")
}

// Prefix returns the raw key prefix for List operations.
func (s Scope) Prefix() string {
	return string(s)
}
