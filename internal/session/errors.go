package session

import "errors"

// Sentinel errors for session operations. These are part of the
// Registry's public API and should be checked with errors.Is().
//
// Example:
//
//	sess, err := registry.Get(ctx, id)
//	if errors.Is(err, session.ErrNotFound) {
//	    // Handle missing session
//	}
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidTransition indicates a lifecycle operation was attempted
	// from an incompatible state. Recoverable by the caller; never
	// retried automatically.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrCompleted indicates a mutation was attempted on a completed
	// session.
	ErrCompleted = errors.New("session completed")
)
