// Package session provides session lifecycle state and its durable
// registry.
//
// A session is a bounded unit of interaction that exclusively owns the
// artifacts stored under its id. Its lifecycle is a small state machine:
//
//	Active ⇄ Suspended → Completed
//
// Completed is terminal. Every transition is persisted to the state
// store before the call returns, so a crash after a successful call
// never loses the transition.
//
// Key operations:
//
//   - Lifecycle: [Registry.Create], [Registry.Suspend], [Registry.Resume],
//     [Registry.Complete], [Registry.Delete]
//   - Lookup: [Registry.Get], [Registry.List]
//   - Metadata: [Registry.UpdateMetadata] (name/description/tags, only
//     while the session is not Completed)
//
// # Concurrency
//
// Registry serializes transitions per session with a session-level lock:
// two concurrent Suspend calls on the same Active session resolve to
// exactly one success, and the loser observes [ErrInvalidTransition].
// Operations on distinct sessions proceed in parallel.
package session
