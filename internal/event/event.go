// Package event defines lifecycle notifications and the sink they are
// delivered through.
//
// Emission is fire-and-forget: the storage core never blocks on
// delivery, and delivery guarantees belong to whatever bus sits behind
// the [Sink]. A full [AsyncBus] drops notifications rather than apply
// backpressure to session operations.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Notification event types.
const (
	TypeSessionCreated   = "session.created"
	TypeSessionSuspended = "session.suspended"
	TypeSessionResumed   = "session.resumed"
	TypeSessionCompleted = "session.completed"
	TypeSessionDeleted   = "session.deleted"

	TypeArtifactStored    = "artifact.stored"
	TypeArtifactRetrieved = "artifact.retrieved"
)

// Notification is one lifecycle event emitted by the session manager.
type Notification struct {
	Type      string            `json:"type"`
	SessionID uuid.UUID         `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives lifecycle notifications. Implementations must not
// block: the caller is on a session operation's hot path.
type Sink interface {
	Notify(n Notification)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) Notify(Notification) {}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }
