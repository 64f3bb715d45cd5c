// Package manager wires the session registry, artifact store, access
// control, cache, and event sink behind one façade.
//
// Every public method takes a [security.Context] and routes it through
// [security.Manager.CheckAccess] before touching persisted state. The
// cache is invalidation-based and purely a read-path optimization;
// the notification sink is fire-and-forget.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/sessionvault/internal/artifact"
	"github.com/koopa0/sessionvault/internal/cache"
	"github.com/koopa0/sessionvault/internal/event"
	"github.com/koopa0/sessionvault/internal/security"
	"github.com/koopa0/sessionvault/internal/session"
)

// Config collects the manager's collaborators. All fields except Sink
// and Logger are required.
type Config struct {
	Registry  *session.Registry
	Artifacts *artifact.Store
	Security  *security.Manager
	Cache     *cache.Cache[uuid.UUID, *session.Session]
	Sink      event.Sink
	Logger    *slog.Logger
}

func (c Config) validate() error {
	if c.Registry == nil {
		return fmt.Errorf("manager config: registry is required")
	}
	if c.Artifacts == nil {
		return fmt.Errorf("manager config: artifact store is required")
	}
	if c.Security == nil {
		return fmt.Errorf("manager config: security manager is required")
	}
	if c.Cache == nil {
		return fmt.Errorf("manager config: cache is required")
	}
	return nil
}

// SessionManager is the public lifecycle and artifact API.
type SessionManager struct {
	registry  *session.Registry
	artifacts *artifact.Store
	security  *security.Manager
	cache     *cache.Cache[uuid.UUID, *session.Session]
	sink      event.Sink
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a session manager from cfg.
func New(cfg Config) (*SessionManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Sink == nil {
		cfg.Sink = event.NopSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SessionManager{
		registry:  cfg.Registry,
		artifacts: cfg.Artifacts,
		security:  cfg.Security,
		cache:     cfg.Cache,
		sink:      cfg.Sink,
		logger:    cfg.Logger,
		now:       time.Now,
	}, nil
}

// CreateSession persists a new Active session and returns it together
// with a strict-isolation context authorizing it.
func (m *SessionManager) CreateSession(ctx context.Context, opts session.CreateOptions) (*session.Session, security.Context, error) {
	sess, err := m.registry.Create(ctx, opts)
	if err != nil {
		return nil, security.Context{}, fmt.Errorf("create session: %w", err)
	}

	secCtx := m.security.Authorize(sess.ID)
	m.emit(event.TypeSessionCreated, sess.ID, nil)
	return sess, secCtx, nil
}

// GetSession returns the session record with artifact accounting
// merged in.
func (m *SessionManager) GetSession(ctx context.Context, secCtx security.Context, id uuid.UUID) (*session.Session, error) {
	if err := m.security.CheckAccess(secCtx, id); err != nil {
		return nil, err
	}

	sess, err := m.cache.GetOrLoad(id, func() (*session.Session, error) {
		return m.registry.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	stats, err := m.artifacts.Stats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load artifact stats: %w", err)
	}

	// Copy so accounting never mutates the cached record.
	out := *sess
	out.ArtifactCount = stats.ArtifactCount
	out.TotalBytes = stats.TotalBytes
	return &out, nil
}

// ListSessions returns sessions matching query. Listing is an
// administrative surface and does not require per-session
// authorization; it never returns artifact payloads.
func (m *SessionManager) ListSessions(ctx context.Context, query session.Query) ([]*session.Session, error) {
	return m.registry.List(ctx, query)
}

// SuspendSession moves an Active session to Suspended.
func (m *SessionManager) SuspendSession(ctx context.Context, secCtx security.Context, id uuid.UUID) error {
	return m.transition(ctx, secCtx, id, m.registry.Suspend, event.TypeSessionSuspended)
}

// ResumeSession moves a Suspended session back to Active.
func (m *SessionManager) ResumeSession(ctx context.Context, secCtx security.Context, id uuid.UUID) error {
	return m.transition(ctx, secCtx, id, m.registry.Resume, event.TypeSessionResumed)
}

// CompleteSession moves a session to the terminal Completed state.
func (m *SessionManager) CompleteSession(ctx context.Context, secCtx security.Context, id uuid.UUID) error {
	return m.transition(ctx, secCtx, id, m.registry.Complete, event.TypeSessionCompleted)
}

func (m *SessionManager) transition(
	ctx context.Context,
	secCtx security.Context,
	id uuid.UUID,
	op func(context.Context, uuid.UUID) error,
	eventType string,
) error {
	if err := m.security.CheckAccess(secCtx, id); err != nil {
		return err
	}
	if err := op(ctx, id); err != nil {
		return err
	}
	m.cache.Invalidate(id)
	m.emit(eventType, id, nil)
	return nil
}

// UpdateSessionMetadata replaces the mutable session fields. Nil
// pointers leave a field unchanged; nil tags leaves tags unchanged.
func (m *SessionManager) UpdateSessionMetadata(ctx context.Context, secCtx security.Context, id uuid.UUID, name, description *string, tags []string) error {
	if err := m.security.CheckAccess(secCtx, id); err != nil {
		return err
	}
	if err := m.registry.UpdateMetadata(ctx, id, name, description, tags); err != nil {
		return err
	}
	m.cache.Invalidate(id)
	return nil
}

// DeleteSession removes the session and cascades over its artifacts.
// The artifact sweep runs first so the emitted event can report how
// many artifacts went with the session.
func (m *SessionManager) DeleteSession(ctx context.Context, secCtx security.Context, id uuid.UUID) error {
	if err := m.security.CheckAccess(secCtx, id); err != nil {
		return err
	}

	// Existence check before the cascade so a missing session reports
	// ErrNotFound instead of silently deleting nothing.
	if _, err := m.registry.Get(ctx, id); err != nil {
		return err
	}

	count, err := m.artifacts.DeleteForSession(ctx, id)
	if err != nil {
		return fmt.Errorf("cascade artifacts for session %s: %w", id, err)
	}
	if err := m.registry.Delete(ctx, id); err != nil {
		return err
	}

	m.cache.Invalidate(id)
	m.emit(event.TypeSessionDeleted, id, map[string]string{
		"artifacts_deleted": strconv.FormatInt(count, 10),
	})
	return nil
}

// StoreArtifact persists payload under its content hash and returns
// the artifact metadata. The session must exist and not be Completed;
// suspension is not a write-lock, suspended sessions still accept
// artifacts.
func (m *SessionManager) StoreArtifact(ctx context.Context, secCtx security.Context, sessionID uuid.UUID, typ artifact.Type, name string, payload []byte) (artifact.Metadata, error) {
	if err := m.security.CheckAccess(secCtx, sessionID); err != nil {
		return artifact.Metadata{}, err
	}

	sess, err := m.registry.Get(ctx, sessionID)
	if err != nil {
		return artifact.Metadata{}, err
	}
	if sess.State.Terminal() {
		return artifact.Metadata{}, fmt.Errorf("%w: artifacts are immutable", session.ErrCompleted)
	}

	meta, err := m.artifacts.Put(ctx, sessionID, typ, name, payload)
	if err != nil {
		return artifact.Metadata{}, err
	}

	m.cache.Invalidate(sessionID)
	m.emit(event.TypeArtifactStored, sessionID, map[string]string{
		"artifact_id":   meta.ID,
		"artifact_type": string(meta.Type),
	})
	return meta, nil
}

// GetArtifact returns an artifact with its payload, transparently
// decompressed.
func (m *SessionManager) GetArtifact(ctx context.Context, secCtx security.Context, sessionID uuid.UUID, artifactID string) (*artifact.Artifact, error) {
	if err := m.security.CheckAccess(secCtx, sessionID); err != nil {
		return nil, err
	}

	art, err := m.artifacts.Get(ctx, sessionID, artifactID)
	if err != nil {
		return nil, err
	}

	m.emit(event.TypeArtifactRetrieved, sessionID, map[string]string{
		"artifact_id": artifactID,
	})
	return art, nil
}

// QueryArtifacts returns metadata summaries matching filter. No
// matches yields an empty slice, never an error.
func (m *SessionManager) QueryArtifacts(ctx context.Context, secCtx security.Context, sessionID uuid.UUID, filter artifact.Filter) ([]artifact.Metadata, error) {
	if err := m.security.CheckAccess(secCtx, sessionID); err != nil {
		return nil, err
	}
	return m.artifacts.Query(ctx, sessionID, filter)
}

func (m *SessionManager) emit(eventType string, sessionID uuid.UUID, metadata map[string]string) {
	m.sink.Notify(event.Notification{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: m.now().UTC(),
		Metadata:  metadata,
	})
}
