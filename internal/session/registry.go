package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/sessionvault/internal/statestore"
)

// recordSuffix distinguishes the registry's record from artifact keys
// inside the same session scope.
const recordSuffix = "record"

// Registry persists session lifecycle state to the state store.
//
// Registry is safe for concurrent use. Each session's transitions are
// serialized by a per-session lock, so exactly one of two racing
// suspends wins.
type Registry struct {
	state  statestore.Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewRegistry creates a session registry on top of the given state store.
func NewRegistry(state statestore.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		state:  state,
		logger: logger,
		now:    time.Now,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

func recordKey(id uuid.UUID) string {
	return statestore.SessionScope(id.String()).Key(recordSuffix)
}

// sessionLock returns the mutex serializing operations on one session.
func (r *Registry) sessionLock(id uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}

func (r *Registry) dropLock(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, id)
}

// Create persists a new Active session and returns it.
func (r *Registry) Create(ctx context.Context, opts CreateOptions) (*Session, error) {
	now := r.now().UTC()
	sess := &Session{
		ID:          uuid.New(),
		Name:        opts.Name,
		Description: opts.Description,
		Tags:        append([]string(nil), opts.Tags...),
		State:       StateActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.persist(ctx, sess); err != nil {
		return nil, err
	}

	r.logger.Debug("created session", "session_id", sess.ID, "name", sess.Name)
	return sess, nil
}

// Get loads a session record. Returns ErrNotFound if absent.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	raw, err := r.state.Get(ctx, recordKey(id))
	if errors.Is(err, statestore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns session records matching query, filtered and ordered.
// No matches yields an empty slice, never an error.
func (r *Registry) List(ctx context.Context, query Query) ([]*Session, error) {
	keys, err := r.state.List(ctx, "session:")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	results := make([]*Session, 0)
	for _, key := range keys {
		if !strings.HasSuffix(key, ":"+recordSuffix) {
			continue
		}
		raw, err := r.state.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load session record %s: %w", key, err)
		}
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, fmt.Errorf("unmarshal session record %s: %w", key, err)
		}

		if query.State != "" && sess.State != query.State {
			continue
		}
		if !hasAllTags(&sess, query.Tags) {
			continue
		}
		if query.NameContains != "" &&
			!strings.Contains(sess.Name, query.NameContains) &&
			!strings.Contains(sess.Description, query.NameContains) {
			continue
		}
		results = append(results, &sess)
	}

	sortSessions(results, query)

	if query.Offset > 0 {
		if query.Offset >= len(results) {
			return []*Session{}, nil
		}
		results = results[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}

// Suspend moves an Active session to Suspended.
func (r *Registry) Suspend(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, StateSuspended)
}

// Resume moves a Suspended session back to Active.
func (r *Registry) Resume(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, StateActive)
}

// Complete moves an Active or Suspended session to the terminal
// Completed state.
func (r *Registry) Complete(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, StateCompleted)
}

// transition applies a single state change under the session lock,
// persisting before return so a crash never loses a reported success.
func (r *Registry) transition(ctx context.Context, id uuid.UUID, to State) error {
	lock := r.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if !sess.State.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, sess.State, to)
	}

	sess.State = to
	sess.UpdatedAt = r.monotonic(sess.UpdatedAt)

	if err := r.persist(ctx, sess); err != nil {
		return err
	}

	r.logger.Debug("session transition", "session_id", id, "state", to)
	return nil
}

// UpdateMetadata replaces name, description, and tags. Nil pointers
// leave the corresponding field unchanged; nil tags leaves tags
// unchanged. Fails with ErrCompleted once the session is terminal.
func (r *Registry) UpdateMetadata(ctx context.Context, id uuid.UUID, name, description *string, tags []string) error {
	lock := r.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.State.Terminal() {
		return fmt.Errorf("%w: metadata is immutable", ErrCompleted)
	}

	if name != nil {
		sess.Name = *name
	}
	if description != nil {
		sess.Description = *description
	}
	if tags != nil {
		sess.Tags = append([]string(nil), tags...)
	}
	sess.UpdatedAt = r.monotonic(sess.UpdatedAt)

	if err := r.persist(ctx, sess); err != nil {
		return err
	}

	r.logger.Debug("updated session metadata", "session_id", id)
	return nil
}

// Delete removes the session record and every other key in its scope.
// Artifact cascade is the caller's responsibility (the manager runs
// DeleteForSession first to account for removed artifacts); DeleteScope
// here sweeps anything left.
func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	lock := r.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	if _, err := r.state.DeleteScope(ctx, statestore.SessionScope(id.String())); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	r.dropLock(id)
	r.logger.Debug("deleted session", "session_id", id)
	return nil
}

func (r *Registry) persist(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	if err := r.state.Put(ctx, recordKey(sess.ID), raw); err != nil {
		return fmt.Errorf("persist session %s: %w", sess.ID, err)
	}
	return nil
}

// monotonic returns the current time, clamped so UpdatedAt never moves
// backwards under clock skew.
func (r *Registry) monotonic(prev time.Time) time.Time {
	now := r.now().UTC()
	if now.Before(prev) {
		return prev
	}
	return now
}

func hasAllTags(sess *Session, tags []string) bool {
	for _, tag := range tags {
		if !sess.HasTag(tag) {
			return false
		}
	}
	return true
}

func sortSessions(sessions []*Session, query Query) {
	less := func(a, b *Session) bool {
		switch query.SortBy {
		case SortByUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		case SortByName:
			return a.Name < b.Name
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if query.Descending {
			return less(sessions[j], sessions[i])
		}
		return less(sessions[i], sessions[j])
	})
}
