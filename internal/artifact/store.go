package artifact

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

// DefaultMaxArtifactSize caps a single artifact payload.
const DefaultMaxArtifactSize = 100 * 1024 * 1024 // 100 MiB

// Config tunes the store. Zero values select the defaults.
type Config struct {
	// CompressionThreshold is the payload size in bytes above which Put
	// attempts compression. Default: DefaultCompressionThreshold.
	CompressionThreshold int

	// MaxArtifactSize rejects payloads larger than this many bytes.
	// Default: DefaultMaxArtifactSize.
	MaxArtifactSize int64
}

func (c Config) withDefaults() Config {
	if c.CompressionThreshold <= 0 {
		c.CompressionThreshold = DefaultCompressionThreshold
	}
	if c.MaxArtifactSize <= 0 {
		c.MaxArtifactSize = DefaultMaxArtifactSize
	}
	return c
}

// Store persists artifacts in a state store under per-session scopes.
//
// Store is safe for concurrent use. The per-session stats record is a
// load-modify-write, so updates to it are serialized by a per-session
// lock; puts of identical content to the same session race benignly
// because deduplication makes the write idempotent.
type Store struct {
	state  statestore.Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewStore creates an artifact store on top of the given state store.
func NewStore(state statestore.Store, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state:  state,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing stats writes for one session.
func (s *Store) sessionLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func (s *Store) dropLock(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
}

// Key layout inside a session scope:
//
//	session:{sid}:artifact:{id}:meta
//	session:{sid}:artifact:{id}:blob
//	session:{sid}:artifact-stats
func metaKey(scope statestore.Scope, id string) string {
	return scope.Key("artifact", id, "meta")
}

func blobKey(scope statestore.Scope, id string) string {
	return scope.Key("artifact", id, "blob")
}

func statsKey(scope statestore.Scope) string {
	return scope.Key("artifact-stats")
}

// Put stores payload under its content hash and returns the metadata
// record. If the session already holds an artifact with this content,
// Put is a no-op that returns the existing record.
//
// The blob, metadata, and stats records are written in one atomic batch:
// a failure (or caller timeout) leaves no partial artifact visible.
func (s *Store) Put(ctx context.Context, sessionID uuid.UUID, typ Type, name string, payload []byte) (Metadata, error) {
	if !typ.Valid() {
		return Metadata{}, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	if err := ValidateName(name); err != nil {
		return Metadata{}, err
	}
	if int64(len(payload)) > s.cfg.MaxArtifactSize {
		return Metadata{}, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrTooLarge, len(payload), s.cfg.MaxArtifactSize)
	}

	id := HashContent(payload)
	scope := statestore.SessionScope(sessionID.String())

	// Dedup fast path: an existing id means byte-identical content is
	// already stored for this session. Checked before paying for
	// compression.
	if existing, err := s.loadMetadata(ctx, scope, id); err == nil {
		if err := s.bumpDedup(ctx, sessionID, scope); err != nil {
			return Metadata{}, err
		}
		s.logger.Debug("deduplicated artifact",
			"session_id", sessionID, "artifact_id", id, "name", name)
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Metadata{}, err
	}

	stored := payload
	compressed := false
	if len(payload) > s.cfg.CompressionThreshold {
		if frame, ok := Compress(payload); ok {
			stored = frame
			compressed = true
		}
	}

	// The stats record is a load-modify-write shared by every put on the
	// session, so the read and the batch carrying it run under the
	// session lock. Hashing and compression stay outside it.
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock: an identical-content put may have landed
	// after the fast-path miss.
	if existing, err := s.loadMetadata(ctx, scope, id); err == nil {
		if err := s.applyStats(ctx, scope, 0, 0, 1); err != nil {
			return Metadata{}, err
		}
		s.logger.Debug("deduplicated artifact",
			"session_id", sessionID, "artifact_id", id, "name", name)
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Metadata{}, err
	}

	meta := Metadata{
		ID:             id,
		SessionID:      sessionID,
		Type:           typ,
		Name:           name,
		SizeBytes:      int64(len(payload)),
		StoredBytes:    int64(len(stored)),
		Compressed:     compressed,
		CreatedAt:      s.now().UTC(),
		StorageVersion: StorageVersion,
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return Metadata{}, fmt.Errorf("marshal artifact metadata: %w", err)
	}

	stats, err := s.loadStats(ctx, scope)
	if err != nil {
		return Metadata{}, err
	}
	stats.ArtifactCount++
	stats.TotalBytes += meta.StoredBytes
	stats.UpdatedAt = s.now().UTC()
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return Metadata{}, fmt.Errorf("marshal artifact stats: %w", err)
	}

	entries := []statestore.Entry{
		{Key: blobKey(scope, id), Value: stored},
		{Key: metaKey(scope, id), Value: metaJSON},
		{Key: statsKey(scope), Value: statsJSON},
	}
	if err := s.state.PutBatch(ctx, entries); err != nil {
		return Metadata{}, fmt.Errorf("store artifact %s: %w", id, err)
	}

	s.logger.Debug("stored artifact",
		"session_id", sessionID,
		"artifact_id", id,
		"name", name,
		"size_bytes", meta.SizeBytes,
		"stored_bytes", meta.StoredBytes,
		"compressed", compressed)
	return meta, nil
}

// Get loads an artifact and its payload, decompressing transparently and
// verifying the payload still matches its content hash.
func (s *Store) Get(ctx context.Context, sessionID uuid.UUID, id string) (*Artifact, error) {
	scope := statestore.SessionScope(sessionID.String())

	meta, err := s.loadMetadata(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	stored, err := s.state.Get(ctx, blobKey(scope, id))
	if errors.Is(err, statestore.ErrNotFound) {
		// Metadata without a blob should be impossible given batch
		// atomicity; treat it as corruption rather than absence.
		return nil, fmt.Errorf("%w: blob missing for %s", ErrCorrupted, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact blob %s: %w", id, err)
	}

	payload := stored
	if meta.Compressed {
		payload, err = Decompress(stored)
		if err != nil {
			return nil, err
		}
	}

	if HashContent(payload) != id {
		return nil, fmt.Errorf("%w: content hash mismatch for %s", ErrCorrupted, id)
	}

	return &Artifact{Metadata: meta, Payload: payload}, nil
}

// Query returns metadata for the session's artifacts matching filter,
// ordered by creation time. No matches yields an empty slice, never an
// error.
func (s *Store) Query(ctx context.Context, sessionID uuid.UUID, filter Filter) ([]Metadata, error) {
	scope := statestore.SessionScope(sessionID.String())

	keys, err := s.state.List(ctx, scope.Key("artifact")+":")
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	results := make([]Metadata, 0, len(keys)/2)
	for _, key := range keys {
		if !strings.HasSuffix(key, ":meta") {
			continue
		}
		raw, err := s.state.Get(ctx, key)
		if errors.Is(err, statestore.ErrNotFound) {
			// Deleted between List and Get (concurrent cascade); a
			// vanished artifact is a non-match, not a query failure.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load artifact metadata %s: %w", key, err)
		}
		var meta Metadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: unmarshal metadata %s: %v", ErrCorrupted, key, err)
		}

		if filter.Type != "" && meta.Type != filter.Type {
			continue
		}
		if filter.NamePrefix != "" && !strings.HasPrefix(meta.Name, filter.NamePrefix) {
			continue
		}
		results = append(results, meta)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].ID < results[j].ID
		}
		if filter.Descending {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return []Metadata{}, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(results) {
		results = results[:filter.Limit]
	}
	return results, nil
}

// DeleteForSession removes every artifact owned by the session and its
// stats record, returning the number of artifacts removed. Used by the
// session deletion cascade.
func (s *Store) DeleteForSession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	scope := statestore.SessionScope(sessionID.String())

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	keys, err := s.state.List(ctx, scope.Key("artifact")+":")
	if err != nil {
		return 0, fmt.Errorf("list artifacts: %w", err)
	}
	var count int64
	for _, key := range keys {
		if strings.HasSuffix(key, ":meta") {
			count++
		}
	}

	if _, err := s.state.DeleteScope(ctx, statestore.Scope(scope.Key("artifact")+":")); err != nil {
		return 0, fmt.Errorf("delete artifacts: %w", err)
	}
	if err := s.state.Delete(ctx, statsKey(scope)); err != nil {
		return 0, fmt.Errorf("delete artifact stats: %w", err)
	}
	s.dropLock(sessionID)

	s.logger.Debug("deleted artifacts for session",
		"session_id", sessionID, "count", count)
	return count, nil
}

// Stats returns the session's storage accounting. A session with no
// artifacts has zero stats, not an error.
func (s *Store) Stats(ctx context.Context, sessionID uuid.UUID) (Stats, error) {
	return s.loadStats(ctx, statestore.SessionScope(sessionID.String()))
}

func (s *Store) loadMetadata(ctx context.Context, scope statestore.Scope, id string) (Metadata, error) {
	raw, err := s.state.Get(ctx, metaKey(scope, id))
	if errors.Is(err, statestore.ErrNotFound) {
		return Metadata{}, ErrNotFound
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("load artifact metadata %s: %w", id, err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: unmarshal metadata %s: %v", ErrCorrupted, id, err)
	}
	return meta, nil
}

func (s *Store) loadStats(ctx context.Context, scope statestore.Scope) (Stats, error) {
	raw, err := s.state.Get(ctx, statsKey(scope))
	if errors.Is(err, statestore.ErrNotFound) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("load artifact stats: %w", err)
	}

	var stats Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return Stats{}, fmt.Errorf("%w: unmarshal stats: %v", ErrCorrupted, err)
	}
	return stats, nil
}

// bumpDedup records a deduplicated put under the session lock.
func (s *Store) bumpDedup(ctx context.Context, sessionID uuid.UUID, scope statestore.Scope) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return s.applyStats(ctx, scope, 0, 0, 1)
}

// applyStats folds deltas into the stats record. Callers hold the
// session lock.
func (s *Store) applyStats(ctx context.Context, scope statestore.Scope, countDelta, bytesDelta, dedupDelta int64) error {
	stats, err := s.loadStats(ctx, scope)
	if err != nil {
		return err
	}
	stats.ArtifactCount += countDelta
	stats.TotalBytes += bytesDelta
	stats.Deduplicated += dedupDelta
	stats.UpdatedAt = s.now().UTC()

	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal artifact stats: %w", err)
	}
	if err := s.state.Put(ctx, statsKey(scope), raw); err != nil {
		return fmt.Errorf("update artifact stats: %w", err)
	}
	return nil
}
