package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/koopa0/sessionvault/internal/log"
	"github.com/koopa0/sessionvault/internal/statestore"
)

func newTestStore(t *testing.T) (*Store, *statestore.Memory) {
	t.Helper()
	state := statestore.NewMemory()
	return NewStore(state, Config{}, log.NewNop()), state
}

func TestStore_PutGet_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte{}},
		{"small", []byte("Explain X")},
		{"below threshold", bytes.Repeat([]byte("a"), DefaultCompressionThreshold-1)},
		{"at threshold", bytes.Repeat([]byte("a"), DefaultCompressionThreshold)},
		{"above threshold compressible", bytes.Repeat([]byte("a"), DefaultCompressionThreshold+1)},
		{"well above threshold", bytes.Repeat([]byte("roundtrip "), 10_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			ctx := context.Background()
			sessionID := uuid.New()

			meta, err := store.Put(ctx, sessionID, TypeToolOutput, "out.bin", tt.payload)
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			if meta.SizeBytes != int64(len(tt.payload)) {
				t.Errorf("SizeBytes = %d, want %d", meta.SizeBytes, len(tt.payload))
			}

			got, err := store.Get(ctx, sessionID, meta.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !bytes.Equal(got.Payload, tt.payload) {
				t.Error("payload mismatch after round-trip")
			}
			// Reported size is always the original, compressed or not.
			if got.Metadata.SizeBytes != int64(len(tt.payload)) {
				t.Errorf("reported SizeBytes = %d, want %d", got.Metadata.SizeBytes, len(tt.payload))
			}
		})
	}
}

func TestStore_Put_CompressesAboveThreshold(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New()

	payload := bytes.Repeat([]byte("compress me "), 2_000) // ~24 KiB, highly compressible
	meta, err := store.Put(ctx, sessionID, TypeGeneratedFile, "big.txt", payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if !meta.Compressed {
		t.Fatal("expected artifact to be stored compressed")
	}
	if meta.StoredBytes >= meta.SizeBytes {
		t.Errorf("StoredBytes (%d) should be smaller than SizeBytes (%d)", meta.StoredBytes, meta.SizeBytes)
	}
}

func TestStore_Put_SmallPayloadStoredRaw(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New()

	payload := []byte("tiny")
	meta, err := store.Put(ctx, sessionID, TypeUserInput, "q.txt", payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if meta.Compressed {
		t.Error("payload below threshold must not be compressed")
	}
	if meta.StoredBytes != meta.SizeBytes {
		t.Errorf("StoredBytes = %d, want %d", meta.StoredBytes, meta.SizeBytes)
	}
}

func TestStore_Put_Deduplicates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New()
	payload := []byte("same content")

	first, err := store.Put(ctx, sessionID, TypeUserInput, "a.txt", payload)
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	second, err := store.Put(ctx, sessionID, TypeUserInput, "a.txt", payload)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("dedup broken: ids %s vs %s", first.ID, second.ID)
	}

	stats, err := store.Stats(ctx, sessionID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ArtifactCount != 1 {
		t.Errorf("ArtifactCount = %d, want 1 (storage must not double)", stats.ArtifactCount)
	}
	if stats.Deduplicated != 1 {
		t.Errorf("Deduplicated = %d, want 1", stats.Deduplicated)
	}
	if stats.TotalBytes != first.StoredBytes {
		t.Errorf("TotalBytes = %d, want %d", stats.TotalBytes, first.StoredBytes)
	}
}

func TestStore_Put_ConcurrentDistinctContent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	metas := make(chan Metadata, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meta, err := store.Put(ctx, sessionID, TypeOther, "f",
				[]byte(fmt.Sprintf("distinct payload %02d", i)))
			if err != nil {
				errs <- err
				return
			}
			metas <- meta
		}()
	}
	wg.Wait()
	close(errs)
	close(metas)
	for err := range errs {
		t.Fatalf("Put: %v", err)
	}

	var wantBytes int64
	for meta := range metas {
		wantBytes += meta.StoredBytes
	}

	// Every put must land in the stats: no increment may be lost to a
	// concurrent read of the same stats snapshot.
	stats, err := store.Stats(ctx, sessionID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ArtifactCount != workers {
		t.Errorf("ArtifactCount = %d, want %d", stats.ArtifactCount, workers)
	}
	if stats.TotalBytes != wantBytes {
		t.Errorf("TotalBytes = %d, want %d", stats.TotalBytes, wantBytes)
	}
}

func TestStore_Put_ConcurrentIdenticalContent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New()
	payload := []byte("raced bytes")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Put(ctx, sessionID, TypeOther, "f", payload); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Put: %v", err)
	}

	stats, err := store.Stats(ctx, sessionID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ArtifactCount != 1 {
		t.Errorf("ArtifactCount = %d, want 1 (identical content dedups)", stats.ArtifactCount)
	}
	if stats.Deduplicated != workers-1 {
		t.Errorf("Deduplicated = %d, want %d", stats.Deduplicated, workers-1)
	}
	if stats.TotalBytes != int64(len(payload)) {
		t.Errorf("TotalBytes = %d, want %d", stats.TotalBytes, len(payload))
	}
}

func TestStore_Put_SameContentDifferentSessions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	payload := []byte("shared bytes")

	sessionA := uuid.New()
	sessionB := uuid.New()

	metaA, err := store.Put(ctx, sessionA, TypeOther, "x", payload)
	if err != nil {
		t.Fatalf("Put A: %v", err)
	}
	metaB, err := store.Put(ctx, sessionB, TypeOther, "x", payload)
	if err != nil {
		t.Fatalf("Put B: %v", err)
	}

	// Content ids match (content-derived), but each session owns its copy.
	if metaA.ID != metaB.ID {
		t.Error("content ids should match across sessions")
	}

	statsB, err := store.Stats(ctx, sessionB)
	if err != nil {
		t.Fatalf("Stats B: %v", err)
	}
	if statsB.ArtifactCount != 1 {
		t.Errorf("session B ArtifactCount = %d, want 1", statsB.ArtifactCount)
	}
}

func TestStore_Put_Validation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New()

	t.Run("invalid type", func(t *testing.T) {
		_, err := store.Put(ctx, sessionID, Type("bogus"), "f.txt", []byte("x"))
		if !errors.Is(err, ErrInvalidType) {
			t.Errorf("got %v, want ErrInvalidType", err)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := store.Put(ctx, sessionID, TypeOther, "../escape", []byte("x"))
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("got %v, want ErrInvalidName", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		small := NewStore(statestore.NewMemory(), Config{MaxArtifactSize: 8}, log.NewNop())
		_, err := small.Put(ctx, sessionID, TypeOther, "f", []byte("way too big"))
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("got %v, want ErrTooLarge", err)
		}
	})
}

func TestStore_Get_Missing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), uuid.New(), HashContent([]byte("never stored")))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestStore_Get_CorruptedBlob(t *testing.T) {
	store, state := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New()

	meta, err := store.Put(ctx, sessionID, TypeOther, "f", []byte("original content"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Tamper with the stored blob behind the store's back.
	scope := statestore.SessionScope(sessionID.String())
	if err := state.Put(ctx, blobKey(scope, meta.ID), []byte("tampered")); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	_, err = store.Get(ctx, sessionID, meta.ID)
	if !errors.Is(err, ErrCorrupted) {
		t.Errorf("got %v, want ErrCorrupted", err)
	}
}

func TestStore_Query(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New()

	seed := []struct {
		typ  Type
		name string
		data string
	}{
		{TypeUserInput, "query.txt", "Explain X"},
		{TypeToolOutput, "result.json", `{"ok":true}`},
		{TypeToolOutput, "result.log", "done"},
		{TypeGeneratedFile, "report.md", "# Report"},
	}
	for _, s := range seed {
		if _, err := store.Put(ctx, sessionID, s.typ, s.name, []byte(s.data)); err != nil {
			t.Fatalf("Put %s: %v", s.name, err)
		}
	}

	t.Run("by type", func(t *testing.T) {
		got, err := store.Query(ctx, sessionID, Filter{Type: TypeToolOutput})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d results, want 2", len(got))
		}
	})

	t.Run("by name prefix", func(t *testing.T) {
		got, err := store.Query(ctx, sessionID, Filter{NamePrefix: "result."})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d results, want 2", len(got))
		}
	})

	t.Run("type and prefix", func(t *testing.T) {
		got, err := store.Query(ctx, sessionID, Filter{Type: TypeUserInput, NamePrefix: "query"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(got) != 1 || got[0].Name != "query.txt" {
			t.Fatalf("got %v, want single query.txt", got)
		}
	})

	t.Run("no matches is empty not error", func(t *testing.T) {
		got, err := store.Query(ctx, sessionID, Filter{NamePrefix: "nonexistent"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("got %v, want empty non-nil slice", got)
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		all, err := store.Query(ctx, sessionID, Filter{})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		page, err := store.Query(ctx, sessionID, Filter{Limit: 2, Offset: 1})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(page) != 2 {
			t.Fatalf("got %d results, want 2", len(page))
		}
		if page[0].ID != all[1].ID {
			t.Error("offset did not skip the first result")
		}
	})
}

// vanishingStore hides one key from Get while List still returns it,
// standing in for an artifact deleted between the two calls.
type vanishingStore struct {
	*statestore.Memory
	vanished string
}

func (v *vanishingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == v.vanished {
		return nil, statestore.ErrNotFound
	}
	return v.Memory.Get(ctx, key)
}

func TestStore_Query_SkipsVanishedArtifact(t *testing.T) {
	state := &vanishingStore{Memory: statestore.NewMemory()}
	store := NewStore(state, Config{}, log.NewNop())
	ctx := context.Background()
	sessionID := uuid.New()

	kept, err := store.Put(ctx, sessionID, TypeOther, "kept", []byte("kept"))
	if err != nil {
		t.Fatalf("Put kept: %v", err)
	}
	gone, err := store.Put(ctx, sessionID, TypeOther, "gone", []byte("gone"))
	if err != nil {
		t.Fatalf("Put gone: %v", err)
	}

	scope := statestore.SessionScope(sessionID.String())
	state.vanished = metaKey(scope, gone.ID)

	got, err := store.Query(ctx, sessionID, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != kept.ID {
		t.Fatalf("got %v, want only %s", got, kept.ID)
	}
}

func TestStore_DeleteForSession(t *testing.T) {
	store, state := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New()
	other := uuid.New()

	for i, data := range []string{"one", "two", "three"} {
		name := []string{"a", "b", "c"}[i]
		if _, err := store.Put(ctx, sessionID, TypeOther, name, []byte(data)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	keep, err := store.Put(ctx, other, TypeOther, "keep", []byte("kept"))
	if err != nil {
		t.Fatalf("Put other: %v", err)
	}

	count, err := store.DeleteForSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("DeleteForSession: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	// All keys for the session are gone.
	keys, err := state.List(ctx, statestore.SessionScope(sessionID.String()).Key("artifact")+":")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("leftover keys after cascade: %v", keys)
	}

	// Other session untouched.
	if _, err := store.Get(ctx, other, keep.ID); err != nil {
		t.Errorf("other session artifact lost: %v", err)
	}
}
