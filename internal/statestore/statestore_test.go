package statestore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/koopa0/sessionvault/internal/log"
)

// storeFactories returns a constructor per backend so the contract tests
// run against every implementation.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemory()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "state.db"), log.NewNop())
			if err != nil {
				t.Fatalf("NewSQLite: %v", err)
			}
			t.Cleanup(func() {
				if err := s.Close(); err != nil {
					t.Errorf("Close: %v", err)
				}
			})
			return s
		},
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			if err := store.Put(ctx, "a:1", []byte("hello")); err != nil {
				t.Fatalf("Put: %v", err)
			}

			got, err := store.Get(ctx, "a:1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !bytes.Equal(got, []byte("hello")) {
				t.Errorf("Get = %q, want %q", got, "hello")
			}

			// Overwrite
			if err := store.Put(ctx, "a:1", []byte("world")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, err = store.Get(ctx, "a:1")
			if err != nil {
				t.Fatalf("Get after overwrite: %v", err)
			}
			if !bytes.Equal(got, []byte("world")) {
				t.Errorf("Get = %q, want %q", got, "world")
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			_, err := store.Get(context.Background(), "no:such:key")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing key: got %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			if err := store.Put(ctx, "a:1", []byte("x")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Delete(ctx, "a:1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Get(ctx, "a:1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete: got %v, want ErrNotFound", err)
			}

			// Deleting a missing key is not an error.
			if err := store.Delete(ctx, "a:1"); err != nil {
				t.Errorf("Delete missing key: %v", err)
			}
		})
	}
}

func TestStore_PutBatch(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			entries := []Entry{
				{Key: "b:1", Value: []byte("one")},
				{Key: "b:2", Value: []byte("two")},
				{Key: "b:3", Value: []byte("three")},
			}
			if err := store.PutBatch(ctx, entries); err != nil {
				t.Fatalf("PutBatch: %v", err)
			}

			for _, e := range entries {
				got, err := store.Get(ctx, e.Key)
				if err != nil {
					t.Fatalf("Get %s: %v", e.Key, err)
				}
				if !bytes.Equal(got, e.Value) {
					t.Errorf("Get %s = %q, want %q", e.Key, got, e.Value)
				}
			}

			// Empty batch is a no-op.
			if err := store.PutBatch(ctx, nil); err != nil {
				t.Errorf("PutBatch(nil): %v", err)
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			for _, key := range []string{"s:a:1", "s:a:2", "s:b:1", "other"} {
				if err := store.Put(ctx, key, []byte("v")); err != nil {
					t.Fatalf("Put %s: %v", key, err)
				}
			}

			keys, err := store.List(ctx, "s:a:")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := []string{"s:a:1", "s:a:2"}
			if len(keys) != len(want) {
				t.Fatalf("List = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("List[%d] = %q, want %q", i, keys[i], want[i])
				}
			}

			// No matches: empty, not an error.
			keys, err = store.List(ctx, "zzz:")
			if err != nil {
				t.Fatalf("List no matches: %v", err)
			}
			if len(keys) != 0 {
				t.Errorf("List no matches = %v, want empty", keys)
			}
		})
	}
}

func TestStore_DeleteScope(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			scope := SessionScope("sess-1")
			other := SessionScope("sess-2")

			if err := store.Put(ctx, scope.Key("meta"), []byte("m")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put(ctx, scope.Key("artifacts", "abc"), []byte("a")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put(ctx, other.Key("meta"), []byte("m")); err != nil {
				t.Fatalf("Put: %v", err)
			}

			count, err := store.DeleteScope(ctx, scope)
			if err != nil {
				t.Fatalf("DeleteScope: %v", err)
			}
			if count != 2 {
				t.Errorf("DeleteScope count = %d, want 2", count)
			}

			// Other scope untouched.
			if _, err := store.Get(ctx, other.Key("meta")); err != nil {
				t.Errorf("Get other scope: %v", err)
			}
		})
	}
}

func TestSessionScope_Key(t *testing.T) {
	scope := SessionScope("abc")

	if got, want := scope.Prefix(), "session:abc:"; got != want {
		t.Errorf("Prefix = %q, want %q", got, want)
	}
	if got, want := scope.Key("artifacts", "deadbeef"), "session:abc:artifacts:deadbeef"; got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"100%", `100\%`},
		{"under_score", `under\_score`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
