package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kops88/NowGame/internal/storage"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nowgame.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return store
}

func TestStoreSetGetUpsert(t *testing.T) {
	store := openStore(t)

	if err := store.SetString(context.Background(), "wisdom_data", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetString(context.Background(), "wisdom_data", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, err := store.GetString(context.Background(), "wisdom_data")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "v2" {
		t.Fatalf("expected overwritten value v2, got %q", value)
	}
}

func TestStoreGetMissingKey(t *testing.T) {
	store := openStore(t)

	_, err := store.GetString(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRemoveKeysClear(t *testing.T) {
	store := openStore(t)

	for _, key := range []string{"a", "b", "c"} {
		if err := store.SetString(context.Background(), key, key); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if err := store.Remove(context.Background(), "b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	keys, err := store.Keys(context.Background())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Fatalf("expected keys [a c], got %v", keys)
	}

	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	keys, err = store.Keys(context.Background())
	if err != nil {
		t.Fatalf("keys after clear: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty store after clear, got %v", keys)
	}
}

func TestStoreInitIsIdempotent(t *testing.T) {
	store := openStore(t)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
}
