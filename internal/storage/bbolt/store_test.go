package bbolt

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

func TestStoreSetGet(t *testing.T) {
	store := openStore(t)

	if err := store.SetString(context.Background(), "wisdom_data", `{"skills":[]}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := store.GetString(context.Background(), "wisdom_data")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != `{"skills":[]}` {
		t.Fatalf("expected stored payload, got %q", value)
	}
}

func TestStoreGetMissingKey(t *testing.T) {
	store := openStore(t)

	_, err := store.GetString(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store := openStore(t)

	if err := store.SetString(context.Background(), "shop_data", "{}"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Remove(context.Background(), "shop_data"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.GetString(context.Background(), "shop_data"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
	// Removing a missing key is not an error.
	if err := store.Remove(context.Background(), "shop_data"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestStoreKeysAndClear(t *testing.T) {
	store := openStore(t)

	for _, key := range []string{"schema_version", "health_data"} {
		if err := store.SetString(context.Background(), key, "x"); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	keys, err := store.Keys(context.Background())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
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

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}
