package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"shelterdb/internal/persistence/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "state.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if err := store.Put(ctx, "animalsData", []byte(`{"animals":[{"id":1}]}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "animalsData", []byte(`{"animals":[{"id":2}]}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_ = store.Close()

	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer func() { _ = reloaded.Close() }()
	v, ok, err := reloaded.Get(ctx, "animalsData")
	if err != nil || !ok {
		t.Fatalf("get after reload: %v %v", ok, err)
	}
	if string(v) != `{"animals":[{"id":2}]}` {
		t.Fatalf("expected last write to win, got %s", v)
	}
	if reloaded.Path() != path {
		t.Fatalf("unexpected path %s", reloaded.Path())
	}
}

func TestSQLiteStoreKeysAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, k := range []string{"roomsData", "animalsData"} {
		if err := store.Put(ctx, k, []byte("{}")); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "animalsData" || keys[1] != "roomsData" {
		t.Fatalf("unexpected keys %v", keys)
	}
	removed, err := store.Delete(ctx, "roomsData")
	if err != nil || !removed {
		t.Fatalf("delete: %v %v", removed, err)
	}
	removed, err = store.Delete(ctx, "roomsData")
	if err != nil || removed {
		t.Fatalf("expected second delete to report false")
	}
	if _, ok, err := store.Get(ctx, "roomsData"); err != nil || ok {
		t.Fatalf("expected missing key after delete")
	}
	if store.Driver() != core.DriverSQLite {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestSQLiteStoreEmptyKey(t *testing.T) {
	store := newTempStore(t)
	if err := store.Put(context.Background(), "", []byte("x")); !errors.Is(err, core.ErrEmptyKey) {
		t.Fatalf("expected empty key error, got %v", err)
	}
}

func TestSQLiteStoreCreatesStateTable(t *testing.T) {
	store := newTempStore(t)
	var name string
	if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", "state").Scan(&name); err != nil {
		t.Fatalf("lookup state table: %v", err)
	}
	if name != "state" {
		t.Fatalf("expected state table, got %s", name)
	}
}
