package favorites

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/petalworks/storefront-core/pkg/logger"
	"github.com/petalworks/storefront-core/pkg/storage"
	"github.com/petalworks/storefront-core/pkg/types"
)

type failingKV struct {
	storage.KV
	setErr error
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.KV.Set(ctx, key, value)
}

func newTestStore(t *testing.T, kv storage.KV) *Store {
	t.Helper()
	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	store, err := NewStore(Params{KV: kv, Logger: log})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestToggleAddsThenRemoves(t *testing.T) {
	kv := storage.NewMemory()
	store := newTestStore(t, kv)
	ctx := context.Background()

	if err := kv.Set(ctx, "favorites", `["3"]`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	ids, err := store.Toggle(ctx, "7")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"3", "7"}) {
		t.Fatalf("expected [3 7], got %v", ids)
	}

	ids, err = store.Toggle(ctx, "7")
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"3"}) {
		t.Fatalf("double toggle must restore the start state, got %v", ids)
	}

	if value, ok, _ := kv.Get(ctx, "favorites"); !ok || value != `["3"]` {
		t.Fatalf("unexpected persisted snapshot: %q ok=%v", value, ok)
	}
}

func TestTogglePersistFailureKeepsMemoryState(t *testing.T) {
	kv := &failingKV{KV: storage.NewMemory(), setErr: errors.New("disk full")}
	store := newTestStore(t, kv)
	ctx := context.Background()

	ids, err := store.Toggle(ctx, "5")
	if err == nil {
		t.Fatalf("expected persist error")
	}
	if !reflect.DeepEqual(ids, []string{"5"}) {
		t.Fatalf("memory state must still flip, got %v", ids)
	}
	if !store.Contains("5") {
		t.Fatalf("store must keep the toggled id")
	}
}

func TestLoadReplacesMemoryState(t *testing.T) {
	kv := storage.NewMemory()
	store := newTestStore(t, kv)
	ctx := context.Background()

	if _, err := store.Toggle(ctx, "1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	// another writer replaces the snapshot; a focus-regain load picks it up
	if err := kv.Set(ctx, "favorites", `["8","9"]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ids := store.IDs(); !reflect.DeepEqual(ids, []string{"8", "9"}) {
		t.Fatalf("load must replace memory state, got %v", ids)
	}
}

func TestLoadCorruptSnapshotYieldsEmpty(t *testing.T) {
	kv := storage.NewMemory()
	store := newTestStore(t, kv)
	ctx := context.Background()

	if err := kv.Set(ctx, "favorites", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ids := store.IDs(); len(ids) != 0 {
		t.Fatalf("corrupt snapshot must yield empty list, got %v", ids)
	}
}

func TestMaterializeFollowsCatalogOrderAndKeepsUnknownIDs(t *testing.T) {
	kv := storage.NewMemory()
	store := newTestStore(t, kv)
	ctx := context.Background()

	for _, id := range []string{"9", "2", "1"} {
		if _, err := store.Toggle(ctx, id); err != nil {
			t.Fatalf("toggle %s: %v", id, err)
		}
	}

	snapshot := types.CatalogSnapshot{Items: []types.CatalogItem{
		{ID: "1", Name: "Rose", Price: decimal.RequireFromString("5.00")},
		{ID: "2", Name: "Tulip", Price: decimal.RequireFromString("3.00")},
	}}

	items := store.Materialize(snapshot)
	if len(items) != 2 || items[0].ID != "1" || items[1].ID != "2" {
		t.Fatalf("expected catalog-ordered [1 2], got %+v", items)
	}
	// the id the catalog no longer carries stays in the set
	if !store.Contains("9") {
		t.Fatalf("unknown id must stay favorited")
	}
}

func TestSubscribeObservesToggles(t *testing.T) {
	store := newTestStore(t, storage.NewMemory())

	var seen [][]string
	cancel := store.Subscribe(func(ids []string) { seen = append(seen, ids) })
	defer cancel()

	ctx := context.Background()
	if _, err := store.Toggle(ctx, "4"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := store.Toggle(ctx, "4"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if len(seen) != 2 || len(seen[0]) != 1 || len(seen[1]) != 0 {
		t.Fatalf("unexpected notifications: %v", seen)
	}
}
