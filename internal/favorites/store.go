// Package favorites keeps the customer's favorite item ids in memory and
// mirrors them into key/value storage as a JSON snapshot.
package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pkgerrors "github.com/petalworks/storefront-core/pkg/errors"
	"github.com/petalworks/storefront-core/pkg/events"
	"github.com/petalworks/storefront-core/pkg/logger"
	"github.com/petalworks/storefront-core/pkg/metrics"
	"github.com/petalworks/storefront-core/pkg/storage"
	"github.com/petalworks/storefront-core/pkg/types"
)

const storageKey = "favorites"

// Store holds the favorites list. The in-memory list is the source of truth
// between loads; storage writes are full snapshots, last writer wins.
type Store struct {
	kv  storage.KV
	log *logger.Logger
	met *metrics.StoreMetrics
	hub *events.Hub[[]string]

	mu  sync.Mutex
	ids []string
}

// Params bundles the dependencies required to build a favorites store.
type Params struct {
	KV      storage.KV
	Logger  *logger.Logger
	Metrics *metrics.StoreMetrics
}

// NewStore constructs an empty favorites store.
func NewStore(params Params) (*Store, error) {
	if params.KV == nil {
		return nil, fmt.Errorf("kv store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Store{
		kv:  params.KV,
		log: params.Logger,
		met: params.Metrics,
		hub: events.NewHub[[]string](),
	}, nil
}

// Load replaces the in-memory list with the persisted snapshot. Screens call
// it again on focus regain to pick up writes from other store instances. A
// missing or corrupt snapshot yields the empty list.
func (s *Store) Load(ctx context.Context) error {
	value, ok, err := s.kv.Get(ctx, storageKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading favorites")
	}

	var ids []string
	if ok && value != "" {
		if err := json.Unmarshal([]byte(value), &ids); err != nil {
			s.log.Warn(ctx, "discarding corrupt favorites snapshot")
			ids = nil
		}
	}

	s.mu.Lock()
	s.ids = ids
	snapshot := s.idsLocked()
	s.mu.Unlock()

	s.hub.Publish(snapshot)
	return nil
}

// Toggle adds the id when absent and removes it when present, so two toggles
// in a row always restore the starting state. The list is persisted after the
// in-memory flip; a persist failure is returned but the memory state stands.
func (s *Store) Toggle(ctx context.Context, itemID string) ([]string, error) {
	s.mu.Lock()
	found := -1
	for i, id := range s.ids {
		if id == itemID {
			found = i
			break
		}
	}
	if found >= 0 {
		s.ids = append(s.ids[:found], s.ids[found+1:]...)
	} else {
		s.ids = append(s.ids, itemID)
	}
	snapshot := s.idsLocked()
	s.mu.Unlock()

	s.met.IncFavoriteToggle()
	s.hub.Publish(snapshot)
	if err := s.persist(ctx, snapshot); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// Contains reports whether the id is currently a favorite.
func (s *Store) Contains(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.ids {
		if id == itemID {
			return true
		}
	}
	return false
}

// IDs returns a copy of the favorite ids in insertion order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idsLocked()
}

// Materialize resolves the favorite ids against a catalog snapshot, in
// catalog order. Ids the catalog no longer carries are skipped from the view
// but stay in the persisted set, so they reappear if the item returns.
func (s *Store) Materialize(snapshot types.CatalogSnapshot) []types.CatalogItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ids) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(s.ids))
	for _, id := range s.ids {
		wanted[id] = struct{}{}
	}

	var items []types.CatalogItem
	for _, item := range snapshot.Items {
		if _, ok := wanted[item.ID]; ok {
			items = append(items, item)
		}
	}
	return items
}

// Subscribe registers an observer for favorites changes.
func (s *Store) Subscribe(fn func([]string)) (cancel func()) {
	return s.hub.Subscribe(fn)
}

func (s *Store) persist(ctx context.Context, ids []string) error {
	encoded, err := json.Marshal(ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding favorites")
	}
	if err := s.kv.Set(ctx, storageKey, string(encoded)); err != nil {
		s.log.Error(ctx, "persisting favorites", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting favorites")
	}
	return nil
}

func (s *Store) idsLocked() []string {
	return append([]string(nil), s.ids...)
}
