// Package cart keeps the shopping cart in memory and mirrors it into
// key/value storage as a JSON snapshot after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/petalworks/storefront-core/pkg/errors"
	"github.com/petalworks/storefront-core/pkg/events"
	"github.com/petalworks/storefront-core/pkg/logger"
	"github.com/petalworks/storefront-core/pkg/metrics"
	"github.com/petalworks/storefront-core/pkg/money"
	"github.com/petalworks/storefront-core/pkg/storage"
	"github.com/petalworks/storefront-core/pkg/types"
)

const storageKey = "cart"

// Store holds the cart lines. Mutations flip the in-memory state first and
// persist a full snapshot afterwards; a persist failure never rolls the
// memory state back.
type Store struct {
	kv  storage.KV
	log *logger.Logger
	met *metrics.StoreMetrics
	hub *events.Hub[[]types.CartLine]

	mu    sync.Mutex
	lines []types.CartLine
}

// Params bundles the dependencies required to build a cart store.
type Params struct {
	KV      storage.KV
	Logger  *logger.Logger
	Metrics *metrics.StoreMetrics
}

// NewStore constructs an empty cart store.
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
		hub: events.NewHub[[]types.CartLine](),
	}, nil
}

// Load replaces the in-memory cart with the persisted snapshot, dropping
// lines with non-positive quantities and merging duplicate item ids. A
// missing or corrupt snapshot yields the empty cart.
func (s *Store) Load(ctx context.Context) error {
	value, ok, err := s.kv.Get(ctx, storageKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading cart")
	}

	var raw []types.CartLine
	if ok && value != "" {
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			s.log.Warn(ctx, "discarding corrupt cart snapshot")
			raw = nil
		}
	}

	s.mu.Lock()
	s.lines = sanitize(raw)
	snapshot := s.linesLocked()
	s.mu.Unlock()

	s.hub.Publish(snapshot)
	return nil
}

// AddOrIncrement puts the item in the cart, or bumps its quantity by one when
// a line for it already exists. The item must be present in the given catalog
// snapshot; an unknown id returns CodeNotFound and leaves the cart untouched.
func (s *Store) AddOrIncrement(ctx context.Context, itemID string, snapshot types.CatalogSnapshot) ([]types.CartLine, error) {
	var item types.CatalogItem
	found := false
	for _, candidate := range snapshot.Items {
		if candidate.ID == itemID {
			item = candidate
			found = true
			break
		}
	}
	if !found {
		return s.Lines(), pkgerrors.New(pkgerrors.CodeNotFound, "item not in catalog").
			WithDetails(map[string]any{"item_id": itemID})
	}

	s.mu.Lock()
	merged := false
	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			s.lines[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		s.lines = append(s.lines, types.CartLine{
			ItemID:    item.ID,
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: item.Price,
			Quantity:  1,
		})
	}
	lines := s.linesLocked()
	s.mu.Unlock()

	s.met.IncCartMutation("add")
	return s.finishMutation(ctx, lines)
}

// SetQuantity applies the delta to the line's quantity. A resulting quantity
// of zero or less removes the line; a delta for a missing line is a no-op.
func (s *Store) SetQuantity(ctx context.Context, itemID string, delta int) ([]types.CartLine, error) {
	s.mu.Lock()
	changed := false
	for i := range s.lines {
		if s.lines[i].ItemID != itemID {
			continue
		}
		next := s.lines[i].Quantity + delta
		if next <= 0 {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
		} else {
			s.lines[i].Quantity = next
		}
		changed = true
		break
	}
	lines := s.linesLocked()
	s.mu.Unlock()

	if !changed {
		return lines, nil
	}
	s.met.IncCartMutation("set_quantity")
	return s.finishMutation(ctx, lines)
}

// Remove deletes the line. Removing an absent item is a no-op.
func (s *Store) Remove(ctx context.Context, itemID string) ([]types.CartLine, error) {
	s.mu.Lock()
	changed := false
	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			changed = true
			break
		}
	}
	lines := s.linesLocked()
	s.mu.Unlock()

	if !changed {
		return lines, nil
	}
	s.met.IncCartMutation("remove")
	return s.finishMutation(ctx, lines)
}

// Clear empties the cart, typically after a confirmed checkout.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()

	s.met.IncCartMutation("clear")
	_, err := s.finishMutation(ctx, nil)
	return err
}

// Lines returns a copy of the cart lines.
func (s *Store) Lines() []types.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linesLocked()
}

// Total computes the cart total: each line rounded to cents, then summed.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make([]decimal.Decimal, 0, len(s.lines))
	for _, line := range s.lines {
		totals = append(totals, money.LineTotal(line.UnitPrice, line.Quantity))
	}
	return money.Sum(totals...)
}

// Subscribe registers an observer for cart changes.
func (s *Store) Subscribe(fn func([]types.CartLine)) (cancel func()) {
	return s.hub.Subscribe(fn)
}

func (s *Store) finishMutation(ctx context.Context, lines []types.CartLine) ([]types.CartLine, error) {
	s.hub.Publish(lines)

	encoded, err := json.Marshal(lines)
	if err != nil {
		return lines, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
	}
	if err := s.kv.Set(ctx, storageKey, string(encoded)); err != nil {
		s.log.Error(ctx, "persisting cart", err)
		return lines, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting cart")
	}
	return lines, nil
}

func sanitize(raw []types.CartLine) []types.CartLine {
	var lines []types.CartLine
	for _, line := range raw {
		if line.Quantity <= 0 || line.ItemID == "" {
			continue
		}
		merged := false
		for i := range lines {
			if lines[i].ItemID == line.ItemID {
				lines[i].Quantity += line.Quantity
				merged = true
				break
			}
		}
		if !merged {
			lines = append(lines, line)
		}
	}
	return lines
}

func (s *Store) linesLocked() []types.CartLine {
	return append([]types.CartLine(nil), s.lines...)
}
