// Package catalog caches the remote product/category list and serves the
// filtered views the browse screens render.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/petalworks/storefront-core/pkg/errors"
	"github.com/petalworks/storefront-core/pkg/events"
	"github.com/petalworks/storefront-core/pkg/logger"
	"github.com/petalworks/storefront-core/pkg/metrics"
	"github.com/petalworks/storefront-core/pkg/types"
)

type remoteCatalog interface {
	FetchCatalog(ctx context.Context) (types.CatalogSnapshot, error)
}

// Cache holds the catalog snapshot in memory. The fetch happens once per
// cache lifetime (or on Reload); every read after that is synchronous.
type Cache struct {
	remote remoteCatalog
	log    *logger.Logger
	met    *metrics.StoreMetrics
	hub    *events.Hub[types.CatalogSnapshot]

	mu       sync.Mutex
	snapshot types.CatalogSnapshot
	loaded   bool
	selected string
}

// Params bundles the dependencies required to build a catalog cache.
type Params struct {
	Remote  remoteCatalog
	Logger  *logger.Logger
	Metrics *metrics.StoreMetrics
}

// NewCache constructs an empty cache.
func NewCache(params Params) (*Cache, error) {
	if params.Remote == nil {
		return nil, fmt.Errorf("remote catalog client is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Cache{
		remote: params.Remote,
		log:    params.Logger,
		met:    params.Metrics,
		hub:    events.NewHub[types.CatalogSnapshot](),
	}, nil
}

// Load fetches the catalog on first use and returns the cached snapshot on
// every call after that.
func (c *Cache) Load(ctx context.Context) (types.CatalogSnapshot, error) {
	c.mu.Lock()
	if c.loaded {
		snapshot := c.snapshotLocked()
		c.mu.Unlock()
		return snapshot, nil
	}
	c.mu.Unlock()
	return c.fetch(ctx)
}

// Reload refetches unconditionally and clears any active category filter,
// so a returning catalog view starts unfiltered.
func (c *Cache) Reload(ctx context.Context) (types.CatalogSnapshot, error) {
	return c.fetch(ctx)
}

func (c *Cache) fetch(ctx context.Context) (types.CatalogSnapshot, error) {
	snapshot, err := c.remote.FetchCatalog(ctx)
	if err != nil {
		c.met.IncCatalogLoad(metrics.ResultFailure)
		if pkgerrors.As(err) != nil {
			return types.CatalogSnapshot{}, err
		}
		return types.CatalogSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeNetworkFailure, err, "fetching catalog")
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.loaded = true
	c.selected = ""
	copied := c.snapshotLocked()
	c.mu.Unlock()

	c.met.IncCatalogLoad(metrics.ResultSuccess)
	c.log.Info(c.log.WithField(ctx, "items", len(snapshot.Items)), "catalog loaded")
	c.hub.Publish(copied)
	return copied, nil
}

// Search returns items whose name contains the query, case-insensitively.
// An empty query returns the full catalog.
func (c *Cache) Search(query string) []types.CatalogItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]types.CatalogItem(nil), c.snapshot.Items...)
	}

	var matches []types.CatalogItem
	for _, item := range c.snapshot.Items {
		if strings.Contains(strings.ToLower(item.Name), query) {
			matches = append(matches, item)
		}
	}
	return matches
}

// ByCategory returns items matching the category id exactly; an empty id
// returns the full catalog.
func (c *Cache) ByCategory(categoryID string) []types.CatalogItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byCategoryLocked(categoryID)
}

func (c *Cache) byCategoryLocked(categoryID string) []types.CatalogItem {
	if categoryID == "" {
		return append([]types.CatalogItem(nil), c.snapshot.Items...)
	}
	var matches []types.CatalogItem
	for _, item := range c.snapshot.Items {
		if item.CategoryID == categoryID {
			matches = append(matches, item)
		}
	}
	return matches
}

// ToggleCategory selects the category, or deselects it when it is already
// the active one, and returns the next filtered view with the next selected
// id.
func (c *Cache) ToggleCategory(categoryID string) ([]types.CatalogItem, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == categoryID {
		c.selected = ""
	} else {
		c.selected = categoryID
	}
	return c.byCategoryLocked(c.selected), c.selected
}

// SelectedCategory returns the active category filter, empty when none.
func (c *Cache) SelectedCategory() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// ClearFilter drops the active category filter. The owning screen calls this
// when it loses focus.
func (c *Cache) ClearFilter() {
	c.mu.Lock()
	c.selected = ""
	c.mu.Unlock()
}

// Item looks an item up by id.
func (c *Cache) Item(id string) (types.CatalogItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.snapshot.Items {
		if item.ID == id {
			return item, true
		}
	}
	return types.CatalogItem{}, false
}

// Snapshot returns the cached catalog and whether a load has completed.
func (c *Cache) Snapshot() (types.CatalogSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(), c.loaded
}

// Subscribe registers an observer notified after each (re)load.
func (c *Cache) Subscribe(fn func(types.CatalogSnapshot)) (cancel func()) {
	return c.hub.Subscribe(fn)
}

func (c *Cache) snapshotLocked() types.CatalogSnapshot {
	return types.CatalogSnapshot{
		Items:      append([]types.CatalogItem(nil), c.snapshot.Items...),
		Categories: append([]types.Category(nil), c.snapshot.Categories...),
	}
}
