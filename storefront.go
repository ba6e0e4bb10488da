// Package storefront wires the commerce stores together: the remote API
// client, local persistence, and the session, catalog, favorites, cart, and
// checkout state owned for the lifetime of the app.
package storefront

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petalworks/storefront-core/internal/api"
	"github.com/petalworks/storefront-core/internal/cart"
	"github.com/petalworks/storefront-core/internal/catalog"
	"github.com/petalworks/storefront-core/internal/checkout"
	"github.com/petalworks/storefront-core/internal/favorites"
	"github.com/petalworks/storefront-core/internal/session"
	"github.com/petalworks/storefront-core/pkg/config"
	"github.com/petalworks/storefront-core/pkg/logger"
	"github.com/petalworks/storefront-core/pkg/metrics"
	"github.com/petalworks/storefront-core/pkg/storage"
	"github.com/petalworks/storefront-core/pkg/storage/rediskv"
	"github.com/petalworks/storefront-core/pkg/storage/securefile"
	"github.com/petalworks/storefront-core/pkg/storage/sqlitekv"
)

// Core is the root of the commerce state. One Core lives for the lifetime of
// the app; every screen reads through these stores.
type Core struct {
	Session   *session.Manager
	Catalog   *catalog.Cache
	Favorites *favorites.Store
	Cart      *cart.Store
	Checkout  *checkout.Builder

	API *api.Client

	log *logger.Logger
}

// Params configures New. Config and Logger are required; KV and Secure
// override the config-selected storage adapters when set, which is how tests
// inject in-memory stores. A nil Registry disables metrics.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	HTTPClient *http.Client
	KV         storage.KV
	Secure     storage.Secure
	Registry   prometheus.Registerer
}

// New builds the API client, the storage adapters named by the config, and
// the five stores.
func New(ctx context.Context, params Params) (*Core, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	cfg := params.Config
	log := params.Logger

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}

	client, err := api.NewClient(api.Params{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: httpClient,
		Logger:     log,
		UserAgent:  cfg.API.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("building api client: %w", err)
	}

	kv := params.KV
	if kv == nil {
		kv, err = openKV(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	secure := params.Secure
	if secure == nil {
		secure, err = openSecure(cfg)
		if err != nil {
			return nil, err
		}
	}

	met := metrics.NewStoreMetrics(params.Registry)

	sessions, err := session.NewManager(session.Params{
		Remote:        client,
		Secure:        secure,
		Logger:        log,
		Metrics:       met,
		RefreshLeeway: cfg.Session.RefreshLeeway,
	})
	if err != nil {
		return nil, fmt.Errorf("building session manager: %w", err)
	}

	catalogCache, err := catalog.NewCache(catalog.Params{Remote: client, Logger: log, Metrics: met})
	if err != nil {
		return nil, fmt.Errorf("building catalog cache: %w", err)
	}

	favoriteStore, err := favorites.NewStore(favorites.Params{KV: kv, Logger: log, Metrics: met})
	if err != nil {
		return nil, fmt.Errorf("building favorites store: %w", err)
	}

	cartStore, err := cart.NewStore(cart.Params{KV: kv, Logger: log, Metrics: met})
	if err != nil {
		return nil, fmt.Errorf("building cart store: %w", err)
	}

	checkoutBuilder, err := checkout.NewBuilder(checkout.Params{
		Remote:  client,
		Session: sessions,
		Logger:  log,
		Metrics: met,
	})
	if err != nil {
		return nil, fmt.Errorf("building checkout builder: %w", err)
	}

	return &Core{
		Session:   sessions,
		Catalog:   catalogCache,
		Favorites: favoriteStore,
		Cart:      cartStore,
		Checkout:  checkoutBuilder,
		API:       client,
		log:       log,
	}, nil
}

// Bootstrap loads the persisted cart and favorites. Failures are logged and
// swallowed so a corrupt or unreachable store never blocks startup; the
// affected store simply begins empty.
func (c *Core) Bootstrap(ctx context.Context) {
	if err := c.Cart.Load(ctx); err != nil {
		c.log.Error(c.log.WithStore(ctx, "cart"), "loading persisted cart", err)
	}
	if err := c.Favorites.Load(ctx); err != nil {
		c.log.Error(c.log.WithStore(ctx, "favorites"), "loading persisted favorites", err)
	}
}

func openKV(ctx context.Context, cfg *config.Config) (storage.KV, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.StorageDriverSQLite:
		store, err := sqlitekv.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		return store, nil
	case config.StorageDriverRedis:
		store, err := rediskv.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting redis storage: %w", err)
		}
		return store, nil
	case config.StorageDriverMemory:
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openSecure(cfg *config.Config) (storage.Secure, error) {
	if cfg.Keychain.Passphrase == "" {
		// no passphrase configured, keep credentials in process memory only
		return storage.NewMemory(), nil
	}
	store, err := securefile.Open(cfg.Keychain.Path, cfg.Keychain.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("opening keychain: %w", err)
	}
	return store, nil
}
