package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// StoreMetrics records counters for the commerce stores. All methods are
// nil-safe so stores can run without a registry wired in.
type StoreMetrics struct {
	cartMutations   *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
	catalogLoads    *prometheus.CounterVec
	orderSubmits    *prometheus.CounterVec
	favoriteToggles prometheus.Counter
}

// NewStoreMetrics registers the store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation.",
	}, []string{"op"})
	tokenRefreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_refreshes_total",
		Help: "Access token refresh exchanges by result.",
	}, []string{"result"})
	catalogLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loads_total",
		Help: "Catalog fetches by result.",
	}, []string{"result"})
	orderSubmits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Checkout order submissions by result.",
	}, []string{"result"})
	favoriteToggles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "favorite_toggles_total",
		Help: "Favorite set toggles.",
	})
	reg.MustRegister(cartMutations, tokenRefreshes, catalogLoads, orderSubmits, favoriteToggles)
	return &StoreMetrics{
		cartMutations:   cartMutations,
		tokenRefreshes:  tokenRefreshes,
		catalogLoads:    catalogLoads,
		orderSubmits:    orderSubmits,
		favoriteToggles: favoriteToggles,
	}
}

// IncCartMutation increments the cart counter for the named operation.
func (m *StoreMetrics) IncCartMutation(op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncTokenRefresh increments the refresh counter for the given result.
func (m *StoreMetrics) IncTokenRefresh(result string) {
	if m == nil || m.tokenRefreshes == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncCatalogLoad increments the catalog load counter for the given result.
func (m *StoreMetrics) IncCatalogLoad(result string) {
	if m == nil || m.catalogLoads == nil {
		return
	}
	m.catalogLoads.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncOrderSubmit increments the submission counter for the given result.
func (m *StoreMetrics) IncOrderSubmit(result string) {
	if m == nil || m.orderSubmits == nil {
		return
	}
	m.orderSubmits.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncFavoriteToggle increments the favorite toggle counter.
func (m *StoreMetrics) IncFavoriteToggle() {
	if m == nil || m.favoriteToggles == nil {
		return
	}
	m.favoriteToggles.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
