package router

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"dexroute/internal/config"
	"dexroute/internal/graph"
	"dexroute/internal/infra/log"
	"dexroute/internal/infra/metrics"
)

// ErrSelfQuote rejects identical-asset quotes in strict mode.
var ErrSelfQuote = errors.New("source and destination are the same asset")

// PathRouter owns one liquidity graph and one route cache with identical
// lifetimes, and is the only concurrency boundary of the core. Mutations are
// exclusive with everything; queries run concurrently under a shared lock.
// The lock spans graph and cache together, so a reader never sees a cache
// entry from before a mutation next to a graph that already reflects it.
type PathRouter struct {
	mu    sync.RWMutex
	g     *graph.Graph
	cache *routeCache

	maxHops         int
	strictSelfQuote bool
	logger          log.Logger
}

type Stats struct {
	Assets      int    `json:"asset_count"`
	Edges       int    `json:"edge_count"`
	CacheSize   int    `json:"cache_size"`
	CacheHits   uint64 `json:"cache_hits"`
	CacheMisses uint64 `json:"cache_misses"`
}

func New(cfg config.Config, logger log.Logger) *PathRouter {
	maxHops := cfg.Routing.MaxHops
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &PathRouter{
		g:               graph.New(),
		cache:           newRouteCache(cfg.Routing.CacheMaxEntries),
		maxHops:         maxHops,
		strictSelfQuote: cfg.Routing.StrictSelfQuote,
		logger:          logger.With().Str("component", "router").Logger(),
	}
}

// AddEdge registers a trading edge and invalidates cached routes touching
// either endpoint.
func (r *PathRouter) AddEdge(e graph.Edge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.g.AddEdge(e); err != nil {
		metrics.EdgesRejectedTotal.Inc()
		return err
	}
	r.cache.invalidateAssets(e.From, e.To)
	metrics.EdgesAddedTotal.Inc()
	r.publishGraphGauges()
	r.logger.Debug().
		Str("from", e.From).Str("to", e.To).Str("venue", e.Venue).
		Float64("rate", e.Rate).Float64("fee", e.Fee).
		Msg("edge added")
	return nil
}

// RemoveVenueEdges drops a venue's edges everywhere and invalidates cached
// routes crossing that venue. Returns the number of edges removed.
func (r *PathRouter) RemoveVenueEdges(v graph.Venue) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.g.RemoveVenueEdges(v)
	if n > 0 {
		r.cache.invalidateVenue(v)
		metrics.EdgesRemovedTotal.Add(float64(n))
		r.publishGraphGauges()
		r.logger.Info().Str("venue", v).Int("removed", n).Msg("venue edges removed")
	}
	return n
}

// FindRoute resolves the best route for the pair, cached or computed.
// maxHops <= 0 uses the configured default.
func (r *PathRouter) FindRoute(src, dst graph.Asset, maxHops int) (Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolve(src, dst, maxHops)
}

// Quote applies the route's compounded multiplier to amount. Identical-asset
// quotes return the amount unchanged unless strict mode rejects them.
func (r *PathRouter) Quote(src, dst graph.Asset, amount float64) (float64, error) {
	start := time.Now()
	defer func() { metrics.QuoteLatencySeconds.Observe(time.Since(start).Seconds()) }()

	if amount < 0 {
		return 0, fmt.Errorf("negative amount %v", amount)
	}
	if src == dst {
		if r.strictSelfQuote {
			return 0, ErrSelfQuote
		}
		return amount, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, err := r.resolve(src, dst, 0)
	if err != nil {
		return 0, err
	}
	return amount * route.Multiplier(), nil
}

// resolve is the cache-through lookup; callers hold at least the read lock.
// The cached route for an unmutated graph is identical to a fresh
// computation, so the amount-independent topology can be reused as-is.
func (r *PathRouter) resolve(src, dst graph.Asset, maxHops int) (Route, error) {
	if maxHops <= 0 {
		maxHops = r.maxHops
	}
	// non-default hop bounds bypass the cache: entries are keyed by pair
	// only and must all describe the same search bound
	if maxHops != r.maxHops {
		return r.compute(src, dst, maxHops)
	}
	route, _, err, hit := r.cache.lookup(src, dst)
	if hit {
		return route, err
	}
	route, err = r.compute(src, dst, maxHops)
	r.cache.store(src, dst, route, err)
	return route, err
}

func (r *PathRouter) compute(src, dst graph.Asset, maxHops int) (Route, error) {
	route, err := findRoute(r.g, src, dst, maxHops)
	metrics.RoutesComputedTotal.Inc()
	switch {
	case errors.Is(err, ErrRouteNotFound):
		metrics.RouteNotFoundTotal.Inc()
	case errors.Is(err, ErrArbitrageLoop):
		metrics.ArbitrageLoopsTotal.Inc()
		r.logger.Warn().Str("src", src).Str("dst", dst).Msg("arbitrage loop on query path")
	case err == nil:
		metrics.RouteHops.Observe(float64(route.Hops()))
	}
	return route, err
}

func (r *PathRouter) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	assets, edges := r.g.Stats()
	hits, misses, _ := r.cache.counters()
	return Stats{
		Assets:      assets,
		Edges:       edges,
		CacheSize:   r.cache.size(),
		CacheHits:   hits,
		CacheMisses: misses,
	}
}

// GraphScans exposes the traversal counter for call-count test assertions.
func (r *PathRouter) GraphScans() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.g.Scans()
}

func (r *PathRouter) publishGraphGauges() {
	assets, edges := r.g.Stats()
	metrics.GraphAssets.Set(float64(assets))
	metrics.GraphEdges.Set(float64(edges))
}
