package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	RoutesComputedTotal     = prometheus.NewCounter(prometheus.CounterOpts{Name: "routes_computed_total", Help: "Route computations that ran the finder"})
	RouteNotFoundTotal      = prometheus.NewCounter(prometheus.CounterOpts{Name: "route_not_found_total", Help: "Queries with no route within the hop bound"})
	ArbitrageLoopsTotal     = prometheus.NewCounter(prometheus.CounterOpts{Name: "arbitrage_loops_detected_total", Help: "Queries rejected due to a profitable cycle"})
	CacheHitsTotal          = prometheus.NewCounter(prometheus.CounterOpts{Name: "route_cache_hits_total", Help: "Route cache hits"})
	CacheMissesTotal        = prometheus.NewCounter(prometheus.CounterOpts{Name: "route_cache_misses_total", Help: "Route cache misses"})
	CacheEvictionsTotal     = prometheus.NewCounter(prometheus.CounterOpts{Name: "route_cache_evictions_total", Help: "Entries evicted by the LRU cap"})
	CacheInvalidationsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "route_cache_invalidations_total", Help: "Entries evicted by mutation-coupled invalidation"})
	EdgesAddedTotal         = prometheus.NewCounter(prometheus.CounterOpts{Name: "edges_added_total", Help: "Edges accepted into the liquidity graph"})
	EdgesRejectedTotal      = prometheus.NewCounter(prometheus.CounterOpts{Name: "edges_rejected_total", Help: "Edges rejected by validation"})
	EdgesRemovedTotal       = prometheus.NewCounter(prometheus.CounterOpts{Name: "edges_removed_total", Help: "Edges removed by venue-scoped removal"})
	GraphAssets             = prometheus.NewGauge(prometheus.GaugeOpts{Name: "graph_assets", Help: "Registered assets"})
	GraphEdges              = prometheus.NewGauge(prometheus.GaugeOpts{Name: "graph_edges", Help: "Live trading edges"})
	RouteHops               = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "route_hops", Help: "Hop count of computed routes", Buckets: prometheus.LinearBuckets(0, 1, 11)})
	QuoteLatencySeconds     = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "quote_latency_seconds", Help: "Quote latency", Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12)})
	FeedEventsTotal         = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_events_total", Help: "Liquidity feed events by kind and outcome"}, []string{"kind", "outcome"})
)

func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		RoutesComputedTotal, RouteNotFoundTotal, ArbitrageLoopsTotal,
		CacheHitsTotal, CacheMissesTotal, CacheEvictionsTotal, CacheInvalidationsTotal,
		EdgesAddedTotal, EdgesRejectedTotal, EdgesRemovedTotal,
		GraphAssets, GraphEdges, RouteHops, QuoteLatencySeconds, FeedEventsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
