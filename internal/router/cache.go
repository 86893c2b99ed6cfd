package router

import (
	"container/list"
	"sync"

	"dexroute/internal/graph"
	"dexroute/internal/infra/metrics"
)

// cacheKey deliberately excludes the amount: edge multipliers are constant,
// so the optimal topology for a pair never depends on the traded amount.
type cacheKey struct {
	src, dst graph.Asset
}

type cacheEntry struct {
	key    cacheKey
	route  Route
	mult   float64
	assets map[graph.Asset]struct{}
	venues map[graph.Venue]struct{}
	elem   *list.Element
}

// routeCache maps (source, destination) to a computed route plus the assets
// and venues it touches, for targeted invalidation. Failed computations are
// remembered on a negative side that is flushed wholesale on every mutation:
// a RouteNotFound can be cured by a new edge anywhere, so no per-asset rule
// is sound for it. An optional LRU cap bounds the positive side.
//
// Safe for concurrent use; coherence with the graph is the owning router's
// job (mutations exclude queries there).
type routeCache struct {
	mu         sync.Mutex
	entries    map[cacheKey]*cacheEntry
	negative   map[cacheKey]error
	lru        *list.List // front = most recently used
	maxEntries int        // 0 = unbounded

	hits, misses, evictions uint64
}

func newRouteCache(maxEntries int) *routeCache {
	return &routeCache{
		entries:    make(map[cacheKey]*cacheEntry),
		negative:   make(map[cacheKey]error),
		lru:        list.New(),
		maxEntries: maxEntries,
	}
}

// lookup returns the cached route or negative result. hit is false when the
// pair has never been computed (or was invalidated).
func (c *routeCache) lookup(src, dst graph.Asset) (Route, float64, error, bool) {
	k := cacheKey{src, dst}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok {
		c.lru.MoveToFront(e.elem)
		c.hits++
		metrics.CacheHitsTotal.Inc()
		return e.route, e.mult, nil, true
	}
	if err, ok := c.negative[k]; ok {
		c.hits++
		metrics.CacheHitsTotal.Inc()
		return Route{}, 0, err, true
	}
	c.misses++
	metrics.CacheMissesTotal.Inc()
	return Route{}, 0, nil, false
}

// store records a computed result for the pair. Failures become negative
// entries; successes record touched assets and venues and join the LRU.
func (c *routeCache) store(src, dst graph.Asset, r Route, err error) {
	k := cacheKey{src, dst}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.negative[k] = err
		return
	}
	if old, ok := c.entries[k]; ok {
		c.lru.Remove(old.elem)
	}
	e := &cacheEntry{
		key:    k,
		route:  r,
		mult:   r.Multiplier(),
		assets: make(map[graph.Asset]struct{}, len(r.Edges)+2),
		venues: make(map[graph.Venue]struct{}, len(r.Edges)),
	}
	e.assets[src] = struct{}{}
	e.assets[dst] = struct{}{}
	for _, ed := range r.Edges {
		e.assets[ed.From] = struct{}{}
		e.assets[ed.To] = struct{}{}
		e.venues[ed.Venue] = struct{}{}
	}
	e.elem = c.lru.PushFront(e)
	c.entries[k] = e
	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		back := c.lru.Back()
		victim := back.Value.(*cacheEntry)
		c.lru.Remove(back)
		delete(c.entries, victim.key)
		c.evictions++
		metrics.CacheEvictionsTotal.Inc()
	}
}

// invalidateVenue evicts every entry whose route crosses the venue, and the
// whole negative side.
func (c *routeCache) invalidateVenue(v graph.Venue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushNegativeLocked()
	for k, e := range c.entries {
		if _, ok := e.venues[v]; ok {
			c.removeLocked(k, e)
		}
	}
}

// invalidateAssets evicts every entry whose endpoints or intermediate hops
// include one of the assets, and the whole negative side. A new edge at an
// asset can open a strictly better route for pairs that merely pass through
// it, so endpoint matching alone would be unsound.
func (c *routeCache) invalidateAssets(assets ...graph.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushNegativeLocked()
	for k, e := range c.entries {
		for _, a := range assets {
			if _, ok := e.assets[a]; ok {
				c.removeLocked(k, e)
				break
			}
		}
	}
}

func (c *routeCache) removeLocked(k cacheKey, e *cacheEntry) {
	c.lru.Remove(e.elem)
	delete(c.entries, k)
	metrics.CacheInvalidationsTotal.Inc()
}

func (c *routeCache) flushNegativeLocked() {
	if len(c.negative) > 0 {
		c.negative = make(map[cacheKey]error)
	}
}

func (c *routeCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *routeCache) counters() (hits, misses, evictions uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions
}
