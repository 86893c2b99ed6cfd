package graph

import (
	"fmt"
	"iter"
	"math"
	"sync/atomic"
)

// MaxAssetLen bounds asset identifiers coming from external feeds.
const MaxAssetLen = 64

type Asset = string

type Venue = string

// Edge is one directed, venue-specific conversion offer. Rate is units of To
// per unit of From before fees; Fee is the proportional fee in [0,1).
type Edge struct {
	From      Asset
	To        Asset
	Venue     Venue
	Rate      float64
	Fee       float64
	Liquidity float64
}

// Multiplier is the amount factor applied when traversing the edge.
func (e Edge) Multiplier() float64 { return e.Rate * (1 - e.Fee) }

// ValidationError rejects a malformed edge at AddEdge. The mutation is atomic:
// a rejected edge leaves the graph untouched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid edge: %s %s", e.Field, e.Reason)
}

// Graph is the liquidity multigraph: an append-only asset registry plus
// per-asset outgoing edge lists in insertion order. Assets are interned as
// indices into a flat registry; edges live in contiguous per-asset slices.
// Graph does no locking, the owning router serializes access.
type Graph struct {
	assets  []Asset
	index   map[Asset]int
	out     [][]Edge
	edges   int
	scanned atomic.Uint64
}

func New() *Graph {
	return &Graph{index: make(map[Asset]int)}
}

func validateAsset(field string, a Asset) error {
	if a == "" {
		return &ValidationError{Field: field, Reason: "is empty"}
	}
	if len(a) > MaxAssetLen {
		return &ValidationError{Field: field, Reason: "exceeds max length"}
	}
	return nil
}

func (e Edge) validate() error {
	if err := validateAsset("from", e.From); err != nil {
		return err
	}
	if err := validateAsset("to", e.To); err != nil {
		return err
	}
	if err := validateAsset("venue", e.Venue); err != nil {
		return err
	}
	if !(e.Rate > 0) || math.IsInf(e.Rate, 0) {
		return &ValidationError{Field: "rate", Reason: "must be positive and finite"}
	}
	if e.Fee < 0 || e.Fee >= 1 || math.IsNaN(e.Fee) {
		return &ValidationError{Field: "fee", Reason: "must be in [0,1)"}
	}
	if e.Liquidity < 0 || math.IsNaN(e.Liquidity) {
		return &ValidationError{Field: "liquidity", Reason: "must be non-negative"}
	}
	return nil
}

// intern registers the asset if unseen and returns its index.
func (g *Graph) intern(a Asset) int {
	if i, ok := g.index[a]; ok {
		return i
	}
	i := len(g.assets)
	g.assets = append(g.assets, a)
	g.index[a] = i
	g.out = append(g.out, nil)
	return i
}

// AddEdge validates and appends the edge to its From asset's outgoing list,
// registering both endpoints. Duplicate (from, to) pairs from different
// venues coexist; the graph is a multigraph.
func (g *Graph) AddEdge(e Edge) error {
	if err := e.validate(); err != nil {
		return err
	}
	from := g.intern(e.From)
	g.intern(e.To)
	g.out[from] = append(g.out[from], e)
	g.edges++
	return nil
}

// RemoveVenueEdges strips every edge tagged with venue and returns the count
// removed. Assets stay registered even when left edge-less.
func (g *Graph) RemoveVenueEdges(v Venue) int {
	removed := 0
	for i := range g.out {
		kept := g.out[i][:0]
		for _, e := range g.out[i] {
			if e.Venue == v {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		g.out[i] = kept
	}
	g.edges -= removed
	return removed
}

// EdgesFrom yields the asset's outgoing edges in insertion order. The
// sequence is lazy and restartable; unknown assets yield nothing.
func (g *Graph) EdgesFrom(a Asset) iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		i, ok := g.index[a]
		if !ok {
			return
		}
		g.scanned.Add(1)
		for _, e := range g.out[i] {
			if e.From != a {
				panic("graph: edge filed under wrong asset")
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Has reports whether the asset is registered.
func (g *Graph) Has(a Asset) bool {
	_, ok := g.index[a]
	return ok
}

// Assets returns the registry in registration order. Callers must not retain
// the slice across mutations.
func (g *Graph) Assets() []Asset { return g.assets }

func (g *Graph) Stats() (assets, edges int) { return len(g.assets), g.edges }

// Scans reports how many EdgesFrom traversals have started, used by tests to
// assert that cache hits perform no graph work.
func (g *Graph) Scans() uint64 { return g.scanned.Load() }
