package router

import (
	"errors"
	"math"
	"testing"

	"dexroute/internal/graph"
)

func mustAdd(t *testing.T, g *graph.Graph, from, to, venue string, rate, fee float64) {
	t.Helper()
	e := graph.Edge{From: from, To: to, Venue: venue, Rate: rate, Fee: fee, Liquidity: 1000}
	if err := g.AddEdge(e); err != nil {
		t.Fatalf("add %s->%s: %v", from, to, err)
	}
}

// Scenario: direct BTC->USDC vs two-hop via ETH; the two-hop compounds to a
// better multiplier and must win.
func scenarioGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	mustAdd(t, g, "BTC", "ETH", "v1", 15, 0.003)
	mustAdd(t, g, "ETH", "USDC", "v2", 2000, 0.003)
	mustAdd(t, g, "BTC", "USDC", "v3", 29000, 0.001)
	return g
}

func TestFindRoutePrefersBetterMultiplier(t *testing.T) {
	g := scenarioGraph(t)
	r, err := findRoute(g, "BTC", "USDC", 0)
	if err != nil {
		t.Fatalf("find route: %v", err)
	}
	if r.Hops() != 2 {
		t.Fatalf("expected two-hop route, got %d hops", r.Hops())
	}
	if r.Edges[0].Venue != "v1" || r.Edges[1].Venue != "v2" {
		t.Fatalf("expected v1,v2 route, got %s,%s", r.Edges[0].Venue, r.Edges[1].Venue)
	}
	want := 15 * 0.997 * 2000 * 0.997
	if math.Abs(r.Multiplier()-want) > 1e-9*want {
		t.Fatalf("multiplier %v, want %v", r.Multiplier(), want)
	}
}

func TestFindRouteDirectWhenVenueRemoved(t *testing.T) {
	g := scenarioGraph(t)
	if n := g.RemoveVenueEdges("v2"); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	r, err := findRoute(g, "BTC", "USDC", 0)
	if err != nil {
		t.Fatalf("find route: %v", err)
	}
	if r.Hops() != 1 || r.Edges[0].Venue != "v3" {
		t.Fatalf("expected direct v3 route, got %+v", r.Edges)
	}
	want := 29000 * 0.999
	if math.Abs(r.Multiplier()-want) > 1e-9*want {
		t.Fatalf("multiplier %v, want %v", r.Multiplier(), want)
	}
}

func TestFindRouteSelfIsEmpty(t *testing.T) {
	g := scenarioGraph(t)
	r, err := findRoute(g, "BTC", "BTC", 0)
	if err != nil {
		t.Fatalf("self route: %v", err)
	}
	if r.Hops() != 0 || r.Multiplier() != 1 {
		t.Fatalf("expected empty identity route, got %+v", r)
	}
	// even for assets the graph has never seen
	if r, err := findRoute(g, "GHOST", "GHOST", 0); err != nil || r.Hops() != 0 {
		t.Fatalf("unknown self route: %+v, %v", r, err)
	}
}

func TestFindRouteNotFound(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, "A", "B", "v1", 2, 0)
	_, err := findRoute(g, "A", "C", 0)
	if !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
	// unreachable in the other direction too: edges are directed
	_, err = findRoute(g, "B", "A", 0)
	if !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound for reverse, got %v", err)
	}
}

func TestFindRouteArbitrageLoop(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, "A", "B", "v1", 2, 0)
	mustAdd(t, g, "B", "A", "v2", 0.6, 0)
	// round trip multiplies by 1.2: unbounded gain if followed
	_, err := findRoute(g, "A", "B", 0)
	if !errors.Is(err, ErrArbitrageLoop) {
		t.Fatalf("expected ErrArbitrageLoop, got %v", err)
	}
}

func TestDisjointLoopDoesNotTaintQuery(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, "A", "B", "v1", 2, 0)
	// profitable loop on an island that cannot reach B
	mustAdd(t, g, "X", "Y", "v2", 2, 0)
	mustAdd(t, g, "Y", "X", "v2", 0.6, 0)
	r, err := findRoute(g, "A", "B", 0)
	if err != nil {
		t.Fatalf("disjoint loop should not fail the query: %v", err)
	}
	if r.Hops() != 1 {
		t.Fatalf("expected direct route, got %d hops", r.Hops())
	}
}

func TestUnprofitableCycleIsFine(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, "A", "B", "v1", 2, 0)
	mustAdd(t, g, "B", "A", "v2", 0.4, 0) // round trip 0.8 < 1
	r, err := findRoute(g, "A", "B", 0)
	if err != nil {
		t.Fatalf("lossy cycle must not trip detection: %v", err)
	}
	if r.Hops() != 1 {
		t.Fatalf("expected direct route, got %d", r.Hops())
	}
}

func TestMaxHopsBoundsSearch(t *testing.T) {
	g := graph.New()
	// chain A -> h0 -> h1 -> h2 -> Z: 4 hops
	mustAdd(t, g, "A", "h0", "v", 1, 0)
	mustAdd(t, g, "h0", "h1", "v", 1, 0)
	mustAdd(t, g, "h1", "h2", "v", 1, 0)
	mustAdd(t, g, "h2", "Z", "v", 1, 0)
	if _, err := findRoute(g, "A", "Z", 3); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound under tight bound, got %v", err)
	}
	r, err := findRoute(g, "A", "Z", 4)
	if err != nil {
		t.Fatalf("bound of 4 should reach Z: %v", err)
	}
	if r.Hops() != 4 {
		t.Fatalf("expected 4 hops, got %d", r.Hops())
	}
}

func TestTieBreakFewerHops(t *testing.T) {
	g := graph.New()
	// direct and two-hop paths with bit-identical multipliers (the second
	// hop is a 1.0-rate edge, so the costs compare exactly equal)
	mustAdd(t, g, "A", "B", "direct", 2, 0)
	mustAdd(t, g, "A", "M", "v1", 2, 0)
	mustAdd(t, g, "M", "B", "v2", 1, 0)
	r, err := findRoute(g, "A", "B", 0)
	if err != nil {
		t.Fatalf("find route: %v", err)
	}
	if r.Hops() != 1 || r.Edges[0].Venue != "direct" {
		t.Fatalf("expected the fewer-hop route, got %+v", r.Edges)
	}
}

func TestTieBreakInsertionOrder(t *testing.T) {
	g := graph.New()
	// two parallel edges with identical terms; the first inserted wins
	mustAdd(t, g, "A", "B", "early", 2, 0)
	mustAdd(t, g, "A", "B", "late", 2, 0)
	r, err := findRoute(g, "A", "B", 0)
	if err != nil {
		t.Fatalf("find route: %v", err)
	}
	if r.Edges[0].Venue != "early" {
		t.Fatalf("expected earliest-inserted edge, got %s", r.Edges[0].Venue)
	}
}

func TestFindRouteDeterministic(t *testing.T) {
	g := scenarioGraph(t)
	mustAdd(t, g, "USDC", "DAI", "v4", 1.0001, 0.0001)
	first, err := findRoute(g, "BTC", "DAI", 0)
	if err != nil {
		t.Fatalf("find route: %v", err)
	}
	for i := 0; i < 20; i++ {
		r, err := findRoute(g, "BTC", "DAI", 0)
		if err != nil {
			t.Fatalf("repeat %d: %v", i, err)
		}
		if len(r.Edges) != len(first.Edges) {
			t.Fatalf("repeat %d: route length changed", i)
		}
		for j := range r.Edges {
			if r.Edges[j] != first.Edges[j] {
				t.Fatalf("repeat %d: edge %d differs: %+v vs %+v", i, j, r.Edges[j], first.Edges[j])
			}
		}
	}
}

func TestBestVenueAmongParallelEdges(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, "A", "B", "cheap", 10, 0.01)  // 9.9
	mustAdd(t, g, "A", "B", "best", 10, 0.001)  // 9.99
	mustAdd(t, g, "A", "B", "worst", 9.5, 0.001)
	r, err := findRoute(g, "A", "B", 0)
	if err != nil {
		t.Fatalf("find route: %v", err)
	}
	if r.Edges[0].Venue != "best" {
		t.Fatalf("expected best-multiplier venue, got %s", r.Edges[0].Venue)
	}
}
