package router

import (
	"errors"

	"dexroute/internal/graph"
)

// DefaultMaxHops bounds route length and search rounds when the caller does
// not override it.
const DefaultMaxHops = 10

var (
	// ErrRouteNotFound: destination unreachable from source within the hop
	// bound. Expected for disconnected or newly observed assets.
	ErrRouteNotFound = errors.New("route not found")

	// ErrArbitrageLoop: a profitable trading cycle sits on a path toward the
	// destination. Surfaced instead of following an unbounded-gain loop;
	// whether to exploit or discard it is the caller's policy.
	ErrArbitrageLoop = errors.New("arbitrage loop detected")
)

// Route is an ordered chain of trading edges. The empty route is the valid
// identity conversion when source == destination.
type Route struct {
	Edges []graph.Edge
}

func (r Route) Hops() int { return len(r.Edges) }

// Multiplier is the compounded amount factor of the whole route; 1 for the
// empty route.
func (r Route) Multiplier() float64 {
	m := 1.0
	for _, e := range r.Edges {
		m *= e.Multiplier()
	}
	return m
}

// Assets returns every asset the route touches, endpoints included.
func (r Route) Assets() []graph.Asset {
	if len(r.Edges) == 0 {
		return nil
	}
	out := make([]graph.Asset, 0, len(r.Edges)+1)
	out = append(out, r.Edges[0].From)
	for _, e := range r.Edges {
		out = append(out, e.To)
	}
	return out
}
