package router

import (
	"math"

	"dexroute/internal/graph"
)

// label is the best known conversion into an asset: cumulative weight in
// -log space, hop count of that path, and the predecessor edge.
type label struct {
	cost float64
	hops int
	pred graph.Edge
	set  bool
}

// findRoute runs hop-bounded Bellman-Ford relaxation over the graph in -log
// weight space, so maximizing the compounded multiplier becomes minimizing a
// sum. Weights can be negative (multiplier > 1), which rules out Dijkstra
// and is exactly what makes profitable cycles detectable: a label that keeps
// improving past every simple-path length is fed by a negative-weight cycle,
// and when that cycle sits on a source-to-destination path the query fails
// with ErrArbitrageLoop (see cycleTaintsPath).
//
// Rounds relax against a snapshot of the previous round, so after round k a
// label holds the best path of at most k hops. Updates require strictly
// better cost; an equal-cost path found in a later round (more hops) or
// later in edge iteration order never displaces the incumbent, which yields
// the fewer-hops, insertion-order tie-break and reproducible results on an
// unmutated graph.
func findRoute(g *graph.Graph, src, dst graph.Asset, maxHops int) (Route, error) {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if src == dst {
		return Route{}, nil
	}

	assets := g.Assets()
	prev := make(map[graph.Asset]label, len(assets))
	prev[src] = label{cost: 0, hops: 0, set: true}

	for round := 0; round < maxHops; round++ {
		cur := make(map[graph.Asset]label, len(prev))
		for a, l := range prev {
			cur[a] = l
		}
		improved := relaxRound(g, assets, prev, cur)
		prev = cur
		if !improved {
			break
		}
	}

	final, ok := prev[dst]
	if !ok || !final.set {
		return Route{}, ErrRouteNotFound
	}

	if cycleTaintsPath(g, assets, prev, dst) {
		return Route{}, ErrArbitrageLoop
	}

	return reconstruct(prev, src, dst, maxHops), nil
}

// relaxRound relaxes every edge once, reading labels from prev and writing
// strictly better ones into cur. Returns whether anything improved.
func relaxRound(g *graph.Graph, assets []graph.Asset, prev, cur map[graph.Asset]label) bool {
	improved := false
	for _, a := range assets {
		from, ok := prev[a]
		if !ok || !from.set {
			continue
		}
		for e := range g.EdgesFrom(a) {
			w := -math.Log(e.Multiplier())
			cand := label{cost: from.cost + w, hops: from.hops + 1, pred: e, set: true}
			have, ok := cur[e.To]
			if !ok || !have.set || cand.cost < have.cost {
				cur[e.To] = cand
				improved = true
			}
		}
	}
	return improved
}

// cycleTaintsPath decides whether a profitable cycle feeds the answer.
// Improvements right after the hop bound can be longer simple paths rather
// than cycles, so detection keeps relaxing a scratch copy for as many extra
// rounds as there are assets: a simple path has fewer edges than that, so an
// improvement that survives every extra round can only come from a negative
// cycle. The query fails only when such a still-improving asset is reachable
// from the source and lies on a path to the destination; disjoint profitable
// loops elsewhere in the graph do not fail it. The bounded labels used for
// the returned route are left untouched.
func cycleTaintsPath(g *graph.Graph, assets []graph.Asset, labels map[graph.Asset]label, dst graph.Asset) bool {
	scratch := make(map[graph.Asset]label, len(labels))
	for a, l := range labels {
		scratch[a] = l
	}
	for i := 0; i < len(assets); i++ {
		next := make(map[graph.Asset]label, len(scratch))
		for a, l := range scratch {
			next[a] = l
		}
		if !relaxRound(g, assets, scratch, next) {
			return false // converged, no cycle influences any label
		}
		scratch = next
	}

	// still improving after V extra rounds: find which assets improve and
	// check whether any sits on a source-to-destination path
	probe := make(map[graph.Asset]label, len(scratch))
	for a, l := range scratch {
		probe[a] = l
	}
	relaxRound(g, assets, scratch, probe)
	reachesDst := reverseReachable(g, assets, dst)
	for _, a := range assets {
		before, okB := scratch[a]
		if !okB || !before.set {
			continue
		}
		if probe[a].cost >= before.cost {
			continue
		}
		if reachesDst[a] {
			return true
		}
	}
	return false
}

// reverseReachable marks every asset with a directed path to dst.
func reverseReachable(g *graph.Graph, assets []graph.Asset, dst graph.Asset) map[graph.Asset]bool {
	rev := make(map[graph.Asset][]graph.Asset, len(assets))
	for _, a := range assets {
		for e := range g.EdgesFrom(a) {
			rev[e.To] = append(rev[e.To], a)
		}
	}
	seen := map[graph.Asset]bool{dst: true}
	queue := []graph.Asset{dst}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, u := range rev[v] {
			if !seen[u] {
				seen[u] = true
				queue = append(queue, u)
			}
		}
	}
	return seen
}

// reconstruct walks predecessor edges back from dst. Label updates are
// hop-bounded and strictly improving, so the walk terminates within maxHops;
// anything else is a bug in the relaxation.
func reconstruct(labels map[graph.Asset]label, src, dst graph.Asset, maxHops int) Route {
	edges := make([]graph.Edge, 0, maxHops)
	at := dst
	for at != src {
		l := labels[at]
		if !l.set || len(edges) >= maxHops {
			panic("router: predecessor chain broken")
		}
		edges = append(edges, l.pred)
		at = l.pred.From
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return Route{Edges: edges}
}
