// Package reduce eliminates cycles from the bipartite support graph a
// solved election produces. Voters and targets become vertices in a
// single-parent forest; every support edge either merges two trees or
// closes a cycle, and closed cycles are collapsed by cancelling stake
// around them until an edge drops to zero. The result is an equivalent,
// minimal edge set: per-voter totals and per-target supports are
// unchanged, and the remaining edges form a forest.
package reduce

import (
	"sort"

	"github.com/open-tally/tally/pkg/election"
	"github.com/open-tally/tally/pkg/forest"
)

type edgeKey struct {
	voter  string
	target string
}

type graph struct {
	weights map[edgeKey]uint64
	nodes   map[forest.ID[string]]*forest.Node[string]
}

// Reduce collapses all cycles in the given staked assignments and returns
// the reduced edge set, grouped per voter in input order with edges sorted
// by target. Voters left with no edges are dropped.
func Reduce(assignments []election.StakedAssignment) []election.StakedAssignment {
	g := &graph{
		weights: make(map[edgeKey]uint64),
		nodes:   make(map[forest.ID[string]]*forest.Node[string]),
	}

	for _, a := range assignments {
		for _, e := range a.Edges {
			if e.Weight == 0 {
				continue
			}
			g.addEdge(edgeKey{voter: a.Who, target: e.Target}, e.Weight)
		}
	}

	return g.collect(assignments)
}

func (g *graph) node(id forest.ID[string]) *forest.Node[string] {
	n, ok := g.nodes[id]
	if !ok {
		n = forest.New(id)
		g.nodes[id] = n
	}
	return n
}

// addEdge introduces one support edge into the forest. Parallel edges for
// the same (voter, target) pair just accumulate weight; a fresh edge either
// merges two trees or closes a cycle that gets cancelled on the spot.
func (g *graph) addEdge(key edgeKey, weight uint64) {
	if _, dup := g.weights[key]; dup {
		g.weights[key] += weight
		return
	}
	g.weights[key] = weight

	vn := g.node(forest.NewID(key.voter, forest.RoleVoter))
	tn := g.node(forest.NewID(key.target, forest.RoleTarget))

	vRoot, vPath := forest.Root(vn)
	tRoot, tPath := forest.Root(tn)

	if !vRoot.Equal(tRoot) {
		// Distinct trees: hang the one with the shorter root path under
		// the other, re-rooting it at the queried vertex first.
		if len(vPath) <= len(tPath) {
			reroot(vPath)
			vn.SetParent(tn)
		} else {
			reroot(tPath)
			tn.SetParent(vn)
		}
		return
	}

	g.cancelCycle(ring(vPath, tPath), key, vn, tn)
}

// reroot reverses parent pointers along a root path so path[0] becomes the
// root of its tree.
func reroot(path []*forest.Node[string]) {
	for i := len(path) - 1; i >= 1; i-- {
		path[i].SetParent(path[i-1])
	}
	path[0].RemoveParent()
}

// ring joins the two root paths of a cycle-closing edge into the cycle's
// vertex sequence. Both paths end at a shared root; everything above the
// lowest common vertex is trimmed, leaving voter-side vertices up to the
// meeting point followed by target-side vertices back down. The closing
// edge runs from the last vertex to the first.
func ring(vPath, tPath []*forest.Node[string]) []*forest.Node[string] {
	i, j := len(vPath)-1, len(tPath)-1
	for i > 0 && j > 0 && vPath[i-1].Equal(tPath[j-1]) {
		i--
		j--
	}

	cycle := make([]*forest.Node[string], 0, i+j+1)
	cycle = append(cycle, vPath[:i+1]...)
	for k := j - 1; k >= 0; k-- {
		cycle = append(cycle, tPath[k])
	}
	return cycle
}

// cancelCycle removes a cycle by shifting stake around it. Edges alternate
// direction around the ring, so they split into two parity classes; moving
// an amount from one class to the other keeps every voter total and every
// target support unchanged. Cancelling the smaller class minimum zeroes at
// least one edge, which breaks the cycle.
func (g *graph) cancelCycle(cycle []*forest.Node[string], closing edgeKey, vn, tn *forest.Node[string]) {
	n := len(cycle)
	keys := make([]edgeKey, n)
	for i := 0; i < n; i++ {
		a, b := cycle[i], cycle[(i+1)%n]
		if a.ID().Role == forest.RoleVoter {
			keys[i] = edgeKey{voter: a.ID().Who, target: b.ID().Who}
		} else {
			keys[i] = edgeKey{voter: b.ID().Who, target: a.ID().Who}
		}
	}

	minEven, minOdd := ^uint64(0), ^uint64(0)
	for i, k := range keys {
		w := g.weights[k]
		if i%2 == 0 {
			if w < minEven {
				minEven = w
			}
		} else if w < minOdd {
			minOdd = w
		}
	}

	dec := 0
	amount := minEven
	if minOdd < minEven {
		dec = 1
		amount = minOdd
	}

	treeEdgeRemoved := false
	closingSurvives := true
	for i, k := range keys {
		if i%2 == dec {
			g.weights[k] -= amount
		} else {
			g.weights[k] += amount
		}
		if g.weights[k] != 0 {
			continue
		}
		delete(g.weights, k)
		if k == closing {
			closingSurvives = false
			continue
		}
		// Drop the zeroed tree edge: parent links only ever connect edge
		// endpoints, so one endpoint is the other's parent.
		a, b := cycle[i], cycle[(i+1)%n]
		if a.IsParentOf(b) {
			a.RemoveParent()
		} else {
			b.RemoveParent()
		}
		treeEdgeRemoved = true
	}

	// The closing edge becomes a tree edge only if cancellation kept it
	// alive; the removal above has already split the old tree so the two
	// endpoints sit in different components again.
	if closingSurvives && treeEdgeRemoved {
		_, vPath := forest.Root(vn)
		reroot(vPath)
		vn.SetParent(tn)
	}
}

// collect rebuilds per-voter assignments from the surviving edges.
func (g *graph) collect(input []election.StakedAssignment) []election.StakedAssignment {
	perVoter := make(map[string][]election.StakedEdge)
	for key, w := range g.weights {
		perVoter[key.voter] = append(perVoter[key.voter], election.StakedEdge{
			Target: key.target,
			Weight: w,
		})
	}

	out := make([]election.StakedAssignment, 0, len(perVoter))
	for _, a := range input {
		edges, ok := perVoter[a.Who]
		if !ok {
			continue
		}
		delete(perVoter, a.Who)
		sort.Slice(edges, func(i, j int) bool { return edges[i].Target < edges[j].Target })
		out = append(out, election.StakedAssignment{Who: a.Who, Edges: edges})
	}
	return out
}
