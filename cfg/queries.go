// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package cfg

// Postorder returns block IDs in postorder from the start block.
func (g *CFG) Postorder() []int {
	if len(g.Blocks) == 0 {
		return nil
	}
	visited := make([]bool, len(g.Blocks))
	var order []int
	var visit func(int)
	visit = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, e := range g.Blocks[id].Out {
			visit(e.To)
		}
		order = append(order, id)
	}
	visit(g.Start)
	return order
}

// ReversePostorder returns block IDs in reverse postorder, the order the
// forward dataflow driver seeds its worklist with.
func (g *CFG) ReversePostorder() []int {
	po := g.Postorder()
	out := make([]int, len(po))
	for i, id := range po {
		out[len(po)-1-i] = id
	}
	return out
}

// Reachables returns the set of block IDs reachable from n, n included.
func (g *CFG) Reachables(n int) map[int]bool {
	seen := map[int]bool{}
	var visit func(int)
	visit = func(id int) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, e := range g.Blocks[id].Out {
			visit(e.To)
		}
	}
	visit(n)
	return seen
}

// predecessors computes the reverse adjacency.
func (g *CFG) predecessors() [][]int {
	preds := make([][]int, len(g.Blocks))
	for id, b := range g.Blocks {
		for _, e := range b.Out {
			preds[e.To] = append(preds[e.To], id)
		}
	}
	return preds
}

// InEdge is one incoming edge, naming its source block and the branch
// label that produced it.
type InEdge struct {
	From   int
	Branch Branch
}

// InEdges returns every edge pointing at block id, computed on demand.
// The dataflow drivers call this once per block per fixpoint iteration;
// callgraph-scale methods have few enough blocks that this is cheaper
// than maintaining a second adjacency list alongside Out.
func (g *CFG) InEdges(id int) []InEdge {
	var in []InEdge
	for from, b := range g.Blocks {
		for _, e := range b.Out {
			if e.To == id {
				in = append(in, InEdge{From: from, Branch: e.Branch})
			}
		}
	}
	return in
}

// exitBlocks returns every block with no outgoing edges (returns or
// unhandled throws), the roots of the reverse graph for postdominance.
func (g *CFG) exitBlocks() []int {
	var out []int
	for id, b := range g.Blocks {
		if len(b.Out) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// ImmediatePostdominators computes, for every block reachable from an
// exit, its immediate postdominator using the standard iterative
// Cooper/Harvey/Kennedy algorithm run on the reverse graph. Blocks that
// cannot reach any exit (infinite loops with no return/throw) are
// omitted; this never happens for methods that verify, since every
// Dalvik method must terminate on some return/throw path, but a
// malformed or adversarial stream could produce one.
func (g *CFG) ImmediatePostdominators() map[int]int {
	n := len(g.Blocks)
	if n == 0 {
		return nil
	}

	// Virtual exit node n, predecessors are every real exit block.
	exits := g.exitBlocks()
	rpo := g.reversePostorderFromExits(exits)
	order := make(map[int]int, len(rpo))
	for i, id := range rpo {
		order[id] = i
	}

	idom := make(map[int]int, n)
	idom[n] = n // virtual exit is its own idom
	for _, e := range exits {
		idom[e] = n
	}

	changed := true
	for changed {
		changed = false
		for _, id := range rpo {
			if idomIsExit(idom, id, n) {
				continue
			}
			var newIdom = -1
			for _, e := range g.Blocks[id].Out {
				succ := e.To
				if _, ok := idom[succ]; !ok {
					continue
				}
				if newIdom == -1 {
					newIdom = succ
					continue
				}
				newIdom = intersect(idom, order, newIdom, succ)
			}
			if newIdom == -1 {
				continue
			}
			if cur, ok := idom[id]; !ok || cur != newIdom {
				idom[id] = newIdom
				changed = true
			}
		}
	}
	delete(idom, n)
	for _, e := range exits {
		delete(idom, e)
	}
	return idom
}

func idomIsExit(idom map[int]int, id, virtualExit int) bool {
	v, ok := idom[id]
	return ok && v == virtualExit && id != virtualExit
}

func intersect(idom map[int]int, order map[int]int, a, b int) int {
	// The virtual exit has no entry in order; it is the root, so it
	// ranks before every real block.
	rank := func(id int) int {
		if v, ok := order[id]; ok {
			return v
		}
		return -1
	}
	for a != b {
		for rank(a) > rank(b) {
			a = idom[a]
		}
		for rank(b) > rank(a) {
			b = idom[b]
		}
	}
	return a
}

// reversePostorderFromExits walks the reverse graph (successors become
// predecessors) starting from every exit block, used only to order nodes
// for the postdominator fixpoint.
func (g *CFG) reversePostorderFromExits(exits []int) []int {
	preds := g.predecessors()
	visited := make([]bool, len(g.Blocks))
	var order []int
	var visit func(int)
	visit = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, p := range preds[id] {
			visit(p)
		}
		order = append(order, id)
	}
	for _, e := range exits {
		visit(e)
	}
	// order is a postorder of the reverse graph; reverse it.
	out := make([]int, len(order))
	for i, id := range order {
		out[len(order)-1-i] = id
	}
	return out
}
