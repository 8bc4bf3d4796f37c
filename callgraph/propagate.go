// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package callgraph

import "github.com/saferwall/dex/repo"

// PropagateZombies pushes zombie status backward through the call
// graph: any node that calls a zombie node is itself zombie at that
// call site. Runs until no caller gains a new zombie-call site, which
// terminates because each (caller, callee, addr) triple can only be
// marked once.
func PropagateZombies(g *Graph) {
	queue := make([]repo.MethodDescr, 0, len(g.Nodes))
	queued := map[repo.MethodDescr]bool{}
	for d, n := range g.Nodes {
		if n.IsZombie() {
			queue = append(queue, d)
			queued[d] = true
		}
	}

	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		queued[d] = false

		for _, e := range g.CallersOf(d) {
			caller := g.Nodes[e.From]
			if caller == nil {
				continue
			}
			changed := false
			for addr := range e.Sites {
				if !caller.ZombieCalls[addr] {
					caller.ZombieCalls[addr] = true
					changed = true
				}
			}
			if changed && !queued[e.From] {
				queue = append(queue, e.From)
				queued[e.From] = true
			}
		}
	}
}
