// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package callgraph

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/repo"
)

// Build walks every class with a body in r (application classes always,
// system classes only when opts.IncludeSystem is set), allocating one
// node per defined method, then scans every such method's instruction
// stream for invoke sites and wires the resulting edges.
func Build(r *repo.Repository, opts Options) *Graph {
	g := newGraph()

	classes := eligibleClasses(r, opts)
	for _, class := range classes {
		for _, m := range r.IterClassMethods(class) {
			if _, ok := g.Nodes[m.Descr]; ok {
				continue
			}
			status := App
			if class.System {
				status = System
			}
			g.Nodes[m.Descr] = newNode(m.Descr, m.UID, status)
		}
	}

	for _, class := range classes {
		for _, m := range r.IterClassMethods(class) {
			if m.CodeOff == 0 {
				continue
			}
			item, ok := m.Dex.CodeItemAt(m.CodeOff)
			if !ok {
				continue
			}
			scanInvokes(g, r, m, item, opts)
		}
	}
	return g
}

func eligibleClasses(r *repo.Repository, opts Options) []*repo.Class {
	var out []*repo.Class
	for _, class := range r.IterClasses() {
		if class.Container == nil {
			continue // no body: placeholder only
		}
		if class.System && !opts.IncludeSystem {
			continue
		}
		out = append(out, class)
	}
	return out
}

func scanInvokes(g *Graph, r *repo.Repository, m *repo.Method, item *dex.CodeItem, opts Options) {
	for _, l := range item.Instructions() {
		if !dex.IsInvoke(l.Ins.Op) {
			continue
		}
		d, ok := resolveMethodDescr(m.Dex, uint32(l.Ins.B))
		if !ok {
			g.markZombieRoot(m.Descr, l.Addr)
			continue
		}
		addCallEdge(g, r, m.Descr, d, l.Addr, opts)
	}
}

// addCallEdge wires one call site, classifying a never-before-seen
// callee per the build algorithm in spec §4.F step 2.
func addCallEdge(g *Graph, r *repo.Repository, caller, callee repo.MethodDescr, addr dex.Addr, opts Options) {
	if _, ok := g.Nodes[callee]; !ok {
		switch {
		case opts.UnfoldSystemMethods:
			g.Nodes[callee] = newNode(callee, 0, Unknown)
			g.markZombieRoot(caller, addr)
		case isSystemMethod(r, callee):
			g.Nodes[callee] = newNode(callee, 0, System)
		case r.IsInherited(callee):
			g.Nodes[callee] = newNode(callee, 0, Inherited)
		default:
			g.Nodes[callee] = newNode(callee, 0, Unknown)
			g.markZombieRoot(caller, addr)
		}
	}
	g.addEdge(caller, callee, addr)
}

func (g *Graph) markZombieRoot(m repo.MethodDescr, addr dex.Addr) {
	n, ok := g.Nodes[m]
	if !ok {
		return
	}
	n.ZombieRoots[addr] = true
}
