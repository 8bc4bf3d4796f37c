// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package callgraph builds the interprocedural invocation graph over a
// repository, marks sites that reference absent methods/classes/fields
// as "zombie" roots, propagates zombie status backward through callers,
// and rewrites unresolvable instructions to type-preserving no-ops.
package callgraph

import (
	"sort"

	"github.com/saferwall/dex"
	"github.com/saferwall/dex/repo"
)

// Status classifies how a node's defining method was resolved.
type Status uint8

const (
	// App is a method defined by a non-system class registered in the
	// repository.
	App Status = iota
	// System is a method the repository resolves to a system/platform
	// class. With Options.UnfoldSystemMethods set, new call targets are
	// never classified System; they become Unknown instead.
	System
	// Inherited is a call target whose descriptor names a class that
	// does not itself define the method, but a superclass does.
	Inherited
	// Unknown is a call target the repository cannot resolve at all:
	// the method, or the class it would live on, is absent.
	Unknown
)

func (s Status) String() string {
	switch s {
	case App:
		return "app"
	case System:
		return "system"
	case Inherited:
		return "inherited"
	case Unknown:
		return "unknown"
	}
	return "?"
}

// Options controls graph construction.
type Options struct {
	// IncludeSystem registers nodes (and scans bodies) for classes the
	// repository marked as system, not just application classes.
	IncludeSystem bool
	// UnfoldSystemMethods, when set, never resolves a call target past
	// the repository's direct descriptor match: every callee not
	// already a node becomes Unknown and every site that reaches it is
	// marked a zombie root immediately, rather than being classified
	// System or Inherited. This mirrors the spec's "unfold_system_methods"
	// flag for tools that want to treat the whole platform SDK as a
	// black box.
	UnfoldSystemMethods bool
}

// Node is one callgraph vertex: a method, resolved or descriptor-only,
// plus the zombie bookkeeping the builder and patcher share.
type Node struct {
	Descr  repo.MethodDescr
	UID    repo.MethodUid // zero for a placeholder never resolved to a real method
	Status Status

	// ZombieRoots are addresses inside this method's own body where the
	// reference (an invoke target, a class reference, or a field
	// accessor) could not be resolved.
	ZombieRoots map[dex.Addr]bool
	// ZombieCalls are addresses inside this method's own body that call
	// a method which is itself (transitively) zombie.
	ZombieCalls map[dex.Addr]bool
}

// IsZombie reports whether the node touches an unresolvable reference,
// directly or by calling one.
func (n *Node) IsZombie() bool {
	return len(n.ZombieRoots) > 0 || len(n.ZombieCalls) > 0
}

func newNode(d repo.MethodDescr, uid repo.MethodUid, status Status) *Node {
	return &Node{
		Descr:       d,
		UID:         uid,
		Status:      status,
		ZombieRoots: map[dex.Addr]bool{},
		ZombieCalls: map[dex.Addr]bool{},
	}
}

// Edge is one (caller, callee) pair, carrying every call-site address
// inside the caller that targets the callee.
type Edge struct {
	From, To repo.MethodDescr
	Sites    map[dex.Addr]bool
}

// Graph is the interprocedural invocation graph over one repository.
type Graph struct {
	Nodes map[repo.MethodDescr]*Node

	// out[caller][callee] and in[callee][caller] both point at the same
	// *Edge value; kept as two indexes so propagation can walk either
	// direction without a linear scan.
	out map[repo.MethodDescr]map[repo.MethodDescr]*Edge
	in  map[repo.MethodDescr]map[repo.MethodDescr]*Edge
}

func newGraph() *Graph {
	return &Graph{
		Nodes: map[repo.MethodDescr]*Node{},
		out:   map[repo.MethodDescr]map[repo.MethodDescr]*Edge{},
		in:    map[repo.MethodDescr]map[repo.MethodDescr]*Edge{},
	}
}

// Edges returns every edge leaving caller, in no particular order.
func (g *Graph) Edges(caller repo.MethodDescr) []*Edge {
	m := g.out[caller]
	out := make([]*Edge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	return out
}

// CallersOf returns every node with an edge into callee.
func (g *Graph) CallersOf(callee repo.MethodDescr) []*Edge {
	m := g.in[callee]
	out := make([]*Edge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	return out
}

func (g *Graph) addEdge(caller, callee repo.MethodDescr, addr dex.Addr) {
	if g.out[caller] == nil {
		g.out[caller] = map[repo.MethodDescr]*Edge{}
	}
	e, ok := g.out[caller][callee]
	if !ok {
		e = &Edge{From: caller, To: callee, Sites: map[dex.Addr]bool{}}
		g.out[caller][callee] = e
		if g.in[callee] == nil {
			g.in[callee] = map[repo.MethodDescr]*Edge{}
		}
		g.in[callee][caller] = e
	}
	e.Sites[addr] = true
}

// TraverseCalleesFirst orders every node so that, as far as a graph with
// recursion cycles allows, a method's callees come before the method
// itself: a DFS postorder over the call-out edges, breaking cycles by
// treating a node already on the current path as if it had no further
// unvisited callees. An analysis driven in this order usually sees a
// callee's summary already settled the first time it visits a caller,
// the same traversal the information-flow fixpoint repeats to
// convergence.
func (g *Graph) TraverseCalleesFirst() []*Node {
	roots := make([]repo.MethodDescr, 0, len(g.Nodes))
	for d := range g.Nodes {
		roots = append(roots, d)
	}
	sort.Slice(roots, func(i, j int) bool { return descrLess(roots[i], roots[j]) })

	visited := map[repo.MethodDescr]bool{}
	onStack := map[repo.MethodDescr]bool{}
	order := make([]*Node, 0, len(roots))

	var visit func(d repo.MethodDescr)
	visit = func(d repo.MethodDescr) {
		if visited[d] || onStack[d] {
			return
		}
		onStack[d] = true
		callees := make([]repo.MethodDescr, 0, len(g.out[d]))
		for callee := range g.out[d] {
			callees = append(callees, callee)
		}
		sort.Slice(callees, func(i, j int) bool { return descrLess(callees[i], callees[j]) })
		for _, callee := range callees {
			visit(callee)
		}
		onStack[d] = false
		visited[d] = true
		order = append(order, g.Nodes[d])
	}

	for _, d := range roots {
		visit(d)
	}
	return order
}

func descrLess(a, b repo.MethodDescr) bool {
	if a.ClassName != b.ClassName {
		return a.ClassName < b.ClassName
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if len(a.ParamTypes) != len(b.ParamTypes) {
		return len(a.ParamTypes) < len(b.ParamTypes)
	}
	for i := range a.ParamTypes {
		if a.ParamTypes[i] != b.ParamTypes[i] {
			return a.ParamTypes[i] < b.ParamTypes[i]
		}
	}
	return a.ReturnType < b.ReturnType
}
