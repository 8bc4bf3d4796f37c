// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import "github.com/saferwall/dex/repo"

// FlowType distinguishes a data-dependent (explicit) flow from a
// control-dependent (implicit) one.
type FlowType uint8

const (
	Explicit FlowType = iota
	Implicit
)

// Edge labels one AMG edge: the field the flow crosses through, and
// whether that crossing is explicit or implicit.
type Edge struct {
	Field repo.FieldUid
	Type  FlowType
}

// edgeWeight is the label set on one (from, to) pair: parallel edges
// with distinct (field, type) labels stay distinct rather than
// collapsing, since add_edge folds into an existing pair's weight set.
type edgeWeight map[Edge]bool

func (w edgeWeight) insert(e Edge) { w[e] = true }

func (w edgeWeight) join(other edgeWeight) {
	for e := range other {
		w[e] = true
	}
}

func (w edgeWeight) hasField(f repo.FieldUid) bool {
	for e := range w {
		if e.Field == f {
			return true
		}
	}
	return false
}

// Amg is the access/modification graph: a directed multigraph over
// content-hashed vertices, edge-labeled by (field, flow-type) sets.
type Amg struct {
	vertex map[VertexHash]Vertex
	out    map[VertexHash]map[VertexHash]edgeWeight
}

func NewAmg() *Amg {
	return &Amg{
		vertex: map[VertexHash]Vertex{},
		out:    map[VertexHash]map[VertexHash]edgeWeight{},
	}
}

// AddVertex inserts v if its content hash is not already present and
// returns that hash either way.
func (a *Amg) AddVertex(v Vertex) VertexHash {
	h := v.contentHash()
	if _, ok := a.vertex[h]; !ok {
		a.vertex[h] = v
	}
	return h
}

// Vertex returns the vertex registered under h.
func (a *Amg) Vertex(h VertexHash) (Vertex, bool) {
	v, ok := a.vertex[h]
	return v, ok
}

// AddEdge records one labeled edge from -> to, merging into any
// existing edge between the same pair.
func (a *Amg) AddEdge(from, to VertexHash, e Edge) {
	if a.out[from] == nil {
		a.out[from] = map[VertexHash]edgeWeight{}
	}
	w, ok := a.out[from][to]
	if !ok {
		w = edgeWeight{}
		a.out[from][to] = w
	}
	w.insert(e)
}

// Successor is one (target, label-set) pair returned by Successors.
type Successor struct {
	To   VertexHash
	Edge edgeWeight
}

// HasField reports whether this successor's edge label set contains any
// edge crossing field f, regardless of flow type.
func (s Successor) HasField(f repo.FieldUid) bool { return s.Edge.hasField(f) }

// FlowTypeFor returns the flow type of the edge labeled with field f in
// this successor, defaulting to Explicit if somehow absent (callers only
// call this after HasField has confirmed membership).
func (s Successor) FlowTypeFor(f repo.FieldUid) FlowType {
	for e := range s.Edge {
		if e.Field == f {
			return e.Type
		}
	}
	return Explicit
}

// Successors returns every edge leaving v.
func (a *Amg) Successors(v VertexHash) []Successor {
	m := a.out[v]
	out := make([]Successor, 0, len(m))
	for to, w := range m {
		out = append(out, Successor{To: to, Edge: w})
	}
	return out
}

// Join merges other into a: every vertex and edge of other not already
// present in a is added; edges present in both merge their label sets.
func (a *Amg) Join(other *Amg) {
	for h, v := range other.vertex {
		if _, ok := a.vertex[h]; !ok {
			a.vertex[h] = v
		}
	}
	for from, tos := range other.out {
		for to, w := range tos {
			if a.out[from] == nil {
				a.out[from] = map[VertexHash]edgeWeight{}
			}
			cur, ok := a.out[from][to]
			if !ok {
				cur = edgeWeight{}
				a.out[from][to] = cur
			}
			cur.join(w)
		}
	}
}

// Inject embeds other (a callee's signature AMG) into a, substituting
// other's Parameter(_, i, suffix) vertices by the suffix-extension of
// whichever vertices the caller's i-th parameter currently flows from
// (parameterFlows). Returns, for every vertex hash in other, the set of
// hashes it maps to in a — a Parameter vertex can map to several
// caller-side vertices at once, everything else maps one-to-one.
func (a *Amg) Inject(other *Amg, parameterFlows []Flows) (map[VertexHash]map[VertexHash]bool, error) {
	mapping := map[VertexHash]map[VertexHash]bool{}

	for oh, ov := range other.vertex {
		if _, exists := a.out[oh]; exists {
			mapping[oh] = map[VertexHash]bool{oh: true}
			continue
		}
		if _, exists := a.vertex[oh]; exists && ov.Kind != KindParameter {
			mapping[oh] = map[VertexHash]bool{oh: true}
			continue
		}
		if ov.Kind != KindParameter {
			a.vertex[oh] = ov
			mapping[oh] = map[VertexHash]bool{oh: true}
			continue
		}
		if ov.Param >= len(parameterFlows) {
			return nil, ErrUnknownVertex
		}
		set := map[VertexHash]bool{}
		for _, pf := range parameterFlows[ov.Param].ToSlice() {
			pv, ok := a.vertex[pf.Vertex]
			if !ok {
				return nil, ErrUnknownVertex
			}
			extended, err := pv.WithSuffix(ov.Fields)
			if err != nil {
				return nil, err
			}
			set[a.AddVertex(extended)] = true
		}
		mapping[oh] = set
	}

	for ofrom, tos := range other.out {
		for oto, w := range tos {
			for fromHash := range mapping[ofrom] {
				for toHash := range mapping[oto] {
					for e := range w {
						a.AddEdge(fromHash, toHash, e)
					}
				}
			}
		}
	}

	return mapping, nil
}

// Clone deep-copies a, including every edge label set, so that two
// branches forked from the same state can each extend their own AMG
// without one path's AddVertex/AddEdge calls leaking into the other.
func (a *Amg) Clone() *Amg {
	out := NewAmg()
	for h, v := range a.vertex {
		out.vertex[h] = v
	}
	for from, tos := range a.out {
		nt := make(map[VertexHash]edgeWeight, len(tos))
		for to, w := range tos {
			nw := make(edgeWeight, len(w))
			for e := range w {
				nw[e] = true
			}
			nt[to] = nw
		}
		out.out[from] = nt
	}
	return out
}

// Prune drops every vertex with no incident edge, unless its hash is in
// keep (the union of a signature's return and throw flows).
func (a *Amg) Prune(keep map[VertexHash]bool) {
	indeg := map[VertexHash]int{}
	for from, tos := range a.out {
		if len(tos) > 0 {
			indeg[from] += 0 // ensure presence without counting self as incoming
		}
		for to := range tos {
			indeg[to]++
		}
	}
	hasOut := map[VertexHash]bool{}
	for from, tos := range a.out {
		if len(tos) > 0 {
			hasOut[from] = true
		}
	}
	for h := range a.vertex {
		if keep[h] {
			continue
		}
		if indeg[h] == 0 && !hasOut[h] {
			delete(a.vertex, h)
			delete(a.out, h)
		}
	}
}
