// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import mapset "github.com/deckarep/golang-set/v2"

// Flow is one (vertex, flow-type) pair: "this value may have come from
// vertex, via an explicit or implicit path".
type Flow struct {
	Vertex VertexHash
	Type   FlowType
}

// Flows is a set of Flow, the per-register abstract value this
// instantiation's State threads through the dataflow engine.
type Flows struct {
	set mapset.Set[Flow]
}

func NewFlows() Flows { return Flows{set: mapset.NewThreadUnsafeSet[Flow]()} }

func FlowsOf(f Flow) Flows {
	fs := NewFlows()
	fs.set.Add(f)
	return fs
}

func (f Flows) Add(flow Flow) { f.set.Add(flow) }

func (f Flows) Len() int { return f.set.Cardinality() }

func (f Flows) ToSlice() []Flow { return f.set.ToSlice() }

// Join computes the ⊆-union lattice join: if one side is already a
// subset of the other, the join is just the larger side (avoids
// needlessly materialising a new set on every straight-line join).
func (f Flows) Join(other Flows) Flows {
	if f.set.IsSubset(other.set) {
		return other
	}
	if other.set.IsSubset(f.set) {
		return f
	}
	return Flows{set: f.set.Union(other.set)}
}

// Meet computes the ⊇-intersection greatest lower bound, needed only to
// satisfy dataflow.State's interface completeness: this analysis is
// forward-only (mirrors typecheck.State.Meet, never exercised by
// RunForward, which never calls it).
func (f Flows) Meet(other Flows) Flows {
	return Flows{set: f.set.Intersect(other.set)}
}

// ApplyContext adds one implicit flow per vertex hash in conds: the
// current instruction's result depends, at least implicitly, on every
// branch condition whose outcome dominates it.
func (f Flows) ApplyContext(conds map[VertexHash]bool) Flows {
	out := f
	for h := range conds {
		out.Add(Flow{Vertex: h, Type: Implicit})
	}
	return out
}

// Retain keeps only the flows matching keep, mutating the underlying set
// (Flows wraps a reference type so copies alias the same set; callers
// that need an independent copy should Clone first).
func (f Flows) Retain(keep func(Flow) bool) {
	for _, flow := range f.set.ToSlice() {
		if !keep(flow) {
			f.set.Remove(flow)
		}
	}
}

func (f Flows) Clone() Flows {
	return Flows{set: f.set.Clone()}
}

// Split partitions f into its explicit and implicit halves.
func (f Flows) Split() (explicit, implicit Flows) {
	explicit, implicit = NewFlows(), NewFlows()
	for _, flow := range f.set.ToSlice() {
		if flow.Type == Explicit {
			explicit.Add(flow)
		} else {
			implicit.Add(flow)
		}
	}
	return
}

// IntoImplicit returns a copy of f with every flow's type forced to
// Implicit, used when a value depends on another only through its
// length or presence (array-length, new-array's size operand).
func (f Flows) IntoImplicit() Flows {
	out := NewFlows()
	for _, flow := range f.set.ToSlice() {
		out.Add(Flow{Vertex: flow.Vertex, Type: Implicit})
	}
	return out
}

// Nodes returns the distinct vertex hashes referenced by f, regardless
// of flow type — used to seed Prune's keep-set from return/throw flows.
func (f Flows) Nodes() map[VertexHash]bool {
	out := map[VertexHash]bool{}
	for _, flow := range f.set.ToSlice() {
		out[flow.Vertex] = true
	}
	return out
}

// Equal reports set equality, used by State.Equal to detect a fixpoint.
func (f Flows) Equal(other Flows) bool {
	return f.set.Equal(other.set)
}
