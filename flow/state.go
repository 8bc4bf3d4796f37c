// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/cfg"
	"github.com/saferwall/dex/dataflow"
)

// State is the per-method register vector the information-flow analysis
// threads through the forward dataflow engine: one Flows set per
// register, the tri-state last_exception/last_result bindings, the
// signature under construction for the method being analysed, and the
// set of condition vertices whose branches control the point currently
// being transferred.
type State struct {
	Regs          map[dex.Reg]Flows
	HasException  bool
	LastException Flows
	HasResult     bool
	LastResult    Flows
	Signature     *Signature
	Conditions    map[VertexHash]bool
}

// Init builds the entry state for method: every register's Flows
// starts empty except the parameter registers, which are seeded with an
// explicit flow from a fresh Parameter(method, i) vertex — `this` is
// parameter 0 for non-static methods, matching the layout
// typecheck.Init uses for the same register file.
func Init(ctx *dataflow.Context) (State, error) {
	item, ok := ctx.Container.CodeItemAt(ctx.Method.CodeOff)
	if !ok {
		return State{}, dex.ErrMissingCodeItem
	}
	s := State{
		Regs:       make(map[dex.Reg]Flows, item.RegistersSize),
		Signature:  NewSignature(),
		Conditions: map[VertexHash]bool{},
	}
	for r := dex.Reg(0); int(r) < int(item.RegistersSize); r++ {
		s.Regs[r] = NewFlows()
	}

	first := dex.Reg(int(item.RegistersSize) - int(item.InsSize))
	next := first
	paramCount := 0

	seed := func() {
		v := ParameterVertex(ctx.Method.UID, paramCount)
		h := s.Signature.Amg.AddVertex(v)
		s.Regs[next] = FlowsOf(Flow{Vertex: h, Type: Explicit})
		paramCount++
	}

	if !ctx.Method.IsStatic() {
		seed()
		next++
	}
	for _, p := range ctx.Method.Descr.ParamTypes {
		seed()
		next++
		if isWideDescriptor(p) {
			s.Regs[next] = s.Regs[next-1]
			next++
		}
	}
	return s, nil
}

func (s State) clone() State {
	regs := make(map[dex.Reg]Flows, len(s.Regs))
	for k, v := range s.Regs {
		regs[k] = v
	}
	conds := make(map[VertexHash]bool, len(s.Conditions))
	for h := range s.Conditions {
		conds[h] = true
	}
	n := s
	n.Regs = regs
	n.Conditions = conds
	n.Signature = s.Signature.Clone()
	return n
}

func (s State) get(r dex.Reg) Flows {
	if f, ok := s.Regs[r]; ok {
		return f
	}
	return NewFlows()
}

func (s State) set(r dex.Reg, f Flows) State {
	n := s.clone()
	n.Regs[r] = f
	return n
}

func (s State) setWide(r dex.Reg, f Flows) State {
	n := s.clone()
	n.Regs[r] = f
	n.Regs[r.Pair()] = f
	return n
}

// context returns s's condition set as a plain map, the shape
// Flows.ApplyContext expects.
func (s State) context() map[VertexHash]bool { return s.Conditions }

// Join implements dataflow.State: pointwise register join, tri-state
// last_exception/last_result (Some ∧ Some → Some(join), else None,
// mirroring typecheck.State.Join), and the two paths' signatures merged.
func (s State) Join(other dataflow.State, ctx *dataflow.Context) dataflow.State {
	o := other.(State)
	out := s.clone()
	for r, f := range o.Regs {
		if cur, ok := out.Regs[r]; ok {
			out.Regs[r] = cur.Join(f)
		} else {
			out.Regs[r] = f
		}
	}
	out.HasException = s.HasException && o.HasException
	if out.HasException {
		out.LastException = s.LastException.Join(o.LastException)
	} else {
		out.LastException = NewFlows()
	}
	out.HasResult = s.HasResult && o.HasResult
	if out.HasResult {
		out.LastResult = s.LastResult.Join(o.LastResult)
	} else {
		out.LastResult = NewFlows()
	}
	for h := range o.Conditions {
		out.Conditions[h] = true
	}
	out.Signature.Join(o.Signature)
	return out
}

// Meet implements dataflow.State for interface completeness; this
// instantiation is forward-only, so the backward driver never calls it
// (see Flows.Meet).
func (s State) Meet(other dataflow.State, ctx *dataflow.Context) dataflow.State {
	o := other.(State)
	out := s.clone()
	for r, f := range out.Regs {
		out.Regs[r] = f.Meet(o.get(r))
	}
	return out
}

// TransferBranch records the branch condition's operand vertices as
// implicit context for whatever this edge's target transfers next: only
// IfTrue/IfFalse carry comparison registers (switch's case operand isn't
// exposed on cfg.Branch), matching this analysis's scope.
func (s State) TransferBranch(br cfg.Branch, ctx *dataflow.Context) dataflow.State {
	if br.Kind != cfg.IfTrue && br.Kind != cfg.IfFalse {
		return s
	}
	out := s.clone()
	for h := range s.get(br.R).Nodes() {
		out.Conditions[h] = true
	}
	if br.Op <= dex.OpIfLe {
		for h := range s.get(br.R2).Nodes() {
			out.Conditions[h] = true
		}
	}
	return out
}

// Equal is structural equality over the register map, tri-state fields,
// conditions and signature — used to detect a fixpoint.
func (s State) Equal(other dataflow.State) bool {
	o := other.(State)
	if len(s.Regs) != len(o.Regs) {
		return false
	}
	for r, f := range s.Regs {
		of, ok := o.Regs[r]
		if !ok || !f.Equal(of) {
			return false
		}
	}
	if s.HasException != o.HasException || (s.HasException && !s.LastException.Equal(o.LastException)) {
		return false
	}
	if s.HasResult != o.HasResult || (s.HasResult && !s.LastResult.Equal(o.LastResult)) {
		return false
	}
	if len(s.Conditions) != len(o.Conditions) {
		return false
	}
	for h := range s.Conditions {
		if !o.Conditions[h] {
			return false
		}
	}
	return s.Signature.Equal(o.Signature)
}
