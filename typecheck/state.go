// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typecheck

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/cfg"
	"github.com/saferwall/dex/dataflow"
	"github.com/saferwall/dex/repo"
)

// State is the per-method register vector the type analysis threads
// through the forward dataflow engine: one abstract Type per register
// slot, plus the tri-state last_exception/last_result bindings and the
// method's declared return type.
type State struct {
	Regs         map[dex.Reg]Type
	HasException bool
	LastException Type
	HasResult    bool
	LastResult   Type
	Expected     Type

	// Strict records the mode Init was called with; the transfer
	// function does not read it. In either mode a subtyping failure is
	// appended to Errors and the walk proceeds with the register types
	// the transfer function computed (nothing is replaced by Top), so
	// the worklist always reaches a fixpoint. Analyze, given the same
	// flag, reports only the first failure when strict.
	Strict bool
	Errors []TypeError
}

// Init builds the initial register vector at a method's entry block:
// every local set to Top, parameter registers filled left to right from
// the tail of the register file, `this` bound to the declaring class
// for non-static methods, and Expected set to the declared return type.
func Init(ctx *dataflow.Context, strict bool) (State, error) {
	item, ok := ctx.Container.CodeItemAt(ctx.Method.CodeOff)
	if !ok {
		return State{}, dex.ErrMissingCodeItem
	}
	s := State{
		Regs:     make(map[dex.Reg]Type, item.RegistersSize),
		Expected: typeFromDescriptor(ctx.Method.Descr.ReturnType),
		Strict:   strict,
	}
	for r := dex.Reg(0); int(r) < int(item.RegistersSize); r++ {
		s.Regs[r] = TopT()
	}

	first := dex.Reg(int(item.RegistersSize) - int(item.InsSize))
	next := first
	if !ctx.Method.IsStatic() {
		s.Regs[next] = ObjectT(ctx.Method.Descr.ClassName)
		next++
	}
	for _, p := range ctx.Method.Descr.ParamTypes {
		t := typeFromDescriptor(p)
		s.Regs[next] = t
		next++
		if isWideDescriptor(p) {
			s.Regs[next] = t
			next++
		}
	}
	return s, nil
}

func (s State) clone() State {
	regs := make(map[dex.Reg]Type, len(s.Regs))
	for k, v := range s.Regs {
		regs[k] = v
	}
	errs := append([]TypeError{}, s.Errors...)
	n := s
	n.Regs = regs
	n.Errors = errs
	return n
}

func (s State) get(r dex.Reg) Type {
	if t, ok := s.Regs[r]; ok {
		return t
	}
	return TopT()
}

func (s State) set(r dex.Reg, t Type) State {
	n := s.clone()
	n.Regs[r] = t
	return n
}

func (s State) setWide(r dex.Reg, t Type) State {
	n := s.clone()
	n.Regs[r] = t
	n.Regs[r.Pair()] = t
	return n
}

// Join implements dataflow.State: pointwise register join, and the
// tri-state join_.Some ∧ Some → Some(join); anything else → None,
// since last_exception/last_result only mean something immediately
// after the instruction that set them.
func (s State) Join(other dataflow.State, ctx *dataflow.Context) dataflow.State {
	o := other.(State)
	rep := repoOf(ctx)
	out := s.clone()
	for r, t := range o.Regs {
		if cur, ok := out.Regs[r]; ok {
			out.Regs[r] = Join(rep, cur, t)
		} else {
			out.Regs[r] = t
		}
	}
	out.HasException = s.HasException && o.HasException
	if out.HasException {
		out.LastException = Join(rep, s.LastException, o.LastException)
	} else {
		out.LastException = Type{}
	}
	out.HasResult = s.HasResult && o.HasResult
	if out.HasResult {
		out.LastResult = Join(rep, s.LastResult, o.LastResult)
	} else {
		out.LastResult = Type{}
	}
	out.Errors = append(out.Errors, o.Errors...)
	return out
}

// Meet implements dataflow.State for interface completeness; the type
// instantiation is forward-only (§4.G never runs it backward), so this
// is never called by the driver in practice. See Meet in types.go for
// why it's intentionally conservative.
func (s State) Meet(other dataflow.State, ctx *dataflow.Context) dataflow.State {
	o := other.(State)
	rep := repoOf(ctx)
	out := s.clone()
	for r, t := range out.Regs {
		out.Regs[r] = Meet(rep, t, o.get(r))
	}
	return out
}

// TransferBranch applies edge-specific refinement. Only CastSuccess
// narrows a register's static type; every other branch kind passes the
// state through unchanged (the spec names CastSuccess as the sole
// branch-level refinement point for this lattice).
func (s State) TransferBranch(br cfg.Branch, ctx *dataflow.Context) dataflow.State {
	if br.Kind == cfg.CastSuccess {
		name, err := ctx.Container.TypeName(br.CastType)
		if err == nil {
			return s.set(br.CastReg, ObjectT(name))
		}
	}
	return s
}

// Equal is structural equality over the register map and the tri-state
// fields; Errors/Strict aren't part of the lattice value so they're
// excluded, matching "Equality is structural" over the state the spec
// actually describes (the register vector, last_exception, last_result,
// expected).
func (s State) Equal(other dataflow.State) bool {
	o := other.(State)
	if len(s.Regs) != len(o.Regs) {
		return false
	}
	for r, t := range s.Regs {
		ot, ok := o.Regs[r]
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	if s.HasException != o.HasException || (s.HasException && !s.LastException.Equal(o.LastException)) {
		return false
	}
	if s.HasResult != o.HasResult || (s.HasResult && !s.LastResult.Equal(o.LastResult)) {
		return false
	}
	return s.Expected.Equal(o.Expected)
}

func repoOf(ctx *dataflow.Context) *repo.Repository {
	if ctx == nil {
		return nil
	}
	return ctx.Repo
}
