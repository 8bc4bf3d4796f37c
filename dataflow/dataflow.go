// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package dataflow is the generic worklist fixpoint engine shared by the
// type-analysis and information-flow instantiations. Analyses plug in by
// implementing State; this package never inspects a concrete state's
// payload, only calls the interface methods it's given.
package dataflow

import (
	"errors"

	"github.com/saferwall/dex"
	"github.com/saferwall/dex/cfg"
	"github.com/saferwall/dex/repo"
)

// ErrNonMonotone is a fatal internal error: a transfer or join/meet
// function produced a state that moved backward in the lattice. The
// forward engine detects this when a recomputed state does not lie above
// the one it replaces (joining the two does not give back the new state,
// see stateRegressed), which cannot happen for a monotone, finite-height
// lattice. RunBackward does not make this check.
var ErrNonMonotone = errors.New("dataflow: non-monotone state transition detected")

// Context carries the read-only inputs every transfer function needs:
// the container a method's code lives in, the repository for resolving
// descriptors, and the method/class being analysed.
type Context struct {
	Container *dex.Container
	Repo      *repo.Repository
	Method    *repo.Method
	Class     *repo.Class

	// Extra is an analysis-specific side channel: a later instantiation
	// built on top of an earlier one's results (e.g. information-flow
	// reading type-analysis's per-address register types to resolve a
	// virtual call's receiver) stashes whatever it needs here rather than
	// growing this struct per consumer. nil when unused.
	Extra any
}

// State is the contract an abstract domain must satisfy to be driven by
// this package's forward/backward engines. Implementations type-assert
// the `other`/`State` arguments back to their own concrete type; the
// engine treats every value opaquely.
type State interface {
	// Join computes the monotone least upper bound with other, used by
	// the forward driver at block entries.
	Join(other State, ctx *Context) State
	// Meet computes the monotone greatest lower bound with other, used
	// by the backward driver at block exits.
	Meet(other State, ctx *Context) State
	// TransferBranch refines the state carried across one CFG edge,
	// e.g. narrowing a register's type on a CastSuccess edge.
	TransferBranch(br cfg.Branch, ctx *Context) State
	// TransferInstr applies one instruction. Forward analyses read it as
	// pre -> post; backward analyses read it as post -> pre.
	TransferInstr(l dex.Labeled, ctx *Context) State
	// Equal reports structural equality, used to detect a fixpoint.
	Equal(other State) bool
}

// EntryChecker is implemented by backward analyses that need a
// predicate evaluated once the fixpoint completes (the dataflow
// engine's `entry_reached` hook). Forward analyses need not implement
// it.
type EntryChecker interface {
	EntryReached(ctx *Context) bool
}

// Result holds the per-instruction-address pre- and post-states computed
// by a completed fixpoint run, keyed by every instruction's own address,
// not just block boundaries.
type Result struct {
	Entries map[dex.Addr]State
	Exits   map[dex.Addr]State
}

// At returns the (entry, exit) pair for one instruction address.
func (r *Result) At(addr dex.Addr) (entry, exit State, ok bool) {
	entry, okE := r.Entries[addr]
	exit, okX := r.Exits[addr]
	return entry, exit, okE && okX
}
