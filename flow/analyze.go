// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/callgraph"
	"github.com/saferwall/dex/cfg"
	"github.com/saferwall/dex/dataflow"
	"github.com/saferwall/dex/repo"
	"github.com/saferwall/dex/typecheck"
)

// Report is the settled outcome of analysing every method in g: one
// signature per method whose body this instantiation fully supports,
// and the first error encountered building or running each skipped
// method's dataflow (ErrUnsupported for a method whose body contains an
// opcode this instantiation does not model; no entry for a method
// skipped because it has no code).
type Report struct {
	Signatures map[repo.MethodUid]*Signature
	Errors     map[repo.MethodUid]error
}

// Analyze runs the information-flow fixpoint over every method g
// orders, repeating the full callees-first traversal until one pass
// settles every signature unchanged. Methods whose body contains an
// opcode this instantiation does not model are skipped; their absence
// from Signatures makes every call site resolving to them fall back to
// the conservative empty-flows treatment (see transferInvokeVirtual/
// transferInvokeDirect).
func Analyze(r *repo.Repository, g *callgraph.Graph) *Report {
	order := g.TraverseCalleesFirst()
	typechecks := map[repo.MethodUid]*dataflow.Result{}
	signatures := map[repo.MethodUid]*Signature{}
	errs := map[repo.MethodUid]error{}

	for {
		changed := false
		for _, node := range order {
			if node.UID == 0 {
				continue
			}
			meth, ok := r.Method(node.UID)
			if !ok || meth.CodeOff == 0 {
				continue
			}
			item, ok := meth.Dex.CodeItemAt(meth.CodeOff)
			if !ok {
				continue
			}
			instrs := item.Instructions()
			if !allSupported(instrs) {
				errs[node.UID] = ErrUnsupported
				continue
			}

			class, _ := r.GetClassByName(meth.Descr.ClassName)
			baseCtx := &dataflow.Context{Container: meth.Dex, Repo: r, Method: meth, Class: class}

			tc, ok := typechecks[node.UID]
			if !ok {
				g2, err := cfg.Build(item, instrs)
				if err != nil {
					errs[node.UID] = err
					continue
				}
				outcome, err := typecheck.Analyze(g2, baseCtx, false)
				if err != nil {
					errs[node.UID] = err
					continue
				}
				tc = outcome.Result
				typechecks[node.UID] = tc
			}

			g2, err := cfg.Build(item, instrs)
			if err != nil {
				errs[node.UID] = err
				continue
			}
			ctx := &dataflow.Context{
				Container: meth.Dex, Repo: r, Method: meth, Class: class,
				Extra: &Extra{Typecheck: tc, Signatures: signatures},
			}
			seed, err := Init(ctx)
			if err != nil {
				errs[node.UID] = err
				continue
			}
			res, err := dataflow.RunForward(g2, seed, ctx)
			if err != nil {
				errs[node.UID] = err
				continue
			}

			sig := mergeExitSignatures(res)
			sig.Prune()

			prev, had := signatures[node.UID]
			if !had || !sig.Equal(prev) {
				changed = true
				signatures[node.UID] = sig
			}
		}
		if !changed {
			break
		}
	}

	return &Report{Signatures: signatures, Errors: errs}
}

// mergeExitSignatures folds every reached instruction's exit-state
// signature into one: AMG vertices/edges and return/throw flows only
// ever grow along a path, so the union over every exit captures
// whatever any path through the method contributed, matching how the
// original accumulates a StateContext's signature across its fixpoint.
func mergeExitSignatures(res *dataflow.Result) *Signature {
	out := NewSignature()
	for _, st := range res.Exits {
		s := st.(State)
		out.Join(s.Signature)
	}
	return out
}

func allSupported(instrs []dex.Labeled) bool {
	for _, l := range instrs {
		if l.Ins.Fmt == dex.FmtPayload {
			continue
		}
		if !supported(l.Ins.Op) {
			return false
		}
	}
	return true
}
