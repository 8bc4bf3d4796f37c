// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typecheck

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/cfg"
	"github.com/saferwall/dex/dataflow"
)

// Outcome is the result of typechecking one method body: the per-
// address entry/exit states the rest of the pipeline (the information-
// flow analysis) consumes, plus any subtyping failures recorded along
// the way.
type Outcome struct {
	Result *dataflow.Result
	Errors []TypeError
}

// Analyze runs the forward fixpoint over method's CFG starting from the
// method-entry state built by Init, always to completion. Every
// subtyping failure is recorded and the walk proceeds, substituting
// nothing — the offending register simply keeps whatever type the
// transfer function computed. In non-strict mode (the default)
// Outcome.Errors lists every distinct failure; in strict mode it holds
// only the first one in address order.
func Analyze(g *cfg.CFG, ctx *dataflow.Context, strict bool) (*Outcome, error) {
	seed, err := Init(ctx, strict)
	if err != nil {
		return nil, err
	}

	res, err := dataflow.RunForward(g, seed, ctx)
	if err != nil {
		return nil, err
	}

	// Every visited instruction's exit state carries the full Errors
	// log accumulated along whichever path last computed it, so the
	// same failure can appear under more than one address's state (re-
	// joins re-append rather than dedup, deliberately — see State.Join)
	// and the same worklist re-visit can record it twice. Collapse to
	// one entry per (address, found, expected) before reporting.
	seen := map[string]bool{}
	var errs []TypeError
	for _, addr := range sortedAddrs(res.Exits) {
		st := res.Exits[addr].(State)
		for _, e := range st.Errors {
			key := e.Error()
			if seen[key] {
				continue
			}
			seen[key] = true
			errs = append(errs, e)
			if strict {
				return &Outcome{Result: res, Errors: errs}, nil
			}
		}
	}
	return &Outcome{Result: res, Errors: errs}, nil
}

func sortedAddrs(m map[dex.Addr]dataflow.State) []dex.Addr {
	out := make([]dex.Addr, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
