// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dataflow

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/cfg"
)

// RunForward drives a forward fixpoint over g, starting from seed at the
// CFG's start block. The worklist round-robins over the reverse-
// postorder listing, re-visiting only blocks whose computed entry or
// exit changed since their last visit, until nothing changes — the
// textbook behaviour of the back-popping stack described for this
// engine, expressed as repeated RPO sweeps since a monotone, finite-
// height lattice makes the two equivalent up to iteration order.
func RunForward(g *cfg.CFG, seed State, ctx *Context) (*Result, error) {
	res := &Result{Entries: map[dex.Addr]State{}, Exits: map[dex.Addr]State{}}
	if len(g.Blocks) == 0 {
		return res, nil
	}

	rpo := g.ReversePostorder()
	blockEntry := make(map[int]State, len(g.Blocks))
	blockExit := make(map[int]State, len(g.Blocks))
	pending := make(map[int]bool, len(g.Blocks))
	for _, id := range rpo {
		pending[id] = true
	}

	for {
		progressed := false
		for _, id := range rpo {
			if !pending[id] {
				continue
			}
			pending[id] = false
			progressed = true

			b := g.Blocks[id]
			newEntry := computeForwardEntry(g, id, seed, ctx, blockEntry, blockExit)
			entryChanged := blockEntry[id] == nil || !blockEntry[id].Equal(newEntry)
			if entryChanged && blockEntry[id] != nil && stateRegressed(blockEntry[id], newEntry, ctx) {
				return nil, ErrNonMonotone
			}
			blockEntry[id] = newEntry

			cur := newEntry
			for _, l := range b.Instrs {
				res.Entries[l.Addr] = cur
				next := cur.TransferInstr(l, ctx)
				res.Exits[l.Addr] = next
				cur = next
			}
			exitChanged := blockExit[id] == nil || !blockExit[id].Equal(cur)
			blockExit[id] = cur

			if entryChanged {
				for _, e := range b.Out {
					if e.Branch.Kind == cfg.Catch || e.Branch.Kind == cfg.CatchAll {
						pending[e.To] = true
					}
				}
			}
			if exitChanged {
				for _, e := range b.Out {
					if e.Branch.Kind != cfg.Catch && e.Branch.Kind != cfg.CatchAll {
						pending[e.To] = true
					}
				}
			}
		}
		if !progressed {
			break
		}
	}
	return res, nil
}

// computeForwardEntry joins the contributing predecessor states: exit
// states (after transfer_branch) for non-exceptional edges, entry states
// for exceptional edges, since the throwing instruction that produced a
// Catch/CatchAll edge may not have completed.
func computeForwardEntry(g *cfg.CFG, id int, seed State, ctx *Context, blockEntry, blockExit map[int]State) State {
	in := g.InEdges(id)
	if len(in) == 0 {
		return seed
	}
	var acc State
	for _, e := range in {
		var src State
		if e.Branch.Kind == cfg.Catch || e.Branch.Kind == cfg.CatchAll {
			src = blockEntry[e.From]
		} else {
			src = blockExit[e.From]
		}
		if src == nil {
			continue
		}
		refined := src.TransferBranch(e.Branch, ctx)
		if acc == nil {
			acc = refined
		} else {
			acc = acc.Join(refined, ctx)
		}
	}
	if acc == nil {
		return seed
	}
	return acc
}

// stateRegressed reports whether next is not ⊒ prev, i.e. joining them
// does not reproduce next — a monotone join/transfer pair must never
// shrink a state that has already been observed.
func stateRegressed(prev, next State, ctx *Context) bool {
	joined := prev.Join(next, ctx)
	return !joined.Equal(next)
}
