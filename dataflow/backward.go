// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dataflow

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/cfg"
)

// RunBackward drives a backward fixpoint over g. bottom seeds every
// block with no successors (returns/unhandled throws). RunBackward does
// not call EntryChecker.EntryReached on any state.
func RunBackward(g *cfg.CFG, bottom State, ctx *Context) (*Result, error) {
	res := &Result{Entries: map[dex.Addr]State{}, Exits: map[dex.Addr]State{}}
	if len(g.Blocks) == 0 {
		return res, nil
	}

	order := g.Postorder()
	blockEntry := make(map[int]State, len(g.Blocks))
	blockExit := make(map[int]State, len(g.Blocks))
	pending := make(map[int]bool, len(g.Blocks))
	for _, id := range order {
		pending[id] = true
	}

	for {
		progressed := false
		for _, id := range order {
			if !pending[id] {
				continue
			}
			pending[id] = false
			progressed = true

			b := g.Blocks[id]
			nonCatchExit := meetSuccessors(g, id, bottom, ctx, blockEntry, false)

			cur := nonCatchExit
			exits := make(map[dex.Addr]State, len(b.Instrs))
			entries := make(map[dex.Addr]State, len(b.Instrs))
			for i := len(b.Instrs) - 1; i >= 0; i-- {
				l := b.Instrs[i]
				exits[l.Addr] = cur
				prev := cur.TransferInstr(l, ctx)
				entries[l.Addr] = prev
				cur = prev
			}
			rawEntry := cur
			if len(b.Instrs) == 0 {
				rawEntry = nonCatchExit
			}

			finalEntry := rawEntry
			if hasCatchSuccessor(b) {
				catchMeet := meetSuccessors(g, id, bottom, ctx, blockEntry, true)
				if catchMeet != nil {
					finalEntry = rawEntry.Meet(catchMeet, ctx)
				}
			}

			entryChanged := blockEntry[id] == nil || !blockEntry[id].Equal(finalEntry)
			blockEntry[id] = finalEntry
			exitChanged := blockExit[id] == nil || !blockExit[id].Equal(nonCatchExit)
			blockExit[id] = nonCatchExit

			for addr, s := range entries {
				res.Entries[addr] = s
			}
			for addr, s := range exits {
				res.Exits[addr] = s
			}

			if entryChanged || exitChanged {
				for _, p := range g.InEdges(id) {
					pending[p.From] = true
				}
			}
		}
		if !progressed {
			break
		}
	}
	return res, nil
}

func hasCatchSuccessor(b *cfg.BasicBlock) bool {
	for _, e := range b.Out {
		if e.Branch.Kind == cfg.Catch || e.Branch.Kind == cfg.CatchAll {
			return true
		}
	}
	return false
}

// meetSuccessors computes the meet of out-edge successors' entry states
// (after transfer_branch), restricted to catch edges or non-catch edges
// depending on wantCatch. Returns nil if there are no matching edges.
func meetSuccessors(g *cfg.CFG, id int, bottom State, ctx *Context, blockEntry map[int]State, wantCatch bool) State {
	b := g.Blocks[id]
	var acc State
	any := false
	for _, e := range b.Out {
		isCatch := e.Branch.Kind == cfg.Catch || e.Branch.Kind == cfg.CatchAll
		if isCatch != wantCatch {
			continue
		}
		succEntry := blockEntry[e.To]
		if succEntry == nil {
			succEntry = bottom
		}
		refined := succEntry.TransferBranch(e.Branch, ctx)
		if !any {
			acc = refined
			any = true
		} else {
			acc = acc.Meet(refined, ctx)
		}
	}
	if !any {
		if wantCatch {
			return nil
		}
		return bottom
	}
	return acc
}
