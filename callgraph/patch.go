// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package callgraph

import (
	"errors"

	"github.com/saferwall/dex"
	"github.com/saferwall/dex/repo"
)

// ErrUnpatchable is returned by PatchUnknownRefs when a zombie-root
// instruction's opcode has no type-preserving replacement in the table.
var ErrUnpatchable = errors.New("callgraph: no patch rule for opcode")

// PatchUnknownRefs rewrites every zombie root recorded on g's nodes to a
// type-preserving stand-in: a value-producing instruction becomes a
// zero/null constant of the same width, an exception-producing one
// becomes an unconditional throw of a synthesized null, and a plain
// invoke (one whose result nothing reads) is erased to nops. Every
// replacement occupies exactly as many code units as the instruction it
// replaces, so branch targets elsewhere in the method stay valid.
func PatchUnknownRefs(r *repo.Repository, g *Graph) error {
	for _, n := range g.Nodes {
		if n.UID == 0 || len(n.ZombieRoots) == 0 {
			continue
		}
		m, ok := r.Method(n.UID)
		if !ok || m.CodeOff == 0 {
			continue
		}
		item, ok := m.Dex.CodeItemAt(m.CodeOff)
		if !ok {
			continue
		}
		instrs := item.Instructions()
		for i, l := range instrs {
			if !n.ZombieRoots[l.Addr] {
				continue
			}
			var next dex.Labeled
			if i+1 < len(instrs) {
				next = instrs[i+1]
			}
			if err := patchOne(item, l, next); err != nil {
				return err
			}
		}
	}
	return nil
}

// patchOne rewrites the zombie instruction l in item. next is the
// instruction immediately following l in the original stream (zero
// value if l was last), consulted only to fold a trailing
// move-result-object into an erased invoke's replacement.
func patchOne(item *dex.CodeItem, l dex.Labeled, next dex.Labeled) error {
	op := l.Ins.Op
	switch {
	case op == dex.OpConstClass, op == dex.OpNewInstance:
		item.PatchAt(l.Addr, constInstr(dex.OpConst16, l.Ins.A, 0))
		return nil

	case op == dex.OpCheckCast:
		item.PatchRange(l.Addr, l.Ins.Size, []dex.Instruction{
			constInstr(dex.OpConst4, 0, 0),
			{Op: dex.OpThrow, Fmt: dex.Fmt11x, Size: 1, A: 0},
		})
		return nil

	case op == dex.OpInstanceOf, op == dex.OpNewArray:
		item.PatchRange(l.Addr, l.Ins.Size, []dex.Instruction{
			constInstr(dex.OpConst4, l.Ins.A, 0),
			{Op: dex.OpNop, Fmt: dex.Fmt10x, Size: 1},
		})
		return nil

	case dex.IsInstanceFieldGet(op), dex.IsStaticFieldGet(op):
		dst := l.Ins.A
		if dex.IsWideAccessor(op) {
			item.PatchRange(l.Addr, l.Ins.Size, padTo(l.Ins.Size, []dex.Instruction{
				{Op: dex.OpConstWide16, Fmt: dex.Fmt21s, Size: 2, A: dst, B: 0},
			}))
			return nil
		}
		item.PatchRange(l.Addr, l.Ins.Size, padTo(l.Ins.Size, []dex.Instruction{
			constInstr(dex.OpConst4, dst, 0),
		}))
		return nil

	case dex.IsInstanceFieldPut(op), dex.IsStaticFieldPut(op):
		item.PatchRange(l.Addr, l.Ins.Size, nopInstructions(l.Ins.Size))
		return nil

	case dex.IsInvoke(op), dex.IsRangeInvoke(op):
		span := l.Ins.Size
		if next.Ins.Op == dex.OpMoveResultObject || next.Ins.Op == dex.OpMoveResult ||
			next.Ins.Op == dex.OpMoveResultWide {
			dst := next.Ins.A
			total := span + next.Ins.Size
			if next.Ins.Op == dex.OpMoveResultWide {
				item.PatchRange(l.Addr, total, padTo(total, []dex.Instruction{
					{Op: dex.OpConstWide16, Fmt: dex.Fmt21s, Size: 2, A: dst, B: 0},
				}))
			} else {
				item.PatchRange(l.Addr, total, padTo(total, []dex.Instruction{
					constInstr(dex.OpConst16, dst, 0),
				}))
			}
			return nil
		}
		item.PatchRange(l.Addr, span, nopInstructions(span))
		return nil
	}
	return ErrUnpatchable
}

// constInstr builds a const/4 or const/16 loading value into register
// dst, whichever op is requested; both share Fmt11n/Fmt21s's A-then-
// literal layout closely enough that one helper covers both.
func constInstr(op uint16, dst, value int64) dex.Instruction {
	if op == dex.OpConst4 {
		return dex.Instruction{Op: dex.OpConst4, Fmt: dex.Fmt11n, Size: 1, A: dst, B: value}
	}
	return dex.Instruction{Op: dex.OpConst16, Fmt: dex.Fmt21s, Size: 2, A: dst, B: value}
}

// padTo appends nops after instrs until the total size in code units
// reaches want.
func padTo(want int, instrs []dex.Instruction) []dex.Instruction {
	have := 0
	for _, in := range instrs {
		have += in.Size
	}
	for have < want {
		instrs = append(instrs, dex.Instruction{Op: dex.OpNop, Fmt: dex.Fmt10x, Size: 1})
		have++
	}
	return instrs
}

func nopInstructions(n int) []dex.Instruction {
	out := make([]dex.Instruction, n)
	for i := range out {
		out[i] = dex.Instruction{Op: dex.OpNop, Fmt: dex.Fmt10x, Size: 1}
	}
	return out
}
