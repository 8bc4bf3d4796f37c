// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package cfg builds a control-flow graph over one method's decoded
// instruction stream, exposing basic blocks and a typed edge taxonomy
// that the dataflow engine walks without re-deriving branch semantics.
package cfg

import (
	"sort"

	"github.com/saferwall/dex"
)

// BranchKind tags one outgoing edge of a basic block's final instruction.
type BranchKind uint8

const (
	// Sequence is a plain fallthrough, used both for blocks that end only
	// because the next address happens to be a jump target, and as the
	// generic "normal continuation" edge for can_throw instructions whose
	// family has no more specific success variant below.
	Sequence BranchKind = iota
	Jmp
	IfTrue
	IfFalse
	Switch
	SwitchDefault
	ArrayAccessSuccess
	InvokeSuccess
	DivSuccess
	CastSuccess
	Catch
	CatchAll
)

// Branch describes one outgoing edge's label.
type Branch struct {
	Kind BranchKind

	// IfTrue / IfFalse
	Op   uint16
	R, R2 dex.Reg

	// Switch
	CaseKey int32

	// CastSuccess
	CastReg  dex.Reg
	CastType uint32

	// Catch
	ExceptionTypeIdx uint32
}

// Edge is one outgoing edge of a block, naming its destination block and
// the branch label that produced it.
type Edge struct {
	To     int
	Branch Branch
}

// BasicBlock is a maximal straight-line run of instructions with exactly
// one entry and edges leaving only its final instruction.
type BasicBlock struct {
	ID     int
	Start  dex.Addr
	End    dex.Addr // exclusive
	Instrs []dex.Labeled
	Out    []Edge
}

// Last returns the block's final instruction. Panics if the block is
// empty, which never happens for a block produced by Build.
func (b *BasicBlock) Last() dex.Labeled { return b.Instrs[len(b.Instrs)-1] }

// CFG is the control-flow graph of one method body.
type CFG struct {
	Blocks []*BasicBlock
	Start  int

	addrToBlock map[dex.Addr]int
}

// BlockAt returns the block whose range contains addr.
func (g *CFG) BlockAt(addr dex.Addr) (*BasicBlock, bool) {
	id, ok := g.addrToBlock[addr]
	if !ok {
		return nil, false
	}
	return g.Blocks[id], true
}

// BlockStartingAt returns the block whose Start is exactly addr (a leader
// address); distinct from BlockAt, which accepts any address within the
// block's span.
func (g *CFG) BlockStartingAt(addr dex.Addr) (*BasicBlock, bool) {
	b, ok := g.BlockAt(addr)
	if !ok || b.Start != addr {
		return nil, false
	}
	return b, true
}

// divFamily lists the width-typed divide/remainder opcodes, the only
// arithmetic family that can throw (divide-by-zero).
var divFamily = map[uint16]bool{
	dex.OpDivInt: true, dex.OpRemInt: true,
	dex.OpDivLong: true, dex.OpRemLong: true,
	dex.OpDivInt2Addr: true, dex.OpRemInt2Addr: true,
	dex.OpDivIntLit16: true, dex.OpRemIntLit16: true,
	dex.OpDivIntLit8: true, dex.OpRemIntLit8: true,
}

func isArrayAccess(op uint16) bool {
	switch op {
	case dex.OpAget, dex.OpAgetWide, dex.OpAgetObject, dex.OpAgetBoolean,
		dex.OpAgetByte, dex.OpAgetChar, dex.OpAgetShort,
		dex.OpAput, dex.OpAputWide, dex.OpAputObject, dex.OpAputBoolean,
		dex.OpAputByte, dex.OpAputChar, dex.OpAputShort:
		return true
	}
	return false
}

func isTerminator(op uint16) bool {
	switch op {
	case dex.OpGoto, dex.OpGoto16, dex.OpGoto32,
		dex.OpIfEq, dex.OpIfNe, dex.OpIfLt, dex.OpIfGe, dex.OpIfGt, dex.OpIfLe,
		dex.OpIfEqz, dex.OpIfNez, dex.OpIfLtz, dex.OpIfGez, dex.OpIfGtz, dex.OpIfLez,
		dex.OpPackedSwitch, dex.OpSparseSwitch,
		dex.OpThrow,
		dex.OpReturnVoid, dex.OpReturn, dex.OpReturnWide, dex.OpReturnObject:
		return true
	}
	return false
}

func isConditionalBranch(op uint16) bool {
	switch op {
	case dex.OpIfEq, dex.OpIfNe, dex.OpIfLt, dex.OpIfGe, dex.OpIfGt, dex.OpIfLe,
		dex.OpIfEqz, dex.OpIfNez, dex.OpIfLtz, dex.OpIfGez, dex.OpIfGtz, dex.OpIfLez:
		return true
	}
	return false
}

func isSwitch(op uint16) bool {
	return op == dex.OpPackedSwitch || op == dex.OpSparseSwitch
}

func isReturn(op uint16) bool {
	switch op {
	case dex.OpReturnVoid, dex.OpReturn, dex.OpReturnWide, dex.OpReturnObject:
		return true
	}
	return false
}

// Build constructs the CFG for item's instruction stream. instrs must be
// the full decoded stream as returned by item.Instructions(), including
// pseudo-opcode payload entries (Build filters them out of the block
// partition but consults them to resolve switch targets).
func Build(item *dex.CodeItem, instrs []dex.Labeled) (*CFG, error) {
	byAddr := make(map[dex.Addr]dex.Labeled, len(instrs))
	var code []dex.Labeled // reachable instructions only, payloads excluded
	for _, l := range instrs {
		byAddr[l.Addr] = l
		if l.Ins.Fmt != dex.FmtPayload {
			code = append(code, l)
		}
	}
	sort.Slice(code, func(i, j int) bool { return code[i].Addr < code[j].Addr })

	if len(code) == 0 {
		return &CFG{Blocks: nil, addrToBlock: map[dex.Addr]int{}}, nil
	}

	tries := item.Tries
	tryForAddr := func(addr dex.Addr) *dex.TryItem {
		for i := range tries {
			if addr >= tries[i].StartAddr && addr < tries[i].EndAddr {
				return &tries[i]
			}
		}
		return nil
	}

	leaders := map[dex.Addr]bool{code[0].Addr: true}
	for _, t := range tries {
		leaders[t.StartAddr] = true
	}
	for i, l := range code {
		next := dex.Addr(0)
		hasNext := i+1 < len(code)
		if hasNext {
			next = code[i+1].Addr
		}
		end := l.Addr + dex.Addr(l.Ins.Size)
		switch {
		case isConditionalBranch(l.Ins.Op):
			leaders[branchTarget(l)] = true
			if hasNext {
				leaders[next] = true
			}
		case l.Ins.Op == dex.OpGoto || l.Ins.Op == dex.OpGoto16 || l.Ins.Op == dex.OpGoto32:
			leaders[branchTarget(l)] = true
		case isSwitch(l.Ins.Op):
			for _, tgt := range switchTargets(l, byAddr) {
				leaders[tgt] = true
			}
			if hasNext {
				leaders[end] = true
			}
		default:
			if l.Ins.CanThrow() && tryForAddr(l.Addr) != nil && hasNext {
				leaders[next] = true
			}
		}
		if hasNext && tryForAddr(l.Addr) != tryForAddr(next) {
			leaders[next] = true
		}
	}
	for _, t := range tries {
		for _, h := range t.Handlers.TypedHandlers {
			leaders[h.Addr] = true
		}
		if t.Handlers.HasCatchAll {
			leaders[t.Handlers.CatchAllAddr] = true
		}
	}

	g := &CFG{addrToBlock: map[dex.Addr]int{}}
	var cur *BasicBlock
	flush := func(endAddr dex.Addr) {
		if cur == nil {
			return
		}
		cur.End = endAddr
		for a := cur.Start; a < endAddr; a++ {
			if _, ok := g.addrToBlock[a]; !ok {
				g.addrToBlock[a] = cur.ID
			}
		}
	}
	for i, l := range code {
		if cur == nil || leaders[l.Addr] {
			flush(l.Addr)
			cur = &BasicBlock{ID: len(g.Blocks), Start: l.Addr}
			g.Blocks = append(g.Blocks, cur)
		}
		cur.Instrs = append(cur.Instrs, l)

		hasNext := i+1 < len(code)
		end := l.Addr + dex.Addr(l.Ins.Size)
		closeHere := isTerminator(l.Ins.Op) || (l.Ins.CanThrow() && tryForAddr(l.Addr) != nil)
		if !hasNext {
			closeHere = true
		} else if leaders[code[i+1].Addr] {
			closeHere = true
		}
		if closeHere {
			flush(end)
			cur = nil
		}
	}

	for _, b := range g.Blocks {
		last := b.Last()
		attachEdges(g, b, last, byAddr, tryForAddr)
	}
	return g, nil
}

func branchTarget(l dex.Labeled) dex.Addr {
	switch l.Ins.Fmt {
	case dex.Fmt10t, dex.Fmt20t, dex.Fmt30t:
		return l.Addr + dex.Addr(l.Ins.A)
	case dex.Fmt21t:
		return l.Addr + dex.Addr(l.Ins.B)
	case dex.Fmt22t:
		return l.Addr + dex.Addr(l.Ins.C)
	}
	return l.Addr
}

func switchTargets(l dex.Labeled, byAddr map[dex.Addr]dex.Labeled) []dex.Addr {
	payloadAddr := l.Addr + dex.Addr(l.Ins.B)
	p, ok := byAddr[payloadAddr]
	if !ok || p.Ins.Payload == nil {
		return nil
	}
	out := make([]dex.Addr, 0, len(p.Ins.Payload.Targets))
	for _, d := range p.Ins.Payload.Targets {
		out = append(out, l.Addr+dex.Addr(d))
	}
	return out
}

func attachEdges(g *CFG, b *BasicBlock, last dex.Labeled, byAddr map[dex.Addr]dex.Labeled, tryForAddr func(dex.Addr) *dex.TryItem) {
	op := last.Ins.Op
	end := last.Addr + dex.Addr(last.Ins.Size)
	addEdge := func(kind BranchKind, target dex.Addr, br Branch) {
		br.Kind = kind
		id, ok := g.addrToBlock[target]
		if !ok {
			return
		}
		b.Out = append(b.Out, Edge{To: id, Branch: br})
	}

	switch {
	case op == dex.OpGoto || op == dex.OpGoto16 || op == dex.OpGoto32:
		addEdge(Jmp, branchTarget(last), Branch{})
		return
	case isConditionalBranch(op):
		var r, r2 dex.Reg
		if last.Ins.Fmt == dex.Fmt21t {
			r = dex.Reg(last.Ins.A)
		} else {
			r = dex.Reg(last.Ins.A)
			r2 = dex.Reg(last.Ins.B)
		}
		addEdge(IfTrue, branchTarget(last), Branch{Op: op, R: r, R2: r2})
		addEdge(IfFalse, end, Branch{Op: op, R: r, R2: r2})
		return
	case isSwitch(op):
		payloadAddr := last.Addr + dex.Addr(last.Ins.B)
		if p, ok := byAddr[payloadAddr]; ok && p.Ins.Payload != nil {
			pl := p.Ins.Payload
			for i, d := range pl.Targets {
				key := int32(i)
				if pl.Kind == dex.PayloadPackedSwitch {
					key = pl.FirstKey + int32(i)
				} else if i < len(pl.Keys) {
					key = pl.Keys[i]
				}
				addEdge(Switch, last.Addr+dex.Addr(d), Branch{CaseKey: key})
			}
		}
		addEdge(SwitchDefault, end, Branch{})
		return
	case op == dex.OpThrow:
		attachCatchEdges(g, b, last, tryForAddr, addEdge)
		return
	case isReturn(op):
		return
	}

	// Non-terminator final instruction: either a can_throw op ending its
	// block because it sits in a try region, or a plain instruction that
	// merely precedes a jump-target address.
	kind := Sequence
	br := Branch{}
	switch {
	case op == dex.OpCheckCast:
		kind = CastSuccess
		br.CastReg = dex.Reg(last.Ins.A)
		br.CastType = uint32(last.Ins.B)
	case isInvokeOp(op):
		kind = InvokeSuccess
	case divFamily[op]:
		kind = DivSuccess
	case isArrayAccess(op):
		kind = ArrayAccessSuccess
	}
	addEdge(kind, end, br)
	if last.Ins.CanThrow() {
		attachCatchEdges(g, b, last, tryForAddr, addEdge)
	}
}

func attachCatchEdges(g *CFG, b *BasicBlock, last dex.Labeled, tryForAddr func(dex.Addr) *dex.TryItem, addEdge func(BranchKind, dex.Addr, Branch)) {
	t := tryForAddr(last.Addr)
	if t == nil {
		return
	}
	for _, h := range t.Handlers.TypedHandlers {
		addEdge(Catch, h.Addr, Branch{ExceptionTypeIdx: h.TypeIdx})
	}
	if t.Handlers.HasCatchAll {
		addEdge(CatchAll, t.Handlers.CatchAllAddr, Branch{})
	}
}

// isInvokeOp mirrors the root package's unexported isInvoke classifier;
// duplicated here since cfg must not reach into dex's internals.
func isInvokeOp(op uint16) bool {
	switch op {
	case dex.OpInvokeVirtual, dex.OpInvokeSuper, dex.OpInvokeDirect, dex.OpInvokeStatic,
		dex.OpInvokeInterface, dex.OpInvokeVirtualRange, dex.OpInvokeSuperRange,
		dex.OpInvokeDirectRange, dex.OpInvokeStaticRange, dex.OpInvokeInterfaceRange,
		dex.OpInvokePolymorphic, dex.OpInvokePolymorphicRange, dex.OpInvokeCustom,
		dex.OpInvokeCustomRange:
		return true
	}
	return false
}
