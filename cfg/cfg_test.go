// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package cfg

import (
	"testing"

	"github.com/saferwall/dex"
)

func mustDecode(t *testing.T, units []uint16) []dex.Labeled {
	t.Helper()
	ins, err := dex.DecodeInstructions(units)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	return ins
}

// encode helpers build raw 16-bit code units for a handful of opcodes
// using this codebase's own (non-standard) opcode numbering, mirroring
// the approach in the root package's instr_test.go.
func op10x(op uint16) uint16      { return op }
func op11x(op uint16, a uint8) uint16 { return op | uint16(a)<<8 }
func op21t(op uint16, a uint8, offset int16) []uint16 {
	return []uint16{op | uint16(a)<<8, uint16(offset)}
}

func TestBuildStraightLine(t *testing.T) {
	units := []uint16{
		op10x(dex.OpNop),
		op10x(dex.OpReturnVoid),
	}
	instrs := mustDecode(t, units)
	item := dex.NewCodeItem(1, 0, 0, nil, instrs)
	g, err := Build(item, instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Blocks) != 1 {
		t.Fatalf("expected a single block for straight-line code, got %d", len(g.Blocks))
	}
	if len(g.Blocks[0].Out) != 0 {
		t.Fatalf("return-void must have no outgoing edges, got %v", g.Blocks[0].Out)
	}
}

func TestBuildConditionalBranchSplits(t *testing.T) {
	// if-eqz v0, +3 (jumps past the nop straight to return-void) ; nop ; return-void
	units := append(op21t(dex.OpIfEqz, 0, 3), op10x(dex.OpNop), op10x(dex.OpReturnVoid))
	instrs := mustDecode(t, units)
	item := dex.NewCodeItem(1, 0, 0, nil, instrs)
	g, err := Build(item, instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Blocks) != 3 {
		t.Fatalf("expected 3 blocks (if-eqz / nop / return-void), got %d", len(g.Blocks))
	}
	first := g.Blocks[0]
	if len(first.Out) != 2 {
		t.Fatalf("if-eqz block should have IfTrue+IfFalse edges, got %d", len(first.Out))
	}
	kinds := map[BranchKind]bool{}
	for _, e := range first.Out {
		kinds[e.Branch.Kind] = true
	}
	if !kinds[IfTrue] || !kinds[IfFalse] {
		t.Fatalf("expected both IfTrue and IfFalse edges, got %v", first.Out)
	}
}

func TestBuildTryCatchAttachesEdges(t *testing.T) {
	// A single throwing instruction (monitor-enter v0) inside a try region
	// handled by one typed handler and a catch-all, followed by
	// return-void, with the handler itself also being return-void.
	units := []uint16{
		op11x(dex.OpMonitorEnter, 0), // addr 0, size 1
		op10x(dex.OpReturnVoid),      // addr 1 (normal continuation)
		op10x(dex.OpReturnVoid),      // addr 2 (typed handler)
		op10x(dex.OpReturnVoid),      // addr 3 (catch-all handler)
	}
	instrs := mustDecode(t, units)
	tries := []dex.TryItem{
		{
			StartAddr: 0,
			EndAddr:   1,
			Handlers: dex.CatchHandlers{
				TypedHandlers: []dex.TypedHandler{{TypeIdx: 5, Addr: 2}},
				HasCatchAll:   true,
				CatchAllAddr:  3,
			},
		},
	}
	item := dex.NewCodeItem(1, 0, 0, tries, instrs)
	g, err := Build(item, instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	monitorBlock, ok := g.BlockStartingAt(0)
	if !ok {
		t.Fatal("expected a block starting at addr 0")
	}
	var sawCatch, sawCatchAll, sawSeq bool
	for _, e := range monitorBlock.Out {
		switch e.Branch.Kind {
		case Catch:
			sawCatch = true
			if e.Branch.ExceptionTypeIdx != 5 {
				t.Fatalf("catch edge type idx = %d, want 5", e.Branch.ExceptionTypeIdx)
			}
		case CatchAll:
			sawCatchAll = true
		case Sequence:
			sawSeq = true
		}
	}
	if !sawCatch || !sawCatchAll || !sawSeq {
		t.Fatalf("expected Sequence+Catch+CatchAll edges, got %v", monitorBlock.Out)
	}
}

func TestReversePostorderStartsAtEntry(t *testing.T) {
	units := append(op21t(dex.OpIfEqz, 0, 3), op10x(dex.OpNop), op10x(dex.OpReturnVoid))
	instrs := mustDecode(t, units)
	item := dex.NewCodeItem(1, 0, 0, nil, instrs)
	g, err := Build(item, instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rpo := g.ReversePostorder()
	if len(rpo) == 0 || rpo[0] != g.Start {
		t.Fatalf("ReversePostorder()[0] = %v, want start block %d", rpo, g.Start)
	}
}
