// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package callgraph

import (
	"testing"

	"github.com/saferwall/dex"
	"github.com/saferwall/dex/repo"
)

func descr(name string) repo.MethodDescr {
	return repo.MethodDescr{ClassName: "LFoo;", Name: name, ReturnType: "V"}
}

func TestGraphEdgesAndCallers(t *testing.T) {
	g := newGraph()
	a, b, c := descr("a"), descr("b"), descr("c")
	g.Nodes[a] = newNode(a, 0, App)
	g.Nodes[b] = newNode(b, 0, App)
	g.Nodes[c] = newNode(c, 0, App)

	g.addEdge(a, b, 10)
	g.addEdge(a, c, 20)
	g.addEdge(a, b, 30) // second site, same edge

	edges := g.Edges(a)
	if len(edges) != 2 {
		t.Fatalf("Edges(a) = %d edges, want 2", len(edges))
	}
	for _, e := range edges {
		if e.To == b && len(e.Sites) != 2 {
			t.Errorf("edge a->b has %d sites, want 2", len(e.Sites))
		}
	}

	callers := g.CallersOf(b)
	if len(callers) != 1 || callers[0].From != a {
		t.Fatalf("CallersOf(b) = %v, want single edge from a", callers)
	}
}

func TestPropagateZombiesMarksTransitiveCallers(t *testing.T) {
	g := newGraph()
	a, b, c := descr("a"), descr("b"), descr("c")
	g.Nodes[a] = newNode(a, 0, App)
	g.Nodes[b] = newNode(b, 0, App)
	g.Nodes[c] = newNode(c, 0, Unknown)

	g.addEdge(a, b, 1)
	g.addEdge(b, c, 2)
	g.Nodes[c].ZombieRoots[2] = true

	PropagateZombies(g)

	if !g.Nodes[b].IsZombie() {
		t.Error("b calls zombie c, should itself be zombie")
	}
	if !g.Nodes[b].ZombieCalls[2] {
		t.Error("b's zombie call site should be recorded at addr 2")
	}
	if !g.Nodes[a].IsZombie() {
		t.Error("a transitively calls zombie c through b, should be zombie")
	}
	if !g.Nodes[a].ZombieCalls[1] {
		t.Error("a's zombie call site should be recorded at addr 1")
	}
}

func TestPropagateZombiesLeavesUnrelatedCallersClean(t *testing.T) {
	g := newGraph()
	a, b, c := descr("a"), descr("b"), descr("c")
	g.Nodes[a] = newNode(a, 0, App)
	g.Nodes[b] = newNode(b, 0, App)
	g.Nodes[c] = newNode(c, 0, App)
	g.addEdge(a, b, 1)

	PropagateZombies(g)

	if g.Nodes[a].IsZombie() || g.Nodes[b].IsZombie() || g.Nodes[c].IsZombie() {
		t.Error("no node referenced anything unknown, none should be zombie")
	}
}

func TestPatchOneConstClassSameSize(t *testing.T) {
	checkCast := dex.Labeled{Addr: 0, Ins: dex.Instruction{Op: dex.OpConstClass, Fmt: dex.Fmt21c, Size: 2, A: 3}}
	item := dex.NewCodeItem(4, 0, 0, nil, []dex.Labeled{
		checkCast,
		{Addr: 2, Ins: dex.Instruction{Op: dex.OpReturnVoid, Fmt: dex.Fmt10x, Size: 1}},
	})
	if err := patchOne(item, checkCast, dex.Labeled{}); err != nil {
		t.Fatalf("patchOne: %v", err)
	}
	patched, ok := item.At(0)
	if !ok {
		t.Fatal("instruction at addr 0 vanished")
	}
	if patched.Ins.Op != dex.OpConst16 || patched.Ins.A != 3 || patched.Ins.B != 0 {
		t.Errorf("got %+v, want const/16 r3, 0", patched.Ins)
	}
	if next, ok := item.At(2); !ok || next.Ins.Op != dex.OpReturnVoid {
		t.Error("instruction after the patched slot should be untouched")
	}
}

func TestPatchOneCheckCastGrowsToTwoInstructions(t *testing.T) {
	cast := dex.Labeled{Addr: 0, Ins: dex.Instruction{Op: dex.OpCheckCast, Fmt: dex.Fmt21c, Size: 2, A: 5}}
	item := dex.NewCodeItem(4, 0, 0, nil, []dex.Labeled{
		cast,
		{Addr: 2, Ins: dex.Instruction{Op: dex.OpReturnVoid, Fmt: dex.Fmt10x, Size: 1}},
	})
	if err := patchOne(item, cast, dex.Labeled{}); err != nil {
		t.Fatalf("patchOne: %v", err)
	}
	instrs := item.Instructions()
	if len(instrs) != 3 {
		t.Fatalf("got %d instructions, want 3 (const/4, throw, return-void)", len(instrs))
	}
	if instrs[0].Ins.Op != dex.OpConst4 || instrs[0].Ins.A != 0 {
		t.Errorf("first replacement instruction = %+v, want const/4 v0, 0", instrs[0].Ins)
	}
	if instrs[1].Ins.Op != dex.OpThrow || instrs[1].Ins.A != 0 {
		t.Errorf("second replacement instruction = %+v, want throw v0", instrs[1].Ins)
	}
	if instrs[2].Addr != 2 || instrs[2].Ins.Op != dex.OpReturnVoid {
		t.Error("trailing instruction's address must be unchanged at 2")
	}
}

func TestPatchOneFieldGetUsesConst4(t *testing.T) {
	iget := dex.Labeled{Addr: 0, Ins: dex.Instruction{Op: dex.OpIget, Fmt: dex.Fmt22c, Size: 2, A: 1}}
	item := dex.NewCodeItem(4, 0, 0, nil, []dex.Labeled{
		iget,
		{Addr: 2, Ins: dex.Instruction{Op: dex.OpReturnVoid, Fmt: dex.Fmt10x, Size: 1}},
	})
	if err := patchOne(item, iget, dex.Labeled{}); err != nil {
		t.Fatalf("patchOne: %v", err)
	}
	instrs := item.Instructions()
	if instrs[0].Ins.Op != dex.OpConst4 || instrs[0].Ins.A != 1 {
		t.Errorf("first replacement instruction = %+v, want const/4 v1, 0", instrs[0].Ins)
	}
	if instrs[1].Ins.Op != dex.OpNop {
		t.Errorf("field-get's second code unit should pad with nop, got %+v", instrs[1].Ins)
	}
	if instrs[2].Addr != 2 || instrs[2].Ins.Op != dex.OpReturnVoid {
		t.Error("trailing instruction's address must be unchanged at 2")
	}
}

func TestPatchOneInvokeWithMoveResultObjectFolds(t *testing.T) {
	invoke := dex.Labeled{Addr: 0, Ins: dex.Instruction{
		Op: dex.OpInvokeVirtual, Fmt: dex.Fmt35c, Size: 3,
		B: 7, Regs: []dex.Reg{0},
	}}
	moveResult := dex.Labeled{Addr: 3, Ins: dex.Instruction{
		Op: dex.OpMoveResultObject, Fmt: dex.Fmt11x, Size: 1, A: 2,
	}}
	item := dex.NewCodeItem(4, 0, 0, nil, []dex.Labeled{
		invoke, moveResult,
		{Addr: 4, Ins: dex.Instruction{Op: dex.OpReturnVoid, Fmt: dex.Fmt10x, Size: 1}},
	})
	if err := patchOne(item, invoke, moveResult); err != nil {
		t.Fatalf("patchOne: %v", err)
	}
	instrs := item.Instructions()
	total := 0
	for _, l := range instrs {
		if l.Addr < 4 {
			total += l.Ins.Size
		}
	}
	if total != 4 {
		t.Fatalf("replacement span = %d units, want 4 (original invoke+move-result span)", total)
	}
	if instrs[len(instrs)-1].Addr != 4 || instrs[len(instrs)-1].Ins.Op != dex.OpReturnVoid {
		t.Error("trailing instruction's address must be unchanged at 4")
	}
}

func TestTraverseCalleesFirstOrdersCalleeBeforeCaller(t *testing.T) {
	g := newGraph()
	a, b, c := descr("a"), descr("b"), descr("c")
	g.Nodes[a] = newNode(a, 1, App)
	g.Nodes[b] = newNode(b, 2, App)
	g.Nodes[c] = newNode(c, 3, App)

	g.addEdge(a, b, 1)
	g.addEdge(b, c, 2)

	order := g.TraverseCalleesFirst()
	pos := map[repo.MethodDescr]int{}
	for i, n := range order {
		pos[n.Descr] = i
	}

	if len(order) != 3 {
		t.Fatalf("TraverseCalleesFirst returned %d nodes, want 3", len(order))
	}
	if pos[c] > pos[b] {
		t.Errorf("callee c (pos %d) must not come after its caller b (pos %d)", pos[c], pos[b])
	}
	if pos[b] > pos[a] {
		t.Errorf("callee b (pos %d) must not come after its caller a (pos %d)", pos[b], pos[a])
	}
}

func TestTraverseCalleesFirstBreaksCycles(t *testing.T) {
	g := newGraph()
	a, b := descr("a"), descr("b")
	g.Nodes[a] = newNode(a, 1, App)
	g.Nodes[b] = newNode(b, 2, App)

	g.addEdge(a, b, 1)
	g.addEdge(b, a, 2) // recursion cycle

	order := g.TraverseCalleesFirst()
	if len(order) != 2 {
		t.Fatalf("TraverseCalleesFirst on a 2-cycle returned %d nodes, want 2", len(order))
	}
}
