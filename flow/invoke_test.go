// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import (
	"testing"

	"github.com/saferwall/dex"
	"github.com/saferwall/dex/dataflow"
	"github.com/saferwall/dex/repo"
	"github.com/saferwall/dex/typecheck"
)

func methodIdxFor(fx *fixture, className, name string) uint32 {
	for i, mid := range fx.Container.MethodIDs {
		cn, _ := fx.Container.TypeName(uint32(mid.ClassIdx))
		mn, _ := fx.Container.String(mid.NameIdx)
		if cn == className && mn == name {
			return uint32(i)
		}
	}
	return ^uint32(0)
}

func TestInvokeDirectWithoutKnownSignatureIsConservativelyEmpty(t *testing.T) {
	fx := newFixture(t)
	ctx := fx.ctxForTarget(&Extra{Signatures: map[repo.MethodUid]*Signature{}})
	calleeIdx := methodIdxFor(fx, "Ltest/Foo;", "callee")

	s := newEmptyState(2)
	argCst := s.Signature.Amg.AddVertex(ConstantVertex(fx.Target.UID, 0))
	s.Regs[0] = FlowsOf(Flow{Vertex: argCst, Type: Explicit})

	out := s.TransferInstr(labeled(1, dex.Instruction{
		Op: dex.OpInvokeStatic, Fmt: dex.Fmt35c, B: int64(calleeIdx), Regs: []dex.Reg{0},
	}), ctx).(State)

	if !out.HasResult {
		t.Fatal("invoke-static on a non-void callee should set HasResult")
	}
	if out.LastResult.Len() != 0 {
		t.Fatalf("invoke-static with no known callee signature should yield an empty result, got %v", out.LastResult.ToSlice())
	}
}

func TestInvokeDirectInjectsCalleeSignature(t *testing.T) {
	fx := newFixture(t)

	calleeSig := NewSignature()
	calleeParam0 := calleeSig.Amg.AddVertex(ParameterVertex(fx.Callee.UID, 0))
	calleeSig.JoinReturn(FlowsOf(Flow{Vertex: calleeParam0, Type: Explicit}))

	sigs := map[repo.MethodUid]*Signature{fx.Callee.UID: calleeSig}
	ctx := fx.ctxForTarget(&Extra{Signatures: sigs})
	calleeIdx := methodIdxFor(fx, "Ltest/Foo;", "callee")

	s := newEmptyState(2)
	argCst := s.Signature.Amg.AddVertex(ConstantVertex(fx.Target.UID, 0))
	s.Regs[0] = FlowsOf(Flow{Vertex: argCst, Type: Explicit})

	out := s.TransferInstr(labeled(1, dex.Instruction{
		Op: dex.OpInvokeStatic, Fmt: dex.Fmt35c, B: int64(calleeIdx), Regs: []dex.Reg{0},
	}), ctx).(State)

	if !out.HasResult {
		t.Fatal("invoke-static on a non-void callee should set HasResult")
	}
	got := out.LastResult.ToSlice()
	found := false
	for _, f := range got {
		if f.Vertex == argCst {
			found = true
		}
	}
	if !found {
		t.Fatalf("injecting callee's return-of-parameter-0 signature should surface the caller's argument flow, got %v", got)
	}
}

func TestInvokeVirtualWithNoReceiverInfoYieldsEmptyResult(t *testing.T) {
	fx := newFixture(t)
	ctx := fx.ctxForTarget(&Extra{Signatures: map[repo.MethodUid]*Signature{}})

	s := newEmptyState(2)
	out := s.TransferInstr(labeled(0, dex.Instruction{
		Op: dex.OpInvokeVirtual, Fmt: dex.Fmt35c, B: 0, Regs: []dex.Reg{1},
	}), ctx).(State)

	if out.HasResult && out.LastResult.Len() != 0 {
		t.Fatalf("invoke-virtual with no type-analysis info should never surface flows, got %v", out.LastResult.ToSlice())
	}
}

func TestReceiverClassesReadsTypecheckEntry(t *testing.T) {
	fx := newFixture(t)
	ts := typecheck.State{Regs: map[dex.Reg]typecheck.Type{0: typecheck.ObjectT("Ltest/Foo;")}}
	tc := &dataflow.Result{Entries: map[dex.Addr]dataflow.State{5: ts}}
	ctx := fx.ctxForTarget(&Extra{Typecheck: tc})

	classes := receiverClasses(ctx, 5, 0)
	if len(classes) != 1 || classes[0] != "Ltest/Foo;" {
		t.Fatalf("receiverClasses should read the typecheck entry's object classes, got %v", classes)
	}
}
