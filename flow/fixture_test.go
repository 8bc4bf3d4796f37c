// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import (
	"testing"

	"github.com/saferwall/dex"
	"github.com/saferwall/dex/dataflow"
	"github.com/saferwall/dex/repo"
)

// fixture bundles one small container/repository pair: class Ltest/Foo;
// with one instance field (num:I), one static field (flag:I), a static
// method callee(I)I, and a static method target()V, wired through
// repo.RegisterContainer exactly as a real parse would produce them.
type fixture struct {
	Container *dex.Container
	Repo      *repo.Repository
	Class     *repo.Class
	NumField  repo.FieldUid
	FlagField repo.FieldUid
	Callee    *repo.Method
	Target    *repo.Method
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	strs := []string{"Ltest/Foo;", "I", "V", "num", "flag", "callee", "target"}
	typeDescs := []string{"Ltest/Foo;", "I", "V"}

	const (
		sFoo = iota
		sI
		sV
		sNum
		sFlag
		sCallee
		sTarget
	)
	const (
		tFoo = iota
		tI
		tV
	)

	protos := []dex.ProtoIDItem{
		{ReturnTypeIdx: tI, ParametersOff: 100},  // callee: (I)I
		{ReturnTypeIdx: tV, ParametersOff: 0},    // target: ()V
	}
	fields := []dex.FieldIDItem{
		{ClassIdx: tFoo, TypeIdx: tI, NameIdx: sNum},  // 0: instance
		{ClassIdx: tFoo, TypeIdx: tI, NameIdx: sFlag}, // 1: static
	}
	methods := []dex.MethodIDItem{
		{ClassIdx: tFoo, ProtoIdx: 0, NameIdx: sCallee}, // 0
		{ClassIdx: tFoo, ProtoIdx: 1, NameIdx: sTarget}, // 1
	}
	classDefs := []dex.ClassDefItem{
		{ClassIdx: tFoo, AccessFlags: dex.AccPublic, SuperclassIdx: dex.NoIndex, ClassDataOff: 1000},
	}
	typeLists := map[uint32]dex.TypeList{
		100: {Types: []uint16{tI}},
	}

	calleeCode := dex.NewCodeItem(1, 1, 0, nil, []dex.Labeled{
		{Addr: 0, Ins: dex.Instruction{Op: dex.OpReturn, Fmt: dex.Fmt11x, Size: 1, A: 0}},
	})
	targetCode := dex.NewCodeItem(2, 0, 0, nil, []dex.Labeled{
		{Addr: 0, Ins: dex.Instruction{Op: dex.OpConst4, Fmt: dex.Fmt11n, Size: 1, A: 0, B: 1}},
		{Addr: 1, Ins: dex.Instruction{
			Op: dex.OpInvokeStatic, Fmt: dex.Fmt35c, Size: 3,
			B: 0, Regs: []dex.Reg{0},
		}},
		{Addr: 4, Ins: dex.Instruction{Op: dex.OpMoveResult, Fmt: dex.Fmt11x, Size: 1, A: 1}},
		{Addr: 5, Ins: dex.Instruction{Op: dex.OpReturnVoid, Fmt: dex.Fmt10x, Size: 1}},
	})

	classData := map[uint32]dex.ClassData{
		1000: {
			StaticFields:   []dex.EncodedField{{FieldIdx: 1, AccessFlags: dex.AccStatic}},
			InstanceFields: []dex.EncodedField{{FieldIdx: 0}},
			DirectMethods: []dex.EncodedMethod{
				{MethodIdx: 0, AccessFlags: dex.AccStatic, CodeOff: 2000},
				{MethodIdx: 1, AccessFlags: dex.AccStatic, CodeOff: 3000},
			},
		},
	}
	codeItems := map[uint32]*dex.CodeItem{
		2000: calleeCode,
		3000: targetCode,
	}

	c := dex.NewContainerForTest("fixture.dex", strs, typeDescs, protos, fields, methods, classDefs, typeLists, classData, codeItems)

	r := repo.New()
	if err := r.RegisterContainer(c, false); err != nil {
		t.Fatalf("RegisterContainer: %v", err)
	}
	if err := r.CloseHierarchy(); err != nil {
		t.Fatalf("CloseHierarchy: %v", err)
	}

	class, ok := r.GetClassByName("Ltest/Foo;")
	if !ok {
		t.Fatal("class Ltest/Foo; not registered")
	}
	numField, ok := r.LookupInstanceField("num", "I", class)
	if !ok {
		t.Fatal("instance field num not registered")
	}
	flagField, ok := r.LookupStaticField("flag", "I", class)
	if !ok {
		t.Fatal("static field flag not registered")
	}
	callee, ok := r.FindMethodByDescriptor(repo.MethodDescr{ClassName: "Ltest/Foo;", Name: "callee", ParamTypes: []string{"I"}, ReturnType: "I"})
	if !ok {
		t.Fatal("method callee not registered")
	}
	target, ok := r.FindMethodByDescriptor(repo.MethodDescr{ClassName: "Ltest/Foo;", Name: "target", ReturnType: "V"})
	if !ok {
		t.Fatal("method target not registered")
	}

	return &fixture{
		Container: c,
		Repo:      r,
		Class:     class,
		NumField:  numField.UID,
		FlagField: flagField.UID,
		Callee:    callee,
		Target:    target,
	}
}

// ctxForTarget builds a dataflow.Context over the fixture's target
// method, with extra plugged in so tests can control signature lookups
// and type info without running the type-analysis pass.
func (fx *fixture) ctxForTarget(extra *Extra) *dataflow.Context {
	var e any
	if extra != nil {
		e = extra
	}
	return &dataflow.Context{
		Container: fx.Container,
		Repo:      fx.Repo,
		Method:    fx.Target,
		Class:     fx.Class,
		Extra:     e,
	}
}

// ctxForCallee is the same, scoped to the callee method (used when a
// test's TransferInstr call needs ctx.Method to be callee rather than
// target).
func (fx *fixture) ctxForCallee(extra *Extra) *dataflow.Context {
	var e any
	if extra != nil {
		e = extra
	}
	return &dataflow.Context{
		Container: fx.Container,
		Repo:      fx.Repo,
		Method:    fx.Callee,
		Class:     fx.Class,
		Extra:     e,
	}
}
