// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typecheck

import (
	"testing"

	"github.com/saferwall/dex"
	"github.com/saferwall/dex/repo"
)

// fixture wires two classes, Ltest/Base; and Ltest/Sub; (Sub extends
// Base), with one instance field on Base (num:I) and one static method
// on Sub (callee(I)Ltest/Base;), through repo.RegisterContainer so
// Subtype/Join exercise the real class hierarchy rather than a stub.
type fixture struct {
	Container *dex.Container
	Repo      *repo.Repository
	Base      *repo.Class
	Sub       *repo.Class
	NumField  repo.FieldUid
	Callee    *repo.Method
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	strs := []string{"Ltest/Base;", "Ltest/Sub;", "I", "num", "callee"}
	typeDescs := []string{"Ltest/Base;", "Ltest/Sub;", "I"}

	const (
		sBase = iota
		sSub
		sI
		sNum
		sCallee
	)
	const (
		tBase = iota
		tSub
		tI
	)

	protos := []dex.ProtoIDItem{
		{ReturnTypeIdx: tBase, ParametersOff: 100}, // callee: (I)Ltest/Base;
	}
	fields := []dex.FieldIDItem{
		{ClassIdx: tBase, TypeIdx: tI, NameIdx: sNum}, // 0: instance, on Base
	}
	methods := []dex.MethodIDItem{
		{ClassIdx: tSub, ProtoIdx: 0, NameIdx: sCallee}, // 0
	}
	classDefs := []dex.ClassDefItem{
		{ClassIdx: tBase, AccessFlags: dex.AccPublic, SuperclassIdx: dex.NoIndex, ClassDataOff: 1000},
		{ClassIdx: tSub, AccessFlags: dex.AccPublic, SuperclassIdx: tBase, ClassDataOff: 2000},
	}
	typeLists := map[uint32]dex.TypeList{
		100: {Types: []uint16{tI}},
	}

	calleeCode := dex.NewCodeItem(2, 1, 0, nil, []dex.Labeled{
		{Addr: 0, Ins: dex.Instruction{Op: dex.OpConst4, Fmt: dex.Fmt11n, Size: 1, A: 0, B: 0}},
		{Addr: 1, Ins: dex.Instruction{Op: dex.OpReturnObject, Fmt: dex.Fmt11x, Size: 1, A: 0}},
	})

	classData := map[uint32]dex.ClassData{
		1000: {
			InstanceFields: []dex.EncodedField{{FieldIdx: 0}},
		},
		2000: {
			DirectMethods: []dex.EncodedMethod{
				{MethodIdx: 0, AccessFlags: dex.AccStatic, CodeOff: 3000},
			},
		},
	}
	codeItems := map[uint32]*dex.CodeItem{
		3000: calleeCode,
	}

	c := dex.NewContainerForTest("fixture.dex", strs, typeDescs, protos, fields, methods, classDefs, typeLists, classData, codeItems)

	r := repo.New()
	if err := r.RegisterContainer(c, false); err != nil {
		t.Fatalf("RegisterContainer: %v", err)
	}
	if err := r.CloseHierarchy(); err != nil {
		t.Fatalf("CloseHierarchy: %v", err)
	}

	base, ok := r.GetClassByName("Ltest/Base;")
	if !ok {
		t.Fatal("class Ltest/Base; not registered")
	}
	sub, ok := r.GetClassByName("Ltest/Sub;")
	if !ok {
		t.Fatal("class Ltest/Sub; not registered")
	}
	numField, ok := r.LookupInstanceField("num", "I", base)
	if !ok {
		t.Fatal("instance field num not registered")
	}
	callee, ok := r.FindMethodByDescriptor(repo.MethodDescr{ClassName: "Ltest/Sub;", Name: "callee", ParamTypes: []string{"I"}, ReturnType: "Ltest/Base;"})
	if !ok {
		t.Fatal("method callee not registered")
	}

	return &fixture{
		Container: c,
		Repo:      r,
		Base:      base,
		Sub:       sub,
		NumField:  numField.UID,
		Callee:    callee,
	}
}
