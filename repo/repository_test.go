// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package repo

import "testing"

// buildHierarchy wires a small diamond-free class tree directly, bypassing
// RegisterContainer, to exercise the dispatch/ancestry queries in
// isolation from container parsing.
func buildHierarchy(t *testing.T) *Repository {
	t.Helper()
	r := New()
	for _, name := range []string{"LBase;", "LMid;", "LLeaf;", "LIface;"} {
		r.getOrCreateClass(name)
	}
	r.classes["LMid;"].SuperclassName = "LBase;"
	r.classes["LLeaf;"].SuperclassName = "LMid;"
	r.classes["LLeaf;"].InterfaceNames = []string{"LIface;"}

	if err := r.hierarchy.addEdge("LMid;", "LBase;"); err != nil {
		t.Fatalf("addEdge: %v", err)
	}
	if err := r.hierarchy.addEdge("LLeaf;", "LMid;"); err != nil {
		t.Fatalf("addEdge: %v", err)
	}
	if err := r.hierarchy.addEdge("LLeaf;", "LIface;"); err != nil {
		t.Fatalf("addEdge: %v", err)
	}
	if err := r.CloseHierarchy(); err != nil {
		t.Fatalf("CloseHierarchy: %v", err)
	}
	return r
}

func TestIsTypeableAs(t *testing.T) {
	r := buildHierarchy(t)
	tests := []struct {
		sub, super string
		want       bool
	}{
		{"LLeaf;", "LMid;", true},
		{"LLeaf;", "LBase;", true},
		{"LLeaf;", "LIface;", true},
		{"LLeaf;", "LLeaf;", true},
		{"LBase;", "LLeaf;", false},
		{"LMid;", "LIface;", false},
	}
	for _, tt := range tests {
		if got := r.IsTypeableAs(tt.sub, tt.super); got != tt.want {
			t.Errorf("IsTypeableAs(%s, %s) = %v, want %v", tt.sub, tt.super, got, tt.want)
		}
	}
}

func TestCloseHierarchyAttachesRoot(t *testing.T) {
	r := buildHierarchy(t)
	if !r.IsTypeableAs("LBase;", RootClassName) {
		t.Fatal("expected the rootless LBase; to be wired to the synthesised root")
	}
	if !r.IsTypeableAs("LLeaf;", RootClassName) {
		t.Fatal("expected transitivity through the root edge")
	}
}

func TestLeastCommonTypes(t *testing.T) {
	r := buildHierarchy(t)
	r.getOrCreateClass("LOther;")
	r.classes["LOther;"].SuperclassName = "LBase;"
	if err := r.hierarchy.addEdge("LOther;", "LBase;"); err != nil {
		t.Fatalf("addEdge: %v", err)
	}
	if err := r.CloseHierarchy(); err != nil {
		t.Fatalf("CloseHierarchy: %v", err)
	}

	got := r.LeastCommonTypes("LLeaf;", "LOther;")
	if len(got) != 1 || got[0] != "LBase;" {
		t.Fatalf("LeastCommonTypes = %v, want [LBase;]", got)
	}
}

func TestHierarchyRejectsCycle(t *testing.T) {
	r := New()
	r.getOrCreateClass("LA;")
	r.getOrCreateClass("LB;")
	if err := r.hierarchy.addEdge("LB;", "LA;"); err != nil {
		t.Fatalf("addEdge: %v", err)
	}
	if err := r.hierarchy.addEdge("LA;", "LB;"); err == nil {
		t.Fatal("expected a cycle to be rejected")
	}
}

func TestFindMethodByDescriptorAndVirtualDispatch(t *testing.T) {
	r := buildHierarchy(t)
	base := r.classes["LBase;"]
	m := &Method{
		UID:   MethodUid(r.methodUIDs.allocate()),
		Class: base.UID,
		Descr: MethodDescr{ClassName: "LBase;", Name: "run", ReturnType: "V"},
	}
	r.methods[m.UID] = m
	base.Methods = append(base.Methods, m.UID)

	got, ok := r.FindMethodByDescriptor(MethodDescr{ClassName: "LBase;", Name: "run", ReturnType: "V"})
	if !ok || got.UID != m.UID {
		t.Fatalf("FindMethodByDescriptor did not find the registered method")
	}

	callees := r.LookupVirtualCall(MethodDescr{ClassName: "LBase;", Name: "run", ReturnType: "V"}, []string{"LLeaf;"})
	if len(callees) != 1 || callees[0] != m.UID {
		t.Fatalf("LookupVirtualCall from LLeaf; = %v, want [%v] (inherited from LBase;)", callees, m.UID)
	}

	if !r.IsInherited(MethodDescr{ClassName: "LLeaf;", Name: "run", ReturnType: "V"}) {
		t.Fatal("expected run() to be reported as inherited on LLeaf;")
	}
}

// TestLookupVirtualCallPicksNearestOverride registers the same method on
// both LBase; and the intermediate LMid;, and expects dispatch from a
// LLeaf; receiver to resolve to LMid;'s override, not LBase;'s — the
// nearest definition must win regardless of how the two class names
// happen to sort alphabetically.
func TestLookupVirtualCallPicksNearestOverride(t *testing.T) {
	r := buildHierarchy(t)
	base := r.classes["LBase;"]
	mid := r.classes["LMid;"]

	baseMethod := &Method{
		UID:   MethodUid(r.methodUIDs.allocate()),
		Class: base.UID,
		Descr: MethodDescr{ClassName: "LBase;", Name: "run", ReturnType: "V"},
	}
	r.methods[baseMethod.UID] = baseMethod
	base.Methods = append(base.Methods, baseMethod.UID)

	midMethod := &Method{
		UID:   MethodUid(r.methodUIDs.allocate()),
		Class: mid.UID,
		Descr: MethodDescr{ClassName: "LMid;", Name: "run", ReturnType: "V"},
	}
	r.methods[midMethod.UID] = midMethod
	mid.Methods = append(mid.Methods, midMethod.UID)

	callees := r.LookupVirtualCall(MethodDescr{ClassName: "LBase;", Name: "run", ReturnType: "V"}, []string{"LLeaf;"})
	if len(callees) != 1 || callees[0] != midMethod.UID {
		t.Fatalf("LookupVirtualCall from LLeaf; = %v, want [%v] (LMid;'s override, nearer than LBase;'s)", callees, midMethod.UID)
	}

	superCallees := r.LookupSuperCall(MethodDescr{ClassName: "LMid;", Name: "run", ReturnType: "V"}, []string{"LLeaf;"})
	if len(superCallees) != 1 || superCallees[0] != midMethod.UID {
		t.Fatalf("LookupSuperCall from LLeaf; = %v, want [%v] (LMid;'s override)", superCallees, midMethod.UID)
	}
}
