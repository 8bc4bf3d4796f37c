// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typecheck

import "testing"

func TestJoinSkeletonLattice(t *testing.T) {
	if got := Join(nil, IntegerT(), IntegerT()); !got.Equal(IntegerT()) {
		t.Fatalf("join of equal kinds should be identity, got %v", got)
	}
	if got := Join(nil, IntegerT(), FloatT()); !got.Equal(Join32T()) {
		t.Fatalf("join(Integer, Float) = %v, want Join32", got)
	}
	if got := Join(nil, LongT(), DoubleT()); !got.Equal(Join64T()) {
		t.Fatalf("join(Long, Double) = %v, want Join64", got)
	}
	if got := Join(nil, Join32T(), Join64T()); !got.Equal(TopT()) {
		t.Fatalf("join(Join32, Join64) = %v, want Top", got)
	}
	if got := Join(nil, BottomT(), IntegerT()); !got.Equal(IntegerT()) {
		t.Fatalf("join(Bottom, x) should be x, got %v", got)
	}
}

func TestJoinRefVsNonRefCollapsesToJoinZero(t *testing.T) {
	got := Join(nil, IntegerT(), NullT())
	if !got.Equal(JoinZeroT()) {
		t.Fatalf("join(Integer, Null) should collapse to JoinZero, got %v", got)
	}
}

func TestJoinNullWithObjectYieldsObject(t *testing.T) {
	obj := ObjectT("Ltest/Foo;")
	if got := Join(nil, NullT(), obj); !got.Equal(obj) {
		t.Fatalf("join(Null, Object) should yield the object type, got %v", got)
	}
}

func TestMeetSkeletonLattice(t *testing.T) {
	if got := Meet(nil, Join32T(), IntegerT()); !got.Equal(IntegerT()) {
		t.Fatalf("meet(Join32, Integer) = %v, want Integer", got)
	}
	if got := Meet(nil, IntegerT(), FloatT()); !got.Equal(BottomT()) {
		t.Fatalf("meet of unrelated skeleton kinds should be Bottom, got %v", got)
	}
	if got := Meet(nil, TopT(), LongT()); !got.Equal(LongT()) {
		t.Fatalf("meet(Top, x) should be x, got %v", got)
	}
}

func TestSubtypeSkeletonLattice(t *testing.T) {
	if !Subtype(nil, IntegerT(), Join32T()) {
		t.Fatal("Integer should be a subtype of Join32")
	}
	if Subtype(nil, Join32T(), IntegerT()) {
		t.Fatal("Join32 should not be a subtype of Integer")
	}
	if !Subtype(nil, BottomT(), IntegerT()) {
		t.Fatal("Bottom should be a subtype of everything")
	}
	if !Subtype(nil, IntegerT(), TopT()) {
		t.Fatal("everything should be a subtype of Top")
	}
}

func TestSubtypeJoinZeroAcceptsBothRefAndNonRef(t *testing.T) {
	if !Subtype(nil, IntegerT(), JoinZeroT()) {
		t.Fatal("a non-reference skeleton kind should be a subtype of JoinZero")
	}
	if !Subtype(nil, ObjectT("Ltest/Foo;"), JoinZeroT()) {
		t.Fatal("a reference type should also be a subtype of JoinZero")
	}
}

func TestJoinObjectUsesClassHierarchy(t *testing.T) {
	fx := newFixture(t)
	got := Join(fx.Repo, ObjectT("Ltest/Base;"), ObjectT("Ltest/Sub;"))
	if !got.Equal(ObjectT("Ltest/Base;")) {
		t.Fatalf("join(Base, Sub) should be Base, got %v", got)
	}
}

func TestRefSubtypeUsesClassHierarchy(t *testing.T) {
	fx := newFixture(t)
	if !Subtype(fx.Repo, ObjectT("Ltest/Sub;"), ObjectT("Ltest/Base;")) {
		t.Fatal("Sub should be a subtype of Base")
	}
	if Subtype(fx.Repo, ObjectT("Ltest/Base;"), ObjectT("Ltest/Sub;")) {
		t.Fatal("Base should not be a subtype of Sub")
	}
}

func TestArraySubtypeRequiresMatchingDimension(t *testing.T) {
	a := ArrayT(1, IntegerT())
	b := ArrayT(2, IntegerT())
	if Subtype(nil, a, b) {
		t.Fatal("arrays of different dimension should not be subtypes of one another")
	}
	c := ArrayT(1, IntegerT())
	if !Subtype(nil, a, c) {
		t.Fatal("arrays of the same dimension and subtype element should be subtypes")
	}
}

func TestTypeFromDescriptor(t *testing.T) {
	cases := []struct {
		desc string
		want Type
	}{
		{"I", IntegerT()},
		{"Z", IntegerT()},
		{"J", LongT()},
		{"D", DoubleT()},
		{"F", FloatT()},
		{"Ltest/Foo;", ObjectT("Ltest/Foo;")},
	}
	for _, c := range cases {
		if got := typeFromDescriptor(c.desc); !got.Equal(c.want) {
			t.Errorf("typeFromDescriptor(%q) = %v, want %v", c.desc, got, c.want)
		}
	}

	arr := typeFromDescriptor("[[I")
	if arr.Kind != Array || arr.ElemDim != 2 || arr.Elem == nil || !arr.Elem.Equal(IntegerT()) {
		t.Fatalf("typeFromDescriptor([[I) = %v, want Array(2, Integer)", arr)
	}
}

func TestIsWideDescriptor(t *testing.T) {
	if !isWideDescriptor("J") || !isWideDescriptor("D") {
		t.Fatal("J and D should be wide descriptors")
	}
	if isWideDescriptor("I") || isWideDescriptor("Ltest/Foo;") {
		t.Fatal("non-wide descriptors must not be reported wide")
	}
}
