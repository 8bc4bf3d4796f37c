// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package typecheck instantiates the dataflow engine over a register
// type lattice, the concrete analysis that validates a method body's
// register usage is internally consistent and resolves `move-result`/
// field/array element types well enough for the information-flow pass
// built on top of it.
package typecheck

import (
	"fmt"
	"sort"
	"strings"

	"github.com/saferwall/dex/repo"
)

// Kind names one node of the abstract type lattice. Object and Array
// carry extra payload (Type.Classes / Type.Elem) that a bare Kind can't
// express; every other node is a singleton value fully described by its
// Kind alone.
type Kind uint8

const (
	Bottom Kind = iota
	Top
	Join64
	Long
	Double
	Meet64
	JoinZero
	Join32
	Integer
	Float
	Meet32
	MeetZero
	Object
	Array
	Null
)

func (k Kind) String() string {
	switch k {
	case Bottom:
		return "Bottom"
	case Top:
		return "Top"
	case Join64:
		return "Join64"
	case Long:
		return "Long"
	case Double:
		return "Double"
	case Meet64:
		return "Meet64"
	case JoinZero:
		return "JoinZero"
	case Join32:
		return "Join32"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Meet32:
		return "Meet32"
	case MeetZero:
		return "MeetZero"
	case Object:
		return "Object"
	case Array:
		return "Array"
	case Null:
		return "Null"
	}
	return "<unknown kind>"
}

// Type is one value of the abstract lattice. Classes is populated only
// for Object (the non-empty set of possible declared types at this
// program point); ElemDim/Elem only for Array.
type Type struct {
	Kind    Kind
	Classes []string
	ElemDim int
	Elem    *Type
}

func BottomT() Type   { return Type{Kind: Bottom} }
func TopT() Type      { return Type{Kind: Top} }
func LongT() Type     { return Type{Kind: Long} }
func DoubleT() Type   { return Type{Kind: Double} }
func Meet64T() Type   { return Type{Kind: Meet64} }
func Join64T() Type   { return Type{Kind: Join64} }
func IntegerT() Type  { return Type{Kind: Integer} }
func FloatT() Type    { return Type{Kind: Float} }
func Meet32T() Type   { return Type{Kind: Meet32} }
func Join32T() Type   { return Type{Kind: Join32} }
func MeetZeroT() Type { return Type{Kind: MeetZero} }
func JoinZeroT() Type { return Type{Kind: JoinZero} }
func NullT() Type     { return Type{Kind: Null} }

// ObjectT builds an Object(classes) value. classes must be non-empty;
// it is sorted and deduplicated so Equal can compare by value.
func ObjectT(classes ...string) Type {
	return Type{Kind: Object, Classes: normalizeClasses(classes)}
}

// ArrayT builds an Array(dim, elem) value.
func ArrayT(dim int, elem Type) Type {
	e := elem
	return Type{Kind: Array, ElemDim: dim, Elem: &e}
}

func normalizeClasses(classes []string) []string {
	set := map[string]bool{}
	for _, c := range classes {
		set[c] = true
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Equal is structural equality, recursing through Array element types.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Object:
		if len(t.Classes) != len(o.Classes) {
			return false
		}
		for i := range t.Classes {
			if t.Classes[i] != o.Classes[i] {
				return false
			}
		}
		return true
	case Array:
		return t.ElemDim == o.ElemDim && t.Elem != nil && o.Elem != nil && t.Elem.Equal(*o.Elem)
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case Object:
		return fmt.Sprintf("Object(%s)", strings.Join(t.Classes, "|"))
	case Array:
		elem := "?"
		if t.Elem != nil {
			elem = t.Elem.String()
		}
		return fmt.Sprintf("Array(%d,%s)", t.ElemDim, elem)
	default:
		return t.Kind.String()
	}
}

func isRef(t Type) bool {
	switch t.Kind {
	case Null, Object, Array:
		return true
	}
	return false
}

// parentsOf lists the skeleton lattice's direct covering edges (child
// ⊑ parent), as drawn in the abstract type lattice diagram. Null,
// Object and Array are handled outside this table since their join/meet
// depends on the class hierarchy.
func parentsOf(k Kind) []Kind {
	switch k {
	case MeetZero:
		return []Kind{Meet32, Meet64}
	case Meet32:
		return []Kind{Integer, Float}
	case Meet64:
		return []Kind{Long, Double}
	case Integer, Float:
		return []Kind{Join32}
	case Long, Double:
		return []Kind{Join64}
	case Join32:
		return []Kind{JoinZero}
	case Join64, JoinZero:
		return []Kind{Top}
	}
	return nil
}

func ancestorsOf(k Kind) map[Kind]bool {
	out := map[Kind]bool{k: true}
	frontier := []Kind{k}
	for len(frontier) > 0 {
		next := []Kind{}
		for _, f := range frontier {
			for _, p := range parentsOf(f) {
				if !out[p] {
					out[p] = true
					next = append(next, p)
				}
			}
		}
		frontier = next
	}
	return out
}

// joinSkeleton computes the lub of two non-reference kinds in the
// skeleton lattice (everything below Join64/JoinZero except Object,
// Array and Null, whose join needs the class hierarchy).
func joinSkeleton(a, b Kind) Kind {
	if a == Bottom {
		return b
	}
	if b == Bottom {
		return a
	}
	if a == b {
		return a
	}
	ancA := ancestorsOf(a)
	ancB := ancestorsOf(b)
	// The lub is the common ancestor furthest from Top (most steps to
	// climb, i.e. with the largest ancestor-set of its own) — the
	// lowest point both a and b's upward walks pass through.
	var best Kind
	bestSize := -1
	for c := range ancA {
		if !ancB[c] {
			continue
		}
		if n := len(ancestorsOf(c)); n > bestSize {
			best, bestSize = c, n
		}
	}
	if bestSize < 0 {
		return Top
	}
	return best
}

// meetSkeleton computes the glb of two non-reference skeleton kinds.
// The forward-only type instantiation never calls Meet in practice (see
// State.Meet); this mirrors joinSkeleton by walking the same covering
// edges downward instead of upward, which is exact for this lattice's
// shape (every non-leaf node's children are exactly its skeleton
// descendants listed in parentsOf's inverse).
func meetSkeleton(a, b Kind) Kind {
	if a == Top {
		return b
	}
	if b == Top {
		return a
	}
	if a == b {
		return a
	}
	if ancestorsOf(a)[b] {
		return a
	}
	if ancestorsOf(b)[a] {
		return b
	}
	return Bottom
}

// Join computes the least upper bound of a and b in the full lattice,
// consulting rep for Object/Array class-hierarchy joins.
func Join(rep *repo.Repository, a, b Type) Type {
	if a.Kind == Bottom {
		return b
	}
	if b.Kind == Bottom {
		return a
	}
	if a.Equal(b) {
		return a
	}
	if a.Kind == Top || b.Kind == Top {
		return TopT()
	}
	if isRef(a) && isRef(b) {
		return joinRef(rep, a, b)
	}
	if isRef(a) != isRef(b) {
		// One side is a reference type. If the other is a member of the
		// Join32 branch (Integer/Float/Meet32/MeetZero), both sit below
		// JoinZero, so that's their lub; a 64-bit kind only meets a
		// reference at Top.
		other := a
		if isRef(a) {
			other = b
		}
		if ancestorsOf(other.Kind)[JoinZero] {
			return JoinZeroT()
		}
		return TopT()
	}
	return Type{Kind: joinSkeleton(a.Kind, b.Kind)}
}

// Meet computes a greatest lower bound. The forward-only type
// instantiation never exercises this path (see State.Meet); it is kept
// precise for the skeleton lattice and intentionally conservative
// (falls to Bottom) for Object/Array pairs, since computing their most-
// specific-descendant set needs a full coinductive walk the forward
// analysis has no use for.
func Meet(rep *repo.Repository, a, b Type) Type {
	if a.Equal(b) {
		return a
	}
	if a.Kind == Bottom || b.Kind == Bottom {
		return BottomT()
	}
	if a.Kind == Top {
		return b
	}
	if b.Kind == Top {
		return a
	}
	if isRef(a) && isRef(b) {
		if a.Kind == Null {
			return a
		}
		if b.Kind == Null {
			return b
		}
		return BottomT()
	}
	if isRef(a) != isRef(b) {
		return BottomT()
	}
	return Type{Kind: meetSkeleton(a.Kind, b.Kind)}
}

func joinRef(rep *repo.Repository, a, b Type) Type {
	if a.Kind == Null {
		return b
	}
	if b.Kind == Null {
		return a
	}
	if a.Kind == Object && b.Kind == Object {
		return ObjectT(joinClassSets(rep, a.Classes, b.Classes)...)
	}
	if a.Kind == Array && b.Kind == Array && a.ElemDim == b.ElemDim {
		return ArrayT(a.ElemDim, Join(rep, *a.Elem, *b.Elem))
	}
	// Crossing array dimensions, or an array joined with a non-array
	// object, collapses to the root object type.
	return ObjectT(repo.RootClassName)
}

// joinClassSets computes the least-upper-bound class set of two
// (possibly multi-element) declared-type sets: the pairwise
// least-common-ancestor closure, reduced to a minimal antichain.
func joinClassSets(rep *repo.Repository, a, b []string) []string {
	var all []string
	for _, x := range a {
		for _, y := range b {
			all = append(all, rep.LeastCommonTypes(x, y)...)
		}
	}
	return reduceAntichain(rep, all)
}

// reduceAntichain drops every class in names that is a strict ancestor
// of another class also present, leaving only the most specific
// elements — the canonical form for an Object(S) class set.
func reduceAntichain(rep *repo.Repository, names []string) []string {
	uniq := normalizeClasses(names)
	var out []string
	for i, n := range uniq {
		redundant := false
		for j, m := range uniq {
			if i == j {
				continue
			}
			if n != m && rep.IsTypeableAs(m, n) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return uniq
	}
	return out
}

// Subtype reports sub ⊑ super.
func Subtype(rep *repo.Repository, sub, super Type) bool {
	if sub.Equal(super) {
		return true
	}
	if sub.Kind == Bottom || super.Kind == Top {
		return true
	}
	if isRef(sub) && isRef(super) {
		return refSubtype(rep, sub, super)
	}
	if isRef(sub) != isRef(super) {
		return super.Kind == JoinZero
	}
	return ancestorsOf(sub.Kind)[super.Kind]
}

func refSubtype(rep *repo.Repository, sub, super Type) bool {
	if super.Kind == JoinZero {
		return true
	}
	if sub.Kind == Null {
		return super.Kind == Object || super.Kind == Array || super.Kind == Null
	}
	if super.Kind == Null {
		return false
	}
	if sub.Kind == Object && super.Kind == Object {
		for _, want := range super.Classes {
			ok := false
			for _, have := range sub.Classes {
				if rep.IsTypeableAs(have, want) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
		return true
	}
	if sub.Kind == Array && super.Kind == Array {
		return sub.ElemDim == super.ElemDim && sub.Elem != nil && super.Elem != nil &&
			Subtype(rep, *sub.Elem, *super.Elem)
	}
	// Array vs Object, or mismatched array dimensions: only the root
	// object type (and its ancestors, trivially itself) is a valid
	// supertype.
	if sub.Kind == Array && super.Kind == Object {
		return len(super.Classes) == 1 && super.Classes[0] == repo.RootClassName
	}
	return false
}
