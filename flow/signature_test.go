// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import "testing"

func TestSignatureCloneIsIndependent(t *testing.T) {
	orig := NewSignature()
	v := orig.Amg.AddVertex(ConstantVertex(1, 0))
	orig.JoinReturn(FlowsOf(Flow{Vertex: v, Type: Explicit}))

	clone := orig.Clone()
	extra := clone.Amg.AddVertex(ConstantVertex(1, 1))
	clone.JoinReturn(FlowsOf(Flow{Vertex: extra, Type: Explicit}))
	clone.Amg.AddEdge(v, extra, Edge{Field: 1, Type: Explicit})

	if orig.ReturnFlows.Len() != 1 {
		t.Fatalf("mutating the clone's return flows must not affect the original, got %d", orig.ReturnFlows.Len())
	}
	if _, ok := orig.Amg.Vertex(extra); ok {
		t.Fatal("mutating the clone's AMG must not add vertices visible in the original")
	}
	if len(orig.Amg.Successors(v)) != 0 {
		t.Fatal("mutating the clone's AMG must not add edges visible in the original")
	}
}

func TestSignatureEqualComparesAmgAndFlows(t *testing.T) {
	a := NewSignature()
	v := a.Amg.AddVertex(ConstantVertex(1, 0))
	a.JoinReturn(FlowsOf(Flow{Vertex: v, Type: Explicit}))

	b := NewSignature()
	v2 := b.Amg.AddVertex(ConstantVertex(1, 0))
	b.JoinReturn(FlowsOf(Flow{Vertex: v2, Type: Explicit}))

	if !a.Equal(b) {
		t.Fatal("two signatures built identically from content-hashed vertices should compare equal")
	}

	b.JoinThrow(FlowsOf(Flow{Vertex: v2, Type: Explicit}))
	if a.Equal(b) {
		t.Fatal("signatures with different throw flows must not compare equal")
	}
}

func TestSignaturePruneDropsUnreferencedVertices(t *testing.T) {
	s := NewSignature()
	kept := s.Amg.AddVertex(ConstantVertex(1, 0))
	dropped := s.Amg.AddVertex(ConstantVertex(1, 1))
	s.JoinReturn(FlowsOf(Flow{Vertex: kept, Type: Explicit}))

	s.Prune()

	if _, ok := s.Amg.Vertex(kept); !ok {
		t.Fatal("prune must keep a vertex referenced by ReturnFlows")
	}
	if _, ok := s.Amg.Vertex(dropped); ok {
		t.Fatal("prune must drop a vertex with no incident edge and no return/throw reference")
	}
}

func TestFlowsJoinIsSubsetAware(t *testing.T) {
	v1 := VertexHash{Lo: 1}
	v2 := VertexHash{Lo: 2}
	small := FlowsOf(Flow{Vertex: v1, Type: Explicit})
	big := small.Clone()
	big.Add(Flow{Vertex: v2, Type: Explicit})

	joined := small.Join(big)
	if joined.Len() != 2 {
		t.Fatalf("joining a subset into its superset should yield the superset, got %d flows", joined.Len())
	}
}
