// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

// Signature is a method's information-flow summary: the AMG built while
// analysing its body, and the flows reachable from its return and throw
// points. Two signatures are equal when their AMGs are graph-isomorphic
// (approximated here by vertex/edge-set equality, since this package's
// vertices are already content-hashed into canonical ids, unlike the
// arbitrary node ids petgraph assigns) and their return/throw flows are
// set-equal.
type Signature struct {
	Amg          *Amg
	ReturnFlows  Flows
	ThrowFlows   Flows
}

func NewSignature() *Signature {
	return &Signature{Amg: NewAmg(), ReturnFlows: NewFlows(), ThrowFlows: NewFlows()}
}

func (s *Signature) JoinReturn(f Flows) {
	s.ReturnFlows = s.ReturnFlows.Join(f)
}

func (s *Signature) JoinThrow(f Flows) {
	s.ThrowFlows = s.ThrowFlows.Join(f)
}

func (s *Signature) Join(other *Signature) {
	s.Amg.Join(other.Amg)
	s.ReturnFlows = s.ReturnFlows.Join(other.ReturnFlows)
	s.ThrowFlows = s.ThrowFlows.Join(other.ThrowFlows)
}

// Clone deep-copies s so a state forked for a different CFG path can
// extend its own signature independently of its sibling.
func (s *Signature) Clone() *Signature {
	return &Signature{Amg: s.Amg.Clone(), ReturnFlows: s.ReturnFlows.Clone(), ThrowFlows: s.ThrowFlows.Clone()}
}

// Injection is the translated return/throw flows produced by injecting
// a callee signature at one call site.
type Injection struct {
	ReturnFlows Flows
	ThrowFlows  Flows
}

// Inject embeds other into s at a call site whose arguments flow from
// parameterFlows, translating other's return/throw flows through the
// same vertex mapping the embedded AMG used.
func (s *Signature) Inject(other *Signature, parameterFlows []Flows) (Injection, error) {
	mapping, err := s.Amg.Inject(other.Amg, parameterFlows)
	if err != nil {
		return Injection{}, err
	}

	translate := func(flows Flows) Flows {
		out := NewFlows()
		for _, f := range flows.ToSlice() {
			targets, ok := mapping[f.Vertex]
			if !ok {
				out.Add(f)
				continue
			}
			for h := range targets {
				out.Add(Flow{Vertex: h, Type: f.Type})
			}
		}
		return out
	}

	return Injection{
		ReturnFlows: translate(other.ReturnFlows),
		ThrowFlows:  translate(other.ThrowFlows),
	}, nil
}

// Prune drops every AMG vertex unreferenced by the summary: only what a
// caller can observe (return/throw flows) needs to survive.
func (s *Signature) Prune() {
	keep := s.ReturnFlows.Join(s.ThrowFlows).Nodes()
	s.Amg.Prune(keep)
}

// Equal compares two signatures structurally.
func (s *Signature) Equal(other *Signature) bool {
	if other == nil {
		return false
	}
	if !s.ReturnFlows.Equal(other.ReturnFlows) || !s.ThrowFlows.Equal(other.ThrowFlows) {
		return false
	}
	return amgEqual(s.Amg, other.Amg)
}

func amgEqual(a, b *Amg) bool {
	if len(a.vertex) != len(b.vertex) {
		return false
	}
	for h, v := range a.vertex {
		ov, ok := b.vertex[h]
		if !ok || !vertexEqual(v, ov) {
			return false
		}
	}
	for from, tos := range a.out {
		btos, ok := b.out[from]
		if !ok || len(tos) != len(btos) {
			return false
		}
		for to, w := range tos {
			bw, ok := btos[to]
			if !ok || len(w) != len(bw) {
				return false
			}
			for e := range w {
				if !bw[e] {
					return false
				}
			}
		}
	}
	return true
}

func vertexEqual(v, ov Vertex) bool {
	if v.Kind != ov.Kind || v.Method != ov.Method || v.Class != ov.Class ||
		v.Addr != ov.Addr || v.Param != ov.Param || len(v.Fields) != len(ov.Fields) {
		return false
	}
	for i := range v.Fields {
		if v.Fields[i] != ov.Fields[i] {
			return false
		}
	}
	return true
}
