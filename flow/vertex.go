// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package flow implements the information-flow (access/modification
// graph) analysis: a second dataflow.State instantiation that tracks,
// per register, the set of vertices a value may have flowed from, and
// summarizes each method as a signature injected at its call sites.
package flow

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/repo"
)

// VertexHash is a 128-bit content identifier: two differently-salted
// 64-bit xxhash digests of the same content, concatenated. xxhash/v2's
// public API has no seed parameter, so the second half salts the input
// with a trailing discriminator byte rather than a keyed hash.
type VertexHash struct {
	Lo, Hi uint64
}

func hashContent(b []byte) VertexHash {
	lo := xxhash.Sum64(b)
	salted := append(append([]byte{}, b...), 0xFF)
	hi := xxhash.Sum64(salted)
	return VertexHash{Lo: lo, Hi: hi}
}

func (h VertexHash) String() string {
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

// VertexKind distinguishes the five vertex variants named in the
// information-flow entity model.
type VertexKind uint8

const (
	KindNull VertexKind = iota
	KindConstant
	KindParameter
	KindInstance
	KindStatic
)

// FieldSuffix is an ordered list of field UIDs: Parameter(m, i, [f1,
// ..., fn]) denotes "the object reachable from the i-th parameter of m
// by following field f1 then f2 then ... fn".
type FieldSuffix []repo.FieldUid

func (s FieldSuffix) append(more FieldSuffix) FieldSuffix {
	out := make(FieldSuffix, 0, len(s)+len(more))
	out = append(out, s...)
	out = append(out, more...)
	return out
}

// Vertex is one AMG node. Method/Class carry zero values for the
// variants that don't use them (Null, and Static's Method).
type Vertex struct {
	Kind   VertexKind
	Method repo.MethodUid
	Class  repo.ClassUid
	Addr   dex.Addr // pc, for Constant/Instance
	Param  int      // parameter index, for Parameter
	Fields FieldSuffix
}

func NullVertex() Vertex { return Vertex{Kind: KindNull} }

func ConstantVertex(m repo.MethodUid, pc dex.Addr) Vertex {
	return Vertex{Kind: KindConstant, Method: m, Addr: pc}
}

func ParameterVertex(m repo.MethodUid, param int) Vertex {
	return Vertex{Kind: KindParameter, Method: m, Param: param}
}

func InstanceVertex(m repo.MethodUid, pc dex.Addr) Vertex {
	return Vertex{Kind: KindInstance, Method: m, Addr: pc}
}

func StaticVertex(c repo.ClassUid) Vertex {
	return Vertex{Kind: KindStatic, Class: c}
}

// Field extends this vertex with one more field in its suffix. Null and
// Constant vertices have no fields to extend.
func (v Vertex) Field(f repo.FieldUid) (Vertex, error) {
	switch v.Kind {
	case KindNull, KindConstant:
		return Vertex{}, ErrInvalidFieldAccess
	}
	out := v
	out.Fields = append(append(FieldSuffix{}, v.Fields...), f)
	return out, nil
}

// WithSuffix extends this vertex by an entire field suffix at once, used
// when injecting a callee's Parameter(_, i, suffix) vertex against one of
// the caller's parameter-flow vertices.
func (v Vertex) WithSuffix(suffix FieldSuffix) (Vertex, error) {
	switch v.Kind {
	case KindNull, KindConstant:
		if len(suffix) == 0 {
			return v, nil
		}
		return Vertex{}, ErrInvalidFieldAccess
	}
	out := v
	out.Fields = v.Fields.append(suffix)
	return out, nil
}

// contentHash computes the vertex's content-addressed 128-bit hash: two
// distinct vertices with identical fields always collapse to the same
// node, matching the content-hashing the entity model requires.
func (v Vertex) contentHash() VertexHash {
	b := make([]byte, 0, 32)
	b = append(b, byte(v.Kind))
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(v.Method))
	b = append(b, buf[:4]...)
	binary.LittleEndian.PutUint32(buf[:4], uint32(v.Class))
	b = append(b, buf[:4]...)
	binary.LittleEndian.PutUint32(buf[:4], uint32(v.Addr))
	b = append(b, buf[:4]...)
	binary.LittleEndian.PutUint64(buf[:8], uint64(v.Param))
	b = append(b, buf[:8]...)
	for _, f := range v.Fields {
		binary.LittleEndian.PutUint32(buf[:4], uint32(f))
		b = append(b, buf[:4]...)
	}
	return hashContent(b)
}
