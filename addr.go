// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "fmt"

// Addr is an opaque code-unit offset within one method's instruction
// stream. It is ordered, and comparable with plain integer operators.
type Addr uint32

// String implements fmt.Stringer.
func (a Addr) String() string {
	return fmt.Sprintf("%#06x", uint32(a))
}

// Reg is a 16-bit register slot identifier. Register pairs are
// represented as (r, r+1) and must hold identical abstract state in both
// slots at every synchronising program point.
type Reg uint16

// Pair returns the high slot of the register pair starting at r.
func (r Reg) Pair() Reg { return r + 1 }

// kind distinguishes the two index flavours a Container exposes.
type kind uint8

const (
	kindDense kind = iota
	kindULEB
)

// Index[T] is a phantom-typed handle into one of a Container's sections.
// It wraps either a dense usize index (for the six indexed sections) or a
// ULEB128-encoded offset (for offset-keyed sections). Dereferencing an
// Index requires the Container it was produced from.
type Index[T any] struct {
	k   kind
	val uint32
}

// DenseIndex builds an Index over a dense, fixed-stride section.
func DenseIndex[T any](v uint32) Index[T] { return Index[T]{k: kindDense, val: v} }

// OffsetIndex builds an Index over a variable-stride, offset-keyed section.
func OffsetIndex[T any](v uint32) Index[T] { return Index[T]{k: kindULEB, val: v} }

// Valid reports whether the index is the sentinel "no value" marker used
// by uleb128p1-encoded fields (NO_INDEX, 0xFFFFFFFF).
func (i Index[T]) Valid() bool { return i.val != noIndex }

// Raw returns the underlying integer value of the index.
func (i Index[T]) Raw() uint32 { return i.val }

const noIndex uint32 = 0xFFFFFFFF

// NoIndex is the sentinel value meaning "absent" for uleb128p1-encoded
// index fields (e.g. ClassDefItem.SuperclassIdx, ClassDefItem.SourceFileIdx).
const NoIndex uint32 = noIndex
