// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "errors"

// Structural parse errors. These are fatal for the container being parsed.
var (
	// ErrTooSmall is returned when the buffer is smaller than a header,
	// and also when a record read from it (a code item, a LEB128 value,
	// a payload) runs past its end.
	ErrTooSmall = errors.New("dex: buffer smaller than container header")

	// ErrBadMagic is returned when the first four bytes are not "dex\n".
	ErrBadMagic = errors.New("dex: bad magic, not a bytecode container")

	// ErrBadVersion is returned when the three version digits are not ASCII digits.
	ErrBadVersion = errors.New("dex: malformed format version")

	// ErrBadEndianTag is returned when the endian tag is neither the little
	// nor the big endian constant.
	ErrBadEndianTag = errors.New("dex: unrecognized endian tag")

	// ErrDuplicateSection is returned when the map list lists a section
	// type tag more than once.
	ErrDuplicateSection = errors.New("dex: duplicate section type in map list")

	// ErrNonZeroPadding is returned when bytes skipped while advancing the
	// cursor to a section offset are not all zero.
	ErrNonZeroPadding = errors.New("dex: non-zero padding before section")

	// ErrMisaligned is returned when an offset-keyed record does not start
	// on its required alignment boundary.
	ErrMisaligned = errors.New("dex: record not aligned")

	// ErrUnknownOpcode is returned when an instruction's opcode byte has
	// no entry in the format table.
	ErrUnknownOpcode = errors.New("dex: unknown opcode")

	// ErrBadLeb128 is returned when a LEB128 value exceeds 5 bytes without
	// terminating.
	ErrBadLeb128 = errors.New("dex: leb128 exceeds maximum length")

	// ErrUnknownSectionType is returned when the map list names a type tag
	// this parser has no decoder for.
	ErrUnknownSectionType = errors.New("dex: unknown section type tag")
)

// BadSize reports a declared-vs-decoded size mismatch, e.g. a MUTF-8
// string whose decoded UTF-16 length does not match its declared length.
type BadSize struct {
	Kind string
	Want int
	Got  int
}

func (e *BadSize) Error() string {
	return "dex: bad size (" + e.Kind + ")"
}

// Resolution errors. These are non-fatal at parse time; they are reported
// from the lookup that dereferences a dangling index.
var (
	ErrDanglingStringIndex = errors.New("dex: string index out of range")
	ErrDanglingTypeIndex   = errors.New("dex: type index out of range")
	ErrDanglingProtoIndex  = errors.New("dex: proto index out of range")
	ErrDanglingFieldIndex  = errors.New("dex: field index out of range")
	ErrDanglingMethodIndex = errors.New("dex: method index out of range")
	ErrDanglingOffset      = errors.New("dex: offset does not name a parsed record")

	// ErrMissingCodeItem is returned when a method expected to carry a
	// body (not abstract or native) has no code_item at its CodeOff.
	ErrMissingCodeItem = errors.New("dex: method has no code item")
)
