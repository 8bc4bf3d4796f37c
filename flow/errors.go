// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import "errors"

var (
	// ErrInvalidFieldAccess is returned when a field suffix is extended
	// on a Null or Constant vertex, which have no fields.
	ErrInvalidFieldAccess = errors.New("flow: field access on a vertex with no fields")

	// ErrUnknownVertex is returned when a hash does not name a vertex
	// registered in the AMG it's looked up against.
	ErrUnknownVertex = errors.New("flow: unknown vertex hash")

	// ErrIncompatibleStates is returned by Join/Meet when the two
	// states' register counts disagree, which cannot happen for two
	// states of the same method but is checked rather than assumed.
	ErrIncompatibleStates = errors.New("flow: incompatible state shapes")

	// ErrUnknownClass is returned when a static field access names a
	// class the repository cannot resolve.
	ErrUnknownClass = errors.New("flow: unknown class")

	// ErrUnsupported marks a method containing an instruction this
	// instantiation deliberately does not model: invoke-polymorphic/
	// invoke-custom (spec §9 Open Question ii), throw, and the opcode
	// families the original information-flow analysis itself left
	// unimplemented (array element access, long/double non-2addr binary
	// arithmetic, instance-of, filled-new-array, fill-array-data,
	// switches); see supported in transfer.go. Analyze records it in
	// Report.Errors and leaves the method without a signature; callers
	// conservatively see empty return/throw flows.
	ErrUnsupported = errors.New("flow: instruction not modeled by this analysis")
)
