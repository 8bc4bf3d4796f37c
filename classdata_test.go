// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "testing"

func TestDecodeClassDataDeltaEncoding(t *testing.T) {
	var b []byte
	b = PutULEB128(b, 1) // static_fields_size
	b = PutULEB128(b, 0) // instance_fields_size
	b = PutULEB128(b, 2) // direct_methods_size
	b = PutULEB128(b, 0) // virtual_methods_size

	// one static field: field_idx_diff=5, access_flags=0x9
	b = PutULEB128(b, 5)
	b = PutULEB128(b, 0x9)

	// two direct methods, indices delta-encoded from a running total
	b = PutULEB128(b, 3)   // method_idx_diff -> idx 3
	b = PutULEB128(b, 0x1) // access_flags
	b = PutULEB128(b, 0)   // code_off (abstract/native stand-in)
	b = PutULEB128(b, 4)   // method_idx_diff -> idx 7
	b = PutULEB128(b, 0x9)
	b = PutULEB128(b, 0x100)

	cd, n, err := decodeClassData(b, 0)
	if err != nil {
		t.Fatalf("decodeClassData: %v", err)
	}
	if n != len(b) {
		t.Fatalf("consumed %d bytes, want %d", n, len(b))
	}
	if len(cd.StaticFields) != 1 || cd.StaticFields[0].FieldIdx != 5 {
		t.Fatalf("static fields = %+v", cd.StaticFields)
	}
	if len(cd.DirectMethods) != 2 {
		t.Fatalf("direct methods = %+v", cd.DirectMethods)
	}
	if cd.DirectMethods[0].MethodIdx != 3 {
		t.Fatalf("first method idx = %d, want 3", cd.DirectMethods[0].MethodIdx)
	}
	if cd.DirectMethods[1].MethodIdx != 7 {
		t.Fatalf("second method idx = %d, want 7 (3+4)", cd.DirectMethods[1].MethodIdx)
	}
	if cd.DirectMethods[1].CodeOff != 0x100 {
		t.Fatalf("second method code_off = %#x, want 0x100", cd.DirectMethods[1].CodeOff)
	}
}
