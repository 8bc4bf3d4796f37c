// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "testing"

func TestDecodeMUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", []byte{0x00}, ""},
		{"ascii", []byte("hello\x00"), "hello"},
		{"embedded nul overlong", []byte{0xC0, 0x80, 'a', 0x00}, "\x00a"},
		{"two byte", append([]byte{0xC3, 0xA9}, 0x00), "é"},
		{"three byte", append([]byte{0xE2, 0x82, 0xAC}, 0x00), "€"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sd, n, err := decodeMUTF8(tt.in, 0)
			if err != nil {
				t.Fatalf("decodeMUTF8: %v", err)
			}
			if n != len(tt.in) {
				t.Fatalf("consumed %d bytes, want %d", n, len(tt.in))
			}
			if sd.Value != tt.want {
				t.Fatalf("got %q, want %q", sd.Value, tt.want)
			}
			if sd.Lossy {
				t.Fatalf("unexpected lossy decode for %q", tt.name)
			}
		})
	}
}

func TestDecodeMUTF8TruncatedContinuation(t *testing.T) {
	// a two-byte lead with no continuation byte before the buffer ends
	if _, _, err := decodeMUTF8([]byte{0xC3}, 0); err == nil {
		t.Fatal("expected an error on a truncated multi-byte sequence")
	}
}

func TestDecodeMUTF8UnpairedSurrogateIsLossy(t *testing.T) {
	// 0xD800 is a lone high surrogate encoded as a three-byte MUTF-8 unit.
	in := []byte{0xED, 0xA0, 0x80, 0x00}
	sd, _, err := decodeMUTF8(in, 0)
	if err != nil {
		t.Fatalf("decodeMUTF8: %v", err)
	}
	if !sd.Lossy {
		t.Fatal("expected Lossy to be set for an unpaired surrogate")
	}
}
