// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildOneClassContainer assembles a minimal legal container per scenario
// S1: a 112-byte header, a map list with no entries, and one class_def_item
// with no class_data (a class with no code).
func buildOneClassContainer(t *testing.T) []byte {
	t.Helper()
	classDef := make([]byte, 32)
	binary.LittleEndian.PutUint32(classDef[8:12], 0xFFFFFFFF) // superclass_idx = NO_INDEX

	h := Header{
		Version:       [3]byte{'0', '3', '5'},
		Endian:        binary.LittleEndian,
		ClassDefsSize: 1,
		ClassDefsOff:  HeaderSize,
		MapOff:        HeaderSize + uint32(len(classDef)),
	}
	mapList := make([]byte, 4) // size = 0
	body := append(append([]byte{}, classDef...), mapList...)
	b := writeHeader(h, body)
	binary.LittleEndian.PutUint32(b[32:36], uint32(len(b)))
	return b
}

func TestSerializeRoundTrip(t *testing.T) {
	b := buildOneClassContainer(t)
	c, err := Parse(b, "one-class.dex")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.ClassDefs) != 1 {
		t.Fatalf("want class_defs_size 1, got %d", len(c.ClassDefs))
	}
	if len(c.codeItems) != 0 {
		t.Fatalf("expected no code items for a class with no code, got %d", len(c.codeItems))
	}

	out, err := Serialize(c, true)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(out, b) {
		t.Fatal("preserve-layout serialize of an untouched parse should be bit-identical to the input")
	}

	reparsed, err := Parse(out, "one-class.dex")
	if err != nil {
		t.Fatalf("re-parsing serialized output: %v", err)
	}
	if len(reparsed.ClassDefs) != 1 || reparsed.ClassDefs[0] != c.ClassDefs[0] {
		t.Fatalf("round-tripped class def mismatch: got %+v, want %+v", reparsed.ClassDefs, c.ClassDefs)
	}
}

func TestSerializePreservingLayoutRewritesPatchedCode(t *testing.T) {
	const codeOff = 4
	codeBytes := buildCodeItem(t, 2, 0, 0, []uint16{OpNop, OpReturnVoid}, nil)
	raw := append(make([]byte, codeOff), codeBytes...)

	item, _, err := decodeCodeItem(raw, codeOff)
	if err != nil {
		t.Fatalf("decodeCodeItem: %v", err)
	}
	// A same-size patch: nop -> nop is a no-op rewrite that still exercises
	// the re-render path.
	item.PatchAt(0, Instruction{Op: OpNop, Fmt: Fmt10x, Size: 1})

	c := &Container{
		ClassDefs:  []ClassDefItem{{ClassDataOff: 1}},
		classData:  map[uint32]ClassData{1: {DirectMethods: []EncodedMethod{{MethodIdx: 0, CodeOff: codeOff}}}},
		codeItems:  map[uint32]*CodeItem{codeOff: item},
		raw:        raw,
	}

	out, err := serializePreservingLayout(c)
	if err != nil {
		t.Fatalf("serializePreservingLayout: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("re-rendering an unpatched stream should reproduce identical bytes")
	}
}

func TestRewriteCodeInsnsRejectsSizeDrift(t *testing.T) {
	codeBytes := buildCodeItem(t, 2, 0, 0, []uint16{OpNop, OpReturnVoid}, nil)
	raw := append([]byte{}, codeBytes...)
	item, _, err := decodeCodeItem(raw, 0)
	if err != nil {
		t.Fatalf("decodeCodeItem: %v", err)
	}
	// Forcibly grow the stream to simulate a caller violating the
	// fixed-size patch contract.
	item.code = append(item.code, Labeled{Addr: 2, Ins: Instruction{Op: OpReturnVoid, Fmt: Fmt10x, Size: 1}})

	if err := rewriteCodeInsns(raw, 0, item); err == nil {
		t.Fatal("expected an error when the patched stream changes size")
	}
}

func TestEncodePayloadRoundTrip(t *testing.T) {
	original := []uint16{0x0100, 2, 5, 0, 10, 0, 20, 0}
	pl, n, err := decodePackedSwitch(original, 0)
	if err != nil {
		t.Fatalf("decodePackedSwitch: %v", err)
	}
	ins := Instruction{Op: OpPackedSwitchPayload, Fmt: FmtPayload, Size: n, Payload: pl}
	units, err := encodeOneInstruction(ins)
	if err != nil {
		t.Fatalf("encodeOneInstruction: %v", err)
	}
	if len(units) != len(original) {
		t.Fatalf("got %d units, want %d", len(units), len(original))
	}
	for i := range original {
		if units[i] != original[i] {
			t.Fatalf("unit %d = %#x, want %#x", i, units[i], original[i])
		}
	}
}
