// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"encoding/binary"
	"testing"
)

func buildCodeItem(t *testing.T, regs, ins, outs uint16, insns []uint16, tries []TryItem) []byte {
	t.Helper()
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:], regs)
	binary.LittleEndian.PutUint16(b[2:], ins)
	binary.LittleEndian.PutUint16(b[4:], outs)
	binary.LittleEndian.PutUint16(b[6:], uint16(len(tries)))
	binary.LittleEndian.PutUint32(b[8:], 0) // debug_info_off
	binary.LittleEndian.PutUint32(b[12:], uint32(len(insns)))
	for _, u := range insns {
		ub := make([]byte, 2)
		binary.LittleEndian.PutUint16(ub, u)
		b = append(b, ub...)
	}
	if len(insns)%2 != 0 && len(tries) > 0 {
		b = append(b, 0, 0)
	}
	if len(tries) == 0 {
		return b
	}
	for _, tr := range tries {
		tb := make([]byte, 8)
		binary.LittleEndian.PutUint32(tb[0:], uint32(tr.StartAddr))
		binary.LittleEndian.PutUint16(tb[4:], uint16(tr.EndAddr-tr.StartAddr))
		binary.LittleEndian.PutUint16(tb[6:], 1) // handler_off: single shared handler, just past the list's one-byte size
		b = append(b, tb...)
	}
	b = append(b, PutULEB128(nil, 1)...) // encoded_catch_handler_list.size
	b = append(b, PutSLEB128(nil, 0)...) // one handler: size=0 -> catch-all only
	b = append(b, PutULEB128(nil, 5)...) // catch_all_addr
	return b
}

func TestDecodeCodeItemNoTries(t *testing.T) {
	b := buildCodeItem(t, 2, 0, 0, []uint16{OpNop, OpReturnVoid}, nil)
	item, n, err := decodeCodeItem(b, 0)
	if err != nil {
		t.Fatalf("decodeCodeItem: %v", err)
	}
	if n != len(b) {
		t.Fatalf("consumed %d bytes, want %d", n, len(b))
	}
	if item.RegistersSize != 2 {
		t.Fatalf("registers_size = %d, want 2", item.RegistersSize)
	}
	if len(item.Instructions()) != 2 {
		t.Fatalf("got %d instructions, want 2", len(item.Instructions()))
	}
	if len(item.Tries) != 0 {
		t.Fatalf("expected no tries, got %d", len(item.Tries))
	}
}

func TestDecodeCodeItemWithCatchAll(t *testing.T) {
	tries := []TryItem{{StartAddr: 0, EndAddr: 2}}
	b := buildCodeItem(t, 2, 0, 0, []uint16{OpNop, OpReturnVoid}, tries)
	item, _, err := decodeCodeItem(b, 0)
	if err != nil {
		t.Fatalf("decodeCodeItem: %v", err)
	}
	if len(item.Tries) != 1 {
		t.Fatalf("got %d tries, want 1", len(item.Tries))
	}
	h := item.Tries[0].Handlers
	if !h.HasCatchAll || h.CatchAllAddr != 5 {
		t.Fatalf("handlers = %+v, want catch-all at addr 5", h)
	}
	if len(h.TypedHandlers) != 0 {
		t.Fatalf("expected no typed handlers, got %d", len(h.TypedHandlers))
	}
}

func TestCodeItemPatchAtPreservesOtherInstructions(t *testing.T) {
	b := buildCodeItem(t, 2, 0, 0, []uint16{OpNop, OpReturnVoid}, nil)
	item, _, err := decodeCodeItem(b, 0)
	if err != nil {
		t.Fatalf("decodeCodeItem: %v", err)
	}
	item.PatchAt(0, Instruction{Op: OpNop, Fmt: Fmt10x, Size: 1})
	at1, ok := item.At(1)
	if !ok || at1.Ins.Mnemonic() != "return-void" {
		t.Fatalf("instruction at addr 1 was disturbed by patching addr 0")
	}
}
