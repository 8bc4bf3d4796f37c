// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "testing"

func TestDecodeInstructionsSimpleStream(t *testing.T) {
	// nop; return-void
	units := []uint16{OpNop, OpReturnVoid}
	code, err := DecodeInstructions(units)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(code) != 2 {
		t.Fatalf("got %d instructions, want 2", len(code))
	}
	if code[0].Ins.Mnemonic() != "nop" {
		t.Fatalf("instr 0 = %s, want nop", code[0].Ins.Mnemonic())
	}
	if code[1].Addr != 1 {
		t.Fatalf("instr 1 addr = %d, want 1", code[1].Addr)
	}
	if code[1].Ins.Mnemonic() != "return-void" {
		t.Fatalf("instr 1 = %s, want return-void", code[1].Ins.Mnemonic())
	}
}

func TestDecodeInstructionsUnknownOpcode(t *testing.T) {
	units := []uint16{0xffff}
	if _, err := DecodeInstructions(units); err != ErrUnknownOpcode {
		t.Fatalf("got %v, want ErrUnknownOpcode", err)
	}
}

func TestEncodeOneInstructionRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ins  Instruction
	}{
		{"fmt12x move", Instruction{Op: OpMove, Fmt: Fmt12x, A: 1, B: 2}},
		{"fmt11n const4", Instruction{Op: OpConst4, Fmt: Fmt11n, A: 3, B: -5}},
		{"fmt21s const16", Instruction{Op: OpConst16, Fmt: Fmt21s, A: 2, B: -1000}},
		{"fmt22t if-eq", Instruction{Op: OpIfEq, Fmt: Fmt22t, A: 1, B: 2, C: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := encodeOneInstruction(tt.ins)
			if err != nil {
				t.Fatalf("encodeOneInstruction: %v", err)
			}
			info, ok := lookupOp(tt.ins.Op)
			if !ok {
				t.Fatalf("lookupOp(%d) not found", tt.ins.Op)
			}
			got, err := decodeOperands(info, units)
			if err != nil {
				t.Fatalf("decodeOperands: %v", err)
			}
			if got.A != tt.ins.A || got.B != tt.ins.B || got.C != tt.ins.C {
				t.Fatalf("round-trip mismatch: got %+v, want %+v", got, tt.ins)
			}
		})
	}
}

func TestDecodePackedSwitchPayload(t *testing.T) {
	// header(0x0100, size), first_key(2 units), one target(2 units)
	units := []uint16{0x0100, 1, 5, 0, 100, 0}
	pl, n, err := decodePackedSwitch(units, 0)
	if err != nil {
		t.Fatalf("decodePackedSwitch: %v", err)
	}
	if n != 6 {
		t.Fatalf("consumed %d units, want 6", n)
	}
	if pl.FirstKey != 5 {
		t.Fatalf("first_key = %d, want 5", pl.FirstKey)
	}
	if len(pl.Targets) != 1 || pl.Targets[0] != 100 {
		t.Fatalf("targets = %v, want [100]", pl.Targets)
	}
}
