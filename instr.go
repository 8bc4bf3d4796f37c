// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "encoding/binary"

// Instruction is a decoded instruction, tagged by its opcode id with the
// operands its format carries. Not every field is meaningful for every
// opcode; callers dispatch on Op and read only the fields their format
// defines (the same discipline the teacher's tagged header unions use).
type Instruction struct {
	Op   uint16
	Fmt  Format
	Size int // in 16-bit code units

	A, B, C int64 // generic register/literal/index slots, format-dependent
	Regs    []Reg // explicit register list for Fmt35c/Fmt45cc
	RangeLo Reg   // first register of a contiguous span for Fmt3rc/Fmt4rcc
	RangeN  int   // span length

	// Payload carries the decoded body of a pseudo-opcode instruction
	// (packed-switch, sparse-switch, array-fill-data). Nil otherwise.
	Payload *Payload
}

// Payload is the decoded body of one of the three pseudo-opcode forms
// that follow opcode 0x00 at a non-code-reachable address.
type Payload struct {
	Kind PayloadKind

	// PackedSwitch / SparseSwitch
	FirstKey int32   // packed-switch only
	Keys     []int32 // sparse-switch only
	Targets  []int32 // address deltas, relative to the switch instruction

	// ArrayFill
	ElementWidth int
	Data         []byte
}

// PayloadKind distinguishes the three pseudo-opcode sub-forms.
type PayloadKind uint8

const (
	PayloadNone PayloadKind = iota
	PayloadPackedSwitch
	PayloadSparseSwitch
	PayloadArrayFill
)

// CanThrow reports whether this instruction may raise an exception mid-
// execution, making it a candidate source for Catch*/CatchAll CFG edges.
func (in Instruction) CanThrow() bool {
	info, ok := lookupOp(in.Op)
	return ok && info.CanThrow
}

// Mnemonic returns the instruction's disassembly name.
func (in Instruction) Mnemonic() string {
	if info, ok := lookupOp(in.Op); ok {
		return info.Mnemonic
	}
	return "<unknown>"
}

// Labeled pairs a decoded instruction with its starting address, in
// 16-bit code units from the start of the method's instruction stream.
type Labeled struct {
	Addr Addr
	Ins  Instruction
}

// DecodeInstructions decodes an entire instruction stream (the raw
// uint16 code units of one code_item's `insns`), returning the
// instructions in address order. Pseudo-opcode payloads are decoded and
// attached to a synthetic Labeled entry at their own address so callers
// walking the stream in order see them, but CFG construction treats
// payload addresses as non-reachable data, never as code.
func DecodeInstructions(units []uint16) ([]Labeled, error) {
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}

	var out []Labeled
	unitAddr := Addr(0)
	byteOff := 0
	for byteOff < len(b) {
		op := uint16(b[byteOff])
		if op == 0x00 && byteOff+1 < len(b) {
			switch b[byteOff+1] {
			case 0x01:
				pl, n, err := decodePackedSwitch(units, int(unitAddr))
				if err != nil {
					return nil, err
				}
				out = append(out, Labeled{unitAddr, Instruction{
					Op: OpPackedSwitchPayload, Fmt: FmtPayload, Size: n, Payload: pl,
				}})
				unitAddr += Addr(n)
				byteOff += n * 2
				continue
			case 0x02:
				pl, n, err := decodeSparseSwitch(units, int(unitAddr))
				if err != nil {
					return nil, err
				}
				out = append(out, Labeled{unitAddr, Instruction{
					Op: OpSparseSwitchPayload, Fmt: FmtPayload, Size: n, Payload: pl,
				}})
				unitAddr += Addr(n)
				byteOff += n * 2
				continue
			case 0x03:
				pl, n, err := decodeArrayFill(units, int(unitAddr))
				if err != nil {
					return nil, err
				}
				out = append(out, Labeled{unitAddr, Instruction{
					Op: OpFillArrayDataPayload, Fmt: FmtPayload, Size: n, Payload: pl,
				}})
				unitAddr += Addr(n)
				byteOff += n * 2
				continue
			}
		}

		info, ok := lookupOp(op)
		if !ok {
			return nil, ErrUnknownOpcode
		}
		n := info.Format.sizeUnits()
		if int(unitAddr)+n > len(units) {
			return nil, ErrTooSmall
		}
		ins, err := decodeOperands(info, units[unitAddr:int(unitAddr)+n])
		if err != nil {
			return nil, err
		}
		out = append(out, Labeled{unitAddr, ins})
		unitAddr += Addr(n)
		byteOff += n * 2
	}
	return out, nil
}

func decodeOperands(info OpInfo, u []uint16) (Instruction, error) {
	ins := Instruction{Op: info.Opcode, Fmt: info.Format, Size: len(u)}
	switch info.Format {
	case Fmt10x:
		// no operands
	case Fmt12x:
		ins.A = int64((u[0] >> 8) & 0x0F)
		ins.B = int64((u[0] >> 12) & 0x0F)
	case Fmt11n:
		ins.A = int64((u[0] >> 8) & 0x0F)
		// sign-extend the 4-bit literal
		lit := int16((u[0] >> 12) & 0x0F)
		if lit&0x8 != 0 {
			lit |= ^int16(0x0F)
		}
		ins.B = int64(lit)
	case Fmt11x:
		ins.A = int64(u[0] >> 8)
	case Fmt10t:
		ins.A = int64(int8(u[0] >> 8))
	case Fmt20t:
		ins.A = int64(int16(u[1]))
	case Fmt22x:
		ins.A = int64(u[0] >> 8)
		ins.B = int64(u[1])
	case Fmt21t, Fmt21s, Fmt21h, Fmt21c:
		ins.A = int64(u[0] >> 8)
		ins.B = int64(int16(u[1]))
	case Fmt23x:
		ins.A = int64(u[0] >> 8)
		ins.B = int64(u[1] & 0xFF)
		ins.C = int64(u[1] >> 8)
	case Fmt22b:
		ins.A = int64(u[0] >> 8)
		ins.B = int64(u[1] & 0xFF)
		ins.C = int64(int8(u[1] >> 8))
	case Fmt22t, Fmt22s, Fmt22c:
		ins.A = int64((u[0] >> 8) & 0x0F)
		ins.B = int64((u[0] >> 12) & 0x0F)
		ins.C = int64(int16(u[1]))
	case Fmt32x:
		ins.A = int64(u[1])
		ins.B = int64(u[2])
	case Fmt30t:
		ins.A = int64(int32(uint32(u[1]) | uint32(u[2])<<16))
	case Fmt31i, Fmt31t:
		ins.A = int64(u[0] >> 8)
		ins.B = int64(int32(uint32(u[1]) | uint32(u[2])<<16))
	case Fmt31c:
		ins.A = int64(u[0] >> 8)
		ins.B = int64(uint32(u[1]) | uint32(u[2])<<16)
	case Fmt35c, Fmt45cc:
		argc := int64(u[0] >> 12)
		ins.B = int64(u[1]) // method/type/custom index
		if info.Format == Fmt45cc {
			ins.C = int64(u[3]) // proto index
		}
		packed := u[2]
		regs := []uint16{uint16(packed & 0xF), uint16((packed >> 4) & 0xF),
			uint16((packed >> 8) & 0xF), uint16((packed >> 12) & 0xF), uint16((u[0] >> 8) & 0xF)}
		ins.Regs = make([]Reg, argc)
		for i := int64(0); i < argc; i++ {
			ins.Regs[i] = Reg(regs[i])
		}
	case Fmt3rc, Fmt4rcc:
		ins.A = int64(u[0] >> 8) // argument count
		ins.B = int64(u[1])      // method/type index
		ins.RangeLo = Reg(u[2])
		ins.RangeN = int(ins.A)
		if info.Format == Fmt4rcc {
			ins.C = int64(u[3]) // proto index
		}
	case Fmt51l:
		ins.A = int64(u[0] >> 8)
		lo := uint64(u[1]) | uint64(u[2])<<16
		hi := uint64(u[3]) | uint64(u[4])<<16
		ins.B = int64(lo | hi<<32)
	}
	return ins, nil
}

func decodePackedSwitch(units []uint16, addr int) (*Payload, int, error) {
	if addr+2 > len(units) {
		return nil, 0, ErrTooSmall
	}
	size := int(units[addr+1])
	need := 4 + 2*size // header(2) + first_key(2) + targets(2*size)
	if addr+need > len(units) {
		return nil, 0, ErrTooSmall
	}
	firstKey := int32(uint32(units[addr+2]) | uint32(units[addr+3])<<16)
	targets := make([]int32, size)
	off := addr + 4
	for i := 0; i < size; i++ {
		targets[i] = int32(uint32(units[off+2*i]) | uint32(units[off+2*i+1])<<16)
	}
	return &Payload{Kind: PayloadPackedSwitch, FirstKey: firstKey, Targets: targets}, need, nil
}

func decodeSparseSwitch(units []uint16, addr int) (*Payload, int, error) {
	if addr+2 > len(units) {
		return nil, 0, ErrTooSmall
	}
	size := int(units[addr+1])
	need := 2 + 4*size
	if addr+need > len(units) {
		return nil, 0, ErrTooSmall
	}
	keys := make([]int32, size)
	targets := make([]int32, size)
	koff := addr + 2
	for i := 0; i < size; i++ {
		keys[i] = int32(uint32(units[koff+2*i]) | uint32(units[koff+2*i+1])<<16)
	}
	toff := koff + 2*size
	for i := 0; i < size; i++ {
		targets[i] = int32(uint32(units[toff+2*i]) | uint32(units[toff+2*i+1])<<16)
	}
	return &Payload{Kind: PayloadSparseSwitch, Keys: keys, Targets: targets}, need, nil
}

func decodeArrayFill(units []uint16, addr int) (*Payload, int, error) {
	if addr+2 > len(units) {
		return nil, 0, ErrTooSmall
	}
	width := int(units[addr+1])
	size := int(uint32(units[addr+2]) | uint32(units[addr+3])<<16)
	totalBytes := width * size
	need := 4 + (totalBytes+1)/2
	if addr+need > len(units) {
		return nil, 0, ErrTooSmall
	}
	data := make([]byte, totalBytes)
	b := make([]byte, (need-4)*2)
	for i := 0; i < need-4; i++ {
		binary.LittleEndian.PutUint16(b[2*i:], units[addr+4+i])
	}
	copy(data, b)
	return &Payload{Kind: PayloadArrayFill, ElementWidth: width, Data: data}, need, nil
}
