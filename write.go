// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "encoding/binary"

// Serialize re-emits a container as bytes. With preserveLayout set, the
// original byte image is used as the base and only patched instructions
// are re-encoded in place; every other byte, including section order and
// original LEB128 widths, is left untouched. Without it, the header's
// checksum and signature fields are zeroed for the caller to recompute
// after any further edits, since they are no longer trustworthy once the
// byte image has been rebuilt outside the original layout.
func Serialize(c *Container, preserveLayout bool) ([]byte, error) {
	if preserveLayout {
		return serializePreservingLayout(c)
	}
	return serializeHeaderOnly(c)
}

// serializePreservingLayout starts from the original image and overwrites
// only the code regions that carry a patched instruction stream, which is
// the only mutation this toolkit ever performs on an already-parsed
// container (see CodeItem.PatchAt).
func serializePreservingLayout(c *Container) ([]byte, error) {
	out := make([]byte, len(c.raw))
	copy(out, c.raw)

	for _, cd := range c.ClassDefs {
		data, ok := c.classData[cd.ClassDataOff]
		if !ok {
			continue
		}
		methods := append(append([]EncodedMethod{}, data.DirectMethods...), data.VirtualMethods...)
		for _, m := range methods {
			if m.CodeOff == 0 {
				continue
			}
			item, ok := c.codeItems[m.CodeOff]
			if !ok {
				continue
			}
			if err := rewriteCodeInsns(out, int(m.CodeOff), item); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// rewriteCodeInsns re-encodes item's current instruction stream into the
// insns region of the code_item at off. The instruction count (and thus
// insns_size) never changes underneath PatchAt, so the region's size is
// unchanged and every following try/catch table stays at its original
// offset.
func rewriteCodeInsns(out []byte, off int, item *CodeItem) error {
	insnsSize := binary.LittleEndian.Uint32(out[off+12:])
	insnsOff := off + 16

	units, err := encodeInstructions(item.Instructions())
	if err != nil {
		return err
	}
	if uint32(len(units)) != insnsSize {
		return ErrBadLeb128 // size drifted; caller violated the patch invariant
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[insnsOff+2*i:], u)
	}
	return nil
}

// encodeInstructions re-renders a decoded instruction stream back into
// 16-bit code units. Only the operand layouts that PatchAt's callers
// (zombie replacement) ever produce need to round-trip exactly; payload
// pseudo-instructions are re-encoded from their decoded Payload by
// encodePayload, since nothing ever patches a switch or fill-array table
// directly.
func encodeInstructions(code []Labeled) ([]uint16, error) {
	var out []uint16
	for _, l := range code {
		units, err := encodeOneInstruction(l.Ins)
		if err != nil {
			return nil, err
		}
		out = append(out, units...)
	}
	return out, nil
}

func encodeOneInstruction(in Instruction) ([]uint16, error) {
	info, ok := lookupOp(in.Op)
	if !ok {
		return nil, ErrUnknownOpcode
	}
	n := info.Format.sizeUnits()
	u := make([]uint16, n)
	switch in.Fmt {
	case Fmt10x:
		u[0] = in.Op
	case Fmt12x:
		u[0] = in.Op | uint16(in.A)<<8 | uint16(in.B)<<12
	case Fmt11n:
		u[0] = in.Op | uint16(in.A)<<8 | (uint16(in.B)&0xF)<<12
	case Fmt11x:
		u[0] = in.Op | uint16(in.A)<<8
	case Fmt10t:
		u[0] = in.Op | (uint16(int8(in.A))&0xFF)<<8
	case Fmt20t:
		u[0] = in.Op
		u[1] = uint16(int16(in.A))
	case Fmt22x:
		u[0] = in.Op | uint16(in.A)<<8
		u[1] = uint16(in.B)
	case Fmt21t, Fmt21s, Fmt21h, Fmt21c:
		u[0] = in.Op | uint16(in.A)<<8
		u[1] = uint16(int16(in.B))
	case Fmt23x:
		u[0] = in.Op | uint16(in.A)<<8
		u[1] = uint16(in.B) | uint16(in.C)<<8
	case Fmt22b:
		u[0] = in.Op | uint16(in.A)<<8
		u[1] = uint16(in.B) | (uint16(int8(in.C))&0xFF)<<8
	case Fmt22t, Fmt22s, Fmt22c:
		u[0] = in.Op | (uint16(in.A)&0xF)<<8 | (uint16(in.B)&0xF)<<12
		u[1] = uint16(int16(in.C))
	case Fmt32x:
		u[0] = in.Op
		u[1] = uint16(in.A)
		u[2] = uint16(in.B)
	case Fmt30t:
		u[0] = in.Op
		v := uint32(in.A)
		u[1] = uint16(v)
		u[2] = uint16(v >> 16)
	case Fmt31i, Fmt31t:
		u[0] = in.Op | uint16(in.A)<<8
		v := uint32(in.B)
		u[1] = uint16(v)
		u[2] = uint16(v >> 16)
	case Fmt31c:
		u[0] = in.Op | uint16(in.A)<<8
		v := uint32(in.B)
		u[1] = uint16(v)
		u[2] = uint16(v >> 16)
	case Fmt35c, Fmt45cc:
		argc := len(in.Regs)
		var packed, g uint16
		for i := 0; i < argc && i < 4; i++ {
			packed |= uint16(in.Regs[i]&0xF) << (4 * i)
		}
		if argc == 5 {
			g = uint16(in.Regs[4] & 0xF)
		}
		u[0] = in.Op | uint16(argc)<<12
		u[1] = uint16(in.B)
		u[2] = packed
		u[0] |= g << 8
		if in.Fmt == Fmt45cc {
			u[3] = uint16(in.C)
		}
	case Fmt3rc, Fmt4rcc:
		u[0] = in.Op | uint16(in.A)<<8
		u[1] = uint16(in.B)
		u[2] = uint16(in.RangeLo)
		if in.Fmt == Fmt4rcc {
			u[3] = uint16(in.C)
		}
	case Fmt51l:
		u[0] = in.Op | uint16(in.A)<<8
		v := uint64(in.B)
		u[1] = uint16(v)
		u[2] = uint16(v >> 16)
		u[3] = uint16(v >> 32)
		u[4] = uint16(v >> 48)
	case FmtPayload:
		return encodePayload(in)
	}
	return u, nil
}

func encodePayload(in Instruction) ([]uint16, error) {
	if in.Payload == nil {
		return nil, ErrBadLeb128
	}
	switch in.Payload.Kind {
	case PayloadPackedSwitch:
		size := len(in.Payload.Targets)
		out := make([]uint16, 4+2*size)
		out[0] = 0x0100
		out[1] = uint16(size)
		out[2] = uint16(uint32(in.Payload.FirstKey))
		out[3] = uint16(uint32(in.Payload.FirstKey) >> 16)
		for i, t := range in.Payload.Targets {
			out[4+2*i] = uint16(uint32(t))
			out[4+2*i+1] = uint16(uint32(t) >> 16)
		}
		return out, nil
	case PayloadSparseSwitch:
		size := len(in.Payload.Keys)
		out := make([]uint16, 2+4*size)
		out[0] = 0x0200
		out[1] = uint16(size)
		for i, k := range in.Payload.Keys {
			out[2+2*i] = uint16(uint32(k))
			out[2+2*i+1] = uint16(uint32(k) >> 16)
		}
		toff := 2 + 2*size
		for i, t := range in.Payload.Targets {
			out[toff+2*i] = uint16(uint32(t))
			out[toff+2*i+1] = uint16(uint32(t) >> 16)
		}
		return out, nil
	case PayloadArrayFill:
		width := in.Payload.ElementWidth
		count := 0
		if width > 0 {
			count = len(in.Payload.Data) / width
		}
		need := 4 + (len(in.Payload.Data)+1)/2
		out := make([]uint16, need)
		out[0] = 0x0300
		out[1] = uint16(width)
		out[2] = uint16(uint32(count))
		out[3] = uint16(uint32(count) >> 16)
		padded := make([]byte, (need-4)*2)
		copy(padded, in.Payload.Data)
		for i := 0; i < need-4; i++ {
			out[4+i] = binary.LittleEndian.Uint16(padded[2*i:])
		}
		return out, nil
	}
	return nil, ErrBadLeb128
}

// serializeHeaderOnly rebuilds just the header from c.Header and appends
// the unmodified body; used when no layout-preserving re-render applies
// (e.g. the container was constructed in memory rather than parsed).
func serializeHeaderOnly(c *Container) ([]byte, error) {
	if len(c.raw) < HeaderSize {
		return nil, ErrTooSmall
	}
	h := c.Header
	h.Checksum = 0
	h.Signature = [20]byte{}
	body := make([]byte, len(c.raw)-HeaderSize)
	copy(body, c.raw[HeaderSize:])
	return writeHeader(h, body), nil
}
