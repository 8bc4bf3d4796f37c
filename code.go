// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"encoding/binary"
	"sync"
)

// TryItem is one try region: the address range it covers and the
// handler list reached when an exception escapes it.
type TryItem struct {
	StartAddr Addr
	EndAddr   Addr // exclusive
	Handlers  CatchHandlers
}

// CatchHandlers is one catch_handler: an ordered list of typed handlers
// plus an optional catch-all target.
type CatchHandlers struct {
	TypedHandlers []TypedHandler
	CatchAllAddr  Addr
	HasCatchAll   bool
}

// TypedHandler binds one exception type to the address execution resumes
// at when that type (or a subtype) is caught.
type TypedHandler struct {
	TypeIdx uint32
	Addr    Addr
}

// CodeItem is a method body: register/argument counts, the decoded
// instruction stream, and the try/catch table. The instruction stream is
// mutable under interior synchronisation: the callgraph patcher takes
// the write lock per patched instruction, analyses take the read lock
// once to copy the stream (Instructions) or once per lookup (At).
type CodeItem struct {
	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16
	DebugInfoOff  uint32
	Tries         []TryItem

	mu   sync.RWMutex
	code []Labeled
}

// NewCodeItem wraps a decoded instruction stream for shared access.
func NewCodeItem(regs, ins, outs uint16, tries []TryItem, code []Labeled) *CodeItem {
	return &CodeItem{RegistersSize: regs, InsSize: ins, OutsSize: outs, Tries: tries, code: code}
}

// Instructions returns a snapshot of the current instruction stream.
// Callers must not retain it across a call that might patch the item:
// no analysis should hold shared access across a call into another
// analysis.
func (c *CodeItem) Instructions() []Labeled {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Labeled, len(c.code))
	copy(out, c.code)
	return out
}

// At returns the instruction at addr, if any.
func (c *CodeItem) At(addr Addr) (Labeled, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.code {
		if l.Addr == addr {
			return l, true
		}
	}
	return Labeled{}, false
}

// PatchAt replaces the instruction at addr in place. The replacement
// must occupy exactly as many code units as the original; PatchAt does
// not itself verify this since only the caller knows the original's
// size (callgraph's patchOne, run by PatchUnknownRefs, computes it
// before calling in).
func (c *CodeItem) PatchAt(addr Addr, ins Instruction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.code {
		if c.code[i].Addr == addr {
			c.code[i].Ins = ins
			return
		}
	}
}

// PatchRange replaces the contiguous run of instructions starting at
// addr and spanning exactly spanUnits code units with replacement,
// whose Size fields must sum to spanUnits. Used by the callgraph
// patcher whenever a single zombie-root instruction's type-preserving
// replacement does not fit in one instruction slot: erasing a multi-
// unit invoke to a run of nops, check-cast's "const/4 ; throw" pair, or
// rewriting an erased invoke's trailing move-result-object together
// with the invoke itself. Addresses downstream of the range are left
// untouched, preserving every later instruction's address.
func (c *CodeItem) PatchRange(addr Addr, spanUnits int, replacement []Instruction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := -1
	end := -1
	for i := range c.code {
		if c.code[i].Addr == addr {
			start = i
		}
		if start != -1 && c.code[i].Addr < addr+Addr(spanUnits) {
			end = i + 1
		}
	}
	if start == -1 {
		return
	}
	rest := append([]Labeled{}, c.code[end:]...)
	c.code = c.code[:start]
	cur := addr
	for _, ins := range replacement {
		c.code = append(c.code, Labeled{Addr: cur, Ins: ins})
		cur += Addr(ins.Size)
	}
	c.code = append(c.code, rest...)
}

// decodeCodeItem parses one code_item at the given byte offset.
func decodeCodeItem(b []byte, off int) (*CodeItem, int, error) {
	start := off
	if off+16 > len(b) {
		return nil, 0, ErrTooSmall
	}
	regs := binary.LittleEndian.Uint16(b[off:])
	ins := binary.LittleEndian.Uint16(b[off+2:])
	outs := binary.LittleEndian.Uint16(b[off+4:])
	triesSize := binary.LittleEndian.Uint16(b[off+6:])
	debugOff := binary.LittleEndian.Uint32(b[off+8:])
	insnsSize := binary.LittleEndian.Uint32(b[off+12:])
	off += 16

	if off+int(insnsSize)*2 > len(b) {
		return nil, 0, ErrTooSmall
	}
	units := make([]uint16, insnsSize)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[off+2*i:])
	}
	off += int(insnsSize) * 2

	code, err := DecodeInstructions(units)
	if err != nil {
		return nil, 0, err
	}

	var tries []TryItem
	if triesSize > 0 {
		if insnsSize%2 != 0 {
			off += 2 // tries are 4-byte aligned; insns may leave a 2-byte pad
		}
		tries = make([]TryItem, triesSize)
		tryStart := off
		for i := 0; i < int(triesSize); i++ {
			base := tryStart + i*8
			if base+8 > len(b) {
				return nil, 0, ErrTooSmall
			}
			startAddr := binary.LittleEndian.Uint32(b[base:])
			insnCount := binary.LittleEndian.Uint16(b[base+4:])
			handlerOff := binary.LittleEndian.Uint16(b[base+6:])
			tries[i].StartAddr = Addr(startAddr)
			tries[i].EndAddr = Addr(startAddr) + Addr(insnCount)
			_ = handlerOff
		}
		off = tryStart + int(triesSize)*8

		handlersListStart := off
		handlerCount, n, err := ReadULEB128(b, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		offsetToHandler := make(map[int]CatchHandlers, handlerCount)
		for i := 0; i < int(handlerCount); i++ {
			handlerOff := off - handlersListStart
			h, n, err := decodeCatchHandlers(b, off)
			if err != nil {
				return nil, 0, err
			}
			offsetToHandler[handlerOff] = h
			off += n
		}
		for i := 0; i < int(triesSize); i++ {
			base := tryStart + i*8
			handlerOff := int(binary.LittleEndian.Uint16(b[base+6:]))
			if h, ok := offsetToHandler[handlerOff]; ok {
				tries[i].Handlers = h
			}
		}
	}

	return NewCodeItem(regs, ins, outs, tries, code), off - start, nil
}

func decodeCatchHandlers(b []byte, off int) (CatchHandlers, int, error) {
	start := off
	size, n, err := ReadSLEB128(b, off)
	if err != nil {
		return CatchHandlers{}, 0, err
	}
	off += n
	count := size
	hasCatchAll := size <= 0
	if count < 0 {
		count = -count
	}
	h := CatchHandlers{}
	for i := 0; i < int(count); i++ {
		typeIdx, n, err := ReadULEB128(b, off)
		if err != nil {
			return CatchHandlers{}, 0, err
		}
		off += n
		addr, n, err := ReadULEB128(b, off)
		if err != nil {
			return CatchHandlers{}, 0, err
		}
		off += n
		h.TypedHandlers = append(h.TypedHandlers, TypedHandler{TypeIdx: typeIdx, Addr: Addr(addr)})
	}
	if hasCatchAll {
		addr, n, err := ReadULEB128(b, off)
		if err != nil {
			return CatchHandlers{}, 0, err
		}
		off += n
		h.CatchAllAddr = Addr(addr)
		h.HasCatchAll = true
	}
	return h, off - start, nil
}
