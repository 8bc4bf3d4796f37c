// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "fmt"

// Disassemble renders a code item's instruction stream as one text line
// per instruction, in the dump style the command-line tool prints
// (address, mnemonic, operands). It never fails: an unrecognized opcode
// renders as "<unknown>" rather than aborting the whole listing, since a
// dump is read by a human triaging a file, not validated by a caller.
func Disassemble(c *Container, item *CodeItem) []string {
	lines := make([]string, 0, 32)
	for _, l := range item.Instructions() {
		lines = append(lines, disasmLine(c, l))
	}
	return lines
}

func disasmLine(c *Container, l Labeled) string {
	mnem := l.Ins.Mnemonic()
	switch l.Ins.Fmt {
	case Fmt10x:
		return fmt.Sprintf("%s %s", l.Addr, mnem)
	case FmtPayload:
		return fmt.Sprintf("%s %s (%d targets)", l.Addr, mnem, len(l.Ins.Payload.Targets))
	case Fmt35c, Fmt45cc, Fmt3rc, Fmt4rcc:
		return fmt.Sprintf("%s %s {%d args}, idx@%d", l.Addr, mnem, len(l.Ins.Regs)+l.Ins.RangeN, l.Ins.B)
	case Fmt31c, Fmt21c, Fmt22c:
		if l.Ins.Op == OpConstString || l.Ins.Op == OpConstStringJumbo {
			if s, err := c.String(uint32(l.Ins.B)); err == nil {
				return fmt.Sprintf("%s %s v%d, %q", l.Addr, mnem, l.Ins.A, s)
			}
		}
		return fmt.Sprintf("%s %s v%d, idx@%d", l.Addr, mnem, l.Ins.A, l.Ins.B)
	default:
		return fmt.Sprintf("%s %s vA=%d, vB=%d, vC=%d", l.Addr, mnem, l.Ins.A, l.Ins.B, l.Ins.C)
	}
}
