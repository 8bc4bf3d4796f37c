// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typecheck

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/dataflow"
)

// TransferInstr implements dataflow.State: pre-state in, post-state out,
// one case per opcode family. last_exception/last_result always reset
// to None on exit unless this instruction is the one that sets them
// (move-exception consumes last_exception; invoke* sets last_result).
func (s State) TransferInstr(l dex.Labeled, ctx *dataflow.Context) dataflow.State {
	rep := ctx.Repo
	ins := l.Ins
	out := s.clone()
	out.HasException = false
	out.HasResult = false

	// check records a subtyping failure without altering control flow;
	// strict vs non-strict is decided by the caller (see typecheck.go),
	// which inspects Errors once the fixpoint settles.
	check := func(found, expected Type) {
		if e := notASubtype(l.Addr, found, expected, Subtype(rep, found, expected)); e != nil {
			out.Errors = append(out.Errors, *e)
		}
	}
	reg := func(v int64) dex.Reg { return dex.Reg(v) }

	switch ins.Op {
	case dex.OpNop, dex.OpGoto, dex.OpGoto16, dex.OpGoto32,
		dex.OpPackedSwitch, dex.OpSparseSwitch, dex.OpMonitorEnter, dex.OpMonitorExit,
		dex.OpThrow, dex.OpFillArrayData:
		// No register write. throw/monitor* consume an object
		// register but add no new typing information; fill-array-data
		// writes through a reference, not a register.

	case dex.OpMove, dex.OpMoveWide, dex.OpMoveObject:
		src := out.get(reg(ins.B))
		check(src, Join32T())
		if ins.Op == dex.OpMoveWide {
			out = out.setWide(reg(ins.A), src)
		} else {
			out = out.set(reg(ins.A), src)
		}

	case dex.OpMoveResult:
		if s.HasResult {
			out = out.set(reg(ins.A), s.LastResult)
		} else {
			out = out.set(reg(ins.A), TopT())
		}
	case dex.OpMoveResultWide:
		if s.HasResult {
			out = out.setWide(reg(ins.A), s.LastResult)
		} else {
			out = out.setWide(reg(ins.A), TopT())
		}
	case dex.OpMoveResultObject:
		if s.HasResult {
			out = out.set(reg(ins.A), s.LastResult)
		} else {
			out = out.set(reg(ins.A), TopT())
		}
	case dex.OpMoveException:
		if s.HasException {
			out = out.set(reg(ins.A), s.LastException)
		} else {
			out = out.set(reg(ins.A), ObjectT("Ljava/lang/Throwable;"))
		}

	case dex.OpReturnVoid:
	case dex.OpReturn:
		check(out.get(reg(ins.A)), s.Expected)
	case dex.OpReturnWide:
		check(out.get(reg(ins.A)), s.Expected)
	case dex.OpReturnObject:
		check(out.get(reg(ins.A)), s.Expected)

	case dex.OpConst4, dex.OpConst16, dex.OpConst, dex.OpConstHigh16:
		out = out.set(reg(ins.A), IntegerT())
	case dex.OpConstWide16, dex.OpConstWide32, dex.OpConstWide, dex.OpConstWideHigh16:
		out = out.setWide(reg(ins.A), LongT())
	case dex.OpConstString, dex.OpConstStringJumbo:
		out = out.set(reg(ins.A), ObjectT("Ljava/lang/String;"))
	case dex.OpConstClass:
		out = out.set(reg(ins.A), ObjectT("Ljava/lang/Class;"))

	case dex.OpCheckCast:
		// The narrowed type is written on the CastSuccess branch edge,
		// not here; TransferInstr for check-cast is identity.

	case dex.OpInstanceOf:
		check(out.get(reg(ins.B)), JoinZeroT())
		out = out.set(reg(ins.A), IntegerT())

	case dex.OpArrayLength:
		out = out.set(reg(ins.A), IntegerT())

	case dex.OpNewInstance:
		name, err := ctx.Container.TypeName(uint32(ins.B))
		if err != nil {
			out = out.set(reg(ins.A), TopT())
		} else {
			out = out.set(reg(ins.A), ObjectT(name))
		}

	case dex.OpNewArray:
		check(out.get(reg(ins.B)), Join32T())
		name, err := ctx.Container.TypeName(uint32(ins.C))
		if err != nil {
			out = out.set(reg(ins.A), TopT())
		} else {
			out = out.set(reg(ins.A), typeFromDescriptor(name))
		}

	case dex.OpFilledNewArray, dex.OpFilledNewArrayRange:
		name, err := ctx.Container.TypeName(uint32(ins.B))
		if err != nil {
			out.HasResult, out.LastResult = true, TopT()
		} else {
			out.HasResult, out.LastResult = true, typeFromDescriptor(name)
		}

	case dex.OpAget, dex.OpAgetWide, dex.OpAgetObject, dex.OpAgetBoolean,
		dex.OpAgetByte, dex.OpAgetChar, dex.OpAgetShort:
		check(out.get(reg(ins.C)), Join32T())
		elem := arrayElementType(out.get(reg(ins.B)))
		if ins.Op == dex.OpAgetWide {
			out = out.setWide(reg(ins.A), elem)
		} else {
			out = out.set(reg(ins.A), elem)
		}

	case dex.OpAput, dex.OpAputWide, dex.OpAputObject, dex.OpAputBoolean,
		dex.OpAputByte, dex.OpAputChar, dex.OpAputShort:
		check(out.get(reg(ins.C)), Join32T())
		elem := arrayElementType(out.get(reg(ins.B)))
		check(out.get(reg(ins.A)), elem)

	case dex.OpIget, dex.OpIgetWide, dex.OpIgetObject, dex.OpIgetBoolean,
		dex.OpIgetByte, dex.OpIgetChar, dex.OpIgetShort:
		fr, ok := resolveFieldRef(ctx.Container, uint32(ins.C))
		if ok {
			check(out.get(reg(ins.B)), ObjectT(fr.ClassName))
		}
		ft := fieldType(fr, ok)
		if ins.Op == dex.OpIgetWide {
			out = out.setWide(reg(ins.A), ft)
		} else {
			out = out.set(reg(ins.A), ft)
		}

	case dex.OpIput, dex.OpIputWide, dex.OpIputObject, dex.OpIputBoolean,
		dex.OpIputByte, dex.OpIputChar, dex.OpIputShort:
		fr, ok := resolveFieldRef(ctx.Container, uint32(ins.C))
		if ok {
			check(out.get(reg(ins.B)), ObjectT(fr.ClassName))
			check(out.get(reg(ins.A)), fieldType(fr, ok))
		}

	case dex.OpSget, dex.OpSgetWide, dex.OpSgetObject, dex.OpSgetBoolean,
		dex.OpSgetByte, dex.OpSgetChar, dex.OpSgetShort:
		fr, ok := resolveFieldRef(ctx.Container, uint32(ins.B))
		ft := fieldType(fr, ok)
		if ins.Op == dex.OpSgetWide {
			out = out.setWide(reg(ins.A), ft)
		} else {
			out = out.set(reg(ins.A), ft)
		}

	case dex.OpSput, dex.OpSputWide, dex.OpSputObject, dex.OpSputBoolean,
		dex.OpSputByte, dex.OpSputChar, dex.OpSputShort:
		fr, ok := resolveFieldRef(ctx.Container, uint32(ins.B))
		if ok {
			check(out.get(reg(ins.A)), fieldType(fr, ok))
		}

	case dex.OpInvokeVirtual, dex.OpInvokeSuper, dex.OpInvokeDirect, dex.OpInvokeStatic,
		dex.OpInvokeInterface, dex.OpInvokeVirtualRange, dex.OpInvokeSuperRange,
		dex.OpInvokeDirectRange, dex.OpInvokeStaticRange, dex.OpInvokeInterfaceRange,
		dex.OpInvokePolymorphic, dex.OpInvokePolymorphicRange,
		dex.OpInvokeCustom, dex.OpInvokeCustomRange:
		out = transferInvoke(out, l.Addr, ins, ctx)

	case dex.OpNegInt, dex.OpNotInt:
		check(out.get(reg(ins.B)), Join32T())
		out = out.set(reg(ins.A), IntegerT())
	case dex.OpNegLong, dex.OpNotLong:
		check(out.get(reg(ins.B)), Join64T())
		out = out.setWide(reg(ins.A), LongT())
	case dex.OpNegFloat:
		check(out.get(reg(ins.B)), Join32T())
		out = out.set(reg(ins.A), FloatT())
	case dex.OpNegDouble:
		check(out.get(reg(ins.B)), Join64T())
		out = out.setWide(reg(ins.A), DoubleT())

	case dex.OpIntToLong:
		check(out.get(reg(ins.B)), Join32T())
		out = out.setWide(reg(ins.A), LongT())
	case dex.OpIntToFloat:
		check(out.get(reg(ins.B)), Join32T())
		out = out.set(reg(ins.A), FloatT())
	case dex.OpIntToDouble:
		check(out.get(reg(ins.B)), Join32T())
		out = out.setWide(reg(ins.A), DoubleT())
	case dex.OpLongToInt:
		check(out.get(reg(ins.B)), Join64T())
		out = out.set(reg(ins.A), IntegerT())
	case dex.OpLongToFloat:
		check(out.get(reg(ins.B)), Join64T())
		out = out.set(reg(ins.A), FloatT())
	case dex.OpLongToDouble:
		check(out.get(reg(ins.B)), Join64T())
		out = out.setWide(reg(ins.A), DoubleT())
	case dex.OpFloatToInt:
		check(out.get(reg(ins.B)), Join32T())
		out = out.set(reg(ins.A), IntegerT())
	case dex.OpFloatToLong:
		check(out.get(reg(ins.B)), Join32T())
		out = out.setWide(reg(ins.A), LongT())
	case dex.OpFloatToDouble:
		check(out.get(reg(ins.B)), Join32T())
		out = out.setWide(reg(ins.A), DoubleT())
	case dex.OpDoubleToInt:
		check(out.get(reg(ins.B)), Join64T())
		out = out.set(reg(ins.A), IntegerT())
	case dex.OpDoubleToLong:
		check(out.get(reg(ins.B)), Join64T())
		out = out.setWide(reg(ins.A), LongT())
	case dex.OpDoubleToFloat:
		check(out.get(reg(ins.B)), Join64T())
		out = out.set(reg(ins.A), FloatT())
	case dex.OpIntToByte, dex.OpIntToChar, dex.OpIntToShort:
		check(out.get(reg(ins.B)), Join32T())
		out = out.set(reg(ins.A), IntegerT())

	case dex.OpCmpLFloat, dex.OpCmpGFloat:
		check(out.get(reg(ins.B)), Join32T())
		check(out.get(reg(ins.C)), Join32T())
		out = out.set(reg(ins.A), IntegerT())
	case dex.OpCmpLDouble, dex.OpCmpGDouble, dex.OpCmpLong:
		check(out.get(reg(ins.B)), Join64T())
		check(out.get(reg(ins.C)), Join64T())
		out = out.set(reg(ins.A), IntegerT())

	case dex.OpIfEq, dex.OpIfNe, dex.OpIfLt, dex.OpIfGe, dex.OpIfGt, dex.OpIfLe,
		dex.OpIfEqz, dex.OpIfNez, dex.OpIfLtz, dex.OpIfGez, dex.OpIfGtz, dex.OpIfLez:
		// Comparisons only typecheck their operands; no register write.
		check(out.get(reg(ins.A)), JoinZeroT())
		if ins.Op <= dex.OpIfLe {
			check(out.get(reg(ins.B)), JoinZeroT())
		}

	case dex.OpAddInt, dex.OpSubInt, dex.OpMulInt, dex.OpDivInt, dex.OpRemInt,
		dex.OpAndInt, dex.OpOrInt, dex.OpXorInt, dex.OpShlInt, dex.OpShrInt, dex.OpUshrInt:
		check(out.get(reg(ins.B)), Join32T())
		check(out.get(reg(ins.C)), Join32T())
		out = out.set(reg(ins.A), IntegerT())

	case dex.OpAddLong, dex.OpSubLong, dex.OpMulLong, dex.OpDivLong, dex.OpRemLong,
		dex.OpAndLong, dex.OpOrLong, dex.OpXorLong, dex.OpShlLong, dex.OpShrLong, dex.OpUshrLong:
		check(out.get(reg(ins.B)), Join64T())
		check(out.get(reg(ins.C)), Join64T())
		out = out.setWide(reg(ins.A), LongT())

	case dex.OpAddFloat, dex.OpSubFloat, dex.OpMulFloat, dex.OpDivFloat, dex.OpRemFloat:
		check(out.get(reg(ins.B)), Join32T())
		check(out.get(reg(ins.C)), Join32T())
		out = out.set(reg(ins.A), FloatT())

	case dex.OpAddDouble, dex.OpSubDouble, dex.OpMulDouble, dex.OpDivDouble, dex.OpRemDouble:
		check(out.get(reg(ins.B)), Join64T())
		check(out.get(reg(ins.C)), Join64T())
		out = out.setWide(reg(ins.A), DoubleT())

	case dex.OpAddInt2Addr, dex.OpSubInt2Addr, dex.OpMulInt2Addr, dex.OpDivInt2Addr, dex.OpRemInt2Addr:
		check(out.get(reg(ins.A)), Join32T())
		check(out.get(reg(ins.B)), Join32T())
		out = out.set(reg(ins.A), IntegerT())

	case dex.OpAddIntLit16, dex.OpRsubInt, dex.OpMulIntLit16, dex.OpDivIntLit16,
		dex.OpRemIntLit16, dex.OpAndIntLit16, dex.OpOrIntLit16, dex.OpXorIntLit16,
		dex.OpAddIntLit8, dex.OpRsubIntLit8, dex.OpMulIntLit8, dex.OpDivIntLit8,
		dex.OpRemIntLit8, dex.OpAndIntLit8, dex.OpOrIntLit8, dex.OpXorIntLit8,
		dex.OpShlIntLit8, dex.OpShrIntLit8, dex.OpUshrIntLit8:
		check(out.get(reg(ins.B)), Join32T())
		out = out.set(reg(ins.A), IntegerT())
	}

	return out
}

// arrayElementType returns the static element type of an array-typed
// register, or Top if it isn't known to be an array (e.g. it's still
// MeetZero/Top from an unresolved merge — the zombie patcher's
// replacements land here too).
func arrayElementType(t Type) Type {
	if t.Kind == Array && t.Elem != nil {
		return *t.Elem
	}
	return TopT()
}

// fieldType returns the resolved field's abstract type, or Top if the
// reference didn't resolve (an unresolved field ref is a repository/
// callgraph concern, already flagged as a zombie root there).
func fieldType(fr fieldRef, ok bool) Type {
	if !ok {
		return TopT()
	}
	return typeFromDescriptor(fr.Type)
}

// transferInvoke typechecks the receiver and argument registers against
// the resolved method descriptor and records the return type as
// last_result (None for void).
func transferInvoke(out State, addr dex.Addr, ins dex.Instruction, ctx *dataflow.Context) State {
	d, ok := resolveMethodDescr(ctx.Container, uint32(ins.B))
	if !ok {
		return out
	}
	args := invokeArgRegs(ins)
	start := 0
	static := ins.Op == dex.OpInvokeStatic || ins.Op == dex.OpInvokeStaticRange
	if !static && len(args) > 0 {
		this := out.get(args[0])
		if e := notASubtype(addr, this, ObjectT(d.ClassName), Subtype(ctx.Repo, this, ObjectT(d.ClassName))); e != nil {
			out.Errors = append(out.Errors, *e)
		}
		start = 1
	}
	pi := 0
	for i := start; i < len(args) && pi < len(d.ParamTypes); i++ {
		want := typeFromDescriptor(d.ParamTypes[pi])
		have := out.get(args[i])
		if e := notASubtype(addr, have, want, Subtype(ctx.Repo, have, want)); e != nil {
			out.Errors = append(out.Errors, *e)
		}
		if isWideDescriptor(d.ParamTypes[pi]) {
			i++
		}
		pi++
	}
	if d.ReturnType != "" && d.ReturnType != "V" {
		out.HasResult = true
		out.LastResult = typeFromDescriptor(d.ReturnType)
	}
	return out
}

// invokeArgRegs flattens either the explicit vC..vG register list
// (Fmt35c/45cc) or the contiguous vCCCC..vNNNN span (Fmt3rc/4rcc) into
// one slice in argument order.
func invokeArgRegs(ins dex.Instruction) []dex.Reg {
	if ins.RangeN > 0 || len(ins.Regs) == 0 {
		out := make([]dex.Reg, ins.RangeN)
		for i := range out {
			out[i] = ins.RangeLo + dex.Reg(i)
		}
		return out
	}
	return ins.Regs
}
