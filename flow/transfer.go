// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/dataflow"
	"github.com/saferwall/dex/repo"
)

// supported reports whether op is one this instantiation models. A
// method containing any unsupported opcode is skipped whole by the
// outer driver rather than analysed with a gap in its transfer
// function, matching how the original leaves the same opcode families
// unimplemented rather than partially modeled.
func supported(op uint16) bool {
	switch op {
	case dex.OpInstanceOf,
		dex.OpFilledNewArray, dex.OpFilledNewArrayRange, dex.OpFillArrayData,
		dex.OpPackedSwitch, dex.OpSparseSwitch,
		dex.OpAget, dex.OpAgetWide, dex.OpAgetObject, dex.OpAgetBoolean,
		dex.OpAgetByte, dex.OpAgetChar, dex.OpAgetShort,
		dex.OpAput, dex.OpAputWide, dex.OpAputObject, dex.OpAputBoolean,
		dex.OpAputByte, dex.OpAputChar, dex.OpAputShort,
		dex.OpAddLong, dex.OpSubLong, dex.OpMulLong, dex.OpDivLong, dex.OpRemLong,
		dex.OpAndLong, dex.OpOrLong, dex.OpXorLong,
		dex.OpShlLong, dex.OpShrLong, dex.OpUshrLong,
		dex.OpAddDouble, dex.OpSubDouble, dex.OpMulDouble, dex.OpDivDouble, dex.OpRemDouble,
		dex.OpInvokePolymorphic, dex.OpInvokePolymorphicRange,
		dex.OpInvokeCustom, dex.OpInvokeCustomRange,
		dex.OpThrow:
		return false
	}
	return true
}

// TransferInstr implements dataflow.State: one case per opcode family
// this instantiation models (see supported). Every write applies the
// current implicit-context set, mirroring Flows.ApplyContext's role in
// the original's per-case handling.
func (s State) TransferInstr(l dex.Labeled, ctx *dataflow.Context) dataflow.State {
	ins := l.Ins
	pc := l.Addr
	out := s.clone()
	out.HasResult = false

	reg := func(v int64) dex.Reg { return dex.Reg(v) }
	withCtx := func(f Flows) Flows { return f.ApplyContext(out.Conditions) }

	switch ins.Op {
	case dex.OpNop, dex.OpGoto, dex.OpGoto16, dex.OpGoto32,
		dex.OpMonitorEnter, dex.OpMonitorExit,
		dex.OpIfEq, dex.OpIfNe, dex.OpIfLt, dex.OpIfGe, dex.OpIfGt, dex.OpIfLe,
		dex.OpIfEqz, dex.OpIfNez, dex.OpIfLtz, dex.OpIfGez, dex.OpIfGtz, dex.OpIfLez:
		// No flow-relevant effect: branches are handled by
		// TransferBranch, monitors don't move data.

	case dex.OpMove, dex.OpMoveObject:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.B)))
	case dex.OpMoveWide:
		out = out.setWide(reg(ins.A), withCtx(out.get(reg(ins.B))))

	case dex.OpMoveResult, dex.OpMoveResultObject:
		f := NewFlows()
		if s.HasResult {
			f = s.LastResult
		}
		out.Regs[reg(ins.A)] = withCtx(f)
	case dex.OpMoveResultWide:
		f := NewFlows()
		if s.HasResult {
			f = s.LastResult
		}
		out = out.setWide(reg(ins.A), withCtx(f))
	case dex.OpMoveException:
		f := NewFlows()
		if s.HasException {
			f = s.LastException
		}
		out.Regs[reg(ins.A)] = withCtx(f)
		out.HasException = false

	case dex.OpReturnVoid:
		out.Signature.JoinReturn(withCtx(NewFlows()))
	case dex.OpReturn, dex.OpReturnObject:
		out.Signature.JoinReturn(withCtx(out.get(reg(ins.A))))
	case dex.OpReturnWide:
		out.Signature.JoinReturn(withCtx(out.get(reg(ins.A))))

	case dex.OpConst4, dex.OpConst16, dex.OpConstHigh16, dex.OpConst:
		cst := out.Signature.Amg.AddVertex(ConstantVertex(ctx.Method.UID, pc))
		f := FlowsOf(Flow{Vertex: cst, Type: Explicit})
		if ins.B == 0 {
			f.Add(Flow{Vertex: out.Signature.Amg.AddVertex(NullVertex()), Type: Explicit})
		}
		out.Regs[reg(ins.A)] = withCtx(f)
	case dex.OpConstString, dex.OpConstStringJumbo, dex.OpConstClass:
		cst := out.Signature.Amg.AddVertex(ConstantVertex(ctx.Method.UID, pc))
		out.Regs[reg(ins.A)] = withCtx(FlowsOf(Flow{Vertex: cst, Type: Explicit}))
	case dex.OpConstWide16, dex.OpConstWide32, dex.OpConstWide, dex.OpConstWideHigh16:
		cst := out.Signature.Amg.AddVertex(ConstantVertex(ctx.Method.UID, pc))
		out = out.setWide(reg(ins.A), withCtx(FlowsOf(Flow{Vertex: cst, Type: Explicit})))

	case dex.OpCheckCast:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.A)))

	case dex.OpArrayLength:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.B)).IntoImplicit())

	case dex.OpNewInstance:
		alloc := out.Signature.Amg.AddVertex(InstanceVertex(ctx.Method.UID, pc))
		out.Regs[reg(ins.A)] = withCtx(FlowsOf(Flow{Vertex: alloc, Type: Explicit}))
	case dex.OpNewArray:
		alloc := out.Signature.Amg.AddVertex(InstanceVertex(ctx.Method.UID, pc))
		f := out.get(reg(ins.B)).IntoImplicit()
		f.Add(Flow{Vertex: alloc, Type: Explicit})
		out.Regs[reg(ins.A)] = withCtx(f)

	case dex.OpCmpLFloat, dex.OpCmpGFloat:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.B)).Join(out.get(reg(ins.C))))
	case dex.OpCmpLDouble, dex.OpCmpGDouble, dex.OpCmpLong:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.B)).Join(out.get(reg(ins.C))))

	case dex.OpIget, dex.OpIgetBoolean, dex.OpIgetByte, dex.OpIgetChar, dex.OpIgetShort:
		out = out.transferIget(ins, ctx, false, false)
	case dex.OpIgetWide:
		out = out.transferIget(ins, ctx, true, false)
	case dex.OpIgetObject:
		out = out.transferIget(ins, ctx, false, true)

	case dex.OpIput, dex.OpIputBoolean, dex.OpIputByte, dex.OpIputChar, dex.OpIputShort, dex.OpIputObject:
		out = out.transferIput(ins, ctx, false)
	case dex.OpIputWide:
		out = out.transferIput(ins, ctx, true)

	case dex.OpSget, dex.OpSgetBoolean, dex.OpSgetByte, dex.OpSgetChar, dex.OpSgetShort:
		out = out.transferSget(ins, ctx, false, false)
	case dex.OpSgetWide:
		out = out.transferSget(ins, ctx, true, false)
	case dex.OpSgetObject:
		out = out.transferSget(ins, ctx, false, true)

	case dex.OpSput, dex.OpSputBoolean, dex.OpSputByte, dex.OpSputChar, dex.OpSputShort, dex.OpSputObject:
		out = out.transferSput(ins, ctx, false)
	case dex.OpSputWide:
		out = out.transferSput(ins, ctx, true)

	case dex.OpInvokeVirtual, dex.OpInvokeInterface, dex.OpInvokeVirtualRange, dex.OpInvokeInterfaceRange:
		out = out.transferInvokeVirtual(ins, pc, ctx, false)
	case dex.OpInvokeSuper, dex.OpInvokeSuperRange:
		out = out.transferInvokeVirtual(ins, pc, ctx, true)
	case dex.OpInvokeDirect, dex.OpInvokeDirectRange, dex.OpInvokeStatic, dex.OpInvokeStaticRange:
		out = out.transferInvokeDirect(ins, ctx)

	case dex.OpNegInt, dex.OpNotInt, dex.OpNegFloat,
		dex.OpAddIntLit16, dex.OpRsubInt, dex.OpMulIntLit16, dex.OpDivIntLit16, dex.OpRemIntLit16,
		dex.OpAndIntLit16, dex.OpOrIntLit16, dex.OpXorIntLit16,
		dex.OpAddIntLit8, dex.OpRsubIntLit8, dex.OpMulIntLit8, dex.OpDivIntLit8, dex.OpRemIntLit8,
		dex.OpAndIntLit8, dex.OpOrIntLit8, dex.OpXorIntLit8,
		dex.OpShlIntLit8, dex.OpShrIntLit8, dex.OpUshrIntLit8:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.B)))

	case dex.OpNegLong, dex.OpNotLong, dex.OpNegDouble:
		out = out.setWide(reg(ins.A), withCtx(out.get(reg(ins.B))))

	case dex.OpIntToLong, dex.OpIntToDouble, dex.OpFloatToLong, dex.OpFloatToDouble:
		out = out.setWide(reg(ins.A), withCtx(out.get(reg(ins.B))))
	case dex.OpIntToFloat, dex.OpFloatToInt, dex.OpIntToByte, dex.OpIntToChar, dex.OpIntToShort:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.B)))
	case dex.OpLongToInt, dex.OpLongToFloat, dex.OpDoubleToInt, dex.OpDoubleToFloat:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.B)))
	case dex.OpLongToDouble, dex.OpDoubleToLong:
		out = out.setWide(reg(ins.A), withCtx(out.get(reg(ins.B))))

	case dex.OpAddInt, dex.OpSubInt, dex.OpMulInt, dex.OpDivInt, dex.OpRemInt,
		dex.OpAndInt, dex.OpOrInt, dex.OpXorInt, dex.OpShlInt, dex.OpShrInt, dex.OpUshrInt,
		dex.OpAddFloat, dex.OpSubFloat, dex.OpMulFloat, dex.OpDivFloat, dex.OpRemFloat:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.B)).Join(out.get(reg(ins.C))))

	case dex.OpAddInt2Addr, dex.OpSubInt2Addr, dex.OpMulInt2Addr, dex.OpDivInt2Addr, dex.OpRemInt2Addr:
		out.Regs[reg(ins.A)] = withCtx(out.get(reg(ins.A)).Join(out.get(reg(ins.B))))
	}

	return out
}

// transferIget handles the instance-field-read family: the object
// register's explicit flows are expanded one field-access edge each
// (the null member of that set contributes nothing, since it has no
// fields to read through), its implicit flows pass straight to the
// destination, and whatever already flows along this field out of a
// just-visited copy of the same pointer is folded in too.
func (s State) transferIget(ins dex.Instruction, ctx *dataflow.Context, wide, object bool) State {
	out := s.clone()
	fr, ok := resolveFieldRef(ctx.Container, uint32(ins.C))
	if !ok {
		if wide {
			return out.setWide(dex.Reg(ins.A), NewFlows())
		}
		out.Regs[dex.Reg(ins.A)] = NewFlows()
		return out
	}
	class, _ := ctx.Repo.GetClassByName(fr.ClassName)
	field, fok := ctx.Repo.LookupInstanceField(fr.Name, fr.Type, class)

	null := out.Signature.Amg.AddVertex(NullVertex())
	ptrExplicit, ptrImplicit := out.get(dex.Reg(ins.B)).Split()
	ptrExplicit.Retain(func(f Flow) bool { return f.Vertex != null })

	dst := ptrImplicit.Clone()
	if fok {
		fuid := field.UID
		for _, p := range ptrExplicit.ToSlice() {
			ptrVertex, pvok := out.Signature.Amg.Vertex(p.Vertex)
			if !pvok {
				continue
			}
			fnode, ferr := ptrVertex.Field(fuid)
			if ferr != nil {
				continue
			}
			fnodeHash := out.Signature.Amg.AddVertex(fnode)
			out.Signature.Amg.AddEdge(p.Vertex, fnodeHash, Edge{Field: fuid, Type: Explicit})
			if object {
				out.Signature.Amg.AddEdge(p.Vertex, null, Edge{Field: fuid, Type: Explicit})
			}
			for _, succ := range out.Signature.Amg.Successors(p.Vertex) {
				if succ.HasField(fuid) {
					dst.Add(Flow{Vertex: succ.To, Type: succ.FlowTypeFor(fuid)})
				}
			}
		}
	}

	dst = dst.ApplyContext(out.Conditions)
	if wide {
		return out.setWide(dex.Reg(ins.A), dst)
	}
	out.Regs[dex.Reg(ins.A)] = dst
	return out
}

// transferIput handles the instance-field-write family: every explicit
// (non-null) flow reaching the pointer register gets one outgoing edge
// per value flowing into src (explicit), per value already flowing
// implicitly through the pointer, and per active implicit-context
// vertex -- a write is observable through every path that could have
// produced either the pointer or the written value.
func (s State) transferIput(ins dex.Instruction, ctx *dataflow.Context, wide bool) State {
	out := s.clone()
	fr, ok := resolveFieldRef(ctx.Container, uint32(ins.C))
	if !ok {
		return out
	}
	class, _ := ctx.Repo.GetClassByName(fr.ClassName)
	field, fok := ctx.Repo.LookupInstanceField(fr.Name, fr.Type, class)
	if !fok {
		return out
	}
	fuid := field.UID

	null := out.Signature.Amg.AddVertex(NullVertex())
	ptrExplicit, ptrImplicit := out.get(dex.Reg(ins.B)).Split()
	ptrExplicit.Retain(func(f Flow) bool { return f.Vertex != null })

	srcFlows := out.get(dex.Reg(ins.A))

	for _, p := range ptrExplicit.ToSlice() {
		ptrVertex, pvok := out.Signature.Amg.Vertex(p.Vertex)
		if !pvok {
			continue
		}
		fnode, ferr := ptrVertex.Field(fuid)
		if ferr != nil {
			continue
		}
		fnodeHash := out.Signature.Amg.AddVertex(fnode)
		out.Signature.Amg.AddEdge(p.Vertex, fnodeHash, Edge{Field: fuid, Type: Explicit})
		for _, srcf := range srcFlows.ToSlice() {
			out.Signature.Amg.AddEdge(p.Vertex, srcf.Vertex, Edge{Field: fuid, Type: srcf.Type})
		}
		for _, srcf := range ptrImplicit.ToSlice() {
			out.Signature.Amg.AddEdge(p.Vertex, srcf.Vertex, Edge{Field: fuid, Type: Implicit})
		}
		for h := range out.Conditions {
			out.Signature.Amg.AddEdge(p.Vertex, h, Edge{Field: fuid, Type: Implicit})
		}
	}
	return out
}

// transferSget is transferIget's static counterpart: the field is
// reached from a single per-class Static(class) vertex rather than
// whatever flows through a register, so there is no explicit/implicit
// split on the read side.
func (s State) transferSget(ins dex.Instruction, ctx *dataflow.Context, wide, object bool) State {
	out := s.clone()
	fr, ok := resolveFieldRef(ctx.Container, uint32(ins.B))
	if !ok {
		if wide {
			return out.setWide(dex.Reg(ins.A), NewFlows())
		}
		out.Regs[dex.Reg(ins.A)] = NewFlows()
		return out
	}
	class, cok := ctx.Repo.GetClassByName(fr.ClassName)
	field, fok := ctx.Repo.LookupStaticField(fr.Name, fr.Type, class)

	dst := NewFlows()
	if fok && cok {
		fuid := field.UID
		staticVertex := StaticVertex(class.UID)
		staticHash := out.Signature.Amg.AddVertex(staticVertex)
		fnode, ferr := staticVertex.Field(fuid)
		if ferr == nil {
			fnodeHash := out.Signature.Amg.AddVertex(fnode)
			out.Signature.Amg.AddEdge(staticHash, fnodeHash, Edge{Field: fuid, Type: Explicit})
			if object {
				null := out.Signature.Amg.AddVertex(NullVertex())
				out.Signature.Amg.AddEdge(staticHash, null, Edge{Field: fuid, Type: Explicit})
			}
			for _, succ := range out.Signature.Amg.Successors(staticHash) {
				if succ.HasField(fuid) {
					dst.Add(Flow{Vertex: succ.To, Type: succ.FlowTypeFor(fuid)})
				}
			}
		}
	}

	dst = dst.ApplyContext(out.Conditions)
	if wide {
		return out.setWide(dex.Reg(ins.A), dst)
	}
	out.Regs[dex.Reg(ins.A)] = dst
	return out
}

// transferSput is transferIput's static counterpart. Looked up as a
// static field (the original's Sput arm calls the instance lookup,
// which is a bug surfacing only when a class redeclares the same field
// name/type as both an instance and a static member).
func (s State) transferSput(ins dex.Instruction, ctx *dataflow.Context, wide bool) State {
	out := s.clone()
	fr, ok := resolveFieldRef(ctx.Container, uint32(ins.B))
	if !ok {
		return out
	}
	class, cok := ctx.Repo.GetClassByName(fr.ClassName)
	field, fok := ctx.Repo.LookupStaticField(fr.Name, fr.Type, class)
	if !fok || !cok {
		return out
	}
	fuid := field.UID

	staticVertex := StaticVertex(class.UID)
	staticHash := out.Signature.Amg.AddVertex(staticVertex)
	fnode, ferr := staticVertex.Field(fuid)
	if ferr != nil {
		return out
	}
	fnodeHash := out.Signature.Amg.AddVertex(fnode)
	out.Signature.Amg.AddEdge(staticHash, fnodeHash, Edge{Field: fuid, Type: Explicit})

	srcFlows := out.get(dex.Reg(ins.A))
	for _, srcf := range srcFlows.ToSlice() {
		out.Signature.Amg.AddEdge(staticHash, srcf.Vertex, Edge{Field: fuid, Type: srcf.Type})
	}
	for h := range out.Conditions {
		out.Signature.Amg.AddEdge(staticHash, h, Edge{Field: fuid, Type: Implicit})
	}
	return out
}

// transferInvokeVirtual handles invoke-virtual/interface (superCall
// false) and invoke-super (superCall true): the receiver's declared
// type(s), read from the type-analysis pass's entry state at this
// address, narrow LookupVirtualCall/LookupSuperCall's candidate set;
// every candidate with an already-settled signature is injected and its
// (context-applied) return flows joined into the result.
func (s State) transferInvokeVirtual(ins dex.Instruction, pc dex.Addr, ctx *dataflow.Context, superCall bool) State {
	out := s.clone()
	args := invokeArgRegs(ins)
	if len(args) == 0 {
		return out
	}
	d, ok := resolveMethodDescr(ctx.Container, uint32(ins.B))
	if !ok {
		return out
	}

	null := out.Signature.Amg.AddVertex(NullVertex())
	paramFlows := make([]Flows, 0, len(args))
	thisFlow := out.get(args[0]).Clone()
	thisFlow.Retain(func(f Flow) bool { return f.Vertex != null })
	paramFlows = append(paramFlows, thisFlow)

	pi, i := 0, 1
	for ; pi < len(d.ParamTypes) && i < len(args); pi++ {
		var f Flows
		if isWideDescriptor(d.ParamTypes[pi]) {
			f = out.get(args[i])
			i++
		} else {
			f = out.get(args[i])
		}
		i++
		f = f.Clone()
		f.Retain(func(fl Flow) bool { return fl.Vertex != null })
		paramFlows = append(paramFlows, f)
	}

	receivers := receiverClasses(ctx, pc, args[0])
	var callees []repo.MethodUid
	if superCall {
		callees = ctx.Repo.LookupSuperCall(d, receivers)
	} else {
		callees = ctx.Repo.LookupVirtualCall(d, receivers)
	}

	void := d.ReturnType == "" || d.ReturnType == "V"
	result := NewFlows()
	for _, uid := range callees {
		sig, ok := signatureOf(ctx, uid)
		if !ok {
			continue
		}
		inj, err := out.Signature.Inject(sig, paramFlows)
		if err != nil {
			continue
		}
		if !void {
			result = result.Join(inj.ReturnFlows.ApplyContext(out.Conditions))
		}
	}

	out.HasResult = !void
	out.LastResult = result
	return out
}

// transferInvokeDirect handles invoke-direct and invoke-static: the
// callee is resolved directly from the descriptor rather than through
// virtual dispatch, and a missing signature still produces an empty
// (rather than absent) non-void result -- the callee just hasn't been
// analysed yet this round.
func (s State) transferInvokeDirect(ins dex.Instruction, ctx *dataflow.Context) State {
	out := s.clone()
	args := invokeArgRegs(ins)
	d, ok := resolveMethodDescr(ctx.Container, uint32(ins.B))
	if !ok {
		return out
	}
	meth, ok := ctx.Repo.FindMethodByDescriptor(d)
	if !ok {
		return out
	}

	static := meth.IsStatic()
	null := out.Signature.Amg.AddVertex(NullVertex())
	paramFlows := make([]Flows, 0, len(args))
	i := 0
	if !static {
		f := out.get(args[0]).Clone()
		f.Retain(func(fl Flow) bool { return fl.Vertex != null })
		paramFlows = append(paramFlows, f)
		i = 1
	}
	for pi := 0; pi < len(d.ParamTypes) && i < len(args); pi++ {
		f := out.get(args[i]).Clone()
		f.Retain(func(fl Flow) bool { return fl.Vertex != null })
		paramFlows = append(paramFlows, f)
		i++
		if isWideDescriptor(d.ParamTypes[pi]) {
			i++
		}
	}

	void := d.ReturnType == "" || d.ReturnType == "V"
	sig, sigOk := signatureOf(ctx, meth.UID)
	if !sigOk {
		out.HasResult = !void
		out.LastResult = NewFlows()
		return out
	}
	inj, err := out.Signature.Inject(sig, paramFlows)
	if err != nil {
		out.HasResult = !void
		out.LastResult = NewFlows()
		return out
	}
	out.HasResult = !void
	if !void {
		out.LastResult = inj.ReturnFlows.ApplyContext(out.Conditions)
	}
	return out
}
