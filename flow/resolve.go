// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flow

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/repo"
)

// fieldRef is a field reference resolved from a field-id table index,
// independent of any repository registration.
type fieldRef struct {
	ClassName string
	Name      string
	Type      string
}

func resolveFieldRef(c *dex.Container, idx uint32) (fieldRef, bool) {
	if int(idx) >= len(c.FieldIDs) {
		return fieldRef{}, false
	}
	fid := c.FieldIDs[idx]
	className, err := c.TypeName(uint32(fid.ClassIdx))
	if err != nil {
		return fieldRef{}, false
	}
	typ, err := c.TypeName(uint32(fid.TypeIdx))
	if err != nil {
		return fieldRef{}, false
	}
	name, err := c.String(fid.NameIdx)
	if err != nil {
		return fieldRef{}, false
	}
	return fieldRef{ClassName: className, Name: name, Type: typ}, true
}

func resolveMethodDescr(c *dex.Container, idx uint32) (repo.MethodDescr, bool) {
	if int(idx) >= len(c.MethodIDs) {
		return repo.MethodDescr{}, false
	}
	mid := c.MethodIDs[idx]
	className, err := c.TypeName(uint32(mid.ClassIdx))
	if err != nil {
		return repo.MethodDescr{}, false
	}
	name, err := c.String(mid.NameIdx)
	if err != nil {
		return repo.MethodDescr{}, false
	}
	params, ret, ok := resolveProto(c, uint32(mid.ProtoIdx))
	if !ok {
		return repo.MethodDescr{}, false
	}
	return repo.MethodDescr{ClassName: className, Name: name, ParamTypes: params, ReturnType: ret}, true
}

func resolveProto(c *dex.Container, protoIdx uint32) (params []string, ret string, ok bool) {
	if int(protoIdx) >= len(c.ProtoIDs) {
		return nil, "", false
	}
	proto := c.ProtoIDs[protoIdx]
	ret, err := c.TypeName(proto.ReturnTypeIdx)
	if err != nil {
		return nil, "", false
	}
	if proto.ParametersOff == 0 {
		return nil, ret, true
	}
	tl, ok := c.TypeList(proto.ParametersOff)
	if !ok {
		return nil, "", false
	}
	params = make([]string, 0, len(tl.Types))
	for _, tidx := range tl.Types {
		name, err := c.TypeName(uint32(tidx))
		if err != nil {
			return nil, "", false
		}
		params = append(params, name)
	}
	return params, ret, true
}

// isWideDescriptor reports whether a type descriptor occupies two
// consecutive register slots.
func isWideDescriptor(desc string) bool {
	return desc == "J" || desc == "D"
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
