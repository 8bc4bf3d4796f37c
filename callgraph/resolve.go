// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package callgraph

import (
	"github.com/saferwall/dex"
	"github.com/saferwall/dex/repo"
)

// fieldRef is a field reference resolved from a field-id table index,
// independent of any repository registration. Mirrors typecheck's
// private helper of the same shape; duplicated rather than exported
// across packages since each package resolves against its own
// dataflow.Context-free inputs.
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

// classRefTypeIdx extracts the type-table index a class-referencing
// instruction embeds. Fmt22c forms (instance-of, new-array) carry it in
// C; every other class-ref format (const-class, check-cast, new-
// instance, filled-new-array[/range]) carries it in B.
func classRefTypeIdx(ins dex.Instruction) uint32 {
	if ins.Fmt == dex.Fmt22c {
		return uint32(ins.C)
	}
	return uint32(ins.B)
}

// fieldRefIdx extracts the field-table index a field-accessor
// instruction embeds: C for the Fmt22c instance accessors, B for the
// Fmt21c static accessors.
func fieldRefIdx(ins dex.Instruction) uint32 {
	if ins.Fmt == dex.Fmt22c {
		return uint32(ins.C)
	}
	return uint32(ins.B)
}

// classResolved reports whether name names a class the repository knows
// with an actual body, as opposed to a placeholder created only because
// some descriptor referenced it.
func classResolved(r *repo.Repository, name string) (*repo.Class, bool) {
	c, ok := r.GetClassByName(name)
	if !ok || c.Undefined {
		return nil, false
	}
	return c, true
}

// isSystemMethod reports whether d resolves directly (no inheritance
// walk) to a method defined on a class the repository marked as system.
func isSystemMethod(r *repo.Repository, d repo.MethodDescr) bool {
	class, ok := classResolved(r, d.ClassName)
	if !ok || !class.System {
		return false
	}
	_, found := r.FindMethodByDescriptor(d)
	return found
}
