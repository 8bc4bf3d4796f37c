// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// EncodedField is one field entry in a class_data_item. FieldIdx is the
// absolute index into the field-ids table; the on-disk encoding stores
// the index as a delta from the previous entry in the same list, which
// decodeClassData resolves before returning.
type EncodedField struct {
	FieldIdx    uint32
	AccessFlags uint32
}

// EncodedMethod is one method entry in a class_data_item.
type EncodedMethod struct {
	MethodIdx   uint32
	AccessFlags uint32
	CodeOff     uint32 // 0 if abstract/native (no code_item)
}

// ClassData is the decoded body of one class_data_item: the class's
// static fields, instance fields, direct methods, and virtual methods,
// in the order the teacher's section-table pattern stores per-record
// collections (built once, indexed by the owning record afterward).
type ClassData struct {
	StaticFields   []EncodedField
	InstanceFields []EncodedField
	DirectMethods  []EncodedMethod
	VirtualMethods []EncodedMethod
}

func decodeClassData(b []byte, off int) (ClassData, int, error) {
	start := off
	staticCount, n, err := ReadULEB128(b, off)
	if err != nil {
		return ClassData{}, 0, err
	}
	off += n
	instanceCount, n, err := ReadULEB128(b, off)
	if err != nil {
		return ClassData{}, 0, err
	}
	off += n
	directCount, n, err := ReadULEB128(b, off)
	if err != nil {
		return ClassData{}, 0, err
	}
	off += n
	virtualCount, n, err := ReadULEB128(b, off)
	if err != nil {
		return ClassData{}, 0, err
	}
	off += n

	cd := ClassData{}
	cd.StaticFields, off, err = decodeEncodedFields(b, off, int(staticCount))
	if err != nil {
		return ClassData{}, 0, err
	}
	cd.InstanceFields, off, err = decodeEncodedFields(b, off, int(instanceCount))
	if err != nil {
		return ClassData{}, 0, err
	}
	cd.DirectMethods, off, err = decodeEncodedMethods(b, off, int(directCount))
	if err != nil {
		return ClassData{}, 0, err
	}
	cd.VirtualMethods, off, err = decodeEncodedMethods(b, off, int(virtualCount))
	if err != nil {
		return ClassData{}, 0, err
	}
	return cd, off - start, nil
}

func decodeEncodedFields(b []byte, off, count int) ([]EncodedField, int, error) {
	out := make([]EncodedField, count)
	var idx uint32
	for i := 0; i < count; i++ {
		delta, n, err := ReadULEB128(b, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		idx += delta
		flags, n, err := ReadULEB128(b, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		out[i] = EncodedField{FieldIdx: idx, AccessFlags: flags}
	}
	return out, off, nil
}

func decodeEncodedMethods(b []byte, off, count int) ([]EncodedMethod, int, error) {
	out := make([]EncodedMethod, count)
	var idx uint32
	for i := 0; i < count; i++ {
		delta, n, err := ReadULEB128(b, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		idx += delta
		flags, n, err := ReadULEB128(b, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		codeOff, n, err := ReadULEB128(b, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		out[i] = EncodedMethod{MethodIdx: idx, AccessFlags: flags, CodeOff: codeOff}
	}
	return out, off, nil
}
