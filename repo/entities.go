// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package repo

import "github.com/saferwall/dex"

// MethodDescr identifies a method independent of any single container:
// the fully-qualified defining-class name, the method name, its
// parameter type list, and its return type.
type MethodDescr struct {
	ClassName  string
	Name       string
	ParamTypes []string
	ReturnType string
}

// Class is identified by a fully-qualified, slash-separated name. It
// carries a back-reference to the container that defined it (nil for a
// placeholder created only because some descriptor referenced it), and a
// System flag distinguishing platform/library classes from application
// classes.
type Class struct {
	UID       ClassUid
	Name      string
	Container *dex.Container
	System    bool
	Undefined bool

	SuperclassName string
	InterfaceNames []string

	Fields  []FieldUid
	Methods []MethodUid
}

// Method is owned by a class.
type Method struct {
	UID     MethodUid
	Class   ClassUid
	Descr   MethodDescr
	Access  uint32
	CodeOff uint32 // 0 if abstract/native
	Dex     *dex.Container
}

// IsStatic reports whether the method's access flags mark it static.
func (m Method) IsStatic() bool { return m.Access&dex.AccStatic != 0 }

// IsConstructor reports whether the method is an instance or static
// initializer.
func (m Method) IsConstructor() bool { return m.Access&dex.AccConstructor != 0 }

// Field is owned by a class, identified by (class, name, type).
type Field struct {
	UID    FieldUid
	Class  ClassUid
	Name   string
	Type   string
	Access uint32
}

// IsStatic reports whether the field's access flags mark it static.
func (f Field) IsStatic() bool { return f.Access&dex.AccStatic != 0 }
