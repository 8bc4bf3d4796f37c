// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// SectionTag identifies one of the container's section kinds, as listed
// in the map list.
type SectionTag uint16

// Section type tags.
const (
	TagHeader              SectionTag = 0x0000
	TagStringID            SectionTag = 0x0001
	TagTypeID              SectionTag = 0x0002
	TagProtoID             SectionTag = 0x0003
	TagFieldID             SectionTag = 0x0004
	TagMethodID            SectionTag = 0x0005
	TagClassDef            SectionTag = 0x0006
	TagCallSiteID          SectionTag = 0x0007
	TagMethodHandle        SectionTag = 0x0008
	TagMapList             SectionTag = 0x1000
	TagTypeList            SectionTag = 0x1001
	TagAnnotationSetRefList SectionTag = 0x1002
	TagAnnotationSetItem   SectionTag = 0x1003
	TagClassData           SectionTag = 0x2000
	TagCodeItem            SectionTag = 0x2001
	TagStringData          SectionTag = 0x2002
	TagDebugInfo           SectionTag = 0x2003
	TagAnnotationItem      SectionTag = 0x2004
	TagEncodedArray        SectionTag = 0x2005
	TagAnnotationsDirectory SectionTag = 0x2006
)

// MapItem is one entry of the map list: a section tag, element count,
// and byte offset into the container.
type MapItem struct {
	Tag    SectionTag
	Size   uint32
	Offset uint32
}

// StringIDItem indexes one string_data_item by its byte offset.
type StringIDItem struct {
	DataOff uint32
}

// TypeIDItem names a type by its descriptor string.
type TypeIDItem struct {
	DescriptorIdx uint32
}

// ProtoIDItem is a method prototype: shorty form, return type, and a
// reference to an offset-keyed TypeList of parameter types.
type ProtoIDItem struct {
	ShortyIdx    uint32
	ReturnTypeIdx uint32
	ParametersOff uint32
}

// FieldIDItem names a field by its defining class, type, and name.
type FieldIDItem struct {
	ClassIdx uint16
	TypeIdx  uint16
	NameIdx  uint32
}

// MethodIDItem names a method by its defining class, prototype, and name.
type MethodIDItem struct {
	ClassIdx uint16
	ProtoIdx uint16
	NameIdx  uint32
}

// ClassDefItem is one class definition.
type ClassDefItem struct {
	ClassIdx        uint32
	AccessFlags     uint32
	SuperclassIdx   uint32 // NoIndex if none
	InterfacesOff   uint32
	SourceFileIdx   uint32 // NoIndex if none
	AnnotationsOff  uint32
	ClassDataOff    uint32
	StaticValuesOff uint32
}

// TypeList is an offset-keyed list of type indices, used for interfaces
// and method parameter lists.
type TypeList struct {
	Types []uint16
}

// Access flag bits shared by classes, fields, and methods.
const (
	AccPublic       uint32 = 0x1
	AccPrivate      uint32 = 0x2
	AccProtected    uint32 = 0x4
	AccStatic       uint32 = 0x8
	AccFinal        uint32 = 0x10
	AccSynchronized uint32 = 0x20
	AccVolatile     uint32 = 0x40
	AccBridge       uint32 = 0x40
	AccTransient    uint32 = 0x80
	AccVarargs      uint32 = 0x80
	AccNative       uint32 = 0x100
	AccInterface    uint32 = 0x200
	AccAbstract     uint32 = 0x400
	AccStrict       uint32 = 0x800
	AccSynthetic    uint32 = 0x1000
	AccAnnotation   uint32 = 0x2000
	AccEnum         uint32 = 0x4000
	AccConstructor  uint32 = 0x10000
)
