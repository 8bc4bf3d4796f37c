// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"crypto/sha1"
	"fmt"
)

// Container is one parsed bytecode file: its header, the six indexed
// sections (dense, fixed-stride, referenced by integer index), and the
// offset-keyed sections (variable-stride, referenced by byte offset).
type Container struct {
	Header Header
	Name   string // caller-supplied label, e.g. "classes.dex"

	StringIDs []StringIDItem
	TypeIDs   []TypeIDItem
	ProtoIDs  []ProtoIDItem
	FieldIDs  []FieldIDItem
	MethodIDs []MethodIDItem
	ClassDefs []ClassDefItem

	stringData map[uint32]StringData
	typeLists  map[uint32]TypeList
	classData  map[uint32]ClassData
	codeItems  map[uint32]*CodeItem

	Anomalies []string

	raw []byte // retained for preserve-layout serialization
}

// Parse decodes a complete container from bytes.
func Parse(b []byte, name string) (*Container, error) {
	h, anomalies, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	c := &Container{
		Header:     h,
		Name:       name,
		Anomalies:  anomalies,
		stringData: map[uint32]StringData{},
		typeLists:  map[uint32]TypeList{},
		classData:  map[uint32]ClassData{},
		codeItems:  map[uint32]*CodeItem{},
		raw:        b,
	}

	mapItems, err := parseMapList(b, h)
	if err != nil {
		return nil, err
	}
	seen := map[SectionTag]bool{}
	for _, m := range mapItems {
		if seen[m.Tag] {
			return nil, ErrDuplicateSection
		}
		seen[m.Tag] = true
	}

	if err := c.parseIndexedSections(b, h); err != nil {
		return nil, err
	}

	for _, m := range mapItems {
		switch m.Tag {
		case TagHeader, TagStringID, TagTypeID, TagProtoID, TagFieldID, TagMethodID, TagClassDef, TagMapList:
			continue // already handled or self-describing
		case TagTypeList:
			if err := c.parseTypeLists(b, h, m); err != nil {
				return nil, err
			}
		case TagClassData:
			if err := c.parseClassDataSection(b, h, m); err != nil {
				return nil, err
			}
		case TagCodeItem:
			if err := c.parseCodeItemsSection(b, h, m); err != nil {
				return nil, err
			}
		case TagStringData:
			if err := c.parseStringDataSection(b, h, m); err != nil {
				return nil, err
			}
		case TagAnnotationSetRefList, TagAnnotationSetItem, TagDebugInfo,
			TagAnnotationItem, TagEncodedArray, TagAnnotationsDirectory,
			TagCallSiteID, TagMethodHandle:
			// Recorded in the map but not further decoded: a
			// disassembler or typechecker never needs annotation
			// bodies, and debug info is consumed only by a source-line
			// mapper this toolkit does not implement.
		default:
			return nil, fmt.Errorf("%w: %#x", ErrUnknownSectionType, m.Tag)
		}
	}

	if got := c.Checksum(); got != c.Header.Checksum {
		c.Anomalies = append(c.Anomalies, fmt.Sprintf(
			"checksum mismatch: header declares %#x, recomputed %#x", c.Header.Checksum, got))
	}
	if got := c.contentSignature(); got != c.Header.Signature {
		c.Anomalies = append(c.Anomalies, "content signature mismatch: recomputed SHA-1 differs from header")
	}

	return c, nil
}

// NewContainerForTest builds a Container directly from its decoded
// indexed tables, bypassing Parse's binary decode path, for tests that
// need string/type/proto/field/method/class lookups and a handful of
// type lists, class data, or code items without authoring a full binary
// image. strs becomes the string table in order; typeDescs names, per
// type index, one of the strings in strs as that type's descriptor.
func NewContainerForTest(name string, strs []string, typeDescs []string,
	protos []ProtoIDItem, fields []FieldIDItem, methods []MethodIDItem, classDefs []ClassDefItem,
	typeLists map[uint32]TypeList, classData map[uint32]ClassData, codeItems map[uint32]*CodeItem) *Container {
	c := &Container{
		Name:       name,
		ProtoIDs:   protos,
		FieldIDs:   fields,
		MethodIDs:  methods,
		ClassDefs:  classDefs,
		stringData: map[uint32]StringData{},
		typeLists:  map[uint32]TypeList{},
		classData:  map[uint32]ClassData{},
		codeItems:  map[uint32]*CodeItem{},
	}
	stringIdx := make(map[string]uint32, len(strs))
	for i, s := range strs {
		off := uint32(i)
		c.StringIDs = append(c.StringIDs, StringIDItem{DataOff: off})
		c.stringData[off] = StringData{Value: s, UTF16Size: uint32(len([]rune(s)))}
		stringIdx[s] = off
	}
	for _, td := range typeDescs {
		off, ok := stringIdx[td]
		if !ok {
			panic(fmt.Sprintf("dex: NewContainerForTest: type descriptor %q not present in strs", td))
		}
		c.TypeIDs = append(c.TypeIDs, TypeIDItem{DescriptorIdx: off})
	}
	for off, tl := range typeLists {
		c.typeLists[off] = tl
	}
	for off, cd := range classData {
		c.classData[off] = cd
	}
	for off, ci := range codeItems {
		c.codeItems[off] = ci
	}
	return c
}

func (c *Container) parseIndexedSections(b []byte, h Header) error {
	off := int(h.StringIDsOff)
	for i := uint32(0); i < h.StringIDsSize; i++ {
		if off+4 > len(b) {
			return ErrTooSmall
		}
		c.StringIDs = append(c.StringIDs, StringIDItem{DataOff: h.Endian.Uint32(b[off:])})
		off += 4
	}
	off = int(h.TypeIDsOff)
	for i := uint32(0); i < h.TypeIDsSize; i++ {
		if off+4 > len(b) {
			return ErrTooSmall
		}
		c.TypeIDs = append(c.TypeIDs, TypeIDItem{DescriptorIdx: h.Endian.Uint32(b[off:])})
		off += 4
	}
	off = int(h.ProtoIDsOff)
	for i := uint32(0); i < h.ProtoIDsSize; i++ {
		if off+12 > len(b) {
			return ErrTooSmall
		}
		c.ProtoIDs = append(c.ProtoIDs, ProtoIDItem{
			ShortyIdx:     h.Endian.Uint32(b[off:]),
			ReturnTypeIdx: h.Endian.Uint32(b[off+4:]),
			ParametersOff: h.Endian.Uint32(b[off+8:]),
		})
		off += 12
	}
	off = int(h.FieldIDsOff)
	for i := uint32(0); i < h.FieldIDsSize; i++ {
		if off+8 > len(b) {
			return ErrTooSmall
		}
		c.FieldIDs = append(c.FieldIDs, FieldIDItem{
			ClassIdx: h.Endian.Uint16(b[off:]),
			TypeIdx:  h.Endian.Uint16(b[off+2:]),
			NameIdx:  h.Endian.Uint32(b[off+4:]),
		})
		off += 8
	}
	off = int(h.MethodIDsOff)
	for i := uint32(0); i < h.MethodIDsSize; i++ {
		if off+8 > len(b) {
			return ErrTooSmall
		}
		c.MethodIDs = append(c.MethodIDs, MethodIDItem{
			ClassIdx: h.Endian.Uint16(b[off:]),
			ProtoIdx: h.Endian.Uint16(b[off+2:]),
			NameIdx:  h.Endian.Uint32(b[off+4:]),
		})
		off += 8
	}
	off = int(h.ClassDefsOff)
	for i := uint32(0); i < h.ClassDefsSize; i++ {
		if off+32 > len(b) {
			return ErrTooSmall
		}
		c.ClassDefs = append(c.ClassDefs, ClassDefItem{
			ClassIdx:        h.Endian.Uint32(b[off:]),
			AccessFlags:     h.Endian.Uint32(b[off+4:]),
			SuperclassIdx:   h.Endian.Uint32(b[off+8:]),
			InterfacesOff:   h.Endian.Uint32(b[off+12:]),
			SourceFileIdx:   h.Endian.Uint32(b[off+16:]),
			AnnotationsOff:  h.Endian.Uint32(b[off+20:]),
			ClassDataOff:    h.Endian.Uint32(b[off+24:]),
			StaticValuesOff: h.Endian.Uint32(b[off+28:]),
		})
		off += 32
	}
	return nil
}

func parseMapList(b []byte, h Header) ([]MapItem, error) {
	off := int(h.MapOff)
	if off+4 > len(b) {
		return nil, ErrTooSmall
	}
	size := h.Endian.Uint32(b[off:])
	off += 4
	items := make([]MapItem, size)
	for i := range items {
		if off+12 > len(b) {
			return nil, ErrTooSmall
		}
		items[i] = MapItem{
			Tag:    SectionTag(h.Endian.Uint16(b[off:])),
			Size:   h.Endian.Uint32(b[off+4:]),
			Offset: h.Endian.Uint32(b[off+8:]),
		}
		off += 12
	}
	return items, nil
}

func (c *Container) parseTypeLists(b []byte, h Header, m MapItem) error {
	// A TypeList map entry names only the *first* list's offset; lists
	// referenced elsewhere (ProtoID.ParametersOff, ClassDef.InterfacesOff)
	// are decoded lazily on demand and cached, since their count is
	// determined by walking from each individual offset.
	return c.ensureTypeList(b, h, m.Offset)
}

func (c *Container) ensureTypeList(b []byte, h Header, off uint32) error {
	if off == 0 {
		return nil
	}
	if _, ok := c.typeLists[off]; ok {
		return nil
	}
	if off%4 != 0 {
		return ErrMisaligned
	}
	o := int(off)
	if o+4 > len(b) {
		return ErrTooSmall
	}
	size := h.Endian.Uint32(b[o:])
	o += 4
	tl := TypeList{Types: make([]uint16, size)}
	for i := range tl.Types {
		if o+2 > len(b) {
			return ErrTooSmall
		}
		tl.Types[i] = h.Endian.Uint16(b[o:])
		o += 2
	}
	c.typeLists[off] = tl
	return nil
}

// TypeList returns the decoded type list at the given offset, resolving
// and caching it on first access.
func (c *Container) TypeList(off uint32) (TypeList, bool) {
	if off == 0 {
		return TypeList{}, false
	}
	if tl, ok := c.typeLists[off]; ok {
		return tl, true
	}
	if err := c.ensureTypeList(c.raw, c.Header, off); err != nil {
		return TypeList{}, false
	}
	tl, ok := c.typeLists[off]
	return tl, ok
}

func (c *Container) parseClassDataSection(b []byte, h Header, m MapItem) error {
	for _, cd := range c.ClassDefs {
		if cd.ClassDataOff == 0 {
			continue
		}
		if _, ok := c.classData[cd.ClassDataOff]; ok {
			continue
		}
		data, _, err := decodeClassData(b, int(cd.ClassDataOff))
		if err != nil {
			return err
		}
		c.classData[cd.ClassDataOff] = data
	}
	return nil
}

func (c *Container) parseCodeItemsSection(b []byte, h Header, m MapItem) error {
	for _, cd := range c.ClassDefs {
		data, ok := c.classData[cd.ClassDataOff]
		if !ok {
			continue
		}
		for _, meth := range append(append([]EncodedMethod{}, data.DirectMethods...), data.VirtualMethods...) {
			if meth.CodeOff == 0 {
				continue
			}
			if _, ok := c.codeItems[meth.CodeOff]; ok {
				continue
			}
			if meth.CodeOff%4 != 0 {
				return ErrMisaligned
			}
			item, _, err := decodeCodeItem(b, int(meth.CodeOff))
			if err != nil {
				return err
			}
			c.codeItems[meth.CodeOff] = item
		}
	}
	return nil
}

func (c *Container) parseStringDataSection(b []byte, h Header, m MapItem) error {
	for _, sid := range c.StringIDs {
		if _, ok := c.stringData[sid.DataOff]; ok {
			continue
		}
		off := int(sid.DataOff)
		declared, n, err := ReadULEB128(b, off)
		if err != nil {
			return err
		}
		off += n
		sd, _, err := decodeMUTF8(b, off)
		if err != nil {
			return err
		}
		if sd.UTF16Size != declared {
			c.Anomalies = append(c.Anomalies, fmt.Sprintf(
				"string at offset %#x: declared utf16_size %d, decoded %d", sid.DataOff, declared, sd.UTF16Size))
		}
		if sd.Lossy {
			c.Anomalies = append(c.Anomalies, fmt.Sprintf(
				"string at offset %#x: unpaired surrogate repaired lossily", sid.DataOff))
		}
		c.stringData[sid.DataOff] = sd
	}
	return nil
}

// String resolves a dense string-table index to its decoded value.
func (c *Container) String(idx uint32) (string, error) {
	if int(idx) >= len(c.StringIDs) {
		return "", ErrDanglingStringIndex
	}
	sd, ok := c.stringData[c.StringIDs[idx].DataOff]
	if !ok {
		return "", ErrDanglingOffset
	}
	return sd.Value, nil
}

// TypeName resolves a dense type-table index to its descriptor string.
func (c *Container) TypeName(idx uint32) (string, error) {
	if int(idx) >= len(c.TypeIDs) {
		return "", ErrDanglingTypeIndex
	}
	return c.String(c.TypeIDs[idx].DescriptorIdx)
}

// CodeItemAt returns the decoded code item at the given byte offset.
func (c *Container) CodeItemAt(off uint32) (*CodeItem, bool) {
	ci, ok := c.codeItems[off]
	return ci, ok
}

// ClassDataAt returns the decoded class data at the given byte offset.
func (c *Container) ClassDataAt(off uint32) (ClassData, bool) {
	cd, ok := c.classData[off]
	return cd, ok
}

// Checksum recomputes the Adler-32-style checksum over everything after
// the checksum field, for comparison against Header.Checksum.
func (c *Container) Checksum() uint32 {
	return adler32(c.raw[12:])
}

func adler32(b []byte) uint32 {
	const mod = 65521
	var a, s uint32 = 1, 0
	for _, v := range b {
		a = (a + uint32(v)) % mod
		s = (s + a) % mod
	}
	return s<<16 | a
}

// contentSignature recomputes the SHA-1 hash over everything after the
// signature field, for comparison against Header.Signature.
func (c *Container) contentSignature() [20]byte {
	return sha1.Sum(c.raw[32:])
}
