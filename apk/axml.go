// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apk

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Binary XML chunk type tags, named the same way the container codec
// names its own section type tags.
const (
	chunkStringPool     = 0x0001
	chunkXML            = 0x0003
	chunkXMLStartNS     = 0x0100
	chunkXMLEndNS       = 0x0101
	chunkXMLStartElem   = 0x0102
	chunkXMLEndElem     = 0x0103
	chunkXMLCData       = 0x0104
	chunkXMLResourceMap = 0x0180
)

const stringPoolUTF8Flag = 1 << 8

// axmlAttr is one decoded element attribute.
type axmlAttr struct {
	Name     string
	RawValue string
	DataType uint8
	Data     int32
}

// axmlElement is one decoded <tag attr="val" ...> start element, plus
// its direct attributes; nesting is reconstructed by the caller via a
// stack since the chunk stream is flat.
type axmlElement struct {
	Name  string
	Attrs []axmlAttr
}

// axmlDoc is the flattened result of walking a binary XML document: one
// entry per start element, in document order, each carrying a reference
// to its parent's index (-1 for the root), so callers can reconstruct
// the tree without re-parsing.
type axmlDoc struct {
	Elements []axmlElement
	Parent   []int
}

// parseAXML decodes an Android binary XML document (the manifest and
// every binary resource-driven layout share this same container). It
// reads only what the manifest accessors need: the string pool and the
// element/attribute stream; styles, namespaces, and CDATA text are
// skipped since no manifest attribute of interest uses them.
func parseAXML(b []byte) (*axmlDoc, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("apk: axml too short")
	}
	typ := binary.LittleEndian.Uint16(b[0:2])
	if typ != chunkXML {
		return nil, fmt.Errorf("apk: not an XML chunk (type=%#x)", typ)
	}

	var pool []string
	doc := &axmlDoc{}
	var stack []int

	off := int(binary.LittleEndian.Uint16(b[2:4])) // headerSize
	for off+8 <= len(b) {
		chunkTyp := binary.LittleEndian.Uint16(b[off:])
		hdrSize := int(binary.LittleEndian.Uint16(b[off+2:]))
		size := int(binary.LittleEndian.Uint32(b[off+4:]))
		if size < hdrSize || off+size > len(b) {
			return nil, fmt.Errorf("apk: axml chunk overruns buffer at offset %d", off)
		}
		chunk := b[off : off+size]

		switch chunkTyp {
		case chunkStringPool:
			var err error
			pool, err = parseStringPool(chunk)
			if err != nil {
				return nil, err
			}
		case chunkXMLStartElem:
			el, err := parseStartElement(chunk, hdrSize, pool)
			if err != nil {
				return nil, err
			}
			parent := -1
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			doc.Elements = append(doc.Elements, el)
			doc.Parent = append(doc.Parent, parent)
			stack = append(stack, len(doc.Elements)-1)
		case chunkXMLEndElem:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case chunkXMLStartNS, chunkXMLEndNS, chunkXMLCData, chunkXMLResourceMap:
			// not needed for attribute resolution.
		}

		off += size
	}

	return doc, nil
}

// parseStringPool decodes the ResStringPool chunk: a table of u32
// offsets into a packed string-data blob, either UTF-8 or UTF-16
// encoded depending on a header flag.
func parseStringPool(b []byte) ([]string, error) {
	if len(b) < 28 {
		return nil, fmt.Errorf("apk: string pool chunk too short")
	}
	hdrSize := int(binary.LittleEndian.Uint16(b[2:4]))
	stringCount := int(binary.LittleEndian.Uint32(b[8:12]))
	flags := binary.LittleEndian.Uint32(b[16:20])
	stringsStart := int(binary.LittleEndian.Uint32(b[20:24]))
	utf8 := flags&stringPoolUTF8Flag != 0

	offsets := make([]int, stringCount)
	for i := 0; i < stringCount; i++ {
		pos := hdrSize + i*4
		if pos+4 > len(b) {
			return nil, fmt.Errorf("apk: string pool offset table overruns chunk")
		}
		offsets[i] = int(binary.LittleEndian.Uint32(b[pos:]))
	}

	out := make([]string, stringCount)
	for i, rel := range offsets {
		pos := stringsStart + rel
		if pos >= len(b) {
			continue
		}
		var s string
		var err error
		if utf8 {
			s, err = decodeUTF8Entry(b[pos:])
		} else {
			s, err = decodeUTF16Entry(b[pos:])
		}
		if err != nil {
			continue
		}
		out[i] = s
	}
	return out, nil
}

// decodeUTF16Entry reads a length-prefixed UTF-16LE string: one or two
// u16 length units (the high bit of the first signals a 2-unit length
// for strings over 0x7FFF units), then that many code units.
func decodeUTF16Entry(b []byte) (string, error) {
	n, consumed, err := readLen16(b)
	if err != nil {
		return "", err
	}
	start := consumed
	end := start + n*2
	if end > len(b) {
		return "", fmt.Errorf("apk: utf16 string overruns pool")
	}
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = binary.LittleEndian.Uint16(b[start+i*2:])
	}
	return string(utf16.Decode(units)), nil
}

func readLen16(b []byte) (n, consumed int, err error) {
	if len(b) < 2 {
		return 0, 0, fmt.Errorf("apk: truncated utf16 length")
	}
	first := binary.LittleEndian.Uint16(b)
	if first&0x8000 == 0 {
		return int(first), 2, nil
	}
	if len(b) < 4 {
		return 0, 0, fmt.Errorf("apk: truncated utf16 extended length")
	}
	second := binary.LittleEndian.Uint16(b[2:])
	return int(first&0x7fff)<<16 | int(second), 4, nil
}

// decodeUTF8Entry reads a UTF-8 pool entry: a UTF-16 char-count prefix
// (unused here, present for the width callers that need sizing), a
// UTF-8 byte-length prefix, then that many bytes.
func decodeUTF8Entry(b []byte) (string, error) {
	_, consumed, err := readLen8(b)
	if err != nil {
		return "", err
	}
	n, consumed2, err := readLen8(b[consumed:])
	if err != nil {
		return "", err
	}
	start := consumed + consumed2
	end := start + n
	if end > len(b) {
		return "", fmt.Errorf("apk: utf8 string overruns pool")
	}
	return string(b[start:end]), nil
}

func readLen8(b []byte) (n, consumed int, err error) {
	if len(b) < 1 {
		return 0, 0, fmt.Errorf("apk: truncated utf8 length")
	}
	first := b[0]
	if first&0x80 == 0 {
		return int(first), 1, nil
	}
	if len(b) < 2 {
		return 0, 0, fmt.Errorf("apk: truncated utf8 extended length")
	}
	return int(first&0x7f)<<8 | int(b[1]), 2, nil
}

// parseStartElement decodes a RES_XML_START_ELEMENT_TYPE chunk body
// into a resolved element name plus its attribute list.
func parseStartElement(b []byte, hdrSize int, pool []string) (axmlElement, error) {
	body := b[hdrSize:]
	if len(body) < 20 {
		return axmlElement{}, fmt.Errorf("apk: start-element chunk too short")
	}

	nameIdx := int32(binary.LittleEndian.Uint32(body[4:8]))
	attrStart := int(binary.LittleEndian.Uint16(body[8:10]))
	attrSize := int(binary.LittleEndian.Uint16(body[10:12]))
	attrCount := int(binary.LittleEndian.Uint16(body[12:14]))

	el := axmlElement{Name: poolString(pool, nameIdx)}

	for i := 0; i < attrCount; i++ {
		pos := attrStart + i*attrSize
		if pos+20 > len(body) {
			break
		}
		attrNameIdx := int32(binary.LittleEndian.Uint32(body[pos+4 : pos+8]))
		rawValIdx := int32(binary.LittleEndian.Uint32(body[pos+8 : pos+12]))
		dataType := body[pos+15]
		data := int32(binary.LittleEndian.Uint32(body[pos+16 : pos+20]))

		el.Attrs = append(el.Attrs, axmlAttr{
			Name:     poolString(pool, attrNameIdx),
			RawValue: poolString(pool, rawValIdx),
			DataType: dataType,
			Data:     data,
		})
	}

	return el, nil
}

func poolString(pool []string, idx int32) string {
	if idx < 0 || int(idx) >= len(pool) {
		return ""
	}
	return pool[idx]
}
