// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import "encoding/binary"

// HeaderSize is the fixed size, in bytes, of a container header.
const HeaderSize = 112

// Magic bytes that open every header: "dex\n" followed by a three-digit
// ASCII version and a trailing NUL.
var magic = [4]byte{'d', 'e', 'x', '\n'}

// Endian tags, read as a little-endian uint32 regardless of the
// container's actual byte order so that a big-endian container can be
// detected from a little-endian read of its own tag.
const (
	endianConstantLE uint32 = 0x12345678
	endianConstantBE uint32 = 0x78563412
)

// Header is the 112-byte container header: magic, version, checksum,
// content signature, file size, endianness, and per-section
// (size, offset) pairs for the six indexed sections plus the map list.
type Header struct {
	Version        [3]byte
	Checksum       uint32
	Signature      [20]byte
	FileSize       uint32
	HeaderSize     uint32
	Endian         binary.ByteOrder
	LinkSize       uint32
	LinkOff        uint32
	MapOff         uint32
	StringIDsSize  uint32
	StringIDsOff   uint32
	TypeIDsSize    uint32
	TypeIDsOff     uint32
	ProtoIDsSize   uint32
	ProtoIDsOff    uint32
	FieldIDsSize   uint32
	FieldIDsOff    uint32
	MethodIDsSize  uint32
	MethodIDsOff   uint32
	ClassDefsSize  uint32
	ClassDefsOff   uint32
	DataSize       uint32
	DataOff        uint32
}

// parseHeader decodes and validates the fixed header at the start of b.
// It does not check the checksum or content signature; Parse compares
// both afterwards and reports a mismatch as an anomaly, not a fatal
// error: a corrupt signature shouldn't stop analysis of an otherwise
// well-formed container.
func parseHeader(b []byte) (Header, []string, error) {
	var anomalies []string
	if len(b) < HeaderSize {
		return Header{}, nil, ErrTooSmall
	}
	if b[0] != magic[0] || b[1] != magic[1] || b[2] != magic[2] || b[3] != magic[3] {
		return Header{}, nil, ErrBadMagic
	}
	for _, d := range b[4:7] {
		if d < '0' || d > '9' {
			return Header{}, nil, ErrBadVersion
		}
	}
	if b[7] != 0x00 {
		return Header{}, nil, ErrBadVersion
	}

	tag := binary.LittleEndian.Uint32(b[40:44])
	var endian binary.ByteOrder
	switch tag {
	case endianConstantLE:
		endian = binary.LittleEndian
	case endianConstantBE:
		endian = binary.BigEndian
	default:
		return Header{}, nil, ErrBadEndianTag
	}

	h := Header{Endian: endian}
	copy(h.Version[:], b[4:7])
	h.Checksum = endian.Uint32(b[8:12])
	copy(h.Signature[:], b[12:32])
	h.FileSize = endian.Uint32(b[32:36])
	h.HeaderSize = endian.Uint32(b[36:40])
	h.LinkSize = endian.Uint32(b[44:48])
	h.LinkOff = endian.Uint32(b[48:52])
	h.MapOff = endian.Uint32(b[52:56])
	h.StringIDsSize = endian.Uint32(b[56:60])
	h.StringIDsOff = endian.Uint32(b[60:64])
	h.TypeIDsSize = endian.Uint32(b[64:68])
	h.TypeIDsOff = endian.Uint32(b[68:72])
	h.ProtoIDsSize = endian.Uint32(b[72:76])
	h.ProtoIDsOff = endian.Uint32(b[76:80])
	h.FieldIDsSize = endian.Uint32(b[80:84])
	h.FieldIDsOff = endian.Uint32(b[84:88])
	h.MethodIDsSize = endian.Uint32(b[88:92])
	h.MethodIDsOff = endian.Uint32(b[92:96])
	h.ClassDefsSize = endian.Uint32(b[96:100])
	h.ClassDefsOff = endian.Uint32(b[100:104])
	h.DataSize = endian.Uint32(b[104:108])
	h.DataOff = endian.Uint32(b[108:112])

	if h.HeaderSize != HeaderSize {
		anomalies = append(anomalies, "header_size field differs from the standard 112 bytes")
	}
	if int(h.FileSize) != len(b) {
		anomalies = append(anomalies, "declared file_size differs from the buffer length")
	}
	return h, anomalies, nil
}

func writeHeader(h Header, body []byte) []byte {
	out := make([]byte, HeaderSize)
	copy(out[0:4], magic[:])
	copy(out[4:7], h.Version[:])
	out[7] = 0x00
	h.Endian.PutUint32(out[8:12], h.Checksum)
	copy(out[12:32], h.Signature[:])
	h.Endian.PutUint32(out[32:36], h.FileSize)
	h.Endian.PutUint32(out[36:40], h.HeaderSize)
	if h.Endian == binary.LittleEndian {
		binary.LittleEndian.PutUint32(out[40:44], endianConstantLE)
	} else {
		binary.LittleEndian.PutUint32(out[40:44], endianConstantBE)
	}
	h.Endian.PutUint32(out[44:48], h.LinkSize)
	h.Endian.PutUint32(out[48:52], h.LinkOff)
	h.Endian.PutUint32(out[52:56], h.MapOff)
	h.Endian.PutUint32(out[56:60], h.StringIDsSize)
	h.Endian.PutUint32(out[60:64], h.StringIDsOff)
	h.Endian.PutUint32(out[64:68], h.TypeIDsSize)
	h.Endian.PutUint32(out[68:72], h.TypeIDsOff)
	h.Endian.PutUint32(out[72:76], h.ProtoIDsSize)
	h.Endian.PutUint32(out[76:80], h.ProtoIDsOff)
	h.Endian.PutUint32(out[80:84], h.FieldIDsSize)
	h.Endian.PutUint32(out[84:88], h.FieldIDsOff)
	h.Endian.PutUint32(out[88:92], h.MethodIDsSize)
	h.Endian.PutUint32(out[92:96], h.MethodIDsOff)
	h.Endian.PutUint32(out[96:100], h.ClassDefsSize)
	h.Endian.PutUint32(out[100:104], h.ClassDefsOff)
	h.Endian.PutUint32(out[104:108], h.DataSize)
	h.Endian.PutUint32(out[108:112], h.DataOff)
	return append(out, body...)
}
