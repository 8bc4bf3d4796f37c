// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// ReadULEB128 decodes an unsigned LEB128 value (up to 5 bytes) starting
// at off. It returns the decoded value, the number of bytes consumed, and
// ErrBadLeb128 if the continuation bit is still set after 5 bytes.
func ReadULEB128(b []byte, off int) (uint32, int, error) {
	var result uint32
	var shift uint
	for n := 0; n < 5; n++ {
		if off+n >= len(b) {
			return 0, 0, ErrTooSmall
		}
		cur := b[off+n]
		result |= uint32(cur&0x7f) << shift
		if cur&0x80 == 0 {
			return result, n + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrBadLeb128
}

// ReadULEB128p1 decodes a "ULEB128 plus one" value: the wire value 0
// decodes to "none" (ok=false); wire value n decodes to n-1.
func ReadULEB128p1(b []byte, off int) (value uint32, ok bool, size int, err error) {
	raw, n, err := ReadULEB128(b, off)
	if err != nil {
		return 0, false, 0, err
	}
	if raw == 0 {
		return 0, false, n, nil
	}
	return raw - 1, true, n, nil
}

// ReadSLEB128 decodes a signed LEB128 value (up to 5 bytes), sign
// extending from bit 6 of the final byte.
func ReadSLEB128(b []byte, off int) (int32, int, error) {
	var result int32
	var shift uint
	var cur byte
	n := 0
	for {
		if n >= 5 {
			return 0, 0, ErrBadLeb128
		}
		if off+n >= len(b) {
			return 0, 0, ErrTooSmall
		}
		cur = b[off+n]
		result |= int32(cur&0x7f) << shift
		shift += 7
		n++
		if cur&0x80 == 0 {
			break
		}
	}
	if shift < 32 && cur&0x40 != 0 {
		result |= -(int32(1) << shift)
	}
	return result, n, nil
}

// PutULEB128 appends the minimal-length ULEB128 encoding of v to buf.
func PutULEB128(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			return buf
		}
	}
}

// PutULEB128p1 appends the ULEB128p1 encoding of an optional value.
func PutULEB128p1(buf []byte, v uint32, ok bool) []byte {
	if !ok {
		return PutULEB128(buf, 0)
	}
	return PutULEB128(buf, v+1)
}

// PutSLEB128 appends the minimal-length signed LEB128 encoding of v to buf.
func PutSLEB128(buf []byte, v int32) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// ULEBSize returns the number of bytes PutULEB128 would emit for v.
func ULEBSize(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
