// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// StringData holds one decoded string_data_item: the declared UTF-16
// code-unit count (utf16_size) and the decoded host string.
type StringData struct {
	UTF16Size uint32
	Value     string
	// Lossy is set when an unpaired surrogate was repaired during decode.
	Lossy bool
}

// decodeMUTF8 decodes a NUL-terminated MUTF-8 byte run, encoded the way
// DEX string_data_item stores it: two- and three-byte UTF-8 sequences as
// in standard CESU-8, but U+0000 encoded as the two-byte overlong form
// 0xC0 0x80 instead of a literal NUL (which terminates the run).
//
// It first collects the UTF-16 code units MUTF-8 represents, then hands
// them to golang.org/x/text/encoding/unicode's UTF-16 decoder to produce
// the host (UTF-8) string, so surrogate-pair repair follows the same
// code path the package already uses for resource strings.
func decodeMUTF8(b []byte, off int) (StringData, int, error) {
	start := off
	units := make([]uint16, 0, 16)
	for {
		if off >= len(b) {
			return StringData{}, 0, ErrTooSmall
		}
		c0 := b[off]
		if c0 == 0x00 {
			off++
			break
		}
		switch {
		case c0&0x80 == 0:
			units = append(units, uint16(c0))
			off++
		case c0&0xE0 == 0xC0:
			if off+1 >= len(b) {
				return StringData{}, 0, ErrTooSmall
			}
			c1 := b[off+1]
			v := (uint16(c0&0x1F) << 6) | uint16(c1&0x3F)
			units = append(units, v)
			off += 2
		case c0&0xF0 == 0xE0:
			if off+2 >= len(b) {
				return StringData{}, 0, ErrTooSmall
			}
			c1, c2 := b[off+1], b[off+2]
			v := (uint16(c0&0x0F) << 12) | (uint16(c1&0x3F) << 6) | uint16(c2&0x3F)
			units = append(units, v)
			off += 3
		default:
			// Malformed lead byte: treat as a single lossy replacement
			// unit and keep scanning, matching the parser's "warn and
			// continue" policy for string records.
			units = append(units, 0xFFFD)
			off++
		}
	}

	// Re-encode the collected UTF-16 code units as little-endian bytes and
	// run them through the same UTF-16 decoder the package uses elsewhere
	// for resource strings, so unpaired surrogates are repaired by one
	// shared code path instead of being special-cased here.
	le := make([]byte, len(units)*2)
	for i, u := range units {
		le[2*i] = byte(u)
		le[2*i+1] = byte(u >> 8)
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	decoded, err := dec.Bytes(le)
	lossy := false
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF {
			i++
			continue
		}
		if u >= 0xD800 && u <= 0xDFFF {
			lossy = true
		}
	}
	if err != nil || !utf8.Valid(decoded) {
		lossy = true
		decoded = []byte(strings.ToValidUTF8(string(decoded), string(utf8.RuneError)))
	}

	return StringData{
		UTF16Size: uint32(len(units)),
		Value:     string(decoded),
		Lossy:     lossy,
	}, off - start, nil
}
