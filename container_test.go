// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"crypto/sha1"
	"encoding/binary"
	"strings"
	"testing"
)

// buildEmptyContainer assembles the smallest legal container: a header
// with every section empty and a map list with no entries.
func buildEmptyContainer(t *testing.T) []byte {
	t.Helper()
	h := Header{
		Version: [3]byte{'0', '3', '5'},
		Endian:  binary.LittleEndian,
		MapOff:  HeaderSize,
	}
	mapList := make([]byte, 4) // size = 0
	b := writeHeader(h, mapList)
	binary.LittleEndian.PutUint32(b[32:36], uint32(len(b)))
	return b
}

func TestParseEmptyContainer(t *testing.T) {
	b := buildEmptyContainer(t)
	c, err := Parse(b, "empty.dex")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.StringIDs) != 0 || len(c.ClassDefs) != 0 {
		t.Fatalf("expected all indexed sections empty, got %+v", c)
	}
}

func TestParseFlagsChecksumAndSignatureMismatch(t *testing.T) {
	b := buildEmptyContainer(t) // header.Checksum/Signature left zero, so both are wrong
	c, err := Parse(b, "bad-checksum.dex")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var sawChecksum, sawSignature bool
	for _, a := range c.Anomalies {
		if strings.Contains(a, "checksum mismatch") {
			sawChecksum = true
		}
		if strings.Contains(a, "content signature mismatch") {
			sawSignature = true
		}
	}
	if !sawChecksum {
		t.Errorf("expected a checksum mismatch anomaly, got %v", c.Anomalies)
	}
	if !sawSignature {
		t.Errorf("expected a content signature mismatch anomaly, got %v", c.Anomalies)
	}
}

func TestParseAcceptsCorrectChecksumAndSignature(t *testing.T) {
	b := buildEmptyContainer(t)
	binary.LittleEndian.PutUint32(b[8:12], adler32(b[12:]))
	sig := sha1.Sum(b[32:])
	copy(b[12:32], sig[:])

	c, err := Parse(b, "good-checksum.dex")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, a := range c.Anomalies {
		if strings.Contains(a, "checksum mismatch") || strings.Contains(a, "content signature mismatch") {
			t.Fatalf("unexpected anomaly with a correctly recomputed checksum/signature: %v", c.Anomalies)
		}
	}
}

func TestParseContainerTruncatedMapList(t *testing.T) {
	b := buildEmptyContainer(t)
	truncated := b[:len(b)-2]
	binary.LittleEndian.PutUint32(truncated[32:36], uint32(len(truncated)))
	if _, err := Parse(truncated, "bad.dex"); err == nil {
		t.Fatal("expected an error parsing a truncated map list")
	}
}

func TestContainerStringResolution(t *testing.T) {
	c := &Container{
		StringIDs:  []StringIDItem{{DataOff: 0}},
		stringData: map[uint32]StringData{0: {Value: "Ljava/lang/Object;"}},
	}
	s, err := c.String(0)
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if s != "Ljava/lang/Object;" {
		t.Fatalf("got %q", s)
	}
	if _, err := c.String(1); err != ErrDanglingStringIndex {
		t.Fatalf("got %v, want ErrDanglingStringIndex", err)
	}
}
