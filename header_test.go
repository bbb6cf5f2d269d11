// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func build12ByteHeader(dataSize uint32) []byte {
	buf := make([]byte, 12)
	buf[0] = 12
	buf[1] = 0x10
	binary.LittleEndian.PutUint16(buf[2:4], 100)
	binary.LittleEndian.PutUint32(buf[4:8], dataSize)
	copy(buf[8:12], fitSignature[:])
	return buf
}

func TestReadFileHeader12Byte(t *testing.T) {
	buf := build12ByteHeader(68)
	h, err := readFileHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readFileHeader: %v", err)
	}
	if h.HeaderSize != 12 || h.HasHeaderCRC {
		t.Fatalf("h = %+v, want 12-byte header with no CRC", h)
	}
	if h.DataSize != 68 {
		t.Fatalf("DataSize = %d, want 68", h.DataSize)
	}
}

func TestReadFileHeader14ByteZeroSentinel(t *testing.T) {
	buf := build12ByteHeader(68)
	buf[0] = 14
	buf = append(buf, 0x00, 0x00) // legacy zero CRC, never validated
	h, err := readFileHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readFileHeader: %v", err)
	}
	if !h.HasHeaderCRC || h.CRC != 0 {
		t.Fatalf("h = %+v, want HasHeaderCRC with CRC 0", h)
	}
}

func TestReadFileHeader14ByteValidCRC(t *testing.T) {
	buf := build12ByteHeader(68)
	buf[0] = 14
	check := NewCRC(0)
	check.Consume(buf)
	crcBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBuf, check.Digest())
	buf = append(buf, crcBuf...)

	h, err := readFileHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readFileHeader: %v", err)
	}
	if h.CRC != check.Digest() {
		t.Fatalf("CRC = %d, want %d", h.CRC, check.Digest())
	}
}

func TestReadFileHeader14ByteBadCRC(t *testing.T) {
	buf := build12ByteHeader(68)
	buf[0] = 14
	buf = append(buf, 0xAA, 0xBB) // garbage, non-zero, won't match

	_, err := readFileHeader(bytes.NewReader(buf))
	var crcErr *CrcError
	if !asCrcError(err, &crcErr) {
		t.Fatalf("readFileHeader error = %v, want *CrcError", err)
	}
	if crcErr.Which != "header" {
		t.Fatalf("CrcError.Which = %q, want %q", crcErr.Which, "header")
	}
}

func TestReadFileHeaderBadSignature(t *testing.T) {
	buf := build12ByteHeader(0)
	copy(buf[8:12], "XXXX")
	if _, err := readFileHeader(bytes.NewReader(buf)); err == nil {
		t.Fatal("expected error for bad signature")
	}
}

func TestReadFileHeaderDrainsOddSizeNoCRC(t *testing.T) {
	// header_size 13 (< 14): no header CRC is read, but the one extra byte
	// header_size claims beyond the 12 core bytes must still be drained.
	buf := build12ByteHeader(68)
	buf[0] = 13
	buf = append(buf, 0xEE)

	h, err := readFileHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readFileHeader: %v", err)
	}
	if h.HeaderSize != 13 || h.HasHeaderCRC {
		t.Fatalf("h = %+v, want header_size 13 with no CRC", h)
	}
	if h.DataSize != 68 {
		t.Fatalf("DataSize = %d, want 68", h.DataSize)
	}
}

func TestReadFileHeaderDrainsExtraBytesBeyond14(t *testing.T) {
	// header_size 16: the header CRC is present (header_size >= 14) and two
	// more bytes beyond it must be drained before the body starts.
	buf := build12ByteHeader(68)
	buf[0] = 16
	check := NewCRC(0)
	check.Consume(buf)
	crcBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBuf, check.Digest())
	buf = append(buf, crcBuf...)
	buf = append(buf, 0x11, 0x22)
	buf = append(buf, 0x01) // one body byte, to prove the reader stopped exactly at header_size

	r := bytes.NewReader(buf)
	h, err := readFileHeader(r)
	if err != nil {
		t.Fatalf("readFileHeader: %v", err)
	}
	if h.HeaderSize != 16 || !h.HasHeaderCRC {
		t.Fatalf("h = %+v, want header_size 16 with a CRC", h)
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("io.ReadAll: %v", err)
	}
	if len(rest) != 1 || rest[0] != 0x01 {
		t.Fatalf("rest = %v, want the single trailing body byte", rest)
	}
}

func TestWriteFileHeaderRoundTrip(t *testing.T) {
	h := FileHeader{HeaderSize: 14, ProtocolVer: 0x10, ProfileVer: 100, DataSize: 68}
	var buf bytes.Buffer
	if err := writeFileHeader(&buf, h); err != nil {
		t.Fatalf("writeFileHeader: %v", err)
	}
	got, err := readFileHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("readFileHeader: %v", err)
	}
	if got.DataSize != h.DataSize || got.CRC == 0 {
		t.Fatalf("got = %+v", got)
	}
}

func TestWriteFileHeaderRejectsOversizedHeader(t *testing.T) {
	h := FileHeader{HeaderSize: 15, ProtocolVer: 0x10, ProfileVer: 100}
	var buf bytes.Buffer
	if err := writeFileHeader(&buf, h); err == nil {
		t.Fatal("expected error for header_size > 14")
	}
}

// asCrcError is a small helper since errors.As needs an addressable target
// of the right pointer kind; CrcError is returned as a plain *CrcError, not
// wrapped, so a direct type assertion suffices here.
func asCrcError(err error, target **CrcError) bool {
	c, ok := err.(*CrcError)
	if !ok {
		return false
	}
	*target = c
	return true
}
