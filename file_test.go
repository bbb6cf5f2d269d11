// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"bytes"
	"os"
	"testing"
)

func TestOpenBytes(t *testing.T) {
	data := decodeFixture(t)
	d := OpenBytes(data, nil)
	h, err := d.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.DataSize != 68 {
		t.Fatalf("DataSize = %d, want 68", h.DataSize)
	}
	for {
		rec, err := d.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if rec.Kind == RecordEndOfFile {
			break
		}
	}
}

func TestOpenMemoryMappedFile(t *testing.T) {
	data := decodeFixture(t)
	f, err := os.CreateTemp(t.TempDir(), "fixture-*.fit")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d, handle, err := Open(f.Name(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer handle.Close()

	h, err := d.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.DataSize != 68 {
		t.Fatalf("DataSize = %d, want 68", h.DataSize)
	}
}

func TestTrailerCrcMismatch(t *testing.T) {
	data := decodeFixture(t)
	corrupt := append([]byte(nil), data...)
	// Flip a byte in the trailer CRC itself.
	corrupt[len(corrupt)-1] ^= 0xFF

	d := OpenBytes(corrupt, nil)
	if _, err := d.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	var err error
	for {
		var rec Record
		rec, err = d.Next()
		if err != nil || rec.Kind == RecordEndOfFile {
			break
		}
	}
	ce, ok := err.(*CrcError)
	if !ok {
		t.Fatalf("error = %v, want *CrcError", err)
	}
	if ce.Which != "trailer" {
		t.Fatalf("CrcError.Which = %q, want trailer", ce.Which)
	}
}

func TestVerifyCRCAcceptsGoodFixture(t *testing.T) {
	data := decodeFixture(t)
	if err := VerifyCRC(bytes.NewReader(data)); err != nil {
		t.Fatalf("VerifyCRC: %v", err)
	}
}

func TestMaxRecordsFailsClosed(t *testing.T) {
	data := decodeFixture(t)
	d := OpenBytes(data, &Options{MaxRecords: 1})
	if _, err := d.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if _, err := d.Next(); err != nil {
		t.Fatalf("Next (first record): %v", err)
	}
	_, err := d.Next()
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("error = %v (%T), want *ProtocolError", err, err)
	}
}

func TestVerifyCRCRejectsCorruptBody(t *testing.T) {
	data := decodeFixture(t)
	corrupt := append([]byte(nil), data...)
	corrupt[20] ^= 0xFF // perturb a body byte, upstream of the trailer CRC check

	if err := VerifyCRC(bytes.NewReader(corrupt)); err == nil {
		t.Fatal("expected VerifyCRC to reject a corrupted body")
	}
}
