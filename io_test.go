// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"bytes"
	"testing"
)

func TestByteOrderRequiresArchitecture(t *testing.T) {
	ctx := newContext(Options{})
	if _, err := byteOrder(ctx); err == nil {
		t.Fatal("expected error before any architecture is set")
	}
	ctx.SetArchitecture(LittleEndian)
	if _, err := byteOrder(ctx); err != nil {
		t.Fatalf("byteOrder after SetArchitecture: %v", err)
	}
}

func TestReadWriteU16RespectsArchitecture(t *testing.T) {
	for _, arch := range []Architecture{LittleEndian, BigEndian} {
		var buf bytes.Buffer
		wctx := newContext(Options{})
		wctx.SetArchitecture(arch)
		if err := writeU16(wctx, &buf, 0xABCD); err != nil {
			t.Fatalf("writeU16: %v", err)
		}

		rctx := newContext(Options{})
		rctx.SetArchitecture(arch)
		got, err := readU16(rctx, bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("readU16: %v", err)
		}
		if got != 0xABCD {
			t.Fatalf("arch %v: got %#04x, want 0xABCD", arch, got)
		}
	}
}

func TestByteCountAndCRCAdvanceTogether(t *testing.T) {
	ctx := newContext(Options{})
	ctx.SetArchitecture(LittleEndian)
	var buf bytes.Buffer
	if err := writeU32(ctx, &buf, 42); err != nil {
		t.Fatalf("writeU32: %v", err)
	}
	if ctx.ByteCount() != 4 {
		t.Fatalf("ByteCount() = %d, want 4", ctx.ByteCount())
	}

	want := NewCRC(0)
	want.Consume(buf.Bytes())
	if ctx.CRC().Digest() != want.Digest() {
		t.Fatalf("CRC diverged from byte stream")
	}
}

func TestStringRoundTrip(t *testing.T) {
	ctx := newContext(Options{})
	var buf bytes.Buffer
	truncated, err := writeString(ctx, &buf, "Amsterdam", 16)
	if err != nil || truncated {
		t.Fatalf("writeString: truncated=%v err=%v", truncated, err)
	}

	rctx := newContext(Options{})
	got, err := readString(rctx, bytes.NewReader(buf.Bytes()), 16)
	if err != nil {
		t.Fatalf("readString: %v", err)
	}
	if got != "Amsterdam" {
		t.Fatalf("got %q, want Amsterdam", got)
	}
}

func TestStringTruncation(t *testing.T) {
	ctx := newContext(Options{})
	var buf bytes.Buffer
	truncated, err := writeString(ctx, &buf, "a very long friendly name indeed", 8)
	if err != nil {
		t.Fatalf("writeString: %v", err)
	}
	if !truncated {
		t.Fatal("expected truncated=true for an oversized string")
	}
	if buf.Len() != 8 {
		t.Fatalf("buf.Len() = %d, want 8", buf.Len())
	}
}
