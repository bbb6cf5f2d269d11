// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"encoding/binary"
	"io"
	"math"
	"strings"
)

// byteOrder returns the binary.ByteOrder implied by ctx's current
// architecture, failing if no definition has installed one yet.
func byteOrder(ctx *Context) (binary.ByteOrder, error) {
	switch ctx.arch {
	case LittleEndian:
		return binary.LittleEndian, nil
	case BigEndian:
		return binary.BigEndian, nil
	default:
		return nil, newProtocolError("byte i/o", "endianness not set")
	}
}

// readRaw reads exactly n bytes from r, feeding them to the running CRC
// and the byte counter before returning. Every read primitive in this file
// funnels through it, which is what makes the trailer CRC meaningful
// (spec §5: "every byte read or written ... updates the CRC before the
// primitive returns").
func readRaw(ctx *Context, r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	ctx.crc.Consume(buf)
	ctx.count += uint32(n)
	return buf, nil
}

// writeRaw writes p to w, feeding it to the running CRC and byte counter.
func writeRaw(ctx *Context, w io.Writer, p []byte) error {
	if _, err := w.Write(p); err != nil {
		return err
	}
	ctx.crc.Consume(p)
	ctx.count += uint32(len(p))
	return nil
}

func readU8(ctx *Context, r io.Reader) (uint8, error) {
	b, err := readRaw(ctx, r, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func readI8(ctx *Context, r io.Reader) (int8, error) {
	v, err := readU8(ctx, r)
	return int8(v), err
}

func writeU8(ctx *Context, w io.Writer, v uint8) error {
	return writeRaw(ctx, w, []byte{v})
}

func writeI8(ctx *Context, w io.Writer, v int8) error {
	return writeU8(ctx, w, uint8(v))
}

func readU16(ctx *Context, r io.Reader) (uint16, error) {
	order, err := byteOrder(ctx)
	if err != nil {
		return 0, err
	}
	b, err := readRaw(ctx, r, 2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

func writeU16(ctx *Context, w io.Writer, v uint16) error {
	order, err := byteOrder(ctx)
	if err != nil {
		return err
	}
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return writeRaw(ctx, w, b)
}

func readI16(ctx *Context, r io.Reader) (int16, error) {
	v, err := readU16(ctx, r)
	return int16(v), err
}

func writeI16(ctx *Context, w io.Writer, v int16) error {
	return writeU16(ctx, w, uint16(v))
}

func readU32(ctx *Context, r io.Reader) (uint32, error) {
	order, err := byteOrder(ctx)
	if err != nil {
		return 0, err
	}
	b, err := readRaw(ctx, r, 4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

func writeU32(ctx *Context, w io.Writer, v uint32) error {
	order, err := byteOrder(ctx)
	if err != nil {
		return err
	}
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return writeRaw(ctx, w, b)
}

func readI32(ctx *Context, r io.Reader) (int32, error) {
	v, err := readU32(ctx, r)
	return int32(v), err
}

func writeI32(ctx *Context, w io.Writer, v int32) error {
	return writeU32(ctx, w, uint32(v))
}

func readU64(ctx *Context, r io.Reader) (uint64, error) {
	order, err := byteOrder(ctx)
	if err != nil {
		return 0, err
	}
	b, err := readRaw(ctx, r, 8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

func writeU64(ctx *Context, w io.Writer, v uint64) error {
	order, err := byteOrder(ctx)
	if err != nil {
		return err
	}
	b := make([]byte, 8)
	order.PutUint64(b, v)
	return writeRaw(ctx, w, b)
}

func readI64(ctx *Context, r io.Reader) (int64, error) {
	v, err := readU64(ctx, r)
	return int64(v), err
}

func writeI64(ctx *Context, w io.Writer, v int64) error {
	return writeU64(ctx, w, uint64(v))
}

func readF32(ctx *Context, r io.Reader) (float32, error) {
	v, err := readU32(ctx, r)
	return math.Float32frombits(v), err
}

func writeF32(ctx *Context, w io.Writer, v float32) error {
	return writeU32(ctx, w, math.Float32bits(v))
}

func readF64(ctx *Context, r io.Reader) (float64, error) {
	v, err := readU64(ctx, r)
	return math.Float64frombits(v), err
}

func writeF64(ctx *Context, w io.Writer, v float64) error {
	return writeU64(ctx, w, math.Float64bits(v))
}

// readString reads exactly width bytes, drops trailing NUL bytes, and
// decodes the remainder as UTF-8 with lossy replacement of invalid
// sequences (spec §4.B).
func readString(ctx *Context, r io.Reader, width int) (string, error) {
	b, err := readRaw(ctx, r, width)
	if err != nil {
		return "", err
	}
	b = []byte(strings.TrimRight(string(b), "\x00"))
	return strings.ToValidUTF8(string(b), "�"), nil
}

// writeString writes the UTF-8 bytes of s, truncated or NUL-padded to
// exactly width bytes. truncated reports whether s had to be shortened to
// fit, so the caller can surface a warning (spec §4.B).
func writeString(ctx *Context, w io.Writer, s string, width int) (truncated bool, err error) {
	b := []byte(s)
	if len(b) > width {
		b = b[:width]
		truncated = true
	}
	padded := make([]byte, width)
	copy(padded, b)
	return truncated, writeRaw(ctx, w, padded)
}
