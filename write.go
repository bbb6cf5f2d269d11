// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-kratos/kratos/v2/log"
)

// Encoder writes a FIT stream: the file header (with a provisional
// data_size), an interleaved sequence of definition and data records, and
// finally (via Finalize) the true data_size and the trailer CRC.
//
// The two-pass scheme is inherent to the format (spec §4.F/§9): data_size
// and the trailer CRC are not knowable until the whole body has been
// serialized, so w must support seeking back to offset 0.
type Encoder struct {
	w      io.WriteSeeker
	ctx    *Context
	opts   Options
	logger *log.Helper

	header        FileHeader
	headerWritten bool
	headerStart   int64
	bodyStart     int64
}

// NewEncoder returns an Encoder writing a FIT stream to w.
func NewEncoder(w io.WriteSeeker, opts *Options) *Encoder {
	o := resolveOptions(opts)
	return &Encoder{
		w:      w,
		ctx:    newContext(o),
		opts:   o,
		logger: newHelper(o.Logger),
	}
}

// Context exposes the stream context.
func (e *Encoder) Context() *Context { return e.ctx }

// WriteHeader writes h with its data_size field forced to zero (the true
// size is not known until Finalize) and remembers the header for rewrite.
func (e *Encoder) WriteHeader(h FileHeader) error {
	pos, err := e.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	h.DataSize = 0
	if err := writeFileHeader(e.w, h); err != nil {
		return err
	}
	bodyStart, err := e.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	e.header = h
	e.headerStart = pos
	e.bodyStart = bodyStart
	e.headerWritten = true
	return nil
}

// Write serializes one record: a DefinitionMessage or a DataMessage.
// EndOfFile records are a read-only concept (spec §6: "Record must not be
// EndOfFile"); passing one is a programmer error reported as a
// ProtocolError.
func (e *Encoder) Write(rec Record) error {
	if !e.headerWritten {
		return newProtocolError("encode", "WriteHeader must be called before Write")
	}
	switch rec.Kind {
	case RecordDefinition:
		return e.writeDefinition(rec.Definition)
	case RecordData:
		return e.writeData(rec.Data)
	default:
		return newProtocolError("encode", "EndOfFile is not a writable record")
	}
}

func (e *Encoder) writeDefinition(def *Definition) error {
	headerByte := uint8(0x40)
	if len(def.DevFields) > 0 {
		headerByte |= 0x20
	}
	headerByte |= def.LocalMessageType & 0x0F

	if def.LocalMessageType > 15 {
		return newProtocolError("write definition", fmt.Sprintf("local message type %d out of range", def.LocalMessageType))
	}

	if err := writeU8(e.ctx, e.w, headerByte); err != nil {
		return err
	}
	if err := writeU8(e.ctx, e.w, 0x00); err != nil { // reserved
		return err
	}
	var archByte uint8
	if def.Architecture == BigEndian {
		archByte = 1
	}
	if err := writeU8(e.ctx, e.w, archByte); err != nil {
		return err
	}
	e.ctx.SetArchitecture(def.Architecture)

	if err := writeU16(e.ctx, e.w, def.GlobalMessageNumber); err != nil {
		return err
	}
	if err := writeU8(e.ctx, e.w, uint8(len(def.Fields))); err != nil {
		return err
	}
	for _, fd := range def.Fields {
		if err := writeU8(e.ctx, e.w, fd.FieldDefNum); err != nil {
			return err
		}
		if err := writeU8(e.ctx, e.w, fd.SizeInBytes); err != nil {
			return err
		}
		if err := writeU8(e.ctx, e.w, EncodeBaseTypeByte(fd.Type)); err != nil {
			return err
		}
	}
	if len(def.DevFields) > 0 {
		if err := writeU8(e.ctx, e.w, uint8(len(def.DevFields))); err != nil {
			return err
		}
		for _, dd := range def.DevFields {
			if err := writeU8(e.ctx, e.w, dd.FieldDefNum); err != nil {
				return err
			}
			if err := writeU8(e.ctx, e.w, dd.SizeInBytes); err != nil {
				return err
			}
			if err := writeU8(e.ctx, e.w, dd.DevDataIndex); err != nil {
				return err
			}
		}
	}

	return e.ctx.Registry().Install(def)
}

func (e *Encoder) writeData(msg *DataMessage) error {
	def, ok := e.ctx.Registry().Lookup(msg.LocalMessageType)
	if !ok {
		return newProtocolError("write data", fmt.Sprintf("no definition installed for local id %d", msg.LocalMessageType))
	}

	if msg.Compressed {
		if msg.LocalMessageType > 3 {
			return newProtocolError("write data", "compressed-timestamp header requires local id <= 3")
		}
		if msg.Timestamp == nil {
			return newProtocolError("write data", "compressed-timestamp message missing Timestamp")
		}
		prev := e.ctx.Timestamp()
		newTS := *msg.Timestamp
		if (prev &^ 0x1F) >= newTS {
			return newProtocolError("write data", "compressed timestamp must advance past the previous base")
		}
		headerByte := uint8(0x80) | ((msg.LocalMessageType & 0x03) << 5) | uint8(newTS&0x1F)
		if err := writeU8(e.ctx, e.w, headerByte); err != nil {
			return err
		}
		e.ctx.SetTimestamp(newTS)
	} else {
		if msg.LocalMessageType > 0x0F {
			return newProtocolError("write data", "local id out of range")
		}
		if err := writeU8(e.ctx, e.w, msg.LocalMessageType); err != nil {
			return err
		}
	}

	e.ctx.SetArchitecture(def.Architecture)

	for _, fd := range def.Fields {
		val, ok := msg.FieldByNum(fd.FieldDefNum)
		if !ok {
			val = FieldValue{Type: fd.Type}
		}
		count, err := fd.Count()
		if err != nil {
			return err
		}
		if err := writeFieldValue(e.ctx, e.w, val, count, e.logger); err != nil {
			return err
		}
		if fd.FieldDefNum == FieldNumTimestamp {
			if ts, ok := val.Int64At(0); ok {
				e.ctx.SetTimestamp(uint32(ts))
			}
		}
	}

	for _, dd := range def.DevFields {
		var val FieldValue
		found := false
		for _, f := range msg.DevFields {
			if f.FieldDefNum == dd.FieldDefNum && f.DevDataIndex == dd.DevDataIndex {
				val = f.Value
				found = true
				break
			}
		}
		schema, hasSchema := e.ctx.Registry().LookupDevSchema(dd.DevDataIndex, dd.FieldDefNum)
		t := BaseTypeByte
		if hasSchema {
			t = schema.BaseType
		}
		count, err := devFieldCount(t, dd.SizeInBytes)
		if err != nil {
			return err
		}
		if !found {
			val = FieldValue{Type: t}
		}
		if err := writeFieldValue(e.ctx, e.w, val, count, e.logger); err != nil {
			return err
		}
	}

	// As on read, a field_description installs the developer schema that
	// governs later developer fields on this stream.
	if def.GlobalMessageNumber == MesgNumFieldDescription {
		(&Decoder{ctx: e.ctx, logger: e.logger}).ingestFieldDescription(msg)
	}

	return nil
}

// writeFieldValue serializes count elements of val (whose Type selects the
// wire encoding) to w.
func writeFieldValue(ctx *Context, w io.Writer, val FieldValue, count int, logger *log.Helper) error {
	switch val.Type {
	case BaseTypeString:
		truncated, err := writeString(ctx, w, val.String, count)
		if err != nil {
			return err
		}
		if truncated && logger != nil {
			logger.Warnf("fit: string field truncated to %d bytes", count)
		}
	case BaseTypeEnum, BaseTypeUint8, BaseTypeUint8z:
		for i := 0; i < count; i++ {
			if err := writeU8(ctx, w, elemAt(val.Uints8, i)); err != nil {
				return err
			}
		}
	case BaseTypeSint8:
		for i := 0; i < count; i++ {
			if err := writeI8(ctx, w, elemAt(val.Sints8, i)); err != nil {
				return err
			}
		}
	case BaseTypeByte:
		raw := val.Bytes
		if len(raw) < count {
			padded := make([]byte, count)
			copy(padded, raw)
			raw = padded
		}
		return writeRaw(ctx, w, raw[:count])
	case BaseTypeSint16:
		for i := 0; i < count; i++ {
			if err := writeI16(ctx, w, elemAt(val.Sints16, i)); err != nil {
				return err
			}
		}
	case BaseTypeUint16, BaseTypeUint16z:
		for i := 0; i < count; i++ {
			if err := writeU16(ctx, w, elemAt(val.Uints16, i)); err != nil {
				return err
			}
		}
	case BaseTypeSint32:
		for i := 0; i < count; i++ {
			if err := writeI32(ctx, w, elemAt(val.Sints32, i)); err != nil {
				return err
			}
		}
	case BaseTypeUint32, BaseTypeUint32z:
		for i := 0; i < count; i++ {
			if err := writeU32(ctx, w, elemAt(val.Uints32, i)); err != nil {
				return err
			}
		}
	case BaseTypeFloat32:
		for i := 0; i < count; i++ {
			if err := writeF32(ctx, w, elemAt(val.Float32s, i)); err != nil {
				return err
			}
		}
	case BaseTypeFloat64:
		for i := 0; i < count; i++ {
			if err := writeF64(ctx, w, elemAt(val.Float64s, i)); err != nil {
				return err
			}
		}
	case BaseTypeSint64:
		for i := 0; i < count; i++ {
			if err := writeI64(ctx, w, elemAt(val.Sints64, i)); err != nil {
				return err
			}
		}
	case BaseTypeUint64, BaseTypeUint64z:
		for i := 0; i < count; i++ {
			if err := writeU64(ctx, w, elemAt(val.Uints64, i)); err != nil {
				return err
			}
		}
	default:
		return newProtocolError("write field", fmt.Sprintf("unknown base type id %#02x", uint8(val.Type)))
	}
	return nil
}

// elemAt returns s[i] or the zero value when i is out of range, so a
// caller-supplied FieldValue shorter than the definition's declared count
// pads out with invalid/zero elements rather than panicking.
func elemAt[T any](s []T, i int) T {
	if i < len(s) {
		return s[i]
	}
	var zero T
	return zero
}

// Finalize rewrites the file header with the true data_size and its
// header CRC (when the header carries one), then rescans the stream from
// the beginning to compute and append the trailer CRC (spec §4.F "Write").
func (e *Encoder) Finalize() error {
	if !e.headerWritten {
		return newProtocolError("finalize", "WriteHeader must be called before Finalize")
	}

	endPos, err := e.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	bodySize := uint32(endPos - e.bodyStart)

	h := e.header
	h.DataSize = bodySize
	if _, err := e.w.Seek(e.headerStart, io.SeekStart); err != nil {
		return err
	}
	if err := writeFileHeader(e.w, h); err != nil {
		return err
	}

	if _, err := e.w.Seek(e.headerStart, io.SeekStart); err != nil {
		return err
	}
	full := make([]byte, endPos-e.headerStart)
	if _, err := io.ReadFull(toReader(e.w), full); err != nil {
		return err
	}
	trailerCRC := NewCRC(0)
	trailerCRC.Consume(full)

	if _, err := e.w.Seek(endPos, io.SeekStart); err != nil {
		return err
	}
	trailerBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(trailerBuf, trailerCRC.Digest())
	if _, err := e.w.Write(trailerBuf); err != nil {
		return err
	}
	return nil
}

// toReader adapts an io.WriteSeeker that also implements io.Reader (as any
// concrete file/buffer backing an Encoder must, to support Finalize's
// rescan) into an io.Reader.
func toReader(w io.WriteSeeker) io.Reader {
	r, ok := w.(io.Reader)
	if !ok {
		panic("fit: Encoder sink must also implement io.Reader for Finalize's rescan")
	}
	return r
}
