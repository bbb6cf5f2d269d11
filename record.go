// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"fmt"
	"io"

	"github.com/go-kratos/kratos/v2/log"
)

// RecordKind discriminates the Record sum type (spec §3: "a sum over
// {FileHeader, DefinitionMessage, DataMessage, EndOfFile(u16)}"; FileHeader
// is handled by (*Decoder).ReadHeader separately, so Record only needs to
// range over the remaining three variants).
type RecordKind int

const (
	RecordDefinition RecordKind = iota
	RecordData
	RecordEndOfFile
)

// Record is one parsed unit of a FIT body stream.
type Record struct {
	Kind       RecordKind
	Definition *Definition  // set iff Kind == RecordDefinition
	Data       *DataMessage // set iff Kind == RecordData
	EOF        uint16       // trailer CRC, set iff Kind == RecordEndOfFile
}

// DataField is one decoded standard field of a data message.
type DataField struct {
	FieldDefNum uint8
	Value       FieldValue
}

// DataDevField is one decoded developer field of a data message.
// Described reports whether a developer schema entry was found; when
// false, Value always carries a raw byte sequence (spec §4.E step 3: an
// unresolved developer field is a soft condition, never an error).
type DataDevField struct {
	FieldDefNum  uint8
	DevDataIndex uint8
	Value        FieldValue
	Described    bool
}

// DataMessage is one decoded data message.
type DataMessage struct {
	GlobalMessageNumber uint16
	LocalMessageType    uint8
	// Compressed reports whether this message is (on read: was; on write:
	// should be) framed with a compressed-timestamp header rather than a
	// normal data header.
	Compressed bool
	// Timestamp carries the reconstituted (read) or intended (write)
	// absolute timestamp for a compressed-timestamp record (spec §4.E
	// "Compressed-timestamp path"). Nil for normal data messages.
	Timestamp *uint32
	Fields    []DataField
	DevFields []DataDevField
}

// FieldByNum returns the standard field with the given field_defn_num, if
// present.
func (m *DataMessage) FieldByNum(n uint8) (FieldValue, bool) {
	for _, f := range m.Fields {
		if f.FieldDefNum == n {
			return f.Value, true
		}
	}
	return FieldValue{}, false
}

// recordHeader is the decoded form of a single record header byte (spec
// §4.E "Record header byte").
type recordHeader struct {
	compressed        bool
	definition        bool
	developer         bool
	local             uint8
	timeOffset        uint8
	reservedViolation bool
}

func decodeRecordHeaderByte(b uint8) recordHeader {
	var h recordHeader
	h.compressed = b&0x80 != 0
	if h.compressed {
		h.local = (b >> 5) & 0x03
		h.timeOffset = b & 0x1F
		return h
	}
	h.definition = b&0x40 != 0
	if h.definition {
		h.developer = b&0x20 != 0
	}
	h.reservedViolation = b&0x10 != 0
	h.local = b & 0x0F
	return h
}

// Decoder reads a FIT stream: the file header, then an interleaved
// sequence of definition and data records, then the trailer CRC.
type Decoder struct {
	r      io.Reader
	ctx    *Context
	opts   Options
	logger *log.Helper

	header      FileHeader
	headerRead  bool
	eof         bool
	recordCount uint32
}

// NewDecoder returns a Decoder reading FIT records from r. opts may be nil
// to accept all defaults.
func NewDecoder(r io.Reader, opts *Options) *Decoder {
	o := resolveOptions(opts)
	return &Decoder{
		r:      r,
		ctx:    newContext(o),
		opts:   o,
		logger: newHelper(o.Logger),
	}
}

// Context exposes the stream context for callers (notably the Validator)
// that need to read last-accepted-timestamp state or byte counters.
func (d *Decoder) Context() *Context { return d.ctx }

// ReadHeader reads and validates the 12- or 14-byte FIT file header. It
// must be called exactly once, before the first call to Next.
func (d *Decoder) ReadHeader() (FileHeader, error) {
	// The header bytes feed the stream CRC (the trailer CRC covers header
	// and body) but not the body byte counter.
	h, err := readFileHeader(io.TeeReader(d.r, d.ctx.CRC()))
	if err != nil {
		return FileHeader{}, err
	}
	d.header = h
	d.headerRead = true
	return h, nil
}

// Next decodes and returns the next record: a DefinitionMessage, a
// DataMessage, or (exactly once, as the final record) EndOfFile. It
// returns io.EOF once the EndOfFile record has already been returned.
func (d *Decoder) Next() (Record, error) {
	if !d.headerRead {
		return Record{}, newProtocolError("decode", "ReadHeader must be called before Next")
	}
	if d.eof {
		return Record{}, io.EOF
	}

	if d.opts.MaxRecords != 0 && d.recordCount >= d.opts.MaxRecords {
		return Record{}, newProtocolError("decode", "record count exceeds MaxRecords")
	}
	d.recordCount++

	if d.ctx.ByteCount() >= d.header.DataSize {
		crc, err := readTrailerCRC(d.r)
		if err != nil {
			return Record{}, err
		}
		want := d.ctx.CRC().Digest()
		if crc != want {
			return Record{}, &CrcError{Which: "trailer", Want: want, Got: crc}
		}
		d.eof = true
		return Record{Kind: RecordEndOfFile, EOF: crc}, nil
	}

	b, err := readU8(d.ctx, d.r)
	if err != nil {
		return Record{}, err
	}
	h := decodeRecordHeaderByte(b)

	if h.reservedViolation {
		if d.ctx.reservedBitsZero {
			return Record{}, newProtocolError("record header", "reserved bit set")
		}
		d.logger.Warnf("fit: reserved bit set in record header (local=%d)", h.local)
	}

	if h.definition {
		return d.decodeDefinition(h)
	}
	return d.decodeData(h)
}

func (d *Decoder) decodeDefinition(h recordHeader) (Record, error) {
	if _, err := readU8(d.ctx, d.r); err != nil { // reserved byte, discarded
		return Record{}, err
	}
	archByte, err := readU8(d.ctx, d.r)
	if err != nil {
		return Record{}, err
	}
	var arch Architecture
	switch archByte {
	case 0:
		arch = LittleEndian
	case 1:
		arch = BigEndian
	default:
		return Record{}, newProtocolError("decode definition", fmt.Sprintf("invalid architecture byte %#02x", archByte))
	}
	d.ctx.SetArchitecture(arch)

	globalNum, err := readU16(d.ctx, d.r)
	if err != nil {
		return Record{}, err
	}
	numFields, err := readU8(d.ctx, d.r)
	if err != nil {
		return Record{}, err
	}

	def := &Definition{
		Architecture:        arch,
		GlobalMessageNumber: globalNum,
		LocalMessageType:    h.local,
	}

	for i := uint8(0); i < numFields; i++ {
		fd, err := d.decodeFieldDef()
		if err != nil {
			return Record{}, err
		}
		def.Fields = append(def.Fields, fd)
	}

	if h.developer {
		numDevFields, err := readU8(d.ctx, d.r)
		if err != nil {
			return Record{}, err
		}
		for i := uint8(0); i < numDevFields; i++ {
			fieldDefNum, err := readU8(d.ctx, d.r)
			if err != nil {
				return Record{}, err
			}
			size, err := readU8(d.ctx, d.r)
			if err != nil {
				return Record{}, err
			}
			devIdx, err := readU8(d.ctx, d.r)
			if err != nil {
				return Record{}, err
			}
			def.DevFields = append(def.DevFields, DevFieldDef{
				FieldDefNum:  fieldDefNum,
				SizeInBytes:  size,
				DevDataIndex: devIdx,
			})
		}
	}

	if err := d.ctx.Registry().Install(def); err != nil {
		return Record{}, err
	}
	return Record{Kind: RecordDefinition, Definition: def}, nil
}

func (d *Decoder) decodeFieldDef() (FieldDef, error) {
	fieldDefNum, err := readU8(d.ctx, d.r)
	if err != nil {
		return FieldDef{}, err
	}
	if fieldDefNum == invalidFieldDefNum {
		return FieldDef{}, newProtocolError("decode field def", "field_defn_num is 0xFF")
	}
	size, err := readU8(d.ctx, d.r)
	if err != nil {
		return FieldDef{}, err
	}
	if size == 0 {
		return FieldDef{}, newProtocolError("decode field def", "size_in_bytes is 0")
	}
	typeByte, err := readU8(d.ctx, d.r)
	if err != nil {
		return FieldDef{}, err
	}
	t, endianFlag, err := DecodeBaseTypeByte(typeByte)
	if err != nil {
		return FieldDef{}, err
	}
	return FieldDef{FieldDefNum: fieldDefNum, SizeInBytes: size, Type: t, EndianFlag: endianFlag}, nil
}

func (d *Decoder) decodeData(h recordHeader) (Record, error) {
	local := h.local
	var compressedTS *uint32

	if h.compressed {
		prev := d.ctx.Timestamp()
		offset := uint32(h.timeOffset)
		var newTS uint32
		if h.timeOffset >= uint8(prev&0x1F) {
			newTS = (prev &^ 0x1F) + offset
		} else {
			newTS = (prev &^ 0x1F) + offset + 0x20
		}
		d.ctx.SetTimestamp(newTS)
		compressedTS = &newTS
	}

	def, ok := d.ctx.Registry().Lookup(local)
	if !ok {
		return Record{}, newProtocolError("decode data", fmt.Sprintf("unknown local id %d", local))
	}
	d.ctx.SetArchitecture(def.Architecture)

	msg := &DataMessage{
		GlobalMessageNumber: def.GlobalMessageNumber,
		LocalMessageType:    local,
		Compressed:          h.compressed,
		Timestamp:           compressedTS,
	}

	for _, fd := range def.Fields {
		count, err := fd.Count()
		if err != nil {
			return Record{}, err
		}
		val, err := readFieldValue(d.ctx, d.r, fd.Type, count)
		if err != nil {
			return Record{}, err
		}
		if fd.FieldDefNum == FieldNumTimestamp {
			if ts, ok := val.Int64At(0); ok {
				d.ctx.SetTimestamp(uint32(ts))
			}
		}
		msg.Fields = append(msg.Fields, DataField{FieldDefNum: fd.FieldDefNum, Value: val})
	}

	for _, dd := range def.DevFields {
		schema, ok := d.ctx.Registry().LookupDevSchema(dd.DevDataIndex, dd.FieldDefNum)
		if ok {
			count, err := devFieldCount(schema.BaseType, dd.SizeInBytes)
			if err != nil {
				return Record{}, err
			}
			val, err := readFieldValue(d.ctx, d.r, schema.BaseType, count)
			if err != nil {
				return Record{}, err
			}
			msg.DevFields = append(msg.DevFields, DataDevField{
				FieldDefNum:  dd.FieldDefNum,
				DevDataIndex: dd.DevDataIndex,
				Value:        val,
				Described:    true,
			})
		} else {
			raw, err := readRaw(d.ctx, d.r, int(dd.SizeInBytes))
			if err != nil {
				return Record{}, err
			}
			d.logger.Debugf("fit: developer field %d/%d has no schema, decoding as raw bytes", dd.DevDataIndex, dd.FieldDefNum)
			msg.DevFields = append(msg.DevFields, DataDevField{
				FieldDefNum:  dd.FieldDefNum,
				DevDataIndex: dd.DevDataIndex,
				Value:        FieldValue{Type: BaseTypeByte, Bytes: raw},
				Described:    false,
			})
		}
	}

	if def.GlobalMessageNumber == MesgNumFieldDescription {
		d.ingestFieldDescription(msg)
	}

	return Record{Kind: RecordData, Data: msg}, nil
}

// devFieldCount derives the element count for a developer field given its
// resolved schema base type and the on-wire size_in_bytes.
func devFieldCount(t BaseType, sizeInBytes uint8) (int, error) {
	if t == BaseTypeString {
		return int(sizeInBytes), nil
	}
	width, err := SizeOf(t)
	if err != nil {
		return 0, err
	}
	if width == 0 || int(sizeInBytes)%width != 0 {
		return 0, newProtocolError("developer field", fmt.Sprintf("size_in_bytes %d not a multiple of type width %d", sizeInBytes, width))
	}
	return int(sizeInBytes) / width, nil
}

// ingestFieldDescription interprets a just-decoded field_description
// (#206) data message and installs/overwrites the developer schema entry
// it describes (spec §4.E "Field description ingestion").
func (d *Decoder) ingestFieldDescription(msg *DataMessage) {
	e := &DeveloperSchemaEntry{BaseType: BaseTypeByte}
	haveFieldDefNum := false

	for _, f := range msg.Fields {
		switch f.FieldDefNum {
		case fieldDescDevDataIndex:
			if v, ok := f.Value.Int64At(0); ok {
				e.DevDataIndex = uint8(v)
			}
		case fieldDescFieldDefNum:
			if v, ok := f.Value.Int64At(0); ok {
				e.FieldDefNum = uint8(v)
				haveFieldDefNum = true
			}
		case fieldDescBaseTypeID:
			if v, ok := f.Value.Int64At(0); ok {
				if t, err := TagFromID(uint8(v) & 0x7F); err == nil {
					e.BaseType = t
				}
			}
		case fieldDescFieldName:
			e.FieldName = f.Value.String
		case fieldDescScale:
			if v, ok := f.Value.Float64At(0); ok {
				e.Scale, e.HasScale = v, true
			}
		case fieldDescOffset:
			if v, ok := f.Value.Float64At(0); ok {
				e.Offset, e.HasOffset = v, true
			}
		case fieldDescUnits:
			e.Units = f.Value.String
		}
	}

	if !haveFieldDefNum {
		d.logger.Warnf("fit: field_description missing field_defn_num, discarding")
		return
	}
	d.ctx.Registry().InstallDevSchema(e)
}

// readFieldValue decodes count elements of base type t from r.
func readFieldValue(ctx *Context, r io.Reader, t BaseType, count int) (FieldValue, error) {
	v := FieldValue{Type: t}
	switch t {
	case BaseTypeString:
		s, err := readString(ctx, r, count)
		if err != nil {
			return v, err
		}
		v.String = s
	case BaseTypeEnum, BaseTypeUint8:
		for i := 0; i < count; i++ {
			x, err := readU8(ctx, r)
			if err != nil {
				return v, err
			}
			v.Uints8 = append(v.Uints8, x)
		}
	case BaseTypeUint8z:
		for i := 0; i < count; i++ {
			x, err := readU8(ctx, r)
			if err != nil {
				return v, err
			}
			v.Uints8 = append(v.Uints8, x)
		}
	case BaseTypeSint8:
		for i := 0; i < count; i++ {
			x, err := readI8(ctx, r)
			if err != nil {
				return v, err
			}
			v.Sints8 = append(v.Sints8, x)
		}
	case BaseTypeByte:
		raw, err := readRaw(ctx, r, count)
		if err != nil {
			return v, err
		}
		v.Bytes = raw
	case BaseTypeSint16:
		for i := 0; i < count; i++ {
			x, err := readI16(ctx, r)
			if err != nil {
				return v, err
			}
			v.Sints16 = append(v.Sints16, x)
		}
	case BaseTypeUint16, BaseTypeUint16z:
		for i := 0; i < count; i++ {
			x, err := readU16(ctx, r)
			if err != nil {
				return v, err
			}
			v.Uints16 = append(v.Uints16, x)
		}
	case BaseTypeSint32:
		for i := 0; i < count; i++ {
			x, err := readI32(ctx, r)
			if err != nil {
				return v, err
			}
			v.Sints32 = append(v.Sints32, x)
		}
	case BaseTypeUint32, BaseTypeUint32z:
		for i := 0; i < count; i++ {
			x, err := readU32(ctx, r)
			if err != nil {
				return v, err
			}
			v.Uints32 = append(v.Uints32, x)
		}
	case BaseTypeFloat32:
		for i := 0; i < count; i++ {
			x, err := readF32(ctx, r)
			if err != nil {
				return v, err
			}
			v.Float32s = append(v.Float32s, x)
		}
	case BaseTypeFloat64:
		for i := 0; i < count; i++ {
			x, err := readF64(ctx, r)
			if err != nil {
				return v, err
			}
			v.Float64s = append(v.Float64s, x)
		}
	case BaseTypeSint64:
		for i := 0; i < count; i++ {
			x, err := readI64(ctx, r)
			if err != nil {
				return v, err
			}
			v.Sints64 = append(v.Sints64, x)
		}
	case BaseTypeUint64, BaseTypeUint64z:
		for i := 0; i < count; i++ {
			x, err := readU64(ctx, r)
			if err != nil {
				return v, err
			}
			v.Uints64 = append(v.Uints64, x)
		}
	default:
		return v, newProtocolError("read field", fmt.Sprintf("unknown base type id %#02x", uint8(t)))
	}
	return v, nil
}
