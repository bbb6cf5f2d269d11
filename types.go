// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import "fmt"

// BaseType identifies one of the 17 FIT wire types. The numeric value is
// the low 5 bits of the on-wire base_type byte (bits 5-6 are reserved and
// bit 7 is the endian-sensitive flag; all three are masked off before
// conversion, see DecodeBaseTypeByte).
type BaseType uint8

// The 17 FIT base type variants.
const (
	BaseTypeEnum    BaseType = 0x00
	BaseTypeSint8   BaseType = 0x01
	BaseTypeUint8   BaseType = 0x02
	BaseTypeSint16  BaseType = 0x03
	BaseTypeUint16  BaseType = 0x04
	BaseTypeSint32  BaseType = 0x05
	BaseTypeUint32  BaseType = 0x06
	BaseTypeString  BaseType = 0x07
	BaseTypeFloat32 BaseType = 0x08
	BaseTypeFloat64 BaseType = 0x09
	BaseTypeUint8z  BaseType = 0x0A
	BaseTypeUint16z BaseType = 0x0B
	BaseTypeUint32z BaseType = 0x0C
	BaseTypeByte    BaseType = 0x0D
	BaseTypeSint64  BaseType = 0x0E
	BaseTypeUint64  BaseType = 0x0F
	BaseTypeUint64z BaseType = 0x10
)

// endianSensitiveBit is set in the on-wire base_type byte for any type
// whose element width is greater than one byte.
const endianSensitiveBit = 0x80

// baseTypeInfo is the per-variant metadata spec §3's type table describes:
// element width in bytes (0 for the variable-width string type) and the
// bit pattern that denotes "invalid"/unset for a single element.
type baseTypeInfo struct {
	name    string
	size    int
	invalid uint64
}

var baseTypeTable = map[BaseType]baseTypeInfo{
	BaseTypeEnum:    {"enum", 1, 0xFF},
	BaseTypeSint8:   {"sint8", 1, 0x7F},
	BaseTypeUint8:   {"uint8", 1, 0xFF},
	BaseTypeSint16:  {"sint16", 2, 0x7FFF},
	BaseTypeUint16:  {"uint16", 2, 0xFFFF},
	BaseTypeSint32:  {"sint32", 4, 0x7FFFFFFF},
	BaseTypeUint32:  {"uint32", 4, 0xFFFFFFFF},
	BaseTypeString:  {"string", 0, 0},
	BaseTypeFloat32: {"f32", 4, 0xFFFFFFFF},
	BaseTypeFloat64: {"f64", 8, 0xFFFFFFFFFFFFFFFF},
	BaseTypeUint8z:  {"u8z", 1, 0x00},
	BaseTypeUint16z: {"u16z", 2, 0x00},
	BaseTypeUint32z: {"u32z", 4, 0x00},
	BaseTypeByte:    {"byte", 1, 0xFF},
	BaseTypeSint64:  {"sint64", 8, 0x7FFFFFFFFFFFFFFF},
	BaseTypeUint64:  {"uint64", 8, 0xFFFFFFFFFFFFFFFF},
	BaseTypeUint64z: {"uint64z", 8, 0x00},
}

// SizeOf returns the element width, in bytes, of t. Strings return 0 since
// their width is declared per-field, not per-type.
func SizeOf(t BaseType) (int, error) {
	info, ok := baseTypeTable[t]
	if !ok {
		return 0, newProtocolError("size_of", fmt.Sprintf("unknown base type id %#02x", uint8(t)))
	}
	return info.size, nil
}

// TagFromID validates that id names one of the 17 base types and returns
// it as a BaseType.
func TagFromID(id uint8) (BaseType, error) {
	t := BaseType(id)
	if _, ok := baseTypeTable[t]; !ok {
		return 0, newProtocolError("tag_from_id", fmt.Sprintf("unknown base type id %#02x", id))
	}
	return t, nil
}

// IDOf returns the on-wire type id (low 5 bits of the base_type byte) for t.
func IDOf(t BaseType) uint8 {
	return uint8(t)
}

// IsEndianSensitive reports whether values of t are wider than one byte
// and therefore depend on the governing definition's architecture.
func IsEndianSensitive(t BaseType) bool {
	info, ok := baseTypeTable[t]
	return ok && info.size > 1
}

// Name returns the canonical lowercase FIT type name for t, e.g. "uint16".
func Name(t BaseType) string {
	if info, ok := baseTypeTable[t]; ok {
		return info.name
	}
	return ""
}

// NameToTag resolves a canonical type name back to its BaseType.
func NameToTag(name string) (BaseType, error) {
	for t, info := range baseTypeTable {
		if info.name == name {
			return t, nil
		}
	}
	return 0, newProtocolError("name_to_tag", fmt.Sprintf("unknown base type name %q", name))
}

// invalidPattern returns the bit pattern that marks a single element of t
// as invalid/unset.
func invalidPattern(t BaseType) uint64 {
	return baseTypeTable[t].invalid
}

// DecodeBaseTypeByte splits an on-wire base_type byte into its type id
// (the low 5 bits; reserved bits 5-6 and the endian-sensitive flag bit 7
// are masked off) and whether the endian-sensitive flag was set.
func DecodeBaseTypeByte(b uint8) (t BaseType, endianFlag bool, err error) {
	endianFlag = b&endianSensitiveBit != 0
	t, err = TagFromID(b & 0x1F)
	return t, endianFlag, err
}

// EncodeBaseTypeByte builds the on-wire base_type byte for t, setting the
// endian-sensitive flag automatically.
func EncodeBaseTypeByte(t BaseType) uint8 {
	b := IDOf(t)
	if IsEndianSensitive(t) {
		b |= endianSensitiveBit
	}
	return b
}

// FieldValue is the typed payload carried by one field of a decoded
// message: a base type tag plus a homogeneous element sequence. At most
// one of the typed slices is non-nil, selected by Type; String is used
// only when Type == BaseTypeString and counts as one element, or none when
// it is empty (see Len).
//
// Modeling this as a sum type (rather than []interface{} or a single
// reflect-driven container) keeps every encode/decode site an exhaustive
// switch over Type, which is what catches a missed variant at review time
// instead of at a runtime type assertion.
type FieldValue struct {
	Type     BaseType
	Sints8   []int8
	Uints8   []uint8
	Sints16  []int16
	Uints16  []uint16
	Sints32  []int32
	Uints32  []uint32
	Float32s []float32
	Float64s []float64
	Sints64  []int64
	Uints64  []uint64
	Bytes    []byte // BaseTypeByte (opaque) payload
	String   string
}

// Len returns the element count of v.
func (v FieldValue) Len() int {
	switch v.Type {
	case BaseTypeEnum, BaseTypeUint8z:
		return len(v.Uints8)
	case BaseTypeSint8:
		return len(v.Sints8)
	case BaseTypeUint8:
		return len(v.Uints8)
	case BaseTypeSint16:
		return len(v.Sints16)
	case BaseTypeUint16, BaseTypeUint16z:
		return len(v.Uints16)
	case BaseTypeSint32:
		return len(v.Sints32)
	case BaseTypeUint32, BaseTypeUint32z:
		return len(v.Uints32)
	case BaseTypeFloat32:
		return len(v.Float32s)
	case BaseTypeFloat64:
		return len(v.Float64s)
	case BaseTypeByte:
		return len(v.Bytes)
	case BaseTypeSint64:
		return len(v.Sints64)
	case BaseTypeUint64, BaseTypeUint64z:
		return len(v.Uints64)
	case BaseTypeString:
		if v.String == "" {
			return 0
		}
		return 1
	default:
		return 0
	}
}

// Int64At returns the value of element i widened to int64, for use by the
// timestamp check and the profile projection's numeric paths. It reports
// ok=false for string/byte types and out-of-range indices.
func (v FieldValue) Int64At(i int) (val int64, ok bool) {
	switch v.Type {
	case BaseTypeEnum:
		if i < len(v.Uints8) {
			return int64(v.Uints8[i]), true
		}
	case BaseTypeSint8:
		if i < len(v.Sints8) {
			return int64(v.Sints8[i]), true
		}
	case BaseTypeUint8, BaseTypeUint8z:
		if i < len(v.Uints8) {
			return int64(v.Uints8[i]), true
		}
	case BaseTypeSint16:
		if i < len(v.Sints16) {
			return int64(v.Sints16[i]), true
		}
	case BaseTypeUint16, BaseTypeUint16z:
		if i < len(v.Uints16) {
			return int64(v.Uints16[i]), true
		}
	case BaseTypeSint32:
		if i < len(v.Sints32) {
			return int64(v.Sints32[i]), true
		}
	case BaseTypeUint32, BaseTypeUint32z:
		if i < len(v.Uints32) {
			return int64(v.Uints32[i]), true
		}
	case BaseTypeSint64:
		if i < len(v.Sints64) {
			return v.Sints64[i], true
		}
	case BaseTypeUint64, BaseTypeUint64z:
		if i < len(v.Uints64) {
			return int64(v.Uints64[i]), true
		}
	}
	return 0, false
}

// Float64At returns element i widened to float64, covering the integral
// and floating variants; used by profile projection.
func (v FieldValue) Float64At(i int) (val float64, ok bool) {
	if v.Type == BaseTypeFloat32 {
		if i < len(v.Float32s) {
			return float64(v.Float32s[i]), true
		}
		return 0, false
	}
	if v.Type == BaseTypeFloat64 {
		if i < len(v.Float64s) {
			return v.Float64s[i], true
		}
		return 0, false
	}
	iv, ok := v.Int64At(i)
	return float64(iv), ok
}
