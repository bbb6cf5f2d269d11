// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package fit implements a codec for the FIT (Flexible and Interoperable
// data Transfer) binary file format used by fitness and activity devices.
//
// The codec reads a FIT byte stream into a typed record model and writes
// that model back to a byte-identical stream. It does not interpret
// activity semantics (laps, GPS tracks); it only speaks the wire protocol:
// interleaved definition/data messages, the 17-variant base type system,
// developer field extensions, and the running CRC that frames every file.
package fit

import "time"

// Well-known global message numbers referenced directly by the codec
// (definition ingestion and fixture decoding touch these; the rest of the
// message catalog lives in the Profile).
const (
	MesgNumFileID           uint16 = 0
	MesgNumUserProfile      uint16 = 3
	MesgNumFieldDescription uint16 = 206
)

// Reserved field definition numbers.
const (
	// FieldNumTimestamp is the field_defn_num that marks a message's
	// record timestamp (uint32 seconds since Epoch).
	FieldNumTimestamp uint8 = 253

	// invalidFieldDefNum is never a legal field_defn_num.
	invalidFieldDefNum uint8 = 0xFF
)

// field_description (#206) field numbers, used to ingest developer field
// schema entries (see (*Decoder).ingestFieldDescription).
const (
	fieldDescDevDataIndex  uint8 = 0
	fieldDescFieldDefNum   uint8 = 1
	fieldDescBaseTypeID    uint8 = 2
	fieldDescFieldName     uint8 = 3
	fieldDescScale         uint8 = 6
	fieldDescOffset        uint8 = 7
	fieldDescUnits         uint8 = 8
)

// Epoch is the FIT epoch: all FIT timestamps are seconds-since-Epoch,
// rather than Unix time.
var Epoch = time.Date(1989, time.December, 31, 0, 0, 0, 0, time.UTC)

// semicirclesDivisor is the units transform applied to fields whose
// profile units are "semicircles" during projection.
const semicirclesDivisor = 1e7
