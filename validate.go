// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"math"
	"time"
)

// Validator applies the timestamp sanity/monotonicity checks of spec
// §4.G to decoded data records. It is stateful only in that it tracks the
// last-accepted timestamp on the Context passed to Check; construct one
// Validator per stream (or reuse it across streams by passing a fresh
// Context each time).
type Validator struct {
	minOffset uint32
	maxOffset uint32
}

// NewValidator returns a Validator whose permitted timestamp window is
// [2018-01-01T00:00:00Z, now+1week], expressed as offsets from the FIT
// epoch per spec §4.G. now is passed in explicitly rather than read from
// time.Now so callers get reproducible windows in tests.
func NewValidator(now time.Time) *Validator {
	min := epochOffset(time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC))
	max := epochOffset(now.Add(7 * 24 * time.Hour))
	return &Validator{minOffset: min, maxOffset: max}
}

// epochOffset converts t to a FIT epoch offset, clamping to the u32 range
// with math.MaxUint32 reserved as "bad" (spec §4.G).
func epochOffset(t time.Time) uint32 {
	secs := t.Unix() - Epoch.Unix()
	if secs < 0 {
		return 0
	}
	if secs >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(secs)
}

// Check validates rec against ctx's last-accepted-timestamp state. Only
// data records carrying a timestamp are checked; every other record kind
// (definitions, EndOfFile) and data records without a timestamp pass
// through unchecked, per spec §4.G.
func (v *Validator) Check(ctx *Context, rec Record) error {
	if rec.Kind != RecordData {
		return nil
	}
	t, ok := recordTimestamp(rec.Data)
	if !ok {
		return nil
	}

	if t < v.minOffset || t > v.maxOffset {
		return newSemanticError("timestamp out of permitted range")
	}
	if ctx.hasAcceptedTimestamp && t < ctx.lastAcceptedTimestamp {
		return newSemanticError("timestamp monotonicity violated")
	}
	ctx.lastAcceptedTimestamp = t
	ctx.hasAcceptedTimestamp = true
	return nil
}

// recordTimestamp returns the timestamp governing msg: the compressed
// reconstituted timestamp if present, else the value of its 253 field if
// it decoded as a single uint32.
func recordTimestamp(msg *DataMessage) (uint32, bool) {
	if msg.Timestamp != nil {
		return *msg.Timestamp, true
	}
	if v, ok := msg.FieldByNum(FieldNumTimestamp); ok && v.Type == BaseTypeUint32 && v.Len() == 1 {
		return v.Uints32[0], true
	}
	return 0, false
}
