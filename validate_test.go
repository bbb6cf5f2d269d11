// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"math"
	"testing"
	"time"
)

func dataRecordWithTimestamp(ts uint32) Record {
	return Record{
		Kind: RecordData,
		Data: &DataMessage{
			GlobalMessageNumber: 20,
			Fields: []DataField{
				{FieldDefNum: FieldNumTimestamp, Value: FieldValue{Type: BaseTypeUint32, Uints32: []uint32{ts}}},
			},
		},
	}
}

func TestValidatorAcceptsWithinWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v := NewValidator(now)
	ctx := newContext(Options{})

	ts := epochOffset(now)
	if err := v.Check(ctx, dataRecordWithTimestamp(ts)); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestValidatorRejectsBeforeMinimum(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v := NewValidator(now)
	ctx := newContext(Options{})

	tooOld := epochOffset(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := v.Check(ctx, dataRecordWithTimestamp(tooOld)); err == nil {
		t.Fatal("expected error for timestamp before 2018-01-01")
	}
}

func TestValidatorRejectsBeyondFutureWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v := NewValidator(now)
	ctx := newContext(Options{})

	tooFar := epochOffset(now.Add(30 * 24 * time.Hour))
	if err := v.Check(ctx, dataRecordWithTimestamp(tooFar)); err == nil {
		t.Fatal("expected error for timestamp beyond now+1week")
	}
}

func TestValidatorMonotonicity(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v := NewValidator(now)
	ctx := newContext(Options{})

	first := epochOffset(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	second := first - 10 // earlier than first: must be rejected

	if err := v.Check(ctx, dataRecordWithTimestamp(first)); err != nil {
		t.Fatalf("Check(first): %v", err)
	}
	if err := v.Check(ctx, dataRecordWithTimestamp(second)); err == nil {
		t.Fatal("expected monotonicity violation")
	}
	// The rejected record must not have updated lastAcceptedTimestamp.
	third := first + 5
	if err := v.Check(ctx, dataRecordWithTimestamp(third)); err != nil {
		t.Fatalf("Check(third): %v", err)
	}
}

func TestValidatorNearUint32Max(t *testing.T) {
	// Scenario from the wrap-around family: a timestamp of u32::MAX-1 must
	// not be silently accepted as "the future" once it's outside the
	// permitted window computed relative to now.
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v := NewValidator(now)
	ctx := newContext(Options{})

	edge := uint32(math.MaxUint32 - 1)
	if err := v.Check(ctx, dataRecordWithTimestamp(edge)); err == nil {
		t.Fatal("expected u32::MAX-1 to fall outside the permitted window")
	}
}

func TestValidatorIgnoresNonDataRecords(t *testing.T) {
	v := NewValidator(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	ctx := newContext(Options{})
	if err := v.Check(ctx, Record{Kind: RecordDefinition, Definition: &Definition{}}); err != nil {
		t.Fatalf("Check(definition) = %v, want nil", err)
	}
	if err := v.Check(ctx, Record{Kind: RecordEndOfFile}); err != nil {
		t.Fatalf("Check(eof) = %v, want nil", err)
	}
}

func TestValidatorIgnoresDataWithoutTimestamp(t *testing.T) {
	v := NewValidator(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	ctx := newContext(Options{})
	rec := Record{Kind: RecordData, Data: &DataMessage{GlobalMessageNumber: 20}}
	if err := v.Check(ctx, rec); err != nil {
		t.Fatalf("Check(no timestamp) = %v, want nil", err)
	}
}
