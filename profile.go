// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FieldProfile is the external profile's metadata for one field of one
// message: its name, units, optional scale/offset, and FIT type name
// (used for enum/date_time projection), as described by spec §4.H.
type FieldProfile struct {
	Name     string
	Units    string
	TypeName string
	HasScale bool
	Scale    float64
	HasOffset bool
	Offset   float64
}

// MessageProfile names a global message and indexes its field profiles by
// field_defn_num.
type MessageProfile struct {
	Name   string
	Fields map[uint8]FieldProfile
}

// Profile is the external, read-only-after-construction message/type
// dictionary spec §1 treats as an opaque collaborator: message/field
// lookup by number, and type-name -> enum symbol lookup. It is safe to
// share by reference across many streams (spec §5).
type Profile interface {
	Message(globalNum uint16) (MessageProfile, bool)
	Field(globalNum uint16, fieldDefNum uint8) (FieldProfile, bool)
	Symbol(typeName string, value int64) (string, bool)
}

// tomlProfileDoc is the on-disk shape a TOMLProfile decodes.
type tomlProfileDoc struct {
	Messages map[string]tomlMessage `toml:"messages"`
	Enums    map[string]map[string]string `toml:"enums"` // type name -> value string -> symbol
}

type tomlMessage struct {
	Num    uint16               `toml:"num"`
	Name   string               `toml:"name"`
	Fields map[string]tomlField `toml:"fields"` // field_defn_num (string) -> field
}

type tomlField struct {
	Name     string  `toml:"name"`
	Units    string  `toml:"units"`
	Type     string  `toml:"type"`
	Scale    float64 `toml:"scale"`
	HasScale bool    `toml:"has_scale"`
	Offset   float64 `toml:"offset"`
	HasOffset bool   `toml:"has_offset"`
}

// TOMLProfile is a Profile backed by a TOML document, the way
// holocm-holo-build loads its package-build manifests with
// github.com/BurntSushi/toml.
type TOMLProfile struct {
	byNum map[uint16]MessageProfile
	enums map[string]map[int64]string
}

// NewTOMLProfile loads a profile from the TOML document in data.
func NewTOMLProfile(data []byte) (*TOMLProfile, error) {
	var doc tomlProfileDoc
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("fit: decode profile: %w", err)
	}

	p := &TOMLProfile{
		byNum: make(map[uint16]MessageProfile, len(doc.Messages)),
		enums: make(map[string]map[int64]string, len(doc.Enums)),
	}
	for _, m := range doc.Messages {
		mp := MessageProfile{Name: m.Name, Fields: make(map[uint8]FieldProfile, len(m.Fields))}
		for key, f := range m.Fields {
			var num uint8
			if _, err := fmt.Sscanf(key, "%d", &num); err != nil {
				return nil, fmt.Errorf("fit: decode profile: message %q field key %q: %w", m.Name, key, err)
			}
			mp.Fields[num] = FieldProfile{
				Name: f.Name, Units: f.Units, TypeName: f.Type,
				HasScale: f.HasScale, Scale: f.Scale,
				HasOffset: f.HasOffset, Offset: f.Offset,
			}
		}
		p.byNum[m.Num] = mp
	}
	for typeName, symbols := range doc.Enums {
		vals := make(map[int64]string, len(symbols))
		for valStr, symbol := range symbols {
			var v int64
			if _, err := fmt.Sscanf(valStr, "%d", &v); err != nil {
				continue
			}
			vals[v] = symbol
		}
		p.enums[typeName] = vals
	}
	return p, nil
}

// LoadTOMLProfile reads and decodes a profile document from a file path,
// mirroring the file-based entry point BurntSushi/toml callers typically
// reach for first (TOMLProfile data is otherwise indistinguishable from
// an embedded/[]byte-backed profile).
func LoadTOMLProfile(path string) (*TOMLProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewTOMLProfile(data)
}

func (p *TOMLProfile) Message(globalNum uint16) (MessageProfile, bool) {
	m, ok := p.byNum[globalNum]
	return m, ok
}

func (p *TOMLProfile) Field(globalNum uint16, fieldDefNum uint8) (FieldProfile, bool) {
	m, ok := p.byNum[globalNum]
	if !ok {
		return FieldProfile{}, false
	}
	f, ok := m.Fields[fieldDefNum]
	return f, ok
}

func (p *TOMLProfile) Symbol(typeName string, value int64) (string, bool) {
	vals, ok := p.enums[typeName]
	if !ok {
		return "", false
	}
	s, ok := vals[value]
	return s, ok
}

// Stats accumulates the unknown-message/unknown-field tally a Project
// call can optionally report into, mirroring the UnknownMessages/
// UnknownFields maps the tormoder/gofit reference reader keeps on its
// decoded *Fit value. Nil is a valid *Stats receiver for every method
// here (a caller that doesn't care passes nil to Project).
type Stats struct {
	UnknownMessages map[uint16]int
	UnknownFields   map[string]int
}

func (s *Stats) noteUnknownMessage(globalNum uint16) {
	if s == nil {
		return
	}
	if s.UnknownMessages == nil {
		s.UnknownMessages = make(map[uint16]int)
	}
	s.UnknownMessages[globalNum]++
}

func (s *Stats) noteUnknownField(globalNum uint16, fieldDefNum uint8) {
	if s == nil {
		return
	}
	if s.UnknownFields == nil {
		s.UnknownFields = make(map[string]int)
	}
	s.UnknownFields[fmt.Sprintf("%d/%d", globalNum, fieldDefNum)]++
}

// Project renders rec as a neutral, JSON-renderable tree (spec §4.H): an
// enclosing message name plus a map of field name -> projected value.
// Projection applies, in order: enum symbol lookup, date_time RFC-3339
// formatting, scale/offset, and the semicircles units transform. Arrays
// project element-wise. Fields the profile does not describe, and all
// developer fields, are emitted as raw decoded values under field_<num> and
// dev_<index>_<num> keys. Non-data records project under a fixed name
// ("definition_message" or "end_of_file") to a tree holding their local and
// global message numbers or their trailer CRC.
func Project(rec Record, p Profile, stats *Stats) (name string, tree map[string]any, err error) {
	switch rec.Kind {
	case RecordDefinition:
		return "definition_message", map[string]any{
			"local_message_type":   rec.Definition.LocalMessageType,
			"global_message_number": rec.Definition.GlobalMessageNumber,
		}, nil
	case RecordEndOfFile:
		return "end_of_file", map[string]any{"crc": rec.EOF}, nil
	}

	msg := rec.Data
	mp, ok := p.Message(msg.GlobalMessageNumber)
	if !ok {
		stats.noteUnknownMessage(msg.GlobalMessageNumber)
		name = fmt.Sprintf("mesg_%d", msg.GlobalMessageNumber)
	} else {
		name = mp.Name
	}

	tree = make(map[string]any, len(msg.Fields)+len(msg.DevFields))
	for _, f := range msg.Fields {
		fp, ok := p.Field(msg.GlobalMessageNumber, f.FieldDefNum)
		if !ok {
			stats.noteUnknownField(msg.GlobalMessageNumber, f.FieldDefNum)
			tree[fmt.Sprintf("field_%d", f.FieldDefNum)] = projectRaw(f.Value)
			continue
		}
		tree[fp.Name] = projectField(f.Value, fp, p)
	}
	for _, f := range msg.DevFields {
		key := fmt.Sprintf("dev_%d_%d", f.DevDataIndex, f.FieldDefNum)
		tree[key] = projectRaw(f.Value)
	}
	return name, tree, nil
}

// projectField applies the enum/date_time/scale-offset/units pipeline to
// a single field's value, mapping element-wise over arrays.
func projectField(v FieldValue, fp FieldProfile, p Profile) any {
	n := v.Len()
	if n == 0 {
		return nil
	}
	if n == 1 {
		return projectScalar(v, 0, fp, p)
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = projectScalar(v, i, fp, p)
	}
	return out
}

func projectScalar(v FieldValue, i int, fp FieldProfile, p Profile) any {
	if v.Type == BaseTypeString {
		return v.String
	}

	raw, ok := v.Int64At(i)
	if !ok {
		f, ok := v.Float64At(i)
		if !ok {
			return nil
		}
		return applyScaleOffsetUnits(f, fp)
	}

	if sym, ok := p.Symbol(fp.TypeName, raw); ok {
		return sym
	}

	if fp.TypeName == "date_time" {
		return Epoch.Add(time.Duration(raw) * time.Second).Format(time.RFC3339)
	}

	return applyScaleOffsetUnits(float64(raw), fp)
}

// applyScaleOffsetUnits implements spec §4.H steps (iii) and (iv): scale/
// offset (offset defaults to 0, scale to 1) then the semicircles units
// transform.
func applyScaleOffsetUnits(value float64, fp FieldProfile) float64 {
	scale := 1.0
	if fp.HasScale {
		scale = fp.Scale
	}
	offset := 0.0
	if fp.HasOffset {
		offset = fp.Offset
	}
	out := (value - offset) / scale
	if fp.Units == "semicircles" {
		out /= semicirclesDivisor
	}
	return out
}

// projectRaw renders a value with no profile entry as its plain decoded
// form, with no enum/date_time/scale projection applied.
func projectRaw(v FieldValue) any {
	n := v.Len()
	if v.Type == BaseTypeString {
		return v.String
	}
	if n == 0 {
		return nil
	}
	if n == 1 {
		x, _ := v.Int64At(0)
		if v.Type == BaseTypeFloat32 || v.Type == BaseTypeFloat64 {
			f, _ := v.Float64At(0)
			return f
		}
		if v.Type == BaseTypeByte {
			return v.Bytes
		}
		return x
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		if v.Type == BaseTypeFloat32 || v.Type == BaseTypeFloat64 {
			f, _ := v.Float64At(i)
			out[i] = f
			continue
		}
		x, _ := v.Int64At(i)
		out[i] = x
	}
	return out
}
