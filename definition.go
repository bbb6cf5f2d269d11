// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import "fmt"

// Architecture is the per-definition byte order for the data messages it
// governs.
type Architecture uint8

const (
	LittleEndian Architecture = 0
	BigEndian    Architecture = 1

	// archUnset is the sentinel Context.arch starts at; no definition has
	// yet installed an architecture for multi-byte I/O to use.
	archUnset Architecture = 0xFF
)

// FieldDef is one field of a definition message: the field number the
// profile keys off of, its on-wire byte width, and its base type.
type FieldDef struct {
	FieldDefNum  uint8
	SizeInBytes  uint8
	Type         BaseType
	EndianFlag   bool // as read off the wire; re-derived from Type on write
}

// Count returns the element count this field def implies: size/width for
// fixed-width types, size_in_bytes itself for strings.
func (f FieldDef) Count() (int, error) {
	if f.Type == BaseTypeString {
		return int(f.SizeInBytes), nil
	}
	width, err := SizeOf(f.Type)
	if err != nil {
		return 0, err
	}
	if width == 0 || int(f.SizeInBytes)%width != 0 {
		return 0, newProtocolError("field def",
			fmt.Sprintf("size_in_bytes %d not a multiple of type width %d", f.SizeInBytes, width))
	}
	return int(f.SizeInBytes) / width, nil
}

// DevFieldDef is one developer field of a definition message. Its base
// type is not inline; it is resolved via DevDataIndex/FieldDefNum against
// the stream's developer schema at decode/encode time.
type DevFieldDef struct {
	FieldDefNum  uint8
	SizeInBytes  uint8
	DevDataIndex uint8
}

// Definition is a fully parsed definition message: the architecture that
// governs its data messages, the global message it instantiates, the
// local slot it occupies, and its ordered field/developer-field defs.
type Definition struct {
	Architecture        Architecture
	GlobalMessageNumber uint16
	LocalMessageType    uint8
	Fields              []FieldDef
	DevFields           []DevFieldDef
}

// DeveloperSchemaEntry is a developer field's schema, ingested from a
// field_description (#206) data message.
type DeveloperSchemaEntry struct {
	DevDataIndex uint8
	FieldDefNum  uint8
	FieldName    string
	BaseType     BaseType
	HasScale     bool
	Scale        float64
	HasOffset    bool
	Offset       float64
	Units        string
}

// devSchemaKey is the registry key spec's "Open question" resolves as
// (dev_data_index, field_defn_num), not field_defn_num alone.
type devSchemaKey struct {
	devDataIndex uint8
	fieldDefNum  uint8
}

// DefinitionRegistry is the per-stream table described in spec §3/§4.D:
// local message type (0-15) -> definition, and developer schema keyed by
// (dev_data_index, field_defn_num).
type DefinitionRegistry struct {
	defs      [16]*Definition
	devSchema map[devSchemaKey]*DeveloperSchemaEntry
}

// newDefinitionRegistry returns an empty registry.
func newDefinitionRegistry() *DefinitionRegistry {
	return &DefinitionRegistry{
		devSchema: make(map[devSchemaKey]*DeveloperSchemaEntry),
	}
}

// Install stores def at its local slot, silently overwriting any previous
// occupant. The FIT format explicitly permits redefinition; this is never
// treated as an error (spec §9: "Definition replacement is silent").
func (r *DefinitionRegistry) Install(def *Definition) error {
	if def.LocalMessageType > 15 {
		return newProtocolError("install definition",
			fmt.Sprintf("local message type %d out of range", def.LocalMessageType))
	}
	r.defs[def.LocalMessageType] = def
	return nil
}

// Lookup returns the definition installed at local, if any.
func (r *DefinitionRegistry) Lookup(local uint8) (*Definition, bool) {
	if local > 15 {
		return nil, false
	}
	d := r.defs[local]
	return d, d != nil
}

// Clear removes every installed definition and developer schema entry.
func (r *DefinitionRegistry) Clear() {
	for i := range r.defs {
		r.defs[i] = nil
	}
	r.devSchema = make(map[devSchemaKey]*DeveloperSchemaEntry)
}

// InstallDevSchema installs or overwrites a developer schema entry. The
// entry governs every subsequent developer field decode/encode whose
// DevFieldDef names the same (dev_data_index, field_defn_num).
func (r *DefinitionRegistry) InstallDevSchema(e *DeveloperSchemaEntry) {
	r.devSchema[devSchemaKey{e.DevDataIndex, e.FieldDefNum}] = e
}

// LookupDevSchema resolves a developer field's schema entry.
func (r *DefinitionRegistry) LookupDevSchema(devDataIndex, fieldDefNum uint8) (*DeveloperSchemaEntry, bool) {
	e, ok := r.devSchema[devSchemaKey{devDataIndex, fieldDefNum}]
	return e, ok
}
