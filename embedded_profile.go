// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

// embeddedProfileTOML is a small, self-contained message/field/enum
// catalog covering the messages spec §8's fixtures exercise: file_id,
// user_profile, and field_description, plus the date_time type name the
// projection pipeline special-cases (no field here has semicircles
// units). A real
// deployment supplies its own (far larger) profile via NewTOMLProfile/
// LoadTOMLProfile; this one exists so DefaultProfile() works out of the
// box for the fixtures in this repository's tests.
const embeddedProfileTOML = `
[messages.file_id]
num = 0
name = "file_id"

  [messages.file_id.fields.0]
  name = "type"
  type = "enum"

  [messages.file_id.fields.1]
  name = "manufacturer"
  type = "uint16"

  [messages.file_id.fields.2]
  name = "product"
  type = "uint16"

  [messages.file_id.fields.3]
  name = "serial_number"
  type = "uint32z"

  [messages.file_id.fields.4]
  name = "time_created"
  type = "date_time"

[messages.user_profile]
num = 3
name = "user_profile"

  [messages.user_profile.fields.0]
  name = "friendly_name"
  type = "string"

  [messages.user_profile.fields.1]
  name = "gender"
  type = "enum"

  [messages.user_profile.fields.2]
  name = "age"
  type = "uint8"
  units = "years"

  [messages.user_profile.fields.3]
  name = "height"
  type = "uint8"
  units = "m"
  has_scale = true
  scale = 100

  [messages.user_profile.fields.4]
  name = "weight"
  type = "uint16"
  units = "kg"
  has_scale = true
  scale = 10

[messages.field_description]
num = 206
name = "field_description"

  [messages.field_description.fields.0]
  name = "developer_data_index"
  type = "uint8"

  [messages.field_description.fields.1]
  name = "field_definition_number"
  type = "uint8"

  [messages.field_description.fields.2]
  name = "fit_base_type_id"
  type = "uint8"

  [messages.field_description.fields.3]
  name = "field_name"
  type = "string"

  [messages.field_description.fields.6]
  name = "scale"
  type = "uint8"

  [messages.field_description.fields.7]
  name = "offset"
  type = "sint8"

  [messages.field_description.fields.8]
  name = "units"
  type = "string"

[enums.gender]
0 = "female"
1 = "male"
`

// DefaultProfile returns the embedded minimal Profile described above. Its
// error is always nil; it is returned anyway so callers treat it like any
// other Profile constructor.
func DefaultProfile() (*TOMLProfile, error) {
	return NewTOMLProfile([]byte(embeddedProfileTOML))
}
