// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

// Fuzz is a go-fuzz style entry point: it decodes data as a full FIT
// stream and reports whether the codec accepted it.
func Fuzz(data []byte) int {
	d := OpenBytes(data, nil)
	if _, err := d.ReadHeader(); err != nil {
		return 0
	}
	for {
		rec, err := d.Next()
		if err != nil {
			return 0
		}
		if rec.Kind == RecordEndOfFile {
			return 1
		}
	}
}
