// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import "io"

// VerifyCRC reads a full FIT stream from r, discarding every record, and
// reports whether the header (when it carries one) and trailer CRCs check
// out. It does not materialize the record stream, mirroring the
// tormoder/gofit reference reader's CheckIntegrity/DecodeHeader family of
// cheap up-front verification helpers (ported here as a supplemented
// feature; see SPEC_FULL.md §10).
func VerifyCRC(r io.Reader) error {
	d := NewDecoder(r, nil)
	if _, err := d.ReadHeader(); err != nil {
		return err
	}
	for {
		rec, err := d.Next()
		if err != nil {
			return err
		}
		if rec.Kind == RecordEndOfFile {
			return nil
		}
	}
}
