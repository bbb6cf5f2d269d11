// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"bytes"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/go-kratos/kratos/v2/log"
)

// MaxDefaultRecords is the default record-count ceiling a caller may
// choose to enforce (see cmd/fitdump), mirroring the teacher's
// MaxDefaultCOFFSymbolsCount/MaxDefaultRelocEntriesCount pattern of
// defending against pathological or corrupt inputs. The codec itself
// treats MaxRecords == 0 as unbounded.
const MaxDefaultRecords = 1_000_000

// Options configures a Decoder or Encoder.
type Options struct {
	// ReservedBitsZero, when true (the default), makes a non-zero reserved
	// bit in a record header a fatal ProtocolError. When false, it is
	// downgraded to a logged warning and decoding continues.
	ReservedBitsZero *bool

	// MaxRecords caps the number of records Next will return before
	// failing closed; zero means unbounded.
	MaxRecords uint32

	// Logger receives diagnostic output. A nil Logger falls back to a
	// stdout logger filtered to error level.
	Logger log.Logger
}

func (o Options) reservedBitsZero() bool {
	if o.ReservedBitsZero == nil {
		return true
	}
	return *o.ReservedBitsZero
}

// resolveOptions returns a copy of opts, or the zero Options when opts is
// nil. Defaults for unset fields are applied where they are read
// (Options.reservedBitsZero, newHelper).
func resolveOptions(opts *Options) Options {
	if opts == nil {
		return Options{}
	}
	return *opts
}

// Open memory-maps the named file and returns a Decoder reading from it.
// The returned *os.File must be closed by the caller once the Decoder (and
// any byte slices derived from it) are no longer needed.
func Open(name string, opts *Options) (*Decoder, *os.File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return NewDecoder(bytes.NewReader(data), opts), f, nil
}

// OpenBytes returns a Decoder reading FIT records from an in-memory
// buffer.
func OpenBytes(data []byte, opts *Options) *Decoder {
	return NewDecoder(bytes.NewReader(data), opts)
}
