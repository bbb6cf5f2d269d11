// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"encoding/binary"
	"io"
)

// fitSignature is the literal 4-byte signature every FIT file carries
// after its header fields.
var fitSignature = [4]byte{'.', 'F', 'I', 'T'}

// FileHeader is the 12- or 14-byte header that opens every FIT stream
// (spec §3 "File header").
type FileHeader struct {
	HeaderSize     uint8
	ProtocolVer    uint8
	ProfileVer     uint16
	DataSize       uint32
	CRC            uint16 // only meaningful when HeaderSize == 14
	HasHeaderCRC   bool
}

// readFileHeader reads and validates a FIT file header directly from r.
// Header bytes are read outside of any Context, so they do not count toward
// the body byte counter; (*Decoder).ReadHeader feeds them to the stream CRC,
// because the trailer CRC covers header and body.
//
// header_size is not required to be exactly 12 or 14: the header CRC is
// present whenever header_size >= 14, and any bytes header_size claims
// beyond what was actually read are drained and discarded, matching the
// original implementation's read_global_header (fitheader.rs), which
// only rejects an invalid header_size at write time.
func readFileHeader(r io.Reader) (FileHeader, error) {
	buf := make([]byte, 12)
	if _, err := io.ReadFull(r, buf); err != nil {
		return FileHeader{}, err
	}

	h := FileHeader{
		HeaderSize:  buf[0],
		ProtocolVer: buf[1],
		ProfileVer:  binary.LittleEndian.Uint16(buf[2:4]),
		DataSize:    binary.LittleEndian.Uint32(buf[4:8]),
	}
	if [4]byte(buf[8:12]) != fitSignature {
		return FileHeader{}, newProtocolError("read file header", "missing .FIT signature")
	}

	bytesRead := uint32(12)

	if h.HeaderSize >= 14 {
		crcBuf := make([]byte, 2)
		if _, err := io.ReadFull(r, crcBuf); err != nil {
			return FileHeader{}, err
		}
		h.CRC = binary.LittleEndian.Uint16(crcBuf)
		h.HasHeaderCRC = true
		bytesRead += 2

		if h.CRC != 0 {
			check := NewCRC(0)
			check.Consume(buf)
			if got := check.Digest(); got != h.CRC {
				return FileHeader{}, &CrcError{Which: "header", Want: h.CRC, Got: got}
			}
		}
	}

	for uint32(h.HeaderSize) > bytesRead {
		if _, err := io.ReadFull(r, make([]byte, 1)); err != nil {
			return FileHeader{}, err
		}
		bytesRead++
	}

	return h, nil
}

// writeFileHeader writes h's 12-byte form followed by its CRC when
// HeaderSize >= 14, recomputing the CRC over the 12 bytes just written.
// Unlike the read side, header_size > 14 is rejected outright here: the
// original implementation's write_global_header (fitheader.rs) only ever
// emits 12 or 14 bytes, so a caller asking for more has no bytes for this
// function to fill in and is almost certainly building a malformed header.
func writeFileHeader(w io.Writer, h FileHeader) error {
	if h.HeaderSize > 14 {
		return newProtocolError("write file header", "header_size must not exceed 14")
	}

	buf := make([]byte, 12)
	buf[0] = h.HeaderSize
	buf[1] = h.ProtocolVer
	binary.LittleEndian.PutUint16(buf[2:4], h.ProfileVer)
	binary.LittleEndian.PutUint32(buf[4:8], h.DataSize)
	copy(buf[8:12], fitSignature[:])

	if _, err := w.Write(buf); err != nil {
		return err
	}
	if h.HeaderSize >= 14 {
		check := NewCRC(0)
		check.Consume(buf)
		crcBuf := make([]byte, 2)
		binary.LittleEndian.PutUint16(crcBuf, check.Digest())
		if _, err := w.Write(crcBuf); err != nil {
			return err
		}
	}
	return nil
}

// readTrailerCRC reads the 2-byte little-endian trailer CRC directly,
// without feeding it into any running CRC accumulator.
func readTrailerCRC(r io.Reader) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}
