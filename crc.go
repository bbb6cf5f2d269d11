// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

// crcTable is the FIT 16-bit nibble CRC table (FIT SDK, "CRC-16 Algorithm").
var crcTable = [16]uint16{
	0x0000, 0xCC01, 0xD801, 0x1400,
	0xF001, 0x3C00, 0x2800, 0xE401,
	0xA001, 0x6C00, 0x7800, 0xB401,
	0x5000, 0x9C01, 0x8801, 0x4400,
}

// CRC accumulates the FIT CRC-16 over a sequence of bytes. It is used both
// for the header self-check and for the header+body trailer check; the
// zero value is a valid, reset engine.
type CRC struct {
	crc uint16
}

// NewCRC returns a CRC engine with the running value seeded to seed. Most
// callers want the zero value (seed 0); NewCRC exists for the fixed test
// vectors in spec §8, which seed a non-zero running value.
func NewCRC(seed uint16) *CRC {
	return &CRC{crc: seed}
}

// consumeByte folds a single byte into the running CRC, low nibble then
// high nibble, per the FIT CRC-16 algorithm.
func (c *CRC) consumeByte(b byte) {
	tmp := crcTable[c.crc&0xF]
	c.crc = (c.crc >> 4) & 0x0FFF
	c.crc = c.crc ^ tmp ^ crcTable[b&0xF]

	tmp = crcTable[c.crc&0xF]
	c.crc = (c.crc >> 4) & 0x0FFF
	c.crc = c.crc ^ tmp ^ crcTable[(b>>4)&0xF]
}

// Consume folds bytes into the running CRC.
func (c *CRC) Consume(bytes []byte) {
	for _, b := range bytes {
		c.consumeByte(b)
	}
}

// Digest returns the current running CRC value.
func (c *CRC) Digest() uint16 {
	return c.crc
}

// Reset zeroes the running CRC.
func (c *CRC) Reset() {
	c.crc = 0
}

// Write implements io.Writer, so a *CRC can sit as the sink of an
// io.TeeReader/io.MultiWriter the way tormoder/gofit's dyncrc16.Hash16
// does. It never returns an error.
func (c *CRC) Write(p []byte) (int, error) {
	c.Consume(p)
	return len(p), nil
}

// Sum16 returns the current digest, satisfying the conventional
// hash.Hash16-shaped interface used by CRC sinks in this ecosystem.
func (c *CRC) Sum16() uint16 {
	return c.crc
}
