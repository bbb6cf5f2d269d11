// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

// Context is the mutable state threaded through one read or one write of a
// FIT stream: the running CRC, the body byte counter, the architecture
// currently in force, the last-seen timestamp (for compressed-header
// reconstitution), the definition registry, and the policy flags that
// govern how strictly the wire is checked.
//
// It is an explicit value passed by pointer through every I/O call, never
// ambient/global state (spec design note: "Context as an explicit value").
// A Context's lifetime is exactly one stream; the Decoder/Encoder that
// owns it discards it at EOF or Finalize.
type Context struct {
	crc   *CRC
	count uint32

	arch Architecture

	timestamp             uint32
	lastAcceptedTimestamp uint32
	hasAcceptedTimestamp  bool

	registry *DefinitionRegistry

	reservedBitsZero bool
}

// newContext returns a freshly initialized Context honoring opts.
func newContext(opts Options) *Context {
	return &Context{
		crc:              NewCRC(0),
		arch:             archUnset,
		registry:         newDefinitionRegistry(),
		reservedBitsZero: opts.reservedBitsZero(),
	}
}

// Architecture returns the architecture currently governing multi-byte
// I/O, as installed by the most recently processed definition message for
// the local id in play.
func (c *Context) Architecture() Architecture { return c.arch }

// SetArchitecture installs the architecture for subsequent data on this
// context; it is switched every time a definition message is installed or
// a data message under a previously installed definition is processed.
func (c *Context) SetArchitecture(a Architecture) { c.arch = a }

// ByteCount returns the number of body bytes consumed/produced so far.
func (c *Context) ByteCount() uint32 { return c.count }

// CRC returns the running CRC engine.
func (c *Context) CRC() *CRC { return c.crc }

// Timestamp returns the last-seen absolute record timestamp, used to
// reconstitute compressed-timestamp headers.
func (c *Context) Timestamp() uint32 { return c.timestamp }

// SetTimestamp updates the last-seen absolute record timestamp.
func (c *Context) SetTimestamp(t uint32) { c.timestamp = t }

// Registry returns the stream's definition registry.
func (c *Context) Registry() *DefinitionRegistry { return c.registry }
