// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import "fmt"

// ProtocolError reports a violation of the FIT wire protocol: a malformed
// header, an unknown local message type, an out-of-range base type id, a
// reserved-bit violation (when the policy treats it as fatal), a write
// attempted without a prior definition, or a compressed-timestamp
// precondition violation.
type ProtocolError struct {
	// Op names the operation that detected the violation, e.g.
	// "decode header", "read data message".
	Op string
	// Reason is a short human-readable description of the violation.
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("fit: protocol error: %s: %s", e.Op, e.Reason)
}

func newProtocolError(op, reason string) *ProtocolError {
	return &ProtocolError{Op: op, Reason: reason}
}

// CrcError reports a CRC mismatch: either the optional 14-byte header CRC
// (when non-zero) or the mandatory trailer CRC.
type CrcError struct {
	// Which identifies the mismatched CRC, "header" or "trailer".
	Which string
	Want  uint16
	Got   uint16
}

func (e *CrcError) Error() string {
	return fmt.Sprintf("fit: %s crc mismatch: want %#04x, got %#04x", e.Which, e.Want, e.Got)
}

// SemanticError reports a non-fatal, per-record validation failure (a
// timestamp outside the permitted range, or a monotonicity violation). The
// Validator drops the offending record; parsing of the stream continues.
type SemanticError struct {
	Reason string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("fit: semantic error: %s", e.Reason)
}

func newSemanticError(reason string) *SemanticError {
	return &SemanticError{Reason: reason}
}
