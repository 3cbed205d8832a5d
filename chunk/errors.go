// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated reports a chunk header or payload running past the
	// end of the blob.
	ErrTruncated = errors.New("chunk: truncated blob")

	// ErrInvalid reports a malformed chunk: payload too small, misaligned
	// or oversized embedded length, duplicated singleton or invalid value.
	ErrInvalid = errors.New("chunk: invalid chunk")
)

// ParseError describes where and why a blob was rejected.
type ParseError struct {
	Off int    // offset of the offending chunk (header or payload)
	Tag Tag    // tag of the offending chunk, if known
	Msg string // details
	Err error  // ErrTruncated or ErrInvalid
}

func (e *ParseError) Error() string {
	if e.Tag == 0 {
		return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Off, e.Msg)
	}
	return fmt.Sprintf("%v: %v at offset %d: %s", e.Err, e.Tag, e.Off, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

func errInvalid(c Chunk, format string, args ...interface{}) error {
	return &ParseError{
		Off: c.Off,
		Tag: c.Tag,
		Msg: fmt.Sprintf(format, args...),
		Err: ErrInvalid,
	}
}
