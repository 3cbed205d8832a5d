// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chunk decodes, validates and encodes F-DSP configuration blobs.
//
// A blob is a sequence of chunks packed back to back:
//
//	tag  uint32 (big-endian)
//	size uint32 (big-endian)
//	data [size]byte
//
// Top-level tags identify a structural category. Per-application tags
// carry the category in their upper 24 bits and the application index
// (0..23) in their lower 8 bits.
package chunk // import "github.com/go-lpc/fdsp/chunk"

import (
	"encoding/binary"
	"fmt"
)

const (
	HeaderSize = 8  // size of a chunk header (tag+size)
	NumApps    = 24 // number of F-DSP application slots

	FixedApp      = 22       // slot reserved for the fixed-volume application
	FixedVolumeID = 0x5a     // environment id of the fixed-volume application
	FixedRegBase  = 0x00f000 // register base of the fixed-volume application

	CoefCeiling = 512  // largest coefficient payload a DSP-mediated transfer may carry
	DontCare    = 0xff // "leave as is" marker of firmware-control fields
)

// Tag identifies the category of a chunk.
type Tag uint32

// Top-level tags.
const (
	TagFwCtrl  Tag = 0x46574354 // "FWCT": firmware control
	TagChSel   Tag = 0x4348534c // "CHSL": channel select
	TagTopEnv  Tag = 0x54454e56 // "TENV": top environment
	TagTopCoef Tag = 0x54434f46 // "TCOF": top coefficients
	TagTopIns  Tag = 0x54494e53 // "TINS": top instructions
)

// Per-application categories. The application index is or'ed in the low byte.
const (
	TagAppEnv   Tag = 0x41454e00 // "AEN": application environment
	TagAppCoef  Tag = 0x41434600 // "ACF": application coefficients
	TagAppConst Tag = 0x41434e00 // "ACN": application constants
	TagAppIns   Tag = 0x41494e00 // "AIN": application instructions
	TagAppReg   Tag = 0x41524700 // "ARG": application registers

	appCatMask Tag = 0xffffff00
)

// Minimum payload sizes, per category.
const (
	minFwCtrl  = 27
	minChSel   = 33
	minTopEnv  = 29
	minTopCoef = 8
	minTopIns  = 8
	minAppEnv  = 38
	minAppCoef = 9
	minAppIns  = 8
	minAppReg  = 8
)

// AppTag returns the tag of the per-application category cat for app.
func AppTag(cat Tag, app int) Tag {
	return cat&appCatMask | Tag(uint8(app))
}

// IsApp returns whether tag belongs to a per-application category.
func (tag Tag) IsApp() bool {
	switch tag & appCatMask {
	case TagAppEnv, TagAppCoef, TagAppConst, TagAppIns, TagAppReg:
		return true
	}
	return false
}

// Category returns the category of tag, with the application index masked
// out for per-application tags.
func (tag Tag) Category() Tag {
	if tag.IsApp() {
		return tag & appCatMask
	}
	return tag
}

// App returns the application index of a per-application tag.
func (tag Tag) App() int {
	return int(tag & 0xff)
}

func (tag Tag) String() string {
	switch tag {
	case TagFwCtrl:
		return "FWCT"
	case TagChSel:
		return "CHSL"
	case TagTopEnv:
		return "TENV"
	case TagTopCoef:
		return "TCOF"
	case TagTopIns:
		return "TINS"
	}
	if tag.IsApp() {
		var name string
		switch tag.Category() {
		case TagAppEnv:
			name = "AEN"
		case TagAppCoef:
			name = "ACF"
		case TagAppConst:
			name = "ACN"
		case TagAppIns:
			name = "AIN"
		case TagAppReg:
			name = "ARG"
		}
		return fmt.Sprintf("%s[%d]", name, tag.App())
	}
	return fmt.Sprintf("0x%08x", uint32(tag))
}

// Chunk is a decoded chunk. Data aliases the blob it was read from.
type Chunk struct {
	Tag  Tag
	Off  int // offset of the payload in the blob
	Data []byte
}

// Walk calls fn for each chunk of buf, in order.
// Walk stops at the first error returned by fn.
// Framing errors are reported as *ParseError wrapping ErrTruncated.
func Walk(buf []byte, fn func(c Chunk) error) error {
	pos := 0
	for pos < len(buf) {
		if len(buf)-pos < HeaderSize {
			return &ParseError{
				Off: pos,
				Msg: fmt.Sprintf("%d trailing bytes, want a %d bytes header", len(buf)-pos, HeaderSize),
				Err: ErrTruncated,
			}
		}
		var (
			tag  = Tag(binary.BigEndian.Uint32(buf[pos:]))
			size = binary.BigEndian.Uint32(buf[pos+4:])
		)
		if uint64(size) > uint64(len(buf)-pos-HeaderSize) {
			return &ParseError{
				Off: pos,
				Tag: tag,
				Msg: fmt.Sprintf("size %d exceeds remaining %d bytes", size, len(buf)-pos-HeaderSize),
				Err: ErrTruncated,
			}
		}
		pos += HeaderSize
		end := pos + int(size)
		err := fn(Chunk{Tag: tag, Off: pos, Data: buf[pos:end:end]})
		if err != nil {
			return err
		}
		pos = end
	}
	return nil
}
