// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunk

import (
	"fmt"
	"strings"
)

// AppMask is a bitmask over the NumApps application slots.
type AppMask uint32

// AllApps has every application slot set.
const AllApps AppMask = 1<<NumApps - 1

// Has returns whether app is set in m.
func (m AppMask) Has(app int) bool { return m&(1<<uint(app)) != 0 }

// With returns m with app set.
func (m AppMask) With(app int) AppMask { return m | 1<<uint(app) }

// Bytes returns m packed as 3 bytes, apps 0..7 first.
func (m AppMask) Bytes() [3]byte {
	return [3]byte{byte(m), byte(m >> 8), byte(m >> 16)}
}

// AppMaskFrom unpacks a mask from 3 bytes, apps 0..7 first.
func AppMaskFrom(p [3]byte) AppMask {
	return AppMask(p[0]) | AppMask(p[1])<<8 | AppMask(p[2])<<16
}

func (m AppMask) String() string { return fmt.Sprintf("0x%06x", uint32(m&AllApps)) }

// StopFlags describes the quiescing a blob requires before download.
type StopFlags uint8

const (
	StopFDSP     StopFlags = 1 << iota // stop the whole F-DSP
	StopAppExec                        // application execution requests change
	StopApps                           // stop the targeted applications
	StopCoefWait                       // wait for in-flight coefficient transfers
)

func (f StopFlags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, v := range []struct {
		f    StopFlags
		name string
	}{
		{StopFDSP, "fdsp"},
		{StopAppExec, "app-exec"},
		{StopApps, "apps"},
		{StopCoefWait, "coef-wait"},
	} {
		if f&v.f != 0 {
			names = append(names, v.name)
		}
	}
	return strings.Join(names, "|")
}

// TransferMode selects how coefficients and constants reach DSP memory.
// Its values match the transfer-mode byte of coefficient chunks.
type TransferMode uint8

const (
	DirectMemoryAccess TransferMode = 0 // written straight to DSP memory, applications quiesced
	DSPMediated        TransferMode = 1 // staged, then self-loaded by the DSP firmware
)

func (m TransferMode) String() string {
	switch m {
	case DirectMemoryAccess:
		return "direct"
	case DSPMediated:
		return "dsp-mediated"
	}
	return fmt.Sprintf("TransferMode(%d)", uint8(m))
}

// Span locates a chunk payload inside the blob.
// The zero Span means "absent".
type Span struct {
	Off int
	Len int
}

// Valid returns whether s locates a payload.
func (s Span) Valid() bool { return s.Len > 0 }

// App is the per-application part of a Plan.
type App struct {
	Env      Span
	Ins      Span
	NumCoef  int
	NumConst int
	NumReg   int
}

// Plan describes what a blob writes and which stop actions it implies.
// A Plan refers to, but does not copy, the blob it was parsed from:
// the blob must stay unmodified while the plan is in use.
type Plan struct {
	FwCtrl Span
	ChSel  Span
	TopEnv Span
	TopIns Span

	NumTopCoef int
	Apps       [NumApps]App

	NumCoef    int // non-empty application coefficient chunks
	NumConst   int // non-empty application constant chunks
	NumReg     int // non-empty application register chunks
	MaxCoefLen int // largest coefficient/constant payload length

	MustStop    StopFlags
	Targets     AppMask // applications whose environment, instructions or coefficients change
	Coefs       AppMask // applications receiving coefficients or constants
	FixedVolume bool    // the fixed-volume application is described by this blob
	Mode        TransferMode

	buf []byte
}

// Blob returns the blob p was parsed from.
func (p *Plan) Blob() []byte { return p.buf }

// Payload returns the bytes located by s.
func (p *Plan) Payload(s Span) []byte {
	if !s.Valid() {
		return nil
	}
	return p.buf[s.Off : s.Off+s.Len : s.Off+s.Len]
}

// Empty returns whether p writes nothing.
func (p *Plan) Empty() bool {
	if p.FwCtrl.Valid() || p.ChSel.Valid() || p.TopEnv.Valid() || p.TopIns.Valid() {
		return false
	}
	return p.NumTopCoef == 0 && p.Targets == 0 && p.NumReg == 0
}

// HasCoefs returns whether p carries application coefficients or constants.
func (p *Plan) HasCoefs() bool { return p.NumCoef+p.NumConst > 0 }

// selectMode applies the transfer-mode rule once all chunks were seen.
// Direct transfers require the targeted applications to be stopped.
func (p *Plan) selectMode(direct bool) {
	p.Mode = DSPMediated
	switch {
	case direct,
		p.MaxCoefLen > CoefCeiling,
		p.NumCoef+p.NumConst > 1:
		p.Mode = DirectMemoryAccess
		p.MustStop |= StopApps
	}
}
