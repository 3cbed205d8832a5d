// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunk

import (
	"encoding/binary"
	"fmt"
)

// FwCtrl is a view over a firmware-control payload.
type FwCtrl []byte

const (
	fwModOff  = 0
	fwFSOff   = 1
	fwFadeOff = 2
	fwExecOff = 3
)

// Execution request values of a firmware-control payload.
const (
	ExecStop = 0x00
	ExecRun  = 0x01
)

func (p FwCtrl) Mode() byte     { return p[fwModOff] }
func (p FwCtrl) FS() byte       { return p[fwFSOff] }
func (p FwCtrl) FadeCode() byte { return p[fwFadeOff] }

// Exec returns the execution request of app: ExecStop, ExecRun or DontCare.
func (p FwCtrl) Exec(app int) byte { return p[fwExecOff+app] }

// ExecRequests splits the execution requests into apps to run and apps
// to stop. DontCare slots are in neither mask.
func (p FwCtrl) ExecRequests() (run, stop AppMask) {
	for app := 0; app < NumApps; app++ {
		switch p.Exec(app) {
		case ExecRun:
			run = run.With(app)
		case ExecStop:
			stop = stop.With(app)
		}
	}
	return run, stop
}

// AppEnv is a view over an application environment payload.
type AppEnv []byte

const (
	envIDOff    = 0
	envBaseOff  = 1
	envFadeOff  = 4
	envIRQOff   = 5
	envWordsOff = 6

	EnvSize     = minAppEnv               // bytes of an environment
	EnvWordsLen = minAppEnv - envWordsOff // bytes of environment words
)

func (p AppEnv) ID() byte          { return p[envIDOff] }
func (p AppEnv) RegBase() uint32   { return u24(p[envBaseOff:]) }
func (p AppEnv) Fade() bool        { return p[envFadeOff]&0x01 != 0 }
func (p AppEnv) IRQ() bool         { return p[envIRQOff]&0x01 != 0 }
func (p AppEnv) Words() []byte     { return p[envWordsOff:minAppEnv] }
func (p AppEnv) FixedVolume() bool { return p.ID() == FixedVolumeID }

// Mem is a memory block carried by coefficient, instruction and register
// chunks.
type Mem struct {
	Sel  byte         // memory select
	Addr uint32       // 24-bit start address
	Mode TransferMode // only meaningful for application coefficients/constants
	Data []byte
}

// DecodeMem decodes the memory block of a top-coefficient, instruction
// or register payload:
//
//	[0] sel, [1..3] addr, [4..7] length, [8..] data
//
// With aligned set, length must be a multiple of 4.
func DecodeMem(p []byte, aligned bool) (Mem, error) {
	return decodeMem(p, 4, aligned)
}

// DecodeCoef decodes the memory block of an application coefficient or
// constant payload:
//
//	[0] sel, [1..3] addr, [4] mode, [5..8] length, [9..] data
func DecodeCoef(p []byte) (Mem, error) {
	m, err := decodeMem(p, 5, true)
	if err != nil {
		return m, err
	}
	m.Mode = TransferMode(p[4])
	return m, nil
}

func decodeMem(p []byte, lenOff int, aligned bool) (Mem, error) {
	var m Mem
	hdr := lenOff + 4
	if len(p) < hdr {
		return m, fmt.Errorf("payload too small (%d bytes, want at least %d)", len(p), hdr)
	}
	n := binary.BigEndian.Uint32(p[lenOff:])
	if aligned && n%4 != 0 {
		return m, fmt.Errorf("length %d is not a multiple of 4", n)
	}
	if uint64(n) > uint64(len(p)-hdr) {
		return m, fmt.Errorf("length %d exceeds payload (%d bytes available)", n, len(p)-hdr)
	}
	m.Sel = p[0]
	m.Addr = u24(p[1:])
	m.Data = p[hdr : hdr+int(n) : hdr+int(n)]
	return m, nil
}

func u24(p []byte) uint32 {
	return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
}
