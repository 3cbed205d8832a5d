// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the F-DSP register map.
package regs // import "github.com/go-lpc/fdsp/dsp/internal/regs"

// audio interface bank
const (
	IF_DIFMT = 0x00 // digital input format
	IF_DOFMT = 0x01 // digital output format
)

// F-DSP bank
const (
	F_FDSPCTL   = 0x00
	F_FDSPSTATE = 0x01
	F_FWMOD     = 0x02
	F_FS        = 0x03
	F_FADECODE  = 0x04

	F_APPEXEC0 = 0x05 // apps 0..7; APPEXEC1/2 follow
	F_APPACT0  = 0x08
	F_APPFADE0 = 0x0b
	F_APPIENB0 = 0x0e
	F_APPIREQ0 = 0x11

	F_IRQ     = 0x14
	F_IRQENB  = 0x15
	F_ERR     = 0x16
	F_ADIMUTE = 0x17
	F_ADOMUTE = 0x18

	F_COEFCTL   = 0x19
	F_COEFSTATE = 0x1a
	F_COEFAPP   = 0x1b

	F_MSEL  = 0x1c
	F_MADR0 = 0x1d // address bits 23..16; MADR1/2 follow
	F_MDATA = 0x20

	F_REV = 0x21

	F_CHSEL  = 0x40
	F_TOPENV = 0x70

	NumChSel  = 33 // channel select registers
	NumTopEnv = 29 // top environment registers
)

// F_FDSPCTL bits
const (
	FDSPCTL_START  = 0x01
	FDSPCTL_BYPASS = 0x10

	FDSPCTL_DEFAULT = 0x00
)

// F_FDSPSTATE bits
const (
	FDSPSTATE_ACT = 0x01
)

// F_IRQ and F_IRQENB bits
const (
	IRQ_ERR      = 0x01
	IRQ_APPREQ   = 0x02
	IRQ_FDSPSTOP = 0x04
	IRQ_COEFDONE = 0x08
	IRQ_APPSTOP  = 0x10

	IRQ_ALL = IRQ_ERR | IRQ_APPREQ | IRQ_FDSPSTOP | IRQ_COEFDONE | IRQ_APPSTOP
)

// F_COEFCTL / F_COEFSTATE bits
const (
	COEFCTL_REQ    = 0x01
	COEFSTATE_BUSY = 0x01
)

// F_REV bits
const (
	REV_B = 0x01
)

// memory window selectors (F_MSEL)
const (
	MSEL_DX    = 0x01 // data memory X
	MSEL_DY    = 0x02 // data memory Y
	MSEL_IRAM  = 0x03 // instruction memory
	MSEL_ENV   = 0x04 // application environment table
	MSEL_REG   = 0x05 // application registers
	MSEL_STAGE = 0x06 // coefficient staging area, self-loaded by the firmware
)

const (
	ENV_BASE   = 0x10 // environment table address of app 0
	ENV_STRIDE = 0x08 // environment table address step per app
)
