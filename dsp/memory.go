// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"fmt"

	"github.com/go-lpc/fdsp/dsp/internal/regs"
)

// Region selects an F-DSP internal memory.
type Region uint8

const (
	RegionDX   Region = regs.MSEL_DX   // data memory X
	RegionDY   Region = regs.MSEL_DY   // data memory Y
	RegionIRAM Region = regs.MSEL_IRAM // instruction memory
)

func (r Region) valid() bool {
	switch r {
	case RegionDX, RegionDY, RegionIRAM:
		return true
	}
	return false
}

func (r Region) String() string {
	switch r {
	case RegionDX:
		return "dx"
	case RegionDY:
		return "dy"
	case RegionIRAM:
		return "iram"
	}
	return fmt.Sprintf("Region(%d)", uint8(r))
}

// WordSize is the size in bytes of a memory word.
const WordSize = 4

// MaxReadLen is the size in bytes of the 24-bit word address space,
// the longest read any region can serve.
const MaxReadLen = (1 << 24) * WordSize

// Bounds returns the valid word address range [lo, hi) of a memory region
// for the given hardware revision bit.
type Bounds func(r Region, rev byte) (lo, hi uint32)

// DefaultBounds is the region table of the known codec revisions.
func DefaultBounds(r Region, rev byte) (lo, hi uint32) {
	switch r {
	case RegionDX, RegionDY:
		if rev != 0 {
			return 0, 0x800
		}
		return 0, 0x600
	case RegionIRAM:
		if rev != 0 {
			return 0, 0x1800
		}
		return 0, 0x1000
	}
	return 0, 0
}

// ReadMemory reads words of region, starting at word address addr, into p.
// The read is clamped to whole words and to the end of the region.
// ReadMemory returns the number of bytes read: 0 when uninitialized.
// Unknown regions and out of range addresses are rejected with
// ErrInvalidArgument.
func (ctl *Controller) ReadMemory(region Region, addr uint32, p []byte) (int, error) {
	if !region.valid() {
		return 0, fmt.Errorf("%w: unknown memory region %v", ErrInvalidArgument, region)
	}
	if !ctl.st.ready {
		return 0, nil
	}

	rev, err := ctl.read(regs.F_REV)
	if err != nil {
		return 0, err
	}
	lo, hi := ctl.cfg.bounds(region, rev&regs.REV_B)
	if addr < lo || addr >= hi {
		return 0, fmt.Errorf(
			"%w: address 0x%x out of %v range [0x%x, 0x%x)",
			ErrInvalidArgument, addr, region, lo, hi,
		)
	}

	n := uint32(len(p) / WordSize)
	if left := hi - addr; n > left {
		n = left
	}
	if n == 0 {
		return 0, nil
	}

	ctl.force(regs.F_MSEL, byte(region))
	ctl.force(regs.F_MADR0+0, byte(addr>>16))
	ctl.force(regs.F_MADR0+1, byte(addr>>8))
	ctl.force(regs.F_MADR0+2, byte(addr))
	err = ctl.flush()
	if err != nil {
		return 0, fmt.Errorf("fdsp: could not select %v memory: %w", region, err)
	}

	size := int(n) * WordSize
	for i := 0; i < size; i++ {
		v, err := ctl.read(regs.F_MDATA)
		if err != nil {
			return i, err
		}
		p[i] = v
	}
	return size, nil
}
