// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"fmt"

	"github.com/go-lpc/fdsp/dsp/internal/regs"
)

// NumMuteSlots is the number of mono input (and output) mute slots.
const NumMuteSlots = 8

// Mute is the state of a mute slot.
type Mute uint8

const (
	MuteNoChange Mute = iota // keep the current state (SetMute only)
	MuteOn
	MuteOff
)

func (m Mute) String() string {
	switch m {
	case MuteNoChange:
		return "no-change"
	case MuteOn:
		return "on"
	case MuteOff:
		return "off"
	}
	return fmt.Sprintf("Mute(%d)", uint8(m))
}

// MuteState holds the input and output mute slots.
type MuteState struct {
	In  [NumMuteSlots]Mute `json:"in"`
	Out [NumMuteSlots]Mute `json:"out"`
}

// Mute reads the mute slots from the hardware.
func (ctl *Controller) Mute() (MuteState, error) {
	var ms MuteState
	if !ctl.st.ready {
		return ms, ErrNotInitialized
	}

	in, err := ctl.read(regs.F_ADIMUTE)
	if err != nil {
		return ms, err
	}
	out, err := ctl.read(regs.F_ADOMUTE)
	if err != nil {
		return ms, err
	}
	unpackMute(&ms.In, in)
	unpackMute(&ms.Out, out)
	return ms, nil
}

// SetMute writes the mute slots. Slots set to MuteNoChange keep their
// current state, so that callers may update a subset of the slots;
// Mute never reports MuteNoChange. Other values than MuteNoChange,
// MuteOn and MuteOff are rejected with ErrInvalidArgument, before any
// register is written.
func (ctl *Controller) SetMute(ms MuteState) error {
	if !ctl.st.ready {
		return ErrNotInitialized
	}

	in, err := packMute(ctl.st.mute.in, ms.In)
	if err != nil {
		return fmt.Errorf("%w: input %w", ErrInvalidArgument, err)
	}
	out, err := packMute(ctl.st.mute.out, ms.Out)
	if err != nil {
		return fmt.Errorf("%w: output %w", ErrInvalidArgument, err)
	}

	ctl.write(regs.F_ADIMUTE, in)
	ctl.write(regs.F_ADOMUTE, out)
	err = ctl.flush()
	if err != nil {
		return fmt.Errorf("fdsp: could not write mute registers: %w", err)
	}
	ctl.st.mute.in = in
	ctl.st.mute.out = out
	return nil
}

func unpackMute(dst *[NumMuteSlots]Mute, v byte) {
	for i := range dst {
		dst[i] = MuteOff
		if v&(1<<uint(i)) != 0 {
			dst[i] = MuteOn
		}
	}
}

func packMute(cur byte, slots [NumMuteSlots]Mute) (byte, error) {
	v := cur
	for i, m := range slots {
		bit := byte(1) << uint(i)
		switch m {
		case MuteNoChange:
		case MuteOn:
			v |= bit
		case MuteOff:
			v &^= bit
		default:
			return 0, fmt.Errorf("slot %d: invalid mute value %v", i, m)
		}
	}
	return v, nil
}
