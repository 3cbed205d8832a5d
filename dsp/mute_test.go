// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"errors"
	"testing"

	"github.com/go-lpc/fdsp/dsp/internal/regs"
)

func TestMute(t *testing.T) {
	e := newEmu()
	ctl, _ := newRunningController(t, e)

	ms, err := ctl.Mute()
	if err != nil {
		t.Fatalf("could not read mute slots: %+v", err)
	}
	for i := 0; i < NumMuteSlots; i++ {
		if ms.In[i] != MuteOn || ms.Out[i] != MuteOn {
			t.Fatalf("slot %d not muted after init: in=%v, out=%v", i, ms.In[i], ms.Out[i])
		}
	}

	var req MuteState
	req.In[0] = MuteOff
	req.In[3] = MuteOff
	req.Out[7] = MuteOff
	err = ctl.SetMute(req)
	if err != nil {
		t.Fatalf("could not set mute slots: %+v", err)
	}
	if got, want := e.peek(regs.F_ADIMUTE), byte(0xf6); got != want {
		t.Fatalf("invalid input mute: got=0x%02x, want=0x%02x", got, want)
	}
	if got, want := e.peek(regs.F_ADOMUTE), byte(0x7f); got != want {
		t.Fatalf("invalid output mute: got=0x%02x, want=0x%02x", got, want)
	}

	// no-change slots keep their state.
	req = MuteState{}
	req.In[3] = MuteOn
	err = ctl.SetMute(req)
	if err != nil {
		t.Fatalf("could not set mute slots: %+v", err)
	}

	ms, err = ctl.Mute()
	if err != nil {
		t.Fatalf("could not read mute slots: %+v", err)
	}
	want := MuteState{
		In:  [NumMuteSlots]Mute{MuteOff, MuteOn, MuteOn, MuteOn, MuteOn, MuteOn, MuteOn, MuteOn},
		Out: [NumMuteSlots]Mute{MuteOn, MuteOn, MuteOn, MuteOn, MuteOn, MuteOn, MuteOn, MuteOff},
	}
	if ms != want {
		t.Fatalf("invalid mute state:\ngot= %+v\nwant=%+v", ms, want)
	}
	if st := ctl.Status(); st.MuteIn != 0xfe || st.MuteOut != 0x7f {
		t.Fatalf("invalid mute status: in=0x%02x, out=0x%02x", st.MuteIn, st.MuteOut)
	}
}

func TestSetMuteInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		ms   MuteState
	}{
		{"input", MuteState{In: [NumMuteSlots]Mute{MuteOn, 3}}},
		{"output", MuteState{Out: [NumMuteSlots]Mute{7: 0xff}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newEmu()
			ctl, _ := newRunningController(t, e)

			err := ctl.SetMute(tc.ms)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("invalid error: got=%+v, want=%v", err, ErrInvalidArgument)
			}
			if got := len(e.ops); got != 0 {
				t.Fatalf("rejected mute state issued %d operations", got)
			}
			if st := ctl.Status(); st.MuteIn != 0xff || st.MuteOut != 0xff {
				t.Fatalf("mute status modified: %+v", st)
			}
		})
	}
}

func TestMuteString(t *testing.T) {
	for _, tc := range []struct {
		m    Mute
		want string
	}{
		{MuteNoChange, "no-change"},
		{MuteOn, "on"},
		{MuteOff, "off"},
		{42, "Mute(42)"},
	} {
		if got := tc.m.String(); got != tc.want {
			t.Errorf("invalid string: got=%q, want=%q", got, tc.want)
		}
	}
}
