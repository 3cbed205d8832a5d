// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"fmt"

	"github.com/go-lpc/fdsp/chunk"
	"github.com/go-lpc/fdsp/dsp/internal/regs"
)

// ControlStatus is the outcome of a Stop request.
type ControlStatus uint8

const (
	AlreadyStopped ControlStatus = iota // the F-DSP was not running
	InProgress                          // stop requested, poll Transition for completion
)

func (cs ControlStatus) String() string {
	switch cs {
	case AlreadyStopped:
		return "already-stopped"
	case InProgress:
		return "in-progress"
	}
	return fmt.Sprintf("ControlStatus(%d)", uint8(cs))
}

// Transition reports the pending hardware transitions.
// The low 24 bits hold the applications whose activity differs from
// their requested execution state.
type Transition uint32

const (
	TransitionFDSPStop Transition = 1 << 31 // F-DSP winding down
	TransitionCoef     Transition = 1 << 30 // coefficient transfer outstanding
)

// Apps returns the applications whose activity is in transition.
func (tr Transition) Apps() chunk.AppMask { return chunk.AppMask(tr) & chunk.AllApps }

// Settled returns whether no transition is pending.
func (tr Transition) Settled() bool { return tr == 0 }

func (tr Transition) String() string {
	return fmt.Sprintf("fdsp=%v coef=%v apps=%v",
		tr&TransitionFDSPStop != 0,
		tr&TransitionCoef != 0,
		tr.Apps(),
	)
}

// fdspCtl returns the control register value that runs the F-DSP.
func (ctl *Controller) fdspCtl() byte {
	if ctl.st.bypass {
		return regs.FDSPCTL_BYPASS
	}
	return regs.FDSPCTL_START
}

// restart re-enables interrupts and execution after a download.
// Applications stopped for the download run again, unless the firmware
// control of the blob requested otherwise. Applications told to stop
// and still active are recorded as pending.
func (ctl *Controller) restart(p *chunk.Plan, sp stopPlan) error {
	exec := ctl.st.exec | sp.apps
	if p.FwCtrl.Valid() {
		run, stop := chunk.FwCtrl(p.Payload(p.FwCtrl)).ExecRequests()
		exec = (exec | run) &^ stop
	}

	if leaving := ctl.st.exec &^ exec; leaving != 0 {
		act, err := ctl.readMask(regs.F_APPACT0)
		if err != nil {
			return err
		}
		ctl.st.pending |= leaving & act
	}
	ctl.st.pending &^= exec

	restart := sp.action == stopFDSP && sp.running
	if restart && ctl.st.fixed && !ctl.st.bypass {
		exec = exec.With(chunk.FixedApp)
	}

	ctl.writeMask(regs.F_APPFADE0, ctl.st.fade)
	ctl.writeMask(regs.F_APPEXEC0, exec)
	ctl.unmaskIRQ()
	if restart {
		ctl.write(regs.F_FDSPCTL, ctl.fdspCtl())
	}

	err := ctl.flush()
	if err != nil {
		return err
	}
	ctl.st.exec = exec
	return nil
}

// Start runs the F-DSP, or enables its bypass when the top environment
// requested it. The fixed-volume application, when loaded, is faded in.
func (ctl *Controller) Start() error {
	if !ctl.st.ready {
		return ErrNotInitialized
	}

	if ctl.st.bypass {
		ctl.write(regs.F_FDSPCTL, regs.FDSPCTL_BYPASS)
		err := ctl.flush()
		if err != nil {
			return fmt.Errorf("fdsp: could not enable bypass: %w", err)
		}
		ctl.st.pending = 0
		return nil
	}

	v, err := ctl.read(regs.F_FDSPSTATE)
	if err != nil {
		return err
	}
	if v&regs.FDSPSTATE_ACT == 0 {
		exec := ctl.st.exec
		if ctl.st.fixed {
			exec = exec.With(chunk.FixedApp)
		}
		ctl.write(regs.F_FDSPCTL, regs.FDSPCTL_START)
		ctl.writeMask(regs.F_APPEXEC0, exec)
		err = ctl.flush()
		if err != nil {
			return fmt.Errorf("fdsp: could not start F-DSP: %w", err)
		}
		ctl.st.exec = exec
	}
	ctl.st.pending = 0
	return nil
}

// Stop requests a full stop of the F-DSP. Stop does not wait for the
// hardware confirmation: it reports InProgress and callers poll
// Transition, or wait for a FDSPStoppedEvent.
func (ctl *Controller) Stop() (ControlStatus, error) {
	if !ctl.st.ready {
		return AlreadyStopped, ErrNotInitialized
	}

	v, err := ctl.read(regs.F_FDSPSTATE)
	if err != nil {
		return AlreadyStopped, err
	}
	if v&regs.FDSPSTATE_ACT == 0 {
		return AlreadyStopped, nil
	}

	ctl.fadeOutFixed()
	ctl.write(regs.F_FDSPCTL, regs.FDSPCTL_DEFAULT)
	err = ctl.flush()
	if err != nil {
		return AlreadyStopped, fmt.Errorf("fdsp: could not stop F-DSP: %w", err)
	}
	return InProgress, nil
}

// Transition compares the hardware activity with the requested state.
// It returns 0 once everything settled, or when uninitialized.
func (ctl *Controller) Transition() (Transition, error) {
	if !ctl.st.ready {
		return 0, nil
	}

	var vs [4]byte
	for i, addr := range []uint16{
		regs.F_FDSPCTL, regs.F_FDSPSTATE,
		regs.F_COEFCTL, regs.F_COEFSTATE,
	} {
		v, err := ctl.read(addr)
		if err != nil {
			return 0, err
		}
		vs[i] = v
	}
	var (
		fdspCtl   = vs[0]
		fdspState = vs[1]
		coefCtl   = vs[2]
		coefState = vs[3]
	)

	var tr Transition
	running := fdspCtl&regs.FDSPCTL_START != 0
	if !running && fdspState&regs.FDSPSTATE_ACT != 0 {
		tr |= TransitionFDSPStop
	}
	if coefCtl&regs.COEFCTL_REQ != 0 || coefState&regs.COEFSTATE_BUSY != 0 {
		tr |= TransitionCoef
	}

	act, err := ctl.readMask(regs.F_APPACT0)
	if err != nil {
		return 0, err
	}
	want := chunk.AppMask(0)
	if running {
		want = ctl.st.exec
	}
	tr |= Transition((act ^ want) & chunk.AllApps)

	return tr, nil
}
