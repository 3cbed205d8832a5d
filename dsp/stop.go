// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"errors"
	"fmt"

	"github.com/go-lpc/fdsp/chunk"
	"github.com/go-lpc/fdsp/dsp/internal/regs"
)

type stopAction uint8

const (
	stopNone     stopAction = iota
	stopCoefWait            // wait for in-flight coefficient transfers
	stopApps                // stop the targeted applications
	stopFDSP                // stop the whole F-DSP
)

func (a stopAction) String() string {
	switch a {
	case stopNone:
		return "none"
	case stopCoefWait:
		return "coef-wait"
	case stopApps:
		return "apps"
	case stopFDSP:
		return "fdsp"
	}
	return fmt.Sprintf("stopAction(%d)", uint8(a))
}

// stopPlan is the live stop sequence of a download.
type stopPlan struct {
	action  stopAction
	running bool          // F-DSP was running before the download
	apps    chunk.AppMask // executing applications stopped for the download
	reset   bool          // the F-DSP was reset while stopping
}

// planStop chooses the stop sequence from the plan and the hardware state.
func (ctl *Controller) planStop(p *chunk.Plan) (stopPlan, error) {
	var sp stopPlan

	v, err := ctl.read(regs.F_FDSPSTATE)
	if err != nil {
		return sp, err
	}
	sp.running = v&regs.FDSPSTATE_ACT != 0 && !ctl.st.bypass

	switch {
	case p.MustStop&chunk.StopFDSP != 0 && sp.running:
		sp.action = stopFDSP
	case p.MustStop&chunk.StopApps != 0:
		sp.action = stopApps
	case p.MustStop&chunk.StopCoefWait != 0:
		sp.action = stopCoefWait
	}
	return sp, nil
}

// maskIRQ queues the masking of the interrupts affected by the download.
func (ctl *Controller) maskIRQ(p *chunk.Plan, sp stopPlan) {
	switch sp.action {
	case stopFDSP:
		ctl.write(regs.F_IRQENB, 0)
	default:
		ctl.writeMask(regs.F_APPIENB0, ctl.st.ienb&^p.Targets)
	}
}

// unmaskIRQ queues the restoration of the interrupt enables.
func (ctl *Controller) unmaskIRQ() {
	ctl.writeMask(regs.F_APPIENB0, ctl.st.ienb)
	ctl.write(regs.F_IRQENB, regs.IRQ_ALL)
}

// abort restores the interrupt enables masked by a failed SetDSP.
// A stopped F-DSP is left stopped until the next Start.
func (ctl *Controller) abort() {
	ctl.unmaskIRQ()
	err := ctl.flush()
	if err != nil {
		ctl.msg.Printf("could not restore interrupts: %+v", err)
	}
}

// quiesce runs the stop sequence of sp, together with the queued
// interrupt masking.
func (ctl *Controller) quiesce(p *chunk.Plan, sp *stopPlan) error {
	switch sp.action {
	case stopFDSP:
		return ctl.stopFDSP(sp)
	case stopApps:
		return ctl.stopApps(p, sp)
	case stopCoefWait:
		ctl.waitCoef()
		err := ctl.flush()
		if err != nil {
			return fmt.Errorf("fdsp: could not wait for coefficient transfer: %w", err)
		}
	default:
		err := ctl.flush()
		if err != nil {
			return fmt.Errorf("fdsp: could not mask interrupts: %w", err)
		}
	}
	return nil
}

func (ctl *Controller) waitCoef() {
	ctl.waitClear(regs.F_COEFSTATE, regs.COEFSTATE_BUSY, ctl.cfg.timeout.coef)
}

// fadeOutFixed queues the fade out of the fixed-volume application.
func (ctl *Controller) fadeOutFixed() {
	if !ctl.st.fixed || !ctl.st.exec.Has(chunk.FixedApp) {
		return
	}
	ctl.st.exec &^= chunk.AppMask(0).With(chunk.FixedApp)
	ctl.writeMask(regs.F_APPEXEC0, ctl.st.exec)
	ctl.sleep(ctl.cfg.fade)
}

// stopFDSP stops the whole F-DSP. When the F-DSP does not confirm the
// stop in time, it is reset to its default configuration.
func (ctl *Controller) stopFDSP(sp *stopPlan) error {
	ctl.fadeOutFixed()
	ctl.waitCoef()
	ctl.write(regs.F_FDSPCTL, regs.FDSPCTL_DEFAULT)
	ctl.waitClear(regs.F_FDSPSTATE, regs.FDSPSTATE_ACT, ctl.cfg.timeout.stop)

	err := ctl.flush()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout):
		ctl.msg.Printf("F-DSP did not stop in time, resetting: %+v", err)
		ctl.emit(ResetEvent{})
		ctl.st.reset()
		ctl.dev.Invalidate()
		ctl.initCore()
		err = ctl.flush()
		if err != nil {
			return fmt.Errorf("fdsp: could not reset F-DSP: %w", err)
		}
		sp.reset = true
		return nil
	default:
		return fmt.Errorf("fdsp: could not stop F-DSP: %w", err)
	}
}

// stopApps stops the applications targeted by the plan and waits for
// each of them to report inactivity.
func (ctl *Controller) stopApps(p *chunk.Plan, sp *stopPlan) error {
	ctl.waitCoef()

	sp.apps = ctl.st.exec & p.Targets
	ctl.writeMask(regs.F_APPFADE0, ctl.st.fade|sp.apps)
	ctl.writeMask(regs.F_APPEXEC0, ctl.st.exec&^sp.apps)
	for app := 0; app < chunk.NumApps; app++ {
		if !p.Targets.Has(app) {
			continue
		}
		reg, bit := appReg(regs.F_APPACT0, app)
		ctl.waitClear(reg, bit, ctl.cfg.timeout.app)
	}

	ctl.st.exec &^= sp.apps

	err := ctl.flush()
	if err != nil {
		ctl.st.pending |= sp.apps
		return fmt.Errorf("fdsp: could not stop applications %v: %w", p.Targets, err)
	}
	return nil
}
