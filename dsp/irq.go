// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"fmt"

	"github.com/go-lpc/fdsp/chunk"
	"github.com/go-lpc/fdsp/dsp/internal/regs"
)

// HandleInterrupt reads and acknowledges the interrupt status of the
// F-DSP and sends one event per fired category to the callback, in order:
// error, coefficient transfer done, application requests, application
// stops and F-DSP stop. HandleInterrupt never waits on the hardware.
func (ctl *Controller) HandleInterrupt() error {
	if !ctl.st.ready {
		return ErrNotInitialized
	}

	irq, err := ctl.read(regs.F_IRQ)
	if err != nil {
		return err
	}
	irq &= regs.IRQ_ALL
	if irq == 0 {
		return nil
	}

	var (
		code byte
		app  byte
		ireq chunk.AppMask
		act  chunk.AppMask
	)
	if irq&regs.IRQ_ERR != 0 {
		code, err = ctl.read(regs.F_ERR)
		if err != nil {
			return err
		}
	}
	if irq&regs.IRQ_COEFDONE != 0 {
		app, err = ctl.read(regs.F_COEFAPP)
		if err != nil {
			return err
		}
	}
	if irq&regs.IRQ_APPREQ != 0 {
		ireq, err = ctl.readMask(regs.F_APPIREQ0)
		if err != nil {
			return err
		}
	}
	if irq&regs.IRQ_APPSTOP != 0 {
		act, err = ctl.readMask(regs.F_APPACT0)
		if err != nil {
			return err
		}
	}

	// status bits are write-one-to-clear.
	if ireq != 0 {
		ctl.forceMask(regs.F_APPIREQ0, ireq)
	}
	ctl.force(regs.F_IRQ, irq)
	err = ctl.flush()
	if err != nil {
		return fmt.Errorf("fdsp: could not acknowledge interrupts: %w", err)
	}

	if irq&regs.IRQ_ERR != 0 {
		ctl.emit(ErrorEvent{Code: code})
	}
	if irq&regs.IRQ_COEFDONE != 0 {
		ctl.emit(CoefDoneEvent{App: int(app)})
	}
	if ireq != 0 {
		ctl.emit(AppRequestEvent{Apps: ireq})
	}
	if irq&regs.IRQ_APPSTOP != 0 {
		stopped := ctl.st.pending &^ act
		ctl.st.pending &= act
		if stopped != 0 {
			ctl.emit(AppStoppedEvent{Apps: stopped})
		}
	}
	if irq&regs.IRQ_FDSPSTOP != 0 {
		ctl.emit(FDSPStoppedEvent{})
	}
	return nil
}
