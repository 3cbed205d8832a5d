// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-lpc/fdsp/bus"
	"github.com/go-lpc/fdsp/chunk"
	"github.com/go-lpc/fdsp/dsp/internal/regs"
)

// Controller drives the F-DSP of one codec.
type Controller struct {
	msg *log.Logger
	dev Device
	cfg config
	cb  Callback

	st state
}

// state is the runtime state of the F-DSP, as requested by the controller.
type state struct {
	ready  bool
	format Config

	exec    chunk.AppMask // execution enables
	ienb    chunk.AppMask // interrupt request enables
	fade    chunk.AppMask // fade enables
	pending chunk.AppMask // stop requested, not yet confirmed
	bypass  bool          // top environment requests bypass
	fixed   bool          // fixed-volume application loaded

	mute struct {
		in  byte
		out byte
	}
}

func (st *state) reset() {
	ready, format := st.ready, st.format
	*st = state{ready: ready, format: format}
	st.mute.in = 0xff
	st.mute.out = 0xff
}

// New returns a new, uninitialized, controller driving dev.
func New(dev Device, opts ...Option) *Controller {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Controller{
		msg: cfg.msg,
		dev: dev,
		cfg: cfg,
	}
}

// SetCallback registers cb as the receiver of events, replacing any
// previously registered callback. A nil cb disables events.
func (ctl *Controller) SetCallback(cb Callback) {
	ctl.cb = cb
}

func (ctl *Controller) emit(ev Event) {
	if ctl.cb == nil {
		return
	}
	ctl.cb(ev)
}

// Init programs the baseline configuration of the F-DSP: all applications
// disabled, all mute slots on and interrupts enabled.
func (ctl *Controller) Init(cfg Config) error {
	if ctl.st.ready {
		return ErrAlreadyInitialized
	}

	ctl.st.format = cfg
	ctl.st.reset()
	ctl.initCore()
	err := ctl.flush()
	if err != nil {
		return fmt.Errorf("fdsp: could not initialize: %w", err)
	}

	ctl.st.ready = true
	return nil
}

// initCore queues the default register values.
// Values are force-written: the device may just have been reset.
func (ctl *Controller) initCore() {
	ctl.force(regs.F_IRQENB, 0)
	ctl.force(regs.F_FDSPCTL, regs.FDSPCTL_DEFAULT)
	ctl.force(regs.F_FWMOD, 0)
	ctl.forceMask(regs.F_APPEXEC0, 0)
	ctl.forceMask(regs.F_APPIENB0, 0)
	ctl.forceMask(regs.F_APPFADE0, 0)
	ctl.force(regs.F_ADIMUTE, ctl.st.mute.in)
	ctl.force(regs.F_ADOMUTE, ctl.st.mute.out)
	ctl.force(regs.F_COEFCTL, 0)
	ctl.dev.Add(bus.ForceWriteOp(ifReg(regs.IF_DIFMT), ctl.st.format.InFormat))
	ctl.dev.Add(bus.ForceWriteOp(ifReg(regs.IF_DOFMT), ctl.st.format.OutFormat))
	ctl.forceMask(regs.F_APPIREQ0, chunk.AllApps)
	ctl.force(regs.F_IRQ, regs.IRQ_ALL)
	ctl.force(regs.F_IRQENB, regs.IRQ_ALL)
}

// Term disables interrupts, puts the F-DSP back in its default state and
// unregisters the callback. Term on an uninitialized controller is a no-op.
func (ctl *Controller) Term() error {
	if !ctl.st.ready {
		return nil
	}

	ctl.force(regs.F_IRQENB, 0)
	ctl.force(regs.F_FDSPCTL, regs.FDSPCTL_DEFAULT)
	err := ctl.flush()

	ctl.cb = nil
	ctl.st = state{}

	if err != nil {
		return fmt.Errorf("fdsp: could not terminate: %w", err)
	}
	return nil
}

// SetDSP applies the configuration blob to the F-DSP.
//
// Malformed blobs are rejected with ErrInvalidArgument before any register
// is written. A full stop that does not complete in time is recovered
// through a reset of the F-DSP, reported as a ResetEvent; SetDSP then
// carries on. Applications that do not stop in time make SetDSP fail
// with ErrTimeout.
func (ctl *Controller) SetDSP(blob []byte) error {
	if !ctl.st.ready {
		return ErrNotInitialized
	}

	plan, err := chunk.Parse(blob)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if plan.Empty() {
		return nil
	}

	sp, err := ctl.planStop(plan)
	if err != nil {
		return err
	}

	ctl.maskIRQ(plan, sp)
	err = ctl.quiesce(plan, &sp)
	if err != nil {
		ctl.abort()
		return err
	}

	err = ctl.download(plan)
	if err != nil {
		ctl.abort()
		return fmt.Errorf("fdsp: could not download blob: %w", err)
	}

	err = ctl.restart(plan, sp)
	if err != nil {
		return fmt.Errorf("fdsp: could not restart: %w", err)
	}
	return nil
}

// Status is a snapshot of the controller runtime state.
type Status struct {
	Ready       bool          `json:"ready"`
	Exec        chunk.AppMask `json:"exec"`
	IRQ         chunk.AppMask `json:"irq"`
	Fade        chunk.AppMask `json:"fade"`
	Pending     chunk.AppMask `json:"pending"`
	Bypass      bool          `json:"bypass"`
	FixedVolume bool          `json:"fixed_volume"`
	MuteIn      byte          `json:"mute_in"`
	MuteOut     byte          `json:"mute_out"`
}

// Status returns the runtime state, as requested by the controller.
// Use Transition to compare it with the hardware.
func (ctl *Controller) Status() Status {
	return Status{
		Ready:       ctl.st.ready,
		Exec:        ctl.st.exec,
		IRQ:         ctl.st.ienb,
		Fade:        ctl.st.fade,
		Pending:     ctl.st.pending,
		Bypass:      ctl.st.bypass,
		FixedVolume: ctl.st.fixed,
		MuteIn:      ctl.st.mute.in,
		MuteOut:     ctl.st.mute.out,
	}
}

func fReg(addr uint16) bus.Reg  { return bus.Reg{Bank: bus.BankF, Addr: addr} }
func ifReg(addr uint16) bus.Reg { return bus.Reg{Bank: bus.BankIF, Addr: addr} }

func (ctl *Controller) write(addr uint16, v byte) {
	ctl.dev.Add(bus.WriteOp(fReg(addr), v))
}

func (ctl *Controller) force(addr uint16, v byte) {
	ctl.dev.Add(bus.ForceWriteOp(fReg(addr), v))
}

func (ctl *Controller) sleep(d time.Duration) {
	ctl.dev.Add(bus.SleepOp(d))
}

func (ctl *Controller) waitClear(addr uint16, mask byte, timeout time.Duration) {
	ctl.dev.Add(bus.WaitOp(fReg(addr), mask, false, timeout))
}

// writeMask queues the writes of an application mask to the 3 registers
// starting at base.
func (ctl *Controller) writeMask(base uint16, m chunk.AppMask) {
	for i, v := range m.Bytes() {
		ctl.write(base+uint16(i), v)
	}
}

func (ctl *Controller) forceMask(base uint16, m chunk.AppMask) {
	for i, v := range m.Bytes() {
		ctl.force(base+uint16(i), v)
	}
}

func (ctl *Controller) read(addr uint16) (byte, error) {
	v, err := ctl.dev.Read(fReg(addr))
	if err != nil {
		return 0, fmt.Errorf("fdsp: could not read register 0x%02x: %w", addr, err)
	}
	return v, nil
}

func (ctl *Controller) readMask(base uint16) (chunk.AppMask, error) {
	var p [3]byte
	for i := range p {
		v, err := ctl.read(base + uint16(i))
		if err != nil {
			return 0, err
		}
		p[i] = v
	}
	return chunk.AppMaskFrom(p), nil
}

// appReg returns the register and bit of app in the 3 registers block
// starting at base.
func appReg(base uint16, app int) (uint16, byte) {
	return base + uint16(app/8), 1 << uint(app%8)
}

// flush executes the queued operations.
func (ctl *Controller) flush() error {
	err := ctl.dev.Execute()
	if err != nil {
		if errors.Is(err, bus.ErrTimeout) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return err
	}
	return nil
}
