// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"bytes"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-lpc/fdsp/bus"
	"github.com/go-lpc/fdsp/chunk"
	"github.com/go-lpc/fdsp/dsp/internal/regs"
)

type winKey struct {
	sel byte
	pos uint32
}

// emu emulates the F-DSP register behaviour on top of an in-memory
// register file, and records every queued operation.
type emu struct {
	mem *bus.Mem
	dev *bus.Batch
	ops []bus.Op

	stuck     bool          // F-DSP ignores stop requests
	stuckApps chunk.AppMask // applications ignoring stop requests

	irq  byte
	ireq [3]byte

	sel    byte
	pos    uint32
	window map[winKey]byte

	fault func(r bus.Reg, v byte) error // injected register write failures
}

func newEmu() *emu {
	e := &emu{window: make(map[winKey]byte)}
	e.mem = bus.NewMem(e.hook)
	e.dev = bus.NewBatch(e, bus.WithPollInterval(time.Microsecond))
	return e
}

func (e *emu) Add(op bus.Op) {
	e.ops = append(e.ops, op)
	e.dev.Add(op)
}

func (e *emu) Execute() error { return e.dev.Execute() }
func (e *emu) Invalidate()    { e.dev.Invalidate() }

func (e *emu) Read(r bus.Reg) (byte, error) {
	if r == fReg(regs.F_MDATA) {
		v := e.window[winKey{e.sel, e.pos}]
		e.pos++
		return v, nil
	}
	return e.dev.Read(r)
}

func (e *emu) ReadReg(r bus.Reg) (byte, error) { return e.mem.ReadReg(r) }

func (e *emu) WriteReg(r bus.Reg, v byte) error {
	if e.fault != nil {
		err := e.fault(r, v)
		if err != nil {
			return err
		}
	}
	return e.mem.WriteReg(r, v)
}

func (e *emu) peek(addr uint16) byte     { return e.mem.Peek(fReg(addr)) }
func (e *emu) poke(addr uint16, v byte) { e.mem.Poke(fReg(addr), v) }

func (e *emu) mask(base uint16) chunk.AppMask {
	return chunk.AppMaskFrom([3]byte{e.peek(base), e.peek(base + 1), e.peek(base + 2)})
}

func (e *emu) setMask(base uint16, m chunk.AppMask) {
	for i, v := range m.Bytes() {
		e.poke(base+uint16(i), v)
	}
}

func (e *emu) raise(bits byte) {
	e.irq |= bits
	e.poke(regs.F_IRQ, e.irq)
}

func (e *emu) request(m chunk.AppMask) {
	e.ireq = m.Bytes()
	e.setMask(regs.F_APPIREQ0, m)
	e.raise(regs.IRQ_APPREQ)
}

// release lets stuck units complete their pending stop.
func (e *emu) release() {
	e.stuck = false
	e.stuckApps = 0
	if e.peek(regs.F_FDSPCTL)&regs.FDSPCTL_START == 0 && e.peek(regs.F_FDSPSTATE) != 0 {
		e.poke(regs.F_FDSPSTATE, 0)
		e.raise(regs.IRQ_FDSPSTOP)
	}
	e.syncAct()
}

func (e *emu) syncAct() {
	var (
		prev = e.mask(regs.F_APPACT0)
		act  = chunk.AppMask(0)
	)
	if e.peek(regs.F_FDSPSTATE)&regs.FDSPSTATE_ACT != 0 {
		act = e.mask(regs.F_APPEXEC0) | prev&e.stuckApps
	}
	e.setMask(regs.F_APPACT0, act)
	if prev&^act != 0 {
		e.raise(regs.IRQ_APPSTOP)
	}
}

func (e *emu) hook(r bus.Reg, v byte) {
	if r.Bank != bus.BankF {
		return
	}
	switch a := r.Addr; {
	case a == regs.F_FDSPCTL:
		switch {
		case v&regs.FDSPCTL_START != 0:
			e.poke(regs.F_FDSPSTATE, regs.FDSPSTATE_ACT)
		case !e.stuck && e.peek(regs.F_FDSPSTATE) != 0:
			e.poke(regs.F_FDSPSTATE, 0)
			e.raise(regs.IRQ_FDSPSTOP)
		}
		e.syncAct()
	case a >= regs.F_APPEXEC0 && a < regs.F_APPEXEC0+3:
		e.syncAct()
	case a == regs.F_COEFCTL:
		if v&regs.COEFCTL_REQ != 0 {
			e.poke(a, 0)
			e.raise(regs.IRQ_COEFDONE)
		}
	case a == regs.F_IRQ:
		e.irq &^= v
		e.poke(a, e.irq)
	case a >= regs.F_APPIREQ0 && a < regs.F_APPIREQ0+3:
		i := a - regs.F_APPIREQ0
		e.ireq[i] &^= v
		e.poke(a, e.ireq[i])
	case a == regs.F_MSEL:
		e.sel = v
	case a >= regs.F_MADR0 && a < regs.F_MADR0+3:
		adr := uint32(e.peek(regs.F_MADR0))<<16 | uint32(e.peek(regs.F_MADR0+1))<<8 | uint32(e.peek(regs.F_MADR0+2))
		e.pos = adr * WordSize
	case a == regs.F_MDATA:
		e.window[winKey{e.sel, e.pos}] = v
		e.pos++
	}
}

// waits returns the event waits queued on the register at addr.
func (e *emu) waits(addr uint16) []bus.Op {
	var ops []bus.Op
	for _, op := range e.ops {
		if op.Kind == bus.EventWait && op.Reg == fReg(addr) {
			ops = append(ops, op)
		}
	}
	return ops
}

type recorder struct {
	evts []Event
}

func (rec *recorder) cb(ev Event) { rec.evts = append(rec.evts, ev) }

func newTestController(t *testing.T, e *emu, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	opts = append([]Option{
		WithLogger(log.New(io.Discard, "fdsp: ", 0)),
		WithStopTimeout(time.Millisecond),
		WithAppStopTimeout(time.Millisecond),
		WithCoefTimeout(time.Millisecond),
		WithFadeTime(0),
	}, opts...)

	var (
		ctl = New(e, opts...)
		rec = new(recorder)
	)
	ctl.SetCallback(rec.cb)
	return ctl, rec
}

// newRunningController returns an initialized controller with a running F-DSP.
func newRunningController(t *testing.T, e *emu, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	ctl, rec := newTestController(t, e, opts...)
	err := ctl.Init(Config{InFormat: 0x01, OutFormat: 0x02})
	if err != nil {
		t.Fatalf("could not initialize controller: %+v", err)
	}
	err = ctl.Start()
	if err != nil {
		t.Fatalf("could not start controller: %+v", err)
	}
	e.ops = nil
	return ctl, rec
}

type blob struct {
	buf bytes.Buffer
	enc *chunk.Encoder
}

func newBlob() *blob {
	b := new(blob)
	b.enc = chunk.NewEncoder(&b.buf)
	return b
}

func (b *blob) bytes() []byte { return b.buf.Bytes() }

func (b *blob) exec(reqs map[int]byte) *blob {
	var exec [chunk.NumApps]byte
	for i := range exec {
		exec[i] = chunk.DontCare
	}
	for app, v := range reqs {
		exec[app] = v
	}
	_ = b.enc.WriteFwCtrl(chunk.DontCare, chunk.DontCare, exec)
	return b
}
