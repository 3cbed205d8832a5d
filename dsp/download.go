// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"fmt"

	"github.com/go-lpc/fdsp/chunk"
	"github.com/go-lpc/fdsp/dsp/internal/regs"
)

// loaded is the controller state derived from a downloaded blob.
// It is only committed once the download executed.
type loaded struct {
	bypass bool
	fixed  bool
	fade   chunk.AppMask
	ienb   chunk.AppMask
}

// download writes the configuration described by p, category after
// category, and executes the whole sequence as one batch.
func (ctl *Controller) download(p *chunk.Plan) error {
	ld := loaded{
		bypass: ctl.st.bypass,
		fixed:  ctl.st.fixed,
		fade:   ctl.st.fade,
		ienb:   ctl.st.ienb,
	}

	if p.FwCtrl.Valid() {
		ctl.dlFwCtrl(chunk.FwCtrl(p.Payload(p.FwCtrl)))
	}

	if p.ChSel.Valid() {
		ctl.dlRegs(regs.F_CHSEL, p.Payload(p.ChSel)[:regs.NumChSel])
	}

	if p.TopEnv.Valid() {
		env := p.Payload(p.TopEnv)[:regs.NumTopEnv]
		ctl.dlRegs(regs.F_TOPENV, env)
		ld.bypass = env[0]&0x01 != 0
	}

	if p.NumTopCoef > 0 {
		err := ctl.dlEach(p, func(tag chunk.Tag) bool { return tag == chunk.TagTopCoef }, ctl.dlMem)
		if err != nil {
			return err
		}
	}

	if p.TopIns.Valid() {
		err := ctl.dlMem(chunk.Chunk{Tag: chunk.TagTopIns, Data: p.Payload(p.TopIns)})
		if err != nil {
			return err
		}
	}

	for app := range p.Apps {
		if s := p.Apps[app].Env; s.Valid() {
			ctl.dlAppEnv(&ld, app, chunk.AppEnv(p.Payload(s)))
		}
	}

	if p.HasCoefs() {
		err := ctl.dlCoefs(p)
		if err != nil {
			return err
		}
	}

	for app := range p.Apps {
		if s := p.Apps[app].Ins; s.Valid() {
			err := ctl.dlMem(chunk.Chunk{Tag: chunk.AppTag(chunk.TagAppIns, app), Data: p.Payload(s)})
			if err != nil {
				return err
			}
		}
	}

	if p.NumReg > 0 {
		err := ctl.dlEach(p, func(tag chunk.Tag) bool { return tag.Category() == chunk.TagAppReg }, ctl.dlRegChunk)
		if err != nil {
			return err
		}
	}

	err := ctl.flush()
	if err != nil {
		return err
	}

	ctl.st.bypass = ld.bypass
	ctl.st.fixed = ld.fixed
	ctl.st.fade = ld.fade
	ctl.st.ienb = ld.ienb
	return nil
}

// dlEach re-scans the blob of p and calls fn for each chunk selected by sel.
func (ctl *Controller) dlEach(p *chunk.Plan, sel func(tag chunk.Tag) bool, fn func(c chunk.Chunk) error) error {
	return chunk.Walk(p.Blob(), func(c chunk.Chunk) error {
		if !sel(c.Tag) {
			return nil
		}
		return fn(c)
	})
}

func (ctl *Controller) dlFwCtrl(fw chunk.FwCtrl) {
	ctl.write(regs.F_FWMOD, fw.Mode())
	if v := fw.FS(); v != chunk.DontCare {
		ctl.write(regs.F_FS, v)
	}
	if v := fw.FadeCode(); v != chunk.DontCare {
		ctl.write(regs.F_FADECODE, v)
	}
}

func (ctl *Controller) dlRegs(base uint16, p []byte) {
	for i, v := range p {
		ctl.write(base+uint16(i), v)
	}
}

// dlWindow queues the writes of data through the memory window.
func (ctl *Controller) dlWindow(sel byte, addr uint32, data []byte) {
	ctl.force(regs.F_MSEL, sel)
	ctl.force(regs.F_MADR0+0, byte(addr>>16))
	ctl.force(regs.F_MADR0+1, byte(addr>>8))
	ctl.force(regs.F_MADR0+2, byte(addr))
	for _, v := range data {
		ctl.force(regs.F_MDATA, v)
	}
}

func (ctl *Controller) dlMem(c chunk.Chunk) error {
	m, err := chunk.DecodeMem(c.Data, true)
	if err != nil {
		return fmt.Errorf("fdsp: invalid %v chunk: %w", c.Tag, err)
	}
	if len(m.Data) == 0 {
		return nil
	}
	ctl.dlWindow(m.Sel, m.Addr, m.Data)
	return nil
}

func (ctl *Controller) dlRegChunk(c chunk.Chunk) error {
	m, err := chunk.DecodeMem(c.Data, false)
	if err != nil {
		return fmt.Errorf("fdsp: invalid %v chunk: %w", c.Tag, err)
	}
	if len(m.Data) == 0 {
		return nil
	}
	ctl.dlWindow(m.Sel, m.Addr, m.Data)
	return nil
}

// dlAppEnv writes the environment of app and records its fade and
// interrupt request flags into ld.
func (ctl *Controller) dlAppEnv(ld *loaded, app int, env chunk.AppEnv) {
	addr := uint32(regs.ENV_BASE + app*regs.ENV_STRIDE)
	ctl.dlWindow(regs.MSEL_ENV, addr, env[:chunk.EnvSize])

	bit := chunk.AppMask(0).With(app)
	ld.fade &^= bit
	if env.Fade() {
		ld.fade |= bit
	}
	ld.ienb &^= bit
	if env.IRQ() {
		ld.ienb |= bit
	}
	if app == chunk.FixedApp {
		ld.fixed = env.FixedVolume()
	}
}

// dlCoefs writes the application coefficients and constants.
// In DSP-mediated mode, the payload is staged and the firmware is asked
// to load it into the application memory.
func (ctl *Controller) dlCoefs(p *chunk.Plan) error {
	var (
		staged = false
		app    = 0
	)
	err := ctl.dlEach(p, func(tag chunk.Tag) bool {
		cat := tag.Category()
		return cat == chunk.TagAppCoef || cat == chunk.TagAppConst
	}, func(c chunk.Chunk) error {
		m, err := chunk.DecodeCoef(c.Data)
		if err != nil {
			return fmt.Errorf("fdsp: invalid %v chunk: %w", c.Tag, err)
		}
		if len(m.Data) == 0 {
			return nil
		}
		switch p.Mode {
		case chunk.DSPMediated:
			app = c.Tag.App()
			staged = true
			ctl.dlWindow(regs.MSEL_STAGE, m.Addr, m.Data)
		default:
			ctl.dlWindow(m.Sel, m.Addr, m.Data)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if staged {
		ctl.force(regs.F_COEFAPP, byte(app))
		ctl.force(regs.F_COEFCTL, regs.COEFCTL_REQ)
	}
	return nil
}
