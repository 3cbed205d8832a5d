// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunk

// Parse validates buf and builds the download plan it describes.
//
// Parse never copies payloads: the returned plan records offsets into buf.
// Any malformed chunk aborts the whole parse and no plan is returned.
// Unknown tags are skipped. An empty buf yields an empty plan.
func Parse(buf []byte) (*Plan, error) {
	var (
		p  = &Plan{buf: buf}
		st parser
	)
	err := Walk(buf, func(c Chunk) error {
		return st.chunk(p, c)
	})
	if err != nil {
		return nil, err
	}
	p.selectMode(st.direct)
	return p, nil
}

const (
	seenFwCtrl = 1 << iota
	seenChSel
	seenTopEnv
	seenTopIns
)

type parser struct {
	seen   uint8
	env    AppMask // applications with an environment chunk
	ins    AppMask // applications with an instruction chunk
	direct bool    // a chunk requires direct memory access
}

func (st *parser) chunk(p *Plan, c Chunk) error {
	switch c.Tag {
	case TagFwCtrl:
		return st.fwCtrl(p, c)
	case TagChSel:
		if err := st.singleton(c, seenChSel, minChSel); err != nil {
			return err
		}
		p.ChSel = span(c)
		p.MustStop |= StopFDSP
		return nil
	case TagTopEnv:
		if err := st.singleton(c, seenTopEnv, minTopEnv); err != nil {
			return err
		}
		p.TopEnv = span(c)
		p.MustStop |= StopFDSP
		return nil
	case TagTopCoef:
		return st.topCoef(p, c)
	case TagTopIns:
		return st.topIns(p, c)
	}

	if !c.Tag.IsApp() {
		return nil
	}

	app := c.Tag.App()
	if app >= NumApps {
		return errInvalid(c, "application index %d out of range [0, %d)", app, NumApps)
	}

	switch c.Tag.Category() {
	case TagAppEnv:
		return st.appEnv(p, c, app)
	case TagAppCoef, TagAppConst:
		return st.appCoef(p, c, app)
	case TagAppIns:
		return st.appIns(p, c, app)
	case TagAppReg:
		return st.appReg(p, c, app)
	}
	return nil
}

func (st *parser) singleton(c Chunk, bit uint8, size int) error {
	if st.seen&bit != 0 {
		return errInvalid(c, "duplicate chunk")
	}
	st.seen |= bit
	return checkSize(c, size)
}

func checkSize(c Chunk, size int) error {
	if len(c.Data) < size {
		return errInvalid(c, "payload too small (%d bytes, want at least %d)", len(c.Data), size)
	}
	return nil
}

func span(c Chunk) Span {
	return Span{Off: c.Off, Len: len(c.Data)}
}

func (st *parser) fwCtrl(p *Plan, c Chunk) error {
	err := st.singleton(c, seenFwCtrl, minFwCtrl)
	if err != nil {
		return err
	}

	fw := FwCtrl(c.Data)
	if v := fw.Mode(); v != 0 {
		return errInvalid(c, "invalid firmware mode 0x%02x", v)
	}

	if fw.FS() != DontCare || fw.FadeCode() != DontCare {
		p.MustStop |= StopFDSP
	}
	for app := 0; app < NumApps; app++ {
		if app == FixedApp {
			continue
		}
		if fw.Exec(app) != DontCare {
			p.MustStop |= StopAppExec
			break
		}
	}

	p.FwCtrl = span(c)
	return nil
}

func (st *parser) topCoef(p *Plan, c Chunk) error {
	err := checkSize(c, minTopCoef)
	if err != nil {
		return err
	}
	_, err = DecodeMem(c.Data, true)
	if err != nil {
		return errInvalid(c, "%v", err)
	}
	p.NumTopCoef++
	p.MustStop |= StopFDSP
	return nil
}

func (st *parser) topIns(p *Plan, c Chunk) error {
	err := st.singleton(c, seenTopIns, minTopIns)
	if err != nil {
		return err
	}
	m, err := DecodeMem(c.Data, true)
	if err != nil {
		return errInvalid(c, "%v", err)
	}
	if len(m.Data) == 0 {
		return nil
	}
	p.TopIns = span(c)
	p.MustStop |= StopFDSP
	return nil
}

func (st *parser) appEnv(p *Plan, c Chunk, app int) error {
	if st.env.Has(app) {
		return errInvalid(c, "duplicate environment chunk")
	}
	st.env = st.env.With(app)

	err := checkSize(c, minAppEnv)
	if err != nil {
		return err
	}

	if app == FixedApp {
		env := AppEnv(c.Data)
		switch id := env.ID(); id {
		case FixedVolumeID:
			p.FixedVolume = true
		case 0:
			// unused slot.
		default:
			return errInvalid(c, "invalid environment id 0x%02x for fixed application", id)
		}
		if base := env.RegBase(); base != FixedRegBase {
			return errInvalid(c,
				"invalid register base 0x%06x for fixed application (want 0x%06x)",
				base, FixedRegBase,
			)
		}
	}

	p.Apps[app].Env = span(c)
	p.Targets = p.Targets.With(app)
	p.MustStop |= StopApps
	st.direct = true
	return nil
}

func (st *parser) appCoef(p *Plan, c Chunk, app int) error {
	err := checkSize(c, minAppCoef)
	if err != nil {
		return err
	}
	m, err := DecodeCoef(c.Data)
	if err != nil {
		return errInvalid(c, "%v", err)
	}
	if len(m.Data) == 0 {
		return nil
	}

	if c.Tag.Category() == TagAppConst {
		p.NumConst++
		p.Apps[app].NumConst++
	} else {
		p.NumCoef++
		p.Apps[app].NumCoef++
	}
	if n := len(m.Data); n > p.MaxCoefLen {
		p.MaxCoefLen = n
	}
	if m.Mode != DSPMediated {
		st.direct = true
		p.MustStop |= StopApps
	}
	p.MustStop |= StopCoefWait
	p.Targets = p.Targets.With(app)
	p.Coefs = p.Coefs.With(app)
	return nil
}

func (st *parser) appIns(p *Plan, c Chunk, app int) error {
	if st.ins.Has(app) {
		return errInvalid(c, "duplicate instruction chunk")
	}
	st.ins = st.ins.With(app)

	err := checkSize(c, minAppIns)
	if err != nil {
		return err
	}
	m, err := DecodeMem(c.Data, true)
	if err != nil {
		return errInvalid(c, "%v", err)
	}
	if len(m.Data) == 0 {
		return nil
	}

	p.Apps[app].Ins = span(c)
	p.Targets = p.Targets.With(app)
	p.MustStop |= StopApps
	st.direct = true
	return nil
}

func (st *parser) appReg(p *Plan, c Chunk, app int) error {
	err := checkSize(c, minAppReg)
	if err != nil {
		return err
	}
	m, err := DecodeMem(c.Data, false)
	if err != nil {
		return errInvalid(c, "%v", err)
	}
	if len(m.Data) == 0 {
		return nil
	}
	p.NumReg++
	p.Apps[app].NumReg++
	p.MustStop |= StopCoefWait
	return nil
}
