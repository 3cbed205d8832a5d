// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunk

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encoder writes chunks to an output stream.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, HeaderSize),
	}
}

// WriteChunk writes a chunk with the provided tag and payload.
func (enc *Encoder) WriteChunk(tag Tag, payload []byte) error {
	if enc.err != nil {
		return enc.err
	}
	if uint64(len(payload)) > 0xffffffff {
		enc.err = fmt.Errorf("chunk: payload too large (%d bytes)", len(payload))
		return enc.err
	}
	binary.BigEndian.PutUint32(enc.buf[0:4], uint32(tag))
	binary.BigEndian.PutUint32(enc.buf[4:8], uint32(len(payload)))
	enc.write(enc.buf[:HeaderSize])
	enc.write(payload)
	if enc.err != nil {
		return fmt.Errorf("chunk: could not write %v chunk: %w", tag, enc.err)
	}
	return nil
}

// WriteFwCtrl writes a firmware-control chunk.
// exec holds one execution request (ExecStop, ExecRun or DontCare) per
// application.
func (enc *Encoder) WriteFwCtrl(fs, fade byte, exec [NumApps]byte) error {
	p := make([]byte, minFwCtrl)
	p[fwModOff] = 0
	p[fwFSOff] = fs
	p[fwFadeOff] = fade
	copy(p[fwExecOff:], exec[:])
	return enc.WriteChunk(TagFwCtrl, p)
}

// Env describes an application environment.
type Env struct {
	ID      byte
	RegBase uint32
	Fade    bool
	IRQ     bool
	Words   [EnvWordsLen]byte
}

// WriteAppEnv writes the environment chunk of app.
func (enc *Encoder) WriteAppEnv(app int, env Env) error {
	p := make([]byte, minAppEnv)
	p[envIDOff] = env.ID
	putU24(p[envBaseOff:], env.RegBase)
	if env.Fade {
		p[envFadeOff] = 0x01
	}
	if env.IRQ {
		p[envIRQOff] = 0x01
	}
	copy(p[envWordsOff:], env.Words[:])
	return enc.WriteChunk(AppTag(TagAppEnv, app), p)
}

// WriteMem writes a top-coefficient, instruction or register chunk.
func (enc *Encoder) WriteMem(tag Tag, sel byte, addr uint32, data []byte) error {
	p := make([]byte, 8+len(data))
	p[0] = sel
	putU24(p[1:], addr)
	binary.BigEndian.PutUint32(p[4:], uint32(len(data)))
	copy(p[8:], data)
	return enc.WriteChunk(tag, p)
}

// WriteCoef writes an application coefficient or constant chunk.
func (enc *Encoder) WriteCoef(tag Tag, sel byte, addr uint32, mode TransferMode, data []byte) error {
	p := make([]byte, 9+len(data))
	p[0] = sel
	putU24(p[1:], addr)
	p[4] = byte(mode)
	binary.BigEndian.PutUint32(p[5:], uint32(len(data)))
	copy(p[9:], data)
	return enc.WriteChunk(tag, p)
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}

func putU24(p []byte, v uint32) {
	p[0] = byte(v >> 16)
	p[1] = byte(v >> 8)
	p[2] = byte(v >> 0)
}
