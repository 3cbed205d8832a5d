// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"fmt"
	"sync"
)

// Mem is an in-memory register file.
type Mem struct {
	mu   sync.RWMutex
	regs [NumBanks][BankSize]byte
	hook func(r Reg, v byte)
}

// NewMem returns a zeroed register file.
// When not nil, hook is called after each register write, outside of
// any lock: it may Poke registers to emulate hardware reactions.
func NewMem(hook func(r Reg, v byte)) *Mem {
	return &Mem{hook: hook}
}

func (m *Mem) ReadReg(r Reg) (byte, error) {
	if !r.valid() {
		return 0, fmt.Errorf("%w %v", errBadReg, r)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regs[r.Bank][r.Addr], nil
}

func (m *Mem) WriteReg(r Reg, v byte) error {
	if !r.valid() {
		return fmt.Errorf("%w %v", errBadReg, r)
	}
	m.Poke(r, v)
	if m.hook != nil {
		m.hook(r, v)
	}
	return nil
}

// Peek returns the content of r.
func (m *Mem) Peek(r Reg) byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regs[r.Bank][r.Addr]
}

// Poke sets the content of r, without triggering the write hook.
func (m *Mem) Poke(r Reg, v byte) {
	m.mu.Lock()
	m.regs[r.Bank][r.Addr] = v
	m.mu.Unlock()
}

var _ Transport = (*Mem)(nil)
