// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bus queues codec register operations and executes them as
// atomic batches over a register transport.
package bus // import "github.com/go-lpc/fdsp/bus"

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout reports an event wait that did not observe the
	// expected register state before its deadline.
	ErrTimeout = errors.New("bus: timeout")

	errBadReg = errors.New("bus: invalid register")
)

// Bank identifies a codec register bank.
type Bank uint8

const (
	BankIF Bank = iota // audio interface
	BankF              // F-DSP
	NumBanks
)

// BankSize is the number of addressable registers per bank.
const BankSize = 0x100

func (b Bank) String() string {
	switch b {
	case BankIF:
		return "IF"
	case BankF:
		return "F"
	}
	return fmt.Sprintf("Bank(%d)", uint8(b))
}

// Reg addresses a byte register.
type Reg struct {
	Bank Bank
	Addr uint16
}

func (r Reg) String() string { return fmt.Sprintf("%v[0x%02x]", r.Bank, r.Addr) }

func (r Reg) valid() bool { return r.Bank < NumBanks && r.Addr < BankSize }

// Kind is the kind of a queued operation.
type Kind uint8

const (
	Write      Kind = iota // write, skipped when the register already holds the value
	ForceWrite             // write, always issued
	TimedWait              // sleep for Op.Wait
	EventWait              // poll Op.Reg until Op.Mask bits are set (or cleared), for at most Op.Wait
)

func (k Kind) String() string {
	switch k {
	case Write:
		return "write"
	case ForceWrite:
		return "force-write"
	case TimedWait:
		return "timed-wait"
	case EventWait:
		return "event-wait"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Op is a register operation.
type Op struct {
	Kind  Kind
	Reg   Reg
	Value byte
	Mask  byte
	Set   bool
	Wait  time.Duration
}

// WriteOp returns an operation writing v to r.
func WriteOp(r Reg, v byte) Op { return Op{Kind: Write, Reg: r, Value: v} }

// ForceWriteOp returns an operation writing v to r, even if r already holds v.
func ForceWriteOp(r Reg, v byte) Op { return Op{Kind: ForceWrite, Reg: r, Value: v} }

// SleepOp returns an operation waiting for d.
func SleepOp(d time.Duration) Op { return Op{Kind: TimedWait, Wait: d} }

// WaitOp returns an operation polling r until all mask bits are set
// (or all cleared if set is false), for at most timeout.
func WaitOp(r Reg, mask byte, set bool, timeout time.Duration) Op {
	return Op{Kind: EventWait, Reg: r, Mask: mask, Set: set, Wait: timeout}
}

func (op Op) String() string {
	switch op.Kind {
	case Write, ForceWrite:
		return fmt.Sprintf("%v %v=0x%02x", op.Kind, op.Reg, op.Value)
	case TimedWait:
		return fmt.Sprintf("%v %v", op.Kind, op.Wait)
	case EventWait:
		return fmt.Sprintf("%v %v&0x%02x set=%v timeout=%v", op.Kind, op.Reg, op.Mask, op.Set, op.Wait)
	}
	return op.Kind.String()
}

// Transport reads and writes single codec registers.
type Transport interface {
	ReadReg(r Reg) (byte, error)
	WriteReg(r Reg, v byte) error
}
