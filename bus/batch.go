// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Batch queues register operations and executes them in order over a
// Transport. Batch keeps a shadow of the last value written to each
// register so that plain writes of an unchanged value are elided.
//
// Batch is safe for concurrent use: Execute and Read are serialized.
type Batch struct {
	mu     sync.Mutex
	tr     Transport
	ops    []Op
	shadow map[Reg]byte

	poll  time.Duration
	sleep func(time.Duration)
	now   func() time.Time
}

// Option configures a Batch.
type Option func(*Batch)

// WithPollInterval sets the delay between two reads of an event wait.
func WithPollInterval(d time.Duration) Option {
	return func(b *Batch) {
		b.poll = d
	}
}

// NewBatch returns a new Batch executing operations over tr.
func NewBatch(tr Transport, opts ...Option) *Batch {
	b := &Batch{
		tr:     tr,
		shadow: make(map[Reg]byte),
		poll:   100 * time.Microsecond,
		sleep:  time.Sleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add queues op.
func (b *Batch) Add(op Op) {
	b.mu.Lock()
	b.ops = append(b.ops, op)
	b.mu.Unlock()
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

// Execute runs all queued operations, in order, and empties the queue.
// Execution stops at the first failing operation.
func (b *Batch) Execute() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ops := b.ops
	b.ops = b.ops[:0]

	for i, op := range ops {
		err := b.exec(op)
		if err != nil {
			return fmt.Errorf("bus: op %d/%d (%v): %w", i+1, len(ops), op, err)
		}
	}
	return nil
}

func (b *Batch) exec(op Op) error {
	switch op.Kind {
	case Write, ForceWrite:
		if !op.Reg.valid() {
			return fmt.Errorf("%w %v", errBadReg, op.Reg)
		}
		if v, ok := b.shadow[op.Reg]; ok && v == op.Value && op.Kind == Write {
			return nil
		}
		err := b.tr.WriteReg(op.Reg, op.Value)
		if err != nil {
			delete(b.shadow, op.Reg)
			return err
		}
		b.shadow[op.Reg] = op.Value
		return nil

	case TimedWait:
		if op.Wait > 0 {
			b.sleep(op.Wait)
		}
		return nil

	case EventWait:
		if !op.Reg.valid() {
			return fmt.Errorf("%w %v", errBadReg, op.Reg)
		}
		want := byte(0)
		if op.Set {
			want = op.Mask
		}
		deadline := b.now().Add(op.Wait)
		for {
			v, err := b.tr.ReadReg(op.Reg)
			if err != nil {
				return err
			}
			if v&op.Mask == want {
				return nil
			}
			if !b.now().Before(deadline) {
				return fmt.Errorf("%v=0x%02x: %w", op.Reg, v, ErrTimeout)
			}
			b.sleep(b.poll)
		}
	}
	return fmt.Errorf("bus: invalid operation kind %v", op.Kind)
}

// Read reads r directly from the transport, bypassing the queue.
func (b *Batch) Read(r Reg) (byte, error) {
	if !r.valid() {
		return 0, fmt.Errorf("%w %v", errBadReg, r)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.tr.ReadReg(r)
	if err != nil {
		return 0, fmt.Errorf("bus: could not read %v: %w", r, err)
	}
	return v, nil
}

// Invalidate forgets all shadowed register values, so that the next
// writes are issued unconditionally. It is needed after a device reset.
func (b *Batch) Invalidate() {
	b.mu.Lock()
	b.shadow = make(map[Reg]byte)
	b.mu.Unlock()
}

// Close closes the underlying transport, if it is an io.Closer.
func (b *Batch) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = nil
	if c, ok := b.tr.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
