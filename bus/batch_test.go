// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type recorder struct {
	*Mem
	writes []Op
	fail   error
}

func newRecorder(hook func(r Reg, v byte)) *recorder {
	return &recorder{Mem: NewMem(hook)}
}

func (rec *recorder) WriteReg(r Reg, v byte) error {
	if rec.fail != nil {
		return rec.fail
	}
	rec.writes = append(rec.writes, WriteOp(r, v))
	return rec.Mem.WriteReg(r, v)
}

func TestBatchWrites(t *testing.T) {
	var (
		r0  = Reg{BankF, 0x10}
		r1  = Reg{BankIF, 0x01}
		rec = newRecorder(nil)
		b   = NewBatch(rec)
	)

	b.Add(WriteOp(r0, 1))
	b.Add(WriteOp(r0, 1)) // elided
	b.Add(ForceWriteOp(r0, 1))
	b.Add(WriteOp(r1, 2))
	b.Add(WriteOp(r0, 3))
	if got, want := b.Len(), 5; got != want {
		t.Fatalf("invalid queue length: got=%d, want=%d", got, want)
	}

	err := b.Execute()
	if err != nil {
		t.Fatalf("could not execute batch: %+v", err)
	}
	if got, want := b.Len(), 0; got != want {
		t.Fatalf("queue not drained: got=%d, want=%d", got, want)
	}

	want := []Op{WriteOp(r0, 1), WriteOp(r0, 1), WriteOp(r1, 2), WriteOp(r0, 3)}
	if got := rec.writes; fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("invalid writes:\ngot= %v\nwant=%v", got, want)
	}

	v, err := b.Read(r0)
	if err != nil {
		t.Fatalf("could not read back: %+v", err)
	}
	if v != 3 {
		t.Fatalf("invalid register value: got=%d, want=3", v)
	}

	// after a reset, unchanged values are written again.
	rec.writes = nil
	b.Invalidate()
	b.Add(WriteOp(r0, 3))
	err = b.Execute()
	if err != nil {
		t.Fatalf("could not execute batch: %+v", err)
	}
	if got, want := len(rec.writes), 1; got != want {
		t.Fatalf("invalid number of writes: got=%d, want=%d", got, want)
	}
}

func TestBatchEventWait(t *testing.T) {
	var (
		ctl   = Reg{BankF, 0x00}
		state = Reg{BankF, 0x01}
		mem   *Mem
	)
	mem = NewMem(func(r Reg, v byte) {
		if r == ctl {
			mem.Poke(state, v&0x01)
		}
	})
	b := NewBatch(mem, WithPollInterval(time.Microsecond))

	b.Add(WriteOp(ctl, 1))
	b.Add(WaitOp(state, 0x01, true, time.Second))
	b.Add(SleepOp(time.Microsecond))
	b.Add(WriteOp(ctl, 0))
	b.Add(WaitOp(state, 0x01, false, time.Second))

	err := b.Execute()
	if err != nil {
		t.Fatalf("could not execute batch: %+v", err)
	}
}

func TestBatchTimeout(t *testing.T) {
	var (
		state = Reg{BankF, 0x01}
		mem   = NewMem(nil)
		b     = NewBatch(mem)
		now   = time.Unix(0, 0)
		polls = 0
	)
	b.now = func() time.Time { return now }
	b.sleep = func(d time.Duration) {
		polls++
		now = now.Add(d)
	}

	mem.Poke(state, 0x01)
	b.Add(WaitOp(state, 0x01, false, time.Millisecond))
	b.Add(WriteOp(Reg{BankF, 0x02}, 0x42))

	err := b.Execute()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("invalid error: got=%+v, want=%v", err, ErrTimeout)
	}
	if got, want := polls, 10; got != want {
		t.Fatalf("invalid number of polls: got=%d, want=%d", got, want)
	}
	if got := mem.Peek(Reg{BankF, 0x02}); got != 0 {
		t.Fatalf("operation after failure was executed")
	}
	if got := b.Len(); got != 0 {
		t.Fatalf("queue not drained after failure: %d", got)
	}
}

func TestBatchErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		op   Op
		fail error
		want string
	}{
		{
			name: "bad-bank",
			op:   WriteOp(Reg{Bank(7), 0}, 1),
			want: "bus: op 1/1 (write Bank(7)[0x00]=0x01): bus: invalid register Bank(7)[0x00]",
		},
		{
			name: "bad-addr",
			op:   WaitOp(Reg{BankF, 0x100}, 1, true, 0),
			want: "bus: op 1/1 (event-wait F[0x100]&0x01 set=true timeout=0s): bus: invalid register F[0x100]",
		},
		{
			name: "bad-kind",
			op:   Op{Kind: Kind(9)},
			want: "bus: op 1/1 (Kind(9)): bus: invalid operation kind Kind(9)",
		},
		{
			name: "transport",
			op:   ForceWriteOp(Reg{BankIF, 0}, 1),
			fail: errors.New("i/o error"),
			want: "bus: op 1/1 (force-write IF[0x00]=0x01): i/o error",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := newRecorder(nil)
			rec.fail = tc.fail
			b := NewBatch(rec)
			b.Add(tc.op)
			err := b.Execute()
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.want; got != want {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
			}
		})
	}

	_, err := NewBatch(NewMem(nil)).Read(Reg{NumBanks, 0})
	if !errors.Is(err, errBadReg) {
		t.Fatalf("invalid read error: %+v", err)
	}
}
