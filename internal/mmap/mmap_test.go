// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap // import "github.com/go-lpc/fdsp/internal/mmap"

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRegionInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		m    *Region
		err  error
	}{
		{name: "nil-region", m: nil, err: os.ErrInvalid},
		{name: "unmapped", m: &Region{}, err: errClosed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.m.Byte(0)
			if !errors.Is(err, tc.err) {
				t.Fatalf("invalid byte error: %+v", err)
			}

			err = tc.m.SetByte(0, 1)
			if !errors.Is(err, tc.err) {
				t.Fatalf("invalid set-byte error: %+v", err)
			}

			err = tc.m.Sync()
			if !errors.Is(err, tc.err) {
				t.Fatalf("invalid sync error: %+v", err)
			}

			if got := tc.m.Len(); got != 0 {
				t.Fatalf("invalid len: %d", got)
			}
		})
	}

	var m *Region
	if err := m.Unmap(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("invalid unmap error: %+v", err)
	}
	if err := new(Region).Unmap(); err != nil {
		t.Fatalf("could not unmap empty region: %+v", err)
	}
}

func TestMap(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "regs.img")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatalf("could not create file: %+v", err)
	}
	defer f.Close()

	const size = 4096
	err = f.Truncate(size)
	if err != nil {
		t.Fatalf("could not resize file: %+v", err)
	}

	m, err := Map(f, 0, size)
	if err != nil {
		t.Fatalf("could not mmap file: %+v", err)
	}

	if got, want := m.Len(), size; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	for i, v := range []byte{0xca, 0xfe} {
		err = m.SetByte(int64(0x10+i), v)
		if err != nil {
			t.Fatalf("could not set byte: %+v", err)
		}
	}

	v, err := m.Byte(0x11)
	if err != nil {
		t.Fatalf("could not get byte: %+v", err)
	}
	if got, want := v, byte(0xfe); got != want {
		t.Fatalf("invalid byte: got=0x%02x, want=0x%02x", got, want)
	}

	for _, off := range []int64{-1, size} {
		_, err = m.Byte(off)
		if err == nil {
			t.Fatalf("expected an error for offset %d", off)
		}
	}

	err = m.Sync()
	if err != nil {
		t.Fatalf("could not sync: %+v", err)
	}

	err = m.Unmap()
	if err != nil {
		t.Fatalf("could not unmap: %+v", err)
	}

	_, err = m.Byte(0x10)
	if !errors.Is(err, errClosed) {
		t.Fatalf("invalid error after unmap: %+v", err)
	}

	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read back file: %+v", err)
	}
	if got, want := raw[0x10:0x12], []byte{0xca, 0xfe}; string(got) != string(want) {
		t.Fatalf("invalid file content: got=%x, want=%x", got, want)
	}
}
