// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides byte access to shared memory-mapped files.
package mmap // import "github.com/go-lpc/fdsp/internal/mmap"

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var errClosed = errors.New("mmap: closed")

// Region is a shared, writable, mapping of a file.
type Region struct {
	data []byte
}

// Map maps size bytes of f, starting at off.
// Writes are shared with other mappings of f and with f itself.
func Map(f *os.File, off int64, size int) (*Region, error) {
	data, err := unix.Mmap(
		int(f.Fd()),
		off, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not map %q: %w", f.Name(), err)
	}
	if len(data) != size {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("mmap: invalid mapping size %d (want=%d)", len(data), size)
	}

	m := &Region{data: data}
	runtime.SetFinalizer(m, (*Region).Unmap)
	return m, nil
}

// Len returns the size of the mapping.
func (m *Region) Len() int {
	if m == nil {
		return 0
	}
	return len(m.data)
}

func (m *Region) check(off int64) error {
	switch {
	case m == nil:
		return os.ErrInvalid
	case m.data == nil:
		return errClosed
	case off < 0 || off >= int64(len(m.data)):
		return fmt.Errorf("mmap: offset %d out of range [0, %d)", off, len(m.data))
	}
	return nil
}

// Byte returns the byte at offset off.
func (m *Region) Byte(off int64) (byte, error) {
	err := m.check(off)
	if err != nil {
		return 0, err
	}
	return m.data[off], nil
}

// SetByte stores v at offset off.
func (m *Region) SetByte(off int64, v byte) error {
	err := m.check(off)
	if err != nil {
		return err
	}
	m.data[off] = v
	return nil
}

// Sync flushes the mapping back to the underlying file.
func (m *Region) Sync() error {
	switch {
	case m == nil:
		return os.ErrInvalid
	case m.data == nil:
		return errClosed
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Unmap releases the mapping. Unmapping twice is a no-op.
func (m *Region) Unmap() error {
	if m == nil {
		return os.ErrInvalid
	}
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	runtime.SetFinalizer(m, nil)
	return unix.Munmap(data)
}
