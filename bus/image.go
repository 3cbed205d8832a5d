// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"fmt"
	"os"

	"github.com/go-lpc/fdsp/internal/mmap"
)

// ImageSize is the size of a register image file.
const ImageSize = int(NumBanks) * BankSize

// Image is a register file backed by a memory-mapped image file,
// bank after bank. Images are used for simulation and to inspect the
// state left by a batch after the fact.
type Image struct {
	f *os.File
	m *mmap.Region
}

// OpenImage opens, or creates, the register image fname.
func OpenImage(fname string) (*Image, error) {
	f, err := os.OpenFile(fname, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("bus: could not open image %q: %w", fname, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("bus: could not stat image %q: %w", fname, err)
	}
	if fi.Size() < int64(ImageSize) {
		err = f.Truncate(int64(ImageSize))
		if err != nil {
			return nil, fmt.Errorf("bus: could not resize image %q: %w", fname, err)
		}
	}

	m, err := mmap.Map(f, 0, ImageSize)
	if err != nil {
		return nil, fmt.Errorf("bus: could not map image %q: %w", fname, err)
	}

	return &Image{f: f, m: m}, nil
}

func offset(r Reg) int64 {
	return int64(r.Bank)*BankSize + int64(r.Addr)
}

func (img *Image) ReadReg(r Reg) (byte, error) {
	if !r.valid() {
		return 0, fmt.Errorf("%w %v", errBadReg, r)
	}
	v, err := img.m.Byte(offset(r))
	if err != nil {
		return 0, fmt.Errorf("bus: could not read %v: %w", r, err)
	}
	return v, nil
}

func (img *Image) WriteReg(r Reg, v byte) error {
	if !r.valid() {
		return fmt.Errorf("%w %v", errBadReg, r)
	}
	err := img.m.SetByte(offset(r), v)
	if err != nil {
		return fmt.Errorf("bus: could not write %v: %w", r, err)
	}
	return nil
}

// Close flushes the image to disk and releases it.
func (img *Image) Close() error {
	err := img.m.Sync()
	if err != nil {
		_ = img.m.Unmap()
		_ = img.f.Close()
		return fmt.Errorf("bus: could not sync image: %w", err)
	}

	err = img.m.Unmap()
	if err != nil {
		_ = img.f.Close()
		return fmt.Errorf("bus: could not unmap image: %w", err)
	}

	err = img.f.Close()
	if err != nil {
		return fmt.Errorf("bus: could not close image: %w", err)
	}
	return nil
}

var _ Transport = (*Image)(nil)
