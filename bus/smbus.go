// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"fmt"

	"github.com/go-daq/smbus"
)

// pageReg selects the register bank of the codec, on every page.
const pageReg = 0xff

type smbusConn interface {
	ReadReg(addr, reg uint8) (uint8, error)
	WriteReg(addr, reg, v uint8) error
	Close() error
}

var smbusOpen = smbusOpenImpl

func smbusOpenImpl(bus int, addr uint8) (smbusConn, error) {
	conn, err := smbus.Open(bus, addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SMBus is a codec reached over an I2C/SMBus bus.
// Banks are selected by writing the bank number to the page register.
type SMBus struct {
	conn smbusConn
	addr uint8
	page int // currently selected bank, -1 if unknown
}

// OpenSMBus opens the codec at addr on the I2C bus number bus.
func OpenSMBus(bus int, addr uint8) (*SMBus, error) {
	conn, err := smbusOpen(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("bus: could not open i2c-%d@0x%02x: %w", bus, addr, err)
	}
	return &SMBus{conn: conn, addr: addr, page: -1}, nil
}

func (dev *SMBus) selectBank(b Bank) error {
	if dev.page == int(b) {
		return nil
	}
	err := dev.conn.WriteReg(dev.addr, pageReg, uint8(b))
	if err != nil {
		dev.page = -1
		return fmt.Errorf("bus: could not select bank %v: %w", b, err)
	}
	dev.page = int(b)
	return nil
}

func (dev *SMBus) ReadReg(r Reg) (byte, error) {
	if !r.valid() || r.Addr == pageReg {
		return 0, fmt.Errorf("%w %v", errBadReg, r)
	}
	err := dev.selectBank(r.Bank)
	if err != nil {
		return 0, err
	}
	v, err := dev.conn.ReadReg(dev.addr, uint8(r.Addr))
	if err != nil {
		return 0, fmt.Errorf("bus: could not read %v: %w", r, err)
	}
	return v, nil
}

func (dev *SMBus) WriteReg(r Reg, v byte) error {
	if !r.valid() || r.Addr == pageReg {
		return fmt.Errorf("%w %v", errBadReg, r)
	}
	err := dev.selectBank(r.Bank)
	if err != nil {
		return err
	}
	err = dev.conn.WriteReg(dev.addr, uint8(r.Addr), v)
	if err != nil {
		return fmt.Errorf("bus: could not write %v: %w", r, err)
	}
	return nil
}

func (dev *SMBus) Close() error {
	return dev.conn.Close()
}

var _ Transport = (*SMBus)(nil)
