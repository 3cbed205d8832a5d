// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import "fmt"

// Config describes how to reach the codec registers.
type Config struct {
	Kind string `yaml:"kind"` // "smbus", "image" or "mem"
	Bus  int    `yaml:"bus"`  // I2C bus number (smbus)
	Addr uint8  `yaml:"addr"` // I2C device address (smbus)
	File string `yaml:"file"` // register image (image)
}

// Open opens the register transport described by cfg.
// The returned transport implements io.Closer when it holds resources.
func Open(cfg Config) (Transport, error) {
	switch cfg.Kind {
	case "smbus", "i2c":
		return OpenSMBus(cfg.Bus, cfg.Addr)
	case "image":
		if cfg.File == "" {
			return nil, fmt.Errorf("bus: missing register image file name")
		}
		return OpenImage(cfg.File)
	case "mem", "":
		return NewMem(nil), nil
	}
	return nil, fmt.Errorf("bus: unknown transport kind %q", cfg.Kind)
}
