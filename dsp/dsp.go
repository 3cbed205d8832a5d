// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dsp drives the F-DSP block of an audio codec.
//
// A Controller applies configuration blobs (see package chunk) to the
// F-DSP: it quiesces what must be stopped, downloads the new
// configuration and restarts execution. It also reports transition
// progress and mute state, and turns hardware interrupts into events.
//
// A Controller performs no internal locking: all its methods, including
// HandleInterrupt, must be serialized by the caller. Server provides such
// a serialization over a single worker goroutine.
package dsp // import "github.com/go-lpc/fdsp/dsp"

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/go-lpc/fdsp/bus"
)

var (
	ErrInvalidArgument    = errors.New("fdsp: invalid argument")
	ErrNotInitialized     = errors.New("fdsp: not initialized")
	ErrAlreadyInitialized = errors.New("fdsp: already initialized")
	ErrTimeout            = errors.New("fdsp: timeout")
)

// Device queues register operations and executes them as one batch.
// Execute runs every queued operation, in order, and blocks until all
// completed or one failed. Event-wait timeouts wrap bus.ErrTimeout.
// Read reads a register directly.
// Invalidate forgets any register value cached by the device, so that
// writes issued after a hardware reset reach the registers.
type Device interface {
	Add(op bus.Op)
	Execute() error
	Read(r bus.Reg) (byte, error)
	Invalidate()
}

var _ Device = (*bus.Batch)(nil)

// Config is the audio interface configuration programmed at Init and
// after each recovery reset.
type Config struct {
	InFormat  byte `json:"in_format" yaml:"in_format"`
	OutFormat byte `json:"out_format" yaml:"out_format"`
}

type config struct {
	msg *log.Logger

	timeout struct {
		stop time.Duration // full F-DSP stop
		app  time.Duration // per-application stop
		coef time.Duration // in-flight coefficient transfer
	}
	fade   time.Duration // fixed-volume fade out
	bounds Bounds
}

func newConfig() config {
	var cfg config
	cfg.msg = log.New(os.Stdout, "fdsp: ", 0)
	cfg.timeout.stop = 15 * time.Millisecond
	cfg.timeout.app = 5 * time.Millisecond
	cfg.timeout.coef = 10 * time.Millisecond
	cfg.fade = 2 * time.Millisecond
	cfg.bounds = DefaultBounds
	return cfg
}

// Option configures a Controller.
type Option func(*config)

// WithLogger sets the logger of the controller.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithStopTimeout sets how long a full F-DSP stop may take before the
// controller falls back to a reset.
func WithStopTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout.stop = d
	}
}

// WithAppStopTimeout sets how long each application may take to stop.
func WithAppStopTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout.app = d
	}
}

// WithCoefTimeout sets how long an in-flight coefficient transfer may
// take to complete.
func WithCoefTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout.coef = d
	}
}

// WithFadeTime sets the fade-out duration of the fixed-volume application.
func WithFadeTime(d time.Duration) Option {
	return func(cfg *config) {
		cfg.fade = d
	}
}

// WithBounds sets the memory region bounds used by ReadMemory.
func WithBounds(bounds Bounds) Option {
	return func(cfg *config) {
		cfg.bounds = bounds
	}
}
