// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-lpc/fdsp/bus"
	"github.com/go-lpc/fdsp/chunk"
	"github.com/go-lpc/fdsp/dsp"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "fdsp.yaml")
	err := os.WriteFile(fname, []byte(`
device: {kind: image, file: /dev/null}
format: {in_format: 3}
poll: 5ms
presets: {dir: /srv/fdsp/presets}
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(fname)
	if err != nil {
		t.Fatalf("could not load configuration: %+v", err)
	}
	if got, want := cfg.Device, (bus.Config{Kind: "image", File: "/dev/null"}); got != want {
		t.Fatalf("invalid device: got=%+v, want=%+v", got, want)
	}
	if got, want := cfg.Format.InFormat, byte(3); got != want {
		t.Fatalf("invalid input format: got=%d, want=%d", got, want)
	}
	if got, want := cfg.Poll, 5*time.Millisecond; got != want {
		t.Fatalf("invalid poll period: got=%v, want=%v", got, want)
	}
	if got, want := cfg.Presets.Dir, "/srv/fdsp/presets"; got != want {
		t.Fatalf("invalid presets dir: got=%q, want=%q", got, want)
	}

	err = os.WriteFile(fname, []byte("polling: 5ms\n"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	_, err = loadConfig(fname)
	if err == nil {
		t.Fatalf("expected an error on unknown field")
	}

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	if err == nil {
		t.Fatalf("expected an error on missing file")
	}
}

func TestDevice(t *testing.T) {
	var (
		buf  = new(bytes.Buffer)
		enc  = chunk.NewEncoder(buf)
		exec [chunk.NumApps]byte
	)
	for i := range exec {
		exec[i] = chunk.DontCare
	}
	exec[3] = chunk.ExecRun
	err := enc.WriteFwCtrl(chunk.DontCare, chunk.DontCare, exec)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	err = os.WriteFile(filepath.Join(dir, "run-3"), buf.Bytes(), 0644)
	if err != nil {
		t.Fatal(err)
	}

	var cfg Config
	cfg.Presets.Dir = dir

	mem := bus.NewMem(nil)
	dev, err := newDevice(cfg, mem)
	if err != nil {
		t.Fatalf("could not create device: %+v", err)
	}
	defer dev.close()

	ctx := context.Background()

	err = dev.configure(ctx, "")
	if err == nil {
		t.Fatalf("expected an error on empty preset name")
	}
	err = dev.configure(ctx, "missing")
	if err == nil {
		t.Fatalf("expected an error on missing preset")
	}

	err = dev.configure(ctx, "run-3")
	if err != nil {
		t.Fatalf("could not configure: %+v", err)
	}

	err = dev.start()
	if !errors.Is(err, dsp.ErrNotInitialized) {
		t.Fatalf("invalid error: got=%v, want=%v", err, dsp.ErrNotInitialized)
	}

	err = dev.poll()
	if err != nil {
		t.Fatalf("uninitialized poll should be ignored: %+v", err)
	}

	err = dev.initialize()
	if err != nil {
		t.Fatalf("could not initialize: %+v", err)
	}

	err = dev.start()
	if err != nil {
		t.Fatalf("could not start: %+v", err)
	}
	if got, want := dev.ctl.Status().Exec, chunk.AppMask(0).With(3); got != want {
		t.Fatalf("invalid exec mask: got=%v, want=%v", got, want)
	}

	cs, err := dev.stop()
	if err != nil {
		t.Fatalf("could not stop: %+v", err)
	}
	if got, want := cs, dsp.AlreadyStopped; got != want {
		t.Fatalf("invalid stop status: got=%v, want=%v", got, want)
	}

	mem.Poke(bus.Reg{Bank: bus.BankF, Addr: 0x16}, 0x42) // error code
	mem.Poke(bus.Reg{Bank: bus.BankF, Addr: 0x14}, 0x01) // error interrupt
	err = dev.poll()
	if err != nil {
		t.Fatalf("could not poll: %+v", err)
	}

	select {
	case ev := <-dev.evts:
		if got, want := ev, dsp.Event(dsp.ErrorEvent{Code: 0x42}); got != want {
			t.Fatalf("invalid event: got=%v, want=%v", got, want)
		}
	default:
		t.Fatalf("no event received")
	}

	err = dev.reset()
	if err != nil {
		t.Fatalf("could not reset: %+v", err)
	}
	if dev.blob != nil {
		t.Fatalf("reset did not clear preset")
	}
	if dev.ctl.Status().Ready {
		t.Fatalf("reset did not terminate controller")
	}
}
