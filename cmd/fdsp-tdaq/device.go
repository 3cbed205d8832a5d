// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/fdsp/bus"
	"github.com/go-lpc/fdsp/dsp"
	"github.com/go-lpc/fdsp/presetdb"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Device bus.Config    `yaml:"device"`
	Format dsp.Config    `yaml:"format"`
	Poll   time.Duration `yaml:"poll"`

	Presets struct {
		DSN string `yaml:"dsn"` // presets db
		Dir string `yaml:"dir"` // presets directory, when no db is configured
	} `yaml:"presets"`
}

func loadConfig(fname string) (Config, error) {
	cfg := Config{Poll: 10 * time.Millisecond}
	cfg.Device.Kind = "mem"

	raw, err := os.ReadFile(fname)
	if err != nil {
		return cfg, fmt.Errorf("could not read configuration file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not decode configuration file %q: %w", fname, err)
	}
	return cfg, nil
}

// device adapts an F-DSP controller to the TDAQ run control.
type device struct {
	cfg Config
	dev *bus.Batch
	db  *presetdb.DB

	mu   sync.Mutex
	ctl  *dsp.Controller
	blob []byte // preset applied at the next /start

	evts chan dsp.Event
}

func newDevice(cfg Config, tr bus.Transport) (*device, error) {
	var err error
	dev := &device{
		cfg:  cfg,
		dev:  bus.NewBatch(tr),
		evts: make(chan dsp.Event, 1024),
	}
	dev.ctl = dsp.New(dev.dev)

	if cfg.Presets.DSN != "" {
		dev.db, err = presetdb.Open(cfg.Presets.DSN)
		if err != nil {
			_ = dev.dev.Close()
			return nil, fmt.Errorf("could not open presets db: %w", err)
		}
	}

	return dev, nil
}

func (dev *device) close() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.ctl.Term()
	if dev.db != nil {
		if e := dev.db.Close(); e != nil && err == nil {
			err = e
		}
	}
	if e := dev.dev.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

func (dev *device) emit(ev dsp.Event) {
	select {
	case dev.evts <- ev:
	default:
		// event queue full, drop.
	}
}

func (dev *device) preset(ctx context.Context, name string) ([]byte, error) {
	if dev.db != nil {
		return dev.db.Preset(ctx, name)
	}
	return os.ReadFile(filepath.Join(dev.cfg.Presets.Dir, name))
}

func (dev *device) configure(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("missing preset name")
	}

	blob, err := dev.preset(ctx, name)
	if err != nil {
		return fmt.Errorf("could not retrieve preset %q: %w", name, err)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.blob = blob
	return nil
}

func (dev *device) initialize() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.ctl.Init(dev.cfg.Format)
	if err != nil {
		return err
	}
	dev.ctl.SetCallback(dev.emit)
	return nil
}

func (dev *device) reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.blob = nil
	return dev.ctl.Term()
}

func (dev *device) start() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.blob != nil {
		err := dev.ctl.SetDSP(dev.blob)
		if err != nil {
			return fmt.Errorf("could not apply preset: %w", err)
		}
	}
	return dev.ctl.Start()
}

func (dev *device) stop() (dsp.ControlStatus, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.ctl.Stop()
}

func (dev *device) poll() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.ctl.HandleInterrupt()
	if errors.Is(err, dsp.ErrNotInitialized) {
		return nil
	}
	return err
}

func (dev *device) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
	name := dec.ReadStr()
	ctx.Msg.Debugf("received /config command... (preset=%q)", name)

	err := dev.configure(ctx.Ctx, name)
	if err != nil {
		ctx.Msg.Errorf("could not configure F-DSP: %+v", err)
		return fmt.Errorf("could not configure F-DSP: %w", err)
	}
	return nil
}

func (dev *device) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := dev.initialize()
	if err != nil {
		ctx.Msg.Errorf("could not initialize F-DSP: %+v", err)
		return fmt.Errorf("could not initialize F-DSP: %w", err)
	}
	return nil
}

func (dev *device) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := dev.reset()
	if err != nil {
		ctx.Msg.Errorf("could not reset F-DSP: %+v", err)
		return fmt.Errorf("could not reset F-DSP: %w", err)
	}
	return nil
}

func (dev *device) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	err := dev.start()
	if err != nil {
		ctx.Msg.Errorf("could not start F-DSP: %+v", err)
		return fmt.Errorf("could not start F-DSP: %w", err)
	}
	return nil
}

func (dev *device) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	cs, err := dev.stop()
	if err != nil {
		ctx.Msg.Errorf("could not stop F-DSP: %+v", err)
		return fmt.Errorf("could not stop F-DSP: %w", err)
	}
	ctx.Msg.Debugf("received /stop command... -> %v", cs)
	return nil
}

func (dev *device) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (dev *device) events(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case ev := <-dev.evts:
		buf := new(bytes.Buffer)
		enc := tdaq.NewEncoder(buf)
		enc.WriteStr(ev.String())
		dst.Body = buf.Bytes()
	}
	return nil
}

// run polls the F-DSP interrupt line until the run is stopped.
func (dev *device) run(ctx tdaq.Context) error {
	poll := dev.cfg.Poll
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	tck := time.NewTicker(poll)
	defer tck.Stop()

	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-tck.C:
			err := dev.poll()
			if err != nil {
				ctx.Msg.Warnf("could not handle F-DSP interrupt: %+v", err)
			}
		}
	}
}
