// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fdsp-srv serves an F-DSP controller over JSON/TCP.
//
// The daemon is configured with a YAML file:
//
//	addr: ":8877"
//	device: {kind: smbus, bus: 1, addr: 0x3a}
//	format: {in_format: 0x01, out_format: 0x02}
//	timeouts: {stop: 15ms, app: 5ms, coef: 10ms}
//	poll: 10ms
//	init: true
//	preset: default
//	presets: {dsn: "fdsp:s3cr3t@tcp(localhost:3306)/presets"}
//	mail: {server: smtp.example.org, port: 587, to: [oncall@example.org]}
//
// Mail credentials default to the MAIL_USERNAME and MAIL_PASSWORD
// environment variables.
package main // import "github.com/go-lpc/fdsp/cmd/fdsp-srv"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/go-lpc/fdsp/bus"
	"github.com/go-lpc/fdsp/dsp"
	"github.com/go-lpc/fdsp/presetdb"
	"gopkg.in/yaml.v3"
)

func main() {
	log.SetPrefix("fdsp-srv: ")
	log.SetFlags(0)

	var (
		fname = flag.String("cfg", "fdsp-srv.yaml", "path to the YAML configuration file")
		addr  = flag.String("addr", "", "[ip]:port to listen on (overrides configuration)")
	)

	flag.Parse()

	cfg, err := loadConfig(*fname)
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, cfg)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type Config struct {
	Addr   string     `yaml:"addr"`
	Device bus.Config `yaml:"device"`
	Format dsp.Config `yaml:"format"`

	Timeouts struct {
		Stop time.Duration `yaml:"stop"`
		App  time.Duration `yaml:"app"`
		Coef time.Duration `yaml:"coef"`
	} `yaml:"timeouts"`
	Fade time.Duration `yaml:"fade"`
	Poll time.Duration `yaml:"poll"`

	Init   bool   `yaml:"init"`   // initialize the controller at startup
	Preset string `yaml:"preset"` // preset applied and started at startup

	Presets struct {
		DSN string `yaml:"dsn"`
	} `yaml:"presets"`

	Mail MailConfig `yaml:"mail"`
}

func newConfig() Config {
	var cfg Config
	cfg.Addr = ":8877"
	cfg.Device.Kind = "mem"
	cfg.Poll = 10 * time.Millisecond
	cfg.Mail.Usr = os.Getenv("MAIL_USERNAME")
	cfg.Mail.Pwd = os.Getenv("MAIL_PASSWORD")
	return cfg
}

func loadConfig(fname string) (Config, error) {
	cfg := newConfig()

	f, err := os.Open(fname)
	if err != nil {
		return cfg, fmt.Errorf("could not open configuration file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not decode configuration file %q: %w", fname, err)
	}

	return cfg, nil
}

func (cfg Config) options() []dsp.Option {
	opts := []dsp.Option{dsp.WithLogger(log.New(os.Stdout, "fdsp: ", 0))}
	if d := cfg.Timeouts.Stop; d > 0 {
		opts = append(opts, dsp.WithStopTimeout(d))
	}
	if d := cfg.Timeouts.App; d > 0 {
		opts = append(opts, dsp.WithAppStopTimeout(d))
	}
	if d := cfg.Timeouts.Coef; d > 0 {
		opts = append(opts, dsp.WithCoefTimeout(d))
	}
	if d := cfg.Fade; d > 0 {
		opts = append(opts, dsp.WithFadeTime(d))
	}
	return opts
}

func run(ctx context.Context, cfg Config) error {
	tr, err := bus.Open(cfg.Device)
	if err != nil {
		return fmt.Errorf("could not open device: %w", err)
	}
	dev := bus.NewBatch(tr)
	defer dev.Close()

	var (
		ctl   = dsp.New(dev, cfg.options()...)
		alert = newAlerter(cfg.Mail)
		sopts = []dsp.ServerOption{
			dsp.WithPollPeriod(cfg.Poll),
			dsp.WithEventHook(alert.event),
		}
		presets dsp.Presets
	)

	if cfg.Presets.DSN != "" {
		db, err := presetdb.Open(cfg.Presets.DSN)
		if err != nil {
			return fmt.Errorf("could not open presets db: %w", err)
		}
		defer db.Close()
		presets = db
		sopts = append(sopts, dsp.WithPresets(db))
	}

	srv, err := dsp.NewServer(cfg.Addr, ctl, sopts...)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	err = setup(ctx, ctl, presets, cfg)
	if err != nil {
		return fmt.Errorf("could not setup controller: %w", err)
	}

	go alert.run(ctx)

	log.Printf("serving F-DSP on %v...", srv.Addr())
	return srv.Run(ctx)
}

// setup initializes the controller and applies the startup preset.
// It runs before the server starts serving requests.
func setup(ctx context.Context, ctl *dsp.Controller, db dsp.Presets, cfg Config) error {
	if !cfg.Init {
		return nil
	}

	err := ctl.Init(cfg.Format)
	if err != nil {
		return err
	}

	if cfg.Preset == "" {
		return nil
	}
	if db == nil {
		return fmt.Errorf("no presets db to retrieve %q from", cfg.Preset)
	}

	blob, err := db.Preset(ctx, cfg.Preset)
	if err != nil {
		return err
	}
	err = ctl.SetDSP(blob)
	if err != nil {
		return fmt.Errorf("could not apply preset %q: %w", cfg.Preset, err)
	}
	return ctl.Start()
}
