// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fdsp-tdaq starts a TDAQ server driving an F-DSP.
//
// Usage: fdsp-tdaq [tdaq-options] config.yaml
//
// The /config command takes the name of a preset, retrieved from the
// presets db when one is configured or read from disk otherwise.
// The preset is applied by /start.
// Controller events are published on the /events output port.
package main // import "github.com/go-lpc/fdsp/cmd/fdsp-tdaq"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/fdsp/bus"
)

func main() {
	cmd := flags.New()
	if len(cmd.Args) < 1 {
		log.Fatalf("missing configuration file argument")
	}

	cfg, err := loadConfig(cmd.Args[0])
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}

	tr, err := bus.Open(cfg.Device)
	if err != nil {
		log.Fatalf("could not open F-DSP transport: %+v", err)
	}

	dev, err := newDevice(cfg, tr)
	if err != nil {
		log.Fatalf("could not create F-DSP device: %+v", err)
	}
	defer dev.close()

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/events", dev.events)

	srv.RunHandle(dev.run)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
