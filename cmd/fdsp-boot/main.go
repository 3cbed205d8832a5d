// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fdsp-boot (re)starts the F-DSP control processes.
//
// Usage: fdsp-boot [OPTIONS] [-- TDAQ-OPTIONS]
//
// fdsp-boot kills stale instances of fdsp-srv (and fdsp-tdaq), starts
// them again and restarts them when they crash.
// Process outputs are appended to log files under $FDSP_LOGDIR.
package main // import "github.com/go-lpc/fdsp/cmd/fdsp-boot"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("fdsp-boot: ")
	log.SetFlags(0)

	var (
		srvCfg   = flag.String("cfg", "/etc/fdsp/fdsp-srv.yaml", "path to the fdsp-srv configuration file")
		tdaqCfg  = flag.String("tdaq", "", "path to the fdsp-tdaq configuration file (disabled if empty)")
		restarts = flag.Int("restarts", 3, "maximum number of restarts of a crashed process")
		doMon    = flag.Bool("pmon", false, "enable pmon monitoring")
		doFreq   = flag.Duration("freq", 1*time.Second, "pmon frequency")
	)

	flag.Parse()

	procs := []process{
		{name: "fdsp-srv", path: "fdsp-srv", args: []string{"-cfg", *srvCfg}},
	}
	if *tdaqCfg != "" {
		procs = append(procs, process{
			name: "fdsp-tdaq",
			path: "fdsp-tdaq",
			args: append(flag.Args(), *tdaqCfg),
		})
	}

	dir := os.Getenv("FDSP_LOGDIR")
	if dir == "" {
		dir = "/var/log/fdsp"
	}

	killStale(procs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, procs, dir, config{
		restarts: *restarts,
		mon:      *doMon,
		freq:     *doFreq,
	})
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

// process describes a supervised command.
type process struct {
	name string // name of the log files
	path string
	args []string
	env  []string // additional environment variables
}

func (p process) command() *exec.Cmd {
	cmd := exec.Command(p.path, p.args...)
	if len(p.env) > 0 {
		cmd.Env = append(os.Environ(), p.env...)
	}
	return cmd
}

type config struct {
	restarts int           // maximum number of restarts after a crash
	mon      bool          // enable pmon monitoring
	freq     time.Duration // pmon frequency
}

func killStale(procs []process) {
	for _, p := range procs {
		name := filepath.Base(p.path)
		kill := exec.Command("killall", name)
		kill.Stderr = os.Stderr
		kill.Stdout = os.Stdout
		err := kill.Run()
		if err != nil {
			log.Printf("could not kill %q: %+v", name, err)
		}
	}
}

// run supervises all processes until they exit or ctx is canceled.
func run(ctx context.Context, procs []process, dir string, cfg config) error {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("could not create log directory: %w", err)
	}

	var grp errgroup.Group
	for i := range procs {
		p := procs[i]
		grp.Go(func() error {
			return supervise(ctx, p, dir, cfg)
		})
	}

	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("could not boot F-DSP processes: %w", err)
	}
	return nil
}

func supervise(ctx context.Context, p process, dir string, cfg config) error {
	for i := 0; ; i++ {
		err := start(ctx, p, dir, cfg)
		switch {
		case err == nil, ctx.Err() != nil:
			return nil
		case i >= cfg.restarts:
			return err
		}
		log.Printf("restarting %q (%d/%d): %+v", p.name, i+1, cfg.restarts, err)
	}
}

func start(ctx context.Context, p process, dir string, cfg config) error {
	out, err := os.OpenFile(
		filepath.Join(dir, p.name+".log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644,
	)
	if err != nil {
		return fmt.Errorf("could not create output log file for %q: %w", p.name, err)
	}
	defer out.Close()

	cmd := p.command()
	cmd.Stdout = out
	cmd.Stderr = out

	log.Printf("starting %q...", p.name)
	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %q: %w", p.name, err)
	}

	errch := make(chan error, 1)
	go func() {
		errch <- cmd.Wait()
	}()

	if cfg.mon {
		mon, err := monitor(p.name, cmd.Process.Pid, dir, cfg.freq)
		if err != nil {
			_ = cmd.Process.Kill()
			<-errch
			return err
		}
		defer mon()
	}

	select {
	case <-ctx.Done():
		err = cmd.Process.Kill()
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("could not kill %q: %w", p.name, err)
		}
		<-errch
	case err = <-errch:
		if err != nil {
			return fmt.Errorf("could not run %q: %w", p.name, err)
		}
	}

	return nil
}

// monitor starts monitoring the resources of process pid.
// The returned function stops the monitoring.
func monitor(name string, pid int, dir string, freq time.Duration) (func(), error) {
	p, err := pmon.Monitor(pid)
	if err != nil {
		return nil, fmt.Errorf("could not start monitoring %q (pid=%d): %w", name, pid, err)
	}
	f, err := os.OpenFile(
		filepath.Join(dir, name+"-pmon.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create pmon log file for %q: %w", name, err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		log.Printf("run pmon %q...", name)
		err := p.Run()
		if err != nil {
			log.Printf("could not monitor %q: %+v", name, err)
		}
	}()

	return func() {
		err := p.Kill()
		if err != nil {
			log.Printf("could not stop monitoring %q: %+v", name, err)
		}
		f.Close()
	}, nil
}
