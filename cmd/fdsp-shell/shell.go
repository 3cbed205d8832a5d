// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-lpc/fdsp/dsp"
)

var errQuit = errors.New("quit")

// caller runs commands on a fdsp-srv daemon.
type caller interface {
	Call(name string, args, data interface{}) error
}

type shell struct {
	c    caller
	w    io.Writer
	cmds map[string]command
}

type command struct {
	help string
	run  func(args []string) error
}

func newShell(c caller, w io.Writer) *shell {
	sh := &shell{c: c, w: w}
	sh.cmds = map[string]command{
		"help":        {"help                        display this help", sh.cmdHelp},
		"quit":        {"quit                        leave the shell", func([]string) error { return errQuit }},
		"init":        {"init [in-fmt out-fmt]       initialize the F-DSP", sh.cmdInit},
		"term":        {"term                        terminate the F-DSP", sh.simple("term")},
		"set-dsp":     {"set-dsp FILE                apply a configuration blob", sh.cmdSetDSP},
		"load-preset": {"load-preset NAME            apply a stored preset", sh.cmdLoadPreset},
		"start":       {"start                       start the F-DSP", sh.simple("start")},
		"stop":        {"stop                        stop the F-DSP", sh.cmdStop},
		"transition":  {"transition                  display pending transitions", sh.cmdTransition},
		"mute":        {"mute                        display the mute slots", sh.cmdMute},
		"set-mute":    {"set-mute in|out SLOT on|off  set one mute slot", sh.cmdSetMute},
		"read-mem":    {"read-mem dx|dy|iram ADDR LEN dump F-DSP memory", sh.cmdReadMem},
		"status":      {"status                      display the controller state", sh.cmdStatus},
	}
	return sh
}

func (sh *shell) run(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, ok := sh.cmds[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("unknown command %q (try \"help\")", args[0])
	}
	return cmd.run(args[1:])
}

func (sh *shell) complete(line string) []string {
	var out []string
	for name := range sh.cmds {
		if strings.HasPrefix(name, strings.ToLower(line)) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (sh *shell) simple(name string) func([]string) error {
	return func(args []string) error {
		return sh.c.Call(name, nil, nil)
	}
}

func (sh *shell) cmdHelp(args []string) error {
	names := make([]string, 0, len(sh.cmds))
	for name := range sh.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sh.w, "  %s\n", sh.cmds[name].help)
	}
	return nil
}

func (sh *shell) cmdInit(args []string) error {
	switch len(args) {
	case 0:
		return sh.c.Call("init", nil, nil)
	case 2:
		in, err := parseU8(args[0])
		if err != nil {
			return fmt.Errorf("invalid input format: %w", err)
		}
		out, err := parseU8(args[1])
		if err != nil {
			return fmt.Errorf("invalid output format: %w", err)
		}
		return sh.c.Call("init", dsp.Config{InFormat: in, OutFormat: out}, nil)
	}
	return fmt.Errorf("usage: init [in-fmt out-fmt]")
}

func (sh *shell) cmdSetDSP(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: set-dsp FILE")
	}
	blob, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("could not read blob: %w", err)
	}
	return sh.c.Call("set-dsp", struct {
		Blob []byte `json:"blob"`
	}{blob}, nil)
}

func (sh *shell) cmdLoadPreset(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: load-preset NAME")
	}
	return sh.c.Call("load-preset", struct {
		Name string `json:"name"`
	}{args[0]}, nil)
}

func (sh *shell) cmdStop(args []string) error {
	var cs string
	err := sh.c.Call("stop", nil, &cs)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%s\n", cs)
	return nil
}

func (sh *shell) cmdTransition(args []string) error {
	var v uint32
	err := sh.c.Call("transition", nil, &v)
	if err != nil {
		return err
	}
	tr := dsp.Transition(v)
	fmt.Fprintf(sh.w, "apps=0x%06x fdsp-stop=%v coef=%v\n",
		v&0xffffff,
		tr&dsp.TransitionFDSPStop != 0,
		tr&dsp.TransitionCoef != 0,
	)
	return nil
}

func (sh *shell) cmdMute(args []string) error {
	var ms dsp.MuteState
	err := sh.c.Call("mute", nil, &ms)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "in:  %v\nout: %v\n", ms.In, ms.Out)
	return nil
}

func (sh *shell) cmdSetMute(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: set-mute in|out SLOT on|off")
	}

	slot, err := strconv.Atoi(args[1])
	if err != nil || slot < 0 || slot >= dsp.NumMuteSlots {
		return fmt.Errorf("invalid mute slot %q", args[1])
	}

	var m dsp.Mute
	switch strings.ToLower(args[2]) {
	case "on":
		m = dsp.MuteOn
	case "off":
		m = dsp.MuteOff
	default:
		return fmt.Errorf("invalid mute state %q", args[2])
	}

	var ms dsp.MuteState // all slots left unchanged
	switch strings.ToLower(args[0]) {
	case "in":
		ms.In[slot] = m
	case "out":
		ms.Out[slot] = m
	default:
		return fmt.Errorf("invalid mute direction %q", args[0])
	}
	return sh.c.Call("set-mute", ms, nil)
}

func (sh *shell) cmdReadMem(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: read-mem dx|dy|iram ADDR LEN")
	}

	var region dsp.Region
	switch strings.ToLower(args[0]) {
	case "dx":
		region = dsp.RegionDX
	case "dy":
		region = dsp.RegionDY
	case "iram":
		region = dsp.RegionIRAM
	default:
		return fmt.Errorf("invalid memory region %q", args[0])
	}

	addr, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", args[1], err)
	}
	n, err := strconv.ParseUint(args[2], 0, 31)
	if err != nil {
		return fmt.Errorf("invalid length %q: %w", args[2], err)
	}

	var buf []byte
	err = sh.c.Call("read-mem", struct {
		Region dsp.Region `json:"region"`
		Addr   uint32     `json:"addr"`
		Len    int        `json:"len"`
	}{region, uint32(addr), int(n)}, &buf)
	if err != nil {
		return err
	}

	if len(buf) < int(n) {
		fmt.Fprintf(sh.w, "read %d/%d bytes\n", len(buf), n)
	}
	if len(buf) > 0 {
		fmt.Fprint(sh.w, hex.Dump(buf))
	}
	return nil
}

func (sh *shell) cmdStatus(args []string) error {
	var st dsp.Status
	err := sh.c.Call("status", nil, &st)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "ready:   %v\n", st.Ready)
	fmt.Fprintf(sh.w, "exec:    %v\n", st.Exec)
	fmt.Fprintf(sh.w, "irq:     %v\n", st.IRQ)
	fmt.Fprintf(sh.w, "fade:    %v\n", st.Fade)
	fmt.Fprintf(sh.w, "pending: %v\n", st.Pending)
	fmt.Fprintf(sh.w, "bypass:  %v\n", st.Bypass)
	fmt.Fprintf(sh.w, "fixed:   %v\n", st.FixedVolume)
	fmt.Fprintf(sh.w, "mute:    in=0x%02x out=0x%02x\n", st.MuteIn, st.MuteOut)
	return nil
}

func parseU8(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return byte(v), err
}
