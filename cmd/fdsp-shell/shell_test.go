// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/fdsp/dsp"
)

type call struct {
	name string
	args string
}

// fakeSrv records the commands it receives and replies with canned data.
type fakeSrv struct {
	calls []call
	data  map[string]interface{}
}

func (srv *fakeSrv) Call(name string, args, data interface{}) error {
	c := call{name: name}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return err
		}
		c.args = string(raw)
	}
	srv.calls = append(srv.calls, c)

	v, ok := srv.data[name]
	if !ok || data == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, data)
}

func TestShell(t *testing.T) {
	blob := filepath.Join(t.TempDir(), "eq.blob")
	err := os.WriteFile(blob, []byte{0xca, 0xfe}, 0644)
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		line string
		data interface{}
		call call
		out  string
	}{
		{line: "init", call: call{name: "init"}},
		{line: "init 0x01 2", call: call{name: "init", args: `{"in_format":1,"out_format":2}`}},
		{line: "term", call: call{name: "term"}},
		{line: "START", call: call{name: "start"}},
		{line: "set-dsp " + blob, call: call{name: "set-dsp", args: `{"blob":"yv4="}`}},
		{line: "load-preset flat", call: call{name: "load-preset", args: `{"name":"flat"}`}},
		{
			line: "stop",
			data: "in-progress",
			call: call{name: "stop"},
			out:  "in-progress\n",
		},
		{
			line: "transition",
			data: uint32(dsp.TransitionFDSPStop) | 0x08,
			call: call{name: "transition"},
			out:  "apps=0x000008 fdsp-stop=true coef=false\n",
		},
		{
			line: "set-mute out 3 off",
			call: call{name: "set-mute", args: `{"in":[0,0,0,0,0,0,0,0],"out":[0,0,0,2,0,0,0,0]}`},
		},
		{
			line: "read-mem dx 0x40 8",
			data: []byte{0, 0, 0, 1, 0, 0, 0, 2},
			call: call{name: "read-mem", args: `{"region":1,"addr":64,"len":8}`},
			out:  "00000000  00 00 00 01 00 00 00 02                           |........|\n",
		},
		{
			line: "read-mem iram 0 8",
			data: []byte{0, 0, 0, 1},
			call: call{name: "read-mem", args: `{"region":3,"addr":0,"len":8}`},
			out:  "read 4/8 bytes\n00000000  00 00 00 01                                       |....|\n",
		},
	} {
		t.Run(tc.line, func(t *testing.T) {
			var (
				srv = &fakeSrv{data: map[string]interface{}{}}
				out = new(strings.Builder)
				sh  = newShell(srv, out)
			)
			if tc.data != nil {
				srv.data[tc.call.name] = tc.data
			}

			err := sh.run(tc.line)
			if err != nil {
				t.Fatalf("could not run %q: %+v", tc.line, err)
			}

			if got, want := srv.calls, []call{tc.call}; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid calls:\ngot= %+v\nwant=%+v", got, want)
			}
			if got, want := out.String(), tc.out; got != want {
				t.Fatalf("invalid output:\ngot= %q\nwant=%q", got, want)
			}
		})
	}
}

func TestShellErrors(t *testing.T) {
	for _, tc := range []struct {
		line string
		err  string
	}{
		{"frobnicate", `unknown command "frobnicate" (try "help")`},
		{"init 1", "usage: init [in-fmt out-fmt]"},
		{"init 0x100 1", "invalid input format"},
		{"set-dsp", "usage: set-dsp FILE"},
		{"set-dsp /does/not/exist", "could not read blob"},
		{"load-preset", "usage: load-preset NAME"},
		{"set-mute in 8 on", `invalid mute slot "8"`},
		{"set-mute in 1 maybe", `invalid mute state "maybe"`},
		{"set-mute up 1 on", `invalid mute direction "up"`},
		{"read-mem dz 0 4", `invalid memory region "dz"`},
		{"read-mem dx -1 4", `invalid address "-1"`},
		{"read-mem dx 0", "usage: read-mem dx|dy|iram ADDR LEN"},
	} {
		t.Run(tc.line, func(t *testing.T) {
			srv := &fakeSrv{}
			sh := newShell(srv, new(strings.Builder))
			err := sh.run(tc.line)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.err; !strings.HasPrefix(got, want) {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
			}
			if len(srv.calls) != 0 {
				t.Fatalf("invalid calls: %+v", srv.calls)
			}
		})
	}

	sh := newShell(&fakeSrv{}, new(strings.Builder))
	if err := sh.run("quit"); !errors.Is(err, errQuit) {
		t.Fatalf("invalid quit error: %+v", err)
	}
}

func TestShellComplete(t *testing.T) {
	sh := newShell(&fakeSrv{}, new(strings.Builder))
	for _, tc := range []struct {
		line string
		want []string
	}{
		{"s", []string{"set-dsp", "set-mute", "start", "status", "stop"}},
		{"set-m", []string{"set-mute"}},
		{"xyz", nil},
	} {
		t.Run(tc.line, func(t *testing.T) {
			got := sh.complete(tc.line)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid completion:\ngot= %q\nwant=%q", got, tc.want)
			}
		})
	}
}
