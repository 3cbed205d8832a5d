// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/fdsp/chunk"
)

const eqYAML = `
fwctrl:
  fs: 0x02
  exec: {1: run, 4: stop}
chsel: "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
apps:
  - app: 1
    env: {id: 0x11, regbase: 0x100, fade: true, words: "cafe"}
    coefs:
      - {sel: 1, addr: 0x40, mode: dsp-mediated, data: "01 02 03 04"}
    ins: {sel: 3, addr: 0x80, data: "05060708"}
    regs:
      - {sel: 5, addr: 0x04, data: "09"}
`

func TestMkBlob(t *testing.T) {
	tmp := t.TempDir()
	var (
		fname = filepath.Join(tmp, "eq.yaml")
		oname = filepath.Join(tmp, "eq.blob")
	)
	err := os.WriteFile(fname, []byte(eqYAML), 0644)
	if err != nil {
		t.Fatal(err)
	}

	xmain([]string{"-o", oname, fname})

	got, err := os.ReadFile(oname)
	if err != nil {
		t.Fatalf("could not read output blob: %+v", err)
	}

	var (
		want = new(bytes.Buffer)
		enc  = chunk.NewEncoder(want)
		exec [chunk.NumApps]byte
		chsl = make([]byte, 33)
		env  = chunk.Env{ID: 0x11, RegBase: 0x100, Fade: true}
	)
	for i := range exec {
		exec[i] = chunk.DontCare
	}
	exec[1] = chunk.ExecRun
	exec[4] = chunk.ExecStop
	for i := range chsl {
		chsl[i] = byte(i)
	}
	env.Words[0] = 0xca
	env.Words[1] = 0xfe

	for _, f := range []func() error{
		func() error { return enc.WriteFwCtrl(0x02, chunk.DontCare, exec) },
		func() error { return enc.WriteChunk(chunk.TagChSel, chsl) },
		func() error { return enc.WriteAppEnv(1, env) },
		func() error {
			return enc.WriteCoef(chunk.AppTag(chunk.TagAppCoef, 1), 1, 0x40, chunk.DSPMediated, []byte{1, 2, 3, 4})
		},
		func() error {
			return enc.WriteMem(chunk.AppTag(chunk.TagAppIns, 1), 3, 0x80, []byte{5, 6, 7, 8})
		},
		func() error {
			return enc.WriteMem(chunk.AppTag(chunk.TagAppReg, 1), 5, 0x04, []byte{9})
		},
	} {
		err := f()
		if err != nil {
			t.Fatalf("could not encode reference blob: %+v", err)
		}
	}

	if !bytes.Equal(got, want.Bytes()) {
		t.Fatalf("invalid blob:\ngot= %x\nwant=%x", got, want.Bytes())
	}
}

func TestBuild(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		size int
		err  string
	}{
		{
			name: "empty",
			yaml: "",
			size: 0,
		},
		{
			name: "fwctrl",
			yaml: "fwctrl: {fade: 3}",
			size: chunk.HeaderSize + 27,
		},
		{
			name: "unknown-field",
			yaml: "fwctl: {fade: 3}",
			err:  "could not decode YAML",
		},
		{
			name: "bad-exec",
			yaml: "fwctrl: {exec: {2: go}}",
			err:  `invalid exec request "go" for app 2`,
		},
		{
			name: "exec-out-of-range",
			yaml: "fwctrl: {exec: {24: run}}",
			err:  "invalid exec request for app 24",
		},
		{
			name: "bad-app",
			yaml: "apps: [{app: 30}]",
			err:  "invalid application index 30",
		},
		{
			name: "bad-hex",
			yaml: `apps: [{app: 2, ins: {sel: 3, data: "xyz"}}]`,
			err:  "invalid hex data",
		},
		{
			name: "bad-mode",
			yaml: `apps: [{app: 2, coefs: [{sel: 1, mode: dma, data: "00000000"}]}]`,
			err:  `invalid transfer mode "dma"`,
		},
		{
			name: "env-words",
			yaml: `apps: [{app: 2, env: {words: "` + strings.Repeat("00", 33) + `"}}]`,
			err:  "too many environment words",
		},
		{
			name: "short-chsel",
			yaml: `chsel: "0001"`,
			err:  "invalid blob",
		},
		{
			name: "misaligned-ins",
			yaml: `apps: [{app: 2, ins: {sel: 3, data: "000102"}}]`,
			err:  "invalid blob",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			blob, err := build(strings.NewReader(tc.yaml))
			switch {
			case tc.err != "":
				if err == nil {
					t.Fatalf("expected an error")
				}
				if !strings.Contains(err.Error(), tc.err) {
					t.Fatalf("invalid error:\ngot= %v\nwant=%v", err, tc.err)
				}
			case err != nil:
				t.Fatalf("could not build blob: %+v", err)
			default:
				if got, want := len(blob), tc.size; got != want {
					t.Fatalf("invalid blob size: got=%d, want=%d", got, want)
				}
			}
		})
	}
}

func TestProcessMissingFile(t *testing.T) {
	tmp := t.TempDir()
	err := process(filepath.Join(tmp, "out.blob"), filepath.Join(tmp, "missing.yaml"))
	if err == nil {
		t.Fatalf("expected an error")
	}
}
