// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// fdsp-mkblob assembles an F-DSP configuration blob from a YAML description.
//
// Usage: fdsp-mkblob [OPTIONS] FILE.yaml
//
// Example:
//
//	$> cat eq.yaml
//	fwctrl:
//	  fs: 0x02
//	  exec: {1: run}
//	apps:
//	  - app: 1
//	    env: {id: 0x11, regbase: 0x100, fade: true}
//	    coefs:
//	      - {sel: 1, addr: 0x40, mode: dsp-mediated, data: "01020304"}
//	$> fdsp-mkblob -o eq.blob eq.yaml
package main

import (
	"bytes"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-lpc/fdsp/chunk"
	"gopkg.in/yaml.v3"
)

func main() {
	log.SetPrefix("fdsp-mkblob: ")
	log.SetFlags(0)

	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset  = flag.NewFlagSet("fdsp-mkblob", flag.ExitOnError)
		oname = fset.String("o", "out.blob", "path to output blob file")
	)

	fset.Usage = func() {
		fmt.Printf(`fdsp-mkblob assembles an F-DSP configuration blob from a YAML description.

Usage: fdsp-mkblob [OPTIONS] FILE.yaml

Options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		log.Fatalf("missing path to input YAML file")
	}

	err = process(*oname, fset.Arg(0))
	if err != nil {
		log.Fatalf("could not assemble blob: %+v", err)
	}
}

func process(oname, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open input file: %w", err)
	}
	defer f.Close()

	blob, err := build(f)
	if err != nil {
		return fmt.Errorf("could not build blob from %q: %w", fname, err)
	}

	err = os.WriteFile(oname, blob, 0644)
	if err != nil {
		return fmt.Errorf("could not write output file: %w", err)
	}
	return nil
}

// Desc is the YAML description of a blob.
type Desc struct {
	FwCtrl  *FwCtrl `yaml:"fwctrl"`
	ChSel   string  `yaml:"chsel"`  // hex
	TopEnv  string  `yaml:"topenv"` // hex
	TopCoef []Mem   `yaml:"topcoef"`
	TopIns  *Mem    `yaml:"topins"`
	Apps    []App   `yaml:"apps"`
}

type FwCtrl struct {
	FS   *byte          `yaml:"fs"`
	Fade *byte          `yaml:"fade"`
	Exec map[int]string `yaml:"exec"` // "run" or "stop"
}

type App struct {
	App    int   `yaml:"app"`
	Env    *Env  `yaml:"env"`
	Coefs  []Mem `yaml:"coefs"`
	Consts []Mem `yaml:"consts"`
	Ins    *Mem  `yaml:"ins"`
	Regs   []Mem `yaml:"regs"`
}

type Env struct {
	ID      byte   `yaml:"id"`
	RegBase uint32 `yaml:"regbase"`
	Fade    bool   `yaml:"fade"`
	IRQ     bool   `yaml:"irq"`
	Words   string `yaml:"words"` // hex
}

type Mem struct {
	Sel  byte   `yaml:"sel"`
	Addr uint32 `yaml:"addr"`
	Mode string `yaml:"mode"` // "direct" (default) or "dsp-mediated"
	Data string `yaml:"data"` // hex
}

func (m Mem) bytes() ([]byte, error) { return decodeHex(m.Data) }

// decodeHex decodes s, ignoring white spaces.
func decodeHex(s string) ([]byte, error) {
	p, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return p, nil
}

func (m Mem) mode() (chunk.TransferMode, error) {
	switch m.Mode {
	case "", "direct":
		return chunk.DirectMemoryAccess, nil
	case "dsp-mediated", "dsp":
		return chunk.DSPMediated, nil
	}
	return 0, fmt.Errorf("invalid transfer mode %q", m.Mode)
}

// build assembles the blob described by r, and validates it.
func build(r io.Reader) ([]byte, error) {
	var desc Desc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&desc)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("could not decode YAML: %w", err)
	}

	var (
		buf = new(bytes.Buffer)
		enc = chunk.NewEncoder(buf)
	)

	if fw := desc.FwCtrl; fw != nil {
		var (
			fs   = byte(chunk.DontCare)
			fade = byte(chunk.DontCare)
			exec [chunk.NumApps]byte
		)
		if fw.FS != nil {
			fs = *fw.FS
		}
		if fw.Fade != nil {
			fade = *fw.Fade
		}
		for i := range exec {
			exec[i] = chunk.DontCare
		}
		for app, v := range fw.Exec {
			if app < 0 || app >= chunk.NumApps {
				return nil, fmt.Errorf("invalid exec request for app %d", app)
			}
			switch v {
			case "run":
				exec[app] = chunk.ExecRun
			case "stop":
				exec[app] = chunk.ExecStop
			default:
				return nil, fmt.Errorf("invalid exec request %q for app %d", v, app)
			}
		}
		err = enc.WriteFwCtrl(fs, fade, exec)
		if err != nil {
			return nil, err
		}
	}

	for _, v := range []struct {
		tag chunk.Tag
		hex string
	}{
		{chunk.TagChSel, desc.ChSel},
		{chunk.TagTopEnv, desc.TopEnv},
	} {
		if v.hex == "" {
			continue
		}
		p, err := decodeHex(v.hex)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", v.tag, err)
		}
		err = enc.WriteChunk(v.tag, p)
		if err != nil {
			return nil, err
		}
	}

	writeMem := func(tag chunk.Tag, m Mem) error {
		data, err := m.bytes()
		if err != nil {
			return fmt.Errorf("%v: %w", tag, err)
		}
		return enc.WriteMem(tag, m.Sel, m.Addr, data)
	}

	writeCoef := func(tag chunk.Tag, m Mem) error {
		data, err := m.bytes()
		if err != nil {
			return fmt.Errorf("%v: %w", tag, err)
		}
		mode, err := m.mode()
		if err != nil {
			return fmt.Errorf("%v: %w", tag, err)
		}
		return enc.WriteCoef(tag, m.Sel, m.Addr, mode, data)
	}

	for _, m := range desc.TopCoef {
		err = writeMem(chunk.TagTopCoef, m)
		if err != nil {
			return nil, err
		}
	}

	if desc.TopIns != nil {
		err = writeMem(chunk.TagTopIns, *desc.TopIns)
		if err != nil {
			return nil, err
		}
	}

	for _, app := range desc.Apps {
		if app.App < 0 || app.App >= chunk.NumApps {
			return nil, fmt.Errorf("invalid application index %d", app.App)
		}
		if env := app.Env; env != nil {
			words, err := decodeHex(env.Words)
			if err != nil {
				return nil, fmt.Errorf("app %d: invalid environment words: %w", app.App, err)
			}
			if len(words) > chunk.EnvWordsLen {
				return nil, fmt.Errorf(
					"app %d: too many environment words (%d bytes, max %d)",
					app.App, len(words), chunk.EnvWordsLen,
				)
			}
			e := chunk.Env{ID: env.ID, RegBase: env.RegBase, Fade: env.Fade, IRQ: env.IRQ}
			copy(e.Words[:], words)
			err = enc.WriteAppEnv(app.App, e)
			if err != nil {
				return nil, err
			}
		}
		for _, m := range app.Coefs {
			err = writeCoef(chunk.AppTag(chunk.TagAppCoef, app.App), m)
			if err != nil {
				return nil, err
			}
		}
		for _, m := range app.Consts {
			err = writeCoef(chunk.AppTag(chunk.TagAppConst, app.App), m)
			if err != nil {
				return nil, err
			}
		}
		if app.Ins != nil {
			err = writeMem(chunk.AppTag(chunk.TagAppIns, app.App), *app.Ins)
			if err != nil {
				return nil, err
			}
		}
		for _, m := range app.Regs {
			err = writeMem(chunk.AppTag(chunk.TagAppReg, app.App), m)
			if err != nil {
				return nil, err
			}
		}
	}

	blob := buf.Bytes()
	_, err = chunk.Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("invalid blob: %w", err)
	}
	return blob, nil
}
