// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fdsp-shell is an interactive client for fdsp-srv.
//
// Usage: fdsp-shell [OPTIONS]
//
// Example:
//
//	$> fdsp-shell -addr localhost:8877
//	fdsp> init
//	fdsp> set-dsp ./testdata/eq.blob
//	fdsp> start
//	fdsp> read-mem dx 0x40 16
//	00000000  00 00 00 01 00 00 00 02  00 00 00 03 00 00 00 04  |................|
//	fdsp> quit
package main // import "github.com/go-lpc/fdsp/cmd/fdsp-shell"

import (
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/fdsp/dsp"
	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("fdsp-shell: ")
	log.SetFlags(0)

	var (
		addr = flag.String("addr", "localhost:8877", "[ip]:port of the fdsp-srv daemon")
		hist = flag.String("history", filepath.Join(os.TempDir(), ".fdsp-shell.history"), "path to the history file")
	)

	flag.Parse()

	c, err := dsp.Dial(*addr)
	if err != nil {
		log.Fatalf("could not connect to fdsp-srv: %+v", err)
	}
	defer c.Close()

	err = xmain(newShell(c, os.Stdout), *hist)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(sh *shell, hist string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(sh.complete)

	if f, err := os.Open(hist); err == nil {
		_, _ = term.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.Create(hist)
		if err != nil {
			log.Printf("could not save history: %+v", err)
			return
		}
		defer f.Close()
		_, _ = term.WriteHistory(f)
	}()

	for {
		line, err := term.Prompt("fdsp> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		err = sh.run(line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			log.Printf("%+v", err)
		}
	}
}
