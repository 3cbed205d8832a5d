// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// fdsp-dump decodes and displays F-DSP configuration blobs.
//
// Usage: fdsp-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> fdsp-dump ./testdata/eq.blob
//	=== eq.blob (102 bytes) ===
//	0x000000 FWCT     size=27 fwmod=0x00 fs=0x02 fade=0xff run=0x000000 stop=0x000000
//	0x000023 AEN[1]   size=38 id=0x11 regbase=0x000100 fade=true irq=false
//	0x000051 ACF[1]   size=13 sel=1 addr=0x000040 mode=dsp-mediated len=4
//	plan:
//	  stop:    fdsp|apps|coef-wait
//	  targets: 0x000002
//	  coefs:   0x000002
//	  mode:    direct
//	  fixed:   false
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/fdsp/chunk"
)

func main() {
	log.SetPrefix("fdsp-dump: ")
	log.SetFlags(0)

	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	var (
		fset    = flag.NewFlagSet("fdsp-dump", flag.ExitOnError)
		verbose = fset.Bool("v", false, "dump chunk payloads")
	)

	fset.Usage = func() {
		fmt.Printf(`fdsp-dump decodes and displays F-DSP configuration blobs.

Usage: fdsp-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> fdsp-dump ./testdata/eq.blob
 === eq.blob (102 bytes) ===
 0x000000 FWCT     size=27 fwmod=0x00 fs=0x02 fade=0xff run=0x000000 stop=0x000000
 [...]

Options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input blob file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *verbose)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, verbose bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	blob, err := os.ReadFile(fname)
	if err != nil {
		return fmt.Errorf("could not read %q: %w", fname, err)
	}

	plan, err := chunk.Parse(blob)
	if err != nil {
		return fmt.Errorf("could not parse blob: %w", err)
	}

	fmt.Fprintf(wbuf, "=== %s (%d bytes) ===\n", filepath.Base(fname), len(blob))
	err = chunk.Walk(blob, func(c chunk.Chunk) error {
		fmt.Fprintf(wbuf, "0x%06x %-8v size=%d", c.Off-chunk.HeaderSize, c.Tag, len(c.Data))
		describe(wbuf, c)
		fmt.Fprintf(wbuf, "\n")
		if verbose && len(c.Data) > 0 {
			fmt.Fprintf(wbuf, "  %x\n", c.Data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not walk blob: %w", err)
	}

	fmt.Fprintf(wbuf, "plan:\n")
	fmt.Fprintf(wbuf, "  stop:    %v\n", plan.MustStop)
	fmt.Fprintf(wbuf, "  targets: %v\n", plan.Targets)
	fmt.Fprintf(wbuf, "  coefs:   %v\n", plan.Coefs)
	fmt.Fprintf(wbuf, "  mode:    %v\n", plan.Mode)
	fmt.Fprintf(wbuf, "  fixed:   %v\n", plan.FixedVolume)

	return nil
}

func describe(w io.Writer, c chunk.Chunk) {
	switch c.Tag {
	case chunk.TagFwCtrl:
		fw := chunk.FwCtrl(c.Data)
		run, stop := fw.ExecRequests()
		fmt.Fprintf(w, " fwmod=0x%02x fs=0x%02x fade=0x%02x run=%v stop=%v",
			fw.Mode(), fw.FS(), fw.FadeCode(), run, stop,
		)
		return
	case chunk.TagChSel, chunk.TagTopEnv:
		return
	case chunk.TagTopCoef, chunk.TagTopIns:
		describeMem(w, c, true)
		return
	}

	if !c.Tag.IsApp() {
		return
	}

	switch c.Tag.Category() {
	case chunk.TagAppEnv:
		env := chunk.AppEnv(c.Data)
		fmt.Fprintf(w, " id=0x%02x regbase=0x%06x fade=%v irq=%v",
			env.ID(), env.RegBase(), env.Fade(), env.IRQ(),
		)
	case chunk.TagAppCoef, chunk.TagAppConst:
		m, err := chunk.DecodeCoef(c.Data)
		if err != nil {
			fmt.Fprintf(w, " (%v)", err)
			return
		}
		fmt.Fprintf(w, " sel=%d addr=0x%06x mode=%v len=%d", m.Sel, m.Addr, m.Mode, len(m.Data))
	case chunk.TagAppIns:
		describeMem(w, c, true)
	case chunk.TagAppReg:
		describeMem(w, c, false)
	}
}

func describeMem(w io.Writer, c chunk.Chunk, aligned bool) {
	m, err := chunk.DecodeMem(c.Data, aligned)
	if err != nil {
		fmt.Fprintf(w, " (%v)", err)
		return
	}
	fmt.Fprintf(w, " sel=%d addr=0x%06x len=%d", m.Sel, m.Addr, len(m.Data))
}
