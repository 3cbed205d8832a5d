// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fdsp-presets manages the F-DSP presets db.
//
// Usage: fdsp-presets [OPTIONS] ls|last|get NAME|put NAME FILE
//
// Example:
//
//	$> fdsp-presets -usr fdsp -pwd s3cr3t ls
//	flat       2026-03-01T10:21:03Z    102 bytes
//	loudness   2026-03-04T08:12:44Z    236 bytes
//	$> fdsp-presets put flat ./flat.blob
//	$> fdsp-presets -o flat.blob get flat
package main // import "github.com/go-lpc/fdsp/cmd/fdsp-presets"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/go-lpc/fdsp/presetdb"
)

func main() {
	log.SetPrefix("fdsp-presets: ")
	log.SetFlags(0)

	var (
		usr    = flag.String("usr", os.Getenv("FDSP_DB_USER"), "presets db user")
		pwd    = flag.String("pwd", os.Getenv("FDSP_DB_PASSWORD"), "presets db password")
		addr   = flag.String("addr", "localhost:3306", "presets db server address")
		dbname = flag.String("db", "fdsp", "presets db name")
		oname  = flag.String("o", "", "output file for the get command (default: stdout)")
	)

	flag.Parse()

	db, err := presetdb.Open(presetdb.DSN(*usr, *pwd, *addr, *dbname))
	if err != nil {
		log.Fatalf("could not open presets db: %+v", err)
	}
	defer db.Close()

	var w io.Writer = os.Stdout
	if *oname != "" {
		f, err := os.Create(*oname)
		if err != nil {
			log.Fatalf("could not create output file: %+v", err)
		}
		defer f.Close()
		w = f
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = process(ctx, w, db, flag.Args())
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type store interface {
	Preset(ctx context.Context, name string) ([]byte, error)
	LastPreset(ctx context.Context) (string, error)
	Presets(ctx context.Context) ([]presetdb.Info, error)
	Store(ctx context.Context, name string, blob []byte) error
}

func process(ctx context.Context, w io.Writer, db store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command (ls, last, get or put)")
	}

	switch cmd, args := args[0], args[1:]; cmd {
	case "ls":
		infos, err := db.Presets(ctx)
		if err != nil {
			return fmt.Errorf("could not list presets: %w", err)
		}
		tw := tabwriter.NewWriter(w, 0, 8, 4, ' ', 0)
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%d bytes\n",
				info.Name, info.Created.UTC().Format(time.RFC3339), info.Size,
			)
		}
		return tw.Flush()

	case "last":
		name, err := db.LastPreset(ctx)
		if err != nil {
			return fmt.Errorf("could not get last preset: %w", err)
		}
		fmt.Fprintf(w, "%s\n", name)
		return nil

	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get NAME")
		}
		blob, err := db.Preset(ctx, args[0])
		if err != nil {
			return fmt.Errorf("could not get preset %q: %w", args[0], err)
		}
		_, err = w.Write(blob)
		if err != nil {
			return fmt.Errorf("could not write preset %q: %w", args[0], err)
		}
		return nil

	case "put":
		if len(args) != 2 {
			return fmt.Errorf("usage: put NAME FILE")
		}
		blob, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("could not read blob: %w", err)
		}
		err = db.Store(ctx, args[0], blob)
		if err != nil {
			return fmt.Errorf("could not store preset %q: %w", args[0], err)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
