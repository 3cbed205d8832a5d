// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fdsp holds code to drive the firmware-programmable DSP block
// (F-DSP) embedded in audio codec chips.
//
// Sub-packages:
//   - chunk: decoding, validation and encoding of F-DSP configuration blobs,
//   - dsp: the F-DSP controller (stop planning, download, execution control),
//   - bus: register transports implementing the controller's device interface,
//   - presetdb: a database of named configuration blobs.
package fdsp // import "github.com/go-lpc/fdsp"

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of fdsp and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/go-lpc/fdsp"
	if b.Main.Path == root {
		return b.Main.Version, b.Main.Sum
	}

	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			case m.Replace.Path != "":
				return m.Replace.Path, m.Replace.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
