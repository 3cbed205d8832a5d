// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"fmt"

	"github.com/go-lpc/fdsp/chunk"
)

// Event is a notification sent to the registered Callback.
type Event interface {
	fmt.Stringer
	isEvent()
}

// Callback receives controller events.
type Callback func(ev Event)

// ErrorEvent reports a global F-DSP error.
type ErrorEvent struct {
	Code byte // content of the error register
}

// CoefDoneEvent reports the completion of a DSP-mediated coefficient
// transfer.
type CoefDoneEvent struct {
	App int
}

// AppRequestEvent reports applications raising an interrupt request.
type AppRequestEvent struct {
	Apps chunk.AppMask
}

// AppStoppedEvent reports applications whose requested stop was
// confirmed by the hardware.
type AppStoppedEvent struct {
	Apps chunk.AppMask
}

// FDSPStoppedEvent reports the hardware confirmation of a full stop.
type FDSPStoppedEvent struct{}

// ResetEvent reports that a full stop timed out and that the F-DSP was
// reset to its default configuration.
type ResetEvent struct{}

func (ErrorEvent) isEvent()       {}
func (CoefDoneEvent) isEvent()    {}
func (AppRequestEvent) isEvent()  {}
func (AppStoppedEvent) isEvent()  {}
func (FDSPStoppedEvent) isEvent() {}
func (ResetEvent) isEvent()       {}

func (ev ErrorEvent) String() string      { return fmt.Sprintf("error(0x%02x)", ev.Code) }
func (ev CoefDoneEvent) String() string   { return fmt.Sprintf("coef-done(app=%d)", ev.App) }
func (ev AppRequestEvent) String() string { return fmt.Sprintf("app-request(%v)", ev.Apps) }
func (ev AppStoppedEvent) String() string { return fmt.Sprintf("app-stopped(%v)", ev.Apps) }
func (FDSPStoppedEvent) String() string   { return "fdsp-stopped" }
func (ResetEvent) String() string         { return "reset" }
