// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/go-lpc/fdsp/dsp"
	mail "gopkg.in/gomail.v2"
)

const maxAlerts = 5 // per event kind

type MailConfig struct {
	Server string   `yaml:"server"`
	Port   int      `yaml:"port"`
	Usr    string   `yaml:"usr"`
	Pwd    string   `yaml:"pwd"`
	To     []string `yaml:"to"`
}

func (cfg MailConfig) valid() bool {
	return cfg.Usr != "" && cfg.Pwd != "" &&
		cfg.Server != "" && cfg.Port != 0 &&
		len(cfg.To) != 0
}

var mailSend = func(d *mail.Dialer, msg *mail.Message) error {
	return d.DialAndSend(msg)
}

// alerter mails operators about F-DSP resets and errors.
type alerter struct {
	cfg    MailConfig
	msgs   chan *mail.Message
	alerts map[string]int // number of alerts per event kind
}

func newAlerter(cfg MailConfig) *alerter {
	return &alerter{
		cfg:    cfg,
		msgs:   make(chan *mail.Message, maxAlerts),
		alerts: make(map[string]int),
	}
}

// event runs on the server worker goroutine and never blocks.
func (a *alerter) event(ev dsp.Event) {
	var kind string
	switch ev.(type) {
	case dsp.ResetEvent:
		kind = "reset"
	case dsp.ErrorEvent:
		kind = "error"
	default:
		return
	}

	log.Printf("F-DSP alert: %v", ev)
	a.alerts[kind]++
	if a.alerts[kind] > maxAlerts {
		return
	}

	if !a.cfg.valid() {
		log.Printf("could not send mail alert: missing credentials")
		return
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", a.cfg.Usr)
	msg.SetHeader("Bcc", a.cfg.To...)
	msg.SetHeader("Subject", fmt.Sprintf("[fdsp-srv] F-DSP %s alert", kind))
	msg.SetBody("text/plain", fmt.Sprintf("event: %v\ntime:  %v\ncount: %d",
		ev, time.Now().UTC().Format(time.RFC3339), a.alerts[kind],
	))

	select {
	case a.msgs <- msg:
	default:
		log.Printf("could not queue mail alert for %v", ev)
	}
}

func (a *alerter) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.msgs:
			dial := mail.NewDialer(a.cfg.Server, a.cfg.Port, a.cfg.Usr, a.cfg.Pwd)
			dial.TLSConfig = &tls.Config{
				ServerName: a.cfg.Server,
			}
			err := mailSend(dial, msg)
			if err != nil {
				log.Printf("could not send mail alert: %+v", err)
			}
		}
	}
}
