// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Presets provides configuration blobs by name.
type Presets interface {
	Preset(ctx context.Context, name string) ([]byte, error)
}

// Server serves a Controller over JSON/TCP connections.
//
// All controller calls, including the periodic interrupt handling, run
// on a single worker goroutine.
type Server struct {
	msg *log.Logger
	ctl *Controller
	lis net.Listener

	reqs    chan request
	poll    time.Duration
	presets Presets
	hook    func(Event)
}

type request struct {
	f     func(ctl *Controller) error
	reply chan error
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithPollPeriod sets the interrupt polling period. Zero disables polling.
func WithPollPeriod(d time.Duration) ServerOption {
	return func(srv *Server) {
		srv.poll = d
	}
}

// WithPresets enables the "load-preset" command.
func WithPresets(p Presets) ServerOption {
	return func(srv *Server) {
		srv.presets = p
	}
}

// WithEventHook registers f to receive the controller events.
// f runs on the worker goroutine and must not block.
func WithEventHook(f func(Event)) ServerOption {
	return func(srv *Server) {
		srv.hook = f
	}
}

// WithServerLogger sets the logger of the server.
func WithServerLogger(msg *log.Logger) ServerOption {
	return func(srv *Server) {
		srv.msg = msg
	}
}

// NewServer creates a server listening on addr and driving ctl.
func NewServer(addr string, ctl *Controller, opts ...ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("fdsp: could not listen on %q: %w", addr, err)
	}

	srv := &Server{
		msg:  log.New(os.Stdout, "fdsp-srv: ", 0),
		ctl:  ctl,
		lis:  lis,
		reqs: make(chan request),
		poll: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(srv)
	}
	ctl.SetCallback(srv.event)
	return srv, nil
}

// Addr returns the listening address of the server.
func (srv *Server) Addr() net.Addr { return srv.lis.Addr() }

// Run serves connections until ctx is canceled.
func (srv *Server) Run(ctx context.Context) error {
	grp, ctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		<-ctx.Done()
		return srv.lis.Close()
	})
	grp.Go(func() error { return srv.work(ctx) })
	grp.Go(func() error { return srv.accept(ctx) })
	if srv.poll > 0 {
		grp.Go(func() error { return srv.pollIRQ(ctx) })
	}

	err := grp.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (srv *Server) event(ev Event) {
	srv.msg.Printf("event: %v", ev)
	if srv.hook != nil {
		srv.hook(ev)
	}
}

func (srv *Server) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-srv.reqs:
			req.reply <- req.f(srv.ctl)
		}
	}
}

// do runs f on the worker goroutine.
func (srv *Server) do(ctx context.Context, f func(ctl *Controller) error) error {
	req := request{f: f, reply: make(chan error, 1)}
	select {
	case srv.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (srv *Server) pollIRQ(ctx context.Context) error {
	tck := time.NewTicker(srv.poll)
	defer tck.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tck.C:
			err := srv.do(ctx, func(ctl *Controller) error {
				err := ctl.HandleInterrupt()
				if errors.Is(err, ErrNotInitialized) {
					return nil
				}
				return err
			})
			if err != nil && ctx.Err() == nil {
				srv.msg.Printf("could not handle interrupts: %+v", err)
			}
		}
	}
}

func (srv *Server) accept(ctx context.Context) error {
	for {
		conn, err := srv.lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fdsp: could not accept connection: %w", err)
		}
		go srv.handle(ctx, conn)
	}
}

func (srv *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	srv.msg.Printf("serving %v...", conn.RemoteAddr())
	defer srv.msg.Printf("serving %v... [done]", conn.RemoteAddr())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	var (
		dec = json.NewDecoder(conn)
		enc = json.NewEncoder(conn)
	)
	for {
		var req struct {
			Name string          `json:"name"`
			Args json.RawMessage `json:"args"`
		}

		err := dec.Decode(&req)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			srv.msg.Printf("could not decode command request: %+v", err)
			srv.reply(enc, nil, err)
			return
		}
		srv.msg.Printf("received request: name=%q", req.Name)

		data, err := srv.dispatch(ctx, strings.ToLower(req.Name), req.Args)
		if err != nil {
			srv.msg.Printf("could not run %q: %+v", req.Name, err)
		}
		srv.reply(enc, data, err)
	}
}

func (srv *Server) dispatch(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	decode := func(v interface{}) error {
		if len(args) == 0 {
			return fmt.Errorf("%w: missing arguments for %q", ErrInvalidArgument, name)
		}
		err := json.Unmarshal(args, v)
		if err != nil {
			return fmt.Errorf("%w: could not decode %q payload: %w", ErrInvalidArgument, name, err)
		}
		return nil
	}

	switch name {
	case "init":
		var cfg Config
		if len(args) > 0 {
			err := decode(&cfg)
			if err != nil {
				return nil, err
			}
		}
		return nil, srv.do(ctx, func(ctl *Controller) error {
			err := ctl.Init(cfg)
			if err != nil {
				return err
			}
			ctl.SetCallback(srv.event)
			return nil
		})

	case "term":
		return nil, srv.do(ctx, func(ctl *Controller) error { return ctl.Term() })

	case "set-dsp":
		var arg struct {
			Blob []byte `json:"blob"`
		}
		err := decode(&arg)
		if err != nil {
			return nil, err
		}
		return nil, srv.do(ctx, func(ctl *Controller) error { return ctl.SetDSP(arg.Blob) })

	case "load-preset":
		if srv.presets == nil {
			return nil, fmt.Errorf("fdsp: no preset store configured")
		}
		var arg struct {
			Name string `json:"name"`
		}
		err := decode(&arg)
		if err != nil {
			return nil, err
		}
		blob, err := srv.presets.Preset(ctx, arg.Name)
		if err != nil {
			return nil, fmt.Errorf("fdsp: could not retrieve preset %q: %w", arg.Name, err)
		}
		return nil, srv.do(ctx, func(ctl *Controller) error { return ctl.SetDSP(blob) })

	case "start":
		return nil, srv.do(ctx, func(ctl *Controller) error { return ctl.Start() })

	case "stop":
		var cs ControlStatus
		err := srv.do(ctx, func(ctl *Controller) (err error) {
			cs, err = ctl.Stop()
			return err
		})
		return cs.String(), err

	case "transition":
		var tr Transition
		err := srv.do(ctx, func(ctl *Controller) (err error) {
			tr, err = ctl.Transition()
			return err
		})
		return uint32(tr), err

	case "mute":
		var ms MuteState
		err := srv.do(ctx, func(ctl *Controller) (err error) {
			ms, err = ctl.Mute()
			return err
		})
		return ms, err

	case "set-mute":
		var ms MuteState
		err := decode(&ms)
		if err != nil {
			return nil, err
		}
		return nil, srv.do(ctx, func(ctl *Controller) error { return ctl.SetMute(ms) })

	case "read-mem":
		var arg struct {
			Region Region `json:"region"`
			Addr   uint32 `json:"addr"`
			Len    int    `json:"len"`
		}
		err := decode(&arg)
		if err != nil {
			return nil, err
		}
		if arg.Len < 0 || arg.Len > MaxReadLen {
			return nil, fmt.Errorf("%w: invalid length %d", ErrInvalidArgument, arg.Len)
		}
		buf := make([]byte, arg.Len)
		var n int
		err = srv.do(ctx, func(ctl *Controller) (err error) {
			n, err = ctl.ReadMemory(arg.Region, arg.Addr, buf)
			return err
		})
		return buf[:n], err

	case "status":
		var st Status
		err := srv.do(ctx, func(ctl *Controller) error {
			st = ctl.Status()
			return nil
		})
		return st, err
	}

	return nil, fmt.Errorf("fdsp: unknown command %q", name)
}

func (srv *Server) reply(enc *json.Encoder, data interface{}, err error) {
	rep := reply{Msg: "ok", Data: data}
	if err != nil {
		rep.Msg = fmt.Sprintf("%+v", err)
		rep.Data = nil
	}

	_ = enc.Encode(rep)
}

type reply struct {
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}
