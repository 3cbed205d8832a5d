// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsp

import (
	"encoding/json"
	"fmt"
	"net"
)

// Client sends commands to a Server.
type Client struct {
	conn net.Conn
	dec  *json.Decoder
	enc  *json.Encoder
}

// Dial connects to the server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("fdsp: could not dial %q: %w", addr, err)
	}
	return &Client{
		conn: conn,
		dec:  json.NewDecoder(conn),
		enc:  json.NewEncoder(conn),
	}, nil
}

// Call runs the named command with args, and decodes its result into
// data when data is not nil.
func (c *Client) Call(name string, args, data interface{}) error {
	req := struct {
		Name string      `json:"name"`
		Args interface{} `json:"args,omitempty"`
	}{name, args}

	err := c.enc.Encode(req)
	if err != nil {
		return fmt.Errorf("fdsp: could not send %q command: %w", name, err)
	}

	var rep struct {
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	err = c.dec.Decode(&rep)
	if err != nil {
		return fmt.Errorf("fdsp: could not receive %q reply: %w", name, err)
	}
	if rep.Msg != "ok" {
		return fmt.Errorf("fdsp: %s", rep.Msg)
	}
	if data != nil && len(rep.Data) > 0 {
		err = json.Unmarshal(rep.Data, data)
		if err != nil {
			return fmt.Errorf("fdsp: could not decode %q reply: %w", name, err)
		}
	}
	return nil
}

// Close closes the connection to the server.
func (c *Client) Close() error {
	return c.conn.Close()
}
