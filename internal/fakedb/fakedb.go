// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
package fakedb // import "github.com/go-lpc/fdsp/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

var query struct {
	mu   sync.Mutex
	rows Rows
	log  []Stmt
}

// Run executes f with rows as the result of every query issued by f.
// Statements executed by f are recorded and returned.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) ([]Stmt, error) {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows
	query.log = nil

	err := f(ctx)
	return query.log, err
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare records query: arguments are recorded on execution.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{SQL: query}, nil
}

func (c *Conn) Close() error {
	return nil
}

func (c *Conn) Begin() (driver.Tx, error) {
	return nil, errors.New("fakedb: transactions not supported")
}

// Stmt is a prepared statement, as recorded by Run.
type Stmt struct {
	SQL  string
	Args []driver.Value
}

func (stmt *Stmt) Close() error {
	return nil
}

// NumInput disables argument counting.
func (stmt *Stmt) NumInput() int {
	return -1
}

func (stmt *Stmt) record(args []driver.Value) {
	query.log = append(query.log, Stmt{
		SQL:  stmt.SQL,
		Args: append([]driver.Value(nil), args...),
	})
}

// Exec records the statement and reports one affected row.
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	stmt.record(args)
	return driver.RowsAffected(1), nil
}

// Query records the statement and returns the rows set up by Run.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	stmt.record(args)
	return &query.rows, nil
}

// Rows holds the canned result of queries.
type Rows struct {
	Names  []string
	Values [][]driver.Value
}

func (rows *Rows) Columns() []string {
	return rows.Names
}

func (rows *Rows) Close() error {
	return nil
}

// Next pops the next row into dest.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
