// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package presetdb stores named F-DSP configuration blobs in a MySQL
// database.
//
// Presets live in a single table:
//
//	CREATE TABLE presets (
//		name     VARCHAR(64) NOT NULL,
//		datetime DATETIME    NOT NULL,
//		data     BLOB        NOT NULL
//	);
//
// Storing a preset under an existing name adds a new revision: readers
// always get the most recent one.
package presetdb // import "github.com/go-lpc/fdsp/presetdb"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-lpc/fdsp/chunk"
	"github.com/go-sql-driver/mysql"
)

var (
	drvName = "mysql"

	timeout = 5 * time.Second
	now     = time.Now
)

// ErrNotFound is returned when no preset matches a request.
var ErrNotFound = errors.New("presetdb: preset not found")

// DB gives access to the presets database.
type DB struct {
	db   *sql.DB
	name string
}

// Info describes a stored preset.
type Info struct {
	Name    string
	Created time.Time
	Size    int
}

// DSN returns the data source name of the database dbname, served at
// addr and accessed as user usr.
func DSN(usr, pwd, addr, dbname string) string {
	cfg := mysql.NewConfig()
	cfg.User = usr
	cfg.Passwd = pwd
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = dbname
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Open opens a connection to the presets database described by dsn.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("presetdb: could not open db: %w", err)
	}

	name := dsn
	if cfg, err := mysql.ParseDSN(dsn); err == nil {
		name = cfg.DBName
	}

	err = ping(db, name)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: name}, nil
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("presetdb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Name returns the name of the database.
func (db *DB) Name() string { return db.name }

// Preset returns the most recent blob stored under name.
func (db *DB) Preset(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var blob []byte
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT data FROM presets WHERE name=? ORDER BY datetime DESC LIMIT 1",
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("presetdb: could not query preset %q: %w", name, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		err = rows.Scan(&blob)
		if err != nil {
			return nil, fmt.Errorf("presetdb: could not get preset %q: %w", name, err)
		}
		found = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("presetdb: could not scan db for preset %q: %w", name, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("presetdb: context error while retrieving preset %q: %w", name, err)
	}

	if !found {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	return blob, nil
}

// LastPreset returns the name of the most recently stored preset.
func (db *DB) LastPreset(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM presets ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return name, fmt.Errorf("presetdb: could not query last preset: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&name)
		if err != nil {
			return name, fmt.Errorf("presetdb: could not get last preset name: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("presetdb: could not scan db for last preset: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return name, fmt.Errorf("presetdb: context error while retrieving last preset: %w", err)
	}

	if name == "" {
		return name, ErrNotFound
	}

	return name, nil
}

// Presets lists the stored revisions of all presets, most recent first.
func (db *DB) Presets(ctx context.Context) ([]Info, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var infos []Info
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name, datetime, LENGTH(data) FROM presets ORDER BY datetime DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("presetdb: could not run presets query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var info Info
		err = rows.Scan(&info.Name, &info.Created, &info.Size)
		if err != nil {
			return infos, fmt.Errorf("presetdb: could not scan presets: %w", err)
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return infos, fmt.Errorf("presetdb: could not scan db for presets: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return infos, fmt.Errorf("presetdb: context error while retrieving presets: %w", err)
	}

	return infos, nil
}

// Store adds blob as the most recent revision of the preset name.
// Malformed blobs are rejected before reaching the database.
func (db *DB) Store(ctx context.Context, name string, blob []byte) error {
	if name == "" {
		return fmt.Errorf("presetdb: invalid empty preset name")
	}
	_, err := chunk.Parse(blob)
	if err != nil {
		return fmt.Errorf("presetdb: invalid blob for preset %q: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err = db.db.ExecContext(
		ctx,
		"INSERT INTO presets (name, datetime, data) VALUES (?, ?, ?)",
		name, now().UTC(), blob,
	)
	if err != nil {
		return fmt.Errorf("presetdb: could not store preset %q: %w", name, err)
	}
	return nil
}
