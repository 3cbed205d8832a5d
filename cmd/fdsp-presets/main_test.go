// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-lpc/fdsp/presetdb"
)

type fakeStore struct {
	names []string
	blobs map[string][]byte
}

func (db *fakeStore) Preset(ctx context.Context, name string) ([]byte, error) {
	blob, ok := db.blobs[name]
	if !ok {
		return nil, presetdb.ErrNotFound
	}
	return blob, nil
}

func (db *fakeStore) LastPreset(ctx context.Context) (string, error) {
	if len(db.names) == 0 {
		return "", presetdb.ErrNotFound
	}
	return db.names[len(db.names)-1], nil
}

func (db *fakeStore) Presets(ctx context.Context) ([]presetdb.Info, error) {
	infos := make([]presetdb.Info, len(db.names))
	for i, name := range db.names {
		infos[i] = presetdb.Info{
			Name:    name,
			Created: time.Date(2026, 3, 1+i, 10, 0, 0, 0, time.UTC),
			Size:    len(db.blobs[name]),
		}
	}
	return infos, nil
}

func (db *fakeStore) Store(ctx context.Context, name string, blob []byte) error {
	db.names = append(db.names, name)
	db.blobs[name] = blob
	return nil
}

func TestProcess(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "loud.blob")
	err := os.WriteFile(fname, []byte{1, 2, 3}, 0644)
	if err != nil {
		t.Fatal(err)
	}

	db := &fakeStore{
		names: []string{"flat"},
		blobs: map[string][]byte{"flat": {0xca, 0xfe}},
	}

	for _, tc := range []struct {
		args []string
		want string
		err  string
	}{
		{args: []string{"last"}, want: "flat\n"},
		{args: []string{"get", "flat"}, want: "\xca\xfe"},
		{args: []string{"put", "loudness", fname}},
		{args: []string{"last"}, want: "loudness\n"},
		{
			args: []string{"ls"},
			want: "flat        2026-03-01T10:00:00Z    2 bytes\n" +
				"loudness    2026-03-02T10:00:00Z    3 bytes\n",
		},
		{args: nil, err: "missing command (ls, last, get or put)"},
		{args: []string{"rm", "flat"}, err: `unknown command "rm"`},
		{args: []string{"get"}, err: "usage: get NAME"},
		{args: []string{"get", "nope"}, err: `could not get preset "nope": presetdb: preset not found`},
		{args: []string{"put", "x"}, err: "usage: put NAME FILE"},
	} {
		w := new(bytes.Buffer)
		err := process(context.Background(), w, db, tc.args)
		switch {
		case tc.err != "":
			if err == nil || err.Error() != tc.err {
				t.Fatalf("%q: invalid error: got=%v, want=%q", tc.args, err, tc.err)
			}
			continue
		case err != nil:
			t.Fatalf("%q: could not process: %+v", tc.args, err)
		}
		if got, want := w.String(), tc.want; got != want {
			t.Fatalf("%q: invalid output:\ngot= %q\nwant=%q", tc.args, got, want)
		}
	}
}
