// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command dbs-fixtures is a developer-only tool: it scans a
// deterministic synthetic workspace with snapshot.Scan and dumps the
// resulting Folder/File records as JSON and as sorted-key msgpack, for
// cross-implementation fixture comparison. This is the only place
// msgpack touches this repository; the on-disk snapshot format is the
// tagged/varuint wire format in package stream, never msgpack.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dbsbackup/dbs/snapshot"
	"github.com/dbsbackup/dbs/store"
)

// fixtureFolder and fixtureFile mirror snapshot.Folder/snapshot.File but
// with the hash hex-encoded and indices left as plain ints, so they
// marshal predictably to both JSON and msgpack.
type fixtureFolder struct {
	ParentIndex int    `json:"parent_index" msgpack:"parent_index"`
	Name        string `json:"name" msgpack:"name"`
	Path        string `json:"path" msgpack:"path"`
}

type fixtureFile struct {
	FolderIndex int    `json:"folder_index" msgpack:"folder_index"`
	Name        string `json:"name" msgpack:"name"`
	HashHex     string `json:"hash_hex" msgpack:"hash_hex"`
	ByteCount   uint64 `json:"byte_count" msgpack:"byte_count"`
}

type fixture struct {
	Name    string          `json:"name"`
	Folders []fixtureFolder `json:"folders"`
	Files   []fixtureFile   `json:"files"`
	Notes   string          `json:"notes,omitempty"`
}

func main() {
	outDir := flag.String("out", "testdata/fixtures", "output directory for fixtures")
	flag.Parse()

	tmpDir, err := os.MkdirTemp("", "dbs-fixtures")
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmpdir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	if err := seedWorkspace(tmpDir); err != nil {
		fmt.Fprintf(os.Stderr, "seed workspace: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	snap, err := snapshot.Scan(ctx, snapshot.ScanConfig{DataFolderPath: tmpDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan: %v\n", err)
		os.Exit(1)
	}

	st := store.New(filepath.Join(tmpDir, ".dbs-fixtures-repo"))
	if err := st.EnsureForBackup(); err != nil {
		fmt.Fprintf(os.Stderr, "ensure store: %v\n", err)
		os.Exit(1)
	}
	if err := st.Backup(ctx, tmpDir, snap, nil, nil); err != nil {
		fmt.Fprintf(os.Stderr, "hash files: %v\n", err)
		os.Exit(1)
	}

	fx := fixture{
		Name:    "dbs_basic",
		Folders: make([]fixtureFolder, 0, len(snap.Folders)),
		Files:   make([]fixtureFile, 0, len(snap.Files)),
		Notes:   "Generated from a deterministic synthetic workspace.",
	}
	for _, folder := range snap.Folders {
		fx.Folders = append(fx.Folders, fixtureFolder{
			ParentIndex: folder.ParentIndex,
			Name:        folder.Name,
			Path:        folder.Path,
		})
	}
	for _, f := range snap.Files {
		fx.Files = append(fx.Files, fixtureFile{
			FolderIndex: f.FolderIndex,
			Name:        f.Name,
			HashHex:     hex.EncodeToString(f.Hash[:]),
			ByteCount:   f.ByteCount,
		})
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	jsonData, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal json: %v\n", err)
		os.Exit(1)
	}
	jsonPath := filepath.Join(*outDir, fx.Name+".json")
	if err := os.WriteFile(jsonPath, jsonData, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", jsonPath, err)
		os.Exit(1)
	}

	msgpackData, err := encodeMsgpack(fx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal msgpack: %v\n", err)
		os.Exit(1)
	}
	msgpackPath := filepath.Join(*outDir, fx.Name+".msgpack")
	if err := os.WriteFile(msgpackPath, msgpackData, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", msgpackPath, err)
		os.Exit(1)
	}
}

// encodeMsgpack encodes a value as msgpack with sorted map keys, so
// fixture output is byte-for-byte reproducible across runs.
func encodeMsgpack(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func seedWorkspace(root string) error {
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("# Test"), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main"), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(root, "src", "lib.go"), []byte("package main\n\nfunc foo() {}"), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(root, "script.sh"), []byte("#!/bin/bash\necho hi"), 0o755); err != nil {
		return err
	}
	return nil
}
