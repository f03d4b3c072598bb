// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dbsbackup/dbs/fsops"
	"github.com/dbsbackup/dbs/pathfilter"
)

func mustScan(t *testing.T, dir string, cfg ScanConfig) *Snapshot {
	t.Helper()
	cfg.DataFolderPath = dir
	s, err := Scan(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return s
}

// TestEmptyBackupScenario is literal scenario 1: scanning an empty folder
// yields a snapshot with only the root folder and no files.
func TestEmptyBackupScenario(t *testing.T) {
	dir := t.TempDir()
	s := mustScan(t, dir, ScanConfig{})

	if len(s.Folders) != 1 {
		t.Fatalf("expected exactly the root folder, got %d folders", len(s.Folders))
	}
	if s.Folders[0].ParentIndex != NoParent {
		t.Fatalf("root folder should have no parent, got %d", s.Folders[0].ParentIndex)
	}
	if s.Folders[0].Path != "" {
		t.Fatalf("root path should be empty, got %q", s.Folders[0].Path)
	}
	if len(s.Files) != 0 {
		t.Fatalf("expected no files, got %d", len(s.Files))
	}

	round := roundTrip(t, s)
	if len(round.Folders) != 1 || len(round.Files) != 0 {
		t.Fatalf("round trip of empty snapshot mismatched: %+v", round)
	}
}

func roundTrip(t *testing.T, s *Snapshot) *Snapshot {
	t.Helper()
	data := s.Serialize()
	out, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	return out
}

func TestScanEmitsFilesThenSubfolders(t *testing.T) {
	dir := t.TempDir()
	if err := fsops.WriteAll(filepath.Join(dir, "a.txt"), []byte("a")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := fsops.WriteAll(filepath.Join(dir, "sub", "b.txt"), []byte("b")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	s := mustScan(t, dir, ScanConfig{})

	if len(s.Folders) != 2 {
		t.Fatalf("expected root + sub, got %d folders", len(s.Folders))
	}
	if len(s.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(s.Files))
	}
	if s.Folders[1].Path != "sub/" {
		t.Fatalf("sub folder path = %q, want %q", s.Folders[1].Path, "sub/")
	}

	root, ok := s.FolderByPath("")
	if !ok {
		t.Fatalf("expected root folder lookup to succeed")
	}
	_ = root
	bFile, ok := s.FileByPath("sub/", "b.txt")
	if !ok {
		t.Fatalf("expected to find sub/b.txt by path")
	}
	if bFile.FolderIndex != 1 {
		t.Fatalf("b.txt folder index = %d, want 1", bFile.FolderIndex)
	}
}

func TestScanAppliesFilters(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"A.txt", "A.log"} {
		if err := fsops.WriteAll(filepath.Join(dir, rel), []byte("x")); err != nil {
			t.Fatalf("WriteAll: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "TMP"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := fsops.WriteAll(filepath.Join(dir, "TMP", "B.txt"), []byte("x")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	cfg := ScanConfig{
		FolderFilters: []pathfilter.Filter{{Pattern: "/TMP/", Inclusive: false}},
		FileFilters: []pathfilter.Filter{
			{Pattern: "*.txt", Inclusive: true},
			{Pattern: "*.log", Inclusive: false},
		},
	}
	s := mustScan(t, dir, cfg)

	if len(s.Files) != 1 {
		t.Fatalf("expected exactly one file in scope, got %d: %+v", len(s.Files), s.Files)
	}
	if s.Files[0].Name != "A.txt" {
		t.Fatalf("expected A.txt in scope, got %q", s.Files[0].Name)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	s := &Snapshot{
		Version:        CurrentVersion,
		Time:           time.Now().UTC().Truncate(time.Second),
		DataFolderPath: "/data",
		FolderFilters: []pathfilter.Filter{
			{Pattern: "/TMP/", Inclusive: false},
		},
		FileFilters: []pathfilter.Filter{
			{Pattern: "*.txt", Inclusive: true},
		},
		SelectedFileFilters: []string{"*.txt"},
		Folders: []Folder{
			{ParentIndex: NoParent, Name: "", Path: ""},
			{ParentIndex: 0, Name: "sub", Path: "sub/", AttributeMask: 1},
		},
	}
	hash := sha256.Sum256([]byte("hello"))
	s.Files = []File{
		{FolderIndex: 1, Name: "x.txt", Hash: hash, ByteCount: 5, ModTime: time.Now().UTC().Truncate(time.Second)},
	}

	out := roundTrip(t, s)

	if out.Version != s.Version {
		t.Errorf("version mismatch: got %d want %d", out.Version, s.Version)
	}
	if !out.Time.Equal(s.Time) {
		t.Errorf("time mismatch: got %v want %v", out.Time, s.Time)
	}
	if out.DataFolderPath != s.DataFolderPath {
		t.Errorf("data folder path mismatch")
	}
	if len(out.FolderFilters) != 1 || out.FolderFilters[0] != s.FolderFilters[0] {
		t.Errorf("folder filters mismatch: %+v", out.FolderFilters)
	}
	if len(out.Folders) != 2 || out.Folders[1].Path != "sub/" {
		t.Errorf("folders mismatch: %+v", out.Folders)
	}
	if len(out.Files) != 1 || out.Files[0].Hash != hash || out.Files[0].Name != "x.txt" {
		t.Errorf("files mismatch: %+v", out.Files)
	}
	if f, ok := out.FileByPath("sub/", "x.txt"); !ok || f.ByteCount != 5 {
		t.Errorf("FileByPath lookup failed after round trip: %+v, %v", f, ok)
	}
}

func TestFastPathSameContentIdentity(t *testing.T) {
	mtime := time.Now().UTC().Truncate(time.Second)
	a := File{ByteCount: 3, ModTime: mtime, Hash: sha256.Sum256([]byte("one"))}
	b := File{ByteCount: 3, ModTime: mtime, Hash: [32]byte{}}

	if !a.SameContentIdentity(b) {
		t.Fatalf("expected same content identity for matching size+mtime regardless of hash")
	}

	c := File{ByteCount: 3, ModTime: mtime.Add(time.Second)}
	if a.SameContentIdentity(c) {
		t.Fatalf("expected different content identity when mtime differs")
	}
}
