// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"testing"
	"time"

	"github.com/dbsbackup/dbs/snapshot"
)

func TestFormatSnapshotNameOrdering(t *testing.T) {
	earlier := time.Date(2026, 1, 2, 3, 4, 5, 100*1000, time.UTC) // 1000 ticks
	later := time.Date(2026, 1, 2, 3, 4, 5, 200*1000, time.UTC)   // 2000 ticks

	a := FormatSnapshotName(earlier)
	b := FormatSnapshotName(later)

	if !(a < b) {
		t.Fatalf("expected %q < %q (lexicographic order should equal chronological order)", a, b)
	}
	if len(a) != len("20060102_150405_0000000") {
		t.Fatalf("unexpected snapshot name length: %q", a)
	}
}

func TestArchiveEnsureScanAppendLoad(t *testing.T) {
	repoRoot := t.TempDir()
	a := New(repoRoot, DefaultArchiveName)
	if err := a.EnsureForBackup(); err != nil {
		t.Fatalf("EnsureForBackup: %v", err)
	}
	if err := a.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(a.SnapshotNames()) != 0 {
		t.Fatalf("expected no snapshots yet, got %v", a.SnapshotNames())
	}

	snap := &snapshot.Snapshot{Version: snapshot.CurrentVersion, Folders: []snapshot.Folder{{ParentIndex: snapshot.NoParent}}}
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	name1, err := a.AppendSnapshot(snap, first)
	if err != nil {
		t.Fatalf("AppendSnapshot: %v", err)
	}

	second := first.Add(time.Hour)
	name2, err := a.AppendSnapshot(snap, second)
	if err != nil {
		t.Fatalf("AppendSnapshot: %v", err)
	}
	if name1 >= name2 {
		t.Fatalf("expected name1 < name2, got %q, %q", name1, name2)
	}

	// Rescan from a fresh handle to confirm on-disk state matches.
	b := New(repoRoot, DefaultArchiveName)
	if err := b.RequireExists(); err != nil {
		t.Fatalf("RequireExists: %v", err)
	}
	if err := b.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(b.SnapshotNames()) != 2 {
		t.Fatalf("expected 2 snapshots, got %v", b.SnapshotNames())
	}

	last, err := b.LastSnapshotName()
	if err != nil || last != name2 {
		t.Fatalf("LastSnapshotName = %q, %v; want %q", last, err, name2)
	}

	loaded, err := b.LoadSnapshot(name1)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded.Folders) != 1 {
		t.Fatalf("loaded snapshot has wrong folder count: %+v", loaded.Folders)
	}

	if _, err := b.SnapshotName("does-not-exist"); err == nil {
		t.Fatalf("expected error resolving an unknown snapshot name")
	}
}

func TestArchiveRequireExistsFailsWhenAbsent(t *testing.T) {
	repoRoot := t.TempDir()
	a := New(repoRoot, "NOPE")
	if err := a.RequireExists(); err == nil {
		t.Fatalf("expected error for a nonexistent archive")
	}
}

func TestHistoryScanEnumeratesArchives(t *testing.T) {
	repoRoot := t.TempDir()
	h := NewHistory(repoRoot)

	if err := h.EnsureForBackup(DefaultArchiveName); err != nil {
		t.Fatalf("EnsureForBackup: %v", err)
	}
	if _, err := h.EnsureArchive("SECOND"); err != nil {
		t.Fatalf("EnsureArchive: %v", err)
	}

	h2 := NewHistory(repoRoot)
	if err := h2.RequireExists(); err != nil {
		t.Fatalf("RequireExists: %v", err)
	}
	if err := h2.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	names := h2.ArchiveNames()
	if len(names) != 2 || names[0] != DefaultArchiveName || names[1] != "SECOND" {
		t.Fatalf("unexpected archive names: %v", names)
	}
}
