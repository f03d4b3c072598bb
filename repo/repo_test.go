// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dbsbackup/dbs/fsops"
	"github.com/dbsbackup/dbs/pathfilter"
)

func TestBackupCheckCompareRestoreEndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	repoDir := t.TempDir()
	restoreDir := t.TempDir()

	if err := fsops.WriteAll(filepath.Join(dataDir, "a.txt"), []byte("hello")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	r := Open(repoDir)
	ctx := context.Background()

	name1, err := r.Backup(ctx, BackupOptions{DataFolderPath: dataDir})
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if name1 == "" {
		t.Fatalf("expected a non-empty snapshot name")
	}

	report, err := r.Check(ctx, "", "")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.IsEmpty() {
		t.Fatalf("expected clean check, got %+v", report)
	}

	if err := fsops.WriteAll(filepath.Join(dataDir, "b.txt"), []byte("world")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	cmp, err := r.Compare(ctx, dataDir, "", "")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(cmp.MissingArchiveFiles) != 1 || cmp.MissingArchiveFiles[0] != "b.txt" {
		t.Fatalf("expected b.txt to show up as missing from archive, got %+v", cmp)
	}

	if err := r.Restore(ctx, restoreDir, "", ""); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := fsops.ReadAll(filepath.Join(restoreDir, "a.txt"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("restored a.txt mismatch: %q, err=%v", got, err)
	}
	if _, err := os.Stat(filepath.Join(restoreDir, "b.txt")); !os.IsNotExist(err) {
		t.Fatalf("restore should not materialise files absent from the snapshot")
	}
}

func TestBackupTwiceThenFindAndList(t *testing.T) {
	dataDir := t.TempDir()
	repoDir := t.TempDir()

	if err := fsops.WriteAll(filepath.Join(dataDir, "notes.txt"), []byte("v1")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	r := Open(repoDir)
	ctx := context.Background()

	if _, err := r.Backup(ctx, BackupOptions{DataFolderPath: dataDir, ArchiveName: "PROJECT"}); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if _, err := r.Backup(ctx, BackupOptions{DataFolderPath: dataDir, ArchiveName: "PROJECT"}); err != nil {
		t.Fatalf("second Backup: %v", err)
	}

	listing, err := r.List("*", "*")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listing) != 1 || listing[0].Archive != "PROJECT" || len(listing[0].Snapshots) != 2 {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	found, err := r.Find("PROJECT", "*", "*.txt")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected a match in both snapshots, got %+v", found)
	}
	for _, fr := range found {
		if len(fr.Paths) != 1 || fr.Paths[0] != "notes.txt" {
			t.Fatalf("unexpected find result: %+v", fr)
		}
	}
}

// TestFilteredBackupExcludesLiveScopeFromCompareAndRestore guards against
// re-scanning the live data folder with no filters when a snapshot was
// taken with --exclude: a path that was out of scope at backup time must
// stay out of scope for Compare and Restore too, or Restore's prune step
// would delete files the tool never backed up in the first place.
func TestFilteredBackupExcludesLiveScopeFromCompareAndRestore(t *testing.T) {
	dataDir := t.TempDir()
	repoDir := t.TempDir()
	restoreDir := t.TempDir()

	if err := fsops.WriteAll(filepath.Join(dataDir, "a.txt"), []byte("hello")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "TMP"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := fsops.WriteAll(filepath.Join(dataDir, "TMP", "scratch.txt"), []byte("ephemeral")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	r := Open(repoDir)
	ctx := context.Background()

	excludeTMP := FilterOptions{
		FolderFilters: []pathfilter.Filter{{Pattern: "/TMP/", Inclusive: false}},
	}
	if _, err := r.Backup(ctx, BackupOptions{DataFolderPath: dataDir, FilterOptions: excludeTMP}); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	// Compare must not report the never-backed-up TMP/ contents as missing
	// from the archive.
	cmp, err := r.Compare(ctx, dataDir, "", "")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !cmp.IsEmpty() {
		t.Fatalf("expected no differences for paths outside the backup scope, got %+v", cmp)
	}

	// Restoring into a fresh folder that also has an out-of-scope TMP/
	// entry must leave it alone rather than pruning it.
	if err := os.MkdirAll(filepath.Join(restoreDir, "TMP"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := fsops.WriteAll(filepath.Join(restoreDir, "TMP", "scratch.txt"), []byte("ephemeral")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if err := r.Restore(ctx, restoreDir, "", ""); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := fsops.ReadAll(filepath.Join(restoreDir, "TMP", "scratch.txt"))
	if err != nil || string(got) != "ephemeral" {
		t.Fatalf("restore pruned a file outside the backup's own filter scope: %q, err=%v", got, err)
	}
}

func TestRestoreFailsWhenArchiveMissing(t *testing.T) {
	repoDir := t.TempDir()
	restoreDir := t.TempDir()
	r := Open(repoDir)

	if err := r.Restore(context.Background(), restoreDir, "NOPE", ""); err == nil {
		t.Fatalf("expected an error restoring from a repository with no history yet")
	}
}
