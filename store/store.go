// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package store implements the content-addressed blob directory (FILE/)
// and its deduplicating backup/restore/compare/check operations.
package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dbsbackup/dbs/dbserr"
	"github.com/dbsbackup/dbs/fsops"
	"github.com/dbsbackup/dbs/snapshot"
)

// Store indexes the blob files under a repository's FILE/ directory and
// performs content-addressed backup, restore, compare, and check.
type Store struct {
	Root   string
	Logger *slog.Logger

	present map[string]struct{} // blob relative path -> present
}

// New returns a Store rooted at repoRoot. Call EnsureForBackup or
// RequireExists, then Index, before using it.
func New(repoRoot string) *Store {
	return &Store{Root: repoRoot, Logger: slog.Default(), present: make(map[string]struct{})}
}

func (s *Store) fileRoot() string { return filepath.Join(s.Root, blobDir) }

// EnsureForBackup creates FILE/ if it does not already exist, the
// "tool creates them on first backup" invariant.
func (s *Store) EnsureForBackup() error {
	return fsops.MkdirRecursive(s.fileRoot())
}

// RequireExists returns a PolicyError if FILE/ is absent, the invariant for
// read-only commands (check, compare, restore, find, list).
func (s *Store) RequireExists() error {
	if _, err := os.Stat(s.fileRoot()); err != nil {
		if os.IsNotExist(err) {
			return dbserr.NewPolicyError("store", "repository has no FILE/ store", err)
		}
		return err
	}
	return nil
}

// Index walks FILE/ and records which blob paths already exist, so Backup
// can dedup without a stat per file. Blobs whose declared byte-count
// (parsed from the filename) disagrees with their on-disk size are
// ignored and logged rather than indexed or deleted, per the store's
// "filename byte-count must equal on-disk size" invariant.
func (s *Store) Index() error {
	s.present = make(map[string]struct{})

	level1, err := os.ReadDir(s.fileRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fsopsWrap("readdir", s.fileRoot(), err)
	}

	for _, d1 := range level1 {
		if !d1.IsDir() {
			continue
		}
		dir1 := filepath.Join(s.fileRoot(), d1.Name())
		level2, err := os.ReadDir(dir1)
		if err != nil {
			continue
		}
		for _, d2 := range level2 {
			if !d2.IsDir() {
				continue
			}
			dir2 := filepath.Join(dir1, d2.Name())
			blobs, err := os.ReadDir(dir2)
			if err != nil {
				continue
			}
			for _, b := range blobs {
				if b.IsDir() {
					continue
				}
				info, err := b.Info()
				if err != nil {
					continue
				}
				declared, ok := parseBlobByteCount(b.Name())
				if !ok {
					s.Logger.Warn("store: ignoring malformed blob name", "path", filepath.Join(dir2, b.Name()))
					continue
				}
				if uint64(info.Size()) != declared {
					s.Logger.Warn("store: ignoring blob with size mismatch", "path", filepath.Join(dir2, b.Name()), "declared", declared, "actual", info.Size())
					continue
				}
				rel := blobDir + "/" + d1.Name() + "/" + d2.Name() + "/" + b.Name()
				s.present[rel] = struct{}{}
			}
		}
	}
	return nil
}

// BackupFile content-addresses a single scanned file and copies it into
// the store if its blob is not already present. f.Hash is set in place;
// f's byte count, times and attribute mask stay as the scan recorded them
// and are not re-read from the file. Per-file copy failures are returned
// to the caller to apply abort-or-continue policy; they are never silently
// swallowed here.
func (s *Store) BackupFile(ctx context.Context, dataRoot string, f *snapshot.File, folderPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	abs := fsops.Join(dataRoot, folderPath+f.Name)
	hash, err := fsops.HashFile(abs)
	if err != nil {
		return err
	}
	f.Hash = hash

	rel := filepath.FromSlash(BlobRelPath(f.Hash, f.ByteCount))
	if _, ok := s.present[toSlash(rel)]; ok {
		return nil
	}

	dst := filepath.Join(s.Root, rel)
	if err := fsops.MkdirRecursive(filepath.Dir(dst)); err != nil {
		return err
	}
	if err := fsops.Copy(abs, dst); err != nil {
		return err
	}

	s.present[toSlash(rel)] = struct{}{}
	return nil
}

// Backup backs up every file of a freshly scanned snapshot, consulting the
// previous snapshot of the same archive (prev may be nil) to adopt the
// fast-path hash for files whose (path, byte_count, modification_time)
// are unchanged. onFileError, if non-nil, is invoked for each per-file
// failure; returning a non-nil error aborts the whole backup (the
// --abort policy), while returning nil skips the file and continues.
func (s *Store) Backup(ctx context.Context, dataRoot string, data *snapshot.Snapshot, prev *snapshot.Snapshot, onFileError func(path string, err error) error) error {
	for i := range data.Files {
		f := &data.Files[i]
		folderPath := data.Folders[f.FolderIndex].Path

		if prev != nil {
			if prevFile, ok := prev.FileByPath(folderPath, f.Name); ok && prevFile.SameContentIdentity(*f) {
				f.Hash = prevFile.Hash
				continue
			}
		}

		if err := s.BackupFile(ctx, dataRoot, f, folderPath); err != nil {
			if onFileError == nil {
				return err
			}
			if cbErr := onFileError(folderPath+f.Name, err); cbErr != nil {
				return cbErr
			}
		}
	}
	return nil
}

func toSlash(p string) string { return filepath.ToSlash(p) }

func fsopsWrap(op, path string, err error) error {
	return &fsops.Error{Op: op, Path: path, Err: err}
}
