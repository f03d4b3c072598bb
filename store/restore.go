// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dbsbackup/dbs/fsops"
	"github.com/dbsbackup/dbs/snapshot"
)

// Restore writes archiveSnap's files and folders into dataRoot. liveSnap,
// the current scan of dataRoot (nil if the folder is empty/new), is
// consulted for the fast path (a file already matching by byte_count and
// modification_time is left untouched) and to prune files and folders
// that exist on disk but are absent from archiveSnap. Deletion happens
// files-first, then folders, and only removes a folder if it is now
// empty, per the restore semantics in the store design.
func (s *Store) Restore(ctx context.Context, dataRoot string, archiveSnap *snapshot.Snapshot, liveSnap *snapshot.Snapshot, onFileError func(path string, err error) error) error {
	if err := fsops.MkdirRecursive(dataRoot); err != nil {
		return err
	}

	for _, folder := range archiveSnap.Folders {
		if folder.Path == "" {
			continue
		}
		if err := fsops.MkdirRecursive(fsops.Join(dataRoot, folder.Path)); err != nil {
			return err
		}
	}

	for i := range archiveSnap.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := archiveSnap.Files[i]
		folderPath := archiveSnap.Folders[f.FolderIndex].Path

		if liveSnap != nil {
			if liveFile, ok := liveSnap.FileByPath(folderPath, f.Name); ok && liveFile.SameContentIdentity(f) {
				continue
			}
		}

		if err := s.restoreFile(folderPath, f, dataRoot); err != nil {
			if onFileError == nil {
				return err
			}
			if cbErr := onFileError(folderPath+f.Name, err); cbErr != nil {
				return cbErr
			}
		}
	}

	if liveSnap != nil {
		if err := s.prune(dataRoot, archiveSnap, liveSnap); err != nil {
			return err
		}
	}

	return nil
}

// restoreFile copies one archived file's blob to its data-folder path and
// restores its recorded attributes and times. The copy lands in a sibling
// temp file (suffixed with a fresh UUID) and is renamed into place only
// once fully written and stamped, so a crash mid-copy leaves either the
// old file or the new one, never a partial write at the live path. On a
// Windows-class OS the read-only bit must be cleared on the live path
// before the rename can replace it; ClearWriteProtection/SetAttributes
// implement that per platform.
func (s *Store) restoreFile(folderPath string, f snapshot.File, dataRoot string) error {
	abs := fsops.Join(dataRoot, folderPath+f.Name)
	blobPath := filepath.Join(s.Root, filepath.FromSlash(BlobRelPath(f.Hash, f.ByteCount)))
	tmp := abs + ".dbs-tmp-" + uuid.New().String()

	if err := fsops.Copy(blobPath, tmp); err != nil {
		_ = fsops.RemoveFile(tmp)
		return err
	}
	if err := fsops.SetTimes(tmp, f.AccessTime, f.ModTime); err != nil {
		_ = fsops.RemoveFile(tmp)
		return err
	}
	if err := fsops.SetAttributes(tmp, f.AttributeMask); err != nil {
		_ = fsops.RemoveFile(tmp)
		return err
	}
	if err := fsops.ClearWriteProtection(abs); err != nil {
		_ = fsops.RemoveFile(tmp)
		return err
	}
	if err := fsops.Rename(tmp, abs); err != nil {
		_ = fsops.RemoveFile(tmp)
		return err
	}
	return nil
}

// prune removes live files and (now-empty) live folders whose paths are
// absent from archiveSnap, files before folders.
func (s *Store) prune(dataRoot string, archiveSnap, liveSnap *snapshot.Snapshot) error {
	for _, lf := range liveSnap.Files {
		folderPath := liveSnap.Folders[lf.FolderIndex].Path
		if _, ok := archiveSnap.FileByPath(folderPath, lf.Name); ok {
			continue
		}
		abs := fsops.Join(dataRoot, folderPath+lf.Name)
		if err := fsops.RemoveFile(abs); err != nil {
			return err
		}
	}

	// Folders are stored parent-before-child; remove deepest-first so a
	// child is gone before its parent's emptiness is tested.
	for i := len(liveSnap.Folders) - 1; i >= 0; i-- {
		folder := liveSnap.Folders[i]
		if folder.Path == "" {
			continue
		}
		if _, ok := archiveSnap.FolderByPath(folder.Path); ok {
			continue
		}
		abs := fsops.Join(dataRoot, folder.Path)
		// Rmdir only succeeds when empty; a non-empty directory (it still
		// holds a kept descendant) is left in place rather than treated as
		// an error.
		_ = fsops.Rmdir(abs)
	}

	return nil
}
