// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"os"

	"github.com/dbsbackup/dbs/fsops"
	"github.com/dbsbackup/dbs/snapshot"
)

// CompareReport is a read-only diff between an archived snapshot and a
// live scan of the data folder. Nothing in the data folder or repository
// is mutated while building it.
type CompareReport struct {
	// MissingDataFiles are archived but absent from the data folder.
	MissingDataFiles []string
	// MissingDataFolders are archived but absent from the data folder.
	MissingDataFolders []string
	// ChangedFiles are present in both but differ in byte_count or
	// modification_time.
	ChangedFiles []string
	// MissingArchiveFiles exist on disk but are not recorded in the archive.
	MissingArchiveFiles []string
	// MissingArchiveFolders exist on disk but are not recorded in the archive.
	MissingArchiveFolders []string
}

// IsEmpty reports whether the compare found no differences at all.
func (r *CompareReport) IsEmpty() bool {
	return len(r.MissingDataFiles) == 0 && len(r.MissingDataFolders) == 0 &&
		len(r.ChangedFiles) == 0 && len(r.MissingArchiveFiles) == 0 &&
		len(r.MissingArchiveFolders) == 0
}

// Compare builds a CompareReport between an archived snapshot and a live
// scan of the current data folder.
func Compare(archiveSnap, liveSnap *snapshot.Snapshot) *CompareReport {
	report := &CompareReport{}

	for _, af := range archiveSnap.Files {
		folderPath := archiveSnap.Folders[af.FolderIndex].Path
		path := folderPath + af.Name
		lf, ok := liveSnap.FileByPath(folderPath, af.Name)
		if !ok {
			report.MissingDataFiles = append(report.MissingDataFiles, path)
			continue
		}
		if !af.SameContentIdentity(lf) {
			report.ChangedFiles = append(report.ChangedFiles, path)
		}
	}

	for _, af := range archiveSnap.Folders {
		if af.Path == "" {
			continue
		}
		if _, ok := liveSnap.FolderByPath(af.Path); !ok {
			report.MissingDataFolders = append(report.MissingDataFolders, af.Path)
		}
	}

	for _, lf := range liveSnap.Files {
		folderPath := liveSnap.Folders[lf.FolderIndex].Path
		if _, ok := archiveSnap.FileByPath(folderPath, lf.Name); !ok {
			report.MissingArchiveFiles = append(report.MissingArchiveFiles, folderPath+lf.Name)
		}
	}

	for _, lf := range liveSnap.Folders {
		if lf.Path == "" {
			continue
		}
		if _, ok := archiveSnap.FolderByPath(lf.Path); !ok {
			report.MissingArchiveFolders = append(report.MissingArchiveFolders, lf.Path)
		}
	}

	return report
}

// CheckReport lists integrity problems found while verifying a snapshot's
// blobs against the store.
type CheckReport struct {
	MissingBlobFiles []string // archived path whose blob does not exist in the store
	SizeMismatch     []string // archived path whose blob's on-disk size disagrees with byte_count
}

// IsEmpty reports whether Check found no problems.
func (r *CheckReport) IsEmpty() bool {
	return len(r.MissingBlobFiles) == 0 && len(r.SizeMismatch) == 0
}

// Check verifies, for each file in snap, that its blob exists in the store
// and that its on-disk size equals the recorded byte_count. This is the
// spec's recommended implementation of the reserved --check operation
// (the reference tool declares but never implements it).
func (s *Store) Check(snap *snapshot.Snapshot) (*CheckReport, error) {
	report := &CheckReport{}

	for _, f := range snap.Files {
		folderPath := snap.Folders[f.FolderIndex].Path
		path := folderPath + f.Name

		blobPath := fsops.Join(s.Root, BlobRelPath(f.Hash, f.ByteCount))
		info, err := os.Stat(blobPath)
		if err != nil {
			if os.IsNotExist(err) {
				report.MissingBlobFiles = append(report.MissingBlobFiles, path)
				continue
			}
			return nil, err
		}
		if uint64(info.Size()) != f.ByteCount {
			report.SizeMismatch = append(report.SizeMismatch, path)
		}
	}

	return report, nil
}
