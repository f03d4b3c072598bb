// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"path/filepath"

	"github.com/dbsbackup/dbs/fsops"
	"github.com/dbsbackup/dbs/pathfilter"
)

// ScanConfig threads the filter configuration through a scan, replacing the
// process-wide option variables of the reference tool with an explicit
// value the caller constructs once per invocation.
type ScanConfig struct {
	DataFolderPath      string
	FolderFilters       []pathfilter.Filter
	FileFilters         []pathfilter.Filter
	SelectedFileFilters []string

	// OnFileError is carried in the configuration but Scan does not call
	// it. Scan does no hashing; an entry that cannot be stat'ed is skipped
	// by fsops.WalkShallow, and a directory that cannot be read aborts the
	// scan with that error.
	OnFileError func(path string, err error) error
}

// Scan walks the data folder and builds a new Snapshot, applying the three
// filter lists as it goes. File hashing is deferred to the store package;
// the snapshot built here carries zero File.Hash values to be filled in by
// a subsequent backup pass (see store.Store.Backup).
func Scan(ctx context.Context, cfg ScanConfig) (*Snapshot, error) {
	s := &Snapshot{
		Version:             CurrentVersion,
		DataFolderPath:      cfg.DataFolderPath,
		FolderFilters:       cfg.FolderFilters,
		FileFilters:         cfg.FileFilters,
		SelectedFileFilters: cfg.SelectedFileFilters,
	}

	root := Folder{ParentIndex: NoParent, Name: "", Path: ""}
	s.Folders = append(s.Folders, root)

	if err := scanFolder(ctx, cfg, s, 0, cfg.DataFolderPath); err != nil {
		return nil, err
	}

	s.BuildIndex()
	return s, nil
}

// scanFolder emits File records for folderIndex's children, then recurses
// into subdirectories that pass the folder filter, in filesystem
// enumeration order. This realises the spec's "files first, then
// subfolders" pre-order.
func scanFolder(ctx context.Context, cfg ScanConfig, s *Snapshot, folderIndex int, absPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := fsops.WalkShallow(absPath)
	if err != nil {
		return err
	}

	folderPath := s.Folders[folderIndex].Path
	candidate := "/" + folderPath

	for _, e := range entries {
		if !e.IsFile {
			continue
		}
		name := pathfilter.ToLogicalPath(e.Name)
		if !pathfilter.InScope(candidate, name, cfg.FolderFilters, cfg.FileFilters, toFilterList(cfg.SelectedFileFilters)) {
			continue
		}

		s.Files = append(s.Files, File{
			FolderIndex:   folderIndex,
			Name:          e.Name,
			ByteCount:     uint64(e.Size),
			AccessTime:    e.AccessTime,
			ModTime:       e.ModTime,
			AttributeMask: e.Attributes,
		})
	}

	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		childCandidate := candidate + pathfilter.ToLogicalPath(e.Name) + "/"
		if !pathfilter.FolderIncluded(childCandidate, cfg.FolderFilters) {
			continue
		}

		childPath := folderPath + e.Name + "/"
		s.Folders = append(s.Folders, Folder{
			ParentIndex:   folderIndex,
			Name:          e.Name,
			Path:          childPath,
			AccessTime:    e.AccessTime,
			ModTime:       e.ModTime,
			AttributeMask: e.Attributes,
		})
		childIndex := len(s.Folders) - 1

		if err := scanFolder(ctx, cfg, s, childIndex, filepath.Join(absPath, e.Name)); err != nil {
			return err
		}
	}

	return nil
}

// toFilterList wraps bare selected-file patterns (which carry no
// inclusive/exclusive polarity) as Filters for pathfilter.FileSelected,
// which only ever tests for a match and ignores Inclusive.
func toFilterList(patterns []string) []pathfilter.Filter {
	if len(patterns) == 0 {
		return nil
	}
	filters := make([]pathfilter.Filter, len(patterns))
	for i, p := range patterns {
		filters[i] = pathfilter.Filter{Pattern: p}
	}
	return filters
}
