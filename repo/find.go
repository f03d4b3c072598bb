// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"github.com/dbsbackup/dbs/archive"
	"github.com/dbsbackup/dbs/pathfilter"
)

// ArchiveSnapshots names one archive and the snapshot names within it
// that matched a glob.
type ArchiveSnapshots struct {
	Archive   string
	Snapshots []string
}

// List enumerates archives and snapshots matching the given glob
// patterns (an empty pattern matches everything). This is the metadata
// enumeration behind the --list CLI surface.
func (r *Repository) List(archiveGlob, snapshotGlob string) ([]ArchiveSnapshots, error) {
	if err := r.History.RequireExists(); err != nil {
		return nil, err
	}
	if err := r.History.Scan(); err != nil {
		return nil, err
	}
	if err := r.Store.RequireExists(); err != nil {
		return nil, err
	}

	if archiveGlob == "" {
		archiveGlob = "*"
	}
	if snapshotGlob == "" {
		snapshotGlob = "*"
	}

	var out []ArchiveSnapshots
	for _, name := range r.History.ArchiveNames() {
		if !pathfilter.Match(name, archiveGlob) {
			continue
		}
		a, _ := r.History.Archive(name)
		var matched []string
		for _, snapName := range a.SnapshotNames() {
			if pathfilter.Match(snapName, snapshotGlob) {
				matched = append(matched, snapName)
			}
		}
		out = append(out, ArchiveSnapshots{Archive: name, Snapshots: matched})
	}
	return out, nil
}

// FindResult is one archive/snapshot pair with the file paths inside it
// that matched the path glob.
type FindResult struct {
	Archive  string
	Snapshot string
	Paths    []string
}

// Find searches every snapshot whose archive and name match the given
// globs for file paths matching pathGlob, the behavior behind the --find
// CLI surface.
func (r *Repository) Find(archiveGlob, snapshotGlob, pathGlob string) ([]FindResult, error) {
	matches, err := r.List(archiveGlob, snapshotGlob)
	if err != nil {
		return nil, err
	}
	if pathGlob == "" {
		pathGlob = "*"
	}

	var results []FindResult
	for _, m := range matches {
		a := archive.New(r.Root, m.Archive)
		for _, snapName := range m.Snapshots {
			snap, err := a.LoadSnapshot(snapName)
			if err != nil {
				return nil, err
			}
			var paths []string
			for _, f := range snap.Files {
				path := snap.Folders[f.FolderIndex].Path + f.Name
				if pathfilter.Match(path, pathGlob) {
					paths = append(paths, path)
				}
			}
			if len(paths) > 0 {
				results = append(results, FindResult{Archive: m.Archive, Snapshot: snapName, Paths: paths})
			}
		}
	}
	return results, nil
}
