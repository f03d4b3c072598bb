// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package snapshot implements the in-memory folder/file tree that
// represents one scan of a data folder, plus its binary (de)serialisation
// via the stream package.
package snapshot

import (
	"time"

	"github.com/dbsbackup/dbs/pathfilter"
)

// NoParent is the in-memory ParentIndex of the root folder. The wire
// format's 0xFFFFFFFF sentinel (noParentWire) is only ever materialised at
// the serialisation boundary.
const NoParent = -1

const noParentWire uint32 = 0xFFFFFFFF

// Folder is one directory record. SuperFolderIndex (see serialisation) is
// represented here as ParentIndex, -1 for the root.
type Folder struct {
	ParentIndex   int
	Name          string
	AccessTime    time.Time
	ModTime       time.Time
	AttributeMask uint32

	// Path is reconstructed on load/scan as parent.Path + Name + "/" (root
	// is the empty string). It is never serialised directly.
	Path string
}

// File is one regular-file record.
type File struct {
	FolderIndex   int
	Name          string
	Hash          [32]byte
	ByteCount     uint64
	AccessTime    time.Time
	ModTime       time.Time
	AttributeMask uint32
}

// RelPath returns the file's path relative to the data folder root, using
// the folder's reconstructed Path.
func (f File) RelPath(folders []Folder) string {
	return folders[f.FolderIndex].Path + f.Name
}

// SameContentIdentity reports whether two file records refer to the same
// logical file for fast-path skip purposes: same byte count and
// modification time. Modification times are compared at the 100-ns tick
// resolution the snapshot format stores, so a record loaded from disk
// matches a fresh scan of the same file. The caller is responsible for
// matching on path first.
func (f File) SameContentIdentity(other File) bool {
	return f.ByteCount == other.ByteCount && timeToTicks(f.ModTime) == timeToTicks(other.ModTime)
}

// Snapshot is an immutable record of one scan of a data folder.
type Snapshot struct {
	Version              uint32
	Time                 time.Time
	DataFolderPath       string
	FolderFilters        []pathfilter.Filter
	FileFilters          []pathfilter.Filter
	SelectedFileFilters  []string
	Folders              []Folder
	Files                []File

	folderByPath map[string]int
	fileByName   []map[string]int // parallel to Folders: folder index -> (name -> file index)
}

// CurrentVersion is the version tag written into new snapshots.
const CurrentVersion uint32 = 1

// BuildIndex (re)computes the folder_by_path and per-folder file_by_name
// lookup maps described in the snapshot model. Scan and Deserialize both
// call this before returning.
func (s *Snapshot) BuildIndex() {
	s.folderByPath = make(map[string]int, len(s.Folders))
	for i, f := range s.Folders {
		s.folderByPath[f.Path] = i
	}

	s.fileByName = make([]map[string]int, len(s.Folders))
	for i := range s.Folders {
		s.fileByName[i] = make(map[string]int)
	}
	for i, f := range s.Files {
		s.fileByName[f.FolderIndex][f.Name] = i
	}
}

// FolderByPath looks up a folder by its reconstructed path (trailing "/",
// root is "").
func (s *Snapshot) FolderByPath(path string) (Folder, bool) {
	idx, ok := s.folderByPath[path]
	if !ok {
		return Folder{}, false
	}
	return s.Folders[idx], true
}

// FileByPath looks up a file by folder path + name.
func (s *Snapshot) FileByPath(folderPath, name string) (File, bool) {
	folderIdx, ok := s.folderByPath[folderPath]
	if !ok {
		return File{}, false
	}
	fileIdx, ok := s.fileByName[folderIdx][name]
	if !ok {
		return File{}, false
	}
	return s.Files[fileIdx], true
}

// FindFile is a fast-path lookup used by backup/restore: it reports the
// previous snapshot's record for the same relative path, if any.
func (s *Snapshot) FindFile(folderPath, name string) (File, bool) {
	return s.FileByPath(folderPath, name)
}
