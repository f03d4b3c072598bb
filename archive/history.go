// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/dbsbackup/dbs/dbserr"
	"github.com/dbsbackup/dbs/fsops"
)

// History is the in-memory index of every archive in a repository,
// rebuilt on each invocation by Scan.
type History struct {
	RepoRoot string

	archives map[string]*Archive
}

// NewHistory returns a History handle for a repository root.
func NewHistory(repoRoot string) *History {
	return &History{RepoRoot: repoRoot, archives: make(map[string]*Archive)}
}

func (h *History) root() string {
	return filepath.Join(h.RepoRoot, "SNAPSHOT")
}

// EnsureForBackup creates SNAPSHOT/ and SNAPSHOT/<archiveName>/.
func (h *History) EnsureForBackup(archiveName string) error {
	if err := fsops.MkdirRecursive(h.root()); err != nil {
		return err
	}
	a := New(h.RepoRoot, archiveName)
	if err := a.EnsureForBackup(); err != nil {
		return err
	}
	if err := a.Scan(); err != nil {
		return err
	}
	h.archives[archiveName] = a
	return nil
}

// RequireExists returns a PolicyError if SNAPSHOT/ is absent, the
// invariant for read-only commands.
func (h *History) RequireExists() error {
	if _, err := os.Stat(h.root()); err != nil {
		if os.IsNotExist(err) {
			return dbserr.NewPolicyError("history", "repository has no SNAPSHOT/ history", err)
		}
		return err
	}
	return nil
}

// Scan enumerates the subfolders of SNAPSHOT/, building one Archive per
// subfolder and scanning each for its snapshot names.
func (h *History) Scan() error {
	entries, err := os.ReadDir(h.root())
	if err != nil {
		if os.IsNotExist(err) {
			h.archives = make(map[string]*Archive)
			return nil
		}
		return err
	}

	archives := make(map[string]*Archive, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		a := New(h.RepoRoot, e.Name())
		if err := a.Scan(); err != nil {
			return err
		}
		archives[e.Name()] = a
	}
	h.archives = archives
	return nil
}

// Archive returns the named archive, if History has scanned it.
func (h *History) Archive(name string) (*Archive, bool) {
	a, ok := h.archives[name]
	return a, ok
}

// EnsureArchive returns the named archive, creating its folder (and
// adding it to the index) if it is not already present. Used by backup,
// which may target a brand-new archive name.
func (h *History) EnsureArchive(name string) (*Archive, error) {
	if a, ok := h.archives[name]; ok {
		return a, nil
	}
	a := New(h.RepoRoot, name)
	if err := a.EnsureForBackup(); err != nil {
		return nil, err
	}
	if err := a.Scan(); err != nil {
		return nil, err
	}
	h.archives[name] = a
	return a, nil
}

// ArchiveNames returns every known archive name, sorted for determinism
// (the spec does not mandate an order for History beyond "enumerates
// subfolders"; sorting makes find/list output reproducible).
func (h *History) ArchiveNames() []string {
	names := make([]string, 0, len(h.archives))
	for name := range h.archives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
