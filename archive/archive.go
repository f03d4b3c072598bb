// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dbsbackup/dbs/dbserr"
	"github.com/dbsbackup/dbs/fsops"
	"github.com/dbsbackup/dbs/snapshot"
)

// Archive is a named, totally-ordered list of immutable snapshots under
// SNAPSHOT/<name>/ in a repository.
type Archive struct {
	RepoRoot string
	Name     string

	names []string // ascending (== chronological) snapshot names
}

// New returns an Archive handle; call EnsureForBackup or RequireExists,
// then Scan, before using SnapshotNames/LastSnapshotName/SnapshotName.
func New(repoRoot, name string) *Archive {
	return &Archive{RepoRoot: repoRoot, Name: name}
}

func (a *Archive) dir() string {
	return filepath.Join(a.RepoRoot, "SNAPSHOT", a.Name)
}

// validateName rejects archive names that are not a single path segment,
// since an archive name becomes a SNAPSHOT/<name>/ directory component
// directly; a caller-supplied name containing a separator or "." /
// ".." would either escape SNAPSHOT/ or collide with it.
func validateName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return dbserr.NewUsageError(kind + " name \"" + name + "\" must be a single non-empty path segment")
	}
	return nil
}

// EnsureForBackup creates SNAPSHOT/<name>/ if it does not already exist.
func (a *Archive) EnsureForBackup() error {
	if err := validateName("archive", a.Name); err != nil {
		return err
	}
	return fsops.MkdirRecursive(a.dir())
}

// RequireExists returns a PolicyError if the archive folder is absent.
func (a *Archive) RequireExists() error {
	if _, err := os.Stat(a.dir()); err != nil {
		if os.IsNotExist(err) {
			return dbserr.NewPolicyError("archive", "archive \""+a.Name+"\" does not exist", err)
		}
		return err
	}
	return nil
}

// Scan populates SnapshotNames by listing *.dbs entries in the archive
// folder, stripping the extension, and sorting ascending.
func (a *Archive) Scan() error {
	entries, err := os.ReadDir(a.dir())
	if err != nil {
		if os.IsNotExist(err) {
			a.names = nil
			return nil
		}
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := stripSnapshotExt(e.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	a.names = names
	return nil
}

// SnapshotNames returns the archive's snapshot names in ascending
// (chronological) order.
func (a *Archive) SnapshotNames() []string {
	return a.names
}

// LastSnapshotName returns the most recent snapshot name, or a
// PolicyError if the archive has none.
func (a *Archive) LastSnapshotName() (string, error) {
	if len(a.names) == 0 {
		return "", dbserr.NewPolicyError("archive", "archive \""+a.Name+"\" has no snapshots", nil)
	}
	return a.names[len(a.names)-1], nil
}

// SnapshotName resolves a requested snapshot name: the exact name if
// requested is non-empty and present, the last snapshot if requested is
// empty, or a PolicyError if the requested name is not present.
func (a *Archive) SnapshotName(requested string) (string, error) {
	if requested == "" {
		return a.LastSnapshotName()
	}
	if err := validateName("snapshot", requested); err != nil {
		return "", err
	}
	for _, n := range a.names {
		if n == requested {
			return n, nil
		}
	}
	return "", dbserr.NewPolicyError("archive", "snapshot \""+requested+"\" not found in archive \""+a.Name+"\"", nil)
}

// LoadSnapshot reads and decodes the named snapshot file.
func (a *Archive) LoadSnapshot(name string) (*snapshot.Snapshot, error) {
	data, err := fsops.ReadAll(filepath.Join(a.dir(), snapshotFileName(name)))
	if err != nil {
		return nil, err
	}
	return snapshot.Deserialize(data)
}

// AppendSnapshot serialises snap and writes it as a new, immutable
// snapshot file named from at (typically time.Now()), returning the
// snapshot name used. The name is appended to the in-memory ordered list.
func (a *Archive) AppendSnapshot(snap *snapshot.Snapshot, at time.Time) (string, error) {
	name := FormatSnapshotName(at)
	if err := fsops.WriteAll(filepath.Join(a.dir(), snapshotFileName(name)), snap.Serialize()); err != nil {
		return "", err
	}
	a.names = append(a.names, name)
	return name, nil
}
