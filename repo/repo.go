// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package repo composes History and Store into the repository's six
// top-level operations (backup, check, compare, restore, find, list),
// resolving an Archive and Snapshot from caller options before invoking
// the appropriate store method.
package repo

import (
	"context"
	"log/slog"
	"time"

	"github.com/dbsbackup/dbs/archive"
	"github.com/dbsbackup/dbs/pathfilter"
	"github.com/dbsbackup/dbs/snapshot"
	"github.com/dbsbackup/dbs/store"
)

// Repository is the root handle for one on-disk repository.
type Repository struct {
	Root string

	Logger       *slog.Logger
	AbortOnError bool

	History *archive.History
	Store   *store.Store
}

// Option configures a Repository returned by Open.
type Option func(*Repository)

// WithAbortOnError sets the continue-on-error policy: when true, any
// per-file hash/copy/restore failure aborts the whole operation instead
// of being logged and skipped.
func WithAbortOnError(abort bool) Option {
	return func(r *Repository) { r.AbortOnError = abort }
}

// WithLogger overrides the default slog.Logger used for per-file
// warnings and ignored-blob notices.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) { r.Logger = logger }
}

// Open returns a Repository rooted at root. It does not touch the
// filesystem; call a specific operation (Backup, Check, ...) to do so.
func Open(root string, opts ...Option) *Repository {
	r := &Repository{
		Root:    root,
		Logger:  slog.Default(),
		History: archive.NewHistory(root),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Store = store.New(root)
	r.Store.Logger = r.Logger
	return r
}

// fileErrorPolicy returns the per-file error handler threaded into
// store.Backup/store.Restore: it always logs, and additionally aborts
// (returns the error back up) when AbortOnError is set.
func (r *Repository) fileErrorPolicy() func(path string, err error) error {
	return func(path string, err error) error {
		r.Logger.Warn("dbs: per-file operation failed", "path", path, "error", err)
		if r.AbortOnError {
			return err
		}
		return nil
	}
}

// FilterOptions is the filter configuration shared by Backup and any
// future scan-driven operation.
type FilterOptions struct {
	FolderFilters       []pathfilter.Filter
	FileFilters         []pathfilter.Filter
	SelectedFileFilters []string
}

// BackupOptions configures Backup.
type BackupOptions struct {
	DataFolderPath string
	ArchiveName    string
	FilterOptions
}

// Backup scans DataFolderPath, consults the target archive's previous
// snapshot for the fast path, content-addresses changed files into the
// store, and appends the resulting snapshot to the archive. It returns
// the new snapshot's name.
func (r *Repository) Backup(ctx context.Context, opts BackupOptions) (string, error) {
	archiveName := opts.ArchiveName
	if archiveName == "" {
		archiveName = archive.DefaultArchiveName
	}

	if err := r.Store.EnsureForBackup(); err != nil {
		return "", err
	}
	if err := r.Store.Index(); err != nil {
		return "", err
	}
	if err := r.History.EnsureForBackup(archiveName); err != nil {
		return "", err
	}

	a, err := r.History.EnsureArchive(archiveName)
	if err != nil {
		return "", err
	}

	var prev *snapshot.Snapshot
	if lastName, err := a.LastSnapshotName(); err == nil {
		prev, err = a.LoadSnapshot(lastName)
		if err != nil {
			return "", err
		}
	}

	snap, err := snapshot.Scan(ctx, snapshot.ScanConfig{
		DataFolderPath:      opts.DataFolderPath,
		FolderFilters:       opts.FolderFilters,
		FileFilters:         opts.FileFilters,
		SelectedFileFilters: opts.SelectedFileFilters,
	})
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	snap.Time = now

	if err := r.Store.Backup(ctx, opts.DataFolderPath, snap, prev, r.fileErrorPolicy()); err != nil {
		return "", err
	}

	return a.AppendSnapshot(snap, now)
}

// resolveSnapshot loads the requested (or latest) snapshot of the named
// archive, requiring that both the history and the target archive exist.
func (r *Repository) resolveSnapshot(archiveName, snapshotName string) (*snapshot.Snapshot, error) {
	if archiveName == "" {
		archiveName = archive.DefaultArchiveName
	}
	if err := r.History.RequireExists(); err != nil {
		return nil, err
	}
	if err := r.History.Scan(); err != nil {
		return nil, err
	}
	if err := r.Store.RequireExists(); err != nil {
		return nil, err
	}

	a, ok := r.History.Archive(archiveName)
	if !ok {
		a = archive.New(r.Root, archiveName)
		if err := a.RequireExists(); err != nil {
			return nil, err
		}
		if err := a.Scan(); err != nil {
			return nil, err
		}
	}

	name, err := a.SnapshotName(snapshotName)
	if err != nil {
		return nil, err
	}
	return a.LoadSnapshot(name)
}

// Check verifies a snapshot's blobs exist in the store and have the
// recorded size.
func (r *Repository) Check(ctx context.Context, archiveName, snapshotName string) (*store.CheckReport, error) {
	snap, err := r.resolveSnapshot(archiveName, snapshotName)
	if err != nil {
		return nil, err
	}
	return r.Store.Check(snap)
}

// liveScanConfig builds the ScanConfig for a live re-scan of dataFolderPath
// that is comparable to an already-resolved archived snapshot: it reuses
// that snapshot's own folder/file/selected-file filters, so a live file or
// folder that was out of scope at backup time (and so was never archived)
// is never reported as missing-from-archive by Compare, nor deleted by
// Restore's prune step.
func liveScanConfig(dataFolderPath string, snap *snapshot.Snapshot) snapshot.ScanConfig {
	return snapshot.ScanConfig{
		DataFolderPath:      dataFolderPath,
		FolderFilters:       snap.FolderFilters,
		FileFilters:         snap.FileFilters,
		SelectedFileFilters: snap.SelectedFileFilters,
	}
}

// Compare builds a read-only diff between an archived snapshot and a
// live scan of the data folder.
func (r *Repository) Compare(ctx context.Context, dataFolderPath, archiveName, snapshotName string) (*store.CompareReport, error) {
	snap, err := r.resolveSnapshot(archiveName, snapshotName)
	if err != nil {
		return nil, err
	}
	live, err := snapshot.Scan(ctx, liveScanConfig(dataFolderPath, snap))
	if err != nil {
		return nil, err
	}
	return store.Compare(snap, live), nil
}

// Restore writes an archived snapshot's files into the data folder and
// prunes extraneous files/folders accumulated since that snapshot.
func (r *Repository) Restore(ctx context.Context, dataFolderPath, archiveName, snapshotName string) error {
	snap, err := r.resolveSnapshot(archiveName, snapshotName)
	if err != nil {
		return err
	}
	live, err := snapshot.Scan(ctx, liveScanConfig(dataFolderPath, snap))
	if err != nil {
		return err
	}
	return r.Store.Restore(ctx, dataFolderPath, snap, live, r.fileErrorPolicy())
}
