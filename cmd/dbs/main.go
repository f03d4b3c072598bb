// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command dbs is a thin front end over the repo package: argument
// parsing, option names, and user-facing messages only. The core
// subject — repository layout, snapshot format, scanning/filtering,
// content-addressed store, archive/history indexing — lives in the
// repo/archive/store/snapshot/pathfilter/fsops/stream packages.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dbsbackup/dbs/pathfilter"
	"github.com/dbsbackup/dbs/repo"
)

type stringListFlag []string

func (s *stringListFlag) String() string { return fmt.Sprintf("%v", []string(*s)) }
func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var (
		abort   bool
		verbose bool

		exclude  stringListFlag
		include  stringListFlag
		ignore   stringListFlag
		keep     stringListFlag
		selectF  stringListFlag
	)

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.BoolVar(&abort, "abort", false, "abort on the first per-file error instead of skipping it")
	fs.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	fs.Var(&exclude, "exclude", "exclude a folder (glob, repeatable)")
	fs.Var(&include, "include", "include a folder (glob, repeatable)")
	fs.Var(&ignore, "ignore", "ignore a file (glob, repeatable)")
	fs.Var(&keep, "keep", "keep a file (glob, repeatable)")
	fs.Var(&selectF, "select", "select a file for this operation only (glob, repeatable)")
	archiveName := fs.String("archive", "", "archive name (default DEFAULT)")
	snapshotName := fs.String("snapshot", "", "snapshot name (default: latest)")
	archiveGlob := fs.String("archive-glob", "*", "archive name glob (find/list)")
	snapshotGlob := fs.String("snapshot-glob", "*", "snapshot name glob (find/list)")
	pathGlob := fs.String("path-glob", "*", "file path glob (find)")

	cmd := os.Args[1]
	if err := fs.Parse(os.Args[2:]); err != nil {
		fatal(err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	args := fs.Args()
	ctx := context.Background()

	switch cmd {
	case "backup":
		requireArgs(args, 2, "backup DATA_FOLDER/ REPOSITORY_FOLDER/")
		r := repo.Open(args[1], repo.WithAbortOnError(abort), repo.WithLogger(logger))
		name, err := r.Backup(ctx, repo.BackupOptions{
			DataFolderPath: args[0],
			ArchiveName:    orDefault(*archiveName),
			FilterOptions:  buildFilters(exclude, include, ignore, keep, selectF),
		})
		if err != nil {
			fatal(err)
		}
		fmt.Println(name)

	case "check":
		requireArgs(args, 1, "check REPOSITORY_FOLDER/")
		r := repo.Open(args[0], repo.WithAbortOnError(abort), repo.WithLogger(logger))
		report, err := r.Check(ctx, *archiveName, *snapshotName)
		if err != nil {
			fatal(err)
		}
		printCheck(report)

	case "compare":
		requireArgs(args, 2, "compare DATA_FOLDER/ REPOSITORY_FOLDER/")
		r := repo.Open(args[1], repo.WithAbortOnError(abort), repo.WithLogger(logger))
		report, err := r.Compare(ctx, args[0], *archiveName, *snapshotName)
		if err != nil {
			fatal(err)
		}
		printCompare(report)

	case "restore":
		requireArgs(args, 2, "restore DATA_FOLDER/ REPOSITORY_FOLDER/")
		r := repo.Open(args[1], repo.WithAbortOnError(abort), repo.WithLogger(logger))
		if err := r.Restore(ctx, args[0], *archiveName, *snapshotName); err != nil {
			fatal(err)
		}

	case "find":
		requireArgs(args, 1, "find REPOSITORY_FOLDER/")
		r := repo.Open(args[0], repo.WithLogger(logger))
		results, err := r.Find(*archiveGlob, *snapshotGlob, *pathGlob)
		if err != nil {
			fatal(err)
		}
		for _, res := range results {
			for _, p := range res.Paths {
				fmt.Printf("%s/%s: %s\n", res.Archive, res.Snapshot, p)
			}
		}

	case "list":
		requireArgs(args, 1, "list REPOSITORY_FOLDER/")
		r := repo.Open(args[0], repo.WithLogger(logger))
		results, err := r.List(*archiveGlob, *snapshotGlob)
		if err != nil {
			fatal(err)
		}
		for _, res := range results {
			for _, s := range res.Snapshots {
				fmt.Printf("%s/%s\n", res.Archive, s)
			}
		}

	default:
		usage()
		os.Exit(2)
	}
}

func buildFilters(exclude, include, ignore, keep, selectF stringListFlag) repo.FilterOptions {
	var opts repo.FilterOptions
	for _, p := range exclude {
		opts.FolderFilters = append(opts.FolderFilters, pathfilter.Filter{Pattern: p, Inclusive: false})
	}
	for _, p := range include {
		opts.FolderFilters = append(opts.FolderFilters, pathfilter.Filter{Pattern: p, Inclusive: true})
	}
	for _, p := range ignore {
		opts.FileFilters = append(opts.FileFilters, pathfilter.Filter{Pattern: p, Inclusive: false})
	}
	for _, p := range keep {
		opts.FileFilters = append(opts.FileFilters, pathfilter.Filter{Pattern: p, Inclusive: true})
	}
	opts.SelectedFileFilters = append(opts.SelectedFileFilters, selectF...)
	return opts
}

func orDefault(name string) string { return name }

func requireArgs(args []string, n int, usageLine string) {
	if len(args) < n {
		fmt.Fprintf(os.Stderr, "*** ERROR : usage: dbs %s\n", usageLine)
		os.Exit(2)
	}
}

func printCheck(report interface{ IsEmpty() bool }) {
	if report.IsEmpty() {
		fmt.Println("ok")
		return
	}
	fmt.Println("integrity problems found")
}

func printCompare(report interface{ IsEmpty() bool }) {
	if report.IsEmpty() {
		fmt.Println("no differences")
		return
	}
	fmt.Println("differences found")
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: dbs <backup|check|compare|restore|find|list> [flags] ...`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "*** ERROR : %v\n", err)
	os.Exit(1)
}
