// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package pathfilter implements the repository's glob-style include /
// exclude / select filter engine: folder filters, file filters, and
// selected-file filters are each evaluated independently and then
// combined by the snapshot scanner.
package pathfilter

import (
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Filter is one entry of a folder-filter or file-filter list: a glob
// pattern paired with whether a match includes (true) or excludes
// (false) the candidate.
type Filter struct {
	Pattern   string
	Inclusive bool
}

// ToLogicalPath replaces backslashes with forward slashes, the repository's
// definition of a "logical path".
func ToLogicalPath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// IsGlob reports whether a pattern contains glob metacharacters.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

var globCache sync.Map // pattern string -> glob.Glob

func compile(pattern string) glob.Glob {
	if g, ok := globCache.Load(pattern); ok {
		return g.(glob.Glob)
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		// An unparsable pattern matches nothing rather than aborting the scan;
		// the front end is responsible for validating patterns at input time.
		g = glob.MustCompile("\x00never-matches\x00")
	}
	globCache.Store(pattern, g)
	return g
}

func globMatch(candidate, pattern string) bool {
	return compile(pattern).Match(candidate)
}

// Match reports whether candidate matches a bare glob pattern (`*`/`?`),
// with no folder-filter/file-filter framing. Used by callers (e.g. the
// repository's find/list glob support over archive and snapshot names)
// that need the underlying single-pattern matcher directly.
func Match(candidate, pattern string) bool {
	return globMatch(candidate, pattern)
}

// withDefaultPrefix prepends "*/" to a filter pattern that has neither a
// leading "/" (root-anchored) nor a leading "*" (already wildcarded), per
// the spec's rule for bare file-name/folder-name patterns.
func withDefaultPrefix(pattern string) string {
	if strings.HasPrefix(pattern, "/") || strings.HasPrefix(pattern, "*") {
		return pattern
	}
	return "*/" + pattern
}

// FolderIncluded evaluates the folder-filter list against a candidate
// relative folder path (must start with "/"; the root is "/").
//
// Inclusive filters traverse: if the candidate is a prefix of the filter,
// or the filter is a prefix of the candidate, the candidate is marked
// included (this is what lets "--include /A/B/C/" also traverse "/",
// "/A/", and "/A/B/" on the way down to "/A/B/C/"). Exclusive filters are
// globbed against the candidate with a trailing "*". The last matching
// filter in declaration order wins; with no match the default is included.
func FolderIncluded(candidate string, filters []Filter) bool {
	included := true
	for _, f := range filters {
		if f.Inclusive {
			if strings.HasPrefix(f.Pattern, candidate) || strings.HasPrefix(candidate, f.Pattern) {
				included = true
			}
			continue
		}
		pattern := withDefaultPrefix(f.Pattern)
		if globMatch(candidate, pattern+"*") {
			included = false
		}
	}
	return included
}

// splitFolderAndName splits a filter containing "/" into its folder-path
// prefix (ending in "/") and trailing name pattern.
func splitFolderAndName(pattern string) (folderPart, namePart string) {
	idx := strings.LastIndex(pattern, "/")
	return pattern[:idx+1], pattern[idx+1:]
}

// fileFilterMatches reports whether one file filter matches a candidate
// file identified by its containing folder path (leading and trailing
// "/") and its bare name.
func fileFilterMatches(folderPath, name string, f Filter) bool {
	pattern := withDefaultPrefix(f.Pattern)

	switch {
	case strings.HasSuffix(pattern, "/"):
		return globMatch(folderPath, pattern+"*")
	case strings.Contains(pattern, "/"):
		folderPart, namePart := splitFolderAndName(pattern)
		return globMatch(folderPath, folderPart+"*") && globMatch(name, namePart)
	default:
		return globMatch(name, pattern)
	}
}

// FileIncluded evaluates the file-filter list (--keep / --ignore) against
// a candidate file. Default is included; the last matching filter's
// polarity wins.
func FileIncluded(folderPath, name string, filters []Filter) bool {
	included := true
	for _, f := range filters {
		if fileFilterMatches(folderPath, name, f) {
			included = f.Inclusive
		}
	}
	return included
}

// FileSelected evaluates the selected-file-filter list (--select). An
// empty list selects every file; otherwise the file must match at least
// one filter by the same three-way rule used by FileIncluded.
func FileSelected(folderPath, name string, filters []Filter) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if fileFilterMatches(folderPath, name, f) {
			return true
		}
	}
	return false
}

// InScope applies the three filter lists together: a file is in scope iff
// its folder is included, the file itself is included, and the file is
// selected.
func InScope(folderPath, name string, folderFilters, fileFilters, selectedFilters []Filter) bool {
	if !FolderIncluded(folderPath, folderFilters) {
		return false
	}
	if !FileIncluded(folderPath, name, fileFilters) {
		return false
	}
	return FileSelected(folderPath, name, selectedFilters)
}
