// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package pathfilter

import "testing"

func TestFolderIncludedTraversal(t *testing.T) {
	filters := []Filter{{Pattern: "/A/B/C/", Inclusive: true}}

	for _, candidate := range []string{"/", "/A/", "/A/B/", "/A/B/C/", "/A/B/C/D/"} {
		if !FolderIncluded(candidate, filters) {
			t.Errorf("expected %q to be included (on the path to /A/B/C/)", candidate)
		}
	}
}

func TestFolderExcluded(t *testing.T) {
	filters := []Filter{{Pattern: "/TMP/", Inclusive: false}}

	if !FolderIncluded("/", filters) {
		t.Errorf("root should remain included")
	}
	if FolderIncluded("/TMP/", filters) {
		t.Errorf("/TMP/ should be excluded")
	}
	// The exclusion glob "/TMP/*" does not cross "/", so it does not match a
	// deeper folder on its own; Scan never reaches /TMP/sub/ because it does
	// not descend into the excluded /TMP/.
	if !FolderIncluded("/TMP/sub/", filters) {
		t.Errorf("/TMP/sub/ should not be matched by the /TMP/* exclusion glob")
	}
}

func TestFileIncludedKeepIgnore(t *testing.T) {
	filters := []Filter{
		{Pattern: "*.txt", Inclusive: true},
		{Pattern: "*.log", Inclusive: false},
	}

	cases := []struct {
		name string
		want bool
	}{
		{"a.txt", true},
		{"a.log", false},
		{"a.bin", true}, // default included, no filter matched
	}
	for _, c := range cases {
		if got := FileIncluded("/", c.name, filters); got != c.want {
			t.Errorf("FileIncluded(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestFileSelected(t *testing.T) {
	if !FileSelected("/", "a.txt", nil) {
		t.Errorf("empty selection list should select everything")
	}

	filters := []Filter{{Pattern: "*.txt", Inclusive: true}}
	if !FileSelected("/", "a.txt", filters) {
		t.Errorf("a.txt should be selected")
	}
	if FileSelected("/", "a.bin", filters) {
		t.Errorf("a.bin should not be selected")
	}
}

func TestInScopeFiltersScenario(t *testing.T) {
	// Scenario 6 from the spec: --exclude "/TMP/" --keep "*.txt" --ignore "*.log"
	// scanning /A.txt, /A.log, /TMP/B.txt selects only /A.txt.
	folderFilters := []Filter{{Pattern: "/TMP/", Inclusive: false}}
	fileFilters := []Filter{
		{Pattern: "*.txt", Inclusive: true},
		{Pattern: "*.log", Inclusive: false},
	}

	cases := []struct {
		folder, name string
		want         bool
	}{
		{"/", "A.txt", true},
		{"/", "A.log", false},
		{"/TMP/", "B.txt", false},
	}
	for _, c := range cases {
		got := InScope(c.folder, c.name, folderFilters, fileFilters, nil)
		if got != c.want {
			t.Errorf("InScope(%q, %q) = %v, want %v", c.folder, c.name, got, c.want)
		}
	}
}

func TestFileFilterWithFolderComponent(t *testing.T) {
	filters := []Filter{{Pattern: "/A/B/*.txt", Inclusive: true}}

	if !FileIncluded("/A/B/", "x.txt", filters) {
		t.Errorf("expected match in /A/B/")
	}
	if FileIncluded("/A/C/", "x.txt", filters) {
		t.Errorf("expected no match in /A/C/")
	}
}
