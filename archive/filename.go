// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package archive implements the Archive and History indexing layer: a
// named, totally-ordered list of immutable snapshot files under
// SNAPSHOT/<archive-name>/, and the enumeration of archives under
// SNAPSHOT/.
package archive

import (
	"fmt"
	"strings"
	"time"
)

// SnapshotExt is the file extension of a snapshot file.
const SnapshotExt = ".dbs"

// DefaultArchiveName is the distinguished archive used when the caller
// does not specify one.
const DefaultArchiveName = "DEFAULT"

// FormatSnapshotName renders t as the timestamp string
// "YYYYMMDD_HHMMSS_fffffff": year-month-day, hour-minute-second, and a
// fractional 100-ns-tick count within the second, right-padded to 7
// digits. Lexicographic order on this string equals chronological order,
// which is the property the Archive's ordering relies on.
func FormatSnapshotName(t time.Time) string {
	t = t.UTC()
	datePart := t.Format("20060102_150405")
	ticksWithinSecond := t.Nanosecond() / 100
	return fmt.Sprintf("%s_%07d", datePart, ticksWithinSecond)
}

// snapshotFileName returns the on-disk file name for a snapshot name.
func snapshotFileName(name string) string {
	return name + SnapshotExt
}

// stripSnapshotExt returns the snapshot name for a *.dbs directory entry
// name, or false if it does not have that extension.
func stripSnapshotExt(fileName string) (string, bool) {
	if !strings.HasSuffix(fileName, SnapshotExt) {
		return "", false
	}
	return strings.TrimSuffix(fileName, SnapshotExt), true
}
