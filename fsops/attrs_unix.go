// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package fsops

import "os"

// ReadOnlyAttr is the attribute_mask bit this adapter understands on every
// platform: the read-only bit. Non-Windows platforms model it via the
// owner-write permission bit rather than a true OS-level attribute.
const ReadOnlyAttr uint32 = 0x1

func attributesOf(info os.FileInfo) uint32 {
	var mask uint32
	if info.Mode().Perm()&0o200 == 0 {
		mask |= ReadOnlyAttr
	}
	return mask
}

// SetAttributes applies attribute_mask to path. Only ReadOnlyAttr is
// meaningful on non-Windows platforms.
func SetAttributes(path string, mask uint32) error {
	info, err := os.Lstat(path)
	if err != nil {
		return wrap("stat", path, err)
	}
	perm := info.Mode().Perm()
	if mask&ReadOnlyAttr != 0 {
		perm &^= 0o222
	} else {
		perm |= 0o200
	}
	if err := os.Chmod(path, perm); err != nil {
		return wrap("chmod", path, err)
	}
	return nil
}

// ClearWriteProtection clears the read-only bit before a copy/set-times so
// an existing destination file can be overwritten. Per §9's design note,
// non-Windows restores clear permissions to 0o777 rather than tracking the
// precise prior mode, since the recorded attribute_mask is about to be
// reapplied afterward anyway.
func ClearWriteProtection(path string) error {
	if err := os.Chmod(path, 0o777); err != nil && !os.IsNotExist(err) {
		return wrap("chmod", path, err)
	}
	return nil
}
