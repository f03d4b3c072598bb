// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package fsops

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// ReadOnlyAttr mirrors windows.FILE_ATTRIBUTE_READONLY, the bit the spec's
// §9 "Windows attribute quirk" note is concerned with.
const ReadOnlyAttr uint32 = windows.FILE_ATTRIBUTE_READONLY

func attributesOf(info os.FileInfo) uint32 {
	if sys, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return sys.FileAttributes
	}
	return 0
}

// SetAttributes applies the raw Windows attribute mask to path.
func SetAttributes(path string, mask uint32) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return wrap("attr", path, err)
	}
	if err := windows.SetFileAttributes(p, mask); err != nil {
		return wrap("attr", path, err)
	}
	return nil
}

// ClearWriteProtection clears the read-only attribute so an existing
// destination file can be overwritten; the caller restores the recorded
// attribute_mask afterward (§9: "the read-only bit must be cleared before
// any set_times/copy over an existing file, then restored").
func ClearWriteProtection(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return wrap("attr", path, err)
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		if err == windows.ERROR_FILE_NOT_FOUND || err == windows.ERROR_PATH_NOT_FOUND {
			return nil
		}
		return wrap("attr", path, err)
	}
	if attrs&ReadOnlyAttr == 0 {
		return nil
	}
	return SetAttributes(path, attrs&^ReadOnlyAttr)
}
