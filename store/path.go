// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// blobDir is the fixed top-level directory under the repository root that
// holds the content-addressed store.
const blobDir = "FILE"

// BlobRelPath computes a blob's path relative to the repository root from
// its hash and byte count, per the store blob name derivation: two
// directory segments derived from the first two hash bytes (not a naive
// byte split), then "<hex-hash>_<hex-byte-count>.dbf".
//
//	d1 = h0 >> 2                       (six-bit value)
//	d2 = ((h0 << 4) & 0xFF) | (h1 >> 4) (eight-bit value)
func BlobRelPath(hash [32]byte, byteCount uint64) string {
	h0, h1 := hash[0], hash[1]
	d1 := h0 >> 2
	d2 := ((h0 << 4) & 0xFF) | (h1 >> 4)
	name := fmt.Sprintf("%s_%X.dbf", hex.EncodeToString(hash[:]), byteCount)
	return fmt.Sprintf("%s/%02X/%02X/%s", blobDir, d1, d2, name)
}

// parseBlobByteCount extracts the declared byte count from a blob file
// name of the form "<64-hex-hash>_<hex-byte-count>.dbf".
func parseBlobByteCount(name string) (uint64, bool) {
	name = strings.TrimSuffix(name, ".dbf")
	idx := strings.LastIndex(name, "_")
	if idx < 0 || idx == len(name)-1 {
		return 0, false
	}
	n, err := strconv.ParseUint(name[idx+1:], 16, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
