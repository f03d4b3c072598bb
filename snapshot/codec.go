// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"fmt"

	"github.com/dbsbackup/dbs/pathfilter"
	"github.com/dbsbackup/dbs/stream"
)

const (
	sectionVersion                     = "Version"
	sectionTime                        = "Time"
	sectionDataFolderPath              = "DataFolderPath"
	sectionFolderFilterArray           = "FolderFilterArray"
	sectionFolderFilterIsInclusive     = "FolderFilterIsInclusiveArray"
	sectionFileFilterArray             = "FileFilterArray"
	sectionFileFilterIsInclusive       = "FileFilterIsInclusiveArray"
	sectionSelectedFileFilterArray     = "SelectedFileFilterArray"
	sectionFolderArray                = "FolderArray"
	sectionFileArray                  = "FileArray"
)

// Serialize encodes the snapshot as a flat sequence of sections in the
// fixed order: Version, Time, DataFolderPath, FolderFilterArray,
// FolderFilterIsInclusiveArray, FileFilterArray, FileFilterIsInclusiveArray,
// SelectedFileFilterArray, FolderArray, FileArray, then the terminator.
func (s *Snapshot) Serialize() []byte {
	w := stream.NewWriter()

	w.WriteSection(sectionVersion, uvarint32Payload(s.Version))
	w.WriteSection(sectionTime, uvarintPayload(timeToTicks(s.Time)))
	w.WriteSection(sectionDataFolderPath, textPayload(s.DataFolderPath))

	folderPatterns, folderInclusive := splitFilters(s.FolderFilters)
	w.WriteSection(sectionFolderFilterArray, textArrayPayload(folderPatterns))
	w.WriteSection(sectionFolderFilterIsInclusive, boolArrayPayload(folderInclusive))

	filePatterns, fileInclusive := splitFilters(s.FileFilters)
	w.WriteSection(sectionFileFilterArray, textArrayPayload(filePatterns))
	w.WriteSection(sectionFileFilterIsInclusive, boolArrayPayload(fileInclusive))

	w.WriteSection(sectionSelectedFileFilterArray, textArrayPayload(s.SelectedFileFilters))

	w.WriteSection(sectionFolderArray, folderArrayPayload(s.Folders))
	w.WriteSection(sectionFileArray, fileArrayPayload(s.Files))

	return w.Finish()
}

// Deserialize decodes a snapshot previously produced by Serialize, rebuilds
// folder paths, and populates the lookup indexes.
func Deserialize(data []byte) (*Snapshot, error) {
	r := stream.NewReader(data)
	s := &Snapshot{}

	version, err := readRequiredUvarint32(r, sectionVersion)
	if err != nil {
		return nil, err
	}
	s.Version = version

	ticks, err := readRequiredUvarint(r, sectionTime)
	if err != nil {
		return nil, err
	}
	s.Time = ticksToTime(ticks)

	s.DataFolderPath, err = readRequiredText(r, sectionDataFolderPath)
	if err != nil {
		return nil, err
	}

	folderPatterns, err := readRequiredTextArray(r, sectionFolderFilterArray)
	if err != nil {
		return nil, err
	}
	folderInclusive, err := readRequiredBoolArray(r, sectionFolderFilterIsInclusive)
	if err != nil {
		return nil, err
	}
	s.FolderFilters, err = joinFilters(folderPatterns, folderInclusive)
	if err != nil {
		return nil, err
	}

	filePatterns, err := readRequiredTextArray(r, sectionFileFilterArray)
	if err != nil {
		return nil, err
	}
	fileInclusive, err := readRequiredBoolArray(r, sectionFileFilterIsInclusive)
	if err != nil {
		return nil, err
	}
	s.FileFilters, err = joinFilters(filePatterns, fileInclusive)
	if err != nil {
		return nil, err
	}

	s.SelectedFileFilters, err = readRequiredTextArray(r, sectionSelectedFileFilterArray)
	if err != nil {
		return nil, err
	}

	s.Folders, err = readFolderArray(r)
	if err != nil {
		return nil, err
	}
	reconstructFolderPaths(s.Folders)

	s.Files, err = readFileArray(r)
	if err != nil {
		return nil, err
	}

	if !r.Exhausted() {
		return nil, fmt.Errorf("%w: snapshot cursor not exhausted after FileArray", stream.ErrIntegrity)
	}

	s.BuildIndex()
	return s, nil
}

// reconstructFolderPaths fills in Folder.Path for every folder, per the
// rule "parent.Path + name + '/'" with the root folder's path the empty
// string. Folders must already be in parent-before-child order.
func reconstructFolderPaths(folders []Folder) {
	for i := range folders {
		if folders[i].ParentIndex == NoParent {
			folders[i].Path = ""
			continue
		}
		folders[i].Path = folders[folders[i].ParentIndex].Path + folders[i].Name + "/"
	}
}

func splitFilters(filters []pathfilter.Filter) (patterns []string, inclusive []bool) {
	patterns = make([]string, len(filters))
	inclusive = make([]bool, len(filters))
	for i, f := range filters {
		patterns[i] = f.Pattern
		inclusive[i] = f.Inclusive
	}
	return patterns, inclusive
}

func joinFilters(patterns []string, inclusive []bool) ([]pathfilter.Filter, error) {
	if len(patterns) != len(inclusive) {
		return nil, fmt.Errorf("%w: filter array length %d does not match inclusive-array length %d",
			stream.ErrIntegrity, len(patterns), len(inclusive))
	}
	filters := make([]pathfilter.Filter, len(patterns))
	for i := range patterns {
		filters[i] = pathfilter.Filter{Pattern: patterns[i], Inclusive: inclusive[i]}
	}
	return filters, nil
}

func uvarint32Payload(v uint32) []byte {
	var buf bytes.Buffer
	stream.PutUvarint32(&buf, v)
	return buf.Bytes()
}

func uvarintPayload(v uint64) []byte {
	var buf bytes.Buffer
	stream.PutUvarint(&buf, v)
	return buf.Bytes()
}

func textPayload(s string) []byte {
	var buf bytes.Buffer
	stream.PutText(&buf, s)
	return buf.Bytes()
}

func textArrayPayload(items []string) []byte {
	var buf bytes.Buffer
	stream.PutUvarint32(&buf, uint32(len(items)))
	for _, s := range items {
		stream.PutText(&buf, s)
	}
	return buf.Bytes()
}

func boolArrayPayload(items []bool) []byte {
	var buf bytes.Buffer
	stream.PutUvarint32(&buf, uint32(len(items)))
	for _, b := range items {
		stream.PutBool(&buf, b)
	}
	return buf.Bytes()
}

func folderArrayPayload(folders []Folder) []byte {
	var buf bytes.Buffer
	stream.PutUvarint32(&buf, uint32(len(folders)))
	for _, f := range folders {
		parent := noParentWire
		if f.ParentIndex != NoParent {
			parent = uint32(f.ParentIndex)
		}
		stream.PutUvarint32(&buf, parent)
		stream.PutText(&buf, f.Name)
		stream.PutUvarint(&buf, timeToTicks(f.AccessTime))
		stream.PutUvarint(&buf, timeToTicks(f.ModTime))
		stream.PutUvarint32(&buf, f.AttributeMask)
	}
	return buf.Bytes()
}

func fileArrayPayload(files []File) []byte {
	var buf bytes.Buffer
	stream.PutUvarint32(&buf, uint32(len(files)))
	for _, f := range files {
		stream.PutUvarint32(&buf, uint32(f.FolderIndex))
		stream.PutText(&buf, f.Name)
		stream.PutHash(&buf, f.Hash)
		stream.PutUvarint(&buf, f.ByteCount)
		stream.PutUvarint(&buf, timeToTicks(f.AccessTime))
		stream.PutUvarint(&buf, timeToTicks(f.ModTime))
		stream.PutUvarint32(&buf, f.AttributeMask)
	}
	return buf.Bytes()
}

func readRequiredUvarint32(r *stream.Reader, name string) (uint32, error) {
	payload, found, err := r.ReadSection(name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: missing section %q", stream.ErrIntegrity, name)
	}
	return stream.ReadUvarint32(bytes.NewReader(payload))
}

func readRequiredUvarint(r *stream.Reader, name string) (uint64, error) {
	payload, found, err := r.ReadSection(name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: missing section %q", stream.ErrIntegrity, name)
	}
	return stream.ReadUvarint(bytes.NewReader(payload))
}

func readRequiredText(r *stream.Reader, name string) (string, error) {
	payload, found, err := r.ReadSection(name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: missing section %q", stream.ErrIntegrity, name)
	}
	return stream.ReadText(bytes.NewReader(payload))
}

func readRequiredTextArray(r *stream.Reader, name string) ([]string, error) {
	payload, found, err := r.ReadSection(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: missing section %q", stream.ErrIntegrity, name)
	}
	br := bytes.NewReader(payload)
	count, err := stream.ReadUvarint32(br)
	if err != nil {
		return nil, err
	}
	items := make([]string, count)
	for i := range items {
		items[i], err = stream.ReadText(br)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func readRequiredBoolArray(r *stream.Reader, name string) ([]bool, error) {
	payload, found, err := r.ReadSection(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: missing section %q", stream.ErrIntegrity, name)
	}
	br := bytes.NewReader(payload)
	count, err := stream.ReadUvarint32(br)
	if err != nil {
		return nil, err
	}
	items := make([]bool, count)
	for i := range items {
		items[i], err = stream.ReadBool(br)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func readFolderArray(r *stream.Reader) ([]Folder, error) {
	payload, found, err := r.ReadSection(sectionFolderArray)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: missing section %q", stream.ErrIntegrity, sectionFolderArray)
	}
	br := bytes.NewReader(payload)
	count, err := stream.ReadUvarint32(br)
	if err != nil {
		return nil, err
	}
	folders := make([]Folder, count)
	for i := range folders {
		parentWire, err := stream.ReadUvarint32(br)
		if err != nil {
			return nil, err
		}
		name, err := stream.ReadText(br)
		if err != nil {
			return nil, err
		}
		atime, err := stream.ReadUvarint(br)
		if err != nil {
			return nil, err
		}
		mtime, err := stream.ReadUvarint(br)
		if err != nil {
			return nil, err
		}
		attrs, err := stream.ReadUvarint32(br)
		if err != nil {
			return nil, err
		}

		parent := NoParent
		if parentWire != noParentWire {
			parent = int(parentWire)
		}
		if parent != NoParent && parent >= i {
			return nil, fmt.Errorf("%w: folder %d has parent index %d, must precede it", stream.ErrIntegrity, i, parent)
		}
		folders[i] = Folder{
			ParentIndex:   parent,
			Name:          name,
			AccessTime:    ticksToTime(atime),
			ModTime:       ticksToTime(mtime),
			AttributeMask: attrs,
		}
	}
	return folders, nil
}

func readFileArray(r *stream.Reader) ([]File, error) {
	payload, found, err := r.ReadSection(sectionFileArray)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: missing section %q", stream.ErrIntegrity, sectionFileArray)
	}
	br := bytes.NewReader(payload)
	count, err := stream.ReadUvarint32(br)
	if err != nil {
		return nil, err
	}
	files := make([]File, count)
	for i := range files {
		folderIdx, err := stream.ReadUvarint32(br)
		if err != nil {
			return nil, err
		}
		name, err := stream.ReadText(br)
		if err != nil {
			return nil, err
		}
		hash, err := stream.ReadHash(br)
		if err != nil {
			return nil, err
		}
		byteCount, err := stream.ReadUvarint(br)
		if err != nil {
			return nil, err
		}
		atime, err := stream.ReadUvarint(br)
		if err != nil {
			return nil, err
		}
		mtime, err := stream.ReadUvarint(br)
		if err != nil {
			return nil, err
		}
		attrs, err := stream.ReadUvarint32(br)
		if err != nil {
			return nil, err
		}
		files[i] = File{
			FolderIndex:   int(folderIdx),
			Name:          name,
			Hash:          hash,
			ByteCount:     byteCount,
			AccessTime:    ticksToTime(atime),
			ModTime:       ticksToTime(mtime),
			AttributeMask: attrs,
		}
	}
	return files, nil
}
