// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"bytes"
	"fmt"
)

// Writer assembles a flat sequence of named, length-prefixed sections.
// Each call to WriteSection emits: the section's (possibly interned) tag,
// a varuint byte-count, then the payload bytes. Finish emits the empty
// tag that terminates the section sequence.
type Writer struct {
	buf  bytes.Buffer
	tags *tagWriter
}

// NewWriter returns an empty section Writer.
func NewWriter() *Writer {
	return &Writer{tags: newTagWriter()}
}

// WriteSection appends one named section. payload is typically built by the
// caller into its own scratch buffer first so its length is known up front.
func (w *Writer) WriteSection(name string, payload []byte) {
	w.tags.writeTag(&w.buf, name)
	PutUvarint(&w.buf, uint64(len(payload)))
	w.buf.Write(payload)
}

// Finish writes the terminating empty-tag record and returns the full
// encoded byte sequence.
func (w *Writer) Finish() []byte {
	w.tags.writeTag(&w.buf, "")
	return w.buf.Bytes()
}

// section is one decoded (name, payload) record, buffered by Reader so a
// mismatched ReadSection call can "un-probe" without losing the record.
type section struct {
	name    string
	payload []byte
}

// Reader decodes a Writer-produced byte sequence section by section.
// Sections are expected in a fixed order by the caller (see snapshot's
// (de)serialisation); ReadSection reports a section as missing, without
// consuming it, when the next section on the wire has a different name,
// so callers can treat an optional section as absent. There is no call
// that discards an unrecognised section: it stays buffered until a
// ReadSection names it.
type Reader struct {
	r      *bytes.Reader
	tags   *tagReader
	peeked *section
	done   bool
}

// NewReader wraps data for section-by-section decoding.
func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data), tags: newTagReader()}
}

// next returns the next undecoded section, buffering it so repeated probes
// against different expected names see the same record until it is consumed.
func (r *Reader) next() (*section, error) {
	if r.peeked != nil {
		return r.peeked, nil
	}
	if r.done {
		return nil, nil
	}

	name, err := r.tags.readTag(r.r)
	if err != nil {
		return nil, err
	}
	if name == "" {
		r.done = true
		return nil, nil
	}

	n, err := ReadUvarint(r.r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading length of section %q: %v", ErrIntegrity, name, err)
	}
	payload := make([]byte, n)
	if _, err := readFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("%w: truncated section %q (%d bytes): %v", ErrIntegrity, name, n, err)
	}

	rec := &section{name: name, payload: payload}
	r.peeked = rec
	return rec, nil
}

// ReadSection looks for a section named expected. If the next section on
// the wire has a different name (or the stream has ended), it reports
// found=false and leaves that section buffered for a later ReadSection
// call — the "missing section, cursor left in place" recovery from the
// wire format's rationale.
func (r *Reader) ReadSection(expected string) (payload []byte, found bool, err error) {
	rec, err := r.next()
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	if rec.name != expected {
		return nil, false, nil
	}
	r.peeked = nil
	return rec.payload, true, nil
}

// Exhausted reports whether every section (including the terminator) has
// been consumed, i.e. the file is complete per the wire format's rule. If
// no section is buffered, it reads the next record itself, so a terminator
// that directly follows the last consumed section counts as consumed.
func (r *Reader) Exhausted() bool {
	if !r.done && r.peeked == nil {
		if _, err := r.next(); err != nil {
			return false
		}
	}
	return r.done && r.peeked == nil && r.r.Len() == 0
}
