// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package multiop implements a run-length compressed alignment trace: a
// sequence of {Match, Mismatch, Deletion, Insertion} operations, each
// packed as an operation type and a run length in a single byte. It is
// the output of the X-drop back-tracker (package xdrop) and the input of
// the edit-script builder (package editscript).
package multiop

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Op is an alignment operation type.
type Op uint8

// The four operation kinds a trace can carry. Replacement (a
// same-length substitution reported by some aligners) aliases Match:
// callers that distinguish same-character replacements from mismatches
// should report a Match, and report a Mismatch otherwise.
const (
	Match Op = iota
	Mismatch
	Deletion
	Insertion
)

func (o Op) String() string {
	switch o {
	case Match:
		return "Match"
	case Mismatch:
		return "Mismatch"
	case Deletion:
		return "Deletion"
	case Insertion:
		return "Insertion"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// opShift is the number of low bits of an entry byte given to the run
// length; the remaining high bits hold the Op.
const opShift = 6

// maxRun is the largest run length representable in one entry. Longer
// runs are split across multiple entries of the same Op.
const maxRun = 1<<opShift - 1

// List is a run-length compressed operation sequence.
type List struct {
	entries []byte
}

// New returns a new empty List.
func New() *List { return &List{} }

// NewWithSize returns a new empty List with capacity for n entries.
func NewWithSize(n int) *List { return &List{entries: make([]byte, 0, n)} }

// Reset clears the content of l, keeping its backing storage.
func (l *List) Reset() { l.entries = l.entries[:0] }

// Clone copies src's content into dst, replacing dst's prior content.
func Clone(dst, src *List) {
	if cap(dst.entries) < len(src.entries) {
		dst.entries = make([]byte, len(src.entries))
	} else {
		dst.entries = dst.entries[:len(src.entries)]
	}
	copy(dst.entries, src.entries)
}

// NumEntries returns the number of run-length entries in l.
func (l *List) NumEntries() int { return len(l.entries) }

// GetEntry returns the operation and run length of the idx-th entry.
func (l *List) GetEntry(idx int) (op Op, steps int) {
	b := l.entries[idx]
	return Op(b >> opShift), int(b & maxRun)
}

// add appends n steps of op, merging into the last entry when possible
// and splitting runs longer than maxRun into multiple entries.
func (l *List) add(op Op, n int) {
	for n > 0 {
		chunk := n
		if chunk > maxRun {
			chunk = maxRun
		}
		if len(l.entries) > 0 {
			last := l.entries[len(l.entries)-1]
			if Op(last>>opShift) == op {
				steps := int(last & maxRun)
				if room := maxRun - steps; room > 0 {
					if chunk > room {
						chunk = room
					}
					l.entries[len(l.entries)-1] = byte(op)<<opShift | byte(steps+chunk)
					n -= chunk
					continue
				}
			}
		}
		l.entries = append(l.entries, byte(op)<<opShift|byte(chunk))
		n -= chunk
	}
}

// AddMatch appends one match.
func (l *List) AddMatch() { l.add(Match, 1) }

// AddMatchMulti appends n matches.
func (l *List) AddMatchMulti(n int) { l.add(Match, n) }

// AddMismatch appends one mismatch.
func (l *List) AddMismatch() { l.add(Mismatch, 1) }

// AddMismatchMulti appends n mismatches.
func (l *List) AddMismatchMulti(n int) { l.add(Mismatch, n) }

// AddDeletion appends one deletion.
func (l *List) AddDeletion() { l.add(Deletion, 1) }

// AddDeletionMulti appends n deletions.
func (l *List) AddDeletionMulti(n int) { l.add(Deletion, n) }

// AddInsertion appends one insertion.
func (l *List) AddInsertion() { l.add(Insertion, 1) }

// AddInsertionMulti appends n insertions.
func (l *List) AddInsertionMulti(n int) { l.add(Insertion, n) }

// RemoveLast removes the most recently added operation, decrementing the
// run length of the final entry or dropping it entirely when its run
// length reaches zero.
func (l *List) RemoveLast() {
	if len(l.entries) == 0 {
		return
	}
	last := l.entries[len(l.entries)-1]
	op, steps := Op(last>>opShift), int(last&maxRun)
	if steps <= 1 {
		l.entries = l.entries[:len(l.entries)-1]
		return
	}
	l.entries[len(l.entries)-1] = byte(op)<<opShift | byte(steps-1)
}

// Length returns the total number of operations (all kinds) in l.
func (l *List) Length() int {
	n := 0
	for _, b := range l.entries {
		n += int(b & maxRun)
	}
	return n
}

// RepdelLength returns the number of source-consuming operations:
// matches, mismatches and deletions.
func (l *List) RepdelLength() int {
	n := 0
	for _, b := range l.entries {
		if Op(b>>opShift) != Insertion {
			n += int(b & maxRun)
		}
	}
	return n
}

// RepinsLength returns the number of target-consuming operations:
// matches, mismatches and insertions.
func (l *List) RepinsLength() int {
	n := 0
	for _, b := range l.entries {
		if Op(b>>opShift) != Deletion {
			n += int(b & maxRun)
		}
	}
	return n
}

// Show writes a human readable dump of l to w, one entry per line.
func (l *List) Show(w io.Writer) error {
	for i := 0; i < l.NumEntries(); i++ {
		op, steps := l.GetEntry(i)
		if _, err := fmt.Fprintf(w, "%s\t%d\n", op, steps); err != nil {
			return err
		}
	}
	return nil
}

// Combine appends src onto dst. When forward is false, src is consumed
// in reverse entry order (but each entry's operation and run length are
// unchanged — reversing a run-length list reorders runs, it does not
// flip operations). In both directions src's entries are copied as they
// are, without merging into dst's last entry. Package build uses the
// forward form to assemble a link's trace from an X-drop extension
// trace and folded-in gap insertions.
func Combine(dst, src *List, forward bool) {
	if forward {
		dst.entries = append(dst.entries, src.entries...)
		return
	}
	for i := src.NumEntries() - 1; i >= 0; i-- {
		dst.entries = append(dst.entries, src.entries[i])
	}
}

// WriteTo serialises l to w as a 4-byte big-endian entry count followed
// by the raw entry bytes.
func (l *List) WriteTo(w io.Writer) (int64, error) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(l.entries)))
	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(l.entries)
	return int64(n + m), err
}

// ReadFrom replaces l's content by reading a serialised List from r.
func (l *List) ReadFrom(r io.Reader) (int64, error) {
	var hdr [4]byte
	n, err := io.ReadFull(r, hdr[:])
	if err != nil {
		return int64(n), err
	}
	size := binary.BigEndian.Uint32(hdr[:])
	l.entries = make([]byte, size)
	m, err := io.ReadFull(r, l.entries)
	return int64(n + m), err
}
