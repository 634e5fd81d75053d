// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package editscript implements the edit-script codec (component A):
// a compact, position-independent description of a pairwise alignment
// that lets a target sequence v be reconstructed from a source u in
// space proportional to the number of edit operations rather than to
// len(v). It is grounded on GenomeTools' editscript.c, translated from
// a hand-rolled word-packed bit array into a byte-oriented bit writer/
// reader (bits.go) and from its bespoke Elias-gamma-like length prefix
// into an equivalent continuation-bit varint packed into entry_size
// wide fields — the wire format is condenseq's own, not
// bit-compatible with the C tool, since nothing in this design
// requires interop with it.
package editscript

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"

	"github.com/gt-tools/condenseq/cerr"
	"github.com/gt-tools/condenseq/multiop"
)

// ReadMode selects the direction characters are read from a CharSource.
// Reverse is used for alignments on the complement strand.
type ReadMode uint8

const (
	Forward ReadMode = iota
	Reverse
)

// CharSource is the minimal read access an edit-script needs into the
// encoded source sequence u to reconstruct match runs. It is satisfied
// structurally by encseq.Sequence, so editscript has no import
// dependency on package encseq.
type CharSource interface {
	// CharAt returns the encoded alphabet code at position pos, read in
	// the given direction.
	CharAt(pos int, dir ReadMode) (uint32, error)
}

// Wildcard is a sentinel passed to AddMismatch/AddInsertion in place of
// a real alphabet code to request the dual-use wildcard symbol, which
// editscript.c stores as A-1 (the top of the ordinary symbol range).
const Wildcard = math.MaxUint32

// Script stores a pairwise alignment of a target v against a source u
// over an alphabet of cardinality A, in the block-grammar form
// described in spec.md §4.1: a packed bit-array of entry_size-wide
// fields holding (tag, length-prefix, symbols)* blocks, plus a 32-bit
// trailing-matches count for the final match run, stored outside the
// array.
type Script struct {
	alphabetSize    uint32
	entrySize       uint8
	del             uint32
	trailingMatches uint32
	data            []byte
	numElems        uint32
}

// New returns a new, empty Script over an alphabet of the given
// cardinality.
func New(alphabetSize uint32) (*Script, error) {
	if alphabetSize == 0 {
		return nil, fmt.Errorf("editscript: %w: empty alphabet", cerr.InvalidArgument)
	}
	entrySize := bits.Len32(alphabetSize + 2)
	if entrySize < 2 {
		entrySize = 2
	}
	if entrySize > 31 {
		return nil, fmt.Errorf("editscript: %w: alphabet too large", cerr.InvalidArgument)
	}
	return &Script{
		alphabetSize: alphabetSize,
		entrySize:    uint8(entrySize),
		del:          alphabetSize,
	}, nil
}

// Reset clears the content of es, keeping its alphabet and bit width.
func (es *Script) Reset() {
	es.data = es.data[:0]
	es.numElems = 0
	es.trailingMatches = 0
}

// AlphabetSize returns the alphabet cardinality A this script was
// constructed with.
func (es *Script) AlphabetSize() uint32 { return es.alphabetSize }

func (es *Script) misdelSym() uint32 { return es.alphabetSize + 1 }
func (es *Script) insSym() uint32    { return es.alphabetSize + 2 }

// Builder incrementally constructs a Script from a stream of match,
// mismatch, deletion and insertion operations, in source-to-target
// (left-to-right) order.
type Builder struct {
	es      *Script
	w       bitWriter
	pending uint32
	open    opKind
}

type opKind uint8

const (
	noKind opKind = iota
	misdelKind
	insKind
)

// NewBuilder returns a Builder that fills es, which should be freshly
// constructed or Reset.
func NewBuilder(es *Script) *Builder {
	return &Builder{es: es}
}

// AddMatch records one matching position, incrementing the pending
// match-run counter. It fails if that counter would overflow its
// 32-bit width.
func (b *Builder) AddMatch() error {
	if b.pending == math.MaxUint32 {
		return fmt.Errorf("editscript: %w: trailing match counter overflow", cerr.WidthOverflow)
	}
	b.pending++
	return nil
}

// AddMatchMulti records n consecutive matching positions.
func (b *Builder) AddMatchMulti(n uint32) error {
	if math.MaxUint32-b.pending < n {
		return fmt.Errorf("editscript: %w: trailing match counter overflow", cerr.WidthOverflow)
	}
	b.pending += n
	return nil
}

func (b *Builder) openBlock(kind opKind) {
	if b.open == kind && b.pending == 0 {
		return
	}
	tag := b.es.misdelSym()
	if kind == insKind {
		tag = b.es.insSym()
	}
	b.w.writeBits(tag, b.es.entrySize)
	b.es.numElems++
	b.es.numElems += uint32(writeLength(&b.w, b.pending, b.es.entrySize))
	b.pending = 0
	b.open = kind
}

// AddMismatch records a substitution: the character c replaces the
// aligned character of u. Pass Wildcard to record the dual-use
// wildcard symbol.
func (b *Builder) AddMismatch(c uint32) error {
	if c == Wildcard {
		c = b.es.alphabetSize - 1
	}
	if c >= b.es.alphabetSize {
		return fmt.Errorf("editscript: %w: symbol %d out of range for alphabet size %d", cerr.InvalidArgument, c, b.es.alphabetSize)
	}
	b.openBlock(misdelKind)
	b.w.writeBits(c, b.es.entrySize)
	b.es.numElems++
	return nil
}

// AddDeletion records a gap in v: one character of u is consumed
// without producing output.
func (b *Builder) AddDeletion() error {
	b.openBlock(misdelKind)
	b.w.writeBits(b.es.del, b.es.entrySize)
	b.es.numElems++
	return nil
}

// AddInsertion records a character of v with no corresponding position
// in u. Pass Wildcard to record the dual-use wildcard symbol.
func (b *Builder) AddInsertion(c uint32) error {
	if c == Wildcard {
		c = b.es.alphabetSize - 1
	}
	if c >= b.es.alphabetSize {
		return fmt.Errorf("editscript: %w: symbol %d out of range for alphabet size %d", cerr.InvalidArgument, c, b.es.alphabetSize)
	}
	b.openBlock(insKind)
	b.w.writeBits(c, b.es.entrySize)
	b.es.numElems++
	return nil
}

// Finish completes construction, recording any still-pending matches
// as the script's trailing match count, and returns the finished
// Script (the same one passed to NewBuilder).
func (b *Builder) Finish() *Script {
	b.es.data = b.w.buf
	b.es.trailingMatches = b.pending
	return b.es
}

// writeLength appends value as a LEN_PREFIX field and returns how many
// entry_size-wide entries it consumed. The scheme is a continuation-bit
// varint: each entry carries one payload bit fewer than entry_size,
// with the top bit signalling "another entry follows". A value that
// fits the non-continuation range (< 2^(entry_size-1)) takes exactly
// one entry, matching the "single value stored without continuation"
// case in spec.md §4.1.
func writeLength(w *bitWriter, value uint32, entrySize uint8) int {
	payloadBits := entrySize - 1
	mask := uint32(1)<<payloadBits - 1
	var chunks []uint32
	if value == 0 {
		chunks = []uint32{0}
	} else {
		for v := value; v != 0; v >>= payloadBits {
			chunks = append(chunks, v&mask)
		}
		for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
			chunks[i], chunks[j] = chunks[j], chunks[i]
		}
	}
	for i, c := range chunks {
		var cont uint32
		if i != len(chunks)-1 {
			cont = 1
		}
		w.writeBits(cont<<payloadBits|c, entrySize)
	}
	return len(chunks)
}

// readLength is the inverse of writeLength; it returns the decoded
// value and the number of entries consumed.
func readLength(r *bitReader, entrySize uint8) (uint32, int) {
	payloadBits := entrySize - 1
	mask := uint32(1)<<payloadBits - 1
	var v uint32
	n := 0
	for {
		e := r.readBits(entrySize)
		n++
		v = v<<payloadBits | (e & mask)
		if e>>payloadBits == 0 {
			break
		}
	}
	return v, n
}

// FromTrace builds a Script from a back-tracked alignment trace,
// reading v-aligned characters for mismatch and insertion operations
// from src starting at position start in direction dir. The trace is
// consumed in reverse entry order, since X-drop back-tracking produces
// operations from the end of the alignment to its start (see package
// xdrop), mirroring editscript.c's gt_editscript_new_with_sequences.
func FromTrace(alphabetSize uint32, src CharSource, trace *multiop.List, start int, dir ReadMode) (*Script, error) {
	es, err := New(alphabetSize)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(es)
	vlen := 0
	for idx := trace.NumEntries() - 1; idx >= 0; idx-- {
		op, steps := trace.GetEntry(idx)
		for i := 0; i < steps; i++ {
			switch op {
			case multiop.Match:
				vlen++
				if err := b.AddMatch(); err != nil {
					return nil, err
				}
			case multiop.Mismatch:
				c, err := src.CharAt(start+vlen, dir)
				if err != nil {
					return nil, err
				}
				vlen++
				if err := b.AddMismatch(c); err != nil {
					return nil, err
				}
			case multiop.Insertion:
				c, err := src.CharAt(start+vlen, dir)
				if err != nil {
					return nil, err
				}
				vlen++
				if err := b.AddInsertion(c); err != nil {
					return nil, err
				}
			case multiop.Deletion:
				if err := b.AddDeletion(); err != nil {
					return nil, err
				}
			}
		}
	}
	return b.Finish(), nil
}

// Stats returns the count of each operation kind represented by es.
func (es *Script) Stats() (matches, mismatches, insertions, deletions uint32) {
	if es.numElems == 0 {
		return es.trailingMatches, 0, 0, 0
	}
	r := &bitReader{buf: es.data}
	var served uint32
	tag := r.readBits(es.entrySize)
	served++
	kind := misdelKind
	if tag == es.insSym() {
		kind = insKind
	}
	n, used := readLength(r, es.entrySize)
	served += uint32(used)
	matches += n
	for served < es.numElems {
		e := r.readBits(es.entrySize)
		served++
		if e == es.misdelSym() || e == es.insSym() {
			if e == es.insSym() {
				kind = insKind
			} else {
				kind = misdelKind
			}
			n, used := readLength(r, es.entrySize)
			served += uint32(used)
			matches += n
			continue
		}
		switch kind {
		case misdelKind:
			if e == es.del {
				deletions++
			} else {
				mismatches++
			}
		case insKind:
			insertions++
		}
	}
	matches += es.trailingMatches
	return matches, mismatches, insertions, deletions
}

// SourceLen returns len(u) as implied by es (invariant E1).
func (es *Script) SourceLen() uint32 {
	m, mm, _, d := es.Stats()
	return m + mm + d
}

// TargetLen returns len(v) as implied by es (invariant E2).
func (es *Script) TargetLen() uint32 {
	m, mm, i, _ := es.Stats()
	return m + mm + i
}

// TargetSubseqLen returns the number of v bytes produced by the u
// window [uFrom, uFrom+uLen).
func (es *Script) TargetSubseqLen(uFrom, uLen uint32) (uint32, error) {
	if uLen == 0 {
		return 0, nil
	}
	buf, err := es.decodeURange(nil, 0, Forward, uFrom, uFrom+uLen-1, nil, true)
	if err != nil {
		return 0, err
	}
	return uint32(len(buf)), nil
}

// DecodeURange writes the v-characters produced by the u-window
// [uFrom, uTo] (inclusive) to buf (truncated to length 0 and reused
// for capacity), reading matched characters from src at start+upos.
func (es *Script) DecodeURange(src CharSource, start int, dir ReadMode, uFrom, uTo uint32, buf []byte) ([]byte, error) {
	return es.decodeURange(src, start, dir, uFrom, uTo, buf, false)
}

func (es *Script) decodeURange(src CharSource, start int, dir ReadMode, uFrom, uTo uint32, buf []byte, countOnly bool) ([]byte, error) {
	if uTo < uFrom {
		return buf[:0], nil
	}
	buf = buf[:0]
	appendMatch := func(upos0, n uint32) error {
		lo, hi := upos0, upos0+n-1
		if lo < uFrom {
			lo = uFrom
		}
		if hi > uTo {
			hi = uTo
		}
		for p := lo; n > 0 && p <= hi; p++ {
			if countOnly {
				buf = append(buf, 0)
				continue
			}
			c, err := src.CharAt(start+int(p), dir)
			if err != nil {
				return err
			}
			buf = append(buf, byte(c))
		}
		return nil
	}

	if es.numElems == 0 {
		if err := appendMatch(0, es.trailingMatches); err != nil {
			return nil, err
		}
		return buf, nil
	}

	r := &bitReader{buf: es.data}
	var served, upos uint32
	tag := r.readBits(es.entrySize)
	served++
	kind := misdelKind
	if tag == es.insSym() {
		kind = insKind
	}
	n, used := readLength(r, es.entrySize)
	served += uint32(used)
	if err := appendMatch(upos, n); err != nil {
		return nil, err
	}
	upos += n
	for served < es.numElems && upos <= uTo {
		e := r.readBits(es.entrySize)
		served++
		if e == es.misdelSym() || e == es.insSym() {
			if e == es.insSym() {
				kind = insKind
			} else {
				kind = misdelKind
			}
			n, used := readLength(r, es.entrySize)
			served += uint32(used)
			if err := appendMatch(upos, n); err != nil {
				return nil, err
			}
			upos += n
			continue
		}
		switch kind {
		case misdelKind:
			if e == es.del {
				upos++
			} else {
				if upos >= uFrom && upos <= uTo {
					if countOnly {
						buf = append(buf, 0)
					} else {
						buf = append(buf, byte(e))
					}
				}
				upos++
			}
		case insKind:
			if upos > uFrom && upos <= uTo {
				if countOnly {
					buf = append(buf, 0)
				} else {
					buf = append(buf, byte(e))
				}
			}
		}
	}
	if upos <= uTo {
		if err := appendMatch(upos, es.trailingMatches); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DecodeVRange writes exactly vTo-vFrom+1 v-characters (inclusive
// range) to buf, reading matched characters from src.
func (es *Script) DecodeVRange(src CharSource, start int, dir ReadMode, vFrom, vTo uint32, buf []byte) ([]byte, error) {
	if vTo < vFrom {
		return buf[:0], nil
	}
	buf = buf[:0]
	appendMatch := func(upos0, vpos0, n uint32) error {
		lo, hi := vpos0, vpos0+n-1
		if lo < vFrom {
			lo = vFrom
		}
		if hi > vTo {
			hi = vTo
		}
		for vp := lo; n > 0 && vp <= hi; vp++ {
			up := upos0 + (vp - vpos0)
			c, err := src.CharAt(start+int(up), dir)
			if err != nil {
				return err
			}
			buf = append(buf, byte(c))
		}
		return nil
	}

	if es.numElems == 0 {
		if err := appendMatch(0, 0, es.trailingMatches); err != nil {
			return nil, err
		}
		return buf, nil
	}

	r := &bitReader{buf: es.data}
	var served, upos, vpos uint32
	tag := r.readBits(es.entrySize)
	served++
	kind := misdelKind
	if tag == es.insSym() {
		kind = insKind
	}
	n, used := readLength(r, es.entrySize)
	served += uint32(used)
	if err := appendMatch(upos, vpos, n); err != nil {
		return nil, err
	}
	upos += n
	vpos += n
	for served < es.numElems && vpos <= vTo {
		e := r.readBits(es.entrySize)
		served++
		if e == es.misdelSym() || e == es.insSym() {
			if e == es.insSym() {
				kind = insKind
			} else {
				kind = misdelKind
			}
			n, used := readLength(r, es.entrySize)
			served += uint32(used)
			if err := appendMatch(upos, vpos, n); err != nil {
				return nil, err
			}
			upos += n
			vpos += n
			continue
		}
		switch kind {
		case misdelKind:
			if e == es.del {
				upos++
			} else {
				if vpos >= vFrom && vpos <= vTo {
					buf = append(buf, byte(e))
				}
				upos++
				vpos++
			}
		case insKind:
			if vpos >= vFrom && vpos <= vTo {
				buf = append(buf, byte(e))
			}
			vpos++
		}
	}
	if vpos <= vTo {
		if err := appendMatch(upos, vpos, es.trailingMatches); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// WriteTo serialises es in the wire form described in spec.md §6.1:
// entry_size, trailing_matches, del, num_elems, then the packed bytes.
func (es *Script) WriteTo(w io.Writer) (int64, error) {
	var hdr [10]byte
	hdr[0] = es.entrySize
	binary.BigEndian.PutUint32(hdr[1:5], es.trailingMatches)
	hdr[5] = byte(es.del)
	binary.BigEndian.PutUint32(hdr[6:10], es.numElems)
	n, err := w.Write(hdr[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	if es.numElems == 0 {
		return total, nil
	}
	m, err := w.Write(es.data)
	total += int64(m)
	return total, err
}

// ReadFrom replaces es's content by reading a serialised Script from r.
// es.alphabetSize must already be set (via New) so the stored del
// symbol can be validated against it; entry_size is taken as stored.
func (es *Script) ReadFrom(r io.Reader) (int64, error) {
	var hdr [10]byte
	n, err := io.ReadFull(r, hdr[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	entrySize := hdr[0]
	trailing := binary.BigEndian.Uint32(hdr[1:5])
	del := uint32(hdr[5])
	numElems := binary.BigEndian.Uint32(hdr[6:10])
	if del != es.alphabetSize {
		return total, fmt.Errorf("editscript: %w: stored alphabet size %d does not match %d", cerr.Corrupt, del, es.alphabetSize)
	}
	es.entrySize = entrySize
	es.trailingMatches = trailing
	es.del = del
	es.numElems = numElems
	if numElems == 0 {
		es.data = nil
		return total, nil
	}
	nbytes := (uint64(numElems)*uint64(entrySize) + 7) / 8
	es.data = make([]byte, nbytes)
	m, err := io.ReadFull(r, es.data)
	total += int64(m)
	return total, err
}
