// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fragment implements the fragment database and binary
// container format (spec.md §4 component F, §6.1): an append-only
// table of unique fragments (sequence actually stored), an append-only
// table of link fragments (an edit-script against a unique fragment
// reconstructing a redundant copy), and a table of the original,
// un-fragmented input sequences so a flat archive position can be
// mapped back to the sequence and offset it came from.
//
// The original-sequence table is a direct descendant of
// kortschak-ins's cmd/ins/fragment.go `fragment{parent, start, end}`
// type, which recorded exactly this same "which original sequence did
// this chunk come from, and at what offset" relationship for BLAST
// query fragments; here the same shape tracks the sequences being
// compressed instead of BLAST query chunks.
//
// The container file is read back with github.com/edsrzf/mmap-go so a
// large archive does not have to be paged into the Go heap up front,
// and its description blob is optionally compressed with
// github.com/golang/snappy. Back-reference and overlap queries over
// unique fragment ranges use github.com/biogo/store/interval.IntTree,
// repurposed from kortschak-ins's BLAST-hit containment culling.
//
// The sequence-separator positions (SSP) and description-separator
// positions (DSP) spec.md §3's Data Model calls for are both persisted
// as package intset's compact int-set (component C): SSP is the N-1
// cumulative boundary positions between original sequences, and DSP is
// the num_uniques-1 cumulative boundary positions between description
// strings in the description blob. Per-sequence and per-description
// lengths are never stored directly; they are differences between
// consecutive int-set values (or between a value and the record's
// total length, for the first/last element), exactly as spec.md
// describes SSP/DSP.
package fragment

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/biogo/store/interval"
	"github.com/edsrzf/mmap-go"
	"github.com/golang/snappy"

	"github.com/gt-tools/condenseq/cerr"
	"github.com/gt-tools/condenseq/editscript"
	"github.com/gt-tools/condenseq/intset"
)

const (
	magic   = 0x63736571 // "cseq"
	version = 1
)

// SeqRecord describes one original input sequence as it was absorbed
// into the archive's flat coordinate space.
type SeqRecord struct {
	Name   string
	Start  int64 // offset of this sequence's first position in the flat space
	Length int64
}

// SeqTable maps flat archive positions back to the original sequence
// and offset they came from (spec.md's pos_to_seqnum / seqstartpos /
// seqlength operations).
type SeqTable struct {
	seqs  []SeqRecord
	total int64
}

// Add appends a new original sequence of the given length and returns
// its sequence number.
func (t *SeqTable) Add(name string, length int64) int32 {
	n := int32(len(t.seqs))
	t.seqs = append(t.seqs, SeqRecord{Name: name, Start: t.total, Length: length})
	t.total += length
	return n
}

// PosToSeqnum returns the sequence number containing flat position pos.
func (t *SeqTable) PosToSeqnum(pos int64) (int32, error) {
	i := sort.Search(len(t.seqs), func(i int) bool { return t.seqs[i].Start+t.seqs[i].Length > pos })
	if i == len(t.seqs) || pos < t.seqs[i].Start {
		return 0, fmt.Errorf("fragment: %w: position %d", cerr.RangeOutOfBounds, pos)
	}
	return int32(i), nil
}

// SeqStartPos returns the flat-space offset of seqnum's first position.
func (t *SeqTable) SeqStartPos(seqnum int32) (int64, error) {
	if seqnum < 0 || int(seqnum) >= len(t.seqs) {
		return 0, fmt.Errorf("fragment: %w: sequence number %d", cerr.RangeOutOfBounds, seqnum)
	}
	return t.seqs[seqnum].Start, nil
}

// SeqLength returns the length of seqnum.
func (t *SeqTable) SeqLength(seqnum int32) (int64, error) {
	if seqnum < 0 || int(seqnum) >= len(t.seqs) {
		return 0, fmt.Errorf("fragment: %w: sequence number %d", cerr.RangeOutOfBounds, seqnum)
	}
	return t.seqs[seqnum].Length, nil
}

// Name returns seqnum's original name.
func (t *SeqTable) Name(seqnum int32) (string, error) {
	if seqnum < 0 || int(seqnum) >= len(t.seqs) {
		return "", fmt.Errorf("fragment: %w: sequence number %d", cerr.RangeOutOfBounds, seqnum)
	}
	return t.seqs[seqnum].Name, nil
}

// NumSeqs returns the number of original sequences recorded.
func (t *SeqTable) NumSeqs() int { return len(t.seqs) }

// TotalLength returns the flat-space length of every sequence added so
// far (spec.md's orig_length).
func (t *SeqTable) TotalLength() int64 { return t.total }

// Unique is a fragment whose characters are stored directly (not
// reconstructed via an edit-script).
type Unique struct {
	SeqNum      int32
	Start       int32
	Length      int32
	Description string
	// Links holds the index of every Link fragment reconstructed from
	// this unique, in the order they were added.
	Links []int32
}

// unique satisfies interval.Interface so the database can answer
// overlap queries over unique fragment ranges, e.g. "does the window
// [a,b) of sequence s overlap any stored unique fragment".
type unique struct {
	Unique
	id interval.IntRange
}

func (u *unique) Overlap(b interval.IntRange) bool {
	return u.id.Start < b.End && b.Start < u.id.End
}
func (u *unique) ID() uintptr             { return uintptr(u.SeqNum)<<32 | uintptr(u.Start) }
func (u *unique) Range() interval.IntRange { return u.id }

// Link is a fragment reconstructed from a Unique fragment via an
// edit-script (spec.md's LinkRec, §6.1).
type Link struct {
	SeqNum       int32 // original sequence this link reconstructs a region of
	Start        int32 // offset within that sequence
	Length       int32 // reconstructed length
	UniqueID     int32 // index into DB.Uniques
	UniqueOffset int32 // offset within that unique the alignment starts at
	Orientation  editscript.ReadMode
	Script       *editscript.Script
}

// DB is an append-only fragment database.
type DB struct {
	Seqs    SeqTable
	Uniques []Unique
	Links   []Link

	tree *interval.IntTree
}

// New returns an empty fragment database.
func New() *DB {
	return &DB{tree: &interval.IntTree{}}
}

// AddUnique appends a unique fragment and returns its id. Per
// invariant I4, a new fragment that abuts the immediately preceding
// unique on the same sequence (its start coincides with the previous
// one's end) is coalesced into it instead of creating a new entry,
// matching spec.md §4.7's "Add operations assert strict ordering in
// orig_startpos and auto-coalesce consecutive uniques".
func (db *DB) AddUnique(seqnum, start, length int32, desc string) int32 {
	if n := len(db.Uniques); n > 0 {
		last := &db.Uniques[n-1]
		if last.SeqNum == seqnum && last.Start+last.Length == start {
			oldEnd := int(last.Start + last.Length)
			db.tree.Delete(&unique{Unique: *last, id: interval.IntRange{Start: int(last.Start), End: oldEnd}}, false)
			last.Length += length
			db.tree.Insert(&unique{Unique: *last, id: interval.IntRange{Start: int(last.Start), End: int(last.Start + last.Length)}}, false)
			return int32(n - 1)
		}
	}
	id := int32(len(db.Uniques))
	u := Unique{SeqNum: seqnum, Start: start, Length: length, Description: desc}
	db.Uniques = append(db.Uniques, u)
	db.tree.Insert(&unique{Unique: u, id: interval.IntRange{Start: int(start), End: int(start + length)}}, false)
	return id
}

// AddLink appends a link fragment reconstructing [start, start+length)
// of sequence seqnum from unique fragment uniqueID starting at
// uniqueOffset within it, and returns the link's id.
func (db *DB) AddLink(seqnum, start, length, uniqueID, uniqueOffset int32, dir editscript.ReadMode, es *editscript.Script) int32 {
	id := int32(len(db.Links))
	db.Links = append(db.Links, Link{
		SeqNum:       seqnum,
		Start:        start,
		Length:       length,
		UniqueID:     uniqueID,
		UniqueOffset: uniqueOffset,
		Orientation:  dir,
		Script:       es,
	})
	db.Uniques[uniqueID].Links = append(db.Uniques[uniqueID].Links, id)
	return id
}

// FragmentEntry is one element of the ordered fragment list
// FragmentsForSeq returns: either a Unique or a Link, tagged by IsLink.
type FragmentEntry struct {
	IsLink bool
	ID     int32 // index into Uniques or Links, per IsLink
	Start  int32
	Length int32
}

// FragmentsForSeq returns every Unique and Link fragment belonging to
// seqnum, sorted by Start. Per invariant I1/I2, these ranges are
// disjoint and, together with the (unmaterialised) separator slots
// between sequences, cover the whole sequence exactly once — the
// structure the extraction engine (package extract) walks a cursor
// over.
func (db *DB) FragmentsForSeq(seqnum int32) []FragmentEntry {
	var out []FragmentEntry
	for i, u := range db.Uniques {
		if u.SeqNum == seqnum {
			out = append(out, FragmentEntry{ID: int32(i), Start: u.Start, Length: u.Length})
		}
	}
	for i, l := range db.Links {
		if l.SeqNum == seqnum {
			out = append(out, FragmentEntry{IsLink: true, ID: int32(i), Start: l.Start, Length: l.Length})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Overlapping returns every unique fragment whose [start, start+length)
// range on its sequence overlaps [from, to).
func (db *DB) Overlapping(seqnum int32, from, to int32) []Unique {
	var out []Unique
	db.tree.DoMatching(func(iv interval.IntInterface) bool {
		u := iv.(*unique)
		if u.SeqNum == seqnum {
			out = append(out, u.Unique)
		}
		return false
	}, interval.IntRange{Start: int(from), End: int(to)})
	return out
}

// UniqueAt returns the unique fragment with id.
func (db *DB) UniqueAt(id int32) (Unique, error) {
	if id < 0 || int(id) >= len(db.Uniques) {
		return Unique{}, fmt.Errorf("fragment: %w: unique id %d", cerr.RangeOutOfBounds, id)
	}
	return db.Uniques[id], nil
}

// LinkAt returns the link fragment with id.
func (db *DB) LinkAt(id int32) (Link, error) {
	if id < 0 || int(id) >= len(db.Links) {
		return Link{}, fmt.Errorf("fragment: %w: link id %d", cerr.RangeOutOfBounds, id)
	}
	return db.Links[id], nil
}

// UniqueUESOffset returns unique fragment id's starting offset in the
// flat unique store (the companion .esq file SaveUES/OpenUES read and
// write). Uniques are appended to the store in the same order they
// are added to the database, so this offset is simply the sum of the
// lengths of every unique fragment before id — there is no need to
// persist it separately in the container.
func (db *DB) UniqueUESOffset(id int32) int32 {
	var off int32
	for i := int32(0); i < id; i++ {
		off += db.Uniques[i].Length
	}
	return off
}

// Description returns the FASTA description of unique fragment id.
func (db *DB) Description(id int32) (string, error) {
	u, err := db.UniqueAt(id)
	if err != nil {
		return "", err
	}
	return u.Description, nil
}

// --- container (.cse) I/O ---

// Save writes db to path in the container wire form described in
// spec.md §6.1. descriptions are snappy-compressed when doing so
// shrinks the blob.
func Save(path string, db *DB) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fragment: %w: %v", cerr.Io, err)
	}
	defer f.Close()

	var descBlob []byte
	descLens := make([]uint32, len(db.Uniques))
	for i, u := range db.Uniques {
		descBlob = append(descBlob, u.Description...)
		descLens[i] = uint32(len(u.Description))
	}
	compressed := snappy.Encode(nil, descBlob)
	useCompressed := len(compressed) < len(descBlob)
	storedBlob := descBlob
	if useCompressed {
		storedBlob = compressed
	}

	// ssp holds the N-1 cumulative boundary positions between original
	// sequences (spec.md §3's SSP); per-sequence lengths are recovered
	// from it on read rather than stored directly.
	numSeqs := db.Seqs.NumSeqs()
	var ssp *intset.Set
	if numSeqs > 1 {
		ssp = intset.New(uint64(db.Seqs.TotalLength()), uint64(numSeqs-1))
		var cum int64
		for i := 0; i < numSeqs-1; i++ {
			cum += db.Seqs.seqs[i].Length
			if err := ssp.Add(uint64(cum)); err != nil {
				return fmt.Errorf("fragment: %w: %v", cerr.Corrupt, err)
			}
		}
	}

	// dsp holds the num_uniques-1 cumulative boundary positions between
	// description strings in descBlob (spec.md §3's DSP); the same way,
	// per-description offsets/lengths are recovered from it on read.
	numUniques := len(db.Uniques)
	var dsp *intset.Set
	if numUniques > 1 {
		dsp = intset.New(uint64(len(descBlob)), uint64(numUniques-1))
		var cum uint32
		for i := 0; i < numUniques-1; i++ {
			cum += descLens[i]
			if err := dsp.Add(uint64(cum)); err != nil {
				return fmt.Errorf("fragment: %w: %v", cerr.Corrupt, err)
			}
		}
	}

	w := newCountingWriter(f)
	putU32 := func(v uint32) { binary.Write(w, binary.BigEndian, v) }
	putU64 := func(v uint64) { binary.Write(w, binary.BigEndian, v) }
	putU8 := func(v uint8) { binary.Write(w, binary.BigEndian, v) }

	putU32(magic)
	putU32(version)
	putU64(uint64(db.Seqs.TotalLength()))
	putU32(uint32(numSeqs))
	putU32(uint32(numUniques))
	putU32(uint32(len(db.Links)))
	putU32(uint32(len(descBlob)))
	if useCompressed {
		putU8(1)
	} else {
		putU8(0)
	}
	putU32(uint32(len(storedBlob)))

	for _, s := range db.Seqs.seqs {
		putU32(uint32(len(s.Name)))
		io.WriteString(w, s.Name)
	}
	if ssp != nil {
		if _, err := ssp.WriteTo(w); err != nil {
			return fmt.Errorf("fragment: %w: %v", cerr.Io, err)
		}
	}
	for _, u := range db.Uniques {
		putU32(uint32(u.SeqNum))
		putU32(uint32(u.Start))
		putU32(uint32(u.Length))
	}
	if dsp != nil {
		if _, err := dsp.WriteTo(w); err != nil {
			return fmt.Errorf("fragment: %w: %v", cerr.Io, err)
		}
	}
	for _, l := range db.Links {
		putU32(uint32(l.SeqNum))
		putU32(uint32(l.Start))
		putU32(uint32(l.Length))
		putU32(uint32(l.UniqueID))
		putU32(uint32(l.UniqueOffset))
		putU8(uint8(l.Orientation))
		var buf countingBuf
		if _, err := l.Script.WriteTo(&buf); err != nil {
			return fmt.Errorf("fragment: %w: %v", cerr.Io, err)
		}
		putU32(uint32(len(buf.b)))
		w.Write(buf.b)
	}
	w.Write(storedBlob)

	if w.err != nil {
		return fmt.Errorf("fragment: %w: %v", cerr.Io, w.err)
	}
	return nil
}

// Reader is a read-only, memory-mapped view of a saved container.
type Reader struct {
	f    *os.File
	data mmap.MMap

	Seqs    SeqTable
	Uniques []Unique
	Links   []Link
	db      *DB
}

// Open memory-maps path and parses its container header and tables.
func Open(path string, alphabetSize uint32) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fragment: %w: %v", cerr.Io, err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("fragment: %w: %v", cerr.Io, err)
	}

	r := &Reader{f: f, data: data}
	cur := 0
	readU32 := func() uint32 {
		v := binary.BigEndian.Uint32(data[cur : cur+4])
		cur += 4
		return v
	}
	readU64 := func() uint64 {
		v := binary.BigEndian.Uint64(data[cur : cur+8])
		cur += 8
		return v
	}
	readU8 := func() uint8 {
		v := data[cur]
		cur++
		return v
	}

	if readU32() != magic {
		data.Unmap()
		f.Close()
		return nil, fmt.Errorf("fragment: %w: bad magic", cerr.Corrupt)
	}
	if v := readU32(); v != version {
		data.Unmap()
		f.Close()
		return nil, fmt.Errorf("fragment: %w: unsupported version %d", cerr.Corrupt, v)
	}
	totalLength := readU64()
	numSeqs := readU32()
	numUniques := readU32()
	numLinks := readU32()
	descLen := readU32()
	descCompressed := readU8()
	storedLen := readU32()

	names := make([]string, numSeqs)
	for i := uint32(0); i < numSeqs; i++ {
		nameLen := readU32()
		names[i] = string(data[cur : cur+int(nameLen)])
		cur += int(nameLen)
	}

	var ssp *intset.Set
	if numSeqs > 1 {
		var n int64
		ssp, n, err = intset.ReadFrom(&byteReader{data[cur:]})
		if err != nil {
			data.Unmap()
			f.Close()
			return nil, err
		}
		cur += int(n)
	}

	db := New()
	var prevBoundary int64
	for i := uint32(0); i < numSeqs; i++ {
		var length int64
		switch {
		case numSeqs == 1:
			length = int64(totalLength)
		case i < numSeqs-1:
			boundary, err := ssp.Get(int(i))
			if err != nil {
				data.Unmap()
				f.Close()
				return nil, err
			}
			length = int64(boundary) - prevBoundary
			prevBoundary = int64(boundary)
		default:
			length = int64(totalLength) - prevBoundary
		}
		db.Seqs.Add(names[i], length)
	}

	type seqLen struct{ seqnum, start, length uint32 }
	rawUniques := make([]seqLen, numUniques)
	for i := uint32(0); i < numUniques; i++ {
		rawUniques[i] = seqLen{readU32(), readU32(), readU32()}
	}

	var dsp *intset.Set
	if numUniques > 1 {
		var n int64
		dsp, n, err = intset.ReadFrom(&byteReader{data[cur:]})
		if err != nil {
			data.Unmap()
			f.Close()
			return nil, err
		}
		cur += int(n)
	}

	type descRef struct{ off, n uint32 }
	descs := make([]descRef, numUniques)
	var prevDescBoundary uint32
	for i := uint32(0); i < numUniques; i++ {
		var off, n uint32
		switch {
		case numUniques == 1:
			off, n = 0, descLen
		case i < numUniques-1:
			boundary, err := dsp.Get(int(i))
			if err != nil {
				data.Unmap()
				f.Close()
				return nil, err
			}
			off, n = prevDescBoundary, uint32(boundary)-prevDescBoundary
			prevDescBoundary = uint32(boundary)
		default:
			off, n = prevDescBoundary, descLen-prevDescBoundary
		}
		descs[i] = descRef{off, n}
		u := rawUniques[i]
		db.AddUnique(int32(u.seqnum), int32(u.start), int32(u.length), "")
	}

	for i := uint32(0); i < numLinks; i++ {
		seqnum := readU32()
		start := readU32()
		length := readU32()
		uniqueID := readU32()
		uniqueOffset := readU32()
		orientation := readU8()
		esLen := readU32()
		esData := data[cur : cur+int(esLen)]
		cur += int(esLen)
		es, err := editscript.New(alphabetSize)
		if err != nil {
			data.Unmap()
			f.Close()
			return nil, err
		}
		if _, err := es.ReadFrom(&byteReader{esData}); err != nil {
			data.Unmap()
			f.Close()
			return nil, err
		}
		db.AddLink(int32(seqnum), int32(start), int32(length), int32(uniqueID), int32(uniqueOffset), editscript.ReadMode(orientation), es)
	}

	blob := data[cur : cur+int(storedLen)]
	if descCompressed == 1 {
		decoded, err := snappy.Decode(nil, blob)
		if err != nil {
			data.Unmap()
			f.Close()
			return nil, fmt.Errorf("fragment: %w: %v", cerr.Corrupt, err)
		}
		blob = decoded
	}
	for i, d := range descs {
		db.Uniques[i].Description = string(blob[d.off : d.off+d.n])
	}

	r.db = db
	r.Seqs = db.Seqs
	r.Uniques = db.Uniques
	r.Links = db.Links
	return r, nil
}

// DB returns the parsed database backing r.
func (r *Reader) DB() *DB { return r.db }

// Close unmaps and closes the underlying file.
func (r *Reader) Close() error {
	if err := r.data.Unmap(); err != nil {
		return err
	}
	return r.f.Close()
}

type byteReader struct{ b []byte }

func (r *byteReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b)
	r.b = r.b[n:]
	return n, nil
}

type countingBuf struct{ b []byte }

func (c *countingBuf) Write(p []byte) (int, error) {
	c.b = append(c.b, p...)
	return len(p), nil
}

type countingWriter struct {
	w   io.Writer
	err error
}

func newCountingWriter(w io.Writer) *countingWriter { return &countingWriter{w: w} }

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	if err != nil {
		c.err = err
	}
	return n, err
}

// uesMagic/wildcardCode mark the companion .esq file (spec.md §6.1's
// "external encoder" unique store) and the sentinel byte value
// recording a wildcard position; AlphabetSize is never big enough to
// collide with it.
const (
	uesMagic     = 0x63736573 // "cses"
	wildcardCode = 0xff
)

// SaveUES writes the flat concatenation of every unique fragment's
// characters to path (conventionally path+".esq"), one byte per
// position: the alphabet code, or wildcardCode for a wildcard.
func SaveUES(path string, codes []byte, wildcards []bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fragment: %w: %v", cerr.Io, err)
	}
	defer f.Close()

	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uesMagic)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(codes)))
	if _, err := f.Write(hdr[:]); err != nil {
		return fmt.Errorf("fragment: %w: %v", cerr.Io, err)
	}

	buf := make([]byte, len(codes))
	for i, c := range codes {
		if wildcards[i] {
			buf[i] = wildcardCode
		} else {
			buf[i] = c
		}
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("fragment: %w: %v", cerr.Io, err)
	}
	return nil
}

// UES is a memory-mapped, read-only view of the unique store a build
// wrote with SaveUES. It satisfies editscript.CharSource directly, so
// the extraction engine can decode link fragments straight out of the
// mapped file.
type UES struct {
	f    *os.File
	data mmap.MMap
}

// OpenUES memory-maps the unique store at path.
func OpenUES(path string) (*UES, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fragment: %w: %v", cerr.Io, err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("fragment: %w: %v", cerr.Io, err)
	}
	if len(data) < 8 || binary.BigEndian.Uint32(data[0:4]) != uesMagic {
		data.Unmap()
		f.Close()
		return nil, fmt.Errorf("fragment: %w: bad unique store magic", cerr.Corrupt)
	}
	return &UES{f: f, data: data}, nil
}

// Len returns the number of positions in the unique store.
func (u *UES) Len() int { return int(binary.BigEndian.Uint32(u.data[4:8])) }

// CharAt implements editscript.CharSource. Reverse reads the
// Watson-Crick complement, matching encseq.Sequence's convention.
func (u *UES) CharAt(pos int, dir editscript.ReadMode) (uint32, error) {
	n := u.Len()
	if pos < 0 || pos >= n {
		return 0, fmt.Errorf("fragment: %w: unique store position %d", cerr.RangeOutOfBounds, pos)
	}
	if dir == editscript.Forward {
		c := u.data[8+pos]
		if c == wildcardCode {
			return editscript.Wildcard, nil
		}
		return uint32(c), nil
	}
	c := u.data[8+n-1-pos]
	if c == wildcardCode {
		return editscript.Wildcard, nil
	}
	return 3 - uint32(c), nil
}

// Close unmaps and closes the underlying file.
func (u *UES) Close() error {
	if err := u.data.Unmap(); err != nil {
		return err
	}
	return u.f.Close()
}
