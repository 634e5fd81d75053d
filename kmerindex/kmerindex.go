// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kmerindex implements the k-mer seeding index (spec.md §4,
// component D): an ordered map from k-mer code to the sorted list of
// positions at which it occurs in the unique-fragment archive so far,
// with buffered insertion, a prune-by-cutoff protocol for
// over-represented k-mers, and a mean-based cutoff derived from the
// occurrence-count distribution.
//
// It is grounded directly on kortschak-ins's own use of modernc.org/kv:
// cmd/ins/fragment.go and cmd/ins/blast.go build a kv.DB with a
// package-level comparator and batch writes inside BeginTransaction/
// Commit pairs of a fixed batch size; internal/store/store.go supplies
// the comparator-and-marshalled-key idiom this package's kmerKey
// follows. There the kv.DB held BLAST hit records; here it holds
// (k-mer code, position) pairs, so the "hit aggregation" store becomes
// the seeding index instead.
package kmerindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
	"modernc.org/kv"

	"github.com/gt-tools/condenseq/cerr"
)

// batchSize is the number of buffered Set calls between transaction
// commits, matching the "const batch = 100" idiom in cmd/ins/fragment.go.
const batchSize = 100

// compareKey orders (code, position) pairs lexicographically by their
// fixed-width big-endian encoding, which is already numeric order for
// both fields — simpler than kortschak-ins's record comparator since
// this key has no variable-length components to marshal around.
func compareKey(x, y []byte) int { return bytes.Compare(x, y) }

// Index is an on-disk or in-memory ordered k-mer position index.
type Index struct {
	db       *kv.DB
	k        int
	inTx     bool
	buffered int
}

func kmerKey(code, pos uint64) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], code)
	binary.BigEndian.PutUint64(b[8:], pos)
	return b[:]
}

func splitKey(k []byte) (code, pos uint64) {
	return binary.BigEndian.Uint64(k[:8]), binary.BigEndian.Uint64(k[8:])
}

// Create makes a new on-disk index at path for k-mers of length k.
func Create(path string, k int) (*Index, error) {
	db, err := kv.Create(path, &kv.Options{Compare: compareKey})
	if err != nil {
		return nil, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	return &Index{db: db, k: k}, nil
}

// CreateMem makes a new in-memory index for k-mers of length k, used
// by tests and by small builds that do not need to spill to disk.
func CreateMem(k int) (*Index, error) {
	db, err := kv.CreateMem(&kv.Options{Compare: compareKey})
	if err != nil {
		return nil, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	return &Index{db: db, k: k}, nil
}

// Open opens an existing on-disk index at path.
func Open(path string, k int) (*Index, error) {
	db, err := kv.Open(path, &kv.Options{Compare: compareKey})
	if err != nil {
		return nil, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	return &Index{db: db, k: k}, nil
}

// Close flushes any buffered transaction and closes the underlying
// store.
func (idx *Index) Close() error {
	if err := idx.Flush(); err != nil {
		return err
	}
	return idx.db.Close()
}

// K returns the k-mer length this index was built for.
func (idx *Index) K() int { return idx.k }

// Add records one occurrence of the k-mer code at position pos,
// together with the id of the unique fragment that position belongs
// to, buffering writes inside a transaction and committing every
// batchSize calls, mirroring the transaction batching in
// cmd/ins/fragment.go's merge loop. The unique id is stored as the
// value half of the (code, pos) key, implementing spec.md §3's
// "positions[], unique_ids[] — parallel flat vectors" as a single
// ordered store keyed on the first vector, rather than two separate
// arrays: modernc.org/kv already gives O(1) association between a key
// and its value, so a second parallel slice would only duplicate that
// bookkeeping.
func (idx *Index) Add(code, pos, uniqueID uint64) error {
	if !idx.inTx {
		if err := idx.db.BeginTransaction(); err != nil {
			return fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
		}
		idx.inTx = true
	}
	if err := idx.db.Set(kmerKey(code, pos), encodeUniqueID(uniqueID)); err != nil {
		return fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	idx.buffered++
	if idx.buffered >= batchSize {
		if err := idx.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// AddInterval records an occurrence of code at every position in
// [from, from+n), all belonging to uniqueID, used when a caller
// already knows a run of identical overlapping k-mer positions (e.g.
// a homopolymer run) and wants to avoid per-position call overhead.
func (idx *Index) AddInterval(code uint64, from, n, uniqueID uint64) error {
	for i := uint64(0); i < n; i++ {
		if err := idx.Add(code, from+i, uniqueID); err != nil {
			return err
		}
	}
	return nil
}

func encodeUniqueID(id uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b[:]
}

func decodeUniqueID(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Flush commits any buffered transaction.
func (idx *Index) Flush() error {
	if !idx.inTx {
		return nil
	}
	idx.inTx = false
	idx.buffered = 0
	if err := idx.db.Commit(); err != nil {
		return fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	return nil
}

// GetStartPos returns the smallest recorded position for code, along
// with the id of the unique fragment that position was registered
// under, sparing callers the O(n) scan over every known unique that
// would otherwise be needed to answer "which unique contains this
// k-mer hit?" (spec.md §3's unique_ids[] vector, described above Add).
func (idx *Index) GetStartPos(code uint64) (pos, uniqueID uint64, ok bool, err error) {
	if err := idx.Flush(); err != nil {
		return 0, 0, false, err
	}
	it, _, err := idx.db.Seek(kmerKey(code, 0))
	if err != nil {
		return 0, 0, false, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	k, v, err := it.Next()
	if err == io.EOF {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	gotCode, gotPos := splitKey(k)
	if gotCode != code {
		return 0, 0, false, nil
	}
	return gotPos, decodeUniqueID(v), true, nil
}

// Positions returns every recorded position for code, in ascending
// order.
func (idx *Index) Positions(code uint64) ([]uint64, error) {
	if err := idx.Flush(); err != nil {
		return nil, err
	}
	it, _, err := idx.db.Seek(kmerKey(code, 0))
	if err != nil {
		return nil, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	var out []uint64
	for {
		k, _, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
		}
		gotCode, gotPos := splitKey(k)
		if gotCode != code {
			break
		}
		out = append(out, gotPos)
	}
	return out, nil
}

// Counts walks the whole index and returns, for every distinct k-mer
// code present, how many positions it occurs at.
func (idx *Index) Counts() (codes []uint64, counts []int, err error) {
	if err := idx.Flush(); err != nil {
		return nil, nil, err
	}
	it, err := idx.db.SeekFirst()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	var cur uint64
	have := false
	n := 0
	for {
		k, _, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
		}
		code, _ := splitKey(k)
		if !have {
			cur, have = code, true
			n = 1
			continue
		}
		if code == cur {
			n++
			continue
		}
		codes = append(codes, cur)
		counts = append(counts, n)
		cur, n = code, 1
	}
	if have {
		codes = append(codes, cur)
		counts = append(counts, n)
	}
	return codes, counts, nil
}

// Prune deletes every position entry for k-mers that occur strictly
// more than cutoff times, suppressing over-represented seeds the way
// spec.md §4 describes for the seeding index's repeat filter.
func (idx *Index) Prune(cutoff int) (removed int, err error) {
	codes, counts, err := idx.Counts()
	if err != nil {
		return 0, err
	}
	for i, code := range codes {
		if counts[i] <= cutoff {
			continue
		}
		positions, err := idx.Positions(code)
		if err != nil {
			return removed, err
		}
		for _, pos := range positions {
			if err := idx.db.Delete(kmerKey(code, pos)); err != nil {
				return removed, fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
			}
			removed++
		}
	}
	return removed, nil
}

// MeanCutoff computes the mean occurrence count across all distinct
// k-mers using gonum's stat.Mean, then prunes every k-mer occurring
// more than factor times that mean. A factor of 1 prunes everything
// above average; the caller typically uses a larger factor (e.g. 10)
// to only suppress extreme outliers such as low-complexity repeats.
func (idx *Index) MeanCutoff(factor float64) (cutoff int, removed int, err error) {
	_, counts, err := idx.Counts()
	if err != nil {
		return 0, 0, err
	}
	if len(counts) == 0 {
		return 0, 0, nil
	}
	weights := make([]float64, len(counts))
	data := make([]float64, len(counts))
	for i, c := range counts {
		data[i] = float64(c)
		weights[i] = 1
	}
	mean := stat.Mean(data, weights)
	cutoff = int(mean * factor)
	removed, err = idx.Prune(cutoff)
	return cutoff, removed, err
}

// CheckConsistency scans the whole index verifying that keys are
// strictly ascending, a supplemented diagnostic (SPEC_FULL.md §C.2)
// not present in the distilled spec but cheap to provide given the
// ordered-store backing.
func (idx *Index) CheckConsistency() error {
	if err := idx.Flush(); err != nil {
		return err
	}
	it, err := idx.db.SeekFirst()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
	}
	var prev []byte
	for {
		k, _, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("kmerindex: %w: %v", cerr.Io, err)
		}
		if prev != nil && compareKey(prev, k) >= 0 {
			return fmt.Errorf("kmerindex: %w: keys out of order", cerr.Corrupt)
		}
		prev = append(prev[:0], k...)
	}
}

// Compare reports whether a and b hold the same k-mer codes with the
// same occurrence count each, a supplemented diagnostic; the positions
// themselves are not compared.
func Compare(a, b *Index) (equal bool, err error) {
	ca, cta, err := a.Counts()
	if err != nil {
		return false, err
	}
	cb, ctb, err := b.Counts()
	if err != nil {
		return false, err
	}
	if len(ca) != len(cb) {
		return false, nil
	}
	for i := range ca {
		if ca[i] != cb[i] || cta[i] != ctb[i] {
			return false, nil
		}
	}
	return true, nil
}
