// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package intset implements a compact, append-only set of ascending
// non-negative integers (spec.md §4.2, component C), used by package
// fragment to record the sequence and description boundary positions
// of a saved container. Three backing representations
// are chosen automatically by width, mirroring the dispatch in
// GenomeTools' intset_combined.c: a direct sorted array of 8- or
// 16-bit values when the value range is small enough to make the
// overhead of a split representation pointless, and an
// Elias-Fano-flavoured high/low split for everything larger. The
// intset_8/16/32.c sources this dispatch is grounded on were not
// present in the retrieval pack, so the Elias-Fano half of this
// package follows the general technique rather than a specific file
// (see DESIGN.md).
package intset

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"sort"

	"github.com/gt-tools/condenseq/cerr"
)

// magic tags the serialised form so ReadFrom can reject data written
// by an incompatible representation.
const magic = 0x63736931 // "csi1"

type repKind uint8

const (
	rep8 repKind = iota
	rep16
	repEF
)

// Set is a compact set of ascending uint64 values in [0, maxPos].
type Set struct {
	maxPos uint64
	kind   repKind

	// rep8 / rep16
	small []uint32

	// repEF
	lowBits     uint8
	lowMask     uint64
	numBuckets  uint64
	low         []uint32
	bucketStart []uint32
	lastBucket  uint64
	lastSet     bool
}

// New returns an empty Set sized for up to n values in [0, maxPos],
// choosing the most compact of the three representations. This is the
// Go analogue of gt_intset_best_new's factory dispatch.
func New(maxPos, n uint64) *Set {
	s := &Set{maxPos: maxPos}
	switch {
	case maxPos < 1<<8:
		s.kind = rep8
		s.small = make([]uint32, 0, n)
	case maxPos < 1<<16:
		s.kind = rep16
		s.small = make([]uint32, 0, n)
	default:
		s.kind = repEF
		lowBits := 0
		if n > 0 {
			ratio := maxPos / n
			if ratio > 1 {
				lowBits = bits.Len64(ratio) - 1
			}
		}
		if lowBits > 32 {
			lowBits = 32
		}
		s.lowBits = uint8(lowBits)
		s.lowMask = 1<<uint(lowBits) - 1
		s.numBuckets = (maxPos >> uint(lowBits)) + 2
		s.low = make([]uint32, 0, n)
		s.bucketStart = make([]uint32, s.numBuckets+1)
	}
	return s
}

// Add appends val, which must be >= every value already added and
// <= maxPos.
func (s *Set) Add(val uint64) error {
	if val > s.maxPos {
		return fmt.Errorf("intset: %w: value %d exceeds max %d", cerr.RangeOutOfBounds, val, s.maxPos)
	}
	switch s.kind {
	case rep8, rep16:
		if len(s.small) > 0 && uint64(s.small[len(s.small)-1]) > val {
			return fmt.Errorf("intset: %w: values must be added in non-decreasing order", cerr.InvalidArgument)
		}
		s.small = append(s.small, uint32(val))
		return nil
	default:
		bucket := val >> uint(s.lowBits)
		if s.lastSet && bucket < s.lastBucket {
			return fmt.Errorf("intset: %w: values must be added in non-decreasing order", cerr.InvalidArgument)
		}
		start := s.lastBucket + 1
		if !s.lastSet {
			start = 0
		}
		idx := uint32(len(s.low))
		for b := start; b <= bucket; b++ {
			s.bucketStart[b] = idx
		}
		s.lastBucket = bucket
		s.lastSet = true
		s.low = append(s.low, uint32(val&s.lowMask))
		return nil
	}
}

// finalizeBuckets fills the tail of bucketStart once no more values
// will be added, so GetIdxSmallestGEQ can treat it as a dense index.
func (s *Set) finalizeBuckets() {
	if s.kind != repEF {
		return
	}
	n := uint32(len(s.low))
	start := uint64(0)
	if s.lastSet {
		start = s.lastBucket + 1
	}
	for b := start; b <= s.numBuckets; b++ {
		s.bucketStart[b] = n
	}
}

// Len returns the number of values stored.
func (s *Set) Len() int {
	if s.kind == repEF {
		return len(s.low)
	}
	return len(s.small)
}

// Get returns the idx-th smallest value in the set.
func (s *Set) Get(idx int) (uint64, error) {
	if idx < 0 || idx >= s.Len() {
		return 0, fmt.Errorf("intset: %w: index %d", cerr.RangeOutOfBounds, idx)
	}
	if s.kind != repEF {
		return uint64(s.small[idx]), nil
	}
	s.finalizeBuckets()
	bucket := sort.Search(int(s.numBuckets)+1, func(b int) bool {
		return s.bucketStart[b] > uint32(idx)
	}) - 1
	return uint64(bucket)<<uint(s.lowBits) | uint64(s.low[idx]), nil
}

// GetIdxSmallestGEQ returns the index of the smallest stored value
// that is >= val, and whether one exists.
func (s *Set) GetIdxSmallestGEQ(val uint64) (idx int, ok bool) {
	if s.kind != repEF {
		i := sort.Search(len(s.small), func(i int) bool { return uint64(s.small[i]) >= val })
		if i == len(s.small) {
			return 0, false
		}
		return i, true
	}
	s.finalizeBuckets()
	if val > s.maxPos {
		return 0, false
	}
	bucket := val >> uint(s.lowBits)
	if bucket > s.numBuckets {
		return 0, false
	}
	lowVal := uint32(val & s.lowMask)
	start, end := s.bucketStart[bucket], s.bucketStart[bucket+1]
	for i := start; i < end; i++ {
		if s.low[i] >= lowVal {
			return int(i), true
		}
	}
	if int(end) >= len(s.low) {
		return 0, false
	}
	return int(end), true
}

// SizeOfRep returns the number of bytes occupied by the value payload
// (excluding the fixed struct overhead reported by SizeOfStruct).
func (s *Set) SizeOfRep() int {
	switch s.kind {
	case rep8:
		return len(s.small)
	case rep16:
		return len(s.small) * 2
	default:
		s.finalizeBuckets()
		return len(s.low)*4 + len(s.bucketStart)*4
	}
}

// SizeOfStruct returns the fixed, representation-independent struct
// overhead, matching GenomeTools' size accounting split.
func (s *Set) SizeOfStruct() int { return 32 }

// MemorySize returns SizeOfStruct()+SizeOfRep().
func (s *Set) MemorySize() int { return s.SizeOfStruct() + s.SizeOfRep() }

// WriteTo serialises s in a magic-tagged wire form.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	s.finalizeBuckets()
	var hdr [24]byte
	binary.BigEndian.PutUint32(hdr[0:4], magic)
	hdr[4] = byte(s.kind)
	hdr[5] = s.lowBits
	binary.BigEndian.PutUint64(hdr[6:14], s.maxPos)
	binary.BigEndian.PutUint64(hdr[14:22], s.numBuckets)
	binary.BigEndian.PutUint16(hdr[22:24], 0)
	n, err := w.Write(hdr[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	var count [4]byte
	switch s.kind {
	case rep8, rep16:
		binary.BigEndian.PutUint32(count[:], uint32(len(s.small)))
		m, err := w.Write(count[:])
		total += int64(m)
		if err != nil {
			return total, err
		}
		for _, v := range s.small {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], v)
			m, err := w.Write(b[:])
			total += int64(m)
			if err != nil {
				return total, err
			}
		}
	default:
		binary.BigEndian.PutUint32(count[:], uint32(len(s.low)))
		m, err := w.Write(count[:])
		total += int64(m)
		if err != nil {
			return total, err
		}
		for _, v := range s.low {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], v)
			m, err := w.Write(b[:])
			total += int64(m)
			if err != nil {
				return total, err
			}
		}
		for _, v := range s.bucketStart {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], v)
			m, err := w.Write(b[:])
			total += int64(m)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// ReadFrom replaces s's content by reading a serialised Set from r.
func ReadFrom(r io.Reader) (*Set, int64, error) {
	var hdr [24]byte
	n, err := io.ReadFull(r, hdr[:])
	total := int64(n)
	if err != nil {
		return nil, total, err
	}
	if binary.BigEndian.Uint32(hdr[0:4]) != magic {
		return nil, total, fmt.Errorf("intset: %w: bad magic", cerr.Corrupt)
	}
	s := &Set{
		kind:       repKind(hdr[4]),
		lowBits:    hdr[5],
		maxPos:     binary.BigEndian.Uint64(hdr[6:14]),
		numBuckets: binary.BigEndian.Uint64(hdr[14:22]),
	}
	s.lowMask = 1<<uint(s.lowBits) - 1

	var count [4]byte
	m, err := io.ReadFull(r, count[:])
	total += int64(m)
	if err != nil {
		return nil, total, err
	}
	cnt := binary.BigEndian.Uint32(count[:])

	readU32s := func(n uint32) ([]uint32, error) {
		out := make([]uint32, n)
		var b [4]byte
		for i := range out {
			m, err := io.ReadFull(r, b[:])
			total += int64(m)
			if err != nil {
				return nil, err
			}
			out[i] = binary.BigEndian.Uint32(b[:])
		}
		return out, nil
	}

	switch s.kind {
	case rep8, rep16:
		s.small, err = readU32s(cnt)
		if err != nil {
			return nil, total, err
		}
	case repEF:
		s.low, err = readU32s(cnt)
		if err != nil {
			return nil, total, err
		}
		s.bucketStart, err = readU32s(uint32(s.numBuckets + 1))
		if err != nil {
			return nil, total, err
		}
		if len(s.low) > 0 {
			s.lastSet = true
			s.lastBucket = s.numBuckets
		}
	default:
		return nil, total, fmt.Errorf("intset: %w: unknown representation %d", cerr.Corrupt, s.kind)
	}
	return s, total, nil
}
