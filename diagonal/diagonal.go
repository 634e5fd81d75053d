// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diagonal implements the diagonal filter (spec.md §4,
// component E) and the sliding-window seeding rule of spec.md §3's
// "Sliding window" entity: for every k-mer hit at unique-store
// position i and query position j, it looks up the last hit recorded
// on the hit's diagonal (diag = i - j). A diagonal with no prior hit
// seeds directly from this one, the same way the first encounter of a
// repeat always used to go straight to extension. A diagonal that
// already has a prior hit i' only seeds again when
// kmersize < i-i' <= windowsize: close enough to still be the same
// repeat, but far enough past the last hit that it is not simply
// another overlapping k-mer window inside an extension already tried
// from i'; the declared seed is then the midpoint ((i+i')/2, (j+j')/2)
// rather than the raw hit, per spec.md §4.5. A hit within kmersize of
// the last one (the common case while single-stepping through a
// region whose extension was rejected) is neither re-seeded nor lost:
// it still updates the recorded position, so a later hit further down
// the same diagonal measures its distance from the most recent
// attempt, not the original one. The new hit always replaces whatever
// was previously recorded on the diagonal, matching spec.md §4.5's
// "always record the new (d, i)".
//
// Two backings are provided, chosen by the span of diagonals passed to
// New: a dense slice indexed directly by diagonal offset
// when that span is small (spec.md's "Full diagonals" alternative),
// and a map-backed sparse form otherwise (the "Sparse diagonals"
// alternative). The sparse form intentionally does not replicate the C
// implementation's hand-rolled "sorted array plus addition tree,
// merged periodically" structure: Go's builtin map already gives O(1)
// insert/lookup/delete, so the periodic-compaction dance that
// structure exists to amortize has no work left to do. This is
// recorded as a deliberate simplification in DESIGN.md, not an
// omission — the externally visible seeding behaviour is the same.
package diagonal

// Index tracks, per diagonal, the unique-store position of the most
// recently recorded hit.
type Index interface {
	// Seed records a hit at unique-store position i, query position j,
	// on diagonal d = i - j, and reports whether it should seed an
	// extension attempt: either d has no prior hit (seeds directly from
	// i, j), or it has one at i' with kmersize < i-i' <= windowsize
	// (seeds from the midpoint of i,i' and j,j'). The new hit always
	// replaces whatever i' was previously recorded on d.
	Seed(d, i, j, kmersize, windowsize int64) (mi, mj int64, ok bool)
}

// denseSpanLimit is the largest (maxDiag-minDiag) span New will back
// with a dense slice before falling back to the sparse map form.
const denseSpanLimit = 1 << 20

// New returns an Index covering diagonals in [minDiag, maxDiag].
func New(minDiag, maxDiag int64) Index {
	span := maxDiag - minDiag + 1
	if span > 0 && span <= denseSpanLimit {
		last := make([]int64, span)
		for i := range last {
			last[i] = -1
		}
		return &dense{offset: minDiag, last: last}
	}
	return &sparse{last: make(map[int64]int64)}
}

type dense struct {
	offset int64
	last   []int64
}

func (d *dense) idx(diag int64) int {
	i := diag - d.offset
	return int(i)
}

func (d *dense) Seed(diag, i, j, kmersize, windowsize int64) (mi, mj int64, ok bool) {
	idx := d.idx(diag)
	if idx < 0 || idx >= len(d.last) {
		return 0, 0, false
	}
	prevI := d.last[idx]
	d.last[idx] = i
	if prevI < 0 {
		return i, j, true
	}
	delta := i - prevI
	if delta > kmersize && delta <= windowsize {
		prevJ := prevI - diag
		return (i + prevI) / 2, (j + prevJ) / 2, true
	}
	return 0, 0, false
}

// sparse is a map-backed Index for diagonal spans too wide to index
// densely (e.g. a whole-chromosome build against a distant reference).
type sparse struct {
	last map[int64]int64
}

func (s *sparse) Seed(diag, i, j, kmersize, windowsize int64) (mi, mj int64, ok bool) {
	prevI, had := s.last[diag]
	s.last[diag] = i
	if !had {
		return i, j, true
	}
	delta := i - prevI
	if delta > kmersize && delta <= windowsize {
		prevJ := prevI - diag
		return (i + prevI) / 2, (j + prevJ) / 2, true
	}
	return 0, 0, false
}

// Prune discards every tracked diagonal whose last recorded
// unique-store position is below floor, letting a build release
// memory for diagonals that can no longer interact with a
// forward-moving sliding window.
func (s *sparse) Prune(floor int64) {
	for d, v := range s.last {
		if v < floor {
			delete(s.last, d)
		}
	}
}

// Diag returns the diagonal index for a seed hit at (upos, vpos).
func Diag(upos, vpos int64) int64 { return upos - vpos }
