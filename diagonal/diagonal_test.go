// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diagonal

import "testing"

func TestDenseSeedMidpoint(t *testing.T) {
	idx := New(-10, 10)
	d := Diag(100, 100) // diagonal 0

	// A fresh diagonal seeds directly from its first hit.
	mi, mj, ok := idx.Seed(d, 100, 100, 4, 20)
	if !ok || mi != 100 || mj != 100 {
		t.Fatalf("Seed on a fresh diagonal = (%d,%d,%v), want (100,100,true)", mi, mj, ok)
	}

	// A second hit only 2 positions later (<= kmersize) is still inside
	// the first hit's own k-mer: too close to re-seed, though it still
	// updates the recorded position.
	if _, _, ok := idx.Seed(d, 102, 102, 4, 20); ok {
		t.Fatalf("expected no seed for a hit within kmersize of the last one")
	}

	// A hit 12 positions past THAT (measured from the position just
	// recorded above, not the original one) should seed at the
	// midpoint between the two hits.
	mi, mj, ok = idx.Seed(d, 114, 114, 4, 20)
	if !ok {
		t.Fatalf("expected a midpoint seed for a hit within the window")
	}
	if mi != 108 || mj != 108 {
		t.Fatalf("midpoint seed = (%d,%d), want (108,108)", mi, mj)
	}

	// A hit far beyond the window should not seed, only re-record.
	if _, _, ok := idx.Seed(d, 500, 500, 4, 20); ok {
		t.Fatalf("expected no seed for a hit beyond the window")
	}
}

func TestSparsePrune(t *testing.T) {
	s := &sparse{last: make(map[int64]int64)}
	s.last[1] = 10
	s.last[2] = 1000
	s.Prune(500)
	if _, ok := s.last[1]; ok {
		t.Fatalf("diagonal 1 should have been pruned")
	}
	if _, ok := s.last[2]; !ok {
		t.Fatalf("diagonal 2 should survive pruning")
	}
}

func TestNewChoosesBacking(t *testing.T) {
	if _, ok := New(0, 10).(*dense); !ok {
		t.Fatalf("small span should choose the dense backing")
	}
	if _, ok := New(0, denseSpanLimit+1).(*sparse); !ok {
		t.Fatalf("large span should choose the sparse backing")
	}
}
