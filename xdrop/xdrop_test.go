// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xdrop

import (
	"testing"

	"github.com/gt-tools/condenseq/editscript"
	"github.com/gt-tools/condenseq/multiop"
)

type codes []uint32

func (c codes) CharAt(pos int, _ editscript.ReadMode) (uint32, error) { return c[pos], nil }

func TestExtendPerfectMatch(t *testing.T) {
	u := codes{0, 1, 2, 3, 0, 1}
	v := codes{0, 1, 2, 3, 0, 1}
	params := Params{Match: 1, Mismatch: -2, GapCost: 2, XDrop: 5}
	pool := NewPool()

	trace, score, uUsed, vUsed := Extend(params, pool, u, v, 0, len(u), 0, len(v), editscript.Forward)
	if uUsed != len(u) || vUsed != len(v) {
		t.Fatalf("uUsed=%d vUsed=%d, want %d/%d", uUsed, vUsed, len(u), len(v))
	}
	if score != int32(len(u)) {
		t.Fatalf("score = %d, want %d", score, len(u))
	}
	if trace.NumEntries() != 1 {
		t.Fatalf("expected a single run of matches, got %d entries", trace.NumEntries())
	}
	op, steps := trace.GetEntry(0)
	if op != multiop.Match || steps != len(u) {
		t.Fatalf("entry 0 = (%s,%d), want (Match,%d)", op, steps, len(u))
	}
}

func TestExtendStopsOnMismatchRun(t *testing.T) {
	// A perfect prefix followed by a long divergent tail: the winning
	// alignment should not extend into the tail once scores drop more
	// than XDrop below the running best.
	u := codes{0, 1, 2, 3, 1, 1, 1, 1, 1, 1}
	v := codes{0, 1, 2, 3, 2, 2, 2, 2, 2, 2}
	params := Params{Match: 1, Mismatch: -5, GapCost: 3, XDrop: 3}
	pool := NewPool()

	_, score, uUsed, vUsed := Extend(params, pool, u, v, 0, len(u), 0, len(v), editscript.Forward)
	if uUsed != 4 || vUsed != 4 {
		t.Fatalf("uUsed=%d vUsed=%d, want the alignment to stop at the 4-character matching prefix", uUsed, vUsed)
	}
	if score != 4 {
		t.Fatalf("score = %d, want 4", score)
	}
}
