// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package editscript

import (
	"bytes"
	"testing"

	"github.com/gt-tools/condenseq/multiop"
)

// charSeq is a trivial CharSource backed by a slice of alphabet codes,
// used by tests that need to decode match runs.
type charSeq []uint32

func (s charSeq) CharAt(pos int, _ ReadMode) (uint32, error) { return s[pos], nil }

// TestStatsWorkedExample builds an alignment with the operation counts
// of u = AAACCCGGGTTTACGTACGNANGA against v = AATCCGGGGTATCGATGTGNAGNA
// from spec.md §8 S6 (matches=15, mismatches=5, insertions=4,
// deletions=4) directly through the Builder API, and checks the
// aggregate counts recovered by Stats, plus SourceLen/TargetLen
// (invariants E1, E2).
func TestStatsWorkedExample(t *testing.T) {
	es, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b := NewBuilder(es)

	for i := 0; i < 5; i++ {
		if err := b.AddMatch(); err != nil {
			t.Fatalf("AddMatch: %v", err)
		}
	}
	if err := b.AddMismatch(1); err != nil {
		t.Fatalf("AddMismatch: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := b.AddMatch(); err != nil {
			t.Fatalf("AddMatch: %v", err)
		}
	}
	for i := 0; i < 4; i++ {
		if err := b.AddDeletion(); err != nil {
			t.Fatalf("AddDeletion: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		if err := b.AddMatch(); err != nil {
			t.Fatalf("AddMatch: %v", err)
		}
	}
	for i := 0; i < 4; i++ {
		if err := b.AddInsertion(uint32(i % 4)); err != nil {
			t.Fatalf("AddInsertion: %v", err)
		}
	}
	for i := 0; i < 4; i++ {
		if err := b.AddMismatch(uint32(i % 4)); err != nil {
			t.Fatalf("AddMismatch: %v", err)
		}
	}
	es = b.Finish()

	matches, mismatches, insertions, deletions := es.Stats()
	if matches != 15 || mismatches != 5 || insertions != 4 || deletions != 4 {
		t.Fatalf("unexpected stats: matches=%d mismatches=%d insertions=%d deletions=%d, want 15/5/4/4",
			matches, mismatches, insertions, deletions)
	}
	if got, want := es.SourceLen(), uint32(24); got != want {
		t.Fatalf("SourceLen = %d, want %d", got, want)
	}
	if got, want := es.TargetLen(), uint32(24); got != want {
		t.Fatalf("TargetLen = %d, want %d", got, want)
	}
}

// TestIORoundTrip checks that a script survives a WriteTo/ReadFrom
// round trip with identical stats (invariant E3).
func TestIORoundTrip(t *testing.T) {
	es, _ := New(4)
	b := NewBuilder(es)
	for i := 0; i < 6; i++ {
		b.AddMatch()
	}
	b.AddMismatch(2)
	b.AddDeletion()
	b.AddInsertion(1)
	b.AddInsertion(3)
	for i := 0; i < 3; i++ {
		b.AddMatch()
	}
	es = b.Finish()

	var buf bytes.Buffer
	if _, err := es.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, _ := New(4)
	if _, err := got.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	wantM, wantMM, wantI, wantD := es.Stats()
	gotM, gotMM, gotI, gotD := got.Stats()
	if gotM != wantM || gotMM != wantMM || gotI != wantI || gotD != wantD {
		t.Fatalf("stats mismatch after round trip: got=(%d,%d,%d,%d) want=(%d,%d,%d,%d)",
			gotM, gotMM, gotI, gotD, wantM, wantMM, wantI, wantD)
	}
	if got.TargetLen() != es.TargetLen() || got.SourceLen() != es.SourceLen() {
		t.Fatalf("length mismatch after round trip")
	}
}

// TestDecodeURangeReproducesSource checks that decoding the full u
// range of a script with no edits reproduces u exactly.
func TestDecodeURangeReproducesSource(t *testing.T) {
	u := charSeq{0, 1, 2, 3, 0, 1, 2, 3}
	es, _ := New(4)
	b := NewBuilder(es)
	for range u {
		b.AddMatch()
	}
	es = b.Finish()

	got, err := es.DecodeURange(u, 0, Forward, 0, uint32(len(u)-1), nil)
	if err != nil {
		t.Fatalf("DecodeURange: %v", err)
	}
	if len(got) != len(u) {
		t.Fatalf("unexpected length: got:%d want:%d", len(got), len(u))
	}
	for i, c := range got {
		if uint32(c) != u[i] {
			t.Fatalf("position %d: got:%d want:%d", i, c, u[i])
		}
	}
}

// TestDecodeVRangeWithSubstitution checks that a single mismatch in
// the middle of an otherwise all-match script is reflected both in the
// decoded v range and in the corresponding u-range decode, which also
// emits v-characters.
func TestDecodeVRangeWithSubstitution(t *testing.T) {
	u := charSeq{0, 1, 2, 3, 0}
	es, _ := New(4)
	b := NewBuilder(es)
	b.AddMatch()
	b.AddMatch()
	b.AddMismatch(3) // v[2] = 3, replacing u[2] = 2
	b.AddMatch()
	b.AddMatch()
	es = b.Finish()

	v, err := es.DecodeVRange(u, 0, Forward, 0, 4, nil)
	if err != nil {
		t.Fatalf("DecodeVRange: %v", err)
	}
	want := []byte{0, 1, 3, 3, 0}
	if !bytes.Equal(v, want) {
		t.Fatalf("DecodeVRange = %v, want %v", v, want)
	}

	uSub, err := es.DecodeURange(u, 0, Forward, 0, 4, nil)
	if err != nil {
		t.Fatalf("DecodeURange: %v", err)
	}
	if !bytes.Equal(uSub, want) {
		t.Fatalf("DecodeURange = %v, want %v (mismatch symbol should be substituted)", uSub, want)
	}
}

// TestTargetSubseqLen checks the length accounting of a deletion (u
// consumed, no v produced) and an insertion (v produced, no u
// consumed) against explicit u-windows.
func TestTargetSubseqLen(t *testing.T) {
	es, _ := New(4)
	b := NewBuilder(es)
	b.AddMatch()          // u[0] -> v[0]
	b.AddDeletion()       // u[1] -> (nothing)
	b.AddInsertion(2)     // (nothing) -> v[1]
	b.AddMatch()          // u[2] -> v[2]
	es = b.Finish()

	n, err := es.TargetSubseqLen(0, 3)
	if err != nil {
		t.Fatalf("TargetSubseqLen: %v", err)
	}
	if n != 3 {
		t.Fatalf("TargetSubseqLen(0,3) = %d, want 3", n)
	}

	n, err = es.TargetSubseqLen(1, 1)
	if err != nil {
		t.Fatalf("TargetSubseqLen: %v", err)
	}
	if n != 0 {
		t.Fatalf("TargetSubseqLen(1,1) = %d, want 0 (deletion produces no v characters)", n)
	}
}

// TestFromTraceS6RoundTrip builds the literal S6 alignment of
// u = AAACCCGGGTTTACGTACGNANGA against v = AATCCGGGGTATCGATGTGNAGNA
// from spec.md §8 (matches=15, mismatches=5, insertions=4,
// deletions=4) via FromTrace, from a trace assembled in back-to-front
// order the way the X-drop backtracker hands one to it, and checks
// that decoding the result against u reproduces v exactly (invariant
// E3). N is carried as an ordinary fifth symbol rather than the
// wildcard sentinel, so the alphabet here is size 5.
func TestFromTraceS6RoundTrip(t *testing.T) {
	u := charSeq{0, 0, 0, 1, 1, 1, 2, 2, 2, 3, 3, 3, 0, 1, 2, 3, 0, 1, 2, 4, 0, 4, 2, 0}
	v := charSeq{0, 0, 3, 1, 1, 2, 2, 2, 2, 3, 0, 3, 1, 2, 0, 3, 2, 3, 2, 4, 0, 2, 4, 0}

	trace := multiop.New()
	trace.AddMatch()
	trace.AddInsertion()
	trace.AddDeletion()
	trace.AddInsertion()
	trace.AddDeletion()
	trace.AddMatchMulti(3)
	trace.AddInsertion()
	trace.AddDeletion()
	trace.AddMismatch()
	trace.AddInsertion()
	trace.AddMismatch()
	trace.AddMatchMulti(2)
	trace.AddDeletion()
	trace.AddMatch()
	trace.AddMismatch()
	trace.AddMatchMulti(4)
	trace.AddMismatch()
	trace.AddMatchMulti(2)
	trace.AddMismatch()
	trace.AddMatchMulti(2)

	es, err := FromTrace(5, v, trace, 0, Forward)
	if err != nil {
		t.Fatalf("FromTrace: %v", err)
	}

	matches, mismatches, insertions, deletions := es.Stats()
	if matches != 15 || mismatches != 5 || insertions != 4 || deletions != 4 {
		t.Fatalf("unexpected stats: matches=%d mismatches=%d insertions=%d deletions=%d, want 15/5/4/4",
			matches, mismatches, insertions, deletions)
	}

	got, err := es.DecodeVRange(u, 0, Forward, 0, 23, nil)
	if err != nil {
		t.Fatalf("DecodeVRange: %v", err)
	}
	want := make([]byte, len(v))
	for i, c := range v {
		want[i] = byte(c)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("DecodeVRange(u, 0, 23) = %v, want %v (= v)", got, want)
	}
}
