// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package multiop

import (
	"bytes"
	"testing"
)

func TestAddMerge(t *testing.T) {
	l := New()
	l.AddMatch()
	l.AddMatch()
	l.AddMismatch()
	l.AddMatchMulti(3)
	if got, want := l.NumEntries(), 3; got != want {
		t.Fatalf("unexpected entry count: got:%d want:%d", got, want)
	}
	op, steps := l.GetEntry(0)
	if op != Match || steps != 2 {
		t.Fatalf("unexpected entry 0: got:(%s,%d) want:(Match,2)", op, steps)
	}
	op, steps = l.GetEntry(2)
	if op != Match || steps != 3 {
		t.Fatalf("unexpected entry 2: got:(%s,%d) want:(Match,3)", op, steps)
	}
}

func TestOverflowSplit(t *testing.T) {
	l := New()
	l.AddMatchMulti(200)
	if got, want := l.Length(), 200; got != want {
		t.Fatalf("unexpected length: got:%d want:%d", got, want)
	}
	if l.NumEntries() < 4 {
		t.Fatalf("expected run to split across multiple entries, got %d", l.NumEntries())
	}
	for i := 0; i < l.NumEntries(); i++ {
		if _, steps := l.GetEntry(i); steps > maxRun {
			t.Fatalf("entry %d exceeds maxRun: %d", i, steps)
		}
	}
}

func TestRemoveLast(t *testing.T) {
	l := New()
	l.AddMatchMulti(2)
	l.AddDeletion()
	l.RemoveLast()
	if got, want := l.NumEntries(), 1; got != want {
		t.Fatalf("unexpected entry count after removing single-step entry: got:%d want:%d", got, want)
	}
	l.RemoveLast()
	if got, want := l.NumEntries(), 1; got != want {
		t.Fatalf("unexpected entry count after decrementing run: got:%d want:%d", got, want)
	}
	_, steps := l.GetEntry(0)
	if steps != 1 {
		t.Fatalf("unexpected run length after decrement: got:%d want:1", steps)
	}
}

func TestRepdelRepinsLength(t *testing.T) {
	l := New()
	l.AddMatchMulti(5)
	l.AddMismatchMulti(2)
	l.AddDeletionMulti(3)
	l.AddInsertionMulti(4)
	if got, want := l.RepdelLength(), 5+2+3; got != want {
		t.Fatalf("unexpected repdel length: got:%d want:%d", got, want)
	}
	if got, want := l.RepinsLength(), 5+2+4; got != want {
		t.Fatalf("unexpected repins length: got:%d want:%d", got, want)
	}
}

func TestCombine(t *testing.T) {
	left := New()
	left.AddMatchMulti(2)
	left.AddDeletion()

	right := New()
	right.AddInsertion()
	right.AddMatchMulti(3)

	// back-tracking produces left in reverse order relative to how it
	// should read left-to-right in the final alignment.
	reversedLeft := New()
	for i := left.NumEntries() - 1; i >= 0; i-- {
		op, steps := left.GetEntry(i)
		reversedLeft.add(op, steps)
	}

	Combine(right, reversedLeft, false)

	want := []Op{Insertion, Match, Match, Deletion}
	if right.NumEntries() != 4 {
		t.Fatalf("unexpected combined entry count: got:%d want:4", right.NumEntries())
	}
	for i, w := range want {
		op, _ := right.GetEntry(i)
		if op != w {
			t.Fatalf("entry %d: got:%s want:%s", i, op, w)
		}
	}
}

func TestIORoundTrip(t *testing.T) {
	l := New()
	l.AddMatchMulti(5)
	l.AddMismatch()
	l.AddInsertionMulti(2)

	var buf bytes.Buffer
	if _, err := l.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got := New()
	if _, err := got.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if !bytes.Equal(got.entries, l.entries) {
		t.Fatalf("round trip mismatch: got:%v want:%v", got.entries, l.entries)
	}
}
