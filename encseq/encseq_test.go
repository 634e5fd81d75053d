// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encseq

import (
	"strings"
	"testing"

	"github.com/gt-tools/condenseq/editscript"
)

func TestReadFASTAAndCharAt(t *testing.T) {
	const fa = ">seq1 a test sequence\nACGTN\n"
	seqs, err := ReadFASTA(strings.NewReader(fa))
	if err != nil {
		t.Fatalf("ReadFASTA: %v", err)
	}
	if len(seqs) != 1 {
		t.Fatalf("got %d sequences, want 1", len(seqs))
	}
	s := seqs[0]
	if s.ID != "seq1" {
		t.Fatalf("ID = %q, want %q", s.ID, "seq1")
	}
	if s.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", s.Len())
	}

	want := []uint32{0, 1, 2, 3, editscript.Wildcard}
	for i, w := range want {
		got, err := s.CharAt(i, editscript.Forward)
		if err != nil {
			t.Fatalf("CharAt(%d): %v", i, err)
		}
		if got != w {
			t.Fatalf("CharAt(%d) = %d, want %d", i, got, w)
		}
	}

	if got, want := string(s.Bytes()), "ACGTN"; got != want {
		t.Fatalf("Bytes() = %q, want %q", got, want)
	}

	// Reverse complement: N A C G T -> wildcard, then complement(T,G,C,A).
	revWant := []uint32{editscript.Wildcard, 0, 1, 2, 3}
	for i, w := range revWant {
		got, err := s.CharAt(i, editscript.Reverse)
		if err != nil {
			t.Fatalf("CharAt(%d, Reverse): %v", i, err)
		}
		if got != w {
			t.Fatalf("CharAt(%d, Reverse) = %d, want %d", i, got, w)
		}
	}
}
