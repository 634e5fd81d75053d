// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"bytes"
	"testing"

	"github.com/gt-tools/condenseq/encseq"
)

func seqFor(t *testing.T, id, fasta string) *encseq.Sequence {
	t.Helper()
	seqs, err := encseq.ReadFASTA(bytes.NewBufferString(fasta))
	if err != nil {
		t.Fatalf("ReadFASTA: %v", err)
	}
	if len(seqs) != 1 {
		t.Fatalf("got %d sequences, want 1", len(seqs))
	}
	return seqs[0]
}

func TestStateTransitionsThroughInitAndScan(t *testing.T) {
	cfg := Config{
		AlphabetSize:     encseq.AlphabetSize,
		K:                8,
		InitSize:         20,
		MinExtensionGain: 1,
	}
	cfg.XDrop.Match = 1
	cfg.XDrop.Mismatch = -3
	cfg.XDrop.GapCost = 2
	cfg.XDrop.XDrop = 4

	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.State() != "INIT" {
		t.Fatalf("State() = %s, want INIT", b.State())
	}

	first := seqFor(t, "s1", ">s1\nACGTACGTACGTACGTACGTACGTACGT\n")
	if err := b.AddSequence(first); err != nil {
		t.Fatalf("AddSequence: %v", err)
	}
	if b.State() != "SCAN" {
		t.Fatalf("State() after first sequence = %s, want SCAN", b.State())
	}

	db, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if b.State() != "EOD" {
		t.Fatalf("State() after Finish = %s, want EOD", b.State())
	}
	if len(db.Uniques) == 0 {
		t.Fatalf("expected at least one unique fragment")
	}

	if err := b.AddSequence(first); err == nil {
		t.Fatalf("AddSequence after Finish should fail")
	}
}

func TestAddSequenceProducesLinkForRepeatedContent(t *testing.T) {
	cfg := Config{
		AlphabetSize:     encseq.AlphabetSize,
		K:                8,
		InitSize:         1,
		MinExtensionGain: 1,
	}
	cfg.XDrop.Match = 1
	cfg.XDrop.Mismatch = -3
	cfg.XDrop.GapCost = 2
	cfg.XDrop.XDrop = 4

	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first := seqFor(t, "s1", ">s1\nACGTACGGTTCAGGTACCTGAACCTTGGAACCGGTTAACCGGTTA\n")
	if err := b.AddSequence(first); err != nil {
		t.Fatalf("AddSequence(first): %v", err)
	}
	if b.State() != "SCAN" {
		t.Fatalf("expected SCAN state after first sequence, got %s", b.State())
	}

	// Second sequence repeats the first verbatim: every k-mer in it
	// should seed against the corpus and be absorbed as a Link rather
	// than duplicated as a new Unique fragment.
	second := seqFor(t, "s2", ">s2\nACGTACGGTTCAGGTACCTGAACCTTGGAACCGGTTAACCGGTTA\n")
	if err := b.AddSequence(second); err != nil {
		t.Fatalf("AddSequence(second): %v", err)
	}

	db, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(db.Links) == 0 {
		t.Fatalf("expected at least one link fragment from the repeated sequence")
	}
}
