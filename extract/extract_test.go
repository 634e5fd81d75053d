// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extract

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/gt-tools/condenseq/build"
	"github.com/gt-tools/condenseq/encseq"
)

func buildArchive(t *testing.T, path string, records ...string) {
	t.Helper()
	cfg := build.Config{
		AlphabetSize:     encseq.AlphabetSize,
		K:                8,
		InitSize:         1,
		MinExtensionGain: 1,
	}
	cfg.XDrop.Match = 1
	cfg.XDrop.Mismatch = -3
	cfg.XDrop.GapCost = 2
	cfg.XDrop.XDrop = 4

	b, err := build.New(cfg)
	if err != nil {
		t.Fatalf("build.New: %v", err)
	}
	for _, fasta := range records {
		seqs, err := encseq.ReadFASTA(bytes.NewBufferString(fasta))
		if err != nil {
			t.Fatalf("ReadFASTA: %v", err)
		}
		for _, s := range seqs {
			if err := b.AddSequence(s); err != nil {
				t.Fatalf("AddSequence(%s): %v", s.ID, err)
			}
		}
	}
	if _, err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := b.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestSeqRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.cse")
	const body = "ACGTACGGTTCAGGTACCTGAACCTTGGAACCGGTTAACCGGTTA"
	buildArchive(t, path, ">s1\n"+body+"\n")

	a, err := Open(path, encseq.AlphabetSize)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if a.NumSeqs() != 1 {
		t.Fatalf("NumSeqs = %d, want 1", a.NumSeqs())
	}
	raw, err := a.Seq(0)
	if err != nil {
		t.Fatalf("Seq: %v", err)
	}
	got := string(Decode(raw, 'n'))
	if got != body {
		t.Fatalf("Seq(0) = %q, want %q", got, body)
	}
}

func TestRangeAcrossRepeatedSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.cse")
	const body = "ACGTACGGTTCAGGTACCTGAACCTTGGAACCGGTTAACCGGTTA"
	buildArchive(t, path, ">s1\n"+body+"\n", ">s2\n"+body+"\n")

	a, err := Open(path, encseq.AlphabetSize)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	for n := int32(0); n < 2; n++ {
		raw, err := a.Seq(n)
		if err != nil {
			t.Fatalf("Seq(%d): %v", n, err)
		}
		if got := string(Decode(raw, 'n')); got != body {
			t.Fatalf("Seq(%d) = %q, want %q", n, got, body)
		}
	}

	full, err := a.Range(0, int64(2*len(body)-1))
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	want := body + "n" + body
	if got := string(Decode(full, 'n')); got != want {
		t.Fatalf("Range(0,%d) = %q, want %q", 2*len(body)-1, got, want)
	}
}

func TestEnumerateRedundant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.cse")
	const body = "ACGTACGGTTCAGGTACCTGAACCTTGGAACCGGTTAACCGGTTA"
	buildArchive(t, path, ">s1\n"+body+"\n", ">s2\n"+body+"\n")

	a, err := Open(path, encseq.AlphabetSize)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	var regions []Region
	n, err := a.EnumerateRedundant(0, 0, int32(len(body)-1), 0, 0, func(r Region) error {
		regions = append(regions, r)
		return nil
	})
	if err != nil {
		t.Fatalf("EnumerateRedundant: %v", err)
	}
	if n < 2 {
		t.Fatalf("EnumerateRedundant count = %d, want at least 2 (source + repeated copy)", n)
	}
	if len(regions) != n {
		t.Fatalf("callback invoked %d times, EnumerateRedundant returned %d", len(regions), n)
	}
}
