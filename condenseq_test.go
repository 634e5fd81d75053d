// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package condenseq

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gt-tools/condenseq/build"
	"github.com/gt-tools/condenseq/encseq"
)

func testConfig() build.Config {
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
	return cfg
}

func TestCompressAndOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.cse")
	const body = "ACGTACGGTTCAGGTACCTGAACCTTGGAACCGGTTAACCGGTTA"
	fasta := ">s1\n" + body + "\n>s2\n" + body + "\n"

	numUnique, numLink, err := Compress(testConfig(), path, strings.NewReader(fasta))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if numUnique == 0 {
		t.Fatal("Compress produced no unique fragments")
	}
	if numLink == 0 {
		t.Fatal("Compress produced no link fragments for a repeated sequence")
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if a.NumSeqs() != 2 {
		t.Fatalf("NumSeqs = %d, want 2", a.NumSeqs())
	}
	got, err := a.Seq(0)
	if err != nil {
		t.Fatalf("Seq(0): %v", err)
	}
	if string(Decode(got, 'n')) != body {
		t.Fatalf("Seq(0) = %q, want %q", Decode(got, 'n'), body)
	}
}

func TestFastaDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.cse")
	const body = "ACGTACGGTTCAGGTACCTGAACCTTGGAACCGGTTAACCGGTTA"
	_, _, err := Compress(testConfig(), path, strings.NewReader(">s1\n"+body+"\n"))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	var buf bytes.Buffer
	if err := a.FastaDump(&buf, false, 60); err != nil {
		t.Fatalf("FastaDump: %v", err)
	}
	if !strings.HasPrefix(buf.String(), ">0\n") {
		t.Fatalf("FastaDump plain header = %q, want prefix %q", buf.String(), ">0\n")
	}

	buf.Reset()
	if err := a.FastaDump(&buf, true, 60); err != nil {
		t.Fatalf("FastaDump verbose: %v", err)
	}
	if !strings.HasPrefix(buf.String(), ">unique0 start: ") {
		t.Fatalf("FastaDump verbose header = %q, want prefix %q", buf.String(), ">unique0 start: ")
	}
}

func TestGFF3Dump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.cse")
	const body = "ACGTACGGTTCAGGTACCTGAACCTTGGAACCGGTTAACCGGTTA"
	_, _, err := Compress(testConfig(), path, strings.NewReader(">s1\n"+body+"\n>s2\n"+body+"\n"))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	var buf bytes.Buffer
	if err := a.GFF3Dump(&buf); err != nil {
		t.Fatalf("GFF3Dump: %v", err)
	}
	if !strings.Contains(buf.String(), "Condenseq") {
		t.Fatalf("GFF3Dump output missing Source field: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "Derives_from") {
		t.Fatalf("GFF3Dump output missing a Derives_from attribute for a link: %q", buf.String())
	}
}
