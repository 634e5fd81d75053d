// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The condenseq-compress command builds a condenseq archive from a
// FASTA input, writing the container (and its companion .esq store)
// alongside the given index name.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gt-tools/condenseq"
	"github.com/gt-tools/condenseq/build"
	"github.com/gt-tools/condenseq/encseq"
)

func main() {
	kmersize := flag.Int("kmersize", 12, "specify k-mer seed length")
	windowsize := flag.Int("windowsize", 0, "specify diagonal re-seeding window size (0 disables the upper bound, i.e. unbounded)")
	initsize := flag.Int("initsize", 30, "specify number of k-mers absorbed before seeding begins")
	alignlength := flag.Int("alignlength", 1, "specify minimum length (in bases) of an extension accepted as a link; uniques are not length-checked")
	cutoff := flag.Float64("cutoff", 0, "specify mean-based index pruning factor (0 disables)")
	fraction := flag.Float64("fraction", 0, "unused: reserved for future diagonal sampling")
	disablePrune := flag.Bool("disable_prune", false, "disable k-mer index pruning regardless of -cutoff")
	mat := flag.Int("mat", 2, "specify match score")
	mis := flag.Int("mis", -3, "specify mismatch penalty")
	ins := flag.Int("ins", -4, "unused: insertion penalty, folded into -del")
	del := flag.Int("del", -4, "specify gap score per inserted or deleted character (negative, like -mis)")
	xdrop := flag.Int("xdrop", 20, "specify X-drop threshold")
	bruteForce := flag.Bool("brute_force", false, "unused: reserved for a non-indexed reference implementation")
	diagonals := flag.Int("diagonals", 0, "unused: reserved for multi-diagonal seeding")
	fullDiags := flag.Bool("full_diags", false, "unused: reserved for exhaustive diagonal coverage")
	diagsClean := flag.Bool("diags_clean", true, "unused: reserved for diagonal filter cleanup")
	indexname := flag.String("indexname", "", "specify output archive basename (required)")
	verbose := flag.Bool("verbose", false, "specify verbose logging")
	kdb := flag.String("kdb", "", "unused: reserved for an external persistent k-mer database path")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s [options] -indexname <basename> <input.fasta>

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = fraction
	_ = ins
	_ = bruteForce
	_ = diagonals
	_ = fullDiags
	_ = diagsClean
	_ = kdb

	if *indexname == "" || flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *windowsize != 0 && *windowsize < *kmersize {
		log.Fatalf("windowsize (%d) must not be less than kmersize (%d)", *windowsize, *kmersize)
	}

	in, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	cfg := build.Config{
		AlphabetSize: encseq.AlphabetSize,
		K:            *kmersize,
		InitSize:     *initsize,
		MinAlignLen:  int32(*alignlength),
		// A single match's worth of score is enough to reject a
		// net-negative extension; the real length floor is MinAlignLen
		// above, per invariant I5.
		MinExtensionGain: int32(*mat),
		WindowSize:       int64(*windowsize),
		MeanCutoffFactor: *cutoff,
	}
	if *disablePrune {
		cfg.MeanCutoffFactor = 0
	}
	cfg.XDrop.Match = int32(*mat)
	cfg.XDrop.Mismatch = int32(*mis)
	cfg.XDrop.GapCost = -int32(*del)
	cfg.XDrop.XDrop = int32(*xdrop)

	numUnique, numLink, err := condenseq.Compress(cfg, *indexname, in)
	if err != nil {
		log.Fatal(err)
	}
	if *verbose {
		log.Printf("wrote %s: %d unique fragments, %d link fragments", *indexname, numUnique, numLink)
	}
}
