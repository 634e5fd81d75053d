// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The condenseq-extract command reconstructs a range of the original
// input from a condenseq archive, either one whole sequence, a local
// range within one sequence, or a range of the flat concatenation of
// every sequence.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gt-tools/condenseq"
)

func main() {
	seq := flag.Int64("seq", -1, "specify whole sequence number to extract")
	seqrange := flag.String("seqrange", "", "specify \"from,to\" local range within the sequence given by -seq")
	rng := flag.String("range", "", "specify \"from,to\" range of the flat concatenation of all sequences")
	output := flag.String("output", "concat", "specify output format: fasta or concat")
	sepchar := flag.String("sepchar", "N", "specify the character substituted at sequence boundaries")
	width := flag.Int("width", 60, "specify FASTA line wrap width (0 disables wrapping)")
	indexname := flag.String("indexname", "", "specify archive basename to read (required)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -indexname <basename> {-seq N [-seqrange a,b] | -range a,b}

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *indexname == "" {
		flag.Usage()
		os.Exit(2)
	}
	if len(*sepchar) != 1 {
		log.Fatalf("sepchar must be exactly one character, got %q", *sepchar)
	}

	a, err := condenseq.Open(*indexname)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	var raw []byte
	var label string
	switch {
	case *rng != "":
		from, to, err := parsePair(*rng)
		if err != nil {
			log.Fatal(err)
		}
		raw, err = a.Range(from, to)
		if err != nil {
			log.Fatal(err)
		}
		label = fmt.Sprintf("range_%d_%d", from, to)
	case *seq >= 0 && *seqrange != "":
		from, to, err := parsePair(*seqrange)
		if err != nil {
			log.Fatal(err)
		}
		raw, err = a.SeqRange(int32(*seq), int32(from), int32(to))
		if err != nil {
			log.Fatal(err)
		}
		label = fmt.Sprintf("seq%d_%d_%d", *seq, from, to)
	case *seq >= 0:
		raw, err = a.Seq(int32(*seq))
		if err != nil {
			log.Fatal(err)
		}
		label = fmt.Sprintf("seq%d", *seq)
	default:
		flag.Usage()
		os.Exit(2)
	}

	decoded := condenseq.Decode(raw, (*sepchar)[0])

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	switch *output {
	case "fasta":
		fmt.Fprintf(w, ">%s\n", label)
		writeWrapped(w, decoded, *width)
	case "concat":
		w.Write(decoded)
		w.WriteByte('\n')
	default:
		log.Fatalf("unknown output format %q", *output)
	}
}

func parsePair(s string) (a, b int64, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected \"from,to\", got %q", s)
	}
	a, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	b, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func writeWrapped(w *bufio.Writer, seq []byte, width int) {
	if width <= 0 {
		w.Write(seq)
		w.WriteByte('\n')
		return
	}
	for len(seq) > width {
		w.Write(seq[:width])
		w.WriteByte('\n')
		seq = seq[width:]
	}
	w.Write(seq)
	w.WriteByte('\n')
}
