// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package condenseq implements a redundancy-compressed genome archive:
// a k-mer seeded, diagonal-filtered, X-drop extended index that
// rewrites repeated content as edit scripts against a small set of
// unique fragments, together with a binary container format and an
// extraction engine to reconstruct the original input.
//
// The package ties together the lower-level components (kmerindex,
// diagonal, xdrop, editscript, fragment, build, extract) into two
// entry points: Compress builds and saves an archive from FASTA
// input, and Open loads a saved archive for querying.
package condenseq

import (
	"fmt"
	"io"

	"github.com/gt-tools/condenseq/build"
	"github.com/gt-tools/condenseq/encseq"
	"github.com/gt-tools/condenseq/extract"
)

// Archive is an opened, read-only condenseq container ready for
// extraction and dumping.
type Archive struct {
	*extract.Archive
}

// Decode maps raw extracted codes (as returned by Archive's Seq,
// SeqRange and Range methods) to ASCII, substituting sepChar for
// sequence-boundary separators and 'N' for wildcard positions.
func Decode(raw []byte, sepChar byte) []byte { return extract.Decode(raw, sepChar) }

// Open loads the container at path (and its companion path+".esq"
// unique store) for extraction.
func Open(path string) (*Archive, error) {
	a, err := extract.Open(path, encseq.AlphabetSize)
	if err != nil {
		return nil, err
	}
	return &Archive{a}, nil
}

// Compress reads every sequence in src as FASTA, builds a condenseq
// archive under cfg, and saves it (and its companion .esq store) to
// path. It returns the final fragment statistics.
func Compress(cfg build.Config, path string, src io.Reader) (numUnique, numLink int, err error) {
	seqs, err := encseq.ReadFASTA(src)
	if err != nil {
		return 0, 0, fmt.Errorf("condenseq: %w", err)
	}

	b, err := build.New(cfg)
	if err != nil {
		return 0, 0, err
	}
	for _, s := range seqs {
		if err := b.AddSequence(s); err != nil {
			return 0, 0, fmt.Errorf("condenseq: sequence %s: %w", s.ID, err)
		}
	}
	db, err := b.Finish()
	if err != nil {
		return 0, 0, err
	}
	if err := b.Save(path); err != nil {
		return 0, 0, err
	}
	return len(db.Uniques), len(db.Links), nil
}

// FastaDump writes every unique fragment in a to w as a FASTA record
// (spec.md §6.2). In verbose mode each record's header reports the
// unique's original position and length instead of its bare index.
func (a *Archive) FastaDump(w io.Writer, verbose bool, width int) error {
	db := a.DB()
	for i := range db.Uniques {
		u := db.Uniques[i]
		raw, err := a.UniqueSeq(int32(i))
		if err != nil {
			return fmt.Errorf("condenseq: unique %d: %w", i, err)
		}
		seq := extract.Decode(raw, 'N')
		if verbose {
			if _, err := fmt.Fprintf(w, ">unique%d start: %d, len: %d\n", i, u.Start, u.Length); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, ">%d\n", i); err != nil {
				return err
			}
		}
		if err := writeWrapped(w, seq, width); err != nil {
			return err
		}
	}
	return nil
}

// writeWrapped writes seq to w, breaking lines every width characters
// (width <= 0 disables wrapping), terminating the last line with a
// newline.
func writeWrapped(w io.Writer, seq []byte, width int) error {
	if width <= 0 {
		_, err := fmt.Fprintf(w, "%s\n", seq)
		return err
	}
	for len(seq) > width {
		if _, err := fmt.Fprintf(w, "%s\n", seq[:width]); err != nil {
			return err
		}
		seq = seq[width:]
	}
	_, err := fmt.Fprintf(w, "%s\n", seq)
	return err
}
