// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package encseq adapts the biogo sequence-handling stack into the
// small numeric-code read interface the rest of condenseq needs: a
// DNA alphabet of cardinality 4 (A, C, G, T), wildcard positions
// (any other IUPAC code) folded into the dual-use wildcard symbol
// editscript expects, and forward/reverse-complement access by
// absolute position. It is grounded on kortschak-ins's own use of the
// biogo ecosystem: cmd/ins/fragment.go builds sequences with
// seqio.NewScanner(fasta.NewReader(src, linear.NewSeq(...))), and
// cmd/ins/main.go uses biogo/hts/fai for random-access reference
// lookup (fai.NewIndex, fai.NewFile, (*fai.File).SeqRange).
package encseq

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/biogo/hts/fai"

	"github.com/gt-tools/condenseq/cerr"
	"github.com/gt-tools/condenseq/editscript"
)

// AlphabetSize is the cardinality of the DNA alphabet condenseq
// encodes over: A, C, G, T. Any other IUPAC letter is recorded as a
// wildcard position instead of a fifth code.
const AlphabetSize = 4

var codeOf = [256]int8{}

func init() {
	for i := range codeOf {
		codeOf[i] = -1
	}
	codeOf['a'], codeOf['A'] = 0, 0
	codeOf['c'], codeOf['C'] = 1, 1
	codeOf['g'], codeOf['G'] = 2, 2
	codeOf['t'], codeOf['T'] = 3, 3
}

var letterOf = [AlphabetSize]byte{'A', 'C', 'G', 'T'}

// complement returns the Watson-Crick complement code of c.
func complement(c uint32) uint32 { return 3 - c }

// Sequence is an in-memory, alphabet-encoded nucleotide sequence that
// satisfies editscript.CharSource, letting the edit-script codec read
// matched-run characters directly out of it.
type Sequence struct {
	ID   string
	Desc string

	codes     []byte
	wildcards []bool
}

// Len returns the number of positions in the sequence.
func (s *Sequence) Len() int { return len(s.codes) }

// CharAt returns the alphabet code (or editscript.Wildcard) at pos,
// reading forward or, for Reverse, as the reverse complement.
func (s *Sequence) CharAt(pos int, dir editscript.ReadMode) (uint32, error) {
	if pos < 0 || pos >= len(s.codes) {
		return 0, fmt.Errorf("encseq: %w: position %d", cerr.RangeOutOfBounds, pos)
	}
	if dir == editscript.Forward {
		if s.wildcards[pos] {
			return editscript.Wildcard, nil
		}
		return uint32(s.codes[pos]), nil
	}
	rpos := len(s.codes) - 1 - pos
	if s.wildcards[rpos] {
		return editscript.Wildcard, nil
	}
	return complement(uint32(s.codes[rpos])), nil
}

// Bytes decodes the whole sequence back to ASCII, substituting 'N'
// for every wildcard position.
func (s *Sequence) Bytes() []byte {
	out := make([]byte, len(s.codes))
	for i, c := range s.codes {
		if s.wildcards[i] {
			out[i] = 'N'
		} else {
			out[i] = letterOf[c]
		}
	}
	return out
}

func encode(letters alphabet.Letters) (codes []byte, wildcards []bool) {
	codes = make([]byte, len(letters))
	wildcards = make([]bool, len(letters))
	for i, l := range letters {
		c := codeOf[byte(l)]
		if c < 0 {
			wildcards[i] = true
			continue
		}
		codes[i] = byte(c)
	}
	return codes, wildcards
}

// ReadFASTA reads every record from r as DNA, folding any non-ACGT
// letter (including the common ambiguity codes) into a wildcard
// position per sequence.
func ReadFASTA(r io.Reader) ([]*Sequence, error) {
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAredundant)))
	var out []*Sequence
	for sc.Next() {
		seq, ok := sc.Seq().(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("encseq: %w: unexpected sequence type from reader", cerr.Corrupt)
		}
		codes, wildcards := encode(seq.Seq)
		out = append(out, &Sequence{
			ID:        seq.ID,
			Desc:      seq.Desc,
			codes:     codes,
			wildcards: wildcards,
		})
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("encseq: %w: %v", cerr.Io, err)
	}
	return out, nil
}

// Reference is a random-access collaborator sequence backed by an
// indexed FASTA file, for builds that compress fragments against a
// large external reference rather than holding it all in memory.
type Reference struct {
	file  *os.File
	index fai.Index
}

// OpenReference indexes and opens path for random access.
func OpenReference(path string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("encseq: %w: %v", cerr.Io, err)
	}
	idx, err := fai.NewIndex(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("encseq: %w: %v", cerr.Io, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("encseq: %w: %v", cerr.Io, err)
	}
	return &Reference{file: f, index: idx}, nil
}

// Close releases the underlying file.
func (r *Reference) Close() error { return r.file.Close() }

// Fetch loads the named record's full sequence, encoded the same way
// ReadFASTA encodes records.
func (r *Reference) Fetch(name string) (*Sequence, error) {
	ff := fai.NewFile(r.file, r.index)
	rec, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("encseq: %w: unknown reference sequence %q", cerr.InvalidArgument, name)
	}
	rs, err := ff.SeqRange(name, 0, rec.Length)
	if err != nil {
		return nil, fmt.Errorf("encseq: %w: %v", cerr.Io, err)
	}
	b, err := ioutil.ReadAll(rs)
	if err != nil {
		return nil, fmt.Errorf("encseq: %w: %v", cerr.Io, err)
	}
	codes, wildcards := encode(alphabet.BytesToLetters(b))
	return &Sequence{ID: name, codes: codes, wildcards: wildcards}, nil
}
