// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package condenseq

import (
	"fmt"
	"io"

	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"
)

// GFF3Dump writes one experimental_feature record per unique and link
// fragment to w (spec.md §6.3): 1-based coordinates relative to the
// fragment's containing original sequence, Source "Condenseq", Name
// "unique<i>"/"link<i>", and Derives_from "U<unique_id>" on link
// records.
func (a *Archive) GFF3Dump(w io.Writer) error {
	db := a.DB()
	enc := gff.NewWriter(w, 60, true)

	for i, u := range db.Uniques {
		name, err := db.Seqs.Name(u.SeqNum)
		if err != nil {
			return fmt.Errorf("condenseq: unique %d: %w", i, err)
		}
		_, err = enc.Write(&gff.Feature{
			SeqName:    name,
			Source:     "Condenseq",
			Feature:    "experimental_feature",
			FeatStart:  int(u.Start) + 1,
			FeatEnd:    int(u.Start) + int(u.Length),
			FeatStrand: seq.Plus,
			FeatFrame:  gff.NoFrame,
			FeatAttributes: gff.Attributes{{
				Tag:   "Name",
				Value: fmt.Sprintf("unique%d", i),
			}},
		})
		if err != nil {
			return fmt.Errorf("condenseq: write unique %d: %w", i, err)
		}
	}

	for i, l := range db.Links {
		name, err := db.Seqs.Name(l.SeqNum)
		if err != nil {
			return fmt.Errorf("condenseq: link %d: %w", i, err)
		}
		strand := seq.Plus
		if l.Orientation != 0 {
			strand = seq.Minus
		}
		_, err = enc.Write(&gff.Feature{
			SeqName:    name,
			Source:     "Condenseq",
			Feature:    "experimental_feature",
			FeatStart:  int(l.Start) + 1,
			FeatEnd:    int(l.Start) + int(l.Length),
			FeatStrand: strand,
			FeatFrame:  gff.NoFrame,
			FeatAttributes: gff.Attributes{{
				Tag:   "Name",
				Value: fmt.Sprintf("link%d", i),
			}, {
				Tag:   "Derives_from",
				Value: fmt.Sprintf("U%d", l.UniqueID),
			}},
		})
		if err != nil {
			return fmt.Errorf("condenseq: write link %d: %w", i, err)
		}
	}
	return nil
}
