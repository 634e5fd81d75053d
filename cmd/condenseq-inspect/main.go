// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The condenseq-inspect command dumps a .cse container's header,
// unique/link counts, and per-fragment records as a JSON stream, for
// debugging archives without running a full extraction. It mirrors
// cmd/audit-ins-db's approach to the ins forward/regions/reverse
// databases, applied to a condenseq archive instead.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gt-tools/condenseq"
)

type header struct {
	NumSequences int `json:"num_sequences"`
	NumUniques   int `json:"num_uniques"`
	NumLinks     int `json:"num_links"`
}

type uniqueRecord struct {
	ID          int32  `json:"id"`
	SeqNum      int32  `json:"seqnum"`
	Start       int32  `json:"start"`
	Length      int32  `json:"length"`
	Description string `json:"description"`
	NumLinks    int    `json:"num_links"`
}

type linkRecord struct {
	ID           int32 `json:"id"`
	SeqNum       int32 `json:"seqnum"`
	Start        int32 `json:"start"`
	Length       int32 `json:"length"`
	UniqueID     int32 `json:"unique_id"`
	UniqueOffset int32 `json:"unique_offset"`
	Orientation  uint8 `json:"orientation"`
}

func main() {
	indexname := flag.String("indexname", "", "specify archive basename to inspect (required)")
	headerOnly := flag.Bool("header", false, "only print the archive header, not per-fragment records")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -indexname <basename> >out.jsonl

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *indexname == "" {
		flag.Usage()
		os.Exit(2)
	}

	a, err := condenseq.Open(*indexname)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	db := a.DB()
	enc := json.NewEncoder(os.Stdout)

	if err := enc.Encode(header{
		NumSequences: a.NumSeqs(),
		NumUniques:   len(db.Uniques),
		NumLinks:     len(db.Links),
	}); err != nil {
		log.Fatal(err)
	}
	if *headerOnly {
		return
	}

	for i, u := range db.Uniques {
		err := enc.Encode(uniqueRecord{
			ID:          int32(i),
			SeqNum:      u.SeqNum,
			Start:       u.Start,
			Length:      u.Length,
			Description: u.Description,
			NumLinks:    len(u.Links),
		})
		if err != nil {
			log.Fatal(err)
		}
	}
	for i, l := range db.Links {
		err := enc.Encode(linkRecord{
			ID:           int32(i),
			SeqNum:       l.SeqNum,
			Start:        l.Start,
			Length:       l.Length,
			UniqueID:     l.UniqueID,
			UniqueOffset: l.UniqueOffset,
			Orientation:  uint8(l.Orientation),
		})
		if err != nil {
			log.Fatal(err)
		}
	}
}
