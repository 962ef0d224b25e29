// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package augment turns a GFF3 gene model into the augmented feature stream
// used for classification. Every kept record is converted to 0-based
// half-open coordinates; introns are synthesized between consecutive exons,
// and tiered upstream bands are added in front of every stranded gene.
package augment

import (
	"context"
	"io"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/biogo/biogo/seq"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/peakclassifier/encoding/bed"
	"github.com/grailbio/peakclassifier/encoding/gff"
)

// Stats summarizes one augmentation run.
type Stats struct {
	// Records is the number of GFF records read, separators excluded.
	Records int
	// Skipped is the number of records dropped by the chromosome filter or
	// because they describe a whole chromosome.
	Skipped int
	Genes   int
	Introns int
	Bands   int
	// Clamped is the number of bands cut off at the chromosome start, and
	// Dropped the number of bands left empty by it.
	Clamped int
	Dropped int
	// Written is the number of feature lines written.
	Written int
	// Digest is the seahash of the bytes written. Identical input and
	// options always produce the same digest.
	Digest uint64
}

// NumericChrom reports whether chrom is numeric after an optional "chr"
// prefix.
func NumericChrom(chrom string) bool {
	chrom = strings.TrimPrefix(chrom, "chr")
	if chrom == "" {
		return false
	}
	for i := 0; i < len(chrom); i++ {
		if chrom[i] < '0' || chrom[i] > '9' {
			return false
		}
	}
	return true
}

type augmenter struct {
	opts  Opts
	sc    *gff.Scanner
	w     *bed.Writer
	sub   *subfeatureAugmenter
	stats Stats
	buf   []Feature
}

func (a *augmenter) keep(rec *gff.Record) bool {
	if a.opts.AllChromosomes || NumericChrom(rec.Chrom) {
		return true
	}
	a.stats.Skipped++
	return false
}

func (a *augmenter) write(features []Feature) error {
	for _, f := range features {
		if err := a.w.Write(f.Record()); err != nil {
			return err
		}
		a.stats.Written++
	}
	return nil
}

func (a *augmenter) bands(gene *gff.Record) error {
	bands, dropped := UpstreamBands(gene.HalfOpen(), a.opts.Boundaries)
	for _, b := range bands {
		if b.Clamped {
			log.Debug.Printf("clamped %s band of gene %s:%d-%d at chromosome start", b.Name, gene.Chrom, gene.Start, gene.End)
			a.stats.Clamped++
		}
	}
	a.stats.Bands += len(bands)
	a.stats.Dropped += dropped
	return a.write(bands)
}

// gene writes one gene block: the gene, its upstream bands on the plus
// strand, its augmented sub-features, its upstream bands on the minus
// strand, and a separator. The block ends at a separator, at EOF, or before
// the next gene. When the gene has an ID, it also ends before the next
// record without a Parent.
func (a *augmenter) gene(gene *gff.Record) error {
	a.stats.Genes++
	if err := a.write([]Feature{{Interval: gene.HalfOpen()}}); err != nil {
		return err
	}
	if gene.Strand == seq.Plus {
		if err := a.bands(gene); err != nil {
			return err
		}
	}
	a.sub.reset()
	_, hierarchical := gene.Attr("ID")
	var rec gff.Record
	for a.sc.Scan(&rec) {
		if rec.IsSeparator() {
			break
		}
		if rec.Type == "gene" {
			a.sc.Unread()
			break
		}
		if _, ok := rec.Attr("Parent"); hierarchical && !ok {
			a.sc.Unread()
			break
		}
		a.stats.Records++
		if !a.keep(&rec) {
			continue
		}
		a.buf = a.sub.add(&rec, a.buf[:0])
		if err := a.write(a.buf); err != nil {
			return err
		}
	}
	if err := a.sc.Err(); err != nil {
		return err
	}
	if gene.Strand == seq.Minus {
		if err := a.bands(gene); err != nil {
			return err
		}
	}
	return a.w.WriteSeparator()
}

// Augment reads the GFF3 stream in and writes the unsorted augmented BED
// stream to out. path is only used in messages.
func Augment(ctx context.Context, in io.Reader, path string, out io.Writer, opts Opts) (Stats, error) {
	if err := opts.Validate(); err != nil {
		return Stats{}, err
	}
	h := seahash.New()
	a := &augmenter{
		opts: opts,
		sc:   gff.NewScanner(in, path),
		w:    bed.NewWriter(io.MultiWriter(out, h)),
		sub:  newSubfeatureAugmenter(opts.IsTranscript),
	}
	var rec gff.Record
	for a.sc.Scan(&rec) {
		if rec.IsSeparator() {
			if err := a.w.WriteSeparator(); err != nil {
				return a.stats, err
			}
			continue
		}
		a.stats.Records++
		if a.stats.Records%100000 == 0 {
			if err := ctx.Err(); err != nil {
				return a.stats, err
			}
		}
		if !a.keep(&rec) {
			continue
		}
		var err error
		switch rec.Type {
		case "gene":
			err = a.gene(&rec)
		case "chromosome":
			a.stats.Skipped++
		default:
			if err = a.write([]Feature{{Interval: rec.HalfOpen()}}); err == nil {
				err = a.w.WriteSeparator()
			}
		}
		if err != nil {
			return a.stats, errors.E(err, "augment", path)
		}
	}
	if err := a.sc.Err(); err != nil {
		return a.stats, err
	}
	if err := a.w.Flush(); err != nil {
		return a.stats, err
	}
	a.stats.Introns = a.sub.introns
	a.stats.Digest = h.Sum64()
	log.Printf("%s: augmented %d records into %d features (%d genes, %d introns, %d upstream bands, %d clamped, %d skipped)",
		path, a.stats.Records, a.stats.Written, a.stats.Genes, a.stats.Introns, a.stats.Bands, a.stats.Clamped, a.stats.Skipped)
	return a.stats, nil
}
