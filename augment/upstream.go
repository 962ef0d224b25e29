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
package augment

import (
	"github.com/biogo/biogo/seq"
	"github.com/grailbio/peakclassifier/interval"
)

// Feature is one record of the augmented stream: a 0-based half-open
// interval named after its feature type.
type Feature struct {
	interval.Interval
	// Index is the 1-based ordinal of an exon or intron within its
	// transcript, and 0 for every other type.
	Index int
	// Clamped is set on an upstream band whose start was cut off at the
	// beginning of the chromosome.
	Clamped bool
}

// Record returns f as a BED record, with Index in the score column.
func (f Feature) Record() interval.Interval {
	iv := f.Interval
	iv.Score = float64(f.Index)
	return iv
}

// UpstreamBands returns the bands upstream of gene's transcription start, in
// ascending coordinate order. The distance of a base is measured from the
// start base itself; band i holds distances in (b[i-1], b[i]], with the
// innermost band also holding the start base. Bands that would begin before
// the chromosome are clamped at 0, and bands left empty by clamping are
// dropped and counted. Unstranded genes have no upstream.
func UpstreamBands(gene interval.Interval, b Boundaries) (bands []Feature, dropped int) {
	band := func(start, end interval.PosType, i int) {
		f := Feature{Interval: interval.Interval{
			Chrom:  gene.Chrom,
			Start:  start,
			End:    end,
			Name:   BandName(b[i]),
			Strand: gene.Strand,
		}}
		if f.Start < 0 {
			f.Start, f.Clamped = 0, true
		}
		if f.End <= f.Start {
			dropped++
			return
		}
		bands = append(bands, f)
	}
	switch gene.Strand {
	case seq.Plus:
		tss := gene.Start
		for i := len(b) - 1; i > 0; i-- {
			band(tss-b[i], tss-b[i-1], i)
		}
		band(tss-b[0], tss+1, 0)
	case seq.Minus:
		// The last gene base is the start site, so band 0 begins at End-1
		// just as the plus-strand band 0 ends at Start+1.
		tss := gene.End - 1
		band(tss, tss+1+b[0], 0)
		for i := 1; i < len(b); i++ {
			band(tss+1+b[i-1], tss+1+b[i], i)
		}
	}
	return bands, dropped
}
