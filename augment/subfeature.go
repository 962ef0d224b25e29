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
	"strings"

	"github.com/grailbio/peakclassifier/encoding/gff"
	"github.com/grailbio/peakclassifier/interval"
)

// TranscriptPredicate reports whether a sub-feature type starts a new
// transcript within a gene block.
type TranscriptPredicate func(featureType string) bool

// DefaultTranscriptPredicate matches RNA types (mRNA, lnc_RNA, ...) and the
// other transcript-like types found in RefSeq and Ensembl annotations.
func DefaultTranscriptPredicate(featureType string) bool {
	for _, s := range []string{"RNA", "transcript", "gene_segment", "_overlapping_ncrna"} {
		if strings.Contains(featureType, s) {
			return true
		}
	}
	return false
}

type augmenterState int

const (
	awaitingFirstExon augmenterState = iota
	inTranscript
)

// subfeatureAugmenter re-emits the sub-features of one gene block and
// synthesizes an intron between consecutive exons of each transcript.
type subfeatureAugmenter struct {
	isTranscript TranscriptPredicate
	state        augmenterState
	prevExon     interval.Interval
	nExon        int
	nIntron      int
	// introns counts every intron synthesized so far.
	introns int
}

func newSubfeatureAugmenter(isTranscript TranscriptPredicate) *subfeatureAugmenter {
	if isTranscript == nil {
		isTranscript = DefaultTranscriptPredicate
	}
	return &subfeatureAugmenter{isTranscript: isTranscript}
}

func (a *subfeatureAugmenter) reset() {
	a.state = awaitingFirstExon
	a.nExon, a.nIntron = 0, 0
}

// add appends the features produced by rec to out. An exon following
// another exon of the same transcript is preceded by the intron between
// them, unless the two exons abut or overlap.
func (a *subfeatureAugmenter) add(rec *gff.Record, out []Feature) []Feature {
	iv := rec.HalfOpen()
	switch {
	case a.isTranscript(rec.Type):
		a.reset()
	case rec.Type == "exon":
		if a.state == inTranscript {
			intron := interval.Interval{Chrom: iv.Chrom, Name: "intron", Strand: iv.Strand}
			if iv.Start >= a.prevExon.Start {
				intron.Start, intron.End = a.prevExon.End, iv.Start
			} else {
				intron.Start, intron.End = iv.End, a.prevExon.Start
			}
			if intron.End > intron.Start {
				a.nIntron++
				a.introns++
				out = append(out, Feature{Interval: intron, Index: a.nIntron})
			}
		}
		a.nExon++
		a.state = inTranscript
		a.prevExon = iv
		return append(out, Feature{Interval: iv, Index: a.nExon})
	}
	return append(out, Feature{Interval: iv})
}
