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
package overlap

import (
	"context"

	"github.com/grailbio/base/log"
	"github.com/grailbio/peakclassifier/encoding/bed"
	"github.com/grailbio/peakclassifier/interval"
)

// MergeJoin is a single-pass merge of the two sorted streams. Memory is
// bounded by the number of features that can still overlap upcoming peaks.
type MergeJoin struct {
	Opts Opts
}

// Join implements Joiner.
func (j *MergeJoin) Join(ctx context.Context, peaksPath, featuresPath string, emit func(*Record) error) (err error) {
	peaks, err := bed.Open(ctx, peaksPath)
	if err != nil {
		return err
	}
	defer func() {
		if e := peaks.Close(); e != nil && err == nil {
			err = e
		}
	}()
	features, err := bed.Open(ctx, featuresPath)
	if err != nil {
		return err
	}
	defer func() {
		if e := features.Close(); e != nil && err == nil {
			err = e
		}
	}()
	scanOpts := bed.Opts{CheckOrder: true, Order: j.Opts.Order}
	return j.Merge(ctx,
		bed.NewScanner(peaks, peaksPath, scanOpts),
		bed.NewScanner(features, featuresPath, scanOpts),
		emit)
}

// Merge joins two scanners. Both should check ordering.
func (j *MergeJoin) Merge(ctx context.Context, peaks, features *bed.Scanner, emit func(*Record) error) error {
	if err := j.Opts.Validate(); err != nil {
		return err
	}
	var (
		order            = j.Opts.Order
		window           []interval.Interval
		feat             interval.Interval
		peak             interval.Interval
		curChrom         string
		nPeaks, nRecords int
	)
	featOK := features.Scan(&feat)
	if err := features.Err(); err != nil {
		return err
	}
	for peaks.Scan(&peak) {
		nPeaks++
		if nPeaks%100000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		q := peak
		if j.Opts.MidpointsOnly {
			q = peak.Midpoint()
		}
		if q.Chrom != curChrom {
			window = window[:0]
			curChrom = q.Chrom
		}
		// Peak starts never decrease within a chromosome, so a feature ending
		// at or before this peak's start cannot overlap any later peak, even
		// after midpoint collapsing.
		n := 0
		for _, f := range window {
			if f.End > peak.Start {
				window[n] = f
				n++
			}
		}
		window = window[:n]
		for featOK {
			c := order.Compare(feat.Chrom, q.Chrom)
			if c > 0 || (c == 0 && feat.Start >= q.End) {
				break
			}
			if c == 0 && feat.End > peak.Start {
				window = append(window, feat)
			}
			if featOK = features.Scan(&feat); !featOK {
				if err := features.Err(); err != nil {
					return err
				}
			}
		}
		hit := false
		for i := range window {
			f := &window[i]
			ov := interval.Overlap(q.Start, q.End, f.Start, f.End)
			if !j.Opts.qualifies(ov, q.Len(), f.Len()) {
				continue
			}
			hit = true
			nRecords++
			if err := emit(&Record{
				Chrom:     q.Chrom,
				PeakStart: q.Start,
				PeakEnd:   q.End,
				FeatStart: f.Start,
				FeatEnd:   f.End,
				FeatName:  f.Name,
				Strand:    string(interval.StrandByte(f.Strand)),
				Overlap:   int64(ov),
			}); err != nil {
				return err
			}
		}
		if !hit {
			nRecords++
			r := NoHit(q)
			if err := emit(&r); err != nil {
				return err
			}
		}
	}
	if err := peaks.Err(); err != nil {
		return err
	}
	if err := features.Err(); err != nil {
		return err
	}
	log.Printf("joined %d peaks, %d overlap records", nPeaks, nRecords)
	return nil
}
