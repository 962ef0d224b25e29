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
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	storeinterval "github.com/biogo/store/interval"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/peakclassifier/encoding/bed"
	"github.com/grailbio/peakclassifier/interval"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func merge(t *testing.T, opts Opts, peaks, features string) ([]Record, error) {
	scanOpts := bed.Opts{CheckOrder: true, Order: opts.Order}
	j := &MergeJoin{Opts: opts}
	var recs []Record
	err := j.Merge(context.Background(),
		bed.NewScanner(strings.NewReader(peaks), "peaks.bed", scanOpts),
		bed.NewScanner(strings.NewReader(features), "features.bed", scanOpts),
		func(r *Record) error {
			recs = append(recs, *r)
			return nil
		})
	return recs, err
}

const testFeatures = `chr1	0	499	upstream2000	0	+
chr1	150	160	exon	1	+
chr1	499	1500	upstream1000	0	+
chr1	1499	2500	gene	0	+
chr1	1499	1600	exon	1	+
chr2	10	20	exon	1	-
chr3	5	50	intron	1	-
`

func TestMerge(t *testing.T) {
	peaks := "chr1\t100\t200\tp1\nchr1\t1000\t2000\tp2\nchr1\t5000\t6000\tp3\nchr3\t0\t10\tp4\n"
	recs, err := merge(t, DefaultOpts, peaks, testFeatures)
	assert.NoError(t, err)
	expect.EQ(t, recs, []Record{
		{"chr1", 100, 200, 0, 499, "upstream2000", "+", 100},
		{"chr1", 100, 200, 150, 160, "exon", "+", 10},
		{"chr1", 1000, 2000, 499, 1500, "upstream1000", "+", 500},
		{"chr1", 1000, 2000, 1499, 2500, "gene", "+", 501},
		{"chr1", 1000, 2000, 1499, 1600, "exon", "+", 101},
		{"chr1", 5000, 6000, -1, -1, UpstreamBeyond, ".", -1},
		{"chr3", 0, 10, 5, 50, "intron", "-", 5},
	})
}

func TestThresholds(t *testing.T) {
	peaks := "chr1\t100\t200\n"
	features := "chr1\t150\t160\texon\t1\t+\nchr1\t190\t1190\tintron\t1\t+\n"
	names := func(opts Opts) []string {
		recs, err := merge(t, opts, peaks, features)
		require.NoError(t, err)
		var n []string
		for _, r := range recs {
			n = append(n, r.FeatName)
		}
		return n
	}
	// exon: 10 bases = 10% of the peak, 100% of the feature.
	// intron: 10 bases = 10% of the peak, 1% of the feature.
	expect.EQ(t, names(DefaultOpts), []string{"exon", "intron"})
	expect.EQ(t, names(Opts{MinPeakOverlap: 0.5, MinFeatureOverlap: 0.5}), []string{UpstreamBeyond})
	expect.EQ(t, names(Opts{MinPeakOverlap: 0.5, MinFeatureOverlap: 0.5, Either: true}), []string{"exon"})
	expect.EQ(t, names(Opts{MinPeakOverlap: 0.1, MinFeatureOverlap: 0.01}), []string{"exon", "intron"})
	expect.EQ(t, names(Opts{MinPeakOverlap: 0.11}), []string{UpstreamBeyond})
}

func TestMidpointsOnly(t *testing.T) {
	// Midpoints: 150 and 120. The second peak starts later but its midpoint
	// is earlier, and still finds the feature.
	peaks := "chr1\t100\t201\nchr1\t110\t131\n"
	features := "chr1\t115\t125\tA\t0\t+\nchr1\t140\t160\tB\t0\t+\n"
	recs, err := merge(t, Opts{MidpointsOnly: true}, peaks, features)
	assert.NoError(t, err)
	expect.EQ(t, recs, []Record{
		{"chr1", 150, 151, 140, 160, "B", "+", 1},
		{"chr1", 120, 121, 115, 125, "A", "+", 1},
	})
}

func TestUnsorted(t *testing.T) {
	peaks := "chr1\t100\t200\nchr1\t50\t60\nchr1\t300\t400\n"
	recs, err := merge(t, DefaultOpts, peaks, testFeatures)
	expect.True(t, errors.Is(errors.Integrity, err), "%v", err)
	// Nothing past the out-of-order peak.
	for _, r := range recs {
		expect.EQ(t, r.PeakStart, interval.PosType(100))
	}

	features := "chr2\t1\t10\tA\t0\t+\nchr1\t1\t10\tB\t0\t+\n"
	recs, err = merge(t, DefaultOpts, "chr1\t1\t5\nchr2\t1\t5\n", features)
	expect.True(t, errors.Is(errors.Integrity, err), "%v", err)
	// The chr1 peak is resolved before the chr1 feature shows up out of
	// order; the chr2 peak is not.
	assert.EQ(t, len(recs), 1)
	expect.EQ(t, recs[0].Chrom, "chr1")

	// Natural order input joined as lexical is rejected.
	_, err = merge(t, DefaultOpts, "chr2\t1\t5\nchr10\t1\t5\n", "chr2\t1\t10\tA\t0\t+\n")
	expect.True(t, errors.Is(errors.Integrity, err), "%v", err)
	_, err = merge(t, Opts{Order: interval.Natural}, "chr2\t1\t5\nchr10\t1\t5\n", "chr2\t1\t10\tA\t0\t+\nchr10\t3\t4\tB\t0\t+\n")
	expect.NoError(t, err)
}

func TestEmitError(t *testing.T) {
	scanOpts := bed.Opts{CheckOrder: true}
	j := &MergeJoin{Opts: DefaultOpts}
	stop := errors.New("stop")
	err := j.Merge(context.Background(),
		bed.NewScanner(strings.NewReader("chr1\t100\t200\n"), "p", scanOpts),
		bed.NewScanner(strings.NewReader(testFeatures), "f", scanOpts),
		func(*Record) error { return stop })
	expect.EQ(t, err, stop)
}

type oracleFeature struct {
	interval.Interval
	id uintptr
}

func (f oracleFeature) Overlap(b storeinterval.IntRange) bool {
	return int(f.End) > b.Start && int(f.Start) < b.End
}
func (f oracleFeature) ID() uintptr { return f.id }
func (f oracleFeature) Range() storeinterval.IntRange {
	return storeinterval.IntRange{Start: int(f.Start), End: int(f.End)}
}

type oracleQuery struct{ start, end int }

func (q oracleQuery) Overlap(b storeinterval.IntRange) bool { return q.end > b.Start && q.start < b.End }

func randomIntervals(r *rand.Rand, n, maxLen int) []interval.Interval {
	ivs := make([]interval.Interval, n)
	chroms := []string{"chr1", "chr2", "chr3"}
	for i := range ivs {
		start := interval.PosType(r.Intn(20000))
		ivs[i] = interval.Interval{
			Chrom: chroms[r.Intn(len(chroms))],
			Start: start,
			End:   start + 1 + interval.PosType(r.Intn(maxLen)),
			Name:  fmt.Sprintf("f%d", i),
		}
	}
	sort.Slice(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
	return ivs
}

func toBED(ivs []interval.Interval) string {
	var buf bytes.Buffer
	w := bed.NewWriter(&buf)
	for _, iv := range ivs {
		w.Write(iv) // nolint: errcheck
	}
	w.Flush() // nolint: errcheck
	return buf.String()
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		if a.PeakStart != b.PeakStart {
			return a.PeakStart < b.PeakStart
		}
		if a.PeakEnd != b.PeakEnd {
			return a.PeakEnd < b.PeakEnd
		}
		return a.FeatName < b.FeatName
	})
}

// TestMergeMatchesIntervalTree checks the merge join against an interval
// tree built over all features.
func TestMergeMatchesIntervalTree(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for iter := 0; iter < 20; iter++ {
		peaks := randomIntervals(r, 200, 500)
		features := randomIntervals(r, 500, 2000)
		opts := Opts{MinPeakOverlap: 0.1 * float64(r.Intn(5)), MinFeatureOverlap: 0.05 * float64(r.Intn(3)), Either: r.Intn(2) == 0}

		trees := map[string]*storeinterval.IntTree{}
		for i, f := range features {
			tree := trees[f.Chrom]
			if tree == nil {
				tree = &storeinterval.IntTree{}
				trees[f.Chrom] = tree
			}
			require.NoError(t, tree.Insert(oracleFeature{f, uintptr(i + 1)}, true))
		}
		for _, tree := range trees {
			tree.AdjustRanges()
		}
		var want []Record
		for _, p := range peaks {
			hit := false
			if tree := trees[p.Chrom]; tree != nil {
				for _, o := range tree.Get(oracleQuery{int(p.Start), int(p.End)}) {
					f := o.(oracleFeature)
					ov := interval.Overlap(p.Start, p.End, f.Start, f.End)
					if opts.qualifies(ov, p.Len(), f.Len()) {
						hit = true
						want = append(want, Record{p.Chrom, p.Start, p.End, f.Start, f.End, f.Name, ".", int64(ov)})
					}
				}
			}
			if !hit {
				want = append(want, NoHit(p))
			}
		}
		got, err := merge(t, opts, toBED(peaks), toBED(features))
		require.NoError(t, err)
		sortRecords(got)
		sortRecords(want)
		require.Equal(t, want, got, "iteration %d, opts %+v", iter, opts)
	}
}
