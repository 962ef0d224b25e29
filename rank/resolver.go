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
package rank

import (
	"context"
	"io"

	"github.com/grailbio/peakclassifier/overlap"
)

// Resolver groups contiguous overlap records by peak and emits one keeper
// per group: the first record whose feature has the best rank. Groups
// without any ranked feature emit nothing.
type Resolver struct {
	table *Table
	emit  func(*overlap.Record) error
	acc   *Accumulator

	inGroup  bool
	group    overlap.Record
	best     overlap.Record
	bestRank int
}

// NewResolver creates a Resolver that passes keepers to emit.
func NewResolver(table *Table, emit func(*overlap.Record) error) *Resolver {
	return &Resolver{table: table, emit: emit, acc: NewAccumulator(table), bestRank: -1}
}

// Add processes the next record of the report.
func (r *Resolver) Add(rec *overlap.Record) error {
	if r.inGroup && !r.group.SamePeak(rec) {
		if err := r.flush(); err != nil {
			return err
		}
	}
	if !r.inGroup {
		r.inGroup = true
		r.group = *rec
	}
	rank, ok := r.table.Rank(rec.FeatName)
	if !ok {
		r.acc.unmatched[rec.FeatName]++
		return nil
	}
	if r.bestRank < 0 || rank < r.bestRank {
		r.best, r.bestRank = *rec, rank
	}
	return nil
}

func (r *Resolver) flush() error {
	r.inGroup = false
	r.acc.UniquePeaks++
	if r.bestRank < 0 {
		return nil
	}
	rank := r.bestRank
	r.bestRank = -1
	r.acc.Counts[rank]++
	return r.emit(&r.best)
}

// Close finishes the last group.
func (r *Resolver) Close() error {
	if !r.inGroup {
		return nil
	}
	return r.flush()
}

// Accumulator returns the counts gathered so far.
func (r *Resolver) Accumulator() *Accumulator { return r.acc }

// Filter reads an overlap report from in and writes the keepers to out.
func Filter(ctx context.Context, in io.Reader, out io.Writer, table *Table) (*Accumulator, error) {
	var (
		rr  = overlap.NewReportReader(in)
		rw  = overlap.NewReportWriter(out)
		res = NewResolver(table, rw.Write)
		rec overlap.Record
		n   int
	)
	for {
		err := rr.Read(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return res.acc, err
		}
		if n++; n%100000 == 0 {
			if err := ctx.Err(); err != nil {
				return res.acc, err
			}
		}
		if err := res.Add(&rec); err != nil {
			return res.acc, err
		}
	}
	if err := res.Close(); err != nil {
		return res.acc, err
	}
	return res.acc, rw.Flush()
}
