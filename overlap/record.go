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

// Package overlap joins a sorted peak stream with a sorted augmented
// feature stream, producing one Record per qualifying (peak, feature) pair
// and an "upstream-beyond" Record for every peak without one.
package overlap

import (
	"bufio"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/peakclassifier/interval"
)

// UpstreamBeyond is the feature name given to peaks that overlap no
// qualifying feature.
const UpstreamBeyond = "upstream-beyond"

// Record is one row of the overlap report. Coordinates are 0-based
// half-open. A peak without a qualifying feature has FeatStart, FeatEnd and
// Overlap set to -1 and FeatName set to UpstreamBeyond.
type Record struct {
	Chrom     string           `tsv:"#Chr"`
	PeakStart interval.PosType `tsv:"P-start"`
	PeakEnd   interval.PosType `tsv:"P-end"`
	FeatStart interval.PosType `tsv:"F-start"`
	FeatEnd   interval.PosType `tsv:"F-end"`
	FeatName  string           `tsv:"F-name"`
	Strand    string           `tsv:"Strand"`
	Overlap   int64            `tsv:"Overlap"`
}

// NoHit returns the upstream-beyond record for peak.
func NoHit(peak interval.Interval) Record {
	return Record{
		Chrom:     peak.Chrom,
		PeakStart: peak.Start,
		PeakEnd:   peak.End,
		FeatStart: -1,
		FeatEnd:   -1,
		FeatName:  UpstreamBeyond,
		Strand:    ".",
		Overlap:   -1,
	}
}

// IsNoHit reports whether r records a peak without a qualifying feature.
func (r *Record) IsNoHit() bool { return r.Overlap < 0 }

// SamePeak reports whether r and o belong to the same peak.
func (r *Record) SamePeak(o *Record) bool {
	return r.PeakStart == o.PeakStart && r.PeakEnd == o.PeakEnd && r.Chrom == o.Chrom
}

// ReportWriter writes the overlap report, header first.
type ReportWriter struct {
	w *tsv.RowWriter
}

// NewReportWriter creates a ReportWriter. Flush must be called when done.
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{w: tsv.NewRowWriter(w)}
}

// Write writes one record.
func (w *ReportWriter) Write(r *Record) error { return w.w.Write(r) }

// Flush flushes buffered rows.
func (w *ReportWriter) Flush() error { return w.w.Flush() }

// ReportReader reads an overlap report written by ReportWriter. An empty
// input, which ReportWriter produces when no record was written, is a
// report without records.
type ReportReader struct {
	in      *bufio.Reader
	r       *tsv.Reader
	started bool
	empty   bool
}

// NewReportReader creates a ReportReader.
func NewReportReader(r io.Reader) *ReportReader {
	in := bufio.NewReader(r)
	tr := tsv.NewReader(in)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	return &ReportReader{in: in, r: tr}
}

// Read reads the next record. It returns io.EOF at the end of the report.
// Malformed reports fail with an errors.Invalid error.
func (r *ReportReader) Read(rec *Record) error {
	if !r.started {
		r.started = true
		if _, err := r.in.Peek(1); err == io.EOF {
			r.empty = true
		}
	}
	if r.empty {
		return io.EOF
	}
	err := r.r.Read(rec)
	if err != nil && err != io.EOF {
		return errors.E(errors.Invalid, err, "read overlap report")
	}
	return err
}
