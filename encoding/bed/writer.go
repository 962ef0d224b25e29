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
package bed

import (
	"io"
	"math"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/peakclassifier/interval"
)

// Writer writes six-column BED records: chrom, start, end, name, score and
// strand. Integral scores are written without a fraction.
type Writer struct {
	w *tsv.Writer
}

// NewWriter creates a Writer. Flush must be called when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: tsv.NewWriter(w)}
}

// Write writes one record.
func (w *Writer) Write(iv interval.Interval) error {
	w.w.WriteString(iv.Chrom)
	w.w.WriteInt64(int64(iv.Start))
	w.w.WriteInt64(int64(iv.End))
	w.w.WriteString(iv.Name)
	if iv.Score == math.Trunc(iv.Score) {
		w.w.WriteInt64(int64(iv.Score))
	} else {
		w.w.WriteString(strconv.FormatFloat(iv.Score, 'g', -1, 64))
	}
	w.w.WriteByte(interval.StrandByte(iv.Strand))
	return w.w.EndLine()
}

// WriteSeparator writes a gene-block separator line.
func (w *Writer) WriteSeparator() error {
	w.w.WriteString(Separator)
	return w.w.EndLine()
}

// Flush flushes buffered output to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }
