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
package interval

import (
	"fmt"
	"math"

	"github.com/biogo/biogo/feat"
	"github.com/biogo/biogo/seq"
)

// PosType is the type used to represent interval coordinates.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Interval is a named, stranded span on one chromosome. Unless stated
// otherwise Start and End are 0-based half-open.
type Interval struct {
	Chrom  string
	Start  PosType
	End    PosType
	Name   string
	Score  float64
	Strand seq.Strand
}

// Len returns the number of bases covered by the interval.
func (iv Interval) Len() PosType { return iv.End - iv.Start }

// Midpoint collapses the interval to its single middle base.
func (iv Interval) Midpoint() Interval {
	mid := iv.Start + (iv.End-iv.Start)/2
	iv.Start, iv.End = mid, mid+1
	return iv
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", iv.Chrom, iv.Start, iv.End)
}

// ToHalfOpen converts a 1-based closed [start, end] pair to 0-based
// half-open. start must be >= 1.
func ToHalfOpen(start, end PosType) (PosType, PosType) {
	return PosType(feat.OneToZero(int(start))), end
}

// ToClosed converts a 0-based half-open [start, end) pair to 1-based
// closed. start must be >= 0.
func ToClosed(start, end PosType) (PosType, PosType) {
	return PosType(feat.ZeroToOne(int(start))), end
}

// Overlap returns the number of bases shared by the half-open spans
// [aStart, aEnd) and [bStart, bEnd), or a non-positive value when they are
// disjoint.
func Overlap(aStart, aEnd, bStart, bEnd PosType) PosType {
	lo, hi := aStart, aEnd
	if bStart > lo {
		lo = bStart
	}
	if bEnd < hi {
		hi = bEnd
	}
	return hi - lo
}

// ParseStrand maps a BED/GFF strand column to a seq.Strand. "." and "?"
// are both unstranded.
func ParseStrand(s []byte) (seq.Strand, bool) {
	if len(s) != 1 {
		return seq.None, false
	}
	switch s[0] {
	case '+':
		return seq.Plus, true
	case '-':
		return seq.Minus, true
	case '.', '?':
		return seq.None, true
	}
	return seq.None, false
}

// StrandByte is the inverse of ParseStrand.
func StrandByte(s seq.Strand) byte {
	switch s {
	case seq.Plus:
		return '+'
	case seq.Minus:
		return '-'
	}
	return '.'
}
