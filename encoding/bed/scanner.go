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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/peakclassifier/interval"
)

// Separator is the line written between gene blocks of an unsorted
// augmented stream. Scanners skip it like any other comment.
const Separator = "###"

// Opts controls a Scanner.
type Opts struct {
	// CheckOrder makes the scanner fail with an errors.Integrity error when a
	// chromosome sorts before its predecessor under Order, or when a start
	// decreases within a chromosome.
	CheckOrder bool
	// Order is the chromosome order checked by CheckOrder.
	Order interval.ChromOrder
}

// Scanner reads BED records. The first three columns are required; name,
// score and strand are picked up when present. Blank lines and lines
// beginning with "#", "track" or "browser" are skipped. Scanners are not
// threadsafe.
type Scanner struct {
	b    *bufio.Scanner
	path string
	opts Opts
	line int
	err  error

	tokens    [6][]byte
	prevChrom string
	prevStart interval.PosType
}

// NewScanner creates a Scanner reading from r. path is only used in error
// messages.
func NewScanner(r io.Reader, path string, opts Opts) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 64<<10), 16<<20)
	return &Scanner{b: b, path: path, opts: opts}
}

func isHeader(line []byte) bool {
	return line[0] == '#' || bytes.HasPrefix(line, []byte("track")) || bytes.HasPrefix(line, []byte("browser"))
}

// getTokens splits curLine on runs of bytes <= ' ', storing up to
// len(tokens) tokens and returning how many were stored.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

func (s *Scanner) errorf(kind errors.Kind, format string, args ...interface{}) {
	s.err = errors.E(kind, fmt.Sprintf("%s:%d: ", s.path, s.line)+fmt.Sprintf(format, args...))
}

func parsePos(tok []byte) (interval.PosType, bool) {
	v, err := strconv.ParseInt(gunsafe.BytesToString(tok), 10, 32)
	if err != nil || v < 0 {
		return 0, false
	}
	return interval.PosType(v), true
}

// Scan reads the next record into iv. It returns false at EOF or on error;
// the caller should then check Err.
func (s *Scanner) Scan(iv *interval.Interval) bool {
	if s.err != nil {
		return false
	}
	for s.b.Scan() {
		s.line++
		curLine := s.b.Bytes()
		if len(curLine) == 0 || isHeader(curLine) {
			continue
		}
		nToken := getTokens(s.tokens[:], curLine)
		if nToken == 0 {
			continue
		}
		if nToken < 3 {
			s.errorf(errors.Invalid, "expected at least 3 columns, found %d", nToken)
			return false
		}
		start, ok := parsePos(s.tokens[1])
		if !ok {
			s.errorf(errors.Invalid, "bad start coordinate %q", s.tokens[1])
			return false
		}
		end, ok := parsePos(s.tokens[2])
		if !ok || end < start {
			s.errorf(errors.Invalid, "bad end coordinate %q", s.tokens[2])
			return false
		}
		chrom := s.tokens[0]
		if s.opts.CheckOrder && !s.checkOrder(chrom, start) {
			return false
		}
		if s.prevChrom != gunsafe.BytesToString(chrom) {
			s.prevChrom = string(chrom)
		}
		s.prevStart = start

		*iv = interval.Interval{Chrom: s.prevChrom, Start: start, End: end}
		if nToken > 3 {
			iv.Name = string(s.tokens[3])
		}
		if nToken > 4 && !(len(s.tokens[4]) == 1 && s.tokens[4][0] == '.') {
			score, err := strconv.ParseFloat(gunsafe.BytesToString(s.tokens[4]), 64)
			if err != nil {
				s.errorf(errors.Invalid, "bad score %q", s.tokens[4])
				return false
			}
			iv.Score = score
		}
		if nToken > 5 {
			if iv.Strand, ok = interval.ParseStrand(s.tokens[5]); !ok {
				s.errorf(errors.Invalid, "bad strand %q", s.tokens[5])
				return false
			}
		}
		return true
	}
	if err := s.b.Err(); err != nil {
		s.err = errors.E(err, "read", s.path)
	}
	return false
}

func (s *Scanner) checkOrder(chrom []byte, start interval.PosType) bool {
	if s.prevChrom == "" {
		return true
	}
	c := s.opts.Order.Compare(gunsafe.BytesToString(chrom), s.prevChrom)
	switch {
	case c < 0:
		s.errorf(errors.Integrity, "unsorted input (%s after %s, %s chromosome order)", chrom, s.prevChrom, s.opts.Order)
		return false
	case c == 0 && start < s.prevStart:
		s.errorf(errors.Integrity, "unsorted input (start %d after %d on %s)", start, s.prevStart, chrom)
		return false
	}
	return true
}

// Line returns the number of lines consumed so far.
func (s *Scanner) Line() int { return s.line }

// Err returns the error that stopped the scanner, if any.
func (s *Scanner) Err() error { return s.err }

// ReadAll reads every record of r.
func ReadAll(r io.Reader, path string, opts Opts) ([]interval.Interval, error) {
	s := NewScanner(r, path, opts)
	var (
		ivs []interval.Interval
		iv  interval.Interval
	)
	for s.Scan(&iv) {
		ivs = append(ivs, iv)
	}
	return ivs, s.Err()
}
