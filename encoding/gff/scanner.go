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

// Package gff reads the GFF3 gene model streams consumed by the feature
// augmenter. Only the nine fixed columns are interpreted; attributes are
// carried verbatim.
package gff

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/biogo/biogo/seq"
	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/peakclassifier/interval"
)

// Record is one GFF3 feature line, or a "###" block separator. Start and
// End are 1-based closed, as in the file.
type Record struct {
	Chrom      string
	Source     string
	Type       string
	Start      interval.PosType
	End        interval.PosType
	Score      string
	Strand     seq.Strand
	Phase      string
	Attributes string

	separator bool
}

// IsSeparator reports whether r is a "###" line, which closes every open
// feature block.
func (r *Record) IsSeparator() bool { return r.separator }

// HalfOpen returns the record as a 0-based half-open interval named after
// its type.
func (r *Record) HalfOpen() interval.Interval {
	start, end := interval.ToHalfOpen(r.Start, r.End)
	return interval.Interval{Chrom: r.Chrom, Start: start, End: end, Name: r.Type, Strand: r.Strand}
}

// Attr returns the value of attribute key as written in the file.
func (r *Record) Attr(key string) (string, bool) {
	for _, kv := range strings.Split(r.Attributes, ";") {
		kv = strings.TrimSpace(kv)
		if i := strings.IndexByte(kv, '='); i > 0 && kv[:i] == key {
			return kv[i+1:], true
		}
	}
	return "", false
}

var (
	separator = []byte("###")
	fasta     = []byte("##FASTA")
)

// Scanner reads GFF3 records. Directives and comments other than "###" are
// skipped, and scanning stops at a "##FASTA" directive. Scanners are not
// threadsafe.
type Scanner struct {
	b      *bufio.Scanner
	path   string
	line   int
	err    error
	fields [][]byte

	rec     Record
	unread  bool
	scanned bool
	done    bool
}

// NewScanner creates a Scanner reading from r. path is only used in error
// messages.
func NewScanner(r io.Reader, path string) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 64<<10), 16<<20)
	return &Scanner{b: b, path: path}
}

func (s *Scanner) errorf(format string, args ...interface{}) bool {
	s.err = errors.E(errors.Invalid, fmt.Sprintf("%s:%d: ", s.path, s.line)+fmt.Sprintf(format, args...))
	return false
}

// Unread pushes the last scanned record back, so the next Scan returns it
// again. At most one record can be pushed back.
func (s *Scanner) Unread() {
	if !s.scanned {
		panic("gff: Unread without a scanned record")
	}
	s.unread = true
}

// Scan reads the next record into rec. It returns false at EOF or on error;
// the caller should then check Err.
func (s *Scanner) Scan(rec *Record) bool {
	if s.unread {
		s.unread = false
		*rec = s.rec
		return true
	}
	s.scanned = false
	if s.err != nil || s.done {
		return false
	}
	for s.b.Scan() {
		s.line++
		line := s.b.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if line[0] == '#' {
			switch {
			case bytes.Equal(bytes.TrimRight(line, " \t\r"), separator):
				s.rec = Record{separator: true}
				return s.emit(rec)
			case bytes.HasPrefix(line, fasta):
				s.done = true
				return false
			}
			continue
		}
		if !s.parse(line) {
			return false
		}
		return s.emit(rec)
	}
	if err := s.b.Err(); err != nil {
		s.err = errors.E(err, "read", s.path)
	}
	return false
}

func (s *Scanner) emit(rec *Record) bool {
	s.scanned = true
	*rec = s.rec
	return true
}

func (s *Scanner) parse(line []byte) bool {
	s.fields = bytes.SplitN(line, []byte{'\t'}, 9)
	if len(s.fields) != 9 {
		return s.errorf("expected 9 tab-separated columns, found %d", len(s.fields))
	}
	start, err := strconv.ParseInt(gunsafe.BytesToString(s.fields[3]), 10, 32)
	if err != nil || start < 1 {
		return s.errorf("bad start coordinate %q", s.fields[3])
	}
	end, err := strconv.ParseInt(gunsafe.BytesToString(s.fields[4]), 10, 32)
	if err != nil || end < start {
		return s.errorf("bad end coordinate %q", s.fields[4])
	}
	strand, ok := interval.ParseStrand(s.fields[6])
	if !ok {
		return s.errorf("bad strand %q", s.fields[6])
	}
	s.rec = Record{
		Chrom:      string(s.fields[0]),
		Source:     string(s.fields[1]),
		Type:       string(s.fields[2]),
		Start:      interval.PosType(start),
		End:        interval.PosType(end),
		Score:      string(s.fields[5]),
		Strand:     strand,
		Phase:      string(s.fields[7]),
		Attributes: string(bytes.TrimRight(s.fields[8], "\r")),
	}
	return true
}

// Line returns the number of lines consumed so far.
func (s *Scanner) Line() int { return s.line }

// Err returns the error that stopped the scanner, if any.
func (s *Scanner) Err() error { return s.err }
