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
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/peakclassifier/interval"
	"v.io/x/lib/envvar"
	"v.io/x/lib/lookpath"
)

// Sorter orders a BED stream by chromosome, then numerically by start and
// end. Comment lines, including gene-block separators, are dropped. Ties
// are broken by comparing whole lines byte-wise, so every Sorter produces
// the same bytes for the same input.
type Sorter interface {
	Sort(ctx context.Context, in io.Reader, out io.Writer) error
}

// NewSorter returns the Sorter named by kind: "external" or "memory".
func NewSorter(kind string, order interval.ChromOrder, tempDir string) (Sorter, error) {
	switch kind {
	case "", "external":
		return &ExternalSorter{Order: order, TempDir: tempDir}, nil
	case "memory":
		return MemSorter{Order: order}, nil
	}
	return nil, errors.E(errors.Invalid, "unknown sorter", kind)
}

// ExternalSorter runs the system sort utility in the C locale. It handles
// inputs larger than memory.
type ExternalSorter struct {
	Order interval.ChromOrder
	// TempDir is passed to sort -T when nonempty.
	TempDir string
	// Path is the sort binary. When empty, "sort" is looked up in $PATH.
	Path string
}

// Args returns the sort arguments for the configured order.
func (s *ExternalSorter) Args() []string {
	chromKey := "-k1,1"
	if s.Order == interval.Natural {
		chromKey = "-k1,1V"
	}
	args := []string{"-t", "\t", chromKey, "-k2,2n", "-k3,3n"}
	if s.TempDir != "" {
		args = append(args, "-T", s.TempDir)
	}
	return args
}

// Sort implements Sorter.
func (s *ExternalSorter) Sort(ctx context.Context, in io.Reader, out io.Writer) error {
	env := envvar.SliceToMap(os.Environ())
	path := s.Path
	if path == "" {
		var err error
		if path, err = lookpath.Look(env, "sort"); err != nil {
			return errors.E(errors.Unavailable, err, "sort")
		}
	}
	env["LC_ALL"] = "C"
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(stripComments(in, pw))
	}()
	defer pr.Close()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, s.Args()...)
	cmd.Env = envvar.MapToSlice(env)
	cmd.Stdin = pr
	cmd.Stdout = out
	cmd.Stderr = &stderr
	log.Debug.Printf("running %s %s", path, strings.Join(s.Args(), " "))
	if err := cmd.Run(); err != nil {
		return errors.E(errors.Unavailable, err, path, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// stripComments copies in to out, dropping blank lines and lines that begin
// with '#'.
func stripComments(in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64<<10), 16<<20)
	w := bufio.NewWriter(out)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return w.Flush()
}

// MemSorter sorts in memory. It is meant for tests and small annotations.
type MemSorter struct {
	Order interval.ChromOrder
}

type sortLine struct {
	line       []byte
	chrom      string
	start, end interval.PosType
}

// Sort implements Sorter.
func (s MemSorter) Sort(ctx context.Context, in io.Reader, out io.Writer) error {
	var (
		lines  []sortLine
		tokens [3][]byte
		sc     = bufio.NewScanner(in)
		lineNo int
	)
	sc.Buffer(make([]byte, 64<<10), 16<<20)
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if getTokens(tokens[:], line) != 3 {
			return errors.E(errors.Invalid, fmt.Sprintf("line %d: expected at least 3 columns", lineNo))
		}
		start, ok1 := parsePos(tokens[1])
		end, ok2 := parsePos(tokens[2])
		if !ok1 || !ok2 {
			return errors.E(errors.Invalid, fmt.Sprintf("line %d: bad coordinates", lineNo))
		}
		lines = append(lines, sortLine{
			line:  append([]byte(nil), line...),
			chrom: string(tokens[0]),
			start: start,
			end:   end,
		})
	}
	if err := sc.Err(); err != nil {
		return err
	}
	sort.Slice(lines, func(i, j int) bool {
		a, b := &lines[i], &lines[j]
		if c := s.Order.Compare(a.chrom, b.chrom); c != 0 {
			return c < 0
		}
		if a.start != b.start {
			return a.start < b.start
		}
		if a.end != b.end {
			return a.end < b.end
		}
		return bytes.Compare(a.line, b.line) < 0
	})
	w := bufio.NewWriter(out)
	for _, l := range lines {
		w.Write(l.line)
		w.WriteByte('\n')
	}
	return w.Flush()
}
