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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/peakclassifier/encoding/bed"
	"github.com/grailbio/peakclassifier/interval"
	pkgerrors "github.com/pkg/errors"
	"v.io/x/lib/envvar"
	"v.io/x/lib/lookpath"
)

// DelegatedJoin runs "bedtools intersect -wao". Peaks are validated and, if
// requested, collapsed to midpoints into a temporary file first.
type DelegatedJoin struct {
	Opts Opts
	// TempDir holds the temporary peak file. The system default is used
	// when empty.
	TempDir string
	// Path is the bedtools binary. When empty, "bedtools" is looked up in
	// $PATH.
	Path string
}

// Args returns the bedtools arguments for the given inputs.
func (j *DelegatedJoin) Args(peaksPath, featuresPath string) []string {
	args := []string{"intersect", "-a", peaksPath, "-b", featuresPath, "-wao",
		"-f", strconv.FormatFloat(j.Opts.MinPeakOverlap, 'g', -1, 64),
		"-F", strconv.FormatFloat(j.Opts.MinFeatureOverlap, 'g', -1, 64)}
	if j.Opts.Either {
		args = append(args, "-e")
	}
	return args
}

// writePeaks copies the peaks to a temporary three-column BED file,
// checking their order.
func (j *DelegatedJoin) writePeaks(ctx context.Context, peaksPath string) (path string, err error) {
	in, err := bed.Open(ctx, peaksPath)
	if err != nil {
		return "", err
	}
	defer func() {
		if e := in.Close(); e != nil && err == nil {
			err = e
		}
	}()
	tmp, err := ioutil.TempFile(j.TempDir, "peaks-*.bed")
	if err != nil {
		return "", errors.E(err, "create temporary peak file")
	}
	path = tmp.Name()
	defer func() {
		if e := tmp.Close(); e != nil && err == nil {
			err = e
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	var (
		w    = bufio.NewWriter(tmp)
		sc   = bed.NewScanner(in, peaksPath, bed.Opts{CheckOrder: true, Order: j.Opts.Order})
		peak interval.Interval
	)
	for sc.Scan(&peak) {
		if j.Opts.MidpointsOnly {
			peak = peak.Midpoint()
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", peak.Chrom, peak.Start, peak.End)
	}
	if err = sc.Err(); err != nil {
		return path, err
	}
	return path, w.Flush()
}

// Join implements Joiner.
func (j *DelegatedJoin) Join(ctx context.Context, peaksPath, featuresPath string, emit func(*Record) error) error {
	if err := j.Opts.Validate(); err != nil {
		return err
	}
	path := j.Path
	if path == "" {
		var err error
		if path, err = lookpath.Look(envvar.SliceToMap(os.Environ()), "bedtools"); err != nil {
			return errors.E(errors.Unavailable, err, "bedtools")
		}
	}
	if _, err := os.Stat(featuresPath); err != nil {
		return errors.E(err, "open", featuresPath)
	}
	tmpPeaks, err := j.writePeaks(ctx, peaksPath)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPeaks) // nolint: errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var stderr bytes.Buffer
	args := j.Args(tmpPeaks, featuresPath)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.E(errors.Unavailable, err, path)
	}
	log.Debug.Printf("running %s %s", path, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return errors.E(errors.Unavailable, err, path)
	}
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64<<10), 16<<20)
	var (
		rec  Record
		line int
	)
	for sc.Scan() {
		line++
		if err := parseIntersect(sc.Bytes(), &rec); err != nil {
			return errors.E(err, fmt.Sprintf("bedtools output line %d", line))
		}
		if err := emit(&rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.E(err, "read bedtools output")
	}
	if err := cmd.Wait(); err != nil {
		return errors.E(errors.Unavailable, err, path, strings.TrimSpace(stderr.String()))
	}
	log.Printf("bedtools intersect produced %d overlap records", line)
	return nil
}

// parseIntersect parses one "-wao" line: three peak columns, six feature
// columns and the overlap.
func parseIntersect(line []byte, rec *Record) error {
	f := bytes.Split(line, []byte{'\t'})
	if len(f) != 10 {
		return errors.E(errors.Invalid, fmt.Sprintf("expected 10 columns, found %d", len(f)))
	}
	var pos [4]int64
	for i, col := range [4]int{1, 2, 4, 5} {
		v, err := strconv.ParseInt(gunsafe.BytesToString(f[col]), 10, 32)
		if err != nil {
			return errors.E(errors.Invalid, pkgerrors.Wrapf(err, "column %d", col+1))
		}
		pos[i] = v
	}
	ov, err := strconv.ParseInt(gunsafe.BytesToString(f[9]), 10, 64)
	if err != nil {
		return errors.E(errors.Invalid, pkgerrors.Wrap(err, "overlap column"))
	}
	*rec = Record{
		Chrom:     string(f[0]),
		PeakStart: interval.PosType(pos[0]),
		PeakEnd:   interval.PosType(pos[1]),
		FeatStart: interval.PosType(pos[2]),
		FeatEnd:   interval.PosType(pos[3]),
		FeatName:  string(f[6]),
		Strand:    string(f[8]),
		Overlap:   ov,
	}
	if pos[2] < 0 {
		*rec = NoHit(interval.Interval{Chrom: rec.Chrom, Start: rec.PeakStart, End: rec.PeakEnd})
	}
	return nil
}
