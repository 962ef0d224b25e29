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
	"io/ioutil"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/peakclassifier/interval"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"v.io/x/lib/gosh"
	"v.io/x/lib/lookpath"
)

var testPeak = interval.Interval{Chrom: "chr1", Start: 5000, End: 6000}

func TestParseIntersect(t *testing.T) {
	var rec Record
	assert.NoError(t, parseIntersect([]byte("chr1\t1000\t2000\tchr1\t499\t1500\tupstream1000\t0\t+\t500"), &rec))
	expect.EQ(t, rec, Record{"chr1", 1000, 2000, 499, 1500, "upstream1000", "+", 500})

	assert.NoError(t, parseIntersect([]byte("chr1\t5000\t6000\t.\t-1\t-1\t.\t-1\t.\t0"), &rec))
	expect.EQ(t, rec, NoHit(testPeak))

	err := parseIntersect([]byte("chr1\t5000\t6000"), &rec)
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestDelegatedArgs(t *testing.T) {
	j := &DelegatedJoin{Opts: Opts{MinPeakOverlap: 0.5, MinFeatureOverlap: 1e-9, Either: true}}
	expect.EQ(t, j.Args("p.bed", "f.bed"), []string{"intersect", "-a", "p.bed", "-b", "f.bed", "-wao",
		"-f", "0.5", "-F", "1e-09", "-e"})
}

func writeFile(t *testing.T, path, data string) {
	assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
}

func TestDelegatedMissingBinary(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpDir)
	peaks := filepath.Join(tmpDir, "peaks.bed")
	features := filepath.Join(tmpDir, "features.bed")
	writeFile(t, peaks, "chr1\t100\t200\n")
	writeFile(t, features, testFeatures)

	j := &DelegatedJoin{Opts: DefaultOpts, TempDir: tmpDir, Path: filepath.Join(tmpDir, "no-bedtools")}
	err := j.Join(context.Background(), peaks, features, func(*Record) error { return nil })
	expect.True(t, errors.Is(errors.Unavailable, err), "%v", err)
}

// fakeBedtools writes a shell script that saves its -a input to
// <dir>/peaks.copy and prints out.
func fakeBedtools(t *testing.T, dir, out string, status int) string {
	path := filepath.Join(dir, "bedtools")
	script := "#!/bin/sh\n" +
		"cp \"$3\" " + filepath.Join(dir, "peaks.copy") + "\n" +
		"printf '" + out + "'\n" +
		"echo bedtools failed >&2\n" +
		"exit " + strconv.Itoa(status) + "\n"
	assert.NoError(t, ioutil.WriteFile(path, []byte(script), 0755))
	return path
}

func TestDelegatedJoinScripted(t *testing.T) {
	sh := gosh.NewShell(t)
	defer sh.Cleanup()
	if _, err := lookpath.Look(sh.Vars, "sh"); err != nil {
		t.Skip("sh not found")
	}
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpDir)
	peaks := filepath.Join(tmpDir, "peaks.bed")
	features := filepath.Join(tmpDir, "features.bed")
	writeFile(t, peaks, "chr1\t100\t201\tp1\nchr1\t5000\t6001\tp2\n")
	writeFile(t, features, testFeatures)
	out := `chr1\t150\t151\tchr1\t100\t200\texon\t1\t+\t1\n` +
		`chr1\t5500\t5501\t.\t-1\t-1\t.\t-1\t.\t0\n`

	ctx := context.Background()
	opts := DefaultOpts
	opts.MidpointsOnly = true
	j := &DelegatedJoin{Opts: opts, TempDir: tmpDir, Path: fakeBedtools(t, tmpDir, out, 0)}
	var got []Record
	assert.NoError(t, j.Join(ctx, peaks, features, func(r *Record) error {
		got = append(got, *r)
		return nil
	}))
	expect.EQ(t, got, []Record{
		{"chr1", 150, 151, 100, 200, "exon", "+", 1},
		NoHit(interval.Interval{Chrom: "chr1", Start: 5500, End: 5501}),
	})
	copied, err := ioutil.ReadFile(filepath.Join(tmpDir, "peaks.copy"))
	assert.NoError(t, err)
	expect.EQ(t, string(copied), "chr1\t150\t151\nchr1\t5500\t5501\n")

	// A failing run is reported with its stderr, after the streamed records.
	j.Path = fakeBedtools(t, tmpDir, out, 3)
	got = got[:0]
	err = j.Join(ctx, peaks, features, func(r *Record) error {
		got = append(got, *r)
		return nil
	})
	expect.True(t, errors.Is(errors.Unavailable, err), "%v", err)
	expect.HasSubstr(t, err.Error(), "bedtools failed")
	expect.EQ(t, len(got), 2)

	// Malformed output is a data error.
	j.Path = fakeBedtools(t, tmpDir, `chr1\t1\t2\n`, 0)
	err = j.Join(ctx, peaks, features, func(*Record) error { return nil })
	expect.True(t, errors.Is(errors.Invalid, err), "%v", err)
	expect.HasSubstr(t, err.Error(), "bedtools output line 1")

	entries, err := ioutil.ReadDir(tmpDir)
	assert.NoError(t, err)
	// peaks.bed, features.bed, bedtools and peaks.copy.
	expect.EQ(t, len(entries), 4, "temporary peak files left behind")
}

// TestDelegatedMatchesMerge runs both engines over the same inputs. It
// needs bedtools in $PATH.
func TestDelegatedMatchesMerge(t *testing.T) {
	sh := gosh.NewShell(t)
	defer sh.Cleanup()
	if _, err := lookpath.Look(sh.Vars, "bedtools"); err != nil {
		t.Skip("bedtools not found")
	}
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpDir)
	peaks := filepath.Join(tmpDir, "peaks.bed")
	features := filepath.Join(tmpDir, "features.bed")
	writeFile(t, peaks, "chr1\t100\t200\tp1\nchr1\t1000\t2000\tp2\nchr1\t5000\t6000\tp3\nchr3\t0\t10\tp4\n")
	writeFile(t, features, testFeatures)

	ctx := context.Background()
	for _, opts := range []Opts{
		DefaultOpts,
		{MinPeakOverlap: 0.5, MinFeatureOverlap: 0.5, Either: true},
		{MinPeakOverlap: 1e-9, MinFeatureOverlap: 1e-9, MidpointsOnly: true},
	} {
		var want, got []Record
		assert.NoError(t, (&MergeJoin{Opts: opts}).Join(ctx, peaks, features, func(r *Record) error {
			want = append(want, *r)
			return nil
		}))
		assert.NoError(t, (&DelegatedJoin{Opts: opts, TempDir: tmpDir}).Join(ctx, peaks, features, func(r *Record) error {
			got = append(got, *r)
			return nil
		}))
		sortRecords(want)
		sortRecords(got)
		expect.EQ(t, got, want, "%+v", opts)
	}
	entries, err := ioutil.ReadDir(tmpDir)
	assert.NoError(t, err)
	expect.EQ(t, len(entries), 2, "temporary peak files left behind")
}
