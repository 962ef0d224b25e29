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
package main

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"v.io/x/lib/cmdline"
)

const (
	testGFF = "##gff-version 3\n" +
		"chr1\thavana\tgene\t1500\t2500\t.\t+\t.\tID=g1\n" +
		"###\n"
	testPeaks    = "chr1\t1000\t2000\tp1\nchr1\t500000\t500100\tp2\n"
	reportHeader = "#Chr\tP-start\tP-end\tF-start\tF-end\tF-name\tStrand\tOverlap\n"
)

func write(t *testing.T, path, data string) string {
	assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
	return path
}

func read(t *testing.T, path string) string {
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	return string(data)
}

func run(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	env := &cmdline.Env{Stdout: &stdout, Stderr: &stderr, Vars: map[string]string{}}
	err := cmdline.ParseAndRun(newCmdRoot(), env, args)
	return stdout.String(), err
}

func TestClassify(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpDir)
	gff := write(t, filepath.Join(tmpDir, "model.gff3"), testGFF)
	peaks := write(t, filepath.Join(tmpDir, "peaks.bed"), testPeaks)

	out, err := run("classify", "-upstream-boundaries=1000", "-sort=memory",
		"-cache-dir="+tmpDir, "-out-dir="+tmpDir, gff, peaks)
	assert.NoError(t, err)
	expect.HasSubstr(t, out, "Total unique peaks: 2\n")
	expect.HasSubstr(t, out, "Overlaps with upstream1000        :       1 (50%)")
	expect.EQ(t, read(t, filepath.Join(tmpDir, "peaks-classified.tsv")), reportHeader+
		"chr1\t1000\t2000\t499\t1500\tupstream1000\t+\t500\n"+
		"chr1\t500000\t500100\t-1\t-1\tupstream-beyond\t.\t-1\n")
}

func TestStages(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpDir)
	gff := write(t, filepath.Join(tmpDir, "model.gff3"), testGFF)
	peaks := write(t, filepath.Join(tmpDir, "peaks.bed"), testPeaks)
	features := filepath.Join(tmpDir, "features.bed")
	report := filepath.Join(tmpDir, "report.tsv")
	filtered := filepath.Join(tmpDir, "filtered.tsv")

	_, err := run("augment", "-upstream-boundaries=1000", "-sort=memory", gff, features)
	assert.NoError(t, err)
	expect.EQ(t, read(t, features), "chr1\t499\t1500\tupstream1000\t0\t+\n"+
		"chr1\t1499\t2500\tgene\t0\t+\n")

	unsorted := filepath.Join(tmpDir, "unsorted.bed")
	_, err = run("augment", "-upstream-boundaries=1000", "-unsorted", gff, unsorted)
	assert.NoError(t, err)
	expect.EQ(t, read(t, unsorted), "chr1\t1499\t2500\tgene\t0\t+\n"+
		"chr1\t499\t1500\tupstream1000\t0\t+\n"+
		"###\n")

	_, err = run("join", peaks, features, report)
	assert.NoError(t, err)
	expect.EQ(t, read(t, report), reportHeader+
		"chr1\t1000\t2000\t499\t1500\tupstream1000\t+\t500\n"+
		"chr1\t1000\t2000\t1499\t2500\tgene\t+\t501\n"+
		"chr1\t500000\t500100\t-1\t-1\tupstream-beyond\t.\t-1\n")

	out, err := run("filter-overlaps", "-feature-priority=gene,upstream1000", report, filtered)
	assert.NoError(t, err)
	expect.HasSubstr(t, out, "Total unique peaks: 2\n")
	expect.EQ(t, read(t, filtered), reportHeader+
		"chr1\t1000\t2000\t1499\t2500\tgene\t+\t501\n")
}

func TestStagesEmptyPeaks(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpDir)
	gff := write(t, filepath.Join(tmpDir, "model.gff3"), testGFF)
	peaks := write(t, filepath.Join(tmpDir, "empty.bed"), "track name=empty\n")
	features := filepath.Join(tmpDir, "features.bed")
	report := filepath.Join(tmpDir, "report.tsv")
	filtered := filepath.Join(tmpDir, "filtered.tsv")

	_, err := run("augment", "-upstream-boundaries=1000", "-sort=memory", gff, features)
	assert.NoError(t, err)
	_, err = run("join", peaks, features, report)
	assert.NoError(t, err)
	expect.EQ(t, read(t, report), "")

	out, err := run("filter-overlaps", report, filtered)
	assert.NoError(t, err)
	expect.HasSubstr(t, out, "Total unique peaks: 0\n")
	expect.EQ(t, read(t, filtered), "")
}

func TestExitCodes(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpDir)
	gff := write(t, filepath.Join(tmpDir, "model.gff3"), testGFF)
	peaks := write(t, filepath.Join(tmpDir, "peaks.bed"), testPeaks)
	bad := write(t, filepath.Join(tmpDir, "bad.bed"), "chr1\tten\t20\n")
	unsorted := write(t, filepath.Join(tmpDir, "unsorted.bed"), "chr1\t1000\t2000\nchr1\t10\t20\n")
	common := []string{"classify", "-sort=memory", "-cache-dir=" + tmpDir, "-out-dir=" + tmpDir}

	for _, test := range []struct {
		args []string
		want int
	}{
		{[]string{"classify", gff}, exitUsage},
		{append(append([]string{}, common...), "-min-peak-overlap=1.5", gff, peaks), exitUsage},
		{append(append([]string{}, common...), "-upstream-boundaries=10,5", gff, peaks), exitUsage},
		{append(append([]string{}, common...), "-feature-priority=exon,exon", gff, peaks), exitUsage},
		{append(append([]string{}, common...), "-join=hash", gff, peaks), exitUsage},
		{append(append([]string{}, common...), gff, bad), exitDataErr},
		{append(append([]string{}, common...), gff, unsorted), exitDataErr},
		{append(append([]string{}, common...), filepath.Join(tmpDir, "missing.gff3"), peaks), exitNoInput},
		{[]string{"filter-overlaps", "-feature-priority=", filepath.Join(tmpDir, "missing.tsv"), filepath.Join(tmpDir, "out.tsv")}, exitNoInput},
	} {
		_, err := run(test.args...)
		expect.EQ(t, err, cmdline.ErrExitCode(test.want), "%v", test.args)
	}
}
