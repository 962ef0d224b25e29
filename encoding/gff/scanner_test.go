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
package gff

import (
	"strings"
	"testing"

	"github.com/biogo/biogo/seq"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/peakclassifier/interval"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const model = `##gff-version 3
#!genome-build GRCh38
chr1	havana	gene	1500	2500	.	+	.	ID=gene1;Name=A
chr1	havana	mRNA	1500	2500	.	+	.	ID=tx1;Parent=gene1
chr1	havana	exon	1500	1600	.	+	.	Parent=tx1

###
chr1	havana	exon	2000	2500	.	-	0	Parent=tx1
##FASTA
>chr1
ACGT
`

func scanAll(t *testing.T, in string) ([]Record, error) {
	s := NewScanner(strings.NewReader(in), "model.gff3")
	var (
		recs []Record
		rec  Record
	)
	for s.Scan(&rec) {
		recs = append(recs, rec)
	}
	return recs, s.Err()
}

func TestScanner(t *testing.T) {
	recs, err := scanAll(t, model)
	assert.NoError(t, err)
	assert.EQ(t, len(recs), 5)
	expect.EQ(t, recs[0].Type, "gene")
	expect.EQ(t, recs[0].Start, interval.PosType(1500))
	expect.EQ(t, recs[0].End, interval.PosType(2500))
	expect.EQ(t, recs[0].Strand, seq.Plus)
	expect.EQ(t, recs[0].Attributes, "ID=gene1;Name=A")
	expect.False(t, recs[2].IsSeparator())
	expect.True(t, recs[3].IsSeparator())
	expect.EQ(t, recs[4].Strand, seq.Minus)
	expect.EQ(t, recs[4].Phase, "0")

	iv := recs[0].HalfOpen()
	expect.EQ(t, iv, interval.Interval{Chrom: "chr1", Start: 1499, End: 2500, Name: "gene", Strand: seq.Plus})
}

func TestUnread(t *testing.T) {
	s := NewScanner(strings.NewReader(model), "model.gff3")
	var rec Record
	assert.True(t, s.Scan(&rec))
	assert.True(t, s.Scan(&rec))
	expect.EQ(t, rec.Type, "mRNA")
	s.Unread()
	var again Record
	assert.True(t, s.Scan(&again))
	expect.EQ(t, again, rec)
	assert.True(t, s.Scan(&rec))
	expect.EQ(t, rec.Type, "exon")
}

func TestScannerErrors(t *testing.T) {
	for _, test := range []struct {
		in, msg string
	}{
		{"chr1\tsrc\tgene\t1\t2\n", "model.gff3:1: expected 9"},
		{"chr1\tsrc\tgene\t0\t2\t.\t+\t.\t.\n", "bad start"},
		{"chr1\tsrc\tgene\t10\t2\t.\t+\t.\t.\n", "bad end"},
		{"chr1\tsrc\tgene\t1\t2\t.\tx\t.\t.\n", "bad strand"},
	} {
		_, err := scanAll(t, test.in)
		assert.NotNil(t, err)
		expect.True(t, errors.Is(errors.Invalid, err), "%v", err)
		expect.HasSubstr(t, err.Error(), test.msg)
	}
}

func TestAttr(t *testing.T) {
	rec := Record{Attributes: "ID=t1; Parent=g1;Note=a=b"}
	v, ok := rec.Attr("Parent")
	expect.True(t, ok)
	expect.EQ(t, v, "g1")
	v, _ = rec.Attr("Note")
	expect.EQ(t, v, "a=b")
	_, ok = rec.Attr("Name")
	expect.False(t, ok)
	_, ok = (&Record{Attributes: "."}).Attr("Parent")
	expect.False(t, ok)
}
