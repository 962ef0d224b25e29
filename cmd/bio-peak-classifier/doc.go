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

/*
bio-peak-classifier assigns each peak of a BED file the highest-priority
genomic feature type it overlaps: UTR, exon, intron, one of several tiers of
upstream regions, or "upstream-beyond" when it overlaps none of them.

The GFF3 gene model is first augmented with introns and upstream bands and
sorted; the result is cached next to the GFF (or in -cache-dir) and reused by
later runs with the same options. Each peak file, sorted by chromosome and
start, is then joined against the augmented features, and the overlap report
is reduced to one record per peak.

Sample usage:
bio-peak-classifier classify \
    -upstream-boundaries 1000,10000,100000 \
    -out-dir results \
    gencode.v38.gff3.gz \
    sample1.narrowPeak sample2.narrowPeak

For each peak file this writes <stem>-overlaps.tsv, every qualifying
(peak, feature) pair, and <stem>-classified.tsv, one record per classified
peak, and prints the per-type summary.

The augment, join and filter-overlaps subcommands run the individual stages.

Exit status follows sysexits(3): 64 for bad flags or arguments, 65 for
malformed or unsorted input, 66 for missing input, 69 when sort or bedtools
cannot be run, and 73 for other output failures.
*/
package main
