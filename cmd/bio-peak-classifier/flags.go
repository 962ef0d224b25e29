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
	"flag"
	"strings"

	"github.com/grailbio/peakclassifier/augment"
	"github.com/grailbio/peakclassifier/classify"
	"github.com/grailbio/peakclassifier/interval"
	"github.com/grailbio/peakclassifier/rank"
)

// flags are the options shared by the subcommands. Each subcommand
// registers the subset it uses.
type flags struct {
	boundaries     string
	minPeak        float64
	minFeature     float64
	either         bool
	midpoints      bool
	priority       string
	substring      bool
	join           string
	sort           string
	chromOrder     string
	allChromosomes bool
	cacheDir       string
	tempDir        string
	outDir         string
	compress       bool
	parallelism    int
}

func (f *flags) registerAugment(fs *flag.FlagSet) {
	fs.StringVar(&f.boundaries, "upstream-boundaries", classify.DefaultOpts.Augment.Boundaries.String(),
		"Comma-separated, ascending outer edges of the upstream bands, in bases from the transcription start")
	fs.BoolVar(&f.allChromosomes, "all-chromosomes", false,
		"Keep features on every chromosome. By default only numbered chromosomes (1, chr1, ...) are kept")
	fs.StringVar(&f.sort, "sort", classify.DefaultOpts.Sort,
		`Sorter for augmented features: "external" runs sort(1) in the C locale, "memory" sorts in memory`)
	f.registerCommon(fs)
}

func (f *flags) registerJoin(fs *flag.FlagSet) {
	fs.Float64Var(&f.minPeak, "min-peak-overlap", classify.DefaultOpts.Overlap.MinPeakOverlap,
		"Minimum overlap as a fraction of the peak length")
	fs.Float64Var(&f.minFeature, "min-gff-overlap", classify.DefaultOpts.Overlap.MinFeatureOverlap,
		"Minimum overlap as a fraction of the feature length")
	fs.BoolVar(&f.either, "min-either-overlap", false,
		"Accept an overlap that meets either minimum instead of both")
	fs.BoolVar(&f.midpoints, "midpoints-only", false,
		"Collapse each peak to its middle base before joining")
	fs.StringVar(&f.join, "join", classify.DefaultOpts.Join,
		`Join engine: "merge" for the built-in merge join, "bedtools" for bedtools intersect`)
	f.registerCommon(fs)
}

func (f *flags) registerFilter(fs *flag.FlagSet) {
	fs.StringVar(&f.priority, "feature-priority", "",
		"Comma-separated feature types, highest priority first. "+
			"Default: five_prime_UTR,three_prime_UTR,exon,intron, the upstream bands, upstream-beyond")
	fs.BoolVar(&f.substring, "substring-match", false,
		"Match priority entries anywhere within feature names instead of exactly")
	if fs.Lookup("upstream-boundaries") == nil {
		fs.StringVar(&f.boundaries, "upstream-boundaries", classify.DefaultOpts.Augment.Boundaries.String(),
			"Upstream band edges used to build the default -feature-priority")
	}
}

func (f *flags) registerCommon(fs *flag.FlagSet) {
	if fs.Lookup("chrom-order") != nil {
		return
	}
	fs.StringVar(&f.chromOrder, "chrom-order", "lexical",
		`Chromosome order of sorted inputs: "lexical" (LC_ALL=C sort) or "natural" (sort -V)`)
	fs.StringVar(&f.tempDir, "temp-dir", "", "Directory for temporary files of sort and bedtools")
}

func (f *flags) registerClassify(fs *flag.FlagSet) {
	f.registerAugment(fs)
	f.registerJoin(fs)
	f.registerFilter(fs)
	fs.StringVar(&f.cacheDir, "cache-dir", "", "Directory of cached augmented features. Default: next to the GFF")
	fs.StringVar(&f.outDir, "out-dir", classify.DefaultOpts.OutDir, "Directory of the output reports")
	fs.BoolVar(&f.compress, "gzip", false, "Gzip the output reports")
	fs.IntVar(&f.parallelism, "parallelism", classify.DefaultOpts.Parallelism, "Number of peak files classified at once")
}

// opts converts the flags to classify.Opts. Unset flags keep their
// defaults.
func (f *flags) opts() (classify.Opts, error) {
	opts := classify.DefaultOpts
	var err error
	if f.boundaries != "" {
		if opts.Augment.Boundaries, err = augment.ParseBoundaries(f.boundaries); err != nil {
			return opts, err
		}
	}
	if opts.Overlap.Order, err = interval.ParseChromOrder(f.chromOrder); err != nil {
		return opts, err
	}
	opts.Augment.AllChromosomes = f.allChromosomes
	opts.Overlap.MinPeakOverlap = f.minPeak
	opts.Overlap.MinFeatureOverlap = f.minFeature
	opts.Overlap.Either = f.either
	opts.Overlap.MidpointsOnly = f.midpoints
	if f.priority != "" {
		opts.Priority = strings.Split(f.priority, ",")
		for i := range opts.Priority {
			opts.Priority[i] = strings.TrimSpace(opts.Priority[i])
		}
	}
	opts.SubstringMatch = f.substring
	if f.join != "" {
		opts.Join = f.join
	}
	if f.sort != "" {
		opts.Sort = f.sort
	}
	opts.CacheDir = f.cacheDir
	opts.TempDir = f.tempDir
	if f.outDir != "" {
		opts.OutDir = f.outDir
	}
	opts.Compress = f.compress
	if f.parallelism != 0 {
		opts.Parallelism = f.parallelism
	}
	return opts, opts.Validate()
}

// table returns the rank table of the flags.
func (f *flags) table() (*rank.Table, error) {
	opts, err := f.opts()
	if err != nil {
		return nil, err
	}
	return opts.Table()
}
