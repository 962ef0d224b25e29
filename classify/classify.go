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

// Package classify drives the peak classification pipeline: the GFF3 gene
// model is augmented and sorted once (and cached), then every peak file is
// joined against it and reduced to one feature type per peak.
package classify

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/peakclassifier/encoding/bed"
	"github.com/grailbio/peakclassifier/overlap"
	"github.com/grailbio/peakclassifier/rank"
)

// Result describes the classification of one peak file.
type Result struct {
	// Peaks is the input peak file.
	Peaks string
	// Overlaps is the full overlap report.
	Overlaps string
	// Filtered holds one record per classified peak.
	Filtered string
	// Summary holds the per-type counts.
	Summary *rank.Accumulator
}

func outputPath(opts Opts, peaksPath, suffix string) string {
	if opts.Compress {
		suffix += ".gz"
	}
	return file.Join(opts.OutDir, stem(peaksPath)+suffix)
}

// Classify classifies each peak file against the gene model in gffPath.
// Peak files are processed concurrently; each must be sorted by chromosome
// and start.
func Classify(ctx context.Context, gffPath string, peakPaths []string, opts Opts) ([]Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(peakPaths) == 0 {
		return nil, errors.E(errors.Invalid, "no peak files")
	}
	seen := map[string]string{}
	for _, p := range peakPaths {
		out := outputPath(opts, p, "")
		if prev, ok := seen[out]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("peak files %s and %s would share output names", prev, p))
		}
		seen[out] = p
	}
	table, err := opts.Table()
	if err != nil {
		return nil, err
	}
	joiner, err := overlap.NewJoiner(opts.Join, opts.Overlap, opts.TempDir)
	if err != nil {
		return nil, err
	}
	features, err := AugmentedFeatures(ctx, gffPath, opts)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(peakPaths))
	err = traverse.Limit(opts.Parallelism).Each(len(peakPaths), func(i int) error {
		var err error
		results[i], err = classifyPeaks(ctx, joiner, table, peakPaths[i], features, opts)
		return err
	})
	return results, err
}

func classifyPeaks(ctx context.Context, joiner overlap.Joiner, table *rank.Table, peaksPath, featuresPath string, opts Opts) (res Result, err error) {
	res = Result{
		Peaks:    peaksPath,
		Overlaps: outputPath(opts, peaksPath, "-overlaps.tsv"),
		Filtered: outputPath(opts, peaksPath, "-classified.tsv"),
	}
	var outs []io.WriteCloser
	defer func() {
		for _, out := range outs {
			if e := out.Close(); e != nil && err == nil {
				err = e
			}
		}
		if err != nil {
			for _, path := range []string{res.Overlaps, res.Filtered} {
				_ = file.Remove(ctx, path)
			}
		}
	}()
	for _, path := range []string{res.Overlaps, res.Filtered} {
		out, err := bed.Create(ctx, path)
		if err != nil {
			return res, err
		}
		outs = append(outs, out)
	}
	var (
		ow       = overlap.NewReportWriter(outs[0])
		fw       = overlap.NewReportWriter(outs[1])
		resolver = rank.NewResolver(table, fw.Write)
	)
	err = joiner.Join(ctx, peaksPath, featuresPath, func(r *overlap.Record) error {
		if err := ow.Write(r); err != nil {
			return err
		}
		return resolver.Add(r)
	})
	if err != nil {
		return res, errors.E(err, "classify", peaksPath)
	}
	var e errors.Once
	e.Set(resolver.Close())
	e.Set(ow.Flush())
	e.Set(fw.Flush())
	if err = e.Err(); err != nil {
		return res, err
	}
	res.Summary = resolver.Accumulator()
	logSuggestions(peaksPath, res.Summary)
	log.Printf("%s: classified %d peaks into %s", peaksPath, res.Summary.UniquePeaks, res.Filtered)
	return res, nil
}

func logSuggestions(peaksPath string, acc *rank.Accumulator) {
	s := acc.Suggestions()
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Printf("%s: feature type %q classified no peaks; did you mean %q?", peaksPath, name, s[name])
	}
}
