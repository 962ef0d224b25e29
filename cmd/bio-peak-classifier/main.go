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
	"fmt"
	"io"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/peakclassifier/augment"
	"github.com/grailbio/peakclassifier/classify"
	"github.com/grailbio/peakclassifier/encoding/bed"
	"github.com/grailbio/peakclassifier/overlap"
	"github.com/grailbio/peakclassifier/rank"
	"v.io/x/lib/cmdline"
)

func newCmdClassify() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "classify",
		Short:    "Classify peaks by the highest-priority feature type they overlap",
		ArgsName: "gff peaks...",
	}
	var f flags
	f.registerClassify(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return usageError(fmt.Errorf("classify takes a GFF file and at least one peak file, but got %v", argv))
		}
		opts, err := f.opts()
		if err != nil {
			return usageError(err)
		}
		results, err := classify.Classify(vcontext.Background(), argv[0], argv[1:], opts)
		if err != nil {
			return fail(err)
		}
		for _, res := range results {
			if len(results) > 1 {
				fmt.Fprintf(env.Stdout, "%s:\n", res.Peaks)
			}
			if err := res.Summary.WriteSummary(env.Stdout); err != nil {
				return fail(err)
			}
		}
		return nil
	})
	return cmd
}

func newCmdAugment() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "augment",
		Short: "Augment a GFF3 gene model with introns and upstream bands",
		Long: `
Augment converts a GFF3 gene model to a six-column BED stream of its features,
adding an intron between consecutive exons of each transcript and upstream
bands in front of each gene. The output is sorted unless -unsorted is given,
in which case gene blocks are separated by "###" lines.`,
		ArgsName: "gff out",
	}
	var f flags
	f.registerAugment(&cmd.Flags)
	unsorted := cmd.Flags.Bool("unsorted", false, "Write the augmented stream in GFF order, without sorting")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return usageError(fmt.Errorf("augment takes a GFF file and an output path, but got %v", argv))
		}
		opts, err := f.opts()
		if err != nil {
			return usageError(err)
		}
		return fail(augmentGFF(argv[0], argv[1], opts, *unsorted))
	})
	return cmd
}

func augmentGFF(gffPath, outPath string, opts classify.Opts, unsorted bool) (err error) {
	ctx := vcontext.Background()
	if !unsorted {
		var sorted string
		if sorted, err = classify.AugmentedFeatures(ctx, gffPath, opts); err != nil {
			return err
		}
		return copyFile(sorted, outPath)
	}
	in, err := bed.Open(ctx, gffPath)
	if err != nil {
		return err
	}
	defer func() {
		if e := in.Close(); e != nil && err == nil {
			err = e
		}
	}()
	out, err := bed.Create(ctx, outPath)
	if err != nil {
		return err
	}
	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = e
		}
	}()
	_, err = augment.Augment(ctx, in, gffPath, out, opts.Augment)
	return err
}

func copyFile(src, dst string) (err error) {
	ctx := vcontext.Background()
	in, err := bed.Open(ctx, src)
	if err != nil {
		return err
	}
	defer func() {
		if e := in.Close(); e != nil && err == nil {
			err = e
		}
	}()
	out, err := bed.Create(ctx, dst)
	if err != nil {
		return err
	}
	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = e
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

func newCmdJoin() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "join",
		Short:    "Report every qualifying overlap between sorted peaks and sorted augmented features",
		ArgsName: "peaks features [out]",
	}
	var f flags
	f.registerJoin(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 && len(argv) != 3 {
			return usageError(fmt.Errorf("join takes peaks, features and an optional output path, but got %v", argv))
		}
		opts, err := f.opts()
		if err != nil {
			return usageError(err)
		}
		outPath := bed.Stdio
		if len(argv) == 3 {
			outPath = argv[2]
		}
		return fail(join(argv[0], argv[1], outPath, opts))
	})
	return cmd
}

func join(peaksPath, featuresPath, outPath string, opts classify.Opts) (err error) {
	ctx := vcontext.Background()
	joiner, err := overlap.NewJoiner(opts.Join, opts.Overlap, opts.TempDir)
	if err != nil {
		return err
	}
	out, err := bed.Create(ctx, outPath)
	if err != nil {
		return err
	}
	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = e
		}
	}()
	w := overlap.NewReportWriter(out)
	if err = joiner.Join(ctx, peaksPath, featuresPath, w.Write); err != nil {
		return err
	}
	return w.Flush()
}

func newCmdFilterOverlaps() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "filter-overlaps",
		Short:    "Keep the highest-priority feature of each peak of an overlap report",
		ArgsName: "report out",
	}
	var f flags
	f.registerFilter(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return usageError(fmt.Errorf("filter-overlaps takes a report and an output path, but got %v", argv))
		}
		table, err := f.table()
		if err != nil {
			return usageError(err)
		}
		acc, err := filterOverlaps(argv[0], argv[1], table)
		if err != nil {
			return fail(err)
		}
		for name, s := range acc.Suggestions() {
			log.Printf("feature type %q classified no peaks; did you mean %q?", name, s)
		}
		return fail(acc.WriteSummary(env.Stdout))
	})
	return cmd
}

func filterOverlaps(inPath, outPath string, table *rank.Table) (acc *rank.Accumulator, err error) {
	ctx := vcontext.Background()
	in, err := bed.Open(ctx, inPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := in.Close(); e != nil && err == nil {
			err = e
		}
	}()
	out, err := bed.Create(ctx, outPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return rank.Filter(ctx, in, out, table)
}

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-peak-classifier",
		Short:    "Classify genomic peaks by the annotated features they overlap",
		Children: []*cmdline.Command{
			newCmdClassify(),
			newCmdAugment(),
			newCmdJoin(),
			newCmdFilterOverlaps(),
		},
	}
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdRoot())
}
