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
package classify

import (
	"fmt"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/peakclassifier/augment"
	"github.com/grailbio/peakclassifier/encoding/bed"
	"github.com/grailbio/peakclassifier/overlap"
	"github.com/grailbio/peakclassifier/rank"
)

// Opts configures a classification run.
type Opts struct {
	Augment augment.Opts
	Overlap overlap.Opts
	// Priority lists feature types, highest priority first. When empty,
	// rank.DefaultNames(Augment.Boundaries) is used.
	Priority []string
	// SubstringMatch matches priority entries anywhere within feature names.
	SubstringMatch bool
	// Join names the join engine: "merge" or "bedtools".
	Join string
	// Sort names the sorter for augmented features: "external" or "memory".
	Sort string
	// CacheDir holds augmented feature files. When empty, they are written
	// next to the GFF file.
	CacheDir string
	// TempDir holds temporary files of the external tools.
	TempDir string
	// OutDir receives the per-BED reports.
	OutDir string
	// Compress gzips the reports.
	Compress bool
	// Parallelism bounds the number of BED files classified at once.
	Parallelism int
}

// DefaultOpts are the default classification options.
var DefaultOpts = Opts{
	Augment:     augment.DefaultOpts,
	Overlap:     overlap.DefaultOpts,
	Join:        "merge",
	Sort:        "external",
	OutDir:      ".",
	Parallelism: runtime.NumCPU(),
}

// Table builds the rank table.
func (o Opts) Table() (*rank.Table, error) {
	names := o.Priority
	if len(names) == 0 {
		names = rank.DefaultNames(o.Augment.Boundaries)
	}
	return rank.NewTable(names, o.SubstringMatch)
}

// Validate checks the options before any input is opened.
func (o Opts) Validate() error {
	if err := o.Augment.Validate(); err != nil {
		return err
	}
	if err := o.Overlap.Validate(); err != nil {
		return err
	}
	if _, err := o.Table(); err != nil {
		return err
	}
	if _, err := overlap.NewJoiner(o.Join, o.Overlap, o.TempDir); err != nil {
		return err
	}
	if _, err := bed.NewSorter(o.Sort, o.Overlap.Order, o.TempDir); err != nil {
		return err
	}
	if o.Parallelism < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("parallelism %d must be positive", o.Parallelism))
	}
	return nil
}
