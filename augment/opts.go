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
package augment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/peakclassifier/interval"
)

// Boundaries are the outer edges of the upstream bands, strictly ascending
// and positive. The list is implicitly prefixed with 0, so N boundaries
// define N bands.
type Boundaries []interval.PosType

// ParseBoundaries parses a comma-separated list such as "1000,10000,100000".
func ParseBoundaries(s string) (Boundaries, error) {
	var b Boundaries
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		v, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("upstream boundary %q is not an integer", field))
		}
		b = append(b, interval.PosType(v))
	}
	return b, b.Validate()
}

// Validate checks that b is nonempty, positive and strictly ascending.
func (b Boundaries) Validate() error {
	if len(b) == 0 {
		return errors.E(errors.Invalid, "no upstream boundaries")
	}
	prev := interval.PosType(0)
	for _, v := range b {
		if v <= prev {
			return errors.E(errors.Invalid, fmt.Sprintf("upstream boundaries %v must be positive and strictly ascending", b.String()))
		}
		prev = v
	}
	return nil
}

func (b Boundaries) String() string {
	s := make([]string, len(b))
	for i, v := range b {
		s[i] = strconv.Itoa(int(v))
	}
	return strings.Join(s, ",")
}

// BandName is the feature type of the band whose outer edge is boundary.
func BandName(boundary interval.PosType) string {
	return "upstream" + strconv.Itoa(int(boundary))
}

// Names returns the band names from innermost to outermost.
func (b Boundaries) Names() []string {
	names := make([]string, len(b))
	for i, v := range b {
		names[i] = BandName(v)
	}
	return names
}

// Opts controls augmentation.
type Opts struct {
	// Boundaries are the upstream band edges.
	Boundaries Boundaries
	// AllChromosomes keeps records on every chromosome. By default only
	// chromosomes whose name is numeric after an optional "chr" prefix are
	// kept.
	AllChromosomes bool
	// IsTranscript decides which sub-feature types start a new transcript.
	// DefaultTranscriptPredicate is used when nil.
	IsTranscript TranscriptPredicate
}

// DefaultOpts are the default augmentation options.
var DefaultOpts = Opts{
	Boundaries: Boundaries{1000, 10000, 100000},
}

// Validate checks the options.
func (o Opts) Validate() error {
	return o.Boundaries.Validate()
}
