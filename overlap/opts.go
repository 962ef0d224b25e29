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
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/peakclassifier/interval"
)

// Opts controls which overlaps qualify.
type Opts struct {
	// MinPeakOverlap is the minimum overlap as a fraction of the peak length.
	MinPeakOverlap float64
	// MinFeatureOverlap is the minimum overlap as a fraction of the feature
	// length.
	MinFeatureOverlap float64
	// Either accepts an overlap meeting either minimum instead of both.
	Either bool
	// MidpointsOnly collapses every peak to its middle base before joining.
	// Reported peak coordinates are the collapsed ones.
	MidpointsOnly bool
	// Order is the chromosome order of both inputs.
	Order interval.ChromOrder
}

// DefaultOpts accept any overlap of at least one base.
var DefaultOpts = Opts{
	MinPeakOverlap:    1e-9,
	MinFeatureOverlap: 1e-9,
}

// Validate checks the options.
func (o Opts) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"peak", o.MinPeakOverlap}, {"feature", o.MinFeatureOverlap}} {
		if !(f.v >= 0 && f.v <= 1) {
			return errors.E(errors.Invalid, fmt.Sprintf("minimum %s overlap %v is not in [0, 1]", f.name, f.v))
		}
	}
	return nil
}

// qualifies decides whether an overlap of ov bases between a peak and a
// feature of the given lengths is reported.
func (o Opts) qualifies(ov, peakLen, featLen interval.PosType) bool {
	if ov <= 0 {
		return false
	}
	peakOK := float64(ov)/float64(peakLen) >= o.MinPeakOverlap
	featOK := float64(ov)/float64(featLen) >= o.MinFeatureOverlap
	if o.Either {
		return peakOK || featOK
	}
	return peakOK && featOK
}
