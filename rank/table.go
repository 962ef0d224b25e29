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

// Package rank reduces the overlap report to one record per peak, keeping
// the overlapped feature with the highest priority, and counts how many
// peaks were assigned to each feature type.
package rank

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/peakclassifier/augment"
	"github.com/grailbio/peakclassifier/overlap"
)

// Table is an ordered list of feature types; a smaller index is a higher
// priority. A Table is immutable.
type Table struct {
	names     []string
	substring bool
}

// NewTable creates a Table. Names are matched case-insensitively, exactly
// or, when substring is set, anywhere within the feature name.
func NewTable(names []string, substring bool) (*Table, error) {
	if len(names) == 0 {
		return nil, errors.E(errors.Invalid, "empty feature priority list")
	}
	for i, name := range names {
		if name == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("empty feature type at priority %d", i+1))
		}
		for _, prev := range names[:i] {
			if strings.EqualFold(prev, name) {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("feature type %q listed twice", name))
			}
		}
	}
	t := &Table{names: make([]string, len(names)), substring: substring}
	copy(t.names, names)
	return t, nil
}

// ParseTable creates a Table from a comma-separated list.
func ParseTable(s string, substring bool) (*Table, error) {
	var names []string
	for _, name := range strings.Split(s, ",") {
		names = append(names, strings.TrimSpace(name))
	}
	return NewTable(names, substring)
}

// DefaultNames is the default priority order: UTRs, exons, introns, the
// upstream bands from nearest to farthest, and finally peaks beyond them.
func DefaultNames(b augment.Boundaries) []string {
	names := []string{"five_prime_UTR", "three_prime_UTR", "exon", "intron"}
	names = append(names, b.Names()...)
	return append(names, overlap.UpstreamBeyond)
}

// Len returns the number of feature types.
func (t *Table) Len() int { return len(t.names) }

// Name returns the feature type at rank i.
func (t *Table) Name(i int) string { return t.names[i] }

// Names returns a copy of the feature types in priority order.
func (t *Table) Names() []string { return append([]string(nil), t.names...) }

// Rank returns the index of the first entry matching featureName.
func (t *Table) Rank(featureName string) (int, bool) {
	for i, name := range t.names {
		if t.substring {
			if strings.Contains(strings.ToLower(featureName), strings.ToLower(name)) {
				return i, true
			}
		} else if strings.EqualFold(featureName, name) {
			return i, true
		}
	}
	return -1, false
}
