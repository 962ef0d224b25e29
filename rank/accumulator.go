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
package rank

import (
	"fmt"
	"io"
	"sort"

	"github.com/antzucaro/matchr"
)

// Accumulator counts resolved peaks.
type Accumulator struct {
	// UniquePeaks is the number of peak groups seen.
	UniquePeaks int
	// Counts holds the number of keepers per rank.
	Counts []int

	table     *Table
	unmatched map[string]int
}

// NewAccumulator creates an empty Accumulator for table.
func NewAccumulator(table *Table) *Accumulator {
	return &Accumulator{
		Counts:    make([]int, table.Len()),
		table:     table,
		unmatched: map[string]int{},
	}
}

// Merge adds the counts of o, which must use the same table.
func (a *Accumulator) Merge(o *Accumulator) {
	a.UniquePeaks += o.UniquePeaks
	for i, c := range o.Counts {
		a.Counts[i] += c
	}
	for name, c := range o.unmatched {
		a.unmatched[name] += c
	}
}

// Percent returns the share of peaks assigned to rank i, truncated to an
// integer. It is 0 when no peaks were seen.
func (a *Accumulator) Percent(i int) int {
	if a.UniquePeaks == 0 {
		return 0
	}
	return a.Counts[i] * 100 / a.UniquePeaks
}

// WriteSummary writes the peak total and one line per rank.
func (a *Accumulator) WriteSummary(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Total unique peaks: %d\n", a.UniquePeaks); err != nil {
		return err
	}
	for i, c := range a.Counts {
		if _, err := fmt.Fprintf(w, "Overlaps with %-20s: %7d (%2d%%)\n", a.table.Name(i), c, a.Percent(i)); err != nil {
			return err
		}
	}
	return nil
}

// Unmatched returns the feature names seen in the report that match no
// rank, most frequent first.
func (a *Accumulator) Unmatched() []string {
	names := make([]string, 0, len(a.unmatched))
	for name := range a.unmatched {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := a.unmatched[names[i]], a.unmatched[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	return names
}

// maxSuggestionDistance bounds the edit distance of a suggestion.
const maxSuggestionDistance = 3

// Suggestions maps each rank that kept no peak to the closest unmatched
// feature name, for catching typos in the priority list.
func (a *Accumulator) Suggestions() map[string]string {
	s := map[string]string{}
	unmatched := a.Unmatched()
	for i, c := range a.Counts {
		if c > 0 {
			continue
		}
		name := a.table.Name(i)
		best, bestDist := "", maxSuggestionDistance+1
		for _, u := range unmatched {
			if d := matchr.Levenshtein(name, u); d < bestDist {
				best, bestDist = u, d
			}
		}
		if best != "" {
			s[name] = best
		}
	}
	return s
}
