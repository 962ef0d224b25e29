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
package interval

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// ChromOrder is the order in which chromosomes appear in a sorted stream.
// The join stage must use the same order as the sort stage.
type ChromOrder int

const (
	// Lexical orders chromosome names byte-wise, as "LC_ALL=C sort" does.
	Lexical ChromOrder = iota
	// Natural orders digit runs numerically (chr2 < chr10), as "sort -V"
	// does.
	Natural
)

// ParseChromOrder parses "lexical" or "natural".
func ParseChromOrder(s string) (ChromOrder, error) {
	switch strings.ToLower(s) {
	case "", "lexical":
		return Lexical, nil
	case "natural":
		return Natural, nil
	}
	return Lexical, errors.E(errors.Invalid, fmt.Sprintf("unknown chromosome order %q", s))
}

func (o ChromOrder) String() string {
	switch o {
	case Lexical:
		return "lexical"
	case Natural:
		return "natural"
	}
	return fmt.Sprintf("ChromOrder(%d)", int(o))
}

// Compare returns -1, 0 or 1 depending on whether chromosome a sorts
// before, with or after b.
func (o ChromOrder) Compare(a, b string) int {
	if o == Natural {
		if c := versionCompare(a, b); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// versionOrder ranks one byte of a non-digit run. Running off the end of a
// string ranks 0, below every letter.
func versionOrder(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	c := s[i]
	switch {
	case isDigit(c):
		return 0
	case isAlpha(c):
		return int(c)
	case c == '~':
		return -1
	}
	return int(c) + 256
}

// versionCompare is the Debian version comparison used by "sort -V":
// alternating non-digit runs, compared with versionOrder, and digit runs,
// compared numerically.
func versionCompare(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ac, bc := versionOrder(a, i), versionOrder(b, j)
			if ac != bc {
				return sign(ac - bc)
			}
			i++
			j++
		}
		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}
		firstDiff := 0
		for i < len(a) && isDigit(a[i]) && j < len(b) && isDigit(b[j]) {
			if firstDiff == 0 {
				firstDiff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		if i < len(a) && isDigit(a[i]) {
			return 1
		}
		if j < len(b) && isDigit(b[j]) {
			return -1
		}
		if firstDiff != 0 {
			return sign(firstDiff)
		}
	}
	return 0
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}
