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
	"context"

	"github.com/grailbio/base/errors"
)

// Joiner joins a sorted peak BED file with a sorted augmented feature BED
// file, calling emit for every report record in peak order. Records of one
// peak are emitted contiguously. Unsorted input fails with an
// errors.Integrity error; records before the failure point may already have
// been emitted.
type Joiner interface {
	Join(ctx context.Context, peaksPath, featuresPath string, emit func(*Record) error) error
}

// NewJoiner returns the Joiner named by kind: "merge" for the built-in
// merge join, or "bedtools" to delegate to bedtools intersect.
func NewJoiner(kind string, opts Opts, tempDir string) (Joiner, error) {
	switch kind {
	case "", "merge":
		return &MergeJoin{Opts: opts}, nil
	case "bedtools":
		return &DelegatedJoin{Opts: opts, TempDir: tempDir}, nil
	}
	return nil, errors.E(errors.Invalid, "unknown join engine", kind)
}
