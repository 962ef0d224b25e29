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
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/peakclassifier/augment"
	"github.com/grailbio/peakclassifier/encoding/bed"
)

// stem strips the directory and any compression and format extensions.
func stem(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".gz", ".bgz", ".gff3", ".gff", ".bed", ".narrowPeak", ".broadPeak"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// AugmentedPath returns the cache path of the sorted augmented features of
// gffPath. The name carries a fingerprint of the GFF file identity and of
// every option that changes the augmented stream.
func AugmentedPath(ctx context.Context, gffPath string, opts Opts) (string, error) {
	info, err := file.Stat(ctx, gffPath)
	if err != nil {
		return "", errors.E(err, "stat", gffPath)
	}
	key := fmt.Sprintf("%s\x00%d\x00%d\x00%s\x00%v\x00%s",
		gffPath, info.Size(), info.ModTime().UnixNano(),
		opts.Augment.Boundaries, opts.Augment.AllChromosomes, opts.Overlap.Order)
	dir := opts.CacheDir
	if dir == "" {
		dir = filepath.Dir(gffPath)
	}
	return file.Join(dir, fmt.Sprintf("%s-augmented-%016x.bed", stem(gffPath), farm.Fingerprint64([]byte(key)))), nil
}

// AugmentedFeatures returns the path of the sorted augmented features of
// gffPath, building and caching them when no cached copy exists.
func AugmentedFeatures(ctx context.Context, gffPath string, opts Opts) (path string, err error) {
	if path, err = AugmentedPath(ctx, gffPath, opts); err != nil {
		return "", err
	}
	if _, err := file.Stat(ctx, path); err == nil {
		log.Printf("%s: using cached augmented features %s", gffPath, path)
		return path, nil
	}
	sorter, err := bed.NewSorter(opts.Sort, opts.Overlap.Order, opts.TempDir)
	if err != nil {
		return "", err
	}
	in, err := bed.Open(ctx, gffPath)
	if err != nil {
		return "", err
	}
	defer func() {
		if e := in.Close(); e != nil && err == nil {
			err = e
		}
	}()
	out, err := file.Create(ctx, path)
	if err != nil {
		return "", errors.E(err, "create", path)
	}

	pr, pw := io.Pipe()
	var (
		stats augment.Stats
		done  = make(chan error, 1)
	)
	go func() {
		var err error
		stats, err = augment.Augment(ctx, in, gffPath, pw, opts.Augment)
		pw.CloseWithError(err)
		done <- err
	}()
	sortErr := sorter.Sort(ctx, pr, out.Writer(ctx))
	pr.CloseWithError(io.ErrClosedPipe)
	// A malformed GFF also fails the sort; report the cause.
	var e errors.Once
	e.Set(<-done)
	e.Set(sortErr)
	e.Set(out.Close(ctx))
	if err = e.Err(); err != nil {
		if rerr := file.Remove(ctx, path); rerr != nil {
			log.Error.Printf("remove %s: %v", path, rerr)
		}
		return "", err
	}
	log.Printf("%s: wrote augmented features to %s (digest %016x)", gffPath, path, stats.Digest)
	return path, nil
}
