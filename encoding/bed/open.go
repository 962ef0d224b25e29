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
package bed

import (
	"context"
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

// Stdio is the path that Open and Create map to stdin and stdout.
const Stdio = "-"

type reader struct {
	io.Reader
	close func() error
}

func (r *reader) Close() error { return r.close() }

// Open opens path for reading. Gzip input, recognized by its extension, is
// decompressed transparently.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if path == Stdio {
		return &reader{Reader: os.Stdin, close: func() error { return nil }}, nil
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	r := &reader{Reader: in.Reader(ctx), close: func() error { return in.Close(ctx) }}
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(r.Reader)
		if err != nil {
			_ = in.Close(ctx)
			return nil, errors.E(errors.Invalid, err, "gzip", path)
		}
		r.Reader = gz
		r.close = func() error {
			var e errors.Once
			e.Set(gz.Close())
			e.Set(in.Close(ctx))
			return e.Err()
		}
	}
	return r, nil
}

type writer struct {
	io.Writer
	close func() error
}

func (w *writer) Close() error { return w.close() }

// Create creates path for writing, gzip-compressing the output when the
// extension asks for it. The file is committed on Close.
func Create(ctx context.Context, path string) (io.WriteCloser, error) {
	if path == Stdio {
		return &writer{Writer: os.Stdout, close: func() error { return nil }}, nil
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	w := &writer{Writer: out.Writer(ctx), close: func() error { return out.Close(ctx) }}
	if fileio.DetermineType(path) == fileio.Gzip {
		gz := gzip.NewWriter(w.Writer)
		w.Writer = gz
		w.close = func() error {
			var e errors.Once
			e.Set(gz.Close())
			e.Set(out.Close(ctx))
			return e.Err()
		}
	}
	return w, nil
}
