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
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"v.io/x/lib/cmdline"
)

// Exit codes from sysexits(3).
const (
	exitUsage       = 64
	exitDataErr     = 65
	exitNoInput     = 66
	exitUnavailable = 69
	exitCantCreate  = 73
)

// exitCode maps an error of the pipeline to a sysexits code.
func exitCode(err error) int {
	switch {
	case errors.Is(errors.Invalid, err), errors.Is(errors.Integrity, err):
		return exitDataErr
	case errors.Is(errors.NotExist, err), os.IsNotExist(err):
		return exitNoInput
	case errors.Is(errors.Unavailable, err):
		return exitUnavailable
	}
	return exitCantCreate
}

// fail logs err and returns the matching exit status for cmdline.
func fail(err error) error {
	if err == nil {
		return nil
	}
	log.Error.Printf("%v", err)
	return cmdline.ErrExitCode(exitCode(err))
}

// usageError logs a configuration error and returns exit status 64.
func usageError(err error) error {
	log.Error.Printf("%v", err)
	return cmdline.ErrExitCode(exitUsage)
}
