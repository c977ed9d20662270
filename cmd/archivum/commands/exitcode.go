// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archout"
)

// fail reports err on ctx's error channel and returns the exit-code
// error the CLI framework should propagate.
func fail(ctx *archout.Context, err error) error {
	ctx.Eprintln(err.Error())
	return mapExit(err)
}

// mapExit translates an operation failure into the CLI's exit-code
// convention: usage mistakes exit 2, everything else exits 1. Callers
// are expected to have already reported err to the user (typically via
// [archout.Context.Eprintln]) before returning the result of this
// call, since an [cli.ExitError] is never printed by the framework.
func mapExit(err error) error {
	if err == nil {
		return nil
	}
	code := 1
	var archErr *archerr.Error
	if errors.As(err, &archErr) && archErr.Kind == archerr.UsageError {
		code = 2
	}
	return &cli.ExitError{Code: code}
}
