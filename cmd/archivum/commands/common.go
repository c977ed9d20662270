// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
)

// nowFunc stamps created_at_unix on every archive this process writes.
// A package-level var (rather than a bare time.Now() call at each
// call site) so tests can override it.
var nowFunc = time.Now

// archiveDirOf returns the archive directory an index-path argument
// names: every lib/arch* entry point below the index model itself
// (restore, verify, extract, cat) takes the directory, not the index
// file, since that is where the part files live alongside it.
func archiveDirOf(indexPath string) string {
	return filepath.Dir(indexPath)
}

// diagLogger scopes the TTY-aware diagnostic logger to one command
// name. This is the internal debug/trace stream (C12) — orthogonal to
// the archout.Context result channel (C9) a command's Run function
// writes to.
func diagLogger(command string) *slog.Logger {
	return cli.NewCommandLogger().With("command", command)
}
