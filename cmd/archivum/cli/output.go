// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "github.com/archivum-cli/archivum/lib/archout"

// GlobalFlags is embedded into every subcommand's params struct to add
// the four output-related flags shared across the whole CLI:
// --json (via the embedded [JSONOutput]), --quiet/-q, --dry-run/-n, and
// --log-file.
type GlobalFlags struct {
	JSONOutput

	Quiet   bool   `flag:"quiet,q" desc:"suppress human-readable output"`
	DryRun  bool   `flag:"dry-run,n" desc:"show what would happen without changing anything"`
	LogFile string `flag:"log-file" desc:"also write a plain-text log of this run to this file"`
}

// NewContext builds the output multiplexer these flags configure.
func (g *GlobalFlags) NewContext() (*archout.Context, error) {
	return archout.New(g.OutputJSON, g.Quiet, g.DryRun, g.LogFile)
}
