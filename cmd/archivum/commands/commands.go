// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the archivum command tree: one
// sub-command per verb, each wired to the lib/arch* package that
// implements it.
package commands

import (
	"github.com/archivum-cli/archivum/cmd/archivum/cli"
)

// Root builds the top-level command dispatched by main.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "archivum",
		Summary: "deterministic, content-verifiable directory archiver",
		Usage:   "archivum <command> [flags] [args]",
		Subcommands: []*cli.Command{
			createCommand(),
			listCommand(),
			searchCommand(),
			infoCommand(),
			statsCommand(),
			diffCommand(),
			restoreCommand(),
			extractCommand(),
			catCommand(),
			verifyCommand(),
			updateCommand(),
			mergeCommand(),
			pruneCommand(),
			repairCommand(),
			completionsCommand(),
			setupCommand(),
			configCommand(),
			versionCommand(),
		},
	}
}
