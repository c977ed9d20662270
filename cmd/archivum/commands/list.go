// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archscan"
)

type listParams struct {
	cli.GlobalFlags

	Verbose bool   `flag:"verbose,v" desc:"show size, mode, and sha256 for every entry"`
	Filter  string `flag:"filter" desc:"glob pattern; only matching entries are listed"`
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "list the entries recorded in an archive's index",
		Usage:   "archivum list [flags] <index-path>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("list", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 1 {
				return fail(ctx, archerr.NewUsageError("list requires exactly one argument: <index-path>"))
			}

			idx, err := archindex.Read(args[0])
			if err != nil {
				return fail(ctx, err)
			}

			entries := idx.Entries
			if params.Filter != "" {
				var filtered []archindex.Entry
				for _, e := range entries {
					if archscan.MatchGlob(params.Filter, e.Path) {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if params.OutputJSON {
				return emitJSON(ctx, entries)
			}

			for _, e := range entries {
				if !params.Verbose {
					ctx.Println(e.Path)
					continue
				}
				sha := "-"
				if e.SHA256 != nil {
					sha = *e.SHA256
				}
				ctx.Println(fmt.Sprintf("%-9s %10s  %-64s  %s", e.EntryType, humanize.Bytes(e.Size), sha, e.Path))
			}
			return nil
		},
	}
}
