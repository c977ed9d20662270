// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archrestore"
)

type catParams struct {
	cli.GlobalFlags
}

func catCommand() *cli.Command {
	var params catParams

	return &cli.Command{
		Name:    "cat",
		Summary: "stream a single archived file's contents to standard output",
		Usage:   "archivum cat <index-path> <entry-path>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("cat", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 2 {
				return fail(ctx, archerr.NewUsageError("cat requires exactly two arguments: <index-path> <entry-path>"))
			}
			indexPath, entryPath := args[0], args[1]

			if err := archrestore.Cat(archiveDirOf(indexPath), entryPath, ctx.Stdout); err != nil {
				return fail(ctx, err)
			}
			return nil
		},
	}
}
