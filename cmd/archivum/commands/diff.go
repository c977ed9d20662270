// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archdiff"
	"github.com/archivum-cli/archivum/lib/archerr"
)

type diffParams struct {
	cli.GlobalFlags

	ChangedOnly bool `flag:"changed-only" desc:"omit unchanged paths from the result"`
	Checksum    bool `flag:"checksum" desc:"compare full SHA-256 instead of size and mtime"`
}

func diffCommand() *cli.Command {
	var params diffParams

	return &cli.Command{
		Name:    "diff",
		Summary: "compare a sealed index against the live state of its source tree",
		Usage:   "archivum diff [flags] <index-path> <source-dir>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("diff", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 2 {
				return fail(ctx, archerr.NewUsageError("diff requires exactly two arguments: <index-path> <source-dir>"))
			}
			indexPath, sourceDir := args[0], args[1]

			changes, err := archdiff.Diff(indexPath, sourceDir, archdiff.Options{
				ChangedOnly: params.ChangedOnly,
				Checksum:    params.Checksum,
			})
			if err != nil {
				return fail(ctx, err)
			}

			if params.OutputJSON {
				return emitJSON(ctx, changes)
			}
			for _, c := range changes {
				ctx.Println(fmt.Sprintf("%-9s %s", c.Status, c.Path))
			}
			return nil
		},
	}
}
