// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archrestore"
)

type extractParams struct {
	cli.GlobalFlags
}

func extractCommand() *cli.Command {
	var params extractParams

	return &cli.Command{
		Name:    "extract",
		Summary: "pull a single entry out of an archive without restoring the whole tree",
		Usage:   "archivum extract <index-path> <entry-path> <dest-path>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("extract", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 3 {
				return fail(ctx, archerr.NewUsageError("extract requires exactly three arguments: <index-path> <entry-path> <dest-path>"))
			}
			indexPath, entryPath, destPath := args[0], args[1], args[2]

			if params.DryRun {
				ctx.Dry(fmt.Sprintf("extract %s from %s into %s", entryPath, indexPath, destPath))
				return nil
			}

			if err := archrestore.Extract(archiveDirOf(indexPath), entryPath, destPath); err != nil {
				return fail(ctx, err)
			}

			if params.OutputJSON {
				return emitJSON(ctx, map[string]string{"path": entryPath, "dest": destPath})
			}
			ctx.Println(fmt.Sprintf("extracted %s to %s", entryPath, destPath))
			return nil
		},
	}
}
