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
)

type infoParams struct {
	cli.GlobalFlags
}

func infoCommand() *cli.Command {
	var params infoParams

	return &cli.Command{
		Name:    "info",
		Summary: "print an archive's header summary",
		Usage:   "archivum info <index-path>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("info", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 1 {
				return fail(ctx, archerr.NewUsageError("info requires exactly one argument: <index-path>"))
			}

			idx, err := archindex.Read(args[0])
			if err != nil {
				return fail(ctx, err)
			}

			if params.OutputJSON {
				return emitJSON(ctx, idx.Header)
			}

			ctx.Println(fmt.Sprintf("version     : %d", idx.Version))
			ctx.Println(fmt.Sprintf("created     : %s", idx.CreatedAtHuman))
			ctx.Println(fmt.Sprintf("files       : %d  dirs: %d  symlinks: %d", idx.TotalFiles, idx.TotalDirs, idx.TotalSymlinks))
			ctx.Println(fmt.Sprintf("size        : %s", humanize.Bytes(idx.TotalSize)))
			ctx.Println(fmt.Sprintf("parts       : %d", idx.TotalParts))
			ctx.Println(fmt.Sprintf("compression : %s", idx.Compression))
			if idx.Compression == "zstd" {
				ctx.Println(fmt.Sprintf("zstd level  : %d", idx.ZstdLevel))
			}
			if idx.Notes != "" {
				ctx.Println(fmt.Sprintf("notes       : %s", idx.Notes))
			}
			return nil
		},
	}
}
