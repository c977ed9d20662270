// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archrepair"
)

type repairParams struct {
	cli.GlobalFlags

	Compression string `flag:"compression" desc:"codec the orphan part files were written with" default:"zstd"`
	ZstdLevel   int    `flag:"zstd-level" desc:"zstd compression level recorded in the rebuilt index" default:"3"`
	Notes       string `flag:"notes" desc:"freeform text stored in the rebuilt index header"`
}

func repairCommand() *cli.Command {
	var params repairParams

	return &cli.Command{
		Name:    "repair",
		Summary: "rebuild a sealed index from an archive directory's part files",
		Usage:   "archivum repair [flags] <archive-dir>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("repair", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 1 {
				return fail(ctx, archerr.NewUsageError("repair requires exactly one argument: <archive-dir>"))
			}
			archiveDir := args[0]

			compression := archcodec.Name(params.Compression)
			if !compression.Valid() {
				return fail(ctx, archerr.NewUsageError(fmt.Sprintf("unrecognized --compression %q", params.Compression)))
			}

			if params.DryRun {
				ctx.Dry(fmt.Sprintf("repair %s (compression=%s)", archiveDir, compression))
				return nil
			}

			idx, err := archrepair.Repair(archiveDir, archrepair.Options{
				Compression: compression,
				ZstdLevel:   params.ZstdLevel,
				Notes:       params.Notes,
			}, nowFunc())
			if err != nil {
				return fail(ctx, err)
			}

			if params.OutputJSON {
				return emitJSON(ctx, idx)
			}
			ctx.Println(fmt.Sprintf("rebuilt index for %s: %d entries recovered across %d part(s)",
				archiveDir, len(idx.Entries), idx.TotalParts))
			return nil
		},
	}
}
