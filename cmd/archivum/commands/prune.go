// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archprune"
)

type pruneParams struct {
	cli.GlobalFlags

	Keep   uint `flag:"keep" desc:"how many of the newest archives to always keep" default:"3"`
	MaxAge uint `flag:"max-age" desc:"delete archives older than this many days, among the ones not protected by --keep" default:"30"`
}

func pruneFlags(p *pruneParams) *pflag.FlagSet {
	cfg := loadConfig()
	flagSet := cli.FlagsFromParams("prune", p)
	p.Keep = cfg.Prune.KeepLast
	p.MaxAge = cfg.Prune.MaxAgeDays
	return flagSet
}

func pruneCommand() *cli.Command {
	var params pruneParams

	return &cli.Command{
		Name:    "prune",
		Summary: "delete old archives under a base directory, keeping the newest ones",
		Usage:   "archivum prune [flags] <base-dir>",
		Flags:   func() *pflag.FlagSet { return pruneFlags(&params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 1 {
				return fail(ctx, archerr.NewUsageError("prune requires exactly one argument: <base-dir>"))
			}
			baseDir := args[0]

			if params.DryRun {
				ctx.Dry(fmt.Sprintf("prune %s (keep=%d, max-age=%dd)", baseDir, params.Keep, params.MaxAge))
				return nil
			}

			result, err := archprune.Prune(baseDir, archprune.Options{
				Keep:       params.Keep,
				MaxAgeDays: params.MaxAge,
			}, nowFunc())
			if err != nil {
				return fail(ctx, err)
			}

			if params.OutputJSON {
				return emitJSON(ctx, result)
			}
			ctx.Println(fmt.Sprintf("kept %d archive(s), deleted %d archive(s)", len(result.Kept), len(result.Deleted)))
			for _, d := range result.Deleted {
				ctx.Println(fmt.Sprintf("  deleted %s", d.Dir))
			}
			return nil
		},
	}
}
