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

type restoreParams struct {
	cli.GlobalFlags

	Filter             string `flag:"filter" desc:"glob pattern; only matching entries are restored"`
	Force              bool   `flag:"force" desc:"overwrite files that already exist at the destination"`
	RestorePermissions bool   `flag:"restore-permissions" desc:"apply stored mode bits to restored files and directories"`
}

func restoreFlags(p *restoreParams) *pflag.FlagSet {
	cfg := loadConfig()
	flagSet := cli.FlagsFromParams("restore", p)
	p.Force = cfg.Restore.Force
	p.RestorePermissions = cfg.Restore.RestorePermissions
	return flagSet
}

func restoreCommand() *cli.Command {
	var params restoreParams

	return &cli.Command{
		Name:    "restore",
		Summary: "write an archive's entries back to a directory tree",
		Usage:   "archivum restore [flags] <index-path> <target-dir>",
		Flags:   func() *pflag.FlagSet { return restoreFlags(&params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 2 {
				return fail(ctx, archerr.NewUsageError("restore requires exactly two arguments: <index-path> <target-dir>"))
			}
			indexPath, targetDir := args[0], args[1]

			if params.DryRun {
				ctx.Dry(fmt.Sprintf("restore %s into %s", indexPath, targetDir))
				return nil
			}

			report, err := archrestore.Restore(archiveDirOf(indexPath), targetDir, archrestore.Options{
				Filter:             params.Filter,
				Force:              params.Force,
				RestorePermissions: params.RestorePermissions,
			})
			if err != nil {
				return fail(ctx, err)
			}

			if params.OutputJSON {
				return emitJSON(ctx, report)
			}
			ctx.Println(fmt.Sprintf("restored %d file(s), %d directory(ies), %d symlink(s) into %s",
				report.FilesWritten, report.DirsCreated, report.SymlinksCreated, targetDir))
			for _, w := range report.Warnings {
				ctx.Eprintln(w)
			}
			return nil
		},
	}
}
