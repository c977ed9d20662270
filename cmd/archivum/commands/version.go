// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archversion"
)

func versionCommand() *cli.Command {
	var params cli.GlobalFlags

	return &cli.Command{
		Name:    "version",
		Summary: "print version information",
		Usage:   "archivum version (or: archivum -V, archivum --version)",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("version", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if params.OutputJSON {
				return emitJSON(ctx, map[string]string{"version": archversion.Short(), "info": archversion.Info()})
			}
			ctx.Println(fmt.Sprintf("archivum %s", archversion.Full()))
			return nil
		},
	}
}
