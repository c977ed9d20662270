// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archconfig"
)

type configParams struct {
	cli.GlobalFlags

	PathOnly bool `flag:"path" desc:"print only the config file path, without loading it"`
}

func configCommand() *cli.Command {
	var params configParams

	return &cli.Command{
		Name:    "config",
		Summary: "print the effective configuration",
		Usage:   "archivum config [--path]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("config", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			path, err := archconfig.Path()
			if err != nil {
				return fail(ctx, err)
			}

			if params.PathOnly {
				ctx.Println(path)
				return nil
			}

			cfg := loadConfig()
			if params.OutputJSON {
				return emitJSON(ctx, cfg)
			}

			var buf []byte
			buf, err = tomlMarshal(cfg)
			if err != nil {
				return fail(ctx, err)
			}
			ctx.Println(fmt.Sprintf("# %s", path))
			ctx.Raw(string(buf))
			return nil
		},
	}
}

func tomlMarshal(cfg *archconfig.Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
