// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archconfig"
	"github.com/archivum-cli/archivum/lib/archout"
)

// loadConfig returns the effective configuration for seeding flag
// defaults. A config file that fails to parse falls back to the
// built-in defaults rather than blocking --help or unrelated
// sub-commands on a mistake in an unrelated section.
func loadConfig() *archconfig.Config {
	cfg, err := archconfig.Load()
	if err != nil {
		return archconfig.Default()
	}
	return cfg
}

// emitJSON marshals v as indented JSON and writes it through ctx.Raw,
// which (unlike Println) is never suppressed by --quiet.
func emitJSON(ctx *archout.Context, v any) error {
	data, err := cli.MarshalIndent(v)
	if err != nil {
		return err
	}
	ctx.Raw(string(data) + "\n")
	return nil
}
