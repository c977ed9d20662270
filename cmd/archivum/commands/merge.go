// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archmerge"
)

type mergeParams struct {
	cli.GlobalFlags

	Output     string  `flag:"output,o" desc:"output directory; may alias the first positional for symmetry with the reference CLI"`
	SplitGB    float64 `flag:"split-gb" desc:"roll to a new part after this many gigabytes" default:"4.0"`
	SplitFiles uint64  `flag:"split-files" desc:"roll to a new part after this many entries (0 = unbounded)"`
	Compress   string  `flag:"compress" desc:"none|gzip|bzip2|lz4|zstd" default:"zstd"`
	ZstdLevel  int     `flag:"zstd-level" desc:"zstd compression level (1-22)" default:"3"`
	Dedup      bool    `flag:"dedup" desc:"collapse byte-identical files to one stored copy"`
	Notes      string  `flag:"notes" desc:"freeform text stored in the index header"`
}

func mergeCommand() *cli.Command {
	var params mergeParams

	return &cli.Command{
		Name:    "merge",
		Summary: "combine two or more archives into one",
		Usage:   "archivum merge [flags] <output-dir> <index-path>...",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("merge", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			outputDir, indexPaths, usageErr := mergeArgs(params.Output, args)
			if usageErr != nil {
				return fail(ctx, usageErr)
			}

			compression := archcodec.Name(params.Compress)
			if !compression.Valid() {
				return fail(ctx, archerr.NewUsageError(fmt.Sprintf("unrecognized --compress %q", params.Compress)))
			}

			if params.DryRun {
				ctx.Dry(fmt.Sprintf("merge %d archive(s) into %s", len(indexPaths), outputDir))
				return nil
			}

			log := diagLogger("merge")
			log.Debug("merging archives", "count", len(indexPaths), "output", outputDir)
			idx, err := archmerge.Merge(indexPaths, outputDir, archmerge.Options{
				SplitBytes:  uint64(params.SplitGB * 1e9),
				SplitFiles:  params.SplitFiles,
				Compression: compression,
				ZstdLevel:   params.ZstdLevel,
				Notes:       params.Notes,
				Dedup:       params.Dedup,
			}, nowFunc())
			if err != nil {
				log.Debug("merge failed", "error", err)
				return fail(ctx, err)
			}

			if params.OutputJSON {
				return emitJSON(ctx, idx)
			}
			ctx.Println(fmt.Sprintf("merged %d archive(s) into %s: %d files, %d bytes",
				len(indexPaths), outputDir, idx.TotalFiles, idx.TotalSize))
			return nil
		},
	}
}

// mergeArgs resolves the output directory and the list of index paths
// to merge. When --output is given, every positional argument is an
// index path; otherwise the first positional is the output directory
// and the rest are index paths.
func mergeArgs(output string, args []string) (outputDir string, indexPaths []string, err error) {
	if output != "" {
		if len(args) < 2 {
			return "", nil, archerr.NewUsageError("merge requires at least two <index-path> arguments")
		}
		return output, args, nil
	}
	if len(args) < 3 {
		return "", nil, archerr.NewUsageError("merge requires <output-dir> followed by at least two <index-path> arguments")
	}
	return args[0], args[1:], nil
}
