// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archcreate"
	"github.com/archivum-cli/archivum/lib/archerr"
)

type createParams struct {
	cli.GlobalFlags

	SplitGB    float64  `flag:"split-gb" desc:"roll to a new part after this many gigabytes" default:"4.0"`
	SplitFiles uint64   `flag:"split-files" desc:"roll to a new part after this many entries (0 = unbounded)"`
	Compress   string   `flag:"compress" desc:"none|gzip|bzip2|lz4|zstd"`
	ZstdLevel  int      `flag:"zstd-level" desc:"zstd compression level (1-22)"`
	Exclude    []string `flag:"exclude" desc:"glob pattern to prune from the scan (repeatable)"`
	Threads    uint     `flag:"threads" desc:"hashing worker pool size"`
	Dedup      bool     `flag:"dedup" desc:"collapse byte-identical files to one stored copy"`
	Notes      string   `flag:"notes" desc:"freeform text stored in the index header"`
}

func createFlags(p *createParams) *pflag.FlagSet {
	cfg := loadConfig()
	flagSet := cli.FlagsFromParams("create", p)
	p.SplitGB = cfg.Defaults.SplitGB
	p.SplitFiles = cfg.Defaults.SplitFiles
	p.Compress = cfg.Defaults.Compress
	p.ZstdLevel = cfg.Defaults.ZstdLevel
	p.Threads = cfg.Defaults.Threads
	p.Exclude = cfg.Create.Exclude
	p.Dedup = cfg.Create.Dedup
	p.Notes = cfg.Create.Notes
	return flagSet
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "archive a directory tree",
		Usage:   "archivum create [flags] <source> <output-dir>",
		Examples: []cli.Example{
			{Description: "archive a project directory with zstd compression", Command: "archivum create ./project ./archives/2026-08-06"},
		},
		Flags: func() *pflag.FlagSet { return createFlags(&params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 2 {
				return fail(ctx, archerr.NewUsageError("create requires exactly two arguments: <source> <output-dir>"))
			}
			source, outputDir := args[0], args[1]
			log := diagLogger("create")

			compression := archcodec.Name(params.Compress)
			if !compression.Valid() {
				return fail(ctx, archerr.NewUsageError(fmt.Sprintf("unrecognized --compress %q", params.Compress)))
			}

			if params.DryRun {
				ctx.Dry(fmt.Sprintf("create %s from %s (compress=%s, dedup=%v)", outputDir, source, compression, params.Dedup))
				return nil
			}

			log.Debug("scanning source tree", "source", source, "compression", compression, "dedup", params.Dedup)
			idx, err := archcreate.Create(source, outputDir, archcreate.Options{
				SplitBytes:  uint64(params.SplitGB * 1e9),
				SplitFiles:  params.SplitFiles,
				Compression: compression,
				ZstdLevel:   params.ZstdLevel,
				Excludes:    params.Exclude,
				Threads:     int(params.Threads),
				Dedup:       params.Dedup,
				Notes:       params.Notes,
			}, nowFunc())
			if err != nil {
				log.Debug("create failed", "error", err)
				return fail(ctx, err)
			}
			log.Debug("wrote archive", "output", outputDir, "parts", idx.TotalParts, "bytes", idx.TotalSize)

			if params.OutputJSON {
				return emitJSON(ctx, idx)
			}
			ctx.Println(fmt.Sprintf("created %s: %d files, %d dirs, %d symlinks, %d bytes across %d part(s)",
				outputDir, idx.TotalFiles, idx.TotalDirs, idx.TotalSymlinks, idx.TotalSize, idx.TotalParts))
			return nil
		},
	}
}
