// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archupdate"
)

type updateParams struct {
	cli.GlobalFlags

	SplitGB    float64  `flag:"split-gb" desc:"roll to a new part after this many gigabytes" default:"4.0"`
	SplitFiles uint64   `flag:"split-files" desc:"roll to a new part after this many entries (0 = unbounded)"`
	Compress   string   `flag:"compress" desc:"none|gzip|bzip2|lz4|zstd (default: inherit the old archive's codec)"`
	ZstdLevel  int      `flag:"zstd-level" desc:"zstd compression level (1-22)"`
	Exclude    []string `flag:"exclude" desc:"glob pattern to prune from the scan (repeatable)"`
	Threads    uint     `flag:"threads" desc:"hashing worker pool size"`
	Dedup      bool     `flag:"dedup" desc:"collapse byte-identical files to one stored copy"`
	Notes      string   `flag:"notes" desc:"freeform text stored in the index header"`
	Checksum   bool     `flag:"checksum" desc:"compare full SHA-256 instead of size and mtime when classifying changes"`
}

func updateFlags(p *updateParams) *pflag.FlagSet {
	cfg := loadConfig()
	flagSet := cli.FlagsFromParams("update", p)
	p.SplitGB = cfg.Defaults.SplitGB
	p.SplitFiles = cfg.Defaults.SplitFiles
	p.Compress = ""
	p.ZstdLevel = cfg.Defaults.ZstdLevel
	p.Threads = cfg.Defaults.Threads
	p.Exclude = cfg.Create.Exclude
	p.Dedup = cfg.Create.Dedup
	p.Notes = cfg.Create.Notes
	p.Checksum = cfg.Update.ChecksumDiff
	return flagSet
}

func updateCommand() *cli.Command {
	var params updateParams

	return &cli.Command{
		Name:    "update",
		Summary: "re-archive what changed in a source tree since the last archive",
		Usage:   "archivum update [flags] <old-index-path> <source-dir> <output-dir>",
		Flags:   func() *pflag.FlagSet { return updateFlags(&params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 3 {
				return fail(ctx, archerr.NewUsageError("update requires exactly three arguments: <old-index-path> <source-dir> <output-dir>"))
			}
			oldIndexPath, sourceDir, outputDir := args[0], args[1], args[2]

			var compression archcodec.Name
			if params.Compress != "" {
				compression = archcodec.Name(params.Compress)
				if !compression.Valid() {
					return fail(ctx, archerr.NewUsageError(fmt.Sprintf("unrecognized --compress %q", params.Compress)))
				}
			}

			if params.DryRun {
				ctx.Dry(fmt.Sprintf("update %s against %s into %s", oldIndexPath, sourceDir, outputDir))
				return nil
			}

			log := diagLogger("update")
			log.Debug("classifying source tree against old archive", "old_index", oldIndexPath, "source", sourceDir, "checksum", params.Checksum)
			idx, err := archupdate.Update(oldIndexPath, sourceDir, outputDir, archupdate.Options{
				SplitBytes:  uint64(params.SplitGB * 1e9),
				SplitFiles:  params.SplitFiles,
				Compression: compression,
				ZstdLevel:   params.ZstdLevel,
				Excludes:    params.Exclude,
				Threads:     int(params.Threads),
				Dedup:       params.Dedup,
				Notes:       params.Notes,
				Checksum:    params.Checksum,
			}, nowFunc())
			if err != nil {
				log.Debug("update failed", "error", err)
				return fail(ctx, err)
			}
			log.Debug("wrote updated archive", "output", outputDir, "parts", idx.TotalParts)

			if params.OutputJSON {
				return emitJSON(ctx, idx)
			}
			ctx.Println(fmt.Sprintf("updated %s: %d files, %d dirs, %d symlinks, %d bytes across %d part(s)",
				outputDir, idx.TotalFiles, idx.TotalDirs, idx.TotalSymlinks, idx.TotalSize, idx.TotalParts))
			return nil
		},
	}
}
