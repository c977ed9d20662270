// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archconfig"
)

type setupParams struct {
	cli.GlobalFlags
}

func setupCommand() *cli.Command {
	var params setupParams

	return &cli.Command{
		Name:    "setup",
		Summary: "interactively write a configuration file with your preferred defaults",
		Usage:   "archivum setup",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("setup", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			cfg := archconfig.Default()
			runSetupWizard(os.Stdin, ctx, cfg)

			if err := cfg.Validate(); err != nil {
				return fail(ctx, err)
			}

			if params.DryRun {
				ctx.Dry("write configuration file")
				return nil
			}

			if err := archconfig.Save(cfg); err != nil {
				return fail(ctx, err)
			}

			path, _ := archconfig.Path()
			ctx.Println(fmt.Sprintf("wrote configuration to %s", path))
			return nil
		},
	}
}

// runSetupWizard prompts for each setting in turn, leaving cfg's
// built-in default untouched whenever the user presses enter without
// typing anything.
func runSetupWizard(in io.Reader, ctx interface{ Println(string) }, cfg *archconfig.Config) {
	reader := bufio.NewReader(in)

	cfg.Defaults.Compress = promptString(reader, ctx, "default compression (none/gzip/bzip2/lz4/zstd)", cfg.Defaults.Compress)
	cfg.Defaults.ZstdLevel = promptInt(reader, ctx, "zstd level (1-22)", cfg.Defaults.ZstdLevel)
	cfg.Defaults.SplitGB = promptFloat(reader, ctx, "split size in GB", cfg.Defaults.SplitGB)
	cfg.Defaults.Threads = uint(promptInt(reader, ctx, "hashing worker threads", int(cfg.Defaults.Threads)))
	cfg.Create.Dedup = promptBool(reader, ctx, "deduplicate identical files by default", cfg.Create.Dedup)
	cfg.Restore.Force = promptBool(reader, ctx, "overwrite existing files on restore by default", cfg.Restore.Force)
	cfg.Restore.RestorePermissions = promptBool(reader, ctx, "restore file permissions by default", cfg.Restore.RestorePermissions)
	cfg.Update.ChecksumDiff = promptBool(reader, ctx, "use full checksums (not size+mtime) to detect changes by default", cfg.Update.ChecksumDiff)
	cfg.Prune.KeepLast = uint(promptInt(reader, ctx, "archives to always keep when pruning", int(cfg.Prune.KeepLast)))
	cfg.Prune.MaxAgeDays = uint(promptInt(reader, ctx, "max archive age in days before pruning", int(cfg.Prune.MaxAgeDays)))
}

func promptString(reader *bufio.Reader, ctx interface{ Println(string) }, label, def string) string {
	ctx.Println(fmt.Sprintf("%s [%s]: ", label, def))
	line := readLine(reader)
	if line == "" {
		return def
	}
	return line
}

func promptBool(reader *bufio.Reader, ctx interface{ Println(string) }, label string, def bool) bool {
	defStr := "n"
	if def {
		defStr = "y"
	}
	ctx.Println(fmt.Sprintf("%s [y/n] [%s]: ", label, defStr))
	line := strings.ToLower(readLine(reader))
	switch line {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}

func promptInt(reader *bufio.Reader, ctx interface{ Println(string) }, label string, def int) int {
	ctx.Println(fmt.Sprintf("%s [%d]: ", label, def))
	line := readLine(reader)
	if line == "" {
		return def
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return def
	}
	return n
}

func promptFloat(reader *bufio.Reader, ctx interface{ Println(string) }, label string, def float64) float64 {
	ctx.Println(fmt.Sprintf("%s [%v]: ", label, def))
	line := readLine(reader)
	if line == "" {
		return def
	}
	f, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return def
	}
	return f
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
