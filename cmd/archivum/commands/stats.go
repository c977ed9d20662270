// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archout"
)

type statsParams struct {
	cli.GlobalFlags
}

type extStat struct {
	Ext   string `json:"ext"`
	Count uint64 `json:"count"`
	Bytes uint64 `json:"bytes"`
}

type partStat struct {
	Part   uint32 `json:"part"`
	Bytes  int64  `json:"bytes"`
	Exists bool   `json:"exists"`
}

type statsReport struct {
	Header           archindex.Header `json:"header"`
	OnDiskBytes      int64            `json:"on_disk_bytes"`
	CompressionRatio float64          `json:"compression_ratio"`
	SavingPercent    float64          `json:"saving_percent"`
	DedupFiles       int              `json:"dedup_files"`
	DedupBytes       uint64           `json:"dedup_bytes"`
	Parts            []partStat       `json:"parts"`
	ByExtension      []extStat        `json:"by_extension"`
}

func statsCommand() *cli.Command {
	var params statsParams

	return &cli.Command{
		Name:    "stats",
		Summary: "show detailed archive statistics: extensions, part sizes, compression ratio",
		Usage:   "archivum stats <index-path>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("stats", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 1 {
				return fail(ctx, archerr.NewUsageError("stats requires exactly one argument: <index-path>"))
			}

			report, err := buildStats(args[0])
			if err != nil {
				return fail(ctx, err)
			}

			if params.OutputJSON {
				return emitJSON(ctx, report)
			}
			printStats(ctx, args[0], report)
			return nil
		},
	}
}

func buildStats(indexPath string) (*statsReport, error) {
	idx, err := archindex.Read(indexPath)
	if err != nil {
		return nil, err
	}
	archiveDir := archiveDirOf(indexPath)

	type partKey struct {
		base    string
		tarPart uint32
	}
	seen := make(map[partKey]bool)
	var parts []partStat

	for _, e := range idx.Entries {
		base := e.PartBase(idx.PartBases)
		key := partKey{base: base, tarPart: e.TarPart}
		if seen[key] {
			continue
		}
		seen[key] = true

		partPath := archindex.PartPath(archiveDir, base, e.TarPart, idx.Compression)
		info, statErr := os.Stat(partPath)
		size := int64(0)
		exists := statErr == nil
		if exists {
			size = info.Size()
		}
		parts = append(parts, partStat{Part: e.TarPart, Bytes: size, Exists: exists})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Part < parts[j].Part })

	var totalOnDisk int64
	for _, p := range parts {
		totalOnDisk += p.Bytes
	}

	ratio := 1.0
	var savingPct float64
	if totalOnDisk > 0 {
		ratio = float64(idx.TotalSize) / float64(totalOnDisk)
	}
	if idx.TotalSize > 0 {
		savingPct = (1.0 - float64(totalOnDisk)/float64(idx.TotalSize)) * 100.0
	}

	var dedupCount int
	var dedupBytes uint64
	extMap := make(map[string]*extStat)
	for _, e := range idx.Entries {
		if e.EntryType != archindex.TypeFile {
			continue
		}
		if e.DedupOf != nil {
			dedupCount++
			dedupBytes += e.Size
		}

		ext := strings.ToLower(path.Ext(e.Path))
		if ext == "" {
			ext = "(no ext)"
		}
		stat, ok := extMap[ext]
		if !ok {
			stat = &extStat{Ext: ext}
			extMap[ext] = stat
		}
		stat.Count++
		stat.Bytes += e.Size
	}

	extVec := make([]extStat, 0, len(extMap))
	for _, s := range extMap {
		extVec = append(extVec, *s)
	}
	sort.Slice(extVec, func(i, j int) bool { return extVec[i].Bytes > extVec[j].Bytes })

	return &statsReport{
		Header:           idx.Header,
		OnDiskBytes:      totalOnDisk,
		CompressionRatio: ratio,
		SavingPercent:    savingPct,
		DedupFiles:       dedupCount,
		DedupBytes:       dedupBytes,
		Parts:            parts,
		ByExtension:      extVec,
	}, nil
}

func printStats(ctx *archout.Context, indexPath string, r *statsReport) {
	ctx.Println(strings.Repeat("-", 65))
	ctx.Println(" Archive Statistics")
	ctx.Println(strings.Repeat("-", 65))
	ctx.Println(fmt.Sprintf("  Archive    : %s", indexPath))
	ctx.Println(fmt.Sprintf("  Created    : %s", r.Header.CreatedAtHuman))
	ctx.Println(fmt.Sprintf("  Files      : %d  Dirs: %d  Symlinks: %d", r.Header.TotalFiles, r.Header.TotalDirs, r.Header.TotalSymlinks))
	ctx.Println(fmt.Sprintf("  Source size: %s", humanize.Bytes(r.Header.TotalSize)))
	ctx.Println(fmt.Sprintf("  On-disk    : %s", humanize.Bytes(uint64(r.OnDiskBytes))))
	ctx.Println(fmt.Sprintf("  Ratio      : %.2fx  (saving: %.1f%%)", r.CompressionRatio, r.SavingPercent))
	if r.DedupFiles > 0 {
		ctx.Println(fmt.Sprintf("  Deduped    : %d files  %s saved", r.DedupFiles, humanize.Bytes(r.DedupBytes)))
	}

	ctx.Println("")
	ctx.Println(fmt.Sprintf("  Part sizes (%d parts)", r.Header.TotalParts))
	for _, p := range r.Parts {
		mark := "x"
		if p.Exists {
			mark = "+"
		}
		ctx.Println(fmt.Sprintf("    %s part%03d  %s", mark, p.Part, humanize.Bytes(uint64(p.Bytes))))
	}

	ctx.Println("")
	ctx.Println("  Top file types by size:")
	ctx.Println(fmt.Sprintf("  %-16s %8s %16s", "Extension", "Count", "Total Size"))
	ctx.Println("  " + strings.Repeat("-", 40))
	for i, e := range r.ByExtension {
		if i >= 15 {
			break
		}
		ctx.Println(fmt.Sprintf("  %-16s %8d %16s", e.Ext, e.Count, humanize.Bytes(e.Bytes)))
	}
	ctx.Println(strings.Repeat("-", 65))
}
