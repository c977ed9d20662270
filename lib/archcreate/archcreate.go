// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archcreate builds a brand-new archive from a source
// directory: scan, hash, optional dedup grouping, pack, and write the
// sealed index. This is the same pipeline [archupdate] runs over its
// "freshly scanned" entries, minus the diff step against an old
// archive.
package archcreate

import (
	"time"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archhash"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archpack"
	"github.com/archivum-cli/archivum/lib/archscan"
)

// Options configures a create run.
type Options struct {
	SplitBytes  uint64
	SplitFiles  uint64
	Compression archcodec.Name
	ZstdLevel   int
	Excludes    []string
	Threads     int
	Dedup       bool
	Notes       string
}

// Create scans sourceDir, hashes every file, packs the result into
// outputDir, and returns the sealed index describing it.
func Create(sourceDir, outputDir string, opts Options, createdAt time.Time) (archindex.Index, error) {
	scanned, err := archscan.Scan(sourceDir, archscan.Options{Excludes: opts.Excludes})
	if err != nil {
		return archindex.Index{}, err
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = 4
	}

	var targets []archhash.Target
	for _, e := range scanned {
		if e.Type == archscan.File {
			targets = append(targets, archhash.Target{Path: e.Path, AbsPath: e.AbsPath})
		}
	}
	hashResults, err := archhash.HashAll(targets, threads)
	if err != nil {
		return archindex.Index{}, err
	}
	hashByPath := make(map[string]string, len(hashResults))
	for i, target := range targets {
		hashByPath[target.Path] = hashResults[i].SHA256
	}

	dedupOf := make(map[string]string)
	if opts.Dedup {
		bySHA := make(map[string]string)
		for _, e := range scanned {
			if e.Type != archscan.File {
				continue
			}
			sum := hashByPath[e.Path]
			if canonical, exists := bySHA[sum]; exists {
				dedupOf[e.Path] = canonical
			} else {
				bySHA[sum] = e.Path
			}
		}
	}

	planned := archpack.Assign(scanned, archpack.Options{SplitBytes: opts.SplitBytes, SplitFiles: opts.SplitFiles})

	codec, err := archcodec.New(opts.Compression, opts.ZstdLevel)
	if err != nil {
		return archindex.Index{}, err
	}

	dedupPaths := make(map[string]bool, len(dedupOf))
	for path := range dedupOf {
		dedupPaths[path] = true
	}
	if _, err := archpack.WriteParts(outputDir, "data", planned, dedupPaths, codec, opts.Compression); err != nil {
		return archindex.Index{}, err
	}

	entries := make([]archindex.Entry, 0, len(planned))
	for _, p := range planned {
		entry := archindex.Entry{Path: p.Entry.Path, Size: p.Entry.Size, TarPart: p.TarPart}
		if p.Entry.HasModTime {
			mtime := p.Entry.ModTime.Unix()
			entry.Mtime = &mtime
		}
		if p.Entry.HasMode {
			mode := p.Entry.Mode
			entry.UnixMode = &mode
		}

		switch p.Entry.Type {
		case archscan.Directory:
			entry.EntryType = archindex.TypeDirectory
		case archscan.Symlink:
			entry.EntryType = archindex.TypeSymlink
			target := p.Entry.SymlinkTarget
			entry.SymlinkTarget = &target
		default:
			entry.EntryType = archindex.TypeFile
			sum := hashByPath[p.Entry.Path]
			entry.SHA256 = &sum
			if canonical, isDedup := dedupOf[p.Entry.Path]; isDedup {
				entry.DedupOf = &canonical
			}
		}
		entries = append(entries, entry)
	}

	idx := archindex.Build(entries, string(opts.Compression), opts.ZstdLevel, opts.Notes, nil, createdAt)
	if err := archindex.Write(outputDir, idx); err != nil {
		return archindex.Index{}, err
	}
	return idx, nil
}
