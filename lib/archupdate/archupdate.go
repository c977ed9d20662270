// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archupdate builds a new archive from an old one plus a
// live source tree, re-archiving only what changed and pointing
// unchanged entries back at the old archive's parts instead of
// re-reading and re-writing payload that has not moved.
package archupdate

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archdiff"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archhash"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archpack"
	"github.com/archivum-cli/archivum/lib/archscan"
)

// Options mirrors create's packing/compression flags plus the
// drift-detection knob.
type Options struct {
	SplitBytes uint64
	SplitFiles uint64

	// Compression, if non-empty, must match the old archive's
	// compression algorithm — parts referenced by tar_base=1 can only
	// be decoded with the codec they were written with, and the index
	// carries a single Compression field shared by every base. Leave
	// empty to inherit the old archive's codec.
	Compression archcodec.Name
	ZstdLevel   int

	Excludes []string
	Threads  int
	Dedup    bool
	Notes    string

	// Checksum forces full content comparison (instead of size+mtime)
	// when classifying what changed.
	Checksum bool
}

// Update scans sourceDir, classifies it against the index at
// oldIndexPath, writes fresh parts for everything added or modified
// into outputDir, and produces a new index whose unchanged entries
// carry tar_base=1 pointing back at the old archive's directory.
func Update(oldIndexPath, sourceDir, outputDir string, opts Options, createdAt time.Time) (archindex.Index, error) {
	oldArchiveDir := filepath.Dir(oldIndexPath)

	oldIdx, err := archindex.Read(oldIndexPath)
	if err != nil {
		return archindex.Index{}, err
	}
	if _, _, ok, err := archhash.VerifySeal(oldIndexPath); err != nil {
		return archindex.Index{}, err
	} else if !ok {
		return archindex.Index{}, archerr.NewTampered(oldIndexPath)
	}

	compression := oldIdx.Compression
	if opts.Compression != "" {
		if string(opts.Compression) != oldIdx.Compression {
			return archindex.Index{}, archerr.NewUsageError(fmt.Sprintf(
				"update must use the old archive's compression (%s); got %s", oldIdx.Compression, opts.Compression))
		}
		compression = string(opts.Compression)
	}

	changes, err := archdiff.Diff(oldIndexPath, sourceDir, archdiff.Options{Checksum: opts.Checksum})
	if err != nil {
		return archindex.Index{}, err
	}

	oldByPath := make(map[string]archindex.Entry, len(oldIdx.Entries))
	for _, e := range oldIdx.Entries {
		oldByPath[e.Path] = e
	}

	scanned, err := archscan.Scan(sourceDir, archscan.Options{Excludes: opts.Excludes})
	if err != nil {
		return archindex.Index{}, err
	}
	scannedByPath := make(map[string]archscan.Entry, len(scanned))
	for _, e := range scanned {
		scannedByPath[e.Path] = e
	}

	relToOld, err := filepath.Rel(outputDir, oldArchiveDir)
	if err != nil {
		return archindex.Index{}, archerr.NewIo(oldArchiveDir, fmt.Errorf("resolving relative path from %s: %w", outputDir, err))
	}

	var carried []archindex.Entry
	var freshScan []archscan.Entry
	for _, change := range changes {
		switch change.Status {
		case archdiff.Removed:
			continue
		case archdiff.Unchanged:
			old := oldByPath[change.Path]
			base := uint32(1)
			old.TarBase = &base
			carried = append(carried, old)
		default: // Added, Modified
			if live, ok := scannedByPath[change.Path]; ok {
				freshScan = append(freshScan, live)
			}
		}
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = 4
	}

	var targets []archhash.Target
	for _, e := range freshScan {
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
		for _, e := range freshScan {
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

	planned := archpack.Assign(freshScan, archpack.Options{SplitBytes: opts.SplitBytes, SplitFiles: opts.SplitFiles})

	codec, err := archcodec.New(archcodec.Name(compression), opts.ZstdLevel)
	if err != nil {
		return archindex.Index{}, err
	}

	dedupPaths := make(map[string]bool, len(dedupOf))
	for path := range dedupOf {
		dedupPaths[path] = true
	}
	if _, err := archpack.WriteParts(outputDir, "data", planned, dedupPaths, codec, archcodec.Name(compression)); err != nil {
		return archindex.Index{}, err
	}

	var freshEntries []archindex.Entry
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
		freshEntries = append(freshEntries, entry)
	}

	allEntries := append(freshEntries, carried...)
	idx := archindex.Build(allEntries, compression, opts.ZstdLevel, opts.Notes, []string{"data", filepath.ToSlash(relToOld) + "/data"}, createdAt)
	if err := archindex.Write(outputDir, idx); err != nil {
		return archindex.Index{}, err
	}
	return idx, nil
}
