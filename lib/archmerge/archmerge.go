// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archmerge combines two or more archives into one fresh,
// single-base archive, re-reading every entry's payload from wherever
// it currently lives and re-appending it into new parts rooted at the
// output directory.
package archmerge

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archhash"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archpack"
	"github.com/archivum-cli/archivum/lib/archscan"
)

// Options configures a merge.
type Options struct {
	SplitBytes  uint64
	SplitFiles  uint64
	Compression archcodec.Name
	ZstdLevel   int
	Notes       string
	Dedup       bool
}

// Merge reads every archive named by indexPaths, in order, and writes
// a single new archive into outputDir. Path collisions resolve
// last-wins: an archive later in indexPaths overrides an earlier
// archive's entry at the same path. Directories and symlinks are
// preserved.
func Merge(indexPaths []string, outputDir string, opts Options, createdAt time.Time) (archindex.Index, error) {
	if len(indexPaths) < 2 {
		return archindex.Index{}, archerr.NewUsageError("merge requires at least two archives")
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return archindex.Index{}, archerr.NewIo(outputDir, err)
	}
	stagingDir, err := os.MkdirTemp(outputDir, ".merge-staging-")
	if err != nil {
		return archindex.Index{}, archerr.NewIo(outputDir, err)
	}
	defer os.RemoveAll(stagingDir)

	sourceSHA256 := make(map[string]string)

	for _, indexPath := range indexPaths {
		archiveDir := filepath.Dir(indexPath)

		idx, err := archindex.Read(indexPath)
		if err != nil {
			return archindex.Index{}, err
		}
		if _, _, ok, err := archhash.VerifySeal(indexPath); err != nil {
			return archindex.Index{}, err
		} else if !ok {
			return archindex.Index{}, archerr.NewTampered(indexPath)
		}

		if err := materialize(archiveDir, idx, stagingDir, sourceSHA256); err != nil {
			return archindex.Index{}, err
		}
	}

	scanned, err := archscan.Scan(stagingDir, archscan.Options{})
	if err != nil {
		return archindex.Index{}, err
	}
	planned := archpack.Assign(scanned, archpack.Options{SplitBytes: opts.SplitBytes, SplitFiles: opts.SplitFiles})

	dedupOf := make(map[string]string)
	if opts.Dedup {
		bySHA := make(map[string]string)
		for _, e := range scanned {
			if e.Type != archscan.File {
				continue
			}
			sum := sourceSHA256[e.Path]
			if canonical, exists := bySHA[sum]; exists {
				dedupOf[e.Path] = canonical
			} else {
				bySHA[sum] = e.Path
			}
		}
	}

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

	var entries []archindex.Entry
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
			sum := sourceSHA256[p.Entry.Path]
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

// materialize writes every entry of idx onto disk under stagingDir,
// overwriting whatever a previous archive in the merge left at the
// same relative path, and records each file's known content hash so
// the final pack doesn't need to re-hash what is already known good.
func materialize(archiveDir string, idx archindex.Index, stagingDir string, sourceSHA256 map[string]string) error {
	byPath := make(map[string]archindex.Entry, len(idx.Entries))
	for _, e := range idx.Entries {
		byPath[e.Path] = e
	}

	paths := make([]string, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		entry := byPath[path]
		dest := filepath.Join(stagingDir, entry.Path)

		switch entry.EntryType {
		case archindex.TypeDirectory:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return archerr.NewIo(dest, err)
			}

		case archindex.TypeSymlink:
			if entry.SymlinkTarget == nil {
				return archerr.NewSchemaError("symlink_target", fmt.Sprintf("symlink %q has no target", entry.Path))
			}
			os.Remove(dest)
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return archerr.NewIo(filepath.Dir(dest), err)
			}
			if err := os.Symlink(*entry.SymlinkTarget, dest); err != nil {
				return archerr.NewIo(dest, err)
			}

		default:
			source := entry
			if entry.DedupOf != nil {
				canonical, ok := byPath[*entry.DedupOf]
				if !ok {
					return archerr.NewDedupSourceMissing(entry.Path, *entry.DedupOf)
				}
				source = canonical
			}
			if err := materializeFile(archiveDir, idx, source, dest); err != nil {
				return err
			}
			if entry.SHA256 != nil {
				sourceSHA256[entry.Path] = *entry.SHA256
			}
		}

		if entry.UnixMode != nil {
			os.Chmod(dest, os.FileMode(*entry.UnixMode))
		}
		if entry.Mtime != nil {
			mtime := time.Unix(*entry.Mtime, 0)
			os.Chtimes(dest, mtime, mtime)
		}
	}

	return nil
}

func materializeFile(archiveDir string, idx archindex.Index, entry archindex.Entry, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return archerr.NewIo(filepath.Dir(dest), err)
	}

	base := entry.PartBase(idx.PartBases)
	partPath := archindex.PartPath(archiveDir, base, entry.TarPart, idx.Compression)

	codec, err := archcodec.New(archcodec.Name(idx.Compression), idx.ZstdLevel)
	if err != nil {
		return err
	}

	f, err := os.Open(partPath)
	if err != nil {
		return archerr.NewIo(partPath, err)
	}
	defer f.Close()

	reader, err := codec.OpenReader(f)
	if err != nil {
		return archerr.NewIo(partPath, err)
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return archerr.NewSchemaError("path", fmt.Sprintf("entry %q not found in part", entry.Path))
		}
		if err != nil {
			return archerr.NewIo(partPath, fmt.Errorf("reading tar stream: %w", err))
		}
		if header.Name != entry.Path {
			continue
		}

		out, err := os.Create(dest)
		if err != nil {
			return archerr.NewIo(dest, err)
		}
		defer out.Close()
		if _, err := io.Copy(out, tr); err != nil {
			return archerr.NewIo(dest, err)
		}
		return nil
	}
}
