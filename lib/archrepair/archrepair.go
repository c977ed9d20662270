// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archrepair rebuilds a sealed index from whatever part files
// are sitting in an archive directory, for the case where the index
// and seal themselves were lost or corrupted but the tar parts
// survived intact.
package archrepair

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archindex"
)

// Options configures a repair.
type Options struct {
	// Compression is the codec repair assumes every orphan part was
	// written with, since there is no index to read it from.
	Compression archcodec.Name
	ZstdLevel   int
	Notes       string
}

var partFilePattern = regexp.MustCompile(`^(.+)\.part(\d{3})\.(.+)$`)

// Repair enumerates the part files in archiveDir, streams each one
// through the assumed codec, reconstructs an index entry per tar
// header (recomputing each file's SHA-256 from the bytes it is
// already streaming), and writes a fresh sealed index.
func Repair(archiveDir string, opts Options, createdAt time.Time) (archindex.Index, error) {
	parts, err := discoverParts(archiveDir, opts.Compression)
	if err != nil {
		return archindex.Index{}, err
	}
	if len(parts) == 0 {
		return archindex.Index{}, archerr.NewSchemaError("archive_dir", "no part files found to repair from")
	}

	codec, err := archcodec.New(opts.Compression, opts.ZstdLevel)
	if err != nil {
		return archindex.Index{}, err
	}

	var entries []archindex.Entry
	for _, part := range parts {
		partEntries, err := reconstructPart(part, codec)
		if err != nil {
			return archindex.Index{}, err
		}
		entries = append(entries, partEntries...)
	}

	idx := archindex.Build(entries, string(opts.Compression), opts.ZstdLevel, opts.Notes, nil, createdAt)
	if err := archindex.Write(archiveDir, idx); err != nil {
		return archindex.Index{}, err
	}
	return idx, nil
}

type partFile struct {
	path    string
	tarPart uint32
}

func discoverParts(archiveDir string, compression archcodec.Name) ([]partFile, error) {
	children, err := os.ReadDir(archiveDir)
	if err != nil {
		return nil, archerr.NewIo(archiveDir, err)
	}

	wantExt := extensionFor(compression)

	var parts []partFile
	for _, child := range children {
		if child.IsDir() {
			continue
		}
		m := partFilePattern.FindStringSubmatch(child.Name())
		if m == nil {
			continue
		}
		if m[3] != wantExt {
			continue
		}
		partIndex, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			continue
		}
		parts = append(parts, partFile{
			path:    filepath.Join(archiveDir, child.Name()),
			tarPart: uint32(partIndex),
		})
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].tarPart < parts[j].tarPart })
	return parts, nil
}

func extensionFor(compression archcodec.Name) string {
	switch compression {
	case archcodec.Gzip:
		return "tar.gz"
	case archcodec.Zstd:
		return "tar.zst"
	case archcodec.Bzip2:
		return "tar.bz2"
	case archcodec.Lz4:
		return "tar.lz4"
	default:
		return "tar"
	}
}

func reconstructPart(part partFile, codec archcodec.Codec) ([]archindex.Entry, error) {
	f, err := os.Open(part.path)
	if err != nil {
		return nil, archerr.NewIo(part.path, err)
	}
	defer f.Close()

	reader, err := codec.OpenReader(f)
	if err != nil {
		return nil, archerr.NewIo(part.path, err)
	}
	defer reader.Close()

	var entries []archindex.Entry
	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, archerr.NewIo(part.path, fmt.Errorf("reading tar stream: %w", err))
		}

		entry := archindex.Entry{
			Path:    trimTrailingSlash(header.Name),
			TarPart: part.tarPart,
		}
		mtime := header.ModTime.Unix()
		entry.Mtime = &mtime
		mode := uint32(header.Mode)
		entry.UnixMode = &mode

		switch header.Typeflag {
		case tar.TypeDir:
			entry.EntryType = archindex.TypeDirectory

		case tar.TypeSymlink:
			entry.EntryType = archindex.TypeSymlink
			target := header.Linkname
			entry.SymlinkTarget = &target

		default:
			entry.EntryType = archindex.TypeFile
			hasher := sha256.New()
			size, err := io.Copy(hasher, tr)
			if err != nil {
				return nil, archerr.NewIo(part.path, fmt.Errorf("reading %q payload: %w", entry.Path, err))
			}
			entry.Size = uint64(size)
			sum := hex.EncodeToString(hasher.Sum(nil))
			entry.SHA256 = &sum
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func trimTrailingSlash(name string) string {
	if len(name) > 0 && name[len(name)-1] == '/' {
		return name[:len(name)-1]
	}
	return name
}
