// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archpack

import (
	"archive/tar"
	"fmt"
	"io"
	"os"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archscan"
)

// WriteParts is pass 2: it streams already-assigned entries into
// per-part tar files through the configured compression codec.
// Directories and symlinks get a header-only tar entry; files in
// dedupPaths are skipped entirely (no header, no payload) because
// their content is already stored under their canonical sibling's
// path. archive/tar's default header format auto-promotes to PAX when
// a name exceeds the 100/155-byte ustar limit, which is the standard
// extension this format relies on; readers built on archive/tar
// accept it transparently.
//
// Returns the on-disk byte size of every part file written, in part
// order.
func WriteParts(outputDir, base string, planned []Planned, dedupPaths map[string]bool, codec archcodec.Codec, compression archcodec.Name) ([]int64, error) {
	var sizes []int64

	var currentPart uint32
	var haveOpenPart bool
	var file *os.File
	var sink io.WriteCloser
	var tarWriter *tar.Writer

	closeCurrent := func() error {
		if !haveOpenPart {
			return nil
		}
		if err := tarWriter.Close(); err != nil {
			return err
		}
		if err := sink.Close(); err != nil {
			return err
		}
		if err := file.Sync(); err != nil {
			return err
		}
		info, err := file.Stat()
		if err != nil {
			return err
		}
		sizes = append(sizes, info.Size())
		return file.Close()
	}

	openPart := func(partIndex uint32) error {
		if err := closeCurrent(); err != nil {
			return err
		}

		path := archindex.PartPath(outputDir, base, partIndex, string(compression))
		f, err := os.Create(path)
		if err != nil {
			return archerr.NewIo(path, err)
		}

		w, err := codec.OpenWriter(f)
		if err != nil {
			f.Close()
			return archerr.NewIo(path, fmt.Errorf("opening compression writer: %w", err))
		}

		file = f
		sink = w
		tarWriter = tar.NewWriter(sink)
		currentPart = partIndex
		haveOpenPart = true
		return nil
	}

	for _, p := range planned {
		if !haveOpenPart || p.TarPart != currentPart {
			if err := openPart(p.TarPart); err != nil {
				return nil, err
			}
		}

		entry := p.Entry
		if entry.Type == archscan.File && dedupPaths[entry.Path] {
			continue
		}

		if err := writeTarEntry(tarWriter, entry); err != nil {
			return nil, err
		}
	}

	if err := closeCurrent(); err != nil {
		return nil, archerr.NewIo(fmt.Sprintf("part %d", currentPart), err)
	}

	return sizes, nil
}

func writeTarEntry(tw *tar.Writer, entry archscan.Entry) error {
	header := &tar.Header{
		Name:    entry.Path,
		ModTime: entry.ModTime,
		Mode:    0o644,
	}
	if entry.HasMode {
		header.Mode = int64(entry.Mode)
	}

	switch entry.Type {
	case archscan.Directory:
		header.Typeflag = tar.TypeDir
		header.Name = entry.Path + "/"
		if !entry.HasMode {
			header.Mode = 0o755
		}
	case archscan.Symlink:
		header.Typeflag = tar.TypeSymlink
		header.Linkname = entry.SymlinkTarget
	default:
		header.Typeflag = tar.TypeReg
		header.Size = int64(entry.Size)
	}

	if err := tw.WriteHeader(header); err != nil {
		return archerr.NewIo(entry.Path, fmt.Errorf("writing tar header: %w", err))
	}

	if entry.Type == archscan.File {
		f, err := os.Open(entry.AbsPath)
		if err != nil {
			return archerr.NewIo(entry.AbsPath, err)
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return archerr.NewIo(entry.AbsPath, fmt.Errorf("writing tar payload: %w", err))
		}
	}

	return nil
}
