// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archverify recomputes content hashes through each archive
// part's codec and compares them against the sealed index, without
// ever materializing files on disk.
package archverify

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archhash"
	"github.com/archivum-cli/archivum/lib/archindex"
)

// Options configures a verify pass.
type Options struct {
	// ContinueOnError keeps checking remaining parts/entries after a
	// mismatch or missing part instead of stopping at the first one.
	ContinueOnError bool
}

// Mismatch records one entry whose recomputed content hash did not
// match the sealed index.
type Mismatch struct {
	Path     string
	Expected string
	Got      string
}

// Report summarizes a verify pass.
type Report struct {
	SealOK       bool
	FilesChecked int
	Mismatches   []Mismatch
	MissingParts []int
}

// OK reports whether the archive passed every check this report ran.
func (r *Report) OK() bool {
	return r.SealOK && len(r.Mismatches) == 0 && len(r.MissingParts) == 0
}

// Verify checks the index seal, confirms every referenced part file is
// present, and streams each file's payload back through its codec to
// recompute and compare its SHA-256. With opts.ContinueOnError unset,
// the first missing part or checksum mismatch stops the pass and is
// returned as an error; with it set, every check that can run does,
// and failures accumulate into the returned report instead.
func Verify(archiveDir string, opts Options) (*Report, error) {
	indexPath := filepath.Join(archiveDir, archindex.IndexFileName)
	report := &Report{}

	_, _, sealOK, err := archhash.VerifySeal(indexPath)
	if err != nil {
		return nil, err
	}
	report.SealOK = sealOK
	if !sealOK {
		return report, archerr.NewTampered(indexPath)
	}

	idx, err := archindex.Read(indexPath)
	if err != nil {
		return nil, err
	}

	groups, order := groupByPart(archiveDir, idx)
	for _, key := range order {
		expected := groups[key]
		if err := verifyPart(archiveDir, idx, key, expected, opts, report); err != nil {
			if !opts.ContinueOnError {
				return report, err
			}
		}
	}

	return report, nil
}

type partKey struct {
	path     string
	tarPart  uint32
	partBase string
}

// groupByPart partitions every entry's part into an ordered list,
// keyed by the part file's resolved path so entries from different
// part_bases never collide even if they share a numeric tar_part.
// Every entry registers its key, including directories and symlinks,
// which carry no tar payload to hash but still claim a part index -
// so a part referenced only by non-file entries is still opened and
// confirmed present. Only non-dedup file entries are appended to the
// group that verifyPart streams and hashes.
func groupByPart(archiveDir string, idx archindex.Index) (map[partKey][]archindex.Entry, []partKey) {
	groups := make(map[partKey][]archindex.Entry)
	var order []partKey

	for _, e := range idx.Entries {
		base := e.PartBase(idx.PartBases)
		key := partKey{
			path:     archindex.PartPath(archiveDir, base, e.TarPart, idx.Compression),
			tarPart:  e.TarPart,
			partBase: base,
		}
		if _, exists := groups[key]; !exists {
			order = append(order, key)
			groups[key] = nil
		}
		if e.EntryType == archindex.TypeFile && e.DedupOf == nil {
			groups[key] = append(groups[key], e)
		}
	}
	return groups, order
}

func verifyPart(archiveDir string, idx archindex.Index, key partKey, expected []archindex.Entry, opts Options, report *Report) error {
	f, err := os.Open(key.path)
	if err != nil {
		if os.IsNotExist(err) {
			report.MissingParts = append(report.MissingParts, int(key.tarPart))
			return archerr.NewPartMissing(int(key.tarPart))
		}
		return archerr.NewIo(key.path, err)
	}
	defer f.Close()

	codec, err := archcodec.New(archcodec.Name(idx.Compression), idx.ZstdLevel)
	if err != nil {
		return err
	}
	reader, err := codec.OpenReader(f)
	if err != nil {
		return archerr.NewIo(key.path, err)
	}
	defer reader.Close()

	wantByName := make(map[string]archindex.Entry, len(expected))
	for _, e := range expected {
		wantByName[e.Path] = e
	}

	seen := make(map[string]bool, len(expected))
	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Entries the stream never reached cannot be confirmed; they
			// are recorded so an unreadable part never reports clean.
			for _, e := range expected {
				if !seen[e.Path] {
					want := ""
					if e.SHA256 != nil {
						want = *e.SHA256
					}
					report.Mismatches = append(report.Mismatches, Mismatch{Path: e.Path, Expected: want})
				}
			}
			return archerr.NewIo(key.path, fmt.Errorf("reading tar stream: %w", err))
		}

		entry, ok := wantByName[header.Name]
		if !ok {
			continue
		}
		seen[entry.Path] = true

		hasher := sha256.New()
		if _, err := io.Copy(hasher, tr); err != nil {
			return archerr.NewIo(key.path, fmt.Errorf("reading %q payload: %w", entry.Path, err))
		}
		got := hex.EncodeToString(hasher.Sum(nil))
		report.FilesChecked++

		want := ""
		if entry.SHA256 != nil {
			want = *entry.SHA256
		}
		if got != want {
			report.Mismatches = append(report.Mismatches, Mismatch{Path: entry.Path, Expected: want, Got: got})
			if !opts.ContinueOnError {
				return archerr.NewChecksumMismatch(entry.Path, want, got)
			}
		}
	}

	return nil
}
