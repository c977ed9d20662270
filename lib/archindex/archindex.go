// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archindex builds, serializes, parses, and validates the v3
// archive index: the sealed JSON document that describes every entry
// an archive holds and which part carries its payload.
package archindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archhash"
)

// CurrentVersion is the only index schema version this module writes
// or accepts.
const CurrentVersion = 3

// IndexFileName is the name of the sealed index file within an
// archive directory.
const IndexFileName = "index.arc.json"

type EntryType string

const (
	TypeFile      EntryType = "file"
	TypeDirectory EntryType = "directory"
	TypeSymlink   EntryType = "symlink"
)

// Entry is one archive entry, matching the on-disk JSON schema field
// for field. Nullable fields are pointers so the zero value marshals
// as JSON null rather than a misleading default.
type Entry struct {
	Path          string    `json:"path"`
	EntryType     EntryType `json:"entry_type"`
	Size          uint64    `json:"size"`
	Mtime         *int64    `json:"mtime"`
	UnixMode      *uint32   `json:"unix_mode"`
	SHA256        *string   `json:"sha256"`
	TarPart       uint32    `json:"tar_part"`
	TarBase       *uint32   `json:"tar_base"`
	DedupOf       *string   `json:"dedup_of"`
	SymlinkTarget *string   `json:"symlink_target"`
}

// Header carries the archive-wide metadata that precedes the entries
// array in the serialized index.
type Header struct {
	Version        int      `json:"version"`
	CreatedAtUnix  int64    `json:"created_at_unix"`
	CreatedAtHuman string   `json:"created_at_human"`
	TotalFiles     uint64   `json:"total_files"`
	TotalDirs      uint64   `json:"total_dirs"`
	TotalSymlinks  uint64   `json:"total_symlinks"`
	TotalSize      uint64   `json:"total_size"`
	TotalParts     uint32   `json:"total_parts"`
	Compression    string   `json:"compression"`
	ZstdLevel      int      `json:"zstd_level"`
	Notes          string   `json:"notes"`
	PartBases      []string `json:"part_bases"`
}

// Index is the full sealed document: header fields flattened together
// with the entries array, matching the reference on-disk shape.
type Index struct {
	Header
	Entries []Entry `json:"entries"`
}

// Build assembles a Header from already-packed, already-hashed
// entries and sorts the entries by (tar_part, path) as required by
// invariant 6. The caller is responsible for every other field of
// each entry having already been filled in.
func Build(entries []Entry, compression string, zstdLevel int, notes string, partBases []string, createdAt time.Time) Index {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TarPart != sorted[j].TarPart {
			return sorted[i].TarPart < sorted[j].TarPart
		}
		return sorted[i].Path < sorted[j].Path
	})

	var totalFiles, totalDirs, totalSymlinks, totalSize uint64
	var maxPart uint32
	for _, entry := range sorted {
		switch entry.EntryType {
		case TypeFile:
			totalFiles++
			totalSize += entry.Size
		case TypeDirectory:
			totalDirs++
		case TypeSymlink:
			totalSymlinks++
		}
		if entry.TarPart > maxPart {
			maxPart = entry.TarPart
		}
	}

	var totalParts uint32
	if len(sorted) > 0 {
		totalParts = maxPart + 1
	}

	if len(partBases) == 0 {
		partBases = []string{"data"}
	}

	return Index{
		Header: Header{
			Version:        CurrentVersion,
			CreatedAtUnix:  createdAt.Unix(),
			CreatedAtHuman: createdAt.UTC().Format("2006-01-02 15:04:05 UTC"),
			TotalFiles:     totalFiles,
			TotalDirs:      totalDirs,
			TotalSymlinks:  totalSymlinks,
			TotalSize:      totalSize,
			TotalParts:     totalParts,
			Compression:    compression,
			ZstdLevel:      zstdLevel,
			Notes:          notes,
			PartBases:      partBases,
		},
		Entries: sorted,
	}
}

// Marshal serializes idx with two-space indentation and a trailing
// newline. Struct field declaration order is the canonical key order;
// Go's encoder never reorders struct fields, so this is deterministic
// across runs without needing a custom ordered-map type.
func Marshal(idx Index) ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling index: %w", err)
	}
	return append(data, '\n'), nil
}

// Write serializes idx and writes it plus its BLAKE3 seal atomically
// into dir, as index.arc.json and index.arc.json.b3.
func Write(dir string, idx Index) error {
	data, err := Marshal(idx)
	if err != nil {
		return err
	}
	return archhash.WriteSealed(filepath.Join(dir, IndexFileName), data)
}

// Parse unmarshals data and checks only the schema version, without
// running the full §3.4 invariant suite. Callers that need to run
// their own narrower, more specifically tagged checks before the rest
// of the invariant set (the restore engine's path-traversal preflight,
// for instance, must report [archerr.PathTraversal] rather than a
// generic [archerr.InvariantViolation]) should use this instead of
// [Read].
func Parse(data []byte) (Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, archerr.NewSchemaError("(root)", fmt.Sprintf("invalid JSON: %v", err))
	}
	if idx.Version != CurrentVersion {
		return Index{}, archerr.NewSchemaError("version", fmt.Sprintf("unknown index version %d", idx.Version))
	}
	return idx, nil
}

// ParsePath reads and [Parse]s the index at path.
func ParsePath(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Index{}, archerr.NewIo(path, err)
	}
	return Parse(data)
}

// Read loads and strictly validates the index at path: unknown
// version or a broken §3.4-style invariant is a fatal error. It does
// NOT check the seal or re-hash payloads — that is the verifier's job
// (it needs the part files present, which Read does not require).
func Read(path string) (Index, error) {
	idx, err := ParsePath(path)
	if err != nil {
		return Index{}, err
	}
	if err := Validate(idx); err != nil {
		return Index{}, err
	}
	return idx, nil
}

// Validate checks the index-internal invariants from §3.4 that do not
// require touching the tar parts on disk: part/entry counts, total
// size, sort order, dedup reference soundness, and path safety.
func Validate(idx Index) error {
	if idx.Version != CurrentVersion {
		return archerr.NewSchemaError("version", fmt.Sprintf("unknown index version %d", idx.Version))
	}
	if len(idx.PartBases) == 0 {
		return archerr.NewSchemaError("part_bases", "must be a non-empty list")
	}

	var totalFiles, totalDirs, totalSymlinks, totalSize uint64
	var maxPart uint32
	haveEntries := len(idx.Entries) > 0
	bySHA := make(map[string][]Entry)

	for i, entry := range idx.Entries {
		if strings.HasPrefix(entry.Path, "/") || hasDotDotSegment(entry.Path) {
			return archerr.NewInvariantViolation(fmt.Sprintf("entry %q contains a traversal segment or is absolute", entry.Path))
		}

		if i > 0 {
			prev := idx.Entries[i-1]
			if entry.TarPart < prev.TarPart || (entry.TarPart == prev.TarPart && entry.Path < prev.Path) {
				return archerr.NewInvariantViolation("entries are not sorted by (tar_part, path)")
			}
		}

		switch entry.EntryType {
		case TypeFile:
			totalFiles++
			totalSize += entry.Size
			if entry.DedupOf == nil {
				if entry.SHA256 == nil {
					return archerr.NewInvariantViolation(fmt.Sprintf("file %q has no sha256 and is not a dedup entry", entry.Path))
				}
				bySHA[*entry.SHA256] = append(bySHA[*entry.SHA256], entry)
			}
		case TypeDirectory:
			totalDirs++
		case TypeSymlink:
			totalSymlinks++
			if entry.SymlinkTarget == nil {
				return archerr.NewInvariantViolation(fmt.Sprintf("symlink %q has no symlink_target", entry.Path))
			}
		default:
			return archerr.NewSchemaError("entry_type", fmt.Sprintf("unrecognized entry_type %q for %q", entry.EntryType, entry.Path))
		}

		if entry.TarPart > maxPart {
			maxPart = entry.TarPart
		}
	}

	byPath := make(map[string]Entry, len(idx.Entries))
	for _, entry := range idx.Entries {
		byPath[entry.Path] = entry
	}
	for _, entry := range idx.Entries {
		if entry.EntryType != TypeFile || entry.DedupOf == nil {
			continue
		}
		canonical, ok := byPath[*entry.DedupOf]
		if !ok || canonical.EntryType != TypeFile || canonical.DedupOf != nil {
			return archerr.NewInvariantViolation(fmt.Sprintf("dedup entry %q references missing canonical %q", entry.Path, *entry.DedupOf))
		}
		if canonical.Size != entry.Size {
			return archerr.NewInvariantViolation(fmt.Sprintf("dedup entry %q size %d does not match canonical %q size %d", entry.Path, entry.Size, *entry.DedupOf, canonical.Size))
		}
	}

	if totalFiles != idx.TotalFiles {
		return archerr.NewInvariantViolation(fmt.Sprintf("total_files=%d does not match %d file entries", idx.TotalFiles, totalFiles))
	}
	if totalDirs != idx.TotalDirs {
		return archerr.NewInvariantViolation(fmt.Sprintf("total_dirs=%d does not match %d directory entries", idx.TotalDirs, totalDirs))
	}
	if totalSymlinks != idx.TotalSymlinks {
		return archerr.NewInvariantViolation(fmt.Sprintf("total_symlinks=%d does not match %d symlink entries", idx.TotalSymlinks, totalSymlinks))
	}
	if totalSize != idx.TotalSize {
		return archerr.NewInvariantViolation(fmt.Sprintf("total_size=%d does not match summed file size %d", idx.TotalSize, totalSize))
	}

	wantParts := uint32(0)
	if haveEntries {
		wantParts = maxPart + 1
	}
	if wantParts != idx.TotalParts {
		return archerr.NewInvariantViolation(fmt.Sprintf("total_parts=%d does not match max(tar_part)+1=%d", idx.TotalParts, wantParts))
	}

	return nil
}

func hasDotDotSegment(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

// PartBase returns the base name this entry's part is stored under,
// resolved through tar_base (nil means index 0).
func (e Entry) PartBase(partBases []string) string {
	index := 0
	if e.TarBase != nil {
		index = int(*e.TarBase)
	}
	if index < 0 || index >= len(partBases) {
		return ""
	}
	return partBases[index]
}

// PartPath returns the on-disk path of the part file for the given
// base directory, base name, part index, and compression codec.
func PartPath(dir, base string, partIndex uint32, compression string) string {
	ext := extensionFor(compression)
	return filepath.Join(dir, fmt.Sprintf("%s.part%03d.%s", base, partIndex, ext))
}

func extensionFor(compression string) string {
	switch compression {
	case "gzip":
		return "tar.gz"
	case "zstd":
		return "tar.zst"
	case "bzip2":
		return "tar.bz2"
	case "lz4":
		return "tar.lz4"
	default:
		return "tar"
	}
}
