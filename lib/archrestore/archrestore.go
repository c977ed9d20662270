// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archrestore implements the grouped O(n+m) restore engine
// and the single-file extract/cat operations built on the same
// machinery.
package archrestore

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archhash"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archscan"
)

// Options configures a restore.
type Options struct {
	// Filter, if non-empty, is a glob matched against each entry's
	// path; only matching entries are restored.
	Filter string

	// Force allows overwriting files that already exist at the
	// destination.
	Force bool

	// RestorePermissions applies stored mode bits to restored files
	// and directories.
	RestorePermissions bool
}

// Report summarizes what a restore did.
type Report struct {
	FilesWritten    int
	DirsCreated     int
	SymlinksCreated int
	Warnings        []string
}

// Restore loads the index at archiveDir, verifies its seal, and
// writes every entry matching opts.Filter into targetDir. Entries are
// grouped by the part they live in so each part is opened and
// streamed exactly once.
func Restore(archiveDir, targetDir string, opts Options) (*Report, error) {
	idx, err := loadAndPreflight(archiveDir)
	if err != nil {
		return nil, err
	}

	filtered := filterEntries(idx.Entries, opts.Filter)
	report := &Report{}

	groups, order := groupByPart(archiveDir, idx, filtered)
	for _, key := range order {
		if err := restorePart(archiveDir, idx, key, groups[key], targetDir, opts, report); err != nil {
			return nil, err
		}
	}

	if err := fixupDedup(filtered, targetDir, report); err != nil {
		return nil, err
	}

	return report, nil
}

// Extract restores exactly one entry (matched by exact path) into
// destPath, opening only the one part that holds it and stopping as
// soon as the matching tar entry has been copied.
func Extract(archiveDir, entryPath, destPath string) error {
	idx, err := loadAndPreflight(archiveDir)
	if err != nil {
		return err
	}

	entry, ok := findEntry(idx.Entries, entryPath)
	if !ok {
		return archerr.NewSchemaError("path", fmt.Sprintf("no entry %q in this archive", entryPath))
	}

	source := entry
	if entry.EntryType == archindex.TypeFile && entry.DedupOf != nil {
		canonical, ok := findEntry(idx.Entries, *entry.DedupOf)
		if !ok {
			return archerr.NewDedupSourceMissing(entry.Path, *entry.DedupOf)
		}
		source = canonical
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return archerr.NewIo(filepath.Dir(destPath), err)
	}

	return streamOneEntry(archiveDir, idx, source, func(r io.Reader) error {
		out, err := os.Create(destPath)
		if err != nil {
			return archerr.NewIo(destPath, err)
		}
		defer out.Close()
		if _, err := io.Copy(out, r); err != nil {
			return archerr.NewIo(destPath, err)
		}
		return nil
	})
}

// Cat streams the payload of exactly one entry to w, resolving dedup
// entries to their canonical sibling first.
func Cat(archiveDir, entryPath string, w io.Writer) error {
	idx, err := loadAndPreflight(archiveDir)
	if err != nil {
		return err
	}

	entry, ok := findEntry(idx.Entries, entryPath)
	if !ok {
		return archerr.NewSchemaError("path", fmt.Sprintf("no entry %q in this archive", entryPath))
	}

	source := entry
	if entry.EntryType == archindex.TypeFile && entry.DedupOf != nil {
		canonical, ok := findEntry(idx.Entries, *entry.DedupOf)
		if !ok {
			return archerr.NewDedupSourceMissing(entry.Path, *entry.DedupOf)
		}
		source = canonical
	}

	return streamOneEntry(archiveDir, idx, source, func(r io.Reader) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// loadAndPreflight parses the index (without running the full §3.4
// invariant suite — that would turn the deliberately narrow
// PathTraversal check below into an indistinguishable
// InvariantViolation), verifies the seal, and rejects any unsafe path
// before anything is written.
func loadAndPreflight(archiveDir string) (archindex.Index, error) {
	indexPath := filepath.Join(archiveDir, archindex.IndexFileName)

	idx, err := archindex.ParsePath(indexPath)
	if err != nil {
		return archindex.Index{}, err
	}

	_, _, ok, err := archhash.VerifySeal(indexPath)
	if err != nil {
		return archindex.Index{}, err
	}
	if !ok {
		return archindex.Index{}, archerr.NewTampered(indexPath)
	}

	for _, entry := range idx.Entries {
		if isUnsafePath(entry.Path) {
			return archindex.Index{}, archerr.NewPathTraversal(entry.Path)
		}
	}

	return idx, nil
}

func isUnsafePath(path string) bool {
	if strings.HasPrefix(path, "/") {
		return true
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

func filterEntries(entries []archindex.Entry, filter string) []archindex.Entry {
	if filter == "" {
		return entries
	}
	var out []archindex.Entry
	for _, e := range entries {
		if archscan.MatchGlob(filter, e.Path) {
			out = append(out, e)
		}
	}
	return out
}

func findEntry(entries []archindex.Entry, path string) (archindex.Entry, bool) {
	for _, e := range entries {
		if e.Path == path {
			return e, true
		}
	}
	return archindex.Entry{}, false
}

type partKey struct {
	path string // resolved on-disk path of the part file
}

// groupByPart partitions entries (skipping dedup entries, which are
// materialized in a second pass) into per-part ordered lists, keyed
// by the part file's resolved path so entries from different
// part_bases never collide even if they share a numeric tar_part.
func groupByPart(archiveDir string, idx archindex.Index, entries []archindex.Entry) (map[partKey][]archindex.Entry, []partKey) {
	groups := make(map[partKey][]archindex.Entry)
	var order []partKey

	for _, e := range entries {
		if e.EntryType == archindex.TypeFile && e.DedupOf != nil {
			continue
		}
		key := partKey{path: resolvedPartPath(archiveDir, idx, e)}
		if _, exists := groups[key]; !exists {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}
	return groups, order
}

func resolvedPartPath(archiveDir string, idx archindex.Index, e archindex.Entry) string {
	base := e.PartBase(idx.PartBases)
	return archindex.PartPath(archiveDir, base, e.TarPart, idx.Compression)
}

func restorePart(archiveDir string, idx archindex.Index, key partKey, expected []archindex.Entry, targetDir string, opts Options, report *Report) error {
	codec, err := archcodec.New(archcodec.Name(idx.Compression), idx.ZstdLevel)
	if err != nil {
		return err
	}

	f, err := os.Open(key.path)
	if err != nil {
		if os.IsNotExist(err) {
			return archerr.NewPartMissing(int(expected[0].TarPart))
		}
		return archerr.NewIo(key.path, err)
	}
	defer f.Close()

	reader, err := codec.OpenReader(f)
	if err != nil {
		return archerr.NewIo(key.path, err)
	}
	defer reader.Close()

	expectedByName := make(map[string]archindex.Entry, len(expected))
	for _, e := range expected {
		name := e.Path
		if e.EntryType == archindex.TypeDirectory {
			name += "/"
		}
		expectedByName[name] = e
	}

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return archerr.NewIo(key.path, fmt.Errorf("reading tar stream: %w", err))
		}

		entry, ok := expectedByName[header.Name]
		if !ok {
			continue // not in the filtered restore set
		}

		if err := restoreOne(entry, tr, targetDir, opts, report); err != nil {
			return err
		}
	}

	return nil
}

func restoreOne(entry archindex.Entry, r io.Reader, targetDir string, opts Options, report *Report) error {
	dest, err := safeJoin(targetDir, entry.Path)
	if err != nil {
		return err
	}

	switch entry.EntryType {
	case archindex.TypeDirectory:
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return archerr.NewIo(dest, err)
		}
		if opts.RestorePermissions && entry.UnixMode != nil {
			os.Chmod(dest, os.FileMode(*entry.UnixMode))
		}
		report.DirsCreated++

	case archindex.TypeSymlink:
		if err := restoreSymlink(entry, dest, report); err != nil {
			return err
		}

	default:
		if err := restoreFile(entry, r, dest, opts, report); err != nil {
			return err
		}
	}
	return nil
}

func restoreSymlink(entry archindex.Entry, dest string, report *Report) error {
	if entry.SymlinkTarget == nil {
		return archerr.NewSchemaError("symlink_target", fmt.Sprintf("symlink %q has no target", entry.Path))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return archerr.NewIo(filepath.Dir(dest), err)
	}

	if existing, err := os.Lstat(dest); err == nil {
		_ = existing
		if err := os.Remove(dest); err != nil {
			return archerr.NewIo(dest, err)
		}
	}

	if err := os.Symlink(*entry.SymlinkTarget, dest); err != nil {
		return archerr.NewIo(dest, err)
	}
	report.SymlinksCreated++
	return nil
}

func fileTimeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func restoreFile(entry archindex.Entry, r io.Reader, dest string, opts Options, report *Report) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return archerr.NewIo(filepath.Dir(dest), err)
	}

	if _, err := os.Lstat(dest); err == nil {
		if !opts.Force {
			return archerr.NewAlreadyExists(dest)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return archerr.NewIo(dest, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return archerr.NewIo(dest, err)
	}
	if err := tmp.Close(); err != nil {
		return archerr.NewIo(dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return archerr.NewIo(dest, err)
	}
	success = true

	if opts.RestorePermissions && entry.UnixMode != nil {
		os.Chmod(dest, os.FileMode(*entry.UnixMode))
	}
	if entry.Mtime != nil {
		mtime := fileTimeFromUnix(*entry.Mtime)
		os.Chtimes(dest, mtime, mtime)
	}

	report.FilesWritten++
	return nil
}

func fixupDedup(entries []archindex.Entry, targetDir string, report *Report) error {
	byPath := make(map[string]archindex.Entry, len(entries))
	for _, e := range entries {
		byPath[e.Path] = e
	}

	for _, e := range entries {
		if e.EntryType != archindex.TypeFile || e.DedupOf == nil {
			continue
		}
		canonical, ok := byPath[*e.DedupOf]
		if !ok {
			return archerr.NewDedupSourceMissing(e.Path, *e.DedupOf)
		}

		canonicalDest, err := safeJoin(targetDir, canonical.Path)
		if err != nil {
			return err
		}
		dest, err := safeJoin(targetDir, e.Path)
		if err != nil {
			return err
		}

		if _, err := os.Lstat(canonicalDest); err != nil {
			return archerr.NewDedupSourceMissing(e.Path, *e.DedupOf)
		}

		if err := copyFile(canonicalDest, dest); err != nil {
			return err
		}
		report.FilesWritten++
	}
	return nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return archerr.NewIo(filepath.Dir(dest), err)
	}
	in, err := os.Open(src)
	if err != nil {
		return archerr.NewIo(src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return archerr.NewIo(dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return archerr.NewIo(dest, err)
	}
	return nil
}

func streamOneEntry(archiveDir string, idx archindex.Index, entry archindex.Entry, consume func(io.Reader) error) error {
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

	wantName := entry.Path
	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return archerr.NewSchemaError("path", fmt.Sprintf("entry %q not found in part", entry.Path))
		}
		if err != nil {
			return archerr.NewIo(partPath, fmt.Errorf("reading tar stream: %w", err))
		}
		if header.Name != wantName {
			continue
		}
		return consume(tr)
	}
}

// safeJoin joins targetDir with entryPath and rejects the result if
// it escapes targetDir, defending against a crafted entry that slips
// past the loader's own path check (e.g. via an unexpected
// interaction between the two checks, or a future caller that skips
// loadAndPreflight). It also canonicalizes entryPath's parent chain
// against what actually exists on disk, so an archive that restores a
// symlink entry and then addresses a later entry through it (e.g.
// "evil" -> /tmp, followed by "evil/pwned") cannot use that symlink as
// a shortcut out of targetDir: filepath.Join's lexical check alone
// would pass both entries, but MkdirAll and file creation follow
// symlinks they find on disk regardless of the path string.
func safeJoin(targetDir, entryPath string) (string, error) {
	joined := filepath.Join(targetDir, entryPath)
	cleanTarget := filepath.Clean(targetDir)
	if joined != cleanTarget && !strings.HasPrefix(joined, cleanTarget+string(filepath.Separator)) {
		return "", archerr.NewPathTraversal(entryPath)
	}
	if err := rejectSymlinkParents(cleanTarget, entryPath); err != nil {
		return "", err
	}
	return joined, nil
}

// rejectSymlinkParents walks entryPath's directory components under
// base and fails if any already-existing component is a symlink. The
// final component (the entry being restored) is not checked here,
// since restoreSymlink is allowed to create one; only the directories
// that would hold it are. A component that does not exist yet will be
// created fresh by the caller and cannot already have been hijacked,
// so the walk stops there.
func rejectSymlinkParents(base, entryPath string) error {
	segments := strings.Split(filepath.Clean(entryPath), "/")
	cur := base
	for _, segment := range segments[:len(segments)-1] {
		cur = filepath.Join(cur, segment)
		info, err := os.Lstat(cur)
		if err != nil {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return archerr.NewPathTraversal(entryPath)
		}
	}
	return nil
}
