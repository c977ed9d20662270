// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archdiff compares a sealed index against the live state of
// the source tree it was built from, without touching any archive
// part files.
package archdiff

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sort"

	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archscan"
)

// Status classifies how one path's live state compares to the index.
type Status int

const (
	Unchanged Status = iota
	Added
	Removed
	Modified
)

func (s Status) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Change is one path's classification.
type Change struct {
	Path   string
	Status Status
}

// Options configures a diff.
type Options struct {
	// ChangedOnly drops Unchanged entries from the result.
	ChangedOnly bool

	// Checksum forces a full SHA-256 comparison for files present on
	// both sides instead of the cheaper size+mtime heuristic.
	Checksum bool
}

// Diff loads the index at indexPath and compares it against a fresh
// scan of sourceDir, returning one [Change] per path that appears on
// either side, sorted by path.
func Diff(indexPath, sourceDir string, opts Options) ([]Change, error) {
	idx, err := archindex.Read(indexPath)
	if err != nil {
		return nil, err
	}

	scanned, err := archscan.Scan(sourceDir, archscan.Options{})
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]archindex.Entry, len(idx.Entries))
	for _, e := range idx.Entries {
		byPath[e.Path] = e
	}
	liveByPath := make(map[string]archscan.Entry, len(scanned))
	for _, e := range scanned {
		liveByPath[e.Path] = e
	}

	seen := make(map[string]bool, len(byPath)+len(liveByPath))
	for p := range byPath {
		seen[p] = true
	}
	for p := range liveByPath {
		seen[p] = true
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changes []Change
	for _, path := range paths {
		oldEntry, inIndex := byPath[path]
		liveEntry, inLive := liveByPath[path]

		var status Status
		switch {
		case inIndex && !inLive:
			status = Removed
		case !inIndex && inLive:
			status = Added
		default:
			status = classify(oldEntry, liveEntry, opts)
		}

		if opts.ChangedOnly && status == Unchanged {
			continue
		}
		changes = append(changes, Change{Path: path, Status: status})
	}

	return changes, nil
}

func classify(oldEntry archindex.Entry, liveEntry archscan.Entry, opts Options) Status {
	if entryTypeOf(liveEntry.Type) != oldEntry.EntryType {
		return Modified
	}

	switch liveEntry.Type {
	case archscan.Directory:
		return Unchanged

	case archscan.Symlink:
		if oldEntry.SymlinkTarget == nil || *oldEntry.SymlinkTarget != liveEntry.SymlinkTarget {
			return Modified
		}
		return Unchanged

	default:
		if oldEntry.Size != liveEntry.Size {
			return Modified
		}
		if opts.Checksum {
			sum, err := hashFile(liveEntry.AbsPath)
			if err != nil || oldEntry.SHA256 == nil || sum != *oldEntry.SHA256 {
				return Modified
			}
			return Unchanged
		}
		if oldEntry.Mtime != nil && liveEntry.HasModTime && *oldEntry.Mtime != liveEntry.ModTime.Unix() {
			return Modified
		}
		return Unchanged
	}
}

func entryTypeOf(t archscan.Type) archindex.EntryType {
	switch t {
	case archscan.Directory:
		return archindex.TypeDirectory
	case archscan.Symlink:
		return archindex.TypeSymlink
	default:
		return archindex.TypeFile
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
