// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archscan walks a source directory tree and produces the
// ordered, deterministic entry sequence that every other archive
// component builds on: depth-first pre-order, children sorted by raw
// byte order of their name, symlinks recorded but never followed, and
// exclude-glob subtrees pruned rather than filtered after the fact.
package archscan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/archivum-cli/archivum/lib/archerr"
)

// Type discriminates the three entry variants a scan can produce.
type Type int

const (
	File Type = iota
	Directory
	Symlink
)

func (t Type) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Entry is one pre-entry produced by [Scan]: a path plus enough stat
// metadata for the packer and hash engine to do their jobs without
// re-touching the filesystem.
type Entry struct {
	// Path is forward-slash relative to the scan root.
	Path string
	Type Type

	Size uint64

	ModTime    time.Time
	HasModTime bool

	Mode    uint32
	HasMode bool

	// SymlinkTarget is non-empty iff Type == Symlink.
	SymlinkTarget string

	// AbsPath is where this entry lives on the source filesystem.
	// Used by the hash engine and tar writer to read content; it is
	// not part of the archive's persisted model.
	AbsPath string
}

// Options configures a scan.
type Options struct {
	// Excludes are glob patterns matched against the full forward-slash
	// relative path. A directory match prunes its entire subtree.
	Excludes []string
}

// Scan walks root depth-first, pre-order, and returns every entry
// beneath it (the root itself is never emitted). Children of a
// directory are visited in lexicographic byte order of their name,
// which is the determinism hook the rest of the pipeline relies on.
func Scan(root string, opts Options) ([]Entry, error) {
	root = filepath.Clean(root)
	var entries []Entry

	var walk func(dir, relPrefix string) error
	walk = func(dir, relPrefix string) error {
		children, err := os.ReadDir(dir)
		if err != nil {
			return archerr.NewIo(dir, err)
		}

		names := make([]string, 0, len(children))
		byName := make(map[string]os.DirEntry, len(children))
		for _, child := range children {
			names = append(names, child.Name())
			byName[child.Name()] = child
		}
		sort.Strings(names)

		for _, name := range names {
			relPath := name
			if relPrefix != "" {
				relPath = relPrefix + "/" + name
			}
			absPath := filepath.Join(dir, name)

			if MatchAny(opts.Excludes, relPath) {
				// Pruned. For a directory this skips the whole
				// subtree because we simply never recurse into it.
				continue
			}

			info, err := os.Lstat(absPath)
			if err != nil {
				return archerr.NewIo(absPath, err)
			}

			switch {
			case info.Mode()&os.ModeSymlink != 0:
				target, err := os.Readlink(absPath)
				if err != nil {
					return archerr.NewIo(absPath, err)
				}
				entries = append(entries, Entry{
					Path:          relPath,
					Type:          Symlink,
					SymlinkTarget: target,
					ModTime:       info.ModTime(),
					HasModTime:    true,
					Mode:          uint32(info.Mode().Perm()),
					HasMode:       true,
					AbsPath:       absPath,
				})

			case info.IsDir():
				entries = append(entries, Entry{
					Path:       relPath,
					Type:       Directory,
					ModTime:    info.ModTime(),
					HasModTime: true,
					Mode:       uint32(info.Mode().Perm()),
					HasMode:    true,
					AbsPath:    absPath,
				})
				if err := walk(absPath, relPath); err != nil {
					return err
				}

			default:
				entries = append(entries, Entry{
					Path:       relPath,
					Type:       File,
					Size:       uint64(info.Size()),
					ModTime:    info.ModTime(),
					HasModTime: true,
					Mode:       uint32(info.Mode().Perm()),
					HasMode:    true,
					AbsPath:    absPath,
				})
			}
		}
		return nil
	}

	if err := walk(root, ""); err != nil {
		return nil, err
	}
	return entries, nil
}

// MatchAny reports whether path matches any of the given exclude
// patterns.
func MatchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if MatchGlob(pattern, path) {
			return true
		}
	}
	return false
}

// MatchGlob matches a forward-slash path against a pattern supporting
// *, ?, [...] within a path segment, and ** for zero or more whole
// segments.
func MatchGlob(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], path) {
			return true
		}
		if len(path) == 0 {
			return false
		}
		return matchSegments(pattern, path[1:])
	}
	if len(path) == 0 {
		return false
	}
	ok, err := filepath.Match(pattern[0], path[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}
