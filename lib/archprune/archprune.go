// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archprune removes old archives from a directory of
// archives, keeping the newest N unconditionally and deleting the
// rest once they cross an age threshold.
package archprune

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/archivum-cli/archivum/lib/archindex"
)

// Options configures a prune pass.
type Options struct {
	// Keep is how many of the newest archives are never deleted,
	// regardless of age.
	Keep uint

	// MaxAgeDays deletes any archive older than this, among the ones
	// not protected by Keep. Zero deletes all of them.
	MaxAgeDays uint
}

// Candidate is one archive subdirectory found under the base
// directory.
type Candidate struct {
	Dir           string
	CreatedAtUnix int64
}

// Result reports what a prune pass did.
type Result struct {
	Kept    []Candidate
	Deleted []Candidate
}

// Prune scans baseDir for immediate subdirectories holding an
// index.arc.json, and deletes the ones this pass's Options mark for
// removal.
func Prune(baseDir string, opts Options, now time.Time) (*Result, error) {
	candidates, err := discover(baseDir)
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].CreatedAtUnix < candidates[j].CreatedAtUnix })

	result := &Result{}
	keep := int(opts.Keep)
	protectedFrom := len(candidates) - keep
	if protectedFrom < 0 {
		protectedFrom = 0
	}

	for i, c := range candidates {
		if i >= protectedFrom {
			result.Kept = append(result.Kept, c)
			continue
		}

		if shouldDelete(c, opts.MaxAgeDays, now) {
			if err := deleteArchive(c.Dir); err != nil {
				return result, err
			}
			result.Deleted = append(result.Deleted, c)
		} else {
			result.Kept = append(result.Kept, c)
		}
	}

	return result, nil
}

func shouldDelete(c Candidate, maxAgeDays uint, now time.Time) bool {
	if maxAgeDays == 0 {
		return true
	}
	age := now.Sub(time.Unix(c.CreatedAtUnix, 0))
	return age > time.Duration(maxAgeDays)*24*time.Hour
}

func discover(baseDir string) ([]Candidate, error) {
	children, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, child := range children {
		if !child.IsDir() {
			continue
		}
		dir := filepath.Join(baseDir, child.Name())
		indexPath := filepath.Join(dir, archindex.IndexFileName)
		if _, err := os.Stat(indexPath); err != nil {
			continue
		}

		idx, err := archindex.ParsePath(indexPath)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{Dir: dir, CreatedAtUnix: idx.CreatedAtUnix})
	}
	return candidates, nil
}

var partFilePattern = regexp.MustCompile(`^.+\.part\d{3}\.[a-z0-9.]+$`)

// deleteArchive removes only the files the archiver itself would have
// written — part files, the index, and its seal — then the directory
// if that left it empty.
func deleteArchive(dir string) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, child := range children {
		if child.IsDir() {
			continue
		}
		name := child.Name()
		if name == archindex.IndexFileName || name == archindex.IndexFileName+".b3" || partFilePattern.MatchString(name) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return err
			}
		}
	}

	os.Remove(dir) // best-effort: only succeeds if nothing archiver-foreign remains
	return nil
}
