// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archhash provides the two hashing surfaces the archive
// pipeline needs: a bounded worker-pool SHA-256 batch over file
// content, and a BLAKE3 seal of the serialized index, written
// atomically.
package archhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/archivum-cli/archivum/lib/archerr"
)

// Target is one file to hash, identified by its absolute filesystem
// path and the relative archive path used to report errors and join
// results back by position.
type Target struct {
	Path    string // archive-relative path, for error reporting
	AbsPath string
}

// Result is the SHA-256 digest for the Target at the same index.
type Result struct {
	SHA256 string // 64-character lowercase hex
}

// HashAll computes SHA-256 for every target using a worker pool of
// size threads. Results are returned in the same order as targets.
// Fails fast: the first I/O error observed by any worker stops the
// batch and is returned wrapped in an [archerr.Error] identifying the
// offending path. threads < 1 is treated as 1.
func HashAll(targets []Target, threads int) ([]Result, error) {
	if threads < 1 {
		threads = 1
	}
	if len(targets) == 0 {
		return nil, nil
	}

	results := make([]Result, len(targets))

	indices := make(chan int)
	var wg sync.WaitGroup

	var failureOnce sync.Once
	var failure error
	stop := make(chan struct{})

	worker := func() {
		defer wg.Done()
		for i := range indices {
			digest, err := hashFile(targets[i].AbsPath)
			if err != nil {
				failureOnce.Do(func() {
					failure = archerr.NewIo(targets[i].Path, err)
					close(stop)
				})
				continue
			}
			results[i] = Result{SHA256: digest}
		}
	}

	workerCount := threads
	if workerCount > len(targets) {
		workerCount = len(targets)
	}
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go worker()
	}

feed:
	for i := range targets {
		select {
		case indices <- i:
		case <-stop:
			break feed
		}
	}
	close(indices)
	wg.Wait()

	if failure != nil {
		return nil, failure
	}
	return results, nil
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Seal computes the lowercase hex BLAKE3 digest of data.
func Seal(data []byte) string {
	hasher := blake3.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// WriteSealed writes data to path and its BLAKE3 seal to path+".b3",
// both atomically (temp file, fsync, rename). This is how the index
// and its seal are committed: the seal is computed from the exact
// bytes written, so a verifier re-reading the file always recomputes
// the same digest.
func WriteSealed(path string, data []byte) error {
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	seal := Seal(data)
	if err := writeAtomic(path+".b3", []byte(seal+"\n")); err != nil {
		return err
	}
	return nil
}

// writeAtomic writes data to a temp file in the same directory as
// path, fsyncs it, then renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return archerr.NewIo(dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return archerr.NewIo(dir, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return archerr.NewIo(tmpPath, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return archerr.NewIo(tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		return archerr.NewIo(tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return archerr.NewIo(path, fmt.Errorf("renaming into place: %w", err))
	}

	success = true
	return nil
}

// VerifySeal reports whether the BLAKE3 seal stored alongside
// indexPath (at indexPath+".b3") matches the BLAKE3 of indexPath's
// current bytes. Returns the computed seal, the stored seal, and
// whether they match.
func VerifySeal(indexPath string) (computed, stored string, ok bool, err error) {
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return "", "", false, archerr.NewIo(indexPath, err)
	}
	sealBytes, err := os.ReadFile(indexPath + ".b3")
	if err != nil {
		return "", "", false, archerr.NewIo(indexPath+".b3", err)
	}

	computed = Seal(data)
	stored = trimHex(string(sealBytes))
	return computed, stored, computed == stored, nil
}

func trimHex(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
