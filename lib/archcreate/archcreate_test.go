// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archcreate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archrestore"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_RoundTripsThroughRestore(t *testing.T) {
	srcDir := t.TempDir()
	outputDir := t.TempDir()

	writeFile(t, filepath.Join(srcDir, "a.txt"), "hello")
	writeFile(t, filepath.Join(srcDir, "sub/b.txt"), "world")

	idx, err := Create(srcDir, outputDir, Options{Compression: archcodec.None}, time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if idx.TotalFiles != 2 {
		t.Fatalf("TotalFiles = %d, want 2", idx.TotalFiles)
	}
	if err := archindex.Validate(idx); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	restoreDir := t.TempDir()
	report, err := archrestore.Restore(outputDir, restoreDir, archrestore.Options{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if report.FilesWritten != 2 {
		t.Errorf("FilesWritten = %d, want 2", report.FilesWritten)
	}

	got, err := os.ReadFile(filepath.Join(restoreDir, "a.txt"))
	if err != nil || string(got) != "hello" {
		t.Errorf("a.txt = %q, %v, want %q", got, err, "hello")
	}
}

func TestCreate_DedupCollapsesIdenticalFiles(t *testing.T) {
	srcDir := t.TempDir()
	outputDir := t.TempDir()

	writeFile(t, filepath.Join(srcDir, "a.txt"), "same")
	writeFile(t, filepath.Join(srcDir, "b.txt"), "same")

	idx, err := Create(srcDir, outputDir, Options{Compression: archcodec.None, Dedup: true}, time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var dedupCount int
	for _, e := range idx.Entries {
		if e.DedupOf != nil {
			dedupCount++
		}
	}
	if dedupCount != 1 {
		t.Errorf("dedup entries = %d, want 1", dedupCount)
	}
}
