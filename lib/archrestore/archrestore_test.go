// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archrestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archpack"
	"github.com/archivum-cli/archivum/lib/archscan"
)

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// buildArchive scans srcDir, packs it into archiveDir with no
// compression, and writes a sealed index, returning the entries used
// so tests can assert against them.
func buildArchive(t *testing.T, srcDir, archiveDir string, splitFiles uint64) []archindex.Entry {
	t.Helper()

	scanned, err := archscan.Scan(srcDir, archscan.Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	planned := archpack.Assign(scanned, archpack.Options{SplitFiles: splitFiles})

	var entries []archindex.Entry
	for _, p := range planned {
		e := archindex.Entry{
			Path:      p.Entry.Path,
			EntryType: entryTypeFor(p.Entry.Type),
			Size:      p.Entry.Size,
			TarPart:   p.TarPart,
		}
		if p.Entry.Type == archscan.File {
			sum, err := hashFile(p.Entry.AbsPath)
			if err != nil {
				t.Fatalf("hashFile: %v", err)
			}
			e.SHA256 = &sum
		}
		if p.Entry.Type == archscan.Symlink {
			target := p.Entry.SymlinkTarget
			e.SymlinkTarget = &target
		}
		entries = append(entries, e)
	}

	codec, err := archcodec.New(archcodec.None, 0)
	if err != nil {
		t.Fatalf("archcodec.New: %v", err)
	}
	if _, err := archpack.WriteParts(archiveDir, "data", planned, nil, codec, archcodec.None); err != nil {
		t.Fatalf("WriteParts: %v", err)
	}

	idx := archindex.Build(entries, "none", 0, "", nil, time.Unix(0, 0))
	if err := archindex.Write(archiveDir, idx); err != nil {
		t.Fatalf("archindex.Write: %v", err)
	}

	return idx.Entries
}

func entryTypeFor(t archscan.Type) archindex.EntryType {
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
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256Hex(data)
	return sum, nil
}

func TestRestore_RoundTripsFilesAndDirectories(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(srcDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "sub", "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "root.txt"), []byte("root"), 0o644); err != nil {
		t.Fatal(err)
	}

	archiveDir := t.TempDir()
	buildArchive(t, srcDir, archiveDir, 0)

	destDir := t.TempDir()
	report, err := Restore(archiveDir, destDir, Options{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if report.FilesWritten != 2 {
		t.Errorf("FilesWritten = %d, want 2", report.FilesWritten)
	}
	if report.DirsCreated != 1 {
		t.Errorf("DirsCreated = %d, want 1", report.DirsCreated)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "sub", "a.txt"))
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}
	if string(got) != "alpha" {
		t.Errorf("restored content = %q, want %q", got, "alpha")
	}
}

func TestRestore_RejectsExistingFileWithoutForce(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}

	archiveDir := t.TempDir()
	buildArchive(t, srcDir, archiveDir, 0)

	destDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(destDir, "a.txt"), []byte("preexisting"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Restore(archiveDir, destDir, Options{})
	if !archerr.Is(err, archerr.AlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	if _, err := Restore(archiveDir, destDir, Options{Force: true}); err != nil {
		t.Fatalf("Restore with Force: %v", err)
	}
}

func TestRestore_RejectsTraversalPath(t *testing.T) {
	archiveDir := t.TempDir()

	entries := []archindex.Entry{
		{Path: "../escape.txt", EntryType: archindex.TypeFile, Size: 0, SHA256: strPtr(sha256Hex(nil))},
	}
	idx := archindex.Build(entries, "none", 0, "", nil, time.Unix(0, 0))
	if err := archindex.Write(archiveDir, idx); err != nil {
		t.Fatal(err)
	}

	destDir := t.TempDir()
	_, err := Restore(archiveDir, destDir, Options{})
	if !archerr.Is(err, archerr.PathTraversal) {
		t.Fatalf("expected PathTraversal, got %v", err)
	}
}

// TestRestore_RejectsSymlinkRedirectedParent defends against an
// archive that restores a symlink entry first and then addresses a
// later entry through it as a directory (e.g. "evil" -> some path
// outside targetDir, followed by "evil/pwned"). A purely lexical
// filepath.Join check on entry.Path passes both entries; this test
// asserts restore instead notices that "evil" already exists as a
// symlink by the time "evil/pwned" is processed and refuses it,
// rather than letting os.MkdirAll follow the symlink off the
// filesystem.
func TestRestore_RejectsSymlinkRedirectedParent(t *testing.T) {
	outsideDir := t.TempDir()

	archiveDir := t.TempDir()
	planned := []archpack.Planned{
		{Entry: archscan.Entry{Path: "evil", Type: archscan.Symlink, SymlinkTarget: outsideDir}, TarPart: 0},
		{Entry: archscan.Entry{Path: "evil/pwned", Type: archscan.File, Size: 5}, TarPart: 0},
	}

	tmpFile := filepath.Join(t.TempDir(), "payload")
	if err := os.WriteFile(tmpFile, []byte("pwned"), 0o644); err != nil {
		t.Fatal(err)
	}
	planned[1].Entry.AbsPath = tmpFile

	codec, err := archcodec.New(archcodec.None, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := archpack.WriteParts(archiveDir, "data", planned, nil, codec, archcodec.None); err != nil {
		t.Fatal(err)
	}

	sum := sha256Hex([]byte("pwned"))
	symTarget := outsideDir
	entries := []archindex.Entry{
		{Path: "evil", EntryType: archindex.TypeSymlink, SymlinkTarget: &symTarget, TarPart: 0},
		{Path: "evil/pwned", EntryType: archindex.TypeFile, Size: 5, SHA256: &sum, TarPart: 0},
	}
	idx := archindex.Build(entries, "none", 0, "", nil, time.Unix(0, 0))
	if err := archindex.Write(archiveDir, idx); err != nil {
		t.Fatal(err)
	}

	destDir := t.TempDir()
	_, err = Restore(archiveDir, destDir, Options{})
	if !archerr.Is(err, archerr.PathTraversal) {
		t.Fatalf("expected PathTraversal, got %v", err)
	}

	if _, statErr := os.Lstat(filepath.Join(outsideDir, "pwned")); !os.IsNotExist(statErr) {
		t.Fatalf("payload escaped into outsideDir: lstat err = %v", statErr)
	}
}

func TestRestore_DedupEntryMaterializesFromCanonical(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("shared"), 0o644); err != nil {
		t.Fatal(err)
	}

	archiveDir := t.TempDir()
	scanned, err := archscan.Scan(srcDir, archscan.Options{})
	if err != nil {
		t.Fatal(err)
	}
	planned := archpack.Assign(scanned, archpack.Options{})

	sum := sha256Hex([]byte("shared"))
	entries := []archindex.Entry{
		{Path: "a.txt", EntryType: archindex.TypeFile, Size: 6, SHA256: &sum, TarPart: 0},
		{Path: "b.txt", EntryType: archindex.TypeFile, Size: 6, SHA256: &sum, TarPart: 0, DedupOf: strPtr("a.txt")},
	}
	idx := archindex.Build(entries, "none", 0, "", nil, time.Unix(0, 0))

	codec, err := archcodec.New(archcodec.None, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := archpack.WriteParts(archiveDir, "data", planned, map[string]bool{"b.txt": true}, codec, archcodec.None); err != nil {
		t.Fatal(err)
	}
	if err := archindex.Write(archiveDir, idx); err != nil {
		t.Fatal(err)
	}

	destDir := t.TempDir()
	if _, err := Restore(archiveDir, destDir, Options{}); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "b.txt"))
	if err != nil {
		t.Fatalf("reading materialized dedup file: %v", err)
	}
	if string(got) != "shared" {
		t.Errorf("materialized content = %q, want %q", got, "shared")
	}
}

func TestExtract_SingleFile(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "b.txt"), []byte("beta"), 0o644); err != nil {
		t.Fatal(err)
	}

	archiveDir := t.TempDir()
	buildArchive(t, srcDir, archiveDir, 0)

	destPath := filepath.Join(t.TempDir(), "out.txt")
	if err := Extract(archiveDir, "a.txt", destPath); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "alpha" {
		t.Errorf("extracted content = %q, want %q", got, "alpha")
	}
}

func TestCat_StreamsEntryToWriter(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}

	archiveDir := t.TempDir()
	buildArchive(t, srcDir, archiveDir, 0)

	var buf bytes.Buffer
	if err := Cat(archiveDir, "a.txt", &buf); err != nil {
		t.Fatalf("Cat: %v", err)
	}
	if buf.String() != "alpha" {
		t.Errorf("Cat output = %q, want %q", buf.String(), "alpha")
	}
}

func strPtr(s string) *string { return &s }
