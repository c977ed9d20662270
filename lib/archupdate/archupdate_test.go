// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archupdate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archrestore"
	"github.com/archivum-cli/archivum/lib/archscan"
	"github.com/archivum-cli/archivum/lib/archpack"
	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archhash"
)

func buildInitialArchive(t *testing.T, srcDir, archiveDir string) {
	t.Helper()

	scanned, err := archscan.Scan(srcDir, archscan.Options{})
	if err != nil {
		t.Fatal(err)
	}
	planned := archpack.Assign(scanned, archpack.Options{})

	var targets []archhash.Target
	for _, e := range scanned {
		if e.Type == archscan.File {
			targets = append(targets, archhash.Target{Path: e.Path, AbsPath: e.AbsPath})
		}
	}
	results, err := archhash.HashAll(targets, 2)
	if err != nil {
		t.Fatal(err)
	}
	hashByPath := make(map[string]string, len(targets))
	for i, tg := range targets {
		hashByPath[tg.Path] = results[i].SHA256
	}

	codec, err := archcodec.New(archcodec.None, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := archpack.WriteParts(archiveDir, "data", planned, nil, codec, archcodec.None); err != nil {
		t.Fatal(err)
	}

	var entries []archindex.Entry
	for _, p := range planned {
		e := archindex.Entry{Path: p.Entry.Path, Size: p.Entry.Size, TarPart: p.TarPart}
		switch p.Entry.Type {
		case archscan.Directory:
			e.EntryType = archindex.TypeDirectory
		case archscan.Symlink:
			e.EntryType = archindex.TypeSymlink
			target := p.Entry.SymlinkTarget
			e.SymlinkTarget = &target
		default:
			e.EntryType = archindex.TypeFile
			sum := hashByPath[p.Entry.Path]
			e.SHA256 = &sum
		}
		entries = append(entries, e)
	}

	idx := archindex.Build(entries, "none", 0, "", nil, time.Unix(0, 0))
	if err := archindex.Write(archiveDir, idx); err != nil {
		t.Fatal(err)
	}
}

func TestUpdate_CarriesUnchangedAndPacksChanged(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "stays.txt"), []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "changes.txt"), []byte("before"), 0o644); err != nil {
		t.Fatal(err)
	}

	archiveDir := t.TempDir()
	buildInitialArchive(t, srcDir, archiveDir)

	if err := os.WriteFile(filepath.Join(srcDir, "changes.txt"), []byte("after-much-longer"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "added.txt"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}

	outputDir := t.TempDir()
	oldIndexPath := filepath.Join(archiveDir, archindex.IndexFileName)
	idx, err := Update(oldIndexPath, srcDir, outputDir, Options{Checksum: true}, time.Unix(100, 0))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	var carriedCount, freshCount int
	for _, e := range idx.Entries {
		if e.TarBase != nil && *e.TarBase == 1 {
			carriedCount++
		} else {
			freshCount++
		}
	}
	if carriedCount != 1 {
		t.Errorf("carriedCount = %d, want 1 (stays.txt)", carriedCount)
	}
	if freshCount != 2 {
		t.Errorf("freshCount = %d, want 2 (changes.txt, added.txt)", freshCount)
	}

	destDir := t.TempDir()
	report, err := archrestore.Restore(outputDir, destDir, archrestore.Options{})
	if err != nil {
		t.Fatalf("Restore of updated archive: %v", err)
	}
	if report.FilesWritten != 3 {
		t.Errorf("FilesWritten = %d, want 3", report.FilesWritten)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "stays.txt"))
	if err != nil {
		t.Fatalf("reading carried-forward file: %v", err)
	}
	if string(got) != "same" {
		t.Errorf("carried-forward content = %q, want %q", got, "same")
	}

	got, err = os.ReadFile(filepath.Join(destDir, "changes.txt"))
	if err != nil {
		t.Fatalf("reading freshly packed file: %v", err)
	}
	if string(got) != "after-much-longer" {
		t.Errorf("freshly packed content = %q, want %q", got, "after-much-longer")
	}
}
