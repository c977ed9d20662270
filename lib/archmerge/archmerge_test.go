// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archmerge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/archivum-cli/archivum/lib/archcodec"
	"github.com/archivum-cli/archivum/lib/archhash"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archpack"
	"github.com/archivum-cli/archivum/lib/archrestore"
	"github.com/archivum-cli/archivum/lib/archscan"
)

func buildSimpleArchive(t *testing.T, files map[string]string, archiveDir string) {
	t.Helper()

	srcDir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(srcDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

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
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := archpack.WriteParts(archiveDir, "data", planned, nil, codec, archcodec.None); err != nil {
		t.Fatal(err)
	}

	var entries []archindex.Entry
	for _, p := range planned {
		e := archindex.Entry{Path: p.Entry.Path, Size: p.Entry.Size, TarPart: p.TarPart}
		if p.Entry.Type == archscan.File {
			e.EntryType = archindex.TypeFile
			sum := hashByPath[p.Entry.Path]
			e.SHA256 = &sum
		} else if p.Entry.Type == archscan.Directory {
			e.EntryType = archindex.TypeDirectory
		}
		entries = append(entries, e)
	}

	idx := archindex.Build(entries, "none", 0, "", nil, time.Unix(0, 0))
	if err := archindex.Write(archiveDir, idx); err != nil {
		t.Fatal(err)
	}
}

func TestMerge_LastWinsOnCollisionAndPreservesBoth(t *testing.T) {
	archiveA := t.TempDir()
	buildSimpleArchive(t, map[string]string{"shared.txt": "from-a", "only-a.txt": "a-only"}, archiveA)

	archiveB := t.TempDir()
	buildSimpleArchive(t, map[string]string{"shared.txt": "from-b", "only-b.txt": "b-only"}, archiveB)

	outputDir := t.TempDir()
	idx, err := Merge(
		[]string{filepath.Join(archiveA, archindex.IndexFileName), filepath.Join(archiveB, archindex.IndexFileName)},
		outputDir,
		Options{Compression: archcodec.None},
		time.Unix(200, 0),
	)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if idx.TotalFiles != 3 {
		t.Errorf("TotalFiles = %d, want 3", idx.TotalFiles)
	}

	destDir := t.TempDir()
	if _, err := archrestore.Restore(outputDir, destDir, archrestore.Options{}); err != nil {
		t.Fatalf("Restore of merged archive: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "shared.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "from-b" {
		t.Errorf("shared.txt content = %q, want %q (last-wins)", got, "from-b")
	}

	for _, name := range []string{"only-a.txt", "only-b.txt"} {
		if _, err := os.Stat(filepath.Join(destDir, name)); err != nil {
			t.Errorf("expected %s to survive the merge: %v", name, err)
		}
	}
}

func TestMerge_RequiresAtLeastTwoArchives(t *testing.T) {
	_, err := Merge([]string{"only-one"}, t.TempDir(), Options{}, time.Unix(0, 0))
	if err == nil {
		t.Fatal("expected an error for fewer than two archives")
	}
}
