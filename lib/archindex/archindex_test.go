// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archindex

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/archivum-cli/archivum/lib/archerr"
)

func strPtr(s string) *string { return &s }

func TestBuild_SortsByTarPartThenPath(t *testing.T) {
	entries := []Entry{
		{Path: "z.txt", EntryType: TypeFile, TarPart: 0, Size: 1, SHA256: strPtr("a")},
		{Path: "a.txt", EntryType: TypeFile, TarPart: 0, Size: 1, SHA256: strPtr("b")},
		{Path: "b.txt", EntryType: TypeFile, TarPart: 1, Size: 1, SHA256: strPtr("c")},
	}

	idx := Build(entries, "none", 0, "", nil, time.Unix(0, 0))

	want := []string{"a.txt", "z.txt", "b.txt"}
	for i, entry := range idx.Entries {
		if entry.Path != want[i] {
			t.Errorf("Entries[%d].Path = %q, want %q", i, entry.Path, want[i])
		}
	}
	if idx.TotalFiles != 3 || idx.TotalSize != 3 || idx.TotalParts != 2 {
		t.Errorf("unexpected header: %+v", idx.Header)
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	entries := []Entry{
		{Path: "a.txt", EntryType: TypeFile, TarPart: 0, Size: 6, SHA256: strPtr("5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03")},
		{Path: "b", EntryType: TypeDirectory, TarPart: 0},
		{Path: "b/c.txt", EntryType: TypeFile, TarPart: 0, Size: 6, SHA256: strPtr("09f8a6638ea1df4fc56ee1cab748469d01763a3a8a3d3f3f1d3c70f1e6e4b3b7")},
	}
	idx := Build(entries, "none", 0, "", []string{"data"}, time.Unix(1700000000, 0))

	if err := Write(dir, idx); err != nil {
		t.Fatal(err)
	}

	got, err := Read(filepath.Join(dir, IndexFileName))
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalFiles != 2 || got.TotalDirs != 1 || got.TotalSize != 12 {
		t.Errorf("round-tripped header mismatch: %+v", got.Header)
	}
}

func TestValidate_RejectsUnknownVersion(t *testing.T) {
	idx := Index{Header: Header{Version: 99, PartBases: []string{"data"}}}
	err := Validate(idx)
	if !archerr.Is(err, archerr.SchemaError) {
		t.Errorf("expected SchemaError, got %v", err)
	}
}

func TestValidate_RejectsTraversalPath(t *testing.T) {
	idx := Index{
		Header: Header{Version: CurrentVersion, PartBases: []string{"data"}, TotalFiles: 1, TotalSize: 1, TotalParts: 1},
		Entries: []Entry{
			{Path: "../evil", EntryType: TypeFile, Size: 1, SHA256: strPtr("a")},
		},
	}
	err := Validate(idx)
	if !archerr.Is(err, archerr.InvariantViolation) {
		t.Errorf("expected InvariantViolation, got %v", err)
	}
}

func TestValidate_RejectsDanglingDedup(t *testing.T) {
	idx := Index{
		Header: Header{Version: CurrentVersion, PartBases: []string{"data"}, TotalFiles: 1, TotalParts: 1},
		Entries: []Entry{
			{Path: "y.txt", EntryType: TypeFile, Size: 10, DedupOf: strPtr("x.txt")},
		},
	}
	err := Validate(idx)
	if !archerr.Is(err, archerr.InvariantViolation) {
		t.Errorf("expected InvariantViolation for dangling dedup_of, got %v", err)
	}
}

func TestPartPath_UsesThreeDigitZeroPadding(t *testing.T) {
	got := PartPath("/archive", "data", 7, "zstd")
	want := filepath.Join("/archive", "data.part007.tar.zst")
	if got != want {
		t.Errorf("PartPath = %q, want %q", got, want)
	}
}
