// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"testing"

	"github.com/archivum-cli/archivum/lib/archindex"
)

func TestArchiveDirOf(t *testing.T) {
	cases := []struct {
		indexPath string
		want      string
	}{
		{"/archives/2026-08-06/index.arc.json", "/archives/2026-08-06"},
		{"index.arc.json", "."},
	}
	for _, c := range cases {
		if got := archiveDirOf(c.indexPath); got != c.want {
			t.Errorf("archiveDirOf(%q) = %q, want %q", c.indexPath, got, c.want)
		}
	}
}

func TestMergeArgs(t *testing.T) {
	t.Run("output flag treats every positional as an index path", func(t *testing.T) {
		outputDir, indexPaths, err := mergeArgs("/out", []string{"a.json", "b.json"})
		if err != nil {
			t.Fatalf("mergeArgs: %v", err)
		}
		if outputDir != "/out" {
			t.Errorf("outputDir = %q, want /out", outputDir)
		}
		if len(indexPaths) != 2 || indexPaths[0] != "a.json" || indexPaths[1] != "b.json" {
			t.Errorf("indexPaths = %v, want [a.json b.json]", indexPaths)
		}
	})

	t.Run("output flag requires at least two index paths", func(t *testing.T) {
		if _, _, err := mergeArgs("/out", []string{"a.json"}); err == nil {
			t.Error("expected a usage error with only one index path")
		}
	})

	t.Run("no output flag takes the first positional as the output dir", func(t *testing.T) {
		outputDir, indexPaths, err := mergeArgs("", []string{"/out", "a.json", "b.json"})
		if err != nil {
			t.Fatalf("mergeArgs: %v", err)
		}
		if outputDir != "/out" {
			t.Errorf("outputDir = %q, want /out", outputDir)
		}
		if len(indexPaths) != 2 || indexPaths[0] != "a.json" || indexPaths[1] != "b.json" {
			t.Errorf("indexPaths = %v, want [a.json b.json]", indexPaths)
		}
	})

	t.Run("no output flag requires output dir plus two index paths", func(t *testing.T) {
		if _, _, err := mergeArgs("", []string{"/out", "a.json"}); err == nil {
			t.Error("expected a usage error with fewer than three positionals")
		}
	})
}

func TestIsGlobPattern(t *testing.T) {
	cases := map[string]bool{
		"*.txt":       true,
		"file?.log":   true,
		"[ab]c":       true,
		"plain-text":  false,
		"README.md":   false,
	}
	for pattern, want := range cases {
		if got := isGlobPattern(pattern); got != want {
			t.Errorf("isGlobPattern(%q) = %v, want %v", pattern, got, want)
		}
	}
}

func TestMatchEntries_SubstringFallsBackCaseInsensitive(t *testing.T) {
	entries := []archindex.Entry{
		{Path: "src/Main.go"},
		{Path: "src/util.go"},
		{Path: "README.md"},
	}
	matches := matchEntries(entries, "main")
	if len(matches) != 1 || matches[0].Path != "src/Main.go" {
		t.Errorf("matchEntries(%q) = %v, want [src/Main.go]", "main", matches)
	}
}

func TestMatchEntries_Glob(t *testing.T) {
	entries := []archindex.Entry{
		{Path: "src/main.go"},
		{Path: "src/util.go"},
		{Path: "README.md"},
	}
	matches := matchEntries(entries, "*.go")
	if len(matches) != 2 {
		t.Errorf("matchEntries(%q) returned %d matches, want 2", "*.go", len(matches))
	}
}

func TestOkOrFail(t *testing.T) {
	if got := okOrFail(true); got != "OK" {
		t.Errorf("okOrFail(true) = %q, want OK", got)
	}
	if got := okOrFail(false); got != "FAILED" {
		t.Errorf("okOrFail(false) = %q, want FAILED", got)
	}
}

func TestSubcommandNames_IncludesEveryRegisteredVerb(t *testing.T) {
	names := subcommandNames(Root())
	want := []string{"create", "list", "search", "info", "stats", "diff",
		"restore", "extract", "cat", "verify", "update", "merge", "prune",
		"repair", "completions", "setup", "config", "version"}
	if len(names) != len(want) {
		t.Fatalf("subcommandNames returned %d names, want %d: %v", len(names), len(want), names)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, w := range want {
		if !seen[w] {
			t.Errorf("subcommandNames missing %q", w)
		}
	}
}
