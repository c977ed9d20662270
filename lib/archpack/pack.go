// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archpack implements the two-pass part assignment and tar
// streaming that turn a scanned entry sequence into on-disk archive
// parts: pass 1 (this file) decides, in scan order, which part index
// each entry belongs to; pass 2 ([WriteParts]) streams the bytes.
package archpack

import "github.com/archivum-cli/archivum/lib/archscan"

// Options bounds each part's size and entry count. SplitBytes == 0
// means no byte cap (directories/symlinks never counted, files rolled
// only on the file-count cap). SplitFiles == 0 means unbounded.
type Options struct {
	SplitBytes uint64
	SplitFiles uint64
}

// Planned pairs a scanned entry with the part index it was assigned
// to.
type Planned struct {
	Entry   archscan.Entry
	TarPart uint32
}

// Assign performs the single-pass part assignment described in the
// packer's algorithm: directories and symlinks are assigned a real
// part and count toward the file-count cap exactly like files, but
// never contribute bytes toward the size cap. A single file larger
// than the byte cap is legal and occupies its own part.
func Assign(entries []archscan.Entry, opts Options) []Planned {
	planned := make([]Planned, len(entries))

	var partIndex uint32
	var curBytes, curFiles uint64

	for i, entry := range entries {
		roll := false
		if entry.Type == archscan.File && opts.SplitBytes > 0 && curBytes+entry.Size > opts.SplitBytes && curFiles > 0 {
			roll = true
		} else if opts.SplitFiles > 0 && curFiles >= opts.SplitFiles {
			roll = true
		}

		if roll {
			partIndex++
			curBytes, curFiles = 0, 0
		}

		planned[i] = Planned{Entry: entry, TarPart: partIndex}

		if entry.Type == archscan.File {
			curBytes += entry.Size
		}
		curFiles++
	}

	return planned
}
