// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archindex"
	"github.com/archivum-cli/archivum/lib/archscan"
)

type searchParams struct {
	cli.GlobalFlags
}

func searchCommand() *cli.Command {
	var params searchParams

	return &cli.Command{
		Name:    "search",
		Summary: "find entries by path pattern",
		Usage:   "archivum search <index-path> <pattern>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("search", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 2 {
				return fail(ctx, archerr.NewUsageError("search requires exactly two arguments: <index-path> <pattern>"))
			}
			indexPath, pattern := args[0], args[1]

			idx, err := archindex.Read(indexPath)
			if err != nil {
				return fail(ctx, err)
			}

			matches := matchEntries(idx.Entries, pattern)

			if params.OutputJSON {
				return emitJSON(ctx, matches)
			}
			for _, e := range matches {
				ctx.Println(e.Path)
			}
			return nil
		},
	}
}

// isGlobPattern reports whether pattern uses any glob metacharacter,
// per the rule that a bare pattern is matched as a case-insensitive
// substring instead.
func isGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func matchEntries(entries []archindex.Entry, pattern string) []archindex.Entry {
	var matches []archindex.Entry
	if isGlobPattern(pattern) {
		for _, e := range entries {
			// A glob matches either the full path or its last segment.
			base := e.Path[strings.LastIndex(e.Path, "/")+1:]
			if archscan.MatchGlob(pattern, e.Path) || archscan.MatchGlob(pattern, base) {
				matches = append(matches, e)
			}
		}
		return matches
	}

	lowerPattern := strings.ToLower(pattern)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Path), lowerPattern) {
			matches = append(matches, e)
		}
	}
	return matches
}
