// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the archivum binary.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in cmd/archivum/commands
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// [BindFlags] and [FlagsFromParams] register flags on a [pflag.FlagSet]
// from a params struct's `flag`/`desc`/`default` field tags, so each
// subcommand package can declare its flags as a plain struct instead of
// hand-writing repetitive pflag calls. [JSONOutput] is an embeddable
// struct that adds the --json flag shared by every subcommand;
// [MarshalIndent] renders a result for commands to write through their
// output context. [ExitError] lets a Run function request a specific
// process exit code instead of the default failure code.
package cli
