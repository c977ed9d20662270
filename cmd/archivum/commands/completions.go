// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archerr"
)

type completionsParams struct {
	cli.GlobalFlags
}

func completionsCommand() *cli.Command {
	var params completionsParams

	return &cli.Command{
		Name:    "completions",
		Summary: "print a shell completion script",
		Usage:   "archivum completions <bash|zsh|fish|powershell|elvish>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("completions", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 1 {
				return fail(ctx, archerr.NewUsageError("completions requires exactly one argument: bash|zsh|fish|powershell|elvish"))
			}

			names := subcommandNames(Root())
			var script string
			switch args[0] {
			case "bash":
				script = bashCompletion(names)
			case "zsh":
				script = zshCompletion(names)
			case "fish":
				script = fishCompletion(names)
			case "powershell":
				script = powershellCompletion(names)
			case "elvish":
				script = elvishCompletion(names)
			default:
				return fail(ctx, archerr.NewUsageError(fmt.Sprintf("unsupported shell %q: want bash, zsh, fish, powershell, or elvish", args[0])))
			}

			ctx.Raw(script)
			return nil
		},
	}
}

func subcommandNames(root *cli.Command) []string {
	// Root() builds every top-level command fresh, so walking its
	// Subcommands field after construction reflects the real command
	// set without hard-coding a second list here.
	names := make([]string, 0, len(root.Subcommands))
	for _, sub := range root.Subcommands {
		names = append(names, sub.Name)
	}
	return names
}

func bashCompletion(names []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# bash completion for archivum\n")
	fmt.Fprintf(&b, "_archivum_completions() {\n")
	fmt.Fprintf(&b, "  local cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	fmt.Fprintf(&b, "  COMPREPLY=( $(compgen -W \"%s\" -- \"$cur\") )\n", strings.Join(names, " "))
	fmt.Fprintf(&b, "}\n")
	fmt.Fprintf(&b, "complete -F _archivum_completions archivum\n")
	return b.String()
}

func zshCompletion(names []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#compdef archivum\n")
	fmt.Fprintf(&b, "_archivum() {\n")
	fmt.Fprintf(&b, "  local -a subcommands\n")
	fmt.Fprintf(&b, "  subcommands=(%s)\n", strings.Join(names, " "))
	fmt.Fprintf(&b, "  _describe 'command' subcommands\n")
	fmt.Fprintf(&b, "}\n")
	fmt.Fprintf(&b, "_archivum\n")
	return b.String()
}

func fishCompletion(names []string) string {
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "complete -c archivum -n \"__fish_use_subcommand\" -a %s\n", name)
	}
	return b.String()
}

func powershellCompletion(names []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Register-ArgumentCompleter -Native -CommandName archivum -ScriptBlock {\n")
	fmt.Fprintf(&b, "  param($wordToComplete)\n")
	fmt.Fprintf(&b, "  @(%s) | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object { $_ }\n", quotedList(names))
	fmt.Fprintf(&b, "}\n")
	return b.String()
}

func elvishCompletion(names []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "set edit:completion:arg-completer[archivum] = {|@args|\n")
	fmt.Fprintf(&b, "  put %s\n", strings.Join(names, " "))
	fmt.Fprintf(&b, "}\n")
	return b.String()
}

func quotedList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("'%s'", n)
	}
	return strings.Join(quoted, ", ")
}
