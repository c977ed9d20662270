// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/archivum-cli/archivum/cmd/archivum/cli"
	"github.com/archivum-cli/archivum/lib/archerr"
	"github.com/archivum-cli/archivum/lib/archverify"
)

type verifyParams struct {
	cli.GlobalFlags

	ContinueOnError bool `flag:"continue-on-error,c" desc:"keep checking after a mismatch or missing part instead of stopping at the first one"`
}

func verifyCommand() *cli.Command {
	var params verifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "recompute content hashes and confirm the index seal",
		Usage:   "archivum verify [flags] <index-path>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("verify", &params) },
		Run: func(args []string) error {
			ctx, err := params.NewContext()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if len(args) != 1 {
				return fail(ctx, archerr.NewUsageError("verify requires exactly one argument: <index-path>"))
			}
			indexPath := args[0]

			log := diagLogger("verify")
			log.Debug("recomputing hashes", "archive", archiveDirOf(indexPath), "continue_on_error", params.ContinueOnError)
			report, verifyErr := archverify.Verify(archiveDirOf(indexPath), archverify.Options{ContinueOnError: params.ContinueOnError})
			if report == nil {
				log.Debug("verify aborted before a report was built", "error", verifyErr)
				return fail(ctx, verifyErr)
			}
			log.Debug("verify finished", "files_checked", report.FilesChecked, "ok", report.OK())

			if params.OutputJSON {
				if jsonErr := emitJSON(ctx, report); jsonErr != nil {
					return jsonErr
				}
			} else {
				ctx.Println(fmt.Sprintf("seal: %s", okOrFail(report.SealOK)))
				ctx.Println(fmt.Sprintf("files checked: %d", report.FilesChecked))
				for _, m := range report.Mismatches {
					ctx.Eprintln(fmt.Sprintf("checksum mismatch: %s (expected %s, got %s)", m.Path, m.Expected, m.Got))
				}
				for _, p := range report.MissingParts {
					ctx.Eprintln(fmt.Sprintf("missing part: %d", p))
				}
				ctx.Println(fmt.Sprintf("result: %s", okOrFail(report.OK())))
			}

			if !report.OK() {
				if verifyErr == nil {
					verifyErr = archerr.NewChecksumMismatch("", "", "")
				}
				return mapExit(verifyErr)
			}
			return nil
		},
	}
}

func okOrFail(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAILED"
}
