// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archout is the user-facing output multiplexer every
// sub-command writes through: it respects --quiet and --dry-run,
// mirrors everything to an optional --log-file sink with ANSI escapes
// stripped, and exposes a raw passthrough for payloads like cat's
// file contents that must never be held back by --quiet.
package archout

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Context is the shared output handle passed through a command run.
type Context struct {
	JSON   bool
	Quiet  bool
	DryRun bool

	Stdout io.Writer
	Stderr io.Writer

	logMu   sync.Mutex
	log     io.WriteCloser
}

// New opens logFile (if non-empty) for appending and returns a
// Context writing to os.Stdout/os.Stderr.
func New(json, quiet, dryRun bool, logFile string) (*Context, error) {
	c := &Context{
		JSON:   json,
		Quiet:  quiet,
		DryRun: dryRun,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", logFile, err)
		}
		c.log = f
	}

	return c, nil
}

// Close releases the log file, if one is open.
func (c *Context) Close() error {
	if c.log == nil {
		return nil
	}
	return c.log.Close()
}

// Println prints line to stdout unless Quiet is set, and always
// mirrors it (ANSI-stripped) to the log file.
func (c *Context) Println(line string) {
	if !c.Quiet {
		fmt.Fprintln(c.Stdout, line)
	}
	c.writeLog(line)
}

// Eprintln always prints line to stderr, regardless of Quiet, and
// mirrors it to the log file prefixed with "ERROR:".
func (c *Context) Eprintln(line string) {
	fmt.Fprintln(c.Stderr, line)
	c.writeLog("ERROR: " + line)
}

// Dry prints line prefixed with "[dry-run] " unless Quiet is set, and
// always mirrors it to the log file. Callers are expected to check
// DryRun themselves before calling Dry; this only controls formatting.
func (c *Context) Dry(line string) {
	formatted := "[dry-run] " + line
	if !c.Quiet {
		fmt.Fprintln(c.Stdout, formatted)
	}
	c.writeLog(formatted)
}

// Raw writes s to stdout verbatim, ignoring Quiet — used for JSON
// output and for cat's streamed file contents, neither of which is
// a human status line.
func (c *Context) Raw(s string) {
	fmt.Fprint(c.Stdout, s)
}

func (c *Context) writeLog(line string) {
	if c.log == nil {
		return
	}
	c.logMu.Lock()
	defer c.logMu.Unlock()
	fmt.Fprintln(c.log, stripANSI(line))
}

// stripANSI removes CSI-style escape sequences ("\x1b...m") so the
// log file mirror stays plain text even when the terminal channel is
// colorized.
func stripANSI(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	inEscape := false
	for _, r := range s {
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		if r == '\x1b' {
			inEscape = true
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
