// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aibor/bootci/internal/suite"
)

const localConfigFile = ".bootci-args"

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func handleParseArgsError(err error, stderr io.Writer) int {
	fmt.Fprintf(stderr, "Error: %v\nRun 'bootci --help' for usage.\n", err)

	return -1
}

func handleRunError(err error, stderr io.Writer) int {
	// The runner already reported the failed jobs.
	if errors.Is(err, ErrRunFailed) {
		return 1
	}

	slog.Error(err.Error())

	var conflictErr *suite.ConflictError
	if errors.As(err, &conflictErr) {
		fmt.Fprint(stderr, conflictErr.Diff())
	}

	return -1
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, cfg IO) int {
	setupLogging(cfg.Stderr, false)

	args, err := MergedArgs(args, os.DirFS("."), localConfigFile)
	if err != nil {
		return handleParseArgsError(err, cfg.Stderr)
	}

	rootCmd := NewRootCmd(cfg)
	rootCmd.SetArgs(args)

	err = rootCmd.ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, &ParseArgsError{}) {
			return handleParseArgsError(err, cfg.Stderr)
		}

		return handleRunError(err, cfg.Stderr)
	}

	return 0
}
