// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// EnvArgs returns bootci arguments from the environment.
func EnvArgs() []string {
	return strings.Fields(os.Getenv("BOOTCI_ARGS"))
}

// LocalConfigArgs returns bootci arguments from a local config file.
//
// The file's format is one argument per line. Environment variables may be used
// and are expanded with [os.ExpandEnv].
func LocalConfigArgs(fsys fs.FS, file string) ([]string, error) {
	conf, err := fs.ReadFile(fsys, file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read file: %w", err)
	}

	args := []string{}

	for line := range strings.SplitSeq(os.ExpandEnv(string(conf)), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			args = append(args, line)
		}
	}

	return args, nil
}

// MergedArgs inserts the arguments from the environment and the local config
// file right after the sub command, so arguments given on the command line
// take precedence.
func MergedArgs(args []string, fsys fs.FS, file string) ([]string, error) {
	localArgs, err := LocalConfigArgs(fsys, file)
	if err != nil {
		return nil, &ParseArgsError{msg: "local config", err: err}
	}

	extra := append(localArgs, EnvArgs()...)
	if len(extra) == 0 {
		return args, nil
	}

	merged := make([]string, 0, len(args)+len(extra))

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		merged = append(merged, args[0])
		args = args[1:]
	}

	merged = append(merged, extra...)

	return append(merged, args...), nil
}
