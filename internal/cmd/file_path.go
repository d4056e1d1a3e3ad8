// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"os"

	"github.com/aibor/bootci/internal/sys"
)

// FilePath is a flag value that is made absolute on parsing.
type FilePath string

func (f *FilePath) String() string {
	return string(*f)
}

func (f *FilePath) Set(s string) error {
	path, err := sys.AbsolutePath(s)

	*f = FilePath(path)

	return err
}

func (*FilePath) Type() string {
	return "path"
}

// ValidateFilePath checks that name is a regular file.
func ValidateFilePath(name string) error {
	stat, err := os.Stat(name)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if !stat.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegularFile, name)
	}

	return nil
}

// ValidateDirPath checks that name is a directory.
func ValidateDirPath(name string) error {
	stat, err := os.Stat(name)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if !stat.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, name)
	}

	return nil
}
