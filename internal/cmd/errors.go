// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
)

var (
	// ErrReadBuildInfo is returned if the binary carries no build info.
	ErrReadBuildInfo = errors.New("failed to read build info")

	// ErrRunFailed is returned if a suite run finished unsuccessfully.
	ErrRunFailed = errors.New("suite run failed")

	// ErrNotRegularFile is returned if a file path flag points to a
	// directory or device.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrNotDirectory is returned if a directory flag points to a file.
	ErrNotDirectory = errors.New("not a directory")
)

// ParseArgsError wraps errors that occur during argument parsing.
type ParseArgsError struct {
	err error
	msg string
}

func (e *ParseArgsError) Error() string {
	if e.err == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *ParseArgsError) Is(other error) bool {
	_, ok := other.(*ParseArgsError)
	return ok
}

func (e *ParseArgsError) Unwrap() error {
	return e.err
}
