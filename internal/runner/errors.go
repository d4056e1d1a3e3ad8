// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrBootScriptNotFound is returned if the boot script of a boot does
	// not exist.
	ErrBootScriptNotFound = errors.New("boot script not found")

	// ErrMissingArtifacts is returned if the kernel of a boot was not built.
	ErrMissingArtifacts = errors.New("missing build artifacts")
)

// BootError is a failed boot.
type BootError struct {
	Boot string
	// Path to the log worth looking at.
	Log string
	Err error
}

// Error implements the [error] interface.
func (e *BootError) Error() string {
	return fmt.Sprintf("boot %s: %v", e.Boot, e.Err)
}

// Is implements the [errors.Is] interface.
func (*BootError) Is(other error) bool {
	_, ok := other.(*BootError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *BootError) Unwrap() error {
	return e.Err
}

// TestError is a failed test of a boot.
type TestError struct {
	Test string
	Boot string
	Log  string
	Err  error
}

// Error implements the [error] interface.
func (e *TestError) Error() string {
	return fmt.Sprintf("test %s on %s: %v", e.Test, e.Boot, e.Err)
}

// Is implements the [errors.Is] interface.
func (*TestError) Is(other error) bool {
	_, ok := other.(*TestError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *TestError) Unwrap() error {
	return e.Err
}
