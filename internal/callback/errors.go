// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package callback

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSyntax is returned for callback strings that can not be
	// parsed.
	ErrInvalidSyntax = errors.New("invalid callback syntax")

	// ErrArgument is returned if an argument is missing or not allowed.
	ErrArgument = errors.New("invalid callback argument")

	// ErrFailed is returned by callbacks that ran but detected a failure.
	ErrFailed = errors.New("callback failed")
)

// UnknownError is returned for callback names that are not registered.
type UnknownError struct {
	Name string
}

// Error implements the [error] interface.
func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown callback: %s", e.Name)
}

// Is implements the [errors.Is] interface.
func (*UnknownError) Is(other error) bool {
	_, ok := other.(*UnknownError)
	return ok
}
