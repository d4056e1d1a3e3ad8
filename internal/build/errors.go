// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package build

import (
	"errors"
	"fmt"
)

// ErrConfigNotFound is returned if a configuration fragment does not exist.
var ErrConfigNotFound = errors.New("config fragment not found")

// Error is a failed build.
type Error struct {
	// Name of the build.
	Name string
	// Path to the build log.
	Log string
	Err error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	return fmt.Sprintf("build %s: %v", e.Name, e.Err)
}

// Is implements the [errors.Is] interface.
func (*Error) Is(other error) bool {
	_, ok := other.(*Error)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *Error) Unwrap() error {
	return e.Err
}
