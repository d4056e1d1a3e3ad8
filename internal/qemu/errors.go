// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import "errors"

var (
	// ErrArgumentCollision is returned if two [Argument]s are considered equal.
	ErrArgumentCollision = errors.New("colliding args")

	// ErrNotQemuProfile is returned for script names without "qemu-" prefix.
	ErrNotQemuProfile = errors.New("not a qemu profile")

	// ErrUnknownMachine is returned for unsupported machine names.
	ErrUnknownMachine = errors.New("unknown machine")

	// ErrUnknownModifier is returned for unsupported profile modifiers.
	ErrUnknownModifier = errors.New("unknown profile modifier")

	// ErrNoVersion is returned if the emulator did not report its version.
	ErrNoVersion = errors.New("no qemu version found")
)

// ArgumentError indicates an issue with an input argument.
type ArgumentError struct {
	msg string
}

// Error implements the [error] interface.
func (e *ArgumentError) Error() string {
	return "argument error: " + e.msg
}

// Is implements the [errors.Is] interface.
func (e *ArgumentError) Is(other error) bool {
	_, ok := other.(*ArgumentError)
	return ok
}
