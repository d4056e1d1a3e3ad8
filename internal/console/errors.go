// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEOF is returned if the output stream ended before a pattern
	// matched.
	ErrEOF = errors.New("console output ended")

	// ErrNoPrompt is returned if a prompt is expected but none is set.
	ErrNoPrompt = errors.New("no prompt set")

	// ErrPromptStackEmpty is returned if the last prompt would be popped.
	ErrPromptStackEmpty = errors.New("prompt stack would be empty")

	// ErrCheckFailed is returned by helpers that detected a failure in the
	// output of a command.
	ErrCheckFailed = errors.New("check failed")
)

// TimeoutError is returned if none of the patterns matched in time.
type TimeoutError struct {
	Patterns []string
	Timeout  time.Duration
	// Session is set if the session deadline expired.
	Session bool
	// Tail of the unmatched output.
	Tail string
}

// Error implements the [error] interface.
func (e *TimeoutError) Error() string {
	if e.Session {
		return fmt.Sprintf("session deadline exceeded waiting for %q", e.Patterns)
	}

	return fmt.Sprintf("timeout after %s waiting for %q", e.Timeout, e.Patterns)
}

// Is implements the [errors.Is] interface.
func (*TimeoutError) Is(other error) bool {
	_, ok := other.(*TimeoutError)
	return ok
}

// FatalSignatureError is returned if a bug pattern matched. The process has
// been terminated when it is returned.
type FatalSignatureError struct {
	// Matched text.
	Match string
	// Error that occurred while terminating the process, if any.
	Err error
}

// Error implements the [error] interface.
func (e *FatalSignatureError) Error() string {
	msg := fmt.Sprintf("saw oops/warning etc. while expecting: %q", e.Match)
	if e.Err != nil {
		msg += fmt.Sprintf(" (terminate: %v)", e.Err)
	}

	return msg
}

// Is implements the [errors.Is] interface.
func (*FatalSignatureError) Is(other error) bool {
	_, ok := other.(*FatalSignatureError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *FatalSignatureError) Unwrap() error {
	return e.Err
}
