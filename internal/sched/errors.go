// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sched

import (
	"errors"
	"fmt"
)

// ErrJobFailed is returned by jobs that signal failure without further
// details.
var ErrJobFailed = errors.New("job failed")

// PanicError is the result of a job that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the [error] interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

// Is implements the [errors.Is] interface.
func (*PanicError) Is(other error) bool {
	_, ok := other.(*PanicError)
	return ok
}
