// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	// ErrInvalidKey is returned if a boot key can not be parsed.
	ErrInvalidKey = errors.New("invalid boot key")

	// ErrInvalidFilter is returned if a filter token is not a valid regular
	// expression.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidDeclaration is returned if a suite declaration fails
	// validation.
	ErrInvalidDeclaration = errors.New("invalid suite declaration")
)

// ConflictError is returned if an identity is registered twice with
// different configurations.
type ConflictError struct {
	Kind     string
	Key      string
	Existing []string
	New      []string
}

// Error implements the [error] interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("non-matching %s with same key %s", e.Kind, e.Key)
}

// Is implements the [errors.Is] interface.
func (*ConflictError) Is(other error) bool {
	_, ok := other.(*ConflictError)
	return ok
}

// Diff returns a unified diff of both configurations.
func (e *ConflictError) Diff() string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(e.Existing),
		B:        lines(e.New),
		FromFile: "registered",
		ToFile:   "new",
		Context:  1,
	})
	if err != nil {
		return strings.Join(e.New, "\n")
	}

	return diff
}

func lines(fields []string) []string {
	out := make([]string, len(fields))
	for idx, field := range fields {
		out[idx] = field + "\n"
	}

	return out
}

// UnresolvedReferenceError is returned if a boot references a kernel build
// that is not registered.
type UnresolvedReferenceError struct {
	Boot   string
	Kernel string
}

// Error implements the [error] interface.
func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("boot %s references unknown kernel %s", e.Boot, e.Kernel)
}

// Is implements the [errors.Is] interface.
func (*UnresolvedReferenceError) Is(other error) bool {
	_, ok := other.(*UnresolvedReferenceError)
	return ok
}
