// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package callback

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aibor/bootci/internal/console"
)

// Func is the implementation of a callback. The argument is empty if none
// was given.
type Func func(ctx context.Context, c *console.Console, arg string) error

// Args defines whether a callback takes an argument.
type Args int

// Argument policies.
const (
	NoArgs Args = iota
	OptionalArgs
	RequiredArgs
)

// Registry maps callback names to their implementation.
type Registry struct {
	funcs map[string]entry
}

type entry struct {
	fn   Func
	args Args
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]entry)}
}

// Register adds a callback. An existing one with the same name is replaced.
func (r *Registry) Register(name string, args Args, fn Func) {
	r.funcs[name] = entry{fn: fn, args: args}
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.funcs))
}

// Call is a parsed callback invocation.
type Call struct {
	Name   string
	Arg    string
	HasArg bool

	fn Func
}

// String implements [fmt.Stringer].
func (c Call) String() string {
	if !c.HasArg {
		return c.Name
	}

	return c.Name + "(" + c.Arg + ")"
}

// Run runs the callback on the console.
func (c Call) Run(ctx context.Context, con *console.Console) error {
	err := c.fn(ctx, con, c.Arg)
	if err != nil {
		return fmt.Errorf("callback %s: %w", c.Name, err)
	}

	return nil
}

// Parse parses a callback string of the form "name" or "name(arg)".
func (r *Registry) Parse(spec string) (Call, error) {
	call := Call{Name: spec}

	if name, rest, found := strings.Cut(spec, "("); found {
		arg, closed := strings.CutSuffix(rest, ")")
		if !closed {
			return Call{}, fmt.Errorf("%w: %s", ErrInvalidSyntax, spec)
		}

		call = Call{Name: name, Arg: arg, HasArg: true}
	}

	call.Name = strings.TrimSpace(call.Name)

	entry, exists := r.funcs[call.Name]
	if !exists {
		return Call{}, &UnknownError{Name: call.Name}
	}

	switch {
	case entry.args == NoArgs && call.Arg != "":
		return Call{}, fmt.Errorf("%w: %s takes no argument", ErrArgument, call.Name)
	case entry.args == RequiredArgs && call.Arg == "":
		return Call{}, fmt.Errorf("%w: %s requires an argument", ErrArgument, call.Name)
	}

	call.fn = entry.fn

	return call, nil
}

// ParseAll parses all callback strings. It fails on the first invalid one.
func (r *Registry) ParseAll(specs []string) ([]Call, error) {
	calls := make([]Call, 0, len(specs))

	for _, spec := range specs {
		call, err := r.Parse(spec)
		if err != nil {
			return nil, err
		}

		calls = append(calls, call)
	}

	return calls, nil
}
