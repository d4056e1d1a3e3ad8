// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter selects items by name.
//
// Tokens prefixed with "!" exclude any name containing the remainder. All
// other tokens are regular expressions. If there is at least one of them,
// a name must match one to be selected. Exclusions take precedence. A nil
// Filter selects everything.
type Filter struct {
	tokens  []string
	exclude []string
	include []*regexp.Regexp
}

// NewFilter compiles the tokens. It returns nil for an empty token list.
func NewFilter(tokens []string) (*Filter, error) {
	if len(tokens) == 0 {
		return nil, nil //nolint:nilnil
	}

	filter := &Filter{tokens: tokens}

	for _, token := range tokens {
		if excluded, found := strings.CutPrefix(token, "!"); found {
			filter.exclude = append(filter.exclude, excluded)
			continue
		}

		re, err := regexp.Compile(token)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}

		filter.include = append(filter.include, re)
	}

	return filter, nil
}

// Match returns true if the name is selected.
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}

	for _, excluded := range f.exclude {
		if strings.Contains(name, excluded) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}

	for _, re := range f.include {
		if re.MatchString(name) {
			return true
		}
	}

	return false
}

// String implements [fmt.Stringer].
func (f *Filter) String() string {
	if f == nil {
		return ""
	}

	return strings.Join(f.tokens, " ")
}
