// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// WarningFilters select console log lines worth reporting.
type WarningFilters struct {
	// Lines containing any of these are never reported.
	Suppressions []string `yaml:"suppressions"`
	// Lines containing any of these are reported.
	Strings []string `yaml:"strings"`
	// Lines matching any of these regular expressions are reported.
	Patterns []string `yaml:"patterns"`
}

// LoadWarningFilters reads [WarningFilters] from a YAML file. A missing file
// results in empty filters.
func LoadWarningFilters(path string) (*WarningFilters, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &WarningFilters{}, nil
		}

		return nil, fmt.Errorf("read warning filters: %w", err)
	}

	var filters WarningFilters

	err = yaml.Unmarshal(content, &filters)
	if err != nil {
		return nil, fmt.Errorf("parse warning filters: %w", err)
	}

	return &filters, nil
}

// Scan copies all lines of src that match the filters to dst. It returns
// true if any line matched.
func (f *WarningFilters) Scan(dst io.Writer, src io.Reader) (bool, error) {
	patterns, err := compile(f.Patterns)
	if err != nil {
		return false, err
	}

	found := false
	scanner := bufio.NewScanner(src)

	for scanner.Scan() {
		line := scanner.Text()
		if !f.reported(line, patterns) {
			continue
		}

		found = true

		_, err := fmt.Fprintln(dst, line)
		if err != nil {
			return found, fmt.Errorf("write: %w", err)
		}
	}

	err = scanner.Err()
	if err != nil {
		return found, fmt.Errorf("scan: %w", err)
	}

	return found, nil
}

func (f *WarningFilters) reported(line string, patterns []*regexp.Regexp) bool {
	for _, suppression := range f.Suppressions {
		if strings.Contains(line, suppression) {
			return false
		}
	}

	for _, str := range f.Strings {
		if strings.Contains(line, str) {
			return true
		}
	}

	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}

	return false
}
