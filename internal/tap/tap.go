// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tap parses kselftest results in Test Anything Protocol format from
// console logs.
package tap

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Result is the outcome of a single selftest.
type Result struct {
	Number      int
	Description string
	Passed      bool
	Skipped     bool
	// Diagnostic lines ("# ...") printed before the result line.
	Diagnostics []string
}

// Counts sums up results by outcome.
type Counts struct {
	Passed  int
	Failed  int
	Skipped int
}

// Total returns the number of all results.
func (c Counts) Total() int {
	return c.Passed + c.Failed + c.Skipped
}

// Suite is a parsed TAP stream.
type Suite struct {
	// Expected number of results from the "1..N" plan. 0 if not seen.
	Plan    int
	Results []Result
}

var (
	planRE   = regexp.MustCompile(`^1\.\.(\d+)`)
	resultRE = regexp.MustCompile(`^(ok|not ok)\s+(\d+)?\s*-?\s*(.*)`)
	diagRE   = regexp.MustCompile(`^#\s?(.*)`)
	skipRE   = regexp.MustCompile(`(?i)#\s*skip`)
	// Kernel log timestamps interleaved with console output.
	timestampRE = regexp.MustCompile(`^\[\s*\d+\.\d+\]\s*`)
)

// Parse reads TAP output. Only top level results are collected. Nested
// subtest results are printed as diagnostics by kselftest and kept as such.
func Parse(r io.Reader) (*Suite, error) {
	var (
		suite   Suite
		diags   []string
		counter int
	)

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		line = timestampRE.ReplaceAllString(line, "")

		if m := planRE.FindStringSubmatch(line); m != nil {
			suite.Plan, _ = strconv.Atoi(m[1])
			continue
		}

		if m := resultRE.FindStringSubmatch(line); m != nil {
			counter++
			if n, err := strconv.Atoi(m[2]); err == nil {
				counter = n
			}

			suite.Results = append(suite.Results, Result{
				Number:      counter,
				Description: strings.TrimSpace(m[3]),
				Passed:      m[1] == "ok",
				Skipped:     skipRE.MatchString(m[3]),
				Diagnostics: diags,
			})
			diags = nil

			continue
		}

		if m := diagRE.FindStringSubmatch(line); m != nil {
			diags = append(diags, m[1])
		}
	}

	err := scanner.Err()
	if err != nil {
		return &suite, fmt.Errorf("scan: %w", err)
	}

	return &suite, nil
}

// Counts sums up the results.
func (s *Suite) Counts() Counts {
	var counts Counts

	for _, r := range s.Results {
		switch {
		case r.Skipped:
			counts.Skipped++
		case r.Passed:
			counts.Passed++
		default:
			counts.Failed++
		}
	}

	return counts
}

// Failed returns all failed results.
func (s *Suite) Failed() []Result {
	var failed []Result

	for _, r := range s.Results {
		if !r.Passed && !r.Skipped {
			failed = append(failed, r)
		}
	}

	return failed
}

// Complete returns true if the number of results matches the plan.
func (s *Suite) Complete() bool {
	return s.Plan == 0 || s.Plan == len(s.Results)
}

// Success returns true if nothing failed and the run is complete.
func (s *Suite) Success() bool {
	return s.Counts().Failed == 0 && s.Complete()
}

// String implements [fmt.Stringer].
func (s *Suite) String() string {
	counts := s.Counts()

	str := fmt.Sprintf(
		"%d/%d passed, %d failed, %d skipped",
		counts.Passed, counts.Total(), counts.Failed, counts.Skipped,
	)

	if !s.Complete() {
		str += fmt.Sprintf(" (planned %d)", s.Plan)
	}

	return str
}
