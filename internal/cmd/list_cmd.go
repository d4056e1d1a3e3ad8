// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"io"

	"github.com/aibor/bootci/internal/suite"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	opts := newSuiteOptions()

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List kernels, selftests and boots of a suite",
		Long: `List the kernels, selftests and boots the suite declares after applying
the filters. Boots are listed by their output directory key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.loadSuite()
			if err != nil {
				return err
			}

			return listSuite(cmd.OutOrStdout(), s, opts)
		},
	}

	opts.addFlags(listCmd)

	return listCmd
}

func listSuite(w io.Writer, s *suite.Suite, opts *suiteOptions) error {
	sections := []struct {
		title   string
		filter  []string
		entries func() []string
	}{
		{"kernels", opts.cfg.KernelFilter, func() []string {
			names := []string{}
			for _, kernel := range s.Kernels() {
				names = append(names, kernel.Name())
			}

			return names
		}},
		{"selftests", opts.cfg.SelftestFilter, func() []string {
			names := []string{}
			for _, selftest := range s.Selftests() {
				names = append(names, selftest.Target)
			}

			return names
		}},
	}

	for _, section := range sections {
		filter, err := suite.NewFilter(section.filter)
		if err != nil {
			return fmt.Errorf("%s filter: %w", section.title, err)
		}

		fmt.Fprintf(w, "%s:\n", section.title)

		for _, name := range section.entries() {
			if filter.Match(name) {
				fmt.Fprintf(w, "  %s\n", name)
			}
		}
	}

	filter, err := suite.NewFilter(opts.cfg.BootFilter)
	if err != nil {
		return fmt.Errorf("boots filter: %w", err)
	}

	fmt.Fprintln(w, "boots:")

	for _, boot := range s.Boots() {
		if filter.Match(boot.Name) {
			fmt.Fprintf(w, "  %s\n", boot.Key())
		}
	}

	return nil
}
