// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/aibor/bootci/internal/suite"
	"github.com/spf13/cobra"
)

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key key|dir...",
		Short: "Decompose boot output directory keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			for idx, arg := range args {
				key, err := suite.ParseBootKey(filepath.Base(arg))
				if err != nil {
					return err //nolint:wrapcheck
				}

				if idx > 0 {
					fmt.Fprintln(w)
				}

				fmt.Fprintf(w, "name: %s\n", key.Name)

				if key.VMVersion != "" {
					fmt.Fprintf(w, "qemu: %s\n", key.VMVersion)
				}

				fmt.Fprintf(w, "defconfig: %s\nimage: %s\n", key.Defconfig, key.Image)
			}

			return nil
		},
	}
}
