// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name        string
		debug       bool
		contains    []string
		notContains []string
	}{
		{
			name:        "info",
			contains:    []string{"level=INFO msg=shown run_id=42"},
			notContains: []string{"hidden", "source="},
		},
		{
			name:  "debug",
			debug: true,
			contains: []string{
				"source=log_internal_test.go:",
				"msg=hidden run_id=42",
				"msg=shown run_id=42",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			setupLogging(&buf, tt.debug, slog.String("run_id", "42"))

			slog.Debug("hidden")
			slog.Info("shown")

			for _, expected := range tt.contains {
				assert.Contains(t, buf.String(), expected)
			}

			for _, unexpected := range tt.notContains {
				assert.NotContains(t, buf.String(), unexpected)
			}
		})
	}
}
