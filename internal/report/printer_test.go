// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/aibor/bootci/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterBanner(t *testing.T) {
	tests := []struct {
		name     string
		kind     report.Kind
		expected string
	}{
		{
			name: "info",
			kind: report.Info,
			expected: strings.Repeat("#", 60) + "\n" +
				"# Building " + strings.Repeat(" ", 47) + "#\n" +
				strings.Repeat("#", 60) + "\n",
		},
		{
			name: "failed",
			kind: report.Failed,
			expected: strings.Repeat("!", 60) + "\n" +
				"! Building " + strings.Repeat(" ", 47) + "!\n" +
				strings.Repeat("!", 60) + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var first, second bytes.Buffer

			report.NewPrinter(&first, &second).Banner(tt.kind, "Building")

			assert.Equal(t, tt.expected, first.String())
			assert.Equal(t, tt.expected, second.String())
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, report.IsTerminal(&bytes.Buffer{}))

	file, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)

	defer file.Close()

	assert.False(t, report.IsTerminal(file))
}

func writeLines(t *testing.T, n int) string {
	t.Helper()

	var buf strings.Builder
	for i := range n {
		buf.WriteString("line " + strconv.Itoa(i+1) + "\n")
	}

	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte(buf.String()), 0o600))

	return path
}

func TestTail(t *testing.T) {
	tests := []struct {
		name            string
		lines           int
		expectedFirst   string
		expectedSkipped int
	}{
		{
			name:            "short",
			lines:           3,
			expectedFirst:   "line 1",
			expectedSkipped: 0,
		},
		{
			name:            "long",
			lines:           120,
			expectedFirst:   "line 71",
			expectedSkipped: 70,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLines(t, tt.lines)

			lines, skipped, err := report.Tail(path, report.TailLines)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedSkipped, skipped)
			assert.Equal(t, tt.expectedFirst, lines[0])
			assert.Equal(t, "line "+strconv.Itoa(tt.lines), lines[len(lines)-1])
		})
	}
}

func TestTail_LongLines(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	path := filepath.Join(t.TempDir(), "log.txt")
	content := "first\n" + long + "\n" + long[:report.MaxLineLen] + "\r\nlast"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	lines, skipped, err := report.Tail(path, report.TailLines)
	require.NoError(t, err)

	assert.Equal(t, 0, skipped)
	require.Len(t, lines, 4)
	assert.Equal(t, "first", lines[0])
	assert.Equal(t, long[:report.MaxLineLen]+" ...", lines[1])
	assert.Equal(t, long[:report.MaxLineLen], lines[2], "exact length is not cut")
	assert.Equal(t, "last", lines[3])
}

func TestDumpLog_LongLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("y", 2<<20)+"\nKernel panic\n"), 0o600))

	var out bytes.Buffer

	report.NewPrinter(&out).DumpLog(path)

	assert.True(t, strings.HasSuffix(out.String(), " ...\nKernel panic\n"))
}

func TestDumpLog(t *testing.T) {
	path := writeLines(t, 52)

	var out bytes.Buffer

	report.NewPrinter(&out).DumpLog(path)

	output := out.String()
	assert.True(t, strings.HasPrefix(output, "See: "+path+"\n(skipped 2 lines) ...\nline 3\n"))
	assert.True(t, strings.HasSuffix(output, "line 52\n"))
}

func TestDumpLogMissing(t *testing.T) {
	var out bytes.Buffer

	report.NewPrinter(&out).DumpLog("/nonexistent/log.txt")

	assert.Equal(t, "See: /nonexistent/log.txt\n", out.String())
}
