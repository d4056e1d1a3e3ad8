// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// TailLines is the number of log lines [Printer.DumpLog] prints.
const TailLines = 50

// MaxLineLen is the number of bytes of a single log line [Tail] keeps.
// Longer lines are cut and marked with a trailing " ...".
const MaxLineLen = 4096

// Tail returns the last n lines of the file and the number of lines before
// them.
func Tail(path string, n int) ([]string, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var (
		lines     []string
		total     int
		line      []byte
		truncated bool
	)

	reader := bufio.NewReaderSize(file, MaxLineLen)

	for {
		chunk, isPrefix, err := reader.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, 0, fmt.Errorf("read log: %w", err)
		}

		room := MaxLineLen - len(line)
		if len(chunk) > room {
			chunk = chunk[:room]
			truncated = true
		}

		line = append(line, chunk...)

		if isPrefix {
			continue
		}

		text := string(line)
		if truncated {
			text += " ..."
		}

		total++

		lines = append(lines, text)
		if len(lines) > n {
			lines = lines[1:]
		}

		line = line[:0]
		truncated = false
	}

	return lines, total - len(lines), nil
}

// DumpLog prints where the log is and its last [TailLines] lines.
func (p *Printer) DumpLog(path string) {
	p.Println("See: " + path)

	lines, skipped, err := Tail(path, TailLines)
	if err != nil || len(lines) == 0 {
		return
	}

	if skipped > 0 {
		p.Println(fmt.Sprintf("(skipped %d lines) ...", skipped))
	}

	p.Println(strings.Join(lines, "\n"))
}
