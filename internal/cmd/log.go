// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
)

// setupLogging installs the default logger. Every record carries the given
// attributes. Debug output includes the source location.
func setupLogging(writer io.Writer, debug bool, attrs ...slog.Attr) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(
		writer,
		&slog.HandlerOptions{
			Level:       level,
			AddSource:   debug,
			ReplaceAttr: shortSource,
		},
	)

	slog.SetDefault(slog.New(handler.WithAttrs(attrs)))
}

// shortSource reduces the source file to its base name.
func shortSource(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.SourceKey {
		return attr
	}

	source, ok := attr.Value.Any().(*slog.Source)
	if !ok {
		return attr
	}

	return slog.String(slog.SourceKey, filepath.Base(source.File)+":"+strconv.Itoa(source.Line))
}
