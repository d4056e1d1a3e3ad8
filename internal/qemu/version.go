// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

var versionRE = regexp.MustCompile(`QEMU emulator version (([0-9]+)\.([0-9]+)[^\n]*)`)

// Version tags with special meaning for [BinDir].
const (
	VersionHost = "host"
)

// BinDir returns the directory of the QEMU binaries for a version tag.
//
// It is empty for [VersionHost], so the binaries are looked up in PATH.
// Absolute paths are used as is. Anything else is a version built into
// "external/qemu/qemu-<version>/install/bin" of the script directory.
func BinDir(version, scriptDir string) string {
	switch {
	case version == VersionHost, version == "":
		return ""
	case filepath.IsAbs(version):
		return version
	default:
		return filepath.Join(scriptDir, "external", "qemu", "qemu-"+version, "install", "bin")
	}
}

// Version runs the executable with "--version" and returns the full
// version string.
func Version(ctx context.Context, executable string) (string, error) {
	output, err := exec.CommandContext(ctx, executable, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("qemu version: %w", err)
	}

	match := versionRE.FindSubmatch(output)
	if match == nil {
		return "", ErrNoVersion
	}

	return strings.TrimSpace(string(match[1])), nil
}
