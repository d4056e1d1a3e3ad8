// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package runner runs a suite: all kernel and selftest builds first, then
// all boots with their tests.
//
// Boots with a "qemu-" profile script are driven in-process on a pseudo
// terminal. All other boots run an external boot script from the
// "scripts/boot" directory.
package runner
