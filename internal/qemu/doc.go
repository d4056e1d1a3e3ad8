// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu builds QEMU command lines for powerpc machine profiles.
//
// A [Profile] is parsed from a boot script name like "qemu-pseries+p9+tcg".
// [NewCommandSpec] applies the machine specific defaults and
// [CommandSpec.Args] compiles the argument list.
package qemu
