// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package build invokes the external build system for kernel and selftest
// builds.
//
// The build system is a Makefile in the "build" directory of the script
// directory. It is driven with targets like "kernel@ppc64le@fedora" and
// key value parameters. A zero exit code means success and, for kernels, a
// [Sentinel] file exists afterwards.
package build
