// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package suite provides the declarative model of a test run: kernel builds,
// selftest builds, boots and the tests run for each boot.
//
// Every entity has a deterministic identity derived from its configuration.
// A [Suite] holds entities keyed by that identity and rejects re-registration
// of the same identity with a different configuration. Boots must reference
// kernel builds that have been registered before.
//
// The package never spawns processes. The only disk access is done by the
// [Test] setup hooks that write run scripts into a per-test directory.
package suite
