// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package callback provides named actions run on the console of a booted
// system.
//
// Callbacks are referenced by strings like "sh(ls /dev)" or
// "run_ppctests". A [Registry] maps names to functions and rejects unknown
// names and invalid arguments when parsing, so misconfigured boots fail
// before anything is booted.
package callback
