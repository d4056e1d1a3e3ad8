// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package console drives an interactive text session with a booted system.
//
// A [Console] reads the output of a [Process] in the background and lets the
// caller wait for regular expressions to appear in it. A list of bug
// patterns, like kernel panic and oops messages, is implicitly added to
// every wait. If one of them matches first, the console waits a moment for
// the crash dump to finish, terminates the process and returns a
// [FatalSignatureError].
//
// Usage is strictly request/response: [Console.Send] a command, then
// [Console.Expect] its outcome. A stack of prompts supports entering and
// leaving nested shells, like an in-kernel debugger, with [Console.Cmd]
// always matching the innermost prompt.
//
// Timeouts are per wait. In addition, a session deadline can be set with
// [Console.SetDeadline] that bounds a whole sequence of interactions.
package console
