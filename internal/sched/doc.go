// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sched runs independent jobs with bounded parallelism.
//
// Each job runs in its own goroutine. A panicking job is recovered and
// counted as failed, so it can not corrupt the scheduler. Completion is
// signaled over a result channel. Once a job fails and the scheduler is not
// told to continue on errors, no further jobs are started, but jobs already
// running are waited for.
package sched
