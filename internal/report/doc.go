// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package report renders the human and machine readable output of a suite
// run: banners, log tails, a progress bar, Prometheus metrics and a run
// summary file.
package report
