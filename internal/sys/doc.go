// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sys provides host system probing: ELF attributes of kernel images,
// KVM availability and CPU vulnerability mitigation status.
package sys
