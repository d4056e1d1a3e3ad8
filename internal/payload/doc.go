// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package payload packs host files into a newc cpio archive that is appended
// to a root disk initrd. The kernel unpacks concatenated archives in order,
// so the files show up in the guest under [Dir].
package payload
