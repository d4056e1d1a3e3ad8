// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import (
	"slices"
	"strings"
)

// Subarch is the instruction width and endianness family a kernel is built
// for.
type Subarch string

// Supported sub architectures.
const (
	PPC64LE Subarch = "ppc64le"
	PPC64   Subarch = "ppc64"
	PPC     Subarch = "ppc"
)

var (
	ppc64leConfigs = []string{
		"microwatt_defconfig",
		"powernv_defconfig",
		"pseries_le_defconfig",
		"skiroot_defconfig",
	}

	ppc64Configs = []string{
		"allmodconfig",
		"allyesconfig",
		"cell_defconfig",
		"corenet64_smp_defconfig",
		"g5_defconfig",
		"pseries_defconfig",
	}
)

// SubarchOf infers the [Subarch] from a base configuration name.
//
// Fragments appended with "+" are ignored for the lookup.
func SubarchOf(defconfig string) Subarch {
	base, _, _ := strings.Cut(defconfig, "+")

	switch {
	case strings.HasPrefix(defconfig, string(PPC64LE)),
		slices.Contains(ppc64leConfigs, base):
		return PPC64LE
	case strings.HasPrefix(defconfig, string(PPC64)),
		slices.Contains(ppc64Configs, base):
		return PPC64
	default:
		return PPC
	}
}

// Valid returns true if s is one of the known values.
func (s Subarch) Valid() bool {
	switch s {
	case PPC64LE, PPC64, PPC:
		return true
	default:
		return false
	}
}

// FullImage combines the [Subarch] with a build image identifier.
func (s Subarch) FullImage(image string) string {
	return string(s) + "@" + image
}
