// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// KernelBuild describes a single kernel build.
type KernelBuild struct {
	// Base configuration, like "ppc64le_guest_defconfig". Additional
	// fragments may be appended with "+".
	Defconfig string
	// Build image identifier, usually a toolchain container image.
	Image string
	// Configuration fragments merged into the base configuration.
	MergeConfig []string
	// Build with clang instead of gcc.
	Clang bool
	// Use the LLVM integrated assembler. Only relevant with Clang.
	LLVMIAS bool
	// Run sparse during the build.
	Sparse bool
	// Build and package modules.
	Modules bool
}

// Name is the identity of the [KernelBuild].
func (k *KernelBuild) Name() string {
	return k.Defconfig + "@" + k.Image
}

// Subarch returns the [Subarch] the kernel is built for.
func (k *KernelBuild) Subarch() Subarch {
	return SubarchOf(k.Defconfig)
}

// FullImage returns the image qualified with the [Subarch].
func (k *KernelBuild) FullImage() string {
	return k.Subarch().FullImage(k.Image)
}

// DirName returns the name of the build output directory.
//
// It must match the output directory the build system uses.
func (k *KernelBuild) DirName() string {
	defconfig := strings.ReplaceAll(k.Defconfig, "/", "_")
	return defconfig + "@" + k.FullImage()
}

// Equal compares all configuration fields.
func (k *KernelBuild) Equal(other *KernelBuild) bool {
	return k.Defconfig == other.Defconfig &&
		k.Image == other.Image &&
		slices.Equal(k.MergeConfig, other.MergeConfig) &&
		k.Clang == other.Clang &&
		k.LLVMIAS == other.LLVMIAS &&
		k.Sparse == other.Sparse &&
		k.Modules == other.Modules
}

// String implements [fmt.Stringer].
func (k *KernelBuild) String() string {
	parts := []string{k.Name()}

	if len(k.MergeConfig) > 0 {
		parts = append(parts, fmt.Sprintf("merge_config=%v", k.MergeConfig))
	}

	flags := []struct {
		name string
		set  bool
	}{
		{"clang", k.Clang},
		{"llvm_ias", k.LLVMIAS},
		{"sparse", k.Sparse},
		{"modules", k.Modules},
	}

	for _, flag := range flags {
		if flag.set {
			parts = append(parts, flag.name)
		}
	}

	return strings.Join(parts, "/")
}

func (k *KernelBuild) describe() []string {
	return []string{
		"defconfig: " + k.Defconfig,
		"image: " + k.Image,
		"merge_config: " + strings.Join(k.MergeConfig, ","),
		"clang: " + strconv.FormatBool(k.Clang),
		"llvm_ias: " + strconv.FormatBool(k.LLVMIAS),
		"sparse: " + strconv.FormatBool(k.Sparse),
		"modules: " + strconv.FormatBool(k.Modules),
	}
}
