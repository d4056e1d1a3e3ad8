// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite_test

import (
	"testing"

	"github.com/aibor/bootci/internal/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuite_AddKernel(t *testing.T) {
	kernel := suite.KernelBuild{
		Defconfig:   "ppc64le_guest_defconfig",
		Image:       "korg@13.2.0",
		MergeConfig: []string{"debug-info-n"},
		Modules:     true,
	}

	t.Run("idempotent", func(t *testing.T) {
		s := suite.New("test")

		first, err := s.AddKernel(kernel)
		require.NoError(t, err)

		second, err := s.AddKernel(kernel)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Len(t, s.Kernels(), 1)
	})

	t.Run("conflict", func(t *testing.T) {
		s := suite.New("test")

		_, err := s.AddKernel(kernel)
		require.NoError(t, err)

		other := kernel
		other.Clang = true

		_, err = s.AddKernel(other)
		require.ErrorIs(t, err, &suite.ConflictError{})

		var conflictErr *suite.ConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, "ppc64le_guest_defconfig@korg@13.2.0", conflictErr.Key)
		assert.Contains(t, conflictErr.Diff(), "-clang: false")
		assert.Contains(t, conflictErr.Diff(), "+clang: true")
		assert.Len(t, s.Kernels(), 1)
	})

	t.Run("different merge config", func(t *testing.T) {
		s := suite.New("test")

		_, err := s.AddKernel(kernel)
		require.NoError(t, err)

		other := kernel
		other.MergeConfig = []string{"debug-info-y"}

		_, err = s.AddKernel(other)
		require.ErrorIs(t, err, &suite.ConflictError{})
	})

	t.Run("registration order", func(t *testing.T) {
		s := suite.New("test")

		for _, defconfig := range []string{"b_defconfig", "a_defconfig", "c_defconfig"} {
			_, err := s.AddKernel(suite.KernelBuild{Defconfig: defconfig, Image: "img"})
			require.NoError(t, err)
		}

		names := []string{}
		for _, k := range s.Kernels() {
			names = append(names, k.Name())
		}

		assert.Equal(t, []string{"b_defconfig@img", "a_defconfig@img", "c_defconfig@img"}, names)
	})
}

func TestSuite_AddSelftest(t *testing.T) {
	s := suite.New("test")

	first, err := s.AddSelftest(suite.SelftestBuild{
		Image:   "img",
		Subarch: suite.PPC64LE,
		Target:  suite.TargetSelftests,
	})
	require.NoError(t, err)

	second, err := s.AddSelftest(suite.SelftestBuild{
		Image:   "img",
		Subarch: suite.PPC64LE,
		Target:  suite.TargetSelftests,
	})
	require.NoError(t, err)

	assert.Same(t, first, second, "stored instance returned")

	_, err = s.AddSelftest(suite.SelftestBuild{
		Image:   "img",
		Subarch: suite.PPC64LE,
		Target:  "other",
	})
	require.ErrorIs(t, err, &suite.ConflictError{})

	_, count, _ := s.Len()
	assert.Equal(t, 1, count)
}

func TestSuite_AddBoot(t *testing.T) {
	newSuite := func(t *testing.T) *suite.Suite {
		t.Helper()

		s := suite.New("test")
		_, err := s.AddKernel(suite.KernelBuild{Defconfig: "ppc64le_guest_defconfig", Image: "img"})
		require.NoError(t, err)

		return s
	}

	t.Run("resolves kernel", func(t *testing.T) {
		s := newSuite(t)

		boot, err := s.AddBoot(suite.Boot{
			Name:      "powernv",
			Defconfig: "ppc64le_guest_defconfig",
			Image:     "img",
		})
		require.NoError(t, err)

		kernel, _ := s.Kernel("ppc64le_guest_defconfig@img")
		assert.Same(t, kernel, boot.Kernel)

		found, exists := s.Boot("powernv@ppc64le_guest_defconfig@img")
		require.True(t, exists)
		assert.Same(t, boot, found)
	})

	t.Run("unresolved", func(t *testing.T) {
		s := newSuite(t)

		_, err := s.AddBoot(suite.Boot{
			Name:      "powernv",
			Defconfig: "ppc64_guest_defconfig",
			Image:     "img",
		})
		require.ErrorIs(t, err, &suite.UnresolvedReferenceError{})
		assert.Empty(t, s.Boots())
	})

	t.Run("conflict", func(t *testing.T) {
		s := newSuite(t)

		boot := suite.Boot{
			Name:      "powernv",
			Defconfig: "ppc64le_guest_defconfig",
			Image:     "img",
		}

		_, err := s.AddBoot(boot)
		require.NoError(t, err)

		_, err = s.AddBoot(boot)
		require.NoError(t, err, "identical")

		boot.Cmdline = "nosmp"

		_, err = s.AddBoot(boot)
		require.ErrorIs(t, err, &suite.ConflictError{})
		assert.Len(t, s.Boots(), 1)
	})

	t.Run("qemu versions", func(t *testing.T) {
		s := newSuite(t)
		s.Qemus = []string{"default", "8.2.0", "/opt/qemu/bin"}

		boots, err := s.AddQemuBoot(suite.Boot{
			Name:      "qemu-pseries+kvm",
			Defconfig: "ppc64le_guest_defconfig",
			Image:     "img",
		})
		require.NoError(t, err)
		require.Len(t, boots, 3)

		assert.Equal(t, "qemu-pseries+kvm@qemu-host@ppc64le_guest_defconfig@img", boots[0].Key())
		assert.Equal(t, "qemu-pseries+kvm@qemu-8.2.0@ppc64le_guest_defconfig@img", boots[1].Key())
		assert.Regexp(t, `^qemu-pseries\+kvm@qemu-custom-[0-9a-f]{12}@ppc64le_guest_defconfig@img$`, boots[2].Key())
		assert.Len(t, s.Boots(), 3)
	})
}

func TestSuite_DirName(t *testing.T) {
	assert.Equal(t, "qemu_short_suite", suite.New("qemu/short suite").DirName())
}
