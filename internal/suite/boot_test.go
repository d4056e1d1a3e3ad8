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

func TestVMVersionToken(t *testing.T) {
	tests := []struct {
		version  string
		expected string
	}{
		{version: "host", expected: "host"},
		{version: "mainline", expected: "mainline"},
		{version: "8.2.0", expected: "8.2.0"},
		{version: "10.0", expected: "10.0"},
		{version: "9.0.0-rc1", expected: "9.0.0-rc1"},
		{version: "8.2.0+dfsg", expected: "8.2.0+dfsg"},
		{version: "/opt/qemu/bin"},
		{version: "/8.2.0"},
		{version: "9.0@local"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			actual := suite.VMVersionToken(tt.version)
			if tt.expected == "" {
				assert.Regexp(t, `^custom-[0-9a-f]{12}$`, actual)
				assert.Equal(t, actual, suite.VMVersionToken(tt.version), "deterministic")
				assert.NotEqual(t, actual, suite.VMVersionToken(tt.version+"/"))

				return
			}

			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestBootKey_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		boot suite.Boot
	}{
		{
			name: "plain",
			boot: suite.Boot{
				Name:      "powernv",
				Defconfig: "powernv_defconfig",
				Image:     "fedora",
			},
		},
		{
			name: "qemu",
			boot: suite.Boot{
				Name:      "qemu-pseries+p9+tcg",
				Defconfig: "ppc64le_guest_defconfig",
				Image:     "korg@13.2.0",
				Qemu:      "9.1.0",
			},
		},
		{
			name: "escaped",
			boot: suite.Boot{
				Name:      "my%boot",
				Defconfig: "arch/powerpc/configs/ppc64le.config",
				Image:     "korg@13.2.0",
				Qemu:      "host",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := tt.boot.Key()
			assert.NotContains(t, key, "/")

			parsed, err := suite.ParseBootKey(key)
			require.NoError(t, err)

			expected := suite.BootKey{
				Name:      tt.boot.Name,
				Defconfig: tt.boot.Defconfig,
				Image:     tt.boot.Image,
			}
			if tt.boot.IsQemu() {
				expected.VMVersion = suite.VMVersionToken(tt.boot.Qemu)
			}

			assert.Equal(t, expected, parsed)
			assert.Equal(t, key, parsed.String())
		})
	}
}

func TestParseBootKey_Invalid(t *testing.T) {
	for _, key := range []string{
		"",
		"only@two",
		"name@notqemu@defconfig@image",
		"name@qemu-@defconfig@image",
		"a@b@c@d@e",
		"@defconfig@image",
	} {
		t.Run(key, func(t *testing.T) {
			_, err := suite.ParseBootKey(key)
			require.ErrorIs(t, err, suite.ErrInvalidKey)
		})
	}
}

func TestBoot_Clone(t *testing.T) {
	boot := &suite.Boot{
		Name: "powernv",
		Plan: suite.Plan{Callbacks: []string{"sh(true)"}},
	}

	clone := boot.Clone()
	clone.Plan.Callbacks = append(clone.Plan.Callbacks, "run_ppctests")
	clone.Plan.NetTests = true

	assert.Equal(t, []string{"sh(true)"}, boot.Plan.Callbacks)
	assert.False(t, boot.Plan.NetTests)
	assert.True(t, boot.Equal(clone))
}

func TestBoot_Description(t *testing.T) {
	boot := suite.Boot{
		Name:      "qemu-mac99",
		Defconfig: "pmac32_defconfig",
		Image:     "img",
		Qemu:      "host",
	}

	assert.Equal(t, "qemu-mac99 with pmac32_defconfig using qemu-mac99 using qemu host", boot.Description())
	assert.Equal(t, "qemu-mac99/host/pmac32_defconfig/img", boot.String())
}
