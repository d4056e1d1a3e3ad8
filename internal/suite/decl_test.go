// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite_test

import (
	"strings"
	"testing"

	"github.com/aibor/bootci/internal/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const declaration = `
name: qemu-short
continue_on_error: false
qemus: [host]
images: [korg@13.2.0, fedora]
kernels:
  - defconfig: ppc64le_guest_defconfig
    merge_config: [debug-info-n]
  - defconfig: pmac32_defconfig
    image: korg@13.2.0
    modules: false
selftests:
  - subarch: ppc64le
    target: ppctests
    image: fedora
boots:
  - name: qemu-pseries+p9+tcg
    defconfig: ppc64le_guest_defconfig
    qemu: true
    tests:
      - type: qemu-net
      - type: qemu-selftests
        collection: powerpc/mm
        exclude: [powerpc/mm:wild_bctr]
  - name: qemu-mac99
    defconfig: pmac32_defconfig
    image: korg@13.2.0
    qemu: true
    tests:
      - type: qemu
        name: debugfs
        callbacks: ["cat_debugfs(powerpc/security_features)"]
`

func TestLoad(t *testing.T) {
	s, err := suite.Load(strings.NewReader(declaration), suite.LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "qemu-short", s.Name)
	assert.False(t, s.ContinueOnError)

	kernels, selftests, boots := s.Len()
	assert.Equal(t, 3, kernels)
	assert.Equal(t, 3, selftests, "declared and referenced by tests")
	assert.Equal(t, 3, boots)

	kernel, exists := s.Kernel("pmac32_defconfig@korg@13.2.0")
	require.True(t, exists)
	assert.False(t, kernel.Modules)

	kernel, exists = s.Kernel("ppc64le_guest_defconfig@fedora")
	require.True(t, exists)
	assert.True(t, kernel.Modules)
	assert.Equal(t, []string{"debug-info-n"}, kernel.MergeConfig)

	boot, exists := s.Boot("qemu-pseries+p9+tcg@qemu-host@ppc64le_guest_defconfig@korg%4013.2.0")
	require.True(t, exists)
	require.Len(t, boot.Tests, 2)
	assert.Equal(t, "qemu-net-tests", boot.Tests[0].Name())
	assert.Equal(t, "qemu-selftests-powerpc_mm", boot.Tests[1].Name())

	selftestsTest, ok := boot.Tests[1].(*suite.QemuSelftestsTest)
	require.True(t, ok)
	assert.Equal(t, "selftests@ppc64le@korg@13.2.0", selftestsTest.Selftests.Name())
}

func TestLoad_Overrides(t *testing.T) {
	s, err := suite.Load(strings.NewReader(declaration), suite.LoadOptions{
		Images: []string{"korg@13.2.0"},
		Qemus:  []string{"host", "9.1.0"},
	})
	require.NoError(t, err)

	kernels, _, boots := s.Len()
	assert.Equal(t, 2, kernels)
	assert.Equal(t, 4, boots)
}

func TestLoad_SamePayloadDeduplicated(t *testing.T) {
	input := "name: x\nimages: [img]\nkernels:\n  - defconfig: b\nboots:\n" +
		"  - {name: a, defconfig: b, payload: [/tmp/one]}\n" +
		"  - {name: a, defconfig: b, payload: [/tmp/one]}"

	s, err := suite.Load(strings.NewReader(input), suite.LoadOptions{})
	require.NoError(t, err)

	_, _, boots := s.Len()
	assert.Equal(t, 1, boots)
	assert.Equal(t, []string{"/tmp/one"}, s.Boots()[0].Plan.Payload)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectedErr error
	}{
		{
			name:        "missing name",
			input:       "images: [img]",
			expectedErr: suite.ErrInvalidDeclaration,
		},
		{
			name:        "unknown test type",
			input:       "name: x\nimages: [img]\nboots:\n  - {name: a, defconfig: b, tests: [{type: magic}]}",
			expectedErr: suite.ErrInvalidDeclaration,
		},
		{
			name:        "bad subarch",
			input:       "name: x\nimages: [img]\nselftests:\n  - subarch: x86",
			expectedErr: suite.ErrInvalidDeclaration,
		},
		{
			name:        "no image",
			input:       "name: x\nkernels:\n  - defconfig: ppc64_defconfig",
			expectedErr: suite.ErrInvalidDeclaration,
		},
		{
			name:        "unresolved kernel",
			input:       "name: x\nimages: [img]\nboots:\n  - {name: a, defconfig: b}",
			expectedErr: &suite.UnresolvedReferenceError{},
		},
		{
			name: "boots differing in payload",
			input: "name: x\nimages: [img]\nkernels:\n  - defconfig: b\nboots:\n" +
				"  - {name: a, defconfig: b, payload: [/tmp/one]}\n" +
				"  - {name: a, defconfig: b, payload: [/tmp/two]}",
			expectedErr: &suite.ConflictError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := suite.Load(strings.NewReader(tt.input), suite.LoadOptions{})
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}
