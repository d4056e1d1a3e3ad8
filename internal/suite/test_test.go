// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aibor/bootci/internal/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readScript(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, suite.RunScript)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(content)
}

func TestScriptTest_Setup(t *testing.T) {
	dir := t.TempDir()
	env := suite.SetupEnv{ScriptDir: "/ci", BuildDir: "/out/build"}
	boot := &suite.Boot{Name: "powernv"}

	test := &suite.ScriptTest{TestName: "boot-check"}
	require.NoError(t, test.Setup(env, boot, dir))

	assert.True(t, test.Runs())
	assert.Equal(t,
		"#!/bin/bash\n\n[ -e environ ] && source environ\n\ndate\n\n/ci/scripts/test/boot-check powernv\n",
		readScript(t, dir),
	)
}

func TestSelftestsTest_Setup(t *testing.T) {
	dir := t.TempDir()
	env := suite.SetupEnv{ScriptDir: "/ci", BuildDir: "/out/build"}
	build := &suite.SelftestBuild{Image: "img", Subarch: suite.PPC64LE, Target: suite.TargetSelftests}

	test := &suite.SelftestsTest{TestName: "selftests", Selftests: build}
	require.NoError(t, test.Setup(env, &suite.Boot{Name: "powernv"}, dir))

	target, err := os.Readlink(filepath.Join(dir, suite.SelftestTarball))
	require.NoError(t, err)
	assert.Equal(t, "/out/build/selftests@ppc64le@img/selftests.tar.gz", target)

	// Setup must be repeatable.
	require.NoError(t, test.Setup(env, &suite.Boot{Name: "powernv"}, dir))
}

func TestQemuNetTest_Setup(t *testing.T) {
	boot := &suite.Boot{}

	require.NoError(t, (&suite.QemuNetTest{Enabled: false}).Setup(suite.SetupEnv{}, boot, ""))
	assert.False(t, boot.Plan.NetTests)

	test := &suite.QemuNetTest{Enabled: true}
	require.NoError(t, test.Setup(suite.SetupEnv{}, boot, ""))
	assert.True(t, boot.Plan.NetTests)
	assert.False(t, test.Runs())
}

func TestQemuTest_Setup(t *testing.T) {
	dir := t.TempDir()
	boot := &suite.Boot{Plan: suite.Plan{Callbacks: []string{"sh(uname -a)"}}}

	test := &suite.QemuTest{BaseName: "debugfs", Callbacks: []string{"cat_debugfs(kernel_page_tables)"}}
	require.NoError(t, test.Setup(suite.SetupEnv{}, boot, dir))

	assert.Equal(t, "qemu-test-debugfs", test.Name())
	assert.Equal(t, []string{
		"sh(uname -a)",
		"sh(# starting-qemu-test-debugfs)",
		"cat_debugfs(kernel_page_tables)",
		"sh(# end-qemu-test-debugfs)",
	}, boot.Plan.Callbacks)
	assert.Contains(t, readScript(t, dir),
		"awk '/starting-qemu-test-debugfs/, /end-qemu-test-debugfs/' ../console.log | tee extracted.log")
}

func TestQemuSelftestsTest_Setup(t *testing.T) {
	tests := []struct {
		name              string
		test              suite.QemuSelftestsTest
		expectedName      string
		expectedCallbacks []string
	}{
		{
			name:         "all",
			test:         suite.QemuSelftestsTest{},
			expectedName: "qemu-selftests",
			expectedCallbacks: []string{
				"sh(# starting-qemu-selftests)",
				"run_selftests_nocheck",
				"sh(# end-qemu-selftests)",
			},
		},
		{
			name: "collection",
			test: suite.QemuSelftestsTest{
				Collection:     "powerpc.*",
				Exclude:        []string{"powerpc/mm:wild_bctr"},
				ExtraCallbacks: []string{"set_timeout(3600)"},
			},
			expectedName: "qemu-selftests-powerpc.",
			expectedCallbacks: []string{
				"sh(# starting-qemu-selftests-powerpc.)",
				`sh(sed -i -e '\|^powerpc/mm:wild_bctr$|d' /var/tmp/selftests/kselftest-list.txt)`,
				"set_timeout(3600)",
				"run_selftest_collections_nocheck(powerpc.*)",
				"sh(# end-qemu-selftests-powerpc.)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			boot := &suite.Boot{}
			test := tt.test
			test.Selftests = &suite.SelftestBuild{Image: "img", Subarch: suite.PPC64, Target: suite.TargetPPCTests}

			require.NoError(t, test.Setup(suite.SetupEnv{BuildDir: "/b"}, boot, dir))

			assert.Equal(t, tt.expectedName, test.Name())
			assert.Equal(t, tt.expectedCallbacks, boot.Plan.Callbacks)
			assert.Equal(t, "/b/selftests_powerpc@ppc64@img/selftests.tar.gz", boot.Plan.SelftestsTarball)
			assert.Contains(t, readScript(t, dir), "grep \"not ok\" extracted.log && exit 1\nexit 0")
		})
	}
}
