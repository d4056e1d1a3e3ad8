// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console_test

import (
	"os/exec"
	"testing"
	"time"

	"github.com/aibor/bootci/internal/console"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawn(t *testing.T, args ...string) *console.PTYProcess {
	t.Helper()

	path, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}

	proc, err := console.Spawn(console.SpawnSpec{
		Path: path,
		Args: append([]string{"-c"}, args...),
	})
	require.NoError(t, err)

	return proc
}

func TestSpawn(t *testing.T) {
	proc := spawn(t, `echo ready; read line; echo "got:$line"`)

	c, err := console.New(proc, console.Config{Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = c.Expect(t.Context(), "ready")
	require.NoError(t, err)

	require.NoError(t, c.Send("hello"))

	_, err = c.Expect(t.Context(), "got:hello")
	require.NoError(t, err)

	require.NoError(t, c.WaitForExit(t.Context(), 5*time.Second))
	require.NoError(t, c.Close())
	assert.True(t, proc.Exited())
}

func TestSpawn_Terminate(t *testing.T) {
	proc := spawn(t, "echo started; sleep 60")

	c, err := console.New(proc, console.Config{Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = c.Expect(t.Context(), "started")
	require.NoError(t, err)

	require.NoError(t, c.Terminate(t.Context()))
	require.NoError(t, c.Close())
	assert.True(t, proc.Exited())
}
