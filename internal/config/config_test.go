// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aibor/bootci/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("JFACTOR", "16")
	t.Setenv("KFACTOR", "invalid")
	t.Setenv("BFACTOR", "")

	cfg := config.New()

	assert.Equal(t, 16, cfg.JFactor)
	assert.Equal(t, config.DefaultFactor, cfg.KFactor)
	assert.Equal(t, config.DefaultFactor, cfg.BFactor)
	assert.Equal(t, 5*time.Minute, cfg.BootTimeout())
	assert.Equal(t, 10*time.Minute, cfg.SessionTimeout())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		err   error
	}{
		{
			name:  "clean tree",
			files: []string{"Makefile"},
		},
		{
			name: "no kernel tree",
			err:  config.ErrNotKernelTree,
		},
		{
			name:  "not clean",
			files: []string{"Makefile", ".config"},
			err:   config.ErrTreeNotClean,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := t.TempDir()
			for _, file := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(src, file), nil, 0o600))
			}

			cfg := config.New()
			cfg.SourceDir = src

			require.ErrorIs(t, cfg.Validate(), tt.err)
		})
	}
}

func TestConfig_ValidateFactor(t *testing.T) {
	cfg := config.New()
	cfg.BFactor = -1

	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidFactor)
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := config.Config{ScriptDir: "/ci", OutputDir: "/out"}
	require.NoError(t, cfg.SetDefaults())

	assert.Equal(t, "/ci/etc/configs", cfg.ConfigDir)
	assert.Equal(t, "/ci/root-disks", cfg.RootDiskDir)
	assert.Equal(t, "/ci/etc/filter-warnings.yaml", cfg.WarningFilters)

	assert.Equal(t, config.Layout{
		Root:     "/out/ppc64le",
		BuildDir: "/out/ppc64le/build",
		BootDir:  "/out/ppc64le/boot",
	}, cfg.Layout("ppc64le"))
}

func TestConfig_Describe(t *testing.T) {
	cfg := config.Config{SourceDir: "/linux", BootFilter: []string{"pseries", "!kvm"}}

	pairs := cfg.Describe()
	assert.Contains(t, pairs, [2]string{"src", "/linux"})
	assert.Contains(t, pairs, [2]string{"bfilter", "pseries !kvm"})
	assert.NotContains(t, pairs, [2]string{"kfilter", ""})
}
