// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

const coverProfile = "cover.out"

var env = map[string]string{}

func init() {
	gobin, exists := os.LookupEnv("GOBIN")
	if !exists {
		gobin = "./gobin"
	}

	if gobin != "" {
		if p, err := filepath.Abs(gobin); err == nil {
			gobin = p
		}
	}

	env["GOBIN"] = gobin
}

// Install bootci to the gobin directory.
func Install() error {
	rebuild, err := target.Dir(filepath.Join(env["GOBIN"], "bootci"), "cmd", "internal")
	if err != nil {
		return err
	}

	if !rebuild {
		return nil
	}

	return sh.RunWith(env, "go", "install", "./cmd/bootci")
}

// Test runs all unit tests with race detection and coverage.
func Test() error {
	return sh.RunV("go", "test", "-race", "-cover", "-coverprofile", coverProfile, "./...")
}

// Vuln checks dependencies for known vulnerabilities.
func Vuln() error {
	return sh.RunV("go", "tool", "-modfile", ".github/workflows/go.mod", "govulncheck", "./...")
}

// CI runs everything the CI pipeline runs.
func CI() {
	mg.SerialDeps(Test, Vuln)
}

// Remove volatile files.
func Clean() error {
	err := sh.Rm(env["GOBIN"])
	if err != nil {
		return err
	}

	return sh.Rm(coverProfile)
}
