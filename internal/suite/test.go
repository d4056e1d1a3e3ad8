// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Names of console callbacks queued by test setup hooks.
const (
	callbackSh                     = "sh"
	callbackRunSelftestCollections = "run_selftest_collections_nocheck"
	callbackRunSelftests           = "run_selftests_nocheck"
)

// RunScript is the name of the script generated by the test setup hooks.
const RunScript = "run.sh"

// SetupEnv provides the paths test setup hooks need.
type SetupEnv struct {
	// Directory containing the "scripts/test" directory.
	ScriptDir string
	// Build output directory of the suite.
	BuildDir string
}

// Test is a single test of a [Boot].
//
// Setup is called with a freshly created test directory before the boot. It
// may mutate the [Boot.Plan] and write a [RunScript] into the directory. The
// script is run after the boot and its exit code determines the result,
// unless Runs returns false.
type Test interface {
	Name() string
	Runs() bool
	Setup(env SetupEnv, boot *Boot, dir string) error
}

// ScriptTest runs scripts/test/<name> after the boot.
type ScriptTest struct {
	TestName string
}

var _ Test = (*ScriptTest)(nil)

func (t *ScriptTest) Name() string { return t.TestName }

func (t *ScriptTest) Runs() bool { return true }

func (t *ScriptTest) Setup(env SetupEnv, boot *Boot, dir string) error {
	return WriteScript(
		filepath.Join(dir, RunScript),
		testScriptCommand(env, t.TestName, boot),
	)
}

// SelftestsTest is a [ScriptTest] that needs a selftest archive in its
// directory.
type SelftestsTest struct {
	TestName  string
	Selftests *SelftestBuild
}

var _ Test = (*SelftestsTest)(nil)

func (t *SelftestsTest) Name() string { return t.TestName }

func (t *SelftestsTest) Runs() bool { return true }

func (t *SelftestsTest) Setup(env SetupEnv, boot *Boot, dir string) error {
	err := Symlink(t.Selftests.TarballPath(env.BuildDir), dir)
	if err != nil {
		return err
	}

	return WriteScript(
		filepath.Join(dir, RunScript),
		testScriptCommand(env, t.TestName, boot),
	)
}

// QemuNetTest enables the network smoke test run during the boot.
//
// It has no run script. A failure shows up as failed boot.
type QemuNetTest struct {
	Enabled bool
}

var _ Test = (*QemuNetTest)(nil)

func (*QemuNetTest) Name() string { return "qemu-net-tests" }

func (*QemuNetTest) Runs() bool { return false }

func (t *QemuNetTest) Setup(_ SetupEnv, boot *Boot, _ string) error {
	if t.Enabled {
		boot.Plan.NetTests = true
	}

	return nil
}

// QemuTest queues console callbacks wrapped in start and end markers. Its
// run script extracts the marked section from the console log.
type QemuTest struct {
	BaseName  string
	Callbacks []string
}

var _ Test = (*QemuTest)(nil)

func (t *QemuTest) Name() string { return "qemu-test-" + t.BaseName }

func (t *QemuTest) Runs() bool { return true }

func (t *QemuTest) Setup(_ SetupEnv, boot *Boot, dir string) error {
	start, end := markers(t.Name())

	err := WriteScript(filepath.Join(dir, RunScript), extractScript(start, end))
	if err != nil {
		return err
	}

	boot.Plan.Callbacks = append(boot.Plan.Callbacks, shComment(start))
	boot.Plan.Callbacks = append(boot.Plan.Callbacks, t.Callbacks...)
	boot.Plan.Callbacks = append(boot.Plan.Callbacks, shComment(end))

	return nil
}

// QemuSelftestsTest runs selftests on the console during the boot. Its run
// script fails if the extracted console section contains any "not ok"
// line.
type QemuSelftestsTest struct {
	Selftests *SelftestBuild
	// Run only this collection. All selftests are run, if empty.
	Collection string
	// Selftests removed from the list before the run.
	Exclude []string
	// Callbacks run before the selftests.
	ExtraCallbacks []string
}

var _ Test = (*QemuSelftestsTest)(nil)

func (t *QemuSelftestsTest) Name() string {
	name := "qemu-selftests"
	if t.Collection != "" {
		collection := strings.NewReplacer("/", "_", "*", "").Replace(t.Collection)
		name += "-" + collection
	}

	return name
}

func (t *QemuSelftestsTest) Runs() bool { return true }

func (t *QemuSelftestsTest) Setup(env SetupEnv, boot *Boot, dir string) error {
	start, end := markers(t.Name())

	script := strings.Join([]string{
		extractScript(start, end),
		`grep "not ok" extracted.log && exit 1`,
		"exit 0",
	}, "\n")

	err := WriteScript(filepath.Join(dir, RunScript), script)
	if err != nil {
		return err
	}

	tarball := t.Selftests.TarballPath(env.BuildDir)

	err = Symlink(tarball, dir)
	if err != nil {
		return err
	}

	boot.Plan.SelftestsTarball = tarball
	boot.Plan.Callbacks = append(boot.Plan.Callbacks, shComment(start))

	for _, name := range t.Exclude {
		boot.Plan.Callbacks = append(boot.Plan.Callbacks, callbackSh+fmt.Sprintf(
			`(sed -i -e '\|^%s$|d' /var/tmp/selftests/kselftest-list.txt)`,
			name,
		))
	}

	boot.Plan.Callbacks = append(boot.Plan.Callbacks, t.ExtraCallbacks...)

	run := callbackRunSelftests
	if t.Collection != "" {
		run = callbackRunSelftestCollections + "(" + t.Collection + ")"
	}

	boot.Plan.Callbacks = append(boot.Plan.Callbacks, run, shComment(end))

	return nil
}

func testScriptCommand(env SetupEnv, name string, boot *Boot) string {
	return filepath.Join(env.ScriptDir, "scripts", "test", name) + " " + boot.Name + "\n"
}

func markers(name string) (string, string) {
	return "starting-" + name, "end-" + name
}

func shComment(marker string) string {
	return callbackSh + "(# " + marker + ")"
}

func extractScript(start, end string) string {
	return fmt.Sprintf("awk '/%s/, /%s/' ../console.log | tee extracted.log", start, end)
}
