// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import (
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
)

// VM version tags with special meaning.
const (
	// VMVersionHost uses the emulator found in the host's PATH.
	VMVersionHost = "host"
	// VMVersionMainline uses an emulator built from the upstream main branch.
	VMVersionMainline = "mainline"
	// VMVersionDefault is replaced by the suite's default version.
	VMVersionDefault = "default"
)

const (
	keySeparator   = "@"
	vmTokenPrefix  = "qemu-"
	customPrefix   = "custom-"
	customHashSize = 12
)

// Dotted versions only need to start with a number and a dot, so release
// candidates like "9.0.0-rc1" are used as is.
var dottedVersionRE = regexp.MustCompile(`^[0-9]+\.`)

// VMVersionToken resolves a VM version tag into a canonical token that is
// safe to use in directory names.
//
// Fixed tags and dotted version numbers are used as is. Anything else, like
// a path to a custom emulator build, is replaced by a short content hash. So
// are dotted versions containing path or key separators.
func VMVersionToken(version string) string {
	switch {
	case version == VMVersionHost, version == VMVersionMainline:
		return version
	case dottedVersionRE.MatchString(version) && !strings.ContainsAny(version, "/"+keySeparator):
		return version
	}

	sum := sha1.Sum([]byte(version)) //nolint:gosec

	return customPrefix + hex.EncodeToString(sum[:])[:customHashSize]
}

// Plan holds the mutations the tests of a [Boot] queue before it is booted.
type Plan struct {
	// Named console callbacks run in order once the system is booted.
	Callbacks []string
	// Run network setup and smoke test after boot.
	NetTests bool
	// Selftest archive attached to the VM and unpacked after boot.
	SelftestsTarball string
	// Host files packed into an overlay archive for the guest.
	Payload []string
	// Additional arguments for external boot scripts.
	ExtraArgs []string
}

// Boot describes booting a kernel build and running tests on it.
type Boot struct {
	// Symbolic name. Also used as boot script name, if Script is empty.
	Name      string
	Defconfig string
	Image     string
	// Name of the boot script. Scripts starting with "qemu-" are driven
	// in-process.
	Script string
	// Additional kernel command line.
	Cmdline string
	// VM version tag. Empty for boots not using an emulator managed by us.
	Qemu string
	Tests []Test

	// Kernel is the referenced build. It is set by [Suite.AddBoot].
	Kernel *KernelBuild
	// Plan is filled by the test setup hooks.
	Plan Plan
}

// ScriptName returns the boot script name.
func (b *Boot) ScriptName() string {
	if b.Script == "" {
		return b.Name
	}

	return b.Script
}

// KernelName is the identity of the referenced [KernelBuild].
func (b *Boot) KernelName() string {
	return b.Defconfig + "@" + b.Image
}

// Subarch returns the [Subarch] of the referenced kernel configuration.
func (b *Boot) Subarch() Subarch {
	return SubarchOf(b.Defconfig)
}

// IsQemu returns true if the boot is run with a managed emulator version.
func (b *Boot) IsQemu() bool {
	return b.Qemu != ""
}

// Key returns the directory safe identity of the [Boot].
func (b *Boot) Key() string {
	return BootKey{
		Name:      b.Name,
		VMVersion: b.vmToken(),
		Defconfig: b.Defconfig,
		Image:     b.Image,
	}.String()
}

func (b *Boot) vmToken() string {
	if !b.IsQemu() {
		return ""
	}

	return VMVersionToken(b.Qemu)
}

// Description returns a human readable summary.
func (b *Boot) Description() string {
	desc := fmt.Sprintf("%s with %s using %s", b.Name, b.Defconfig, b.ScriptName())
	if b.IsQemu() {
		desc += " using qemu " + b.Qemu
	}

	return desc
}

// String implements [fmt.Stringer].
func (b *Boot) String() string {
	parts := []string{b.Name}
	if b.IsQemu() {
		parts = append(parts, b.Qemu)
	}

	return strings.Join(append(parts, b.Defconfig, b.Image), "/")
}

// Equal compares the declared configuration, which includes the declared
// payload. The rest of the [Plan] is filled by test setup and the resolved
// Kernel is not compared.
func (b *Boot) Equal(other *Boot) bool {
	return b.Name == other.Name &&
		b.Defconfig == other.Defconfig &&
		b.Image == other.Image &&
		b.ScriptName() == other.ScriptName() &&
		b.Cmdline == other.Cmdline &&
		b.Qemu == other.Qemu &&
		slices.Equal(b.Plan.Payload, other.Plan.Payload) &&
		reflect.DeepEqual(b.Tests, other.Tests)
}

// Clone returns a copy of the [Boot] that can be mutated by test setup
// without affecting the registered one.
func (b *Boot) Clone() *Boot {
	clone := *b
	clone.Tests = slices.Clone(b.Tests)
	clone.Plan = Plan{
		Callbacks:        slices.Clone(b.Plan.Callbacks),
		NetTests:         b.Plan.NetTests,
		SelftestsTarball: b.Plan.SelftestsTarball,
		Payload:          slices.Clone(b.Plan.Payload),
		ExtraArgs:        slices.Clone(b.Plan.ExtraArgs),
	}

	return &clone
}

func (b *Boot) describe() []string {
	names := make([]string, 0, len(b.Tests))
	for _, test := range b.Tests {
		names = append(names, test.Name())
	}

	return []string{
		"name: " + b.Name,
		"defconfig: " + b.Defconfig,
		"image: " + b.Image,
		"script: " + b.ScriptName(),
		"cmdline: " + b.Cmdline,
		"qemu: " + b.Qemu,
		"payload: " + strings.Join(b.Plan.Payload, ","),
		"tests: " + strings.Join(names, ","),
	}
}

// BootKey is the decomposed identity of a [Boot].
type BootKey struct {
	Name string
	// Canonical VM version token as returned by [VMVersionToken]. Empty for
	// boots without managed emulator.
	VMVersion string
	Defconfig string
	Image     string
}

var keyEscaper = strings.NewReplacer(
	"%", "%25",
	"/", "%2F",
	"@", "%40",
)

var keyUnescaper = strings.NewReplacer(
	"%2F", "/",
	"%40", "@",
	"%25", "%",
)

// String returns the directory safe representation.
func (k BootKey) String() string {
	parts := []string{keyEscaper.Replace(k.Name)}
	if k.VMVersion != "" {
		parts = append(parts, vmTokenPrefix+k.VMVersion)
	}

	parts = append(parts,
		keyEscaper.Replace(k.Defconfig),
		keyEscaper.Replace(k.Image),
	)

	return strings.Join(parts, keySeparator)
}

// ParseBootKey decomposes a key as returned by [Boot.Key].
func ParseBootKey(key string) (BootKey, error) {
	parts := strings.Split(key, keySeparator)

	var bootKey BootKey

	switch len(parts) {
	case 3: //nolint:mnd
		bootKey = BootKey{
			Name:      parts[0],
			Defconfig: parts[1],
			Image:     parts[2],
		}
	case 4: //nolint:mnd
		version, found := strings.CutPrefix(parts[1], vmTokenPrefix)
		if !found || version == "" {
			return BootKey{}, fmt.Errorf("%w: %s", ErrInvalidKey, key)
		}

		bootKey = BootKey{
			Name:      parts[0],
			VMVersion: version,
			Defconfig: parts[2],
			Image:     parts[3],
		}
	default:
		return BootKey{}, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	if bootKey.Name == "" || bootKey.Defconfig == "" || bootKey.Image == "" {
		return BootKey{}, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	bootKey.Name = keyUnescaper.Replace(bootKey.Name)
	bootKey.Defconfig = keyUnescaper.Replace(bootKey.Defconfig)
	bootKey.Image = keyUnescaper.Replace(bootKey.Image)

	return bootKey, nil
}
