// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"strings"
)

// ProfilePrefix is the prefix of boot script names driven by this package.
const ProfilePrefix = "qemu-"

// Accelerators.
const (
	AccelTCG = "tcg"
	AccelKVM = "kvm"
)

const (
	binaryPPC64 = "qemu-system-ppc64"
	binaryPPC   = "qemu-system-ppc"
)

type machineDefaults struct {
	machine string
	binary  string
	cpu     string
	cpuinfo []string
	// Machine accepts the POWER CPU modifiers.
	power bool
}

var machines = map[string]machineDefaults{
	"pseries": {
		machine: "pseries",
		binary:  binaryPPC64,
		cpuinfo: []string{`IBM pSeries \(emulated by qemu\)`},
		power:   true,
	},
	"powernv": {
		machine: "powernv",
		binary:  binaryPPC64,
		cpuinfo: []string{`IBM PowerNV \(emulated by qemu\)`},
		power:   true,
	},
	"mac99": {
		machine: "mac99",
		binary:  binaryPPC,
		cpuinfo: []string{`PowerMac3,1 MacRISC MacRISC2 Power Macintosh`},
	},
	"g3beige": {
		machine: "g3beige",
		binary:  binaryPPC,
		cpuinfo: []string{`AAPL,PowerMac G3 MacRISC`},
	},
	"g5": {
		machine: "mac99",
		binary:  binaryPPC64,
	},
	"44x": {
		machine: "bamboo",
		binary:  binaryPPC,
		cpuinfo: []string{`PowerPC 44x Platform`},
	},
	"e500mc": {
		machine: "ppce500",
		binary:  binaryPPC,
		cpu:     "e500mc",
		cpuinfo: []string{`QEMU ppce500`},
	},
	"ppc64e": {
		machine: "ppce500",
		binary:  binaryPPC64,
		cpu:     "e5500",
		cpuinfo: []string{`QEMU ppce500`},
	},
	"e6500": {
		machine: "ppce500",
		binary:  binaryPPC64,
		cpu:     "e6500",
		cpuinfo: []string{`QEMU ppce500`},
	},
}

var powerCPUs = map[string]string{
	"p8":  "POWER8",
	"p9":  "POWER9",
	"p10": "POWER10",
}

var cloudImages = []string{"debian", "fedora", "ubuntu"}

// Profile is a machine profile as encoded in a boot script name.
type Profile struct {
	// Key into the machine table, e.g. "pseries" or "g5".
	Machine string
	// CPU model. Machine default if empty.
	CPU string
	// Accelerator, [AccelTCG] or [AccelKVM].
	Accel string
	// Boot the 32-bit compatible root disk.
	Compat bool
	// Name of a cloud image in the root disk directory to boot instead of
	// an initrd.
	CloudImage string
}

// ParseProfile parses a boot script name of the form
// "qemu-<machine>[+<modifier>...]". Modifiers are POWER CPU versions ("p8",
// "p9", "p10"), accelerators ("tcg", "kvm"), "compat" and cloud image names
// ("debian", "fedora39", ...).
func ParseProfile(script string) (Profile, error) {
	rest, found := strings.CutPrefix(script, ProfilePrefix)
	if !found {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotQemuProfile, script)
	}

	parts := strings.Split(rest, "+")

	defaults, exists := machines[parts[0]]
	if !exists {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownMachine, parts[0])
	}

	profile := Profile{
		Machine: parts[0],
		CPU:     defaults.cpu,
		Accel:   AccelTCG,
	}

	for _, modifier := range parts[1:] {
		err := profile.apply(modifier, defaults)
		if err != nil {
			return Profile{}, fmt.Errorf("%s: %w", script, err)
		}
	}

	return profile, nil
}

func (p *Profile) apply(modifier string, defaults machineDefaults) error {
	if cpu, isCPU := powerCPUs[modifier]; isCPU {
		if !defaults.power {
			return &ArgumentError{modifier + " not supported by " + p.Machine}
		}

		p.CPU = cpu

		return nil
	}

	switch modifier {
	case AccelTCG, AccelKVM:
		p.Accel = modifier
		return nil
	case "compat":
		p.Compat = true
		return nil
	}

	for _, image := range cloudImages {
		if strings.HasPrefix(modifier, image) {
			p.CloudImage = modifier
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrUnknownModifier, modifier)
}

// NeedsKVM returns true if the profile requires hardware virtualization.
func (p Profile) NeedsKVM() bool {
	return p.Accel == AccelKVM
}

// Binary returns the name of the QEMU executable for the profile.
func (p Profile) Binary() string {
	return machines[p.Machine].binary
}

func (p Profile) is(machine string) bool {
	return machines[p.Machine].machine == machine
}
