// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	kvmDevice   = "/dev/kvm"
	kvmHVModule = "/sys/module/kvm_hv"
	spectreV2   = "/sys/devices/system/cpu/vulnerabilities/spectre_v2"
)

// KVMAvailable checks if hardware virtualization for powerpc guests is
// available: the kvm_hv module is loaded and the KVM device is writable.
func KVMAvailable() bool {
	return kvmAvailable(kvmDevice, kvmHVModule)
}

func kvmAvailable(device, module string) bool {
	_, err := os.Stat(module)
	if err != nil {
		return false
	}

	return unix.Access(device, unix.W_OK) == nil
}

// SpectreV2 returns the spectre_v2 mitigation status of the host CPU. It is
// empty if the status is not readable.
func SpectreV2() string {
	return readStatus(spectreV2)
}

func readStatus(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}
