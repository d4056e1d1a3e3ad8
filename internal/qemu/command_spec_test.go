// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu_test

import (
	"testing"

	"github.com/aibor/bootci/internal/qemu"
	"github.com/aibor/bootci/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSpec(t *testing.T, script string, opts qemu.Options) *qemu.CommandSpec {
	t.Helper()

	profile, err := qemu.ParseProfile(script)
	require.NoError(t, err)

	spec, err := qemu.NewCommandSpec(profile, opts)
	require.NoError(t, err)

	return spec
}

func TestNewCommandSpec_Pseries(t *testing.T) {
	spec := newSpec(t, "qemu-pseries+p9+tcg", qemu.Options{
		Kernel:         "/build/vmlinux",
		Endian:         sys.LittleEndian,
		RootDiskDir:    "/root-disks",
		ModulesTarball: "/build/modules.tar.gz",
		Cmdline:        "debug",
	})

	args, err := spec.Args()
	require.NoError(t, err)

	assert.Equal(t, "qemu-system-ppc64", spec.Executable)
	assert.Equal(t, "a", spec.ModulesDrive)
	assert.Empty(t, spec.SelftestsDrive)
	assert.Equal(t, []string{`IBM pSeries \(emulated by qemu\)`}, spec.CPUInfo)
	assert.Equal(t, []string{
		"-nographic",
		"-vga", "none",
		"-M", "pseries,cap-htm=off",
		"-smp", "2",
		"-m", "4G",
		"-accel", "tcg",
		"-kernel", "/build/vmlinux",
		"-nic", "user,model=virtio-net-pci",
		"-initrd", "/root-disks/ppc64le-rootfs.cpio.gz",
		"-drive", "file=/build/modules.tar.gz,format=raw,readonly=on,if=virtio,id=drive0",
		"-cpu", "POWER9",
		"-append", "noreboot debug",
		"-object", "memory-backend-ram,size=1G,id=m0",
		"-numa", "node,nodeid=0,memdev=m0",
		"-object", "memory-backend-ram,size=1G,id=m1",
		"-numa", "node,nodeid=1,memdev=m1",
		"-object", "memory-backend-ram,size=1G,id=m2",
		"-numa", "node,nodeid=2,memdev=m2",
		"-object", "memory-backend-ram,size=1G,id=m3",
		"-numa", "node,nodeid=3,memdev=m3",
		"-object", "rng-random,filename=/dev/urandom,id=rng0",
		"-device", "spapr-rng,rng=rng0",
	}, args)
}

func TestNewCommandSpec_PseriesKVM(t *testing.T) {
	spec := newSpec(t, "qemu-pseries+p9+kvm", qemu.Options{
		Kernel:        "/build/vmlinux",
		Endian:        sys.BigEndian,
		RootDiskDir:   "/root-disks",
		BinDir:        "/opt/qemu/bin",
		HostSpectreV2: "Vulnerable",
	})

	assert.Equal(t, "/opt/qemu/bin/qemu-system-ppc64", spec.Executable)
	assert.Equal(t, []string{"cap-ccf-assist=off", "max-cpu-compat=power9"}, spec.Caps)
	assert.Empty(t, spec.CPU)
	assert.Equal(t, 8, spec.SMP)
	assert.Equal(t, "/root-disks/ppc64-rootfs.cpio.gz", spec.Initrd)

	args, err := spec.Args()
	require.NoError(t, err)
	assert.Contains(t, args, "node,nodeid=1,memdev=m1,cpus=2-3")
	assert.Contains(t, args, "spapr-rng,rng=rng0,use-kvm=true")
}

func TestNewCommandSpec_Powernv(t *testing.T) {
	spec := newSpec(t, "qemu-powernv+p8", qemu.Options{
		Kernel:           "/build/vmlinux",
		Endian:           sys.LittleEndian,
		RootDiskDir:      "/root-disks",
		ModulesTarball:   "/build/modules.tar.gz",
		SelftestsTarball: "/build/selftests.tar.gz",
	})

	assert.Equal(t, "powernv8", spec.Machine)
	assert.Equal(t, "b", spec.SelftestsDrive)

	args, err := spec.Args()
	require.NoError(t, err)

	assert.Subset(t, args, []string{
		"-netdev", "user,id=net0",
		"-device", "e1000e,netdev=net0",
		"virtio-blk-pci,drive=drive1,id=blk1,bus=pcie.1",
		"file=/build/selftests.tar.gz,format=raw,readonly=on,if=none,id=drive1",
	})
}

func TestNewCommandSpec_Embedded(t *testing.T) {
	tests := []struct {
		script  string
		binary  string
		machine string
		smp     int
		initrd  string
		cpuinfo []string
	}{
		{
			script:  "qemu-mac99",
			binary:  "qemu-system-ppc",
			machine: "mac99",
			smp:     1,
			initrd:  "ppc-rootfs.cpio.gz",
			cpuinfo: []string{`PowerMac3,1 MacRISC MacRISC2 Power Macintosh`},
		},
		{
			script:  "qemu-ppc64e",
			binary:  "qemu-system-ppc64",
			machine: "ppce500",
			smp:     2,
			initrd:  "ppc64-novsx-rootfs.cpio.gz",
			cpuinfo: []string{`cpu\s+: e5500`, `QEMU ppce500`},
		},
		{
			script:  "qemu-g5+compat",
			binary:  "qemu-system-ppc64",
			machine: "mac99",
			smp:     2,
			initrd:  "ppc-rootfs.cpio.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.script, func(t *testing.T) {
			spec := newSpec(t, tt.script, qemu.Options{
				Kernel: "vmlinux",
				Endian: sys.BigEndian,
			})

			assert.Equal(t, tt.binary, spec.Executable)
			assert.Equal(t, tt.machine, spec.Machine)
			assert.Equal(t, tt.smp, spec.SMP)
			assert.Equal(t, "1G", spec.Memory)
			assert.Equal(t, tt.initrd, spec.Initrd)
			assert.Equal(t, tt.cpuinfo, spec.CPUInfo)
			assert.Equal(t, []qemu.Argument{qemu.RepeatableArg("nic", "user")}, spec.Net)
		})
	}
}

func TestNewCommandSpec_CloudImage(t *testing.T) {
	spec := newSpec(t, "qemu-pseries+p9+fedora39", qemu.Options{
		Kernel:      "vmlinux",
		Endian:      sys.LittleEndian,
		RootDiskDir: "/root-disks",
	})

	assert.True(t, spec.Login)
	assert.Equal(t, "root", spec.User)
	assert.Equal(t, "linuxppc", spec.Password)
	assert.Equal(t, `\[root@fedora ~\]#`, spec.Prompt)
	assert.Empty(t, spec.Initrd)
	assert.Equal(t, []string{
		"root=/dev/vda5 rootfstype=btrfs rootflags=subvol=root",
		"systemd.mask=hcn-init.service systemd.hostname=fedora",
		"noreboot",
	}, spec.Cmdline)
	require.Len(t, spec.Drives, 2)
	assert.Equal(t, "file=/root-disks/fedora39.qcow2,format=qcow2,snapshot=on,if=virtio,id=drive0", spec.Drives[0].Value())
}

func TestCommandSpec_ArgsCollision(t *testing.T) {
	profile, err := qemu.ParseProfile("qemu-pseries")
	require.NoError(t, err)

	spec, err := qemu.NewCommandSpec(profile, qemu.Options{
		Kernel:    "vmlinux",
		ExtraArgs: []string{"-m", "8G"},
	})
	require.NoError(t, err)

	_, err = spec.Args()
	require.ErrorIs(t, err, qemu.ErrArgumentCollision)
}

func TestBinDir(t *testing.T) {
	assert.Empty(t, qemu.BinDir("host", "/ci"))
	assert.Equal(t, "/opt/qemu/bin", qemu.BinDir("/opt/qemu/bin", "/ci"))
	assert.Equal(t, "/ci/external/qemu/qemu-8.2/install/bin", qemu.BinDir("8.2", "/ci"))
}
