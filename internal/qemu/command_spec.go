// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aibor/bootci/internal/sys"
)

const (
	pseriesNUMANodes = 4
	cloudPassword    = "linuxppc"
	cloudUser        = "root"
)

// Options are the per boot inputs of [NewCommandSpec].
type Options struct {
	// Directory containing the QEMU binaries. The binary is looked up in
	// PATH if empty.
	BinDir string
	// Path to the kernel (vmlinux).
	Kernel string
	// Byte order of the kernel.
	Endian sys.Endian
	// Directory containing the root disk images.
	RootDiskDir string
	// Modules and selftests archives attached as read-only drives.
	ModulesTarball   string
	SelftestsTarball string
	// Additional kernel command line.
	Cmdline string
	// Raw additional QEMU arguments.
	ExtraArgs []string
	// spectre_v2 mitigation status of the host, see [sys.SpectreV2].
	HostSpectreV2 string
}

// CommandSpec is the complete QEMU command definition for a boot together
// with what the guest side console session needs to know about it.
type CommandSpec struct {
	Executable string
	Machine    string
	Caps       []string
	CPU        string
	SMP        int
	Memory     string
	Accel      string
	Kernel     string
	// Path to the initrd. Empty for cloud images.
	Initrd    string
	Cmdline   []string
	Net       []Argument
	Drives    []Argument
	ExtraArgs []Argument

	// Patterns expected in /proc/cpuinfo of the guest.
	CPUInfo []string
	// Login credentials and shell prompt. Prompt is empty for the default
	// prompt of the standard root disks.
	Login    bool
	User     string
	Password string
	Prompt   string

	// Guest drive letters ("a" for /dev/vda) of the attached archives.
	// Empty if not attached.
	ModulesDrive   string
	SelftestsDrive string

	nextDrive int
	powernv   bool
}

// NewCommandSpec creates a [CommandSpec] with all machine specific defaults
// of the profile applied.
//
//nolint:cyclop,funlen
func NewCommandSpec(profile Profile, opts Options) (*CommandSpec, error) {
	defaults, exists := machines[profile.Machine]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMachine, profile.Machine)
	}

	extraArgs, err := ParseArgs(opts.ExtraArgs)
	if err != nil {
		return nil, err
	}

	spec := &CommandSpec{
		Executable: defaults.binary,
		Machine:    defaults.machine,
		CPU:        profile.CPU,
		Accel:      profile.Accel,
		Kernel:     opts.Kernel,
		Cmdline:    []string{"noreboot"},
		CPUInfo:    defaults.cpuinfo,
		powernv:    profile.is("powernv"),
	}

	if opts.BinDir != "" {
		spec.Executable = filepath.Join(opts.BinDir, spec.Executable)
	}

	if profile.is("pseries") {
		spec.pseriesCaps(opts.HostSpectreV2)
	}

	if profile.is("ppce500") && spec.CPU != "" {
		spec.CPUInfo = append([]string{`cpu\s+: ` + spec.CPU}, spec.CPUInfo...)
	}

	switch {
	case profile.Machine == "mac99":
		spec.SMP = 1
	case spec.Accel == AccelTCG:
		spec.SMP = 2
	default:
		spec.SMP = 8
	}

	switch {
	case profile.is("pseries"):
		spec.Memory = "4G"
		spec.ExtraArgs = append(spec.ExtraArgs, numaArgs(spec.SMP)...)
	case spec.powernv:
		spec.Memory = "4G"
	default:
		spec.Memory = "1G"
	}

	switch {
	case profile.is("pseries"):
		spec.Net = []Argument{RepeatableArg("nic", "user", "model=virtio-net-pci")}
	case spec.powernv:
		spec.Net = []Argument{
			RepeatableArg("netdev", "user", "id=net0"),
			RepeatableArg("device", "e1000e", "netdev=net0"),
		}
	default:
		spec.Net = []Argument{RepeatableArg("nic", "user")}
	}

	if spec.powernv {
		switch strings.ToUpper(spec.CPU) {
		case "POWER8":
			spec.Machine = "powernv8"
		case "POWER10":
			spec.Machine = "powernv10"
		default:
			spec.Machine = "powernv9"
		}
	}

	if profile.CloudImage != "" {
		spec.cloudImage(profile.CloudImage, opts.RootDiskDir)
	} else {
		spec.Initrd = filepath.Join(
			opts.RootDiskDir,
			InitrdSubarch(profile, opts.Endian)+"-rootfs.cpio.gz",
		)
	}

	if profile.is("pseries") {
		rng := RepeatableArg("device", "spapr-rng", "rng=rng0")
		if spec.Accel == AccelKVM {
			rng.value += ",use-kvm=true"
		}

		spec.ExtraArgs = append(spec.ExtraArgs,
			RepeatableArg("object", "rng-random", "filename=/dev/urandom", "id=rng0"),
			rng,
		)
	}

	if opts.ModulesTarball != "" {
		spec.ModulesDrive = spec.AddDrive("file="+opts.ModulesTarball, "format=raw", "readonly=on")
	}

	if opts.SelftestsTarball != "" {
		spec.SelftestsDrive = spec.AddDrive("file="+opts.SelftestsTarball, "format=raw", "readonly=on")
	}

	if opts.Cmdline != "" {
		spec.Cmdline = append(spec.Cmdline, opts.Cmdline)
	}

	spec.ExtraArgs = append(spec.ExtraArgs, extraArgs...)

	return spec, nil
}

func (s *CommandSpec) pseriesCaps(spectreV2 string) {
	if s.Accel == AccelTCG {
		s.Caps = append(s.Caps, "cap-htm=off")
	} else if !countCacheMitigated(spectreV2) {
		s.Caps = append(s.Caps, "cap-ccf-assist=off")
	}

	if s.CPU != "" && s.Accel == AccelKVM {
		if s.CPU != "host" {
			s.Caps = append(s.Caps, "max-cpu-compat="+strings.ToLower(s.CPU))
		}

		s.CPU = ""
	}
}

func countCacheMitigated(spectreV2 string) bool {
	// Unreadable status, assume the host is fine.
	if spectreV2 == "" {
		return true
	}

	for _, s := range []string{"Indirect branch cache disabled", "Software count cache flush"} {
		if strings.Contains(spectreV2, s) {
			return true
		}
	}

	return false
}

func numaArgs(smp int) []Argument {
	args := make([]Argument, 0, 2*pseriesNUMANodes)

	cpus := 0
	if smp%pseriesNUMANodes == 0 {
		cpus = smp / pseriesNUMANodes
	}

	for node := range pseriesNUMANodes {
		id := "m" + strconv.Itoa(node)
		numa := []string{"node", "nodeid=" + strconv.Itoa(node), "memdev=" + id}

		if cpus > 0 {
			first := node * cpus
			numa = append(numa, fmt.Sprintf("cpus=%d-%d", first, first+cpus-1))
		}

		args = append(args,
			RepeatableArg("object", "memory-backend-ram", "size=1G", "id="+id),
			RepeatableArg("numa", numa...),
		)
	}

	return args
}

func (s *CommandSpec) cloudImage(name, rootDiskDir string) {
	s.Login = true
	s.User = cloudUser
	s.Password = cloudPassword

	switch {
	case strings.HasPrefix(name, "ubuntu"):
		s.Prompt = `root@ubuntu:~#`
	case strings.HasPrefix(name, "fedora"):
		s.Prompt = `\[root@fedora ~\]#`
	case strings.HasPrefix(name, "debian"):
		s.Prompt = `root@debian:~#`
	}

	image := filepath.Join(rootDiskDir, name+".qcow2")
	drive := s.AddDrive("file="+image, "format=qcow2", "snapshot=on")
	s.AddDrive("file="+filepath.Join(rootDiskDir, "cloud-init-user-data.img"), "format=raw", "readonly=on")

	switch {
	case strings.HasPrefix(name, "ubuntu"):
		s.Cmdline = append([]string{"root=/dev/vd" + drive + "1"}, s.Cmdline...)
	case name == "fedora34", strings.HasPrefix(name, "debian"):
		s.Cmdline = append([]string{"root=/dev/vd" + drive + "2"}, s.Cmdline...)
	case strings.HasPrefix(name, "fedora"):
		s.Cmdline = append([]string{
			"root=/dev/vd" + drive + "5 rootfstype=btrfs rootflags=subvol=root",
			"systemd.mask=hcn-init.service systemd.hostname=fedora",
		}, s.Cmdline...)
	}
}

// AddDrive attaches a drive with the given QEMU drive options and returns
// its guest drive letter.
func (s *CommandSpec) AddDrive(options ...string) string {
	id := s.nextDrive
	s.nextDrive++

	iface := "if=virtio"

	if s.powernv {
		iface = "if=none"
		s.Drives = append(s.Drives, RepeatableArg(
			"device",
			"virtio-blk-pci",
			fmt.Sprintf("drive=drive%d", id),
			fmt.Sprintf("id=blk%d", id),
			fmt.Sprintf("bus=pcie.%d", id),
		))
	}

	options = append(options, iface, fmt.Sprintf("id=drive%d", id))
	s.Drives = append(s.Drives, RepeatableArg("drive", options...))

	return string(rune('a' + id))
}

// Args compiles the argument list, without the executable.
func (s *CommandSpec) Args() ([]string, error) {
	machine := strings.Join(append([]string{s.Machine}, s.Caps...), ",")

	args := []Argument{
		UniqueArg("nographic"),
		UniqueArg("vga", "none"),
		UniqueArg("M", machine),
		UniqueArg("smp", strconv.Itoa(s.SMP)),
		UniqueArg("m", s.Memory),
		UniqueArg("accel", s.Accel),
		UniqueArg("kernel", s.Kernel),
	}

	args = append(args, s.Net...)

	if s.Initrd != "" {
		args = append(args, UniqueArg("initrd", s.Initrd))
	}

	args = append(args, s.Drives...)

	if s.CPU != "" {
		args = append(args, UniqueArg("cpu", s.CPU))
	}

	if len(s.Cmdline) > 0 {
		args = append(args, UniqueArg("append", strings.Join(s.Cmdline, " ")))
	}

	args = append(args, s.ExtraArgs...)

	return BuildArgumentStrings(args)
}

// InitrdSubarch returns the sub architecture of the root disk initrd for the
// profile and kernel byte order.
func InitrdSubarch(profile Profile, endian sys.Endian) string {
	switch {
	case profile.Compat, profile.Binary() == binaryPPC:
		return "ppc"
	case endian == sys.LittleEndian:
		return "ppc64le"
	case profile.is("pseries"), profile.is("powernv"):
		return "ppc64"
	default:
		return "ppc64-novsx"
	}
}
