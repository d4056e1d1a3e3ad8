// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WriteTestELF writes a minimal ELF header with the given byte order and
// machine into a file in dir and returns its path.
func WriteTestELF(tb testing.TB, dir string, endian Endian, machine elf.Machine) string {
	tb.Helper()

	var (
		order binary.ByteOrder = binary.BigEndian
		data                   = elf.ELFDATA2MSB
	)

	if endian == LittleEndian {
		order = binary.LittleEndian
		data = elf.ELFDATA2LSB
	}

	hdr := elf.Header64{
		Type:    uint16(elf.ET_EXEC),
		Machine: uint16(machine),
		Version: uint32(elf.EV_CURRENT),
		Ehsize:  uint16(binary.Size(elf.Header64{})),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(data)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	path := filepath.Join(dir, "vmlinux")

	file, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create elf file: %v", err)
	}
	defer file.Close()

	err = binary.Write(file, order, hdr)
	if err != nil {
		tb.Fatalf("write elf header: %v", err)
	}

	return path
}
