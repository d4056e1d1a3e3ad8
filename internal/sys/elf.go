// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"debug/elf"
	"errors"
	"fmt"
)

// Endian is the byte order of an ELF file.
type Endian string

// Byte orders.
const (
	LittleEndian Endian = "little"
	BigEndian    Endian = "big"
)

// ReadELFEndian reads the byte order of the powerpc ELF file with the given
// path.
func ReadELFEndian(path string) (Endian, error) {
	file, err := elf.Open(path)
	if err != nil {
		var formatErr *elf.FormatError
		if errors.As(err, &formatErr) {
			return "", fmt.Errorf("%s %w", path, ErrNotELFFile)
		}

		return "", fmt.Errorf("read elf: %w", err)
	}
	defer file.Close()

	switch file.Machine {
	case elf.EM_PPC, elf.EM_PPC64:
	default:
		return "", fmt.Errorf("%w: %s", ErrMachineNotSupported, file.Machine)
	}

	if file.Data == elf.ELFDATA2LSB {
		return LittleEndian, nil
	}

	return BigEndian, nil
}
