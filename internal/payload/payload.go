// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package payload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// Dir is the guest directory payload files are placed in.
const Dir = "/var/tmp/payload"

var (
	// ErrNotRegular is returned for payload paths that are not regular files.
	ErrNotRegular = errors.New("payload is not a regular file")

	// ErrDuplicateName is returned if two payload files have the same base
	// name.
	ErrDuplicateName = errors.New("duplicate payload file name")
)

// Write writes an archive with all files into w. Files are placed flat by
// their base name in [Dir].
func Write(w io.Writer, files []string) error {
	archive := NewCPIOWriter(w)

	// Parent directories in the archive must come before their content.
	var parent string

	for _, dir := range []string{"var", "tmp", "payload"} {
		parent = path.Join(parent, dir)

		err := archive.WriteDirectory(parent)
		if err != nil {
			return err
		}
	}

	seen := make(map[string]string, len(files))

	for _, file := range files {
		name := filepath.Base(file)
		if other, exists := seen[name]; exists {
			return fmt.Errorf("%w: %s and %s", ErrDuplicateName, other, file)
		}

		seen[name] = file

		err := archive.WriteFile(path.Join(parent, name), file)
		if err != nil {
			return err
		}
	}

	return archive.Close()
}

// WriteInitrd writes a copy of initrd with the payload archive appended to
// dst.
func WriteInitrd(dst, initrd string, files []string) error {
	src, err := os.Open(initrd)
	if err != nil {
		return fmt.Errorf("open initrd: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create initrd: %w", err)
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	if err != nil {
		return fmt.Errorf("copy initrd: %w", err)
	}

	err = Write(out, files)
	if err != nil {
		return err
	}

	err = out.Close()
	if err != nil {
		return fmt.Errorf("close initrd: %w", err)
	}

	return nil
}
