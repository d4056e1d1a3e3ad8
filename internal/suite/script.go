// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const scriptMode = 0o700

const scriptHeader = "#!/bin/bash\n\n" +
	"[ -e environ ] && source environ\n\n" +
	"date\n\n"

// WriteScript writes an executable bash script with the given body.
//
// The script sources an "environ" file in its working directory, if present.
func WriteScript(path, body string) error {
	err := os.WriteFile(path, []byte(scriptHeader+body), scriptMode)
	if err != nil {
		return fmt.Errorf("write script: %w", err)
	}

	// WriteFile does not change the mode of existing files.
	err = os.Chmod(path, scriptMode)
	if err != nil {
		return fmt.Errorf("chmod script: %w", err)
	}

	return nil
}

// Symlink creates a link to target in dir named like the target. An
// existing link is replaced.
func Symlink(target, dir string) error {
	link := filepath.Join(dir, filepath.Base(target))

	err := os.Remove(link)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove link: %w", err)
	}

	err = os.Symlink(target, link)
	if err != nil {
		return fmt.Errorf("symlink: %w", err)
	}

	return nil
}
