// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import "path/filepath"

// Selftest build targets.
const (
	TargetSelftests = "selftests"
	TargetPPCTests  = "ppctests"
)

// SelftestTarball is the name of the archive a selftest build produces.
const SelftestTarball = "selftests.tar.gz"

// SelftestBuild describes a build of a kernel selftest collection.
type SelftestBuild struct {
	Image   string
	Subarch Subarch
	Target  string
}

// TargetDir returns the directory name prefix for the target.
func (s *SelftestBuild) TargetDir() string {
	if s.Target == TargetPPCTests {
		return "selftests_powerpc"
	}

	return "selftests"
}

// FullImage returns the image qualified with the [Subarch].
func (s *SelftestBuild) FullImage() string {
	return s.Subarch.FullImage(s.Image)
}

// Name is the identity of the [SelftestBuild]. It is used as output
// directory name as well.
func (s *SelftestBuild) Name() string {
	return s.TargetDir() + "@" + s.FullImage()
}

// TarballPath returns the path of the build's archive in the given build
// directory.
func (s *SelftestBuild) TarballPath(buildDir string) string {
	return filepath.Join(buildDir, s.Name(), SelftestTarball)
}

// Equal compares all configuration fields.
func (s *SelftestBuild) Equal(other *SelftestBuild) bool {
	return *s == *other
}

// String implements [fmt.Stringer].
func (s *SelftestBuild) String() string {
	return s.Target + "/" + s.FullImage()
}

func (s *SelftestBuild) describe() []string {
	return []string{
		"image: " + s.Image,
		"subarch: " + string(s.Subarch),
		"target: " + s.Target,
	}
}
