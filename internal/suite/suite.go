// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import "strings"

// registry is an insertion ordered map.
type registry[T any] struct {
	keys  []string
	items map[string]T
}

func (r *registry[T]) get(key string) (T, bool) {
	item, exists := r.items[key]
	return item, exists
}

func (r *registry[T]) put(key string, item T) {
	if r.items == nil {
		r.items = make(map[string]T)
	}

	if _, exists := r.items[key]; !exists {
		r.keys = append(r.keys, key)
	}

	r.items[key] = item
}

func (r *registry[T]) values() []T {
	values := make([]T, 0, len(r.keys))
	for _, key := range r.keys {
		values = append(values, r.items[key])
	}

	return values
}

func (r *registry[T]) len() int {
	return len(r.keys)
}

// Suite is a named collection of kernel builds, selftest builds and boots.
//
// Entities are kept in registration order. The Suite is built once and not
// modified afterwards.
type Suite struct {
	Name string
	// Keep scheduling jobs after a job failed.
	ContinueOnError bool
	// VM version tags. Every qemu boot is registered once per tag.
	Qemus []string
	// Replacement for the [VMVersionDefault] tag.
	DefaultQemu string

	kernels   registry[*KernelBuild]
	selftests registry[*SelftestBuild]
	boots     registry[*Boot]
}

// New creates a new [Suite] with the default policy.
func New(name string) *Suite {
	return &Suite{
		Name:            name,
		ContinueOnError: true,
		Qemus:           []string{VMVersionDefault},
		DefaultQemu:     VMVersionHost,
	}
}

// DirName returns the directory safe name of the suite.
func (s *Suite) DirName() string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(s.Name)
}

// AddKernel registers the [KernelBuild].
//
// Registering an identical build again is a no-op. If a different build
// with the same name exists, a [ConflictError] is returned.
func (s *Suite) AddKernel(kernel KernelBuild) (*KernelBuild, error) {
	name := kernel.Name()

	if other, exists := s.kernels.get(name); exists {
		if !other.Equal(&kernel) {
			return nil, &ConflictError{
				Kind:     "kernels",
				Key:      name,
				Existing: other.describe(),
				New:      kernel.describe(),
			}
		}

		return other, nil
	}

	s.kernels.put(name, &kernel)

	return &kernel, nil
}

// AddSelftest registers the [SelftestBuild] and returns the registered
// instance that tests may reference.
func (s *Suite) AddSelftest(selftest SelftestBuild) (*SelftestBuild, error) {
	name := selftest.Name()

	if other, exists := s.selftests.get(name); exists {
		if !other.Equal(&selftest) {
			return nil, &ConflictError{
				Kind:     "selftests",
				Key:      name,
				Existing: other.describe(),
				New:      selftest.describe(),
			}
		}

		return other, nil
	}

	s.selftests.put(name, &selftest)

	return &selftest, nil
}

// AddBoot registers the [Boot] under its key.
//
// The referenced kernel build must be registered already, otherwise an
// [UnresolvedReferenceError] is returned. The same conflict rules as for
// [Suite.AddKernel] apply.
func (s *Suite) AddBoot(boot Boot) (*Boot, error) {
	kernel, exists := s.kernels.get(boot.KernelName())
	if !exists {
		return nil, &UnresolvedReferenceError{
			Boot:   boot.Name,
			Kernel: boot.KernelName(),
		}
	}

	boot.Kernel = kernel
	key := boot.Key()

	if other, exists := s.boots.get(key); exists {
		if !other.Equal(&boot) {
			return nil, &ConflictError{
				Kind:     "boots",
				Key:      key,
				Existing: other.describe(),
				New:      boot.describe(),
			}
		}

		return other, nil
	}

	s.boots.put(key, &boot)

	return &boot, nil
}

// AddQemuBoot registers one [Boot] per VM version tag of the suite.
func (s *Suite) AddQemuBoot(boot Boot) ([]*Boot, error) {
	boots := make([]*Boot, 0, len(s.Qemus))

	for _, version := range s.qemus() {
		qemuBoot := boot
		qemuBoot.Qemu = version

		added, err := s.AddBoot(qemuBoot)
		if err != nil {
			return nil, err
		}

		boots = append(boots, added)
	}

	return boots, nil
}

func (s *Suite) qemus() []string {
	qemus := s.Qemus
	if len(qemus) == 0 {
		qemus = []string{VMVersionDefault}
	}

	resolved := make([]string, 0, len(qemus))

	for _, version := range qemus {
		if version == VMVersionDefault || version == "" {
			version = s.DefaultQemu
			if version == "" {
				version = VMVersionHost
			}
		}

		resolved = append(resolved, version)
	}

	return resolved
}

// Kernels returns all kernel builds in registration order.
func (s *Suite) Kernels() []*KernelBuild {
	return s.kernels.values()
}

// Selftests returns all selftest builds in registration order.
func (s *Suite) Selftests() []*SelftestBuild {
	return s.selftests.values()
}

// Boots returns all boots in registration order.
func (s *Suite) Boots() []*Boot {
	return s.boots.values()
}

// Kernel returns the kernel build with the given name.
func (s *Suite) Kernel(name string) (*KernelBuild, bool) {
	return s.kernels.get(name)
}

// Boot returns the boot with the given key.
func (s *Suite) Boot(key string) (*Boot, bool) {
	return s.boots.get(key)
}

// Len returns the number of kernels, selftests and boots.
func (s *Suite) Len() (int, int, int) {
	return s.kernels.len(), s.selftests.len(), s.boots.len()
}
