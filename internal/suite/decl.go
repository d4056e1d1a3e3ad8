// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package suite

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Test types in a [Declaration].
const (
	TestTypeScript        = "script"
	TestTypeSelftests     = "selftests"
	TestTypeQemuNet       = "qemu-net"
	TestTypeQemu          = "qemu"
	TestTypeQemuSelftests = "qemu-selftests"
)

// Declaration is the file representation of a [Suite].
type Declaration struct {
	Name            string         `yaml:"name" validate:"required"`
	ContinueOnError *bool          `yaml:"continue_on_error"`
	Qemus           []string       `yaml:"qemus"`
	DefaultQemu     string         `yaml:"default_qemu"`
	Images          []string       `yaml:"images" validate:"dive,required"`
	Kernels         []KernelDecl   `yaml:"kernels" validate:"dive"`
	Selftests       []SelftestDecl `yaml:"selftests" validate:"dive"`
	Boots           []BootDecl     `yaml:"boots" validate:"dive"`
}

// KernelDecl declares a [KernelBuild]. It is added once per suite image,
// unless Image is set.
type KernelDecl struct {
	Defconfig   string   `yaml:"defconfig" validate:"required"`
	Image       string   `yaml:"image"`
	MergeConfig []string `yaml:"merge_config"`
	Clang       bool     `yaml:"clang"`
	LLVMIAS     bool     `yaml:"llvm_ias"`
	Sparse      bool     `yaml:"sparse"`
	Modules     *bool    `yaml:"modules"`
}

// SelftestDecl declares a [SelftestBuild]. It is added once per suite
// image, unless Image is set.
type SelftestDecl struct {
	Image   string `yaml:"image"`
	Subarch string `yaml:"subarch" validate:"required,oneof=ppc64le ppc64 ppc"`
	Target  string `yaml:"target" validate:"omitempty,oneof=selftests ppctests"`
}

// BootDecl declares a [Boot]. It is added once per suite image, unless
// Image is set. With Qemu set, it is added once per VM version tag.
type BootDecl struct {
	Name      string     `yaml:"name" validate:"required"`
	Defconfig string     `yaml:"defconfig" validate:"required"`
	Image     string     `yaml:"image"`
	Script    string     `yaml:"script"`
	Cmdline   string     `yaml:"cmdline"`
	Qemu      bool       `yaml:"qemu"`
	Payload   []string   `yaml:"payload"`
	Tests     []TestDecl `yaml:"tests" validate:"dive"`
}

// TestDecl declares a [Test]. The fields used depend on the Type.
type TestDecl struct {
	//nolint:lll
	Type       string   `yaml:"type" validate:"required,oneof=script selftests qemu-net qemu qemu-selftests"`
	Name       string   `yaml:"name" validate:"required_if=Type script,required_if=Type selftests,required_if=Type qemu"`
	Subarch    string   `yaml:"subarch" validate:"omitempty,oneof=ppc64le ppc64 ppc"`
	Target     string   `yaml:"target" validate:"omitempty,oneof=selftests ppctests"`
	Collection string   `yaml:"collection"`
	Exclude    []string `yaml:"exclude"`
	Callbacks  []string `yaml:"callbacks"`
	Disabled   bool     `yaml:"disabled"`
}

// LoadOptions overrides declaration values.
type LoadOptions struct {
	Images []string
	Qemus  []string
}

// ParseDeclaration decodes and validates a YAML suite declaration.
func ParseDeclaration(reader io.Reader) (*Declaration, error) {
	var decl Declaration

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	err := decoder.Decode(&decl)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}

	err = validator.New(validator.WithRequiredStructEnabled()).Struct(&decl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDeclaration, err)
	}

	return &decl, nil
}

// Load reads a declaration and builds the [Suite] from it.
func Load(reader io.Reader, opts LoadOptions) (*Suite, error) {
	decl, err := ParseDeclaration(reader)
	if err != nil {
		return nil, err
	}

	return decl.Build(opts)
}

// Build creates the [Suite] described by the declaration.
func (d *Declaration) Build(opts LoadOptions) (*Suite, error) {
	suite := New(d.Name)

	if d.ContinueOnError != nil {
		suite.ContinueOnError = *d.ContinueOnError
	}

	if d.DefaultQemu != "" {
		suite.DefaultQemu = d.DefaultQemu
	}

	suite.Qemus = firstNonEmpty(opts.Qemus, d.Qemus, suite.Qemus)
	images := firstNonEmpty(opts.Images, d.Images)

	for _, decl := range d.Kernels {
		kernelImages, err := imagesFor(decl.Image, images)
		if err != nil {
			return nil, fmt.Errorf("kernel %s: %w", decl.Defconfig, err)
		}

		for _, image := range kernelImages {
			_, err := suite.AddKernel(decl.kernelBuild(image))
			if err != nil {
				return nil, err
			}
		}
	}

	for _, decl := range d.Selftests {
		selftestImages, err := imagesFor(decl.Image, images)
		if err != nil {
			return nil, fmt.Errorf("selftest %s: %w", decl.Subarch, err)
		}

		for _, image := range selftestImages {
			_, err := suite.AddSelftest(SelftestBuild{
				Image:   image,
				Subarch: Subarch(decl.Subarch),
				Target:  defaultString(decl.Target, TargetSelftests),
			})
			if err != nil {
				return nil, err
			}
		}
	}

	for _, decl := range d.Boots {
		bootImages, err := imagesFor(decl.Image, images)
		if err != nil {
			return nil, fmt.Errorf("boot %s: %w", decl.Name, err)
		}

		for _, image := range bootImages {
			err := decl.add(suite, image)
			if err != nil {
				return nil, fmt.Errorf("boot %s: %w", decl.Name, err)
			}
		}
	}

	return suite, nil
}

func (d KernelDecl) kernelBuild(image string) KernelBuild {
	modules := true
	if d.Modules != nil {
		modules = *d.Modules
	}

	return KernelBuild{
		Defconfig:   d.Defconfig,
		Image:       image,
		MergeConfig: d.MergeConfig,
		Clang:       d.Clang,
		LLVMIAS:     d.LLVMIAS,
		Sparse:      d.Sparse,
		Modules:     modules,
	}
}

func (d BootDecl) add(suite *Suite, image string) error {
	boot := Boot{
		Name:      d.Name,
		Defconfig: d.Defconfig,
		Image:     image,
		Script:    d.Script,
		Cmdline:   d.Cmdline,
		Plan:      Plan{Payload: d.Payload},
	}

	for _, testDecl := range d.Tests {
		test, err := testDecl.test(suite, image, SubarchOf(d.Defconfig))
		if err != nil {
			return err
		}

		boot.Tests = append(boot.Tests, test)
	}

	if d.Qemu {
		_, err := suite.AddQemuBoot(boot)
		return err
	}

	_, err := suite.AddBoot(boot)

	return err
}

func (d TestDecl) test(suite *Suite, image string, subarch Subarch) (Test, error) {
	selftests := func() (*SelftestBuild, error) {
		if d.Subarch != "" {
			subarch = Subarch(d.Subarch)
		}

		return suite.AddSelftest(SelftestBuild{
			Image:   image,
			Subarch: subarch,
			Target:  defaultString(d.Target, TargetSelftests),
		})
	}

	switch d.Type {
	case TestTypeScript:
		return &ScriptTest{TestName: d.Name}, nil
	case TestTypeSelftests:
		build, err := selftests()
		if err != nil {
			return nil, err
		}

		return &SelftestsTest{TestName: d.Name, Selftests: build}, nil
	case TestTypeQemuNet:
		return &QemuNetTest{Enabled: !d.Disabled}, nil
	case TestTypeQemu:
		return &QemuTest{BaseName: d.Name, Callbacks: d.Callbacks}, nil
	case TestTypeQemuSelftests:
		build, err := selftests()
		if err != nil {
			return nil, err
		}

		return &QemuSelftestsTest{
			Selftests:      build,
			Collection:     d.Collection,
			Exclude:        d.Exclude,
			ExtraCallbacks: d.Callbacks,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown test type %s", ErrInvalidDeclaration, d.Type)
	}
}

func imagesFor(image string, images []string) ([]string, error) {
	if image != "" {
		return []string{image}, nil
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no image given", ErrInvalidDeclaration)
	}

	return images, nil
}

func firstNonEmpty(lists ...[]string) []string {
	for _, list := range lists {
		if len(list) > 0 {
			return list
		}
	}

	return nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
