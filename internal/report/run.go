// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package report

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// NewRunID returns a new unique run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// JobRecord is the outcome of a single job.
type JobRecord struct {
	Name     string        `yaml:"name"`
	Phase    string        `yaml:"phase"`
	Result   string        `yaml:"result"`
	Duration time.Duration `yaml:"duration"`
	Error    string        `yaml:"error,omitempty"`
	Log      string        `yaml:"log,omitempty"`
}

// Run is the summary of a suite run.
type Run struct {
	ID       string            `yaml:"id"`
	Suite    string            `yaml:"suite"`
	Revision string            `yaml:"revision,omitempty"`
	Started  time.Time         `yaml:"started"`
	Finished time.Time         `yaml:"finished"`
	Success  bool              `yaml:"success"`
	Settings map[string]string `yaml:"settings,omitempty"`
	Jobs     []JobRecord       `yaml:"jobs"`
}

// WriteFile writes the summary as YAML.
func (r *Run) WriteFile(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	err = os.WriteFile(path, data, 0o644) //nolint:gosec
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

// ReadRun reads a summary written by [Run.WriteFile].
func ReadRun(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run: %w", err)
	}

	var run Run

	err = yaml.Unmarshal(data, &run)
	if err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}

	return &run, nil
}
