// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package report

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress counts finished jobs of a phase. A nil *Progress does nothing, so
// callers do not need to care if progress is shown at all.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a [Progress] for total jobs, rendered to w.
func NewProgress(w io.Writer, total int, description string) *Progress {
	return &Progress{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// Done counts a finished job.
func (p *Progress) Done() {
	if p == nil {
		return
	}

	_ = p.bar.Add(1)
}

// Close finishes the bar.
func (p *Progress) Close() {
	if p == nil {
		return
	}

	_ = p.bar.Finish()
}
