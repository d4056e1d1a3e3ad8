// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sched

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// Func is the work function of a [Job]. It gets the 1-based sequence number
// of the job and the total number of jobs for progress reporting.
//
// A nil return value signals success.
type Func func(ctx context.Context, seq, total int) error

// Job is a single independent unit of work.
type Job struct {
	Name string
	Func Func
}

// Result is the outcome of a single [Job].
type Result struct {
	Name     string
	Seq      int
	Err      error
	Duration time.Duration
}

// OK returns true if the job succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Report is the aggregated outcome of a [Scheduler.Run].
type Report struct {
	// Results of all started jobs in completion order.
	Results []Result
	// Names of jobs that were never started.
	Skipped []string
}

// OK returns true if all started jobs succeeded and no job was skipped.
func (r *Report) OK() bool {
	if len(r.Skipped) > 0 {
		return false
	}

	for _, result := range r.Results {
		if !result.OK() {
			return false
		}
	}

	return true
}

// Failed returns the results of failed jobs.
func (r *Report) Failed() []Result {
	var failed []Result

	for _, result := range r.Results {
		if !result.OK() {
			failed = append(failed, result)
		}
	}

	return failed
}

// Scheduler runs [Job]s with bounded parallelism.
type Scheduler struct {
	// Maximum number of concurrently running jobs. 0 runs all jobs at once.
	Factor int
	// Keep starting jobs after a job failed.
	ContinueOnError bool

	// OnStart is called before a job is started, if set.
	OnStart func(job Job, seq, total int)
	// OnDone is called after a job finished, if set.
	OnDone func(result Result, total int)
}

// Run runs all jobs in FIFO order and returns the aggregated [Report].
//
// If the context is canceled, no further jobs are started. Running jobs
// get the canceled context and are waited for.
func (s *Scheduler) Run(ctx context.Context, jobs []Job) *Report {
	total := len(jobs)

	factor := s.Factor
	if factor <= 0 || factor > total {
		factor = total
	}

	report := &Report{}
	results := make(chan Result, total)
	pending := jobs
	running := 0
	seq := 0
	ok := true

	for len(pending) > 0 && (ok || s.ContinueOnError) && ctx.Err() == nil {
		for running < factor && len(pending) > 0 {
			job := pending[0]
			pending = pending[1:]
			seq++
			running++

			slog.Debug("Starting job",
				slog.String("job", job.Name),
				slog.Int("seq", seq),
				slog.Int("running", running))

			if s.OnStart != nil {
				s.OnStart(job, seq, total)
			}

			go runJob(ctx, job, seq, total, results)
		}

		result := s.collect(results, total)
		running--
		ok = ok && result.OK()

		report.Results = append(report.Results, result)
	}

	for _, job := range pending {
		report.Skipped = append(report.Skipped, job.Name)
	}

	for ; running > 0; running-- {
		result := s.collect(results, total)
		report.Results = append(report.Results, result)
	}

	return report
}

func (s *Scheduler) collect(results <-chan Result, total int) Result {
	result := <-results

	slog.Debug("Job finished",
		slog.String("job", result.Name),
		slog.Int("seq", result.Seq),
		slog.Duration("duration", result.Duration),
		slog.Any("error", result.Err))

	if s.OnDone != nil {
		s.OnDone(result, total)
	}

	return result
}

func runJob(ctx context.Context, job Job, seq, total int, results chan<- Result) {
	start := time.Now()
	result := Result{
		Name: job.Name,
		Seq:  seq,
	}

	defer func() {
		if value := recover(); value != nil {
			result.Err = &PanicError{
				Value: value,
				Stack: debug.Stack(),
			}
		}

		result.Duration = time.Since(start)
		results <- result
	}()

	result.Err = job.Func(ctx, seq, total)
}
