// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// FakeProcess is a [Process] that simulates a guest for tests.
//
// Output written with [FakeProcess.Output] is read by the [Console]. Every
// carriage return terminated line sent by the console is passed to the
// Responder, whose return value is output.
type FakeProcess struct {
	Responder func(line string) string

	reader *io.PipeReader
	writer *io.PipeWriter

	mu      sync.Mutex
	pending strings.Builder
	sent    []string

	terminated atomic.Bool
	closeOnce  sync.Once
	done       chan struct{}
}

var _ Process = (*FakeProcess)(nil)

// NewFakeProcess creates a new [FakeProcess].
func NewFakeProcess(responder func(line string) string) *FakeProcess {
	reader, writer := io.Pipe()

	return &FakeProcess{
		Responder: responder,
		reader:    reader,
		writer:    writer,
		done:      make(chan struct{}),
	}
}

// Read implements [io.Reader].
func (p *FakeProcess) Read(b []byte) (int, error) {
	return p.reader.Read(b) //nolint:wrapcheck
}

// Write implements [io.Writer].
func (p *FakeProcess) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.pending.Write(b)

	var lines []string

	for {
		buffered := p.pending.String()

		line, rest, found := strings.Cut(buffered, "\r")
		if !found {
			break
		}

		lines = append(lines, line)
		p.sent = append(p.sent, line)

		p.pending.Reset()
		p.pending.WriteString(rest)
	}
	p.mu.Unlock()

	for _, line := range lines {
		if p.Responder == nil {
			continue
		}

		if out := p.Responder(line); out != "" {
			p.Output(out)
		}
	}

	return len(b), nil
}

// Output makes the text available to the reader.
func (p *FakeProcess) Output(text string) {
	_, _ = io.WriteString(p.writer, text)
}

// Exit ends the output stream like an exiting process.
func (p *FakeProcess) Exit() {
	p.closeOnce.Do(func() {
		_ = p.writer.Close()
		close(p.done)
	})
}

// Terminate implements [Process].
func (p *FakeProcess) Terminate() error {
	p.terminated.Store(true)
	p.Exit()

	return nil
}

// Wait implements [Process].
func (p *FakeProcess) Wait() error {
	<-p.done
	return nil
}

// Terminated returns true if [FakeProcess.Terminate] was called.
func (p *FakeProcess) Terminated() bool {
	return p.terminated.Load()
}

// Sent returns all lines sent to the process.
func (p *FakeProcess) Sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.sent...)
}
