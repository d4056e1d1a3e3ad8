// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/sync/errgroup"
)

// Timeout values with special meaning for the expect methods.
const (
	// DefaultTimeout uses [Config.Timeout].
	DefaultTimeout time.Duration = -1
	// NoTimeout waits indefinitely.
	NoTimeout time.Duration = 0
)

// DefaultPrompt is the shell prompt of the standard root disks.
const DefaultPrompt = "/ #"

// DefaultBugPatterns are kernel messages that indicate a crash.
var DefaultBugPatterns = []string{
	`Unable to handle kernel paging request`,
	`Oops: Kernel access of bad area`,
	`Kernel panic - not syncing:`,
	`------------\[ cut here \]------------`,
	`\( 700 \) Program Exception`,
}

const endTracePattern = `--\[ end trace`

const (
	escape = '\x1b'
	bell   = '\a'
)

const (
	readSize          = 4096
	maxEscapeLen      = 256
	defaultMaxBuffer  = 1 << 20
	tailSize          = 512
	defaultDrainWait  = 10 * time.Second
	defaultDrainGrace = 5 * time.Second
)

// Process is a running child process whose combined output is read and
// whose input is written by the [Console].
type Process interface {
	io.ReadWriter
	// Terminate stops the process.
	Terminate() error
	// Wait waits for the process to exit.
	Wait() error
}

// Config configures a [Console].
type Config struct {
	// Timeout used by expect calls with [DefaultTimeout]. Zero means no
	// timeout.
	Timeout time.Duration
	// Log receives the raw output, if set.
	Log io.Writer
	// Regular expressions that abort the session. [DefaultBugPatterns] are
	// used if nil.
	BugPatterns []string
	// How long to wait for the end of a crash dump after a bug pattern
	// matched. Defaults to 10s.
	DrainWait time.Duration
	// How long to let the process run if the end of the crash dump was not
	// seen. Defaults to 5s.
	DrainGrace time.Duration
	// Maximum size of unmatched output kept for matching. Defaults to 1MiB.
	MaxBuffer int
}

func (c *Config) setDefaults() {
	if c.BugPatterns == nil {
		c.BugPatterns = DefaultBugPatterns
	}

	if c.DrainWait == 0 {
		c.DrainWait = defaultDrainWait
	}

	if c.DrainGrace == 0 {
		c.DrainGrace = defaultDrainGrace
	}

	if c.MaxBuffer <= 0 {
		c.MaxBuffer = defaultMaxBuffer
	}
}

// Console is an expect style driver for a [Process].
//
// Methods must not be called concurrently.
type Console struct {
	proc  Process
	cfg   Config
	bugs  []*regexp.Regexp
	group errgroup.Group

	mu      sync.Mutex
	buf     []byte
	eof     bool
	readErr error
	changed chan struct{}

	prompts     []string
	deadline    time.Time
	bugsIgnored bool
	match       []string
	before      string
}

// New creates a new [Console] and starts reading the output of the process.
func New(proc Process, cfg Config) (*Console, error) {
	cfg.setDefaults()

	bugs, err := compile(cfg.BugPatterns)
	if err != nil {
		return nil, fmt.Errorf("bug patterns: %w", err)
	}

	console := &Console{
		proc:    proc,
		cfg:     cfg,
		bugs:    bugs,
		changed: make(chan struct{}),
	}

	console.group.Go(console.read)

	return console, nil
}

func (c *Console) read() error {
	var (
		chunk     = make([]byte, readSize)
		logFailed = false
		// Escape sequence split by the read, completed by the next one.
		carry string
	)

	for {
		n, err := c.proc.Read(chunk)
		if n > 0 {
			if c.cfg.Log != nil && !logFailed {
				_, logErr := c.cfg.Log.Write(chunk[:n])
				if logErr != nil {
					slog.Warn("Failed to write console log", slog.Any("error", logErr))

					logFailed = true
				}
			}

			data := carry + string(chunk[:n])
			carry = ""

			if idx := incompleteEscape(data); idx >= 0 {
				data, carry = data[:idx], data[idx:]
			}

			c.append(ansi.Strip(data))
		}

		if err != nil {
			if carry != "" {
				c.append(ansi.Strip(carry))
			}

			c.close(err)

			return nil
		}
	}
}

// incompleteEscape returns the index of the escape sequence at the end of s
// that is not terminated yet, or -1 if there is none.
func incompleteEscape(s string) int {
	idx := strings.LastIndexByte(s, escape)
	if idx < 0 || len(s)-idx > maxEscapeLen {
		return -1
	}

	if escapeTerminated(s[idx+1:]) {
		return -1
	}

	return idx
}

// escapeTerminated reports whether the escape sequence body following an
// ESC is complete. Malformed sequences count as complete.
func escapeTerminated(body string) bool {
	if body == "" {
		return false
	}

	switch body[0] {
	case '[':
		for _, b := range []byte(body[1:]) {
			// Parameter and intermediate bytes continue the sequence,
			// anything else ends it.
			if b < 0x20 || b > 0x3f {
				return true
			}
		}

		return false
	case ']', 'P', 'X', '^', '_':
		// String terminated by BEL. The ESC of an ST terminator is the
		// last ESC itself.
		return strings.IndexByte(body, bell) >= 0
	default:
		for _, b := range []byte(body) {
			if b < 0x20 || b > 0x2f {
				return true
			}
		}

		return false
	}
}

func (c *Console) append(data string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf = append(c.buf, data...)
	if excess := len(c.buf) - c.cfg.MaxBuffer; excess > 0 {
		c.buf = slices.Delete(c.buf, 0, excess)
	}

	c.notify()
}

func (c *Console) close(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Reading from a pty master returns EIO once the child side is closed.
	if !errors.Is(err, io.EOF) &&
		!errors.Is(err, syscall.EIO) &&
		!errors.Is(err, os.ErrClosed) {
		c.readErr = err
	}

	c.eof = true
	c.notify()
}

// notify wakes up all waiters. Must be called with mu held.
func (c *Console) notify() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}

		compiled = append(compiled, re)
	}

	return compiled, nil
}

// search returns the index of the pattern with the leftmost match in buf and
// its submatch locations. On equal positions the first pattern wins.
func search(buf []byte, patterns []*regexp.Regexp) (int, []int) {
	found := -1

	var loc []int

	for idx, re := range patterns {
		candidate := re.FindSubmatchIndex(buf)
		if candidate == nil {
			continue
		}

		if found == -1 || candidate[0] < loc[0] {
			found = idx
			loc = candidate
		}
	}

	return found, loc
}

// consume stores the match and removes everything up to its end from the
// buffer. Must be called with mu held.
func (c *Console) consume(loc []int) {
	c.match = make([]string, len(loc)/2) //nolint:mnd
	for idx := range c.match {
		start, end := loc[2*idx], loc[2*idx+1]
		if start >= 0 {
			c.match[idx] = string(c.buf[start:end])
		}
	}

	c.before = string(c.buf[:loc[0]])
	c.buf = slices.Clone(c.buf[loc[1]:])
}

func (c *Console) tail() string {
	start := max(0, len(c.buf)-tailSize)
	return string(c.buf[start:])
}

// Expect waits with the default timeout until one of the patterns or a bug
// pattern matches. It returns the index of the matched pattern.
func (c *Console) Expect(ctx context.Context, patterns ...string) (int, error) {
	return c.expect(ctx, patterns, DefaultTimeout, true)
}

// ExpectTimeout is like [Console.Expect] with a custom timeout.
func (c *Console) ExpectTimeout(
	ctx context.Context,
	timeout time.Duration,
	patterns ...string,
) (int, error) {
	return c.expect(ctx, patterns, timeout, true)
}

// ExpectIgnoringBugs is like [Console.ExpectTimeout] but does not watch for
// bug patterns.
func (c *Console) ExpectIgnoringBugs(
	ctx context.Context,
	timeout time.Duration,
	patterns ...string,
) (int, error) {
	return c.expect(ctx, patterns, timeout, false)
}

// IgnoringBugs runs fn with bug patterns disabled for all expect calls.
func (c *Console) IgnoringBugs(fn func() error) error {
	c.bugsIgnored = true
	defer func() { c.bugsIgnored = false }()

	return fn()
}

//nolint:cyclop
func (c *Console) expect(
	ctx context.Context,
	patterns []string,
	timeout time.Duration,
	withBugs bool,
) (int, error) {
	if timeout == DefaultTimeout {
		timeout = c.cfg.Timeout
	}

	compiled, err := compile(patterns)
	if err != nil {
		return -1, err
	}

	all := compiled
	if withBugs && !c.bugsIgnored {
		all = append(slices.Clip(compiled), c.bugs...)
	}

	var timeoutC, deadlineC <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		timeoutC = timer.C
	}

	if !c.deadline.IsZero() {
		timer := time.NewTimer(time.Until(c.deadline))
		defer timer.Stop()

		deadlineC = timer.C
	}

	for {
		c.mu.Lock()

		idx, loc := search(c.buf, all)
		if idx >= 0 {
			c.consume(loc)
			c.mu.Unlock()

			slog.Debug("Matched", slog.String("match", c.match[0]), slog.Any("groups", c.match[1:]))

			if idx >= len(compiled) {
				return idx, c.drainAndTerminate(ctx, c.match[0])
			}

			return idx, nil
		}

		eof, readErr, changed, tail := c.eof, c.readErr, c.changed, c.tail()
		c.mu.Unlock()

		if eof {
			if readErr != nil {
				return -1, fmt.Errorf("%w: %w", ErrEOF, readErr)
			}

			return -1, ErrEOF
		}

		select {
		case <-changed:
		case <-timeoutC:
			return -1, &TimeoutError{Patterns: patterns, Timeout: timeout, Tail: tail}
		case <-deadlineC:
			return -1, &TimeoutError{Patterns: patterns, Session: true, Tail: tail}
		case <-ctx.Done():
			return -1, fmt.Errorf("expect: %w", ctx.Err())
		}
	}
}

func (c *Console) drainAndTerminate(ctx context.Context, match string) error {
	slog.Error("Saw oops/warning etc. while expecting", slog.String("match", match))

	// Wait for the end of the oops, if it is one.
	_, err := c.expect(ctx, []string{endTracePattern}, c.cfg.DrainWait, false)
	if errors.Is(err, &TimeoutError{}) {
		// That didn't match, let it run for a bit.
		select {
		case <-time.After(c.cfg.DrainGrace):
		case <-ctx.Done():
		}
	}

	return &FatalSignatureError{
		Match: match,
		Err:   c.Terminate(ctx),
	}
}

// ExpectEOF waits until the output stream ends.
func (c *Console) ExpectEOF(ctx context.Context, timeout time.Duration) error {
	if timeout == DefaultTimeout {
		timeout = c.cfg.Timeout
	}

	var timeoutC <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		timeoutC = timer.C
	}

	for {
		c.mu.Lock()
		eof, changed, tail := c.eof, c.changed, c.tail()
		c.mu.Unlock()

		if eof {
			return nil
		}

		select {
		case <-changed:
		case <-timeoutC:
			return &TimeoutError{Patterns: []string{"EOF"}, Timeout: timeout, Tail: tail}
		case <-ctx.Done():
			return fmt.Errorf("expect EOF: %w", ctx.Err())
		}
	}
}

// WaitForExit waits for the output to end and the process to exit.
func (c *Console) WaitForExit(ctx context.Context, timeout time.Duration) error {
	err := c.ExpectEOF(ctx, timeout)
	if err != nil {
		return err
	}

	err = c.proc.Wait()
	if err != nil {
		return fmt.Errorf("wait: %w", err)
	}

	return nil
}

// Terminate stops the process and waits for its output to end.
func (c *Console) Terminate(ctx context.Context) error {
	err := c.proc.Terminate()
	if err != nil {
		return fmt.Errorf("terminate: %w", err)
	}

	err = c.ExpectEOF(ctx, NoTimeout)
	if err != nil {
		return err
	}

	// The exit status of a terminated process is not of interest.
	_ = c.proc.Wait()

	return nil
}

// Close waits for the output reader to finish. The process must have exited
// or been terminated before.
func (c *Console) Close() error {
	return c.group.Wait() //nolint:wrapcheck
}

// Send writes the text followed by a carriage return.
func (c *Console) Send(text string) error {
	slog.Debug("Sending", slog.String("text", text))

	return c.SendRaw(text + "\r")
}

// SendRaw writes the text as is.
func (c *Console) SendRaw(text string) error {
	_, err := io.WriteString(c.proc, text)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	return nil
}

// PushPrompt makes p the current prompt.
func (c *Console) PushPrompt(p string) {
	c.prompts = append(c.prompts, p)
}

// PopPrompt restores the previous prompt. The last prompt can not be
// popped.
func (c *Console) PopPrompt() error {
	if len(c.prompts) < 2 { //nolint:mnd
		return ErrPromptStackEmpty
	}

	c.prompts = c.prompts[:len(c.prompts)-1]

	return nil
}

// Prompt returns the current prompt.
func (c *Console) Prompt() string {
	if len(c.prompts) == 0 {
		return ""
	}

	return c.prompts[len(c.prompts)-1]
}

// ExpectPrompt waits with the default timeout for the current prompt.
func (c *Console) ExpectPrompt(ctx context.Context) error {
	return c.ExpectPromptTimeout(ctx, DefaultTimeout)
}

// ExpectPromptTimeout waits for the current prompt.
func (c *Console) ExpectPromptTimeout(ctx context.Context, timeout time.Duration) error {
	prompt := c.Prompt()
	if prompt == "" {
		return ErrNoPrompt
	}

	_, err := c.ExpectTimeout(ctx, timeout, prompt)

	return err
}

// Cmd sends the command and waits for the prompt.
func (c *Console) Cmd(ctx context.Context, cmd string) error {
	err := c.Send(cmd)
	if err != nil {
		return err
	}

	return c.ExpectPrompt(ctx)
}

// SetDeadline sets the session deadline. All expect calls fail with a
// [TimeoutError] once it has passed. The zero value removes the deadline.
func (c *Console) SetDeadline(deadline time.Time) {
	c.deadline = deadline
}

// SetDeadlineAfter sets the session deadline relative to now. Zero removes
// the deadline.
func (c *Console) SetDeadlineAfter(d time.Duration) {
	if d <= 0 {
		c.deadline = time.Time{}
		return
	}

	c.deadline = time.Now().Add(d)
}

// Match returns the text of the last match followed by its submatches.
func (c *Console) Match() []string {
	return c.match
}

// Before returns the output between the previous and the last match.
func (c *Console) Before() string {
	return c.before
}
