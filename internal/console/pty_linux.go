// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

const (
	ptyRows = 24
	ptyCols = 200

	terminateGrace = 3 * time.Second
)

// PTYProcess is a [Process] running on a pseudo terminal.
type PTYProcess struct {
	cmd  *exec.Cmd
	ptmx *os.File

	done    chan struct{}
	waitErr error
	once    sync.Once
}

var _ Process = (*PTYProcess)(nil)

// SpawnSpec describes the process to spawn.
type SpawnSpec struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Spawn starts the process with a new pseudo terminal as controlling
// terminal. Echo is disabled on the terminal.
func Spawn(spec SpawnSpec) (*PTYProcess, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}
	defer tty.Close()

	err = pty.Setsize(ptmx, &pty.Winsize{Rows: ptyRows, Cols: ptyCols})
	if err != nil {
		_ = ptmx.Close()
		return nil, fmt.Errorf("set pty size: %w", err)
	}

	err = disableEcho(tty)
	if err != nil {
		_ = ptmx.Close()
		return nil, err
	}

	cmd := exec.Command(spec.Path, spec.Args...) //nolint:gosec
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	slog.Debug("Spawning", slog.String("command", cmd.String()))

	err = cmd.Start()
	if err != nil {
		_ = ptmx.Close()
		return nil, fmt.Errorf("start: %w", err)
	}

	proc := &PTYProcess{
		cmd:  cmd,
		ptmx: ptmx,
		done: make(chan struct{}),
	}

	go func() {
		proc.waitErr = cmd.Wait()
		close(proc.done)
	}()

	return proc, nil
}

func disableEcho(tty *os.File) error {
	fd := int(tty.Fd()) //nolint:gosec

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	termios.Lflag &^= unix.ECHO

	err = unix.IoctlSetTermios(fd, unix.TCSETS, termios)
	if err != nil {
		return fmt.Errorf("set termios: %w", err)
	}

	return nil
}

// Read implements [io.Reader].
func (p *PTYProcess) Read(b []byte) (int, error) {
	n, err := p.ptmx.Read(b)
	if errors.Is(err, syscall.EIO) {
		err = io.EOF
	}

	return n, err //nolint:wrapcheck
}

// Write implements [io.Writer].
func (p *PTYProcess) Write(b []byte) (int, error) {
	return p.ptmx.Write(b) //nolint:wrapcheck
}

// Pid returns the process ID.
func (p *PTYProcess) Pid() int {
	return p.cmd.Process.Pid
}

// Exited returns true if the process has exited.
func (p *PTYProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Terminate sends SIGTERM to the process group and SIGKILL if it has not
// exited after a grace period.
func (p *PTYProcess) Terminate() error {
	pgid := -p.Pid()

	err := unix.Kill(pgid, unix.SIGTERM)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("sigterm: %w", err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(terminateGrace):
	}

	slog.Warn("Process did not terminate, killing it", slog.Int("pid", p.Pid()))

	err = unix.Kill(pgid, unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("sigkill: %w", err)
	}

	<-p.done

	return nil
}

// Wait waits for the process to exit and closes the terminal.
func (p *PTYProcess) Wait() error {
	<-p.done

	p.once.Do(func() {
		_ = p.ptmx.Close()
	})

	return p.waitErr //nolint:wrapcheck
}
