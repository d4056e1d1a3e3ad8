// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const bannerWidth = 60

// Kind selects the look of a banner.
type Kind int

// Banner kinds.
const (
	Info Kind = iota
	Notice
	OK
	Failed
)

func (k Kind) char() string {
	if k == Failed {
		return "!"
	}

	return "#"
}

func (k Kind) color() lipgloss.Color {
	switch k {
	case Notice:
		return lipgloss.Color("4")
	case OK:
		return lipgloss.Color("2")
	case Failed:
		return lipgloss.Color("1")
	default:
		return lipgloss.Color("3")
	}
}

type output struct {
	w        io.Writer
	renderer *lipgloss.Renderer
}

// Printer writes banners and log tails to all its outputs. Each output is
// colored only if it is a terminal.
//
// It is safe for concurrent use.
type Printer struct {
	mu      sync.Mutex
	outputs []output
}

// NewPrinter creates a new [Printer] for the given writers.
func NewPrinter(writers ...io.Writer) *Printer {
	printer := &Printer{}
	for _, w := range writers {
		printer.outputs = append(printer.outputs, output{
			w:        w,
			renderer: lipgloss.NewRenderer(w),
		})
	}

	return printer
}

// Banner prints a framed message like:
//
//	############################################################
//	# Building kernels & selftests ...                         #
//	############################################################
func (p *Printer) Banner(kind Kind, msg string) {
	char := kind.char()
	lines := []string{
		strings.Repeat(char, bannerWidth),
		fmt.Sprintf("%s %-56s %s", char, msg, char),
		strings.Repeat(char, bannerWidth),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, out := range p.outputs {
		style := out.renderer.NewStyle().Foreground(kind.color())
		for _, line := range lines {
			_, _ = fmt.Fprintln(out.w, style.Render(line))
		}
	}
}

// Println prints a plain line.
func (p *Printer) Println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, out := range p.outputs {
		_, _ = fmt.Fprintln(out.w, line)
	}
}

// IsTerminal returns true if w is a terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(file.Fd())) //nolint:gosec
}
