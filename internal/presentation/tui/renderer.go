// Package tui renders funnel screens for the interactive terminal host.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
// When stdout is not a terminal it falls back to passing text through,
// keeping piped output clean.
func NewRenderer() func(string) (string, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ProgressBar draws a colored progress indicator for the given
// percentage, e.g. "[████████░░░░░░░░░░░░]  40%".
func ProgressBar(percent, width int) string {
	if width <= 0 {
		width = 20
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := width * percent / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	p := termenv.ColorProfile()
	styled := termenv.String(bar).Foreground(p.Color("10")).String()
	return fmt.Sprintf("[%s] %3d%%", styled, percent)
}
