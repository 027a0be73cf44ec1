// Package ux renders the console report: status icons, per-test lines and
// the tiered summary banner. Colour is applied only when enabled, so piped
// output and tests see plain text.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Colour modes accepted by ColorEnabled.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconFailure Icon = "✗"
	IconWarning Icon = "⚠"
)

var (
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#2C4A54")
)

// Renderer formats report text, optionally with ANSI colour.
type Renderer struct {
	color   bool
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	bold    lipgloss.Style
}

// NewRenderer creates a Renderer writing to w. When color is false every
// method returns plain text.
func NewRenderer(w io.Writer, color bool) *Renderer {
	lr := lipgloss.NewRenderer(w)
	if color {
		lr.SetColorProfile(termenv.ANSI256)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		color:   color,
		success: lr.NewStyle().Foreground(colorSuccess),
		warning: lr.NewStyle().Foreground(colorWarning),
		failure: lr.NewStyle().Foreground(colorError),
		muted:   lr.NewStyle().Foreground(colorMuted),
		bold:    lr.NewStyle().Bold(true),
	}
}

// Plain returns a Renderer that never colours.
func Plain() *Renderer {
	return NewRenderer(io.Discard, false)
}

// ColorEnabled resolves a colour mode for the given output file. "auto"
// colours only a terminal and honours NO_COLOR.
func ColorEnabled(mode string, f *os.File) bool {
	switch strings.ToLower(mode) {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Renderer) render(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// Status returns the success or failure icon.
func (r *Renderer) Status(ok bool) string {
	if ok {
		return r.render(r.success, string(IconSuccess))
	}
	return r.render(r.failure, string(IconFailure))
}

// Warning returns the warning icon.
func (r *Renderer) Warning() string {
	return r.render(r.warning, string(IconWarning))
}

// Rule returns a horizontal rule of width "=" characters.
func (r *Renderer) Rule(width int) string {
	return r.render(r.muted, strings.Repeat("=", width))
}

// Bold renders text in bold.
func (r *Renderer) Bold(text string) string {
	return r.render(r.bold, text)
}

// Line formats one per-test line.
func (r *Renderer) Line(ok bool, text string) string {
	return fmt.Sprintf("%s %s", r.Status(ok), text)
}
