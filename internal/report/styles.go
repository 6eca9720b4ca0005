package report

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles holds the lipgloss styles of the text report.
type Styles struct {
	Header  lipgloss.Style
	Section lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles builds styles for a colour profile. Styles never depend on the
// terminal background, so rendering stays deterministic.
func NewStyles(profile termenv.Profile) *Styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(profile)

	return &Styles{
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Section: r.NewStyle().Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// ColorProfile resolves a --color mode for an output. "auto" colours only
// terminals and honours NO_COLOR.
func ColorProfile(mode string, out io.Writer) termenv.Profile {
	switch strings.ToLower(mode) {
	case "never":
		return termenv.Ascii
	case "always":
		return termenv.ANSI256
	}

	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // Fd fits in int
		return termenv.Ascii
	}
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return termenv.Ascii
	}
	return termenv.NewOutput(f).EnvColorProfile()
}
