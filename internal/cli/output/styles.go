package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Fatal   lipgloss.Style
	Code    lipgloss.Style
}

// NewStyles binds styles to w. Without a terminal the ASCII profile is used
// so no escape codes are written.
func NewStyles(w io.Writer, isTTY bool) *Styles {
	r := lipgloss.NewRenderer(w)
	if !isTTY {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1),
		Header2: r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("12")),
		Fatal:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Code:    r.NewStyle().Foreground(lipgloss.Color("13")),
	}
}

// Severity returns the style for a diagnostic severity.
func (s *Styles) Severity(sev analysis.Severity) lipgloss.Style {
	switch sev {
	case analysis.SeverityFatal:
		return s.Fatal
	case analysis.SeverityError:
		return s.Error
	case analysis.SeverityWarning:
		return s.Warning
	case analysis.SeverityNote:
		return s.Info
	default:
		return s.Muted
	}
}
