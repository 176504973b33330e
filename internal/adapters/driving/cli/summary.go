package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

// theme is the colour palette for command output.
type theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

func defaultTheme() theme {
	return theme{
		Primary: lipgloss.Color("#7C3AED"), // Purple
		Muted:   lipgloss.Color("#6C7086"), // Medium gray
		Success: lipgloss.Color("#A6E3A1"), // Green
		Warning: lipgloss.Color("#F9E2AF"), // Yellow
		Error:   lipgloss.Color("#F38BA8"), // Red
	}
}

// styles contains pre-configured lipgloss styles.
type styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func newStyles(t theme) styles {
	return styles{
		Title:   lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Label:   lipgloss.NewStyle().Width(12),
		Muted:   lipgloss.NewStyle().Foreground(t.Muted),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Foreground(t.Error).Bold(true),
	}
}

var printer = message.NewPrinter(language.English)

// count formats n with thousands separators.
func count(n int) string {
	return printer.Sprintf("%d", n)
}

// stateStyle picks the style for an archive's final state.
func (s styles) stateStyle(state domain.ArchiveState) lipgloss.Style {
	switch state {
	case domain.StateCleanedUp, domain.StateManifestsWritten:
		return s.Success
	case domain.StateSkipped:
		return s.Muted
	case domain.StateFailed:
		return s.Error
	default:
		return s.Warning
	}
}

// renderSummary formats a finished run for the terminal.
func renderSummary(report *domain.RunReport, detailed bool) string {
	st := newStyles(defaultTheme())
	var b strings.Builder

	b.WriteString(st.Title.Render("Run "+report.ID) + "\n")
	row := func(label, value string) {
		b.WriteString("  " + st.Label.Render(label) + value + "\n")
	}
	row("Discovered", count(report.Discovered))
	row("Ingested", st.Success.Render(count(report.Ingested)))
	row("Skipped", st.Muted.Render(count(report.Skipped)))
	failed := count(report.Failed)
	if report.Failed > 0 {
		failed = st.Error.Render(failed)
	}
	row("Failed", failed)
	row("Duration", report.Duration().Round(time.Millisecond).String())

	for _, a := range report.Archives {
		if !detailed && a.State != domain.StateFailed {
			continue
		}
		line := fmt.Sprintf("  %s %s", st.stateStyle(a.State).Render(fmt.Sprintf("%-18s", a.State)), a.Path)
		if a.State != domain.StateFailed && a.State != domain.StateSkipped {
			line += st.Muted.Render(fmt.Sprintf(" (%s scans, %s multi-echo)", count(a.Scans), count(a.Flagged)))
		}
		if a.Error != "" {
			line += ": " + a.Error
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
