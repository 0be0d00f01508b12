package report

import (
	"fmt"
	"strings"

	"apisurface/internal/engine/surface"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	publicStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	internalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	removedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	summaryStyle = lipgloss.NewStyle().
			Italic(true)
)

// RenderText is the terminal summary. Colours are dropped automatically when
// stdout is not a terminal.
func RenderText(s Surface) string {
	var b strings.Builder

	title := "API surface"
	if s.Project != "" {
		title += " of " + s.Project
	}
	if s.Granularity != "" {
		title += fmt.Sprintf(" (%s)", s.Granularity)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	for _, r := range s.Records {
		if r.Classification == surface.Public {
			b.WriteString(publicStyle.Render(fmt.Sprintf("%-8s", surface.Public)))
		} else {
			b.WriteString(internalStyle.Render(fmt.Sprintf("%-8s", surface.Internal)))
		}
		b.WriteString(" ")
		b.WriteString(r.Identifier)
		b.WriteString("\n")
	}

	if s.Diff != nil && !s.Diff.Empty() {
		for _, id := range s.Diff.Added {
			b.WriteString(publicStyle.Render("+ " + id))
			b.WriteString("\n")
		}
		for _, id := range s.Diff.Removed {
			b.WriteString(removedStyle.Render("- " + id))
			b.WriteString("\n")
		}
	}

	b.WriteString(summaryStyle.Render(fmt.Sprintf("public=%d internal=%d total=%d", s.Public, s.Internal, len(s.Records))))
	b.WriteString("\n")
	return b.String()
}
