package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cfplan/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar: key hints on the left, the
// solver status and elapsed time on the right.
func RenderStatusBar(width int, status, elapsed string, solving bool) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	statusStyle := lipgloss.NewStyle().Foreground(t.ForStatus(status)).Background(t.Surface).Bold(true)

	left := base.Render(" [?]help  [s]olve again  [q]uit")

	right := ""
	switch {
	case solving:
		right = lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Render("solving… ")
	case status != "":
		right = statusStyle.Render(status)
		if elapsed != "" {
			right += base.Render(" in " + elapsed)
		}
		right += base.Render(" ")
	}

	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + base.Render(strings.Repeat(" ", padding)) + right
}
