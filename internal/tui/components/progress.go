package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cfplan/internal/tui/theme"
)

// ShareColor grades how much of the money is working: little invested is
// a warning, most of it invested is good.
func ShareColor(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 0.7:
		return t.Positive
	case pct >= 0.3:
		return t.Invested
	default:
		return t.Warning
	}
}

// ShareBar renders a labelled bar for a fraction in [0, 1] followed by a
// caption, e.g. the share of money held in deposits on a given day.
func ShareBar(label string, pct float64, caption string, labelW, barWidth int) string {
	t := theme.Active
	pct = max(0, min(pct, 1))
	color := ShareColor(pct)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	captionStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		space.Render(" ") +
		bar.ViewAs(pct) +
		space.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100)) +
		space.Render("  ") +
		captionStyle.Render(caption)
}
