package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cfplan/internal/cli"
	"github.com/theirongolddev/cfplan/internal/tui/theme"
)

// Sparkline renders values as a colored block sparkline.
func Sparkline(values []float64, color lipgloss.Color) string {
	t := theme.Active
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(cli.RenderSparkline(values))
}

// Downsample reduces values to at most n points, keeping the minimum of
// each bucket so a dip in the balance stays visible. labels follow the first
// point of each bucket.
func Downsample(values []float64, labels []string, n int) ([]float64, []string) {
	if n <= 0 || len(values) <= n {
		return values, labels
	}
	outV := make([]float64, n)
	var outL []string
	if len(labels) == len(values) {
		outL = make([]string, n)
	}
	for i := 0; i < n; i++ {
		lo := i * len(values) / n
		hi := max((i+1)*len(values)/n, lo+1)
		m := values[lo]
		for _, v := range values[lo+1 : hi] {
			m = min(m, v)
		}
		outV[i] = m
		if outL != nil {
			outL[i] = labels[lo]
		}
	}
	return outV, outL
}

// BarChart renders a vertical bar chart with a labelled y axis. Negative
// values are drawn as empty bars. A chart too small to draw falls back to a
// sparkline.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	tickStep := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(maxVal/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)
	rowsPerTick := max(height/numIntervals, 2)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(len(cli.FormatMoneyShort(ceiling))+1, 4)
	tickLabels := make(map[int]string, numIntervals)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = cli.FormatMoneyShort(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	values, labels = Downsample(values, labels, chartW)
	n := len(values)
	barW := max(min(chartW/n, 3), 1)
	axisLen := n * barW

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))

		var line strings.Builder
		for _, v := range values {
			switch {
			case v >= rowTop:
				line.WriteString(strings.Repeat("█", barW))
			case v > rowBottom:
				idx := max(min(int((v-rowBottom)/(rowTop-rowBottom)*8), 8), 1)
				line.WriteString(strings.Repeat(string(blocks[idx]), barW))
			default:
				line.WriteString(strings.Repeat(" ", barW))
			}
		}
		b.WriteString(barStyle.Render(line.String()))
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))

	if len(labels) == n {
		b.WriteString("\n")
		b.WriteString(blank.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(axisLabels(labels, barW, axisLen)))
	}
	return b.String()
}

// axisLabels spreads labels under the bars without overlaps, always keeping
// the first one.
func axisLabels(labels []string, barW, axisLen int) string {
	buf := []byte(strings.Repeat(" ", axisLen))
	lastEnd := -1
	for i, lbl := range labels {
		pos := i * barW
		end := pos + len(lbl)
		if pos <= lastEnd || end > axisLen {
			continue
		}
		copy(buf[pos:end], lbl)
		lastEnd = end + 1
	}
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))

	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}
