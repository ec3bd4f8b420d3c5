package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestDownsampleKeepsMinimum(t *testing.T) {
	values := []float64{5, 1, 7, 8, 2, 9}
	labels := []string{"a", "b", "c", "d", "e", "f"}

	got, gotLabels := Downsample(values, labels, 3)
	want := []float64{1, 7, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Downsample = %v, want %v", got, want)
		}
	}
	if strings.Join(gotLabels, "") != "ace" {
		t.Fatalf("labels = %v, want [a c e]", gotLabels)
	}

	same, _ := Downsample(values, nil, 10)
	if len(same) != len(values) {
		t.Fatalf("short input should pass through, got %d values", len(same))
	}
}

func TestChartTickStep(t *testing.T) {
	tests := map[float64]float64{
		0:      1,
		10:     2,
		100:    20,
		600000: 100000,
		21565:  5000,
	}
	for in, want := range tests {
		if got := chartTickStep(in); got != want {
			t.Errorf("chartTickStep(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestBarChartShape(t *testing.T) {
	values := make([]float64, 40)
	labels := make([]string, 40)
	for i := range values {
		values[i] = float64(i * 1000)
		labels[i] = "d"
	}
	out := BarChart(values, labels, lipgloss.Color("#879A39"), 60, 8)
	lines := strings.Split(out, "\n")
	if len(lines) < 4 {
		t.Fatalf("chart too short:\n%s", out)
	}
	if !strings.Contains(out, "└") {
		t.Fatalf("missing x axis:\n%s", out)
	}
	for i, l := range lines[:len(lines)-1] {
		if lipgloss.Width(l) > 60 {
			t.Errorf("line %d wider than 60: %d", i, lipgloss.Width(l))
		}
	}

	if got := BarChart([]float64{1, 2}, nil, lipgloss.Color("1"), 10, 2); strings.Contains(got, "└") {
		t.Fatalf("tiny chart should fall back to a sparkline, got:\n%s", got)
	}
}
