package cashflow

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/config"
)

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func buildCalendar(t *testing.T, start, end string) *Calendar {
	t.Helper()
	c, err := Build(mustDate(t, start), mustDate(t, end), config.DefaultSchedule())
	if err != nil {
		t.Fatalf("Build(%s, %s): %v", start, end, err)
	}
	return c
}

func TestBuild_OneNodePerDay(t *testing.T) {
	c := buildCalendar(t, "2024-11-06", "2024-12-10")

	if c.Len() != 35 {
		t.Fatalf("Len() = %d, want 35", c.Len())
	}
	for i, n := range c.Nodes() {
		if n.Index != i {
			t.Fatalf("node %d has Index %d", i, n.Index)
		}
		if want := c.Start.AddDays(i); n.Date != want {
			t.Fatalf("node %d date = %s, want %s", i, n.Date, want)
		}
		if got, ok := c.Index(n.Date); !ok || got != i {
			t.Fatalf("Index(%s) = %d, %v; want %d", n.Date, got, ok, i)
		}
	}
	if term := c.Node(c.Terminal()); term.Date != c.End {
		t.Fatalf("terminal date = %s, want %s", term.Date, c.End)
	}
}

func TestBuild_Classification(t *testing.T) {
	c := buildCalendar(t, "2024-11-06", "2024-12-10")

	var srcDates, sinkDates []string
	for _, i := range c.Sources() {
		srcDates = append(srcDates, c.Node(i).Date.String())
	}
	for _, i := range c.Sinks() {
		sinkDates = append(sinkDates, c.Node(i).Date.String())
	}

	wantSrc := []string{"2024-12-01", "2024-12-05"}
	wantSink := []string{"2024-11-10", "2024-11-15", "2024-11-16", "2024-11-25"}
	if !equalStrings(srcDates, wantSrc) {
		t.Fatalf("sources = %v, want %v", srcDates, wantSrc)
	}
	// Dec 10 is the terminal node and stays unclassified.
	if !equalStrings(sinkDates, wantSink) {
		t.Fatalf("sinks = %v, want %v", sinkDates, wantSink)
	}
}

func TestBuild_Errors(t *testing.T) {
	bad := config.DefaultSchedule()
	bad.AdminDay = 30
	if _, err := Build(mustDate(t, "2024-11-06"), mustDate(t, "2024-12-10"), bad); !errors.Is(err, config.ErrInvalidSchedule) {
		t.Fatalf("Build with day 30 = %v, want ErrInvalidSchedule", err)
	}

	d := mustDate(t, "2024-11-06")
	if _, err := Build(d, d, config.DefaultSchedule()); !errors.Is(err, ErrEmptyHorizon) {
		t.Fatalf("Build(d, d) = %v, want ErrEmptyHorizon", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
