package fincal

import (
	"testing"

	"cloud.google.com/go/civil"
)

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestDaysBetween_Table(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2024-11-06", "2024-11-06", 0},
		{"2024-10-31", "2024-10-31", 0},
		{"2024-11-06", "2024-12-06", 30},
		{"2024-11-06", "2024-12-10", 34},
		{"2025-01-01", "2025-01-31", 29},
		{"2024-10-31", "2024-11-01", 0},
		{"2024-10-31", "2024-11-05", 4},
		{"2025-02-01", "2025-03-01", 30},
		{"2024-02-01", "2024-03-01", 30},
		{"2024-01-20", "2024-03-10", 50},
		{"2025-01-20", "2025-03-10", 50},
		// no February correction while b is still in January or February
		{"2024-01-15", "2025-01-15", 359},
		{"2024-03-15", "2025-03-15", 360},
	}

	for _, tt := range tests {
		a, b := mustDate(t, tt.a), mustDate(t, tt.b)
		if got := DaysBetween(a, b); got != tt.want {
			t.Errorf("DaysBetween(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDaysBetween_NonNegative(t *testing.T) {
	a := mustDate(t, "2023-12-25")
	for i := 0; i < 500; i += 3 {
		from := a.AddDays(i)
		for k := 0; k < 120; k++ {
			to := from.AddDays(k)
			if got := DaysBetween(from, to); got < 0 {
				t.Fatalf("DaysBetween(%s, %s) = %d, want >= 0", from, to, got)
			}
		}
	}
}

func TestAddDays_Table(t *testing.T) {
	tests := []struct {
		start string
		n     int
		want  string
	}{
		{"2024-11-06", 0, "2024-11-06"},
		{"2024-11-06", -5, "2024-11-06"},
		{"2024-11-06", 30, "2024-12-06"},
		{"2024-11-07", 30, "2024-12-07"},
		{"2024-02-01", 30, "2024-03-01"},
		{"2025-02-01", 30, "2025-03-02"},
		{"2024-05-31", 1, "2024-06-02"},
		{"2024-12-30", 1, "2025-01-01"},
		{"2024-11-30", 1, "2024-12-01"},
		{"2024-01-20", 50, "2024-03-10"},
	}

	for _, tt := range tests {
		got := AddDays(mustDate(t, tt.start), tt.n)
		if got != mustDate(t, tt.want) {
			t.Errorf("AddDays(%s, %d) = %s, want %s", tt.start, tt.n, got, tt.want)
		}
	}
}

func TestAddDays_RoundTrip(t *testing.T) {
	// Windows that stay clear of the end of a 28-day February.
	starts := []struct {
		start string
		span  int
	}{
		{"2024-11-06", 110},
		{"2024-03-15", 290},
		{"2024-05-31", 200},
		{"2023-12-20", 150},
	}

	for _, s := range starts {
		start := mustDate(t, s.start)
		for k := 0; k <= s.span; k++ {
			end := start.AddDays(k)
			n := DaysBetween(start, end)
			got := DaysBetween(start, AddDays(start, n))
			if got != n {
				t.Fatalf("round trip from %s to %s: DaysBetween = %d, want %d", start, end, got, n)
			}
		}
	}
}

func TestAddDays_OvershootsShortFebruary(t *testing.T) {
	start := mustDate(t, "2025-01-20")
	end := mustDate(t, "2025-03-10")

	n := DaysBetween(start, end)
	landed := AddDays(start, n)
	if landed != mustDate(t, "2025-03-11") {
		t.Fatalf("AddDays(%s, %d) = %s, want 2025-03-11", start, n, landed)
	}
	if got := DaysBetween(start, landed); got != n+1 {
		t.Fatalf("DaysBetween(%s, %s) = %d, want %d", start, landed, got, n+1)
	}
}

func TestLastDayToInvest(t *testing.T) {
	tests := []struct {
		end  string
		want string
	}{
		{"2024-12-10", "2024-11-10"},
		{"2024-12-06", "2024-11-06"},
	}

	for _, tt := range tests {
		got := LastDayToInvest(mustDate(t, tt.end))
		if got != mustDate(t, tt.want) {
			t.Errorf("LastDayToInvest(%s) = %s, want %s", tt.end, got, tt.want)
		}
	}
}

func TestLastDayToInvest_IsLatest(t *testing.T) {
	base := mustDate(t, "2024-11-20")
	for i := 0; i < 450; i++ {
		end := base.AddDays(i)
		last := LastDayToInvest(end)
		if got := DaysBetween(last, end); got < MinInvestmentDays {
			t.Fatalf("DaysBetween(LastDayToInvest(%s)=%s, end) = %d, want >= %d", end, last, got, MinInvestmentDays)
		}
		next := last.AddDays(1)
		if got := DaysBetween(next, end); got >= MinInvestmentDays {
			t.Fatalf("day after LastDayToInvest(%s) = %s still spans %d days", end, next, got)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	if got := DaysInMonth(2024, 2); got != 29 {
		t.Fatalf("DaysInMonth(2024, Feb) = %d, want 29", got)
	}
	if got := DaysInMonth(2025, 2); got != 28 {
		t.Fatalf("DaysInMonth(2025, Feb) = %d, want 28", got)
	}
	if got := DaysInMonth(2024, 12); got != 31 {
		t.Fatalf("DaysInMonth(2024, Dec) = %d, want 31", got)
	}
}
