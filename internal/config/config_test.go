package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
)

func TestDefaultConfig_Validates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestScheduleValidate_RejectsOutOfRange(t *testing.T) {
	for _, day := range []int{0, 29, 31, -1} {
		s := DefaultSchedule()
		s.MortgageDay = day
		if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
			t.Errorf("MortgageDay=%d: Validate() = %v, want ErrInvalidSchedule", day, err)
		}
	}
}

func TestScheduleValidate_RejectsCollision(t *testing.T) {
	s := DefaultSchedule()
	s.UtilitiesDay = s.CreditCardDay
	err := s.Validate()
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("Validate() = %v, want ErrInvalidSchedule", err)
	}

	cfg := DefaultConfig()
	cfg.Schedule = s
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("Config.Validate() = %v, want ErrInvalidSchedule", err)
	}
}

func TestSchedule_Classification(t *testing.T) {
	s := DefaultSchedule()
	for day := 1; day <= 31; day++ {
		src, sink := s.IsSource(day), s.IsSink(day)
		if src && sink {
			t.Fatalf("day %d is both source and sink", day)
		}
		_, has := s.EventOn(day)
		if has != (src || sink) {
			t.Fatalf("day %d: EventOn = %v, source=%v sink=%v", day, has, src, sink)
		}
	}
	if e, _ := s.EventOn(15); e != EventCreditCard {
		t.Fatalf("EventOn(15) = %q, want %q", e, EventCreditCard)
	}
}

func TestIncrements_MonthFor(t *testing.T) {
	inc := DefaultIncrements()
	if m := inc.MonthFor(EventSalary); m != 1 {
		t.Fatalf("salary month = %d, want 1", m)
	}
	if m := inc.MonthFor(EventMortgage); m != 0 {
		t.Fatalf("mortgage month = %d, want 0", m)
	}
}

func TestConfigValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"end before start", func(c *Config) { c.Horizon.End = c.Horizon.Start.AddDays(-1) }},
		{"negative salary", func(c *Config) { c.Amounts.Salary = -1 }},
		{"bonus month 13", func(c *Config) { c.Amounts.BonusMonths = []int{13} }},
		{"increment month 14", func(c *Config) { c.Increments.AdminMonth = 14 }},
		{"band above M", func(c *Config) { c.Model.ToleranceBand = c.Model.BigM * 2 }},
		{"unknown backend", func(c *Config) { c.Solver.Backend = "glpk" }},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidConfig", tt.name, err)
		}
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CFPLAN_SOLVER", "")
	t.Setenv("CFPLAN_LOG_LEVEL", "")

	if Exists() {
		t.Fatal("Exists() = true before Save")
	}

	cfg := DefaultConfig()
	cfg.Horizon.End = civil.Date{Year: 2026, Month: 3, Day: 31}
	cfg.Schedule.MortgageDay = 27
	cfg.Amounts.OpeningBalance = 2500
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists() = false after Save")
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Horizon.End != cfg.Horizon.End {
		t.Fatalf("Horizon.End = %s, want %s", got.Horizon.End, cfg.Horizon.End)
	}
	if got.Schedule.MortgageDay != 27 {
		t.Fatalf("MortgageDay = %d, want 27", got.Schedule.MortgageDay)
	}
	if got.Amounts.OpeningBalance != 2500 {
		t.Fatalf("OpeningBalance = %v, want 2500", got.Amounts.OpeningBalance)
	}
}

func TestLoad_ParsesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("CFPLAN_SOLVER", "bnb")
	t.Setenv("CFPLAN_DB", "/tmp/plans.db")

	body := `
[horizon]
start = "2025-01-06"
end = "2025-06-30"
rates_date = "2025-01-01"

[schedule]
pay_day = 2
`
	if err := os.MkdirAll(filepath.Join(dir, "cfplan"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cfplan", "config.toml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := (civil.Date{Year: 2025, Month: 1, Day: 6}); cfg.Horizon.Start != want {
		t.Fatalf("Horizon.Start = %s, want %s", cfg.Horizon.Start, want)
	}
	if cfg.Schedule.PayDay != 2 {
		t.Fatalf("PayDay = %d, want 2", cfg.Schedule.PayDay)
	}
	if cfg.Schedule.MortgageDay != 25 {
		t.Fatalf("MortgageDay = %d, want default 25", cfg.Schedule.MortgageDay)
	}
	if cfg.Solver.Backend != BackendBranchAndBound {
		t.Fatalf("Solver.Backend = %q, want %q", cfg.Solver.Backend, BackendBranchAndBound)
	}
	if DatabasePath(cfg) != "/tmp/plans.db" {
		t.Fatalf("DatabasePath = %q, want /tmp/plans.db", DatabasePath(cfg))
	}
}
