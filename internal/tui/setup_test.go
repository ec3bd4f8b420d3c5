package tui

import (
	"errors"
	"testing"

	"github.com/theirongolddev/cfplan/internal/config"
)

func TestSetupValuesRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	v := SetupValuesFrom(cfg)
	if v.PayDay != "1" || v.CreditCard != "8000" || v.Backend != config.BackendCBC {
		t.Fatalf("unexpected seed values: %+v", v)
	}

	v.PayDay = "2"
	v.OpeningBalance = "12000"
	v.Backend = config.BackendBranchAndBound
	v.Theme = "tokyo-night"
	if err := v.Apply(&cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.Schedule.PayDay != 2 || cfg.Amounts.OpeningBalance != 12000 {
		t.Errorf("schedule/amounts not applied: %+v %+v", cfg.Schedule, cfg.Amounts)
	}
	if cfg.Solver.Backend != config.BackendBranchAndBound || cfg.Appearance.Theme != "tokyo-night" {
		t.Errorf("solver/theme not applied")
	}
	if cfg.Amounts.BonusFraction != 0.5 {
		t.Errorf("untouched field changed: bonus fraction %v", cfg.Amounts.BonusFraction)
	}
}

func TestSetupApplyRejects(t *testing.T) {
	base := config.DefaultConfig()

	tests := map[string]func(*SetupValues){
		"bad number":    func(v *SetupValues) { v.Salary = "lots" },
		"day collision": func(v *SetupValues) { v.MortgageDay = v.PayDay },
		"day too late":  func(v *SetupValues) { v.AdminDay = "30" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := base
			v := SetupValuesFrom(cfg)
			mutate(&v)
			err := v.Apply(&cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, config.ErrInvalidConfig) && !errors.Is(err, config.ErrInvalidSchedule) {
				t.Errorf("err = %v, want a config validation error", err)
			}
			if cfg.Schedule != base.Schedule || cfg.Amounts.Salary != base.Amounts.Salary {
				t.Error("cfg modified on error")
			}
		})
	}
}

func TestSetupValidators(t *testing.T) {
	for _, ok := range []string{"1", " 28 "} {
		if validateDay(ok) != nil {
			t.Errorf("validateDay(%q) rejected", ok)
		}
	}
	for _, bad := range []string{"0", "29", "x"} {
		if validateDay(bad) == nil {
			t.Errorf("validateDay(%q) accepted", bad)
		}
	}
	if validateAmount("12.5") != nil || validateAmount("-1") == nil {
		t.Error("validateAmount")
	}
	if NewSetupForm(&SetupValues{}) == nil {
		t.Fatal("NewSetupForm returned nil")
	}
}
