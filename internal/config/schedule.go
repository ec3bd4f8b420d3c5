package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchedule is returned when event days fall outside 1-28 or collide.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule holds the day of month on which each recurring event lands.
type Schedule struct {
	PayDay           int `toml:"pay_day"`
	PassiveIncomeDay int `toml:"passive_income_day"`
	AdminDay         int `toml:"admin_day"`
	CreditCardDay    int `toml:"credit_card_day"`
	UtilitiesDay     int `toml:"utilities_day"`
	MortgageDay      int `toml:"mortgage_day"`
}

// DefaultSchedule returns the reference household calendar.
func DefaultSchedule() Schedule {
	return Schedule{
		PayDay:           1,
		PassiveIncomeDay: 5,
		AdminDay:         10,
		CreditCardDay:    15,
		UtilitiesDay:     16,
		MortgageDay:      25,
	}
}

// Event names a recurring cash movement.
type Event string

const (
	EventSalary        Event = "salary"
	EventPassiveIncome Event = "passive_income"
	EventAdmin         Event = "admin"
	EventCreditCard    Event = "credit_card"
	EventUtilities     Event = "utilities"
	EventMortgage      Event = "mortgage"
)

type eventDay struct {
	event Event
	day   int
}

func (s Schedule) days() []eventDay {
	return []eventDay{
		{EventSalary, s.PayDay},
		{EventPassiveIncome, s.PassiveIncomeDay},
		{EventAdmin, s.AdminDay},
		{EventCreditCard, s.CreditCardDay},
		{EventUtilities, s.UtilitiesDay},
		{EventMortgage, s.MortgageDay},
	}
}

// Validate requires every day in 1-28 and no two events on the same day.
func (s Schedule) Validate() error {
	seen := make(map[int]Event, 6)
	for _, ed := range s.days() {
		if ed.day < 1 || ed.day > 28 {
			return fmt.Errorf("%w: %s day %d outside 1-28", ErrInvalidSchedule, ed.event, ed.day)
		}
		if prev, ok := seen[ed.day]; ok {
			return fmt.Errorf("%w: %s and %s both on day %d", ErrInvalidSchedule, prev, ed.event, ed.day)
		}
		seen[ed.day] = ed.event
	}
	return nil
}

// IsSource reports whether money arrives on this day of month.
func (s Schedule) IsSource(day int) bool {
	return day == s.PayDay || day == s.PassiveIncomeDay
}

// IsSink reports whether a bill is paid on this day of month.
func (s Schedule) IsSink(day int) bool {
	return day == s.AdminDay || day == s.CreditCardDay || day == s.UtilitiesDay || day == s.MortgageDay
}

// EventOn returns the event scheduled on a day of month, if any.
func (s Schedule) EventOn(day int) (Event, bool) {
	for _, ed := range s.days() {
		if ed.day == day {
			return ed.event, true
		}
	}
	return "", false
}

// Amounts holds the base value of every recurring cash movement.
type Amounts struct {
	Salary         float64 `toml:"salary"`
	PassiveIncome  float64 `toml:"passive_income"`
	Admin          float64 `toml:"admin"`
	CreditCard     float64 `toml:"credit_card"`
	Utilities      float64 `toml:"utilities"`
	Mortgage       float64 `toml:"mortgage"`
	OpeningBalance float64 `toml:"opening_balance"`
	BonusFraction  float64 `toml:"bonus_fraction"`
	BonusMonths    []int   `toml:"bonus_months"`
}

// DefaultAmounts returns the reference household amounts.
func DefaultAmounts() Amounts {
	return Amounts{
		Salary:        12500,
		PassiveIncome: 1000,
		Admin:         400,
		CreditCard:    8000,
		Utilities:     35,
		Mortgage:      1750,
		BonusFraction: 0.5,
		BonusMonths:   []int{6, 12},
	}
}

// Validate rejects negative amounts and bonus months outside 1-12.
func (a Amounts) Validate() error {
	for name, v := range map[string]float64{
		"salary":          a.Salary,
		"passive_income":  a.PassiveIncome,
		"admin":           a.Admin,
		"credit_card":     a.CreditCard,
		"utilities":       a.Utilities,
		"mortgage":        a.Mortgage,
		"opening_balance": a.OpeningBalance,
		"bonus_fraction":  a.BonusFraction,
	} {
		if v < 0 {
			return fmt.Errorf("%w: amounts.%s is negative", ErrInvalidConfig, name)
		}
	}
	for _, m := range a.BonusMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("%w: bonus month %d outside 1-12", ErrInvalidConfig, m)
		}
	}
	return nil
}

// IsBonusMonth reports whether salary paid in month m carries the bonus.
func (a Amounts) IsBonusMonth(m time.Month) bool {
	for _, bm := range a.BonusMonths {
		if time.Month(bm) == m {
			return true
		}
	}
	return false
}

// Increments holds the yearly inflation ratchet. A month of 0 never ratchets.
type Increments struct {
	Inflation          float64 `toml:"inflation"`
	SalaryMonth        int     `toml:"salary_month"`
	PassiveIncomeMonth int     `toml:"passive_income_month"`
	AdminMonth         int     `toml:"admin_month"`
	CreditCardMonth    int     `toml:"credit_card_month"`
	UtilitiesMonth     int     `toml:"utilities_month"`
	MortgageMonth      int     `toml:"mortgage_month"`
}

// DefaultIncrements ratchets incomes, cards and utilities every January.
func DefaultIncrements() Increments {
	return Increments{
		Inflation:          0.05,
		SalaryMonth:        1,
		PassiveIncomeMonth: 1,
		CreditCardMonth:    1,
		UtilitiesMonth:     1,
	}
}

// MonthFor returns the increment month configured for an event.
func (inc Increments) MonthFor(e Event) time.Month {
	switch e {
	case EventSalary:
		return time.Month(inc.SalaryMonth)
	case EventPassiveIncome:
		return time.Month(inc.PassiveIncomeMonth)
	case EventAdmin:
		return time.Month(inc.AdminMonth)
	case EventCreditCard:
		return time.Month(inc.CreditCardMonth)
	case EventUtilities:
		return time.Month(inc.UtilitiesMonth)
	case EventMortgage:
		return time.Month(inc.MortgageMonth)
	}
	return 0
}

// Validate rejects months outside 0-12 and inflation at or below -100%.
func (inc Increments) Validate() error {
	if inc.Inflation <= -1 {
		return fmt.Errorf("%w: inflation %g must be > -1", ErrInvalidConfig, inc.Inflation)
	}
	for _, e := range []Event{EventSalary, EventPassiveIncome, EventAdmin, EventCreditCard, EventUtilities, EventMortgage} {
		if m := inc.MonthFor(e); m < 0 || m > 12 {
			return fmt.Errorf("%w: %s increment month %d outside 0-12", ErrInvalidConfig, e, m)
		}
	}
	return nil
}
