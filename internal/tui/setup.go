package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/tui/theme"
)

// SetupValues holds the setup wizard's answers as the strings the form
// edits.
type SetupValues struct {
	PayDay, PassiveIncomeDay, AdminDay       string
	CreditCardDay, UtilitiesDay, MortgageDay string

	Salary, PassiveIncome, Admin    string
	CreditCard, Utilities, Mortgage string
	OpeningBalance                  string

	RatesFile string
	Backend   string
	Theme     string
}

// SetupValuesFrom seeds the wizard with the current configuration.
func SetupValuesFrom(cfg config.Config) SetupValues {
	day := strconv.Itoa
	amount := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	s, a := cfg.Schedule, cfg.Amounts
	return SetupValues{
		PayDay:           day(s.PayDay),
		PassiveIncomeDay: day(s.PassiveIncomeDay),
		AdminDay:         day(s.AdminDay),
		CreditCardDay:    day(s.CreditCardDay),
		UtilitiesDay:     day(s.UtilitiesDay),
		MortgageDay:      day(s.MortgageDay),
		Salary:           amount(a.Salary),
		PassiveIncome:    amount(a.PassiveIncome),
		Admin:            amount(a.Admin),
		CreditCard:       amount(a.CreditCard),
		Utilities:        amount(a.Utilities),
		Mortgage:         amount(a.Mortgage),
		OpeningBalance:   amount(a.OpeningBalance),
		RatesFile:        cfg.General.RatesFile,
		Backend:          cfg.Solver.Backend,
		Theme:            cfg.Appearance.Theme,
	}
}

func validateDay(s string) error {
	d, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || d < 1 || d > 28 {
		return fmt.Errorf("enter a day between 1 and 28")
	}
	return nil
}

func validateAmount(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return fmt.Errorf("enter a non-negative amount")
	}
	return nil
}

// NewSetupForm builds the wizard. Answers are written into v as the user
// edits them.
func NewSetupForm(v *SetupValues) *huh.Form {
	dayInput := func(title string, val *string) huh.Field {
		return huh.NewInput().Title(title).Value(val).Validate(validateDay)
	}
	amountInput := func(title string, val *string) huh.Field {
		return huh.NewInput().Title(title).Value(val).Validate(validateAmount)
	}

	return huh.NewForm(
		huh.NewGroup(
			dayInput("Salary day", &v.PayDay),
			dayInput("Passive income day", &v.PassiveIncomeDay),
			dayInput("Admin fees day", &v.AdminDay),
			dayInput("Credit card day", &v.CreditCardDay),
			dayInput("Utilities day", &v.UtilitiesDay),
			dayInput("Mortgage day", &v.MortgageDay),
		).Title("Monthly schedule").Description("Days of the month, 1-28, no two events on the same day."),
		huh.NewGroup(
			amountInput("Salary", &v.Salary),
			amountInput("Passive income", &v.PassiveIncome),
			amountInput("Admin fees", &v.Admin),
			amountInput("Credit card", &v.CreditCard),
			amountInput("Utilities", &v.Utilities),
			amountInput("Mortgage", &v.Mortgage),
			amountInput("Opening balance", &v.OpeningBalance),
		).Title("Amounts").Description("Base amount of each movement."),
		huh.NewGroup(
			huh.NewInput().Title("Rate sheet").Description("CSV path or http(s) URL").Value(&v.RatesFile),
			huh.NewSelect[string]().
				Title("Solver").
				Options(
					huh.NewOption("CBC (external binary)", config.BackendCBC),
					huh.NewOption("Built-in branch and bound", config.BackendBranchAndBound),
				).
				Value(&v.Backend),
			huh.NewSelect[string]().
				Title("Theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&v.Theme),
		).Title("Sources"),
	)
}

// Apply copies the answers into cfg and validates the result. cfg is left
// unchanged on error.
func (v SetupValues) Apply(cfg *config.Config) error {
	next := *cfg
	var err error
	day := func(s string) int {
		n, e := strconv.Atoi(strings.TrimSpace(s))
		if e != nil && err == nil {
			err = fmt.Errorf("%w: day %q", config.ErrInvalidConfig, s)
		}
		return n
	}
	amount := func(s string) float64 {
		f, e := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if e != nil && err == nil {
			err = fmt.Errorf("%w: amount %q", config.ErrInvalidConfig, s)
		}
		return f
	}

	next.Schedule = config.Schedule{
		PayDay:           day(v.PayDay),
		PassiveIncomeDay: day(v.PassiveIncomeDay),
		AdminDay:         day(v.AdminDay),
		CreditCardDay:    day(v.CreditCardDay),
		UtilitiesDay:     day(v.UtilitiesDay),
		MortgageDay:      day(v.MortgageDay),
	}
	next.Amounts.Salary = amount(v.Salary)
	next.Amounts.PassiveIncome = amount(v.PassiveIncome)
	next.Amounts.Admin = amount(v.Admin)
	next.Amounts.CreditCard = amount(v.CreditCard)
	next.Amounts.Utilities = amount(v.Utilities)
	next.Amounts.Mortgage = amount(v.Mortgage)
	next.Amounts.OpeningBalance = amount(v.OpeningBalance)
	if err != nil {
		return err
	}

	next.General.RatesFile = strings.TrimSpace(v.RatesFile)
	next.Solver.Backend = v.Backend
	next.Appearance.Theme = v.Theme
	if err := next.Validate(); err != nil {
		return err
	}
	*cfg = next
	return nil
}
