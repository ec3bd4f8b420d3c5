package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/cli"
	"github.com/theirongolddev/cfplan/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	section := func(name string, pairs [][2]string) {
		fmt.Printf("  [%s]\n", name)
		fmt.Print(cli.RenderKeyValues(pairs))
		fmt.Println()
	}

	g := cfg.General
	section("General", [][2]string{
		{"Rates file", orNone(g.RatesFile)},
		{"Rates URL", orNone(g.RatesURL)},
		{"Database", config.DatabasePath(cfg)},
		{"Log level", g.LogLevel},
		{"Output dir", orNone(g.OutputDir)},
	})

	h := cfg.Horizon
	section("Horizon", [][2]string{
		{"Start", cli.FormatDate(h.Start)},
		{"End", cli.FormatDate(h.End)},
		{"Rates date", cli.FormatDate(h.RatesDate)},
	})

	s, a := cfg.Schedule, cfg.Amounts
	section("Schedule and amounts", [][2]string{
		{"Salary", fmt.Sprintf("day %2d  %s", s.PayDay, cli.FormatMoney(a.Salary))},
		{"Passive income", fmt.Sprintf("day %2d  %s", s.PassiveIncomeDay, cli.FormatMoney(a.PassiveIncome))},
		{"Admin", fmt.Sprintf("day %2d  %s", s.AdminDay, cli.FormatMoney(a.Admin))},
		{"Credit card", fmt.Sprintf("day %2d  %s", s.CreditCardDay, cli.FormatMoney(a.CreditCard))},
		{"Utilities", fmt.Sprintf("day %2d  %s", s.UtilitiesDay, cli.FormatMoney(a.Utilities))},
		{"Mortgage", fmt.Sprintf("day %2d  %s", s.MortgageDay, cli.FormatMoney(a.Mortgage))},
		{"Opening balance", cli.FormatMoney(a.OpeningBalance)},
		{"Bonus", fmt.Sprintf("%s of salary in months %s", cli.FormatRate(a.BonusFraction), joinInts(a.BonusMonths))},
		{"Inflation", cli.FormatRate(cfg.Increments.Inflation)},
	})

	sv := cfg.Solver
	section("Solver", [][2]string{
		{"Backend", sv.Backend},
		{"CBC path", sv.CBCPath},
		{"Time limit", fmt.Sprintf("%ds", sv.TimeLimitSecs)},
		{"Gap", fmt.Sprintf("%g", sv.Gap)},
		{"Node limit", cli.FormatNumber(int64(sv.NodeLimit))},
		{"Node select / branch", sv.NodeSelect + " / " + sv.Branch},
	})

	section("Appearance", [][2]string{{"Theme", cfg.Appearance.Theme}})

	fmt.Println("  Run `cfplan setup` to reconfigure.")
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, ", ")
}
