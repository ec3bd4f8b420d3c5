package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/cli"
	"github.com/theirongolddev/cfplan/internal/fincal"
	"github.com/theirongolddev/cfplan/internal/model"
)

var coefficientsCmd = &cobra.Command{
	Use:     "coefficients",
	Aliases: []string{"coeffs"},
	Short:   "Show the growth factor of every possible deposit",
	RunE:    runCoefficients,
}

func init() {
	rootCmd.AddCommand(coefficientsCmd)
}

func runCoefficients(cmd *cobra.Command, _ []string) error {
	in, err := loadInputs(cmd.Context())
	if err != nil {
		return err
	}
	defer in.Close()

	p, err := in.prepare()
	if err != nil {
		return err
	}
	g, coeffs := p.Graph(), p.Coefficients()
	nodes := g.Nodes()
	ratesDate := in.cfg.Horizon.RatesDate

	t := cli.Table{
		Title:   fmt.Sprintf("Growth factors at the %s rate sheet", ratesDate),
		Headers: []string{"Arc", "From", "To", "Days", "Rate", "Factor"},
	}
	for _, a := range g.Arcs(model.Investable) {
		from, to := nodes[a.From].Date, nodes[a.To].Date
		days := fincal.DaysBetween(from, to)
		factor, _ := coeffs.Get(a.From, a.To)
		rate := "-"
		if r, err := in.rates.Rate(ratesDate, days); err == nil {
			rate = cli.FormatRate(r)
		}
		t.Rows = append(t.Rows, []string{
			a.String(),
			cli.FormatDate(from),
			cli.FormatDate(to),
			fmt.Sprintf("%d", days),
			rate,
			cli.FormatFactor(factor),
		})
	}

	fmt.Println()
	if len(t.Rows) == 0 {
		fmt.Println("  No investable arcs: the horizon is shorter than the minimum deposit.")
		fmt.Println()
		return nil
	}
	fmt.Print(cli.RenderTable(t))
	fmt.Println()
	return nil
}
