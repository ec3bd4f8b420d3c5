package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/cli"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/pipeline"
	"github.com/theirongolddev/cfplan/internal/report"
)

var (
	flagPlanCSV    bool
	flagPlanOutDir string
	flagPlanAll    bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Solve the deposit plan for the horizon",
	RunE:  runPlan,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, planCmd} {
		c.Flags().BoolVar(&flagPlanCSV, "csv", false, "Write positions to cfo_between_<start>_and_<end>.csv")
		c.Flags().StringVarP(&flagPlanOutDir, "out", "o", "", "Directory for the CSV (default general.output_dir or .)")
		c.Flags().BoolVar(&flagPlanAll, "balances", false, "Also list daily savings balances")
	}
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	in, err := loadInputs(ctx)
	if err != nil {
		return err
	}
	defer in.Close()

	p, err := in.prepare()
	if err != nil {
		return err
	}
	solver, err := in.solver()
	if err != nil {
		return err
	}

	h := in.cfg.Horizon
	progressf("  Solving %s → %s with %s...\n", h.Start, h.End, in.cfg.Solver.Backend)
	res, err := p.Solve(ctx, solver)
	if err != nil {
		return err
	}

	printPlan(res, flagPlanAll)

	if flagPlanCSV && len(res.Positions) > 0 {
		dir := flagPlanOutDir
		if dir == "" {
			dir = in.cfg.General.OutputDir
		}
		if dir == "" {
			dir = "."
		}
		path, err := report.WriteCSVFile(dir, h.Start, h.End, res.Positions)
		if err != nil {
			return err
		}
		fmt.Printf("  Positions written to %s\n\n", path)
	}

	if in.store != nil {
		run := &model.PlanRun{Summary: res.Summary, Positions: res.Positions}
		if err := in.store.SavePlanRun(run); err != nil {
			log.WithError(err).Warn("could not save plan run")
		} else {
			progressf("  Saved as run %s\n", run.ID[:8])
		}
	}
	return nil
}

func printPlan(res *pipeline.Result, withBalances bool) {
	s := res.Summary

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("CASH-FLOW PLAN  %s → %s", s.Start, s.End)))
	fmt.Println()
	fmt.Print(renderSummary(s))
	fmt.Println()

	if !res.Solution.Status.HasValues() {
		fmt.Println("  No feasible plan: bills cannot be paid from the opening balance and income.")
		if short := pipeline.Shortfall(res.Formulation.Graph); short > 0 {
			fmt.Printf("  Raise amounts.opening_balance by at least %s.\n", cli.FormatMoney(short))
		}
		fmt.Println()
		return
	}

	fmt.Print(cli.RenderTable(positionTable("Deposits", res.Positions, model.Investment)))
	fmt.Println()
	if withBalances {
		fmt.Print(cli.RenderTable(positionTable("Savings balance", res.Positions, model.Balance)))
		fmt.Println()
	}
}

func renderSummary(s model.PlanSummary) string {
	return cli.RenderKeyValues([][2]string{
		{"Status", cli.RenderStatus(s.Status)},
		{"Final cash", cli.FormatMoney(s.Objective)},
		{"Interest earned", cli.FormatMoney(s.TotalInterest)},
		{"Deposits", fmt.Sprintf("%d (largest %s)", s.Investments, cli.FormatMoney(s.LargestDeposit))},
		{"Inflow / outflow", cli.FormatMoney(s.TotalInflow) + " / " + cli.FormatMoney(s.TotalOutflow)},
		{"Rates date", s.RatesDate.String()},
		{"Network", fmt.Sprintf("%d nodes, %d carry arcs, %d investable arcs", s.Nodes, s.CarryArcs, s.InvestableArcs)},
		{"Solve time", cli.FormatDuration(s.SolveDuration)},
	})
}

func positionTable(title string, positions []model.Position, kind model.PositionKind) cli.Table {
	t := cli.Table{
		Title:   title,
		Headers: []string{"From", "To", "Days", "Amount", "Factor", "Interest"},
	}
	var amount, interest float64
	for _, p := range positions {
		if p.Kind != kind {
			continue
		}
		t.Rows = append(t.Rows, []string{
			cli.FormatDate(p.From),
			cli.FormatDate(p.To),
			fmt.Sprintf("%d", p.Days),
			cli.FormatMoney(p.Amount),
			cli.FormatFactor(p.Factor),
			cli.FormatMoney(p.Interest),
		})
		amount += p.Amount
		interest += p.Interest
	}
	if len(t.Rows) == 0 {
		t.Rows = [][]string{{"none"}}
		return t
	}
	if kind == model.Investment {
		t.Rows = append(t.Rows, cli.SeparatorRow,
			[]string{"Total", "", "", cli.FormatMoney(amount), "", cli.FormatMoney(interest)})
	}
	return t
}
