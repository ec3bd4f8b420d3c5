package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/cli"
	"github.com/theirongolddev/cfplan/internal/pipeline"
	"github.com/theirongolddev/cfplan/internal/report"
)

var (
	flagSweepOut       string
	flagSweepWorkers   int
	flagSweepNodeLimit int
	flagSweepTimeLimit time.Duration
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Solve with every branch-and-bound setting and log the results",
	Long: "Solve the same model once per combination of node selection, branching rule\n" +
		"and gap with the built-in solver, appending one row per run to a CSV log.",
	RunE: runSweep,
}

func init() {
	grid := pipeline.DefaultSweepGrid()
	sweepCmd.Flags().StringVar(&flagSweepOut, "out", "experiment_results.csv", "CSV log to append to")
	sweepCmd.Flags().IntVarP(&flagSweepWorkers, "workers", "w", 0, "Parallel solves (default GOMAXPROCS)")
	sweepCmd.Flags().IntVar(&flagSweepNodeLimit, "node-limit", grid.NodeLimit, "Node limit per run")
	sweepCmd.Flags().DurationVar(&flagSweepTimeLimit, "time-limit", grid.TimeLimit, "Time limit per run")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	in, err := loadInputs(cmd.Context())
	if err != nil {
		return err
	}
	defer in.Close()

	p, err := in.prepare()
	if err != nil {
		return err
	}

	grid := pipeline.DefaultSweepGrid()
	grid.Workers = flagSweepWorkers
	grid.NodeLimit = flagSweepNodeLimit
	grid.TimeLimit = flagSweepTimeLimit

	progressFn := func(current, total int) {
		progressf("\r  Sweeping %s", cli.RenderProgressBar(current, total, 30))
	}
	rows := pipeline.Sweep(cmd.Context(), p.Formulation().Model, grid, log, progressFn)
	progressf("\n")

	if err := report.AppendSweep(flagSweepOut, rows); err != nil {
		return err
	}

	t := cli.Table{
		Title:       "Sweep results",
		Headers:     []string{"Branch", "Node select", "Gap", "Status", "Objective", "Nodes", "Time"},
		LeftAligned: []int{1, 3},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Branch,
			r.NodeSel,
			fmt.Sprintf("%g", r.Gap),
			cli.RenderStatus(r.Status),
			cli.FormatMoney(r.Objective),
			cli.FormatNumber(int64(r.Nodes)),
			cli.FormatDuration(r.Duration),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(t))
	fmt.Fprintf(os.Stdout, "\n  Appended %d rows to %s\n\n", len(rows), flagSweepOut)
	return nil
}
